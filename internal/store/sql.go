package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/shapr-cms/shapr/internal/query"
	"github.com/shapr-cms/shapr/internal/schema"
)

// SQL is a repository over a database/sql handle. Table and column names are
// derived from the collection definition, never from request input, so
// identifiers are safe to interpolate; every value travels as a $n parameter.
type SQL struct {
	db *sql.DB
}

// NewSQL creates a repository over an open database handle.
func NewSQL(db *sql.DB) *SQL {
	return &SQL{db: db}
}

func tableName(coll *schema.CollectionDefinition) string {
	return strings.ReplaceAll(coll.Slug, "-", "_")
}

// columns returns the ordered column list and the matching document keys.
func columns(coll *schema.CollectionDefinition) (cols, keys []string) {
	cols = append(cols, "id")
	keys = append(keys, "id")
	for _, f := range coll.Fields {
		if f.Name == "id" {
			continue
		}
		cols = append(cols, schema.ToSnakeCase(f.Name))
		keys = append(keys, f.Name)
	}
	if coll.Timestamps {
		cols = append(cols, "created_at", "updated_at")
		keys = append(keys, "createdAt", "updatedAt")
	}
	return cols, keys
}

func scanDoc(rows *sql.Rows, keys []string) (Document, error) {
	values := make([]any, len(keys))
	targets := make([]any, len(keys))
	for i := range values {
		targets[i] = &values[i]
	}
	if err := rows.Scan(targets...); err != nil {
		return nil, err
	}

	doc := make(Document, len(keys))
	for i, key := range keys {
		if b, ok := values[i].([]byte); ok {
			doc[key] = string(b)
			continue
		}
		doc[key] = values[i]
	}
	return doc, nil
}

// FindAll executes a windowed select under the query's predicate and ordering.
func (s *SQL) FindAll(ctx context.Context, coll *schema.CollectionDefinition, q Query) ([]Document, error) {
	cols, keys := columns(coll)

	var sb strings.Builder
	fmt.Fprintf(&sb, "SELECT %s FROM %s", strings.Join(cols, ", "), tableName(coll))

	argIndex := 1
	var args []any
	if q.Predicate != nil && !q.Predicate.Empty() {
		sb.WriteString(" WHERE ")
		sb.WriteString(q.Predicate.ToSQL(&argIndex, &args))
	}

	if len(q.Sort) > 0 {
		orders := make([]string, len(q.Sort))
		for i, key := range q.Sort {
			dir := "ASC"
			if key.Desc {
				dir = "DESC"
			}
			orders[i] = schema.ToSnakeCase(key.Field) + " " + dir
		}
		sb.WriteString(" ORDER BY " + strings.Join(orders, ", "))
	}

	if q.Limit > 0 {
		fmt.Fprintf(&sb, " LIMIT $%d", argIndex)
		args = append(args, q.Limit)
		argIndex++
	}
	if q.Offset > 0 {
		fmt.Fprintf(&sb, " OFFSET $%d", argIndex)
		args = append(args, q.Offset)
		argIndex++
	}

	rows, err := s.db.QueryContext(ctx, sb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("find %s: %w", coll.Slug, err)
	}
	defer rows.Close()

	var docs []Document
	for rows.Next() {
		doc, err := scanDoc(rows, keys)
		if err != nil {
			return nil, fmt.Errorf("scan %s: %w", coll.Slug, err)
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

// FindByID returns the document or ErrNotFound.
func (s *SQL) FindByID(ctx context.Context, coll *schema.CollectionDefinition, id any) (Document, error) {
	cols, keys := columns(coll)
	stmt := fmt.Sprintf("SELECT %s FROM %s WHERE id = $1", strings.Join(cols, ", "), tableName(coll))

	rows, err := s.db.QueryContext(ctx, stmt, id)
	if err != nil {
		return nil, fmt.Errorf("find %s by id: %w", coll.Slug, err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, err
		}
		return nil, ErrNotFound
	}
	return scanDoc(rows, keys)
}

// Save inserts when the document has no id and updates otherwise. The stored
// row is read back so defaults and assigned identifiers are reflected.
func (s *SQL) Save(ctx context.Context, coll *schema.CollectionDefinition, doc Document) (Document, error) {
	id, hasID := doc["id"]

	if !hasID || id == nil {
		newID, err := s.insert(ctx, coll, doc)
		if err != nil {
			return nil, err
		}
		return s.FindByID(ctx, coll, newID)
	}

	if err := s.update(ctx, coll, id, doc); err != nil {
		return nil, err
	}
	return s.FindByID(ctx, coll, id)
}

func (s *SQL) insert(ctx context.Context, coll *schema.CollectionDefinition, doc Document) (any, error) {
	var cols []string
	var places []string
	var args []any
	argIndex := 1

	appendCol := func(col string, value any) {
		cols = append(cols, col)
		places = append(places, fmt.Sprintf("$%d", argIndex))
		args = append(args, value)
		argIndex++
	}

	for _, f := range coll.Fields {
		if f.Name == "id" {
			continue
		}
		if value, ok := doc[f.Name]; ok {
			appendCol(schema.ToSnakeCase(f.Name), value)
		}
	}
	if coll.Timestamps {
		if v, ok := doc["createdAt"]; ok {
			appendCol("created_at", v)
		}
		if v, ok := doc["updatedAt"]; ok {
			appendCol("updated_at", v)
		}
	}

	stmt := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) RETURNING id",
		tableName(coll), strings.Join(cols, ", "), strings.Join(places, ", "))

	var id any
	if err := s.db.QueryRowContext(ctx, stmt, args...).Scan(&id); err != nil {
		return nil, fmt.Errorf("insert %s: %w", coll.Slug, err)
	}
	return id, nil
}

func (s *SQL) update(ctx context.Context, coll *schema.CollectionDefinition, id any, doc Document) error {
	var sets []string
	var args []any
	argIndex := 1

	appendSet := func(col string, value any) {
		sets = append(sets, fmt.Sprintf("%s = $%d", col, argIndex))
		args = append(args, value)
		argIndex++
	}

	for _, f := range coll.Fields {
		if f.Name == "id" {
			continue
		}
		if value, ok := doc[f.Name]; ok {
			appendSet(schema.ToSnakeCase(f.Name), value)
		}
	}
	if coll.Timestamps {
		if v, ok := doc["updatedAt"]; ok {
			appendSet("updated_at", v)
		}
	}
	if len(sets) == 0 {
		return nil
	}

	stmt := fmt.Sprintf("UPDATE %s SET %s WHERE id = $%d",
		tableName(coll), strings.Join(sets, ", "), argIndex)
	args = append(args, id)

	result, err := s.db.ExecContext(ctx, stmt, args...)
	if err != nil {
		return fmt.Errorf("update %s: %w", coll.Slug, err)
	}
	if affected, err := result.RowsAffected(); err == nil && affected == 0 {
		return ErrNotFound
	}
	return nil
}

// ExistsByID reports whether the identifier is stored.
func (s *SQL) ExistsByID(ctx context.Context, coll *schema.CollectionDefinition, id any) (bool, error) {
	stmt := fmt.Sprintf("SELECT EXISTS (SELECT 1 FROM %s WHERE id = $1)", tableName(coll))

	var exists bool
	if err := s.db.QueryRowContext(ctx, stmt, id).Scan(&exists); err != nil {
		return false, fmt.Errorf("exists %s: %w", coll.Slug, err)
	}
	return exists, nil
}

// DeleteByID removes the row or returns ErrNotFound.
func (s *SQL) DeleteByID(ctx context.Context, coll *schema.CollectionDefinition, id any) error {
	stmt := fmt.Sprintf("DELETE FROM %s WHERE id = $1", tableName(coll))

	result, err := s.db.ExecContext(ctx, stmt, id)
	if err != nil {
		return fmt.Errorf("delete %s: %w", coll.Slug, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// Count returns the number of rows matching the predicate.
func (s *SQL) Count(ctx context.Context, coll *schema.CollectionDefinition, predicate *query.PredicateGroup) (int64, error) {
	var sb strings.Builder
	fmt.Fprintf(&sb, "SELECT COUNT(*) FROM %s", tableName(coll))

	argIndex := 1
	var args []any
	if predicate != nil && !predicate.Empty() {
		sb.WriteString(" WHERE ")
		sb.WriteString(predicate.ToSQL(&argIndex, &args))
	}

	var n int64
	if err := s.db.QueryRowContext(ctx, sb.String(), args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count %s: %w", coll.Slug, err)
	}
	return n, nil
}

// IsNotFound reports whether the error is the repository's not-found marker,
// unwrapping as needed.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound) || errors.Is(err, sql.ErrNoRows)
}
