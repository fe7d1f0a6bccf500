package codegen

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/shapr-cms/shapr/internal/schema"
)

func exportedName(field string) string {
	runes := []rune(field)
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}

// GenerateModel emits the entity struct and its repository type for one
// collection.
func (g *Generator) GenerateModel(coll *schema.CollectionDefinition) (string, error) {
	if coll.Name == "" {
		return "", fmt.Errorf("collection has no name")
	}

	g.reset()
	entity := coll.EntityName()
	idType := idGoType(coll)
	table := strings.ReplaceAll(coll.Slug, "-", "_")

	g.imports["database/sql"] = true
	g.imports["context"] = true
	g.imports["fmt"] = true
	for i := range coll.Fields {
		if coll.Fields[i].Kind == schema.KindDate {
			g.imports["time"] = true
		}
	}
	if coll.Timestamps {
		g.imports["time"] = true
	}

	g.writeLine("// Code generated from the %s collection definition. DO NOT EDIT.", coll.Name)
	g.writeLine("")
	g.writeLine("package %s", g.pkg)
	g.writeLine("")
	g.writeImports()
	g.writeLine("")

	// Entity struct.
	g.writeLine("// %s is one document of the %q collection.", entity, coll.Slug)
	g.writeLine("type %s struct {", entity)
	g.indent++
	g.writeLine("ID %s `json:\"id\" db:\"id\"`", idType)
	for i := range coll.Fields {
		f := &coll.Fields[i]
		if f.Name == "id" {
			continue
		}
		g.writeLine("%s %s `json:%q db:%q`",
			exportedName(f.Name), goType(f), f.Name, schema.ToSnakeCase(f.Name))
	}
	if coll.Timestamps {
		g.writeLine("CreatedAt time.Time `json:\"createdAt\" db:\"created_at\"`")
		g.writeLine("UpdatedAt time.Time `json:\"updatedAt\" db:\"updated_at\"`")
	}
	g.indent--
	g.writeLine("}")
	g.writeLine("")

	g.writeLine("// TableName returns the backing table for %s.", entity)
	g.writeLine("func (%s) TableName() string { return %q }", entity, table)
	g.writeLine("")

	g.generateRepository(coll, entity, idType, table)

	return g.buf.String(), nil
}

// generateRepository emits the persistence type bound to the entity and its
// identifier type.
func (g *Generator) generateRepository(coll *schema.CollectionDefinition, entity, idType, table string) {
	repo := entity + "Repository"

	cols := []string{"id"}
	fields := []string{"ID"}
	for i := range coll.Fields {
		f := &coll.Fields[i]
		if f.Name == "id" {
			continue
		}
		cols = append(cols, schema.ToSnakeCase(f.Name))
		fields = append(fields, exportedName(f.Name))
	}
	if coll.Timestamps {
		cols = append(cols, "created_at", "updated_at")
		fields = append(fields, "CreatedAt", "UpdatedAt")
	}

	scanArgs := make([]string, len(fields))
	for i, f := range fields {
		scanArgs[i] = "&e." + f
	}

	g.writeLine("// %s persists %s documents.", repo, entity)
	g.writeLine("type %s struct {", repo)
	g.indent++
	g.writeLine("db *sql.DB")
	g.indent--
	g.writeLine("}")
	g.writeLine("")

	g.writeLine("// New%s creates a repository over an open database handle.", repo)
	g.writeLine("func New%s(db *sql.DB) *%s {", repo, repo)
	g.indent++
	g.writeLine("return &%s{db: db}", repo)
	g.indent--
	g.writeLine("}")
	g.writeLine("")

	columnList := strings.Join(cols, ", ")

	g.writeLine("func (r *%s) scan(row interface{ Scan(...any) error }) (*%s, error) {", repo, entity)
	g.indent++
	g.writeLine("var e %s", entity)
	g.writeLine("if err := row.Scan(%s); err != nil {", strings.Join(scanArgs, ", "))
	g.indent++
	g.writeLine("return nil, err")
	g.indent--
	g.writeLine("}")
	g.writeLine("return &e, nil")
	g.indent--
	g.writeLine("}")
	g.writeLine("")

	g.writeLine("// FindAll returns every stored %s.", entity)
	g.writeLine("func (r *%s) FindAll(ctx context.Context) ([]*%s, error) {", repo, entity)
	g.indent++
	g.writeLine("rows, err := r.db.QueryContext(ctx, %q)", fmt.Sprintf("SELECT %s FROM %s ORDER BY id", columnList, table))
	g.writeLine("if err != nil {")
	g.indent++
	g.writeLine("return nil, fmt.Errorf(\"find all %s: %%w\", err)", table)
	g.indent--
	g.writeLine("}")
	g.writeLine("defer rows.Close()")
	g.writeLine("")
	g.writeLine("var out []*%s", entity)
	g.writeLine("for rows.Next() {")
	g.indent++
	g.writeLine("e, err := r.scan(rows)")
	g.writeLine("if err != nil {")
	g.indent++
	g.writeLine("return nil, err")
	g.indent--
	g.writeLine("}")
	g.writeLine("out = append(out, e)")
	g.indent--
	g.writeLine("}")
	g.writeLine("return out, rows.Err()")
	g.indent--
	g.writeLine("}")
	g.writeLine("")

	g.writeLine("// FindByID returns the %s with the identifier, or sql.ErrNoRows.", entity)
	g.writeLine("func (r *%s) FindByID(ctx context.Context, id %s) (*%s, error) {", repo, idType, entity)
	g.indent++
	g.writeLine("row := r.db.QueryRowContext(ctx, %q, id)", fmt.Sprintf("SELECT %s FROM %s WHERE id = $1", columnList, table))
	g.writeLine("return r.scan(row)")
	g.indent--
	g.writeLine("}")
	g.writeLine("")

	g.generateSave(coll, repo, entity, table)

	g.writeLine("// ExistsByID reports whether the identifier is stored.")
	g.writeLine("func (r *%s) ExistsByID(ctx context.Context, id %s) (bool, error) {", repo, idType)
	g.indent++
	g.writeLine("var exists bool")
	g.writeLine("err := r.db.QueryRowContext(ctx, %q, id).Scan(&exists)", fmt.Sprintf("SELECT EXISTS (SELECT 1 FROM %s WHERE id = $1)", table))
	g.writeLine("return exists, err")
	g.indent--
	g.writeLine("}")
	g.writeLine("")

	g.writeLine("// DeleteByID removes the row. sql.ErrNoRows marks a missing identifier.")
	g.writeLine("func (r *%s) DeleteByID(ctx context.Context, id %s) error {", repo, idType)
	g.indent++
	g.writeLine("result, err := r.db.ExecContext(ctx, %q, id)", fmt.Sprintf("DELETE FROM %s WHERE id = $1", table))
	g.writeLine("if err != nil {")
	g.indent++
	g.writeLine("return err")
	g.indent--
	g.writeLine("}")
	g.writeLine("if n, err := result.RowsAffected(); err == nil && n == 0 {")
	g.indent++
	g.writeLine("return sql.ErrNoRows")
	g.indent--
	g.writeLine("}")
	g.writeLine("return nil")
	g.indent--
	g.writeLine("}")
	g.writeLine("")

	g.writeLine("// Count returns the number of stored documents.")
	g.writeLine("func (r *%s) Count(ctx context.Context) (int64, error) {", repo)
	g.indent++
	g.writeLine("var n int64")
	g.writeLine("err := r.db.QueryRowContext(ctx, %q).Scan(&n)", fmt.Sprintf("SELECT COUNT(*) FROM %s", table))
	g.writeLine("return n, err")
	g.indent--
	g.writeLine("}")
}

func (g *Generator) generateSave(coll *schema.CollectionDefinition, repo, entity, table string) {
	var cols, fields []string
	for i := range coll.Fields {
		f := &coll.Fields[i]
		if f.Name == "id" {
			continue
		}
		cols = append(cols, schema.ToSnakeCase(f.Name))
		fields = append(fields, exportedName(f.Name))
	}
	if coll.Timestamps {
		cols = append(cols, "created_at", "updated_at")
		fields = append(fields, "CreatedAt", "UpdatedAt")
	}

	places := make([]string, len(cols))
	sets := make([]string, len(cols))
	args := make([]string, len(fields))
	for i := range cols {
		places[i] = fmt.Sprintf("$%d", i+1)
		sets[i] = fmt.Sprintf("%s = $%d", cols[i], i+1)
		args[i] = "e." + fields[i]
	}

	insert := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) RETURNING id",
		table, strings.Join(cols, ", "), strings.Join(places, ", "))
	update := fmt.Sprintf("UPDATE %s SET %s WHERE id = $%d",
		table, strings.Join(sets, ", "), len(cols)+1)

	g.writeLine("// Save inserts when the identifier is zero and updates otherwise.")
	g.writeLine("func (r *%s) Save(ctx context.Context, e *%s) error {", repo, entity)
	g.indent++
	g.writeLine("var zero %s", idGoType(coll))
	g.writeLine("if e.ID == zero {")
	g.indent++
	g.writeLine("return r.db.QueryRowContext(ctx, %q, %s).Scan(&e.ID)", insert, strings.Join(args, ", "))
	g.indent--
	g.writeLine("}")
	g.writeLine("result, err := r.db.ExecContext(ctx, %q, %s, e.ID)", update, strings.Join(args, ", "))
	g.writeLine("if err != nil {")
	g.indent++
	g.writeLine("return err")
	g.indent--
	g.writeLine("}")
	g.writeLine("if n, err := result.RowsAffected(); err == nil && n == 0 {")
	g.indent++
	g.writeLine("return sql.ErrNoRows")
	g.indent--
	g.writeLine("}")
	g.writeLine("return nil")
	g.indent--
	g.writeLine("}")
	g.writeLine("")
}
