// Package store provides document persistence behind one repository contract
// with an in-memory implementation and a database/sql implementation. Both
// evaluate the same predicate trees produced by the query translator.
package store

import (
	"context"
	"errors"

	"github.com/shapr-cms/shapr/internal/query"
	"github.com/shapr-cms/shapr/internal/schema"
)

// Document is a stored record in map form.
type Document = map[string]any

// ErrNotFound is returned when an identifier does not exist.
var ErrNotFound = errors.New("document not found")

// Query carries the find parameters: an optional predicate, ordering keys and
// an offset/limit window. Limit <= 0 means unbounded.
type Query struct {
	Predicate *query.PredicateGroup
	Sort      []query.SortField
	Offset    int
	Limit     int
}

// Repository is the persistence contract one collection's documents live
// behind. Save inserts when the document has no identifier and updates
// otherwise; it returns the stored form including the assigned identifier.
type Repository interface {
	FindAll(ctx context.Context, coll *schema.CollectionDefinition, q Query) ([]Document, error)
	FindByID(ctx context.Context, coll *schema.CollectionDefinition, id any) (Document, error)
	Save(ctx context.Context, coll *schema.CollectionDefinition, doc Document) (Document, error)
	ExistsByID(ctx context.Context, coll *schema.CollectionDefinition, id any) (bool, error)
	DeleteByID(ctx context.Context, coll *schema.CollectionDefinition, id any) error
	Count(ctx context.Context, coll *schema.CollectionDefinition, predicate *query.PredicateGroup) (int64, error)
}
