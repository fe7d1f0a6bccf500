// Package runtime executes collection operations: it resolves collections,
// enforces access rules, runs the hook pipeline around the store, and shapes
// paginated results.
package runtime

import (
	"errors"
	"fmt"

	"github.com/shapr-cms/shapr/internal/schema"
)

var (
	// ErrUnknownCollection marks a slug with no registered collection.
	ErrUnknownCollection = errors.New("unknown collection")
	// ErrAccessDenied marks a request rejected by an access rule.
	ErrAccessDenied = errors.New("access denied")
	// ErrValidation marks a document that fails field validation.
	ErrValidation = errors.New("validation failed")
)

// Registry maps slugs to their collection definitions. It is populated once
// at startup and read-only afterwards.
type Registry struct {
	bySlug map[string]*schema.CollectionDefinition
	order  []*schema.CollectionDefinition
}

// NewRegistry indexes the merged configuration by slug.
func NewRegistry(cfg schema.Config) *Registry {
	r := &Registry{bySlug: make(map[string]*schema.CollectionDefinition, len(cfg.Collections))}
	for i := range cfg.Collections {
		coll := &cfg.Collections[i]
		r.bySlug[coll.Slug] = coll
		r.order = append(r.order, coll)
	}
	return r
}

// Resolve returns the collection for a slug. The error names the entity type
// the slug would map to, which helps diagnose naming-convention mismatches.
func (r *Registry) Resolve(slug string) (*schema.CollectionDefinition, error) {
	coll, ok := r.bySlug[slug]
	if !ok {
		return nil, fmt.Errorf("%w: %q (expected entity %s)",
			ErrUnknownCollection, slug, schema.SlugToClassName(slug))
	}
	return coll, nil
}

// All returns the collections in configuration order.
func (r *Registry) All() []*schema.CollectionDefinition {
	return r.order
}
