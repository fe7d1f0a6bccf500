package hooks

import (
	"sync"

	"github.com/shapr-cms/shapr/internal/schema"
)

// Registry holds CollectionHooks instances keyed by their binding name. A
// binding may carry any number of hook sets; they execute in registration
// order.
type Registry struct {
	mu    sync.RWMutex
	bound map[string][]CollectionHooks
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{bound: make(map[string][]CollectionHooks)}
}

// Register appends a hook set under its Collection() name.
func (r *Registry) Register(h CollectionHooks) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.bound[h.Collection()] = append(r.bound[h.Collection()], h)
}

// ForCollection resolves every hook set bound to a collection, in
// registration order. Bindings are tried in order: the collection name, the
// entity name derived from the slug, and the raw slug. The first binding
// with registrations wins; nil means no hooks are registered.
func (r *Registry) ForCollection(coll *schema.CollectionDefinition) []CollectionHooks {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, key := range []string{coll.Name, schema.SlugToClassName(coll.Slug), coll.Slug} {
		if key == "" {
			continue
		}
		if hs, ok := r.bound[key]; ok && len(hs) > 0 {
			return hs
		}
	}
	return nil
}
