package schema

import (
	"fmt"
	"sort"
	"strings"
)

// Config is an ordered set of collection definitions.
type Config struct {
	Collections []CollectionDefinition
}

// DuplicateSlugError reports every slug declared by more than one collection
// in a merged configuration set.
type DuplicateSlugError struct {
	// Collisions maps each duplicated slug to the names of all collections
	// claiming it, in declaration order.
	Collisions map[string][]string
}

// Error enumerates every offending slug and the colliding collection names.
func (e *DuplicateSlugError) Error() string {
	slugs := make([]string, 0, len(e.Collisions))
	for slug := range e.Collisions {
		slugs = append(slugs, slug)
	}
	sort.Strings(slugs)

	var b strings.Builder
	b.WriteString("duplicate collection slugs:")
	for _, slug := range slugs {
		fmt.Fprintf(&b, " %q used by [%s]", slug, strings.Join(e.Collisions[slug], ", "))
	}
	return b.String()
}

// Merge combines configs into one, preserving declaration order. It fails
// when any slug appears more than once across the union; the error names
// every duplicate slug and all collections involved.
func Merge(configs ...Config) (Config, error) {
	var merged Config
	seen := make(map[string][]string)

	for _, cfg := range configs {
		for _, coll := range cfg.Collections {
			seen[coll.Slug] = append(seen[coll.Slug], coll.Name)
			merged.Collections = append(merged.Collections, coll)
		}
	}

	collisions := make(map[string][]string)
	for slug, names := range seen {
		if len(names) > 1 {
			collisions[slug] = names
		}
	}
	if len(collisions) > 0 {
		return Config{}, &DuplicateSlugError{Collisions: collisions}
	}
	return merged, nil
}

// BySlug returns the collection with the given slug, or nil.
func (c *Config) BySlug(slug string) *CollectionDefinition {
	for i := range c.Collections {
		if c.Collections[i].Slug == slug {
			return &c.Collections[i]
		}
	}
	return nil
}

// ByName returns the collection with the given name, or nil.
func (c *Config) ByName(name string) *CollectionDefinition {
	for i := range c.Collections {
		if c.Collections[i].Name == name {
			return &c.Collections[i]
		}
	}
	return nil
}
