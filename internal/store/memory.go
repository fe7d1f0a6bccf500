package store

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/shapr-cms/shapr/internal/query"
	"github.com/shapr-cms/shapr/internal/schema"
)

// Memory is an in-process repository. Documents are deep-copied on the way in
// and out so callers can never mutate stored state through a returned map.
type Memory struct {
	mu      sync.RWMutex
	byID    map[string]map[string]Document
	order   map[string][]string
	counter map[string]int64
}

// NewMemory creates an empty in-memory repository.
func NewMemory() *Memory {
	return &Memory{
		byID:    make(map[string]map[string]Document),
		order:   make(map[string][]string),
		counter: make(map[string]int64),
	}
}

func idKey(id any) string {
	return fmt.Sprintf("%v", id)
}

func deepCopy(doc Document) Document {
	if doc == nil {
		return nil
	}
	out := make(Document, len(doc))
	for k, v := range doc {
		if nested, ok := v.(map[string]any); ok {
			out[k] = deepCopy(nested)
			continue
		}
		if list, ok := v.([]any); ok {
			copied := make([]any, len(list))
			copy(copied, list)
			out[k] = copied
			continue
		}
		out[k] = v
	}
	return out
}

// FindAll returns matching documents in insertion order unless sort keys are
// given, windowed by offset/limit.
func (m *Memory) FindAll(_ context.Context, coll *schema.CollectionDefinition, q Query) ([]Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var docs []Document
	for _, key := range m.order[coll.Slug] {
		doc := m.byID[coll.Slug][key]
		if q.Predicate != nil && !q.Predicate.Matches(doc) {
			continue
		}
		docs = append(docs, deepCopy(doc))
	}

	sortDocs(docs, q.Sort)

	if q.Offset > 0 {
		if q.Offset >= len(docs) {
			return nil, nil
		}
		docs = docs[q.Offset:]
	}
	if q.Limit > 0 && len(docs) > q.Limit {
		docs = docs[:q.Limit]
	}
	return docs, nil
}

// sortDocs applies a stable multi-key sort.
func sortDocs(docs []Document, keys []query.SortField) {
	if len(keys) == 0 {
		return
	}
	sort.SliceStable(docs, func(i, j int) bool {
		for _, key := range keys {
			cmp := compareDocValues(docs[i][key.Field], docs[j][key.Field])
			if cmp == 0 {
				continue
			}
			if key.Desc {
				return cmp > 0
			}
			return cmp < 0
		}
		return false
	})
}

func compareDocValues(a, b any) int {
	if a == nil || b == nil {
		switch {
		case a == nil && b == nil:
			return 0
		case a == nil:
			return -1
		default:
			return 1
		}
	}

	if ta, ok := a.(time.Time); ok {
		if tb, ok := b.(time.Time); ok {
			switch {
			case ta.Before(tb):
				return -1
			case ta.After(tb):
				return 1
			default:
				return 0
			}
		}
	}

	if fa, ok := toComparableFloat(a); ok {
		if fb, ok := toComparableFloat(b); ok {
			switch {
			case fa < fb:
				return -1
			case fa > fb:
				return 1
			default:
				return 0
			}
		}
	}

	return strings.Compare(fmt.Sprintf("%v", a), fmt.Sprintf("%v", b))
}

func toComparableFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}

// FindByID returns the document or ErrNotFound.
func (m *Memory) FindByID(_ context.Context, coll *schema.CollectionDefinition, id any) (Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	doc, ok := m.byID[coll.Slug][idKey(id)]
	if !ok {
		return nil, ErrNotFound
	}
	return deepCopy(doc), nil
}

// Save inserts the document when it carries no id, assigning one according to
// the collection's identifier kind, and replaces the stored document
// otherwise.
func (m *Memory) Save(_ context.Context, coll *schema.CollectionDefinition, doc Document) (Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	stored := deepCopy(doc)

	if m.byID[coll.Slug] == nil {
		m.byID[coll.Slug] = make(map[string]Document)
	}

	id, hasID := stored["id"]
	if !hasID || id == nil {
		switch coll.IDKind() {
		case schema.IDString:
			id = uuid.NewString()
		default:
			m.counter[coll.Slug]++
			id = m.counter[coll.Slug]
		}
		stored["id"] = id
	}

	key := idKey(id)
	if _, exists := m.byID[coll.Slug][key]; !exists {
		m.order[coll.Slug] = append(m.order[coll.Slug], key)
	}
	m.byID[coll.Slug][key] = stored

	return deepCopy(stored), nil
}

// ExistsByID reports whether the identifier is stored.
func (m *Memory) ExistsByID(_ context.Context, coll *schema.CollectionDefinition, id any) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	_, ok := m.byID[coll.Slug][idKey(id)]
	return ok, nil
}

// DeleteByID removes the document or returns ErrNotFound.
func (m *Memory) DeleteByID(_ context.Context, coll *schema.CollectionDefinition, id any) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := idKey(id)
	if _, ok := m.byID[coll.Slug][key]; !ok {
		return ErrNotFound
	}
	delete(m.byID[coll.Slug], key)

	order := m.order[coll.Slug]
	for i, k := range order {
		if k == key {
			m.order[coll.Slug] = append(order[:i], order[i+1:]...)
			break
		}
	}
	return nil
}

// Count returns the number of documents matching the predicate.
func (m *Memory) Count(_ context.Context, coll *schema.CollectionDefinition, predicate *query.PredicateGroup) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var n int64
	for _, doc := range m.byID[coll.Slug] {
		if predicate == nil || predicate.Matches(doc) {
			n++
		}
	}
	return n, nil
}
