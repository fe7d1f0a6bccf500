package query

import (
	"fmt"
	"sort"
	"strings"

	"github.com/shapr-cms/shapr/internal/schema"
)

// Translator resolves filter expressions against collection definitions. The
// configuration is needed to follow relationship paths into their target
// collections.
type Translator struct {
	config schema.Config
}

// NewTranslator creates a translator over the merged configuration.
func NewTranslator(config schema.Config) *Translator {
	return &Translator{config: config}
}

// Translate converts a Where into a predicate tree for the collection. A nil
// or empty Where returns nil, meaning unconstrained. Unknown field paths and
// paths whose non-terminal segments are not relationships are ErrInvalidQuery.
func (t *Translator) Translate(coll *schema.CollectionDefinition, where *Where) (*PredicateGroup, error) {
	if where == nil || where.Empty() {
		return nil, nil
	}

	group, err := t.translateWhere(coll, *where)
	if err != nil {
		return nil, err
	}
	if group.Empty() {
		return nil, nil
	}
	return &group, nil
}

func (t *Translator) translateWhere(coll *schema.CollectionDefinition, where Where) (PredicateGroup, error) {
	group := PredicateGroup{}

	// Iterate fields in a stable order so SQL placeholder numbering is
	// deterministic.
	paths := make([]string, 0, len(where.Fields))
	for path := range where.Fields {
		paths = append(paths, path)
	}
	sort.Strings(paths)

	for _, path := range paths {
		conditions, err := t.translateField(coll, path, where.Fields[path])
		if err != nil {
			return PredicateGroup{}, err
		}
		group.Conditions = append(group.Conditions, conditions...)
	}

	for _, nested := range where.And {
		sub, err := t.translateWhere(coll, nested)
		if err != nil {
			return PredicateGroup{}, err
		}
		if !sub.Empty() {
			group.Groups = append(group.Groups, sub)
		}
	}

	if len(where.Or) > 0 {
		orGroup := PredicateGroup{Or: true}
		for _, nested := range where.Or {
			sub, err := t.translateWhere(coll, nested)
			if err != nil {
				return PredicateGroup{}, err
			}
			if !sub.Empty() {
				orGroup.Groups = append(orGroup.Groups, sub)
			}
		}
		if !orGroup.Empty() {
			group.Groups = append(group.Groups, orGroup)
		}
	}

	return group, nil
}

func (t *Translator) translateField(coll *schema.CollectionDefinition, path string, field WhereField) ([]Condition, error) {
	terminal, temporal, err := t.resolvePath(coll, path)
	if err != nil {
		return nil, err
	}
	if terminal != nil {
		temporal = !terminal.IsNumeric()
	}

	// Stable operator order for deterministic output.
	ops := make([]string, 0, len(field))
	for op := range field {
		ops = append(ops, string(op))
	}
	sort.Strings(ops)

	var conditions []Condition
	for _, name := range ops {
		op := Operator(name)
		value := field[op]

		switch op {
		case OpNear, OpWithin, OpIntersects:
			// Geo operators are accepted but contribute no predicate.
			continue
		case OpIn, OpNotIn:
			values, ok := value.([]any)
			if !ok {
				return nil, fmt.Errorf("%w: %s on %q requires a list", ErrInvalidQuery, op, path)
			}
			if len(values) == 0 {
				continue
			}
			conditions = append(conditions, Condition{Field: path, Operator: op, Value: values})
		case OpAll:
			// Simplified semantics: a conjunction of equality predicates,
			// not true array containment.
			values, ok := value.([]any)
			if !ok {
				return nil, fmt.Errorf("%w: all on %q requires a list", ErrInvalidQuery, path)
			}
			for _, v := range values {
				conditions = append(conditions, Condition{Field: path, Operator: OpEquals, Value: v})
			}
		case OpGreaterThan, OpGreaterThanEqual, OpLessThan, OpLessThanEqual:
			conditions = append(conditions, Condition{
				Field:    path,
				Operator: op,
				Value:    value,
				Temporal: temporal,
			})
		default:
			conditions = append(conditions, Condition{Field: path, Operator: op, Value: value})
		}
	}

	return conditions, nil
}

// resolvePath validates a dotted field path against the collection. Every
// non-terminal segment must name a relationship field; when the relationship
// target is registered in the configuration, resolution continues into it,
// otherwise the remainder of the path is accepted as-is. The returned field
// definition is the terminal field when one is known, nil for built-in
// columns and unresolvable tails. temporal is true when the terminal is a
// built-in timestamp column.
func (t *Translator) resolvePath(coll *schema.CollectionDefinition, path string) (*schema.FieldDefinition, bool, error) {
	segments := strings.Split(path, ".")
	current := coll

	for i, seg := range segments {
		last := i == len(segments)-1

		if kind, ok := builtinField(current, seg); ok {
			if !last {
				return nil, false, fmt.Errorf("%w: field %q in path %q is not a relationship", ErrInvalidQuery, seg, path)
			}
			return nil, kind == builtinDate, nil
		}

		field := current.Field(seg)
		if field == nil {
			return nil, false, fmt.Errorf("%w: unknown field %q on collection %q", ErrInvalidQuery, seg, current.Slug)
		}

		if last {
			return field, false, nil
		}

		if field.Kind != schema.KindRelationship {
			return nil, false, fmt.Errorf("%w: field %q in path %q is not a relationship", ErrInvalidQuery, seg, path)
		}

		target := t.config.BySlug(field.RelationTo)
		if target == nil {
			// Unregistered relationship target: the first hop is validated,
			// the rest of the path cannot be checked.
			return nil, false, nil
		}
		current = target
	}

	return nil, false, nil
}

type builtinKind int

const (
	builtinID builtinKind = iota
	builtinDate
)

func builtinField(coll *schema.CollectionDefinition, name string) (builtinKind, bool) {
	switch name {
	case "id":
		return builtinID, true
	case "createdAt", "updatedAt":
		if coll.Timestamps {
			return builtinDate, true
		}
	}
	return 0, false
}
