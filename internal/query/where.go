// Package query parses the generic filter language and translates it into
// predicate trees that both the in-memory store and the SQL store can
// evaluate.
package query

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrInvalidQuery marks client errors in a filter expression: malformed JSON,
// unknown operators, or field paths that do not exist on the collection.
var ErrInvalidQuery = errors.New("invalid query")

// Operator is one filter operator inside a WhereField.
type Operator string

const (
	OpEquals           Operator = "equals"
	OpNotEquals        Operator = "not_equals"
	OpContains         Operator = "contains"
	OpLike             Operator = "like"
	OpNotLike          Operator = "not_like"
	OpGreaterThan      Operator = "greater_than"
	OpGreaterThanEqual Operator = "greater_than_equal"
	OpLessThan         Operator = "less_than"
	OpLessThanEqual    Operator = "less_than_equal"
	OpIn               Operator = "in"
	OpNotIn            Operator = "not_in"
	OpAll              Operator = "all"
	OpExists           Operator = "exists"
	OpNear             Operator = "near"
	OpWithin           Operator = "within"
	OpIntersects       Operator = "intersects"
)

var knownOperators = map[Operator]bool{
	OpEquals: true, OpNotEquals: true,
	OpContains: true, OpLike: true, OpNotLike: true,
	OpGreaterThan: true, OpGreaterThanEqual: true,
	OpLessThan: true, OpLessThanEqual: true,
	OpIn: true, OpNotIn: true,
	OpAll: true, OpExists: true,
	OpNear: true, OpWithin: true, OpIntersects: true,
}

// WhereField is the operator set applied to one field path.
type WhereField map[Operator]any

// Where is the nested filter expression: leaf field conditions plus optional
// and/or lists of nested expressions. An empty Where matches everything.
type Where struct {
	Fields map[string]WhereField
	And    []Where
	Or     []Where
}

// Empty reports whether the expression contributes no constraint.
func (w Where) Empty() bool {
	return len(w.Fields) == 0 && len(w.And) == 0 && len(w.Or) == 0
}

// ParseWhere decodes a JSON-encoded Where. Keys named "and" and "or" hold
// lists of nested expressions; every other key is a field path whose value is
// either an operator map or a bare value treated as equals.
func ParseWhere(raw string) (Where, error) {
	if raw == "" {
		return Where{}, nil
	}

	var decoded map[string]any
	if err := json.Unmarshal([]byte(raw), &decoded); err != nil {
		return Where{}, fmt.Errorf("%w: malformed where JSON: %v", ErrInvalidQuery, err)
	}
	return whereFromMap(decoded)
}

func whereFromMap(m map[string]any) (Where, error) {
	w := Where{}

	for key, value := range m {
		switch key {
		case "and", "or":
			list, ok := value.([]any)
			if !ok {
				return Where{}, fmt.Errorf("%w: %q must be a list", ErrInvalidQuery, key)
			}
			for _, item := range list {
				child, ok := item.(map[string]any)
				if !ok {
					return Where{}, fmt.Errorf("%w: %q entries must be objects", ErrInvalidQuery, key)
				}
				nested, err := whereFromMap(child)
				if err != nil {
					return Where{}, err
				}
				if key == "and" {
					w.And = append(w.And, nested)
				} else {
					w.Or = append(w.Or, nested)
				}
			}
		default:
			field, err := whereFieldFromValue(key, value)
			if err != nil {
				return Where{}, err
			}
			if w.Fields == nil {
				w.Fields = make(map[string]WhereField)
			}
			w.Fields[key] = field
		}
	}

	return w, nil
}

func whereFieldFromValue(path string, value any) (WhereField, error) {
	ops, ok := value.(map[string]any)
	if !ok {
		// Bare value shorthand for equality.
		return WhereField{OpEquals: value}, nil
	}

	field := make(WhereField, len(ops))
	for name, operand := range ops {
		op := Operator(name)
		if !knownOperators[op] {
			return nil, fmt.Errorf("%w: unknown operator %q on field %q", ErrInvalidQuery, name, path)
		}
		field[op] = operand
	}
	return field, nil
}
