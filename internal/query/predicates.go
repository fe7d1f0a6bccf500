package query

import (
	"fmt"
	"strings"
	"time"

	"github.com/shapr-cms/shapr/internal/schema"
)

// Condition is one resolved predicate on a document field. Field is the
// document key path as declared on the collection; SQL rendering converts it
// to its snake_case column form.
type Condition struct {
	Field    string
	Operator Operator
	Value    any
	// Temporal marks a comparison whose operand was reinterpreted as an
	// epoch-millisecond instant because the field is not numeric.
	Temporal bool
}

// PredicateGroup combines conditions and nested groups. Children join with
// AND unless Or is set.
type PredicateGroup struct {
	Conditions []Condition
	Groups     []PredicateGroup
	Or         bool
}

// Empty reports whether the group constrains nothing.
func (g PredicateGroup) Empty() bool {
	return len(g.Conditions) == 0 && len(g.Groups) == 0
}

// ToSQL renders the group as a parenthesized SQL expression using $n
// placeholders, appending operand values to args. argIndex carries the next
// placeholder number across the whole tree.
func (g PredicateGroup) ToSQL(argIndex *int, args *[]any) string {
	var parts []string

	for _, c := range g.Conditions {
		parts = append(parts, c.toSQL(argIndex, args))
	}
	for _, sub := range g.Groups {
		if sub.Empty() {
			continue
		}
		parts = append(parts, sub.ToSQL(argIndex, args))
	}

	if len(parts) == 0 {
		return "TRUE"
	}

	joiner := " AND "
	if g.Or {
		joiner = " OR "
	}
	return "(" + strings.Join(parts, joiner) + ")"
}

func (c Condition) toSQL(argIndex *int, args *[]any) string {
	column := schema.ToSnakeCase(c.Field)

	place := func(v any) string {
		*args = append(*args, v)
		p := fmt.Sprintf("$%d", *argIndex)
		*argIndex++
		return p
	}

	switch c.Operator {
	case OpEquals:
		if c.Value == nil {
			return column + " IS NULL"
		}
		return fmt.Sprintf("%s = %s", column, place(c.Value))
	case OpNotEquals:
		if c.Value == nil {
			return column + " IS NOT NULL"
		}
		return fmt.Sprintf("%s != %s", column, place(c.Value))
	case OpContains, OpLike:
		return fmt.Sprintf("LOWER(%s) LIKE %s ESCAPE '\\'", column, place(likePattern(c.Value)))
	case OpNotLike:
		return fmt.Sprintf("LOWER(%s) NOT LIKE %s ESCAPE '\\'", column, place(likePattern(c.Value)))
	case OpGreaterThan:
		return fmt.Sprintf("%s > %s", column, place(c.operand()))
	case OpGreaterThanEqual:
		return fmt.Sprintf("%s >= %s", column, place(c.operand()))
	case OpLessThan:
		return fmt.Sprintf("%s < %s", column, place(c.operand()))
	case OpLessThanEqual:
		return fmt.Sprintf("%s <= %s", column, place(c.operand()))
	case OpIn, OpNotIn:
		values, _ := c.Value.([]any)
		if len(values) == 0 {
			// The translator drops empty lists; this guard keeps a
			// hand-built tree well formed.
			if c.Operator == OpIn {
				return "FALSE"
			}
			return "TRUE"
		}
		places := make([]string, len(values))
		for i, v := range values {
			places[i] = place(v)
		}
		op := "IN"
		if c.Operator == OpNotIn {
			op = "NOT IN"
		}
		return fmt.Sprintf("%s %s (%s)", column, op, strings.Join(places, ", "))
	case OpExists:
		if wantExists, _ := c.Value.(bool); wantExists {
			return column + " IS NOT NULL"
		}
		return column + " IS NULL"
	default:
		return "TRUE"
	}
}

// operand returns the comparison operand, converted to a timestamp for
// temporal comparisons.
func (c Condition) operand() any {
	if !c.Temporal {
		return c.Value
	}
	if millis, ok := toFloat(c.Value); ok {
		return time.UnixMilli(int64(millis)).UTC()
	}
	return c.Value
}

// likePattern lowercases the operand, escapes LIKE metacharacters and wraps
// it in wildcards.
func likePattern(value any) string {
	s := strings.ToLower(fmt.Sprintf("%v", value))
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `%`, `\%`)
	s = strings.ReplaceAll(s, `_`, `\_`)
	return "%" + s + "%"
}

// Matches evaluates the group against an in-memory document.
func (g PredicateGroup) Matches(doc map[string]any) bool {
	if g.Or {
		for _, c := range g.Conditions {
			if c.matches(doc) {
				return true
			}
		}
		for _, sub := range g.Groups {
			if sub.Empty() {
				continue
			}
			if sub.Matches(doc) {
				return true
			}
		}
		return g.Empty()
	}

	for _, c := range g.Conditions {
		if !c.matches(doc) {
			return false
		}
	}
	for _, sub := range g.Groups {
		if sub.Empty() {
			continue
		}
		if !sub.Matches(doc) {
			return false
		}
	}
	return true
}

func (c Condition) matches(doc map[string]any) bool {
	value, present := lookupPath(doc, c.Field)

	switch c.Operator {
	case OpEquals:
		return looseEqual(value, c.Value)
	case OpNotEquals:
		return !looseEqual(value, c.Value)
	case OpContains, OpLike:
		if value == nil {
			return false
		}
		needle := strings.ToLower(fmt.Sprintf("%v", c.Value))
		return strings.Contains(strings.ToLower(fmt.Sprintf("%v", value)), needle)
	case OpNotLike:
		if value == nil {
			return true
		}
		needle := strings.ToLower(fmt.Sprintf("%v", c.Value))
		return !strings.Contains(strings.ToLower(fmt.Sprintf("%v", value)), needle)
	case OpGreaterThan:
		cmp, ok := compareOrdered(value, c)
		return ok && cmp > 0
	case OpGreaterThanEqual:
		cmp, ok := compareOrdered(value, c)
		return ok && cmp >= 0
	case OpLessThan:
		cmp, ok := compareOrdered(value, c)
		return ok && cmp < 0
	case OpLessThanEqual:
		cmp, ok := compareOrdered(value, c)
		return ok && cmp <= 0
	case OpIn:
		values, _ := c.Value.([]any)
		for _, v := range values {
			if looseEqual(value, v) {
				return true
			}
		}
		return false
	case OpNotIn:
		values, _ := c.Value.([]any)
		for _, v := range values {
			if looseEqual(value, v) {
				return false
			}
		}
		return true
	case OpExists:
		wantExists, _ := c.Value.(bool)
		has := present && value != nil
		return has == wantExists
	default:
		return true
	}
}

// lookupPath resolves a dotted path through nested maps.
func lookupPath(doc map[string]any, path string) (any, bool) {
	segments := strings.Split(path, ".")
	var current any = doc
	for _, seg := range segments {
		m, ok := current.(map[string]any)
		if !ok {
			return nil, false
		}
		current, ok = m[seg]
		if !ok {
			return nil, false
		}
	}
	return current, true
}

// looseEqual compares with numeric coercion so JSON float64 operands match
// stored int64 values.
func looseEqual(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if fa, ok := toFloat(a); ok {
		if fb, ok := toFloat(b); ok {
			return fa == fb
		}
		return false
	}
	return fmt.Sprintf("%v", a) == fmt.Sprintf("%v", b)
}

// compareOrdered returns the sign of value - operand. ok is false when the
// pair is not comparable, in which case every ordered comparison fails.
func compareOrdered(value any, c Condition) (int, bool) {
	if c.Temporal {
		lhs, ok := asTime(value)
		if !ok {
			return 0, false
		}
		millis, ok := toFloat(c.Value)
		if !ok {
			return 0, false
		}
		rhs := time.UnixMilli(int64(millis)).UTC()
		switch {
		case lhs.Before(rhs):
			return -1, true
		case lhs.After(rhs):
			return 1, true
		default:
			return 0, true
		}
	}

	lhs, ok := toFloat(value)
	if !ok {
		return 0, false
	}
	rhs, ok := toFloat(c.Value)
	if !ok {
		return 0, false
	}
	switch {
	case lhs < rhs:
		return -1, true
	case lhs > rhs:
		return 1, true
	default:
		return 0, true
	}
}

func toFloat(v any) (float64, bool) {
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
	case uint64:
		return float64(n), true
	default:
		return 0, false
	}
}

func asTime(v any) (time.Time, bool) {
	switch t := v.(type) {
	case time.Time:
		return t, true
	case string:
		parsed, err := time.Parse(time.RFC3339, t)
		if err != nil {
			return time.Time{}, false
		}
		return parsed, true
	default:
		if millis, ok := toFloat(v); ok {
			return time.UnixMilli(int64(millis)).UTC(), true
		}
		return time.Time{}, false
	}
}
