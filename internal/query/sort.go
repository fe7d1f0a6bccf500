package query

import (
	"strings"

	"github.com/shapr-cms/shapr/internal/schema"
)

// SortField is one ordering key.
type SortField struct {
	Field string
	Desc  bool
}

// ParseSort parses a comma-separated sort parameter. A leading "-" marks
// descending order. Names that are not fields of the collection are silently
// skipped.
func ParseSort(coll *schema.CollectionDefinition, raw string) []SortField {
	if raw == "" {
		return nil
	}

	var fields []SortField
	for _, part := range strings.Split(raw, ",") {
		name := strings.TrimSpace(part)
		if name == "" {
			continue
		}

		desc := false
		if strings.HasPrefix(name, "-") {
			desc = true
			name = name[1:]
		}

		if _, builtin := builtinField(coll, name); !coll.HasField(name) && !builtin {
			continue
		}
		fields = append(fields, SortField{Field: name, Desc: desc})
	}
	return fields
}
