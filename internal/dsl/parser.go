// Package dsl parses collection definitions from Shapr source text. The
// parser isolates each block with delimiter-balanced extraction before
// applying any sub-pattern, so attribute matches can never cross block
// boundaries.
package dsl

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/shapr-cms/shapr/internal/schema"
)

var (
	collectionRe = regexp.MustCompile(`collection\s*\(\s*"([^"]+)"\s*\)\s*\{`)
	slugRe       = regexp.MustCompile(`slug\s*=\s*"([^"]+)"`)
	timestampsRe = regexp.MustCompile(`timestamps\s*=\s*(true|false)`)
	accessRe     = regexp.MustCompile(`access\s*\{`)
	fieldsRe     = regexp.MustCompile(`fields\s*\{`)
	adminRe      = regexp.MustCompile(`admin\s*\{`)
	fieldRe      = regexp.MustCompile(`(text|textarea|number|checkbox|email|date|relationship)\s*\(\s*"([^"]+)"\s*\)(\s*\{)?`)
	quotedRe     = regexp.MustCompile(`"([^"]*)"`)

	useAsTitleRe     = regexp.MustCompile(`useAsTitle\s*=\s*"([^"]+)"`)
	defaultColumnsRe = regexp.MustCompile(`defaultColumns\s*=\s*\[([^\]]*)\]`)
	groupRe          = regexp.MustCompile(`group\s*=\s*"([^"]+)"`)

	maxLengthRe    = regexp.MustCompile(`maxLength\s*=\s*(\d+)`)
	minLengthRe    = regexp.MustCompile(`minLength\s*=\s*(\d+)`)
	minRe          = regexp.MustCompile(`\bmin\s*=\s*(-?\d+(?:\.\d+)?)`)
	maxRe          = regexp.MustCompile(`\bmax\s*=\s*(-?\d+(?:\.\d+)?)`)
	relationToRe   = regexp.MustCompile(`relationTo\s*=\s*"([^"]*)"`)
	labelRe        = regexp.MustCompile(`label\s*=\s*"([^"]+)"`)
	descriptionRe  = regexp.MustCompile(`description\s*=\s*"([^"]+)"`)
	defaultStrRe   = regexp.MustCompile(`defaultValue\s*=\s*"((?:[^"\\]|\\.)*)"`)
	defaultBoolRe  = regexp.MustCompile(`defaultValue\s*=\s*(true|false)`)
	defaultNumRe   = regexp.MustCompile(`defaultValue\s*=\s*(-?\d+(?:\.\d+)?)`)
)

// Parse extracts every collection block from source text and returns the
// merged configuration. Truncated or unbalanced blocks produce no collection;
// structural errors inside a block (such as a relationship with no target)
// are configuration errors.
func Parse(source string) (schema.Config, error) {
	var cfg schema.Config

	for _, match := range collectionRe.FindAllStringSubmatchIndex(source, -1) {
		name := source[match[2]:match[3]]
		body, ok := balancedBlock(source, match[1])
		if !ok {
			// Unbalanced input: no collection produced for this block.
			continue
		}

		coll, err := parseCollection(name, body)
		if err != nil {
			return schema.Config{}, err
		}
		cfg.Collections = append(cfg.Collections, coll)
	}

	return schema.Merge(cfg)
}

// balancedBlock returns the text between the opening brace at start-1 and its
// matching close brace, counting nested pairs. ok is false when the input
// ends before the depth returns to zero.
func balancedBlock(content string, start int) (string, bool) {
	depth := 1
	pos := start
	for pos < len(content) && depth > 0 {
		switch content[pos] {
		case '{':
			depth++
		case '}':
			depth--
		}
		pos++
	}
	if depth != 0 {
		return "", false
	}
	return content[start : pos-1], true
}

func parseCollection(name, body string) (schema.CollectionDefinition, error) {
	coll := schema.CollectionDefinition{
		Name: name,
		Slug: schema.DefaultSlug(name),
		Labels: schema.Labels{
			Singular: name,
			Plural:   schema.Pluralize(name),
		},
		Access:     schema.DefaultAccess(),
		Timestamps: true,
	}

	if m := slugRe.FindStringSubmatch(body); m != nil {
		coll.Slug = m[1]
	}
	if m := timestampsRe.FindStringSubmatch(body); m != nil {
		coll.Timestamps = m[1] == "true"
	}

	if m := accessRe.FindStringIndex(body); m != nil {
		if block, ok := balancedBlock(body, m[1]); ok {
			coll.Access = parseAccess(block)
		}
	}

	if m := fieldsRe.FindStringIndex(body); m != nil {
		if block, ok := balancedBlock(body, m[1]); ok {
			fields, err := parseFields(name, block)
			if err != nil {
				return schema.CollectionDefinition{}, err
			}
			coll.Fields = fields
		}
	}

	if m := adminRe.FindStringIndex(body); m != nil {
		if block, ok := balancedBlock(body, m[1]); ok {
			coll.Admin = parseAdmin(block)
		}
	}

	return coll, nil
}

func parseAccess(block string) schema.AccessControl {
	return schema.AccessControl{
		Create: parseAccessRule(block, "create"),
		Read:   parseAccessRule(block, "read"),
		Update: parseAccessRule(block, "update"),
		Delete: parseAccessRule(block, "delete"),
	}
}

func parseAccessRule(block, verb string) schema.AccessRule {
	re := regexp.MustCompile(verb + `\s*=\s*(\w+)\s*\(([^)]*)\)`)
	m := re.FindStringSubmatch(block)
	if m == nil {
		return schema.Roles("admin")
	}

	switch m[1] {
	case "public":
		return schema.Public()
	case "authenticated":
		return schema.Authenticated()
	case "deny":
		return schema.Deny()
	case "roles":
		var roles []string
		for _, q := range quotedRe.FindAllStringSubmatch(m[2], -1) {
			roles = append(roles, q[1])
		}
		if len(roles) == 0 {
			roles = []string{"admin"}
		}
		return schema.Roles(roles...)
	default:
		return schema.Roles("admin")
	}
}

func parseFields(collection, block string) ([]schema.FieldDefinition, error) {
	var fields []schema.FieldDefinition

	for _, match := range fieldRe.FindAllStringSubmatchIndex(block, -1) {
		kind := block[match[2]:match[3]]
		name := block[match[4]:match[5]]

		config := ""
		if match[6] >= 0 {
			// The field declares its own config block; isolate it before
			// matching any attribute patterns.
			body, ok := balancedBlock(block, match[7])
			if !ok {
				continue
			}
			config = body
		}

		field, err := parseField(collection, kind, name, config)
		if err != nil {
			return nil, err
		}
		fields = append(fields, field)
	}

	return fields, nil
}

func parseField(collection, kind, name, config string) (schema.FieldDefinition, error) {
	field := schema.FieldDefinition{Name: name}

	field.Required = boolAttr(config, "required")
	field.Unique = boolAttr(config, "unique")
	if m := labelRe.FindStringSubmatch(config); m != nil {
		field.Label = m[1]
	}
	if m := descriptionRe.FindStringSubmatch(config); m != nil {
		field.Description = m[1]
	}

	switch kind {
	case "text":
		field.Kind = schema.KindText
		field.MaxLength = 255
		if m := maxLengthRe.FindStringSubmatch(config); m != nil {
			field.MaxLength, _ = strconv.Atoi(m[1])
		}
		if m := minLengthRe.FindStringSubmatch(config); m != nil {
			field.MinLength, _ = strconv.Atoi(m[1])
		}
		if m := defaultStrRe.FindStringSubmatch(config); m != nil {
			field.DefaultValue = m[1]
		}
	case "textarea":
		field.Kind = schema.KindTextarea
		if m := defaultStrRe.FindStringSubmatch(config); m != nil {
			field.DefaultValue = m[1]
		}
	case "number":
		field.Kind = schema.KindNumber
		field.IntegerOnly = boolAttr(config, "integerOnly")
		if m := minRe.FindStringSubmatch(config); m != nil {
			v, _ := strconv.ParseFloat(m[1], 64)
			field.Min = &v
		}
		if m := maxRe.FindStringSubmatch(config); m != nil {
			v, _ := strconv.ParseFloat(m[1], 64)
			field.Max = &v
		}
		if m := defaultNumRe.FindStringSubmatch(config); m != nil {
			v, _ := strconv.ParseFloat(m[1], 64)
			field.DefaultNumber = &v
		}
	case "checkbox":
		field.Kind = schema.KindCheckbox
		if m := defaultBoolRe.FindStringSubmatch(config); m != nil {
			field.DefaultChecked = m[1] == "true"
		}
	case "email":
		field.Kind = schema.KindEmail
	case "date":
		field.Kind = schema.KindDate
		field.DefaultNow = boolAttr(config, "defaultNow")
		field.DateOnly = boolAttr(config, "dateOnly")
	case "relationship":
		field.Kind = schema.KindRelationship
		field.HasMany = boolAttr(config, "hasMany")
		if m := relationToRe.FindStringSubmatch(config); m != nil {
			field.RelationTo = m[1]
		}
		if field.RelationTo == "" {
			return schema.FieldDefinition{}, fmt.Errorf(
				"collection %q: relationship field %q: relationTo must be specified", collection, name)
		}
	default:
		return schema.FieldDefinition{}, fmt.Errorf(
			"collection %q: unknown field kind %q for field %q", collection, kind, name)
	}

	return field, nil
}

func parseAdmin(block string) schema.AdminConfig {
	admin := schema.AdminConfig{}
	if m := useAsTitleRe.FindStringSubmatch(block); m != nil {
		admin.UseAsTitle = m[1]
	}
	if m := defaultColumnsRe.FindStringSubmatch(block); m != nil {
		for _, q := range quotedRe.FindAllStringSubmatch(m[1], -1) {
			admin.DefaultColumns = append(admin.DefaultColumns, q[1])
		}
	}
	if m := groupRe.FindStringSubmatch(block); m != nil {
		admin.Group = m[1]
	}
	admin.Hidden = boolAttr(block, "hidden")
	return admin
}

// boolAttr matches `name = true` with optional spacing.
func boolAttr(config, name string) bool {
	return strings.Contains(config, name+" = true") || strings.Contains(config, name+"=true")
}
