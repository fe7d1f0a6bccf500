package schema

import (
	"strings"
	"unicode"
)

// Pluralize applies the slug heuristic: trailing "y" not preceded by a vowel
// becomes "ies", sibilant endings append "es", everything else appends "s".
// Irregular plurals are out of scope.
func Pluralize(name string) string {
	switch {
	case strings.HasSuffix(name, "y") && !hasVowelBeforeY(name):
		return name[:len(name)-1] + "ies"
	case strings.HasSuffix(name, "s"),
		strings.HasSuffix(name, "x"),
		strings.HasSuffix(name, "z"),
		strings.HasSuffix(name, "ch"),
		strings.HasSuffix(name, "sh"):
		return name + "es"
	default:
		return name + "s"
	}
}

func hasVowelBeforeY(name string) bool {
	if len(name) < 2 {
		return false
	}
	switch name[len(name)-2] {
	case 'a', 'e', 'i', 'o', 'u':
		return true
	}
	return false
}

// Singularize reverses Pluralize for regular nouns.
func Singularize(name string) string {
	switch {
	case strings.HasSuffix(name, "ies"):
		return name[:len(name)-3] + "y"
	case strings.HasSuffix(name, "es") && sibilantStem(name[:len(name)-2]):
		return name[:len(name)-2]
	case strings.HasSuffix(name, "s"):
		return name[:len(name)-1]
	default:
		return name
	}
}

func sibilantStem(stem string) bool {
	return strings.HasSuffix(stem, "s") ||
		strings.HasSuffix(stem, "x") ||
		strings.HasSuffix(stem, "z") ||
		strings.HasSuffix(stem, "ch") ||
		strings.HasSuffix(stem, "sh")
}

// SlugToClassName derives a singular PascalCase identifier from a slug:
// "blog-posts" -> "BlogPost".
func SlugToClassName(slug string) string {
	singular := Singularize(slug)
	parts := strings.FieldsFunc(singular, func(r rune) bool {
		return r == '-' || r == '_'
	})
	var b strings.Builder
	for _, part := range parts {
		runes := []rune(part)
		runes[0] = unicode.ToUpper(runes[0])
		b.WriteString(string(runes))
	}
	return b.String()
}

// DefaultSlug is the slug used when a collection declares none: the
// lowercased, pluralized collection name.
func DefaultSlug(name string) string {
	return Pluralize(strings.ToLower(name))
}

// ToSnakeCase converts CamelCase to snake_case, keeping acronym boundaries
// intact (HTTPServer -> http_server).
func ToSnakeCase(s string) string {
	var result strings.Builder
	runes := []rune(s)

	for i, r := range runes {
		if unicode.IsUpper(r) {
			if i > 0 {
				prev := runes[i-1]
				if unicode.IsLower(prev) {
					result.WriteRune('_')
				} else if i+1 < len(runes) && unicode.IsLower(runes[i+1]) {
					result.WriteRune('_')
				}
			}
			result.WriteRune(unicode.ToLower(r))
		} else {
			result.WriteRune(r)
		}
	}
	return result.String()
}
