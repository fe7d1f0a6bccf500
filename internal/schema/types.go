// Package schema defines the in-memory model for Shapr collections: field
// definitions, access control rules, and admin metadata. Definitions are
// built once at configuration-load time and are immutable afterwards; every
// request-handling path reads them concurrently without locking.
package schema

import (
	"fmt"
	"strings"
)

// FieldKind represents the built-in field types a collection may declare.
type FieldKind int

const (
	KindText FieldKind = iota
	KindTextarea
	KindNumber
	KindCheckbox
	KindEmail
	KindDate
	KindRelationship
)

// String returns the string representation of the field kind.
func (k FieldKind) String() string {
	switch k {
	case KindText:
		return "text"
	case KindTextarea:
		return "textarea"
	case KindNumber:
		return "number"
	case KindCheckbox:
		return "checkbox"
	case KindEmail:
		return "email"
	case KindDate:
		return "date"
	case KindRelationship:
		return "relationship"
	default:
		return "unknown"
	}
}

// ParseFieldKind converts a string to a FieldKind.
func ParseFieldKind(s string) (FieldKind, error) {
	switch s {
	case "text":
		return KindText, nil
	case "textarea":
		return KindTextarea, nil
	case "number":
		return KindNumber, nil
	case "checkbox":
		return KindCheckbox, nil
	case "email":
		return KindEmail, nil
	case "date":
		return KindDate, nil
	case "relationship":
		return KindRelationship, nil
	default:
		return 0, fmt.Errorf("unknown field kind: %s", s)
	}
}

// FieldPosition places a field in the admin UI layout.
type FieldPosition int

const (
	PositionMain FieldPosition = iota
	PositionSidebar
)

// String returns the string representation of the field position.
func (p FieldPosition) String() string {
	if p == PositionSidebar {
		return "sidebar"
	}
	return "main"
}

// FieldAdminConfig carries admin-UI placement for a single field.
type FieldAdminConfig struct {
	Hidden   bool
	ReadOnly bool
	Position FieldPosition
	Width    string
}

// FieldDefinition describes one field of a collection. Kind selects which of
// the attribute groups below are meaningful; attributes that do not apply to
// the kind are zero and ignored.
type FieldDefinition struct {
	Name        string
	Kind        FieldKind
	Label       string
	Description string
	Admin       FieldAdminConfig

	// Text / Email
	MaxLength    int
	MinLength    int
	Required     bool
	Unique       bool
	DefaultValue string

	// Number
	IntegerOnly   bool
	Min           *float64
	Max           *float64
	DefaultNumber *float64

	// Checkbox
	DefaultChecked bool

	// Date
	DefaultNow bool
	DateOnly   bool

	// Relationship
	RelationTo string
	HasMany    bool
}

// IsNumeric reports whether comparison operators treat the field's values as
// numbers rather than timestamps.
func (f *FieldDefinition) IsNumeric() bool {
	return f.Kind == KindNumber
}

// Nullable reports whether the field may hold no value.
func (f *FieldDefinition) Nullable() bool {
	switch f.Kind {
	case KindCheckbox:
		return false
	case KindRelationship:
		return !f.Required && !f.HasMany
	default:
		return !f.Required
	}
}

// AccessKind is the variant tag of an AccessRule.
type AccessKind int

const (
	AccessPublic AccessKind = iota
	AccessAuthenticated
	AccessRoles
	AccessDeny
)

// AccessRule gates a single CRUD verb. Roles is meaningful only when Kind is
// AccessRoles; a literal "*" entry grants unconditional access.
type AccessRule struct {
	Kind  AccessKind
	Roles []string
}

// Public allows every caller.
func Public() AccessRule { return AccessRule{Kind: AccessPublic} }

// Authenticated allows any non-anonymous authenticated caller.
func Authenticated() AccessRule { return AccessRule{Kind: AccessAuthenticated} }

// Roles allows callers holding at least one of the given roles.
func Roles(roles ...string) AccessRule {
	return AccessRule{Kind: AccessRoles, Roles: roles}
}

// Deny rejects every caller.
func Deny() AccessRule { return AccessRule{Kind: AccessDeny} }

// String encodes the rule for the client schema endpoint.
func (r AccessRule) String() string {
	switch r.Kind {
	case AccessPublic:
		return "public"
	case AccessAuthenticated:
		return "authenticated"
	case AccessDeny:
		return "deny"
	case AccessRoles:
		return "roles:" + strings.Join(r.Roles, ",")
	default:
		return "deny"
	}
}

// AccessControl holds one rule per CRUD verb.
type AccessControl struct {
	Create AccessRule
	Read   AccessRule
	Update AccessRule
	Delete AccessRule
}

// DefaultAccess restricts every verb to the admin role.
func DefaultAccess() AccessControl {
	return AccessControl{
		Create: Roles("admin"),
		Read:   Roles("admin"),
		Update: Roles("admin"),
		Delete: Roles("admin"),
	}
}

// Labels names the collection in singular and plural form.
type Labels struct {
	Singular string
	Plural   string
}

// AdminConfig carries admin-UI settings for a collection.
type AdminConfig struct {
	UseAsTitle     string
	DefaultColumns []string
	Hidden         bool
	Group          string
	Description    string
}

// IDKind is the identifier type a collection's primary key maps to.
type IDKind int

const (
	IDInt64 IDKind = iota
	IDString
)

// String returns the Go type name for the identifier kind.
func (k IDKind) String() string {
	if k == IDString {
		return "string"
	}
	return "int64"
}

// CollectionDefinition is the complete, immutable description of one
// collection. Hooks holds configuration opaque to this package; the hooks
// package defines its concrete type.
type CollectionDefinition struct {
	Name       string
	Slug       string
	Labels     Labels
	Fields     []FieldDefinition
	Access     AccessControl
	Admin      AdminConfig
	Timestamps bool
	SoftDelete bool
	Hooks      any
}

// Field returns the definition for name, or nil when the collection has no
// such field.
func (c *CollectionDefinition) Field(name string) *FieldDefinition {
	for i := range c.Fields {
		if c.Fields[i].Name == name {
			return &c.Fields[i]
		}
	}
	return nil
}

// HasField reports whether the collection declares a field with this name.
func (c *CollectionDefinition) HasField(name string) bool {
	return c.Field(name) != nil
}

// IDKind derives the identifier type from the declared "id" field, defaulting
// to int64 when no id field is declared (the store assigns sequence values).
func (c *CollectionDefinition) IDKind() IDKind {
	id := c.Field("id")
	if id == nil {
		return IDInt64
	}
	switch id.Kind {
	case KindText, KindEmail:
		return IDString
	default:
		return IDInt64
	}
}

// EntityName is the singular PascalCase identifier derived from the slug,
// used for generated type names and hook matching.
func (c *CollectionDefinition) EntityName() string {
	return SlugToClassName(c.Slug)
}
