package schema

import "fmt"

// Builder API: the programmatic front end of the collection DSL. A
// ConfigBuilder collects CollectionBuilders; Build validates each nested
// builder and fails fast with an error naming the offending field. The text
// parser in internal/dsl produces identical definitions from source text.

// ConfigBuilder accumulates collection definitions.
type ConfigBuilder struct {
	collections []*CollectionBuilder
}

// NewConfig creates an empty configuration builder.
func NewConfig() *ConfigBuilder {
	return &ConfigBuilder{}
}

// Collection adds a collection builder and returns it for chaining.
func (b *ConfigBuilder) Collection(name string) *CollectionBuilder {
	cb := NewCollection(name)
	b.collections = append(b.collections, cb)
	return cb
}

// Build validates every collection and enforces slug uniqueness.
func (b *ConfigBuilder) Build() (Config, error) {
	cfg := Config{}
	for _, cb := range b.collections {
		def, err := cb.Build()
		if err != nil {
			return Config{}, err
		}
		cfg.Collections = append(cfg.Collections, def)
	}
	return Merge(cfg)
}

// CollectionBuilder assembles one CollectionDefinition.
type CollectionBuilder struct {
	def    CollectionDefinition
	fields []*FieldBuilder
}

// NewCollection starts a builder with the defaults the DSL applies: derived
// slug and labels, timestamps on, admin-only access.
func NewCollection(name string) *CollectionBuilder {
	return &CollectionBuilder{
		def: CollectionDefinition{
			Name: name,
			Slug: DefaultSlug(name),
			Labels: Labels{
				Singular: name,
				Plural:   Pluralize(name),
			},
			Access:     DefaultAccess(),
			Timestamps: true,
		},
	}
}

// Slug overrides the derived slug.
func (b *CollectionBuilder) Slug(slug string) *CollectionBuilder {
	b.def.Slug = slug
	return b
}

// Labels overrides the derived singular and plural labels.
func (b *CollectionBuilder) Labels(singular, plural string) *CollectionBuilder {
	b.def.Labels = Labels{Singular: singular, Plural: plural}
	return b
}

// Timestamps toggles automatic createdAt/updatedAt handling.
func (b *CollectionBuilder) Timestamps(on bool) *CollectionBuilder {
	b.def.Timestamps = on
	return b
}

// SoftDelete marks the collection for soft deletion.
func (b *CollectionBuilder) SoftDelete(on bool) *CollectionBuilder {
	b.def.SoftDelete = on
	return b
}

// Access sets the per-verb access rules.
func (b *CollectionBuilder) Access(ac AccessControl) *CollectionBuilder {
	b.def.Access = ac
	return b
}

// Admin sets the collection's admin configuration.
func (b *CollectionBuilder) Admin(admin AdminConfig) *CollectionBuilder {
	b.def.Admin = admin
	return b
}

// Hooks attaches inline hook configuration. The value is the hooks package's
// Config type; it is opaque here.
func (b *CollectionBuilder) Hooks(cfg any) *CollectionBuilder {
	b.def.Hooks = cfg
	return b
}

// Fields appends field builders in declaration order.
func (b *CollectionBuilder) Fields(fields ...*FieldBuilder) *CollectionBuilder {
	b.fields = append(b.fields, fields...)
	return b
}

// Build validates every field builder and yields the immutable definition.
func (b *CollectionBuilder) Build() (CollectionDefinition, error) {
	def := b.def
	for _, fb := range b.fields {
		field, err := fb.Build()
		if err != nil {
			return CollectionDefinition{}, fmt.Errorf("collection %q: %w", b.def.Name, err)
		}
		def.Fields = append(def.Fields, field)
	}
	return def, nil
}

// FieldBuilder assembles one FieldDefinition of a fixed kind.
type FieldBuilder struct {
	def FieldDefinition
}

// Text starts a text field. Defaults mirror the DSL: maxLength 255.
func Text(name string) *FieldBuilder {
	return &FieldBuilder{def: FieldDefinition{Name: name, Kind: KindText, MaxLength: 255}}
}

// Textarea starts a textarea field.
func Textarea(name string) *FieldBuilder {
	return &FieldBuilder{def: FieldDefinition{Name: name, Kind: KindTextarea}}
}

// Number starts a number field.
func Number(name string) *FieldBuilder {
	return &FieldBuilder{def: FieldDefinition{Name: name, Kind: KindNumber}}
}

// Checkbox starts a checkbox field.
func Checkbox(name string) *FieldBuilder {
	return &FieldBuilder{def: FieldDefinition{Name: name, Kind: KindCheckbox}}
}

// Email starts an email field.
func Email(name string) *FieldBuilder {
	return &FieldBuilder{def: FieldDefinition{Name: name, Kind: KindEmail}}
}

// Date starts a date field.
func Date(name string) *FieldBuilder {
	return &FieldBuilder{def: FieldDefinition{Name: name, Kind: KindDate}}
}

// Relationship starts a relationship field targeting the given collection
// slug. A blank target is rejected at Build.
func Relationship(name, relationTo string) *FieldBuilder {
	return &FieldBuilder{def: FieldDefinition{Name: name, Kind: KindRelationship, RelationTo: relationTo}}
}

// Required marks the field required.
func (b *FieldBuilder) Required() *FieldBuilder {
	b.def.Required = true
	return b
}

// Unique marks the field unique.
func (b *FieldBuilder) Unique() *FieldBuilder {
	b.def.Unique = true
	return b
}

// Label sets the display label.
func (b *FieldBuilder) Label(label string) *FieldBuilder {
	b.def.Label = label
	return b
}

// Description sets the admin description.
func (b *FieldBuilder) Description(desc string) *FieldBuilder {
	b.def.Description = desc
	return b
}

// MaxLength sets the text maximum length.
func (b *FieldBuilder) MaxLength(n int) *FieldBuilder {
	b.def.MaxLength = n
	return b
}

// MinLength sets the text minimum length.
func (b *FieldBuilder) MinLength(n int) *FieldBuilder {
	b.def.MinLength = n
	return b
}

// Default sets the string default value.
func (b *FieldBuilder) Default(v string) *FieldBuilder {
	b.def.DefaultValue = v
	return b
}

// IntegerOnly restricts a number field to integers.
func (b *FieldBuilder) IntegerOnly() *FieldBuilder {
	b.def.IntegerOnly = true
	return b
}

// Range sets numeric bounds.
func (b *FieldBuilder) Range(min, max float64) *FieldBuilder {
	b.def.Min = &min
	b.def.Max = &max
	return b
}

// DefaultNumber sets the numeric default.
func (b *FieldBuilder) DefaultNumber(v float64) *FieldBuilder {
	b.def.DefaultNumber = &v
	return b
}

// DefaultChecked sets the checkbox default.
func (b *FieldBuilder) DefaultChecked(v bool) *FieldBuilder {
	b.def.DefaultChecked = v
	return b
}

// DefaultNow makes a date field default to the current time.
func (b *FieldBuilder) DefaultNow() *FieldBuilder {
	b.def.DefaultNow = true
	return b
}

// DateOnly stores the date without a time component.
func (b *FieldBuilder) DateOnly() *FieldBuilder {
	b.def.DateOnly = true
	return b
}

// HasMany marks a relationship as one-to-many.
func (b *FieldBuilder) HasMany() *FieldBuilder {
	b.def.HasMany = true
	return b
}

// Hidden hides the field in the admin UI.
func (b *FieldBuilder) Hidden() *FieldBuilder {
	b.def.Admin.Hidden = true
	return b
}

// ReadOnly marks the field read-only in the admin UI.
func (b *FieldBuilder) ReadOnly() *FieldBuilder {
	b.def.Admin.ReadOnly = true
	return b
}

// Sidebar places the field in the admin sidebar.
func (b *FieldBuilder) Sidebar() *FieldBuilder {
	b.def.Admin.Position = PositionSidebar
	return b
}

// Build validates kind-specific invariants and yields the definition.
func (b *FieldBuilder) Build() (FieldDefinition, error) {
	if b.def.Kind == KindRelationship && b.def.RelationTo == "" {
		return FieldDefinition{}, fmt.Errorf("relationship field %q: relationTo must be specified", b.def.Name)
	}
	return b.def, nil
}
