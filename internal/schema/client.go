package schema

import "strings"

// Client-facing schema projections consumed by the admin frontend through the
// /api/_schema endpoints. Only configuration the client may see is included.

// ClientCollectionSchema is the wire form of one collection's schema.
type ClientCollectionSchema struct {
	Name       string              `json:"name"`
	Slug       string              `json:"slug"`
	Labels     ClientLabels        `json:"labels"`
	Fields     []ClientFieldSchema `json:"fields"`
	Access     ClientAccessControl `json:"access"`
	Admin      ClientAdminConfig   `json:"admin"`
	Timestamps bool                `json:"timestamps"`
}

// ClientLabels mirrors Labels with JSON tags.
type ClientLabels struct {
	Singular string `json:"singular"`
	Plural   string `json:"plural"`
}

// ClientFieldSchema is the wire form of one field.
type ClientFieldSchema struct {
	Name     string         `json:"name"`
	Type     string         `json:"type"`
	Label    string         `json:"label"`
	Required bool           `json:"required"`
	Unique   bool           `json:"unique"`
	Config   map[string]any `json:"config"`
}

// ClientAccessControl encodes each rule as a string: "public",
// "authenticated", "deny", or "roles:r1,r2".
type ClientAccessControl struct {
	Create string `json:"create"`
	Read   string `json:"read"`
	Update string `json:"update"`
	Delete string `json:"delete"`
}

// ClientAdminConfig is the wire form of a collection's admin settings.
type ClientAdminConfig struct {
	UseAsTitle     string   `json:"useAsTitle,omitempty"`
	DefaultColumns []string `json:"defaultColumns"`
	Hidden         bool     `json:"hidden"`
	Group          string   `json:"group,omitempty"`
	Description    string   `json:"description,omitempty"`
}

// ClientSchema projects the collection definition into its client form.
func (c *CollectionDefinition) ClientSchema() ClientCollectionSchema {
	fields := make([]ClientFieldSchema, 0, len(c.Fields))
	for i := range c.Fields {
		fields = append(fields, c.Fields[i].clientSchema())
	}

	columns := c.Admin.DefaultColumns
	if len(columns) == 0 {
		columns = []string{"id"}
	}

	return ClientCollectionSchema{
		Name:   c.Name,
		Slug:   c.Slug,
		Labels: ClientLabels{Singular: c.Labels.Singular, Plural: c.Labels.Plural},
		Fields: fields,
		Access: ClientAccessControl{
			Create: c.Access.Create.String(),
			Read:   c.Access.Read.String(),
			Update: c.Access.Update.String(),
			Delete: c.Access.Delete.String(),
		},
		Admin: ClientAdminConfig{
			UseAsTitle:     c.Admin.UseAsTitle,
			DefaultColumns: columns,
			Hidden:         c.Admin.Hidden,
			Group:          c.Admin.Group,
			Description:    c.Admin.Description,
		},
		Timestamps: c.Timestamps,
	}
}

func (f *FieldDefinition) clientSchema() ClientFieldSchema {
	label := f.Label
	if label == "" {
		label = strings.ToUpper(f.Name[:1]) + f.Name[1:]
	}
	return ClientFieldSchema{
		Name:     f.Name,
		Type:     f.Kind.String(),
		Label:    label,
		Required: f.Required,
		Unique:   f.Unique,
		Config:   f.configMap(),
	}
}

// configMap exposes the kind-specific attributes the client needs to render
// forms and list views.
func (f *FieldDefinition) configMap() map[string]any {
	switch f.Kind {
	case KindText:
		return map[string]any{
			"maxLength":    f.MaxLength,
			"minLength":    f.MinLength,
			"defaultValue": f.DefaultValue,
		}
	case KindTextarea:
		return map[string]any{
			"defaultValue": f.DefaultValue,
		}
	case KindNumber:
		return map[string]any{
			"integerOnly":  f.IntegerOnly,
			"min":          f.Min,
			"max":          f.Max,
			"defaultValue": f.DefaultNumber,
		}
	case KindCheckbox:
		return map[string]any{
			"defaultValue": f.DefaultChecked,
		}
	case KindDate:
		return map[string]any{
			"dateOnly":   f.DateOnly,
			"defaultNow": f.DefaultNow,
		}
	case KindRelationship:
		return map[string]any{
			"relationTo": f.RelationTo,
			"hasMany":    f.HasMany,
		}
	default:
		return map[string]any{}
	}
}
