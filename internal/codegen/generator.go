// Package codegen projects collection definitions into Go source for a
// persistence repository and an HTTP controller per collection, plus the SQL
// migration that creates the backing tables.
package codegen

import (
	"bytes"
	"fmt"
	"sort"
	"strings"

	"github.com/shapr-cms/shapr/internal/schema"
)

// Generator emits source text for one configuration.
type Generator struct {
	buf     *bytes.Buffer
	indent  int
	imports map[string]bool
	pkg     string
}

// NewGenerator creates a generator emitting into the given package name.
func NewGenerator(pkg string) *Generator {
	if pkg == "" {
		pkg = "generated"
	}
	return &Generator{
		buf:     &bytes.Buffer{},
		imports: make(map[string]bool),
		pkg:     pkg,
	}
}

// Generate produces every output file for the configuration, keyed by
// relative path.
func (g *Generator) Generate(cfg schema.Config) (map[string]string, error) {
	files := make(map[string]string)

	for i := range cfg.Collections {
		coll := &cfg.Collections[i]

		model, err := g.GenerateModel(coll)
		if err != nil {
			return nil, fmt.Errorf("generate model %s: %w", coll.Name, err)
		}
		files[fmt.Sprintf("models/%s.go", strings.ToLower(coll.EntityName()))] = model

		controller, err := g.GenerateController(coll)
		if err != nil {
			return nil, fmt.Errorf("generate controller %s: %w", coll.Name, err)
		}
		files[fmt.Sprintf("controllers/%s.go", strings.ToLower(coll.EntityName()))] = controller
	}

	files["controllers/support.go"] = g.GenerateSupport()
	files["migrations/001_init.sql"] = g.GenerateMigrations(cfg)
	return files, nil
}

func (g *Generator) reset() {
	g.buf.Reset()
	g.indent = 0
	g.imports = make(map[string]bool)
}

// writeLine writes one indented line; an empty format writes a blank line.
func (g *Generator) writeLine(format string, args ...interface{}) {
	if format == "" {
		g.buf.WriteString("\n")
		return
	}
	for i := 0; i < g.indent; i++ {
		g.buf.WriteString("\t")
	}
	if len(args) > 0 {
		g.buf.WriteString(fmt.Sprintf(format, args...))
	} else {
		g.buf.WriteString(format)
	}
	g.buf.WriteString("\n")
}

// writeImports emits the import block, standard library first.
func (g *Generator) writeImports() {
	if len(g.imports) == 0 {
		return
	}

	var std, external []string
	for imp := range g.imports {
		if strings.Contains(imp, ".") {
			external = append(external, imp)
		} else {
			std = append(std, imp)
		}
	}
	sort.Strings(std)
	sort.Strings(external)

	g.writeLine("import (")
	g.indent++
	for _, imp := range std {
		g.writeLine("%q", imp)
	}
	if len(std) > 0 && len(external) > 0 {
		g.writeLine("")
	}
	for _, imp := range external {
		g.writeLine("%q", imp)
	}
	g.indent--
	g.writeLine(")")
}

// goType maps a field to its Go type in generated structs.
func goType(f *schema.FieldDefinition) string {
	switch f.Kind {
	case schema.KindText, schema.KindTextarea, schema.KindEmail:
		return "string"
	case schema.KindNumber:
		if f.IntegerOnly {
			return "int64"
		}
		return "float64"
	case schema.KindCheckbox:
		return "bool"
	case schema.KindDate:
		return "time.Time"
	case schema.KindRelationship:
		if f.HasMany {
			return "[]int64"
		}
		return "int64"
	default:
		return "any"
	}
}

// idGoType is the Go type of the collection's identifier.
func idGoType(coll *schema.CollectionDefinition) string {
	if coll.IDKind() == schema.IDString {
		return "string"
	}
	return "int64"
}

// sqlType maps a field to its column type in migrations.
func sqlType(f *schema.FieldDefinition) string {
	switch f.Kind {
	case schema.KindText, schema.KindEmail:
		if f.MaxLength > 0 {
			return fmt.Sprintf("VARCHAR(%d)", f.MaxLength)
		}
		return "VARCHAR(255)"
	case schema.KindTextarea:
		return "TEXT"
	case schema.KindNumber:
		if f.IntegerOnly {
			return "BIGINT"
		}
		return "DOUBLE PRECISION"
	case schema.KindCheckbox:
		return "BOOLEAN"
	case schema.KindDate:
		if f.DateOnly {
			return "DATE"
		}
		return "TIMESTAMP"
	case schema.KindRelationship:
		return "BIGINT"
	default:
		return "TEXT"
	}
}

// GenerateMigrations emits the CREATE TABLE statements for every collection.
func (g *Generator) GenerateMigrations(cfg schema.Config) string {
	var buf bytes.Buffer

	buf.WriteString("-- Generated schema. Do not edit by hand.\n")
	for i := range cfg.Collections {
		coll := &cfg.Collections[i]
		table := strings.ReplaceAll(coll.Slug, "-", "_")

		buf.WriteString(fmt.Sprintf("\nCREATE TABLE IF NOT EXISTS %s (\n", table))

		var lines []string
		if coll.IDKind() == schema.IDString {
			lines = append(lines, "    id VARCHAR(36) PRIMARY KEY")
		} else {
			lines = append(lines, "    id BIGSERIAL PRIMARY KEY")
		}
		for j := range coll.Fields {
			f := &coll.Fields[j]
			if f.Name == "id" {
				continue
			}
			line := fmt.Sprintf("    %s %s", schema.ToSnakeCase(f.Name), sqlType(f))
			if f.Required {
				line += " NOT NULL"
			}
			if f.Unique {
				line += " UNIQUE"
			}
			lines = append(lines, line)
		}
		if coll.Timestamps {
			lines = append(lines,
				"    created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP",
				"    updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP")
		}
		buf.WriteString(strings.Join(lines, ",\n"))
		buf.WriteString("\n);\n")
	}

	return buf.String()
}
