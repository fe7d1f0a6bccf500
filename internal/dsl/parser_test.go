package dsl

import (
	"strings"
	"testing"

	"github.com/shapr-cms/shapr/internal/schema"
)

const postSource = `
collection("Post") {
    slug = "posts"
    timestamps = true

    access {
        create = authenticated()
        read = public()
        update = roles("editor", "admin")
        delete = deny()
    }

    fields {
        text("title") {
            required = true
            maxLength = 200
            minLength = 3
        }
        textarea("body") {
            required = true
        }
        number("score") {
            integerOnly = true
            min = 0
            max = 100
            defaultValue = 10
        }
        checkbox("published") {
            defaultValue = false
        }
        email("contact")
        date("publishedAt") {
            defaultNow = true
        }
        relationship("category") {
            relationTo = "categories"
            required = true
        }
    }

    admin {
        useAsTitle = "title"
        defaultColumns = ["id", "title", "publishedAt"]
        group = "Content"
    }
}
`

func TestParseCollection(t *testing.T) {
	cfg, err := Parse(postSource)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(cfg.Collections) != 1 {
		t.Fatalf("expected 1 collection, got %d", len(cfg.Collections))
	}

	post := cfg.Collections[0]
	if post.Name != "Post" || post.Slug != "posts" {
		t.Errorf("got name %q slug %q", post.Name, post.Slug)
	}
	if !post.Timestamps {
		t.Error("timestamps should be enabled")
	}
	if len(post.Fields) != 7 {
		t.Fatalf("expected 7 fields, got %d", len(post.Fields))
	}

	title := post.Fields[0]
	if title.Kind != schema.KindText || !title.Required || title.MaxLength != 200 || title.MinLength != 3 {
		t.Errorf("title parsed wrong: %+v", title)
	}

	score := post.Fields[2]
	if !score.IntegerOnly {
		t.Error("score should be integer only")
	}
	if score.Min == nil || *score.Min != 0 || score.Max == nil || *score.Max != 100 {
		t.Errorf("score range parsed wrong: %+v", score)
	}
	if score.DefaultNumber == nil || *score.DefaultNumber != 10 {
		t.Errorf("score default parsed wrong: %+v", score)
	}

	contact := post.Fields[4]
	if contact.Kind != schema.KindEmail || contact.Name != "contact" {
		t.Errorf("email field parsed wrong: %+v", contact)
	}

	published := post.Fields[5]
	if published.Kind != schema.KindDate || !published.DefaultNow {
		t.Errorf("date field parsed wrong: %+v", published)
	}

	category := post.Fields[6]
	if category.RelationTo != "categories" || !category.Required {
		t.Errorf("relationship parsed wrong: %+v", category)
	}
}

func TestParseAccessRules(t *testing.T) {
	cfg, err := Parse(postSource)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	access := cfg.Collections[0].Access

	if access.Create.Kind != schema.AccessAuthenticated {
		t.Errorf("create rule: %v", access.Create)
	}
	if access.Read.Kind != schema.AccessPublic {
		t.Errorf("read rule: %v", access.Read)
	}
	if access.Update.Kind != schema.AccessRoles || strings.Join(access.Update.Roles, ",") != "editor,admin" {
		t.Errorf("update rule: %v", access.Update)
	}
	if access.Delete.Kind != schema.AccessDeny {
		t.Errorf("delete rule: %v", access.Delete)
	}
}

func TestParseAdminBlock(t *testing.T) {
	cfg, err := Parse(postSource)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	admin := cfg.Collections[0].Admin

	if admin.UseAsTitle != "title" {
		t.Errorf("useAsTitle = %q", admin.UseAsTitle)
	}
	if strings.Join(admin.DefaultColumns, ",") != "id,title,publishedAt" {
		t.Errorf("defaultColumns = %v", admin.DefaultColumns)
	}
	if admin.Group != "Content" {
		t.Errorf("group = %q", admin.Group)
	}
}

func TestParseDefaults(t *testing.T) {
	cfg, err := Parse(`collection("Category") {}`)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	cat := cfg.Collections[0]

	if cat.Slug != "categories" {
		t.Errorf("derived slug = %q", cat.Slug)
	}
	if !cat.Timestamps {
		t.Error("timestamps should default on")
	}
	for _, rule := range []schema.AccessRule{cat.Access.Create, cat.Access.Read, cat.Access.Update, cat.Access.Delete} {
		if rule.Kind != schema.AccessRoles || len(rule.Roles) != 1 || rule.Roles[0] != "admin" {
			t.Errorf("default access rule = %v", rule)
		}
	}
}

func TestParseNestedBracesInConfig(t *testing.T) {
	source := `
collection("Widget") {
    fields {
        text("template") {
            defaultValue = "{}"
            required = true
        }
        text("name")
    }
}
`
	cfg, err := Parse(source)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	fields := cfg.Collections[0].Fields
	if len(fields) != 2 {
		t.Fatalf("expected 2 fields, got %d", len(fields))
	}
	if fields[0].DefaultValue != "{}" {
		t.Errorf("defaultValue = %q", fields[0].DefaultValue)
	}
	if !fields[0].Required {
		t.Error("required lost after nested braces")
	}
	if fields[1].Name != "name" {
		t.Errorf("second field = %q", fields[1].Name)
	}
}

func TestParseTruncatedInput(t *testing.T) {
	cfg, err := Parse(`collection("Post") { fields {`)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(cfg.Collections) != 0 {
		t.Errorf("truncated block should produce no collection, got %d", len(cfg.Collections))
	}
}

func TestParseRelationshipWithoutTarget(t *testing.T) {
	_, err := Parse(`
collection("Post") {
    fields {
        relationship("category") {
            required = true
        }
    }
}
`)
	if err == nil {
		t.Fatal("expected error for relationship without relationTo")
	}
	if !strings.Contains(err.Error(), "category") || !strings.Contains(err.Error(), "relationTo") {
		t.Errorf("error should name the field and attribute: %v", err)
	}
}

func TestParseMultipleCollections(t *testing.T) {
	cfg, err := Parse(`
collection("Post") { slug = "posts" }
collection("Category") {}
`)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(cfg.Collections) != 2 {
		t.Fatalf("expected 2 collections, got %d", len(cfg.Collections))
	}
	if cfg.Collections[1].Name != "Category" {
		t.Errorf("second collection = %q", cfg.Collections[1].Name)
	}
}

func TestParseDuplicateSlug(t *testing.T) {
	_, err := Parse(`
collection("Post") { slug = "posts" }
collection("Article") { slug = "posts" }
`)
	if err == nil {
		t.Fatal("expected duplicate slug error")
	}
	if !strings.Contains(err.Error(), "posts") {
		t.Errorf("error should name the colliding slug: %v", err)
	}
}
