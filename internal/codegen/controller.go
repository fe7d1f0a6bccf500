package codegen

import (
	"fmt"
	"strings"

	"github.com/shapr-cms/shapr/internal/schema"
)

// accessArgs renders the rule as the argument list for the generated
// authorize helper.
func accessArgs(rule schema.AccessRule) string {
	switch rule.Kind {
	case schema.AccessPublic:
		return `"public"`
	case schema.AccessAuthenticated:
		return `"authenticated"`
	case schema.AccessDeny:
		return `"deny"`
	case schema.AccessRoles:
		quoted := make([]string, len(rule.Roles))
		for i, r := range rule.Roles {
			quoted[i] = fmt.Sprintf("%q", r)
		}
		return `"roles", ` + strings.Join(quoted, ", ")
	default:
		return `"deny"`
	}
}

// GenerateController emits the HTTP-CRUD controller for one collection. Every
// endpoint checks its access rule before any other work and runs the
// controller's hook functions around persistence.
func (g *Generator) GenerateController(coll *schema.CollectionDefinition) (string, error) {
	if coll.Name == "" {
		return "", fmt.Errorf("collection has no name")
	}

	g.reset()
	entity := coll.EntityName()
	ctrl := entity + "Controller"
	idType := idGoType(coll)

	g.imports["encoding/json"] = true
	g.imports["net/http"] = true
	g.imports["github.com/go-chi/chi/v5"] = true
	if idType == "int64" {
		g.imports["strconv"] = true
	}

	g.writeLine("// Code generated from the %s collection definition. DO NOT EDIT.", coll.Name)
	g.writeLine("")
	g.writeLine("package %s", g.pkg)
	g.writeLine("")
	g.writeImports()
	g.writeLine("")

	// Hook struct: optional function fields, nil means stage skipped.
	g.writeLine("// %sHooks carries the optional lifecycle callbacks for %s endpoints.", entity, entity)
	g.writeLine("type %sHooks struct {", entity)
	g.indent++
	g.writeLine("BeforeOperation func(op string, e *%s) (bool, error)", entity)
	g.writeLine("BeforeValidate  func(e *%s) error", entity)
	g.writeLine("BeforeChange    func(e *%s) error", entity)
	g.writeLine("AfterChange     func(e *%s) error", entity)
	g.writeLine("BeforeRead      func(e *%s) error", entity)
	g.writeLine("AfterRead       func(e *%s, findMany bool) error", entity)
	g.writeLine("BeforeDelete    func(id %s) error", idType)
	g.writeLine("AfterDelete     func(e *%s, id %s) error", entity, idType)
	g.indent--
	g.writeLine("}")
	g.writeLine("")

	g.writeLine("// %s serves /api/%s.", ctrl, coll.Slug)
	g.writeLine("type %s struct {", ctrl)
	g.indent++
	g.writeLine("Repo  *%sRepository", entity)
	g.writeLine("Hooks %sHooks", entity)
	g.indent--
	g.writeLine("}")
	g.writeLine("")

	g.writeLine("// Mount registers the CRUD routes on the router.")
	g.writeLine("func (c *%s) Mount(r chi.Router) {", ctrl)
	g.indent++
	g.writeLine("r.Route(%q, func(r chi.Router) {", "/api/"+coll.Slug)
	g.indent++
	g.writeLine("r.Get(\"/\", c.List)")
	g.writeLine("r.Post(\"/\", c.Create)")
	g.writeLine("r.Get(\"/{id}\", c.Get)")
	g.writeLine("r.Put(\"/{id}\", c.Update)")
	g.writeLine("r.Delete(\"/{id}\", c.Delete)")
	g.indent--
	g.writeLine("})")
	g.indent--
	g.writeLine("}")
	g.writeLine("")

	g.generateParseID(ctrl, idType)
	g.generateList(coll, ctrl, entity)
	g.generateGet(coll, ctrl)
	g.generateCreate(coll, ctrl, entity)
	g.generateUpdate(coll, ctrl, entity)
	g.generateDelete(coll, ctrl)

	return g.buf.String(), nil
}

func (g *Generator) generateParseID(ctrl, idType string) {
	g.writeLine("func (c *%s) parseID(r *http.Request) (%s, bool) {", ctrl, idType)
	g.indent++
	if idType == "int64" {
		g.writeLine("id, err := strconv.ParseInt(chi.URLParam(r, \"id\"), 10, 64)")
		g.writeLine("return id, err == nil")
	} else {
		g.writeLine("id := chi.URLParam(r, \"id\")")
		g.writeLine("return id, id != \"\"")
	}
	g.indent--
	g.writeLine("}")
	g.writeLine("")
}

func (g *Generator) generateList(coll *schema.CollectionDefinition, ctrl, entity string) {
	g.writeLine("// List returns every document, read hooks applied per element.")
	g.writeLine("func (c *%s) List(w http.ResponseWriter, r *http.Request) {", ctrl)
	g.indent++
	g.writeLine("if !authorize(w, r, %s) {", accessArgs(coll.Access.Read))
	g.indent++
	g.writeLine("return")
	g.indent--
	g.writeLine("}")
	g.writeLine("docs, err := c.Repo.FindAll(r.Context())")
	g.writeLine("if err != nil {")
	g.indent++
	g.writeLine("writeError(w, http.StatusInternalServerError, err.Error())")
	g.writeLine("return")
	g.indent--
	g.writeLine("}")
	g.writeLine("for _, doc := range docs {")
	g.indent++
	g.writeLine("if err := c.runReadHooks(doc, true); err != nil {")
	g.indent++
	g.writeLine("writeError(w, http.StatusInternalServerError, err.Error())")
	g.writeLine("return")
	g.indent--
	g.writeLine("}")
	g.indent--
	g.writeLine("}")
	g.writeLine("writeJSON(w, http.StatusOK, map[string]any{\"docs\": docs, \"totalDocs\": len(docs)})")
	g.indent--
	g.writeLine("}")
	g.writeLine("")

	g.writeLine("func (c *%s) runReadHooks(e *%s, findMany bool) error {", ctrl, entity)
	g.indent++
	g.writeLine("if c.Hooks.BeforeRead != nil {")
	g.indent++
	g.writeLine("if err := c.Hooks.BeforeRead(e); err != nil {")
	g.indent++
	g.writeLine("return err")
	g.indent--
	g.writeLine("}")
	g.indent--
	g.writeLine("}")
	g.writeLine("if c.Hooks.AfterRead != nil {")
	g.indent++
	g.writeLine("return c.Hooks.AfterRead(e, findMany)")
	g.indent--
	g.writeLine("}")
	g.writeLine("return nil")
	g.indent--
	g.writeLine("}")
	g.writeLine("")
}

func (g *Generator) generateGet(coll *schema.CollectionDefinition, ctrl string) {
	g.writeLine("// Get returns one document wrapped in a data envelope.")
	g.writeLine("func (c *%s) Get(w http.ResponseWriter, r *http.Request) {", ctrl)
	g.indent++
	g.writeLine("if !authorize(w, r, %s) {", accessArgs(coll.Access.Read))
	g.indent++
	g.writeLine("return")
	g.indent--
	g.writeLine("}")
	g.writeLine("id, ok := c.parseID(r)")
	g.writeLine("if !ok {")
	g.indent++
	g.writeLine("writeError(w, http.StatusBadRequest, \"invalid id\")")
	g.writeLine("return")
	g.indent--
	g.writeLine("}")
	g.writeLine("doc, err := c.Repo.FindByID(r.Context(), id)")
	g.writeLine("if err != nil {")
	g.indent++
	g.writeLine("writeError(w, http.StatusNotFound, \"not found\")")
	g.writeLine("return")
	g.indent--
	g.writeLine("}")
	g.writeLine("if err := c.runReadHooks(doc, false); err != nil {")
	g.indent++
	g.writeLine("writeError(w, http.StatusInternalServerError, err.Error())")
	g.writeLine("return")
	g.indent--
	g.writeLine("}")
	g.writeLine("writeJSON(w, http.StatusOK, map[string]any{\"data\": doc})")
	g.indent--
	g.writeLine("}")
	g.writeLine("")
}

func (g *Generator) generateCreate(coll *schema.CollectionDefinition, ctrl, entity string) {
	g.writeLine("// Create runs the full pipeline: beforeOperation, beforeValidate,")
	g.writeLine("// beforeChange, persist, afterChange. A cancelling beforeOperation aborts")
	g.writeLine("// with an explicit error.")
	g.writeLine("func (c *%s) Create(w http.ResponseWriter, r *http.Request) {", ctrl)
	g.indent++
	g.writeLine("if !authorize(w, r, %s) {", accessArgs(coll.Access.Create))
	g.indent++
	g.writeLine("return")
	g.indent--
	g.writeLine("}")
	g.writeLine("var e %s", entity)
	g.writeLine("if err := json.NewDecoder(r.Body).Decode(&e); err != nil {")
	g.indent++
	g.writeLine("writeError(w, http.StatusBadRequest, \"invalid body\")")
	g.writeLine("return")
	g.indent--
	g.writeLine("}")
	g.writeLine("if !c.runChangePipeline(w, r, \"create\", &e) {")
	g.indent++
	g.writeLine("return")
	g.indent--
	g.writeLine("}")
	g.writeLine("writeJSON(w, http.StatusCreated, map[string]any{\"data\": &e})")
	g.indent--
	g.writeLine("}")
	g.writeLine("")

	g.writeLine("func (c *%s) runChangePipeline(w http.ResponseWriter, r *http.Request, op string, e *%s) bool {", ctrl, entity)
	g.indent++
	g.writeLine("if c.Hooks.BeforeOperation != nil {")
	g.indent++
	g.writeLine("proceed, err := c.Hooks.BeforeOperation(op, e)")
	g.writeLine("if err != nil {")
	g.indent++
	g.writeLine("writeError(w, http.StatusInternalServerError, err.Error())")
	g.writeLine("return false")
	g.indent--
	g.writeLine("}")
	g.writeLine("if !proceed {")
	g.indent++
	g.writeLine("writeError(w, http.StatusBadRequest, \"operation cancelled by hook\")")
	g.writeLine("return false")
	g.indent--
	g.writeLine("}")
	g.indent--
	g.writeLine("}")
	g.writeLine("if c.Hooks.BeforeValidate != nil {")
	g.indent++
	g.writeLine("if err := c.Hooks.BeforeValidate(e); err != nil {")
	g.indent++
	g.writeLine("writeError(w, http.StatusBadRequest, err.Error())")
	g.writeLine("return false")
	g.indent--
	g.writeLine("}")
	g.indent--
	g.writeLine("}")
	g.writeLine("if c.Hooks.BeforeChange != nil {")
	g.indent++
	g.writeLine("if err := c.Hooks.BeforeChange(e); err != nil {")
	g.indent++
	g.writeLine("writeError(w, http.StatusInternalServerError, err.Error())")
	g.writeLine("return false")
	g.indent--
	g.writeLine("}")
	g.indent--
	g.writeLine("}")
	g.writeLine("if err := c.Repo.Save(r.Context(), e); err != nil {")
	g.indent++
	g.writeLine("writeError(w, http.StatusInternalServerError, err.Error())")
	g.writeLine("return false")
	g.indent--
	g.writeLine("}")
	g.writeLine("if c.Hooks.AfterChange != nil {")
	g.indent++
	g.writeLine("if err := c.Hooks.AfterChange(e); err != nil {")
	g.indent++
	g.writeLine("writeError(w, http.StatusInternalServerError, err.Error())")
	g.writeLine("return false")
	g.indent--
	g.writeLine("}")
	g.indent--
	g.writeLine("}")
	g.writeLine("return true")
	g.indent--
	g.writeLine("}")
	g.writeLine("")
}

func (g *Generator) generateUpdate(coll *schema.CollectionDefinition, ctrl, entity string) {
	g.writeLine("// Update loads the stored document first; a missing identifier is 404")
	g.writeLine("// before any hook runs.")
	g.writeLine("func (c *%s) Update(w http.ResponseWriter, r *http.Request) {", ctrl)
	g.indent++
	g.writeLine("if !authorize(w, r, %s) {", accessArgs(coll.Access.Update))
	g.indent++
	g.writeLine("return")
	g.indent--
	g.writeLine("}")
	g.writeLine("id, ok := c.parseID(r)")
	g.writeLine("if !ok {")
	g.indent++
	g.writeLine("writeError(w, http.StatusBadRequest, \"invalid id\")")
	g.writeLine("return")
	g.indent--
	g.writeLine("}")
	g.writeLine("exists, err := c.Repo.ExistsByID(r.Context(), id)")
	g.writeLine("if err != nil || !exists {")
	g.indent++
	g.writeLine("writeError(w, http.StatusNotFound, \"not found\")")
	g.writeLine("return")
	g.indent--
	g.writeLine("}")
	g.writeLine("var e %s", entity)
	g.writeLine("if err := json.NewDecoder(r.Body).Decode(&e); err != nil {")
	g.indent++
	g.writeLine("writeError(w, http.StatusBadRequest, \"invalid body\")")
	g.writeLine("return")
	g.indent--
	g.writeLine("}")
	g.writeLine("e.ID = id")
	g.writeLine("if !c.runChangePipeline(w, r, \"update\", &e) {")
	g.indent++
	g.writeLine("return")
	g.indent--
	g.writeLine("}")
	g.writeLine("writeJSON(w, http.StatusOK, map[string]any{\"data\": &e})")
	g.indent--
	g.writeLine("}")
	g.writeLine("")
}

func (g *Generator) generateDelete(coll *schema.CollectionDefinition, ctrl string) {
	g.writeLine("// Delete removes a document. afterDelete runs only when the document")
	g.writeLine("// existed and was removed.")
	g.writeLine("func (c *%s) Delete(w http.ResponseWriter, r *http.Request) {", ctrl)
	g.indent++
	g.writeLine("if !authorize(w, r, %s) {", accessArgs(coll.Access.Delete))
	g.indent++
	g.writeLine("return")
	g.indent--
	g.writeLine("}")
	g.writeLine("id, ok := c.parseID(r)")
	g.writeLine("if !ok {")
	g.indent++
	g.writeLine("writeError(w, http.StatusBadRequest, \"invalid id\")")
	g.writeLine("return")
	g.indent--
	g.writeLine("}")
	g.writeLine("snapshot, err := c.Repo.FindByID(r.Context(), id)")
	g.writeLine("if err != nil {")
	g.indent++
	g.writeLine("writeError(w, http.StatusNotFound, \"not found\")")
	g.writeLine("return")
	g.indent--
	g.writeLine("}")
	g.writeLine("if c.Hooks.BeforeDelete != nil {")
	g.indent++
	g.writeLine("if err := c.Hooks.BeforeDelete(id); err != nil {")
	g.indent++
	g.writeLine("writeError(w, http.StatusInternalServerError, err.Error())")
	g.writeLine("return")
	g.indent--
	g.writeLine("}")
	g.indent--
	g.writeLine("}")
	g.writeLine("if err := c.Repo.DeleteByID(r.Context(), id); err != nil {")
	g.indent++
	g.writeLine("writeError(w, http.StatusNotFound, \"not found\")")
	g.writeLine("return")
	g.indent--
	g.writeLine("}")
	g.writeLine("if c.Hooks.AfterDelete != nil {")
	g.indent++
	g.writeLine("if err := c.Hooks.AfterDelete(snapshot, id); err != nil {")
	g.indent++
	g.writeLine("writeError(w, http.StatusInternalServerError, err.Error())")
	g.writeLine("return")
	g.indent--
	g.writeLine("}")
	g.indent--
	g.writeLine("}")
	g.writeLine("w.WriteHeader(http.StatusNoContent)")
	g.indent--
	g.writeLine("}")
	g.writeLine("")
}
