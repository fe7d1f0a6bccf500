// Package web exposes the runtime over HTTP: generic CRUD and query
// endpoints per collection plus the client schema endpoints.
package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/shapr-cms/shapr/internal/query"
	"github.com/shapr-cms/shapr/internal/runtime"
	"github.com/shapr-cms/shapr/internal/schema"
	"github.com/shapr-cms/shapr/internal/web/response"
)

// Handlers serves the collection API backed by the runtime service.
type Handlers struct {
	svc    *runtime.Service
	logger *zap.Logger
}

// NewHandlers creates the handler set. A nil logger disables logging.
func NewHandlers(svc *runtime.Service, logger *zap.Logger) *Handlers {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handlers{svc: svc, logger: logger}
}

// parseID converts the raw id path segment according to the collection's
// identifier kind.
func parseID(coll *schema.CollectionDefinition, raw string) (any, error) {
	if coll.IDKind() == schema.IDString {
		if raw == "" {
			return nil, errors.New("empty id")
		}
		return raw, nil
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid id %q", raw)
	}
	return id, nil
}

func (h *Handlers) resolveID(r *http.Request) (any, error) {
	slug := chi.URLParam(r, "slug")
	coll, err := h.svc.Registry().Resolve(slug)
	if err != nil {
		return nil, err
	}
	return parseID(coll, chi.URLParam(r, "id"))
}

// List serves GET /api/{slug} with the generic query parameters.
func (h *Handlers) List(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")
	q := r.URL.Query()

	params := runtime.FindParams{
		Sort:       q.Get("sort"),
		Pagination: true,
	}
	if raw := q.Get("pagination"); raw != "" {
		params.Pagination = raw != "false"
	}
	if raw := q.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil {
			response.RenderErrorWithCode(w, http.StatusBadRequest, fmt.Errorf("invalid limit %q", raw), "invalid_query")
			return
		}
		params.Limit = limit
	}
	if raw := q.Get("page"); raw != "" {
		page, err := strconv.Atoi(raw)
		if err != nil {
			response.RenderErrorWithCode(w, http.StatusBadRequest, fmt.Errorf("invalid page %q", raw), "invalid_query")
			return
		}
		params.Page = page
	}
	if raw := q.Get("where"); raw != "" {
		where, err := query.ParseWhere(raw)
		if err != nil {
			response.RenderDomainError(w, r, err)
			return
		}
		params.Where = &where
	}

	result, err := h.svc.Find(r.Context(), slug, params)
	if err != nil {
		response.RenderDomainError(w, r, err)
		return
	}
	response.RenderJSON(w, http.StatusOK, result)
}

// Get serves GET /api/{slug}/{id}.
func (h *Handlers) Get(w http.ResponseWriter, r *http.Request) {
	id, err := h.resolveID(r)
	if err != nil {
		h.renderIDError(w, r, err)
		return
	}

	doc, err := h.svc.Get(r.Context(), chi.URLParam(r, "slug"), id)
	if err != nil {
		response.RenderDomainError(w, r, err)
		return
	}
	response.RenderData(w, http.StatusOK, doc)
}

// Create serves POST /api/{slug}.
func (h *Handlers) Create(w http.ResponseWriter, r *http.Request) {
	var body runtime.Document
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		response.RenderError(w, http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err))
		return
	}

	doc, err := h.svc.Create(r.Context(), chi.URLParam(r, "slug"), body)
	if err != nil {
		response.RenderDomainError(w, r, err)
		return
	}
	response.RenderData(w, http.StatusCreated, doc)
}

// Update serves PUT /api/{slug}/{id}.
func (h *Handlers) Update(w http.ResponseWriter, r *http.Request) {
	id, err := h.resolveID(r)
	if err != nil {
		h.renderIDError(w, r, err)
		return
	}

	var body runtime.Document
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		response.RenderError(w, http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err))
		return
	}

	doc, err := h.svc.Update(r.Context(), chi.URLParam(r, "slug"), id, body)
	if err != nil {
		response.RenderDomainError(w, r, err)
		return
	}
	response.RenderData(w, http.StatusOK, doc)
}

// Delete serves DELETE /api/{slug}/{id}; 204 on success.
func (h *Handlers) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := h.resolveID(r)
	if err != nil {
		h.renderIDError(w, r, err)
		return
	}

	if err := h.svc.Delete(r.Context(), chi.URLParam(r, "slug"), id); err != nil {
		response.RenderDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) renderIDError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, runtime.ErrUnknownCollection) {
		response.RenderDomainError(w, r, err)
		return
	}
	// A malformed identifier can never match a stored document.
	response.RenderError(w, http.StatusNotFound, err)
}

// SchemaList serves GET /api/_schema.
func (h *Handlers) SchemaList(w http.ResponseWriter, r *http.Request) {
	var schemas []schema.ClientCollectionSchema
	for _, coll := range h.svc.Registry().All() {
		schemas = append(schemas, coll.ClientSchema())
	}
	response.RenderJSON(w, http.StatusOK, schemas)
}

// SchemaGet serves GET /api/_schema/{slug}.
func (h *Handlers) SchemaGet(w http.ResponseWriter, r *http.Request) {
	coll, err := h.svc.Registry().Resolve(chi.URLParam(r, "slug"))
	if err != nil {
		response.RenderDomainError(w, r, err)
		return
	}
	response.RenderJSON(w, http.StatusOK, coll.ClientSchema())
}
