package runtime

import (
	"context"

	"github.com/shapr-cms/shapr/internal/query"
	"github.com/shapr-cms/shapr/internal/store"
)

// FindParams are the list-endpoint parameters. Page is 1-based and defaults
// to 1; Limit <= 0 with pagination enabled means the default page size.
type FindParams struct {
	Where      *query.Where
	Limit      int
	Page       int
	Sort       string
	Pagination bool
}

// DefaultLimit is the page size used when a paginated find gives none.
const DefaultLimit = 10

// PaginatedDocs is the list response envelope.
type PaginatedDocs struct {
	Docs          []Document `json:"docs"`
	TotalDocs     int64      `json:"totalDocs"`
	Limit         int        `json:"limit"`
	TotalPages    int        `json:"totalPages"`
	Page          int        `json:"page"`
	PagingCounter int        `json:"pagingCounter"`
	HasPrevPage   bool       `json:"hasPrevPage"`
	HasNextPage   bool       `json:"hasNextPage"`
	PrevPage      *int       `json:"prevPage"`
	NextPage      *int       `json:"nextPage"`
}

// Find runs the paginated list operation: translate the filter, count under
// the same predicate, fetch the window, and run read hooks per document.
func (s *Service) Find(ctx context.Context, slug string, params FindParams) (*PaginatedDocs, error) {
	coll, err := s.registry.Resolve(slug)
	if err != nil {
		return nil, err
	}
	if err := s.authorize(ctx, coll, coll.Access.Read, "read"); err != nil {
		return nil, err
	}

	predicate, err := s.translator.Translate(coll, params.Where)
	if err != nil {
		return nil, err
	}

	total, err := s.repo.Count(ctx, coll, predicate)
	if err != nil {
		return nil, err
	}

	page := params.Page
	if page < 1 {
		page = 1
	}
	limit := params.Limit
	if params.Pagination && limit <= 0 {
		limit = DefaultLimit
	}

	q := store.Query{
		Predicate: predicate,
		Sort:      query.ParseSort(coll, params.Sort),
	}
	if params.Pagination && limit > 0 {
		q.Offset = (page - 1) * limit
		q.Limit = limit
	}

	docs, err := s.repo.FindAll(ctx, coll, q)
	if err != nil {
		return nil, err
	}

	out := make([]Document, 0, len(docs))
	for _, doc := range docs {
		hooked, err := s.runReadHooks(ctx, coll, doc, true)
		if err != nil {
			return nil, err
		}
		out = append(out, hooked)
	}

	return paginate(out, total, limit, page, params.Pagination), nil
}

func paginate(docs []Document, total int64, limit, page int, paginated bool) *PaginatedDocs {
	result := &PaginatedDocs{
		Docs:      docs,
		TotalDocs: total,
		Limit:     limit,
		Page:      page,
	}

	if paginated && limit > 0 {
		result.TotalPages = int((total + int64(limit) - 1) / int64(limit))
	} else {
		result.TotalPages = 1
	}

	result.PagingCounter = (page-1)*limit + 1
	result.HasPrevPage = page > 1
	result.HasNextPage = page < result.TotalPages
	if result.HasPrevPage {
		prev := page - 1
		result.PrevPage = &prev
	}
	if result.HasNextPage {
		next := page + 1
		result.NextPage = &next
	}
	return result
}

// FindMany returns the matching documents without the pagination envelope.
func (s *Service) FindMany(ctx context.Context, slug string, params FindParams) ([]Document, error) {
	result, err := s.Find(ctx, slug, params)
	if err != nil {
		return nil, err
	}
	return result.Docs, nil
}
