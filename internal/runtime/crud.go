package runtime

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/shapr-cms/shapr/internal/access"
	"github.com/shapr-cms/shapr/internal/hooks"
	"github.com/shapr-cms/shapr/internal/query"
	"github.com/shapr-cms/shapr/internal/schema"
	"github.com/shapr-cms/shapr/internal/store"
)

// Document is a collection record in its wire form.
type Document = hooks.Document

// Service runs collection operations through access checks, the hook pipeline
// and the store, in that order.
type Service struct {
	registry   *Registry
	repo       store.Repository
	hooks      *hooks.Executor
	translator *query.Translator
	logger     *zap.Logger
}

// NewService wires the runtime together. A nil logger disables logging.
func NewService(cfg schema.Config, repo store.Repository, executor *hooks.Executor, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		registry:   NewRegistry(cfg),
		repo:       repo,
		hooks:      executor,
		translator: query.NewTranslator(cfg),
		logger:     logger,
	}
}

// Registry exposes the slug index, used by the schema endpoints.
func (s *Service) Registry() *Registry {
	return s.registry
}

func (s *Service) authorize(ctx context.Context, coll *schema.CollectionDefinition, rule schema.AccessRule, verb string) error {
	id := access.FromContext(ctx)
	if !access.Check(rule, id) {
		s.logger.Info("access denied",
			zap.String("collection", coll.Slug),
			zap.String("verb", verb),
			zap.String("principal", id.Name()))
		return fmt.Errorf("%w: %s on %s", ErrAccessDenied, verb, coll.Slug)
	}
	return nil
}

// applyDefaults fills missing fields from their declared defaults.
func applyDefaults(coll *schema.CollectionDefinition, doc Document) {
	for _, f := range coll.Fields {
		if _, ok := doc[f.Name]; ok {
			continue
		}
		switch f.Kind {
		case schema.KindText, schema.KindTextarea, schema.KindEmail:
			if f.DefaultValue != "" {
				doc[f.Name] = f.DefaultValue
			}
		case schema.KindNumber:
			if f.DefaultNumber != nil {
				doc[f.Name] = *f.DefaultNumber
			}
		case schema.KindCheckbox:
			doc[f.Name] = f.DefaultChecked
		case schema.KindDate:
			if f.DefaultNow {
				doc[f.Name] = time.Now().UTC()
			}
		}
	}
}

// validate checks the document against the collection's field attributes.
func validate(coll *schema.CollectionDefinition, doc Document) error {
	var problems []string

	for _, f := range coll.Fields {
		value, present := doc[f.Name]

		if f.Required && (!present || value == nil || value == "") {
			problems = append(problems, fmt.Sprintf("%s is required", f.Name))
			continue
		}
		if !present || value == nil {
			continue
		}

		switch f.Kind {
		case schema.KindText, schema.KindTextarea, schema.KindEmail:
			s, ok := value.(string)
			if !ok {
				problems = append(problems, fmt.Sprintf("%s must be a string", f.Name))
				continue
			}
			if f.MaxLength > 0 && len(s) > f.MaxLength {
				problems = append(problems, fmt.Sprintf("%s exceeds max length %d", f.Name, f.MaxLength))
			}
			if f.MinLength > 0 && len(s) < f.MinLength {
				problems = append(problems, fmt.Sprintf("%s is shorter than min length %d", f.Name, f.MinLength))
			}
			if f.Kind == schema.KindEmail && !strings.Contains(s, "@") {
				problems = append(problems, fmt.Sprintf("%s must be an email address", f.Name))
			}
		case schema.KindNumber:
			n, ok := asNumber(value)
			if !ok {
				problems = append(problems, fmt.Sprintf("%s must be a number", f.Name))
				continue
			}
			if f.IntegerOnly && n != float64(int64(n)) {
				problems = append(problems, fmt.Sprintf("%s must be an integer", f.Name))
			}
			if f.Min != nil && n < *f.Min {
				problems = append(problems, fmt.Sprintf("%s is below minimum %v", f.Name, *f.Min))
			}
			if f.Max != nil && n > *f.Max {
				problems = append(problems, fmt.Sprintf("%s is above maximum %v", f.Name, *f.Max))
			}
		case schema.KindCheckbox:
			if _, ok := value.(bool); !ok {
				problems = append(problems, fmt.Sprintf("%s must be a boolean", f.Name))
			}
		}
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrValidation, strings.Join(problems, "; "))
	}
	return nil
}

func asNumber(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}

// Create runs the create pipeline: access check, beforeOperation,
// beforeValidate, validation, beforeChange, persist, afterChange.
func (s *Service) Create(ctx context.Context, slug string, data Document) (Document, error) {
	coll, err := s.registry.Resolve(slug)
	if err != nil {
		return nil, err
	}
	if err := s.authorize(ctx, coll, coll.Access.Create, "create"); err != nil {
		return nil, err
	}
	if data == nil {
		data = Document{}
	}

	args, err := s.hooks.BeforeOperation(ctx, coll, &hooks.BeforeOperationArgs{
		Collection: coll.Slug,
		Operation:  hooks.OpCreate,
		Data:       data,
	})
	if err != nil {
		return nil, err
	}
	data = args.Data

	data, err = s.hooks.BeforeValidate(ctx, coll, hooks.ChangeArgs{
		Collection: coll.Slug,
		Operation:  hooks.OpCreate,
		Data:       data,
	})
	if err != nil {
		return nil, err
	}

	applyDefaults(coll, data)
	if err := validate(coll, data); err != nil {
		return nil, err
	}

	data, err = s.hooks.BeforeChange(ctx, coll, hooks.ChangeArgs{
		Collection: coll.Slug,
		Operation:  hooks.OpCreate,
		Data:       data,
	})
	if err != nil {
		return nil, err
	}

	if coll.Timestamps {
		now := time.Now().UTC()
		data["createdAt"] = now
		data["updatedAt"] = now
	}

	saved, err := s.repo.Save(ctx, coll, data)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", coll.Slug, err)
	}

	if err := s.hooks.AfterChange(ctx, coll, hooks.ChangeArgs{
		Collection: coll.Slug,
		Operation:  hooks.OpCreate,
		Data:       saved,
	}); err != nil {
		return nil, err
	}

	s.logger.Info("document created",
		zap.String("collection", coll.Slug),
		zap.Any("id", saved["id"]))
	return saved, nil
}

// Get loads one document and runs the read hooks over it.
func (s *Service) Get(ctx context.Context, slug string, id any) (Document, error) {
	coll, err := s.registry.Resolve(slug)
	if err != nil {
		return nil, err
	}
	if err := s.authorize(ctx, coll, coll.Access.Read, "read"); err != nil {
		return nil, err
	}

	doc, err := s.repo.FindByID(ctx, coll, id)
	if err != nil {
		return nil, err
	}
	return s.runReadHooks(ctx, coll, doc, false)
}

func (s *Service) runReadHooks(ctx context.Context, coll *schema.CollectionDefinition, doc Document, findMany bool) (Document, error) {
	doc, err := s.hooks.BeforeRead(ctx, coll, hooks.ReadArgs{
		Collection: coll.Slug,
		Doc:        doc,
		FindMany:   findMany,
	})
	if err != nil {
		return nil, err
	}
	return s.hooks.AfterRead(ctx, coll, hooks.ReadArgs{
		Collection: coll.Slug,
		Doc:        doc,
		FindMany:   findMany,
	})
}

// Update runs the update pipeline. The stored document is loaded first and
// threaded through every stage as originalDoc; a missing identifier is
// not-found before any hook runs.
func (s *Service) Update(ctx context.Context, slug string, id any, data Document) (Document, error) {
	coll, err := s.registry.Resolve(slug)
	if err != nil {
		return nil, err
	}
	if err := s.authorize(ctx, coll, coll.Access.Update, "update"); err != nil {
		return nil, err
	}
	if data == nil {
		data = Document{}
	}

	original, err := s.repo.FindByID(ctx, coll, id)
	if err != nil {
		return nil, err
	}

	args, err := s.hooks.BeforeOperation(ctx, coll, &hooks.BeforeOperationArgs{
		Collection:  coll.Slug,
		Operation:   hooks.OpUpdate,
		Data:        data,
		ID:          id,
		OriginalDoc: original,
	})
	if err != nil {
		return nil, err
	}
	data = args.Data

	data, err = s.hooks.BeforeValidate(ctx, coll, hooks.ChangeArgs{
		Collection:  coll.Slug,
		Operation:   hooks.OpUpdate,
		Data:        data,
		OriginalDoc: original,
	})
	if err != nil {
		return nil, err
	}

	// Merge the incoming fields over the stored document before validating
	// the result as a whole.
	merged := make(Document, len(original)+len(data))
	for k, v := range original {
		merged[k] = v
	}
	for k, v := range data {
		merged[k] = v
	}
	merged["id"] = id

	if err := validate(coll, merged); err != nil {
		return nil, err
	}

	merged, err = s.hooks.BeforeChange(ctx, coll, hooks.ChangeArgs{
		Collection:  coll.Slug,
		Operation:   hooks.OpUpdate,
		Data:        merged,
		OriginalDoc: original,
	})
	if err != nil {
		return nil, err
	}

	if coll.Timestamps {
		merged["updatedAt"] = time.Now().UTC()
	}

	saved, err := s.repo.Save(ctx, coll, merged)
	if err != nil {
		return nil, fmt.Errorf("update %s: %w", coll.Slug, err)
	}

	if err := s.hooks.AfterChange(ctx, coll, hooks.ChangeArgs{
		Collection:  coll.Slug,
		Operation:   hooks.OpUpdate,
		Data:        saved,
		OriginalDoc: original,
	}); err != nil {
		return nil, err
	}

	s.logger.Info("document updated",
		zap.String("collection", coll.Slug),
		zap.Any("id", id))
	return saved, nil
}

// Delete removes a document. beforeDelete may abort; afterDelete runs only
// when a document actually existed and was removed.
func (s *Service) Delete(ctx context.Context, slug string, id any) error {
	coll, err := s.registry.Resolve(slug)
	if err != nil {
		return err
	}
	if err := s.authorize(ctx, coll, coll.Access.Delete, "delete"); err != nil {
		return err
	}

	snapshot, err := s.repo.FindByID(ctx, coll, id)
	if err != nil {
		return err
	}

	if err := s.hooks.BeforeDelete(ctx, coll, hooks.DeleteArgs{
		Collection: coll.Slug,
		ID:         id,
	}); err != nil {
		return err
	}

	if err := s.repo.DeleteByID(ctx, coll, id); err != nil {
		return err
	}

	if err := s.hooks.AfterDelete(ctx, coll, hooks.DeleteArgs{
		Collection: coll.Slug,
		ID:         id,
		Doc:        snapshot,
	}); err != nil {
		return err
	}

	s.logger.Info("document deleted",
		zap.String("collection", coll.Slug),
		zap.Any("id", id))
	return nil
}
