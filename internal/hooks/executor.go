package hooks

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/shapr-cms/shapr/internal/schema"
)

// Executor runs the hook pipeline for a collection. Each stage folds the
// collection's inline hooks first, then the registered instance hooks, in
// declaration order.
type Executor struct {
	registry *Registry
	logger   *zap.Logger
}

// NewExecutor creates an executor over a registry. A nil logger disables
// logging.
func NewExecutor(registry *Registry, logger *zap.Logger) *Executor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Executor{registry: registry, logger: logger}
}

func inlineConfig(coll *schema.CollectionDefinition) *Config {
	if cfg, ok := coll.Hooks.(*Config); ok && cfg != nil {
		return cfg
	}
	return &Config{}
}

func (e *Executor) stageError(coll, stage string, err error) error {
	e.logger.Error("hook failed",
		zap.String("collection", coll),
		zap.String("stage", stage),
		zap.Error(err))
	return fmt.Errorf("%s hook for %s: %w", stage, coll, err)
}

// BeforeOperation runs the beforeOperation stage. Any hook returning nil args
// cancels the whole operation with ErrOperationCancelled.
func (e *Executor) BeforeOperation(ctx context.Context, coll *schema.CollectionDefinition, args *BeforeOperationArgs) (*BeforeOperationArgs, error) {
	run := func(fn BeforeOperationFunc) error {
		next, err := fn(ctx, args)
		if err != nil {
			return e.stageError(coll.Slug, "beforeOperation", err)
		}
		if next == nil {
			e.logger.Info("operation cancelled by hook",
				zap.String("collection", coll.Slug),
				zap.String("operation", args.Operation))
			return ErrOperationCancelled
		}
		args = next
		return nil
	}

	for _, fn := range inlineConfig(coll).BeforeOperation {
		if err := run(fn); err != nil {
			return nil, err
		}
	}
	for _, h := range e.registry.ForCollection(coll) {
		if err := run(h.BeforeOperation); err != nil {
			return nil, err
		}
	}
	return args, nil
}

// runChangeStage folds transforming hooks over args.Data. A hook returning a
// nil document keeps the current one.
func (e *Executor) runChangeStage(ctx context.Context, coll *schema.CollectionDefinition, stage string, args ChangeArgs, inline []ChangeFunc, instance func(CollectionHooks) ChangeFunc) (Document, error) {
	run := func(fn ChangeFunc) error {
		doc, err := fn(ctx, args)
		if err != nil {
			return e.stageError(coll.Slug, stage, err)
		}
		if doc != nil {
			args.Data = doc
		}
		return nil
	}

	for _, fn := range inline {
		if err := run(fn); err != nil {
			return nil, err
		}
	}
	for _, h := range e.registry.ForCollection(coll) {
		if err := run(instance(h)); err != nil {
			return nil, err
		}
	}
	return args.Data, nil
}

// BeforeValidate runs the beforeValidate stage and returns the document to
// validate and persist.
func (e *Executor) BeforeValidate(ctx context.Context, coll *schema.CollectionDefinition, args ChangeArgs) (Document, error) {
	return e.runChangeStage(ctx, coll, "beforeValidate", args, inlineConfig(coll).BeforeValidate,
		func(h CollectionHooks) ChangeFunc { return h.BeforeValidate })
}

// BeforeChange runs the beforeChange stage immediately before persistence.
func (e *Executor) BeforeChange(ctx context.Context, coll *schema.CollectionDefinition, args ChangeArgs) (Document, error) {
	return e.runChangeStage(ctx, coll, "beforeChange", args, inlineConfig(coll).BeforeChange,
		func(h CollectionHooks) ChangeFunc { return h.BeforeChange })
}

// AfterChange runs the afterChange stage with the persisted document.
func (e *Executor) AfterChange(ctx context.Context, coll *schema.CollectionDefinition, args ChangeArgs) error {
	for _, fn := range inlineConfig(coll).AfterChange {
		if err := fn(ctx, args); err != nil {
			return e.stageError(coll.Slug, "afterChange", err)
		}
	}
	for _, h := range e.registry.ForCollection(coll) {
		if err := h.AfterChange(ctx, args); err != nil {
			return e.stageError(coll.Slug, "afterChange", err)
		}
	}
	return nil
}

func (e *Executor) runReadStage(ctx context.Context, coll *schema.CollectionDefinition, stage string, args ReadArgs, inline []ReadFunc, instance func(CollectionHooks) ReadFunc) (Document, error) {
	run := func(fn ReadFunc) error {
		doc, err := fn(ctx, args)
		if err != nil {
			return e.stageError(coll.Slug, stage, err)
		}
		if doc != nil {
			args.Doc = doc
		}
		return nil
	}

	for _, fn := range inline {
		if err := run(fn); err != nil {
			return nil, err
		}
	}
	for _, h := range e.registry.ForCollection(coll) {
		if err := run(instance(h)); err != nil {
			return nil, err
		}
	}
	return args.Doc, nil
}

// BeforeRead runs the beforeRead stage for one document.
func (e *Executor) BeforeRead(ctx context.Context, coll *schema.CollectionDefinition, args ReadArgs) (Document, error) {
	return e.runReadStage(ctx, coll, "beforeRead", args, inlineConfig(coll).BeforeRead,
		func(h CollectionHooks) ReadFunc { return h.BeforeRead })
}

// AfterRead runs the afterRead stage for one document.
func (e *Executor) AfterRead(ctx context.Context, coll *schema.CollectionDefinition, args ReadArgs) (Document, error) {
	return e.runReadStage(ctx, coll, "afterRead", args, inlineConfig(coll).AfterRead,
		func(h CollectionHooks) ReadFunc { return h.AfterRead })
}

// BeforeDelete runs the beforeDelete stage. Any error aborts the deletion.
func (e *Executor) BeforeDelete(ctx context.Context, coll *schema.CollectionDefinition, args DeleteArgs) error {
	for _, fn := range inlineConfig(coll).BeforeDelete {
		if err := fn(ctx, args); err != nil {
			return e.stageError(coll.Slug, "beforeDelete", err)
		}
	}
	for _, h := range e.registry.ForCollection(coll) {
		if err := h.BeforeDelete(ctx, args); err != nil {
			return e.stageError(coll.Slug, "beforeDelete", err)
		}
	}
	return nil
}

// AfterDelete runs the afterDelete stage with the pre-deletion snapshot.
func (e *Executor) AfterDelete(ctx context.Context, coll *schema.CollectionDefinition, args DeleteArgs) error {
	for _, fn := range inlineConfig(coll).AfterDelete {
		if err := fn(ctx, args); err != nil {
			return e.stageError(coll.Slug, "afterDelete", err)
		}
	}
	for _, h := range e.registry.ForCollection(coll) {
		if err := h.AfterDelete(ctx, args); err != nil {
			return e.stageError(coll.Slug, "afterDelete", err)
		}
	}
	return nil
}
