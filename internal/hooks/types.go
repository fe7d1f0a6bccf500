// Package hooks defines the lifecycle hook pipeline that wraps every
// collection operation. Hooks come from two places: inline functions attached
// to a collection definition, and CollectionHooks instances registered at
// runtime. Inline hooks always run before registered ones.
package hooks

import (
	"context"
	"errors"
)

// Document is a collection record in its wire form.
type Document = map[string]any

// ErrOperationCancelled is returned when a beforeOperation hook cancels the
// operation by returning nil args.
var ErrOperationCancelled = errors.New("operation cancelled by hook")

// Operation names for hook args.
const (
	OpCreate = "create"
	OpRead   = "read"
	OpUpdate = "update"
	OpDelete = "delete"
)

// BeforeOperationArgs describes an operation before anything else runs. For
// create, Data holds the incoming document and ID is nil. For update and
// delete, ID is set and OriginalDoc holds the stored document when one exists.
type BeforeOperationArgs struct {
	Collection  string
	Operation   string
	Data        Document
	ID          any
	OriginalDoc Document
}

// ChangeArgs is shared by beforeValidate, beforeChange and afterChange. On the
// before stages Data is the candidate document; on afterChange Data is the
// persisted document and OriginalDoc the pre-update snapshot.
type ChangeArgs struct {
	Collection  string
	Operation   string
	Data        Document
	OriginalDoc Document
}

// ReadArgs is shared by beforeRead and afterRead. FindMany distinguishes a
// list read from a single-document read.
type ReadArgs struct {
	Collection string
	Doc        Document
	FindMany   bool
}

// DeleteArgs is shared by beforeDelete and afterDelete. Doc is the snapshot
// taken before deletion and is only set on afterDelete.
type DeleteArgs struct {
	Collection string
	ID         any
	Doc        Document
}

// Inline hook function signatures. Transforming hooks return the replacement
// document; returning nil keeps the current one.
type (
	BeforeOperationFunc func(ctx context.Context, args *BeforeOperationArgs) (*BeforeOperationArgs, error)
	ChangeFunc          func(ctx context.Context, args ChangeArgs) (Document, error)
	AfterChangeFunc     func(ctx context.Context, args ChangeArgs) error
	ReadFunc            func(ctx context.Context, args ReadArgs) (Document, error)
	BeforeDeleteFunc    func(ctx context.Context, args DeleteArgs) error
	AfterDeleteFunc     func(ctx context.Context, args DeleteArgs) error
)

// Config holds the inline hooks declared on a collection definition.
type Config struct {
	BeforeOperation []BeforeOperationFunc
	BeforeValidate  []ChangeFunc
	BeforeChange    []ChangeFunc
	AfterChange     []AfterChangeFunc
	BeforeRead      []ReadFunc
	AfterRead       []ReadFunc
	BeforeDelete    []BeforeDeleteFunc
	AfterDelete     []AfterDeleteFunc
}

// CollectionHooks is a stateful hook set bound to one collection. Collection
// returns the binding name, matched against the collection's name, its
// slug-derived entity name, and the raw slug.
type CollectionHooks interface {
	Collection() string

	BeforeOperation(ctx context.Context, args *BeforeOperationArgs) (*BeforeOperationArgs, error)
	BeforeValidate(ctx context.Context, args ChangeArgs) (Document, error)
	BeforeChange(ctx context.Context, args ChangeArgs) (Document, error)
	AfterChange(ctx context.Context, args ChangeArgs) error
	BeforeRead(ctx context.Context, args ReadArgs) (Document, error)
	AfterRead(ctx context.Context, args ReadArgs) (Document, error)
	BeforeDelete(ctx context.Context, args DeleteArgs) error
	AfterDelete(ctx context.Context, args DeleteArgs) error
}

// NopHooks is an embeddable pass-through implementation of every hook method
// except Collection.
type NopHooks struct{}

func (NopHooks) BeforeOperation(_ context.Context, args *BeforeOperationArgs) (*BeforeOperationArgs, error) {
	return args, nil
}

func (NopHooks) BeforeValidate(context.Context, ChangeArgs) (Document, error) { return nil, nil }
func (NopHooks) BeforeChange(context.Context, ChangeArgs) (Document, error)   { return nil, nil }
func (NopHooks) AfterChange(context.Context, ChangeArgs) error                { return nil }
func (NopHooks) BeforeRead(context.Context, ReadArgs) (Document, error)       { return nil, nil }
func (NopHooks) AfterRead(context.Context, ReadArgs) (Document, error)        { return nil, nil }
func (NopHooks) BeforeDelete(context.Context, DeleteArgs) error               { return nil }
func (NopHooks) AfterDelete(context.Context, DeleteArgs) error                { return nil }
