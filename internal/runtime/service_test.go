package runtime

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shapr-cms/shapr/internal/access"
	"github.com/shapr-cms/shapr/internal/hooks"
	"github.com/shapr-cms/shapr/internal/query"
	"github.com/shapr-cms/shapr/internal/schema"
	"github.com/shapr-cms/shapr/internal/store"
)

func openAccess() schema.AccessControl {
	return schema.AccessControl{
		Create: schema.Public(),
		Read:   schema.Public(),
		Update: schema.Public(),
		Delete: schema.Public(),
	}
}

func newTestService(t *testing.T, hookCfg *hooks.Config, registered ...hooks.CollectionHooks) (*Service, *store.Memory) {
	t.Helper()

	b := schema.NewConfig()
	posts := b.Collection("Post").Access(openAccess()).Fields(
		schema.Text("title").Required().MaxLength(100),
		schema.Textarea("content"),
		schema.Number("score").Range(0, 100),
		schema.Checkbox("published"),
	)
	if hookCfg != nil {
		posts.Hooks(hookCfg)
	}
	b.Collection("Category").Access(openAccess()).Fields(
		schema.Text("name").Required(),
	)
	cfg, err := b.Build()
	require.NoError(t, err)

	registry := hooks.NewRegistry()
	for _, h := range registered {
		registry.Register(h)
	}

	mem := store.NewMemory()
	svc := NewService(cfg, mem, hooks.NewExecutor(registry, nil), nil)
	return svc, mem
}

func TestCreateAppliesDefaultsAndTimestamps(t *testing.T) {
	svc, _ := newTestService(t, nil)

	doc, err := svc.Create(context.Background(), "posts", Document{"title": "Hi"})
	require.NoError(t, err)

	assert.Equal(t, int64(1), doc["id"])
	assert.Equal(t, false, doc["published"])
	assert.NotNil(t, doc["createdAt"])
	assert.NotNil(t, doc["updatedAt"])
}

func TestCreateValidation(t *testing.T) {
	svc, mem := newTestService(t, nil)
	ctx := context.Background()

	_, err := svc.Create(ctx, "posts", Document{"content": "no title"})
	require.ErrorIs(t, err, ErrValidation)
	assert.Contains(t, err.Error(), "title is required")

	_, err = svc.Create(ctx, "posts", Document{"title": strings.Repeat("x", 101)})
	require.ErrorIs(t, err, ErrValidation)

	_, err = svc.Create(ctx, "posts", Document{"title": "ok", "score": float64(101)})
	require.ErrorIs(t, err, ErrValidation)

	n, err := mem.Count(ctx, svc.Registry().bySlug["posts"], nil)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestCreateCancelledByHookPersistsNothing(t *testing.T) {
	cancel := &hooks.Config{
		BeforeOperation: []hooks.BeforeOperationFunc{
			func(context.Context, *hooks.BeforeOperationArgs) (*hooks.BeforeOperationArgs, error) {
				return nil, nil
			},
		},
	}
	svc, mem := newTestService(t, cancel)
	ctx := context.Background()

	_, err := svc.Create(ctx, "posts", Document{"title": "Hi"})
	assert.ErrorIs(t, err, hooks.ErrOperationCancelled)

	n, err := mem.Count(ctx, svc.Registry().bySlug["posts"], nil)
	require.NoError(t, err)
	assert.Zero(t, n)
}

type upperTitleHooks struct {
	hooks.NopHooks
}

func (upperTitleHooks) Collection() string { return "Post" }

func (upperTitleHooks) BeforeChange(_ context.Context, args hooks.ChangeArgs) (hooks.Document, error) {
	doc := args.Data
	if title, ok := doc["title"].(string); ok {
		doc["title"] = strings.ToUpper(title)
	}
	return doc, nil
}

func TestCreateRunsRegisteredHooks(t *testing.T) {
	svc, _ := newTestService(t, nil, upperTitleHooks{})

	doc, err := svc.Create(context.Background(), "posts", Document{"title": "Hi"})
	require.NoError(t, err)
	assert.Equal(t, "HI", doc["title"])
}

func TestUpdateThreadsOriginalDoc(t *testing.T) {
	var sawOriginal hooks.Document
	cfg := &hooks.Config{
		BeforeChange: []hooks.ChangeFunc{
			func(_ context.Context, args hooks.ChangeArgs) (hooks.Document, error) {
				sawOriginal = args.OriginalDoc
				return nil, nil
			},
		},
	}
	svc, _ := newTestService(t, cfg)
	ctx := context.Background()

	created, err := svc.Create(ctx, "posts", Document{"title": "Before"})
	require.NoError(t, err)

	updated, err := svc.Update(ctx, "posts", created["id"], Document{"title": "After"})
	require.NoError(t, err)

	assert.Equal(t, "After", updated["title"])
	require.NotNil(t, sawOriginal)
	assert.Equal(t, "Before", sawOriginal["title"])
}

func TestUpdateMissingIDIsNotFound(t *testing.T) {
	called := false
	cfg := &hooks.Config{
		BeforeOperation: []hooks.BeforeOperationFunc{
			func(_ context.Context, args *hooks.BeforeOperationArgs) (*hooks.BeforeOperationArgs, error) {
				called = true
				return args, nil
			},
		},
	}
	svc, _ := newTestService(t, cfg)

	_, err := svc.Update(context.Background(), "posts", int64(99), Document{"title": "x"})
	assert.ErrorIs(t, err, store.ErrNotFound)
	assert.False(t, called, "hooks must not run for a missing document")
}

func TestDeleteMissingIDSkipsAfterDelete(t *testing.T) {
	fired := false
	cfg := &hooks.Config{
		AfterDelete: []hooks.AfterDeleteFunc{
			func(context.Context, hooks.DeleteArgs) error {
				fired = true
				return nil
			},
		},
	}
	svc, _ := newTestService(t, cfg)

	err := svc.Delete(context.Background(), "posts", int64(999))
	assert.ErrorIs(t, err, store.ErrNotFound)
	assert.False(t, fired)
}

func TestDeleteRunsAfterDeleteWithSnapshot(t *testing.T) {
	var snapshot hooks.Document
	cfg := &hooks.Config{
		AfterDelete: []hooks.AfterDeleteFunc{
			func(_ context.Context, args hooks.DeleteArgs) error {
				snapshot = args.Doc
				return nil
			},
		},
	}
	svc, _ := newTestService(t, cfg)
	ctx := context.Background()

	created, err := svc.Create(ctx, "posts", Document{"title": "Doomed"})
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, "posts", created["id"]))
	require.NotNil(t, snapshot)
	assert.Equal(t, "Doomed", snapshot["title"])
}

func TestBeforeDeleteAborts(t *testing.T) {
	cfg := &hooks.Config{
		BeforeDelete: []hooks.BeforeDeleteFunc{
			func(context.Context, hooks.DeleteArgs) error {
				return assert.AnError
			},
		},
	}
	svc, mem := newTestService(t, cfg)
	ctx := context.Background()

	created, err := svc.Create(ctx, "posts", Document{"title": "Protected"})
	require.NoError(t, err)

	err = svc.Delete(ctx, "posts", created["id"])
	assert.Error(t, err)

	exists, err := mem.ExistsByID(ctx, svc.Registry().bySlug["posts"], created["id"])
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestAccessDenied(t *testing.T) {
	b := schema.NewConfig()
	b.Collection("Secret").Fields(schema.Text("value"))
	cfg, err := b.Build()
	require.NoError(t, err)

	svc := NewService(cfg, store.NewMemory(), hooks.NewExecutor(hooks.NewRegistry(), nil), nil)
	ctx := context.Background()

	// Default access is Roles(["admin"]); anonymous callers are rejected.
	_, err = svc.Create(ctx, "secrets", Document{"value": "x"})
	assert.ErrorIs(t, err, ErrAccessDenied)

	// An admin passes.
	ctx = access.WithIdentity(ctx, access.User{Username: "root", UserRoles: []string{"admin"}})
	_, err = svc.Create(ctx, "secrets", Document{"value": "x"})
	assert.NoError(t, err)
}

func TestUnknownCollectionNamesExpectedEntity(t *testing.T) {
	svc, _ := newTestService(t, nil)

	_, err := svc.Get(context.Background(), "widgets", int64(1))
	require.ErrorIs(t, err, ErrUnknownCollection)
	assert.Contains(t, err.Error(), "Widget")
}

func TestFindPagination(t *testing.T) {
	svc, _ := newTestService(t, nil)
	ctx := context.Background()

	for _, title := range []string{"a", "b", "c", "d", "e"} {
		_, err := svc.Create(ctx, "posts", Document{"title": title})
		require.NoError(t, err)
	}

	result, err := svc.Find(ctx, "posts", FindParams{Limit: 2, Page: 2, Pagination: true})
	require.NoError(t, err)

	assert.Equal(t, int64(5), result.TotalDocs)
	assert.Equal(t, 3, result.TotalPages)
	assert.Equal(t, 2, result.Page)
	assert.Equal(t, 3, result.PagingCounter)
	assert.True(t, result.HasPrevPage)
	assert.True(t, result.HasNextPage)
	require.NotNil(t, result.PrevPage)
	require.NotNil(t, result.NextPage)
	assert.Equal(t, 1, *result.PrevPage)
	assert.Equal(t, 3, *result.NextPage)
	require.Len(t, result.Docs, 2)
	assert.Equal(t, "c", result.Docs[0]["title"])
}

func TestFindWithWhereAndSort(t *testing.T) {
	svc, _ := newTestService(t, nil)
	ctx := context.Background()

	for i, title := range []string{"one", "two", "three"} {
		_, err := svc.Create(ctx, "posts", Document{"title": title, "score": float64(i * 10)})
		require.NoError(t, err)
	}

	where, err := query.ParseWhere(`{"score":{"greater_than":0}}`)
	require.NoError(t, err)

	result, err := svc.Find(ctx, "posts", FindParams{
		Where:      &where,
		Sort:       "-score",
		Pagination: true,
	})
	require.NoError(t, err)

	assert.Equal(t, int64(2), result.TotalDocs)
	assert.False(t, result.HasNextPage)
	require.Len(t, result.Docs, 2)
	assert.Equal(t, "three", result.Docs[0]["title"])
	assert.Equal(t, "two", result.Docs[1]["title"])
}

func TestFindInvalidFieldPath(t *testing.T) {
	svc, _ := newTestService(t, nil)

	where, err := query.ParseWhere(`{"bogus":{"equals":1}}`)
	require.NoError(t, err)

	_, err = svc.Find(context.Background(), "posts", FindParams{Where: &where, Pagination: true})
	assert.ErrorIs(t, err, query.ErrInvalidQuery)
}

func TestFindRunsReadHooksPerDocument(t *testing.T) {
	var flags []bool
	cfg := &hooks.Config{
		AfterRead: []hooks.ReadFunc{
			func(_ context.Context, args hooks.ReadArgs) (hooks.Document, error) {
				flags = append(flags, args.FindMany)
				return nil, nil
			},
		},
	}
	svc, _ := newTestService(t, cfg)
	ctx := context.Background()

	created, err := svc.Create(ctx, "posts", Document{"title": "a"})
	require.NoError(t, err)
	_, err = svc.Create(ctx, "posts", Document{"title": "b"})
	require.NoError(t, err)

	flags = nil
	_, err = svc.Find(ctx, "posts", FindParams{Pagination: true})
	require.NoError(t, err)
	assert.Equal(t, []bool{true, true}, flags)

	flags = nil
	_, err = svc.Get(ctx, "posts", created["id"])
	require.NoError(t, err)
	assert.Equal(t, []bool{false}, flags)
}
