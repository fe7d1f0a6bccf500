package query

import (
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shapr-cms/shapr/internal/schema"
)

func testConfig(t *testing.T) schema.Config {
	t.Helper()

	b := schema.NewConfig()
	b.Collection("Post").Fields(
		schema.Text("title"),
		schema.Number("score"),
		schema.Date("publishedAt"),
		schema.Checkbox("published"),
		schema.Relationship("category", "categories"),
	)
	b.Collection("Category").Fields(
		schema.Text("name"),
	)

	cfg, err := b.Build()
	require.NoError(t, err)
	return cfg
}

func translate(t *testing.T, raw string) (*PredicateGroup, error) {
	t.Helper()
	cfg := testConfig(t)
	where, err := ParseWhere(raw)
	require.NoError(t, err)
	return NewTranslator(cfg).Translate(cfg.BySlug("posts"), &where)
}

func TestTranslateEmptyWhere(t *testing.T) {
	group, err := translate(t, "")
	require.NoError(t, err)
	assert.Nil(t, group)

	group, err = translate(t, "{}")
	require.NoError(t, err)
	assert.Nil(t, group)
}

func TestTranslateEquals(t *testing.T) {
	group, err := translate(t, `{"title":{"equals":"Hi"}}`)
	require.NoError(t, err)
	require.Len(t, group.Conditions, 1)

	cond := group.Conditions[0]
	assert.Equal(t, "title", cond.Field)
	assert.Equal(t, OpEquals, cond.Operator)
	assert.Equal(t, "Hi", cond.Value)
}

func TestTranslateBareValueIsEquals(t *testing.T) {
	group, err := translate(t, `{"title":"Hi"}`)
	require.NoError(t, err)
	require.Len(t, group.Conditions, 1)
	assert.Equal(t, OpEquals, group.Conditions[0].Operator)
}

func TestTranslateUnknownOperator(t *testing.T) {
	_, err := ParseWhere(`{"title":{"resembles":"Hi"}}`)
	assert.ErrorIs(t, err, ErrInvalidQuery)
}

func TestTranslateUnknownField(t *testing.T) {
	_, err := translate(t, `{"nope":{"equals":1}}`)
	assert.ErrorIs(t, err, ErrInvalidQuery)
}

func TestTranslateMalformedJSON(t *testing.T) {
	_, err := ParseWhere(`{"title":`)
	assert.ErrorIs(t, err, ErrInvalidQuery)
}

func TestTranslateRelationshipPath(t *testing.T) {
	group, err := translate(t, `{"category.name":{"equals":"news"}}`)
	require.NoError(t, err)
	require.Len(t, group.Conditions, 1)
	assert.Equal(t, "category.name", group.Conditions[0].Field)
}

func TestTranslatePathThroughNonRelationship(t *testing.T) {
	_, err := translate(t, `{"title.name":{"equals":"x"}}`)
	assert.ErrorIs(t, err, ErrInvalidQuery)
}

func TestTranslatePathUnknownTargetField(t *testing.T) {
	_, err := translate(t, `{"category.nope":{"equals":"x"}}`)
	assert.ErrorIs(t, err, ErrInvalidQuery)
}

func TestTranslateEmptyInList(t *testing.T) {
	group, err := translate(t, `{"title":{"in":[]}}`)
	require.NoError(t, err)
	assert.Nil(t, group)
}

func TestTranslateAllBecomesConjunction(t *testing.T) {
	group, err := translate(t, `{"title":{"all":["a","b"]}}`)
	require.NoError(t, err)
	require.Len(t, group.Conditions, 2)
	for _, cond := range group.Conditions {
		assert.Equal(t, OpEquals, cond.Operator)
	}
}

func TestTranslateGeoOperatorsInert(t *testing.T) {
	group, err := translate(t, `{"title":{"near":[1,2]}}`)
	require.NoError(t, err)
	assert.Nil(t, group)
}

func TestTranslateTemporalFallback(t *testing.T) {
	group, err := translate(t, `{"publishedAt":{"greater_than":1700000000000}}`)
	require.NoError(t, err)
	require.Len(t, group.Conditions, 1)
	assert.True(t, group.Conditions[0].Temporal)

	group, err = translate(t, `{"score":{"greater_than":10}}`)
	require.NoError(t, err)
	require.Len(t, group.Conditions, 1)
	assert.False(t, group.Conditions[0].Temporal)
}

func TestTranslateTimestampBuiltinsAreTemporal(t *testing.T) {
	cutoff := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	for _, field := range []string{"createdAt", "updatedAt"} {
		group, err := translate(t, `{"`+field+`":{"greater_than":`+
			strconv.FormatInt(cutoff.UnixMilli(), 10)+`}}`)
		require.NoError(t, err)
		require.Len(t, group.Conditions, 1)
		assert.True(t, group.Conditions[0].Temporal)

		// The epoch-millisecond operand compares against stored instants.
		after := map[string]any{field: cutoff.Add(24 * time.Hour)}
		before := map[string]any{field: cutoff.Add(-24 * time.Hour)}
		assert.True(t, group.Matches(after))
		assert.False(t, group.Matches(before))
	}

	// The id builtin stays numeric.
	group, err := translate(t, `{"id":{"greater_than":5}}`)
	require.NoError(t, err)
	require.Len(t, group.Conditions, 1)
	assert.False(t, group.Conditions[0].Temporal)
}

func TestTranslateAndOr(t *testing.T) {
	group, err := translate(t, `{
		"and":[{"title":{"equals":"Hi"}}],
		"or":[{"score":{"greater_than":5}},{"published":{"equals":true}}]
	}`)
	require.NoError(t, err)
	require.Len(t, group.Groups, 2)

	andGroup := group.Groups[0]
	assert.False(t, andGroup.Or)
	require.Len(t, andGroup.Conditions, 1)

	orGroup := group.Groups[1]
	assert.True(t, orGroup.Or)
	assert.Len(t, orGroup.Groups, 2)
}

func TestToSQLPlaceholders(t *testing.T) {
	group, err := translate(t, `{"score":{"greater_than":5,"less_than_equal":10}}`)
	require.NoError(t, err)

	argIndex := 1
	var args []any
	sql := group.ToSQL(&argIndex, &args)

	assert.Equal(t, "(score > $1 AND score <= $2)", sql)
	assert.Equal(t, []any{float64(5), float64(10)}, args)
	assert.Equal(t, 3, argIndex)
}

func TestToSQLLikeEscapesMetacharacters(t *testing.T) {
	group, err := translate(t, `{"title":{"contains":"50%_off"}}`)
	require.NoError(t, err)

	argIndex := 1
	var args []any
	sql := group.ToSQL(&argIndex, &args)

	assert.Equal(t, `(LOWER(title) LIKE $1 ESCAPE '\')`, sql)
	assert.Equal(t, []any{`%50\%\_off%`}, args)
}

func TestToSQLSnakeCasesColumns(t *testing.T) {
	group, err := translate(t, `{"publishedAt":{"exists":true}}`)
	require.NoError(t, err)

	argIndex := 1
	var args []any
	sql := group.ToSQL(&argIndex, &args)
	assert.Equal(t, "(published_at IS NOT NULL)", sql)
	assert.Empty(t, args)
}

func TestMatchesOperators(t *testing.T) {
	doc := map[string]any{
		"title":     "Hello World",
		"score":     int64(42),
		"published": true,
		"category":  map[string]any{"name": "news"},
	}

	cases := []struct {
		name string
		cond Condition
		want bool
	}{
		{"equals", Condition{Field: "title", Operator: OpEquals, Value: "Hello World"}, true},
		{"equals numeric coercion", Condition{Field: "score", Operator: OpEquals, Value: float64(42)}, true},
		{"not_equals", Condition{Field: "title", Operator: OpNotEquals, Value: "Bye"}, true},
		{"contains case-insensitive", Condition{Field: "title", Operator: OpContains, Value: "hello"}, true},
		{"contains miss", Condition{Field: "title", Operator: OpContains, Value: "nope"}, false},
		{"not_like", Condition{Field: "title", Operator: OpNotLike, Value: "nope"}, true},
		{"greater_than", Condition{Field: "score", Operator: OpGreaterThan, Value: float64(41)}, true},
		{"less_than miss", Condition{Field: "score", Operator: OpLessThan, Value: float64(42)}, false},
		{"in", Condition{Field: "title", Operator: OpIn, Value: []any{"Hello World", "Other"}}, true},
		{"not_in", Condition{Field: "title", Operator: OpNotIn, Value: []any{"Other"}}, true},
		{"exists true", Condition{Field: "published", Operator: OpExists, Value: true}, true},
		{"exists false on missing", Condition{Field: "missing", Operator: OpExists, Value: false}, true},
		{"dotted path", Condition{Field: "category.name", Operator: OpEquals, Value: "news"}, true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.cond.matches(doc))
		})
	}
}

func TestMatchesOrGroup(t *testing.T) {
	group := PredicateGroup{
		Or: true,
		Conditions: []Condition{
			{Field: "score", Operator: OpGreaterThan, Value: float64(100)},
			{Field: "title", Operator: OpEquals, Value: "Hello"},
		},
	}

	assert.True(t, group.Matches(map[string]any{"score": int64(5), "title": "Hello"}))
	assert.False(t, group.Matches(map[string]any{"score": int64(5), "title": "Bye"}))
}

func TestParseSort(t *testing.T) {
	cfg := testConfig(t)
	posts := cfg.BySlug("posts")

	fields := ParseSort(posts, "-publishedAt,title,unknown,id")
	assert.Equal(t, []SortField{
		{Field: "publishedAt", Desc: true},
		{Field: "title"},
		{Field: "id"},
	}, fields)

	assert.Nil(t, ParseSort(posts, ""))
}
