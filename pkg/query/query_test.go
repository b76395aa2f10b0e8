package query

import (
	"encoding/json"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quillium/papersearch/pkg/schema"
)

func testBuilder(t *testing.T) *Builder {
	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)
	entry := logrus.NewEntry(logger)

	reg, err := schema.Load(entry)
	require.NoError(t, err)
	return NewBuilder(entry, reg)
}

func dig(t *testing.T, m map[string]interface{}, keys ...string) map[string]interface{} {
	t.Helper()
	for _, k := range keys {
		next, ok := m[k].(map[string]interface{})
		require.True(t, ok, "missing key %q in %v", k, m)
		m = next
	}
	return m
}

func digSlice(t *testing.T, m map[string]interface{}, key string) []interface{} {
	t.Helper()
	s, ok := m[key].([]interface{})
	require.True(t, ok, "missing slice %q in %v", key, m)
	return s
}

// renders the body so substring assertions can reach arbitrarily deep
func render(t *testing.T, body map[string]interface{}) string {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)
	return string(payload)
}

func TestBuild_EmptyQueryMeansAllDocuments(t *testing.T) {
	b := testBuilder(t)

	body, err := b.Build(Request{})
	require.NoError(t, err)

	boolQuery := dig(t, body, "query", "bool")
	assert.NotContains(t, boolQuery, "must")

	//only current versions by default
	filters := digSlice(t, boolQuery, "filter")
	require.Len(t, filters, 1)
	assert.Contains(t, render(t, body), `"is_current":true`)

	//default order: most recent first, with a stable tiebreaker
	sort, ok := body["sort"].([]interface{})
	require.True(t, ok)
	require.Len(t, sort, 2)
	first := sort[0].(map[string]interface{})
	assert.Equal(t, "desc", first["submitted_date_first"])
	second := sort[1].(map[string]interface{})
	assert.Equal(t, "desc", second["paper_id_v"])
}

func TestBuild_CategoryFilter(t *testing.T) {
	b := testBuilder(t)

	body, err := b.Build(Request{PrimaryCategories: []string{"cs.LG", "stat.ML"}})
	require.NoError(t, err)

	filters := digSlice(t, dig(t, body, "query", "bool"), "filter")
	require.Len(t, filters, 2)

	catFilter := dig(t, filters[1].(map[string]interface{}), "bool")
	assert.Equal(t, 1, catFilter["minimum_should_match"])

	//primary term plus nested secondary clause per category
	should, ok := catFilter["should"].([]interface{})
	require.True(t, ok)
	require.Len(t, should, 4)

	rendered := render(t, body)
	assert.Contains(t, rendered, `"primary_classification.category.id":"cs.LG"`)
	assert.Contains(t, rendered, `"secondary_classification.category.id":"cs.LG"`)
	assert.Contains(t, rendered, `"primary_classification.category.id":"stat.ML"`)
}

func TestBuild_UnknownCategory(t *testing.T) {
	b := testBuilder(t)

	_, err := b.Build(Request{PrimaryCategories: []string{"cs.NOPE"}})
	var qerr *Error
	require.ErrorAs(t, err, &qerr)
	assert.Contains(t, qerr.Message, "unknown category")
}

func TestBuild_FreeTextLadder(t *testing.T) {
	b := testBuilder(t)

	body, err := b.Build(Request{Query: "quantum entanglement"})
	require.NoError(t, err)

	rendered := render(t, body)
	assert.Contains(t, rendered, "title.exact")
	assert.Contains(t, rendered, "title.folded")
	assert.Contains(t, rendered, `"combined"`)
	assert.Contains(t, rendered, `"fulltext"`)
	assert.Contains(t, rendered, "authors_combined")

	//free text sorts by score
	sort, ok := body["sort"].([]interface{})
	require.True(t, ok)
	assert.Equal(t, "_score", sort[0])
}

func TestBuild_TitleFieldStripsTex(t *testing.T) {
	b := testBuilder(t)

	body, err := b.Build(Request{Field: "title", Query: "the $O(n^2)$ bound"})
	require.NoError(t, err)

	rendered := render(t, body)
	assert.NotContains(t, rendered, "O(n^2)")
	assert.Contains(t, rendered, "the  bound")
}

func TestBuild_Validation(t *testing.T) {
	b := testBuilder(t)

	var qerr *Error

	_, err := b.Build(Request{Field: "meow"})
	require.ErrorAs(t, err, &qerr)

	_, err = b.Build(Request{Query: "*leading"})
	require.ErrorAs(t, err, &qerr)
	assert.Contains(t, qerr.Message, "wildcard")

	_, err = b.Build(Request{Order: "relevance"})
	require.ErrorAs(t, err, &qerr)
	assert.Contains(t, qerr.Message, "unknown sort order")
}

func TestBuild_ExplicitOrder(t *testing.T) {
	b := testBuilder(t)

	body, err := b.Build(Request{Order: "-announced_date_first"})
	require.NoError(t, err)

	sort := body["sort"].([]interface{})
	first := sort[0].(map[string]interface{})
	assert.Equal(t, "desc", first["announced_date_first"])

	body, err = b.Build(Request{Order: "submitted_date_first"})
	require.NoError(t, err)
	sort = body["sort"].([]interface{})
	first = sort[0].(map[string]interface{})
	assert.Equal(t, "asc", first["submitted_date_first"])
}

func TestBuild_Cursor(t *testing.T) {
	b := testBuilder(t)

	cursor := EncodeCursor(docFixture("2101.00001v1"))

	body, err := b.Build(Request{Cursor: cursor})
	require.NoError(t, err)
	after, ok := body["search_after"].([]interface{})
	require.True(t, ok)
	require.Len(t, after, 2)
	assert.Equal(t, "2101.00001v1", after[1])

	//cursors only combine with the stable default ordering
	_, err = b.Build(Request{Cursor: cursor, Order: "-submitted_date_first"})
	var qerr *Error
	require.ErrorAs(t, err, &qerr)

	_, err = b.Build(Request{Cursor: "%%%not-a-cursor"})
	require.ErrorAs(t, err, &qerr)
	assert.Contains(t, qerr.Message, "cursor")
}
