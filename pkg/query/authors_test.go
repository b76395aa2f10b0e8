package query

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuthorQuery_General(t *testing.T) {
	b := testBuilder(t)

	body, err := b.Build(Request{Field: "author", Query: "lovelace"})
	require.NoError(t, err)

	rendered := render(t, body)
	assert.Contains(t, rendered, "authors_combined")
	assert.Contains(t, rendered, `"path":"authors"`)
	assert.Contains(t, rendered, `"path":"owners"`)
	assert.Contains(t, rendered, `"score_mode":"sum"`)
	assert.Contains(t, rendered, "inner_hits")
}

func TestAuthorQuery_CommaSplitsSurnameForename(t *testing.T) {
	b := testBuilder(t)

	body, err := b.Build(Request{Field: "author", Query: "lovelace, a"})
	require.NoError(t, err)

	rendered := render(t, body)
	assert.Contains(t, rendered, "authors.last_name")
	assert.Contains(t, rendered, "match_phrase_prefix")
	assert.Contains(t, rendered, "authors.first_name")
	assert.Contains(t, rendered, "authors.initials")
	//the combined shortcut does not apply once the input is structured
	assert.NotContains(t, rendered, "authors_combined")
}

func TestAuthorQuery_SemicolonIndividuatesAuthors(t *testing.T) {
	b := testBuilder(t)

	body, err := b.Build(Request{Field: "author", Query: "lovelace, a; godel, k"})
	require.NoError(t, err)

	authorMust := digSlice(t, dig(t, body, "query", "bool", "must", "bool"), "must")
	//one clause per named author, each required to match
	assert.Len(t, authorMust, 2)
}

func TestAuthorQuery_BareSurnameUsesCrossFields(t *testing.T) {
	b := testBuilder(t)

	body, err := b.Build(Request{Field: "author", Query: "van der berg,"})
	require.NoError(t, err)

	rendered := render(t, body)
	assert.Contains(t, rendered, "cross_fields")
	assert.Contains(t, rendered, "authors.full_name_initialized")
}

func TestAuthorQuery_ExactIntent(t *testing.T) {
	b := testBuilder(t)

	body, err := b.Build(Request{Field: "author", Query: `"Ada Lovelace"`})
	require.NoError(t, err)

	rendered := render(t, body)
	assert.Contains(t, rendered, "authors.full_name.exact")
	assert.NotContains(t, rendered, `\"`)
}

func TestInnerHitNamesAreUnique(t *testing.T) {
	b := testBuilder(t)

	//semicolon form nests the authors path once per named author
	body, err := b.Build(Request{Field: "author", Query: "lovelace; godel; hopper"})
	require.NoError(t, err)

	rendered := render(t, body)
	assert.Contains(t, rendered, `"name":"authors"`)
	assert.Contains(t, rendered, `"name":"authors_2"`)
	assert.Contains(t, rendered, `"name":"authors_3"`)
	assert.Contains(t, rendered, `"name":"owners"`)
	assert.Contains(t, rendered, `"name":"owners_2"`)
	assert.Contains(t, rendered, `"name":"owners_3"`)
}

func TestInnerHitNames_Sequence(t *testing.T) {
	names := newInnerHitNames()
	assert.Equal(t, "authors", names.next("authors"))
	assert.Equal(t, "authors_2", names.next("authors"))
	assert.Equal(t, "owners", names.next("owners"))
	assert.Equal(t, "authors_3", names.next("authors"))
}
