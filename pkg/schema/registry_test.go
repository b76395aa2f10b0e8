package schema

import (
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRegistry(t *testing.T) *Registry {
	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)

	reg, err := Load(logrus.NewEntry(logger))
	require.NoError(t, err)
	return reg
}

func TestRegistry_Load(t *testing.T) {
	reg := testRegistry(t)

	assert.Equal(t, "3", reg.Version())
	assert.NotEmpty(t, reg.Mapping())

	title, ok := reg.Field("title")
	require.True(t, ok)
	assert.Equal(t, RoleStemmed, title.Role)
	assert.Contains(t, title.CopyTo, "combined")

	exact, ok := reg.Field("title.exact")
	require.True(t, ok)
	assert.Equal(t, RoleExact, exact.Role)

	_, ok = reg.Field("no_such_field")
	assert.False(t, ok)
}

func TestRegistry_CopySources(t *testing.T) {
	reg := testRegistry(t)

	combined := reg.CopySources("combined")
	assert.Contains(t, combined, "title")
	assert.Contains(t, combined, "abstract")
	assert.Contains(t, combined, "authors.full_name")
	assert.NotContains(t, combined, "fulltext")

	authors := reg.CopySources("authors_combined")
	assert.Contains(t, authors, "authors.full_name")
	assert.Contains(t, authors, "authors.last_name")
	assert.Contains(t, authors, "owners.full_name")
	assert.NotContains(t, authors, "title")

	//title precedes abstract, so the derived aggregate is deterministic
	require.True(t, indexOf(combined, "title") < indexOf(combined, "abstract"))
}

func TestTaxonomy_Resolve(t *testing.T) {
	tax := testRegistry(t).Taxonomy()

	assert.True(t, tax.HasCategory("cs.LG"))
	assert.False(t, tax.HasCategory("cs.BOGUS"))

	cls, ok := tax.Resolve("cs.LG")
	require.True(t, ok)
	assert.Equal(t, "cs.LG", cls.Category.ID)
	assert.Equal(t, "Machine Learning", cls.Category.Name)
	assert.Equal(t, "cs", cls.Archive.ID)
	assert.Equal(t, "grp_cs", cls.Group.ID)

	//single-category archives resolve to themselves
	cls, ok = tax.Resolve("gr-qc")
	require.True(t, ok)
	assert.Equal(t, "gr-qc", cls.Archive.ID)
	assert.Equal(t, "grp_physics", cls.Group.ID)

	_, ok = tax.Resolve("bio.XX")
	assert.False(t, ok)
}

func indexOf(haystack []string, needle string) int {
	for i, s := range haystack {
		if s == needle {
			return i
		}
	}
	return -1
}
