package transform

import (
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quillium/papersearch/pkg/model"
	"github.com/quillium/papersearch/pkg/schema"
)

func testNormalizer(t *testing.T) *Normalizer {
	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)
	entry := logrus.NewEntry(logger)

	reg, err := schema.Load(entry)
	require.NoError(t, err)
	return NewNormalizer(entry, reg)
}

func metaFixture(version int, submitted string) model.DocMeta {
	return model.DocMeta{
		PaperID:       "1234.56789",
		Version:       version,
		Title:         "Deep Learning for Galaxy Classification",
		Abstract:      "We train a convolutional network on survey imagery.",
		SubmittedDate: submitted,
		AuthorsParsed: []model.RawAuthor{
			{FirstName: "Ada Marie", LastName: "Lovelace", Affiliation: "Analytical Engine Institute"},
			{FirstName: "Kurt", LastName: "Gödel"},
		},
		PrimaryCategory:     "astro-ph.GA",
		SecondaryCategories: []string{"cs.LG"},
		Comments:            "12 pages, 4 figures",
		DOI:                 "10.1000/xyz123",
	}
}

func TestNormalize_SingleVersion(t *testing.T) {
	n := testNormalizer(t)

	doc, err := n.Normalize(metaFixture(1, "2021-03-04T10:00:00Z"), nil)
	require.NoError(t, err)

	assert.Equal(t, "1234.56789", doc.PaperID)
	assert.Equal(t, "1234.56789v1", doc.PaperIDv)
	assert.Equal(t, 1, doc.Version)
	assert.True(t, doc.IsCurrent)
	assert.False(t, doc.IsWithdrawn)
	assert.Equal(t, "1234.56789v1", doc.Latest)
	assert.Equal(t, 1, doc.LatestVersion)

	want := time.Date(2021, 3, 4, 10, 0, 0, 0, time.UTC)
	assert.Equal(t, want, doc.SubmittedDateFirst)
	assert.Equal(t, want, doc.SubmittedDateLatest)
	assert.Equal(t, []time.Time{want}, doc.SubmittedDateAll)
	assert.Equal(t, "2021-03", doc.AnnouncedDateFirst)

	assert.Equal(t, "astro-ph.GA", doc.PrimaryClassification.Category.ID)
	assert.Equal(t, "Astrophysics of Galaxies", doc.PrimaryClassification.Category.Name)
	assert.Equal(t, "astro-ph", doc.PrimaryClassification.Archive.ID)
	assert.Equal(t, "grp_physics", doc.PrimaryClassification.Group.ID)
	require.Len(t, doc.SecondaryClassification, 1)
	assert.Equal(t, "cs.LG", doc.SecondaryClassification[0].Category.ID)

	require.Len(t, doc.Authors, 2)
	assert.Equal(t, "Ada Marie Lovelace", doc.Authors[0].FullName)
	assert.Equal(t, "A. M.", doc.Authors[0].Initials)
	assert.Equal(t, "A. M. Lovelace", doc.Authors[0].FullNameInitialized)
	assert.Equal(t, "Kurt Gödel", doc.Authors[1].FullName)
}

func TestNormalize_CombinedAggregates(t *testing.T) {
	n := testNormalizer(t)
	meta := metaFixture(1, "2021-03-04T10:00:00Z")

	doc, err := n.Normalize(meta, nil)
	require.NoError(t, err)

	//combined always contains the literal title and abstract text
	assert.Contains(t, doc.Combined, meta.Title)
	assert.Contains(t, doc.Combined, meta.Abstract)
	assert.Contains(t, doc.Combined, "Ada Marie Lovelace")
	assert.Contains(t, doc.AuthorsCombined, "Lovelace")
	assert.Contains(t, doc.AuthorsCombined, "Gödel")
	assert.NotContains(t, doc.AuthorsCombined, meta.Title)

	//changing a contributing source field changes the aggregate
	meta.Comments = "v2: corrected typos"
	changed, err := n.Normalize(meta, nil)
	require.NoError(t, err)
	assert.NotEqual(t, doc.Combined, changed.Combined)
	assert.Contains(t, changed.Combined, "corrected typos")

	//normalization is deterministic
	again, err := n.Normalize(meta, nil)
	require.NoError(t, err)
	assert.Equal(t, changed, again)
}

func TestNormalize_VersionAggregates(t *testing.T) {
	n := testNormalizer(t)

	v1 := metaFixture(1, "2020-01-15T09:00:00Z")
	v2 := metaFixture(2, "2020-06-01T12:00:00Z")
	v3 := metaFixture(3, "2021-02-28T23:00:00Z")
	siblings := []model.DocMeta{v1, v2, v3}

	doc2, err := n.Normalize(v2, siblings)
	require.NoError(t, err)

	assert.False(t, doc2.IsCurrent)
	assert.Equal(t, "1234.56789v3", doc2.Latest)
	assert.Equal(t, 3, doc2.LatestVersion)
	assert.Equal(t, time.Date(2020, 1, 15, 9, 0, 0, 0, time.UTC), doc2.SubmittedDateFirst)
	assert.Equal(t, time.Date(2021, 2, 28, 23, 0, 0, 0, time.UTC), doc2.SubmittedDateLatest)
	require.Len(t, doc2.SubmittedDateAll, 3)
	assert.True(t, doc2.SubmittedDateAll[0].Before(doc2.SubmittedDateAll[1]))
	assert.True(t, doc2.SubmittedDateAll[1].Before(doc2.SubmittedDateAll[2]))

	//the date range brackets the set
	assert.Equal(t, doc2.SubmittedDateFirst, doc2.SubmittedDateAll[0])
	assert.Equal(t, doc2.SubmittedDateLatest, doc2.SubmittedDateAll[2])

	doc3, err := n.Normalize(v3, siblings)
	require.NoError(t, err)
	assert.True(t, doc3.IsCurrent)
}

func TestNormalize_WithdrawnResolution(t *testing.T) {
	n := testNormalizer(t)

	v1 := metaFixture(1, "2020-01-15T09:00:00Z")
	v2 := metaFixture(2, "2020-06-01T12:00:00Z")
	v3 := metaFixture(3, "2021-02-28T23:00:00Z")
	v3.IsWithdrawn = true
	siblings := []model.DocMeta{v1, v2, v3}

	//the withdrawn v3 is numerically highest; v2 is current
	doc2, err := n.Normalize(v2, siblings)
	require.NoError(t, err)
	assert.True(t, doc2.IsCurrent)

	doc3, err := n.Normalize(v3, siblings)
	require.NoError(t, err)
	assert.False(t, doc3.IsCurrent)
	assert.True(t, doc3.IsWithdrawn)
	assert.Equal(t, 3, doc3.LatestVersion)

	//all versions withdrawn: the highest is current and withdrawn
	v1.IsWithdrawn = true
	v2.IsWithdrawn = true
	siblings = []model.DocMeta{v1, v2, v3}

	doc3, err = n.Normalize(v3, siblings)
	require.NoError(t, err)
	assert.True(t, doc3.IsCurrent)
	assert.True(t, doc3.IsWithdrawn)

	doc1, err := n.Normalize(v1, siblings)
	require.NoError(t, err)
	assert.False(t, doc1.IsCurrent)
}

func TestNormalize_RequiredFields(t *testing.T) {
	n := testNormalizer(t)

	cases := []struct {
		name   string
		mutate func(*model.DocMeta)
		field  string
	}{
		{"missing paper_id", func(m *model.DocMeta) { m.PaperID = "" }, "paper_id"},
		{"zero version", func(m *model.DocMeta) { m.Version = 0 }, "version"},
		{"missing title", func(m *model.DocMeta) { m.Title = "  " }, "title"},
		{"bad submitted date", func(m *model.DocMeta) { m.SubmittedDate = "yesterday" }, "submitted_date"},
		{"missing primary category", func(m *model.DocMeta) { m.PrimaryCategory = "" }, "primary_category"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			meta := metaFixture(1, "2021-03-04T10:00:00Z")
			tc.mutate(&meta)

			_, err := n.Normalize(meta, nil)
			require.Error(t, err)
			var terr *Error
			require.ErrorAs(t, err, &terr)
			assert.Equal(t, tc.field, terr.Field)
		})
	}
}

func TestNormalize_UnknownTaxonomy(t *testing.T) {
	n := testNormalizer(t)

	meta := metaFixture(1, "2021-03-04T10:00:00Z")
	meta.PrimaryCategory = "cs.BOGUS"
	_, err := n.Normalize(meta, nil)
	var terr *Error
	require.ErrorAs(t, err, &terr)
	assert.Contains(t, terr.Reason, "unknown category")

	meta = metaFixture(1, "2021-03-04T10:00:00Z")
	meta.SecondaryCategories = []string{"cs.LG", "xx.YY"}
	_, err = n.Normalize(meta, nil)
	require.ErrorAs(t, err, &terr)
	assert.Equal(t, "secondary_categories", terr.Field)
}

func TestNormalize_OptionalFieldsOmitted(t *testing.T) {
	n := testNormalizer(t)

	meta := metaFixture(1, "2021-03-04T10:00:00Z")
	meta.DOI = ""
	meta.AuthorsParsed[0].Affiliation = ""

	doc, err := n.Normalize(meta, nil)
	require.NoError(t, err)
	assert.Empty(t, doc.DOI)
	assert.Empty(t, doc.Authors[0].Affiliation)
}
