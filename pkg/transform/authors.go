package transform

import (
	"strings"

	"github.com/quillium/papersearch/pkg/model"
)

// normalizeAuthors derives the name variants for each embedded author:
// full_name, initials and full_name_initialized. Order is preserved;
// authorship order is meaningful.
func normalizeAuthors(raw []model.RawAuthor) []model.Author {
	authors := make([]model.Author, 0, len(raw))
	for _, r := range raw {
		a := model.Author{
			FirstName:   strings.TrimSpace(r.FirstName),
			LastName:    strings.TrimSpace(r.LastName),
			Suffix:      strings.TrimSpace(r.Suffix),
			AuthorID:    r.AuthorID,
			ORCID:       r.ORCID,
			Affiliation: strings.TrimSpace(r.Affiliation),
		}
		a.Initials = initials(a.FirstName)
		a.FullName = joinName(a.FirstName, a.LastName, a.Suffix)
		a.FullNameInitialized = joinName(a.Initials, a.LastName, a.Suffix)
		authors = append(authors, a)
	}
	return authors
}

// initials turns "John Ronald" into "J. R.".
func initials(forename string) string {
	var parts []string
	for _, word := range strings.Fields(forename) {
		runes := []rune(word)
		if len(runes) == 0 {
			continue
		}
		parts = append(parts, string(runes[0])+".")
	}
	return strings.Join(parts, " ")
}

func joinName(parts ...string) string {
	var kept []string
	for _, p := range parts {
		if p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, " ")
}
