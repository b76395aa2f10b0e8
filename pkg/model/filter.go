package model

import (
	"github.com/sabhiram/go-gitignore"
)

// Filter restricts which identifiers an indexing run will process. Patterns
// use gitignore-style globs, matched against the versionless paper id (e.g.
// "cs/*", "2103.*").
type Filter struct {
	Include []string `json:"include"`
	Exclude []string `json:"exclude"`

	incMatcher *ignore.GitIgnore
	excMatcher *ignore.GitIgnore
}

func (flt *Filter) ValidIdentifier(idToTest string) bool {

	if flt.incMatcher == nil {
		flt.incMatcher = ignore.CompileIgnoreLines(flt.Include...)
	}
	if flt.excMatcher == nil {
		flt.excMatcher = ignore.CompileIgnoreLines(flt.Exclude...)
	}

	//includes always override excludes
	if flt.incMatcher.MatchesPath(idToTest) {
		return true
	}

	if flt.excMatcher.MatchesPath(idToTest) {
		return false
	}

	//by default, every identifier in the run list is processed
	return true
}
