package query

import (
	"regexp"
	"strings"
)

var texism = regexp.MustCompile(`\$[^$]+\$`)

// isLiteral reports whether the term is intended as an exact-match literal.
func isLiteral(term string) bool {
	return strings.Count(term, `"`) >= 2 && strings.Count(term, `"`)%2 == 0
}

// stripQuotes removes quote characters; unbalanced quotes are ignored
// rather than rejected.
func stripQuotes(term string) string {
	return strings.TrimSpace(strings.ReplaceAll(term, `"`, ""))
}

// stripTex removes $...$ TeX-isms; titles and abstracts carry them but the
// analyzed fields do not.
func stripTex(term string) string {
	return strings.TrimSpace(texism.ReplaceAllString(term, ""))
}

func startsWithWildcard(term string) bool {
	return strings.HasPrefix(term, "*") || strings.HasPrefix(term, "?")
}
