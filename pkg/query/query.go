package query

import (
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/quillium/papersearch/pkg/schema"
)

// Error is a malformed or unresolvable search request. It is surfaced to the
// caller as a client error and never retried.
type Error struct {
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

// Request carries the API-level query parameters.
type Request struct {
	// Query is the free-text query string; empty means "all documents".
	Query string
	// Field selects the field set the free text is matched against.
	Field string
	// PrimaryCategories restricts results to documents whose primary or
	// secondary classification carries one of these category ids.
	PrimaryCategories []string
	// Order is a whitelisted sort key, with a leading "-" for descending.
	Order string
	// Cursor resumes a deep result set from a stable sort key.
	Cursor string
	// IncludeOlderVersions disables the default is_current filter.
	IncludeOlderVersions bool
}

var searchableFields = map[string]bool{
	"all":      true,
	"title":    true,
	"author":   true,
	"abstract": true,
	"paper_id": true,
	"doi":      true,
}

var sortKeys = map[string]bool{
	"submitted_date_first":  true,
	"submitted_date_latest": true,
	"announced_date_first":  true,
	"paper_id_v":            true,
}

// Builder translates API query parameters into a structured query body for
// the engine, validating taxonomy references against the registry.
type Builder struct {
	registry *schema.Registry
	logger   *logrus.Entry
}

func NewBuilder(logger *logrus.Entry, registry *schema.Registry) *Builder {
	return &Builder{registry: registry, logger: logger}
}

// Build assembles the full query body: boolean query, sort, and optional
// cursor. Window parameters (from/size) are applied by the caller when
// executing.
func (b *Builder) Build(req Request) (map[string]interface{}, error) {

	field := req.Field
	if field == "" {
		field = "all"
	}
	if !searchableFields[field] {
		return nil, &Error{Message: fmt.Sprintf("unknown search field %q", field)}
	}

	term := strings.TrimSpace(req.Query)
	if startsWithWildcard(term) {
		return nil, &Error{Message: "query cannot start with a wildcard"}
	}

	boolQuery := map[string]interface{}{}

	var filters []interface{}
	if !req.IncludeOlderVersions {
		filters = append(filters, map[string]interface{}{
			"term": map[string]interface{}{"is_current": true},
		})
	}
	if len(req.PrimaryCategories) > 0 {
		catFilter, err := b.categoryFilter(req.PrimaryCategories)
		if err != nil {
			return nil, err
		}
		filters = append(filters, catFilter)
	}
	if len(filters) > 0 {
		boolQuery["filter"] = filters
	}

	if term != "" {
		names := newInnerHitNames()
		boolQuery["must"] = b.fieldQuery(field, term, names)
	}

	body := map[string]interface{}{
		"query": map[string]interface{}{"bool": boolQuery},
	}

	sortClause, err := sortFor(req, term)
	if err != nil {
		return nil, err
	}
	body["sort"] = sortClause

	if req.Cursor != "" {
		cursor, err := DecodeCursor(req.Cursor)
		if err != nil {
			return nil, err
		}
		//search_after requires the stable sort key, not a scored order
		if req.Order != "" || term != "" {
			return nil, &Error{Message: "cursor pagination requires the default date ordering"}
		}
		body["search_after"] = cursor.SearchAfter()
	}

	return body, nil
}

// categoryFilter matches documents whose primary classification category is
// in the set, or whose nested secondary classification contains one.
func (b *Builder) categoryFilter(categories []string) (map[string]interface{}, error) {
	tax := b.registry.Taxonomy()

	var should []interface{}
	for _, cat := range categories {
		if !tax.HasCategory(cat) {
			return nil, &Error{Message: fmt.Sprintf("unknown category %q", cat)}
		}
		should = append(should,
			map[string]interface{}{
				"term": map[string]interface{}{"primary_classification.category.id": cat},
			},
			map[string]interface{}{
				"nested": map[string]interface{}{
					"path": "secondary_classification",
					"query": map[string]interface{}{
						"term": map[string]interface{}{"secondary_classification.category.id": cat},
					},
				},
			},
		)
	}

	return map[string]interface{}{
		"bool": map[string]interface{}{
			"should":               should,
			"minimum_should_match": 1,
		},
	}, nil
}

// fieldQuery builds the free-text part of the query for one search field.
// For "all", the prioritized ladder is: exact title > folded/stemmed title >
// combined > fulltext, plus nested author matching.
func (b *Builder) fieldQuery(field, term string, names *innerHitNames) map[string]interface{} {
	exact := isLiteral(term)
	text := stripQuotes(term)

	switch field {
	case "title":
		return b.titleQuery(text, exact)
	case "author":
		return b.authorQuery(text, exact, names)
	case "abstract":
		clean := stripTex(text)
		return should(
			match("abstract", clean, 3),
			match("abstract.folded", clean, 2),
		)
	case "paper_id":
		return should(
			termQuery("paper_id", text, 2),
			termQuery("paper_id_v", text, 2),
		)
	case "doi":
		return termQuery("doi", text, 1)
	}

	//field == "all"
	clauses := []interface{}{
		termQuery("title.exact", stripTex(text), 10),
		match("title.folded", stripTex(text), 8),
		match("title", stripTex(text), 5),
		match("combined", text, 2),
		match("fulltext", text, 1),
		b.authorQuery(text, exact, names),
	}
	return should(clauses...)
}

func (b *Builder) titleQuery(text string, exact bool) map[string]interface{} {
	clean := stripTex(text)
	if exact {
		return should(
			termQuery("title.exact", clean, 10),
			matchPhrase("title.folded", clean, 8),
		)
	}
	return should(
		termQuery("title.exact", clean, 10),
		match("title.folded", clean, 8),
		match("title", clean, 5),
	)
}

// sortFor validates the requested order and falls back to the documented
// defaults: score ordering for free-text queries, most recent first
// otherwise.
func sortFor(req Request, term string) ([]interface{}, error) {
	if req.Order == "" {
		if term != "" {
			return []interface{}{
				"_score",
				map[string]interface{}{"paper_id_v": "desc"},
			}, nil
		}
		return []interface{}{
			map[string]interface{}{"submitted_date_first": "desc"},
			map[string]interface{}{"paper_id_v": "desc"},
		}, nil
	}

	key := req.Order
	direction := "asc"
	if strings.HasPrefix(key, "-") {
		key = key[1:]
		direction = "desc"
	}
	if !sortKeys[key] {
		return nil, &Error{Message: fmt.Sprintf("unknown sort order %q", req.Order)}
	}
	return []interface{}{
		map[string]interface{}{key: direction},
		map[string]interface{}{"paper_id_v": direction},
	}, nil
}

func should(clauses ...interface{}) map[string]interface{} {
	return map[string]interface{}{
		"bool": map[string]interface{}{
			"should":               clauses,
			"minimum_should_match": 1,
		},
	}
}

func match(field, value string, boost float64) map[string]interface{} {
	return map[string]interface{}{
		"match": map[string]interface{}{
			field: map[string]interface{}{
				"query":    value,
				"operator": "and",
				"boost":    boost,
			},
		},
	}
}

func matchPhrase(field, value string, boost float64) map[string]interface{} {
	return map[string]interface{}{
		"match_phrase": map[string]interface{}{
			field: map[string]interface{}{
				"query": value,
				"boost": boost,
			},
		},
	}
}

func termQuery(field, value string, boost float64) map[string]interface{} {
	return map[string]interface{}{
		"term": map[string]interface{}{
			field: map[string]interface{}{
				"value": value,
				"boost": boost,
			},
		},
	}
}
