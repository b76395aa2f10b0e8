package query

import (
	"fmt"
	"strings"
)

// innerHitNames hands out unique inner_hits names within one query body;
// the engine rejects duplicate names across nested clauses.
type innerHitNames struct {
	seq map[string]int
}

func newInnerHitNames() *innerHitNames {
	return &innerHitNames{seq: map[string]int{}}
}

func (n *innerHitNames) next(path string) string {
	n.seq[path]++
	if n.seq[path] == 1 {
		return path
	}
	return fmt.Sprintf("%s_%d", path, n.seq[path])
}

// authorQuery matches author (and owner) names against the nested
// sub-documents. Semicolons individuate authors: terms in one substring must
// match within a single author. A comma splits surname from forename.
// Quoted or exact-intent input matches the exact keyword variant; otherwise
// the folded fields apply. Every nested clause requests inner hits so the
// caller can tell which author matched.
func (b *Builder) authorQuery(term string, exact bool, names *innerHitNames) map[string]interface{} {
	term = strings.TrimSpace(term)

	if strings.Contains(term, ";") {
		var parts []interface{}
		for _, part := range strings.Split(term, ";") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			parts = append(parts, should(
				b.partQuery(part, "authors", names),
				b.partQuery(part, "owners", names),
			))
		}
		return map[string]interface{}{
			"bool": map[string]interface{}{"must": parts},
		}
	}

	if strings.Contains(term, ",") {
		return should(
			b.partQuery(term, "authors", names),
			b.partQuery(term, "owners", names),
		)
	}

	//general search: a combined-field match catches terms spread across
	//authors, while the nested clauses give more weight to matches within a
	//single author
	return should(
		match("authors_combined", term, 1),
		b.nested("authors", fullNameQuery("authors", term, exact), names),
		b.nested("owners", fullNameQuery("owners", term, exact), names),
	)
}

// partQuery matches a single author. Anything before the first comma is the
// surname; the remainder is the forename or initials, matched as a prefix so
// partial forenames and initials work.
func (b *Builder) partQuery(term, path string, names *innerHitNames) map[string]interface{} {
	surname := term
	forename := ""
	if idx := strings.Index(term, ","); idx >= 0 {
		surname = strings.TrimSpace(term[:idx])
		forename = strings.TrimSpace(term[idx+1:])
	}

	if forename == "" {
		return b.nested(path, crossFieldsQuery(path, surname), names)
	}

	inner := map[string]interface{}{
		"bool": map[string]interface{}{
			"must": []interface{}{
				match(path+".last_name", surname, 1),
				should(
					prefixPhrase(path+".first_name", forename),
					prefixPhrase(path+".initials", forename),
				),
			},
		},
	}
	return b.nested(path, inner, names)
}

func fullNameQuery(path, term string, exact bool) map[string]interface{} {
	if exact {
		return termQuery(path+".full_name.exact", term, 2)
	}
	return match(path+".full_name", term, 1)
}

// crossFieldsQuery matches term parts across the name fields of a single
// author; all parts must match somewhere within that author.
func crossFieldsQuery(path, term string) map[string]interface{} {
	return map[string]interface{}{
		"multi_match": map[string]interface{}{
			"type": "cross_fields",
			"fields": []string{
				path + ".full_name",
				path + ".last_name",
				path + ".full_name_initialized",
			},
			"operator": "and",
			"query":    term,
		},
	}
}

func prefixPhrase(field, value string) map[string]interface{} {
	return map[string]interface{}{
		"match_phrase_prefix": map[string]interface{}{
			field: map[string]interface{}{"query": value},
		},
	}
}

func (b *Builder) nested(path string, inner map[string]interface{}, names *innerHitNames) map[string]interface{} {
	return map[string]interface{}{
		"nested": map[string]interface{}{
			"path":       path,
			"score_mode": "sum",
			"query":      inner,
			"inner_hits": map[string]interface{}{
				"name": names.next(path),
				"size": 3,
			},
		},
	}
}
