package schema

import (
	"encoding/json"
	"fmt"

	"github.com/quillium/papersearch/pkg/model"
)

// Taxonomy is the closed group -> archive -> category hierarchy. It is
// read-only after load; the relations are stable across all documents.
type Taxonomy struct {
	groups     map[string]model.TaxonomyTerm
	archives   map[string]taxArchive
	categories map[string]taxCategory
	order      []string
}

type taxArchive struct {
	model.TaxonomyTerm
	InGroup string
}

type taxCategory struct {
	model.TaxonomyTerm
	InArchive string
}

type taxonomyFile struct {
	Groups []struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	} `json:"groups"`
	Archives []struct {
		ID      string `json:"id"`
		Name    string `json:"name"`
		InGroup string `json:"in_group"`
	} `json:"archives"`
	Categories []struct {
		ID        string `json:"id"`
		Name      string `json:"name"`
		InArchive string `json:"in_archive"`
	} `json:"categories"`
}

func parseTaxonomy(data []byte) (*Taxonomy, error) {
	var file taxonomyFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("schema: invalid taxonomy: %w", err)
	}

	tax := &Taxonomy{
		groups:     map[string]model.TaxonomyTerm{},
		archives:   map[string]taxArchive{},
		categories: map[string]taxCategory{},
	}
	for _, g := range file.Groups {
		tax.groups[g.ID] = model.TaxonomyTerm{ID: g.ID, Name: g.Name}
	}
	for _, a := range file.Archives {
		if _, ok := tax.groups[a.InGroup]; !ok {
			return nil, fmt.Errorf("schema: archive %s references unknown group %s", a.ID, a.InGroup)
		}
		tax.archives[a.ID] = taxArchive{
			TaxonomyTerm: model.TaxonomyTerm{ID: a.ID, Name: a.Name},
			InGroup:      a.InGroup,
		}
	}
	for _, c := range file.Categories {
		if _, ok := tax.archives[c.InArchive]; !ok {
			return nil, fmt.Errorf("schema: category %s references unknown archive %s", c.ID, c.InArchive)
		}
		tax.categories[c.ID] = taxCategory{
			TaxonomyTerm: model.TaxonomyTerm{ID: c.ID, Name: c.Name},
			InArchive:    c.InArchive,
		}
		tax.order = append(tax.order, c.ID)
	}
	return tax, nil
}

// Len returns the number of categories in the taxonomy.
func (t *Taxonomy) Len() int {
	return len(t.categories)
}

// HasCategory reports whether the category id exists in the taxonomy.
func (t *Taxonomy) HasCategory(id string) bool {
	_, ok := t.categories[id]
	return ok
}

// Categories returns all category ids in declaration order.
func (t *Taxonomy) Categories() []string {
	out := make([]string, len(t.order))
	copy(out, t.order)
	return out
}

// Resolve expands a category id into a fully named group/archive/category
// classification. The second return value is false when the id is not part
// of the closed taxonomy.
func (t *Taxonomy) Resolve(categoryID string) (model.Classification, bool) {
	cat, ok := t.categories[categoryID]
	if !ok {
		return model.Classification{}, false
	}
	arch := t.archives[cat.InArchive]
	grp := t.groups[arch.InGroup]
	return model.Classification{
		Group:    grp,
		Archive:  arch.TaxonomyTerm,
		Category: cat.TaxonomyTerm,
	}, true
}
