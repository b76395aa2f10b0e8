package schema

import (
	"encoding/json"
	"fmt"

	"github.com/gobuffalo/packr"
	"github.com/sirupsen/logrus"
)

// Role describes how a field's text is analyzed by the engine.
type Role string

const (
	// RoleExact is an untouched keyword field.
	RoleExact Role = "exact"
	// RoleFolded is a case- and diacritic-insensitive keyword field.
	RoleFolded Role = "folded"
	// RoleStemmed is a language-aware full-text field.
	RoleStemmed Role = "stemmed"
	// RoleCombined is a derived aggregate field fed by copy_to sources.
	RoleCombined Role = "combined"
)

// Field is one searchable field definition. CopyTo lists the aggregate
// fields this field must feed.
type Field struct {
	Name   string
	Role   Role
	CopyTo []string
}

// Registry is the single source of truth for what a valid indexed document
// looks like: field definitions, copy_to fan-out, the closed taxonomy, and
// the mapping version. Changing a field's analyzer or adding a copy_to
// target is a breaking change: the mapping version must be bumped and a full
// reindex performed, since analyzers cannot be changed in place.
type Registry struct {
	fields   []Field
	byName   map[string]Field
	taxonomy *Taxonomy
	mapping  []byte
	version  string
	logger   *logrus.Entry
}

// Load reads the taxonomy and document mapping from the embedded static box
// and assembles the registry.
func Load(logger *logrus.Entry) (*Registry, error) {
	box := packr.NewBox("../../static/schema")

	taxData, err := box.Find("taxonomy.json")
	if err != nil {
		return nil, fmt.Errorf("schema: could not load taxonomy: %w", err)
	}
	taxonomy, err := parseTaxonomy(taxData)
	if err != nil {
		return nil, err
	}

	mapping, err := box.Find("document-mapping.json")
	if err != nil {
		return nil, fmt.Errorf("schema: could not load document mapping: %w", err)
	}
	version, err := mappingVersion(mapping)
	if err != nil {
		return nil, err
	}

	reg := &Registry{
		fields:   documentFields,
		byName:   make(map[string]Field, len(documentFields)),
		taxonomy: taxonomy,
		mapping:  mapping,
		version:  version,
		logger:   logger,
	}
	for _, f := range documentFields {
		reg.byName[f.Name] = f
	}
	logger.Debugf("loaded schema registry version %s (%d fields, %d categories)",
		version, len(reg.fields), taxonomy.Len())
	return reg, nil
}

// Fields returns all field definitions in declaration order.
func (r *Registry) Fields() []Field {
	return r.fields
}

// Field looks up a single field definition by name.
func (r *Registry) Field(name string) (Field, bool) {
	f, ok := r.byName[name]
	return f, ok
}

// CopySources returns, in declaration order, the names of all fields that
// feed the given aggregate target.
func (r *Registry) CopySources(target string) []string {
	var sources []string
	for _, f := range r.fields {
		for _, t := range f.CopyTo {
			if t == target {
				sources = append(sources, f.Name)
			}
		}
	}
	return sources
}

// Taxonomy returns the closed group/archive/category lookup.
func (r *Registry) Taxonomy() *Taxonomy {
	return r.taxonomy
}

// Mapping returns the engine mapping JSON for the document index.
func (r *Registry) Mapping() []byte {
	return r.mapping
}

// Version is the mapping version embedded in the document mapping. The
// orchestrator compares it against the live index before an incremental run.
func (r *Registry) Version() string {
	return r.version
}

func mappingVersion(mapping []byte) (string, error) {
	var parsed struct {
		Mappings struct {
			Meta struct {
				Version string `json:"version"`
			} `json:"_meta"`
		} `json:"mappings"`
	}
	if err := json.Unmarshal(mapping, &parsed); err != nil {
		return "", fmt.Errorf("schema: invalid document mapping: %w", err)
	}
	if parsed.Mappings.Meta.Version == "" {
		return "", fmt.Errorf("schema: document mapping has no _meta.version")
	}
	return parsed.Mappings.Meta.Version, nil
}
