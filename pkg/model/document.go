package model

import "time"

// Document is the canonical, denormalized search document representing one
// version of a paper. The indexer always writes the full document keyed by
// PaperIDv; partial updates are never performed.
type Document struct {
	PaperID  string `json:"paper_id"`
	PaperIDv string `json:"paper_id_v"`
	Version  int    `json:"version"`

	IsCurrent     bool   `json:"is_current"`
	IsWithdrawn   bool   `json:"is_withdrawn"`
	Latest        string `json:"latest"`
	LatestVersion int    `json:"latest_version"`

	SubmittedDate       time.Time   `json:"submitted_date"`
	SubmittedDateFirst  time.Time   `json:"submitted_date_first"`
	SubmittedDateLatest time.Time   `json:"submitted_date_latest"`
	SubmittedDateAll    []time.Time `json:"submitted_date_all"`
	AnnouncedDateFirst  string      `json:"announced_date_first,omitempty"` //yyyy-MM
	UpdatedDate         time.Time   `json:"updated_date,omitempty"`
	ModifiedDate        time.Time   `json:"modified_date,omitempty"`

	Title      string   `json:"title"`
	Abstract   string   `json:"abstract,omitempty"`
	Comments   string   `json:"comments,omitempty"`
	JournalRef string   `json:"journal_ref,omitempty"`
	ReportNum  string   `json:"report_num,omitempty"`
	DOI        string   `json:"doi,omitempty"`
	MSCClass   string   `json:"msc_class,omitempty"`
	ACMClass   string   `json:"acm_class,omitempty"`
	Formats    []string `json:"formats,omitempty"`
	License    License  `json:"license,omitempty"`
	Source     Source   `json:"source,omitempty"`
	Fulltext   string   `json:"fulltext,omitempty"`

	PrimaryClassification   Classification   `json:"primary_classification"`
	SecondaryClassification []Classification `json:"secondary_classification,omitempty"`

	Authors   []Author  `json:"authors"`
	Owners    []Author  `json:"owners,omitempty"`
	Submitter Submitter `json:"submitter,omitempty"`

	// Combined and AuthorsCombined are derived aggregates. They are computed
	// by the normalizer from the schema registry's copy_to definitions and
	// must never be set by any other code path.
	Combined        string `json:"combined"`
	AuthorsCombined string `json:"authors_combined"`

	// Match is populated from inner hits at query time; it is never indexed.
	Match *MatchInfo `json:"match,omitempty"`
}

// MatchInfo reports which embedded sub-documents matched a query.
type MatchInfo struct {
	Authors []string `json:"authors,omitempty"`
	Owners  []string `json:"owners,omitempty"`
}

// Author is an embedded (nested) sub-document of a Document. Authors are not
// independently addressable entities.
type Author struct {
	FirstName           string `json:"first_name,omitempty"`
	LastName            string `json:"last_name,omitempty"`
	Initials            string `json:"initials,omitempty"`
	FullName            string `json:"full_name"`
	FullNameInitialized string `json:"full_name_initialized,omitempty"`
	Suffix              string `json:"suffix,omitempty"`
	AuthorID            string `json:"author_id,omitempty"`
	ORCID               string `json:"orcid,omitempty"`
	Affiliation         string `json:"affiliation,omitempty"`
}

type Submitter struct {
	Email       string `json:"email,omitempty"`
	Name        string `json:"name,omitempty"`
	SubmitterID string `json:"submitter_id,omitempty"`
	IsAuthor    bool   `json:"is_author,omitempty"`
	AuthorID    string `json:"author_id,omitempty"`
	ORCID       string `json:"orcid,omitempty"`
}

type License struct {
	URI   string `json:"uri,omitempty"`
	Label string `json:"label,omitempty"`
}

type Source struct {
	Flags     string `json:"flags,omitempty"`
	Format    string `json:"format,omitempty"`
	SizeBytes int64  `json:"size_bytes,omitempty"`
}

// TaxonomyTerm is one node of the closed classification taxonomy.
type TaxonomyTerm struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Classification is a fully resolved group/archive/category triple. Every
// category belongs to exactly one archive, and every archive to exactly one
// group.
type Classification struct {
	Group    TaxonomyTerm `json:"group"`
	Archive  TaxonomyTerm `json:"archive"`
	Category TaxonomyTerm `json:"category"`
}
