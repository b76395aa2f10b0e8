package model

// DocMeta is one raw, version-scoped metadata record as returned by the
// upstream metadata service. All dates are RFC 3339 strings on the wire;
// classifications are bare category ids that the normalizer resolves against
// the taxonomy.
type DocMeta struct {
	PaperID string `json:"paper_id"`
	Version int    `json:"version"`

	Title    string `json:"title"`
	Abstract string `json:"abstract"`

	AuthorsParsed []RawAuthor `json:"authors_parsed"`
	Owners        []RawAuthor `json:"author_owners,omitempty"`
	Submitter     Submitter   `json:"submitter,omitempty"`

	SubmittedDate      string `json:"submitted_date"`
	ModifiedDate       string `json:"modified_date,omitempty"`
	UpdatedDate        string `json:"updated_date,omitempty"`
	AnnouncedDateFirst string `json:"announced_date_first,omitempty"`

	IsWithdrawn bool `json:"is_withdrawn"`

	PrimaryCategory     string   `json:"primary_category"`
	SecondaryCategories []string `json:"secondary_categories,omitempty"`

	Comments   string   `json:"comments,omitempty"`
	JournalRef string   `json:"journal_ref,omitempty"`
	ReportNum  string   `json:"report_num,omitempty"`
	DOI        string   `json:"doi,omitempty"`
	MSCClass   string   `json:"msc_class,omitempty"`
	ACMClass   string   `json:"acm_class,omitempty"`
	Formats    []string `json:"formats,omitempty"`
	License    License  `json:"license,omitempty"`
	Source     Source   `json:"source,omitempty"`
}

// RawAuthor is the upstream representation of an author or owner.
type RawAuthor struct {
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	Suffix      string `json:"suffix,omitempty"`
	AuthorID    string `json:"author_id,omitempty"`
	ORCID       string `json:"orcid,omitempty"`
	Affiliation string `json:"affiliation,omitempty"`
}

// IDv returns the composite version-scoped identifier for the record.
func (m DocMeta) IDv() string {
	if m.PaperID == "" {
		return ""
	}
	return VersionedID(m.PaperID, m.Version)
}
