package transform

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/quillium/papersearch/pkg/model"
	"github.com/quillium/papersearch/pkg/schema"
)

// Error indicates a malformed or incomplete source record, or a taxonomy
// reference outside the closed taxonomy. It is terminal: the record is
// quarantined and never retried.
type Error struct {
	PaperID string
	Field   string
	Reason  string
}

func (e *Error) Error() string {
	return fmt.Sprintf("transform %s: %s: %s", e.PaperID, e.Field, e.Reason)
}

var announcedPattern = regexp.MustCompile(`^\d{4}-(0[1-9]|1[0-2])$`)

// Normalizer maps raw metadata records into canonical search documents. All
// downstream components operate exclusively on the canonical shape.
type Normalizer struct {
	registry *schema.Registry
	logger   *logrus.Entry
}

func NewNormalizer(logger *logrus.Entry, registry *schema.Registry) *Normalizer {
	return &Normalizer{registry: registry, logger: logger}
}

// Normalize builds the canonical Document for one version-scoped metadata
// record. siblings holds the other known version records for the same paper
// (it may also contain the record itself); they drive the cross-version
// aggregates: is_current, latest, latest_version and the submitted date
// first/latest/all fields.
func (n *Normalizer) Normalize(meta model.DocMeta, siblings []model.DocMeta) (model.Document, error) {

	if meta.PaperID == "" {
		return model.Document{}, &Error{PaperID: meta.PaperID, Field: "paper_id", Reason: "missing"}
	}
	if meta.Version < 1 {
		return model.Document{}, &Error{PaperID: meta.PaperID, Field: "version", Reason: fmt.Sprintf("invalid version %d", meta.Version)}
	}
	if strings.TrimSpace(meta.Title) == "" {
		return model.Document{}, &Error{PaperID: meta.PaperID, Field: "title", Reason: "missing"}
	}
	submitted, err := time.Parse(time.RFC3339, meta.SubmittedDate)
	if err != nil {
		return model.Document{}, &Error{PaperID: meta.PaperID, Field: "submitted_date", Reason: fmt.Sprintf("unparseable date %q", meta.SubmittedDate)}
	}

	versions := n.collectVersions(meta, siblings)
	currentVersion, allWithdrawn := resolveCurrent(versions)
	latestVersion := maxVersion(versions)

	if !allWithdrawn {
		for _, v := range versions {
			if v.IsWithdrawn && v.Version > currentVersion {
				// upstream data anomaly; the resolution rule still applies
				n.logger.Warnf("%s: withdrawn version %d is newer than current version %d",
					meta.PaperID, v.Version, currentVersion)
			}
		}
	}

	first, latest, all := n.submittedDates(meta.PaperID, submitted, versions)

	doc := model.Document{
		PaperID:  meta.PaperID,
		PaperIDv: model.VersionedID(meta.PaperID, meta.Version),
		Version:  meta.Version,

		IsCurrent:     meta.Version == currentVersion,
		IsWithdrawn:   meta.IsWithdrawn,
		Latest:        model.VersionedID(meta.PaperID, latestVersion),
		LatestVersion: latestVersion,

		SubmittedDate:       submitted,
		SubmittedDateFirst:  first,
		SubmittedDateLatest: latest,
		SubmittedDateAll:    all,

		Title:      meta.Title,
		Abstract:   meta.Abstract,
		Comments:   meta.Comments,
		JournalRef: meta.JournalRef,
		ReportNum:  meta.ReportNum,
		DOI:        meta.DOI,
		MSCClass:   meta.MSCClass,
		ACMClass:   meta.ACMClass,
		Formats:    meta.Formats,
		License:    meta.License,
		Source:     meta.Source,
		Submitter:  meta.Submitter,
	}

	doc.UpdatedDate = n.optionalDate(meta.PaperID, "updated_date", meta.UpdatedDate)
	doc.ModifiedDate = n.optionalDate(meta.PaperID, "modified_date", meta.ModifiedDate)

	doc.AnnouncedDateFirst = meta.AnnouncedDateFirst
	if doc.AnnouncedDateFirst == "" {
		doc.AnnouncedDateFirst = first.Format("2006-01")
	} else if !announcedPattern.MatchString(doc.AnnouncedDateFirst) {
		return model.Document{}, &Error{PaperID: meta.PaperID, Field: "announced_date_first",
			Reason: fmt.Sprintf("expected yyyy-MM, got %q", meta.AnnouncedDateFirst)}
	}

	if err := n.classify(&doc, meta); err != nil {
		return model.Document{}, err
	}

	doc.Authors = normalizeAuthors(meta.AuthorsParsed)
	doc.Owners = normalizeAuthors(meta.Owners)

	n.aggregate(&doc)

	return doc, nil
}

// collectVersions returns every known version record for the paper,
// including meta itself, keyed by version number. Records for a different
// paper id are ignored.
func (n *Normalizer) collectVersions(meta model.DocMeta, siblings []model.DocMeta) []model.DocMeta {
	byVersion := map[int]model.DocMeta{meta.Version: meta}
	for _, s := range siblings {
		if s.PaperID != meta.PaperID {
			n.logger.Warnf("%s: ignoring sibling record for different paper %s", meta.PaperID, s.PaperID)
			continue
		}
		if s.Version < 1 {
			continue
		}
		if s.Version == meta.Version {
			continue
		}
		byVersion[s.Version] = s
	}

	versions := make([]model.DocMeta, 0, len(byVersion))
	for _, v := range byVersion {
		versions = append(versions, v)
	}
	sort.Slice(versions, func(i, j int) bool { return versions[i].Version < versions[j].Version })
	return versions
}

// resolveCurrent picks the current version: the highest non-withdrawn
// version, or the highest version outright when every version is withdrawn.
func resolveCurrent(versions []model.DocMeta) (current int, allWithdrawn bool) {
	highest := 0
	highestLive := 0
	for _, v := range versions {
		if v.Version > highest {
			highest = v.Version
		}
		if !v.IsWithdrawn && v.Version > highestLive {
			highestLive = v.Version
		}
	}
	if highestLive == 0 {
		return highest, true
	}
	return highestLive, false
}

func maxVersion(versions []model.DocMeta) int {
	max := 0
	for _, v := range versions {
		if v.Version > max {
			max = v.Version
		}
	}
	return max
}

// submittedDates computes the min/max/all submission date aggregates across
// versions. Sibling records with unparseable dates are excluded from the
// aggregates with a warning; the record's own date is already validated.
func (n *Normalizer) submittedDates(paperID string, own time.Time, versions []model.DocMeta) (first, latest time.Time, all []time.Time) {
	first, latest = own, own
	all = []time.Time{}

	for _, v := range versions {
		ts, err := time.Parse(time.RFC3339, v.SubmittedDate)
		if err != nil {
			n.logger.Warnf("%s: skipping v%d in date aggregates: unparseable submitted_date %q",
				paperID, v.Version, v.SubmittedDate)
			continue
		}
		if ts.Before(first) {
			first = ts
		}
		if ts.After(latest) {
			latest = ts
		}
		all = append(all, ts)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Before(all[j]) })
	return first, latest, all
}

func (n *Normalizer) optionalDate(paperID, field, value string) time.Time {
	if value == "" {
		return time.Time{}
	}
	ts, err := time.Parse(time.RFC3339, value)
	if err != nil {
		n.logger.Warnf("%s: dropping unparseable %s %q", paperID, field, value)
		return time.Time{}
	}
	return ts
}

// classify resolves category ids against the closed taxonomy. An unknown id
// is a hard failure, unlike a missing optional field.
func (n *Normalizer) classify(doc *model.Document, meta model.DocMeta) error {
	tax := n.registry.Taxonomy()

	if meta.PrimaryCategory == "" {
		return &Error{PaperID: meta.PaperID, Field: "primary_category", Reason: "missing"}
	}
	primary, ok := tax.Resolve(meta.PrimaryCategory)
	if !ok {
		return &Error{PaperID: meta.PaperID, Field: "primary_category",
			Reason: fmt.Sprintf("unknown category %q", meta.PrimaryCategory)}
	}
	doc.PrimaryClassification = primary

	for _, id := range meta.SecondaryCategories {
		cls, ok := tax.Resolve(id)
		if !ok {
			return &Error{PaperID: meta.PaperID, Field: "secondary_categories",
				Reason: fmt.Sprintf("unknown category %q", id)}
		}
		doc.SecondaryClassification = append(doc.SecondaryClassification, cls)
	}
	return nil
}

// aggregate recomputes the derived combined and authors_combined fields from
// the registry's copy_to definitions. This is the only code path allowed to
// set them.
func (n *Normalizer) aggregate(doc *model.Document) {
	doc.AuthorsCombined = strings.Join(n.sourceValues(doc, "authors_combined"), " ")
	doc.Combined = strings.Join(n.sourceValues(doc, "combined"), " ")
}

func (n *Normalizer) sourceValues(doc *model.Document, target string) []string {
	var out []string
	for _, name := range n.registry.CopySources(target) {
		for _, v := range fieldValues(doc, name) {
			if v != "" {
				out = append(out, v)
			}
		}
	}
	return out
}

func fieldValues(doc *model.Document, name string) []string {
	switch name {
	case "paper_id":
		return []string{doc.PaperID}
	case "paper_id_v":
		return []string{doc.PaperIDv}
	case "title":
		return []string{doc.Title}
	case "abstract":
		return []string{doc.Abstract}
	case "comments":
		return []string{doc.Comments}
	case "journal_ref":
		return []string{doc.JournalRef}
	case "report_num":
		return []string{doc.ReportNum}
	case "doi":
		return []string{doc.DOI}
	case "msc_class":
		return []string{doc.MSCClass}
	case "acm_class":
		return []string{doc.ACMClass}
	case "authors.full_name":
		return authorValues(doc.Authors, func(a model.Author) string { return a.FullName })
	case "authors.last_name":
		return authorValues(doc.Authors, func(a model.Author) string { return a.LastName })
	case "authors.first_name":
		return authorValues(doc.Authors, func(a model.Author) string { return a.FirstName })
	case "authors.initials":
		return authorValues(doc.Authors, func(a model.Author) string { return a.Initials })
	case "authors.full_name_initialized":
		return authorValues(doc.Authors, func(a model.Author) string { return a.FullNameInitialized })
	case "owners.full_name":
		return authorValues(doc.Owners, func(a model.Author) string { return a.FullName })
	case "submitter.name":
		return []string{doc.Submitter.Name}
	}
	return nil
}

func authorValues(authors []model.Author, get func(model.Author) string) []string {
	var out []string
	for _, a := range authors {
		out = append(out, get(a))
	}
	return out
}
