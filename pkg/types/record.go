// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines shared data structures for the pubrecon pipeline:
// the canonical publication record, the researcher roster entry, run state,
// the persisted run summary, and configuration.
package types

import "strings"

// Source identifies which upstream produced a publication record.
type Source string

const (
	// SourceRegistry is the identifier-stable bibliographic registry (ORCID).
	SourceRegistry Source = "REGISTRY"

	// SourceAggregator is the name/title keyed academic search aggregator.
	SourceAggregator Source = "AGGREGATOR"
)

// Diagnostic notes attached to records that stand in for missing publications.
const (
	NoteNoWorksFound = "NO WORKS FOUND"

	// ExternalIDNotFound marks a work whose payload carries no external
	// identifier list at all, as opposed to an empty one.
	ExternalIDNotFound = "NOT FOUND"

	// JournalNotFound marks a work whose payload explicitly nulls the journal.
	JournalNotFound = "-JOURNAL TITLE NOT FOUND-"
)

// PublicationRecord is one row of the canonical publication set. Records are
// never mutated after they are appended to the accumulator.
type PublicationRecord struct {
	// SubjectID is the institutional identifier of the researcher (may be empty).
	SubjectID string `json:"subject_id" yaml:"subject_id"`

	// ResearcherName is the best-effort display name.
	ResearcherName string `json:"researcher_name" yaml:"researcher_name"`

	// RegistryID is the researcher's ORCID iD; empty for aggregator-only records.
	RegistryID string `json:"registry_id" yaml:"registry_id"`

	// AggregatorID is the researcher's aggregator author id; empty for registry records.
	AggregatorID string `json:"aggregator_id" yaml:"aggregator_id"`

	// Title is whitespace-normalized free text.
	Title string `json:"title" yaml:"title"`

	Journal string `json:"journal" yaml:"journal"`

	// PublicationDate is YYYY, YYYY-MM, or YYYY-MM-DD, as precise as the source reported.
	PublicationDate string `json:"publication_date" yaml:"publication_date"`

	// ExternalID is a DOI or other citable identifier.
	ExternalID string `json:"external_id" yaml:"external_id"`

	Source Source `json:"source" yaml:"source"`

	// Note is a diagnostic annotation such as NoteNoWorksFound or a failure message.
	Note string `json:"note" yaml:"note"`

	SourceURL string `json:"source_url" yaml:"source_url"`
}

// IsDiagnostic reports whether the record stands in for a failed or empty
// fetch rather than an actual publication.
func (r PublicationRecord) IsDiagnostic() bool {
	return r.Note != "" && r.Title == ""
}

// ReportColumns is the fixed header of the tabular report, in order.
var ReportColumns = []string{
	"cedula",
	"nombre_profesor",
	"orcid_profesor",
	"scholar_id",
	"title",
	"journal",
	"date",
	"doi",
	"source",
	"note",
	"url_source",
}

// Row returns the record's values in ReportColumns order.
func (r PublicationRecord) Row() []string {
	return []string{
		r.SubjectID,
		r.ResearcherName,
		r.RegistryID,
		r.AggregatorID,
		r.Title,
		r.Journal,
		r.PublicationDate,
		r.ExternalID,
		string(r.Source),
		r.Note,
		r.SourceURL,
	}
}

// RecordFromRow is the inverse of Row. Short rows leave trailing fields empty.
func RecordFromRow(row []string) PublicationRecord {
	get := func(i int) string {
		if i < len(row) {
			return row[i]
		}
		return ""
	}
	return PublicationRecord{
		SubjectID:       get(0),
		ResearcherName:  get(1),
		RegistryID:      get(2),
		AggregatorID:    get(3),
		Title:           get(4),
		Journal:         get(5),
		PublicationDate: get(6),
		ExternalID:      get(7),
		Source:          Source(get(8)),
		Note:            get(9),
		SourceURL:       get(10),
	}
}

// ResearcherRef is one entry of the input roster. An empty RegistryID or
// AggregatorID excludes the researcher from that source's lookups.
type ResearcherRef struct {
	SubjectID    string `json:"subject_id" yaml:"subject_id"`
	DisplayName  string `json:"display_name" yaml:"display_name"`
	RegistryID   string `json:"registry_id" yaml:"registry_id"`
	AggregatorID string `json:"aggregator_id" yaml:"aggregator_id"`
}

// IdentifierFor returns the researcher's identifier for the given source.
func (r ResearcherRef) IdentifierFor(s Source) string {
	if s == SourceAggregator {
		return r.AggregatorID
	}
	return r.RegistryID
}

// placeholderIDs are roster values that mean "no identifier".
var placeholderIDs = []string{"", "-", "nan"}

// IsPlaceholderID reports whether id is empty or a known stand-in for a
// missing identifier. The comparison ignores case and surrounding space.
func IsPlaceholderID(id string) bool {
	id = strings.TrimSpace(id)
	for _, p := range placeholderIDs {
		if strings.EqualFold(id, p) {
			return true
		}
	}
	return false
}
