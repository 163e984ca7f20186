// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package normalize

import (
	"github.com/pdiddy/pubrecon/internal/payload"
)

// orcidSummary is the first work-summary of an ORCID works group.
var orcidSummary = payload.P("work-summary", 0)

func orcidPath(elems ...any) payload.Path {
	return append(append(payload.Path{}, orcidSummary...), elems...)
}

// ORCIDSchema reads one element of the "group" array returned by
// GET /v3.0/{orcid}/works.
var ORCIDSchema = Schema{
	Name:            "orcid",
	Title:           []payload.Path{orcidPath("title", "title", "value")},
	Journal:         []payload.Path{orcidPath("journal-title", "value")},
	JournalNull:     []payload.Path{orcidPath("journal-title")},
	Year:            []payload.Path{orcidPath("publication-date", "year", "value")},
	Month:           []payload.Path{orcidPath("publication-date", "month", "value")},
	Day:             []payload.Path{orcidPath("publication-date", "day", "value")},
	ExternalIDList:  orcidPath("external-ids", "external-id"),
	ExternalIDValue: payload.P("external-id-value"),
	URL:             []payload.Path{orcidPath("url", "value")},
}

// ScholarSchema reads the work trees built by the Google Scholar profile scraper.
var ScholarSchema = Schema{
	Name:       "scholar",
	Title:      []payload.Path{payload.P("bib", "title")},
	Journal:    []payload.Path{payload.P("bib", "journal"), payload.P("bib", "venue")},
	Year:       []payload.Path{payload.P("bib", "pub_year")},
	ExternalID: []payload.Path{payload.P("author_pub_id")},
	URL:        []payload.Path{payload.P("pub_url")},
}

// OpenAlexSchema reads one element of the OpenAlex works "results" array.
var OpenAlexSchema = Schema{
	Name:  "openalex",
	Title: []payload.Path{payload.P("display_name"), payload.P("title")},
	Journal: []payload.Path{
		payload.P("primary_location", "source", "display_name"),
		payload.P("host_venue", "display_name"),
	},
	FullDate:           []payload.Path{payload.P("publication_date")},
	Year:               []payload.Path{payload.P("publication_year")},
	ExternalID:         []payload.Path{payload.P("doi"), payload.P("id")},
	ExternalIDPrefixes: []string{"https://doi.org/"},
	URL: []payload.Path{
		payload.P("primary_location", "landing_page_url"),
		payload.P("id"),
	},
}

// ORCIDPersonName extracts the display name from GET /v3.0/{orcid}/person.
func ORCIDPersonName(person payload.Value) string {
	return Name(
		person.String("name", "given-names", "value"),
		person.String("name", "family-name", "value"),
	)
}
