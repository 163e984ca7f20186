// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package normalize extracts the scalar fields of a publication record from
// heterogeneous source payloads. Extraction is total: each field is read
// independently, falls back to its default when the payload does not carry
// it, and never aborts the remaining fields or works.
package normalize

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/pdiddy/pubrecon/internal/payload"
	"github.com/pdiddy/pubrecon/pkg/types"
)

// Schema tells the normalizer where a source keeps each field. Every slice
// lists candidate paths in priority order; the first present one wins.
type Schema struct {
	Name string

	Title   []payload.Path
	Journal []payload.Path

	// JournalNull lists paths whose explicit null marks the journal as
	// missing at the source (reported as types.JournalNotFound).
	JournalNull []payload.Path

	Year  []payload.Path
	Month []payload.Path
	Day   []payload.Path

	// FullDate lists paths holding a YYYY[-MM[-DD]] string. It takes
	// precedence over the Year/Month/Day components when it parses.
	FullDate []payload.Path

	// ExternalIDList is the path of a list of external identifiers whose
	// first entry's ExternalIDValue is used. When set, an absent list yields
	// types.ExternalIDNotFound and an empty list yields "".
	ExternalIDList  payload.Path
	ExternalIDValue payload.Path

	// ExternalID lists scalar paths used when ExternalIDList is unset.
	ExternalID []payload.Path

	// ExternalIDPrefixes are stripped from the extracted identifier.
	ExternalIDPrefixes []string

	URL []payload.Path
}

// Fields is the source-derived part of a PublicationRecord.
type Fields struct {
	Title      string
	Journal    string
	Date       string
	ExternalID string
	SourceURL  string
}

// Issue records a malformed value that was degraded to its default.
type Issue struct {
	Field string
	Path  string
	Cause string
}

func (i Issue) String() string {
	return fmt.Sprintf("%s at %s: %s", i.Field, i.Path, i.Cause)
}

// Work extracts Fields from one raw work. Issues are informational; the
// returned Fields are always usable.
func (s Schema) Work(raw payload.Value) (Fields, []Issue) {
	var issues []Issue
	str := func(field string, paths []payload.Path) string {
		v, p, ok := first(raw, paths)
		if !ok {
			return ""
		}
		out, scalar := v.Str()
		if !scalar {
			issues = append(issues, Issue{Field: field, Path: p.String(), Cause: "not a scalar"})
			return ""
		}
		return out
	}

	f := Fields{
		Title:     Title(str("title", s.Title)),
		SourceURL: strings.TrimSpace(str("url", s.URL)),
	}

	f.Journal = strings.TrimSpace(str("journal", s.Journal))
	if f.Journal == "" {
		for _, p := range s.JournalNull {
			if raw.At(p).IsNull() {
				f.Journal = types.JournalNotFound
				break
			}
		}
	}

	var year, month, day string
	if full := str("date", s.FullDate); full != "" {
		year, month, day = splitDate(full)
	}
	if year == "" {
		year = str("year", s.Year)
		month = str("month", s.Month)
		day = str("day", s.Day)
	}
	f.Date = Date(year, month, day)

	f.ExternalID = s.externalID(raw, str, &issues)
	return f, issues
}

func (s Schema) externalID(raw payload.Value, str func(string, []payload.Path) string, issues *[]Issue) string {
	var id string
	if len(s.ExternalIDList) > 0 {
		node := raw.At(s.ExternalIDList)
		if !node.Exists() || node.IsNull() {
			return types.ExternalIDNotFound
		}
		list, ok := node.List()
		if !ok {
			*issues = append(*issues, Issue{Field: "external_id", Path: s.ExternalIDList.String(), Cause: "not a list"})
			return types.ExternalIDNotFound
		}
		if len(list) == 0 {
			return ""
		}
		id = list[0].At(s.ExternalIDValue).String()
	} else {
		id = str("external_id", s.ExternalID)
	}
	id = strings.TrimSpace(id)
	for _, prefix := range s.ExternalIDPrefixes {
		id = strings.TrimPrefix(id, prefix)
	}
	return id
}

func first(raw payload.Value, paths []payload.Path) (payload.Value, payload.Path, bool) {
	for _, p := range paths {
		n := raw.At(p)
		if n.Exists() && !n.IsNull() {
			return n, p, true
		}
	}
	return payload.Value{}, nil, false
}

var newlineRun = regexp.MustCompile(`[ \t]*\r?\n[ \t\r\n]*`)

// Title trims surrounding whitespace and replaces embedded newlines (and the
// whitespace hugging them) with a single space.
func Title(s string) string {
	return strings.TrimSpace(newlineRun.ReplaceAllString(s, " "))
}

// Date composes a publication date from independently optional components.
// Without a year the result is empty; a missing month drops the day too.
// Components are never synthesized.
func Date(year, month, day string) string {
	year, month, day = strings.TrimSpace(year), strings.TrimSpace(month), strings.TrimSpace(day)
	switch {
	case year == "":
		return ""
	case month == "":
		return year
	case day == "":
		return year + "-" + month
	default:
		return year + "-" + month + "-" + day
	}
}

var fullDatePattern = regexp.MustCompile(`^(\d{4})(?:-(\d{1,2})(?:-(\d{1,2}))?)?`)

func splitDate(s string) (year, month, day string) {
	m := fullDatePattern.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return "", "", ""
	}
	return m[1], m[2], m[3]
}

// Name joins a given name and a family name. Hyphens inside either part
// become spaces and each part is trimmed independently.
func Name(given, family string) string {
	clean := func(s string) string {
		return strings.TrimSpace(strings.ReplaceAll(s, "-", " "))
	}
	return strings.TrimSpace(clean(given) + " " + clean(family))
}
