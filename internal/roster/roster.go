// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package roster loads the list of researchers to reconcile. A roster is a
// CSV file with a header row or a YAML list of entries. Placeholder
// identifiers are cleared and ORCID iDs are put in canonical form.
package roster

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/rs/zerolog"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/pubrecon/pkg/types"
)

// ErrNoHeader is returned for a CSV roster without a recognizable header.
var ErrNoHeader = errors.New("roster has no recognizable header")

// columnAliases maps accepted CSV header names to roster fields.
var columnAliases = map[string]string{
	"cedula":        "subject_id",
	"subject_id":    "subject_id",
	"nombre":        "display_name",
	"display_name":  "display_name",
	"name":          "display_name",
	"orcid":         "registry_id",
	"registry_id":   "registry_id",
	"author_id":     "aggregator_id",
	"scholar_id":    "aggregator_id",
	"aggregator_id": "aggregator_id",
	"openalex_id":   "aggregator_id",
}

// Load reads the roster at path. Files ending in .yaml or .yml are decoded
// as YAML; anything else as CSV.
func Load(path string, log zerolog.Logger) ([]types.ResearcherRef, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening roster %s: %w", path, err)
	}
	defer f.Close()

	var refs []types.ResearcherRef
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		refs, err = DecodeYAML(f)
	default:
		refs, err = DecodeCSV(f)
	}
	if err != nil {
		return nil, fmt.Errorf("reading roster %s: %w", path, err)
	}
	return Clean(refs, log), nil
}

// DecodeCSV reads a CSV roster. Header names are matched case-insensitively
// against the accepted aliases; unknown columns are ignored.
func DecodeCSV(r io.Reader) ([]types.ResearcherRef, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading header: %w", err)
	}

	cols := make(map[string]int)
	for i, h := range header {
		h = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
		if field, ok := columnAliases[h]; ok {
			if _, dup := cols[field]; !dup {
				cols[field] = i
			}
		}
	}
	if len(cols) == 0 {
		return nil, ErrNoHeader
	}

	var refs []types.ResearcherRef
	for line := 2; ; line++ {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading line %d: %w", line, err)
		}
		get := func(field string) string {
			i, ok := cols[field]
			if !ok || i >= len(row) {
				return ""
			}
			return row[i]
		}
		refs = append(refs, types.ResearcherRef{
			SubjectID:    get("subject_id"),
			DisplayName:  get("display_name"),
			RegistryID:   get("registry_id"),
			AggregatorID: get("aggregator_id"),
		})
	}
	return refs, nil
}

// DecodeYAML reads a YAML list of roster entries.
func DecodeYAML(r io.Reader) ([]types.ResearcherRef, error) {
	var refs []types.ResearcherRef
	if err := yaml.NewDecoder(r).Decode(&refs); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("decoding yaml: %w", err)
	}
	return refs, nil
}

// Clean trims every field, clears placeholder identifiers, and normalizes
// ORCID iDs. An iD that fails its checksum is kept as given and logged.
func Clean(refs []types.ResearcherRef, log zerolog.Logger) []types.ResearcherRef {
	out := make([]types.ResearcherRef, 0, len(refs))
	for i, r := range refs {
		r.SubjectID = strings.TrimSpace(r.SubjectID)
		r.DisplayName = strings.TrimSpace(r.DisplayName)
		r.RegistryID = clearPlaceholder(r.RegistryID)
		r.AggregatorID = clearPlaceholder(r.AggregatorID)

		if r.RegistryID != "" {
			id, ok := NormalizeORCID(r.RegistryID)
			if !ok {
				log.Warn().Int("row", i+1).Str("subject_id", r.SubjectID).Str("orcid", r.RegistryID).
					Msg("orcid fails checksum, keeping as given")
			}
			r.RegistryID = id
		}
		out = append(out, r)
	}
	return out
}

func clearPlaceholder(id string) string {
	if types.IsPlaceholderID(id) {
		return ""
	}
	return strings.TrimSpace(id)
}

// orcidPattern matches the sixteen-character iD, hyphenated or not.
var orcidPattern = regexp.MustCompile(`^(\d{4})-?(\d{4})-?(\d{4})-?(\d{3}[\dX])$`)

// orcidPrefixes are stripped before validation.
var orcidPrefixes = []string{
	"https://orcid.org/",
	"http://orcid.org/",
	"https://sandbox.orcid.org/",
	"orcid.org/",
}

// NormalizeORCID returns id in canonical hyphenated form with an upper-case
// check character. ok is false when id is not a well-formed iD or its check
// digit is wrong; id is then returned trimmed but otherwise unchanged.
func NormalizeORCID(id string) (string, bool) {
	id = strings.TrimSpace(id)
	candidate := id
	for _, p := range orcidPrefixes {
		if len(candidate) >= len(p) && strings.EqualFold(candidate[:len(p)], p) {
			candidate = candidate[len(p):]
			break
		}
	}
	candidate = strings.ToUpper(candidate)

	m := orcidPattern.FindStringSubmatch(candidate)
	if m == nil {
		return id, false
	}
	digits := m[1] + m[2] + m[3] + m[4]
	if checkDigit(digits[:15]) != digits[15] {
		return id, false
	}
	return m[1] + "-" + m[2] + "-" + m[3] + "-" + m[4], true
}

// checkDigit computes the ISO 7064 MOD 11-2 check character of base.
func checkDigit(base string) byte {
	total := 0
	for i := 0; i < len(base); i++ {
		total = (total + int(base[i]-'0')) * 2
	}
	result := (12 - total%11) % 11
	if result == 10 {
		return 'X'
	}
	return byte('0' + result)
}
