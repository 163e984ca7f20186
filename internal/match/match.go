// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package match decides whether an aggregator publication is the same work
// as one already taken from the registry. It consults a name/title index
// built from the registry records: an exact (name, title) hit first, then a
// fuzzy comparison of the candidate's name against every registry name that
// published a work with the same title.
package match

import (
	"fmt"
	"strings"

	"github.com/pdiddy/pubrecon/pkg/types"
)

// Index maps lower-cased researcher names to lower-cased titles and back.
// It is read-only once built.
type Index struct {
	titlesByName map[string][]string
	namesByTitle map[string][]string
}

// NewIndex returns an empty Index.
func NewIndex() *Index {
	return &Index{
		titlesByName: make(map[string][]string),
		namesByTitle: make(map[string][]string),
	}
}

// Add records that name published title.
func (ix *Index) Add(name, title string) {
	name, title = strings.ToLower(name), strings.ToLower(title)
	ix.titlesByName[name] = append(ix.titlesByName[name], title)
	ix.namesByTitle[title] = append(ix.namesByTitle[title], name)
}

// BuildIndex indexes the registry records of records. Aggregator records
// and diagnostics (empty title) are ignored.
func BuildIndex(records []types.PublicationRecord) *Index {
	ix := NewIndex()
	for _, r := range records {
		if r.Source != types.SourceRegistry || r.Title == "" {
			continue
		}
		ix.Add(r.ResearcherName, r.Title)
	}
	return ix
}

// Titles returns the titles indexed for name.
func (ix *Index) Titles(name string) []string {
	return ix.titlesByName[strings.ToLower(name)]
}

// Names returns the names indexed for title.
func (ix *Index) Names(title string) []string {
	return ix.namesByTitle[strings.ToLower(title)]
}

// Len is the number of distinct titles.
func (ix *Index) Len() int { return len(ix.namesByTitle) }

// Reason explains a Decision.
type Reason string

const (
	ReasonExact Reason = "exact"
	ReasonFuzzy Reason = "fuzzy"
	ReasonNone  Reason = "none"
)

// Decision is the outcome of matching one candidate.
type Decision struct {
	Duplicate bool
	Reason    Reason

	// Against is the indexed name that matched, and Score its similarity
	// (1 for exact matches).
	Against string
	Score   float64
}

// Matcher holds the fuzzy comparison settings.
type Matcher struct {
	// Threshold is the similarity a fuzzy match must strictly exceed.
	Threshold float64
	Similarity Similarity
}

// Default uses Ratio with types.DefaultThreshold.
var Default = Matcher{Threshold: types.DefaultThreshold, Similarity: Ratio}

// New builds a Matcher from cfg. The algorithm is "ratio" (default) or
// "levenshtein"; a zero threshold falls back to types.DefaultThreshold.
func New(cfg types.MatchConfig) (Matcher, error) {
	m := Default
	if cfg.Threshold != 0 {
		if cfg.Threshold < 0 || cfg.Threshold > 1 {
			return Matcher{}, fmt.Errorf("match threshold %v outside [0, 1]", cfg.Threshold)
		}
		m.Threshold = cfg.Threshold
	}
	switch strings.ToLower(cfg.Algorithm) {
	case "", "ratio":
		m.Similarity = Ratio
	case "levenshtein":
		m.Similarity = Levenshtein
	default:
		return Matcher{}, fmt.Errorf("unknown match algorithm %q", cfg.Algorithm)
	}
	return m, nil
}

// Match decides whether (name, title) duplicates an indexed work.
func (m Matcher) Match(ix *Index, name, title string) Decision {
	if ix == nil {
		return Decision{Reason: ReasonNone}
	}
	lname, ltitle := strings.ToLower(name), strings.ToLower(title)

	for _, t := range ix.titlesByName[lname] {
		if t == ltitle {
			return Decision{Duplicate: true, Reason: ReasonExact, Against: lname, Score: 1}
		}
	}

	sim := m.Similarity
	if sim == nil {
		sim = Ratio
	}
	best := Decision{Reason: ReasonNone}
	for _, n := range ix.namesByTitle[ltitle] {
		score := sim(n, lname)
		if score > m.Threshold {
			return Decision{Duplicate: true, Reason: ReasonFuzzy, Against: n, Score: score}
		}
		if score > best.Score {
			best.Against, best.Score = n, score
		}
	}
	return best
}

// IsDuplicate reports whether (name, title) duplicates an indexed work.
func (m Matcher) IsDuplicate(ix *Index, name, title string) bool {
	return m.Match(ix, name, title).Duplicate
}

// IsDuplicate applies the Default matcher.
func IsDuplicate(ix *Index, name, title string) bool {
	return Default.IsDuplicate(ix, name, title)
}
