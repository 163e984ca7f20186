// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

// ReconciliationState is the progress of one reconciliation run. It is owned
// by the engine for the duration of a run and persisted with every checkpoint.
type ReconciliationState struct {
	CompletedCount int  `json:"completed_count" yaml:"completed_count"`
	TotalCount     int  `json:"total_count" yaml:"total_count"`
	IsComplete     bool `json:"is_complete" yaml:"is_complete"`
	ErrorCount     int  `json:"error_count" yaml:"error_count"`
}

// SourceProgress is one stage's share of the run: Index researchers of
// Total have been processed against that source.
type SourceProgress struct {
	Complete bool `json:"complete"`
	Index    int  `json:"index"`
	Total    int  `json:"total"`
}

// Summary is the run summary a supervising process reads to follow progress.
// Index counts finished jobs out of TotalJobs; TotalUsers is the roster size.
type Summary struct {
	Complete         bool                      `json:"complete"`
	Index            int                       `json:"index"`
	TotalUsers       int                       `json:"total_users"`
	TotalJobs        int                       `json:"total_jobs"`
	ProcessedRecords int                       `json:"processed_records"`
	Errors           int                       `json:"errors"`
	Sources          map[Source]SourceProgress `json:"sources,omitempty"`
}

// SummaryOf derives the persisted summary from a state, the number of
// records accumulated so far, the roster size, and the stages in plan
// order. Every stage holds one job per researcher.
func SummaryOf(s ReconciliationState, records, researchers int, stages ...Source) Summary {
	sum := Summary{
		Complete:         s.IsComplete,
		Index:            s.CompletedCount,
		TotalUsers:       researchers,
		TotalJobs:        s.TotalCount,
		ProcessedRecords: records,
		Errors:           s.ErrorCount,
	}
	if len(stages) == 0 {
		return sum
	}
	sum.Sources = make(map[Source]SourceProgress, len(stages))
	for i, src := range stages {
		idx := min(max(s.CompletedCount-i*researchers, 0), researchers)
		sum.Sources[src] = SourceProgress{
			Complete: s.IsComplete || (researchers > 0 && idx == researchers),
			Index:    idx,
			Total:    researchers,
		}
	}
	return sum
}
