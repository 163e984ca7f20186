// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package reconcile

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/pdiddy/pubrecon/pkg/types"
)

// Job is one (source, researcher) unit of work. The checkpoint cursor is
// an index into the plan's job list.
type Job struct {
	Index      int
	Source     types.Source
	Researcher types.ResearcherRef
}

// ID returns the researcher's identifier for the job's source.
func (j Job) ID() string {
	return j.Researcher.IdentifierFor(j.Source)
}

// Skipped reports whether the job has no usable identifier.
func (j Job) Skipped() bool {
	return types.IsPlaceholderID(j.ID())
}

// Plan lays out the jobs of a run: every researcher for the first source,
// then every researcher for the next. Registry records must all be in the
// accumulator before the first aggregator job builds the match index.
func Plan(researchers []types.ResearcherRef, sources ...types.Source) []Job {
	jobs := make([]Job, 0, len(researchers)*len(sources))
	for _, src := range sources {
		for _, r := range researchers {
			jobs = append(jobs, Job{Index: len(jobs), Source: src, Researcher: r})
		}
	}
	return jobs
}

// Digest fingerprints a plan. A checkpoint is only resumed against a plan
// with the same digest.
func Digest(jobs []Job) string {
	h := sha256.New()
	for _, j := range jobs {
		r := j.Researcher
		fmt.Fprintf(h, "%d\x1f%s\x1f%s\x1f%s\x1f%s\x1f%s\x1e",
			j.Index, j.Source, r.SubjectID, r.DisplayName, r.RegistryID, r.AggregatorID)
	}
	return hex.EncodeToString(h.Sum(nil))
}
