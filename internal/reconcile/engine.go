// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package reconcile drives a reconciliation run: it fetches each
// researcher's works from the registry and then the aggregator, normalizes
// them, drops duplicates, and keeps a resumable checkpoint after every job.
//
// Per job the states are PENDING, FETCHING, NORMALIZING, MATCHING and
// RECORDED, or FAILED_RECORDED when a non-fatal failure was turned into a
// diagnostic record. The run ends DONE, or ABORTED when credentials are
// rejected.
package reconcile

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/pdiddy/pubrecon/internal/checkpoint"
	"github.com/pdiddy/pubrecon/internal/fetch"
	"github.com/pdiddy/pubrecon/internal/match"
	"github.com/pdiddy/pubrecon/internal/normalize"
	"github.com/pdiddy/pubrecon/internal/report"
	"github.com/pdiddy/pubrecon/pkg/types"
)

// MaxNoteLength bounds the failure text stored in a diagnostic note.
const MaxNoteLength = 200

// Job and run states, as logged.
const (
	StatePending        = "PENDING"
	StateFetching       = "FETCHING"
	StateNormalizing    = "NORMALIZING"
	StateMatching       = "MATCHING"
	StateRecorded       = "RECORDED"
	StateFailedRecorded = "FAILED_RECORDED"
	StateSkipped        = "SKIPPED"
	StateAborted        = "ABORTED"
	StateDone           = "DONE"
)

// Source pairs a fetcher with the schema that reads its raw works.
type Source struct {
	Fetcher fetch.Fetcher
	Schema  normalize.Schema
}

// Observer receives per-job counts. The metrics package implements it.
type Observer interface {
	JobFinished(source types.Source, state string, elapsed time.Duration)
	RecordsAdded(source types.Source, n int)
	DuplicatesDropped(source types.Source, reason string, n int)
}

type nopObserver struct{}

func (nopObserver) JobFinished(types.Source, string, time.Duration) {}
func (nopObserver) RecordsAdded(types.Source, int)                  {}
func (nopObserver) DuplicatesDropped(types.Source, string, int)     {}

// Options configures an Engine.
type Options struct {
	Registry Source

	// Aggregator is optional; a nil Fetcher skips the aggregator stage.
	Aggregator Source

	Store   checkpoint.Store
	Matcher match.Matcher

	// ReportPath and SummaryPath receive the CSV report and JSON summary.
	// Empty paths disable the corresponding output.
	ReportPath  string
	SummaryPath string

	// SplitBySource also writes one report per source beside ReportPath.
	SplitBySource bool

	// Concurrency > 1 prefetches that many jobs ahead of the merge.
	Concurrency int

	// Fresh discards any existing checkpoint.
	Fresh bool

	Logger   zerolog.Logger
	Observer Observer

	// Now and NewRunID are overridable for tests.
	Now      func() time.Time
	NewRunID func() string
}

// Result describes a finished or interrupted run.
type Result struct {
	RunID   string
	State   types.ReconciliationState
	Records []types.PublicationRecord
	Resumed bool
}

// Engine runs reconciliations. An Engine may be reused for several runs
// but not concurrently.
type Engine struct {
	opts Options
	log  zerolog.Logger
	obs  Observer
}

// New validates opts and returns an Engine.
func New(opts Options) (*Engine, error) {
	if opts.Registry.Fetcher == nil {
		return nil, errors.New("registry fetcher is required")
	}
	if opts.Store == nil {
		return nil, errors.New("checkpoint store is required")
	}
	if opts.Matcher.Similarity == nil {
		opts.Matcher = match.Default
	}
	if opts.Concurrency < 1 {
		opts.Concurrency = 1
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.NewRunID == nil {
		opts.NewRunID = uuid.NewString
	}
	obs := opts.Observer
	if obs == nil {
		obs = nopObserver{}
	}
	return &Engine{opts: opts, log: opts.Logger, obs: obs}, nil
}

// Sources returns the configured stages in plan order.
func (e *Engine) Sources() []types.Source {
	out := []types.Source{e.opts.Registry.Fetcher.Source()}
	if e.opts.Aggregator.Fetcher != nil {
		out = append(out, e.opts.Aggregator.Fetcher.Source())
	}
	return out
}

// run is the state of one Run call.
type run struct {
	id          string
	jobs        []Job
	digest      string
	researchers int
	cursor      int
	state       types.ReconciliationState
	acc         *accumulator
	index       *match.Index
}

// Run reconciles researchers. It resumes from the store's checkpoint when
// one exists for the same plan and is not complete.
func (e *Engine) Run(ctx context.Context, researchers []types.ResearcherRef) (Result, error) {
	r, resumed, err := e.start(ctx, researchers)
	if err != nil {
		if serr := e.summary(r); serr != nil {
			e.log.Error().Err(serr).Msg("summary write failed")
		}
		return Result{}, err
	}
	log := e.log.With().Str("run_id", r.id).Logger()
	log.Info().
		Int("jobs", len(r.jobs)).
		Int("cursor", r.cursor).
		Bool("resumed", resumed).
		Int("concurrency", e.opts.Concurrency).
		Msg("reconciliation started")

	result := func() Result {
		return Result{RunID: r.id, State: r.state, Records: r.acc.snapshot(), Resumed: resumed}
	}

	var pf *prefetcher
	if e.opts.Concurrency > 1 && r.cursor < len(r.jobs) {
		pf = startPrefetch(ctx, r.jobs, r.cursor, e.opts.Concurrency, e.fetchOne)
		defer pf.stop()
	}

	for r.cursor < len(r.jobs) {
		job := r.jobs[r.cursor]
		jlog := log.With().
			Int("job", job.Index).
			Str("source", string(job.Source)).
			Str("subject_id", job.Researcher.SubjectID).
			Str("id", job.ID()).
			Logger()
		jlog.Debug().Str("state", StatePending).Msg("job")

		if err := ctx.Err(); err != nil {
			return result(), e.interrupt(ctx, r, log, err)
		}

		started := e.opts.Now()
		var o outcome
		if pf != nil {
			o, err = pf.next(ctx, r.cursor)
			if err != nil {
				return result(), e.interrupt(ctx, r, log, err)
			}
		} else {
			o = e.fetchOne(ctx, job)
		}
		if o.err != nil && (errors.Is(o.err, context.Canceled) || ctx.Err() != nil) {
			cause := ctx.Err()
			if cause == nil {
				cause = o.err
			}
			return result(), e.interrupt(ctx, r, log, cause)
		}

		if o.err != nil && fetch.IsFatal(o.err) {
			r.state.ErrorCount++
			jlog.Error().Err(o.err).Str("state", StateAborted).Msg("credentials rejected, aborting run")
			e.obs.JobFinished(job.Source, StateAborted, e.opts.Now().Sub(started))
			e.flush(context.WithoutCancel(ctx), r, log)
			return result(), fmt.Errorf("%w: %s %s: %w", ErrAborted, job.Source, job.ID(), o.err)
		}

		state := e.apply(r, job, o, jlog)
		r.cursor++
		r.state.CompletedCount++
		e.obs.JobFinished(job.Source, state, e.opts.Now().Sub(started))

		if err := e.save(context.WithoutCancel(ctx), r); err != nil {
			log.Error().Err(err).Msg("checkpoint write failed")
			e.writeReport(r, log)
			return result(), err
		}
	}

	r.state.IsComplete = true
	if err := e.save(context.WithoutCancel(ctx), r); err != nil {
		log.Error().Err(err).Msg("final checkpoint write failed")
		e.writeReport(r, log)
		return result(), err
	}
	if err := e.report(r); err != nil {
		log.Error().Err(err).Msg("report write failed")
		return result(), err
	}

	log.Info().
		Str("state", StateDone).
		Int("records", len(r.acc.records)).
		Int("errors", r.state.ErrorCount).
		Msg("reconciliation complete")
	return result(), nil
}

// start builds the plan and seeds the run from the checkpoint. On error the
// returned run is the unstarted plan, so the summary still describes this
// invocation.
func (e *Engine) start(ctx context.Context, researchers []types.ResearcherRef) (*run, bool, error) {
	jobs := Plan(researchers, e.Sources()...)
	r := &run{
		jobs:        jobs,
		digest:      Digest(jobs),
		researchers: len(researchers),
		state:       types.ReconciliationState{TotalCount: len(jobs)},
		acc:         newAccumulator(nil),
	}

	if e.opts.Fresh {
		if err := e.opts.Store.Reset(ctx); err != nil {
			return r, false, &PersistenceError{Op: "checkpoint reset", Err: err}
		}
	}

	cp, err := e.opts.Store.Load(ctx)
	if err != nil {
		return r, false, &PersistenceError{Op: "checkpoint load", Err: err}
	}

	switch {
	case cp == nil:
	case cp.State.IsComplete:
		e.log.Info().Str("previous_run", cp.RunID).Msg("previous run completed, starting fresh")
		cp = nil
	case cp.PlanDigest != r.digest:
		return r, false, fmt.Errorf("%w: checkpoint run %s", ErrPlanMismatch, cp.RunID)
	case cp.Cursor < 0 || cp.Cursor > len(jobs):
		return r, false, fmt.Errorf("%w: cursor %d outside plan of %d jobs", ErrPlanMismatch, cp.Cursor, len(jobs))
	}

	if cp == nil {
		r.id = e.opts.NewRunID()
		return r, false, nil
	}

	r.id = cp.RunID
	r.cursor = cp.Cursor
	r.state.CompletedCount = cp.State.CompletedCount
	r.state.ErrorCount = cp.State.ErrorCount
	r.acc = newAccumulator(cp.Records)
	return r, true, nil
}

// fetchOne runs the FETCHING step of a job. It is safe to call from the
// prefetch goroutines.
func (e *Engine) fetchOne(ctx context.Context, job Job) outcome {
	if job.Skipped() {
		return outcome{skipped: true}
	}
	src := e.sourceFor(job.Source)
	e.log.Debug().Int("job", job.Index).Str("state", StateFetching).Str("id", job.ID()).Msg("job")
	p, err := src.Fetcher.Fetch(ctx, job.ID())
	return outcome{profile: p, err: err}
}

func (e *Engine) sourceFor(s types.Source) Source {
	if s == types.SourceAggregator && e.opts.Aggregator.Fetcher != nil {
		return e.opts.Aggregator
	}
	return e.opts.Registry
}

// apply merges one job's outcome into the accumulator and returns the
// job's final state.
func (e *Engine) apply(r *run, job Job, o outcome, log zerolog.Logger) string {
	switch {
	case o.skipped:
		log.Debug().Str("state", StateSkipped).Msg("no identifier, skipping")
		return StateSkipped

	case o.err != nil && !fetch.IsNotFound(o.err):
		r.state.ErrorCount++
		rec := identity(job, "")
		rec.Note = failureNote(o.err)
		r.acc.append(rec)
		log.Warn().Err(o.err).Str("kind", string(fetch.Classify(o.err))).Str("state", StateFailedRecorded).Msg("fetch failed")
		return StateFailedRecorded

	case o.err != nil || len(o.profile.Works) == 0:
		rec := identity(job, o.profile.Name)
		rec.Note = types.NoteNoWorksFound
		r.acc.append(rec)
		log.Info().Str("state", StateRecorded).Msg("no works found")
		e.obs.RecordsAdded(job.Source, 1)
		return StateRecorded
	}

	name := o.profile.Name
	schema := e.sourceFor(job.Source).Schema
	log.Debug().Str("state", StateNormalizing).Int("works", len(o.profile.Works)).Msg("job")

	candidates := make([]types.PublicationRecord, 0, len(o.profile.Works))
	for i, raw := range o.profile.Works {
		fields, issues := schema.Work(raw)
		for _, issue := range issues {
			log.Debug().Int("work", i).Str("issue", issue.String()).Msg("malformed field degraded to default")
		}
		rec := identity(job, name)
		rec.Title = fields.Title
		rec.Journal = fields.Journal
		rec.PublicationDate = fields.Date
		rec.ExternalID = fields.ExternalID
		rec.SourceURL = fields.SourceURL
		candidates = append(candidates, rec)
	}

	log.Debug().Str("state", StateMatching).Msg("job")
	if job.Source == types.SourceAggregator && r.index == nil {
		r.index = match.BuildIndex(r.acc.records)
		log.Debug().Int("titles", r.index.Len()).Msg("match index built")
	}

	added, exact, fuzzy := 0, 0, 0
	for _, rec := range candidates {
		if r.acc.keys.seen(rec) {
			exact++
			continue
		}
		if job.Source == types.SourceAggregator {
			if d := e.opts.Matcher.Match(r.index, rec.ResearcherName, rec.Title); d.Duplicate {
				fuzzy++
				log.Debug().
					Str("title", rec.Title).
					Str("reason", string(d.Reason)).
					Str("against", d.Against).
					Float64("score", d.Score).
					Msg("duplicate of registry record")
				continue
			}
		}
		if r.acc.append(rec) {
			added++
		}
	}

	e.obs.RecordsAdded(job.Source, added)
	if exact > 0 {
		e.obs.DuplicatesDropped(job.Source, "key", exact)
	}
	if fuzzy > 0 {
		e.obs.DuplicatesDropped(job.Source, "match", fuzzy)
	}
	log.Info().
		Str("state", StateRecorded).
		Str("name", name).
		Int("works", len(candidates)).
		Int("added", added).
		Int("duplicates", exact+fuzzy).
		Msg("job recorded")
	return StateRecorded
}

// identity returns a record carrying only the job's identity fields.
func identity(job Job, name string) types.PublicationRecord {
	if name == "" {
		name = job.Researcher.DisplayName
	}
	rec := types.PublicationRecord{
		SubjectID:      job.Researcher.SubjectID,
		ResearcherName: name,
		Source:         job.Source,
	}
	if job.Source == types.SourceAggregator {
		rec.AggregatorID = job.ID()
	} else {
		rec.RegistryID = job.ID()
	}
	return rec
}

// failureNote is the upper-cased failure text, truncated to MaxNoteLength
// characters. A source-provided message is preferred over the error chain.
func failureNote(err error) string {
	text := err.Error()
	var f *fetch.Failure
	if errors.As(err, &f) && f.Message != "" {
		text = f.Message
	}
	text = strings.ToUpper(strings.TrimSpace(text))
	if utf8.RuneCountInString(text) > MaxNoteLength {
		text = string([]rune(text)[:MaxNoteLength])
	}
	return text
}

func (e *Engine) checkpoint(r *run) *checkpoint.Checkpoint {
	return &checkpoint.Checkpoint{
		RunID:      r.id,
		PlanDigest: r.digest,
		Cursor:     r.cursor,
		State:      r.state,
		Records:    r.acc.records,
		UpdatedAt:  e.opts.Now().UTC(),
	}
}

// save persists the checkpoint and then the summary.
func (e *Engine) save(ctx context.Context, r *run) error {
	if err := e.opts.Store.Save(ctx, e.checkpoint(r)); err != nil {
		return &PersistenceError{Op: "checkpoint", Err: err}
	}
	return e.summary(r)
}

func (e *Engine) summary(r *run) error {
	if e.opts.SummaryPath == "" {
		return nil
	}
	sum := types.SummaryOf(r.state, len(r.acc.records), r.researchers, e.Sources()...)
	if err := report.WriteSummary(e.opts.SummaryPath, sum); err != nil {
		return &PersistenceError{Op: "summary", Err: err}
	}
	return nil
}

func (e *Engine) report(r *run) error {
	if e.opts.ReportPath == "" {
		return nil
	}
	if err := report.Write(e.opts.ReportPath, r.acc.records); err != nil {
		return &PersistenceError{Op: "report", Err: err}
	}
	if e.opts.SplitBySource {
		if err := report.WriteBySource(e.opts.ReportPath, r.acc.records, e.Sources()...); err != nil {
			return &PersistenceError{Op: "report", Err: err}
		}
	}
	return nil
}

// writeReport writes the partial report and summary, logging failures.
func (e *Engine) writeReport(r *run, log zerolog.Logger) {
	if err := e.summary(r); err != nil {
		log.Error().Err(err).Msg("summary write failed")
	}
	if err := e.report(r); err != nil {
		log.Error().Err(err).Msg("partial report write failed")
	}
}

// flush saves the checkpoint and partial outputs on the way out of a run
// that did not complete.
func (e *Engine) flush(ctx context.Context, r *run, log zerolog.Logger) {
	if err := e.opts.Store.Save(ctx, e.checkpoint(r)); err != nil {
		log.Error().Err(err).Msg("checkpoint flush failed")
	}
	e.writeReport(r, log)
}

// interrupt handles cancellation: the interrupted job is not recorded and
// the checkpoint is flushed with a context that is no longer cancelled.
func (e *Engine) interrupt(ctx context.Context, r *run, log zerolog.Logger, cause error) error {
	log.Warn().Err(cause).Int("cursor", r.cursor).Msg("reconciliation interrupted, flushing checkpoint")
	e.flush(context.WithoutCancel(ctx), r, log)
	return cause
}
