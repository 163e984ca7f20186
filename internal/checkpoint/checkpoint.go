// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package checkpoint persists a reconciliation run's partial record set,
// resume cursor and state so that a restarted run reprocesses only the
// unfinished suffix of its plan.
package checkpoint

import (
	"context"
	"fmt"
	"time"

	"github.com/pdiddy/pubrecon/pkg/types"
)

// Checkpoint is one persisted snapshot of a run.
type Checkpoint struct {
	// RunID identifies the run that wrote the checkpoint.
	RunID string `json:"run_id"`

	// PlanDigest fingerprints the job plan; a resume against a different
	// plan is refused.
	PlanDigest string `json:"plan_digest"`

	// Cursor is the index of the next job to run.
	Cursor int `json:"cursor"`

	State   types.ReconciliationState `json:"state"`
	Records []types.PublicationRecord `json:"records"`

	UpdatedAt time.Time `json:"updated_at"`
}

// Store loads and saves checkpoints. Load returns (nil, nil) when nothing
// has been saved. Implementations are not safe for concurrent use; the
// engine is their only writer.
type Store interface {
	Load(ctx context.Context) (*Checkpoint, error)
	Save(ctx context.Context, cp *Checkpoint) error
	Reset(ctx context.Context) error
	Close() error
}

// Open returns the Store selected by cfg.
func Open(cfg types.CheckpointConfig) (Store, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("checkpoint path is empty")
	}
	switch cfg.Backend {
	case "", types.CheckpointFile:
		return NewFileStore(cfg.Path), nil
	case types.CheckpointSQLite:
		return OpenSQLite(cfg.Path)
	default:
		return nil, fmt.Errorf("unknown checkpoint backend %q", cfg.Backend)
	}
}
