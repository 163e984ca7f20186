// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package fetch defines the capability every publication source implements:
// given a researcher identifier, return the profile display name and the raw
// works. Failures are returned as *Failure values carrying a Kind so the
// reconciliation engine can decide between recording a diagnostic and
// aborting the run.
package fetch

import (
	"context"

	"github.com/pdiddy/pubrecon/internal/payload"
	"github.com/pdiddy/pubrecon/pkg/types"
)

// Profile is the result of one successful fetch.
type Profile struct {
	// Name is the display name reported by the source, possibly empty.
	Name string

	// Works holds one raw payload per publication, in source order.
	Works []payload.Value
}

// Fetcher retrieves a researcher's publications from one source.
type Fetcher interface {
	// Source reports which canonical source the fetcher feeds.
	Source() types.Source

	// Fetch returns the profile for id. A researcher with no publications
	// is either an empty Profile or a Failure of kind NotFound; callers
	// treat both the same.
	Fetch(ctx context.Context, id string) (Profile, error)
}

// Func adapts a function to the Fetcher interface.
type Func struct {
	From types.Source
	Fn   func(ctx context.Context, id string) (Profile, error)
}

func (f Func) Source() types.Source { return f.From }

func (f Func) Fetch(ctx context.Context, id string) (Profile, error) {
	return f.Fn(ctx, id)
}
