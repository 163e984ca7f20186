// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package checkpoint

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/pubrecon/pkg/types"
)

func record(i int) types.PublicationRecord {
	return types.PublicationRecord{
		SubjectID:       fmt.Sprintf("S%d", i),
		ResearcherName:  "Jane Doe",
		RegistryID:      "0000-0002-1825-0097",
		Title:           fmt.Sprintf("Paper %d", i),
		Journal:         types.JournalNotFound,
		PublicationDate: "2020-05",
		ExternalID:      types.ExternalIDNotFound,
		Source:          types.SourceRegistry,
		SourceURL:       "https://example.org",
	}
}

func records(n int) []types.PublicationRecord {
	out := make([]types.PublicationRecord, n)
	for i := range out {
		out[i] = record(i)
	}
	return out
}

var stamp = time.Date(2026, 3, 1, 12, 30, 0, 0, time.UTC)

type storeFactory func(t *testing.T, dir string) Store

var backends = map[string]storeFactory{
	"file": func(t *testing.T, dir string) Store {
		return NewFileStore(filepath.Join(dir, "checkpoint.json"))
	},
	"sqlite": func(t *testing.T, dir string) Store {
		s, err := OpenSQLite(filepath.Join(dir, "checkpoint.db"))
		require.NoError(t, err)
		return s
	},
}

func forEachBackend(t *testing.T, fn func(t *testing.T, open func() Store)) {
	for name, factory := range backends {
		t.Run(name, func(t *testing.T) {
			dir := t.TempDir()
			var opened []Store
			t.Cleanup(func() {
				for _, s := range opened {
					s.Close()
				}
			})
			fn(t, func() Store {
				s := factory(t, dir)
				opened = append(opened, s)
				return s
			})
		})
	}
}

func TestLoadEmpty(t *testing.T) {
	forEachBackend(t, func(t *testing.T, open func() Store) {
		cp, err := open().Load(context.Background())
		require.NoError(t, err)
		assert.Nil(t, cp)
	})
}

func TestSaveLoadRoundTrip(t *testing.T) {
	forEachBackend(t, func(t *testing.T, open func() Store) {
		ctx := context.Background()
		want := &Checkpoint{
			RunID:      "run-1",
			PlanDigest: "abc",
			Cursor:     3,
			State:      types.ReconciliationState{CompletedCount: 3, TotalCount: 10, ErrorCount: 1},
			Records:    records(4),
			UpdatedAt:  stamp,
		}
		require.NoError(t, open().Save(ctx, want))

		// A fresh handle proves the data reached disk.
		got, err := open().Load(ctx)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, want.RunID, got.RunID)
		assert.Equal(t, want.PlanDigest, got.PlanDigest)
		assert.Equal(t, want.Cursor, got.Cursor)
		assert.Equal(t, want.State, got.State)
		assert.Equal(t, want.Records, got.Records)
		assert.True(t, want.UpdatedAt.Equal(got.UpdatedAt))
	})
}

func TestSaveAppendsAndOverwrites(t *testing.T) {
	forEachBackend(t, func(t *testing.T, open func() Store) {
		ctx := context.Background()
		s := open()

		cp := &Checkpoint{RunID: "run-1", Records: records(2), Cursor: 1, UpdatedAt: stamp}
		require.NoError(t, s.Save(ctx, cp))

		cp.Records = records(5)
		cp.Cursor = 2
		cp.State.IsComplete = true
		require.NoError(t, s.Save(ctx, cp))

		got, err := s.Load(ctx)
		require.NoError(t, err)
		assert.Equal(t, records(5), got.Records)
		assert.Equal(t, 2, got.Cursor)
		assert.True(t, got.State.IsComplete)
	})
}

func TestSaveNewRunReplacesRecords(t *testing.T) {
	forEachBackend(t, func(t *testing.T, open func() Store) {
		ctx := context.Background()
		s := open()

		require.NoError(t, s.Save(ctx, &Checkpoint{RunID: "run-1", Records: records(5), UpdatedAt: stamp}))
		fresh := []types.PublicationRecord{record(9)}
		require.NoError(t, s.Save(ctx, &Checkpoint{RunID: "run-2", Records: fresh, UpdatedAt: stamp}))

		got, err := s.Load(ctx)
		require.NoError(t, err)
		assert.Equal(t, "run-2", got.RunID)
		assert.Equal(t, fresh, got.Records)
	})
}

func TestReset(t *testing.T) {
	forEachBackend(t, func(t *testing.T, open func() Store) {
		ctx := context.Background()
		s := open()

		require.NoError(t, s.Reset(ctx), "reset of an empty store is not an error")
		require.NoError(t, s.Save(ctx, &Checkpoint{RunID: "run-1", Records: records(2), UpdatedAt: stamp}))
		require.NoError(t, s.Reset(ctx))

		got, err := s.Load(ctx)
		require.NoError(t, err)
		assert.Nil(t, got)
	})
}

func TestFileStoreCorrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "checkpoint.json")
	require.NoError(t, os.WriteFile(path, []byte("{truncated"), 0o644))

	_, err := NewFileStore(path).Load(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parsing checkpoint")
}

func TestOpen(t *testing.T) {
	dir := t.TempDir()

	s, err := Open(types.CheckpointConfig{Path: filepath.Join(dir, "cp.json")})
	require.NoError(t, err)
	assert.IsType(t, &FileStore{}, s)

	s, err = Open(types.CheckpointConfig{Backend: types.CheckpointSQLite, Path: filepath.Join(dir, "nested", "cp.db")})
	require.NoError(t, err)
	assert.IsType(t, &SQLiteStore{}, s)
	require.NoError(t, s.Close())

	_, err = Open(types.CheckpointConfig{Backend: "redis", Path: "x"})
	assert.Error(t, err)

	_, err = Open(types.CheckpointConfig{})
	assert.Error(t, err)
}
