// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package checkpoint

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/pubrecon/pkg/types"
)

// SQLiteStore keeps the checkpoint in a SQLite database: a single-row meta
// table and an append-only records table. Save inserts only the records
// beyond those already stored, so each checkpoint costs one job's records.
type SQLiteStore struct {
	db *sql.DB
}

var _ Store = (*SQLiteStore)(nil)

// OpenSQLite opens or creates the database at path and its schema.
func OpenSQLite(path string) (*SQLiteStore, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating checkpoint directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	db.SetMaxOpenConns(1)

	s := &SQLiteStore{db: db}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

// Close releases the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS meta (
			id INTEGER PRIMARY KEY CHECK (id = 1),
			run_id TEXT NOT NULL,
			plan_digest TEXT NOT NULL,
			cursor INTEGER NOT NULL,
			completed_count INTEGER NOT NULL,
			total_count INTEGER NOT NULL,
			is_complete INTEGER NOT NULL,
			error_count INTEGER NOT NULL,
			updated_at TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS records (
			seq INTEGER PRIMARY KEY,
			subject_id TEXT NOT NULL,
			researcher_name TEXT NOT NULL,
			registry_id TEXT NOT NULL,
			aggregator_id TEXT NOT NULL,
			title TEXT NOT NULL,
			journal TEXT NOT NULL,
			publication_date TEXT NOT NULL,
			external_id TEXT NOT NULL,
			source TEXT NOT NULL,
			note TEXT NOT NULL,
			source_url TEXT NOT NULL
		)`,
	}
	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

func (s *SQLiteStore) Load(ctx context.Context) (*Checkpoint, error) {
	var (
		cp         Checkpoint
		isComplete int
		updatedAt  string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT run_id, plan_digest, cursor, completed_count, total_count, is_complete, error_count, updated_at
		 FROM meta WHERE id = 1`,
	).Scan(&cp.RunID, &cp.PlanDigest, &cp.Cursor,
		&cp.State.CompletedCount, &cp.State.TotalCount, &isComplete, &cp.State.ErrorCount, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading checkpoint meta: %w", err)
	}
	cp.State.IsComplete = isComplete != 0
	if t, err := time.Parse(time.RFC3339Nano, updatedAt); err == nil {
		cp.UpdatedAt = t
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT subject_id, researcher_name, registry_id, aggregator_id, title, journal,
		        publication_date, external_id, source, note, source_url
		 FROM records ORDER BY seq`)
	if err != nil {
		return nil, fmt.Errorf("reading checkpoint records: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var r types.PublicationRecord
		var source string
		if err := rows.Scan(&r.SubjectID, &r.ResearcherName, &r.RegistryID, &r.AggregatorID, &r.Title,
			&r.Journal, &r.PublicationDate, &r.ExternalID, &source, &r.Note, &r.SourceURL); err != nil {
			return nil, fmt.Errorf("scanning checkpoint record: %w", err)
		}
		r.Source = types.Source(source)
		cp.Records = append(cp.Records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading checkpoint records: %w", err)
	}
	return &cp, nil
}

func (s *SQLiteStore) Save(ctx context.Context, cp *Checkpoint) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	var storedRun string
	var stored int
	err = tx.QueryRowContext(ctx, `SELECT run_id FROM meta WHERE id = 1`).Scan(&storedRun)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("reading checkpoint meta: %w", err)
	}
	if err := tx.QueryRowContext(ctx, `SELECT count(*) FROM records`).Scan(&stored); err != nil {
		return fmt.Errorf("counting checkpoint records: %w", err)
	}

	// Records are append-only within a run. Anything else starts over.
	if storedRun != cp.RunID || stored > len(cp.Records) {
		if _, err := tx.ExecContext(ctx, `DELETE FROM records`); err != nil {
			return fmt.Errorf("clearing checkpoint records: %w", err)
		}
		stored = 0
	}

	if stored < len(cp.Records) {
		stmt, err := tx.PrepareContext(ctx,
			`INSERT INTO records (seq, subject_id, researcher_name, registry_id, aggregator_id, title, journal,
			                      publication_date, external_id, source, note, source_url)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("preparing insert: %w", err)
		}
		defer stmt.Close()

		for i := stored; i < len(cp.Records); i++ {
			r := cp.Records[i]
			if _, err := stmt.ExecContext(ctx, i, r.SubjectID, r.ResearcherName, r.RegistryID, r.AggregatorID,
				r.Title, r.Journal, r.PublicationDate, r.ExternalID, string(r.Source), r.Note, r.SourceURL); err != nil {
				return fmt.Errorf("inserting checkpoint record %d: %w", i, err)
			}
		}
	}

	isComplete := 0
	if cp.State.IsComplete {
		isComplete = 1
	}
	_, err = tx.ExecContext(ctx,
		`INSERT INTO meta (id, run_id, plan_digest, cursor, completed_count, total_count, is_complete, error_count, updated_at)
		 VALUES (1, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
			run_id=excluded.run_id, plan_digest=excluded.plan_digest, cursor=excluded.cursor,
			completed_count=excluded.completed_count, total_count=excluded.total_count,
			is_complete=excluded.is_complete, error_count=excluded.error_count, updated_at=excluded.updated_at`,
		cp.RunID, cp.PlanDigest, cp.Cursor, cp.State.CompletedCount, cp.State.TotalCount,
		isComplete, cp.State.ErrorCount, cp.UpdatedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("writing checkpoint meta: %w", err)
	}

	return tx.Commit()
}

func (s *SQLiteStore) Reset(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	for _, stmt := range []string{`DELETE FROM records`, `DELETE FROM meta`} {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("resetting checkpoint: %w", err)
		}
	}
	return tx.Commit()
}
