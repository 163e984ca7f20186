// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package report renders the canonical record set as CSV and persists the
// run summary as JSON. Both files are replaced atomically, and the CSV
// always carries the full header even when there are no records.
package report

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/pdiddy/pubrecon/internal/atomicfile"
	"github.com/pdiddy/pubrecon/pkg/types"
)

// ErrHeaderMismatch is returned by Read when the file's header is not
// types.ReportColumns.
var ErrHeaderMismatch = errors.New("report header does not match the expected columns")

// Encode writes the header and one row per record to w.
func Encode(w io.Writer, records []types.PublicationRecord) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(types.ReportColumns); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	for i, r := range records {
		if err := cw.Write(r.Row()); err != nil {
			return fmt.Errorf("writing record %d: %w", i, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// Write replaces path with the CSV report.
func Write(path string, records []types.PublicationRecord) error {
	err := atomicfile.Write(path, func(w io.Writer) error {
		return Encode(w, records)
	})
	if err != nil {
		return fmt.Errorf("writing report %s: %w", path, err)
	}
	return nil
}

// SourcePath returns the per-source report path beside path, so
// output.csv becomes output_registry.csv for the registry.
func SourcePath(path string, src types.Source) string {
	ext := filepath.Ext(path)
	return strings.TrimSuffix(path, ext) + "_" + strings.ToLower(string(src)) + ext
}

// WriteBySource writes one report per source, at SourcePath, holding only
// that source's records. A source without records gets a header-only file.
func WriteBySource(path string, records []types.PublicationRecord, sources ...types.Source) error {
	for _, src := range sources {
		var subset []types.PublicationRecord
		for _, r := range records {
			if r.Source == src {
				subset = append(subset, r)
			}
		}
		if err := Write(SourcePath(path, src), subset); err != nil {
			return err
		}
	}
	return nil
}

// Decode reads a report produced by Encode.
func Decode(r io.Reader) ([]types.PublicationRecord, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = len(types.ReportColumns)

	header, err := cr.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("empty report: %w", ErrHeaderMismatch)
	}
	if err != nil {
		return nil, fmt.Errorf("reading header: %w", err)
	}
	if !slices.Equal(header, types.ReportColumns) {
		return nil, fmt.Errorf("%w: got %v", ErrHeaderMismatch, header)
	}

	var out []types.PublicationRecord
	for {
		row, err := cr.Read()
		if err == io.EOF {
			return out, nil
		}
		if err != nil {
			return nil, fmt.Errorf("reading row %d: %w", len(out)+1, err)
		}
		out = append(out, types.RecordFromRow(row))
	}
}

// Read loads the CSV report at path.
func Read(path string) ([]types.PublicationRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening report: %w", err)
	}
	defer f.Close()
	return Decode(f)
}

// WriteSummary replaces path with the JSON summary.
func WriteSummary(path string, s types.Summary) error {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding summary: %w", err)
	}
	if err := atomicfile.WriteBytes(path, append(data, '\n')); err != nil {
		return fmt.Errorf("writing summary %s: %w", path, err)
	}
	return nil
}

// ReadSummary loads the JSON summary at path.
func ReadSummary(path string) (types.Summary, error) {
	var s types.Summary
	data, err := os.ReadFile(path)
	if err != nil {
		return s, fmt.Errorf("reading summary: %w", err)
	}
	if err := json.Unmarshal(data, &s); err != nil {
		return s, fmt.Errorf("parsing summary %s: %w", path, err)
	}
	return s, nil
}
