// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package logging builds the run logger. Structured events go to the log
// file as JSON and to the terminal through a console writer.
package logging

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/pdiddy/pubrecon/pkg/types"
)

// ArchiveDir is the directory, next to the log file, that receives rotated logs.
const ArchiveDir = "logs"

// Setup returns a logger configured by cfg, writing to term and, when
// cfg.File is set, to that file. The returned closer releases the file.
// With cfg.Rotate an existing log file is archived first.
func Setup(cfg types.LogConfig, term io.Writer, now time.Time) (zerolog.Logger, io.Closer, error) {
	zerolog.TimeFieldFormat = time.RFC3339

	var sink io.Writer = term
	if strings.ToLower(cfg.Format) == "console" || strings.ToLower(cfg.Format) == "pretty" {
		sink = zerolog.ConsoleWriter{Out: term, TimeFormat: time.Kitchen}
	}

	var closer io.Closer = nopCloser{}
	if cfg.File != "" {
		if cfg.Rotate {
			if _, err := Rotate(cfg.File, now); err != nil {
				return zerolog.Nop(), nil, err
			}
		}
		if dir := filepath.Dir(cfg.File); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return zerolog.Nop(), nil, fmt.Errorf("creating log directory: %w", err)
			}
		}
		f, err := os.OpenFile(cfg.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return zerolog.Nop(), nil, fmt.Errorf("opening log file: %w", err)
		}
		sink = zerolog.MultiLevelWriter(f, sink)
		closer = f
	}

	logger := zerolog.New(sink).With().Timestamp().Logger().Level(ParseLevel(cfg.Level))
	return logger, closer, nil
}

// Rotate moves an existing, non-empty log file at path into the logs/
// directory beside it, stamped with now. It returns the archive path, or ""
// when there was nothing to rotate.
func Rotate(path string, now time.Time) (string, error) {
	info, err := os.Stat(path)
	if errors.Is(err, os.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("checking log file: %w", err)
	}
	if info.Size() == 0 {
		return "", nil
	}

	dir := filepath.Join(filepath.Dir(path), ArchiveDir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating log archive: %w", err)
	}
	ext := filepath.Ext(path)
	stem := strings.TrimSuffix(filepath.Base(path), ext)
	dest := filepath.Join(dir, fmt.Sprintf("%s_%s%s", stem, now.Format("20060102_150405"), ext))
	if err := os.Rename(path, dest); err != nil {
		return "", fmt.Errorf("rotating log file: %w", err)
	}
	return dest, nil
}

// ParseLevel converts a level name to a zerolog.Level, defaulting to info.
func ParseLevel(level string) zerolog.Level {
	switch strings.ToLower(level) {
	case "trace":
		return zerolog.TraceLevel
	case "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
