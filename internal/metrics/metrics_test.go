// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package metrics

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/pubrecon/internal/reconcile"
	"github.com/pdiddy/pubrecon/pkg/types"
)

var _ reconcile.Observer = (*Metrics)(nil)

func TestJobFinished(t *testing.T) {
	m := New()
	m.JobFinished(types.SourceRegistry, reconcile.StateRecorded, 2*time.Second)
	m.JobFinished(types.SourceRegistry, reconcile.StateRecorded, time.Second)
	m.JobFinished(types.SourceAggregator, reconcile.StateFailedRecorded, time.Second)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.JobsTotal.WithLabelValues("REGISTRY", reconcile.StateRecorded)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.JobsTotal.WithLabelValues("AGGREGATOR", reconcile.StateFailedRecorded)))
	assert.Equal(t, 2, testutil.CollectAndCount(m.JobDuration))
}

func TestRecordsAndDuplicates(t *testing.T) {
	m := New()
	m.RecordsAdded(types.SourceRegistry, 3)
	m.RecordsAdded(types.SourceRegistry, 2)
	m.DuplicatesDropped(types.SourceAggregator, "match", 4)
	m.DuplicatesDropped(types.SourceAggregator, "key", 1)

	assert.Equal(t, 5.0, testutil.ToFloat64(m.Records.WithLabelValues("REGISTRY")))
	assert.Equal(t, 4.0, testutil.ToFloat64(m.Duplicates.WithLabelValues("AGGREGATOR", "match")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Duplicates.WithLabelValues("AGGREGATOR", "key")))
}

func TestRegistriesAreIndependent(t *testing.T) {
	a, b := New(), New()
	a.RecordsAdded(types.SourceRegistry, 1)
	assert.Equal(t, 0.0, testutil.ToFloat64(b.Records.WithLabelValues("REGISTRY")))
}

func TestWriteTextfile(t *testing.T) {
	m := New()
	m.RunStarted("run-1", time.Unix(1700000000, 0))
	m.RecordsAdded(types.SourceRegistry, 7)

	path := filepath.Join(t.TempDir(), "pubrecon.prom")
	require.NoError(t, m.WriteTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	text := string(data)
	assert.Contains(t, text, `pubrecon_records_added_total{source="REGISTRY"} 7`)
	assert.Contains(t, text, `pubrecon_run_start_timestamp_seconds{run_id="run-1"}`)
	assert.True(t, strings.HasPrefix(text, "# HELP"))
}

func TestWriteTextfileBadPath(t *testing.T) {
	m := New()
	err := m.WriteTextfile(filepath.Join(t.TempDir(), "missing", "dir", "x.prom"))
	assert.Error(t, err)
}
