// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package report

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/pubrecon/pkg/types"
)

const header = "cedula,nombre_profesor,orcid_profesor,scholar_id,title,journal,date,doi,source,note,url_source"

func sampleRecords() []types.PublicationRecord {
	return []types.PublicationRecord{
		{
			SubjectID: "1001", ResearcherName: "Jane Doe", RegistryID: "0000-0002-1825-0097",
			Title: "Graph Theory Basics", Journal: "Journal of Graphs", PublicationDate: "2020-05-14",
			ExternalID: "10.1000/graph", Source: types.SourceRegistry, SourceURL: "https://doi.org/10.1000/graph",
		},
		{
			SubjectID: "1001", ResearcherName: "Jane Doe", RegistryID: "0000-0002-1825-0097",
			Title: "Commas, \"Quotes\", and more", Journal: types.JournalNotFound,
			ExternalID: types.ExternalIDNotFound, Source: types.SourceRegistry,
		},
		{
			SubjectID: "1002", RegistryID: "0000-0001-5109-3700",
			Source: types.SourceRegistry, Note: types.NoteNoWorksFound,
		},
		{
			SubjectID: "1001", ResearcherName: "J. Doe", AggregatorID: "abc123",
			Title: "Scholar Only", Journal: "Workshop", PublicationDate: "2019",
			ExternalID: "abc123:xyz", Source: types.SourceAggregator,
		},
	}
}

func TestEncodeHeaderOnly(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, nil))
	assert.Equal(t, header+"\n", buf.String())
}

func TestWriteHeaderOnlyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "output.csv")
	require.NoError(t, Write(path, nil))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, header+"\n", string(data))

	got, err := Read(path)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "output.csv")
	want := sampleRecords()
	require.NoError(t, Write(path, want))

	got, err := Read(path)
	require.NoError(t, err)
	assert.Equal(t, want, got)

	// The identity pairs survive, which is what downstream consumers join on.
	pairs := func(rs []types.PublicationRecord) []string {
		var out []string
		for _, r := range rs {
			if r.RegistryID != "" && r.Title != "" {
				out = append(out, "R|"+r.RegistryID+"|"+r.Title)
			}
			if r.AggregatorID != "" && r.Title != "" {
				out = append(out, "A|"+r.AggregatorID+"|"+r.Title)
			}
		}
		return out
	}
	assert.Equal(t, pairs(want), pairs(got))
}

func TestDecodeRejectsWrongHeader(t *testing.T) {
	_, err := Decode(strings.NewReader("a,b,c,d,e,f,g,h,i,j,k\n"))
	assert.ErrorIs(t, err, ErrHeaderMismatch)

	_, err = Decode(strings.NewReader(""))
	assert.ErrorIs(t, err, ErrHeaderMismatch)

	_, err = Decode(strings.NewReader(header + "\nonly,three,fields\n"))
	assert.Error(t, err)
}

func TestSummaryRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "summary.json")
	want := types.Summary{
		Complete: false, Index: 3, TotalUsers: 5, TotalJobs: 10, ProcessedRecords: 42, Errors: 1,
		Sources: map[types.Source]types.SourceProgress{
			types.SourceRegistry:   {Complete: true, Index: 5, Total: 5},
			types.SourceAggregator: {Total: 5},
		},
	}
	require.NoError(t, WriteSummary(path, want))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var raw map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))
	for _, key := range []string{"complete", "index", "total_users", "total_jobs", "processed_records", "errors", "sources"} {
		assert.Contains(t, raw, key)
	}

	got, err := ReadSummary(path)
	require.NoError(t, err)
	assert.Equal(t, want, got)

	_, err = ReadSummary(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}

func TestSourcePath(t *testing.T) {
	assert.Equal(t, "out/output_registry.csv", SourcePath("out/output.csv", types.SourceRegistry))
	assert.Equal(t, "report_aggregator", SourcePath("report", types.SourceAggregator))
}

func TestWriteBySource(t *testing.T) {
	path := filepath.Join(t.TempDir(), "output.csv")
	records := sampleRecords()
	require.NoError(t, WriteBySource(path, records, types.SourceRegistry, types.SourceAggregator))

	reg, err := Read(SourcePath(path, types.SourceRegistry))
	require.NoError(t, err)
	assert.Equal(t, records[:3], reg)

	agg, err := Read(SourcePath(path, types.SourceAggregator))
	require.NoError(t, err)
	require.Len(t, agg, 1)
	assert.Equal(t, "Scholar Only", agg[0].Title)

	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err), "the combined report is written separately")
}
