// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package payload

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleDoc = `{
  "title": {"title": {"value": "Graph Theory Basics"}},
  "journal-title": null,
  "publication-date": {"year": {"value": "2020"}, "month": null},
  "external-ids": {"external-id": [{"external-id-value": "10.1000/xyz"}]},
  "publication_year": 2019,
  "score": 0.25,
  "flags": [true, "x"]
}`

func decodeSample(t *testing.T) Value {
	t.Helper()
	v, err := Decode([]byte(sampleDoc))
	require.NoError(t, err)
	return v
}

func TestGetAndString(t *testing.T) {
	v := decodeSample(t)

	tests := []struct {
		name string
		path Path
		want string
	}{
		{"nested map", P("title", "title", "value"), "Graph Theory Basics"},
		{"list index", P("external-ids", "external-id", 0, "external-id-value"), "10.1000/xyz"},
		{"integer number", P("publication_year"), "2019"},
		{"fractional number", P("score"), "0.25"},
		{"bool", P("flags", 0), "true"},
		{"missing key", P("title", "subtitle", "value"), ""},
		{"index out of range", P("external-ids", "external-id", 3), ""},
		{"negative index", P("flags", -1), ""},
		{"key into list", P("flags", "x"), ""},
		{"index into map", P("title", 0), ""},
		{"through null", P("journal-title", "value"), ""},
		{"map is not a scalar", P("title"), ""},
		{"unsupported path element", P(1.5), ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, v.At(tt.path).String())
			assert.Equal(t, tt.want, v.String(tt.path...))
		})
	}
}

func TestExistsAndIsNull(t *testing.T) {
	v := decodeSample(t)

	assert.True(t, v.Get("journal-title").Exists())
	assert.True(t, v.Get("journal-title").IsNull())
	assert.False(t, v.Get("journal").Exists())
	assert.False(t, v.Get("journal").IsNull())
	assert.True(t, v.Get("publication-date", "month").IsNull())
	assert.True(t, v.Get("title").IsMap())
	assert.False(t, Value{}.Exists())
}

func TestList(t *testing.T) {
	v := decodeSample(t)

	ids, ok := v.List("external-ids", "external-id")
	require.True(t, ok)
	require.Len(t, ids, 1)
	assert.Equal(t, "10.1000/xyz", ids[0].String("external-id-value"))

	_, ok = v.List("title")
	assert.False(t, ok, "a map is not a list")

	_, ok = v.List("missing")
	assert.False(t, ok)
}

func TestFirst(t *testing.T) {
	v := decodeSample(t)

	n, ok := v.First(P("journal-title"), P("missing"), P("title", "title", "value"))
	require.True(t, ok)
	assert.Equal(t, "Graph Theory Basics", n.String())

	_, ok = v.First(P("journal-title"), P("missing"))
	assert.False(t, ok, "null and absent nodes are skipped")
}

func TestOfGoValues(t *testing.T) {
	v := Of(map[string]any{
		"bib":  map[string]any{"title": "A", "pub_year": 2021.0},
		"list": []any{"a", "b"},
		"n":    7,
	})
	assert.Equal(t, "A", v.String("bib", "title"))
	assert.Equal(t, "2021", v.String("bib", "pub_year"))
	assert.Equal(t, "b", v.String("list", 1))
	assert.Equal(t, "7", v.String("n"))
}

func TestJSONRoundTrip(t *testing.T) {
	v := decodeSample(t)

	data, err := json.Marshal(v)
	require.NoError(t, err)

	var back Value
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, "2019", back.String("publication_year"))
	assert.True(t, back.Get("journal-title").IsNull())

	data, err = json.Marshal(Value{})
	require.NoError(t, err)
	assert.Equal(t, "null", string(data))
}

func TestDecodeInvalid(t *testing.T) {
	_, err := Decode([]byte("{not json"))
	assert.Error(t, err)
}
