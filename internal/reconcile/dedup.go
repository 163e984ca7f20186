// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package reconcile

import (
	"github.com/pdiddy/pubrecon/pkg/types"
)

type recordKey struct {
	source types.Source
	id     string
	title  string
}

// keySet tracks the exact identity keys already present in a record set:
// (RegistryID, Title) and (AggregatorID, Title), each only when both parts
// are non-empty. Comparison is case-sensitive.
type keySet map[recordKey]struct{}

func keysOf(r types.PublicationRecord) []recordKey {
	if r.Title == "" {
		return nil
	}
	var keys []recordKey
	if r.RegistryID != "" {
		keys = append(keys, recordKey{types.SourceRegistry, r.RegistryID, r.Title})
	}
	if r.AggregatorID != "" {
		keys = append(keys, recordKey{types.SourceAggregator, r.AggregatorID, r.Title})
	}
	return keys
}

// seen reports whether any of r's keys is already in the set.
func (ks keySet) seen(r types.PublicationRecord) bool {
	for _, k := range keysOf(r) {
		if _, ok := ks[k]; ok {
			return true
		}
	}
	return false
}

func (ks keySet) add(r types.PublicationRecord) {
	for _, k := range keysOf(r) {
		ks[k] = struct{}{}
	}
}

// Dedup returns records with every record dropped whose exact identity key
// was already taken by an earlier one. Records without a key (diagnostics,
// or neither identifier set) are always kept. Order is preserved and
// Dedup(Dedup(r)) equals Dedup(r).
func Dedup(records []types.PublicationRecord) []types.PublicationRecord {
	ks := keySet{}
	out := make([]types.PublicationRecord, 0, len(records))
	for _, r := range records {
		if ks.seen(r) {
			continue
		}
		ks.add(r)
		out = append(out, r)
	}
	return out
}

// accumulator is the run's canonical record set. It only grows.
type accumulator struct {
	records []types.PublicationRecord
	keys    keySet
}

func newAccumulator(seed []types.PublicationRecord) *accumulator {
	a := &accumulator{keys: keySet{}}
	for _, r := range seed {
		a.keys.add(r)
	}
	a.records = append(a.records, seed...)
	return a
}

// append adds r unless its exact key is taken. It reports whether r was added.
func (a *accumulator) append(r types.PublicationRecord) bool {
	if a.keys.seen(r) {
		return false
	}
	a.keys.add(r)
	a.records = append(a.records, r)
	return true
}

func (a *accumulator) snapshot() []types.PublicationRecord {
	return append([]types.PublicationRecord(nil), a.records...)
}
