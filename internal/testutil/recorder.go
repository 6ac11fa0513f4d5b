package testutil

import (
	"context"
	"sort"
	"sync"

	"github.com/roach88/qnorm/internal/pipeline"
)

// MemoryRecorder is an in-memory pipeline.Recorder.
//
// Thread-safety: safe for concurrent use.
type MemoryRecorder struct {
	mu      sync.Mutex
	records map[string]pipeline.Record
	writes  int
	lookups int
}

// NewMemoryRecorder creates an empty recorder.
func NewMemoryRecorder() *MemoryRecorder {
	return &MemoryRecorder{records: make(map[string]pipeline.Record)}
}

func recordKey(inputHash, passes string) string {
	return inputHash + "\x00" + passes
}

// Lookup implements pipeline.Recorder.
func (r *MemoryRecorder) Lookup(_ context.Context, inputHash, passes string) (pipeline.Record, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lookups++
	rec, ok := r.records[recordKey(inputHash, passes)]
	return rec, ok, nil
}

// Write implements pipeline.Recorder. Existing records are kept.
func (r *MemoryRecorder) Write(_ context.Context, rec pipeline.Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.writes++
	key := recordKey(rec.InputHash, rec.Passes)
	if _, exists := r.records[key]; !exists {
		r.records[key] = rec
	}
	return nil
}

// Records returns the stored records in seq order.
func (r *MemoryRecorder) Records() []pipeline.Record {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]pipeline.Record, 0, len(r.records))
	for _, rec := range r.records {
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Seq < out[j].Seq })
	return out
}

// Writes returns how many times Write was called, including no-op writes.
func (r *MemoryRecorder) Writes() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.writes
}

// Lookups returns how many times Lookup was called.
func (r *MemoryRecorder) Lookups() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lookups
}
