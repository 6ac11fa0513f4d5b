package testutil

import (
	"fmt"
	"sync/atomic"
)

// SequentialIDGenerator yields "<prefix>-0001", "<prefix>-0002", ...
//
// Unlike pipeline.FixedGenerator it never runs out, which suits scenario
// files with an arbitrary number of cases.
//
// Thread-safety: safe for concurrent use. Under concurrency the IDs are
// unique but their assignment order follows the scheduler.
type SequentialIDGenerator struct {
	prefix string
	n      atomic.Int64
}

// NewSequentialIDGenerator creates a generator. An empty prefix means "req".
func NewSequentialIDGenerator(prefix string) *SequentialIDGenerator {
	if prefix == "" {
		prefix = "req"
	}
	return &SequentialIDGenerator{prefix: prefix}
}

// Generate returns the next ID.
func (g *SequentialIDGenerator) Generate() string {
	return fmt.Sprintf("%s-%04d", g.prefix, g.n.Add(1))
}
