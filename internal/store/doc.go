// Package store provides SQLite-backed history of processed queries.
//
// Every successful pipeline run is stored as one row in normalizations:
// the raw input and canonical output (both as RFC 8785 canonical JSON),
// their hashes, the pass list that produced the output and the logical
// clock seq. Store implements pipeline.Recorder, so a pipeline configured
// with a Store reuses earlier results instead of recomputing them.
//
// # Critical Patterns
//
// Idempotent writes
//   - UNIQUE(input_hash, passes) constraint
//   - Writing the same input through the same passes twice keeps the first row
//
// Logical time
//   - All ordering uses seq INTEGER (logical clock), never timestamps
//
// Deterministic reads
//   - All list queries use ORDER BY seq ASC, id COLLATE BINARY ASC
//   - Empty results are empty slices, not nil
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait up to 5s for locks
//   - Single open connection: SQLite allows one writer at a time
package store
