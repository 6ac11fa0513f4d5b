// Package pipeline runs query processing passes and records their results.
//
// A Pipeline applies an ordered list of passes to each incoming query. The
// normalizer is the first pass and, in this repository, usually the only
// one; later passes see canonical input.
//
// ARCHITECTURE:
//
// Each Process call:
//  1. Gets a request ID from the RequestIDGenerator (UUIDv7 in production)
//  2. Hashes the raw input with ir.MemoHash, which keeps value kinds apart
//     (IRInt(10) and IRFloat(10) normalize differently, so they must not
//     share a key)
//  3. Asks the Recorder for an earlier result with the same input hash and
//     pass list, and returns it if found
//  4. Applies the passes in order, stopping at the first error
//  5. Stamps the result with the next Clock seq, hashes the output with
//     ir.QueryHash and hands the record to the Recorder
//
// The logical clock orders records. Wall-clock time is never used for
// ordering.
//
// Errors are local to one request: a failed Process call records nothing
// and leaves no state behind, so the next call is unaffected.
package pipeline
