// Package ir provides the value tree that query documents are expressed in.
//
// This package contains the value types and their encodings only. All other
// internal packages import ir; ir imports nothing internal.
//
// A query is an IRObject whose values are scalars, arrays and nested objects.
// An array whose first element is an atom (IRString or IRToken) is a clause:
// the head is the clause tag and the rest are its arguments.
//
// Key design constraints:
//   - Values are immutable once built; transforms allocate new trees
//   - Integers are int64 (IRInt) and kept distinct from decimals (IRFloat)
//     so that implicit field references can be recognized
//   - Opaque values (IRTimestamp) are never decomposed by tree walkers
//   - Object keys are plain strings; SortedKeys gives RFC 8785 order
package ir
