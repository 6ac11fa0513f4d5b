// Package decode reads query documents into ir values.
//
// Queries arrive as JSON (the wire form), YAML (hand-written fixtures) or
// CUE (queries assembled from shared definitions). Every decoder produces
// the same tree for the same document: integers as IRInt, other numbers as
// IRFloat, strings as IRString, and YAML timestamps as opaque IRTimestamp
// values that the normalizer never looks inside.
package decode
