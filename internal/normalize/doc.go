// Package normalize turns a raw query tree into its canonical form.
//
// Normalization is a fixed pipeline of three stages, each consuming the
// previous stage's output:
//
//	Tokenize      every map key and clause tag becomes a canonical token,
//	              with path-scoped overrides for [type], [query aggregation]
//	              and [query expressions]
//	Canonicalize  aggregation, breakout, fields and filter clauses of the
//	              inner query are rewritten to a single canonical shape
//	Prune         map entries holding null or empty values are removed
//
// Normalize(q) = Prune(Canonicalize(Tokenize(q))).
//
// A Normalizer holds no mutable state and is safe for concurrent use. No
// stage mutates its input. Tokenize and Prune allocate a fresh tree; the
// subtrees Canonicalize leaves alone are shared with its input.
//
// The engine reshapes syntax only. It does not check that referenced fields
// exist or that argument types make sense.
package normalize
