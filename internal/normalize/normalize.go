package normalize

import (
	"context"

	"github.com/roach88/qnorm/internal/ir"
	"github.com/roach88/qnorm/internal/token"
)

// Normalizer runs the three normalization stages.
// It is immutable after New and safe for concurrent use.
type Normalizer struct {
	tokenFn       func(string) string
	overrides     map[string]OverrideFunc
	strictFilters bool
}

// Option configures a Normalizer.
type Option func(*Normalizer)

// WithStrictFilters rejects filter clauses whose operator is not one the
// canonicalizer knows. Without it such clauses pass through unchanged.
func WithStrictFilters() Option {
	return func(n *Normalizer) {
		n.strictFilters = true
	}
}

// WithTokenCanonicalizer replaces token.Canonicalize for keys and clause tags.
// fn must be idempotent or Normalize will not be.
func WithTokenCanonicalizer(fn func(string) string) Option {
	return func(n *Normalizer) {
		if fn != nil {
			n.tokenFn = fn
		}
	}
}

// WithOverride registers fn for the node at path, replacing any default
// override there. Path elements are canonical keys.
func WithOverride(path []string, fn OverrideFunc) Option {
	return func(n *Normalizer) {
		n.overrides[Path(path).tableKey()] = fn
	}
}

// New creates a Normalizer with the default override table.
func New(opts ...Option) *Normalizer {
	n := &Normalizer{
		tokenFn:   token.Canonicalize,
		overrides: defaultOverrides(),
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Normalize returns the canonical form of a raw query:
// Prune(Canonicalize(Tokenize(v))).
//
// The result is a fresh tree. Normalizing a normalized query returns an
// equal query.
func (n *Normalizer) Normalize(v ir.IRValue) (ir.IRValue, error) {
	tokenized, err := n.Tokenize(v)
	if err != nil {
		return nil, err
	}
	canon, err := n.Canonicalize(tokenized)
	if err != nil {
		return nil, err
	}
	return Prune(canon), nil
}

// Name identifies the normalizer when it runs as a pipeline pass. Strict
// and lenient normalizers get different names because their results differ.
func (n *Normalizer) Name() string {
	if n.strictFilters {
		return "normalize/strict"
	}
	return "normalize"
}

// Apply runs Normalize as a pipeline pass.
func (n *Normalizer) Apply(ctx context.Context, v ir.IRValue) (ir.IRValue, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return n.Normalize(v)
}

var defaultNormalizer = New()

// Query normalizes v with the default configuration.
func Query(v ir.IRValue) (ir.IRValue, error) {
	return defaultNormalizer.Normalize(v)
}
