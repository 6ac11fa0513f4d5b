package normalize

import (
	"github.com/roach88/qnorm/internal/ir"
)

// OverrideFunc takes ownership of the node at a registered path.
//
// It receives a Walker bound to the normalizer so it can fall back to the
// default rules for the node itself (Descend) or walk a child with the full
// rules, overrides included (Walk).
type OverrideFunc func(w Walker, v ir.IRValue, path Path) (ir.IRValue, error)

// Walker exposes the tokenization walk to override functions.
type Walker struct {
	n *Normalizer
}

// Walk tokenizes v at path, consulting the override table first.
func (w Walker) Walk(v ir.IRValue, path Path) (ir.IRValue, error) {
	return w.n.tokenize(v, path)
}

// Descend applies the default rules to v without consulting the override
// table for path itself. Children are walked normally.
func (w Walker) Descend(v ir.IRValue, path Path) (ir.IRValue, error) {
	return w.n.tokenizeDefault(v, path)
}

// Token canonicalizes a single name with the normalizer's canonicalizer.
func (w Walker) Token(s string) ir.IRToken {
	return ir.IRToken(w.n.tokenFn(s))
}

// defaultOverrides returns the override table every Normalizer starts with.
// The returned map is fresh and owned by the caller.
func defaultOverrides() map[string]OverrideFunc {
	return map[string]OverrideFunc{
		Path{"type"}.tableKey():                 tokenizeQueryType,
		Path{"query", "aggregation"}.tableKey(): tokenizeAggregation,
		Path{"query", "expressions"}.tableKey(): tokenizeExpressions,
	}
}

// tokenizeQueryType handles the root type marker ("query" or "native").
func tokenizeQueryType(w Walker, v ir.IRValue, path Path) (ir.IRValue, error) {
	if ir.IsNull(v) {
		return ir.IRNull{}, nil
	}
	s, ok := ir.AtomString(v)
	if !ok {
		return nil, malformed(path, "query type must be a name, got %s", describe(v))
	}
	return w.Token(s), nil
}

// tokenizeAggregation accepts the shorthand `aggregation: count`.
func tokenizeAggregation(w Walker, v ir.IRValue, path Path) (ir.IRValue, error) {
	if s, ok := ir.AtomString(v); ok {
		return w.Token(s), nil
	}
	return w.Descend(v, path)
}

// tokenizeExpressions keeps user-chosen expression names verbatim and
// tokenizes only the defining clauses.
func tokenizeExpressions(w Walker, v ir.IRValue, path Path) (ir.IRValue, error) {
	if ir.IsNull(v) {
		return ir.IRNull{}, nil
	}
	exprs, ok := v.(ir.IRObject)
	if !ok {
		return nil, malformed(path, "expressions must be a mapping, got %s", describe(v))
	}
	out := make(ir.IRObject, len(exprs))
	for name, body := range exprs {
		tok, err := w.Walk(body, path.Key(name))
		if err != nil {
			return nil, err
		}
		out[name] = tok
	}
	return out, nil
}

// Tokenize rewrites every map key and clause tag in v to a canonical token.
//
// String values in argument positions are left alone: a string literal in a
// filter is data, not a name.
func (n *Normalizer) Tokenize(v ir.IRValue) (ir.IRValue, error) {
	return n.tokenize(v, nil)
}

func (n *Normalizer) tokenize(v ir.IRValue, path Path) (ir.IRValue, error) {
	if fn, ok := n.overrides[path.tableKey()]; ok {
		return fn(Walker{n: n}, v, path)
	}
	return n.tokenizeDefault(v, path)
}

func (n *Normalizer) tokenizeDefault(v ir.IRValue, path Path) (ir.IRValue, error) {
	switch val := v.(type) {
	case nil:
		return ir.IRNull{}, nil
	case ir.IRTimestamp:
		return val, nil
	case ir.IRObject:
		return n.tokenizeObject(val, path)
	case ir.IRArray:
		if len(val) > 0 {
			if head, ok := ir.AtomString(val[0]); ok {
				return n.tokenizeClause(head, val[1:], path)
			}
		}
		out := make(ir.IRArray, len(val))
		for i, elem := range val {
			tok, err := n.tokenize(elem, path)
			if err != nil {
				return nil, err
			}
			out[i] = tok
		}
		return out, nil
	default:
		return v, nil
	}
}

func (n *Normalizer) tokenizeObject(obj ir.IRObject, path Path) (ir.IRValue, error) {
	out := make(ir.IRObject, len(obj))
	origin := make(map[string]string, len(obj))
	// Sorted so that a duplicate-key error names the same pair every time.
	for _, key := range obj.SortedKeys() {
		canon := n.tokenFn(key)
		if prev, dup := origin[canon]; dup {
			return nil, malformed(path, "keys %q and %q both normalize to %q", prev, key, canon)
		}
		origin[canon] = key

		tok, err := n.tokenize(obj[key], path.Key(canon))
		if err != nil {
			return nil, err
		}
		out[canon] = tok
	}
	return out, nil
}

func (n *Normalizer) tokenizeClause(head string, args ir.IRArray, path Path) (ir.IRValue, error) {
	out := make(ir.IRArray, 1, len(args)+1)
	out[0] = ir.IRToken(n.tokenFn(head))
	for _, arg := range args {
		tok, err := n.tokenize(arg, path)
		if err != nil {
			return nil, err
		}
		out = append(out, tok)
	}
	return out, nil
}
