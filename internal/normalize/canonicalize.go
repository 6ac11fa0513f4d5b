package normalize

import (
	"github.com/roach88/qnorm/internal/ir"
)

// Clause tags the canonicalizer recognizes, in canonical token form.
const (
	tagFieldID = "field-id"
	tagRows    = "rows"
	tagAnd     = "and"
	tagOr      = "or"
	tagNot     = "not"
)

// Keys of the inner query that the canonicalizer rewrites.
const (
	keyQuery       = "query"
	keyAggregation = "aggregation"
	keyBreakout    = "breakout"
	keyFields      = "fields"
	keyFilter      = "filter"
)

// comparisonOps take a field reference as their first argument.
var comparisonOps = map[string]bool{
	"=":                true,
	"!=":               true,
	"<":                true,
	"<=":               true,
	">":                true,
	">=":               true,
	"is-null":          true,
	"not-null":         true,
	"between":          true,
	"inside":           true,
	"starts-with":      true,
	"ends-with":        true,
	"contains":         true,
	"does-not-contain": true,
	"time-interval":    true,
}

// IsComparisonOperator reports whether tag (in canonical form) is a filter
// operator whose first argument is a field reference.
func IsComparisonOperator(tag string) bool {
	return comparisonOps[tag]
}

// IsCompoundOperator reports whether tag is and, or or not.
func IsCompoundOperator(tag string) bool {
	return tag == tagAnd || tag == tagOr || tag == tagNot
}

// WrapImplicitFieldID turns a bare integer field reference into an explicit
// [field-id, n] clause. Any other value is returned unchanged.
func WrapImplicitFieldID(v ir.IRValue) ir.IRValue {
	if id, ok := v.(ir.IRInt); ok {
		return ir.IRArray{ir.IRToken(tagFieldID), id}
	}
	return v
}

// canonical is the result of canonicalizing one aggregation subclause.
// An absent clause carries no value; the caller decides how to encode it.
type canonical struct {
	value  ir.IRValue
	absent bool
}

func present(v ir.IRValue) canonical { return canonical{value: v} }

var absent = canonical{absent: true}

// Canonicalize rewrites the clause families of the inner query into their
// canonical shapes. Everything outside aggregation, breakout, fields and
// filter is passed through as-is, and so is a missing or null inner query.
//
// Untouched subtrees are shared with v. Neither tree is modified.
func (n *Normalizer) Canonicalize(v ir.IRValue) (ir.IRValue, error) {
	root, ok := v.(ir.IRObject)
	if !ok {
		return nil, malformed(nil, "query must be a mapping, got %s", describe(v))
	}
	out := shallowCopy(root)

	raw, ok := root[keyQuery]
	if !ok || ir.IsNull(raw) {
		return out, nil
	}
	inner, ok := raw.(ir.IRObject)
	if !ok {
		return nil, malformed(Path{keyQuery}, "inner query must be a mapping, got %s", describe(raw))
	}

	canon, err := n.canonicalizeInner(inner, Path{keyQuery})
	if err != nil {
		return nil, err
	}
	out[keyQuery] = canon
	return out, nil
}

func (n *Normalizer) canonicalizeInner(inner ir.IRObject, path Path) (ir.IRObject, error) {
	out := shallowCopy(inner)

	families := []struct {
		key string
		fn  func(ir.IRValue, Path) (ir.IRValue, error)
	}{
		{keyAggregation, n.canonicalizeAggregation},
		{keyBreakout, n.canonicalizeFieldList},
		{keyFields, n.canonicalizeFieldList},
		{keyFilter, n.canonicalizeFilter},
	}
	for _, f := range families {
		raw, ok := inner[f.key]
		if !ok || ir.IsNull(raw) {
			continue
		}
		canon, err := f.fn(raw, path.Key(f.key))
		if err != nil {
			return nil, err
		}
		out[f.key] = canon
	}
	return out, nil
}

// canonicalizeAggregation produces a list of [agg-type, field] subclauses,
// or null when every subclause is absent.
func (n *Normalizer) canonicalizeAggregation(raw ir.IRValue, path Path) (ir.IRValue, error) {
	var subclauses ir.IRArray
	switch {
	case ir.IsAtom(raw):
		subclauses = ir.IRArray{ir.IRArray{raw}}
	case isClause(raw):
		subclauses = ir.IRArray{raw}
	default:
		arr, ok := raw.(ir.IRArray)
		if !ok {
			return nil, malformed(path, "aggregation must be a name, a clause or a list of clauses, got %s", describe(raw))
		}
		subclauses = arr
	}

	out := make(ir.IRArray, len(subclauses))
	allAbsent := true
	for i, sub := range subclauses {
		c, err := n.canonicalizeAggregationClause(sub, path.Index(i))
		if err != nil {
			return nil, err
		}
		if c.absent {
			out[i] = ir.IRNull{}
			continue
		}
		allAbsent = false
		out[i] = c.value
	}
	if allAbsent {
		return ir.IRNull{}, nil
	}
	return out, nil
}

func (n *Normalizer) canonicalizeAggregationClause(sub ir.IRValue, path Path) (canonical, error) {
	if ir.IsNull(sub) {
		return absent, nil
	}
	clause, ok := sub.(ir.IRArray)
	if !ok || len(clause) == 0 {
		return canonical{}, malformed(path, "aggregation clause must be a non-empty clause, got %s", describe(sub))
	}
	tag, ok := n.tag(clause[0])
	if !ok {
		return canonical{}, malformed(path, "aggregation clause must start with a name, got %s", describe(clause[0]))
	}

	switch {
	case tag == tagRows:
		return absent, nil
	case len(clause) >= 2:
		return present(ir.IRArray{clause[0], WrapImplicitFieldID(clause[1])}), nil
	default:
		return present(clause), nil
	}
}

// canonicalizeFieldList wraps every element of a breakout or fields list.
func (n *Normalizer) canonicalizeFieldList(raw ir.IRValue, path Path) (ir.IRValue, error) {
	var fields ir.IRArray
	switch val := raw.(type) {
	case ir.IRInt:
		fields = ir.IRArray{val}
	case ir.IRArray:
		if isClause(val) {
			fields = ir.IRArray{val}
		} else {
			fields = val
		}
	default:
		return nil, malformed(path, "%s must be a list of field references, got %s", path[len(path)-1], describe(raw))
	}

	out := make(ir.IRArray, len(fields))
	for i, f := range fields {
		out[i] = WrapImplicitFieldID(f)
	}
	return out, nil
}

// canonicalizeFilter rewrites a filter clause tree. Single-argument and/or
// compounds collapse into their argument and comparison operators get an
// explicit field reference.
func (n *Normalizer) canonicalizeFilter(raw ir.IRValue, path Path) (ir.IRValue, error) {
	clause, ok := raw.(ir.IRArray)
	if !ok || len(clause) == 0 {
		return nil, malformed(path, "filter must be a non-empty clause, got %s", describe(raw))
	}
	tag, ok := n.tag(clause[0])
	if !ok {
		return nil, malformed(path, "filter clause must start with an operator, got %s", describe(clause[0]))
	}
	args := clause[1:]

	switch {
	case IsCompoundOperator(tag):
		if len(args) == 0 {
			return nil, malformed(path, "%q filter needs at least one argument", tag)
		}
		if len(args) == 1 && tag != tagNot {
			return n.canonicalizeFilter(args[0], path.Index(1))
		}
		out := make(ir.IRArray, 1, len(clause))
		out[0] = clause[0]
		for i, arg := range args {
			canon, err := n.canonicalizeFilter(arg, path.Index(i+1))
			if err != nil {
				return nil, err
			}
			out = append(out, canon)
		}
		return out, nil

	case comparisonOps[tag]:
		if len(args) == 0 {
			return nil, malformed(path, "%q filter needs a field reference", tag)
		}
		out := make(ir.IRArray, 0, len(clause))
		out = append(out, clause[0], WrapImplicitFieldID(args[0]))
		return append(out, args[1:]...), nil

	default:
		if n.strictFilters {
			return nil, unsupportedFilter(path, tag)
		}
		return clause, nil
	}
}

// canonicalizeOrderBy is where order-by canonicalization will live. It is
// the identity for now and Canonicalize does not call it.
func canonicalizeOrderBy(v ir.IRValue) ir.IRValue {
	return v
}

// tag returns the canonical form of a clause head.
func (n *Normalizer) tag(v ir.IRValue) (string, bool) {
	s, ok := ir.AtomString(v)
	if !ok {
		return "", false
	}
	return n.tokenFn(s), true
}

// isClause reports whether v is a non-empty array headed by a name.
func isClause(v ir.IRValue) bool {
	_, ok := ir.ClauseHead(v)
	return ok
}

func shallowCopy(obj ir.IRObject) ir.IRObject {
	out := make(ir.IRObject, len(obj))
	for k, v := range obj {
		out[k] = v
	}
	return out
}
