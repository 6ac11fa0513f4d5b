package normalize

import (
	"github.com/roach88/qnorm/internal/ir"
)

// Prune removes map entries whose value is null or empty, bottom-up, so a
// map emptied by pruning is itself removed from its parent. Arrays are
// recursed into but their elements are never dropped; positions in a clause
// carry meaning.
//
// The root is always returned, even when it prunes to an empty map.
func Prune(v ir.IRValue) ir.IRValue {
	switch val := v.(type) {
	case nil:
		return ir.IRNull{}
	case ir.IRObject:
		out := make(ir.IRObject, len(val))
		for k, child := range val {
			pruned := Prune(child)
			if nonEmpty(pruned) {
				out[k] = pruned
			}
		}
		return out
	case ir.IRArray:
		out := make(ir.IRArray, len(val))
		for i, elem := range val {
			out[i] = Prune(elem)
		}
		return out
	default:
		return v
	}
}

// Empty reports whether Prune would drop a map entry holding v.
func Empty(v ir.IRValue) bool {
	return !nonEmpty(Prune(v))
}

// nonEmpty reports whether a pruned value is worth keeping.
func nonEmpty(v ir.IRValue) bool {
	switch val := v.(type) {
	case ir.IRObject:
		return len(val) > 0
	case ir.IRArray:
		for _, elem := range val {
			if !ir.IsNull(elem) {
				return true
			}
		}
		return false
	default:
		return !ir.IsNull(v)
	}
}
