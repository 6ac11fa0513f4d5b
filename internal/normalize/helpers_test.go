package normalize

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/roach88/qnorm/internal/ir"
)

// raw builds a clause the way a decoder produces it: a string head.
func raw(tag string, args ...ir.IRValue) ir.IRArray {
	arr := ir.IRArray{ir.IRString(tag)}
	return append(arr, args...)
}

// c builds a clause with a canonical token head.
func c(tag string, args ...ir.IRValue) ir.IRArray {
	return ir.Clause(tag, args...)
}

func fid(id int64) ir.IRArray {
	return ir.Clause("field-id", ir.IRInt(id))
}

func q(inner ir.IRObject) ir.IRObject {
	return ir.IRObject{"query": inner}
}

func n(i int64) ir.IRInt { return ir.IRInt(i) }

func canonicalString(t *testing.T, v ir.IRValue) string {
	t.Helper()
	b, err := ir.MarshalCanonical(v)
	if err != nil {
		return "<" + err.Error() + ">"
	}
	return string(b)
}

// assertIR compares trees structurally, so a string head where a token head
// is expected fails even though both encode the same.
func assertIR(t *testing.T, want, got ir.IRValue) {
	t.Helper()
	assert.Truef(t, ir.Equal(want, got), "trees differ\nwant: %s\ngot:  %s",
		canonicalString(t, want), canonicalString(t, got))
}
