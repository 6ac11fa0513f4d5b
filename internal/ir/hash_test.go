package ir

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueryHashDeterminism(t *testing.T) {
	q := IRObject{
		"type":  IRToken("query"),
		"query": IRObject{"limit": IRInt(10), "breakout": IRArray{Clause("field-id", IRInt(1))}},
	}

	h1, err := QueryHash(q)
	require.NoError(t, err)
	h2, err := QueryHash(q)
	require.NoError(t, err)

	assert.Equal(t, h1, h2, "QueryHash must be deterministic")
	assert.Len(t, h1, 64, "SHA-256 hex is 64 characters")
}

func TestQueryHashChangesWithInput(t *testing.T) {
	a := MustQueryHash(IRObject{"limit": IRInt(10)})
	b := MustQueryHash(IRObject{"limit": IRInt(11)})
	c := MustQueryHash(IRObject{"limits": IRInt(10)})

	assert.NotEqual(t, a, b)
	assert.NotEqual(t, a, c)
}

func TestQueryHashKeyOrderIndependent(t *testing.T) {
	// Go map iteration is random; build the same object many times
	for i := 0; i < 20; i++ {
		obj := IRObject{}
		for _, k := range []string{"z", "m", "a", "q", "b"} {
			obj[k] = IRString(k)
		}
		assert.Equal(t, MustQueryHash(IRObject{"a": IRString("a"), "b": IRString("b"), "m": IRString("m"), "q": IRString("q"), "z": IRString("z")}), MustQueryHash(obj))
	}
}

func TestHashWithDomainSeparation(t *testing.T) {
	data := []byte(`{"a":1}`)
	assert.NotEqual(t, hashWithDomain("qnorm/query/v1", data), hashWithDomain("qnorm/query/v2", data))
}

func TestMemoHashDistinguishesKinds(t *testing.T) {
	breakout := func(v IRValue) IRValue {
		return IRObject{"query": IRObject{"breakout": IRArray{v}}}
	}
	ts := NewIRTimestamp(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))

	tests := []struct {
		name string
		a, b IRValue
	}{
		{"int and float", breakout(IRInt(10)), breakout(IRFloat(10))},
		{"string and token", breakout(IRString("count")), breakout(IRToken("count"))},
		{"timestamp and text", breakout(ts), breakout(IRString("2024-01-01T00:00:00Z"))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// The canonical encoding cannot tell these apart.
			assert.Equal(t, MustQueryHash(tt.a), MustQueryHash(tt.b))
			assert.NotEqual(t, MustMemoHash(tt.a), MustMemoHash(tt.b))
		})
	}
}

func TestMemoHashDeterminism(t *testing.T) {
	q := IRObject{"b": IRInt(1), "a": IRArray{IRToken("x"), IRFloat(1.5)}, "c": IRNull{}}
	assert.Equal(t, MustMemoHash(q), MustMemoHash(q))
	assert.Len(t, MustMemoHash(q), 64)
	assert.NotEqual(t, MustQueryHash(q), MustMemoHash(q), "domains are separate")
}

func TestMemoHashRejectsNaN(t *testing.T) {
	_, err := MemoHash(IRObject{"x": IRFloat(math.NaN())})
	assert.Error(t, err)
}
