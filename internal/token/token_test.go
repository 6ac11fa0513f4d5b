package token

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/roach88/qnorm/internal/ir"
)

func TestCanonicalize(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"STARTS_WITH", "starts-with"},
		{"startsWith", "starts-with"},
		{"starts-with", "starts-with"},
		{"starts_with", "starts-with"},
		{"Starts With", "starts-with"},
		{"StartsWith", "starts-with"},
		{"count", "count"},
		{"COUNT", "count"},
		{"field_id", "field-id"},
		{"fieldId", "field-id"},
		{"FieldID", "field-id"},
		{"FIELD-ID", "field-id"},
		{"order_by", "order-by"},
		{"orderBy", "order-by"},
		{"HTTPServer", "http-server"},
		{"doesNotContain", "does-not-contain"},
		{"is__null", "is-null"},
		{"_private_", "private"},
		{"sum2Where", "sum2-where"},
		{"=", "="},
		{"!=", "!="},
		{"<=", "<="},
		{"-", "-"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, Canonicalize(tt.input))
		})
	}
}

func TestCanonicalizeIdempotent(t *testing.T) {
	inputs := []string{
		"STARTS_WITH", "startsWith", "HTTPServer", "a  b", "Time Interval",
		"NOT_NULL", "x", "caf\u00e9Bar", "cafe\u0301", "--", "\u00c0BC_d\u00e9f",
	}

	for _, in := range inputs {
		once := Canonicalize(in)
		assert.Equal(t, once, Canonicalize(once), "input %q", in)
	}
}

func TestCanonicalizeNFC(t *testing.T) {
	assert.Equal(t, Canonicalize("caf\u00E9"), Canonicalize("cafe\u0301"))
}

func TestFromValue(t *testing.T) {
	tok, ok := FromValue(ir.IRString("isNull"))
	assert.True(t, ok)
	assert.Equal(t, ir.IRToken("is-null"), tok)

	tok, ok = FromValue(ir.IRToken("IS_NULL"))
	assert.True(t, ok)
	assert.Equal(t, ir.IRToken("is-null"), tok)

	_, ok = FromValue(ir.IRInt(1))
	assert.False(t, ok)
}

func TestIsCanonical(t *testing.T) {
	assert.True(t, IsCanonical("field-id"))
	assert.True(t, IsCanonical("="))
	assert.False(t, IsCanonical("fieldId"))
	assert.False(t, IsCanonical("FIELD_ID"))
	assert.False(t, IsCanonical(""))
}

func TestCanonicalizeConcurrent(t *testing.T) {
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				assert.Equal(t, "starts-with", Canonicalize("startsWith"))
			}
		}()
	}
	wg.Wait()
}
