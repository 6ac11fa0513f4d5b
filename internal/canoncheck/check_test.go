package canoncheck

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/qnorm/internal/ir"
	"github.com/roach88/qnorm/internal/normalize"
)

func raw(tag string, args ...ir.IRValue) ir.IRArray {
	return append(ir.IRArray{ir.IRString(tag)}, args...)
}

func fid(id int64) ir.IRArray {
	return ir.Clause("field-id", ir.IRInt(id))
}

func q(inner ir.IRObject) ir.IRObject {
	return ir.IRObject{"query": inner}
}

func TestCheck_CanonicalQuery(t *testing.T) {
	query := ir.IRObject{
		"type":     ir.IRToken("query"),
		"database": ir.IRInt(1),
		"query": ir.IRObject{
			"source-table": ir.IRInt(2),
			"aggregation":  ir.IRArray{ir.IRNull{}, ir.Clause("sum", fid(3))},
			"breakout":     ir.IRArray{fid(4)},
			"filter":       ir.Clause("and", ir.Clause("=", fid(5), ir.IRInt(1)), ir.Clause("not", ir.Clause("is-null", fid(6)))),
			"expressions":  ir.IRObject{"Net Total": ir.Clause("+", fid(1), ir.IRInt(2))},
		},
	}

	result := Check(query)

	assert.True(t, result.IsCanonical, "violations: %v", result.Violations)
	assert.Empty(t, result.Violations)
}

func TestCheck_Violations(t *testing.T) {
	tests := []struct {
		name  string
		input ir.IRValue
		want  []string
	}{
		{
			name:  "not a mapping",
			input: ir.IRArray{},
			want:  []string{"query must be a mapping, got ir.IRArray"},
		},
		{
			name:  "string type",
			input: ir.IRObject{"type": ir.IRString("query")},
			want:  []string{"type: query type query is not a token"},
		},
		{
			name:  "non-canonical key",
			input: q(ir.IRObject{"sourceTable": ir.IRInt(1)}),
			want:  []string{`query.sourceTable: key "sourceTable" is not a canonical token`},
		},
		{
			name:  "string clause head",
			input: q(ir.IRObject{"order-by": ir.IRArray{raw("asc", fid(1))}}),
			want:  []string{`query.order-by[0]: clause tag "asc" is a string, not a token`},
		},
		{
			name:  "non-canonical token head",
			input: q(ir.IRObject{"order-by": ir.IRArray{ir.Clause("ASC", fid(1))}}),
			want:  []string{`query.order-by[0]: clause tag "ASC" is not canonical`},
		},
		{
			name:  "prunable entry",
			input: ir.IRObject{"database": ir.IRInt(1), "query": ir.IRObject{"limit": ir.IRNull{}}},
			want:  []string{"query: empty entry would be pruned"},
		},
		{
			name:  "implicit breakout field",
			input: q(ir.IRObject{"breakout": ir.IRArray{fid(1), ir.IRInt(2)}}),
			want:  []string{"query.breakout[1]: implicit field reference 2"},
		},
		{
			name:  "fields not a list",
			input: q(ir.IRObject{"fields": fid(1)}),
			want:  []string{"query.fields: not a list of field references"},
		},
		{
			name:  "aggregation not a list",
			input: q(ir.IRObject{"aggregation": ir.Clause("count")}),
			want:  []string{"query.aggregation: aggregation is not a list of clauses"},
		},
		{
			name:  "rows and implicit aggregation field",
			input: q(ir.IRObject{"aggregation": ir.IRArray{ir.Clause("rows"), ir.Clause("sum", ir.IRInt(3), ir.IRInt(4))}}),
			want: []string{
				"query.aggregation[0]: deprecated rows aggregation",
				"query.aggregation[1]: aggregation has 2 arguments, expected at most 1",
				"query.aggregation[1][1]: implicit field reference 3",
			},
		},
		{
			name:  "singleton compound and implicit comparison field",
			input: q(ir.IRObject{"filter": ir.Clause("or", ir.Clause("=", ir.IRInt(1), ir.IRInt(2)))}),
			want: []string{
				`query.filter: "or" with a single argument`,
				"query.filter[1][1]: implicit field reference 1",
			},
		},
		{
			name:  "unknown filter operators are not inspected",
			input: q(ir.IRObject{"filter": ir.Clause("segment", ir.IRInt(1))}),
			want:  []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Check(tt.input)
			assert.Equal(t, len(tt.want) == 0, result.IsCanonical)
			assert.Equal(t, tt.want, result.Violations)
		})
	}
}

func TestCheck_ExpressionNamesExempt(t *testing.T) {
	result := Check(q(ir.IRObject{"expressions": ir.IRObject{"My Expr": ir.Clause("+", fid(1), ir.IRInt(1))}}))
	assert.True(t, result.IsCanonical, "violations: %v", result.Violations)

	// Only the names directly under expressions are exempt.
	result = Check(q(ir.IRObject{"expressions": ir.IRObject{"x": ir.IRObject{"Bad Key": ir.IRInt(1)}}}))
	require.Len(t, result.Violations, 1)
	assert.Contains(t, result.Violations[0], `"Bad Key"`)
}

func TestCheck_NormalizedQueriesPass(t *testing.T) {
	corpus := []ir.IRValue{
		q(ir.IRObject{"aggregation": raw("count", ir.IRInt(10))}),
		q(ir.IRObject{"aggregation": ir.IRString("count")}),
		q(ir.IRObject{"aggregation": ir.IRArray{raw("rows"), raw("sum", ir.IRInt(2))}}),
		q(ir.IRObject{"breakout": ir.IRArray{ir.IRInt(10), ir.IRInt(20)}, "fields": ir.IRInt(3)}),
		q(ir.IRObject{"filter": raw("and", raw("=", ir.IRInt(100)))}),
		q(ir.IRObject{"filter": raw("AND", raw("startsWith", ir.IRInt(1), ir.IRString("a")), raw("Or", raw("isNull", ir.IRInt(2))))}),
		ir.IRObject{"Type": ir.IRString("QUERY"), "query": ir.IRObject{"sourceTable": ir.IRInt(1), "orderBy": ir.IRArray{raw("DESC", ir.IRInt(1))}, "limit": ir.IRNull{}}},
		ir.IRObject{"type": ir.IRString("native"), "native": ir.IRObject{"query": ir.IRString("SELECT 1")}},
	}

	for i, input := range corpus {
		before := Check(input)
		assert.False(t, before.IsCanonical, "corpus[%d] should need normalizing", i)

		out, err := normalize.Query(input)
		require.NoError(t, err, "corpus[%d]", i)

		after := Check(out)
		assert.True(t, after.IsCanonical, "corpus[%d] violations: %v", i, after.Violations)
	}
}
