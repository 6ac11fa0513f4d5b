package harness

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/qnorm/internal/ir"
)

// Regenerate with: go test ./internal/harness -run TestRunWithGolden -update
func TestRunWithGolden(t *testing.T) {
	files, err := FindScenarioFiles("testdata/scenarios", "")
	require.NoError(t, err)

	for _, f := range files {
		name := strings.TrimSuffix(filepath.Base(f), filepath.Ext(f))
		t.Run(name, func(t *testing.T) {
			scenario, err := LoadScenario(f)
			require.NoError(t, err)
			require.NoError(t, RunWithGolden(t, scenario))
		})
	}
}

func TestAssertGolden(t *testing.T) {
	scenario, err := LoadScenario("testdata/scenarios/strict.yaml")
	require.NoError(t, err)

	result, err := Run(scenario)
	require.NoError(t, err)
	require.NoError(t, AssertGolden(t, scenario, result))
}

func TestSnapshot_Shape(t *testing.T) {
	scenario := &Scenario{Name: "shape", Strict: true}
	result := NewResult()
	result.AddTrace(TraceEvent{
		Case:       "ok",
		RequestID:  "case-0001",
		Seq:        1,
		OutputHash: "ignored",
		Output:     ir.IRObject{"type": ir.IRToken("query")},
	})
	result.AddTrace(TraceEvent{
		Case:      "again",
		RequestID: "case-0002",
		Seq:       1,
		Output:    ir.IRObject{"type": ir.IRToken("query")},
		Cached:    true,
	})
	result.AddTrace(TraceEvent{
		Case:      "bad",
		RequestID: "case-0003",
		ErrorCode: "MALFORMED_QUERY",
	})

	data, err := Snapshot(scenario, result)
	require.NoError(t, err)

	want := `{"scenario_name":"shape","strict":true,"trace":[` +
		`{"case":"ok","output":{"type":"query"},"request_id":"case-0001","seq":1},` +
		`{"cached":true,"case":"again","output":{"type":"query"},"request_id":"case-0002","seq":1},` +
		`{"case":"bad","error_code":"MALFORMED_QUERY","request_id":"case-0003"}]}`
	assert.Equal(t, want, string(data))
}
