package cli

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// checkResponse is CLIResponse with typed check data.
type checkResponse struct {
	Status string      `json:"status"`
	Data   CheckResult `json:"data"`
	Error  *struct {
		Code    string      `json:"code"`
		Message string      `json:"message"`
		Details CheckResult `json:"details"`
	} `json:"error"`
}

func executeCheck(t *testing.T, format, stdin string, args ...string) (string, error) {
	t.Helper()
	buf := &bytes.Buffer{}
	cmd := NewCheckCommand(&RootOptions{Format: format})
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

func TestCheckCanonical(t *testing.T) {
	dir := t.TempDir()
	path := writeQueryFile(t, dir, "canonical.json", breakoutCanonical)

	out, err := executeCheck(t, "text", "", path)
	require.NoError(t, err)
	assert.Equal(t, "\u2713 "+path+"\n", out)
}

func TestCheckNonCanonical(t *testing.T) {
	dir := t.TempDir()
	path := writeQueryFile(t, dir, "raw.json", breakoutQuery)

	out, err := executeCheck(t, "text", "", path)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "\u2717 "+path)
	assert.Contains(t, out, `key "source_table" is not a canonical token`)
	assert.Contains(t, out, "query.breakout: not a list of field references")
}

func TestCheckNormalizedOutputFromStdin(t *testing.T) {
	out, err := executeCheck(t, "text", breakoutCanonical+"\n", "-")
	require.NoError(t, err)
	assert.Equal(t, "\u2713 -\n", out)
}

func TestCheckJSON(t *testing.T) {
	dir := t.TempDir()
	good := writeQueryFile(t, dir, "good.json", breakoutCanonical)
	bad := writeQueryFile(t, dir, "bad.json", breakoutQuery)

	t.Run("all canonical", func(t *testing.T) {
		out, err := executeCheck(t, "json", "", good)
		require.NoError(t, err)

		var resp checkResponse
		require.NoError(t, json.Unmarshal([]byte(out), &resp))
		assert.Equal(t, "ok", resp.Status)
		assert.Equal(t, 1, resp.Data.Canonical)
		assert.Equal(t, 0, resp.Data.NonCanonical)
		require.Len(t, resp.Data.Files, 1)
		assert.True(t, resp.Data.Files[0].IsCanonical)
	})

	t.Run("mixed", func(t *testing.T) {
		out, err := executeCheck(t, "json", "", good, bad)
		require.Error(t, err)
		assert.Equal(t, ExitFailure, GetExitCode(err))

		var resp checkResponse
		require.NoError(t, json.Unmarshal([]byte(out), &resp))
		assert.Equal(t, "error", resp.Status)
		require.NotNil(t, resp.Error)
		assert.Equal(t, ErrCodeNotCanonical, resp.Error.Code)
		assert.Equal(t, 1, resp.Error.Details.Canonical)
		assert.Equal(t, 1, resp.Error.Details.NonCanonical)
		require.Len(t, resp.Error.Details.Files, 2)
		assert.Equal(t, bad, resp.Error.Details.Files[1].File)
		assert.NotEmpty(t, resp.Error.Details.Files[1].Violations)
	})
}

func TestCheckCollectsLoadErrors(t *testing.T) {
	dir := t.TempDir()
	bad := writeQueryFile(t, dir, "bad.json", `{"type": `)

	out, err := executeCheck(t, "json", "", bad, dir+"/missing.json")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))

	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeDecodeFailed, resp.Error.Code)

	details, ok := resp.Error.Details.([]any)
	require.True(t, ok)
	assert.Len(t, details, 2)
}
