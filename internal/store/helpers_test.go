package store

import (
	"path/filepath"
	"testing"

	"github.com/roach88/qnorm/internal/ir"
	"github.com/roach88/qnorm/internal/pipeline"
)

// createTestStore opens a fresh store in a temp directory.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createTestRecord builds a record for a breakout query on fieldID.
func createTestRecord(id string, fieldID int64, seq int64) pipeline.Record {
	input := ir.IRObject{
		"type":  ir.IRString("query"),
		"query": ir.IRObject{"breakout": ir.IRInt(fieldID)},
	}
	output := ir.IRObject{
		"type":  ir.IRToken("query"),
		"query": ir.IRObject{"breakout": ir.IRArray{ir.Clause("field-id", ir.IRInt(fieldID))}},
	}
	return pipeline.Record{
		RequestID:     id,
		InputHash:     ir.MustMemoHash(input),
		OutputHash:    ir.MustQueryHash(output),
		Passes:        "normalize",
		Input:         input,
		Output:        output,
		QueryType:     "query",
		Seq:           seq,
		EngineVersion: ir.EngineVersion,
	}
}
