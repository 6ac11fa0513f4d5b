package store

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/roach88/qnorm/internal/canoncheck"
	"github.com/roach88/qnorm/internal/ir"
	"github.com/roach88/qnorm/internal/normalize"
	"github.com/roach88/qnorm/internal/pipeline"
)

func newTestPipeline(s *Store, ids ...string) *pipeline.Pipeline {
	return pipeline.New(
		[]pipeline.Pass{normalize.New()},
		pipeline.WithRecorder(s),
		pipeline.WithIDGenerator(pipeline.NewFixedGenerator(ids...)),
		pipeline.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	)
}

func TestStoreAsRecorder(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")
	ctx := context.Background()
	input := ir.IRObject{
		"type":  ir.IRString("query"),
		"query": ir.IRObject{"breakout": ir.IRInt(10)},
	}

	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}

	first, err := newTestPipeline(s, "req-1").Process(ctx, input)
	if err != nil {
		t.Fatalf("Process() failed: %v", err)
	}
	if first.Cached {
		t.Fatal("first Process() should not be cached")
	}
	s.Close()

	// A reopened store still answers for the same input.
	s, err = Open(path)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer s.Close()

	second, err := newTestPipeline(s, "req-2").Process(ctx, input)
	if err != nil {
		t.Fatalf("second Process() failed: %v", err)
	}
	if !second.Cached {
		t.Error("second Process() should be served from the store")
	}
	if second.RequestID != "req-2" {
		t.Errorf("cached RequestID = %q, want req-2", second.RequestID)
	}
	if second.Seq != first.Seq {
		t.Errorf("cached Seq = %d, want %d", second.Seq, first.Seq)
	}
	if second.OutputHash != first.OutputHash {
		t.Errorf("cached OutputHash = %s, want %s", second.OutputHash, first.OutputHash)
	}
	if !ir.Equal(first.Output, second.Output) {
		t.Errorf("cached Output = %v, want %v", second.Output, first.Output)
	}
	if res := canoncheck.Check(second.Output); !res.IsCanonical {
		t.Errorf("cached Output is not canonical: %v", res.Violations)
	}

	rec, err := s.Read(ctx, "req-1")
	if err != nil {
		t.Fatalf("Read() failed: %v", err)
	}
	if rec.QueryType != "query" {
		t.Errorf("QueryType = %q, want query", rec.QueryType)
	}
	if h := ir.MustQueryHash(rec.Output); h != first.OutputHash {
		t.Errorf("stored output hash = %s, want %s", h, first.OutputHash)
	}
}

func TestStoreAsRecorder_NumberKinds(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	breakout := func(v ir.IRValue) ir.IRValue {
		return ir.IRObject{"type": ir.IRString("query"), "query": ir.IRObject{"breakout": ir.IRArray{v}}}
	}
	decimal := breakout(ir.IRFloat(10))
	integer := breakout(ir.IRInt(10))

	if _, err := newTestPipeline(s, "req-1").Process(ctx, decimal); err != nil {
		t.Fatalf("Process(decimal) failed: %v", err)
	}
	got, err := newTestPipeline(s, "req-2").Process(ctx, integer)
	if err != nil {
		t.Fatalf("Process(integer) failed: %v", err)
	}
	if got.Cached {
		t.Fatal("integer input must not reuse the decimal result")
	}
	want, err := normalize.Query(integer)
	if err != nil {
		t.Fatalf("normalize.Query() failed: %v", err)
	}
	if !ir.Equal(want, got.Output) {
		t.Errorf("Output = %v, want %v", got.Output, want)
	}

	// The decimal comes back as a decimal when served from the store.
	again, err := newTestPipeline(s, "req-3").Process(ctx, decimal)
	if err != nil {
		t.Fatalf("Process(decimal) again failed: %v", err)
	}
	if !again.Cached {
		t.Fatal("repeated decimal input should be served from the store")
	}
	wantDecimal, err := normalize.Query(decimal)
	if err != nil {
		t.Fatalf("normalize.Query() failed: %v", err)
	}
	if !ir.Equal(wantDecimal, again.Output) {
		t.Errorf("cached Output = %v, want %v", again.Output, wantDecimal)
	}
}
