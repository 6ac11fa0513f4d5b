package store

import (
	"context"
	"testing"

	"github.com/roach88/qnorm/internal/ir"
)

func TestLookup(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	rec := createTestRecord("req-1", 10, 1)

	_, ok, err := s.Lookup(ctx, rec.InputHash, "normalize")
	if err != nil {
		t.Fatalf("Lookup() failed: %v", err)
	}
	if ok {
		t.Fatal("Lookup() found a record in an empty store")
	}

	if err := s.Write(ctx, rec); err != nil {
		t.Fatalf("Write() failed: %v", err)
	}

	got, ok, err := s.Lookup(ctx, rec.InputHash, "normalize")
	if err != nil {
		t.Fatalf("Lookup() failed: %v", err)
	}
	if !ok {
		t.Fatal("Lookup() missed a stored record")
	}
	if got.RequestID != "req-1" {
		t.Errorf("RequestID = %q, want req-1", got.RequestID)
	}

	_, ok, err = s.Lookup(ctx, rec.InputHash, "normalize/strict")
	if err != nil {
		t.Fatalf("Lookup() failed: %v", err)
	}
	if ok {
		t.Error("Lookup() must match the pass list too")
	}
}

func TestList_Order(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	// Written out of order; two records share seq 2.
	writes := []struct {
		id  string
		fid int64
		seq int64
	}{
		{"req-c", 3, 3},
		{"req-b", 2, 2},
		{"req-a", 1, 2},
		{"req-d", 4, 1},
	}
	for _, w := range writes {
		if err := s.Write(ctx, createTestRecord(w.id, w.fid, w.seq)); err != nil {
			t.Fatalf("Write() failed: %v", err)
		}
	}

	records, err := s.List(ctx, 0)
	if err != nil {
		t.Fatalf("List() failed: %v", err)
	}

	want := []string{"req-d", "req-a", "req-b", "req-c"}
	if len(records) != len(want) {
		t.Fatalf("got %d records, want %d", len(records), len(want))
	}
	for i, id := range want {
		if records[i].RequestID != id {
			t.Errorf("records[%d] = %s, want %s", i, records[i].RequestID, id)
		}
	}

	limited, err := s.List(ctx, 2)
	if err != nil {
		t.Fatalf("List(2) failed: %v", err)
	}
	if len(limited) != 2 || limited[1].RequestID != "req-a" {
		t.Errorf("List(2) = %v", limited)
	}
}

func TestList_Empty(t *testing.T) {
	s := createTestStore(t)

	records, err := s.List(context.Background(), 0)
	if err != nil {
		t.Fatalf("List() failed: %v", err)
	}
	if records == nil {
		t.Error("List() should return an empty slice, not nil")
	}
	if len(records) != 0 {
		t.Errorf("got %d records, want 0", len(records))
	}
}

func TestEquivalent(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	a := createTestRecord("req-1", 10, 1)
	// A different spelling of the same query.
	b := createTestRecord("req-2", 10, 2)
	b.Input = ir.IRObject{"TYPE": ir.IRString("QUERY"), "query": ir.IRObject{"breakout": ir.IRArray{ir.IRInt(10)}}}
	b.InputHash = ir.MustMemoHash(b.Input)
	c := createTestRecord("req-3", 11, 3)

	if err := s.Write(ctx, a); err != nil {
		t.Fatalf("Write() failed: %v", err)
	}
	if err := s.Write(ctx, b); err != nil {
		t.Fatalf("Write() failed: %v", err)
	}
	if err := s.Write(ctx, c); err != nil {
		t.Fatalf("Write() failed: %v", err)
	}

	records, err := s.Equivalent(ctx, a.OutputHash)
	if err != nil {
		t.Fatalf("Equivalent() failed: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("got %d equivalent records, want 2", len(records))
	}
	if records[0].RequestID != "req-1" || records[1].RequestID != "req-2" {
		t.Errorf("unexpected records: %s, %s", records[0].RequestID, records[1].RequestID)
	}
}
