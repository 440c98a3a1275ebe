package memory

import (
	"context"
	"testing"

	"budget/internal/core"
	"budget/internal/ledger"
)

func TestSubscribeDeliversCurrentThenWrites(t *testing.T) {
	s := New()
	ctx := context.Background()

	var got []*ledger.Ledger
	unsub, err := s.Subscribe(ctx, "u1", func(l *ledger.Ledger) { got = append(got, l) })
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	if len(got) != 1 || got[0] != nil {
		t.Fatalf("expected one nil initial snapshot, got %v", got)
	}

	l := ledger.New()
	if _, err := l.CreateCategory(core.AnnualPeriod(2026), "Vacances", core.AmountFromInt(900)); err != nil {
		t.Fatal(err)
	}
	if err := s.Write(ctx, "u1", l); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := s.Write(ctx, "u2", ledger.New()); err != nil {
		t.Fatalf("write other user: %v", err)
	}

	if len(got) != 2 {
		t.Fatalf("expected 2 snapshots, got %d", len(got))
	}
	if cats := got[1].Categories(core.AnnualPeriod(2026)); len(cats) != 1 || cats[0].Name != "Vacances" {
		t.Fatalf("unexpected snapshot content: %+v", cats)
	}

	unsub()
	unsub()
	if n := s.Subscribers("u1"); n != 0 {
		t.Fatalf("expected no subscribers after unsubscribe, got %d", n)
	}
	if err := s.Write(ctx, "u1", ledger.New()); err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Fatalf("unsubscribed handler was called")
	}
}

func TestSubscribeToExistingDocument(t *testing.T) {
	s := New()
	ctx := context.Background()
	l := ledger.New()
	l.EnsurePeriod(core.MonthKey{Year: 2026, Month: 1})
	if err := s.Write(ctx, "u1", l); err != nil {
		t.Fatal(err)
	}

	var first *ledger.Ledger
	if _, err := s.Subscribe(ctx, "u1", func(l *ledger.Ledger) { first = l }); err != nil {
		t.Fatal(err)
	}
	if first == nil || !first.HasPeriod(core.MonthlyPeriod(core.MonthKey{Year: 2026, Month: 1})) {
		t.Fatalf("expected stored document as first snapshot")
	}
}

func TestClosed(t *testing.T) {
	s := New()
	s.Close()
	if _, err := s.Subscribe(context.Background(), "u", func(*ledger.Ledger) {}); err != ErrClosed {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
	if err := s.Write(context.Background(), "u", ledger.New()); err != ErrClosed {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
}
