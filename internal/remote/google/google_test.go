package google

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"budget/internal/core"
	"budget/internal/ledger"
)

// fakeValues is an in-memory sheet addressed by A1 ranges.
type fakeValues struct {
	mu      sync.Mutex
	rows    [][]interface{}
	getErr  error
	appends int
}

func (f *fakeValues) Get(_ context.Context, _ string) ([][]interface{}, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, f.getErr
	}
	out := make([][]interface{}, len(f.rows))
	for i, r := range f.rows {
		out[i] = append([]interface{}(nil), r...)
	}
	return out, nil
}

func (f *fakeValues) Update(_ context.Context, rng string, rows [][]interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	// "Sheet!A3:C3"
	_, cells, _ := strings.Cut(rng, "!A")
	n, err := strconv.Atoi(strings.SplitN(cells, ":", 2)[0])
	if err != nil || n < 1 || n > len(f.rows) {
		return fmt.Errorf("bad range %q", rng)
	}
	f.rows[n-1] = rows[0]
	return nil
}

func (f *fakeValues) Append(_ context.Context, _ string, rows [][]interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.appends++
	f.rows = append(f.rows, rows...)
	return nil
}

func (f *fakeValues) setDoc(row int, doc string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rows[row][1] = doc
}

func testClient(poll time.Duration) (*Client, *fakeValues) {
	fv := &fakeValues{rows: [][]interface{}{{"user_id", "document", "updated_at"}}}
	c := newClient(fv, Config{SheetName: "Ledgers", PollInterval: poll})
	c.now = func() time.Time { return time.Date(2026, 10, 1, 8, 0, 0, 0, time.UTC) }
	return c, fv
}

func TestNew_MissingSpreadsheetID(t *testing.T) {
	_, err := New(context.Background(), Config{})
	if err == nil || err.Error() != "missing GOOGLE_SPREADSHEET_ID" {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestNew_InvalidCredentials(t *testing.T) {
	_, err := New(context.Background(), Config{SpreadsheetID: "x", ServiceAccountFile: "/nonexistent/sa.json"})
	if err == nil || !strings.Contains(err.Error(), "read service account file") {
		t.Fatalf("expected file read error, got: %v", err)
	}
}

func TestWriteAppendsThenUpdates(t *testing.T) {
	c, fv := testClient(time.Hour)
	ctx := context.Background()

	l := ledger.New()
	l.EnsurePeriod(core.MonthKey{Year: 2026, Month: 10})
	if err := c.Write(ctx, "alice", l); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := c.Write(ctx, "alice", ledger.New()); err != nil {
		t.Fatalf("second write: %v", err)
	}

	if fv.appends != 1 {
		t.Errorf("expected one append, got %d", fv.appends)
	}
	if len(fv.rows) != 2 {
		t.Fatalf("expected header + 1 row, got %d rows", len(fv.rows))
	}
	if fv.rows[1][2] != "2026-10-01T08:00:00Z" {
		t.Errorf("unexpected timestamp %v", fv.rows[1][2])
	}

	doc, ok, err := c.Read(ctx, "alice")
	if err != nil || !ok {
		t.Fatalf("read: ok=%v err=%v", ok, err)
	}
	if string(doc) != `{"months":{},"years":{}}` {
		t.Errorf("unexpected document %s", doc)
	}
}

func TestWriteRejectsOversizedDocument(t *testing.T) {
	c, _ := testClient(time.Hour)
	l := ledger.New()
	p := core.AnnualPeriod(2026)
	for i := 0; i < 600; i++ {
		if _, err := l.CreateCategory(p, strings.Repeat("x", 100), core.AmountFromInt(1)); err != nil {
			t.Fatal(err)
		}
	}
	if err := c.Write(context.Background(), "alice", l); !errors.Is(err, ErrDocumentTooLarge) {
		t.Fatalf("expected ErrDocumentTooLarge, got %v", err)
	}
}

func TestSubscribePollsForChanges(t *testing.T) {
	c, fv := testClient(10 * time.Millisecond)
	ctx := context.Background()

	got := make(chan *ledger.Ledger, 8)
	unsub, err := c.Subscribe(ctx, "alice", func(l *ledger.Ledger) { got <- l })
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	defer unsub()

	select {
	case l := <-got:
		if l != nil {
			t.Fatalf("expected nil for absent row, got %v", l)
		}
	case <-time.After(time.Second):
		t.Fatal("no initial snapshot")
	}

	l := ledger.New()
	l.EnsurePeriod(core.MonthKey{Year: 2027, Month: 3})
	if err := c.Write(ctx, "alice", l); err != nil {
		t.Fatal(err)
	}

	select {
	case l := <-got:
		if l == nil || !l.HasPeriod(core.AnnualPeriod(2027)) {
			t.Fatalf("unexpected snapshot %v", l)
		}
	case <-time.After(time.Second):
		t.Fatal("change not delivered")
	}

	// Unchanged polls deliver nothing.
	select {
	case l := <-got:
		t.Fatalf("unexpected delivery %v", l)
	case <-time.After(50 * time.Millisecond):
	}

	fv.setDoc(1, "{broken")
	select {
	case l := <-got:
		t.Fatalf("undecodable document delivered: %v", l)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestSubscribeReportsInitialReadError(t *testing.T) {
	c, fv := testClient(time.Hour)
	fv.getErr = errors.New("quota exceeded")
	if _, err := c.Subscribe(context.Background(), "alice", func(*ledger.Ledger) {}); err == nil {
		t.Fatal("expected an error")
	}
}
