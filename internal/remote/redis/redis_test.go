package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"budget/internal/core"
	"budget/internal/ledger"
)

func newStore(t *testing.T) (*Store, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return New(client, "test"), mr
}

func recv(t *testing.T, ch <-chan *ledger.Ledger) *ledger.Ledger {
	t.Helper()
	select {
	case l := <-ch:
		return l
	case <-time.After(2 * time.Second):
		t.Fatal("no snapshot received")
		return nil
	}
}

func TestWriteStoresDocument(t *testing.T) {
	s, mr := newStore(t)
	l := ledger.New()
	l.EnsurePeriod(core.MonthKey{Year: 2026, Month: 2})

	require.NoError(t, s.Write(context.Background(), "alice", l))

	raw, err := mr.Get("test:alice")
	require.NoError(t, err)
	assert.JSONEq(t, `{"months":{"2026-02":{"monthlyCategories":{}}},"years":{"2026":{"annualCategories":{}}}}`, raw)
}

func TestSubscribeInitialAndChanges(t *testing.T) {
	s, _ := newStore(t)
	ctx := context.Background()

	ch := make(chan *ledger.Ledger, 4)
	unsub, err := s.Subscribe(ctx, "alice", func(l *ledger.Ledger) { ch <- l })
	require.NoError(t, err)
	defer unsub()

	assert.Nil(t, recv(t, ch), "absent document is delivered as nil")

	l := ledger.New()
	_, err = l.CreateCategory(core.AnnualPeriod(2026), "Impôts", core.AmountFromInt(2500))
	require.NoError(t, err)
	require.NoError(t, s.Write(ctx, "alice", l))

	got := recv(t, ch)
	require.NotNil(t, got)
	cats := got.Categories(core.AnnualPeriod(2026))
	require.Len(t, cats, 1)
	assert.Equal(t, "Impôts", cats[0].Name)
}

func TestSubscribeDeliversExistingDocument(t *testing.T) {
	s, _ := newStore(t)
	ctx := context.Background()
	l := ledger.New()
	l.EnsurePeriod(core.MonthKey{Year: 2030, Month: 6})
	require.NoError(t, s.Write(ctx, "bob", l))

	ch := make(chan *ledger.Ledger, 1)
	unsub, err := s.Subscribe(ctx, "bob", func(l *ledger.Ledger) { ch <- l })
	require.NoError(t, err)
	defer unsub()

	got := recv(t, ch)
	require.NotNil(t, got)
	assert.True(t, got.HasPeriod(core.AnnualPeriod(2030)))
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	s, _ := newStore(t)
	ctx := context.Background()

	ch := make(chan *ledger.Ledger, 4)
	unsub, err := s.Subscribe(ctx, "carol", func(l *ledger.Ledger) { ch <- l })
	require.NoError(t, err)
	recv(t, ch)

	unsub()
	unsub()
	require.NoError(t, s.Write(ctx, "carol", ledger.New()))

	select {
	case <-ch:
		t.Fatal("snapshot delivered after unsubscribe")
	case <-time.After(100 * time.Millisecond):
	}
}
