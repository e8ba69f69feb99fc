package toast

import (
	"testing"
	"time"

	"casametrix_front/internal/clock"

	"github.com/stretchr/testify/require"
)

func newTestQueue(maxDepth int) (*Queue, *clock.Fake, *int) {
	clk := clock.NewFake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	changes := 0
	q := NewQueue(Options{
		TTL:      5 * time.Second,
		MaxDepth: maxDepth,
		Clock:    clk,
		OnChange: func() { changes++ },
	})
	return q, clk, &changes
}

func messages(ts []Toast) []string {
	out := make([]string, len(ts))
	for i, t := range ts {
		out[i] = t.Message
	}
	return out
}

func TestInsertionOrderAndMonotonicIDs(t *testing.T) {
	q, _, _ := newTestQueue(0)
	a := q.Push(KindInfo, "a")
	b := q.Push(KindSuccess, "b")
	c := q.Push(KindError, "c")

	require.Equal(t, []string{"a", "b", "c"}, messages(q.List()))
	require.Less(t, a.ID, b.ID)
	require.Less(t, b.ID, c.ID)
}

func TestDismissRemovesOnlyThatToast(t *testing.T) {
	q, clk, _ := newTestQueue(0)
	q.Push(KindInfo, "a")
	b := q.Push(KindInfo, "b")
	q.Push(KindInfo, "c")

	require.True(t, q.Dismiss(b.ID))
	require.Equal(t, []string{"a", "c"}, messages(q.List()))
	require.Equal(t, 2, clk.Pending())

	require.False(t, q.Dismiss(b.ID))
	require.False(t, q.Dismiss(999))
}

func TestExpiryRemovesExactlyOnce(t *testing.T) {
	q, clk, changes := newTestQueue(0)
	q.Push(KindInfo, "a")
	clk.Advance(2 * time.Second)
	q.Push(KindInfo, "b")
	require.Equal(t, 2, *changes)

	clk.Advance(3 * time.Second)
	require.Equal(t, []string{"b"}, messages(q.List()))
	require.Equal(t, 3, *changes)

	clk.Advance(2 * time.Second)
	require.Empty(t, q.List())
	require.Equal(t, 4, *changes)

	clk.Advance(time.Minute)
	require.Equal(t, 4, *changes)
	require.Zero(t, clk.Pending())
}

func TestMaxDepthEvictsOldestAndCancelsTimer(t *testing.T) {
	q, clk, _ := newTestQueue(2)
	q.Push(KindError, "1")
	q.Push(KindError, "2")
	q.Push(KindError, "3")

	require.Equal(t, []string{"2", "3"}, messages(q.List()))
	require.Equal(t, 2, clk.Pending())
}

func TestDuplicatesAreNotCoalesced(t *testing.T) {
	q, _, _ := newTestQueue(0)
	q.Push(KindError, "same")
	q.Push(KindError, "same")
	require.Equal(t, 2, q.Len())
}

func TestCloseStopsTimers(t *testing.T) {
	q, clk, _ := newTestQueue(0)
	q.Push(KindInfo, "a")
	q.Push(KindInfo, "b")
	q.Close()

	require.Zero(t, clk.Pending())
	require.Empty(t, q.List())
	q.Push(KindInfo, "late")
	require.Empty(t, q.List())
}

func TestExpiryGoesThroughPost(t *testing.T) {
	clk := clock.NewFake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	var posted []func()
	q := NewQueue(Options{
		TTL:   time.Second,
		Clock: clk,
		Post:  func(f func()) bool { posted = append(posted, f); return true },
	})
	q.Push(KindInfo, "a")
	clk.Advance(time.Second)

	require.Len(t, posted, 1)
	require.Equal(t, 1, q.Len())
	posted[0]()
	require.Zero(t, q.Len())
}
