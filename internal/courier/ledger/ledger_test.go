package ledger

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"courierboard/internal/courier/data"
	"courierboard/pkg/localstore"
)

func newStore(t *testing.T) *localstore.Store {
	t.Helper()
	store, err := localstore.New(t.TempDir())
	require.NoError(t, err)
	return store
}

func TestMarkDeclinedSurvivesReload(t *testing.T) {
	store := newStore(t)

	first, err := Load(store, "d1")
	require.NoError(t, err)
	require.NoError(t, first.MarkDeclined("o1"))
	assert.True(t, first.Declined("o1"))

	reloaded, err := Load(store, "d1")
	require.NoError(t, err)
	assert.True(t, reloaded.Declined("o1"))
	assert.False(t, reloaded.Declined("o2"))
}

func TestDeclinesDoNotLeakAcrossDrivers(t *testing.T) {
	store := newStore(t)

	a, err := Load(store, "d1")
	require.NoError(t, err)
	require.NoError(t, a.MarkDeclined("o1"))
	require.NoError(t, a.RecordDecline(data.Order{ID: "o1", Status: data.DeclinedStatus}, "too far"))

	b, err := Load(store, "d2")
	require.NoError(t, err)
	assert.False(t, b.Declined("o1"))
	assert.Empty(t, b.History())
}

func TestPurge(t *testing.T) {
	store := newStore(t)

	l, err := Load(store, "d1")
	require.NoError(t, err)
	require.NoError(t, l.MarkDeclined("o1"))
	require.NoError(t, l.Purge("o1"))
	assert.False(t, l.Declined("o1"))

	// purge of an unknown id is a no-op
	require.NoError(t, l.Purge("o9"))

	reloaded, err := Load(store, "d1")
	require.NoError(t, err)
	assert.False(t, reloaded.Declined("o1"))
}

func TestHistoryNewestFirstAndReasonKept(t *testing.T) {
	store := newStore(t)

	l, err := Load(store, "d1")
	require.NoError(t, err)
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	i := 0
	l.now = func() time.Time {
		i++
		return base.Add(time.Duration(i) * time.Minute)
	}

	require.NoError(t, l.RecordDecline(data.Order{ID: "o1", Status: data.DeclinedStatus}, "too far"))
	require.NoError(t, l.RecordDecline(data.Order{ID: "o2", Status: data.DeclinedStatus}, "busy"))

	history := l.History()
	require.Len(t, history, 2)
	assert.Equal(t, "o2", history[0].Order.ID)
	assert.Equal(t, "busy", history[0].Reason)
	assert.Equal(t, "o1", history[1].Order.ID)
	assert.Equal(t, "too far", history[1].Reason)
	assert.True(t, history[0].DeclinedAt.After(history[1].DeclinedAt))
}

func TestHistoryCapped(t *testing.T) {
	store := newStore(t)

	l, err := Load(store, "d1")
	require.NoError(t, err)
	for i := 0; i < HistoryLimit+5; i++ {
		id := fmt.Sprintf("o%d", i)
		require.NoError(t, l.RecordDecline(data.Order{ID: id, Status: data.DeclinedStatus}, ""))
	}

	history := l.History()
	require.Len(t, history, HistoryLimit)
	// newest kept, oldest dropped
	assert.Equal(t, fmt.Sprintf("o%d", HistoryLimit+4), history[0].Order.ID)
	assert.Equal(t, "o5", history[HistoryLimit-1].Order.ID)

	reloaded, err := Load(store, "d1")
	require.NoError(t, err)
	assert.Len(t, reloaded.History(), HistoryLimit)
}
