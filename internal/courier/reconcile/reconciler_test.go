package reconcile

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"courierboard/internal/courier/data"
	"courierboard/pkg/logging"
)

type fakeDeclines struct {
	ids    map[string]struct{}
	purged []string
}

func newFakeDeclines(ids ...string) *fakeDeclines {
	f := &fakeDeclines{ids: make(map[string]struct{})}
	for _, id := range ids {
		f.ids[id] = struct{}{}
	}
	return f
}

func (f *fakeDeclines) Declined(orderID string) bool {
	_, ok := f.ids[orderID]
	return ok
}

func (f *fakeDeclines) Purge(orderID string) error {
	delete(f.ids, orderID)
	f.purged = append(f.purged, orderID)
	return nil
}

type fakeFeed struct {
	items []data.NotificationItem
}

func (f *fakeFeed) Push(title, body string) data.NotificationItem {
	item := data.NotificationItem{Title: title, Body: body, CreatedAt: time.Now()}
	f.items = append(f.items, item)
	return item
}

func newReconciler(declines *fakeDeclines, feed *fakeFeed) *Reconciler {
	return New("d1", declines, feed, logging.NewNop())
}

func pool(id string) data.Order {
	return data.Order{ID: id, Status: data.PendingStatus}
}

func assigned(id, driverID string, status data.Status) data.Order {
	return data.Order{ID: id, DriverID: driverID, Status: status}
}

func ts(sec int) *time.Time {
	t := time.Date(2026, 3, 1, 12, 0, sec, 0, time.UTC)
	return &t
}

func TestFirstSnapshotIsSilent(t *testing.T) {
	feed := &fakeFeed{}
	r := newReconciler(newFakeDeclines(), feed)

	changes := r.ApplySnapshot([]data.Order{pool("o1"), pool("o2")}, true)

	assert.Len(t, changes, 2)
	assert.Empty(t, feed.items)
	assert.True(t, r.Loaded())
}

func TestSnapshotDiffNotifies(t *testing.T) {
	feed := &fakeFeed{}
	r := newReconciler(newFakeDeclines(), feed)

	r.ApplySnapshot([]data.Order{pool("o1")}, true)
	r.ApplySnapshot([]data.Order{
		assigned("o1", "d1", data.AcceptedStatus),
		pool("o2"),
	}, true)

	require.Len(t, feed.items, 2)
	titles := []string{feed.items[0].Title, feed.items[1].Title}
	assert.Contains(t, titles, "New order")
	assert.Contains(t, titles, "Order status changed")
}

func TestSnapshotWithoutNotificationsStaysQuiet(t *testing.T) {
	feed := &fakeFeed{}
	r := newReconciler(newFakeDeclines(), feed)

	r.ApplySnapshot([]data.Order{pool("o1")}, true)
	r.ApplySnapshot([]data.Order{assigned("o1", "d1", data.AcceptedStatus)}, false)

	assert.Empty(t, feed.items)
}

func TestVisibility(t *testing.T) {
	tests := []struct {
		name     string
		order    data.Order
		declined []string
		visible  bool
	}{
		{
			name:    "pool order",
			order:   pool("o1"),
			visible: true,
		},
		{
			name:     "declined pool order",
			order:    pool("o1"),
			declined: []string{"o1"},
			visible:  false,
		},
		{
			name:    "assigned to me",
			order:   assigned("o1", "d1", data.DeliveringStatus),
			visible: true,
		},
		{
			name:     "assigned to me and previously declined",
			order:    assigned("o1", "d1", data.AcceptedStatus),
			declined: []string{"o1"},
			visible:  true,
		},
		{
			name:    "pending assigned to another driver",
			order:   assigned("o1", "d2", data.PendingStatus),
			visible: false,
		},
		{
			name:    "another driver's active order",
			order:   assigned("o1", "d2", data.DeliveringStatus),
			visible: false,
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			declines := newFakeDeclines(test.declined...)
			assert.Equal(t, test.visible, Visible(test.order, "d1", declines.Declined))
		})
	}
}

func TestVisibleOrdersFiltersAndSorts(t *testing.T) {
	declines := newFakeDeclines("o3")
	r := newReconciler(declines, &fakeFeed{})

	older := pool("o1")
	older.CreatedAt = time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	newer := assigned("o2", "d1", data.DeliveringStatus)
	newer.CreatedAt = time.Date(2026, 3, 1, 11, 0, 0, 0, time.UTC)
	hiddenDeclined := pool("o3")
	foreign := assigned("o4", "d2", data.AcceptedStatus)

	r.ApplySnapshot([]data.Order{older, newer, hiddenDeclined, foreign}, false)

	visible := r.VisibleOrders()
	require.Len(t, visible, 2)
	assert.Equal(t, "o2", visible[0].ID)
	assert.Equal(t, "o1", visible[1].ID)
}

func TestStaleEventDiscarded(t *testing.T) {
	feed := &fakeFeed{}
	r := newReconciler(newFakeDeclines(), feed)
	r.ApplySnapshot([]data.Order{assigned("x", "d1", data.AcceptedStatus)}, true)

	changes := r.PatchOrder(OrderPatch{OrderID: "x", Status: data.DeliveringStatus}, ts(10), true)
	require.Len(t, changes, 1)

	// an older event must not regress the applied state
	changes = r.PatchOrder(OrderPatch{OrderID: "x", Status: data.AcceptedStatus}, ts(5), true)
	assert.Empty(t, changes)

	order, ok := r.Order("x")
	require.True(t, ok)
	assert.Equal(t, data.DeliveringStatus, order.Status)
	require.Len(t, feed.items, 1)
}

func TestDuplicateEventIsIdempotent(t *testing.T) {
	feed := &fakeFeed{}
	r := newReconciler(newFakeDeclines(), feed)
	r.ApplySnapshot([]data.Order{assigned("x", "d1", data.AcceptedStatus)}, true)

	patch := OrderPatch{OrderID: "x", Status: data.DeliveringStatus}
	require.Len(t, r.PatchOrder(patch, ts(10), true), 1)
	assert.Empty(t, r.PatchOrder(patch, ts(10), true))

	// exactly one notification for the transition
	require.Len(t, feed.items, 1)

	// and the guard still holds for anything not strictly newer
	assert.Empty(t, r.PatchOrder(patch, ts(9), true))
	assert.NotEmpty(t, r.PatchOrder(OrderPatch{OrderID: "x", Status: data.DeliveredStatus}, ts(11), true))
}

func TestTimestamplessEventsAlwaysApply(t *testing.T) {
	r := newReconciler(newFakeDeclines(), &fakeFeed{})
	r.ApplySnapshot(nil, true)

	r.PatchOrder(OrderPatch{OrderID: "x", Status: data.AcceptedStatus, DriverID: ptr("d1")}, ts(10), true)

	// optimistic patches carry no timestamp and win by arrival order
	changes := r.UpsertOrder(assigned("x", "d1", data.DeliveringStatus), nil, false)
	require.Len(t, changes, 1)

	order, _ := r.Order("x")
	assert.Equal(t, data.DeliveringStatus, order.Status)
}

func TestPatchInsertsUnknownOrder(t *testing.T) {
	feed := &fakeFeed{}
	r := newReconciler(newFakeDeclines(), feed)
	r.ApplySnapshot(nil, true)

	changes := r.PatchOrder(OrderPatch{OrderID: "new", Status: data.PendingStatus}, ts(1), true)
	require.Len(t, changes, 1)
	assert.True(t, changes[0].Appeared)

	order, ok := r.Order("new")
	require.True(t, ok)
	assert.Equal(t, data.PendingStatus, order.Status)
	require.Len(t, feed.items, 1)
	assert.Equal(t, "New order", feed.items[0].Title)
}

func TestPatchMergesPartialFields(t *testing.T) {
	r := newReconciler(newFakeDeclines(), &fakeFeed{})
	order := pool("o1")
	order.Address = "12 Bole Rd"
	r.ApplySnapshot([]data.Order{order}, true)

	cancelledAt := time.Date(2026, 3, 1, 13, 0, 0, 0, time.UTC)
	r.PatchOrder(OrderPatch{
		OrderID:      "o1",
		Status:       data.CancelledStatus,
		CancelledAt:  &cancelledAt,
		CancelReason: ptr("customer unreachable"),
		CancelledBy:  ptr("store"),
	}, ts(3), true)

	got, _ := r.Order("o1")
	assert.Equal(t, data.CancelledStatus, got.Status)
	assert.Equal(t, "12 Bole Rd", got.Address)
	assert.Equal(t, "customer unreachable", got.CancelReason)
	assert.Equal(t, "store", got.CancelledBy)
}

func TestDeclinePurgedWhenOrderLeavesPool(t *testing.T) {
	declines := newFakeDeclines("o1")
	r := newReconciler(declines, &fakeFeed{})
	r.ApplySnapshot([]data.Order{pool("o1")}, true)

	// claimed by another driver: the "not for me" premise is gone
	r.PatchOrder(OrderPatch{OrderID: "o1", Status: data.AcceptedStatus, DriverID: ptr("d2")}, ts(2), true)

	assert.False(t, declines.Declined("o1"))
	assert.Equal(t, []string{"o1"}, declines.purged)
}

func TestDeclineSurvivesResyncWhileStillPool(t *testing.T) {
	declines := newFakeDeclines("o1")
	r := newReconciler(declines, &fakeFeed{})
	r.ApplySnapshot([]data.Order{pool("o1")}, true)

	// an unrelated push triggers a full resync; o1 is still pool
	r.PatchOrder(OrderPatch{OrderID: "other", Status: data.PendingStatus}, ts(1), true)
	r.ApplySnapshot([]data.Order{pool("o1"), pool("other")}, true)

	assert.True(t, declines.Declined("o1"))
	for _, order := range r.VisibleOrders() {
		assert.NotEqual(t, "o1", order.ID)
	}
}

func TestSnapshotPrunesDepartedOrderTimestamps(t *testing.T) {
	r := newReconciler(newFakeDeclines(), &fakeFeed{})
	r.ApplySnapshot(nil, true)
	r.PatchOrder(OrderPatch{OrderID: "x", Status: data.PendingStatus}, ts(10), true)

	// the order leaves the snapshot entirely; its guard state goes with it
	r.ApplySnapshot(nil, true)

	changes := r.PatchOrder(OrderPatch{OrderID: "x", Status: data.PendingStatus}, ts(5), true)
	assert.Len(t, changes, 1)
}

func ptr[T any](v T) *T {
	return &v
}
