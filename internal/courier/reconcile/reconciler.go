// Package reconcile merges server snapshots and push events into the
// canonical in-memory order list. Point events and bulk refreshes run
// through the same diff/notify/filter pipeline, so both paths share
// identical semantics.
package reconcile

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"courierboard/internal/courier/data"
	"courierboard/pkg/logging"
)

// DeclineSet is the driver-local decline bookkeeping the reconciler
// consults for visibility and purges when the decline premise expires.
type DeclineSet interface {
	Declined(orderID string) bool
	Purge(orderID string) error
}

type Notifier interface {
	Push(title, body string) data.NotificationItem
}

// Change describes one reconciled difference: an order that appeared or
// changed status relative to the previous in-memory list.
type Change struct {
	Order          data.Order
	PreviousStatus data.Status
	Appeared       bool
}

// OrderPatch is a partial update from an order_status event. Nil pointers
// leave the corresponding field untouched.
type OrderPatch struct {
	OrderID      string
	Status       data.Status
	DriverID     *string
	DeliveredAt  *time.Time
	CancelledAt  *time.Time
	CancelReason *string
	CancelledBy  *string
}

type Reconciler struct {
	mux         sync.RWMutex
	driverID    string
	orders      map[string]data.Order
	lastApplied map[string]time.Time
	loaded      bool
	declined    DeclineSet
	feed        Notifier
	logger      *logging.ZapLogger
}

func New(driverID string, declined DeclineSet, feed Notifier, logger *logging.ZapLogger) *Reconciler {
	return &Reconciler{
		driverID:    driverID,
		orders:      make(map[string]data.Order),
		lastApplied: make(map[string]time.Time),
		declined:    declined,
		feed:        feed,
		logger:      logger,
	}
}

// ApplySnapshot replaces the in-memory list with a server-authoritative
// fetch, computing appearance and status-change sets against the previous
// list. The first snapshot is silent regardless of emitNotifications.
func (r *Reconciler) ApplySnapshot(orders []data.Order, emitNotifications bool) []Change {
	r.mux.Lock()
	defer r.mux.Unlock()

	next := make(map[string]data.Order, len(orders))
	var changes []Change
	for _, order := range orders {
		prev, known := r.orders[order.ID]
		switch {
		case !known:
			changes = append(changes, Change{Order: order, Appeared: true})
		case prev.Status != order.Status:
			changes = append(changes, Change{Order: order, PreviousStatus: prev.Status})
		}
		next[order.ID] = order
	}
	for id := range r.lastApplied {
		if _, ok := next[id]; !ok {
			delete(r.lastApplied, id)
		}
	}
	r.orders = next

	notify := emitNotifications && r.loaded
	r.loaded = true
	r.settleLocked(changes, notify)
	return changes
}

// UpsertOrder inserts or replaces a full order, then runs the shared
// pipeline. A nil timestamp always applies; optimistic patches after a
// confirmed command use that deliberately.
func (r *Reconciler) UpsertOrder(order data.Order, ts *time.Time, emitNotifications bool) []Change {
	r.mux.Lock()
	defer r.mux.Unlock()

	if !r.admitLocked(order.ID, ts) {
		return nil
	}

	prev, known := r.orders[order.ID]
	var changes []Change
	switch {
	case !known:
		changes = append(changes, Change{Order: order, Appeared: true})
	case prev.Status != order.Status:
		changes = append(changes, Change{Order: order, PreviousStatus: prev.Status})
	}
	r.orders[order.ID] = order

	r.settleLocked(changes, emitNotifications && r.loaded)
	return changes
}

// PatchOrder merges partial fields into the existing order, or inserts a
// new one when the id is unknown, then runs the shared pipeline.
func (r *Reconciler) PatchOrder(patch OrderPatch, ts *time.Time, emitNotifications bool) []Change {
	r.mux.Lock()
	defer r.mux.Unlock()

	if !r.admitLocked(patch.OrderID, ts) {
		return nil
	}

	order, known := r.orders[patch.OrderID]
	if !known {
		order = data.Order{ID: patch.OrderID}
	}
	prevStatus := order.Status

	if patch.Status != data.NullStatus {
		order.Status = patch.Status
	}
	if patch.DriverID != nil {
		order.DriverID = *patch.DriverID
	}
	if patch.DeliveredAt != nil {
		order.DeliveredAt = patch.DeliveredAt
	}
	if patch.CancelledAt != nil {
		order.CancelledAt = patch.CancelledAt
	}
	if patch.CancelReason != nil {
		order.CancelReason = *patch.CancelReason
	}
	if patch.CancelledBy != nil {
		order.CancelledBy = *patch.CancelledBy
	}
	r.orders[order.ID] = order

	var changes []Change
	switch {
	case !known:
		changes = append(changes, Change{Order: order, Appeared: true})
	case prevStatus != order.Status:
		changes = append(changes, Change{Order: order, PreviousStatus: prevStatus})
	}

	r.settleLocked(changes, emitNotifications && r.loaded)
	return changes
}

// admitLocked enforces per-order event ordering. An event whose timestamp
// is not strictly newer than the last applied one is discarded. Events
// without a timestamp are always admitted: availability over strict
// ordering.
func (r *Reconciler) admitLocked(orderID string, ts *time.Time) bool {
	if ts == nil {
		return true
	}
	if last, ok := r.lastApplied[orderID]; ok && !ts.After(last) {
		r.logger.DebugCtx(context.Background(), "discarding stale order event",
			zap.String("orderID", orderID),
			zap.Time("eventTime", *ts),
			zap.Time("lastApplied", last),
		)
		return false
	}
	r.lastApplied[orderID] = *ts
	return true
}

// settleLocked is the tail of the pipeline shared by every apply path:
// purge declines whose premise expired, then emit notifications.
func (r *Reconciler) settleLocked(changes []Change, notify bool) {
	for _, change := range changes {
		if !change.Order.Pool() && r.declined.Declined(change.Order.ID) {
			if err := r.declined.Purge(change.Order.ID); err != nil {
				r.logger.ErrorCtx(context.Background(), "failed to purge declined order",
					zap.String("orderID", change.Order.ID),
					zap.Error(err),
				)
			}
		}
		if !notify {
			continue
		}
		if change.Appeared {
			r.feed.Push("New order", describeOrder(change.Order))
		} else {
			r.feed.Push(
				"Order status changed",
				fmt.Sprintf("Order %s is now %s", change.Order.ID, change.Order.Status),
			)
		}
	}
}

func describeOrder(order data.Order) string {
	if order.Address != "" {
		return fmt.Sprintf("Order %s to %s", order.ID, order.Address)
	}
	return fmt.Sprintf("Order %s", order.ID)
}

// VisibleOrders applies the ownership/decline filter and returns the
// rendered list, newest first.
func (r *Reconciler) VisibleOrders() []data.Order {
	r.mux.RLock()
	defer r.mux.RUnlock()
	out := make([]data.Order, 0, len(r.orders))
	for _, order := range r.orders {
		if Visible(order, r.driverID, r.declined.Declined) {
			out = append(out, order)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func (r *Reconciler) Order(orderID string) (data.Order, bool) {
	r.mux.RLock()
	defer r.mux.RUnlock()
	order, ok := r.orders[orderID]
	return order, ok
}

// Orders returns every known order, visible or not.
func (r *Reconciler) Orders() []data.Order {
	r.mux.RLock()
	defer r.mux.RUnlock()
	out := make([]data.Order, 0, len(r.orders))
	for _, order := range r.orders {
		out = append(out, order)
	}
	return out
}

func (r *Reconciler) Loaded() bool {
	r.mux.RLock()
	defer r.mux.RUnlock()
	return r.loaded
}
