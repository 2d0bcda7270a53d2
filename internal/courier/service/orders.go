package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"courierboard/internal/courier/data"
	"courierboard/internal/courier/reconcile"
	"courierboard/pkg/logging"
	"courierboard/pkg/threadsafe"
)

type OrdersAPI interface {
	PatchOrderStatus(
		ctx context.Context,
		orderID string,
		status data.Status,
		actorID string,
		code string,
		cancelReason string,
	) (data.Order, error)
	DeclineOrder(ctx context.Context, orderID, actorID, code, reason string) error
}

// Reconciler is the slice of the reconciler the command side needs.
type Reconciler interface {
	Order(orderID string) (data.Order, bool)
	Orders() []data.Order
	VisibleOrders() []data.Order
	UpsertOrder(order data.Order, ts *time.Time, emitNotifications bool) []reconcile.Change
}

type DeclineLedger interface {
	MarkDeclined(orderID string) error
	RecordDecline(order data.Order, reason string) error
	History() []data.DeclinedOrderRecord
}

// Resyncer triggers a full refetch; commands call it after a confirmed
// transition to pick up server-side effects like wallet credits.
type Resyncer func(ctx context.Context) error

// Identity carries the actor id and secret every command must present.
type Identity struct {
	DriverID string
	Code     string
}

// Orders issues status transition commands and assembles the history view.
// The server stays authoritative: on success we apply an optimistic local
// patch and resync; on failure nothing changes locally and the server's
// error text travels up unmodified.
type Orders struct {
	api        OrdersAPI
	reconciler Reconciler
	ledger     DeclineLedger
	identity   Identity
	resync     Resyncer
	busy       *threadsafe.HashSet[string]
	logger     *logging.ZapLogger
}

func NewOrders(
	api OrdersAPI,
	reconciler Reconciler,
	ledger DeclineLedger,
	identity Identity,
	resync Resyncer,
	logger *logging.ZapLogger,
) *Orders {
	return &Orders{
		api:        api,
		reconciler: reconciler,
		ledger:     ledger,
		identity:   identity,
		resync:     resync,
		busy:       threadsafe.NewHashSet[string](),
		logger:     logger,
	}
}

// next holds the only legal forward transition per status.
var next = map[data.Status]data.Status{
	data.PendingStatus:    data.AcceptedStatus,
	data.AcceptedStatus:   data.DeliveringStatus,
	data.DeliveringStatus: data.DeliveredStatus,
}

// Accept claims a pending order for this driver.
func (o *Orders) Accept(ctx context.Context, orderID string) (data.Order, error) {
	return o.transition(ctx, orderID, data.AcceptedStatus, "")
}

// Advance moves the order one step along pending, accepted, delivering,
// delivered.
func (o *Orders) Advance(ctx context.Context, orderID string) (data.Order, error) {
	order, ok := o.reconciler.Order(orderID)
	if !ok {
		return data.Order{}, ErrOrderNotFound
	}
	target, ok := next[order.Status]
	if !ok {
		return data.Order{}, ErrIllegalTransition
	}
	return o.transition(ctx, orderID, target, "")
}

// Cancel moves any non-terminal order to cancelled. The reason is required
// and travels with the command.
func (o *Orders) Cancel(ctx context.Context, orderID, reason string) (data.Order, error) {
	if reason == "" {
		return data.Order{}, ErrCancelReasonRequired
	}
	return o.transition(ctx, orderID, data.CancelledStatus, reason)
}

func (o *Orders) transition(ctx context.Context, orderID string, target data.Status, reason string) (data.Order, error) {
	order, ok := o.reconciler.Order(orderID)
	if !ok {
		return data.Order{}, ErrOrderNotFound
	}
	if target == data.CancelledStatus {
		if order.Status.Terminal() {
			return data.Order{}, ErrIllegalTransition
		}
	} else if next[order.Status] != target {
		return data.Order{}, ErrIllegalTransition
	}

	if !o.busy.Add(orderID) {
		return data.Order{}, ErrOrderBusy
	}
	defer o.busy.Remove(orderID)

	patched, err := o.api.PatchOrderStatus(ctx, orderID, target, o.identity.DriverID, o.identity.Code, reason)
	if err != nil {
		// no automatic retry: the user sees the failure and decides
		return data.Order{}, fmt.Errorf("status transition rejected: %w", err)
	}

	// optimistic patch carries no timestamp so it always applies
	o.reconciler.UpsertOrder(patched, nil, false)

	if err := o.resync(ctx); err != nil && ctx.Err() == nil {
		o.logger.WarnCtx(ctx, "resync after transition failed",
			zap.String("orderID", orderID),
			zap.Error(err),
		)
	}
	return patched, nil
}

// Decline hides a pending order for this driver. Pool orders are declined
// purely locally; an order already assigned to this driver also notifies
// the server so it can reassign.
func (o *Orders) Decline(ctx context.Context, orderID, reason string) error {
	order, ok := o.reconciler.Order(orderID)
	if !ok {
		return ErrOrderNotFound
	}
	if order.Status != data.PendingStatus {
		return ErrIllegalTransition
	}
	if order.DriverID != "" && order.DriverID != o.identity.DriverID {
		return ErrIllegalTransition
	}

	if !o.busy.Add(orderID) {
		return ErrOrderBusy
	}
	defer o.busy.Remove(orderID)

	if order.DriverID == o.identity.DriverID && order.DriverID != "" {
		err := o.api.DeclineOrder(ctx, orderID, o.identity.DriverID, o.identity.Code, reason)
		if err != nil {
			return fmt.Errorf("decline rejected: %w", err)
		}
	}

	if err := o.ledger.MarkDeclined(orderID); err != nil {
		return fmt.Errorf("failed to mark order declined: %w", err)
	}
	snapshot := order
	snapshot.Status = data.DeclinedStatus
	if err := o.ledger.RecordDecline(snapshot, reason); err != nil {
		return fmt.Errorf("failed to record decline: %w", err)
	}
	return nil
}

func (o *Orders) Visible() []data.Order {
	return o.reconciler.VisibleOrders()
}

// HistoryEntry is one finished order in the history view: declined locally,
// or delivered/cancelled for real.
type HistoryEntry struct {
	Order      data.Order `json:"order"`
	Reason     string     `json:"reason,omitempty"`
	OccurredAt time.Time  `json:"occurred_at"`
}

// History merges the local decline records with genuinely finished orders,
// most recent event first.
func (o *Orders) History() []HistoryEntry {
	var entries []HistoryEntry
	for _, record := range o.ledger.History() {
		entries = append(entries, HistoryEntry{
			Order:      record.Order,
			Reason:     record.Reason,
			OccurredAt: record.DeclinedAt,
		})
	}
	for _, order := range o.reconciler.Orders() {
		switch order.Status {
		case data.DeliveredStatus:
			occurred := order.CreatedAt
			if order.DeliveredAt != nil {
				occurred = *order.DeliveredAt
			}
			entries = append(entries, HistoryEntry{Order: order, OccurredAt: occurred})
		case data.CancelledStatus:
			occurred := order.CreatedAt
			if order.CancelledAt != nil {
				occurred = *order.CancelledAt
			}
			entries = append(entries, HistoryEntry{Order: order, Reason: order.CancelReason, OccurredAt: occurred})
		}
	}
	sort.Slice(entries, func(i, j int) bool {
		if !entries[i].OccurredAt.Equal(entries[j].OccurredAt) {
			return entries[i].OccurredAt.After(entries[j].OccurredAt)
		}
		return entries[i].Order.ID < entries[j].Order.ID
	})
	return entries
}
