// Package ledger keeps the driver-local record of declined orders: the id
// set that hides pool orders from this driver, and a bounded snapshot
// history for the history view. Both are persisted per driver identity and
// never sent to the server as entities.
package ledger

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"courierboard/internal/courier/data"
	"courierboard/pkg/localstore"
)

const (
	// HistoryLimit caps the decline history; the oldest record is dropped.
	HistoryLimit = 80

	storagePrefix   = "courierboard"
	declinedIDsKey  = "declined_ids"
	declineHistKey  = "declined_history"
)

type Ledger struct {
	mux      sync.Mutex
	store    *localstore.Store
	driverID string
	declined map[string]struct{}
	history  []data.DeclinedOrderRecord
	now      func() time.Time
}

// Load reads the persisted state for a driver. Keys are namespaced by the
// driver id so identities sharing a state directory stay isolated.
func Load(store *localstore.Store, driverID string) (*Ledger, error) {
	l := &Ledger{
		store:    store,
		driverID: driverID,
		declined: make(map[string]struct{}),
		now:      time.Now,
	}

	var ids []string
	err := store.Get(l.key(declinedIDsKey), &ids)
	if err != nil && !errors.Is(err, localstore.ErrNotFound) {
		return nil, fmt.Errorf("failed to load declined ids: %w", err)
	}
	for _, id := range ids {
		l.declined[id] = struct{}{}
	}

	err = store.Get(l.key(declineHistKey), &l.history)
	if err != nil && !errors.Is(err, localstore.ErrNotFound) {
		return nil, fmt.Errorf("failed to load decline history: %w", err)
	}

	return l, nil
}

// MarkDeclined hides the order from this driver's pool view.
func (l *Ledger) MarkDeclined(orderID string) error {
	l.mux.Lock()
	defer l.mux.Unlock()
	if _, ok := l.declined[orderID]; ok {
		return nil
	}
	l.declined[orderID] = struct{}{}
	return l.persistDeclinedLocked()
}

// RecordDecline snapshots the order at decline time. Newest first, capped
// at HistoryLimit.
func (l *Ledger) RecordDecline(order data.Order, reason string) error {
	l.mux.Lock()
	defer l.mux.Unlock()
	record := data.DeclinedOrderRecord{
		Order:      order,
		DeclinedAt: l.now(),
		Reason:     reason,
	}
	l.history = append([]data.DeclinedOrderRecord{record}, l.history...)
	if len(l.history) > HistoryLimit {
		l.history = l.history[:HistoryLimit]
	}
	if err := l.store.Put(l.key(declineHistKey), l.history); err != nil {
		return fmt.Errorf("failed to persist decline history: %w", err)
	}
	return nil
}

// Purge drops an id from the declined set. The reconciler calls it when an
// order leaves pending-and-unassigned: the decline premise no longer holds.
func (l *Ledger) Purge(orderID string) error {
	l.mux.Lock()
	defer l.mux.Unlock()
	if _, ok := l.declined[orderID]; !ok {
		return nil
	}
	delete(l.declined, orderID)
	return l.persistDeclinedLocked()
}

func (l *Ledger) Declined(orderID string) bool {
	l.mux.Lock()
	defer l.mux.Unlock()
	_, ok := l.declined[orderID]
	return ok
}

// History returns a newest-first copy of the decline records.
func (l *Ledger) History() []data.DeclinedOrderRecord {
	l.mux.Lock()
	defer l.mux.Unlock()
	out := make([]data.DeclinedOrderRecord, len(l.history))
	copy(out, l.history)
	return out
}

func (l *Ledger) persistDeclinedLocked() error {
	ids := make([]string, 0, len(l.declined))
	for id := range l.declined {
		ids = append(ids, id)
	}
	if err := l.store.Put(l.key(declinedIDsKey), ids); err != nil {
		return fmt.Errorf("failed to persist declined ids: %w", err)
	}
	return nil
}

func (l *Ledger) key(name string) string {
	return localstore.Key(storagePrefix, l.driverID, name)
}
