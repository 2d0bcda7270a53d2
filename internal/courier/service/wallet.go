package service

import (
	"context"
	"fmt"
	"sync"

	"github.com/shopspring/decimal"

	"courierboard/internal/common/clientprotocol"
	"courierboard/internal/courier/data"
)

const (
	recentTransactionsWindow = 20
)

type WalletAPI interface {
	WalletTransactions(ctx context.Context, driverID string, limit int) ([]data.WalletTransaction, error)
	Ledger(ctx context.Context, driverID string) ([]clientprotocol.LedgerEntry, error)
}

type Notifier interface {
	Push(title, body string) data.NotificationItem
}

// Wallet applies wallet push events to the local balance and keeps a small
// recent-transaction window. The server's ledger stays authoritative; a
// resync overwrites the balance with the profile value.
type Wallet struct {
	mux      sync.Mutex
	driverID string
	balance  decimal.Decimal
	recent   []data.WalletTransaction
	seen     map[string]struct{}
	api      WalletAPI
	feed     Notifier
}

func NewWallet(driverID string, initial decimal.Decimal, api WalletAPI, feed Notifier) *Wallet {
	return &Wallet{
		driverID: driverID,
		balance:  initial,
		seen:     make(map[string]struct{}),
		api:      api,
		feed:     feed,
	}
}

// ApplyTransaction folds a push event into the balance. Duplicate delivery
// of the same transaction id is a no-op. Reports whether the transaction
// was applied.
func (w *Wallet) ApplyTransaction(tx data.WalletTransaction) bool {
	w.mux.Lock()
	if _, ok := w.seen[tx.ID]; ok {
		w.mux.Unlock()
		return false
	}
	w.seen[tx.ID] = struct{}{}

	amount := tx.Amount
	if tx.Type == data.DebitTransaction && amount.IsPositive() {
		amount = amount.Neg()
	}
	w.balance = w.balance.Add(amount)

	w.recent = append([]data.WalletTransaction{tx}, w.recent...)
	if len(w.recent) > recentTransactionsWindow {
		w.recent = w.recent[:recentTransactionsWindow]
	}
	w.mux.Unlock()

	title := "Wallet credited"
	if amount.IsNegative() {
		title = "Wallet debited"
	}
	w.feed.Push(title, fmt.Sprintf("%s (%s)", amount.Abs().StringFixed(2), tx.Type))
	return true
}

func (w *Wallet) Balance() decimal.Decimal {
	w.mux.Lock()
	defer w.mux.Unlock()
	return w.balance
}

// SetBalance replaces the balance with the server-reported value.
func (w *Wallet) SetBalance(balance decimal.Decimal) {
	w.mux.Lock()
	defer w.mux.Unlock()
	w.balance = balance
}

// Recent returns the newest-first window of transactions seen over push.
func (w *Wallet) Recent() []data.WalletTransaction {
	w.mux.Lock()
	defer w.mux.Unlock()
	out := make([]data.WalletTransaction, len(w.recent))
	copy(out, w.recent)
	return out
}

func (w *Wallet) Transactions(ctx context.Context, limit int) ([]data.WalletTransaction, error) {
	transactions, err := w.api.WalletTransactions(ctx, w.driverID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch wallet transactions: %w", err)
	}
	return transactions, nil
}

func (w *Wallet) Ledger(ctx context.Context) ([]clientprotocol.LedgerEntry, error) {
	entries, err := w.api.Ledger(ctx, w.driverID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch ledger: %w", err)
	}
	return entries, nil
}
