package data

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

type Status string

const (
	NullStatus       = Status("")
	PendingStatus    = Status("pending")
	AcceptedStatus   = Status("accepted")
	DeliveringStatus = Status("delivering")
	DeliveredStatus  = Status("delivered")
	CancelledStatus  = Status("cancelled")

	// DeclinedStatus never leaves the client. It marks orders the driver
	// hid locally; the server keeps its own status.
	DeclinedStatus = Status("declined")
)

func (s Status) Terminal() bool {
	return s == DeliveredStatus || s == CancelledStatus
}

func ParseStatus(raw string) (Status, error) {
	switch Status(raw) {
	case PendingStatus, AcceptedStatus, DeliveringStatus, DeliveredStatus, CancelledStatus:
		return Status(raw), nil
	}
	return NullStatus, fmt.Errorf("unknown order status %q", raw)
}

// Order is the client-side cached copy; the backend owns the canonical one.
// DriverID is empty for pool orders.
type Order struct {
	ID            string
	DriverID      string
	Status        Status
	CustomerName  string
	CustomerPhone string
	Address       string
	Note          string
	Price         *decimal.Decimal
	DeliveryFee   *decimal.Decimal
	CreatedAt     time.Time
	DeliveredAt   *time.Time
	CancelledAt   *time.Time
	CancelReason  string
	CancelledBy   string
}

// Pool reports whether the order is up for grabs: pending and unassigned.
func (o Order) Pool() bool {
	return o.Status == PendingStatus && o.DriverID == ""
}

type Driver struct {
	ID      string
	Name    string
	Phone   string
	Online  bool
	Balance decimal.Decimal
}

// DeclinedOrderRecord exists only in client-local storage; the server only
// ever sees the decline action itself.
type DeclinedOrderRecord struct {
	Order      Order     `json:"order"`
	DeclinedAt time.Time `json:"declined_at"`
	Reason     string    `json:"reason"`
}

type TransactionType string

const (
	CreditTransaction = TransactionType("credit")
	DebitTransaction  = TransactionType("debit")
)

type WalletTransaction struct {
	ID        string
	Amount    decimal.Decimal
	Type      TransactionType
	Method    string
	Note      string
	CreatedAt time.Time
}

type NotificationItem struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Body      string    `json:"body,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
