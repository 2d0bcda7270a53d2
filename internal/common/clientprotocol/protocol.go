// Package clientprotocol holds the REST DTOs shared with the platform
// backend. Statuses stay raw strings here; conversion and validation happen
// at the api client boundary.
package clientprotocol

import (
	"time"

	"github.com/shopspring/decimal"
)

type Order struct {
	ID            string           `json:"id"`
	DriverID      *string          `json:"driver_id"`
	Status        string           `json:"status"`
	CustomerName  string           `json:"customer_name,omitempty"`
	CustomerPhone string           `json:"customer_phone,omitempty"`
	Address       string           `json:"address,omitempty"`
	Note          string           `json:"note,omitempty"`
	Price         *decimal.Decimal `json:"price,omitempty"`
	DeliveryFee   *decimal.Decimal `json:"delivery_fee,omitempty"`
	CreatedAt     time.Time        `json:"created_at"`
	DeliveredAt   *time.Time       `json:"delivered_at,omitempty"`
	CancelledAt   *time.Time       `json:"cancelled_at,omitempty"`
	CancelReason  string           `json:"cancel_reason,omitempty"`
	CancelledBy   string           `json:"cancelled_by,omitempty"`
}

type Driver struct {
	ID      string          `json:"id"`
	Name    string          `json:"name"`
	Phone   string          `json:"phone"`
	Online  bool            `json:"online"`
	Balance decimal.Decimal `json:"balance"`
}

type WalletTransaction struct {
	ID        string          `json:"id"`
	Amount    decimal.Decimal `json:"amount"`
	Type      string          `json:"type"`
	Method    string          `json:"method,omitempty"`
	Note      string          `json:"note,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

type LedgerEntry struct {
	ID        string          `json:"id"`
	Amount    decimal.Decimal `json:"amount"`
	Balance   decimal.Decimal `json:"balance"`
	Note      string          `json:"note,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

type LoginRequest struct {
	Phone string `json:"phone"`
	Code  string `json:"code"`
}

type LoginResponse struct {
	Driver Driver `json:"driver"`
}

type StatusPatchRequest struct {
	Status       string `json:"status"`
	ActorID      string `json:"actor_id"`
	Code         string `json:"code"`
	CancelReason string `json:"cancel_reason,omitempty"`
}

type DeclineRequest struct {
	ActorID string `json:"actor_id"`
	Code    string `json:"code"`
	Reason  string `json:"reason,omitempty"`
}

type DriverPatchRequest struct {
	Code   string `json:"code"`
	Online *bool  `json:"online,omitempty"`
}

type ErrorResponse struct {
	Message string `json:"message"`
}
