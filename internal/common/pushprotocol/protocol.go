// Package pushprotocol defines the tagged event envelope carried over the
// realtime channel. Decoding is strict: unknown envelope shapes are rejected
// at the boundary instead of best-effort field probing.
package pushprotocol

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"courierboard/internal/common/clientprotocol"
)

type EventType string

const (
	OrderCreatedEvent      = EventType("order_created")
	OrderStatusEvent       = EventType("order_status")
	WalletTransactionEvent = EventType("wallet_transaction")
	DriverStatusEvent      = EventType("driver_status")

	// PingEvent is client-originated keepalive; servers may echo it back.
	PingEvent = EventType("ping")
)

var (
	ErrUnknownEventType = errors.New("unknown event type")
)

type envelope struct {
	Type      EventType       `json:"type"`
	Timestamp *time.Time      `json:"ts,omitempty"`
	Data      json.RawMessage `json:"data,omitempty"`
}

type OrderCreatedData struct {
	Order clientprotocol.Order `json:"order"`
}

// OrderStatusData is a partial update; nil pointers mean "field unchanged".
type OrderStatusData struct {
	OrderID      string     `json:"order_id"`
	Status       string     `json:"status"`
	DriverID     *string    `json:"driver_id,omitempty"`
	DeliveredAt  *time.Time `json:"delivered_at,omitempty"`
	CancelledAt  *time.Time `json:"cancelled_at,omitempty"`
	CancelReason *string    `json:"cancel_reason,omitempty"`
	CancelledBy  *string    `json:"cancelled_by,omitempty"`
}

type WalletTransactionData struct {
	Transaction clientprotocol.WalletTransaction `json:"transaction"`
}

type DriverStatusData struct {
	DriverID string `json:"driver_id"`
	Online   bool   `json:"online"`
}

// Event is the decoded envelope. Exactly one payload pointer is set,
// matching Type; PingEvent carries none.
type Event struct {
	Type              EventType
	Timestamp         *time.Time
	OrderCreated      *OrderCreatedData
	OrderStatus       *OrderStatusData
	WalletTransaction *WalletTransactionData
	DriverStatus      *DriverStatusData
}

func Decode(raw []byte) (Event, error) {
	decoder := json.NewDecoder(bytes.NewReader(raw))
	decoder.DisallowUnknownFields()

	var env envelope
	if err := decoder.Decode(&env); err != nil {
		return Event{}, fmt.Errorf("failed to decode envelope: %w", err)
	}

	ev := Event{
		Type:      env.Type,
		Timestamp: env.Timestamp,
	}

	switch env.Type {
	case OrderCreatedEvent:
		ev.OrderCreated = &OrderCreatedData{}
		if err := json.Unmarshal(env.Data, ev.OrderCreated); err != nil {
			return Event{}, fmt.Errorf("failed to decode %s data: %w", env.Type, err)
		}
	case OrderStatusEvent:
		ev.OrderStatus = &OrderStatusData{}
		if err := json.Unmarshal(env.Data, ev.OrderStatus); err != nil {
			return Event{}, fmt.Errorf("failed to decode %s data: %w", env.Type, err)
		}
	case WalletTransactionEvent:
		ev.WalletTransaction = &WalletTransactionData{}
		if err := json.Unmarshal(env.Data, ev.WalletTransaction); err != nil {
			return Event{}, fmt.Errorf("failed to decode %s data: %w", env.Type, err)
		}
	case DriverStatusEvent:
		ev.DriverStatus = &DriverStatusData{}
		if err := json.Unmarshal(env.Data, ev.DriverStatus); err != nil {
			return Event{}, fmt.Errorf("failed to decode %s data: %w", env.Type, err)
		}
	case PingEvent:
	default:
		return Event{}, fmt.Errorf("%w: %q", ErrUnknownEventType, env.Type)
	}

	return ev, nil
}

// PingMessage is the keepalive frame sent while the channel is open.
func PingMessage() []byte {
	return []byte(`{"type":"ping"}`)
}
