package service

import (
	"time"

	"github.com/shopspring/decimal"

	"courierboard/internal/courier/data"
)

type Channel interface {
	Connected() bool
	LastEventAt() time.Time
}

type Feed interface {
	Items() []data.NotificationItem
}

type ChannelView struct {
	Connected   bool       `json:"connected"`
	LastEventAt *time.Time `json:"last_event_at,omitempty"`
}

// StateView is the reconciled dashboard state the local HTTP API renders.
type StateView struct {
	Driver        data.Driver             `json:"driver"`
	Balance       decimal.Decimal         `json:"balance"`
	Orders        []data.Order            `json:"orders"`
	Notifications []data.NotificationItem `json:"notifications"`
	Channel       ChannelView             `json:"channel"`
}

// View assembles the read side for the presentation layer.
type View struct {
	driver  *DriverStatus
	wallet  *Wallet
	orders  *Orders
	feed    Feed
	channel Channel
}

func NewView(driver *DriverStatus, wallet *Wallet, orders *Orders, feed Feed, channel Channel) *View {
	return &View{
		driver:  driver,
		wallet:  wallet,
		orders:  orders,
		feed:    feed,
		channel: channel,
	}
}

func (v *View) State() StateView {
	channel := ChannelView{Connected: v.channel.Connected()}
	if last := v.channel.LastEventAt(); !last.IsZero() {
		channel.LastEventAt = &last
	}
	return StateView{
		Driver:        v.driver.Profile(),
		Balance:       v.wallet.Balance(),
		Orders:        v.orders.Visible(),
		Notifications: v.feed.Items(),
		Channel:       channel,
	}
}
