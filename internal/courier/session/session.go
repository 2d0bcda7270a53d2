// Package session owns the per-login lifecycle: it wires the reconciler,
// ledger, feed and realtime channel around one driver identity, dispatches
// push events, and tears everything down through a single context.
package session

import (
	"context"
	"fmt"
	"net/url"
	"sync"
	"time"

	"go.uber.org/zap"

	"courierboard/internal/common/pushprotocol"
	"courierboard/internal/courier/api"
	"courierboard/internal/courier/data"
	"courierboard/internal/courier/ledger"
	"courierboard/internal/courier/notify"
	"courierboard/internal/courier/realtime"
	"courierboard/internal/courier/reconcile"
	"courierboard/internal/courier/service"
	"courierboard/pkg/localstore"
	"courierboard/pkg/logging"
)

type Config struct {
	RealtimeURL  string
	PingInterval time.Duration
	PollInterval time.Duration
	BaseBackoff  time.Duration
	MaxBackoff   time.Duration
}

type Session struct {
	identity     service.Identity
	apiClient    *api.Client
	reconciler   *reconcile.Reconciler
	ledger       *ledger.Ledger
	feed         *notify.Feed
	wallet       *service.Wallet
	driverStatus *service.DriverStatus
	orders       *service.Orders
	view         *service.View
	manager      *realtime.Manager
	logger       *logging.ZapLogger

	mux    sync.Mutex
	cancel context.CancelFunc
}

func New(
	cfg Config,
	driver data.Driver,
	code string,
	apiClient *api.Client,
	store *localstore.Store,
	feed *notify.Feed,
	logger *logging.ZapLogger,
) (*Session, error) {
	led, err := ledger.Load(store, driver.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load decline ledger: %w", err)
	}

	s := &Session{
		identity:  service.Identity{DriverID: driver.ID, Code: code},
		apiClient: apiClient,
		ledger:    led,
		feed:      feed,
		logger:    logger,
	}
	s.reconciler = reconcile.New(driver.ID, led, feed, logger)
	s.wallet = service.NewWallet(driver.ID, driver.Balance, apiClient, feed)
	s.driverStatus = service.NewDriverStatus(driver, s.identity, apiClient, feed)
	s.orders = service.NewOrders(apiClient, s.reconciler, led, s.identity, s.Resync, logger)

	channelURL, err := realtimeURL(cfg.RealtimeURL, driver.ID, code)
	if err != nil {
		return nil, err
	}
	s.manager = realtime.New(
		realtime.Config{
			URL:          channelURL,
			PingInterval: cfg.PingInterval,
			PollInterval: cfg.PollInterval,
			BaseBackoff:  cfg.BaseBackoff,
			MaxBackoff:   cfg.MaxBackoff,
		},
		realtime.NewWebsocketDialer(),
		s,
		logger,
	)
	s.view = service.NewView(s.driverStatus, s.wallet, s.orders, feed, s.manager)
	return s, nil
}

// Run blocks until the parent context is cancelled or Close is called.
func (s *Session) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	s.mux.Lock()
	s.cancel = cancel
	s.mux.Unlock()
	defer cancel()

	ctx = logging.WithContextFields(ctx, zap.String("driverID", s.identity.DriverID))
	return s.manager.Run(ctx)
}

// Close tears the session down: the channel closes, every timer stops and
// late callbacks become no-ops.
func (s *Session) Close() {
	s.mux.Lock()
	defer s.mux.Unlock()
	if s.cancel != nil {
		s.cancel()
	}
}

// HandleEvent routes one decoded push event by its type discriminator.
// Payloads that fail domain validation are dropped, matching the malformed
// payload policy at the channel boundary.
func (s *Session) HandleEvent(ctx context.Context, event pushprotocol.Event) {
	switch event.Type {
	case pushprotocol.OrderCreatedEvent:
		order, err := api.ConvertOrder(event.OrderCreated.Order)
		if err != nil {
			s.logger.DebugCtx(ctx, "dropping order_created event", zap.Error(err))
			return
		}
		s.reconciler.UpsertOrder(order, event.Timestamp, true)

	case pushprotocol.OrderStatusEvent:
		payload := event.OrderStatus
		status, err := data.ParseStatus(payload.Status)
		if err != nil {
			s.logger.DebugCtx(ctx, "dropping order_status event", zap.Error(err))
			return
		}
		s.reconciler.PatchOrder(reconcile.OrderPatch{
			OrderID:      payload.OrderID,
			Status:       status,
			DriverID:     payload.DriverID,
			DeliveredAt:  payload.DeliveredAt,
			CancelledAt:  payload.CancelledAt,
			CancelReason: payload.CancelReason,
			CancelledBy:  payload.CancelledBy,
		}, event.Timestamp, true)

	case pushprotocol.WalletTransactionEvent:
		tx, err := api.ConvertTransaction(event.WalletTransaction.Transaction)
		if err != nil {
			s.logger.DebugCtx(ctx, "dropping wallet_transaction event", zap.Error(err))
			return
		}
		s.wallet.ApplyTransaction(tx)

	case pushprotocol.DriverStatusEvent:
		if event.DriverStatus.DriverID != s.identity.DriverID {
			return
		}
		s.driverStatus.ApplyStatus(event.DriverStatus.Online)

	case pushprotocol.PingEvent:
	}
}

// Resync refetches the authoritative snapshot: orders first, then the
// driver profile for the wallet balance.
func (s *Session) Resync(ctx context.Context) error {
	orders, err := s.apiClient.Orders(ctx, s.identity.DriverID)
	if err != nil {
		return fmt.Errorf("snapshot fetch failed: %w", err)
	}
	s.reconciler.ApplySnapshot(orders, true)

	driver, err := s.apiClient.Driver(ctx, s.identity.DriverID)
	if err != nil {
		return fmt.Errorf("profile fetch failed: %w", err)
	}
	s.driverStatus.Update(driver)
	s.wallet.SetBalance(driver.Balance)
	return nil
}

func (s *Session) View() *service.View {
	return s.view
}

func (s *Session) Orders() *service.Orders {
	return s.orders
}

func (s *Session) Wallet() *service.Wallet {
	return s.wallet
}

func (s *Session) DriverStatus() *service.DriverStatus {
	return s.driverStatus
}

func realtimeURL(raw, driverID, code string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("invalid realtime URL %q: %w", raw, err)
	}
	q := u.Query()
	q.Set("driver_id", driverID)
	q.Set("code", code)
	u.RawQuery = q.Encode()
	return u.String(), nil
}
