// Package realtime keeps a push channel to the backend open: WebSocket
// with exponential reconnect backoff, keepalive pings, and a fixed-interval
// polling fallback while the channel is down.
package realtime

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"courierboard/internal/common/pushprotocol"
	"courierboard/pkg/logging"
	"courierboard/pkg/threadsafe"
	"courierboard/pkg/timeutils"
)

const (
	defaultPingInterval = 25 * time.Second
	defaultPollInterval = 6 * time.Second
	defaultBaseBackoff  = time.Second
	defaultMaxBackoff   = 30 * time.Second
)

type Config struct {
	URL          string
	PingInterval time.Duration
	PollInterval time.Duration
	BaseBackoff  time.Duration
	MaxBackoff   time.Duration
}

// Conn is the subset of a websocket connection the manager needs.
type Conn interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteMessage(messageType int, data []byte) error
	Close() error
}

type Dialer interface {
	DialContext(ctx context.Context, url string) (Conn, error)
}

// Handler consumes decoded push events and performs full resynchronization
// fetches on (re)connect and on fallback poll ticks.
type Handler interface {
	HandleEvent(ctx context.Context, event pushprotocol.Event)
	Resync(ctx context.Context) error
}

type Manager struct {
	cfg         Config
	dialer      Dialer
	handler     Handler
	logger      *logging.ZapLogger
	connected   atomic.Bool
	lastEventAt *threadsafe.Time
}

func New(cfg Config, dialer Dialer, handler Handler, logger *logging.ZapLogger) *Manager {
	if cfg.PingInterval <= 0 {
		cfg.PingInterval = defaultPingInterval
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = defaultPollInterval
	}
	if cfg.BaseBackoff <= 0 {
		cfg.BaseBackoff = defaultBaseBackoff
	}
	if cfg.MaxBackoff <= 0 {
		cfg.MaxBackoff = defaultMaxBackoff
	}
	return &Manager{
		cfg:         cfg,
		dialer:      dialer,
		handler:     handler,
		logger:      logger,
		lastEventAt: threadsafe.NewTime(time.Time{}),
	}
}

// Run blocks until ctx is cancelled. Cancelling the context is the single
// teardown path: it closes the socket and stops the ping, poll and
// reconnect timers, so no callback fires afterwards.
func (m *Manager) Run(ctx context.Context) error {
	wg := &sync.WaitGroup{}
	wg.Add(1)
	go func() {
		defer wg.Done()
		m.pollLoop(ctx)
	}()

	attempt := 0
	for ctx.Err() == nil {
		conn, err := m.dialer.DialContext(ctx, m.cfg.URL)
		if err != nil {
			if ctx.Err() != nil {
				break
			}
			delay := timeutils.ExponentialDelay(attempt, m.cfg.BaseBackoff, m.cfg.MaxBackoff)
			attempt++
			m.logger.WarnCtx(ctx, "realtime channel dial failed",
				zap.Error(err),
				zap.Int("attempt", attempt),
				zap.Duration("retryIn", delay),
			)
			if err := timeutils.SleepCtx(ctx, delay); err != nil {
				break
			}
			continue
		}

		attempt = 0
		m.connected.Store(true)
		m.logger.InfoCtx(ctx, "realtime channel open", zap.String("url", m.cfg.URL))

		// reconcile anything missed while disconnected
		if err := m.handler.Resync(ctx); err != nil && ctx.Err() == nil {
			m.logger.ErrorCtx(ctx, "resync after connect failed", zap.Error(err))
		}

		m.serve(ctx, conn)
		m.connected.Store(false)

		if ctx.Err() != nil {
			break
		}
		delay := timeutils.ExponentialDelay(attempt, m.cfg.BaseBackoff, m.cfg.MaxBackoff)
		attempt++
		m.logger.WarnCtx(ctx, "realtime channel closed",
			zap.Int("attempt", attempt),
			zap.Duration("retryIn", delay),
		)
		if err := timeutils.SleepCtx(ctx, delay); err != nil {
			break
		}
	}

	wg.Wait()
	return nil
}

// serve reads until the connection dies. A companion goroutine owns the
// keepalive ticker and closes the socket on ctx cancellation, which
// unblocks the read loop.
func (m *Manager) serve(ctx context.Context, conn Conn) {
	readDone := make(chan struct{})

	wg := &sync.WaitGroup{}
	wg.Add(1)
	go func() {
		defer wg.Done()
		defer func() {
			_ = conn.Close()
		}()
		ticker := time.NewTicker(m.cfg.PingInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-readDone:
				return
			case <-ticker.C:
				if err := conn.WriteMessage(websocket.TextMessage, pushprotocol.PingMessage()); err != nil {
					m.logger.DebugCtx(ctx, "keepalive ping failed", zap.Error(err))
					return
				}
			}
		}
	}()

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() == nil {
				m.logger.DebugCtx(ctx, "realtime channel read failed", zap.Error(err))
			}
			break
		}
		m.lastEventAt.Set(time.Now())
		event, err := pushprotocol.Decode(raw)
		if err != nil {
			// malformed payloads degrade to a dropped message, never a crash
			m.logger.DebugCtx(ctx, "dropping malformed push payload", zap.Error(err))
			continue
		}
		if event.Type == pushprotocol.PingEvent {
			continue
		}
		m.handler.HandleEvent(ctx, event)
	}

	close(readDone)
	wg.Wait()
}

// pollLoop resyncs on a fixed interval while the channel is down, so the
// view degrades to slightly stale instead of fully stalling.
func (m *Manager) pollLoop(ctx context.Context) {
	ticker := time.NewTicker(m.cfg.PollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if m.connected.Load() {
				continue
			}
			if err := m.handler.Resync(ctx); err != nil && ctx.Err() == nil {
				m.logger.WarnCtx(ctx, "fallback poll failed", zap.Error(err))
			}
		}
	}
}

func (m *Manager) Connected() bool {
	return m.connected.Load()
}

func (m *Manager) LastEventAt() time.Time {
	return m.lastEventAt.Get()
}
