package realtime

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"courierboard/internal/common/pushprotocol"
	"courierboard/pkg/logging"
)

type fakeConn struct {
	incoming  chan []byte
	writes    chan []byte
	done      chan struct{}
	closeOnce sync.Once
}

func newFakeConn() *fakeConn {
	return &fakeConn{
		incoming: make(chan []byte, 16),
		writes:   make(chan []byte, 16),
		done:     make(chan struct{}),
	}
}

func (c *fakeConn) ReadMessage() (int, []byte, error) {
	select {
	case msg := <-c.incoming:
		return websocket.TextMessage, msg, nil
	case <-c.done:
		return 0, nil, errors.New("connection closed")
	}
}

func (c *fakeConn) WriteMessage(_ int, data []byte) error {
	select {
	case <-c.done:
		return errors.New("connection closed")
	default:
	}
	select {
	case c.writes <- data:
	default:
	}
	return nil
}

func (c *fakeConn) Close() error {
	c.closeOnce.Do(func() {
		close(c.done)
	})
	return nil
}

type fakeDialer struct {
	mux      sync.Mutex
	failures int
	dials    int
	conns    chan *fakeConn
}

func newFakeDialer(failures int) *fakeDialer {
	return &fakeDialer{
		failures: failures,
		conns:    make(chan *fakeConn, 16),
	}
}

func (d *fakeDialer) DialContext(_ context.Context, _ string) (Conn, error) {
	d.mux.Lock()
	d.dials++
	n := d.dials
	d.mux.Unlock()
	if n <= d.failures {
		return nil, errors.New("dial refused")
	}
	conn := newFakeConn()
	d.conns <- conn
	return conn, nil
}

func (d *fakeDialer) dialCount() int {
	d.mux.Lock()
	defer d.mux.Unlock()
	return d.dials
}

type fakeHandler struct {
	events  chan pushprotocol.Event
	resyncs chan struct{}
}

func newFakeHandler() *fakeHandler {
	return &fakeHandler{
		events:  make(chan pushprotocol.Event, 16),
		resyncs: make(chan struct{}, 64),
	}
}

func (h *fakeHandler) HandleEvent(_ context.Context, event pushprotocol.Event) {
	h.events <- event
}

func (h *fakeHandler) Resync(_ context.Context) error {
	select {
	case h.resyncs <- struct{}{}:
	default:
	}
	return nil
}

func testConfig() Config {
	return Config{
		URL:          "ws://backend/realtime",
		PingInterval: time.Hour,
		PollInterval: time.Hour,
		BaseBackoff:  time.Millisecond,
		MaxBackoff:   4 * time.Millisecond,
	}
}

func runManager(t *testing.T, m *Manager) (cancel context.CancelFunc, finished chan struct{}) {
	t.Helper()
	ctx, cancelCtx := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = m.Run(ctx)
	}()
	t.Cleanup(func() {
		cancelCtx()
		waitClosed(t, done)
	})
	return cancelCtx, done
}

func waitClosed(t *testing.T, ch chan struct{}) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for shutdown")
	}
}

func waitConn(t *testing.T, d *fakeDialer) *fakeConn {
	t.Helper()
	select {
	case conn := <-d.conns:
		return conn
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for connection")
		return nil
	}
}

func waitResync(t *testing.T, h *fakeHandler) {
	t.Helper()
	select {
	case <-h.resyncs:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for resync")
	}
}

func waitEvent(t *testing.T, h *fakeHandler) pushprotocol.Event {
	t.Helper()
	select {
	case event := <-h.events:
		return event
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
		return pushprotocol.Event{}
	}
}

func TestConnectResyncAndDispatch(t *testing.T) {
	dialer := newFakeDialer(2)
	handler := newFakeHandler()
	m := New(testConfig(), dialer, handler, logging.NewNop())
	runManager(t, m)

	conn := waitConn(t, dialer)
	waitResync(t, handler)
	assert.GreaterOrEqual(t, dialer.dialCount(), 3)
	assert.True(t, m.Connected())

	conn.incoming <- []byte(`{"type":"order_status","data":{"order_id":"o1","status":"accepted"}}`)
	event := waitEvent(t, handler)
	require.NotNil(t, event.OrderStatus)
	assert.Equal(t, "o1", event.OrderStatus.OrderID)

	// malformed payloads are dropped without killing the read loop
	conn.incoming <- []byte(`{broken`)
	conn.incoming <- []byte(`{"type":"driver_status","data":{"driver_id":"d1","online":true}}`)
	event = waitEvent(t, handler)
	require.NotNil(t, event.DriverStatus)
	assert.True(t, event.DriverStatus.Online)
}

func TestReconnectAfterDrop(t *testing.T) {
	dialer := newFakeDialer(0)
	handler := newFakeHandler()
	m := New(testConfig(), dialer, handler, logging.NewNop())
	runManager(t, m)

	first := waitConn(t, dialer)
	waitResync(t, handler)

	// server drops the connection
	require.NoError(t, first.Close())

	second := waitConn(t, dialer)
	waitResync(t, handler)
	assert.NotSame(t, first, second)
}

func TestTeardownClosesConnection(t *testing.T) {
	dialer := newFakeDialer(0)
	handler := newFakeHandler()
	m := New(testConfig(), dialer, handler, logging.NewNop())
	cancel, finished := runManager(t, m)

	conn := waitConn(t, dialer)
	waitResync(t, handler)

	cancel()
	waitClosed(t, finished)
	waitClosed(t, conn.done)
	assert.False(t, m.Connected())
}

func TestPollFallbackWhileDisconnected(t *testing.T) {
	dialer := newFakeDialer(1 << 30)
	handler := newFakeHandler()
	cfg := testConfig()
	cfg.PollInterval = 2 * time.Millisecond
	m := New(cfg, dialer, handler, logging.NewNop())
	runManager(t, m)

	waitResync(t, handler)
	waitResync(t, handler)
	assert.False(t, m.Connected())
}

func TestKeepalivePings(t *testing.T) {
	dialer := newFakeDialer(0)
	handler := newFakeHandler()
	cfg := testConfig()
	cfg.PingInterval = 2 * time.Millisecond
	m := New(cfg, dialer, handler, logging.NewNop())
	runManager(t, m)

	conn := waitConn(t, dialer)
	select {
	case frame := <-conn.writes:
		assert.JSONEq(t, string(pushprotocol.PingMessage()), string(frame))
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for keepalive ping")
	}
}
