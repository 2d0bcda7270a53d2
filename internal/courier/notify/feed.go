package notify

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"courierboard/internal/courier/data"
	"courierboard/pkg/logging"
)

const (
	DefaultCapacity = 50
)

// Sink receives every pushed item in addition to the in-memory feed.
// Sink failures are logged and dropped; delivery is best effort.
type Sink interface {
	Push(item data.NotificationItem) error
}

// Feed is a bounded, newest-first ring of human-readable event
// descriptions derived from reconciled changes.
type Feed struct {
	mux      sync.Mutex
	items    []data.NotificationItem
	capacity int
	sinks    []Sink
	logger   *logging.ZapLogger
}

func NewFeed(capacity int, logger *logging.ZapLogger, sinks ...Sink) *Feed {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Feed{
		items:    make([]data.NotificationItem, 0, capacity),
		capacity: capacity,
		sinks:    sinks,
		logger:   logger,
	}
}

func (f *Feed) Push(title, body string) data.NotificationItem {
	item := data.NotificationItem{
		ID:        uuid.NewString(),
		Title:     title,
		Body:      body,
		CreatedAt: time.Now(),
	}

	f.mux.Lock()
	f.items = append([]data.NotificationItem{item}, f.items...)
	if len(f.items) > f.capacity {
		f.items = f.items[:f.capacity]
	}
	f.mux.Unlock()

	for _, sink := range f.sinks {
		if err := sink.Push(item); err != nil {
			f.logger.WarnCtx(context.Background(), "notification sink failed", zap.Error(err))
		}
	}

	return item
}

// Items returns a newest-first copy.
func (f *Feed) Items() []data.NotificationItem {
	f.mux.Lock()
	defer f.mux.Unlock()
	out := make([]data.NotificationItem, len(f.items))
	copy(out, f.items)
	return out
}
