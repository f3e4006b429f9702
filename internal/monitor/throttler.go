package monitor

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

// Throttler forwards price updates to a channel at most once per interval.
// Updates arriving in between replace a single pending update, so the latest
// price is never lost, only delayed until FlushPending.
type Throttler struct {
	mu       sync.Mutex
	interval time.Duration
	lastSent time.Time
	pending  *PriceUpdate
	out      chan<- PriceUpdate
	logger   *zap.Logger
	now      func() time.Time
	dropped  uint64
	sent     uint64
}

func NewThrottler(interval time.Duration, out chan<- PriceUpdate, logger *zap.Logger) *Throttler {
	return &Throttler{interval: interval, out: out, logger: logger, now: time.Now}
}

// Send forwards update now or keeps it as the pending update.
func (t *Throttler) Send(update PriceUpdate) {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	if now.Sub(t.lastSent) < t.interval {
		t.pending = &update
		t.dropped++
		return
	}
	t.deliver(update, now)
}

// FlushPending sends the pending update once the interval has passed.
func (t *Throttler) FlushPending() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.pending == nil {
		return
	}
	if now := t.now(); now.Sub(t.lastSent) >= t.interval {
		t.deliver(*t.pending, now)
	}
}

func (t *Throttler) deliver(update PriceUpdate, now time.Time) {
	select {
	case t.out <- update:
		t.lastSent = now
		t.sent++
		t.pending = nil
	default:
		t.pending = &update
		t.dropped++
		t.logger.Debug("Price update channel full, keeping update pending")
	}
}

// Stats returns how many updates were sent and how many were held back.
func (t *Throttler) Stats() (sent, dropped uint64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.sent, t.dropped
}

// HasPending reports whether an update is waiting for the next flush.
func (t *Throttler) HasPending() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.pending != nil
}
