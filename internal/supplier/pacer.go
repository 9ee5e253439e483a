package supplier

import (
	"context"
	"sync"
	"time"
)

// DefaultCallInterval is the minimum spacing between generative-model calls.
// The free tier allows 15 requests per minute; 4.1s keeps a whole run under
// that ceiling with headroom.
const DefaultCallInterval = 4100 * time.Millisecond

// Pacer enforces a minimum interval between successive generative calls.
// It is deliberately a fixed-delay gate rather than a token bucket: products
// are processed sequentially within a run, and concurrent runs share the
// gate, so a single Pacer bounds the aggregate call rate for the process.
type Pacer struct {
	interval time.Duration

	mu   sync.Mutex
	next time.Time
}

// NewPacer creates a Pacer. A non-positive interval disables waiting,
// which tests rely on.
func NewPacer(interval time.Duration) *Pacer {
	return &Pacer{interval: interval}
}

// Wait blocks until the configured interval has elapsed since the previous
// generative call. Safe for concurrent use: each caller reserves the next
// slot under the lock, so overlapping runs are spaced out rather than racing.
func (p *Pacer) Wait(ctx context.Context) error {
	if p.interval <= 0 {
		return nil
	}

	p.mu.Lock()
	now := time.Now()
	slot := p.next
	if slot.Before(now) {
		slot = now
	}
	p.next = slot.Add(p.interval)
	p.mu.Unlock()

	wait := time.Until(slot)
	if wait <= 0 {
		return nil
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(wait):
		return nil
	}
}
