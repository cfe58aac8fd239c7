// Package throttle implements per-client fixed-window admission control.
//
// Each client gets a budget of Limit requests per Window. The window starts
// at the client's first request and resets on the first request after it
// has elapsed. State lives only in process memory.
package throttle

import (
	"context"
	"errors"
	"sync"
	"time"
)

const (
	DefaultLimit  = 2
	DefaultWindow = 60 * time.Second
)

type Config struct {
	Limit  int
	Window time.Duration
}

type record struct {
	count       int
	windowStart time.Time
}

// Throttle owns the per-client records. The zero value is not usable; call
// New.
type Throttle struct {
	mu      sync.Mutex
	records map[string]*record

	limit  int
	window time.Duration
	now    func() time.Time
}

type Option func(*Throttle)

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(t *Throttle) { t.now = now }
}

// New returns a throttle for cfg. Zero fields select the defaults.
func New(cfg Config, opts ...Option) (*Throttle, error) {
	if cfg.Limit == 0 {
		cfg.Limit = DefaultLimit
	}
	if cfg.Window == 0 {
		cfg.Window = DefaultWindow
	}
	if cfg.Limit < 0 || cfg.Window < 0 {
		return nil, errors.New("throttle: limit and window must be positive")
	}

	t := &Throttle{
		records: make(map[string]*record),
		limit:   cfg.Limit,
		window:  cfg.Window,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t, nil
}

// Admit reports whether a request from clientID fits in its current window.
// A rejected request does not consume budget.
func (t *Throttle) Admit(clientID string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()

	r, ok := t.records[clientID]
	if !ok || now.Sub(r.windowStart) > t.window {
		t.records[clientID] = &record{count: 1, windowStart: now}
		return true
	}
	if r.count >= t.limit {
		return false
	}
	r.count++
	return true
}

// Limit returns the configured budget per window.
func (t *Throttle) Limit() int { return t.limit }

// Window returns the configured window length.
func (t *Throttle) Window() time.Duration { return t.window }

// Len returns the number of tracked clients.
func (t *Throttle) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.records)
}

// Sweep drops records whose window has elapsed and returns how many were
// removed. The next Admit for such a client starts a fresh window either
// way, so sweeping never changes a decision.
func (t *Throttle) Sweep() int {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	removed := 0
	for id, r := range t.records {
		if now.Sub(r.windowStart) > t.window {
			delete(t.records, id)
			removed++
		}
	}
	return removed
}

// Run sweeps every interval until ctx is done.
func (t *Throttle) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = t.window
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			t.Sweep()
		}
	}
}
