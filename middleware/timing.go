package middleware

import (
	"sync"
	"time"

	"github.com/0xeb/fastmcpp-sub002/protocol"
)

// MethodStats is the accumulated timing for one method.
type MethodStats struct {
	RequestCount  int64
	TotalDuration time.Duration
}

// Timing records per-method request counts and cumulative duration using a
// monotonic clock, and exposes the running totals via GetStats.
type Timing struct {
	mw    *Middleware
	mu    sync.Mutex
	stats map[string]*MethodStats
}

// NewTiming returns a Timing middleware. Use its Middleware() to install it
// in a Pipeline and GetStats to read back accumulated statistics.
func NewTiming() *Timing {
	t := &Timing{stats: make(map[string]*MethodStats)}
	t.mw = &Middleware{
		Name: "timing",
		OnMessage: func(ctx *MiddlewareContext, next CallNext) (*protocol.JSONRPCResponse, error) {
			start := time.Now()
			resp, err := next(ctx)
			t.record(ctx.Method, time.Since(start))
			return resp, err
		},
	}
	return t
}

func (t *Timing) record(method string, d time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()
	s, ok := t.stats[method]
	if !ok {
		s = &MethodStats{}
		t.stats[method] = s
	}
	s.RequestCount++
	s.TotalDuration += d
}

// GetStats returns a snapshot of the accumulated stats for method.
func (t *Timing) GetStats(method string) (MethodStats, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	s, ok := t.stats[method]
	if !ok {
		return MethodStats{}, false
	}
	return *s, true
}

// Middleware returns the installable hook table for this Timing instance.
func (t *Timing) Middleware() *Middleware {
	return t.mw
}
