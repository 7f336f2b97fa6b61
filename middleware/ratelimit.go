package middleware

import (
	"sync"
	"time"

	"github.com/0xeb/fastmcpp-sub002/mcperrors"
	"github.com/0xeb/fastmcpp-sub002/protocol"
)

// tokenBucket is the refill algorithm behind RateLimiting: it starts full,
// refills proportionally to elapsed wall-clock time on every check, and
// caps at burst.
type tokenBucket struct {
	rate       float64
	burst      float64
	tokens     float64
	lastUpdate time.Time
	mu         sync.Mutex
}

func newTokenBucket(rate, burst float64) *tokenBucket {
	return &tokenBucket{rate: rate, burst: burst, tokens: burst, lastUpdate: time.Now()}
}

func (b *tokenBucket) allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := time.Now()
	elapsed := now.Sub(b.lastUpdate).Seconds()
	b.tokens += elapsed * b.rate
	if b.tokens > b.burst {
		b.tokens = b.burst
	}
	b.lastUpdate = now

	if b.tokens < 1 {
		return false
	}
	b.tokens--
	return true
}

// RateLimitConfig configures NewRateLimiting.
type RateLimitConfig struct {
	TokensPerSecond float64
	MaxTokens       float64
}

// DefaultRateLimitConfig returns a permissive default: 10 tokens/s, burst 20.
func DefaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{TokensPerSecond: 10, MaxTokens: 20}
}

// RateLimiting is a single pipeline-wide token bucket. On each call it
// refills proportionally to elapsed time, caps at MaxTokens, and decrements
// by one; if fewer than one token remains it raises
// mcperrors.ErrRateLimitExceeded instead of calling next.
type RateLimiting struct {
	mw     *Middleware
	bucket *tokenBucket
}

// NewRateLimiting returns a RateLimiting middleware.
func NewRateLimiting(cfg RateLimitConfig) *RateLimiting {
	r := &RateLimiting{bucket: newTokenBucket(cfg.TokensPerSecond, cfg.MaxTokens)}
	r.mw = &Middleware{
		Name: "rate_limiting",
		OnMessage: func(ctx *MiddlewareContext, next CallNext) (*protocol.JSONRPCResponse, error) {
			if !r.bucket.allow() {
				return nil, mcperrors.ErrRateLimitExceeded
			}
			return next(ctx)
		},
	}
	return r
}

// Middleware returns the installable hook table for this RateLimiting instance.
func (r *RateLimiting) Middleware() *Middleware {
	return r.mw
}
