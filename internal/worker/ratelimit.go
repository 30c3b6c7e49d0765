package worker

import (
	"context"
	"sync"

	"golang.org/x/time/rate"
)

// probeLimiter throttles one worker's probe emission to a configured rate
// per minute (spec.md §4.2 "rate_limit_per_minute (per worker, default
// 30)" and rolling 60-second window). Each worker goroutine owns its own
// instance so pool throughput scales with worker_count. Reconfigure swaps
// the limiter's rate in place so a settings change takes effect without
// restarting the worker.
type probeLimiter struct {
	mu sync.RWMutex
	l  *rate.Limiter
}

func newProbeLimiter(perMinute int) *probeLimiter {
	return &probeLimiter{l: rate.NewLimiter(perMinuteToLimit(perMinute), burstFor(perMinute))}
}

func perMinuteToLimit(perMinute int) rate.Limit {
	if perMinute <= 0 {
		return rate.Inf
	}
	return rate.Limit(float64(perMinute) / 60.0)
}

// burstFor is always 1: probes are spaced 60/perMinute seconds apart, so no
// rolling 60-second window holds more than perMinute of them. A larger burst
// would let a full bucket plus a minute of refill through in one window.
func burstFor(perMinute int) int {
	return 1
}

// Reconfigure updates the limiter's rate and burst to match a freshly loaded
// Settings value, matching the teacher's "re-read and swap" env-driven style.
func (p *probeLimiter) Reconfigure(perMinute int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.l.SetLimit(perMinuteToLimit(perMinute))
	p.l.SetBurst(burstFor(perMinute))
}

// Wait blocks until a probe slot is available or ctx is done.
func (p *probeLimiter) Wait(ctx context.Context) error {
	p.mu.RLock()
	l := p.l
	p.mu.RUnlock()
	return l.Wait(ctx)
}
