package worker

import (
	"context"
	"testing"
	"time"
)

// TestProbeLimiterIndependentPerInstance pins down the spec.md §4.2
// "rate_limit_per_minute (per worker)" property directly: a limiter's
// budget must not drain another limiter's tokens, the way a pool-wide
// shared limiter would.
func TestProbeLimiterIndependentPerInstance(t *testing.T) {
	a := newProbeLimiter(1)
	b := newProbeLimiter(1)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	if err := a.Wait(ctx); err != nil {
		t.Fatalf("a's first wait should succeed immediately: %v", err)
	}

	tightCtx, tightCancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer tightCancel()
	if err := b.Wait(tightCtx); err != nil {
		t.Fatalf("b must have its own budget unaffected by a's consumption: %v", err)
	}
}

func TestProbeLimiterReconfigureIsPerInstance(t *testing.T) {
	a := newProbeLimiter(30)
	b := newProbeLimiter(30)

	a.Reconfigure(1)

	if a.l.Limit() == b.l.Limit() {
		t.Fatalf("reconfiguring one limiter must not affect another instance's rate")
	}
}
