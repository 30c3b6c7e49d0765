// Package worker is the Worker Pool: it drains the Target Queue at a
// controlled rate, runs the configured probe tool, and persists the result
// as a measurement plus its hops (spec.md §4.2).
package worker

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"netwatch/internal/metrics"
	"netwatch/internal/models"
	"netwatch/internal/queue"
	"netwatch/internal/store"
)

// dequeueTimeout bounds each blocking pop so a worker re-checks settings
// periodically even when the queue is empty (spec.md §4.2 step 1).
const dequeueTimeout = 5 * time.Second

// toolNotFoundBackoff is how long a worker sleeps when no preferred tool is
// present on host before re-checking (spec.md §4.2 "Failure semantics").
const toolNotFoundBackoff = 30 * time.Second

// Pool runs worker_count goroutines draining the same Queue. Each worker
// owns its own rate limiter: rate_limit_per_minute is a per-worker budget
// (spec.md §4.2), not a pool-wide one.
type Pool struct {
	repo          *store.Repository
	queue         *queue.Queue
	metrics       *metrics.Metrics
	tracer        trace.Tracer
	probeToolPath string
}

// New constructs a Pool. worker_count is read once when Run starts; every
// other setting is re-read by each worker before every dequeue, never cached
// for the process lifetime (spec.md §9 "Global state").
func New(repo *store.Repository, q *queue.Queue, m *metrics.Metrics, tracer trace.Tracer, probeToolPath string) *Pool {
	return &Pool{repo: repo, queue: q, metrics: m, tracer: tracer, probeToolPath: probeToolPath}
}

// Run starts worker_count goroutines and blocks until ctx is cancelled.
func (p *Pool) Run(ctx context.Context) {
	settings := LoadSettings(ctx, p.repo)
	n := settings.WorkerCount
	if n < 1 {
		n = 1
	}

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			p.runWorker(ctx, id)
		}(i)
	}
	wg.Wait()
}

func (p *Pool) runWorker(ctx context.Context, id int) {
	prefix := fmt.Sprintf("[worker %d]", id)

	// Each worker gets its own limiter so rate_limit_per_minute is a
	// per-worker budget, not shared across the pool.
	limiter := newProbeLimiter(defaultSettings().RateLimitPerMinute)

	var sem chan struct{}
	var semSize int

	for {
		if ctx.Err() != nil {
			return
		}

		settings := LoadSettings(ctx, p.repo)
		limiter.Reconfigure(settings.RateLimitPerMinute)
		if semSize != settings.MaxConcurrentProbes {
			semSize = settings.MaxConcurrentProbes
			if semSize < 1 {
				semSize = 1
			}
			sem = make(chan struct{}, semSize)
		}

		task, err := p.queue.Dequeue(ctx, dequeueTimeout)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			log.Printf("%s dequeue failed: %v", prefix, err)
			continue
		}
		if task == nil {
			continue // timeout; loop re-checks settings
		}

		tool, binPath, err := resolveTool(settings.ToolPreference, p.probeToolPath)
		if err != nil {
			log.Printf("%s no probe tool available, backing off: %v", prefix, err)
			select {
			case <-ctx.Done():
				return
			case <-time.After(toolNotFoundBackoff):
			}
			continue
		}

		if err := limiter.Wait(ctx); err != nil {
			return
		}

		select {
		case sem <- struct{}{}:
		case <-ctx.Done():
			return
		}

		p.probe(ctx, prefix, tool, binPath, task.TargetIP, task.Source, settings.ProbeTimeout)
		<-sem
	}
}

// probe executes steps 4-7 of the per-worker algorithm for one task.
func (p *Pool) probe(ctx context.Context, logPrefix string, tool Tool, binPath, targetIP string, source models.TargetSource, timeout time.Duration) {
	targetID, err := p.repo.UpsertTarget(ctx, targetIP, source)
	if err != nil {
		log.Printf("%s upsert target %s failed: %v", logPrefix, targetIP, err)
		return
	}

	startedAt := time.Now()
	measurementID, err := p.repo.InsertMeasurement(ctx, targetID, tool.Name(), startedAt)
	if err != nil {
		log.Printf("%s reserve measurement for %s failed: %v", logPrefix, targetIP, err)
		return
	}

	probeCtx, cancel := context.WithTimeout(ctx, timeout)
	probeCtx, span := p.tracer.Start(probeCtx, "worker.probe")
	span.SetAttributes(attribute.String("tool", tool.Name()), attribute.String("target_ip", targetIP))
	exitCode, rawOutput, hops, runErr := tool.Run(probeCtx, binPath, targetIP)
	duration := time.Since(startedAt)
	if runErr != nil {
		span.RecordError(runErr)
	}
	span.End()
	cancel()

	if runErr != nil {
		log.Printf("%s probe subprocess %s against %s failed: %v", logPrefix, tool.Name(), targetIP, runErr)
	}

	if err := p.repo.InsertHops(ctx, measurementID, hops); err != nil {
		// Per spec.md §4.2 "Database write failure": don't re-enqueue, the
		// remeasurement loop will pick this target up again.
		log.Printf("%s persist hops for measurement %d failed: %v", logPrefix, measurementID, err)
	}

	success := exitCode == 0 && hasNonTimeoutHop(hops)
	if p.metrics != nil {
		p.metrics.ProbesTotal.WithLabelValues(tool.Name(), strconv.FormatBool(success)).Inc()
		p.metrics.ProbeDuration.WithLabelValues(tool.Name()).Observe(duration.Seconds())
	}

	if err := p.repo.CompleteMeasurement(ctx, measurementID, time.Now(), success, rawOutput); err != nil {
		log.Printf("%s complete measurement %d failed: %v", logPrefix, measurementID, err)
		return
	}
	if err := p.repo.TouchTarget(ctx, targetID, startedAt); err != nil {
		log.Printf("%s touch target %d failed: %v", logPrefix, targetID, err)
	}
}

func hasNonTimeoutHop(hops []models.Hop) bool {
	for _, h := range hops {
		if h.HopIP != nil {
			return true
		}
	}
	return false
}
