// Package scheduler is the Remeasurement Scheduler: it keeps measurement
// history fresh by re-enqueuing targets that have gone stale (spec.md §4.5).
package scheduler

import (
	"context"
	"log"
	"time"

	"netwatch/internal/models"
	"netwatch/internal/queue"
	"netwatch/internal/store"
)

const logPrefix = "[scheduler]"

// Scheduler runs the cycle of spec.md §4.5.
type Scheduler struct {
	repo  *store.Repository
	queue *queue.Queue
}

func New(repo *store.Repository, q *queue.Queue) *Scheduler {
	return &Scheduler{repo: repo, queue: q}
}

// Run executes cycles until ctx is cancelled, sleeping remeasure_interval_seconds
// between them.
func (s *Scheduler) Run(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}
		settings := LoadSettings(ctx, s.repo)
		if err := s.runCycle(ctx, settings); err != nil {
			log.Printf("%s cycle failed: %v", logPrefix, err)
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(settings.Interval):
		}
	}
}

// runCycle executes steps 2-3 of spec.md §4.5 once.
func (s *Scheduler) runCycle(ctx context.Context, settings Settings) error {
	cutoff := time.Now().Add(-settings.TTL)
	targets, err := s.repo.StaleTargets(ctx, cutoff, settings.BatchLimit)
	if err != nil {
		return err
	}

	for _, t := range targets {
		result, err := s.queue.Enqueue(ctx, t.IP, models.SourceRemeasure, queue.PriorityRemeasure)
		if err != nil {
			log.Printf("%s remeasure enqueue %s failed: %v", logPrefix, t.IP, err)
			continue
		}
		if result == queue.Deduped {
			log.Printf("%s remeasure target %s already queued", logPrefix, t.IP)
		}
	}
	return nil
}
