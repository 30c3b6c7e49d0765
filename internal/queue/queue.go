// Package queue is the Target Queue: a durable, de-duplicating FIFO of
// probe tasks fed by the DNS collector, the static/API ingress, and the
// remeasurement scheduler (spec.md §4.1).
package queue

import (
	"context"
	"time"

	"netwatch/internal/models"
	"netwatch/internal/store"
)

// EnqueueResult reports whether enqueue accepted a new task or deduped it
// against a recent identical submission.
type EnqueueResult int

const (
	Accepted EnqueueResult = iota
	Deduped
)

// pollInterval is how often Dequeue re-checks the table while waiting.
// Polling rather than LISTEN/NOTIFY keeps the queue's only dependency the
// same Postgres connection every other component already uses.
const pollInterval = 250 * time.Millisecond

// Queue is the Target Queue, backed by the shared Repository.
type Queue struct {
	repo         *store.Repository
	dedupeWindow time.Duration
}

// New creates a Queue with the given de-duplication window (spec.md §4.1
// "D configurable, default 60").
func New(repo *store.Repository, dedupeWindow time.Duration) *Queue {
	if dedupeWindow <= 0 {
		dedupeWindow = 60 * time.Second
	}
	return &Queue{repo: repo, dedupeWindow: dedupeWindow}
}

// Enqueue appends a task unless an identical (target_ip, source, priority)
// task was already submitted within the dedupe window.
func (q *Queue) Enqueue(ctx context.Context, targetIP string, source models.TargetSource, priority int) (EnqueueResult, error) {
	since := time.Now().Add(-q.dedupeWindow)
	dup, err := q.repo.RecentDuplicateExists(ctx, targetIP, source, priority, since)
	if err != nil {
		return Deduped, err
	}
	if dup {
		return Deduped, nil
	}

	task := models.Task{
		TargetIP:  targetIP,
		Source:    source,
		Priority:  priority,
		CreatedAt: time.Now(),
	}
	if err := q.repo.InsertTask(ctx, task); err != nil {
		return Deduped, err
	}
	return Accepted, nil
}

// Dequeue blocks up to timeout for the next task, FIFO within priority
// class, strict priority across classes (spec.md §4.1 "Contract"). Returns
// nil, nil on timeout ("empty").
func (q *Queue) Dequeue(ctx context.Context, timeout time.Duration) (*models.Task, error) {
	deadline := time.Now().Add(timeout)
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		task, err := q.repo.ClaimNextTask(ctx)
		if err != nil {
			return nil, err
		}
		if task != nil {
			return task, nil
		}
		if time.Now().After(deadline) {
			return nil, nil
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

// Depth returns the number of pending tasks (observational only).
func (q *Queue) Depth(ctx context.Context) (int64, error) {
	return q.repo.QueueDepth(ctx)
}

// Priority bands for the three producers, per spec.md §4.5 ("low priority"
// for remeasurement) — higher numeric value strictly precedes lower.
const (
	PriorityStatic    = 10
	PriorityAPI       = 10
	PriorityDNS       = 5
	PriorityRemeasure = 1
)

// PriorityFor maps a producer source to its queue priority band.
func PriorityFor(source models.TargetSource) int {
	switch source {
	case models.SourceDNS:
		return PriorityDNS
	case models.SourceRemeasure:
		return PriorityRemeasure
	default:
		return PriorityAPI
	}
}
