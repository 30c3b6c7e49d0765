package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"netwatch/internal/models"
)

// RecentDuplicateExists reports whether an identical (target_ip, source,
// priority) task was submitted within the dedupe window — spec.md §4.1
// "de-duplication".
func (r *Repository) RecentDuplicateExists(ctx context.Context, targetIP string, source models.TargetSource, priority int, since time.Time) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM tasks
			WHERE target_ip = $1 AND source = $2 AND priority = $3 AND created_at >= $4
		)
	`, targetIP, string(source), priority, since).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check duplicate task: %w", err)
	}
	return exists, nil
}

// InsertTask appends a new task to the durable queue.
func (r *Repository) InsertTask(ctx context.Context, t models.Task) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	_, err := r.db.Exec(ctx, `
		INSERT INTO tasks (id, target_ip, source, priority, created_at, deadline)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, t.ID, t.TargetIP, string(t.Source), t.Priority, t.CreatedAt, t.Deadline)
	if err != nil {
		return fmt.Errorf("insert task: %w", err)
	}
	return nil
}

// ClaimNextTask atomically pops the highest-priority, oldest pending task.
// FOR UPDATE SKIP LOCKED lets multiple worker processes pop concurrently
// without blocking each other on the same row (spec.md §4.1/§5 "any
// producer may append; workers are the only consumers").
func (r *Repository) ClaimNextTask(ctx context.Context) (*models.Task, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin claim tx: %w", err)
	}
	defer tx.Rollback(ctx)

	var t models.Task
	var src string
	err = tx.QueryRow(ctx, `
		SELECT id, target_ip, source, priority, created_at, deadline
		FROM tasks
		ORDER BY priority DESC, created_at ASC
		FOR UPDATE SKIP LOCKED
		LIMIT 1
	`).Scan(&t.ID, &t.TargetIP, &src, &t.Priority, &t.CreatedAt, &t.Deadline)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("claim next task: %w", err)
	}
	t.Source = models.TargetSource(src)

	if _, err := tx.Exec(ctx, `DELETE FROM tasks WHERE id = $1`, t.ID); err != nil {
		return nil, fmt.Errorf("delete claimed task %s: %w", t.ID, err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit claim tx: %w", err)
	}
	return &t, nil
}

// QueueDepth returns the number of pending tasks.
func (r *Repository) QueueDepth(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.QueryRow(ctx, `SELECT count(*) FROM tasks`).Scan(&n); err != nil {
		return 0, fmt.Errorf("queue depth: %w", err)
	}
	return n, nil
}
