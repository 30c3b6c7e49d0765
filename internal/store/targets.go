package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"netwatch/internal/models"
)

// UpsertTarget creates a target on first sight, or returns the existing id.
// A target is created on first enqueue and never destroyed by the core
// (spec.md §3 "Lifecycles").
func (r *Repository) UpsertTarget(ctx context.Context, ip string, source models.TargetSource) (int64, error) {
	var id int64
	err := r.db.QueryRow(ctx, `
		INSERT INTO targets (ip, source)
		VALUES ($1, $2)
		ON CONFLICT (ip) DO UPDATE SET ip = EXCLUDED.ip
		RETURNING id
	`, ip, string(source)).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("upsert target %s: %w", ip, err)
	}
	return id, nil
}

// TouchTarget records that a target was just measured.
func (r *Repository) TouchTarget(ctx context.Context, targetID int64, at time.Time) error {
	_, err := r.db.Exec(ctx, `UPDATE targets SET last_measurement_at = $2 WHERE id = $1`, targetID, at)
	if err != nil {
		return fmt.Errorf("touch target %d: %w", targetID, err)
	}
	return nil
}

// StaleTargets returns up to limit targets whose last measurement predates
// the given cutoff (or that have never been measured), oldest first —
// spec.md §4.5 step 2.
func (r *Repository) StaleTargets(ctx context.Context, cutoff time.Time, limit int) ([]models.Target, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, ip, source, created_at, last_measurement_at
		FROM targets
		WHERE last_measurement_at IS NULL OR last_measurement_at < $1
		ORDER BY COALESCE(last_measurement_at, created_at) ASC
		LIMIT $2
	`, cutoff, limit)
	if err != nil {
		return nil, fmt.Errorf("query stale targets: %w", err)
	}
	defer rows.Close()

	var out []models.Target
	for rows.Next() {
		var t models.Target
		var src string
		if err := rows.Scan(&t.ID, &t.IP, &src, &t.CreatedAt, &t.LastMeasuredAt); err != nil {
			return nil, fmt.Errorf("scan stale target: %w", err)
		}
		t.Source = models.TargetSource(src)
		out = append(out, t)
	}
	return out, rows.Err()
}

// GetTargetByIP looks a target up by its canonical IP.
func (r *Repository) GetTargetByIP(ctx context.Context, ip string) (*models.Target, error) {
	var t models.Target
	var src string
	err := r.db.QueryRow(ctx, `
		SELECT id, ip, source, created_at, last_measurement_at FROM targets WHERE ip = $1
	`, ip).Scan(&t.ID, &t.IP, &src, &t.CreatedAt, &t.LastMeasuredAt)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get target %s: %w", ip, err)
	}
	t.Source = models.TargetSource(src)
	return &t, nil
}
