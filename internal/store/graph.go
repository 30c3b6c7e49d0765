package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"netwatch/internal/models"
)

// EnrichedNotGraphed selects measurements ready for graph projection:
// enriched=true AND graph_built=false (spec.md §4.4).
func (r *Repository) EnrichedNotGraphed(ctx context.Context, limit int) ([]models.Measurement, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, target_id, tool, started_at, completed_at, success, raw_output,
		       enriched, enriched_at, graph_built, graph_built_at, attempts
		FROM measurements
		WHERE enriched = true AND graph_built = false
		ORDER BY completed_at ASC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("query enriched-not-graphed: %w", err)
	}
	defer rows.Close()

	var out []models.Measurement
	for rows.Next() {
		var m models.Measurement
		if err := rows.Scan(&m.ID, &m.TargetID, &m.Tool, &m.StartedAt, &m.CompletedAt, &m.Success, &m.RawOutput,
			&m.Enriched, &m.EnrichedAt, &m.GraphBuilt, &m.GraphBuiltAt, &m.Attempts); err != nil {
			return nil, fmt.Errorf("scan measurement: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// UpsertGraphNode upserts an AS node with its latest known metadata.
func (r *Repository) UpsertGraphNode(ctx context.Context, tx pgx.Tx, asn int64, orgName, country string, now time.Time) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO as_nodes (asn, org_name, country_code, last_seen)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (asn) DO UPDATE SET
			org_name     = COALESCE(NULLIF(EXCLUDED.org_name, ''), as_nodes.org_name),
			country_code = COALESCE(NULLIF(EXCLUDED.country_code, ''), as_nodes.country_code),
			last_seen    = $4
	`, asn, orgName, country, now)
	if err != nil {
		return fmt.Errorf("upsert as node %d: %w", asn, err)
	}
	return nil
}

// UpsertGraphEdge upserts a directed AS edge, incrementing observed_count
// and widening the min/max RTT atomically in a single statement — spec.md
// §5 "edge upserts use atomic increment ... atomic min/max".
func (r *Repository) UpsertGraphEdge(ctx context.Context, tx pgx.Tx, src, dst int64, rttMs *float64, now time.Time) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO as_edges (src_asn, dst_asn, observed_count, min_rtt_ms, max_rtt_ms, last_seen)
		VALUES ($1, $2, 1, $3, $3, $4)
		ON CONFLICT (src_asn, dst_asn) DO UPDATE SET
			observed_count = as_edges.observed_count + 1,
			min_rtt_ms = LEAST(COALESCE(as_edges.min_rtt_ms, $3), COALESCE($3, as_edges.min_rtt_ms)),
			max_rtt_ms = GREATEST(COALESCE(as_edges.max_rtt_ms, $3), COALESCE($3, as_edges.max_rtt_ms)),
			last_seen = $4
	`, src, dst, rttMs, now)
	if err != nil {
		return fmt.Errorf("upsert as edge %d->%d: %w", src, dst, err)
	}
	return nil
}

// MarkGraphBuilt flips graph_built=true atomically for a batch of measurements.
func (r *Repository) MarkGraphBuilt(ctx context.Context, tx pgx.Tx, measurementIDs []int64, at time.Time) error {
	if len(measurementIDs) == 0 {
		return nil
	}
	_, err := tx.Exec(ctx, `
		UPDATE measurements SET graph_built = true, graph_built_at = $2 WHERE id = ANY($1)
	`, measurementIDs, at)
	if err != nil {
		return fmt.Errorf("mark graph built: %w", err)
	}
	return nil
}

// Edge returns the current state of one AS edge, mainly for tests.
func (r *Repository) Edge(ctx context.Context, src, dst int64) (*models.Edge, error) {
	var e models.Edge
	err := r.db.QueryRow(ctx, `
		SELECT src_asn, dst_asn, observed_count, min_rtt_ms, max_rtt_ms, last_seen
		FROM as_edges WHERE src_asn = $1 AND dst_asn = $2
	`, src, dst).Scan(&e.SrcASN, &e.DstASN, &e.ObservedCount, &e.MinRTTMs, &e.MaxRTTMs, &e.LastSeen)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get edge %d->%d: %w", src, dst, err)
	}
	return &e, nil
}
