package store

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/jackc/pgx/v5"

	"netwatch/internal/models"
)

// InsertMeasurement reserves a measurement row before the probe subprocess is
// even spawned (spec.md §4.2 step 4: "This reserves the id").
func (r *Repository) InsertMeasurement(ctx context.Context, targetID int64, tool string, startedAt time.Time) (int64, error) {
	var id int64
	err := r.db.QueryRow(ctx, `
		INSERT INTO measurements (target_id, tool, started_at, success)
		VALUES ($1, $2, $3, false)
		RETURNING id
	`, targetID, tool, startedAt).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert measurement: %w", err)
	}
	return id, nil
}

// CompleteMeasurement finalizes a measurement after the probe subprocess
// returns (successfully or not). completed_at >= started_at always holds
// because both are set from the same monotonically-advancing wall clock.
func (r *Repository) CompleteMeasurement(ctx context.Context, id int64, completedAt time.Time, success bool, rawOutput string) error {
	_, err := r.db.Exec(ctx, `
		UPDATE measurements SET completed_at = $2, success = $3, raw_output = $4
		WHERE id = $1
	`, id, completedAt, success, rawOutput)
	if err != nil {
		return fmt.Errorf("complete measurement %d: %w", id, err)
	}
	return nil
}

// InsertHops persists a measurement's parsed hop list in one batch write,
// per spec.md §4.2 step 7.
func (r *Repository) InsertHops(ctx context.Context, measurementID int64, hops []models.Hop) error {
	if len(hops) == 0 {
		return nil
	}

	batch := make([][]any, 0, len(hops))
	for _, h := range hops {
		if h.HopNumber < 1 {
			// Invariant violation (spec.md §7): log and skip, don't abort the batch.
			log.Printf("[store] skipping hop %d of measurement %d: hop number must be >= 1", h.HopNumber, measurementID)
			continue
		}
		batch = append(batch, []any{measurementID, h.HopNumber, h.HopIP, h.RTTMs, h.ASN, h.Prefix, h.OrgName, h.CountryCode})
	}
	if len(batch) == 0 {
		return nil
	}

	_, err := r.db.CopyFrom(ctx,
		pgx.Identifier{"hops"},
		[]string{"measurement_id", "hop_number", "hop_ip", "rtt_ms", "asn", "prefix", "org_name", "country_code"},
		pgx.CopyFromRows(batch),
	)
	if err != nil {
		return fmt.Errorf("insert hops for measurement %d: %w", measurementID, err)
	}
	return nil
}

// GetMeasurement fetches a single measurement row by id.
func (r *Repository) GetMeasurement(ctx context.Context, id int64) (*models.Measurement, error) {
	var m models.Measurement
	err := r.db.QueryRow(ctx, `
		SELECT id, target_id, tool, started_at, completed_at, success, raw_output,
		       enriched, enriched_at, graph_built, graph_built_at, attempts
		FROM measurements WHERE id = $1
	`, id).Scan(&m.ID, &m.TargetID, &m.Tool, &m.StartedAt, &m.CompletedAt, &m.Success, &m.RawOutput,
		&m.Enriched, &m.EnrichedAt, &m.GraphBuilt, &m.GraphBuiltAt, &m.Attempts)
	if err != nil {
		return nil, fmt.Errorf("get measurement %d: %w", id, err)
	}
	return &m, nil
}

// GetHops returns a measurement's hops ordered by hop_number, per spec.md §5
// ("within a single measurement, hops are ordered by hop_number").
func (r *Repository) GetHops(ctx context.Context, measurementID int64) ([]models.Hop, error) {
	rows, err := r.db.Query(ctx, `
		SELECT measurement_id, hop_number, hop_ip, rtt_ms, asn, prefix, org_name, country_code
		FROM hops WHERE measurement_id = $1 ORDER BY hop_number ASC
	`, measurementID)
	if err != nil {
		return nil, fmt.Errorf("query hops for measurement %d: %w", measurementID, err)
	}
	defer rows.Close()

	var out []models.Hop
	for rows.Next() {
		var h models.Hop
		if err := rows.Scan(&h.MeasurementID, &h.HopNumber, &h.HopIP, &h.RTTMs, &h.ASN, &h.Prefix, &h.OrgName, &h.CountryCode); err != nil {
			return nil, fmt.Errorf("scan hop: %w", err)
		}
		out = append(out, h)
	}
	return out, rows.Err()
}
