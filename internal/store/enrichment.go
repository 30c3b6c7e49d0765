package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"netwatch/internal/models"
)

// UnenrichedBatch selects up to limit measurements with enriched=false,
// ordered by completed_at ascending — spec.md §4.3 step 1. Measurements
// still in flight (completed_at IS NULL) are excluded; the remeasurement
// scheduler eventually re-enqueues their target (spec.md §5 "Cancellation").
func (r *Repository) UnenrichedBatch(ctx context.Context, limit int) ([]models.Measurement, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, target_id, tool, started_at, completed_at, success, raw_output,
		       enriched, enriched_at, graph_built, graph_built_at, attempts
		FROM measurements
		WHERE enriched = false AND completed_at IS NOT NULL
		ORDER BY completed_at ASC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("query unenriched batch: %w", err)
	}
	defer rows.Close()

	var out []models.Measurement
	for rows.Next() {
		var m models.Measurement
		if err := rows.Scan(&m.ID, &m.TargetID, &m.Tool, &m.StartedAt, &m.CompletedAt, &m.Success, &m.RawOutput,
			&m.Enriched, &m.EnrichedAt, &m.GraphBuilt, &m.GraphBuiltAt, &m.Attempts); err != nil {
			return nil, fmt.Errorf("scan unenriched measurement: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// HopsForMeasurements returns all hops belonging to the given measurement ids.
func (r *Repository) HopsForMeasurements(ctx context.Context, measurementIDs []int64) ([]models.Hop, error) {
	if len(measurementIDs) == 0 {
		return nil, nil
	}
	rows, err := r.db.Query(ctx, `
		SELECT measurement_id, hop_number, hop_ip, rtt_ms, asn, prefix, org_name, country_code
		FROM hops WHERE measurement_id = ANY($1) ORDER BY measurement_id, hop_number ASC
	`, measurementIDs)
	if err != nil {
		return nil, fmt.Errorf("query hops for batch: %w", err)
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

// UpdateHopEnrichment writes the resolved AS fields back onto one hop row.
// Enrichment fields are set only by the Enrichment Engine (spec.md §3).
func (r *Repository) UpdateHopEnrichment(ctx context.Context, tx pgx.Tx, measurementID int64, hopNumber int, asn *int64, org, country, prefix *string) error {
	_, err := tx.Exec(ctx, `
		UPDATE hops SET asn = $3, org_name = $4, country_code = $5, prefix = $6
		WHERE measurement_id = $1 AND hop_number = $2
	`, measurementID, hopNumber, asn, org, country, prefix)
	if err != nil {
		return fmt.Errorf("update hop enrichment (%d,%d): %w", measurementID, hopNumber, err)
	}
	return nil
}

// MarkEnriched flips enriched=true atomically for every measurement in the
// batch (spec.md §4.3 step 6). The flag is monotonic: never reset elsewhere.
func (r *Repository) MarkEnriched(ctx context.Context, tx pgx.Tx, measurementIDs []int64, at time.Time) error {
	if len(measurementIDs) == 0 {
		return nil
	}
	_, err := tx.Exec(ctx, `
		UPDATE measurements SET enriched = true, enriched_at = $2
		WHERE id = ANY($1)
	`, measurementIDs, at)
	if err != nil {
		return fmt.Errorf("mark enriched: %w", err)
	}
	return nil
}

// IncrementAttempts bumps the retry counter for measurements that failed to
// fully enrich this cycle, enforcing the retry ceiling of spec.md §4.3.
func (r *Repository) IncrementAttempts(ctx context.Context, tx pgx.Tx, measurementIDs []int64) error {
	if len(measurementIDs) == 0 {
		return nil
	}
	_, err := tx.Exec(ctx, `UPDATE measurements SET attempts = attempts + 1 WHERE id = ANY($1)`, measurementIDs)
	if err != nil {
		return fmt.Errorf("increment attempts: %w", err)
	}
	return nil
}

// BeginTx starts a transaction; enrichment and graph projection batches each
// execute inside a single transaction (spec.md §5).
func (r *Repository) BeginTx(ctx context.Context) (pgx.Tx, error) {
	return r.db.Begin(ctx)
}

// GetASN looks up the cached ASN record, or nil if never seen.
func (r *Repository) GetASN(ctx context.Context, asn int64) (*models.ASN, error) {
	var a models.ASN
	err := r.db.QueryRow(ctx, `
		SELECT asn, org_name, country_code, prefix_count, neighbor_count, source, peeringdb_id,
		       facility_count, peering_policy, traffic_levels, irr_as_set, total_measurements,
		       avg_rtt_ms, first_seen, last_seen, last_enriched, last_enrichment_attempt
		FROM asns WHERE asn = $1
	`, asn).Scan(&a.ASN, &a.OrgName, &a.CountryCode, &a.PrefixCount, &a.NeighborCount, &a.Source, &a.PeeringDBID,
		&a.FacilityCount, &a.PeeringPolicy, &a.TrafficLevels, &a.IRRASSet, &a.TotalMeasurements,
		&a.AvgRTTMs, &a.FirstSeen, &a.LastSeen, &a.LastEnriched, &a.LastEnrichmentAttempt)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get asn %d: %w", asn, err)
	}
	return &a, nil
}

// CachedASNForIP returns the most recently seen ASN record for a hop IP, by
// joining the hop's last-known asn against the asns cache table — the
// "local asns cache" lookup of spec.md §4.3 step 1, keyed transitively
// through whichever measurement last resolved this IP.
func (r *Repository) CachedASNForIP(ctx context.Context, ip string) (*models.ASN, error) {
	var a models.ASN
	err := r.db.QueryRow(ctx, `
		SELECT a.asn, a.org_name, a.country_code, a.prefix_count, a.neighbor_count, a.source, a.peeringdb_id,
		       a.facility_count, a.peering_policy, a.traffic_levels, a.irr_as_set, a.total_measurements,
		       a.avg_rtt_ms, a.first_seen, a.last_seen, a.last_enriched, a.last_enrichment_attempt
		FROM hops h
		JOIN asns a ON a.asn = h.asn
		WHERE h.hop_ip = $1 AND h.asn IS NOT NULL
		ORDER BY a.last_enriched DESC NULLS LAST
		LIMIT 1
	`, ip).Scan(&a.ASN, &a.OrgName, &a.CountryCode, &a.PrefixCount, &a.NeighborCount, &a.Source, &a.PeeringDBID,
		&a.FacilityCount, &a.PeeringPolicy, &a.TrafficLevels, &a.IRRASSet, &a.TotalMeasurements,
		&a.AvgRTTMs, &a.FirstSeen, &a.LastSeen, &a.LastEnriched, &a.LastEnrichmentAttempt)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("cached asn for ip %s: %w", ip, err)
	}
	return &a, nil
}

// UpsertASNResult is what UpsertASN writes back: core fields (asn, org,
// country, source), the PeeringDB fields, plus aggregates recomputed from this batch's
// hop RTTs (spec.md §4.3 step 5).
type UpsertASNResult struct {
	ASN           int64
	OrgName       string
	CountryCode   string
	PeeringDBID   int64
	FacilityCount int
	PeeringPolicy string
	TrafficLevels string
	IRRASSet      string
	Source        string
	SampleRTTs    []float64
}

// UpsertASN writes the merged lookup result into the asns cache table. The
// merge priority (PeeringDB > fallbacks > Cymru) has already been applied
// by the enrichment engine before calling this — this is a pure write.
func (r *Repository) UpsertASN(ctx context.Context, tx pgx.Tx, res UpsertASNResult, now time.Time) error {
	sum, n := 0.0, 0
	for _, v := range res.SampleRTTs {
		sum += v
		n++
	}

	_, err := tx.Exec(ctx, `
		INSERT INTO asns (
			asn, org_name, country_code, source, peeringdb_id, facility_count,
			peering_policy, traffic_levels, irr_as_set, total_measurements, avg_rtt_ms,
			first_seen, last_seen, last_enriched, last_enrichment_attempt
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$12,$12,$12)
		ON CONFLICT (asn) DO UPDATE SET
			org_name     = COALESCE(NULLIF(EXCLUDED.org_name, ''), asns.org_name),
			country_code = COALESCE(NULLIF(EXCLUDED.country_code, ''), asns.country_code),
			source       = COALESCE(NULLIF(EXCLUDED.source, ''), asns.source),
			peeringdb_id = CASE WHEN EXCLUDED.peeringdb_id <> 0 THEN EXCLUDED.peeringdb_id ELSE asns.peeringdb_id END,
			facility_count = CASE WHEN EXCLUDED.facility_count <> 0 THEN EXCLUDED.facility_count ELSE asns.facility_count END,
			peering_policy = COALESCE(NULLIF(EXCLUDED.peering_policy, ''), asns.peering_policy),
			traffic_levels = COALESCE(NULLIF(EXCLUDED.traffic_levels, ''), asns.traffic_levels),
			irr_as_set     = COALESCE(NULLIF(EXCLUDED.irr_as_set, ''), asns.irr_as_set),
			total_measurements = asns.total_measurements + $10,
			avg_rtt_ms = CASE WHEN $10 > 0
				THEN ((asns.avg_rtt_ms * asns.total_measurements) + ($11 * $10)) / (asns.total_measurements + $10)
				ELSE asns.avg_rtt_ms END,
			last_seen = $12,
			last_enriched = $12,
			last_enrichment_attempt = $12
	`, res.ASN, res.OrgName, res.CountryCode, res.Source, res.PeeringDBID, res.FacilityCount,
		res.PeeringPolicy, res.TrafficLevels, res.IRRASSet, int64(n), avgOf(sum, n), now)
	if err != nil {
		return fmt.Errorf("upsert asn %d: %w", res.ASN, err)
	}
	return nil
}

// RecentLookupFailure returns the last_attempt timestamp of ip's most recent
// failed enrichment lookup, or nil if ip has never failed (or its record has
// since been superseded by a successful CachedASNForIP hit). The enrichment
// engine uses this to short-circuit re-querying Cymru/PeeringDB/fallbacks
// within negative_cache_ttl_seconds of the last failure (spec.md §4.3).
func (r *Repository) RecentLookupFailure(ctx context.Context, ip string) (*time.Time, error) {
	var lastAttempt time.Time
	err := r.db.QueryRow(ctx, `SELECT last_attempt FROM ip_lookup_failures WHERE ip = $1`, ip).Scan(&lastAttempt)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("recent lookup failure for %s: %w", ip, err)
	}
	return &lastAttempt, nil
}

// RecordLookupFailure persists that ip's enrichment lookup resolved no ASN
// from any source this cycle, starting (or restarting) its negative-cache
// TTL window.
func (r *Repository) RecordLookupFailure(ctx context.Context, ip string, at time.Time) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO ip_lookup_failures (ip, last_attempt) VALUES ($1, $2)
		ON CONFLICT (ip) DO UPDATE SET last_attempt = $2
	`, ip, at)
	if err != nil {
		return fmt.Errorf("record lookup failure for %s: %w", ip, err)
	}
	return nil
}

// ClearLookupFailure removes ip's negative-cache record once a lookup
// succeeds, so a transient outage doesn't keep suppressing retries after
// the source recovers.
func (r *Repository) ClearLookupFailure(ctx context.Context, ip string) error {
	_, err := r.db.Exec(ctx, `DELETE FROM ip_lookup_failures WHERE ip = $1`, ip)
	if err != nil {
		return fmt.Errorf("clear lookup failure for %s: %w", ip, err)
	}
	return nil
}

func avgOf(sum float64, n int) float64 {
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}
