package enrich

import (
	"context"
	"log"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"netwatch/internal/config"
	"netwatch/internal/metrics"
	"netwatch/internal/models"
	"netwatch/internal/store"
)

const perSourceTimeout = 3 * time.Second

const logPrefix = "[enrich]"

// negativeCacheSource is the source resolve reports for a fresh
// negative-cache hit, where no source was queried.
const negativeCacheSource = "negative_cache"

// Engine runs the enrichment cycle described in spec.md §4.3.
type Engine struct {
	repo    *store.Repository
	metrics *metrics.Metrics
	tracer  trace.Tracer

	cymru     Source
	peeringdb Source
	fallbacks []Source
}

// New wires the fixed source chain from enrichment endpoint configuration
// (spec.md §6 "Enrichment sources").
func New(repo *store.Repository, cfg config.EnrichmentConfig, m *metrics.Metrics, tracer trace.Tracer) *Engine {
	return &Engine{
		repo:      repo,
		metrics:   m,
		tracer:    tracer,
		cymru:     newCymruSource(),
		peeringdb: newPeeringDBSource(cfg.PeeringDBBaseURL),
		fallbacks: []Source{
			newRIPESource(cfg.RIPERISBaseURL),
			newIPAPISource(cfg.IPAPIBaseURL),
			newIPInfoSource(cfg.IPInfoBaseURL, cfg.IPInfoToken),
		},
	}
}

// Run executes cycles until ctx is cancelled, sleeping CycleSleep between
// them (spec.md §4.3 "Cycle (runs continuously...)").
func (e *Engine) Run(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}
		settings := LoadSettings(ctx, e.repo)
		if err := e.runCycle(ctx, settings); err != nil {
			log.Printf("%s cycle failed: %v", logPrefix, err)
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(settings.CycleSleep):
		}
	}
}

// runCycle executes steps 1-6 of spec.md §4.3 once.
func (e *Engine) runCycle(ctx context.Context, settings Settings) error {
	batch, err := e.repo.UnenrichedBatch(ctx, settings.BatchSize)
	if err != nil {
		return err
	}
	if len(batch) == 0 {
		return nil
	}

	ids := make([]int64, len(batch))
	for i, m := range batch {
		ids[i] = m.ID
	}

	hops, err := e.repo.HopsForMeasurements(ctx, ids)
	if err != nil {
		return err
	}

	uniqueIPs := map[string]struct{}{}
	rttsByIP := map[string][]float64{}
	hopsByIP := map[string][]models.Hop{}
	for _, h := range hops {
		if h.HopIP == nil {
			continue
		}
		uniqueIPs[*h.HopIP] = struct{}{}
		hopsByIP[*h.HopIP] = append(hopsByIP[*h.HopIP], h)
		if h.RTTMs != nil {
			rttsByIP[*h.HopIP] = append(rttsByIP[*h.HopIP], *h.RTTMs)
		}
	}

	now := time.Now()
	ctx, span := e.tracer.Start(ctx, "enrich.cycle")
	defer span.End()

	tx, err := e.repo.BeginTx(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	unresolvedMeasurement := map[int64]bool{}

	for ip := range uniqueIPs {
		res, source, err := e.resolve(ctx, ip, now, settings)
		if err != nil {
			log.Printf("%s lookup for %s failed: %v", logPrefix, ip, err)
		}
		if res.ASN == 0 {
			for _, h := range hopsByIP[ip] {
				unresolvedMeasurement[h.MeasurementID] = true
			}
		}

		for _, h := range hopsByIP[ip] {
			var asnPtr *int64
			var orgPtr, countryPtr, prefixPtr *string
			if res.ASN != 0 {
				asnPtr = &res.ASN
			}
			if res.OrgName != "" {
				orgPtr = &res.OrgName
			}
			if res.CountryCode != "" {
				countryPtr = &res.CountryCode
			}
			if res.Prefix != "" {
				prefixPtr = &res.Prefix
			}
			if err := e.repo.UpdateHopEnrichment(ctx, tx, h.MeasurementID, h.HopNumber, asnPtr, orgPtr, countryPtr, prefixPtr); err != nil {
				return err
			}
		}

		if res.ASN == 0 {
			// A negative-cache hit queried no source, so it must not restart
			// the negative-cache window.
			if source != negativeCacheSource {
				if err := e.repo.RecordLookupFailure(ctx, ip, now); err != nil {
					log.Printf("%s record lookup failure for %s failed: %v", logPrefix, ip, err)
				}
			}
			continue
		}
		if err := e.repo.ClearLookupFailure(ctx, ip); err != nil {
			log.Printf("%s clear lookup failure for %s failed: %v", logPrefix, ip, err)
		}

		upsert := store.UpsertASNResult{
			ASN:           res.ASN,
			OrgName:       res.OrgName,
			CountryCode:   res.CountryCode,
			PeeringDBID:   res.PeeringDBID,
			FacilityCount: res.FacilityCount,
			PeeringPolicy: res.PeeringPolicy,
			TrafficLevels: res.TrafficLevels,
			IRRASSet:      res.IRRASSet,
			Source:        source,
			SampleRTTs:    rttsByIP[ip],
		}
		if err := e.repo.UpsertASN(ctx, tx, upsert, now); err != nil {
			return err
		}
	}

	var doneIDs, retryIDs []int64
	for _, m := range batch {
		if !unresolvedMeasurement[m.ID] || m.Attempts+1 >= settings.MaxAttempts {
			doneIDs = append(doneIDs, m.ID)
		} else {
			retryIDs = append(retryIDs, m.ID)
		}
	}

	if err := e.repo.MarkEnriched(ctx, tx, doneIDs, now); err != nil {
		return err
	}
	if err := e.repo.IncrementAttempts(ctx, tx, retryIDs); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

// recordLookup increments EnrichmentLookups for one source query outcome.
func (e *Engine) recordLookup(source, outcome string) {
	if e.metrics != nil {
		e.metrics.EnrichmentLookups.WithLabelValues(source, outcome).Inc()
	}
}

// resolve applies the cache-then-chain lookup of spec.md §4.3: a fresh
// positive-cache hit short-circuits sources 2-4, and a fresh negative-cache
// hit skips querying sources entirely for an IP that recently resolved
// nothing (spec.md §4.3 "Negative lookups are cached with a shorter TTL").
func (e *Engine) resolve(ctx context.Context, ip string, now time.Time, settings Settings) (LookupResult, string, error) {
	if cached, err := e.repo.CachedASNForIP(ctx, ip); err == nil && cached != nil && cacheEntryFresh(cached.LastEnriched, settings.ASNCacheTTL, now) {
		e.recordLookup("cache", "hit")
		return LookupResult{
			ASN:           cached.ASN,
			OrgName:       cached.OrgName,
			CountryCode:   cached.CountryCode,
			PeeringDBID:   cached.PeeringDBID,
			FacilityCount: cached.FacilityCount,
			PeeringPolicy: cached.PeeringPolicy,
			TrafficLevels: cached.TrafficLevels,
			IRRASSet:      cached.IRRASSet,
		}, cached.Source, nil
	}
	e.recordLookup("cache", "miss")

	if failedAt, err := e.repo.RecentLookupFailure(ctx, ip); err == nil && negativeCacheFresh(failedAt, settings.NegativeCacheTTL, now) {
		e.recordLookup(negativeCacheSource, "hit")
		return LookupResult{}, negativeCacheSource, nil
	}

	cymruCtx, cymruSpan := e.tracer.Start(ctx, "enrich.cymru")
	cymruCtx, cancel := context.WithTimeout(cymruCtx, perSourceTimeout)
	cymruRes, cymruErr := e.cymru.Lookup(cymruCtx, ip, 0)
	cancel()
	if cymruErr != nil {
		cymruSpan.RecordError(cymruErr)
	}
	cymruSpan.End()
	e.recordLookup("cymru", outcomeOf(cymruErr, cymruRes.IsZero()))

	if cymruErr != nil || cymruRes.ASN == 0 {
		// No ASN to key PeeringDB off of; try the fallback chain directly.
		for _, src := range e.fallbacks {
			res, err := e.lookupSource(ctx, src, ip, 0)
			if err == nil && !res.IsZero() {
				merged, source := merged(LookupResult{}, LookupResult{}, res, res.ASN)
				return merged, source, nil
			}
		}
		return LookupResult{}, "", nil
	}

	pdbCtx, pdbSpan := e.tracer.Start(ctx, "enrich.peeringdb")
	pdbCtx, pdbCancel := context.WithTimeout(pdbCtx, perSourceTimeout)
	pdbRes, pdbErr := e.peeringdb.Lookup(pdbCtx, ip, cymruRes.ASN)
	pdbCancel()
	if pdbErr != nil {
		pdbSpan.RecordError(pdbErr)
	}
	pdbSpan.End()
	e.recordLookup("peeringdb", outcomeOf(pdbErr, pdbRes.IsZero()))

	var fallbackRes LookupResult
	if pdbRes.OrgName == "" {
		for _, src := range e.fallbacks {
			res, err := e.lookupSource(ctx, src, ip, cymruRes.ASN)
			if err == nil && !res.IsZero() {
				fallbackRes = res
				break
			}
		}
	}

	result, source := merged(cymruRes, pdbRes, fallbackRes, cymruRes.ASN)
	if source == "" {
		source = "cymru"
	}
	return result, source, nil
}

func (e *Engine) lookupSource(ctx context.Context, src Source, ip string, knownASN int64) (LookupResult, error) {
	spanCtx, span := e.tracer.Start(ctx, "enrich."+src.Name())
	spanCtx, cancel := context.WithTimeout(spanCtx, perSourceTimeout)
	res, err := src.Lookup(spanCtx, ip, knownASN)
	cancel()
	span.SetAttributes(attribute.String("ip", ip))
	if err != nil {
		span.RecordError(err)
	}
	span.End()
	e.recordLookup(src.Name(), outcomeOf(err, res.IsZero()))
	return res, err
}

func outcomeOf(err error, isZero bool) string {
	switch {
	case err != nil:
		return "error"
	case isZero:
		return "empty"
	default:
		return "resolved"
	}
}
