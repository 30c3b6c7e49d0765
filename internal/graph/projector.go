// Package graph is the Graph Projector: it turns enriched measurements into
// AS-level node and edge upserts (spec.md §4.4).
package graph

import (
	"context"
	"log"
	"time"

	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel/trace"

	"netwatch/internal/metrics"
	"netwatch/internal/models"
	"netwatch/internal/store"
)

// batchSize and cycleSleep are not exposed as Settings (spec.md §6's table
// has no graph_settings key), so they are fixed constants here rather than
// invented settings.
const (
	batchSize  = 50
	cycleSleep = 10 * time.Second
)

const logPrefix = "[graph]"

// Projector runs the per-measurement projection procedure of spec.md §4.4.
type Projector struct {
	repo    *store.Repository
	metrics *metrics.Metrics
	tracer  trace.Tracer
}

func New(repo *store.Repository, m *metrics.Metrics, tracer trace.Tracer) *Projector {
	return &Projector{repo: repo, metrics: m, tracer: tracer}
}

// Run executes cycles until ctx is cancelled.
func (p *Projector) Run(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}
		if err := p.runCycle(ctx); err != nil {
			log.Printf("%s cycle failed: %v", logPrefix, err)
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(cycleSleep):
		}
	}
}

func (p *Projector) runCycle(ctx context.Context) error {
	batch, err := p.repo.EnrichedNotGraphed(ctx, batchSize)
	if err != nil {
		return err
	}
	if len(batch) == 0 {
		return nil
	}

	now := time.Now()
	ctx, span := p.tracer.Start(ctx, "graph.cycle")
	defer span.End()

	tx, err := p.repo.BeginTx(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	var done []int64
	for _, m := range batch {
		hops, err := p.repo.GetHops(ctx, m.ID)
		if err != nil {
			return err
		}
		if err := p.projectMeasurement(ctx, tx, hops, now); err != nil {
			return err
		}
		done = append(done, m.ID)
	}

	if err := p.repo.MarkGraphBuilt(ctx, tx, done, now); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// asnHop is one entry of the collapsed ASN sequence built from a
// measurement's hops, keeping the first hop's RTT for the edge it anchors
// (spec.md §4.4 step 2 "rtt_of_Y_first_hop").
type asnHop struct {
	asn   int64
	rttMs *float64
}

// collapseToASNSequence builds the ordered, de-duplicated ASN sequence from
// a measurement's hops (spec.md §4.4 step 1): consecutive repeats of the
// same ASN collapse to one entry, nulls are dropped entirely, and a null
// between two distinct non-null ASNs does not prevent an edge between them.
func collapseToASNSequence(hops []models.Hop) []asnHop {
	var seq []asnHop
	for _, h := range hops {
		if h.ASN == nil {
			continue
		}
		if len(seq) > 0 && seq[len(seq)-1].asn == *h.ASN {
			continue
		}
		seq = append(seq, asnHop{asn: *h.ASN, rttMs: h.RTTMs})
	}
	return seq
}

func (p *Projector) projectMeasurement(ctx context.Context, tx pgx.Tx, hops []models.Hop, now time.Time) error {
	seq := collapseToASNSequence(hops)
	if len(seq) == 0 {
		return nil
	}

	orgByASN := map[int64]string{}
	countryByASN := map[int64]string{}
	for _, n := range seq {
		if _, ok := orgByASN[n.asn]; ok {
			continue
		}
		cached, err := p.repo.GetASN(ctx, n.asn)
		if err != nil {
			return err
		}
		if cached != nil {
			orgByASN[n.asn] = cached.OrgName
			countryByASN[n.asn] = cached.CountryCode
		}
		if err := p.repo.UpsertGraphNode(ctx, tx, n.asn, orgByASN[n.asn], countryByASN[n.asn], now); err != nil {
			return err
		}
	}

	for _, e := range dedupedEdges(seq) {
		if err := p.repo.UpsertGraphEdge(ctx, tx, e.src, e.dst, e.rttMs, now); err != nil {
			return err
		}
		if p.metrics != nil {
			p.metrics.GraphEdgesTotal.Inc()
		}
	}
	return nil
}

// edge is one (src,dst) adjacency to upsert, carrying the RTT of dst's
// first hop as in spec.md §4.4 step 2.
type edge struct {
	src, dst int64
	rttMs    *float64
}

// dedupedEdges walks the collapsed ASN sequence and returns one edge per
// distinct (src,dst) pair, so a flapping path collapsing to [A,B,A,B] still
// bumps observed_count only once per measurement (spec.md §9
// "observed_count"), instead of once per consecutive pair.
func dedupedEdges(seq []asnHop) []edge {
	seen := map[[2]int64]bool{}
	var out []edge
	for i := 0; i+1 < len(seq); i++ {
		src, dst := seq[i], seq[i+1]
		if src.asn == dst.asn {
			continue
		}
		key := [2]int64{src.asn, dst.asn}
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, edge{src: src.asn, dst: dst.asn, rttMs: dst.rttMs})
	}
	return out
}
