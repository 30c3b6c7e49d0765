package graph

import (
	"testing"

	"netwatch/internal/models"
)

func asnPtr(v int64) *int64 { return &v }

func TestCollapseToASNSequenceDropsRepeatsAndNulls(t *testing.T) {
	// hops with ASNs [A,A,null,B,B,C] -> sequence [A,B,C] (spec.md §4.4 example).
	hops := []models.Hop{
		{HopNumber: 1, ASN: asnPtr(100)},
		{HopNumber: 2, ASN: asnPtr(100)},
		{HopNumber: 3, ASN: nil},
		{HopNumber: 4, ASN: asnPtr(200)},
		{HopNumber: 5, ASN: asnPtr(200)},
		{HopNumber: 6, ASN: asnPtr(300)},
	}

	seq := collapseToASNSequence(hops)
	if len(seq) != 3 {
		t.Fatalf("expected 3 distinct ASNs, got %d: %+v", len(seq), seq)
	}
	want := []int64{100, 200, 300}
	for i, w := range want {
		if seq[i].asn != w {
			t.Errorf("position %d: expected asn %d, got %d", i, w, seq[i].asn)
		}
	}
}

func TestCollapseToASNSequenceNullGapStillProducesEdge(t *testing.T) {
	// A null hop between two DIFFERENT ASNs must not suppress the edge
	// between them (spec.md §4.4 "any hop gap with non-null ASNs on both
	// sides does produce an adjacency").
	hops := []models.Hop{
		{HopNumber: 1, ASN: asnPtr(100)},
		{HopNumber: 2, ASN: nil},
		{HopNumber: 3, ASN: asnPtr(200)},
	}

	seq := collapseToASNSequence(hops)
	if len(seq) != 2 || seq[0].asn != 100 || seq[1].asn != 200 {
		t.Fatalf("expected sequence [100 200], got %+v", seq)
	}
}

func TestCollapseToASNSequenceAllNull(t *testing.T) {
	hops := []models.Hop{
		{HopNumber: 1, ASN: nil},
		{HopNumber: 2, ASN: nil},
	}
	if seq := collapseToASNSequence(hops); len(seq) != 0 {
		t.Fatalf("expected empty sequence, got %+v", seq)
	}
}

func TestDedupedEdgesCollapsesFlappingPath(t *testing.T) {
	// A flapping path A,B,A,B must upsert edge (A,B) exactly once, not twice
	// (spec.md §9 "observed_count" incremented once per measurement). The
	// reverse transition (B,A) is a distinct directed edge and appears once.
	seq := []asnHop{{asn: 100}, {asn: 200}, {asn: 100}, {asn: 200}}

	edges := dedupedEdges(seq)
	if len(edges) != 2 {
		t.Fatalf("expected 2 deduped edges, got %d: %+v", len(edges), edges)
	}
	if edges[0].src != 100 || edges[0].dst != 200 {
		t.Fatalf("expected edge (100,200), got (%d,%d)", edges[0].src, edges[0].dst)
	}
	if edges[1].src != 200 || edges[1].dst != 100 {
		t.Fatalf("expected edge (200,100), got (%d,%d)", edges[1].src, edges[1].dst)
	}
}

func TestDedupedEdgesKeepsDistinctDirectedPairs(t *testing.T) {
	seq := []asnHop{{asn: 100}, {asn: 200}, {asn: 300}}

	edges := dedupedEdges(seq)
	if len(edges) != 2 {
		t.Fatalf("expected 2 edges, got %d: %+v", len(edges), edges)
	}
}
