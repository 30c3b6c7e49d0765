package enrich

import (
	"testing"
	"time"
)

func TestMergedFieldPriority(t *testing.T) {
	if got := mergedField("peeringdb-org", "fallback-org", "cymru-org"); got != "peeringdb-org" {
		t.Errorf("expected peeringdb to win, got %q", got)
	}
	if got := mergedField("", "fallback-org", "cymru-org"); got != "fallback-org" {
		t.Errorf("expected fallback to win over cymru, got %q", got)
	}
	if got := mergedField("", "", "cymru-org"); got != "cymru-org" {
		t.Errorf("expected cymru as last resort, got %q", got)
	}
}

func TestMergedSourceLabel(t *testing.T) {
	cymru := LookupResult{ASN: 64500, OrgName: "cymru-org"}
	_, source := merged(cymru, LookupResult{}, LookupResult{}, cymru.ASN)
	if source != "cymru" {
		t.Errorf("expected source cymru, got %q", source)
	}

	_, source = merged(cymru, LookupResult{}, LookupResult{OrgName: "fallback-org"}, cymru.ASN)
	if source != "fallback" {
		t.Errorf("expected source fallback, got %q", source)
	}
}

func TestCacheEntryFresh(t *testing.T) {
	now := time.Now()
	fresh := now.Add(-time.Hour)
	stale := now.Add(-48 * time.Hour)

	if !cacheEntryFresh(&fresh, 7*24*time.Hour, now) {
		t.Errorf("expected 1h-old entry to be fresh against a 7d ttl")
	}
	if cacheEntryFresh(&stale, time.Hour, now) {
		t.Errorf("expected 48h-old entry to be stale against a 1h ttl")
	}
	if cacheEntryFresh(nil, time.Hour, now) {
		t.Errorf("expected nil last-enriched to never be fresh")
	}
}

func TestParseCymruTXT(t *testing.T) {
	res, ok := parseCymruTXT("15169 | 8.8.8.0/24 | US | arin | 1992-12-01")
	if !ok {
		t.Fatalf("expected record to parse")
	}
	if res.ASN != 15169 || res.Prefix != "8.8.8.0/24" || res.CountryCode != "US" {
		t.Errorf("unexpected parse result: %+v", res)
	}

	if _, ok := parseCymruTXT("garbage"); ok {
		t.Errorf("expected malformed record to be rejected")
	}
}

func TestCymruQueryName(t *testing.T) {
	name, err := cymruQueryName("8.8.8.8")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if name != "8.8.8.8.origin.asn.cymru.com" {
		t.Errorf("unexpected query name: %s", name)
	}

	if _, err := cymruQueryName("not-an-ip"); err == nil {
		t.Errorf("expected error for invalid ip")
	}
}
