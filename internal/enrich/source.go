// Package enrich is the Enrichment Engine: it resolves AS metadata for hop
// IPs through a prioritized chain of sources and writes the merged result
// back into the store (spec.md §4.3).
package enrich

import "context"

// LookupResult is whatever a single source could determine about one IP.
// Zero values mean "this source had no opinion" rather than "unknown AS 0".
type LookupResult struct {
	ASN           int64
	OrgName       string
	CountryCode   string
	Prefix        string
	PeeringDBID   int64
	FacilityCount int
	PeeringPolicy string
	TrafficLevels string
	IRRASSet      string
}

// IsZero reports whether the source resolved nothing useful.
func (r LookupResult) IsZero() bool {
	return r.ASN == 0 && r.OrgName == "" && r.CountryCode == "" && r.Prefix == ""
}

// Source is one step of the merge procedure (spec.md §4.3 table): Team
// Cymru, PeeringDB, RIPE RIS, ip-api, ipinfo. Each call is expected to
// respect ctx's deadline; the engine itself applies the per-source timeout.
type Source interface {
	Name() string
	Lookup(ctx context.Context, ip string, knownASN int64) (LookupResult, error)
}
