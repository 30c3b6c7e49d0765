package enrich

import "time"

// cacheEntryFresh reports whether a cached ASN record (lastEnriched) is
// still within TTL, short-circuiting sources 2-4 (spec.md §4.3 "Cache
// semantics").
func cacheEntryFresh(lastEnriched *time.Time, ttl time.Duration, now time.Time) bool {
	return lastEnriched != nil && now.Sub(*lastEnriched) < ttl
}

// negativeCacheFresh reports whether a recent failed attempt should still
// suppress a retry (spec.md §4.3 "Negative lookups are cached with a
// shorter TTL").
func negativeCacheFresh(lastAttempt *time.Time, ttl time.Duration, now time.Time) bool {
	return lastAttempt != nil && now.Sub(*lastAttempt) < ttl
}

// mergedField applies the fixed priority PeeringDB > external fallbacks >
// Cymru for one string field, skipping empty contributions.
func mergedField(peeringdb, fallback, cymru string) string {
	switch {
	case peeringdb != "":
		return peeringdb
	case fallback != "":
		return fallback
	default:
		return cymru
	}
}

// merged combines the per-source lookups into one result, applying the
// field-level priority of spec.md §4.3 ("Merge priority for a single field
// when multiple sources return values"). ASN itself always comes from
// whichever source first resolved it, since later sources key off it.
func merged(cymru, peeringdb, fallback LookupResult, asn int64) (res LookupResult, source string) {
	res.ASN = asn
	res.OrgName = mergedField(peeringdb.OrgName, fallback.OrgName, cymru.OrgName)
	res.CountryCode = mergedField(peeringdb.CountryCode, fallback.CountryCode, cymru.CountryCode)
	res.Prefix = mergedField(peeringdb.Prefix, fallback.Prefix, cymru.Prefix)
	res.PeeringDBID = peeringdb.PeeringDBID
	res.FacilityCount = peeringdb.FacilityCount
	res.PeeringPolicy = peeringdb.PeeringPolicy
	res.TrafficLevels = peeringdb.TrafficLevels
	res.IRRASSet = peeringdb.IRRASSet

	switch {
	case !fallback.IsZero():
		source = "fallback"
	case !cymru.IsZero():
		source = "cymru"
	default:
		source = ""
	}
	return res, source
}
