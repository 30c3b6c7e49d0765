package enrich

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"strings"
)

// cymruSource resolves origin ASN via Team Cymru's DNS TXT service, the
// first source consulted once the local cache misses (spec.md §4.3 table).
type cymruSource struct {
	resolver *net.Resolver
}

func newCymruSource() *cymruSource {
	return &cymruSource{resolver: net.DefaultResolver}
}

func (c *cymruSource) Name() string { return "cymru" }

// Lookup queries <reversed-ip>.origin.asn.cymru.com for the origin ASN,
// prefix and country, then AS<n>.asn.cymru.com for the org name (spec.md
// §4.3 "cymru: asn, prefix, org, country") — both plain DNS TXT lookups.
func (c *cymruSource) Lookup(ctx context.Context, ip string, knownASN int64) (LookupResult, error) {
	query, err := cymruQueryName(ip)
	if err != nil {
		return LookupResult{}, err
	}

	records, err := c.resolver.LookupTXT(ctx, query)
	if err != nil {
		return LookupResult{}, fmt.Errorf("cymru lookup %s: %w", ip, err)
	}

	var result LookupResult
	var found bool
	for _, rec := range records {
		if res, ok := parseCymruTXT(rec); ok {
			result, found = res, true
			break
		}
	}
	if !found {
		return LookupResult{}, nil
	}

	if orgName, err := c.lookupOrgName(ctx, result.ASN); err == nil && orgName != "" {
		result.OrgName = orgName
	}
	return result, nil
}

// lookupOrgName queries AS<n>.asn.cymru.com for the "AS Name" field, shaped
// like "15169 | US | arin | 2000-03-30 | GOOGLE, US".
func (c *cymruSource) lookupOrgName(ctx context.Context, asn int64) (string, error) {
	query := fmt.Sprintf("AS%d.asn.cymru.com", asn)
	records, err := c.resolver.LookupTXT(ctx, query)
	if err != nil {
		return "", fmt.Errorf("cymru as-name lookup AS%d: %w", asn, err)
	}
	for _, rec := range records {
		fields := strings.Split(rec, "|")
		if len(fields) < 5 {
			continue
		}
		return strings.TrimSpace(fields[4]), nil
	}
	return "", nil
}

func cymruQueryName(ip string) (string, error) {
	parsed := net.ParseIP(ip)
	if parsed == nil {
		return "", fmt.Errorf("invalid ip %q", ip)
	}
	v4 := parsed.To4()
	if v4 == nil {
		return "", fmt.Errorf("cymru origin lookup only supports ipv4, got %q", ip)
	}
	return fmt.Sprintf("%d.%d.%d.%d.origin.asn.cymru.com", v4[3], v4[2], v4[1], v4[0]), nil
}

func parseCymruTXT(rec string) (LookupResult, bool) {
	fields := strings.Split(rec, "|")
	if len(fields) < 3 {
		return LookupResult{}, false
	}
	asnField := strings.TrimSpace(fields[0])
	// Multiple origin ASNs can be space-separated; take the first.
	asnField = strings.Fields(asnField)[0]
	asn, err := strconv.ParseInt(asnField, 10, 64)
	if err != nil {
		return LookupResult{}, false
	}
	return LookupResult{
		ASN:         asn,
		Prefix:      strings.TrimSpace(fields[1]),
		CountryCode: strings.TrimSpace(fields[2]),
	}, true
}
