package enrich

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// ripeSource queries the RIPE Stat data API's network-info endpoint, the
// first fallback if Cymru has no opinion (spec.md §4.3 table, source 4).
type ripeSource struct {
	baseURL string
	client  *http.Client
}

func newRIPESource(baseURL string) *ripeSource {
	return &ripeSource{baseURL: strings.TrimRight(baseURL, "/"), client: &http.Client{Timeout: 3 * time.Second}}
}

func (s *ripeSource) Name() string { return "ripe" }

type ripeNetworkInfoResponse struct {
	Data struct {
		ASNs    []int64  `json:"asns"`
		Prefix  string   `json:"prefix"`
		Holders []string `json:"holders"`
	} `json:"data"`
}

func (s *ripeSource) Lookup(ctx context.Context, ip string, knownASN int64) (LookupResult, error) {
	url := fmt.Sprintf("%s/data/network-info/data.json?resource=%s", s.baseURL, ip)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return LookupResult{}, err
	}
	req.Header.Set("User-Agent", "netwatch/1.0")

	resp, err := s.client.Do(req)
	if err != nil {
		return LookupResult{}, fmt.Errorf("ripe lookup %s: %w", ip, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return LookupResult{}, fmt.Errorf("ripe status: %s", resp.Status)
	}

	var parsed ripeNetworkInfoResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return LookupResult{}, fmt.Errorf("decode ripe response: %w", err)
	}
	if len(parsed.Data.ASNs) == 0 {
		return LookupResult{}, nil
	}

	var org string
	if len(parsed.Data.Holders) > 0 {
		org = parsed.Data.Holders[0]
	}
	return LookupResult{ASN: parsed.Data.ASNs[0], OrgName: org, Prefix: parsed.Data.Prefix}, nil
}

// ipAPISource queries ip-api.com's free geo/ASN endpoint, the second
// fallback (spec.md §4.3 table, source 4).
type ipAPISource struct {
	baseURL string
	client  *http.Client
}

func newIPAPISource(baseURL string) *ipAPISource {
	return &ipAPISource{baseURL: strings.TrimRight(baseURL, "/"), client: &http.Client{Timeout: 3 * time.Second}}
}

func (s *ipAPISource) Name() string { return "ip-api" }

type ipAPIResponse struct {
	Status      string `json:"status"`
	CountryCode string `json:"countryCode"`
	AS          string `json:"as"` // e.g. "AS15169 Google LLC"
	ASName      string `json:"asname"`
}

func (s *ipAPISource) Lookup(ctx context.Context, ip string, knownASN int64) (LookupResult, error) {
	url := fmt.Sprintf("%s/json/%s?fields=status,countryCode,as,asname", s.baseURL, ip)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return LookupResult{}, err
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return LookupResult{}, fmt.Errorf("ip-api lookup %s: %w", ip, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return LookupResult{}, fmt.Errorf("ip-api status: %s", resp.Status)
	}

	var parsed ipAPIResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return LookupResult{}, fmt.Errorf("decode ip-api response: %w", err)
	}
	if parsed.Status != "success" || parsed.AS == "" {
		return LookupResult{}, nil
	}

	asn := parseASNPrefix(parsed.AS)
	return LookupResult{ASN: asn, OrgName: parsed.ASName, CountryCode: parsed.CountryCode}, nil
}

func parseASNPrefix(as string) int64 {
	as = strings.TrimPrefix(as, "AS")
	fields := strings.Fields(as)
	if len(fields) == 0 {
		return 0
	}
	n, err := strconv.ParseInt(fields[0], 10, 64)
	if err != nil {
		return 0
	}
	return n
}

// ipInfoSource queries ipinfo.io, the last fallback (spec.md §4.3 table,
// source 4). Requires an API token in production use; an empty token still
// works against ipinfo's free tier for low volume.
type ipInfoSource struct {
	baseURL string
	token   string
	client  *http.Client
}

func newIPInfoSource(baseURL, token string) *ipInfoSource {
	return &ipInfoSource{baseURL: strings.TrimRight(baseURL, "/"), token: token, client: &http.Client{Timeout: 3 * time.Second}}
}

func (s *ipInfoSource) Name() string { return "ipinfo" }

type ipInfoResponse struct {
	Org     string `json:"org"` // e.g. "AS15169 Google LLC"
	Country string `json:"country"`
}

func (s *ipInfoSource) Lookup(ctx context.Context, ip string, knownASN int64) (LookupResult, error) {
	url := fmt.Sprintf("%s/%s/json", s.baseURL, ip)
	if s.token != "" {
		url += "?token=" + s.token
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return LookupResult{}, err
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return LookupResult{}, fmt.Errorf("ipinfo lookup %s: %w", ip, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return LookupResult{}, fmt.Errorf("ipinfo status: %s", resp.Status)
	}

	var parsed ipInfoResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return LookupResult{}, fmt.Errorf("decode ipinfo response: %w", err)
	}
	if parsed.Org == "" {
		return LookupResult{}, nil
	}

	fields := strings.SplitN(parsed.Org, " ", 2)
	asn := parseASNPrefix(fields[0])
	var org string
	if len(fields) > 1 {
		org = fields[1]
	}
	return LookupResult{ASN: asn, OrgName: org, CountryCode: parsed.Country}, nil
}
