package enrich

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// peeringDBSource enriches an already-known ASN with organizational detail
// (spec.md §4.3 table: "once asn is known from source 2"). It never
// resolves an ASN from an IP by itself.
type peeringDBSource struct {
	baseURL string
	client  *http.Client
}

func newPeeringDBSource(baseURL string) *peeringDBSource {
	return &peeringDBSource{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: 3 * time.Second},
	}
}

func (p *peeringDBSource) Name() string { return "peeringdb" }

type peeringDBNetResponse struct {
	Data []struct {
		ID            int64  `json:"id"`
		Name          string `json:"name"`
		InfoTraffic   string `json:"info_traffic"`
		PolicyGeneral string `json:"policy_general"`
		IRRASSet      string `json:"irr_as_set"`
		NetFacCount   int    `json:"netfac_set_count"`
	} `json:"data"`
}

func (p *peeringDBSource) Lookup(ctx context.Context, ip string, knownASN int64) (LookupResult, error) {
	if knownASN == 0 {
		return LookupResult{}, nil
	}

	url := fmt.Sprintf("%s/api/net?asn=%d", p.baseURL, knownASN)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return LookupResult{}, err
	}
	req.Header.Set("User-Agent", "netwatch/1.0")

	resp, err := p.client.Do(req)
	if err != nil {
		return LookupResult{}, fmt.Errorf("peeringdb lookup asn %d: %w", knownASN, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return LookupResult{}, fmt.Errorf("peeringdb status: %s", resp.Status)
	}

	var parsed peeringDBNetResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return LookupResult{}, fmt.Errorf("decode peeringdb response: %w", err)
	}
	if len(parsed.Data) == 0 {
		return LookupResult{}, nil
	}

	net := parsed.Data[0]
	return LookupResult{
		ASN:           knownASN,
		OrgName:       net.Name,
		PeeringDBID:   net.ID,
		FacilityCount: net.NetFacCount,
		PeeringPolicy: net.PolicyGeneral,
		TrafficLevels: net.InfoTraffic,
		IRRASSet:      net.IRRASSet,
	}, nil
}
