package worker

import (
	"context"
	"encoding/json"
	"strings"

	"netwatch/internal/models"
)

// scamperTool shells out to `scamper` in its warts-to-JSON one-shot mode
// (`-O json`), which emits one JSON trace object per line, each carrying
// its probed hops in a "hops" array.
type scamperTool struct{}

func (scamperTool) Name() string { return "scamper" }

func (scamperTool) LookPath(extraDir string) (string, error) { return lookPath("scamper", extraDir) }

func (scamperTool) Run(ctx context.Context, binPath, ip string) (int, string, []models.Hop, error) {
	exitCode, output, err := runSubprocess(ctx, binPath, "-O", "json", "-c", "trace", "-i", ip)
	if err != nil {
		return exitCode, output, nil, err
	}
	return exitCode, output, parseScamper(output), nil
}

// scamperHopJSON models the subset of scamper's trace-JSON output this
// parser relies on; unknown fields are ignored by encoding/json by default.
type scamperHopJSON struct {
	Type string `json:"type"`
	Hops []struct {
		Probettl int     `json:"probe_ttl"`
		Addr     string  `json:"addr"`
		RTT      float64 `json:"rtt"`
	} `json:"hops"`
}

func parseScamper(output string) []models.Hop {
	var hops []models.Hop
	for _, line := range splitLines(output) {
		line = strings.TrimSpace(line)
		if line == "" || !strings.HasPrefix(line, "{") {
			continue
		}
		var rec scamperHopJSON
		if err := json.Unmarshal([]byte(line), &rec); err != nil {
			continue
		}
		if rec.Type != "trace" {
			continue
		}
		byTTL := map[int][]float64{}
		addrByTTL := map[int]string{}
		for _, h := range rec.Hops {
			if h.Probettl < 1 {
				continue
			}
			byTTL[h.Probettl] = append(byTTL[h.Probettl], h.RTT)
			if h.Addr != "" {
				addrByTTL[h.Probettl] = h.Addr
			}
		}
		for ttl, samples := range byTTL {
			var ipPtr *string
			if addr, ok := addrByTTL[ttl]; ok {
				ipPtr = &addr
			}
			hops = append(hops, models.Hop{
				HopNumber: ttl,
				HopIP:     ipPtr,
				RTTMs:     meanOf(samples),
			})
		}
	}
	return hops
}
