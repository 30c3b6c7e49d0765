package worker

import (
	"context"
	"regexp"
	"strconv"

	"netwatch/internal/models"
)

// tracerouteTool shells out to the system `traceroute` binary in numeric,
// ICMP mode so output parses the same across Linux distributions.
type tracerouteTool struct{}

func (tracerouteTool) Name() string { return "traceroute" }

func (tracerouteTool) LookPath(extraDir string) (string, error) { return lookPath("traceroute", extraDir) }

func (tracerouteTool) Run(ctx context.Context, binPath, ip string) (int, string, []models.Hop, error) {
	exitCode, output, err := runSubprocess(ctx, binPath, "-n", "-I", ip)
	if err != nil {
		return exitCode, output, nil, err
	}
	return exitCode, output, parseTraceroute(output), nil
}

// traceroute -n lines look like:
//
//	 1  192.0.2.1  0.512 ms  0.488 ms  0.470 ms
//	 2  * * *
//	 3  198.51.100.1  12.204 ms  11.998 ms *
var tracerouteHopLine = regexp.MustCompile(`^\s*(\d+)\s+(.*)$`)

func parseTraceroute(output string) []models.Hop {
	var hops []models.Hop
	for _, line := range splitLines(output) {
		m := tracerouteHopLine.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		hopNum, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}

		fields := splitFields(m[2])
		var ip *string
		var rtts []float64
		for i := 0; i < len(fields); i++ {
			switch fields[i] {
			case "*", "ms":
				continue
			}
			if f, err := strconv.ParseFloat(fields[i], 64); err == nil {
				rtts = append(rtts, f)
				continue
			}
			if ip == nil {
				v := fields[i]
				ip = &v
			}
		}

		hops = append(hops, models.Hop{
			HopNumber: hopNum,
			HopIP:     ip,
			RTTMs:     meanOf(rtts),
		})
	}
	return hops
}
