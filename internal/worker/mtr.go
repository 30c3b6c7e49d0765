package worker

import (
	"context"
	"strconv"
	"strings"

	"netwatch/internal/models"
)

// mtrTool shells out to `mtr` in its CSV mode (`--csv`), one line per hop
// and probe sample.
type mtrTool struct{}

func (mtrTool) Name() string { return "mtr" }

func (mtrTool) LookPath(extraDir string) (string, error) { return lookPath("mtr", extraDir) }

func (mtrTool) Run(ctx context.Context, binPath, ip string) (int, string, []models.Hop, error) {
	exitCode, output, err := runSubprocess(ctx, binPath, "--csv", "--no-dns", "-c", "3", ip)
	if err != nil {
		return exitCode, output, nil, err
	}
	return exitCode, output, parseMTR(output), nil
}

// mtr --csv emits one line per (hop, probe) sample:
//
//	HOST,1,1,192.0.2.1,0,0.5,0.5,0.5,0.5,0.0
//	HOST,1,2,192.0.2.1,0,0.6,0.6,0.6,0.6,0.0
//	HOST,2,1,???,100,0,0,0,0,0
//
// columns: "HOST", hop, probe_seq, address, loss_pct, last, avg, best, worst, stdev
func parseMTR(output string) []models.Hop {
	byHop := map[int][]float64{}
	addrByHop := map[int]string{}
	seenHop := map[int]bool{}
	order := []int{}

	for _, line := range splitLines(output) {
		cols := strings.Split(line, ",")
		if len(cols) < 7 || cols[0] != "HOST" {
			continue
		}
		hopNum, err := strconv.Atoi(cols[1])
		if err != nil || hopNum < 1 {
			continue
		}
		addr := cols[3]
		avg, avgErr := strconv.ParseFloat(cols[6], 64)

		if !seenHop[hopNum] {
			seenHop[hopNum] = true
			order = append(order, hopNum)
		}
		if addr != "" && addr != "???" {
			addrByHop[hopNum] = addr
		}
		if avgErr == nil && addr != "???" {
			byHop[hopNum] = append(byHop[hopNum], avg)
		}
	}

	hops := make([]models.Hop, 0, len(order))
	for _, hopNum := range order {
		var ipPtr *string
		if addr, ok := addrByHop[hopNum]; ok {
			ipPtr = &addr
		}
		hops = append(hops, models.Hop{
			HopNumber: hopNum,
			HopIP:     ipPtr,
			RTTMs:     meanOf(byHop[hopNum]),
		})
	}
	return hops
}
