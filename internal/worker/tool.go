package worker

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"netwatch/internal/models"
)

// Tool runs one probe against an IP and returns its parsed hops along with
// the raw output, stdout and stderr combined (kept for Measurement.RawOutput). Tool implementations
// never touch the store; pool.go owns persistence (spec.md §4.2 steps 5-7).
type Tool interface {
	// Name is the tool_preference identifier ("scamper", "traceroute", "mtr").
	Name() string
	// LookPath resolves the on-host binary, checking extraDir (config's
	// probe_tool_path) before falling back to PATH. It returns an error the
	// pool treats as "tool not found" (spec.md §4.2 "Failure semantics").
	LookPath(extraDir string) (string, error)
	// Run spawns the subprocess against ip, bounded by ctx, and parses its output.
	Run(ctx context.Context, binPath, ip string) (exitCode int, rawOutput string, hops []models.Hop, err error)
}

// lookPath checks extraDir for name before falling back to exec.LookPath's
// normal PATH search, letting an operator point probe_tool_path at a
// directory of binaries without having to alter the process's own PATH.
func lookPath(name, extraDir string) (string, error) {
	if extraDir != "" {
		candidate := filepath.Join(extraDir, name)
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate, nil
		}
	}
	return exec.LookPath(name)
}

// resolveTool returns the first tool in preference order whose binary is
// present on the host, per spec.md §4.2 "first present on host wins".
func resolveTool(preference []string, extraDir string) (Tool, string, error) {
	for _, name := range preference {
		t, ok := toolsByName[name]
		if !ok {
			continue
		}
		bin, err := t.LookPath(extraDir)
		if err != nil {
			continue
		}
		return t, bin, nil
	}
	return nil, "", fmt.Errorf("no probe tool from preference %v is present on host", preference)
}

var toolsByName = map[string]Tool{
	"traceroute": tracerouteTool{},
	"scamper":    scamperTool{},
	"mtr":        mtrTool{},
}

// runSubprocess spawns name with args against a combined stdout+stderr
// buffer, bounded by ctx. A nonzero exit, including a kill on ctx timeout,
// is reported through exitCode (-1 when killed) with a nil err; err is set
// only when the process could not be started or waited on. Output collected
// so far is always returned so a timed-out run can still be parsed (spec.md §4.2
// "Subprocess timeout → measurement recorded ... with whatever hops parsed
// so far").
func runSubprocess(ctx context.Context, name string, args ...string) (exitCode int, output string, runErr error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var buf bytes.Buffer
	cmd.Stdout = &buf
	cmd.Stderr = &buf

	err := cmd.Run()
	if exitErr, ok := err.(*exec.ExitError); ok {
		return exitErr.ExitCode(), buf.String(), nil
	}
	if err != nil {
		return -1, buf.String(), err
	}
	return 0, buf.String(), nil
}
