package dns

import (
	"bufio"
	"context"
	"io"
	"strings"
	"time"
)

// StaticSource reads a newline-delimited domain list, emitting one
// Observation per non-empty, non-comment line. It is the one concrete
// Source adapter in this module; production Pi-hole adapters are out of
// scope (spec.md §1).
type StaticSource struct {
	reader io.Reader
	qtype  string
}

func NewStaticSource(r io.Reader, qtype string) *StaticSource {
	return &StaticSource{reader: r, qtype: qtype}
}

func (s *StaticSource) Stream(ctx context.Context) (<-chan Observation, error) {
	out := make(chan Observation)

	go func() {
		defer close(out)
		scanner := bufio.NewScanner(s.reader)
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			if line == "" || strings.HasPrefix(line, "#") {
				continue
			}

			select {
			case <-ctx.Done():
				return
			case out <- Observation{Domain: line, Timestamp: time.Now(), QType: s.qtype}:
			}
		}
	}()

	return out, nil
}
