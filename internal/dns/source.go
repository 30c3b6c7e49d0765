// Package dns is the DNS collector's abstract boundary: a Source streams
// raw query observations, a filter chain narrows them, and a resolver turns
// surviving domains into IPs for the Target Queue (spec.md §6 "DNS
// collector"). Concrete Pi-hole adapters are out of scope (spec.md §1); the
// one adapter here, StaticSource, exists to exercise the pipeline.
package dns

import (
	"context"
	"time"
)

// Observation is one raw DNS query event as produced by a Source. ClientIP
// is carried only as far as the filter chain — it is never forwarded past
// Collector.Run, and the Target Queue never sees it (spec.md §6 "Client IPs
// must not be persisted").
type Observation struct {
	Domain    string
	Timestamp time.Time
	QType     string // "A", "AAAA", "" if unknown
	ClientIP  string
}

// Source streams Observations until ctx is cancelled or the source is
// exhausted.
type Source interface {
	Stream(ctx context.Context) (<-chan Observation, error)
}
