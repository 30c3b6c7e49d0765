// Package models holds the core row types of the measurement pipeline.
package models

import "time"

// TargetSource identifies which producer created a Target or Task.
type TargetSource string

const (
	SourceStatic    TargetSource = "static"
	SourceAPI       TargetSource = "api"
	SourceDNS       TargetSource = "dns"
	SourceRemeasure TargetSource = "remeasure"
)

// Target is a canonicalized probe destination.
type Target struct {
	ID             int64
	IP             string
	Source         TargetSource
	CreatedAt      time.Time
	LastMeasuredAt *time.Time
}

// Measurement is one probe run against a Target.
type Measurement struct {
	ID           int64
	TargetID     int64
	Tool         string
	StartedAt    time.Time
	CompletedAt  *time.Time
	Success      bool
	RawOutput    string
	Enriched     bool
	EnrichedAt   *time.Time
	GraphBuilt   bool
	GraphBuiltAt *time.Time
	Attempts     int
}

// Hop is one entry of a Measurement's hop list.
type Hop struct {
	MeasurementID int64
	HopNumber     int
	HopIP         *string
	RTTMs         *float64
	ASN           *int64
	Prefix        *string
	OrgName       *string
	CountryCode   *string
}

// ASN is the enrichment cache row, one per autonomous system.
type ASN struct {
	ASN                   int64
	OrgName               string
	CountryCode           string
	PrefixCount           int
	NeighborCount         int
	Source                string // which source supplied the non-peeringdb core fields
	PeeringDBID           int64
	FacilityCount         int
	PeeringPolicy         string
	TrafficLevels         string
	IRRASSet              string
	TotalMeasurements     int64
	AvgRTTMs              float64
	FirstSeen             time.Time
	LastSeen              time.Time
	LastEnriched          *time.Time
	LastEnrichmentAttempt *time.Time
}

// Edge is a directed AS-level adjacency observed in one or more traces.
type Edge struct {
	SrcASN        int64
	DstASN        int64
	ObservedCount int64
	MinRTTMs      float64
	MaxRTTMs      float64
	LastSeen      time.Time
}

// Task is a queued probe request, materialized only in the queue's tasks table.
type Task struct {
	ID        string
	TargetIP  string
	Source    TargetSource
	Priority  int
	CreatedAt time.Time
	Deadline  *time.Time
}

// Setting is one JSON-valued runtime configuration key.
type Setting struct {
	Key       string
	Value     []byte // raw JSON
	UpdatedAt time.Time
}
