package worker

import (
	"context"
	"encoding/json"
	"time"

	"netwatch/internal/store"
)

// Settings mirrors the worker_settings.* keys of spec.md §6, re-read every
// cycle rather than cached process-wide (spec.md §9 "Global state").
type Settings struct {
	RateLimitPerMinute  int
	MaxConcurrentProbes int
	WorkerCount         int
	ProbeTimeout        time.Duration
	ToolPreference      []string
}

func defaultSettings() Settings {
	return Settings{
		RateLimitPerMinute:  30,
		MaxConcurrentProbes: 5,
		WorkerCount:         2,
		ProbeTimeout:        30 * time.Second,
		ToolPreference:      []string{"scamper", "traceroute", "mtr"},
	}
}

// wireSettings is the on-disk JSON shape of the worker_settings key.
type wireSettings struct {
	RateLimitPerMinute  *int     `json:"rate_limit_per_minute"`
	MaxConcurrentProbes *int     `json:"max_concurrent_probes"`
	WorkerCount         *int     `json:"worker_count"`
	ProbeTimeoutSeconds *int     `json:"probe_timeout_seconds"`
	ToolPreference      []string `json:"tool_preference"`
}

// LoadSettings reads worker_settings from the store, falling back to
// defaults for any field that is absent or fails to parse (spec.md §7
// "Validation failure ... fall back to defaults at setting read").
func LoadSettings(ctx context.Context, repo *store.Repository) Settings {
	s := defaultSettings()

	raw, ok, err := repo.GetSetting(ctx, "worker_settings")
	if err != nil || !ok {
		return s
	}

	var w wireSettings
	if err := json.Unmarshal(raw, &w); err != nil {
		return s
	}

	if w.RateLimitPerMinute != nil && *w.RateLimitPerMinute > 0 {
		s.RateLimitPerMinute = *w.RateLimitPerMinute
	}
	if w.MaxConcurrentProbes != nil && *w.MaxConcurrentProbes > 0 {
		s.MaxConcurrentProbes = *w.MaxConcurrentProbes
	}
	if w.WorkerCount != nil && *w.WorkerCount > 0 {
		s.WorkerCount = *w.WorkerCount
	}
	if w.ProbeTimeoutSeconds != nil && *w.ProbeTimeoutSeconds > 0 {
		s.ProbeTimeout = time.Duration(*w.ProbeTimeoutSeconds) * time.Second
	}
	if len(w.ToolPreference) > 0 {
		s.ToolPreference = w.ToolPreference
	}
	return s
}
