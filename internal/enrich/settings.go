package enrich

import (
	"context"
	"encoding/json"
	"time"

	"netwatch/internal/store"
)

// Settings mirrors enrichment_settings.* (spec.md §6), re-read every cycle.
type Settings struct {
	BatchSize        int
	ASNCacheTTL      time.Duration
	NegativeCacheTTL time.Duration
	MaxAttempts      int
	CycleSleep       time.Duration
}

func defaultSettings() Settings {
	return Settings{
		BatchSize:        50,
		ASNCacheTTL:      7 * 24 * time.Hour,
		NegativeCacheTTL: time.Hour,
		MaxAttempts:      5,
		CycleSleep:       15 * time.Second,
	}
}

type wireSettings struct {
	BatchSize               *int `json:"batch_size"`
	ASNCacheTTLSeconds      *int `json:"asn_cache_ttl_seconds"`
	NegativeCacheTTLSeconds *int `json:"negative_cache_ttl_seconds"`
	MaxAttempts             *int `json:"max_attempts"`
	CycleSleepSeconds       *int `json:"cycle_sleep_seconds"`
}

// LoadSettings reads enrichment_settings, falling back to defaults for
// absent or unparsable fields (spec.md §7 "fall back to defaults at setting
// read").
func LoadSettings(ctx context.Context, repo *store.Repository) Settings {
	s := defaultSettings()

	raw, ok, err := repo.GetSetting(ctx, "enrichment_settings")
	if err != nil || !ok {
		return s
	}

	var w wireSettings
	if err := json.Unmarshal(raw, &w); err != nil {
		return s
	}

	if w.BatchSize != nil && *w.BatchSize > 0 {
		s.BatchSize = *w.BatchSize
	}
	if w.ASNCacheTTLSeconds != nil && *w.ASNCacheTTLSeconds > 0 {
		s.ASNCacheTTL = time.Duration(*w.ASNCacheTTLSeconds) * time.Second
	}
	if w.NegativeCacheTTLSeconds != nil && *w.NegativeCacheTTLSeconds > 0 {
		s.NegativeCacheTTL = time.Duration(*w.NegativeCacheTTLSeconds) * time.Second
	}
	if w.MaxAttempts != nil && *w.MaxAttempts > 0 {
		s.MaxAttempts = *w.MaxAttempts
	}
	if w.CycleSleepSeconds != nil && *w.CycleSleepSeconds > 0 {
		s.CycleSleep = time.Duration(*w.CycleSleepSeconds) * time.Second
	}
	return s
}
