package scheduler

import (
	"context"
	"encoding/json"
	"time"

	"netwatch/internal/store"
)

// Settings mirrors remeasurement_settings.* (spec.md §6).
type Settings struct {
	TTL        time.Duration
	BatchLimit int
	Interval   time.Duration
}

func defaultSettings() Settings {
	return Settings{
		TTL:        86400 * time.Second,
		BatchLimit: 200,
		Interval:   3600 * time.Second,
	}
}

type wireSettings struct {
	TTLSeconds      *int `json:"ttl_seconds"`
	BatchLimit      *int `json:"batch_limit"`
	IntervalSeconds *int `json:"interval_seconds"`
}

// LoadSettings reads remeasurement_settings, falling back to defaults for
// absent or unparsable fields (spec.md §7).
func LoadSettings(ctx context.Context, repo *store.Repository) Settings {
	s := defaultSettings()

	raw, ok, err := repo.GetSetting(ctx, "remeasurement_settings")
	if err != nil || !ok {
		return s
	}

	var w wireSettings
	if err := json.Unmarshal(raw, &w); err != nil {
		return s
	}

	if w.TTLSeconds != nil && *w.TTLSeconds > 0 {
		s.TTL = time.Duration(*w.TTLSeconds) * time.Second
	}
	if w.BatchLimit != nil && *w.BatchLimit > 0 {
		s.BatchLimit = *w.BatchLimit
	}
	if w.IntervalSeconds != nil && *w.IntervalSeconds > 0 {
		s.Interval = time.Duration(*w.IntervalSeconds) * time.Second
	}
	return s
}
