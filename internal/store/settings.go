package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// GetSetting returns the raw JSON value for key, or (nil, false) if unset.
// Components re-read settings each cycle rather than caching them (spec.md
// §9 "Global state").
func (r *Repository) GetSetting(ctx context.Context, key string) (json.RawMessage, bool, error) {
	var raw json.RawMessage
	err := r.db.QueryRow(ctx, `SELECT value FROM settings WHERE key = $1`, key).Scan(&raw)
	if err == pgx.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("get setting %s: %w", key, err)
	}
	return raw, true, nil
}

// SetSetting upserts a JSON-valued setting.
func (r *Repository) SetSetting(ctx context.Context, key string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal setting %s: %w", key, err)
	}
	_, err = r.db.Exec(ctx, `
		INSERT INTO settings (key, value) VALUES ($1, $2)
		ON CONFLICT (key) DO UPDATE SET value = $2, updated_at = now()
	`, key, raw)
	if err != nil {
		return fmt.Errorf("set setting %s: %w", key, err)
	}
	return nil
}
