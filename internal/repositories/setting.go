package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/versehub/internal/models"
	"github.com/desertthunder/versehub/internal/shared"
)

// SettingStore persists opaque user settings.
type SettingStore struct {
	db DBTX
}

// NewSettingStore creates a SettingStore on db.
func NewSettingStore(db DBTX) *SettingStore {
	return &SettingStore{db: db}
}

// Get returns the value stored under key.
func (s *SettingStore) Get(ctx context.Context, key string) (string, error) {
	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM user_settings WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("%w: setting %s", shared.ErrNotFound, key)
	}
	if err != nil {
		return "", fmt.Errorf("failed to read setting: %w", err)
	}
	return value, nil
}

// Set inserts or replaces the value stored under key.
func (s *SettingStore) Set(ctx context.Context, key, value string) error {
	if key == "" {
		return fmt.Errorf("%w: setting key", shared.ErrMissingArgument)
	}

	query := `
		INSERT INTO user_settings (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`
	if _, err := s.db.ExecContext(ctx, query, key, value, time.Now().UTC()); err != nil {
		return fmt.Errorf("failed to write setting: %w", err)
	}
	return nil
}

// Delete removes key.
func (s *SettingStore) Delete(ctx context.Context, key string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM user_settings WHERE key = ?`, key)
	if err != nil {
		return fmt.Errorf("failed to delete setting: %w", err)
	}
	return affectedOne(result, shared.ErrNotFound, key)
}

// List returns all settings ordered by key.
func (s *SettingStore) List(ctx context.Context) ([]*models.UserSetting, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT key, value, updated_at FROM user_settings ORDER BY key ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query settings: %w", err)
	}
	defer rows.Close()

	settings := []*models.UserSetting{}
	for rows.Next() {
		var setting models.UserSetting
		if err := rows.Scan(&setting.Key, &setting.Value, &setting.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan setting: %w", err)
		}
		settings = append(settings, &setting)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return settings, nil
}
