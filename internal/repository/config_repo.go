package repository

import (
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// ConfigRepo is the persisted key-value store behind config resolution.
// Writes are last-write-wins upserts.
type ConfigRepo struct {
	db *sql.DB
}

func NewConfigRepo(db *sql.DB) *ConfigRepo {
	return &ConfigRepo{db: db}
}

// Get returns the stored value for key, or (nil, nil) when absent.
func (r *ConfigRepo) Get(key string) ([]byte, error) {
	var value string
	err := r.db.QueryRow("SELECT value FROM config_entries WHERE key = ?", key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read config %q: %w", key, err)
	}
	return []byte(value), nil
}

func (r *ConfigRepo) Put(key string, value []byte) error {
	_, err := r.db.Exec(
		`INSERT INTO config_entries (key, value, updated_at) VALUES (?,?,?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, string(value), time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("write config %q: %w", key, err)
	}
	return nil
}
