package repositories

import (
	"context"
	"errors"

	"github.com/BradenHooton/pingate/internal/database"
	"github.com/BradenHooton/pingate/internal/models"
	"github.com/jackc/pgx/v5/pgxpool"
)

// SettingsRepository is a key/value table holding lockout state and counters.
// Writes are plain read-then-write without transactions: concurrent writers
// to the same key resolve as last write wins.
type SettingsRepository struct {
	pool *pgxpool.Pool
}

func NewSettingsRepository(db *database.DB) *SettingsRepository {
	return &SettingsRepository{pool: db.Pool}
}

// Get returns the value stored under key, or models.ErrNotFound
func (r *SettingsRepository) Get(ctx context.Context, key string) (string, error) {
	query := `SELECT value FROM app_settings WHERE key = $1`

	var value string
	if err := r.pool.QueryRow(ctx, query, key).Scan(&value); err != nil {
		return "", database.MapPostgresError(err)
	}

	return value, nil
}

// Set updates the row for key if it exists, otherwise inserts it
func (r *SettingsRepository) Set(ctx context.Context, key, value string) error {
	exists, err := r.exists(ctx, key)
	if err != nil {
		return err
	}

	if exists {
		return r.update(ctx, key, value)
	}

	err = r.insert(ctx, key, value)
	if errors.Is(err, models.ErrConflict) {
		// Another request inserted the row between our check and insert
		return r.update(ctx, key, value)
	}
	return err
}

func (r *SettingsRepository) exists(ctx context.Context, key string) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM app_settings WHERE key = $1)`

	var exists bool
	if err := r.pool.QueryRow(ctx, query, key).Scan(&exists); err != nil {
		return false, database.MapPostgresError(err)
	}
	return exists, nil
}

func (r *SettingsRepository) update(ctx context.Context, key, value string) error {
	query := `UPDATE app_settings SET value = $2, updated_at = NOW() WHERE key = $1`

	_, err := r.pool.Exec(ctx, query, key, value)
	return database.MapPostgresError(err)
}

func (r *SettingsRepository) insert(ctx context.Context, key, value string) error {
	query := `INSERT INTO app_settings (key, value) VALUES ($1, $2)`

	_, err := r.pool.Exec(ctx, query, key, value)
	return database.MapPostgresError(err)
}
