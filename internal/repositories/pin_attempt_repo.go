package repositories

import (
	"context"
	"time"

	"github.com/BradenHooton/pingate/internal/database"
	"github.com/BradenHooton/pingate/internal/models"
	"github.com/google/uuid"
)

// PinAttemptRepository is the append-only attempt ledger
type PinAttemptRepository struct {
	db *database.DB
}

// NewPinAttemptRepository creates a new PinAttemptRepository
func NewPinAttemptRepository(db *database.DB) *PinAttemptRepository {
	return &PinAttemptRepository{db: db}
}

// RecordAttempt appends one attempt row
func (r *PinAttemptRepository) RecordAttempt(ctx context.Context, attempt *models.PinAttempt) error {
	if attempt.ID == "" {
		attempt.ID = uuid.New().String()
	}
	if attempt.CreatedAt.IsZero() {
		attempt.CreatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO pin_attempts (id, ip, success, created_at)
		VALUES ($1, $2, $3, $4)
	`

	_, err := r.db.Pool.Exec(ctx, query,
		attempt.ID,
		attempt.IPAddress,
		attempt.Success,
		attempt.CreatedAt,
	)

	return database.MapPostgresError(err)
}

// CountFailuresSince returns the number of failed attempts from an IP since the given time
func (r *PinAttemptRepository) CountFailuresSince(ctx context.Context, ipAddress string, since time.Time) (int, error) {
	query := `
		SELECT COUNT(*) FROM pin_attempts
		WHERE ip = $1 AND success = false AND created_at >= $2
	`

	var count int
	err := r.db.Pool.QueryRow(ctx, query, ipAddress, since).Scan(&count)
	return count, database.MapPostgresError(err)
}

// DeleteOlderThan removes attempts created before the cutoff
func (r *PinAttemptRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	query := `DELETE FROM pin_attempts WHERE created_at < $1`

	result, err := r.db.Pool.Exec(ctx, query, cutoff)
	if err != nil {
		return 0, database.MapPostgresError(err)
	}

	return result.RowsAffected(), nil
}
