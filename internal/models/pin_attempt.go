package models

import "time"

// PinAttempt is one row of the attempt ledger: a single PIN comparison
type PinAttempt struct {
	ID        string    `db:"id"`
	IPAddress string    `db:"ip"`
	Success   bool      `db:"success"`
	CreatedAt time.Time `db:"created_at"`
}
