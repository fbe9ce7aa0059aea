package models

import "time"

// LockoutKeyPrefix prefixes the settings key holding an IP's lockout state.
const LockoutKeyPrefix = "lockout:"

// BlockedCountKey holds the cumulative number of lockouts applied across all IPs.
const BlockedCountKey = "blocked_ips_count"

// LockoutState is the per-IP lockout bookkeeping.
//
// FailedAttempts counts consecutive failures since the last lock or success.
// LockCount is the number of locks ever applied to the IP; CurrentLockMinutes
// is the duration of the most recent lock and only grows. LockUntil is nil
// when the IP is not locked.
type LockoutState struct {
	FailedAttempts     int
	LockCount          int
	CurrentLockMinutes int
	LockUntil          *time.Time
}

// LockoutKey returns the settings key for an IP's lockout state.
func LockoutKey(ip string) string {
	return LockoutKeyPrefix + ip
}

// IsLocked reports whether the state holds a lock that has not yet expired.
func (s LockoutState) IsLocked(now time.Time) bool {
	return s.LockUntil != nil && s.LockUntil.After(now)
}

// LockoutEvent describes a lock that has just been applied to an IP.
type LockoutEvent struct {
	IPAddress      string    `json:"ip_address"`
	LockCount      int       `json:"lock_count"`
	LockMinutes    int       `json:"lock_minutes"`
	LockUntil      time.Time `json:"lock_until"`
	RecentFailures int       `json:"recent_failures"`
	OccurredAt     time.Time `json:"occurred_at"`
}
