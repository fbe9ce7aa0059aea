package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/BradenHooton/pingate/internal/models"
)

// SettingsStore is the key/value persistence behind lockout state and the
// blocked counter.
type SettingsStore interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
}

// LockoutStore reads and writes per-IP lockout state and the global blocked
// counter. Nothing is cached: every call goes to the settings store.
type LockoutStore struct {
	settings SettingsStore
	policy   LockoutPolicy
	logger   *slog.Logger
}

func NewLockoutStore(settings SettingsStore, policy LockoutPolicy, logger *slog.Logger) *LockoutStore {
	return &LockoutStore{
		settings: settings,
		policy:   policy,
		logger:   logger,
	}
}

// storedLockoutState is the persisted JSON shape. Fields are decoded leniently
// so a corrupt row degrades to defaults instead of failing the request.
type storedLockoutState struct {
	FailedAttempts     json.RawMessage `json:"failed_attempts"`
	LockCount          json.RawMessage `json:"lock_count"`
	CurrentLockMinutes json.RawMessage `json:"current_lock_minutes"`
	LockUntil          json.RawMessage `json:"lock_until"`
}

type lockoutStateJSON struct {
	FailedAttempts     int     `json:"failed_attempts"`
	LockCount          int     `json:"lock_count"`
	CurrentLockMinutes int     `json:"current_lock_minutes"`
	LockUntil          *string `json:"lock_until"`
}

// GetState returns the IP's state, or a fresh one when none is stored.
func (s *LockoutStore) GetState(ctx context.Context, ip string) (models.LockoutState, error) {
	raw, err := s.settings.Get(ctx, models.LockoutKey(ip))
	if errors.Is(err, models.ErrNotFound) {
		return s.policy.Fresh(), nil
	}
	if err != nil {
		return models.LockoutState{}, fmt.Errorf("read lockout state: %w", err)
	}

	return s.decodeState(ip, raw), nil
}

// SaveState writes the IP's state.
func (s *LockoutStore) SaveState(ctx context.Context, ip string, state models.LockoutState) error {
	payload, err := EncodeLockoutState(state)
	if err != nil {
		return err
	}
	if err := s.settings.Set(ctx, models.LockoutKey(ip), payload); err != nil {
		return fmt.Errorf("write lockout state: %w", err)
	}
	return nil
}

// BlockedCount returns the cumulative blocked counter, 0 when unset.
func (s *LockoutStore) BlockedCount(ctx context.Context) (int, error) {
	raw, err := s.settings.Get(ctx, models.BlockedCountKey)
	if errors.Is(err, models.ErrNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read blocked count: %w", err)
	}

	count, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || count < 0 {
		s.logger.Warn("corrupt blocked counter, treating as 0", slog.String("value", raw))
		return 0, nil
	}
	return count, nil
}

// IncrementBlockedCount adds one to the counter and returns the new value.
// Read-modify-write without locking: concurrent increments may be lost.
func (s *LockoutStore) IncrementBlockedCount(ctx context.Context) (int, error) {
	count, err := s.BlockedCount(ctx)
	if err != nil {
		return 0, err
	}
	count++
	if err := s.settings.Set(ctx, models.BlockedCountKey, strconv.Itoa(count)); err != nil {
		return 0, fmt.Errorf("write blocked count: %w", err)
	}
	return count, nil
}

// ResetBlockedCount sets the counter to 0.
func (s *LockoutStore) ResetBlockedCount(ctx context.Context) error {
	if err := s.settings.Set(ctx, models.BlockedCountKey, "0"); err != nil {
		return fmt.Errorf("reset blocked count: %w", err)
	}
	return nil
}

func (s *LockoutStore) decodeState(ip, raw string) models.LockoutState {
	state, ok := DecodeLockoutState(raw, s.policy)
	if !ok {
		s.logger.Warn("corrupt lockout state, using defaults", slog.String("ip", ip))
	}
	return state
}

// EncodeLockoutState serializes a state to its stored JSON form.
func EncodeLockoutState(state models.LockoutState) (string, error) {
	out := lockoutStateJSON{
		FailedAttempts:     state.FailedAttempts,
		LockCount:          state.LockCount,
		CurrentLockMinutes: state.CurrentLockMinutes,
	}
	if state.LockUntil != nil {
		ts := state.LockUntil.UTC().Format(time.RFC3339Nano)
		out.LockUntil = &ts
	}

	payload, err := json.Marshal(out)
	if err != nil {
		return "", fmt.Errorf("encode lockout state: %w", err)
	}
	return string(payload), nil
}

// DecodeLockoutState parses a stored state and sanitizes it. Missing or
// malformed fields take their defaults and an unparseable lock_until is
// treated as no lock. ok is false when anything had to be repaired.
func DecodeLockoutState(raw string, policy LockoutPolicy) (models.LockoutState, bool) {
	var stored storedLockoutState
	if err := json.Unmarshal([]byte(raw), &stored); err != nil {
		return policy.Fresh(), false
	}

	ok := true
	field := func(msg json.RawMessage) int {
		v, valid := decodeCount(msg)
		if !valid {
			ok = false
		}
		return v
	}

	state := models.LockoutState{
		FailedAttempts:     field(stored.FailedAttempts),
		LockCount:          field(stored.LockCount),
		CurrentLockMinutes: field(stored.CurrentLockMinutes),
	}

	lockUntil, valid := decodeTimestamp(stored.LockUntil)
	if !valid {
		ok = false
	}
	state.LockUntil = lockUntil

	sanitized := policy.Sanitize(state)
	if sanitized != state {
		ok = false
	}
	return sanitized, ok
}

// decodeCount accepts a JSON number or numeric string. Absent and null are
// valid zeros.
func decodeCount(msg json.RawMessage) (int, bool) {
	if len(msg) == 0 || string(msg) == "null" {
		return 0, true
	}

	var f float64
	if err := json.Unmarshal(msg, &f); err != nil {
		var s string
		if err := json.Unmarshal(msg, &s); err != nil {
			return 0, false
		}
		parsed, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	}

	if math.IsNaN(f) || math.IsInf(f, 0) || f > math.MaxInt32 || f < math.MinInt32 {
		return 0, false
	}
	return int(math.Floor(f)), true
}

func decodeTimestamp(msg json.RawMessage) (*time.Time, bool) {
	if len(msg) == 0 || string(msg) == "null" {
		return nil, true
	}

	var s string
	if err := json.Unmarshal(msg, &s); err != nil {
		return nil, false
	}
	if s == "" {
		return nil, true
	}

	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return nil, false
	}
	return &t, true
}
