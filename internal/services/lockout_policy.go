package services

import (
	"time"

	"github.com/BradenHooton/pingate/internal/models"
)

// LockoutPolicy decides how an IP's lockout state evolves. It is pure: every
// method takes the current state and time and returns a new state.
//
// A fresh IP gets MaxAttempts consecutive failures before its first lock of
// InitialLockMinutes. Once an IP has been locked, the first failure after the
// lock expires locks it again for twice the previous duration.
type LockoutPolicy struct {
	MaxAttempts        int
	InitialLockMinutes int
}

// Check reports whether the state is locked at now and, if so, the remaining
// lock time in whole minutes rounded up (at least 1).
func (p LockoutPolicy) Check(state models.LockoutState, now time.Time) (bool, int) {
	if !state.IsLocked(now) {
		return false, 0
	}
	return true, RemainingMinutes(*state.LockUntil, now)
}

// Normalize clears an expired lock so the state can be evaluated as open.
func (p LockoutPolicy) Normalize(state models.LockoutState, now time.Time) models.LockoutState {
	if state.LockUntil != nil && !state.LockUntil.After(now) {
		state.LockUntil = nil
	}
	return state
}

// OnFailure applies a wrong PIN to an open state. The second return value is
// true when this failure applied a new lock.
func (p LockoutPolicy) OnFailure(state models.LockoutState, now time.Time) (models.LockoutState, bool) {
	state = p.Normalize(state, now)

	if state.LockCount == 0 {
		state.FailedAttempts++
		if state.FailedAttempts < p.MaxAttempts {
			return state, false
		}
		return p.lock(state, now, p.InitialLockMinutes), true
	}

	return p.lock(state, now, max(p.InitialLockMinutes, state.CurrentLockMinutes*2)), true
}

// OnSuccess resets the failure counter and any lock. Lock history
// (LockCount and CurrentLockMinutes) is kept so repeat offenders stay on the
// doubling schedule.
func (p LockoutPolicy) OnSuccess(state models.LockoutState) models.LockoutState {
	state.FailedAttempts = 0
	state.LockUntil = nil
	return state
}

// Sanitize clamps a state read from storage into the valid range.
func (p LockoutPolicy) Sanitize(state models.LockoutState) models.LockoutState {
	state.FailedAttempts = max(state.FailedAttempts, 0)
	state.LockCount = max(state.LockCount, 0)
	state.CurrentLockMinutes = max(state.CurrentLockMinutes, p.InitialLockMinutes)
	return state
}

// Fresh is the state of an IP that has never failed.
func (p LockoutPolicy) Fresh() models.LockoutState {
	return models.LockoutState{CurrentLockMinutes: p.InitialLockMinutes}
}

func (p LockoutPolicy) lock(state models.LockoutState, now time.Time, minutes int) models.LockoutState {
	until := now.Add(time.Duration(minutes) * time.Minute)
	state.LockUntil = &until
	state.CurrentLockMinutes = minutes
	state.LockCount++
	state.FailedAttempts = 0
	return state
}

// RemainingMinutes is ceil((until-now)/1m), never less than 1.
func RemainingMinutes(until, now time.Time) int {
	remaining := until.Sub(now)
	minutes := int((remaining + time.Minute - 1) / time.Minute)
	return max(minutes, 1)
}
