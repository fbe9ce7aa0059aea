package services

import (
	"testing"
	"time"

	"github.com/BradenHooton/pingate/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testPolicy = LockoutPolicy{MaxAttempts: 3, InitialLockMinutes: 15}

func timePtr(t time.Time) *time.Time { return &t }

func TestLockoutPolicy_FreshIPGetsFreeAttempts(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	state := testPolicy.Fresh()

	state, locked := testPolicy.OnFailure(state, now)
	assert.False(t, locked)
	assert.Equal(t, 1, state.FailedAttempts)

	state, locked = testPolicy.OnFailure(state, now)
	assert.False(t, locked)
	assert.Equal(t, 2, state.FailedAttempts)
	assert.Nil(t, state.LockUntil)

	state, locked = testPolicy.OnFailure(state, now)
	require.True(t, locked)
	assert.Equal(t, 0, state.FailedAttempts)
	assert.Equal(t, 1, state.LockCount)
	assert.Equal(t, 15, state.CurrentLockMinutes)
	require.NotNil(t, state.LockUntil)
	assert.Equal(t, now.Add(15*time.Minute), *state.LockUntil)
}

func TestLockoutPolicy_RelockDoubles(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	state := models.LockoutState{LockCount: 1, CurrentLockMinutes: 15, LockUntil: timePtr(now.Add(-time.Minute))}

	expected := []int{30, 60, 120, 240}
	for i, minutes := range expected {
		var locked bool
		state, locked = testPolicy.OnFailure(state, now)
		require.True(t, locked, "failure %d should relock", i)
		assert.Equal(t, minutes, state.CurrentLockMinutes)
		assert.Equal(t, 2+i, state.LockCount)
		assert.Equal(t, 0, state.FailedAttempts)

		now = state.LockUntil.Add(time.Second)
	}
}

func TestLockoutPolicy_RelockFloorsAtInitial(t *testing.T) {
	now := time.Now()
	state := models.LockoutState{LockCount: 2, CurrentLockMinutes: 5}

	state, locked := testPolicy.OnFailure(state, now)
	require.True(t, locked)
	assert.Equal(t, 15, state.CurrentLockMinutes)
}

func TestLockoutPolicy_Check(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name          string
		lockUntil     *time.Time
		wantLocked    bool
		wantRemaining int
	}{
		{"no lock", nil, false, 0},
		{"expired", timePtr(now.Add(-time.Second)), false, 0},
		{"expires exactly now", timePtr(now), false, 0},
		{"full lock", timePtr(now.Add(15 * time.Minute)), true, 15},
		{"partial minute rounds up", timePtr(now.Add(14*time.Minute + time.Second)), true, 15},
		{"seconds left is one minute", timePtr(now.Add(5 * time.Second)), true, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			locked, remaining := testPolicy.Check(models.LockoutState{LockUntil: tt.lockUntil}, now)
			assert.Equal(t, tt.wantLocked, locked)
			assert.Equal(t, tt.wantRemaining, remaining)
		})
	}
}

func TestLockoutPolicy_OnSuccessKeepsHistory(t *testing.T) {
	state := models.LockoutState{
		FailedAttempts:     2,
		LockCount:          3,
		CurrentLockMinutes: 60,
		LockUntil:          timePtr(time.Now().Add(-time.Minute)),
	}

	next := testPolicy.OnSuccess(state)

	assert.Equal(t, 0, next.FailedAttempts)
	assert.Nil(t, next.LockUntil)
	assert.Equal(t, 3, next.LockCount)
	assert.Equal(t, 60, next.CurrentLockMinutes)
}

func TestLockoutPolicy_Normalize(t *testing.T) {
	now := time.Now()

	expired := testPolicy.Normalize(models.LockoutState{LockUntil: timePtr(now.Add(-time.Minute))}, now)
	assert.Nil(t, expired.LockUntil)

	active := testPolicy.Normalize(models.LockoutState{LockUntil: timePtr(now.Add(time.Minute))}, now)
	assert.NotNil(t, active.LockUntil)
}

func TestLockoutPolicy_Sanitize(t *testing.T) {
	got := testPolicy.Sanitize(models.LockoutState{FailedAttempts: -4, LockCount: -1, CurrentLockMinutes: 2})

	assert.Equal(t, 0, got.FailedAttempts)
	assert.Equal(t, 0, got.LockCount)
	assert.Equal(t, 15, got.CurrentLockMinutes)
}

func TestRemainingMinutes(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	assert.Equal(t, 30, RemainingMinutes(now.Add(30*time.Minute), now))
	assert.Equal(t, 30, RemainingMinutes(now.Add(29*time.Minute+time.Millisecond), now))
	assert.Equal(t, 1, RemainingMinutes(now.Add(time.Millisecond), now))
	assert.Equal(t, 1, RemainingMinutes(now.Add(-time.Minute), now))
}
