package background

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePruner struct {
	mu      sync.Mutex
	cutoffs []time.Time
	err     error
}

func (f *fakePruner) DeleteOlderThan(_ context.Context, cutoff time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cutoffs = append(f.cutoffs, cutoff)
	return 3, f.err
}

func (f *fakePruner) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.cutoffs)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestCleanupManager_RunOnceUsesRetention(t *testing.T) {
	pruner := &fakePruner{}
	cm := NewCleanupManager(pruner, 30*24*time.Hour, "0 3 * * *", discardLogger())
	now := time.Date(2026, 3, 31, 3, 0, 0, 0, time.UTC)
	cm.now = func() time.Time { return now }

	cm.RunOnce(context.Background())

	require.Equal(t, 1, pruner.calls())
	assert.Equal(t, time.Date(2026, 3, 1, 3, 0, 0, 0, time.UTC), pruner.cutoffs[0])
}

func TestCleanupManager_RunOnceSkipsCancelledContext(t *testing.T) {
	pruner := &fakePruner{}
	cm := NewCleanupManager(pruner, time.Hour, "0 3 * * *", discardLogger())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	cm.RunOnce(ctx)

	assert.Equal(t, 0, pruner.calls())
}

func TestCleanupManager_RunOnceSwallowsErrors(t *testing.T) {
	pruner := &fakePruner{err: errors.New("connection reset")}
	cm := NewCleanupManager(pruner, time.Hour, "0 3 * * *", discardLogger())

	assert.NotPanics(t, func() { cm.RunOnce(context.Background()) })
	assert.Equal(t, 1, pruner.calls())
}

func TestCleanupManager_StartRunsImmediately(t *testing.T) {
	pruner := &fakePruner{}
	cm := NewCleanupManager(pruner, time.Hour, "0 3 * * *", discardLogger())

	require.NoError(t, cm.Start(context.Background()))
	defer cm.Stop()

	assert.Equal(t, 1, pruner.calls())
}

func TestCleanupManager_InvalidSchedule(t *testing.T) {
	cm := NewCleanupManager(&fakePruner{}, time.Hour, "every night", discardLogger())

	assert.Error(t, cm.Start(context.Background()))
}
