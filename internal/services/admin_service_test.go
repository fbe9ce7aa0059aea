package services

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/BradenHooton/pingate/internal/models"
	pkglogger "github.com/BradenHooton/pingate/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestAdminService(verify func(ctx context.Context, token string) error) (*AdminService, *LockoutStore, *MemorySettingsStore) {
	store, settings := newTestLockoutStore()
	logger := slog.Default()
	svc := NewAdminService(
		&MockIdentityProvider{VerifyTokenFunc: verify},
		store,
		pkglogger.NewAuditLogger(logger),
		logger,
	)
	return svc, store, settings
}

func acceptToken(want string) func(ctx context.Context, token string) error {
	return func(ctx context.Context, token string) error {
		if token == want {
			return nil
		}
		return models.ErrUnauthorized
	}
}

func TestAdminService_BlockedCount(t *testing.T) {
	ctx := context.Background()
	svc, store, _ := newTestAdminService(acceptToken("good"))

	count, err := svc.BlockedCount(ctx, "good", "1.2.3.4")
	require.NoError(t, err)
	assert.Equal(t, 0, count)

	_, _ = store.IncrementBlockedCount(ctx)
	_, _ = store.IncrementBlockedCount(ctx)

	count, err = svc.BlockedCount(ctx, "good", "1.2.3.4")
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestAdminService_ResetBlockedCount(t *testing.T) {
	ctx := context.Background()
	svc, store, _ := newTestAdminService(acceptToken("good"))
	_, _ = store.IncrementBlockedCount(ctx)

	require.NoError(t, svc.ResetBlockedCount(ctx, "good", "1.2.3.4"))

	count, err := store.BlockedCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

func TestAdminService_UnauthorizedLeavesCounter(t *testing.T) {
	tests := []struct {
		name   string
		bearer string
		verify func(ctx context.Context, token string) error
	}{
		{"missing bearer", "", acceptToken("good")},
		{"wrong bearer", "bad", acceptToken("good")},
		{"provider down", "good", func(ctx context.Context, token string) error { return errors.New("timeout") }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			svc, store, _ := newTestAdminService(tt.verify)
			_, _ = store.IncrementBlockedCount(ctx)

			err := svc.ResetBlockedCount(ctx, tt.bearer, "1.2.3.4")
			assert.ErrorIs(t, err, models.ErrUnauthorized)

			_, err = svc.BlockedCount(ctx, tt.bearer, "1.2.3.4")
			assert.ErrorIs(t, err, models.ErrUnauthorized)

			count, err := store.BlockedCount(ctx)
			require.NoError(t, err)
			assert.Equal(t, 1, count)
		})
	}
}

func TestAdminService_StoreFailureIsInternal(t *testing.T) {
	ctx := context.Background()
	svc, _, settings := newTestAdminService(acceptToken("good"))
	settings.GetErr = errors.New("connection refused")
	settings.SetErr = errors.New("connection refused")

	_, err := svc.BlockedCount(ctx, "good", "1.2.3.4")
	assert.ErrorIs(t, err, models.ErrInternalServer)

	err = svc.ResetBlockedCount(ctx, "good", "1.2.3.4")
	assert.ErrorIs(t, err, models.ErrInternalServer)
}
