package services

import (
	"context"
	"log/slog"

	"github.com/BradenHooton/pingate/internal/models"
	pkglogger "github.com/BradenHooton/pingate/pkg/logger"
)

// TokenVerifier checks a bearer token against the identity provider.
type TokenVerifier interface {
	VerifyToken(ctx context.Context, token string) error
}

// BlockedCounter is the subset of LockoutStore used by AdminService.
type BlockedCounter interface {
	BlockedCount(ctx context.Context) (int, error)
	ResetBlockedCount(ctx context.Context) error
}

// AdminService serves the blocked-IP counter to authenticated callers.
type AdminService struct {
	verifier    TokenVerifier
	counter     BlockedCounter
	auditLogger *pkglogger.AuditLogger
	logger      *slog.Logger
}

func NewAdminService(verifier TokenVerifier, counter BlockedCounter, auditLogger *pkglogger.AuditLogger, logger *slog.Logger) *AdminService {
	return &AdminService{
		verifier:    verifier,
		counter:     counter,
		auditLogger: auditLogger,
		logger:      logger,
	}
}

// BlockedCount returns the cumulative number of locks applied.
func (s *AdminService) BlockedCount(ctx context.Context, bearer, ip string) (int, error) {
	if err := s.authorize(ctx, bearer, ip, pkglogger.EventAdminStats); err != nil {
		return 0, err
	}

	count, err := s.counter.BlockedCount(ctx)
	if err != nil {
		s.logger.Error("failed to read blocked counter", slog.Any("error", err))
		return 0, models.ErrInternalServer
	}

	s.auditLogger.LogAdminAction(pkglogger.EventAdminStats, ip, true, "")
	return count, nil
}

// ResetBlockedCount sets the counter back to 0.
func (s *AdminService) ResetBlockedCount(ctx context.Context, bearer, ip string) error {
	if err := s.authorize(ctx, bearer, ip, pkglogger.EventAdminResetBlocked); err != nil {
		return err
	}

	if err := s.counter.ResetBlockedCount(ctx); err != nil {
		s.logger.Error("failed to reset blocked counter", slog.Any("error", err))
		return models.ErrInternalServer
	}

	s.auditLogger.LogAdminAction(pkglogger.EventAdminResetBlocked, ip, true, "")
	return nil
}

// authorize maps every verification failure, including provider outages,
// to models.ErrUnauthorized.
func (s *AdminService) authorize(ctx context.Context, bearer, ip, eventType string) error {
	if bearer == "" {
		s.auditLogger.LogAdminAction(eventType, ip, false, "missing_bearer")
		return models.ErrUnauthorized
	}

	if err := s.verifier.VerifyToken(ctx, bearer); err != nil {
		s.logger.Warn("admin bearer rejected", slog.String("ip", ip), slog.Any("error", err))
		s.auditLogger.LogAdminAction(eventType, ip, false, "invalid_bearer")
		return models.ErrUnauthorized
	}

	return nil
}
