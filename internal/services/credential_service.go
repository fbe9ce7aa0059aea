package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/BradenHooton/pingate/internal/models"
	pkgauth "github.com/BradenHooton/pingate/pkg/auth"
	pkglogger "github.com/BradenHooton/pingate/pkg/logger"
)

// IdentityProvider issues sessions for the shared backing account and
// verifies bearer tokens. Implemented by the GoTrue client and by
// LocalIdentityProvider.
type IdentityProvider interface {
	SignInWithPassword(ctx context.Context, email, password string) (*models.Session, error)
	CreateUser(ctx context.Context, email, password string) error
	VerifyToken(ctx context.Context, token string) error
}

// CredentialService exchanges a validated PIN for a session on the shared
// account. The account password is derived from a server secret, never from
// the PIN.
type CredentialService struct {
	identity IdentityProvider
	email    string
	password string
	logger   *slog.Logger
}

func NewCredentialService(identity IdentityProvider, email, secret string, logger *slog.Logger) (*CredentialService, error) {
	password, err := pkgauth.DeriveAccountPassword(secret)
	if err != nil {
		return nil, fmt.Errorf("derive shared account password: %w", err)
	}

	return &CredentialService{
		identity: identity,
		email:    email,
		password: password,
		logger:   logger,
	}, nil
}

// Exchange signs in to the shared account, creating it on first use.
// Any provider failure is reported as models.ErrInternalServer.
func (s *CredentialService) Exchange(ctx context.Context) (*models.Session, error) {
	session, err := s.identity.SignInWithPassword(ctx, s.email, s.password)
	if err == nil {
		return session, nil
	}
	if !errors.Is(err, models.ErrInvalidCredentials) {
		s.logger.Error("shared account sign-in failed", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	s.logger.Info("shared account missing, creating it",
		slog.String("email", pkglogger.SanitizedEmail(s.email)))

	if err := s.identity.CreateUser(ctx, s.email, s.password); err != nil && !errors.Is(err, models.ErrConflict) {
		s.logger.Error("shared account creation failed", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	session, err = s.identity.SignInWithPassword(ctx, s.email, s.password)
	if err != nil {
		s.logger.Error("shared account sign-in failed after creation", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	return session, nil
}
