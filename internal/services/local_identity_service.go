package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/BradenHooton/pingate/internal/auth"
	"github.com/BradenHooton/pingate/internal/models"
	pkgauth "github.com/BradenHooton/pingate/pkg/auth"
)

// UserRepository is the account storage used by LocalIdentityProvider.
type UserRepository interface {
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	Create(ctx context.Context, user *models.User) (*models.User, error)
}

// LocalIdentityProvider is a self-contained IdentityProvider: bcrypt password
// hashes in PostgreSQL and HS256 tokens signed with the server secret.
type LocalIdentityProvider struct {
	userRepo     UserRepository
	tokenManager *auth.TokenManager
	logger       *slog.Logger
}

func NewLocalIdentityProvider(userRepo UserRepository, tokenManager *auth.TokenManager, logger *slog.Logger) *LocalIdentityProvider {
	return &LocalIdentityProvider{
		userRepo:     userRepo,
		tokenManager: tokenManager,
		logger:       logger,
	}
}

func (p *LocalIdentityProvider) SignInWithPassword(ctx context.Context, email, password string) (*models.Session, error) {
	user, err := p.userRepo.GetByEmail(ctx, email)
	if errors.Is(err, models.ErrNotFound) {
		return nil, models.ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("look up account: %w", err)
	}

	if err := pkgauth.ComparePassword(user.PasswordHash, password); err != nil {
		return nil, models.ErrInvalidCredentials
	}

	accessToken, err := p.tokenManager.GenerateAccessToken(user.ID, user.Email)
	if err != nil {
		return nil, err
	}
	refreshToken, err := p.tokenManager.GenerateRefreshToken(user.ID, user.Email)
	if err != nil {
		return nil, err
	}

	return &models.Session{AccessToken: accessToken, RefreshToken: refreshToken}, nil
}

// CreateUser returns models.ErrConflict when the email is taken.
func (p *LocalIdentityProvider) CreateUser(ctx context.Context, email, password string) error {
	hash, err := pkgauth.HashPassword(password)
	if err != nil {
		return err
	}

	user, err := p.userRepo.Create(ctx, &models.User{
		Email:        strings.ToLower(strings.TrimSpace(email)),
		PasswordHash: hash,
	})
	if err != nil {
		return err
	}

	p.logger.Info("local account created", slog.String("user_id", user.ID))
	return nil
}

// VerifyToken accepts access tokens signed by this server whose account
// still exists.
func (p *LocalIdentityProvider) VerifyToken(ctx context.Context, token string) error {
	claims, err := p.tokenManager.ValidateAccessToken(token)
	if err != nil {
		return models.ErrUnauthorized
	}

	if _, err := p.userRepo.GetByID(ctx, claims.UserID); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return models.ErrUnauthorized
		}
		return fmt.Errorf("look up token account: %w", err)
	}

	return nil
}
