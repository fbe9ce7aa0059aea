package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/BradenHooton/pingate/internal/auth"
	"github.com/BradenHooton/pingate/internal/models"
	pkgauth "github.com/BradenHooton/pingate/pkg/auth"
	pkglogger "github.com/BradenHooton/pingate/pkg/logger"
)

const (
	notifyTimeout       = 3 * time.Second
	recentFailureWindow = 24 * time.Hour
)

// AttemptLedger is the append-only record of PIN comparisons.
type AttemptLedger interface {
	RecordAttempt(ctx context.Context, attempt *models.PinAttempt) error
	CountFailuresSince(ctx context.Context, ipAddress string, since time.Time) (int, error)
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// CredentialExchanger turns a validated PIN into a session.
type CredentialExchanger interface {
	Exchange(ctx context.Context) (*models.Session, error)
}

// GateConfig holds the gate's tuning.
type GateConfig struct {
	Pin              string
	AttemptRetention time.Duration
}

// GateService authenticates a PIN against per-IP lockout state.
type GateService struct {
	config      GateConfig
	ledger      AttemptLedger
	store       *LockoutStore
	policy      LockoutPolicy
	credentials CredentialExchanger
	notifier    LockoutNotifier
	timing      *auth.TimingDelay
	auditLogger *pkglogger.AuditLogger
	logger      *slog.Logger
	now         func() time.Time
}

func NewGateService(
	config GateConfig,
	ledger AttemptLedger,
	store *LockoutStore,
	policy LockoutPolicy,
	credentials CredentialExchanger,
	timing *auth.TimingDelay,
	auditLogger *pkglogger.AuditLogger,
	logger *slog.Logger,
) *GateService {
	return &GateService{
		config:      config,
		ledger:      ledger,
		store:       store,
		policy:      policy,
		credentials: credentials,
		timing:      timing,
		auditLogger: auditLogger,
		logger:      logger,
		now:         time.Now,
	}
}

// SetNotifier enables lockout notifications
func (s *GateService) SetNotifier(notifier LockoutNotifier) {
	s.notifier = notifier
}

// SetClock replaces the time source
func (s *GateService) SetClock(now func() time.Time) {
	s.now = now
}

// VerifyPin checks pin for the caller at ip.
//
// Returns a session on success, models.ErrIncorrectPin for a wrong PIN that
// did not trigger a lock, *models.LockoutError while locked or when this
// attempt applied a lock, and models.ErrInternalServer when state cannot be
// read or credentials cannot be obtained.
func (s *GateService) VerifyPin(ctx context.Context, ip, pin string) (*models.Session, error) {
	if pin == "" {
		return nil, models.ErrPinRequired
	}
	if s.config.Pin == "" {
		s.logger.Error("reference PIN is not configured")
		return nil, models.ErrPinNotConfigured
	}

	start := time.Now()
	now := s.now()

	state, err := s.store.GetState(ctx, ip)
	if err != nil {
		s.logger.Error("failed to read lockout state", slog.String("ip", ip), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	if locked, remaining := s.policy.Check(state, now); locked {
		s.auditLogger.LogPinAttempt(pkglogger.AuditEvent{
			IPAddress:     ip,
			FailureReason: "locked",
		})
		return nil, &models.LockoutError{RemainingMinutes: remaining}
	}

	matched := pkgauth.PinMatches(s.config.Pin, pin)
	s.recordAttempt(ctx, ip, matched, now)

	if matched {
		return s.onSuccess(ctx, ip, state, now)
	}
	return s.onFailure(ctx, ip, state, now, start)
}

func (s *GateService) onSuccess(ctx context.Context, ip string, state models.LockoutState, now time.Time) (*models.Session, error) {
	// Nothing is persisted for an IP that has never failed.
	if state.FailedAttempts != 0 || state.LockUntil != nil {
		if err := s.store.SaveState(ctx, ip, s.policy.OnSuccess(state)); err != nil {
			s.logger.Error("failed to reset lockout state", slog.String("ip", ip), slog.Any("error", err))
		}
	}

	if s.config.AttemptRetention > 0 {
		if _, err := s.ledger.DeleteOlderThan(ctx, now.Add(-s.config.AttemptRetention)); err != nil {
			s.logger.Error("failed to prune pin attempts", slog.Any("error", err))
		}
	}

	s.auditLogger.LogPinAttempt(pkglogger.AuditEvent{IPAddress: ip, Success: true})

	session, err := s.credentials.Exchange(ctx)
	if err != nil {
		return nil, fmt.Errorf("exchange credentials: %w", err)
	}
	return session, nil
}

func (s *GateService) onFailure(ctx context.Context, ip string, state models.LockoutState, now, start time.Time) (*models.Session, error) {
	next, newlyLocked := s.policy.OnFailure(state, now)

	if err := s.store.SaveState(ctx, ip, next); err != nil {
		s.logger.Error("failed to write lockout state", slog.String("ip", ip), slog.Any("error", err))
	}

	s.auditLogger.LogPinAttempt(pkglogger.AuditEvent{
		IPAddress:     ip,
		FailureReason: "incorrect_pin",
	})

	if newlyLocked {
		s.onLocked(ctx, ip, next, now)
	}

	s.timing.WaitFrom(ctx, start)

	if newlyLocked {
		return nil, &models.LockoutError{RemainingMinutes: RemainingMinutes(*next.LockUntil, now)}
	}
	return nil, models.ErrIncorrectPin
}

func (s *GateService) onLocked(ctx context.Context, ip string, state models.LockoutState, now time.Time) {
	if _, err := s.store.IncrementBlockedCount(ctx); err != nil {
		s.logger.Error("failed to increment blocked counter", slog.Any("error", err))
	}

	s.auditLogger.LogLockout(ip, state.LockCount, state.CurrentLockMinutes)

	if s.notifier == nil {
		return
	}

	recent, err := s.ledger.CountFailuresSince(ctx, ip, now.Add(-recentFailureWindow))
	if err != nil {
		s.logger.Warn("failed to count recent failures", slog.String("ip", ip), slog.Any("error", err))
	}

	notifyCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), notifyTimeout)
	defer cancel()

	event := models.LockoutEvent{
		IPAddress:      ip,
		LockCount:      state.LockCount,
		LockMinutes:    state.CurrentLockMinutes,
		LockUntil:      *state.LockUntil,
		RecentFailures: recent,
		OccurredAt:     now,
	}
	if err := s.notifier.NotifyLockout(notifyCtx, event); err != nil {
		s.logger.Error("failed to send lockout notification", slog.String("ip", ip), slog.Any("error", err))
	}
}

func (s *GateService) recordAttempt(ctx context.Context, ip string, success bool, now time.Time) {
	err := s.ledger.RecordAttempt(ctx, &models.PinAttempt{
		IPAddress: ip,
		Success:   success,
		CreatedAt: now,
	})
	if err != nil {
		s.logger.Error("failed to record pin attempt", slog.String("ip", ip), slog.Any("error", err))
	}
}
