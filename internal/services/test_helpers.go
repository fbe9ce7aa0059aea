package services

import (
	"context"
	"sync"
	"time"

	"github.com/BradenHooton/pingate/internal/models"
)

// MockUserRepository implements UserRepository for testing
type MockUserRepository struct {
	GetByIDFunc    func(ctx context.Context, id string) (*models.User, error)
	GetByEmailFunc func(ctx context.Context, email string) (*models.User, error)
	CreateFunc     func(ctx context.Context, user *models.User) (*models.User, error)
}

func (m *MockUserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	return nil, models.ErrNotFound
}

func (m *MockUserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	if m.GetByEmailFunc != nil {
		return m.GetByEmailFunc(ctx, email)
	}
	return nil, models.ErrNotFound
}

func (m *MockUserRepository) Create(ctx context.Context, user *models.User) (*models.User, error) {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, user)
	}
	return nil, models.ErrInternalServer
}

// MockIdentityProvider implements IdentityProvider for testing
type MockIdentityProvider struct {
	SignInWithPasswordFunc func(ctx context.Context, email, password string) (*models.Session, error)
	CreateUserFunc         func(ctx context.Context, email, password string) error
	VerifyTokenFunc        func(ctx context.Context, token string) error
}

func (m *MockIdentityProvider) SignInWithPassword(ctx context.Context, email, password string) (*models.Session, error) {
	if m.SignInWithPasswordFunc != nil {
		return m.SignInWithPasswordFunc(ctx, email, password)
	}
	return &models.Session{AccessToken: "access", RefreshToken: "refresh"}, nil
}

func (m *MockIdentityProvider) CreateUser(ctx context.Context, email, password string) error {
	if m.CreateUserFunc != nil {
		return m.CreateUserFunc(ctx, email, password)
	}
	return nil
}

func (m *MockIdentityProvider) VerifyToken(ctx context.Context, token string) error {
	if m.VerifyTokenFunc != nil {
		return m.VerifyTokenFunc(ctx, token)
	}
	return models.ErrUnauthorized
}

// MockCredentialExchanger implements CredentialExchanger for testing
type MockCredentialExchanger struct {
	ExchangeFunc func(ctx context.Context) (*models.Session, error)
	Calls        int
}

func (m *MockCredentialExchanger) Exchange(ctx context.Context) (*models.Session, error) {
	m.Calls++
	if m.ExchangeFunc != nil {
		return m.ExchangeFunc(ctx)
	}
	return &models.Session{AccessToken: "access-token", RefreshToken: "refresh-token"}, nil
}

// MockLockoutNotifier records every lockout it is told about
type MockLockoutNotifier struct {
	NotifyLockoutFunc func(ctx context.Context, event models.LockoutEvent) error
	Events            []models.LockoutEvent
}

func (m *MockLockoutNotifier) NotifyLockout(ctx context.Context, event models.LockoutEvent) error {
	m.Events = append(m.Events, event)
	if m.NotifyLockoutFunc != nil {
		return m.NotifyLockoutFunc(ctx, event)
	}
	return nil
}

// MemorySettingsStore is an in-memory SettingsStore. GetErr and SetErr, when
// set, are returned instead of touching the map.
type MemorySettingsStore struct {
	mu     sync.Mutex
	values map[string]string
	GetErr error
	SetErr error
}

func NewMemorySettingsStore() *MemorySettingsStore {
	return &MemorySettingsStore{values: make(map[string]string)}
}

func (m *MemorySettingsStore) Get(_ context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.GetErr != nil {
		return "", m.GetErr
	}
	v, ok := m.values[key]
	if !ok {
		return "", models.ErrNotFound
	}
	return v, nil
}

func (m *MemorySettingsStore) Set(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.SetErr != nil {
		return m.SetErr
	}
	m.values[key] = value
	return nil
}

// Raw returns the stored value for key without decoding it
func (m *MemorySettingsStore) Raw(key string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.values[key]
	return v, ok
}

// MemoryAttemptLedger is an in-memory AttemptLedger
type MemoryAttemptLedger struct {
	mu        sync.Mutex
	Attempts  []models.PinAttempt
	RecordErr error
	PruneErr  error
	Cutoffs   []time.Time
}

func (m *MemoryAttemptLedger) RecordAttempt(_ context.Context, attempt *models.PinAttempt) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.RecordErr != nil {
		return m.RecordErr
	}
	m.Attempts = append(m.Attempts, *attempt)
	return nil
}

func (m *MemoryAttemptLedger) CountFailuresSince(_ context.Context, ipAddress string, since time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	count := 0
	for _, a := range m.Attempts {
		if a.IPAddress == ipAddress && !a.Success && !a.CreatedAt.Before(since) {
			count++
		}
	}
	return count, nil
}

func (m *MemoryAttemptLedger) DeleteOlderThan(_ context.Context, cutoff time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Cutoffs = append(m.Cutoffs, cutoff)
	if m.PruneErr != nil {
		return 0, m.PruneErr
	}
	kept := m.Attempts[:0]
	var deleted int64
	for _, a := range m.Attempts {
		if a.CreatedAt.Before(cutoff) {
			deleted++
			continue
		}
		kept = append(kept, a)
	}
	m.Attempts = kept
	return deleted, nil
}

// Len returns the number of recorded attempts
func (m *MemoryAttemptLedger) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Attempts)
}
