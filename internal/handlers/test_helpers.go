package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/BradenHooton/pingate/internal/models"
	pkghttp "github.com/BradenHooton/pingate/pkg/http"
	"github.com/stretchr/testify/assert"
)

// NewTestRequest creates an HTTP request with JSON body for testing
func NewTestRequest(t *testing.T, method, url string, body interface{}) *http.Request {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("failed to encode request body: %v", err)
		}
	}
	req := httptest.NewRequest(method, url, &buf)
	req.Header.Set("Content-Type", "application/json")
	return req
}

// NewRawTestRequest creates an HTTP request with a literal body
func NewRawTestRequest(method, url, body string) *http.Request {
	req := httptest.NewRequest(method, url, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

// WithBearer sets an Authorization: Bearer header
func WithBearer(req *http.Request, token string) *http.Request {
	req.Header.Set("Authorization", "Bearer "+token)
	return req
}

// AssertJSONResponse checks that response has correct status and decodes JSON body
func AssertJSONResponse(t *testing.T, w *httptest.ResponseRecorder, expectedStatus int, target interface{}) {
	assert.Equal(t, expectedStatus, w.Code, "Response status mismatch")
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"), "Content-Type should be application/json")

	if target != nil {
		err := json.Unmarshal(w.Body.Bytes(), target)
		assert.NoError(t, err, "Failed to decode response JSON")
	}
}

// AssertErrorResponse checks for {"success":false,"error":expectedError}
func AssertErrorResponse(t *testing.T, w *httptest.ResponseRecorder, expectedStatus int, expectedError string) {
	var resp pkghttp.ErrorResponse
	AssertJSONResponse(t, w, expectedStatus, &resp)
	assert.False(t, resp.Success, "success should be false")
	assert.Equal(t, expectedError, resp.Error, "Error message mismatch")
}

// MockGateService implements GateServiceInterface for testing
type MockGateService struct {
	VerifyPinFunc func(ctx context.Context, ip, pin string) (*models.Session, error)
}

func (m *MockGateService) VerifyPin(ctx context.Context, ip, pin string) (*models.Session, error) {
	if m.VerifyPinFunc != nil {
		return m.VerifyPinFunc(ctx, ip, pin)
	}
	return nil, models.ErrInternalServer
}

// MockAdminService implements AdminServiceInterface for testing
type MockAdminService struct {
	BlockedCountFunc      func(ctx context.Context, bearer, ip string) (int, error)
	ResetBlockedCountFunc func(ctx context.Context, bearer, ip string) error
}

func (m *MockAdminService) BlockedCount(ctx context.Context, bearer, ip string) (int, error) {
	if m.BlockedCountFunc != nil {
		return m.BlockedCountFunc(ctx, bearer, ip)
	}
	return 0, models.ErrUnauthorized
}

func (m *MockAdminService) ResetBlockedCount(ctx context.Context, bearer, ip string) error {
	if m.ResetBlockedCountFunc != nil {
		return m.ResetBlockedCountFunc(ctx, bearer, ip)
	}
	return models.ErrUnauthorized
}

// MockHealthChecker implements HealthChecker for testing
type MockHealthChecker struct {
	HealthCheckFunc func(ctx context.Context) error
}

func (m *MockHealthChecker) HealthCheck(ctx context.Context) error {
	if m.HealthCheckFunc != nil {
		return m.HealthCheckFunc(ctx)
	}
	return nil
}
