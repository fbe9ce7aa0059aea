package handlers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHealthHandler(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantBody   HealthResponse
	}{
		{"healthy", nil, http.StatusOK, HealthResponse{Status: "healthy", Database: "up"}},
		{"database down", errors.New("ping failed"), http.StatusServiceUnavailable, HealthResponse{Status: "unhealthy", Database: "down"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHealthHandler(&MockHealthChecker{
				HealthCheckFunc: func(ctx context.Context) error { return tt.err },
			}, discardLogger())

			w := httptest.NewRecorder()
			h.Health(w, httptest.NewRequest(http.MethodGet, "/health", nil))

			var resp HealthResponse
			AssertJSONResponse(t, w, tt.wantStatus, &resp)
			assert.Equal(t, tt.wantBody, resp)
		})
	}
}
