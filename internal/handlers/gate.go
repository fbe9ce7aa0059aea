package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/BradenHooton/pingate/internal/models"
	pkghttp "github.com/BradenHooton/pingate/pkg/http"
)

// Client-facing messages
const (
	msgInvalidRequest   = "Requête invalide"
	msgPinRequired      = "PIN requis"
	msgPinNotConfigured = "PIN non configuré"
	msgIncorrectPin     = "Code incorrect"
	msgUnauthorized     = "Non autorisé"
	msgInternal         = "Erreur interne"
	msgLockedPrefix     = "Accès refusé. Réessaie dans "
)

const maxRequestBodyBytes = 4 << 10

// GateServiceInterface defines the PIN verification logic
type GateServiceInterface interface {
	VerifyPin(ctx context.Context, ip, pin string) (*models.Session, error)
}

// AdminServiceInterface defines the blocked counter operations
type AdminServiceInterface interface {
	BlockedCount(ctx context.Context, bearer, ip string) (int, error)
	ResetBlockedCount(ctx context.Context, bearer, ip string) error
}

// GateHandler serves the single PIN verification endpoint and its admin branch
type GateHandler struct {
	gate     GateServiceInterface
	admin    AdminServiceInterface
	ipConfig *pkghttp.IPConfig
	logger   *slog.Logger
}

// NewGateHandler creates a new GateHandler
func NewGateHandler(gate GateServiceInterface, admin AdminServiceInterface, ipConfig *pkghttp.IPConfig, logger *slog.Logger) *GateHandler {
	return &GateHandler{
		gate:     gate,
		admin:    admin,
		ipConfig: ipConfig,
		logger:   logger,
	}
}

// GateRequest is the body of POST /verify-pin. Pin is left untyped so that a
// non-string PIN is reported as missing rather than as a malformed body.
type GateRequest struct {
	Pin          any  `json:"pin"`
	AdminStats   bool `json:"admin_stats"`
	ResetBlocked bool `json:"reset_blocked"`
}

// PinRequest is the validated PIN submission
type PinRequest struct {
	Pin string `validate:"required,max=64"`
}

// VerifyPinResponse is returned on a correct PIN
type VerifyPinResponse struct {
	Success      bool   `json:"success"`
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// BlockedCountResponse is returned for admin_stats
type BlockedCountResponse struct {
	BlockedCount int `json:"blocked_count"`
}

// SuccessResponse is a bare acknowledgement
type SuccessResponse struct {
	Success bool `json:"success"`
}

// VerifyPin handles POST /verify-pin
func (h *GateHandler) VerifyPin(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodyBytes)

	var req GateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, msgInvalidRequest)
		return
	}

	ip := pkghttp.ExtractClientIP(r, h.ipConfig)

	switch {
	case req.AdminStats:
		h.blockedCount(w, r, ip)
		return
	case req.ResetBlocked:
		h.resetBlocked(w, r, ip)
		return
	}

	pin, _ := req.Pin.(string)
	if err := ValidateRequest(PinRequest{Pin: pin}); err != nil {
		h.logger.Debug("pin rejected before verification", slog.String("reason", err.Error()))
		pkghttp.WriteBadRequest(w, msgPinRequired)
		return
	}

	session, err := h.gate.VerifyPin(r.Context(), ip, pin)
	if err != nil {
		h.writeGateError(w, err)
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, VerifyPinResponse{
		Success:      true,
		AccessToken:  session.AccessToken,
		RefreshToken: session.RefreshToken,
	})
}

func (h *GateHandler) blockedCount(w http.ResponseWriter, r *http.Request, ip string) {
	count, err := h.admin.BlockedCount(r.Context(), pkghttp.BearerToken(r), ip)
	if err != nil {
		h.writeAdminError(w, err)
		return
	}
	pkghttp.WriteJSON(w, http.StatusOK, BlockedCountResponse{BlockedCount: count})
}

func (h *GateHandler) resetBlocked(w http.ResponseWriter, r *http.Request, ip string) {
	if err := h.admin.ResetBlockedCount(r.Context(), pkghttp.BearerToken(r), ip); err != nil {
		h.writeAdminError(w, err)
		return
	}
	pkghttp.WriteJSON(w, http.StatusOK, SuccessResponse{Success: true})
}

func (h *GateHandler) writeGateError(w http.ResponseWriter, err error) {
	var lockErr *models.LockoutError
	switch {
	case errors.As(err, &lockErr):
		pkghttp.WriteUnauthorized(w, LockedMessage(lockErr.RemainingMinutes))
	case errors.Is(err, models.ErrIncorrectPin):
		// A wrong PIN is an expected outcome, not an HTTP error
		pkghttp.WriteError(w, http.StatusOK, msgIncorrectPin)
	case errors.Is(err, models.ErrPinRequired):
		pkghttp.WriteBadRequest(w, msgPinRequired)
	case errors.Is(err, models.ErrPinNotConfigured):
		pkghttp.WriteInternalError(w, msgPinNotConfigured)
	default:
		h.logger.Error("pin verification failed", slog.Any("error", err))
		pkghttp.WriteInternalError(w, msgInternal)
	}
}

func (h *GateHandler) writeAdminError(w http.ResponseWriter, err error) {
	if errors.Is(err, models.ErrUnauthorized) {
		pkghttp.WriteUnauthorized(w, msgUnauthorized)
		return
	}
	h.logger.Error("admin request failed", slog.Any("error", err))
	pkghttp.WriteInternalError(w, msgInternal)
}

// LockedMessage is the client message for a locked IP
func LockedMessage(minutes int) string {
	return msgLockedPrefix + strconv.Itoa(minutes) + " min"
}
