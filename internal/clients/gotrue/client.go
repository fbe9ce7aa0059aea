package gotrue

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/BradenHooton/pingate/internal/config"
	"github.com/BradenHooton/pingate/internal/models"
	"github.com/hashicorp/go-retryablehttp"
)

const (
	tokenPath      = "/auth/v1/token?grant_type=password"
	adminUsersPath = "/auth/v1/admin/users"
	userPath       = "/auth/v1/user"

	defaultRetryWaitMin = 200 * time.Millisecond
	defaultRetryWaitMax = 2 * time.Second
	maxErrorBody        = 4 << 10
)

// Client talks to a GoTrue-compatible identity provider.
type Client struct {
	client         *http.Client
	baseURL        string
	anonKey        string
	serviceRoleKey string
}

func NewClient(cfg config.IdentityConfig) *Client {
	retryClient := retryablehttp.NewClient()
	retryClient.RetryMax = cfg.RetryAttempts
	retryClient.RetryWaitMin = defaultRetryWaitMin
	retryClient.RetryWaitMax = defaultRetryWaitMax
	retryClient.HTTPClient.Timeout = cfg.Timeout
	retryClient.Logger = nil

	// Only transport failures are retried. A status code is an answer.
	retryClient.CheckRetry = func(ctx context.Context, resp *http.Response, err error) (bool, error) {
		if err != nil {
			return retryablehttp.DefaultRetryPolicy(ctx, resp, err)
		}
		return false, nil
	}

	return &Client{
		client:         retryClient.StandardClient(),
		baseURL:        strings.TrimRight(cfg.GoTrueURL, "/"),
		anonKey:        cfg.GoTrueAnonKey,
		serviceRoleKey: cfg.GoTrueServiceRoleKey,
	}
}

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type createUserRequest struct {
	Email        string `json:"email"`
	Password     string `json:"password"`
	EmailConfirm bool   `json:"email_confirm"`
}

type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"`
}

// ErrorResponse covers both the legacy and current GoTrue error shapes.
type ErrorResponse struct {
	Code             int    `json:"code"`
	ErrorCode        string `json:"error_code"`
	Msg              string `json:"msg"`
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
}

func (e ErrorResponse) kind() string {
	if e.ErrorCode != "" {
		return e.ErrorCode
	}
	return e.Error
}

func (e ErrorResponse) message() string {
	if e.Msg != "" {
		return e.Msg
	}
	return e.ErrorDescription
}

// SignInWithPassword exchanges email and password for a session.
// Unknown account or wrong password yields models.ErrInvalidCredentials.
func (c *Client) SignInWithPassword(ctx context.Context, email, password string) (*models.Session, error) {
	req, err := c.newJSONRequest(ctx, http.MethodPost, tokenPath, credentialsRequest{Email: email, Password: password})
	if err != nil {
		return nil, err
	}
	req.Header.Set("apikey", c.anonKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("gotrue sign-in request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		apiErr := readError(resp)
		if resp.StatusCode == http.StatusBadRequest {
			switch apiErr.kind() {
			case "invalid_grant", "invalid_credentials", "":
				return nil, models.ErrInvalidCredentials
			}
		}
		return nil, fmt.Errorf("gotrue sign-in: status %d: %s %s", resp.StatusCode, apiErr.kind(), apiErr.message())
	}

	var tokens tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tokens); err != nil {
		return nil, fmt.Errorf("decode gotrue token response: %w", err)
	}
	if tokens.AccessToken == "" || tokens.RefreshToken == "" {
		return nil, errors.New("gotrue token response missing tokens")
	}

	return &models.Session{AccessToken: tokens.AccessToken, RefreshToken: tokens.RefreshToken}, nil
}

// CreateUser creates a confirmed account with the admin API.
// An existing account yields models.ErrConflict.
func (c *Client) CreateUser(ctx context.Context, email, password string) error {
	req, err := c.newJSONRequest(ctx, http.MethodPost, adminUsersPath, createUserRequest{
		Email:        email,
		Password:     password,
		EmailConfirm: true,
	})
	if err != nil {
		return err
	}
	req.Header.Set("apikey", c.serviceRoleKey)
	req.Header.Set("Authorization", "Bearer "+c.serviceRoleKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("gotrue create user request: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK, http.StatusCreated:
		return nil
	case http.StatusConflict, http.StatusUnprocessableEntity:
		apiErr := readError(resp)
		if isAlreadyRegistered(apiErr) {
			return models.ErrConflict
		}
		return fmt.Errorf("gotrue create user: status %d: %s %s", resp.StatusCode, apiErr.kind(), apiErr.message())
	default:
		apiErr := readError(resp)
		return fmt.Errorf("gotrue create user: status %d: %s %s", resp.StatusCode, apiErr.kind(), apiErr.message())
	}
}

// VerifyToken checks that an access token belongs to a live session.
func (c *Client) VerifyToken(ctx context.Context, token string) error {
	if token == "" {
		return models.ErrUnauthorized
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+userPath, nil)
	if err != nil {
		return fmt.Errorf("build gotrue user request: %w", err)
	}
	req.Header.Set("apikey", c.anonKey)
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("gotrue user request: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxErrorBody))

	switch {
	case resp.StatusCode == http.StatusOK:
		return nil
	case resp.StatusCode == http.StatusUnauthorized, resp.StatusCode == http.StatusForbidden:
		return models.ErrUnauthorized
	default:
		return fmt.Errorf("gotrue user: unexpected status %d", resp.StatusCode)
	}
}

func (c *Client) newJSONRequest(ctx context.Context, method, path string, body any) (*http.Request, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal gotrue request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build gotrue request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	return req, nil
}

func readError(resp *http.Response) ErrorResponse {
	var apiErr ErrorResponse
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if err != nil || len(body) == 0 {
		return apiErr
	}
	_ = json.Unmarshal(body, &apiErr)
	return apiErr
}

func isAlreadyRegistered(e ErrorResponse) bool {
	switch e.kind() {
	case "email_exists", "user_already_exists":
		return true
	}
	return strings.Contains(strings.ToLower(e.message()), "already")
}
