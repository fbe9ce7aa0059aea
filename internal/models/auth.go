package models

import (
	"github.com/golang-jwt/jwt/v5"
)

// TokenClaims are the claims carried by locally issued session tokens
type TokenClaims struct {
	Type   string `json:"type"`
	UserID string `json:"user_id"`
	Email  string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

// Session is the token pair handed to the client after a successful PIN check.
// The gate treats both tokens as opaque.
type Session struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}
