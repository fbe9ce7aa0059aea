package auth

import (
	"crypto/sha256"
	"crypto/subtle"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

const (
	BcryptCost = 12

	// AccountPasswordLength is how many characters of the server secret form
	// the shared account's password.
	AccountPasswordLength = 32
)

func HashPassword(password string) (string, error) {
	if password == "" {
		return "", fmt.Errorf("password cannot be empty")
	}
	hashedBytes, err := bcrypt.GenerateFromPassword([]byte(password), BcryptCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hashedBytes), nil
}

func ComparePassword(hashedPassword, password string) error {
	return bcrypt.CompareHashAndPassword([]byte(hashedPassword), []byte(password))
}

// DeriveAccountPassword returns the shared account password: the first
// AccountPasswordLength characters of a high-entropy server secret.
func DeriveAccountPassword(secret string) (string, error) {
	if len(secret) < AccountPasswordLength {
		return "", fmt.Errorf("secret must be at least %d characters", AccountPasswordLength)
	}
	return secret[:AccountPasswordLength], nil
}

// PinMatches compares a submitted PIN against the reference in constant time.
// Both sides are hashed first so the comparison does not leak the reference length.
func PinMatches(reference, submitted string) bool {
	if reference == "" {
		return false
	}
	want := sha256.Sum256([]byte(reference))
	got := sha256.Sum256([]byte(submitted))
	return subtle.ConstantTimeCompare(want[:], got[:]) == 1
}
