// Package user defines the user domain model for authentication.
package user

import (
	"errors"
	"net/mail"
	"time"
)

// DefaultID is the user ID injected when authentication is disabled.
// The seeded admin user is created with this ID so task and conversation
// ownership stays consistent across auth modes.
const DefaultID = "00000000-0000-0000-0000-000000000000"

// Audience and issuer stamped into every access token. Validation rejects
// tokens minted for anything else.
const (
	TokenAudience = "taskorbit"
	TokenIssuer   = "taskorbit-core"
)

const minPasswordLength = 8

// User represents a registered user.
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	PasswordHash string    `json:"-"` // never serialized
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// CreateRequest is the input for registering a new user.
type CreateRequest struct {
	Email    string `json:"email"`
	Name     string `json:"name"`
	Password string `json:"password"` //nolint:gosec // request field, not a hardcoded secret
}

// Validate checks required fields, email shape, and the password policy.
func (r *CreateRequest) Validate() error {
	if r.Email == "" {
		return errors.New("email is required")
	}
	if _, err := mail.ParseAddress(r.Email); err != nil {
		return errors.New("invalid email format")
	}
	if r.Name == "" {
		return errors.New("name is required")
	}
	return ValidatePassword(r.Password)
}

// ValidatePassword applies the password policy shared by registration and
// password reset.
func ValidatePassword(pw string) error {
	if pw == "" {
		return errors.New("password is required")
	}
	if len(pw) < minPasswordLength {
		return errors.New("password must be at least 8 characters")
	}
	return nil
}

// LoginRequest is the input for user authentication.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"` //nolint:gosec // request field, not a hardcoded secret
}

// Validate checks that the LoginRequest has all required fields.
func (r *LoginRequest) Validate() error {
	if r.Email == "" {
		return errors.New("email is required")
	}
	if r.Password == "" {
		return errors.New("password is required")
	}
	return nil
}

// LoginResponse is returned after successful authentication.
type LoginResponse struct {
	AccessToken string `json:"access_token"` //nolint:gosec // response field, not a hardcoded secret
	ExpiresIn   int    `json:"expires_in"`   // seconds until access token expires
	User        User   `json:"user"`
}

// TokenClaims contains the JWT payload fields.
type TokenClaims struct {
	UserID   string `json:"sub"`
	Email    string `json:"email"`
	Name     string `json:"name"`
	IssuedAt int64  `json:"iat"`
	Expiry   int64  `json:"exp"`
	JTI      string `json:"jti"`
	Audience string `json:"aud"`
	Issuer   string `json:"iss"`
}

// Valid checks that the claims are live and were minted by this service.
func (c *TokenClaims) Valid(now time.Time) error {
	if now.Unix() > c.Expiry {
		return errors.New("token expired")
	}
	if c.Audience != TokenAudience {
		return errors.New("invalid token audience")
	}
	if c.Issuer != TokenIssuer {
		return errors.New("invalid token issuer")
	}
	return nil
}

// RefreshToken represents a stored refresh token. Only the SHA-256 hash of
// the raw token is persisted.
type RefreshToken struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	TokenHash string    `json:"-"`
	ExpiresAt time.Time `json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
}

// Expired reports whether the token's lifetime has passed.
func (rt *RefreshToken) Expired(now time.Time) bool {
	return now.After(rt.ExpiresAt)
}
