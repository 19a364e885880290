package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/Strob0t/TaskOrbit/internal/config"
	"github.com/Strob0t/TaskOrbit/internal/domain"
	"github.com/Strob0t/TaskOrbit/internal/domain/user"
	"github.com/Strob0t/TaskOrbit/internal/port/database"
)

// AuthService handles registration, login and JWT tokens.
type AuthService struct {
	store  database.Store
	cfg    *config.Auth
	secret []byte
}

// NewAuthService creates a new authentication service.
func NewAuthService(store database.Store, cfg *config.Auth) *AuthService {
	return &AuthService{
		store:  store,
		cfg:    cfg,
		secret: []byte(cfg.JWTSecret),
	}
}

// Register creates a new user with a bcrypt-hashed password.
func (s *AuthService) Register(ctx context.Context, req *user.CreateRequest) (*user.User, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}

	hash, err := s.hashPassword(req.Password)
	if err != nil {
		return nil, err
	}

	u := &user.User{
		ID:           uuid.NewString(),
		Email:        req.Email,
		Name:         req.Name,
		PasswordHash: hash,
	}
	if err := s.store.CreateUser(ctx, u); err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}
	return u, nil
}

// Login authenticates a user and returns an access token plus the raw
// refresh token for the caller to set as a cookie.
func (s *AuthService) Login(ctx context.Context, req user.LoginRequest) (*user.LoginResponse, string, error) {
	if err := req.Validate(); err != nil {
		return nil, "", fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}

	u, err := s.store.GetUserByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, "", fmt.Errorf("%w: invalid credentials", domain.ErrUnauthorized)
		}
		return nil, "", fmt.Errorf("get user: %w", err)
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(req.Password)) != nil {
		return nil, "", fmt.Errorf("%w: invalid credentials", domain.ErrUnauthorized)
	}

	resp, rt, rawToken, err := s.issueTokens(u)
	if err != nil {
		return nil, "", err
	}
	if err := s.store.CreateRefreshToken(ctx, rt); err != nil {
		return nil, "", fmt.Errorf("store refresh token: %w", err)
	}
	return resp, rawToken, nil
}

// RefreshTokens validates a refresh token, atomically rotates it, and
// issues a new access token. Every invalid-token path maps to
// ErrUnauthorized so handlers return a uniform 401.
func (s *AuthService) RefreshTokens(ctx context.Context, rawToken string) (*user.LoginResponse, string, error) {
	tokenHash := hashSHA256(rawToken)

	rt, err := s.store.GetRefreshTokenByHash(ctx, tokenHash)
	if err != nil {
		return nil, "", fmt.Errorf("%w: invalid refresh token", domain.ErrUnauthorized)
	}
	if rt.Expired(time.Now()) {
		_ = s.store.DeleteRefreshToken(ctx, rt.ID)
		return nil, "", fmt.Errorf("%w: refresh token expired", domain.ErrUnauthorized)
	}

	u, err := s.store.GetUser(ctx, rt.UserID)
	if err != nil {
		return nil, "", fmt.Errorf("get user: %w", err)
	}

	resp, newRT, newRaw, err := s.issueTokens(u)
	if err != nil {
		return nil, "", err
	}
	if err := s.store.RotateRefreshToken(ctx, tokenHash, newRT); err != nil {
		// A concurrent refresh may have consumed the token already.
		if errors.Is(err, domain.ErrNotFound) {
			return nil, "", fmt.Errorf("%w: invalid refresh token", domain.ErrUnauthorized)
		}
		return nil, "", fmt.Errorf("rotate refresh token: %w", err)
	}
	return resp, newRaw, nil
}

// issueTokens signs an access token and mints a refresh token for u. The
// caller decides how the refresh token gets persisted.
func (s *AuthService) issueTokens(u *user.User) (*user.LoginResponse, *user.RefreshToken, string, error) {
	accessToken, err := s.signJWT(u)
	if err != nil {
		return nil, nil, "", fmt.Errorf("sign jwt: %w", err)
	}
	rt, rawToken, err := newRefreshToken(u.ID, s.cfg.RefreshTokenExpiry)
	if err != nil {
		return nil, nil, "", fmt.Errorf("generate refresh token: %w", err)
	}

	resp := &user.LoginResponse{
		AccessToken: accessToken,
		ExpiresIn:   int(s.cfg.AccessTokenExpiry.Seconds()),
		User:        *u,
	}
	return resp, rt, rawToken, nil
}

// Logout deletes all refresh tokens for a user.
func (s *AuthService) Logout(ctx context.Context, userID string) error {
	return s.store.DeleteRefreshTokensByUser(ctx, userID)
}

// RefreshTokenTTL reports how long refresh tokens live. Handlers align
// cookie lifetimes with it.
func (s *AuthService) RefreshTokenTTL() time.Duration {
	return s.cfg.RefreshTokenExpiry
}

// ValidateAccessToken verifies a JWT and returns the claims.
func (s *AuthService) ValidateAccessToken(tokenStr string) (*user.TokenClaims, error) {
	return s.verifyJWT(tokenStr)
}

// GetUser returns a user by ID.
func (s *AuthService) GetUser(ctx context.Context, id string) (*user.User, error) {
	return s.store.GetUser(ctx, id)
}

// ListUsers returns all registered users.
func (s *AuthService) ListUsers(ctx context.Context) ([]user.User, error) {
	return s.store.ListUsers(ctx)
}

// ResetPassword sets a new password for the user with the given email
// and ends their existing sessions. Admin CLI only; no old-password check.
func (s *AuthService) ResetPassword(ctx context.Context, email, newPassword string) error {
	if err := user.ValidatePassword(newPassword); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}

	u, err := s.store.GetUserByEmail(ctx, email)
	if err != nil {
		return fmt.Errorf("get user: %w", err)
	}

	u.PasswordHash, err = s.hashPassword(newPassword)
	if err != nil {
		return err
	}
	if err := s.store.UpdateUser(ctx, u); err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	return s.store.DeleteRefreshTokensByUser(ctx, u.ID)
}

// SeedDefaultAdmin creates the initial admin user if no users exist. The
// admin gets user.DefaultID, so rows created while auth is disabled stay
// owned by it.
func (s *AuthService) SeedDefaultAdmin(ctx context.Context) error {
	users, err := s.store.ListUsers(ctx)
	if err != nil {
		return fmt.Errorf("list users: %w", err)
	}
	if len(users) > 0 {
		return nil // already seeded
	}

	hash, err := s.hashPassword(s.cfg.DefaultAdminPass)
	if err != nil {
		return err
	}
	u := &user.User{
		ID:           user.DefaultID,
		Email:        s.cfg.DefaultAdminEmail,
		Name:         "Admin",
		PasswordHash: hash,
	}
	if err := s.store.CreateUser(ctx, u); err != nil {
		return fmt.Errorf("seed admin: %w", err)
	}

	slog.Info("seeded default admin user", "email", s.cfg.DefaultAdminEmail)
	return nil
}

func (s *AuthService) hashPassword(pw string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(pw), s.cfg.BcryptCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}
