package authkit

import (
	"context"
	"errors"
)

var (
	// ErrUserNotFound indicates no account matched the lookup.
	ErrUserNotFound = errors.New("user_store.not_found")
	// ErrEmailTaken indicates another account already uses the email.
	ErrEmailTaken = errors.New("user_store.email_taken")
	// ErrUsernameTaken indicates another account already uses the username.
	ErrUsernameTaken = errors.New("user_store.username_taken")
	// ErrInvalidCredentials indicates an email/password mismatch.
	ErrInvalidCredentials = errors.New("user_store.invalid_credentials")
)

// Refresh token store failures shared by every RefreshTokenStore.
var (
	ErrRefreshTokenNotFound       = errors.New("refresh_store.not_found")
	ErrRefreshTokenRevoked        = errors.New("refresh_store.revoked")
	ErrRefreshTokenExpired        = errors.New("refresh_store.expired")
	ErrRefreshTokenAlreadyRevoked = errors.New("refresh_store.already_revoked")
	ErrRefreshTokenEmptyOpaque    = errors.New("refresh_store.empty_token")
)

// UserStore persists and retrieves portfolio owners.
type UserStore interface {
	CreateUser(ctx context.Context, registration Registration) (User, error)
	AuthenticateUser(ctx context.Context, email string, password string) (User, error)
	UpsertGoogleUser(ctx context.Context, googleSub string, userEmail string, userDisplayName string) (User, error)
	GetUser(ctx context.Context, userID uint) (User, error)
	GetUserByEmail(ctx context.Context, email string) (User, error)
	UpdateProfile(ctx context.Context, userID uint, update ProfileUpdate) (User, error)
	SetPassword(ctx context.Context, userID uint, password string) error
}

// RefreshTokenStore manages long-lived refresh tokens.
type RefreshTokenStore interface {
	Issue(ctx context.Context, userID uint, expiresUnix int64, previousTokenID string) (tokenID string, tokenOpaque string, err error)
	Validate(ctx context.Context, tokenOpaque string) (userID uint, tokenID string, expiresUnix int64, err error)
	Revoke(ctx context.Context, tokenID string) error
	RevokeAllForUser(ctx context.Context, userID uint) error
}

// ResetTokenStore issues single-use password reset tokens.
type ResetTokenStore interface {
	// Issue creates a token for the user, invalidating any earlier one.
	Issue(ctx context.Context, userID uint) (string, error)
	// Consume validates and invalidates a token, returning its owner.
	Consume(ctx context.Context, token string) (uint, error)
}
