// Package authkitpg stores refresh tokens in PostgreSQL through a pgx pool.
package authkitpg

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/tyemirov/portfolio/internal/authkit"
)

// PostgresRefreshTokenStore persists rotating refresh tokens in PostgreSQL.
type PostgresRefreshTokenStore struct {
	pool  *pgxpool.Pool
	clock authkit.Clock
}

var _ authkit.RefreshTokenStore = (*PostgresRefreshTokenStore)(nil)

// NewPostgresRefreshTokenStore constructs a Postgres store.
func NewPostgresRefreshTokenStore(pool *pgxpool.Pool, clock authkit.Clock) *PostgresRefreshTokenStore {
	if clock == nil {
		clock = authkit.NewSystemClock()
	}
	return &PostgresRefreshTokenStore{pool: pool, clock: clock}
}

// Issue inserts a new token row and returns token id and opaque token.
func (store *PostgresRefreshTokenStore) Issue(ctx context.Context, userID uint, expiresUnix int64, previousTokenID string) (string, string, error) {
	now := store.clock.Now().UTC()
	tokenID, idErr := authkit.NewRefreshTokenID(now)
	if idErr != nil {
		return "", "", fmt.Errorf("refresh_store.issue.pgx: %w", idErr)
	}
	opaque, hashValue, randomErr := authkit.GenerateRefreshOpaque()
	if randomErr != nil {
		return "", "", fmt.Errorf("refresh_store.issue.pgx: %w", randomErr)
	}
	_, execErr := store.pool.Exec(ctx, `
INSERT INTO refresh_tokens (token_id, user_id, token_hash, expires_unix, revoked_at_unix, previous_token_id, issued_at_unix)
VALUES ($1, $2, $3, $4, 0, $5, $6)
`, tokenID, int64(userID), hashValue, expiresUnix, previousTokenID, now.Unix())
	if execErr != nil {
		return "", "", fmt.Errorf("refresh_store.issue.pgx: %w", execErr)
	}
	return tokenID, opaque, nil
}

// Validate checks the opaque token and returns user, token id, and expiry.
func (store *PostgresRefreshTokenStore) Validate(ctx context.Context, tokenOpaque string) (uint, string, int64, error) {
	if strings.TrimSpace(tokenOpaque) == "" {
		return 0, "", 0, authkit.ErrRefreshTokenEmptyOpaque
	}
	var userID int64
	var tokenID string
	var expiresUnix int64
	var revokedAt int64
	row := store.pool.QueryRow(ctx, `
SELECT user_id, token_id, expires_unix, revoked_at_unix
FROM refresh_tokens
WHERE token_hash = $1
`, authkit.HashOpaque(tokenOpaque))
	if scanErr := row.Scan(&userID, &tokenID, &expiresUnix, &revokedAt); scanErr != nil {
		if errors.Is(scanErr, pgx.ErrNoRows) {
			return 0, "", 0, authkit.ErrRefreshTokenNotFound
		}
		return 0, "", 0, fmt.Errorf("refresh_store.validate.pgx: %w", scanErr)
	}
	if revokedAt != 0 {
		return 0, "", 0, authkit.ErrRefreshTokenRevoked
	}
	if time.Unix(expiresUnix, 0).Before(store.clock.Now().UTC()) {
		return 0, "", 0, authkit.ErrRefreshTokenExpired
	}
	return uint(userID), tokenID, expiresUnix, nil
}

// Revoke marks a token as revoked.
func (store *PostgresRefreshTokenStore) Revoke(ctx context.Context, tokenID string) error {
	tag, err := store.pool.Exec(ctx, `
UPDATE refresh_tokens
SET revoked_at_unix = $1
WHERE token_id = $2 AND revoked_at_unix = 0
`, store.clock.Now().UTC().Unix(), tokenID)
	if err != nil {
		return fmt.Errorf("refresh_store.revoke.pgx: %w", err)
	}
	if tag.RowsAffected() > 0 {
		return nil
	}
	var revokedAt int64
	lookupErr := store.pool.QueryRow(ctx, `SELECT revoked_at_unix FROM refresh_tokens WHERE token_id = $1`, tokenID).Scan(&revokedAt)
	if errors.Is(lookupErr, pgx.ErrNoRows) {
		return authkit.ErrRefreshTokenNotFound
	}
	if lookupErr != nil {
		return fmt.Errorf("refresh_store.revoke.pgx: %w", lookupErr)
	}
	return authkit.ErrRefreshTokenAlreadyRevoked
}

// RevokeAllForUser revokes every live token of the user.
func (store *PostgresRefreshTokenStore) RevokeAllForUser(ctx context.Context, userID uint) error {
	_, err := store.pool.Exec(ctx, `
UPDATE refresh_tokens
SET revoked_at_unix = $1
WHERE user_id = $2 AND revoked_at_unix = 0
`, store.clock.Now().UTC().Unix(), int64(userID))
	if err != nil {
		return fmt.Errorf("refresh_store.revoke_all.pgx: %w", err)
	}
	return nil
}
