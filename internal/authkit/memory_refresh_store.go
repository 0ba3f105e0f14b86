package authkit

import (
	"context"
	"strings"
	"sync"
	"time"
)

// MemoryRefreshTokenStore is an in-memory store intended for tests and dev.
type MemoryRefreshTokenStore struct {
	mutex  sync.Mutex
	byID   map[string]*memoryRecord
	byHash map[string]string
	clock  Clock
}

type memoryRecord struct {
	TokenID         string
	UserID          uint
	Hash            string
	ExpiresUnix     int64
	RevokedAtUnix   int64
	PreviousTokenID string
	IssuedAtUnix    int64
}

// NewMemoryRefreshTokenStore creates a new in-memory token store.
func NewMemoryRefreshTokenStore(clock Clock) *MemoryRefreshTokenStore {
	if clock == nil {
		clock = NewSystemClock()
	}
	return &MemoryRefreshTokenStore{
		byID:   make(map[string]*memoryRecord),
		byHash: make(map[string]string),
		clock:  clock,
	}
}

// Issue creates a new token, optionally linked to a previous token.
func (store *MemoryRefreshTokenStore) Issue(ctx context.Context, userID uint, expiresUnix int64, previousTokenID string) (string, string, error) {
	now := store.clock.Now()
	tokenID, idErr := NewRefreshTokenID(now)
	if idErr != nil {
		return "", "", idErr
	}
	opaque, hashValue, err := GenerateRefreshOpaque()
	if err != nil {
		return "", "", err
	}

	store.mutex.Lock()
	defer store.mutex.Unlock()
	store.byID[tokenID] = &memoryRecord{
		TokenID:         tokenID,
		UserID:          userID,
		Hash:            hashValue,
		ExpiresUnix:     expiresUnix,
		PreviousTokenID: previousTokenID,
		IssuedAtUnix:    now.Unix(),
	}
	store.byHash[hashValue] = tokenID
	return tokenID, opaque, nil
}

// Validate checks the opaque token and returns user, token id, and expiry.
func (store *MemoryRefreshTokenStore) Validate(ctx context.Context, tokenOpaque string) (uint, string, int64, error) {
	if strings.TrimSpace(tokenOpaque) == "" {
		return 0, "", 0, ErrRefreshTokenEmptyOpaque
	}
	store.mutex.Lock()
	defer store.mutex.Unlock()

	tokenID, ok := store.byHash[HashOpaque(tokenOpaque)]
	if !ok {
		return 0, "", 0, ErrRefreshTokenNotFound
	}
	record := store.byID[tokenID]
	if record == nil {
		return 0, "", 0, ErrRefreshTokenNotFound
	}
	if record.RevokedAtUnix != 0 {
		return 0, "", 0, ErrRefreshTokenRevoked
	}
	if time.Unix(record.ExpiresUnix, 0).Before(store.clock.Now()) {
		return 0, "", 0, ErrRefreshTokenExpired
	}
	return record.UserID, record.TokenID, record.ExpiresUnix, nil
}

// Revoke marks a token as revoked.
func (store *MemoryRefreshTokenStore) Revoke(ctx context.Context, tokenID string) error {
	store.mutex.Lock()
	defer store.mutex.Unlock()

	record := store.byID[tokenID]
	if record == nil {
		return ErrRefreshTokenNotFound
	}
	if record.RevokedAtUnix != 0 {
		return ErrRefreshTokenAlreadyRevoked
	}
	record.RevokedAtUnix = store.clock.Now().Unix()
	return nil
}

// RevokeAllForUser revokes every live token of the user.
func (store *MemoryRefreshTokenStore) RevokeAllForUser(ctx context.Context, userID uint) error {
	store.mutex.Lock()
	defer store.mutex.Unlock()

	nowUnix := store.clock.Now().Unix()
	for _, record := range store.byID {
		if record.UserID == userID && record.RevokedAtUnix == 0 {
			record.RevokedAtUnix = nowUnix
		}
	}
	return nil
}
