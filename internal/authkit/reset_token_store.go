package authkit

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"io"
	"sync"
	"time"
)

var (
	// ErrResetTokenNotFound indicates the reset token was not issued or already consumed.
	ErrResetTokenNotFound = errors.New("reset_store.not_found")
	// ErrResetTokenExpired indicates the reset token expired before consumption.
	ErrResetTokenExpired = errors.New("reset_store.expired")
)

type resetEntry struct {
	userID    uint
	expiresAt time.Time
}

type memoryResetTokenStore struct {
	mutex     sync.Mutex
	entries   map[string]resetEntry
	ttl       time.Duration
	clock     Clock
	random    io.Reader
	tokenSize int
}

// NewMemoryResetTokenStore constructs an in-memory ResetTokenStore with the provided TTL.
func NewMemoryResetTokenStore(ttl time.Duration, clock Clock) ResetTokenStore {
	if ttl <= 0 {
		ttl = DefaultResetTTL
	}
	if clock == nil {
		clock = NewSystemClock()
	}
	return &memoryResetTokenStore{
		entries:   make(map[string]resetEntry),
		ttl:       ttl,
		clock:     clock,
		random:    rand.Reader,
		tokenSize: 32,
	}
}

func (store *memoryResetTokenStore) Issue(ctx context.Context, userID uint) (string, error) {
	token, err := store.randomToken()
	if err != nil {
		return "", err
	}
	store.mutex.Lock()
	defer store.mutex.Unlock()
	store.purgeExpiredLocked()
	for existing, entry := range store.entries {
		if entry.userID == userID {
			delete(store.entries, existing)
		}
	}
	store.entries[token] = resetEntry{userID: userID, expiresAt: store.clock.Now().Add(store.ttl)}
	return token, nil
}

func (store *memoryResetTokenStore) Consume(ctx context.Context, token string) (uint, error) {
	store.mutex.Lock()
	defer store.mutex.Unlock()
	defer store.purgeExpiredLocked()
	entry, ok := store.entries[token]
	if !ok {
		return 0, ErrResetTokenNotFound
	}
	delete(store.entries, token)
	if store.clock.Now().After(entry.expiresAt) {
		return 0, ErrResetTokenExpired
	}
	return entry.userID, nil
}

func (store *memoryResetTokenStore) purgeExpiredLocked() {
	if len(store.entries) == 0 {
		return
	}
	now := store.clock.Now()
	for token, entry := range store.entries {
		if now.After(entry.expiresAt) {
			delete(store.entries, token)
		}
	}
}

func (store *memoryResetTokenStore) randomToken() (string, error) {
	buffer := make([]byte, store.tokenSize)
	if _, err := io.ReadFull(store.random, buffer); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buffer), nil
}
