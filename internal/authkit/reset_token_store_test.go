package authkit

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestMemoryResetTokenStoreIssueConsume(t *testing.T) {
	store := NewMemoryResetTokenStore(time.Minute, nil)
	token, err := store.Issue(context.Background(), 5)
	if err != nil {
		t.Fatalf("issue error: %v", err)
	}
	userID, err := store.Consume(context.Background(), token)
	if err != nil {
		t.Fatalf("consume error: %v", err)
	}
	if userID != 5 {
		t.Fatalf("expected user 5, got %d", userID)
	}
	if _, err := store.Consume(context.Background(), token); !errors.Is(err, ErrResetTokenNotFound) {
		t.Fatalf("expected ErrResetTokenNotFound on reuse, got %v", err)
	}
}

func TestMemoryResetTokenStoreExpires(t *testing.T) {
	clock := &controllableClock{current: time.Unix(1700000000, 0).UTC()}
	store := NewMemoryResetTokenStore(time.Minute, clock)
	token, err := store.Issue(context.Background(), 5)
	if err != nil {
		t.Fatalf("issue error: %v", err)
	}
	clock.Advance(2 * time.Minute)
	if _, err := store.Consume(context.Background(), token); !errors.Is(err, ErrResetTokenNotFound) && !errors.Is(err, ErrResetTokenExpired) {
		t.Fatalf("expected expiry error, got %v", err)
	}
}

func TestMemoryResetTokenStoreReissueInvalidatesPrevious(t *testing.T) {
	store := NewMemoryResetTokenStore(time.Hour, nil)
	first, err := store.Issue(context.Background(), 9)
	if err != nil {
		t.Fatalf("issue error: %v", err)
	}
	second, err := store.Issue(context.Background(), 9)
	if err != nil {
		t.Fatalf("second issue error: %v", err)
	}
	if _, err := store.Consume(context.Background(), first); !errors.Is(err, ErrResetTokenNotFound) {
		t.Fatalf("expected first token to be invalidated, got %v", err)
	}
	if userID, err := store.Consume(context.Background(), second); err != nil || userID != 9 {
		t.Fatalf("expected second token to be valid, got user %d err %v", userID, err)
	}
}
