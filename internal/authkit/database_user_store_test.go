package authkit

import (
	"context"
	"errors"
	"testing"
)

func stringPointer(value string) *string {
	return &value
}

func TestDatabaseUserStoreAccounts(t *testing.T) {
	store := NewDatabaseUserStore(openTestDatabase(t).DB)
	ctx := context.Background()

	created, err := store.CreateUser(ctx, Registration{Email: " Ada@Example.com ", Username: "ada", Password: "analytical-engine", FirstName: "Ada"})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if created.ID == 0 || created.Email != "ada@example.com" || created.PasswordHash == "analytical-engine" {
		t.Fatalf("unexpected account: %+v", created)
	}

	if _, err := store.CreateUser(ctx, Registration{Email: "ada@example.com", Username: "other", Password: "x"}); !errors.Is(err, ErrEmailTaken) {
		t.Fatalf("expected ErrEmailTaken, got %v", err)
	}
	if _, err := store.CreateUser(ctx, Registration{Email: "other@example.com", Username: "ada", Password: "x"}); !errors.Is(err, ErrUsernameTaken) {
		t.Fatalf("expected ErrUsernameTaken, got %v", err)
	}

	if _, err := store.AuthenticateUser(ctx, "ada@example.com", "wrong"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	if _, err := store.AuthenticateUser(ctx, "missing@example.com", "wrong"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials for unknown email, got %v", err)
	}
	authenticated, err := store.AuthenticateUser(ctx, "ADA@example.com", "analytical-engine")
	if err != nil || authenticated.ID != created.ID {
		t.Fatalf("authenticate failed: %v %+v", err, authenticated)
	}

	updated, err := store.UpdateProfile(ctx, created.ID, ProfileUpdate{Bio: stringPointer("  Poet of science "), City: stringPointer("London")})
	if err != nil {
		t.Fatalf("update failed: %v", err)
	}
	if updated.Bio != "Poet of science" || updated.City != "London" || updated.FirstName != "Ada" {
		t.Fatalf("unexpected update result: %+v", updated)
	}
	if _, err := store.UpdateProfile(ctx, 9999, ProfileUpdate{Bio: stringPointer("x")}); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}

	if err := store.SetPassword(ctx, created.ID, "new-password"); err != nil {
		t.Fatalf("set password failed: %v", err)
	}
	if _, err := store.AuthenticateUser(ctx, "ada@example.com", "new-password"); err != nil {
		t.Fatalf("new password rejected: %v", err)
	}
	if _, err := store.GetUser(ctx, 9999); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

func TestDatabaseUserStoreUpsertGoogleUser(t *testing.T) {
	store := NewDatabaseUserStore(openTestDatabase(t).DB)
	ctx := context.Background()

	existing, err := store.CreateUser(ctx, Registration{Email: "grace@example.com", Username: "grace", Password: "compiler-first"})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	linked, err := store.UpsertGoogleUser(ctx, "sub-grace", "Grace@example.com", "Grace Hopper")
	if err != nil {
		t.Fatalf("upsert failed: %v", err)
	}
	if linked.ID != existing.ID || linked.GoogleSub != "sub-grace" {
		t.Fatalf("expected google identity to link to existing account, got %+v", linked)
	}

	if _, err := store.CreateUser(ctx, Registration{Email: "someone@else.com", Username: "alan", Password: "enigma-machine"}); err != nil {
		t.Fatalf("create failed: %v", err)
	}
	fresh, err := store.UpsertGoogleUser(ctx, "sub-alan", "alan@example.com", "Alan Mathison Turing")
	if err != nil {
		t.Fatalf("upsert failed: %v", err)
	}
	if fresh.Username != "alan1" || fresh.FirstName != "Alan" || fresh.LastName != "Mathison Turing" {
		t.Fatalf("unexpected new google account: %+v", fresh)
	}
}

func TestUserProfiles(t *testing.T) {
	user := User{ID: 3, Email: "ada@example.com", Username: "ada", Street: "St James's Square", HouseNumber: "12", City: "London", Country: "UK", PhoneNumber: "+44", IsStaff: true}
	if user.FullName() != "ada" {
		t.Fatalf("expected username fallback, got %q", user.FullName())
	}
	if user.FullAddress() != "12, St James's Square, London, UK" {
		t.Fatalf("unexpected address %q", user.FullAddress())
	}
	public := user.PublicProfile()
	if public.Email != "" || public.PhoneNumber != "" || public.Street != "" || public.FullAddress != "London, UK" {
		t.Fatalf("public profile leaked contact details: %+v", public)
	}
	if roles := user.Roles(); len(roles) != 2 || roles[1] != RoleStaff {
		t.Fatalf("unexpected roles: %v", roles)
	}
}
