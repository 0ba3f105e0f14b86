package authkit

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"
)

// DatabaseUserStore persists accounts using GORM.
type DatabaseUserStore struct {
	db *gorm.DB
}

// NewDatabaseUserStore wraps a migrated GORM handle.
func NewDatabaseUserStore(db *gorm.DB) *DatabaseUserStore {
	return &DatabaseUserStore{db: db}
}

// Models lists the tables owned by this package for AutoMigrate.
func Models() []any {
	return []any{&User{}, &refreshTokenRecord{}}
}

// CreateUser registers a password account.
func (store *DatabaseUserStore) CreateUser(ctx context.Context, registration Registration) (User, error) {
	email := normalizeEmail(registration.Email)
	username := strings.TrimSpace(registration.Username)
	passwordHash, hashErr := HashPassword(registration.Password)
	if hashErr != nil {
		return User{}, fmt.Errorf("user_store.create: %w", hashErr)
	}
	user := User{
		Email:        email,
		Username:     username,
		PasswordHash: passwordHash,
		FirstName:    strings.TrimSpace(registration.FirstName),
		LastName:     strings.TrimSpace(registration.LastName),
		IsVerified:   true,
	}
	err := store.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if taken, err := exists(tx, "email = ?", email); err != nil {
			return err
		} else if taken {
			return ErrEmailTaken
		}
		if taken, err := exists(tx, "username = ?", username); err != nil {
			return err
		} else if taken {
			return ErrUsernameTaken
		}
		return tx.Create(&user).Error
	})
	if err != nil {
		return User{}, fmt.Errorf("user_store.create: %w", err)
	}
	return user, nil
}

// AuthenticateUser checks an email/password pair.
func (store *DatabaseUserStore) AuthenticateUser(ctx context.Context, email string, password string) (User, error) {
	user, err := store.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return User{}, fmt.Errorf("user_store.authenticate: %w", ErrInvalidCredentials)
		}
		return User{}, err
	}
	if checkErr := CheckPassword(user.PasswordHash, password); checkErr != nil {
		return User{}, fmt.Errorf("user_store.authenticate: %w", checkErr)
	}
	return user, nil
}

// UpsertGoogleUser links a Google identity to the account owning the email, creating one if needed.
func (store *DatabaseUserStore) UpsertGoogleUser(ctx context.Context, googleSub string, userEmail string, userDisplayName string) (User, error) {
	email := normalizeEmail(userEmail)
	var user User
	err := store.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		findErr := tx.Where("google_sub = ? OR email = ?", googleSub, email).Order("id").Take(&user).Error
		if findErr == nil {
			return tx.Model(&user).Update("google_sub", googleSub).Error
		}
		if !errors.Is(findErr, gorm.ErrRecordNotFound) {
			return findErr
		}
		username, usernameErr := availableUsername(tx, email)
		if usernameErr != nil {
			return usernameErr
		}
		firstName, lastName := splitDisplayName(userDisplayName)
		user = User{
			Email:      email,
			Username:   username,
			GoogleSub:  googleSub,
			FirstName:  firstName,
			LastName:   lastName,
			IsVerified: true,
		}
		return tx.Create(&user).Error
	})
	if err != nil {
		return User{}, fmt.Errorf("user_store.upsert_google: %w", err)
	}
	return user, nil
}

// GetUser loads an account by id.
func (store *DatabaseUserStore) GetUser(ctx context.Context, userID uint) (User, error) {
	var user User
	err := store.db.WithContext(ctx).Where("id = ?", userID).Take(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return User{}, fmt.Errorf("user_store.get: %w", ErrUserNotFound)
		}
		return User{}, fmt.Errorf("user_store.get: %w", err)
	}
	return user, nil
}

// GetUserByEmail loads an account by email, case-insensitively.
func (store *DatabaseUserStore) GetUserByEmail(ctx context.Context, email string) (User, error) {
	var user User
	err := store.db.WithContext(ctx).Where("email = ?", normalizeEmail(email)).Take(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return User{}, fmt.Errorf("user_store.get_by_email: %w", ErrUserNotFound)
		}
		return User{}, fmt.Errorf("user_store.get_by_email: %w", err)
	}
	return user, nil
}

// UpdateProfile applies the non-nil fields of update.
func (store *DatabaseUserStore) UpdateProfile(ctx context.Context, userID uint, update ProfileUpdate) (User, error) {
	columns := update.columns()
	err := store.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if username, ok := columns["username"].(string); ok {
			if username == "" {
				delete(columns, "username")
			} else if taken, err := exists(tx, "username = ? AND id <> ?", username, userID); err != nil {
				return err
			} else if taken {
				return ErrUsernameTaken
			}
		}
		if len(columns) == 0 {
			return nil
		}
		result := tx.Model(&User{}).Where("id = ?", userID).Updates(columns)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrUserNotFound
		}
		return nil
	})
	if err != nil {
		return User{}, fmt.Errorf("user_store.update_profile: %w", err)
	}
	return store.GetUser(ctx, userID)
}

// SetPassword replaces the stored password hash.
func (store *DatabaseUserStore) SetPassword(ctx context.Context, userID uint, password string) error {
	passwordHash, hashErr := HashPassword(password)
	if hashErr != nil {
		return fmt.Errorf("user_store.set_password: %w", hashErr)
	}
	result := store.db.WithContext(ctx).Model(&User{}).Where("id = ?", userID).Update("password_hash", passwordHash)
	if result.Error != nil {
		return fmt.Errorf("user_store.set_password: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("user_store.set_password: %w", ErrUserNotFound)
	}
	return nil
}

func exists(tx *gorm.DB, query string, arguments ...any) (bool, error) {
	var count int64
	if err := tx.Model(&User{}).Where(query, arguments...).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func availableUsername(tx *gorm.DB, email string) (string, error) {
	base := email
	if at := strings.IndexByte(email, '@'); at > 0 {
		base = email[:at]
	}
	candidate := base
	for suffix := 1; ; suffix++ {
		taken, err := exists(tx, "username = ?", candidate)
		if err != nil {
			return "", err
		}
		if !taken {
			return candidate, nil
		}
		candidate = fmt.Sprintf("%s%d", base, suffix)
	}
}

func splitDisplayName(displayName string) (string, string) {
	parts := strings.Fields(displayName)
	switch len(parts) {
	case 0:
		return "", ""
	case 1:
		return parts[0], ""
	default:
		return parts[0], strings.Join(parts[1:], " ")
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
