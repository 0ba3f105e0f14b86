package authkit

import (
	"strings"
	"time"
)

// RoleUser and RoleStaff are the roles carried in access tokens.
const (
	RoleUser  = "user"
	RoleStaff = "staff"
)

// User is a portfolio owner account.
type User struct {
	ID           uint   `gorm:"primaryKey"`
	Email        string `gorm:"uniqueIndex;not null"`
	Username     string `gorm:"uniqueIndex;not null"`
	PasswordHash string `gorm:"not null;default:''"`
	GoogleSub    string `gorm:"index;not null;default:''"`
	FirstName    string
	LastName     string
	Bio          string
	ProfileImage string
	Banner       string
	Country      string
	City         string
	PostalCode   string
	Street       string
	HouseNumber  string
	PhoneNumber  string
	IsVerified   bool `gorm:"not null;default:true"`
	IsStaff      bool `gorm:"not null;default:false"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// TableName pins the table name across drivers.
func (User) TableName() string {
	return "users"
}

// Roles returns the roles embedded into access tokens.
func (user User) Roles() []string {
	if user.IsStaff {
		return []string{RoleUser, RoleStaff}
	}
	return []string{RoleUser}
}

// FullName joins first and last name, falling back to the username.
func (user User) FullName() string {
	fullName := strings.TrimSpace(user.FirstName + " " + user.LastName)
	if fullName == "" {
		return user.Username
	}
	return fullName
}

// FullAddress joins the non-empty address parts.
func (user User) FullAddress() string {
	parts := make([]string, 0, 5)
	for _, part := range []string{user.HouseNumber, user.Street, user.PostalCode, user.City, user.Country} {
		if strings.TrimSpace(part) != "" {
			parts = append(parts, part)
		}
	}
	return strings.Join(parts, ", ")
}

// Profile is the JSON representation of a user.
type Profile struct {
	ID           uint      `json:"id"`
	Email        string    `json:"email"`
	Username     string    `json:"username"`
	FirstName    string    `json:"first_name"`
	LastName     string    `json:"last_name"`
	FullName     string    `json:"full_name"`
	Bio          string    `json:"bio"`
	ProfileImage string    `json:"profile_image"`
	Banner       string    `json:"banner"`
	Country      string    `json:"country"`
	City         string    `json:"city"`
	PostalCode   string    `json:"postal_code"`
	Street       string    `json:"street"`
	HouseNumber  string    `json:"house_number"`
	PhoneNumber  string    `json:"phone_number"`
	FullAddress  string    `json:"full_address"`
	IsVerified   bool      `json:"is_verified"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Profile renders the user for API responses.
func (user User) Profile() Profile {
	return Profile{
		ID:           user.ID,
		Email:        user.Email,
		Username:     user.Username,
		FirstName:    user.FirstName,
		LastName:     user.LastName,
		FullName:     user.FullName(),
		Bio:          user.Bio,
		ProfileImage: user.ProfileImage,
		Banner:       user.Banner,
		Country:      user.Country,
		City:         user.City,
		PostalCode:   user.PostalCode,
		Street:       user.Street,
		HouseNumber:  user.HouseNumber,
		PhoneNumber:  user.PhoneNumber,
		FullAddress:  user.FullAddress(),
		IsVerified:   user.IsVerified,
		CreatedAt:    user.CreatedAt,
		UpdatedAt:    user.UpdatedAt,
	}
}

// PublicProfile strips contact details that visitors should not see.
func (user User) PublicProfile() Profile {
	profile := user.Profile()
	profile.Email = ""
	profile.PhoneNumber = ""
	profile.Street = ""
	profile.HouseNumber = ""
	profile.PostalCode = ""
	profile.FullAddress = strings.Join(nonEmpty(user.City, user.Country), ", ")
	return profile
}

func nonEmpty(values ...string) []string {
	result := make([]string, 0, len(values))
	for _, value := range values {
		if strings.TrimSpace(value) != "" {
			result = append(result, value)
		}
	}
	return result
}

// Registration carries the fields accepted by /api/auth/register.
type Registration struct {
	Email     string
	Username  string
	Password  string
	FirstName string
	LastName  string
}

// ProfileUpdate carries optional profile fields; nil means unchanged.
type ProfileUpdate struct {
	Username     *string
	FirstName    *string
	LastName     *string
	Bio          *string
	ProfileImage *string
	Banner       *string
	Country      *string
	City         *string
	PostalCode   *string
	Street       *string
	HouseNumber  *string
	PhoneNumber  *string
}

func (update ProfileUpdate) columns() map[string]any {
	columns := make(map[string]any)
	assign := func(column string, value *string) {
		if value != nil {
			columns[column] = strings.TrimSpace(*value)
		}
	}
	assign("username", update.Username)
	assign("first_name", update.FirstName)
	assign("last_name", update.LastName)
	assign("bio", update.Bio)
	assign("profile_image", update.ProfileImage)
	assign("banner", update.Banner)
	assign("country", update.Country)
	assign("city", update.City)
	assign("postal_code", update.PostalCode)
	assign("street", update.Street)
	assign("house_number", update.HouseNumber)
	assign("phone_number", update.PhoneNumber)
	return columns
}
