package portfolioclient

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
)

type sessionResponse struct {
	Message string `json:"message"`
	User    User   `json:"user"`
	Tokens  struct {
		Access  string `json:"access"`
		Refresh string `json:"refresh"`
	} `json:"tokens"`
}

func (client *Client) startSession(ctx context.Context, path string, payload any) (User, error) {
	var response sessionResponse
	if err := client.do(ctx, http.MethodPost, path, payload, &response); err != nil {
		return User{}, err
	}
	credentials := Credentials{Access: response.Tokens.Access, Refresh: response.Tokens.Refresh}
	if err := client.store.SaveSession(credentials, response.User); err != nil {
		return User{}, fmt.Errorf("portfolioclient.save_session: %w", err)
	}
	return response.User, nil
}

// Register creates an account and stores its session.
func (client *Client) Register(ctx context.Context, registration Registration) (User, error) {
	if registration.PasswordConfirm == "" {
		registration.PasswordConfirm = registration.Password
	}
	return client.startSession(ctx, "/api/auth/register", registration)
}

// Login authenticates with email and password and stores the session.
func (client *Client) Login(ctx context.Context, email string, password string) (User, error) {
	return client.startSession(ctx, "/api/auth/login", map[string]string{"email": email, "password": password})
}

// LoginWithGoogle exchanges a Google ID token for a session.
func (client *Client) LoginWithGoogle(ctx context.Context, idToken string) (User, error) {
	return client.startSession(ctx, "/api/auth/google", map[string]string{"google_id_token": idToken})
}

// Logout revokes the stored refresh token and clears the session even when revocation fails.
func (client *Client) Logout(ctx context.Context) error {
	credentials, err := client.store.Load()
	if err != nil {
		return err
	}
	var revokeErr error
	if credentials.Refresh != "" {
		revokeErr = client.do(ctx, http.MethodPost, "/api/auth/logout", map[string]string{"refresh": credentials.Refresh}, nil)
	}
	return errors.Join(revokeErr, client.store.Clear())
}

// CurrentUser fetches the signed-in user.
func (client *Client) CurrentUser(ctx context.Context) (User, error) {
	var user User
	err := client.do(ctx, http.MethodGet, "/api/auth/current-user", nil, &user)
	return user, err
}

// StoredUser returns the user saved with the session, if any.
func (client *Client) StoredUser() (User, bool, error) {
	var user User
	found, err := client.store.LoadUser(&user)
	return user, found, err
}

// ProfileImages are optional files for UpdateProfileImages.
type ProfileImages struct {
	ProfileImage *File
	Banner       *File
}

type profileResponse struct {
	Message string            `json:"message"`
	Actions map[string]string `json:"actions"`
	User    User              `json:"user"`
}

// UpdateProfile changes profile fields.
func (client *Client) UpdateProfile(ctx context.Context, update ProfileUpdate) (User, error) {
	var response profileResponse
	if err := client.do(ctx, http.MethodPatch, "/api/auth/profile", update, &response); err != nil {
		return User{}, err
	}
	return client.rememberUser(response.User)
}

// UpdateProfileImages replaces the profile image and/or banner.
func (client *Client) UpdateProfileImages(ctx context.Context, fields url.Values, images ProfileImages) (User, error) {
	files := make([]File, 0, 2)
	if images.ProfileImage != nil {
		file := *images.ProfileImage
		file.Field = "profile_image_file"
		files = append(files, file)
	}
	if images.Banner != nil {
		file := *images.Banner
		file.Field = "banner_file"
		files = append(files, file)
	}
	body, err := encodeMultipart(fields, files...)
	if err != nil {
		return User{}, err
	}
	var response profileResponse
	if err := client.do(ctx, http.MethodPatch, "/api/auth/profile", body, &response); err != nil {
		return User{}, err
	}
	return client.rememberUser(response.User)
}

func (client *Client) rememberUser(user User) (User, error) {
	if err := client.store.SaveUser(user); err != nil {
		return user, fmt.Errorf("portfolioclient.save_user: %w", err)
	}
	return user, nil
}

// RequestPasswordReset asks the server to mail a reset link to email.
func (client *Client) RequestPasswordReset(ctx context.Context, email string) error {
	return client.do(ctx, http.MethodPost, "/api/auth/password-reset", map[string]string{"email": email}, nil)
}

// ConfirmPasswordReset sets a new password using a mailed token.
func (client *Client) ConfirmPasswordReset(ctx context.Context, token string, password string) error {
	return client.do(ctx, http.MethodPost, "/api/auth/password-reset/confirm", map[string]string{
		"token":            token,
		"password":         password,
		"password_confirm": password,
	}, nil)
}

// Portfolio fetches the public aggregate of userID.
func (client *Client) Portfolio(ctx context.Context, userID uint) (Portfolio, error) {
	var result Portfolio
	err := client.do(ctx, http.MethodGet, fmt.Sprintf("/api/portfolio/%d", userID), nil, &result)
	return result, err
}

// Settings returns the caller's settings.
func (client *Client) Settings(ctx context.Context) (Settings, error) {
	var settings Settings
	err := client.do(ctx, http.MethodGet, "/api/settings", nil, &settings)
	return settings, err
}

// SaveSettings stores the caller's settings.
func (client *Client) SaveSettings(ctx context.Context, settings Settings) (Settings, error) {
	var saved Settings
	err := client.do(ctx, http.MethodPut, "/api/settings", settings, &saved)
	return saved, err
}

// SendContact leaves a message for userID; no session is required.
func (client *Client) SendContact(ctx context.Context, userID uint, contact Contact) (Contact, error) {
	contact.User = userID
	var created Contact
	err := client.do(ctx, http.MethodPost, "/api/contacts", contact, &created)
	return created, err
}

// MarkContactRead sets the read flag of a received message.
func (client *Client) MarkContactRead(ctx context.Context, id uint, read bool) (Contact, error) {
	var updated Contact
	err := client.do(ctx, http.MethodPatch, fmt.Sprintf("/api/contacts/%d", id), map[string]bool{"read": read}, &updated)
	return updated, err
}
