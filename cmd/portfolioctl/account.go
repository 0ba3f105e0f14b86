package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"path/filepath"
	"strconv"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/tyemirov/portfolio/pkg/portfolioclient"
)

var errMissingCredentials = errors.New("cli.missing_credentials: provide --email and --password, or --google-id-token")

func newRegisterCommand() *cobra.Command {
	var registration portfolioclient.Registration
	command := &cobra.Command{
		Use:   "register",
		Short: "Create an account and start a session",
		Args:  cobra.NoArgs,
		RunE: runWithClient(func(ctx context.Context, client *portfolioclient.Client, _ []string) (any, error) {
			return client.Register(ctx, registration)
		}),
	}
	command.Flags().StringVar(&registration.Email, "email", "", "Email address")
	command.Flags().StringVar(&registration.Username, "username", "", "Username")
	command.Flags().StringVar(&registration.Password, "password", "", "Password")
	command.Flags().StringVar(&registration.FirstName, "first-name", "", "First name")
	command.Flags().StringVar(&registration.LastName, "last-name", "", "Last name")
	_ = command.MarkFlagRequired("email")
	_ = command.MarkFlagRequired("username")
	_ = command.MarkFlagRequired("password")
	return command
}

func newLoginCommand() *cobra.Command {
	var email, password, googleIDToken string
	command := &cobra.Command{
		Use:   "login",
		Short: "Start a session with a password or a Google ID token",
		Args:  cobra.NoArgs,
		RunE: runWithClient(func(ctx context.Context, client *portfolioclient.Client, _ []string) (any, error) {
			if googleIDToken != "" {
				return client.LoginWithGoogle(ctx, googleIDToken)
			}
			if email == "" || password == "" {
				return nil, errMissingCredentials
			}
			return client.Login(ctx, email, password)
		}),
	}
	command.Flags().StringVar(&email, "email", "", "Email address")
	command.Flags().StringVar(&password, "password", "", "Password")
	command.Flags().StringVar(&googleIDToken, "google-id-token", "", "Google ID token from a sign-in flow")
	return command
}

func newLogoutCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Revoke the refresh token and forget the session",
		Args:  cobra.NoArgs,
		RunE: runWithClient(func(ctx context.Context, client *portfolioclient.Client, _ []string) (any, error) {
			return nil, client.Logout(ctx)
		}),
	}
}

func newWhoamiCommand() *cobra.Command {
	var offline bool
	command := &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in user",
		Args:  cobra.NoArgs,
		RunE: runWithClient(func(ctx context.Context, client *portfolioclient.Client, _ []string) (any, error) {
			if !offline {
				return client.CurrentUser(ctx)
			}
			user, found, err := client.StoredUser()
			if err != nil {
				return nil, err
			}
			if !found {
				return nil, errors.New("cli.no_session: not logged in")
			}
			return user, nil
		}),
	}
	command.Flags().BoolVar(&offline, "offline", false, "Read the user saved with the session instead of asking the server")
	return command
}

func newProfileCommand() *cobra.Command {
	var data, profileImage, banner string
	command := &cobra.Command{
		Use:   "profile",
		Short: "Update profile fields and images",
		Args:  cobra.NoArgs,
		RunE: runWithClient(func(ctx context.Context, client *portfolioclient.Client, _ []string) (any, error) {
			if data == "" && profileImage == "" && banner == "" {
				return nil, errors.New("cli.nothing_to_update: pass --data, --profile-image or --banner")
			}
			var user portfolioclient.User
			if data != "" {
				var update portfolioclient.ProfileUpdate
				if err := json.Unmarshal([]byte(data), &update); err != nil {
					return nil, fmt.Errorf("cli.invalid_data: %w", err)
				}
				updated, err := client.UpdateProfile(ctx, update)
				if err != nil {
					return nil, err
				}
				user = updated
			}
			if profileImage == "" && banner == "" {
				return user, nil
			}
			var images portfolioclient.ProfileImages
			if profileImage != "" {
				file, err := readUpload(profileImage)
				if err != nil {
					return nil, err
				}
				images.ProfileImage = &file
			}
			if banner != "" {
				file, err := readUpload(banner)
				if err != nil {
					return nil, err
				}
				images.Banner = &file
			}
			return client.UpdateProfileImages(ctx, url.Values{}, images)
		}),
	}
	command.Flags().StringVar(&data, "data", "", `Profile fields as JSON, e.g. {"bio":"..."}`)
	command.Flags().StringVar(&profileImage, "profile-image", "", "Path of a new profile image")
	command.Flags().StringVar(&banner, "banner", "", "Path of a new banner image")
	return command
}

func newPasswordResetCommand() *cobra.Command {
	command := &cobra.Command{
		Use:   "password-reset",
		Short: "Request or confirm a password reset",
	}
	command.AddCommand(&cobra.Command{
		Use:   "request <email>",
		Short: "Mail a reset link",
		Args:  cobra.ExactArgs(1),
		RunE: runWithClient(func(ctx context.Context, client *portfolioclient.Client, arguments []string) (any, error) {
			return nil, client.RequestPasswordReset(ctx, arguments[0])
		}),
	})
	command.AddCommand(&cobra.Command{
		Use:   "confirm <token> <new-password>",
		Short: "Set a new password with a mailed token",
		Args:  cobra.ExactArgs(2),
		RunE: runWithClient(func(ctx context.Context, client *portfolioclient.Client, arguments []string) (any, error) {
			return nil, client.ConfirmPasswordReset(ctx, arguments[0], arguments[1])
		}),
	})
	return command
}

func newPortfolioCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "portfolio <user-id>",
		Short: "Show the public portfolio of a user",
		Args:  cobra.ExactArgs(1),
		RunE: runWithClient(func(ctx context.Context, client *portfolioclient.Client, arguments []string) (any, error) {
			userID, err := parseID(arguments[0])
			if err != nil {
				return nil, err
			}
			return client.Portfolio(ctx, userID)
		}),
	}
}

func newSettingsCommand() *cobra.Command {
	var color string
	command := &cobra.Command{
		Use:   "settings",
		Short: "Show settings, or change the theme colour with --color",
		Args:  cobra.NoArgs,
		RunE: runWithClient(func(ctx context.Context, client *portfolioclient.Client, _ []string) (any, error) {
			if color == "" {
				return client.Settings(ctx)
			}
			return client.SaveSettings(ctx, portfolioclient.Settings{Color: color})
		}),
	}
	command.Flags().StringVar(&color, "color", "", "Theme colour, e.g. #4f46e5")
	return command
}

func newContactCommand() *cobra.Command {
	command := &cobra.Command{
		Use:   "contact",
		Short: "Send or mark contact messages",
	}
	var contact portfolioclient.Contact
	send := &cobra.Command{
		Use:   "send <user-id>",
		Short: "Leave a message for a user",
		Args:  cobra.ExactArgs(1),
		RunE: runWithClient(func(ctx context.Context, client *portfolioclient.Client, arguments []string) (any, error) {
			userID, err := parseID(arguments[0])
			if err != nil {
				return nil, err
			}
			return client.SendContact(ctx, userID, contact)
		}),
	}
	send.Flags().StringVar(&contact.Name, "name", "", "Sender name")
	send.Flags().StringVar(&contact.Email, "email", "", "Sender email")
	send.Flags().StringVar(&contact.Message, "message", "", "Message text")
	_ = send.MarkFlagRequired("message")

	var unread bool
	read := &cobra.Command{
		Use:   "read <id>",
		Short: "Mark a received message as read",
		Args:  cobra.ExactArgs(1),
		RunE: runWithClient(func(ctx context.Context, client *portfolioclient.Client, arguments []string) (any, error) {
			id, err := parseID(arguments[0])
			if err != nil {
				return nil, err
			}
			return client.MarkContactRead(ctx, id, !unread)
		}),
	}
	read.Flags().BoolVar(&unread, "unread", false, "Mark as unread instead")

	command.AddCommand(send, read)
	return command
}

func parseID(value string) (uint, error) {
	parsed, err := strconv.ParseUint(value, 10, 64)
	if err != nil || parsed == 0 {
		return 0, fmt.Errorf("cli.invalid_id: %q is not a positive integer", value)
	}
	return uint(parsed), nil
}

func readUpload(path string) (portfolioclient.File, error) {
	content, err := afero.ReadFile(filesystem(), path)
	if err != nil {
		return portfolioclient.File{}, fmt.Errorf("cli.read_file: %w", err)
	}
	return portfolioclient.File{Name: filepath.Base(path), Content: bytes.NewReader(content)}, nil
}
