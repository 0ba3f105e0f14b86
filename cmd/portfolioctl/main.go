package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/tyemirov/portfolio/pkg/portfolioclient"
	"go.uber.org/zap"
)

const sessionExpiredMessage = "session expired, run `portfolioctl login`"

var filesystem = func() afero.Fs {
	return afero.NewOsFs()
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:          "portfolioctl",
		Short:        "Manage a portfolio from the command line",
		SilenceUsage: true,
	}

	flags := rootCmd.PersistentFlags()
	flags.String("api_url", "http://localhost:8080", "Base URL of the portfolio server")
	flags.String("session_file", "", "Session file (default ~/.portfolioctl/session.json)")
	flags.Duration("refresh_timeout", portfolioclient.DefaultRefreshTimeout, "Upper bound on a token refresh")
	flags.Bool("verbose", false, "Log requests and token refreshes")
	for _, name := range []string{"api_url", "session_file", "refresh_timeout", "verbose"} {
		_ = viper.BindPFlag(name, flags.Lookup(name))
	}

	viper.SetEnvPrefix("PORTFOLIOCTL")
	viper.AutomaticEnv()

	rootCmd.AddCommand(
		newRegisterCommand(),
		newLoginCommand(),
		newLogoutCommand(),
		newWhoamiCommand(),
		newProfileCommand(),
		newPasswordResetCommand(),
		newPortfolioCommand(),
		newSettingsCommand(),
		newContactCommand(),
		newListCommand(),
		newGetCommand(),
		newCreateCommand(),
		newUpdateCommand(),
		newDeleteCommand(),
		newUploadCommand(),
	)
	return rootCmd
}

// newClient builds a client whose session lives in the configured file.
func newClient(command *cobra.Command) (*portfolioclient.Client, error) {
	sessionPath := strings.TrimSpace(viper.GetString("session_file"))
	if sessionPath == "" {
		defaultPath, err := portfolioclient.DefaultSessionPath()
		if err != nil {
			return nil, err
		}
		sessionPath = defaultPath
	}
	logger := zap.NewNop()
	if viper.GetBool("verbose") {
		development, err := zap.NewDevelopment()
		if err != nil {
			return nil, err
		}
		logger = development
	}
	errorOutput := command.ErrOrStderr()
	return portfolioclient.New(portfolioclient.Config{
		BaseURL:        viper.GetString("api_url"),
		Store:          portfolioclient.NewFileTokenStore(filesystem(), sessionPath),
		Logger:         logger,
		RefreshTimeout: viper.GetDuration("refresh_timeout"),
		OnSessionTerminated: func(error) {
			fmt.Fprintln(errorOutput, sessionExpiredMessage)
		},
	})
}

func commandContext(command *cobra.Command) context.Context {
	if ctx := command.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

// runWithClient wraps a command body with client construction and JSON output.
func runWithClient(body func(ctx context.Context, client *portfolioclient.Client, arguments []string) (any, error)) func(*cobra.Command, []string) error {
	return func(command *cobra.Command, arguments []string) error {
		client, err := newClient(command)
		if err != nil {
			return err
		}
		ctx, cancel := context.WithTimeout(commandContext(command), 5*time.Minute)
		defer cancel()
		result, err := body(ctx, client, arguments)
		if err != nil {
			return err
		}
		if result == nil {
			return nil
		}
		return printJSON(command.OutOrStdout(), result)
	}
}

func printJSON(output io.Writer, value any) error {
	encoder := json.NewEncoder(output)
	encoder.SetIndent("", "  ")
	return encoder.Encode(value)
}
