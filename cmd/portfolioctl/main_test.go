package main

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/png"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/afero"
	"github.com/spf13/viper"
	"github.com/tyemirov/portfolio/internal/authkit"
	"github.com/tyemirov/portfolio/internal/media"
	"github.com/tyemirov/portfolio/internal/portfolio"
	"github.com/tyemirov/portfolio/internal/storage"
	"github.com/tyemirov/portfolio/pkg/portfolioclient"
	"github.com/tyemirov/portfolio/pkg/sessionvalidator"
	"go.uber.org/zap/zaptest"
)

const testSessionFile = "/home/ada/.portfolioctl/session.json"

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	gin.SetMode(gin.TestMode)
	logger := zaptest.NewLogger(t)
	clock := authkit.NewSystemClock()

	database, err := storage.Open(context.Background(), "sqlite://file::memory:", append(authkit.Models(), portfolio.Models()...)...)
	if err != nil {
		t.Fatalf("open database: %v", err)
	}
	t.Cleanup(func() { _ = database.Close() })
	if err := portfolio.Seed(context.Background(), database.DB); err != nil {
		t.Fatalf("seed: %v", err)
	}
	configuration := authkit.ServerConfig{
		AppJWTSigningKey:    []byte("cli-secret"),
		AppJWTIssuer:        "portfolio-cli",
		AccessTTL:           time.Minute,
		RefreshTTL:          time.Hour,
		RotateRefreshTokens: true,
	}
	validator, err := sessionvalidator.New(sessionvalidator.Config{
		SigningKey: configuration.AppJWTSigningKey,
		Issuer:     configuration.AppJWTIssuer,
	})
	if err != nil {
		t.Fatalf("validator: %v", err)
	}
	mediaStore, err := media.NewFilesystemStore(afero.NewMemMapFs(), "/media")
	if err != nil {
		t.Fatalf("media store: %v", err)
	}
	images := media.NewLibrary(mediaStore, "http://localhost/media")
	users := authkit.NewDatabaseUserStore(database.DB)

	router := gin.New()
	api := router.Group("/api")
	if err := authkit.MountAuthRoutes(api, configuration, authkit.Dependencies{
		Users:         users,
		RefreshTokens: authkit.NewDatabaseRefreshTokenStore(database, clock),
		Validator:     validator,
		Images:        images,
		Logger:        logger,
		Clock:         clock,
	}); err != nil {
		t.Fatalf("mount auth: %v", err)
	}
	if _, err := portfolio.MountRoutes(api, portfolio.Dependencies{
		DB:        database.DB,
		Users:     users,
		Validator: validator,
		Images:    images,
		Logger:    logger,
		Clock:     clock,
	}); err != nil {
		t.Fatalf("mount portfolio: %v", err)
	}
	server := httptest.NewServer(router)
	t.Cleanup(server.Close)
	return server
}

// cli runs portfolioctl commands against one server and one in-memory filesystem.
type cli struct {
	t          *testing.T
	serverURL  string
	filesystem afero.Fs
}

func newCLI(t *testing.T, serverURL string) *cli {
	t.Helper()
	memory := afero.NewMemMapFs()
	previous := filesystem
	filesystem = func() afero.Fs { return memory }
	viper.Reset()
	t.Cleanup(func() {
		filesystem = previous
		viper.Reset()
	})
	return &cli{t: t, serverURL: serverURL, filesystem: memory}
}

func (runner *cli) run(arguments ...string) (string, string, error) {
	runner.t.Helper()
	viper.Reset()
	command := newRootCommand()
	var output, errorOutput bytes.Buffer
	command.SetOut(&output)
	command.SetErr(&errorOutput)
	command.SetArgs(append([]string{"--api_url", runner.serverURL, "--session_file", testSessionFile}, arguments...))
	err := command.Execute()
	return output.String(), errorOutput.String(), err
}

func (runner *cli) mustRun(arguments ...string) string {
	runner.t.Helper()
	output, errorOutput, err := runner.run(arguments...)
	if err != nil {
		runner.t.Fatalf("portfolioctl %s: %v\n%s", strings.Join(arguments, " "), err, errorOutput)
	}
	return output
}

func decodeOutput[T any](t *testing.T, output string) T {
	t.Helper()
	var value T
	if err := json.Unmarshal([]byte(output), &value); err != nil {
		t.Fatalf("decode %q: %v", output, err)
	}
	return value
}

func TestSessionCommands(t *testing.T) {
	server := newTestServer(t)
	runner := newCLI(t, server.URL)

	registered := decodeOutput[portfolioclient.User](t, runner.mustRun("register", "--email", "ada@example.com", "--username", "ada", "--password", "analytical-engine"))
	if registered.ID == 0 || registered.Username != "ada" {
		t.Fatalf("unexpected registration %+v", registered)
	}
	if exists, _ := afero.Exists(runner.filesystem, testSessionFile); !exists {
		t.Fatalf("expected session file at %s", testSessionFile)
	}

	current := decodeOutput[portfolioclient.User](t, runner.mustRun("whoami"))
	if current.ID != registered.ID {
		t.Fatalf("whoami returned %+v", current)
	}
	offline := decodeOutput[portfolioclient.User](t, runner.mustRun("whoami", "--offline"))
	if offline.Email != "ada@example.com" {
		t.Fatalf("offline whoami returned %+v", offline)
	}

	runner.mustRun("logout")
	if _, _, err := runner.run("whoami", "--offline"); err == nil || !strings.Contains(err.Error(), "cli.no_session") {
		t.Fatalf("expected no session after logout, got %v", err)
	}
	_, errorOutput, err := runner.run("list", "skills")
	if err == nil || !strings.Contains(errorOutput, sessionExpiredMessage) {
		t.Fatalf("expected session expiry notice, got %v %q", err, errorOutput)
	}

	if _, _, err := runner.run("login"); err == nil || !strings.Contains(err.Error(), "cli.missing_credentials") {
		t.Fatalf("expected missing credentials error, got %v", err)
	}
	loggedIn := decodeOutput[portfolioclient.User](t, runner.mustRun("login", "--email", "ada@example.com", "--password", "analytical-engine"))
	if loggedIn.ID != registered.ID {
		t.Fatalf("login returned %+v", loggedIn)
	}
}

func TestResourceCommands(t *testing.T) {
	server := newTestServer(t)
	runner := newCLI(t, server.URL)
	user := decodeOutput[portfolioclient.User](t, runner.mustRun("register", "--email", "ada@example.com", "--username", "ada", "--password", "analytical-engine"))

	skill := decodeOutput[portfolioclient.Skill](t, runner.mustRun("create", "skills", "--data", `{"label":"Mathematics"}`))
	if skill.ID == 0 || skill.Label != "Mathematics" {
		t.Fatalf("unexpected skill %+v", skill)
	}
	patched := decodeOutput[portfolioclient.Skill](t, runner.mustRun("update", "skills", "1", "--data", `{"label":"Analysis"}`))
	if patched.Label != "Analysis" {
		t.Fatalf("unexpected patched skill %+v", patched)
	}
	skills := decodeOutput[[]portfolioclient.Skill](t, runner.mustRun("list", "skills"))
	if len(skills) != 1 {
		t.Fatalf("expected one skill, got %+v", skills)
	}

	var content bytes.Buffer
	if err := png.Encode(&content, image.NewGray(image.Rect(0, 0, 2, 2))); err != nil {
		t.Fatalf("encode: %v", err)
	}
	if err := afero.WriteFile(runner.filesystem, "/work/note-g.png", content.Bytes(), 0o644); err != nil {
		t.Fatalf("write image: %v", err)
	}
	project := decodeOutput[portfolioclient.Project](t, runner.mustRun("upload", "projects", "--file", "/work/note-g.png",
		"--set", "title=Note G", "--set", "description=Bernoulli numbers", "--set", "technologies=punch cards"))
	if project.Title != "Note G" || !strings.Contains(project.ImageURL, "/projects/images/") {
		t.Fatalf("unexpected project %+v", project)
	}

	settings := decodeOutput[portfolioclient.Settings](t, runner.mustRun("settings", "--color", "#112233"))
	if settings.Color != "#112233" {
		t.Fatalf("unexpected settings %+v", settings)
	}

	aggregate := decodeOutput[portfolioclient.Portfolio](t, runner.mustRun("portfolio", "1"))
	if aggregate.User.ID != user.ID || len(aggregate.Skills) != 1 || len(aggregate.Projects) != 1 {
		t.Fatalf("unexpected portfolio %+v", aggregate)
	}

	runner.mustRun("delete", "skills", "1")
	if _, _, err := runner.run("get", "skills", "1"); err == nil || !strings.Contains(err.Error(), "404") {
		t.Fatalf("expected not found after delete, got %v", err)
	}
}

func TestCommandArgumentErrors(t *testing.T) {
	runner := newCLI(t, "http://127.0.0.1:0")
	testCases := []struct {
		name      string
		arguments []string
		expected  string
	}{
		{name: "unknown resource", arguments: []string{"list", "widgets"}, expected: "cli.unknown_resource"},
		{name: "bad id", arguments: []string{"get", "skills", "zero"}, expected: "cli.invalid_id"},
		{name: "zero id", arguments: []string{"delete", "skills", "0"}, expected: "cli.invalid_id"},
		{name: "upload not supported", arguments: []string{"upload", "skills", "--file", "/x.png"}, expected: "cli.no_upload"},
		{name: "bad form field", arguments: []string{"upload", "projects", "--file", "/x.png", "--set", "title"}, expected: "cli.invalid_field"},
		{name: "missing upload file", arguments: []string{"upload", "projects", "--file", "/missing.png"}, expected: "cli.read_file"},
		{name: "invalid json", arguments: []string{"create", "skills", "--data", "{"}, expected: "cli.invalid_data"},
		{name: "empty profile update", arguments: []string{"profile"}, expected: "cli.nothing_to_update"},
	}
	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			_, _, err := runner.run(testCase.arguments...)
			if err == nil || !strings.Contains(err.Error(), testCase.expected) {
				t.Fatalf("expected %q, got %v", testCase.expected, err)
			}
		})
	}
}

func TestNewRootCommandHelp(t *testing.T) {
	viper.Reset()
	defer viper.Reset()
	command := newRootCommand()
	command.SetOut(&bytes.Buffer{})
	command.SetArgs([]string{"--help"})
	if err := command.Execute(); err != nil {
		t.Fatalf("expected help execution to succeed: %v", err)
	}
}
