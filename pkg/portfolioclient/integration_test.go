package portfolioclient

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/png"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/afero"
	"github.com/tyemirov/portfolio/internal/authkit"
	"github.com/tyemirov/portfolio/internal/media"
	"github.com/tyemirov/portfolio/internal/portfolio"
	"github.com/tyemirov/portfolio/internal/storage"
	"github.com/tyemirov/portfolio/pkg/sessionvalidator"
	"go.uber.org/zap/zaptest"
)

type testClock struct {
	mutex   sync.Mutex
	current time.Time
}

func (clock *testClock) Now() time.Time {
	clock.mutex.Lock()
	defer clock.mutex.Unlock()
	return clock.current
}

func (clock *testClock) Advance(duration time.Duration) {
	clock.mutex.Lock()
	defer clock.mutex.Unlock()
	clock.current = clock.current.Add(duration)
}

const (
	integrationAccessTTL  = 5 * time.Minute
	integrationRefreshTTL = time.Hour
)

func newPortfolioServer(t *testing.T) (*httptest.Server, *testClock) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	clock := &testClock{current: time.Now().UTC()}
	logger := zaptest.NewLogger(t)

	database, err := storage.Open(context.Background(), "sqlite://file::memory:", append(authkit.Models(), portfolio.Models()...)...)
	if err != nil {
		t.Fatalf("open database: %v", err)
	}
	t.Cleanup(func() { _ = database.Close() })
	if err := portfolio.Seed(context.Background(), database.DB); err != nil {
		t.Fatalf("seed: %v", err)
	}
	configuration := authkit.ServerConfig{
		AppJWTSigningKey:    []byte("integration-secret"),
		AppJWTIssuer:        "portfolio-integration",
		AccessTTL:           integrationAccessTTL,
		RefreshTTL:          integrationRefreshTTL,
		RotateRefreshTokens: true,
	}
	validator, err := sessionvalidator.New(sessionvalidator.Config{
		SigningKey: configuration.AppJWTSigningKey,
		Issuer:     configuration.AppJWTIssuer,
		Clock:      clock,
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
	return server, clock
}

func TestClientAgainstPortfolioServer(t *testing.T) {
	server, clock := newPortfolioServer(t)
	store := NewFileTokenStore(afero.NewMemMapFs(), "/home/ada/.portfolioctl/session.json")
	terminated := &terminationRecorder{}
	client := newTestClient(t, server.URL, store, terminated, 0)
	ctx := context.Background()

	user, err := client.Register(ctx, Registration{Email: "ada@example.com", Username: "ada", Password: "analytical-engine"})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if stored, found, _ := client.StoredUser(); !found || stored.ID != user.ID {
		t.Fatalf("expected stored user, got %+v", stored)
	}
	initial, _ := store.Load()

	if _, err := client.Skills.Create(ctx, Skill{Label: "Mathematics"}); err != nil {
		t.Fatalf("create skill: %v", err)
	}

	clock.Advance(integrationAccessTTL + time.Minute)
	skills, err := client.Skills.List(ctx)
	if err != nil {
		t.Fatalf("list after access expiry: %v", err)
	}
	if len(skills) != 1 || skills[0].Label != "Mathematics" {
		t.Fatalf("unexpected skills %+v", skills)
	}
	refreshed, _ := store.Load()
	if refreshed.Access == initial.Access || refreshed.Refresh == initial.Refresh {
		t.Fatalf("expected rotated credentials after refresh")
	}

	var validation *APIError
	_, err = client.Experiences.Create(ctx, Experience{Company: "Engines", Description: "Notes", StartDate: "1843-01-01", EndDate: ptr("1842-01-01")})
	if !errors.As(err, &validation) || validation.StatusCode != http.StatusBadRequest || validation.Fields["end_date"] == "" {
		t.Fatalf("expected field validation error, got %v", err)
	}

	var content bytes.Buffer
	if err := png.Encode(&content, image.NewGray(image.Rect(0, 0, 2, 2))); err != nil {
		t.Fatalf("encode: %v", err)
	}
	project, err := client.Projects.Upload(ctx, 0, url.Values{
		"title":        {"Note G"},
		"description":  {"Bernoulli numbers"},
		"technologies": {"punch cards"},
	}, File{Field: "image_file", Name: "note-g.png", Content: &content})
	if err != nil {
		t.Fatalf("upload project: %v", err)
	}
	if !strings.Contains(project.ImageURL, "/projects/images/project_ada_") {
		t.Fatalf("unexpected image url %q", project.ImageURL)
	}

	bio := "First programmer"
	if updated, err := client.UpdateProfile(ctx, ProfileUpdate{Bio: &bio}); err != nil || updated.Bio != bio {
		t.Fatalf("update profile: %+v %v", updated, err)
	}

	if _, err := client.SendContact(ctx, user.ID, Contact{Name: "Charles", Email: "charles@example.com", Message: "Hello"}); err != nil {
		t.Fatalf("send contact: %v", err)
	}
	result, err := client.Portfolio(ctx, user.ID)
	if err != nil {
		t.Fatalf("portfolio: %v", err)
	}
	if result.User.Bio != bio || len(result.Skills) != 1 || len(result.Projects) != 1 {
		t.Fatalf("unexpected portfolio %+v", result)
	}

	clock.Advance(integrationRefreshTTL + time.Minute)
	if _, err := client.Skills.List(ctx); !errors.Is(err, ErrSessionTerminated) {
		t.Fatalf("expected session termination after refresh expiry, got %v", err)
	}
	if terminated.calls.Load() != 1 {
		t.Fatalf("expected one termination signal")
	}
	if credentials, _ := store.Load(); credentials != (Credentials{}) {
		t.Fatalf("expected cleared credentials, got %+v", credentials)
	}

	if _, err := client.Login(ctx, "ada@example.com", "analytical-engine"); err != nil {
		t.Fatalf("login: %v", err)
	}
	if err := client.Logout(ctx); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if credentials, _ := store.Load(); credentials != (Credentials{}) {
		t.Fatalf("logout must clear credentials")
	}
}

func ptr[T any](value T) *T {
	return &value
}
