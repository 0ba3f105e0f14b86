package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/tyemirov/portfolio/internal/authkit"
	"github.com/tyemirov/portfolio/internal/authkitpg"
	"github.com/tyemirov/portfolio/internal/media"
	"github.com/tyemirov/portfolio/internal/portfolio"
	"github.com/tyemirov/portfolio/internal/storage"
	"github.com/tyemirov/portfolio/internal/web"
	"github.com/tyemirov/portfolio/pkg/sessionvalidator"
	"go.uber.org/zap"
)

var serveHTTP = func(server *http.Server) error {
	return server.ListenAndServe()
}

var buildGoogleTokenValidator = func(ctx context.Context) (authkit.GoogleTokenValidator, error) {
	return authkit.NewGoogleTokenValidator(ctx)
}

var newLogger = func() (*zap.Logger, error) {
	return zap.NewProduction()
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:     "portfolio-server",
		Short:   "Portfolio API with JWT sessions, rotating refresh tokens, and media uploads",
		PreRunE: prepareServerConfig,
		RunE:    runServer,
	}

	flags := rootCmd.Flags()
	flags.String("listen_addr", ":8080", "HTTP listen address")
	flags.String("jwt_signing_key", "", "HS256 signing secret for access JWT")
	flags.String("jwt_issuer", "portfolio", "Issuer claim of access JWT")
	flags.Duration("access_ttl", 15*time.Minute, "Access token TTL")
	flags.Duration("refresh_ttl", 7*24*time.Hour, "Refresh token TTL")
	flags.Bool("rotate_refresh_tokens", true, "Issue a new refresh token on every refresh and revoke the old one")
	flags.String("database_url", "sqlite://portfolio.db", "Database URL (postgres:// or sqlite://)")
	flags.String("refresh_store", refreshStoreGorm, "Refresh token store: gorm, pgx (postgres only), or memory")
	flags.String("google_web_client_id", "", "Google Web OAuth Client ID; empty disables Google sign-in")
	flags.Bool("enable_cors", false, "Enable CORS for cross-origin clients")
	flags.StringSlice("cors_allowed_origins", []string{}, "Allowed origins when CORS is enabled (required if enable_cors is true)")
	flags.String("media_dir", "media", "Directory for uploaded files when no S3 endpoint is configured")
	flags.String("media_base_url", "http://localhost:8080/media", "Public URL prefix of uploaded files")
	flags.String("s3_endpoint", "", "S3-compatible endpoint for uploaded files; empty stores them in media_dir")
	flags.String("s3_access_key", "", "S3 access key")
	flags.String("s3_secret_key", "", "S3 secret key")
	flags.String("s3_bucket", "portfolio", "S3 bucket")
	flags.Duration("reset_ttl", authkit.DefaultResetTTL, "Password reset link lifetime")
	flags.String("reset_url_base", "http://localhost:3000/reset-password", "Frontend URL that receives password reset tokens")
	flags.Bool("metrics_enabled", false, "Expose Prometheus metrics on /metrics")

	for _, name := range []string{
		"listen_addr", "jwt_signing_key", "jwt_issuer", "access_ttl", "refresh_ttl", "rotate_refresh_tokens",
		"database_url", "refresh_store", "google_web_client_id", "enable_cors", "cors_allowed_origins",
		"media_dir", "media_base_url", "s3_endpoint", "s3_access_key", "s3_secret_key", "s3_bucket",
		"reset_ttl", "reset_url_base", "metrics_enabled",
	} {
		_ = viper.BindPFlag(name, flags.Lookup(name))
	}

	viper.SetEnvPrefix("APP")
	viper.AutomaticEnv()

	return rootCmd
}

const (
	refreshStoreGorm   = "gorm"
	refreshStorePgx    = "pgx"
	refreshStoreMemory = "memory"

	configCodeMissingJWTSigningKey    = "config.missing_jwt_signing_key"
	configCodeInvalidAccessTTL        = "config.invalid_access_ttl"
	configCodeInvalidRefreshTTL       = "config.invalid_refresh_ttl"
	configCodeMissingDatabaseURL      = "config.missing_database_url"
	configCodeInvalidRefreshStore     = "config.invalid_refresh_store"
	configCodeMissingCORSOrigins      = "config.missing_cors_allowed_origins"
	configCodeMissingMediaBaseURL     = "config.missing_media_base_url"
	configCodeMissingS3Credentials    = "config.missing_s3_credentials"
	configCodeUninitializedServerConf = "config.uninitialized_server_config"
	configCodeGoogleValidatorInit     = "config.google_validator_init"
)

type contextKey string

const serverConfigContextKey contextKey = "serverConfig"

// ServerSettings is the validated configuration of one server process.
type ServerSettings struct {
	Auth               authkit.ServerConfig
	ListenAddr         string
	DatabaseURL        string
	RefreshStore       string
	EnableCORS         bool
	CORSAllowedOrigins []string
	MediaDir           string
	MediaBaseURL       string
	S3                 media.S3Config
	MetricsEnabled     bool
}

func prepareServerConfig(command *cobra.Command, arguments []string) error {
	settings, loadErr := LoadServerConfig()
	if loadErr != nil {
		return loadErr
	}
	existingContext := command.Context()
	if existingContext == nil {
		existingContext = context.Background()
	}
	command.SetContext(context.WithValue(existingContext, serverConfigContextKey, settings))
	return nil
}

func configError(code, message string) error {
	return fmt.Errorf("%s: %s", code, message)
}

// LoadServerConfig reads and validates the viper-bound settings.
func LoadServerConfig() (ServerSettings, error) {
	jwtSigningKey := viper.GetString("jwt_signing_key")
	if jwtSigningKey == "" {
		return ServerSettings{}, configError(configCodeMissingJWTSigningKey, "jwt_signing_key must be provided")
	}

	accessTTL := viper.GetDuration("access_ttl")
	if accessTTL <= 0 {
		return ServerSettings{}, configError(configCodeInvalidAccessTTL, "access_ttl must be greater than zero")
	}

	refreshTTL := viper.GetDuration("refresh_ttl")
	if refreshTTL <= 0 {
		return ServerSettings{}, configError(configCodeInvalidRefreshTTL, "refresh_ttl must be greater than zero")
	}

	databaseURL := strings.TrimSpace(viper.GetString("database_url"))
	if databaseURL == "" {
		return ServerSettings{}, configError(configCodeMissingDatabaseURL, "database_url must be provided")
	}

	refreshStore := strings.ToLower(strings.TrimSpace(viper.GetString("refresh_store")))
	if refreshStore == "" {
		refreshStore = refreshStoreGorm
	}
	switch refreshStore {
	case refreshStoreGorm, refreshStoreMemory:
	case refreshStorePgx:
		if !strings.HasPrefix(databaseURL, "postgres") {
			return ServerSettings{}, configError(configCodeInvalidRefreshStore, "refresh_store pgx requires a postgres database_url")
		}
	default:
		return ServerSettings{}, configError(configCodeInvalidRefreshStore, "refresh_store must be one of gorm, pgx, memory")
	}

	enableCORS := viper.GetBool("enable_cors")
	corsAllowedOrigins := viper.GetStringSlice("cors_allowed_origins")
	if enableCORS && len(corsAllowedOrigins) == 0 {
		return ServerSettings{}, configError(configCodeMissingCORSOrigins, "cors_allowed_origins must be provided when enable_cors is true")
	}

	mediaBaseURL := strings.TrimRight(strings.TrimSpace(viper.GetString("media_base_url")), "/")
	if mediaBaseURL == "" {
		return ServerSettings{}, configError(configCodeMissingMediaBaseURL, "media_base_url must be provided")
	}

	s3 := media.S3Config{
		Endpoint:  strings.TrimSpace(viper.GetString("s3_endpoint")),
		AccessKey: viper.GetString("s3_access_key"),
		SecretKey: viper.GetString("s3_secret_key"),
		Bucket:    viper.GetString("s3_bucket"),
	}
	if s3.Endpoint != "" && (s3.AccessKey == "" || s3.SecretKey == "" || s3.Bucket == "") {
		return ServerSettings{}, configError(configCodeMissingS3Credentials, "s3_access_key, s3_secret_key and s3_bucket must be provided with s3_endpoint")
	}

	resetTTL := viper.GetDuration("reset_ttl")
	if resetTTL <= 0 {
		resetTTL = authkit.DefaultResetTTL
	}
	issuer := viper.GetString("jwt_issuer")
	if issuer == "" {
		issuer = "portfolio"
	}

	return ServerSettings{
		Auth: authkit.ServerConfig{
			GoogleWebClientID:   viper.GetString("google_web_client_id"),
			AppJWTSigningKey:    []byte(jwtSigningKey),
			AppJWTIssuer:        issuer,
			AccessTTL:           accessTTL,
			RefreshTTL:          refreshTTL,
			RotateRefreshTokens: viper.GetBool("rotate_refresh_tokens"),
			ResetTTL:            resetTTL,
			ResetURLBase:        viper.GetString("reset_url_base"),
		},
		ListenAddr:         viper.GetString("listen_addr"),
		DatabaseURL:        databaseURL,
		RefreshStore:       refreshStore,
		EnableCORS:         enableCORS,
		CORSAllowedOrigins: corsAllowedOrigins,
		MediaDir:           viper.GetString("media_dir"),
		MediaBaseURL:       mediaBaseURL,
		S3:                 s3,
		MetricsEnabled:     viper.GetBool("metrics_enabled"),
	}, nil
}

func runServer(command *cobra.Command, arguments []string) error {
	commandContext := command.Context()
	var contextValue any
	if commandContext != nil {
		contextValue = commandContext.Value(serverConfigContextKey)
	}
	settings, ok := contextValue.(ServerSettings)
	if !ok {
		return configError(configCodeUninitializedServerConf, "server configuration not prepared; PreRunE must execute before RunE")
	}

	logger, loggerErr := newLogger()
	if loggerErr != nil {
		return loggerErr
	}
	defer func() { _ = logger.Sync() }()

	router, cleanup, buildErr := buildRouter(commandContext, settings, logger)
	if buildErr != nil {
		return buildErr
	}
	defer cleanup()

	server := &http.Server{
		Addr:              settings.ListenAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	shutdownCtx, shutdownCancel := context.WithCancel(context.Background())
	defer shutdownCancel()

	go func() {
		stopSignals := make(chan os.Signal, 1)
		signal.Notify(stopSignals, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(stopSignals)
		select {
		case <-stopSignals:
		case <-shutdownCtx.Done():
			return
		}
		graceCtx, graceCancel := context.WithTimeout(shutdownCtx, 10*time.Second)
		defer graceCancel()
		if err := server.Shutdown(graceCtx); err != nil {
			logger.Error("server shutdown error", zap.String("code", "server.shutdown"), zap.Error(err))
		}
	}()

	logger.Info("listening", zap.String("addr", settings.ListenAddr))
	if err := serveHTTP(server); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("listen error: %w", err)
	}
	return nil
}

// buildRouter assembles the API and public pages; cleanup releases what it opened.
func buildRouter(ctx context.Context, settings ServerSettings, logger *zap.Logger) (*gin.Engine, func(), error) {
	if ctx == nil {
		ctx = context.Background()
	}
	var closers []func()
	cleanup := func() {
		for index := len(closers) - 1; index >= 0; index-- {
			closers[index]()
		}
	}
	fail := func(err error) (*gin.Engine, func(), error) {
		cleanup()
		return nil, func() {}, err
	}

	database, openErr := storage.Open(ctx, settings.DatabaseURL, append(authkit.Models(), portfolio.Models()...)...)
	if openErr != nil {
		return fail(openErr)
	}
	closers = append(closers, func() { _ = database.Close() })
	if seedErr := portfolio.Seed(ctx, database.DB); seedErr != nil {
		return fail(seedErr)
	}
	logger.Info("database ready", zap.String("driver", database.Driver()))

	clock := authkit.NewSystemClock()
	refreshStore, closeRefreshStore, refreshErr := buildRefreshStore(ctx, settings, database, clock, logger)
	if refreshErr != nil {
		return fail(refreshErr)
	}
	closers = append(closers, closeRefreshStore)

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(zapLoggerMiddleware(logger))

	if settings.EnableCORS {
		corsMiddleware, corsErr := web.ConfigureCORS(logger, settings.CORSAllowedOrigins)
		if corsErr != nil {
			return fail(corsErr)
		}
		router.Use(corsMiddleware)
	}

	objectStore, mediaErr := buildObjectStore(ctx, settings, router)
	if mediaErr != nil {
		return fail(mediaErr)
	}
	images := media.NewLibrary(objectStore, settings.MediaBaseURL)

	var metrics authkit.MetricsRecorder = authkit.NewCounterMetrics()
	if settings.MetricsEnabled {
		registry := prometheus.NewRegistry()
		registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		prometheusMetrics, metricsErr := authkit.NewPrometheusMetrics(registry)
		if metricsErr != nil {
			return fail(metricsErr)
		}
		metrics = prometheusMetrics
		router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))
	}

	var googleValidator authkit.GoogleTokenValidator
	if settings.Auth.GoogleWebClientID != "" {
		validator, validatorErr := buildGoogleTokenValidator(ctx)
		if validatorErr != nil {
			return fail(fmt.Errorf("%s: %w", configCodeGoogleValidatorInit, validatorErr))
		}
		googleValidator = validator
	}

	sessionValidator, sessionErr := sessionvalidator.New(sessionvalidator.Config{
		SigningKey: settings.Auth.AppJWTSigningKey,
		Issuer:     settings.Auth.AppJWTIssuer,
		Clock:      clock,
	})
	if sessionErr != nil {
		return fail(sessionErr)
	}

	users := authkit.NewDatabaseUserStore(database.DB)
	api := router.Group("/api")
	if mountErr := authkit.MountAuthRoutes(api, settings.Auth, authkit.Dependencies{
		Users:           users,
		RefreshTokens:   refreshStore,
		ResetTokens:     authkit.NewMemoryResetTokenStore(settings.Auth.ResetTTL, clock),
		Validator:       sessionValidator,
		GoogleValidator: googleValidator,
		Mailer:          authkit.NewLogMailer(logger),
		Images:          images,
		Logger:          logger,
		Metrics:         metrics,
		Clock:           clock,
	}); mountErr != nil {
		return fail(mountErr)
	}
	catalog, mountErr := portfolio.MountRoutes(api, portfolio.Dependencies{
		DB:        database.DB,
		Users:     users,
		Validator: sessionValidator,
		Images:    images,
		Logger:    logger,
		Clock:     clock,
	})
	if mountErr != nil {
		return fail(mountErr)
	}
	web.MountPublicPages(router, logger, catalog)

	return router, cleanup, nil
}

func buildRefreshStore(ctx context.Context, settings ServerSettings, database *storage.Database, clock authkit.Clock, logger *zap.Logger) (authkit.RefreshTokenStore, func(), error) {
	switch settings.RefreshStore {
	case refreshStoreMemory:
		logger.Info("using in-memory refresh token store")
		return authkit.NewMemoryRefreshTokenStore(clock), func() {}, nil
	case refreshStorePgx:
		pool, poolErr := authkitpg.BuildPool(ctx, settings.DatabaseURL)
		if poolErr != nil {
			return nil, nil, poolErr
		}
		if schemaErr := authkitpg.EnsureSchema(ctx, pool); schemaErr != nil {
			pool.Close()
			return nil, nil, schemaErr
		}
		logger.Info("using pgx refresh token store")
		return authkitpg.NewPostgresRefreshTokenStore(pool, clock), pool.Close, nil
	default:
		logger.Info("using database refresh token store", zap.String("driver", database.Driver()))
		return authkit.NewDatabaseRefreshTokenStore(database, clock), func() {}, nil
	}
}

// buildObjectStore selects MinIO when an endpoint is configured, otherwise a directory served under /media.
func buildObjectStore(ctx context.Context, settings ServerSettings, router *gin.Engine) (media.ObjectStore, error) {
	if settings.S3.Endpoint != "" {
		return media.NewMinioStore(ctx, settings.S3)
	}
	filesystem := afero.NewOsFs()
	if err := filesystem.MkdirAll(settings.MediaDir, 0o755); err != nil {
		return nil, fmt.Errorf("media.dir: %w", err)
	}
	store, err := media.NewFilesystemStore(filesystem, settings.MediaDir)
	if err != nil {
		return nil, err
	}
	router.StaticFS("/media", store.HTTPFileSystem())
	return store, nil
}

func zapLoggerMiddleware(logger *zap.Logger) gin.HandlerFunc {
	return func(contextGin *gin.Context) {
		startTime := time.Now()
		contextGin.Next()
		duration := time.Since(startTime)
		logger.Info("http",
			zap.String("method", contextGin.Request.Method),
			zap.String("path", contextGin.Request.URL.Path),
			zap.Int("status", contextGin.Writer.Status()),
			zap.String("ip", contextGin.ClientIP()),
			zap.Duration("elapsed", duration),
		)
	}
}
