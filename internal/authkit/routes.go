package authkit

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/tyemirov/portfolio/internal/apierror"
	"github.com/tyemirov/portfolio/internal/media"
	"github.com/tyemirov/portfolio/pkg/sessionvalidator"
	"go.uber.org/zap"
)

// Dependencies wires the collaborators used by the auth routes.
type Dependencies struct {
	Users           UserStore
	RefreshTokens   RefreshTokenStore
	ResetTokens     ResetTokenStore
	Validator       *sessionvalidator.Validator
	GoogleValidator GoogleTokenValidator
	Mailer          Mailer
	Images          media.Uploader
	Logger          *zap.Logger
	Metrics         MetricsRecorder
	Clock           Clock
}

var (
	errMissingUserStore    = errors.New("auth.routes.missing_user_store")
	errMissingRefreshStore = errors.New("auth.routes.missing_refresh_store")
	errMissingValidator    = errors.New("auth.routes.missing_validator")
)

// TokenPair is the credential pair returned on login and registration.
type TokenPair struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}

type authHandlers struct {
	configuration ServerConfig
	users         UserStore
	refreshTokens RefreshTokenStore
	resetTokens   ResetTokenStore
	google        GoogleTokenValidator
	mailer        Mailer
	images        media.Uploader
	logger        *zap.Logger
	metrics       MetricsRecorder
	clock         Clock
}

// MountAuthRoutes registers the account and token routes under router:
// /auth/register, /auth/login, /auth/google, /auth/logout, /auth/current-user,
// /auth/profile, /auth/password-reset, /auth/password-reset/confirm, and /token/refresh.
func MountAuthRoutes(router gin.IRouter, configuration ServerConfig, dependencies Dependencies) error {
	if dependencies.Users == nil {
		return errMissingUserStore
	}
	if dependencies.RefreshTokens == nil {
		return errMissingRefreshStore
	}
	if dependencies.Validator == nil {
		return errMissingValidator
	}
	handlers := &authHandlers{
		configuration: configuration,
		users:         dependencies.Users,
		refreshTokens: dependencies.RefreshTokens,
		resetTokens:   dependencies.ResetTokens,
		google:        dependencies.GoogleValidator,
		mailer:        dependencies.Mailer,
		images:        dependencies.Images,
		logger:        dependencies.Logger,
		metrics:       dependencies.Metrics,
		clock:         dependencies.Clock,
	}
	if handlers.logger == nil {
		handlers.logger = zap.NewNop()
	}
	if handlers.metrics == nil {
		handlers.metrics = noopMetrics{}
	}
	if handlers.clock == nil {
		handlers.clock = NewSystemClock()
	}
	if handlers.resetTokens == nil {
		handlers.resetTokens = NewMemoryResetTokenStore(configuration.ResetTTL, handlers.clock)
	}
	if handlers.mailer == nil {
		handlers.mailer = NewLogMailer(handlers.logger)
	}

	requireSession := RequireSession(dependencies.Validator)

	router.POST("/auth/register", handlers.register)
	router.POST("/auth/login", handlers.login)
	if strings.TrimSpace(configuration.GoogleWebClientID) != "" {
		if handlers.google == nil {
			googleValidator, err := newGoogleTokenValidator(context.Background())
			if err != nil {
				return fmt.Errorf("auth.routes.google_validator: %w", err)
			}
			handlers.google = googleValidator
		}
		router.POST("/auth/google", handlers.googleSignIn)
	}
	router.POST("/token/refresh", handlers.refresh)
	router.POST("/auth/logout", requireSession, handlers.logout)
	router.GET("/auth/current-user", requireSession, handlers.currentUser)
	router.PUT("/auth/profile", requireSession, handlers.updateProfile)
	router.PATCH("/auth/profile", requireSession, handlers.updateProfile)
	router.POST("/auth/password-reset", handlers.requestPasswordReset)
	router.POST("/auth/password-reset/confirm", handlers.confirmPasswordReset)
	return nil
}

type registerRequest struct {
	Email           string `json:"email" binding:"required,email"`
	Username        string `json:"username" binding:"required,max=150"`
	Password        string `json:"password" binding:"required"`
	PasswordConfirm string `json:"password_confirm" binding:"required"`
	FirstName       string `json:"first_name" binding:"max=150"`
	LastName        string `json:"last_name" binding:"max=150"`
}

func (handlers *authHandlers) register(contextGin *gin.Context) {
	var inbound registerRequest
	if err := contextGin.ShouldBindJSON(&inbound); err != nil {
		apierror.AbortBinding(contextGin, err)
		return
	}
	if fields := handlers.passwordProblems(inbound.Password, inbound.PasswordConfirm); len(fields) > 0 {
		apierror.AbortFields(contextGin, fields)
		return
	}
	user, createErr := handlers.users.CreateUser(contextGin.Request.Context(), Registration{
		Email:     inbound.Email,
		Username:  inbound.Username,
		Password:  inbound.Password,
		FirstName: inbound.FirstName,
		LastName:  inbound.LastName,
	})
	switch {
	case errors.Is(createErr, ErrEmailTaken):
		apierror.AbortFields(contextGin, map[string]string{"email": "a user with this email already exists"})
		return
	case errors.Is(createErr, ErrUsernameTaken):
		apierror.AbortFields(contextGin, map[string]string{"username": "a user with this username already exists"})
		return
	case createErr != nil:
		handlers.logger.Error("user registration failed", zap.String("code", "auth.register.store_error"), zap.Error(createErr))
		apierror.Abort(contextGin, http.StatusInternalServerError, apierror.CodeInternal)
		return
	}
	tokens, issueErr := handlers.issueSession(contextGin.Request.Context(), user)
	if issueErr != nil {
		handlers.logger.Error("session issuance failed", zap.String("code", "auth.register.issue_error"), zap.Error(issueErr))
		apierror.Abort(contextGin, http.StatusInternalServerError, apierror.CodeInternal)
		return
	}
	handlers.metrics.Increment(metricAuthRegisterSuccess)
	contextGin.JSON(http.StatusCreated, gin.H{
		"message": "user created",
		"user":    user.Profile(),
		"tokens":  tokens,
	})
}

type loginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

func (handlers *authHandlers) login(contextGin *gin.Context) {
	var inbound loginRequest
	if err := contextGin.ShouldBindJSON(&inbound); err != nil {
		apierror.AbortBinding(contextGin, err)
		return
	}
	user, authErr := handlers.users.AuthenticateUser(contextGin.Request.Context(), inbound.Email, inbound.Password)
	if authErr != nil {
		handlers.metrics.Increment(metricAuthLoginFailure)
		if errors.Is(authErr, ErrInvalidCredentials) {
			apierror.Abort(contextGin, http.StatusBadRequest, "invalid_credentials")
			return
		}
		handlers.logger.Error("login lookup failed", zap.String("code", "auth.login.store_error"), zap.Error(authErr))
		apierror.Abort(contextGin, http.StatusInternalServerError, apierror.CodeInternal)
		return
	}
	handlers.respondWithSession(contextGin, user, "login successful", metricAuthLoginSuccess)
}

func (handlers *authHandlers) googleSignIn(contextGin *gin.Context) {
	var inbound struct {
		GoogleIDToken string `json:"google_id_token" binding:"required"`
	}
	if err := contextGin.ShouldBindJSON(&inbound); err != nil {
		apierror.AbortBinding(contextGin, err)
		return
	}
	payload, validateErr := handlers.google.Validate(contextGin.Request.Context(), inbound.GoogleIDToken, handlers.configuration.GoogleWebClientID)
	if validateErr != nil {
		handlers.metrics.Increment(metricAuthLoginFailure)
		apierror.Abort(contextGin, http.StatusUnauthorized, "invalid_google_token")
		return
	}
	identity, problem := identityFromPayload(payload)
	if problem != "" {
		handlers.metrics.Increment(metricAuthLoginFailure)
		apierror.Abort(contextGin, http.StatusUnauthorized, problem)
		return
	}
	user, upsertErr := handlers.users.UpsertGoogleUser(contextGin.Request.Context(), identity.subject, identity.email, identity.displayName)
	if upsertErr != nil {
		handlers.logger.Error("google user upsert failed", zap.String("code", "auth.google.store_error"), zap.Error(upsertErr))
		apierror.Abort(contextGin, http.StatusInternalServerError, apierror.CodeInternal)
		return
	}
	handlers.respondWithSession(contextGin, user, "login successful", metricAuthGoogleSuccess)
}

func (handlers *authHandlers) respondWithSession(contextGin *gin.Context, user User, message string, successMetric string) {
	tokens, issueErr := handlers.issueSession(contextGin.Request.Context(), user)
	if issueErr != nil {
		handlers.logger.Error("session issuance failed", zap.String("code", "auth.session.issue_error"), zap.Error(issueErr))
		apierror.Abort(contextGin, http.StatusInternalServerError, apierror.CodeInternal)
		return
	}
	handlers.metrics.Increment(successMetric)
	contextGin.JSON(http.StatusOK, gin.H{
		"message": message,
		"user":    user.Profile(),
		"tokens":  tokens,
	})
}

func (handlers *authHandlers) issueSession(ctx context.Context, user User) (TokenPair, error) {
	accessToken, _, mintErr := MintAccessToken(handlers.clock, user, handlers.configuration.AppJWTIssuer, handlers.configuration.AppJWTSigningKey, handlers.configuration.AccessTTL)
	if mintErr != nil {
		return TokenPair{}, mintErr
	}
	expiresUnix := handlers.clock.Now().UTC().Add(handlers.configuration.RefreshTTL).Unix()
	_, refreshOpaque, issueErr := handlers.refreshTokens.Issue(ctx, user.ID, expiresUnix, "")
	if issueErr != nil {
		return TokenPair{}, issueErr
	}
	return TokenPair{Access: accessToken, Refresh: refreshOpaque}, nil
}

type refreshRequest struct {
	Refresh string `json:"refresh" binding:"required"`
}

func (handlers *authHandlers) refresh(contextGin *gin.Context) {
	var inbound refreshRequest
	if err := contextGin.ShouldBindJSON(&inbound); err != nil {
		apierror.AbortBinding(contextGin, err)
		return
	}
	ctx := contextGin.Request.Context()
	userID, currentTokenID, expiresUnix, validateErr := handlers.refreshTokens.Validate(ctx, inbound.Refresh)
	if validateErr != nil {
		handlers.rejectRefresh(contextGin, "auth.refresh.invalid", validateErr)
		return
	}
	if time.Unix(expiresUnix, 0).Before(handlers.clock.Now().UTC()) {
		handlers.rejectRefresh(contextGin, "auth.refresh.expired", ErrRefreshTokenExpired)
		return
	}
	user, userErr := handlers.users.GetUser(ctx, userID)
	if userErr != nil {
		handlers.rejectRefresh(contextGin, "auth.refresh.user_missing", userErr)
		return
	}
	accessToken, _, mintErr := MintAccessToken(handlers.clock, user, handlers.configuration.AppJWTIssuer, handlers.configuration.AppJWTSigningKey, handlers.configuration.AccessTTL)
	if mintErr != nil {
		handlers.logger.Error("access token mint failed", zap.String("code", "auth.refresh.mint_error"), zap.Error(mintErr))
		apierror.Abort(contextGin, http.StatusInternalServerError, apierror.CodeInternal)
		return
	}
	if !handlers.configuration.RotateRefreshTokens {
		handlers.metrics.Increment(metricAuthRefreshSuccess)
		contextGin.JSON(http.StatusOK, gin.H{"access": accessToken})
		return
	}
	// the presented token is revoked first so only one of two concurrent rotations wins
	if revokeErr := handlers.refreshTokens.Revoke(ctx, currentTokenID); revokeErr != nil {
		if errors.Is(revokeErr, ErrRefreshTokenAlreadyRevoked) || errors.Is(revokeErr, ErrRefreshTokenNotFound) {
			handlers.rejectRefresh(contextGin, "auth.refresh.lost_rotation", revokeErr)
			return
		}
		handlers.logger.Error("refresh token revoke failed", zap.String("code", "auth.refresh.revoke_error"), zap.Error(revokeErr))
		apierror.Abort(contextGin, http.StatusInternalServerError, apierror.CodeInternal)
		return
	}
	expiresAt := handlers.clock.Now().UTC().Add(handlers.configuration.RefreshTTL).Unix()
	_, newOpaque, issueErr := handlers.refreshTokens.Issue(ctx, userID, expiresAt, currentTokenID)
	if issueErr != nil {
		handlers.logger.Error("refresh token issue failed", zap.String("code", "auth.refresh.issue_error"), zap.Error(issueErr))
		apierror.Abort(contextGin, http.StatusInternalServerError, apierror.CodeInternal)
		return
	}
	handlers.metrics.Increment(metricAuthRefreshSuccess)
	contextGin.JSON(http.StatusOK, gin.H{"access": accessToken, "refresh": newOpaque})
}

func (handlers *authHandlers) rejectRefresh(contextGin *gin.Context, code string, cause error) {
	handlers.metrics.Increment(metricAuthRefreshFailure)
	handlers.logger.Warn("refresh rejected", zap.String("code", code), zap.Error(cause))
	apierror.Abort(contextGin, http.StatusUnauthorized, "token_not_valid")
}

func (handlers *authHandlers) logout(contextGin *gin.Context) {
	var inbound refreshRequest
	if err := contextGin.ShouldBindJSON(&inbound); err != nil {
		apierror.Abort(contextGin, http.StatusBadRequest, "invalid_token")
		return
	}
	ctx := contextGin.Request.Context()
	ownerID, tokenID, _, validateErr := handlers.refreshTokens.Validate(ctx, inbound.Refresh)
	if validateErr != nil || ownerID != CurrentUserID(contextGin) {
		apierror.Abort(contextGin, http.StatusBadRequest, "invalid_token")
		return
	}
	if revokeErr := handlers.refreshTokens.Revoke(ctx, tokenID); revokeErr != nil && !errors.Is(revokeErr, ErrRefreshTokenAlreadyRevoked) {
		handlers.logger.Error("logout revoke failed", zap.String("code", "auth.logout.revoke_error"), zap.Error(revokeErr))
		apierror.Abort(contextGin, http.StatusInternalServerError, apierror.CodeInternal)
		return
	}
	handlers.metrics.Increment(metricAuthLogoutSuccess)
	contextGin.JSON(http.StatusOK, gin.H{"message": "logged out"})
}

func (handlers *authHandlers) currentUser(contextGin *gin.Context) {
	user, ok := handlers.loadCaller(contextGin)
	if !ok {
		return
	}
	contextGin.JSON(http.StatusOK, user.Profile())
}

func (handlers *authHandlers) loadCaller(contextGin *gin.Context) (User, bool) {
	userID := CurrentUserID(contextGin)
	user, err := handlers.users.GetUser(contextGin.Request.Context(), userID)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			handlers.logger.Warn("user profile missing", zap.String("code", "auth.current_user.missing"), zap.Uint("user_id", userID))
			apierror.Abort(contextGin, http.StatusNotFound, apierror.CodeNotFound)
			return User{}, false
		}
		handlers.logger.Error("user profile lookup error", zap.String("code", "auth.current_user.error"), zap.Uint("user_id", userID), zap.Error(err))
		apierror.Abort(contextGin, http.StatusInternalServerError, apierror.CodeInternal)
		return User{}, false
	}
	return user, true
}

type profileRequest struct {
	Username           *string `json:"username" form:"username" binding:"omitempty,max=150"`
	FirstName          *string `json:"first_name" form:"first_name" binding:"omitempty,max=150"`
	LastName           *string `json:"last_name" form:"last_name" binding:"omitempty,max=150"`
	Bio                *string `json:"bio" form:"bio"`
	Country            *string `json:"country" form:"country" binding:"omitempty,max=100"`
	City               *string `json:"city" form:"city" binding:"omitempty,max=100"`
	PostalCode         *string `json:"postal_code" form:"postal_code" binding:"omitempty,max=20"`
	Street             *string `json:"street" form:"street" binding:"omitempty,max=255"`
	HouseNumber        *string `json:"house_number" form:"house_number" binding:"omitempty,max=20"`
	PhoneNumber        *string `json:"phone_number" form:"phone_number" binding:"omitempty,max=20"`
	DeleteProfileImage bool    `json:"delete_profile_image" form:"delete_profile_image"`
	DeleteBanner       bool    `json:"delete_banner" form:"delete_banner"`
}

func (request profileRequest) update() ProfileUpdate {
	return ProfileUpdate{
		Username:    request.Username,
		FirstName:   request.FirstName,
		LastName:    request.LastName,
		Bio:         request.Bio,
		Country:     request.Country,
		City:        request.City,
		PostalCode:  request.PostalCode,
		Street:      request.Street,
		HouseNumber: request.HouseNumber,
		PhoneNumber: request.PhoneNumber,
	}
}

type imageSlot struct {
	field    string
	category media.Category
	current  string
	remove   bool
	target   **string
	uploaded string
	action   string
}

func (handlers *authHandlers) updateProfile(contextGin *gin.Context) {
	user, ok := handlers.loadCaller(contextGin)
	if !ok {
		return
	}
	var inbound profileRequest
	if err := contextGin.ShouldBind(&inbound); err != nil {
		apierror.AbortBinding(contextGin, err)
		return
	}
	update := inbound.update()
	ctx := contextGin.Request.Context()
	slots := []*imageSlot{
		{field: "profile_image_file", category: media.ProfileImage, current: user.ProfileImage, remove: inbound.DeleteProfileImage, target: &update.ProfileImage, action: "profile image"},
		{field: "banner_file", category: media.Banner, current: user.Banner, remove: inbound.DeleteBanner, target: &update.Banner, action: "banner"},
	}
	actions := make([]string, 0, 4)
	multipartRequest := strings.HasPrefix(contextGin.ContentType(), "multipart/form-data")
	for _, slot := range slots {
		if multipartRequest {
			file, fileErr := contextGin.FormFile(slot.field)
			if fileErr == nil {
				if handlers.images == nil {
					handlers.discardUploads(ctx, slots)
					apierror.AbortFields(contextGin, map[string]string{slot.field: "uploads are not enabled"})
					return
				}
				reference, saveErr := handlers.images.SaveUpload(ctx, slot.category, user.Username, file)
				if saveErr != nil {
					handlers.discardUploads(ctx, slots)
					apierror.AbortFields(contextGin, map[string]string{slot.field: describeUploadError(saveErr)})
					return
				}
				slot.uploaded = reference
				*slot.target = &slot.uploaded
				actions = append(actions, slot.action+" updated")
				continue
			}
		}
		if slot.remove {
			empty := ""
			*slot.target = &empty
			actions = append(actions, slot.action+" removed")
		}
	}
	if inbound.hasTextFields() {
		actions = append(actions, "personal information updated")
	}
	if len(actions) == 0 {
		actions = append(actions, "profile refreshed")
	}

	updated, updateErr := handlers.users.UpdateProfile(ctx, user.ID, update)
	if updateErr != nil {
		handlers.discardUploads(ctx, slots)
		if errors.Is(updateErr, ErrUsernameTaken) {
			apierror.AbortFields(contextGin, map[string]string{"username": "a user with this username already exists"})
			return
		}
		handlers.logger.Error("profile update failed", zap.String("code", "auth.profile.store_error"), zap.Error(updateErr))
		apierror.Abort(contextGin, http.StatusInternalServerError, apierror.CodeInternal)
		return
	}
	for _, slot := range slots {
		if *slot.target != nil && slot.current != "" && slot.current != **slot.target {
			handlers.removeImage(ctx, slot.current)
		}
	}
	contextGin.JSON(http.StatusOK, gin.H{
		"message": "profile updated",
		"actions": actions,
		"user":    updated.Profile(),
	})
}

func (request profileRequest) hasTextFields() bool {
	for _, field := range []*string{request.Username, request.FirstName, request.LastName, request.Bio, request.Country, request.City, request.PostalCode, request.Street, request.HouseNumber, request.PhoneNumber} {
		if field != nil {
			return true
		}
	}
	return false
}

func (handlers *authHandlers) discardUploads(ctx context.Context, slots []*imageSlot) {
	for _, slot := range slots {
		if slot.uploaded != "" {
			handlers.removeImage(ctx, slot.uploaded)
		}
	}
}

func (handlers *authHandlers) removeImage(ctx context.Context, reference string) {
	if handlers.images == nil {
		return
	}
	if err := handlers.images.Delete(ctx, reference); err != nil {
		handlers.logger.Warn("image cleanup failed", zap.String("code", "auth.profile.image_cleanup"), zap.String("reference", reference), zap.Error(err))
	}
}

func describeUploadError(err error) string {
	switch {
	case errors.Is(err, media.ErrTooLarge):
		return "file is too large, maximum size is 5MB"
	case errors.Is(err, media.ErrUnsupportedType):
		return "unsupported file format, accepted formats: jpg, jpeg, png, webp"
	case errors.Is(err, media.ErrEmptyUpload):
		return "the submitted file is empty"
	default:
		return "the file could not be stored"
	}
}

func (handlers *authHandlers) requestPasswordReset(contextGin *gin.Context) {
	var inbound struct {
		Email string `json:"email" binding:"required,email"`
	}
	if err := contextGin.ShouldBindJSON(&inbound); err != nil {
		apierror.AbortBinding(contextGin, err)
		return
	}
	ctx := contextGin.Request.Context()
	response := gin.H{"message": "if the account exists, a reset email has been sent"}
	user, lookupErr := handlers.users.GetUserByEmail(ctx, inbound.Email)
	if errors.Is(lookupErr, ErrUserNotFound) {
		contextGin.JSON(http.StatusOK, response)
		return
	}
	if lookupErr != nil {
		handlers.logger.Error("reset lookup failed", zap.String("code", "auth.password_reset.store_error"), zap.Error(lookupErr))
		apierror.Abort(contextGin, http.StatusInternalServerError, apierror.CodeInternal)
		return
	}
	token, issueErr := handlers.resetTokens.Issue(ctx, user.ID)
	if issueErr != nil {
		handlers.logger.Error("reset token issue failed", zap.String("code", "auth.password_reset.issue_error"), zap.Error(issueErr))
		apierror.Abort(contextGin, http.StatusInternalServerError, apierror.CodeInternal)
		return
	}
	resetURL := strings.TrimRight(handlers.configuration.ResetURLBase, "/") + "/" + token
	if sendErr := handlers.mailer.SendPasswordReset(ctx, user, resetURL); sendErr != nil {
		handlers.logger.Error("reset email failed", zap.String("code", "auth.password_reset.mail_error"), zap.Error(sendErr))
		apierror.Abort(contextGin, http.StatusInternalServerError, apierror.CodeInternal)
		return
	}
	handlers.metrics.Increment(metricAuthResetRequested)
	contextGin.JSON(http.StatusOK, response)
}

func (handlers *authHandlers) confirmPasswordReset(contextGin *gin.Context) {
	var inbound struct {
		Token           string `json:"token" binding:"required"`
		Password        string `json:"password" binding:"required"`
		PasswordConfirm string `json:"password_confirm" binding:"required"`
	}
	if err := contextGin.ShouldBindJSON(&inbound); err != nil {
		apierror.AbortBinding(contextGin, err)
		return
	}
	if fields := handlers.passwordProblems(inbound.Password, inbound.PasswordConfirm); len(fields) > 0 {
		apierror.AbortFields(contextGin, fields)
		return
	}
	ctx := contextGin.Request.Context()
	userID, consumeErr := handlers.resetTokens.Consume(ctx, inbound.Token)
	if consumeErr != nil {
		apierror.Abort(contextGin, http.StatusBadRequest, "invalid_token")
		return
	}
	if setErr := handlers.users.SetPassword(ctx, userID, inbound.Password); setErr != nil {
		handlers.logger.Error("password update failed", zap.String("code", "auth.password_reset.store_error"), zap.Error(setErr))
		apierror.Abort(contextGin, http.StatusInternalServerError, apierror.CodeInternal)
		return
	}
	if revokeErr := handlers.refreshTokens.RevokeAllForUser(ctx, userID); revokeErr != nil {
		handlers.logger.Warn("session revocation failed", zap.String("code", "auth.password_reset.revoke_error"), zap.Error(revokeErr))
	}
	handlers.metrics.Increment(metricAuthResetConfirmed)
	contextGin.JSON(http.StatusOK, gin.H{"message": "password has been reset"})
}

func (handlers *authHandlers) passwordProblems(password string, confirmation string) map[string]string {
	fields := make(map[string]string)
	minimum := handlers.configuration.minPasswordLength()
	if len([]rune(password)) < minimum {
		fields["password"] = fmt.Sprintf("ensure this field has at least %d characters", minimum)
	}
	if password != confirmation {
		fields["password_confirm"] = "passwords do not match"
	}
	return fields
}
