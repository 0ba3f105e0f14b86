package portfolio

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/tyemirov/portfolio/internal/apierror"
	"github.com/tyemirov/portfolio/internal/authkit"
	"github.com/tyemirov/portfolio/internal/media"
	"github.com/tyemirov/portfolio/pkg/sessionvalidator"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// UserLookup resolves portfolio owners.
type UserLookup interface {
	GetUser(ctx context.Context, userID uint) (authkit.User, error)
}

// Dependencies wires the collaborators used by the portfolio routes.
type Dependencies struct {
	DB        *gorm.DB
	Users     UserLookup
	Validator *sessionvalidator.Validator
	Images    media.Uploader
	Logger    *zap.Logger
	Clock     authkit.Clock
}

var (
	errMissingDatabase  = errors.New("portfolio.routes.missing_database")
	errMissingUsers     = errors.New("portfolio.routes.missing_users")
	errMissingValidator = errors.New("portfolio.routes.missing_validator")
)

// Catalog exposes the portfolio read model to other packages.
type Catalog struct {
	resources   *resourceSet
	settings    Repository[Settings]
	socialTypes Repository[SocialType]
	categories  Repository[Category]
	users       UserLookup
}

// NewCatalog binds the portfolio read model to db.
func NewCatalog(db *gorm.DB, users UserLookup) *Catalog {
	return &Catalog{
		resources:   newResourceSet(db),
		settings:    NewRepository[Settings](db, "settings"),
		socialTypes: NewRepository[SocialType](db, "social_types"),
		categories:  NewRepository[Category](db, "categories"),
		users:       users,
	}
}

// MountRoutes registers every portfolio route under router and returns the bound Catalog.
func MountRoutes(router gin.IRouter, dependencies Dependencies) (*Catalog, error) {
	if dependencies.DB == nil {
		return nil, errMissingDatabase
	}
	if dependencies.Users == nil {
		return nil, errMissingUsers
	}
	if dependencies.Validator == nil {
		return nil, errMissingValidator
	}
	routes := &routeContext{
		users:   dependencies.Users,
		images:  dependencies.Images,
		logger:  dependencies.Logger,
		clock:   dependencies.Clock,
		session: authkit.RequireSession(dependencies.Validator),
	}
	if routes.logger == nil {
		routes.logger = zap.NewNop()
	}
	if routes.clock == nil {
		routes.clock = authkit.NewSystemClock()
	}
	catalog := NewCatalog(dependencies.DB, dependencies.Users)
	resources := catalog.resources

	resources.experiences.mount(router, routes)
	resources.educations.mount(router, routes)
	resources.skills.mount(router, routes)
	resources.socials.mount(router, routes)
	resources.projects.mount(router, routes)
	resources.services.mount(router, routes)
	resources.articles.mount(router, routes)

	contacts := router.Group("/contacts")
	contacts.POST("", catalog.handleCreateContact(routes))
	contacts.GET("", routes.session, resources.contacts.handleList(routes))
	contacts.GET("/:id", routes.session, resources.contacts.handleGet(routes))
	contacts.PATCH("/:id", routes.session, catalog.handleMarkContact(routes))
	contacts.DELETE("/:id", routes.session, resources.contacts.handleDelete(routes))

	router.GET("/settings", routes.session, catalog.handleGetSettings(routes))
	router.PUT("/settings", routes.session, catalog.handlePutSettings(routes))
	router.PATCH("/settings", routes.session, catalog.handlePutSettings(routes))

	router.GET("/social-types", handleReferenceList(routes, catalog.socialTypes, "social_types"))
	router.POST("/social-types", routes.session, handleReferenceCreate(routes, catalog.socialTypes, "social_types"))
	router.GET("/categories", handleReferenceList(routes, catalog.categories, "categories"))
	router.POST("/categories", routes.session, handleReferenceCreate(routes, catalog.categories, "categories"))

	router.GET("/portfolio/:user_id", catalog.handlePortfolio(routes))
	return catalog, nil
}

func (catalog *Catalog) handleCreateContact(routes *routeContext) gin.HandlerFunc {
	return func(contextGin *gin.Context) {
		var contact Contact
		if err := contextGin.ShouldBindJSON(&contact); err != nil {
			apierror.AbortBinding(contextGin, err)
			return
		}
		recipient := contact.UserID
		if recipient == 0 {
			apierror.AbortFields(contextGin, map[string]string{"user": "this field is required"})
			return
		}
		if _, err := routes.users.GetUser(contextGin.Request.Context(), recipient); err != nil {
			if errors.Is(err, authkit.ErrUserNotFound) {
				apierror.AbortFields(contextGin, map[string]string{"user": "unknown user"})
				return
			}
			routes.internalError(contextGin, "contacts.recipient", err)
			return
		}
		contact.Base = Base{UserID: recipient}
		contact.Read = false
		if err := catalog.resources.contacts.repository.Create(contextGin.Request.Context(), &contact); err != nil {
			routes.internalError(contextGin, "contacts.create", err)
			return
		}
		contextGin.JSON(http.StatusCreated, contact)
	}
}

func (catalog *Catalog) handleMarkContact(routes *routeContext) gin.HandlerFunc {
	return func(contextGin *gin.Context) {
		contact, ok := catalog.resources.contacts.loadOwned(contextGin, routes)
		if !ok {
			return
		}
		var inbound struct {
			Read *bool `json:"read" binding:"required"`
		}
		if err := contextGin.ShouldBindJSON(&inbound); err != nil {
			apierror.AbortBinding(contextGin, err)
			return
		}
		contact.Read = *inbound.Read
		if err := catalog.resources.contacts.repository.Save(contextGin.Request.Context(), &contact); err != nil {
			routes.internalError(contextGin, "contacts.mark", err)
			return
		}
		contextGin.JSON(http.StatusOK, contact)
	}
}

// SettingsFor returns the user's saved settings or the defaults when none exist.
func (catalog *Catalog) SettingsFor(ctx context.Context, userID uint) (Settings, error) {
	records, err := catalog.settings.ListByOwner(ctx, userID)
	if err != nil {
		return Settings{}, err
	}
	if len(records) == 0 {
		return Settings{UserID: userID, Color: DefaultColor}, nil
	}
	return records[0], nil
}

func (catalog *Catalog) handleGetSettings(routes *routeContext) gin.HandlerFunc {
	return func(contextGin *gin.Context) {
		settings, err := catalog.SettingsFor(contextGin.Request.Context(), authkit.CurrentUserID(contextGin))
		if err != nil {
			routes.internalError(contextGin, "settings.get", err)
			return
		}
		contextGin.JSON(http.StatusOK, settings)
	}
}

func (catalog *Catalog) handlePutSettings(routes *routeContext) gin.HandlerFunc {
	return func(contextGin *gin.Context) {
		ctx := contextGin.Request.Context()
		userID := authkit.CurrentUserID(contextGin)
		settings, err := catalog.SettingsFor(ctx, userID)
		if err != nil {
			routes.internalError(contextGin, "settings.load", err)
			return
		}
		existing := settings
		if err := contextGin.ShouldBindJSON(&settings); err != nil {
			apierror.AbortBinding(contextGin, err)
			return
		}
		settings.ID, settings.UserID, settings.CreatedAt = existing.ID, userID, existing.CreatedAt
		status := http.StatusOK
		if existing.ID == 0 {
			// a concurrent first save may have inserted the row since it was loaded
			status = http.StatusCreated
			err = catalog.settings.Upsert(ctx, &settings, "user_id", "color", "updated_at")
		} else {
			err = catalog.settings.Save(ctx, &settings)
		}
		if err != nil {
			routes.internalError(contextGin, "settings.save", err)
			return
		}
		saved, err := catalog.SettingsFor(ctx, userID)
		if err != nil {
			routes.internalError(contextGin, "settings.reload", err)
			return
		}
		contextGin.JSON(status, saved)
	}
}

func handleReferenceList[T any](routes *routeContext, repository Repository[T], name string) gin.HandlerFunc {
	return func(contextGin *gin.Context) {
		records, err := repository.List(contextGin.Request.Context())
		if err != nil {
			routes.internalError(contextGin, name+".list", err)
			return
		}
		contextGin.JSON(http.StatusOK, records)
	}
}

func handleReferenceCreate[T any](routes *routeContext, repository Repository[T], name string) gin.HandlerFunc {
	return func(contextGin *gin.Context) {
		if !authkit.IsStaff(contextGin) {
			apierror.Abort(contextGin, http.StatusForbidden, apierror.CodeForbidden)
			return
		}
		record := new(T)
		if err := contextGin.ShouldBindJSON(record); err != nil {
			apierror.AbortBinding(contextGin, err)
			return
		}
		if err := repository.Create(contextGin.Request.Context(), record); err != nil {
			routes.internalError(contextGin, name+".create", err)
			return
		}
		contextGin.JSON(http.StatusCreated, record)
	}
}
