package portfolio

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/tyemirov/portfolio/internal/apierror"
	"github.com/tyemirov/portfolio/internal/authkit"
	"github.com/tyemirov/portfolio/internal/media"
	"github.com/tyemirov/portfolio/pkg/sessionvalidator"
	"go.uber.org/zap"
)

// upload attaches an optional multipart file to a string field of the record.
// The field is server owned: only a stored upload or the clear flag change it.
type upload[T any] struct {
	field    string
	category media.Category
	target   func(*T) *string
	clear    func(*T) *bool
}

// keep restores the server-owned reference after binding, dropping it when
// the clear flag is set.
func (attachment *upload[T]) keep(record *T, current string) {
	cleared := attachment.clear(record)
	if *cleared {
		current = ""
	}
	*cleared = false
	*attachment.target(record) = current
}

// Resource describes an owned model exposed through the standard CRUD routes.
type Resource[T any] struct {
	name       string
	repository Repository[T]
	base       func(*T) *Base
	defaults   func(*T)
	prepare    func(ctx context.Context, record *T, now time.Time) (map[string]string, error)
	upload     *upload[T]
	public     Scope
}

type routeContext struct {
	users   UserLookup
	images  media.Uploader
	logger  *zap.Logger
	clock   authkit.Clock
	session gin.HandlerFunc
}

func (resource *Resource[T]) newRecord() *T {
	record := new(T)
	if resource.defaults != nil {
		resource.defaults(record)
	}
	return record
}

func (resource *Resource[T]) mount(router gin.IRouter, routes *routeContext) {
	group := router.Group("/" + resource.name)
	group.GET("/user/:user_id", resource.handleListByUser(routes))
	group.GET("", routes.session, resource.handleList(routes))
	group.POST("", routes.session, resource.handleCreate(routes))
	group.GET("/:id", routes.session, resource.handleGet(routes))
	group.PUT("/:id", routes.session, resource.handleUpdate(routes, false))
	group.PATCH("/:id", routes.session, resource.handleUpdate(routes, true))
	group.DELETE("/:id", routes.session, resource.handleDelete(routes))
}

func (resource *Resource[T]) handleList(routes *routeContext) gin.HandlerFunc {
	return func(contextGin *gin.Context) {
		records, err := resource.repository.ListByOwner(contextGin.Request.Context(), authkit.CurrentUserID(contextGin))
		if err != nil {
			routes.internalError(contextGin, resource.name+".list", err)
			return
		}
		contextGin.JSON(http.StatusOK, records)
	}
}

func (resource *Resource[T]) handleListByUser(routes *routeContext) gin.HandlerFunc {
	return func(contextGin *gin.Context) {
		userID, ok := pathID(contextGin, "user_id")
		if !ok {
			return
		}
		if !routes.requireUser(contextGin, userID) {
			return
		}
		scopes := []Scope{}
		if resource.public != nil {
			scopes = append(scopes, resource.public)
		}
		records, err := resource.repository.ListByOwner(contextGin.Request.Context(), userID, scopes...)
		if err != nil {
			routes.internalError(contextGin, resource.name+".list_by_user", err)
			return
		}
		contextGin.JSON(http.StatusOK, records)
	}
}

func (resource *Resource[T]) handleGet(routes *routeContext) gin.HandlerFunc {
	return func(contextGin *gin.Context) {
		record, ok := resource.loadOwned(contextGin, routes)
		if !ok {
			return
		}
		contextGin.JSON(http.StatusOK, record)
	}
}

func (resource *Resource[T]) handleCreate(routes *routeContext) gin.HandlerFunc {
	return func(contextGin *gin.Context) {
		record := resource.newRecord()
		if err := contextGin.ShouldBind(record); err != nil {
			apierror.AbortBinding(contextGin, err)
			return
		}
		*resource.base(record) = Base{UserID: authkit.CurrentUserID(contextGin)}
		if resource.upload != nil {
			resource.upload.keep(record, "")
		}
		if !resource.write(contextGin, routes, record, "", true) {
			return
		}
		contextGin.JSON(http.StatusCreated, record)
	}
}

func (resource *Resource[T]) handleUpdate(routes *routeContext, partial bool) gin.HandlerFunc {
	return func(contextGin *gin.Context) {
		existing, ok := resource.loadOwned(contextGin, routes)
		if !ok {
			return
		}
		record := resource.newRecord()
		if partial {
			copied := existing
			record = &copied
		}
		if err := contextGin.ShouldBind(record); err != nil {
			apierror.AbortBinding(contextGin, err)
			return
		}
		*resource.base(record) = *resource.base(&existing)
		previousObject := ""
		if resource.upload != nil {
			previousObject = *resource.upload.target(&existing)
			resource.upload.keep(record, previousObject)
		}
		if !resource.write(contextGin, routes, record, previousObject, false) {
			return
		}
		contextGin.JSON(http.StatusOK, record)
	}
}

func (resource *Resource[T]) handleDelete(routes *routeContext) gin.HandlerFunc {
	return func(contextGin *gin.Context) {
		record, ok := resource.loadOwned(contextGin, routes)
		if !ok {
			return
		}
		ctx := contextGin.Request.Context()
		if err := resource.repository.Delete(ctx, &record); err != nil {
			routes.internalError(contextGin, resource.name+".delete", err)
			return
		}
		if resource.upload != nil {
			routes.removeObject(ctx, *resource.upload.target(&record))
		}
		contextGin.Status(http.StatusNoContent)
	}
}

// write stores the uploaded file if any, runs prepare, and persists record.
// previousObject is removed once the record no longer references it.
func (resource *Resource[T]) write(contextGin *gin.Context, routes *routeContext, record *T, previousObject string, create bool) bool {
	ctx := contextGin.Request.Context()
	uploaded := ""
	if resource.upload != nil {
		reference, problem := routes.storeUpload(contextGin, resource.upload.field, resource.upload.category)
		if problem != "" {
			apierror.AbortFields(contextGin, map[string]string{resource.upload.field: problem})
			return false
		}
		if reference != "" {
			uploaded = reference
			*resource.upload.target(record) = reference
		}
	}
	discard := func() {
		if uploaded != "" {
			routes.removeObject(ctx, uploaded)
		}
	}
	if resource.prepare != nil {
		fields, err := resource.prepare(ctx, record, routes.clock.Now().UTC())
		if err != nil {
			discard()
			routes.internalError(contextGin, resource.name+".prepare", err)
			return false
		}
		if len(fields) > 0 {
			discard()
			apierror.AbortFields(contextGin, fields)
			return false
		}
	}
	var saveErr error
	if create {
		saveErr = resource.repository.Create(ctx, record)
	} else {
		saveErr = resource.repository.Save(ctx, record)
	}
	if saveErr != nil {
		discard()
		routes.internalError(contextGin, resource.name+".save", saveErr)
		return false
	}
	if reloadErr := resource.repository.Reload(ctx, record); reloadErr != nil {
		routes.logger.Warn("record reload failed", zap.String("code", "portfolio."+resource.name+".reload"), zap.Error(reloadErr))
	}
	if resource.upload != nil && previousObject != "" && previousObject != *resource.upload.target(record) {
		routes.removeObject(ctx, previousObject)
	}
	return true
}

func (resource *Resource[T]) loadOwned(contextGin *gin.Context, routes *routeContext) (T, bool) {
	var empty T
	id, ok := pathID(contextGin, "id")
	if !ok {
		return empty, false
	}
	record, err := resource.repository.Get(contextGin.Request.Context(), id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			apierror.Abort(contextGin, http.StatusNotFound, apierror.CodeNotFound)
			return empty, false
		}
		routes.internalError(contextGin, resource.name+".get", err)
		return empty, false
	}
	if resource.base(&record).UserID != authkit.CurrentUserID(contextGin) {
		apierror.Abort(contextGin, http.StatusNotFound, apierror.CodeNotFound)
		return empty, false
	}
	return record, true
}

func (routes *routeContext) storeUpload(contextGin *gin.Context, field string, category media.Category) (string, string) {
	if !strings.HasPrefix(contextGin.ContentType(), "multipart/form-data") {
		return "", ""
	}
	file, fileErr := contextGin.FormFile(field)
	if fileErr != nil {
		return "", ""
	}
	if routes.images == nil {
		return "", "uploads are not enabled"
	}
	owner := ""
	if claims, ok := sessionvalidator.ClaimsFromContext(contextGin); ok {
		owner = claims.GetUsername()
	}
	reference, err := routes.images.SaveUpload(contextGin.Request.Context(), category, owner, file)
	if err != nil {
		switch {
		case errors.Is(err, media.ErrTooLarge):
			return "", "file is too large, maximum size is 5MB"
		case errors.Is(err, media.ErrUnsupportedType):
			if category.AllowSVG {
				return "", "unsupported file format, accepted formats: jpg, jpeg, png, webp, svg"
			}
			return "", "unsupported file format, accepted formats: jpg, jpeg, png, webp"
		default:
			routes.logger.Error("upload failed", zap.String("code", "portfolio.upload.error"), zap.Error(err))
			return "", "the file could not be stored"
		}
	}
	return reference, ""
}

func (routes *routeContext) removeObject(ctx context.Context, reference string) {
	if routes.images == nil || reference == "" {
		return
	}
	if err := routes.images.Delete(ctx, reference); err != nil {
		routes.logger.Warn("object cleanup failed", zap.String("code", "portfolio.upload.cleanup"), zap.String("reference", reference), zap.Error(err))
	}
}

func (routes *routeContext) requireUser(contextGin *gin.Context, userID uint) bool {
	if _, err := routes.users.GetUser(contextGin.Request.Context(), userID); err != nil {
		if errors.Is(err, authkit.ErrUserNotFound) {
			apierror.Abort(contextGin, http.StatusNotFound, apierror.CodeNotFound)
			return false
		}
		routes.internalError(contextGin, "user_lookup", err)
		return false
	}
	return true
}

func (routes *routeContext) internalError(contextGin *gin.Context, operation string, err error) {
	routes.logger.Error("portfolio operation failed", zap.String("code", "portfolio."+operation), zap.Error(err))
	apierror.Abort(contextGin, http.StatusInternalServerError, apierror.CodeInternal)
}

func pathID(contextGin *gin.Context, name string) (uint, bool) {
	value, err := strconv.ParseUint(contextGin.Param(name), 10, 64)
	if err != nil || value == 0 {
		apierror.Abort(contextGin, http.StatusNotFound, apierror.CodeNotFound)
		return 0, false
	}
	return uint(value), true
}
