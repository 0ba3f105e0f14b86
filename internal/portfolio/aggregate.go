package portfolio

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/tyemirov/portfolio/internal/apierror"
	"github.com/tyemirov/portfolio/internal/authkit"
)

// Portfolio is the public view of everything a user has published.
type Portfolio struct {
	User        authkit.Profile `json:"user"`
	Settings    Settings        `json:"settings"`
	Experiences []Experience    `json:"experiences"`
	Educations  []Education     `json:"educations"`
	Skills      []Skill         `json:"skills"`
	Socials     []Social        `json:"socials"`
	Projects    []Project       `json:"projects"`
	Services    []Service       `json:"services"`
	Articles    []Article       `json:"articles"`
}

// Load assembles the public portfolio of userID.
func (catalog *Catalog) Load(ctx context.Context, userID uint) (Portfolio, error) {
	user, err := catalog.users.GetUser(ctx, userID)
	if err != nil {
		if errors.Is(err, authkit.ErrUserNotFound) {
			return Portfolio{}, fmt.Errorf("portfolio.load: %w", ErrNotFound)
		}
		return Portfolio{}, fmt.Errorf("portfolio.load: %w", err)
	}
	resources := catalog.resources
	result := Portfolio{User: user.PublicProfile()}
	if result.Settings, err = catalog.SettingsFor(ctx, userID); err != nil {
		return Portfolio{}, err
	}
	if result.Experiences, err = resources.experiences.publicList(ctx, userID); err != nil {
		return Portfolio{}, err
	}
	if result.Educations, err = resources.educations.publicList(ctx, userID); err != nil {
		return Portfolio{}, err
	}
	if result.Skills, err = resources.skills.publicList(ctx, userID); err != nil {
		return Portfolio{}, err
	}
	if result.Socials, err = resources.socials.publicList(ctx, userID); err != nil {
		return Portfolio{}, err
	}
	if result.Projects, err = resources.projects.publicList(ctx, userID); err != nil {
		return Portfolio{}, err
	}
	if result.Services, err = resources.services.publicList(ctx, userID); err != nil {
		return Portfolio{}, err
	}
	if result.Articles, err = resources.articles.publicList(ctx, userID); err != nil {
		return Portfolio{}, err
	}
	return result, nil
}

func (resource *Resource[T]) publicList(ctx context.Context, userID uint) ([]T, error) {
	if resource.public == nil {
		return resource.repository.ListByOwner(ctx, userID)
	}
	return resource.repository.ListByOwner(ctx, userID, resource.public)
}

func (catalog *Catalog) handlePortfolio(routes *routeContext) gin.HandlerFunc {
	return func(contextGin *gin.Context) {
		userID, ok := pathID(contextGin, "user_id")
		if !ok {
			return
		}
		result, err := catalog.Load(contextGin.Request.Context(), userID)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				apierror.Abort(contextGin, http.StatusNotFound, apierror.CodeNotFound)
				return
			}
			routes.internalError(contextGin, "aggregate", err)
			return
		}
		contextGin.JSON(http.StatusOK, result)
	}
}
