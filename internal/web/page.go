package web

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/tyemirov/portfolio/internal/portfolio"
	webassets "github.com/tyemirov/portfolio/web"
	"go.uber.org/zap"
)

// StaticPrefix is where the embedded stylesheet is mounted.
const StaticPrefix = "/static"

// PortfolioLoader assembles the public portfolio of a user.
type PortfolioLoader interface {
	Load(ctx context.Context, userID uint) (portfolio.Portfolio, error)
}

// SettingsSource resolves a user's presentation settings, falling back to defaults.
type SettingsSource interface {
	SettingsFor(ctx context.Context, userID uint) (portfolio.Settings, error)
}

// PortfolioSource serves both the page and its theme.
type PortfolioSource interface {
	PortfolioLoader
	SettingsSource
}

type pageView struct {
	portfolio.Portfolio
	StaticPrefix string
	ThemeURL     string
}

var portfolioTemplate = template.Must(template.New("portfolio.tmpl").Funcs(template.FuncMap{
	"price": func(value *float64) string {
		if value == nil {
			return ""
		}
		return strconv.FormatFloat(*value, 'f', 2, 64)
	},
}).ParseFS(webassets.Templates, "templates/portfolio.tmpl"))

// MountPublicPages registers the portfolio page, its theme stylesheet, and the static assets.
func MountPublicPages(router gin.IRouter, logger *zap.Logger, source PortfolioSource) {
	if logger == nil {
		logger = zap.NewNop()
	}
	router.GET(StaticPrefix+"/:name", func(contextGin *gin.Context) {
		ServeEmbeddedStatic(contextGin, webassets.FS, "static/"+contextGin.Param("name"))
	})
	router.GET("/p/:user_id", HandlePortfolioPage(logger, source))
	router.GET("/p/:user_id/theme.css", HandleThemeStylesheet(logger, source))
}

// HandlePortfolioPage renders the public HTML portfolio of :user_id.
func HandlePortfolioPage(logger *zap.Logger, loader PortfolioLoader) gin.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}
	if loader == nil {
		panic("portfolio loader is required")
	}
	return func(contextGin *gin.Context) {
		result, ok := loadPortfolio(contextGin, logger, loader)
		if !ok {
			return
		}
		view := pageView{
			Portfolio:    result,
			StaticPrefix: StaticPrefix,
			ThemeURL:     fmt.Sprintf("/p/%d/theme.css", result.User.ID),
		}
		var rendered bytes.Buffer
		if err := portfolioTemplate.Execute(&rendered, view); err != nil {
			logger.Error("portfolio page render failed",
				zap.String("code", "web.page.render"),
				zap.Uint("user_id", result.User.ID),
				zap.Error(err))
			contextGin.AbortWithStatus(http.StatusInternalServerError)
			return
		}
		contextGin.Header("X-Content-Type-Options", "nosniff")
		contextGin.Data(http.StatusOK, "text/html; charset=utf-8", rendered.Bytes())
	}
}

func userIDParam(contextGin *gin.Context) (uint, bool) {
	userID, parseErr := strconv.ParseUint(contextGin.Param("user_id"), 10, 64)
	if parseErr != nil || userID == 0 {
		contextGin.AbortWithStatus(http.StatusNotFound)
		return 0, false
	}
	return uint(userID), true
}

func loadPortfolio(contextGin *gin.Context, logger *zap.Logger, loader PortfolioLoader) (portfolio.Portfolio, bool) {
	userID, ok := userIDParam(contextGin)
	if !ok {
		return portfolio.Portfolio{}, false
	}
	result, err := loader.Load(contextGin.Request.Context(), userID)
	if err != nil {
		if errors.Is(err, portfolio.ErrNotFound) {
			contextGin.AbortWithStatus(http.StatusNotFound)
			return portfolio.Portfolio{}, false
		}
		logger.Error("portfolio lookup failed",
			zap.String("code", "web.page.load"),
			zap.Uint("user_id", userID),
			zap.Error(err))
		contextGin.AbortWithStatus(http.StatusInternalServerError)
		return portfolio.Portfolio{}, false
	}
	return result, true
}
