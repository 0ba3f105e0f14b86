package web

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/tyemirov/portfolio/internal/portfolio"
	"go.uber.org/zap"
)

var colorValidator = validator.New()

// HandleThemeStylesheet emits CSS custom properties derived from the user's settings colour.
func HandleThemeStylesheet(logger *zap.Logger, settings SettingsSource) gin.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}
	if settings == nil {
		panic("settings source is required")
	}
	return func(contextGin *gin.Context) {
		userID, ok := userIDParam(contextGin)
		if !ok {
			return
		}
		record, err := settings.SettingsFor(contextGin.Request.Context(), userID)
		if err != nil {
			logger.Error("theme settings lookup failed",
				zap.String("code", "web.theme.load"),
				zap.Uint("user_id", userID),
				zap.Error(err))
			contextGin.AbortWithStatus(http.StatusInternalServerError)
			return
		}
		color := record.Color
		if colorValidator.Var(color, "required,iscolor") != nil || strings.ContainsAny(color, ";{}<>") {
			logger.Warn("stored theme colour rejected",
				zap.String("code", "web.theme.invalid_color"),
				zap.Uint("user_id", userID),
				zap.String("color", color))
			color = portfolio.DefaultColor
		}
		stylesheet := fmt.Sprintf(":root{--primary:%s;--primary-contrast:%s;}\n", color, contrastColor(color))

		contextGin.Header("Cache-Control", "no-store, no-cache, must-revalidate, private")
		contextGin.Header("Pragma", "no-cache")
		contextGin.Header("X-Content-Type-Options", "nosniff")
		contextGin.Data(http.StatusOK, "text/css; charset=utf-8", []byte(stylesheet))
	}
}

// contrastColor picks black or white text for a hex background; other notations get white.
func contrastColor(color string) string {
	hex := strings.TrimPrefix(color, "#")
	if len(hex) == 3 || len(hex) == 4 {
		hex = string([]byte{hex[0], hex[0], hex[1], hex[1], hex[2], hex[2]})
	}
	if len(hex) < 6 || !strings.HasPrefix(color, "#") {
		return "#ffffff"
	}
	channels := make([]float64, 3)
	for index := range channels {
		value, err := strconv.ParseUint(hex[index*2:index*2+2], 16, 8)
		if err != nil {
			return "#ffffff"
		}
		channels[index] = float64(value)
	}
	luminance := 0.299*channels[0] + 0.587*channels[1] + 0.114*channels[2]
	if luminance > 186 {
		return "#000000"
	}
	return "#ffffff"
}
