package authkit

import (
	"github.com/gin-gonic/gin"
	"github.com/tyemirov/portfolio/pkg/sessionvalidator"
)

// RequireSession validates the bearer access token and injects claims.
func RequireSession(validator *sessionvalidator.Validator) gin.HandlerFunc {
	return validator.GinMiddleware(sessionvalidator.DefaultContextKey)
}

// CurrentUserID returns the authenticated user id, or zero when the request is anonymous.
func CurrentUserID(contextGin *gin.Context) uint {
	claims, ok := sessionvalidator.ClaimsFromContext(contextGin)
	if !ok {
		return 0
	}
	return claims.GetUserID()
}

// IsStaff reports whether the authenticated caller carries the staff role.
func IsStaff(contextGin *gin.Context) bool {
	claims, ok := sessionvalidator.ClaimsFromContext(contextGin)
	return ok && claims.HasRole(RoleStaff)
}
