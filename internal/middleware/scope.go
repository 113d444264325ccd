package middleware

import (
	"net/http"
	"strings"

	"github.com/franciscosanchezn/gin-refresh-grant/internal/models"
	"github.com/gin-gonic/gin"
)

// RequireScope is a middleware that checks the access token carries the required scope.
// It must run after OAuth2Auth.
func RequireScope(requiredScope string) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, exists := TokenFromContext(c)
		if !exists {
			respondWithOAuth2Error(c, http.StatusUnauthorized, models.ErrInvalidToken, "access token not authenticated")
			return
		}

		for _, scope := range strings.Fields(token.Scopes) {
			if scope == requiredScope {
				c.Next()
				return
			}
		}

		c.Header("WWW-Authenticate", `Bearer error="insufficient_scope", scope="`+requiredScope+`"`)
		c.JSON(http.StatusForbidden, models.NewOAuth2Error(models.ErrInsufficientScope, "scope "+requiredScope+" is required"))
		c.Abort()
	}
}
