package middleware

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/franciscosanchezn/gin-refresh-grant/internal/auth"
	"github.com/franciscosanchezn/gin-refresh-grant/internal/models"
	"github.com/gin-gonic/gin"
)

const accessTokenKey = "accessToken"

// OAuth2Auth authenticates requests with a Bearer access token (RFC 6750).
// The token must exist in the store, be unexpired, and have no revocation in
// effect; a revocation scheduled for the future still lets it through.
func OAuth2Auth(store auth.TokenStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			respondWithOAuth2Error(c, http.StatusUnauthorized, models.ErrInvalidRequest,
				"Missing Authorization header. A valid Bearer token is required.")
			return
		}

		// Validate Bearer scheme format
		if !strings.HasPrefix(authHeader, "Bearer ") {
			respondWithOAuth2Error(c, http.StatusUnauthorized, models.ErrInvalidRequest,
				"Authorization header must use Bearer scheme. Format: 'Bearer <token>'")
			return
		}

		tokenString := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
		if tokenString == "" {
			respondWithOAuth2Error(c, http.StatusUnauthorized, models.ErrInvalidToken, "Bearer token is empty")
			return
		}

		token, err := store.FindByAccessToken(c.Request.Context(), tokenString)
		if errors.Is(err, auth.ErrTokenNotFound) {
			respondWithOAuth2Error(c, http.StatusUnauthorized, models.ErrInvalidToken, "unknown access token")
			return
		}
		if err != nil {
			respondWithOAuth2Error(c, http.StatusInternalServerError, models.ErrServerError, "access token lookup failed")
			return
		}

		if !token.IsAccessible(time.Now()) {
			respondWithOAuth2Error(c, http.StatusUnauthorized, models.ErrInvalidToken, "access token is expired or revoked")
			return
		}

		c.Set(accessTokenKey, token)
		c.Set("clientID", token.ClientRef())
		c.Set("scopes", token.Scopes)

		c.Next()
	}
}

// TokenFromContext returns the access token stored by OAuth2Auth
func TokenFromContext(c *gin.Context) (*models.OAuthToken, bool) {
	value, exists := c.Get(accessTokenKey)
	if !exists {
		return nil, false
	}
	token, ok := value.(*models.OAuthToken)
	return token, ok
}

// respondWithOAuth2Error responds with RFC 6750 compliant error format
func respondWithOAuth2Error(c *gin.Context, status int, errorCode, description string) {
	if status == http.StatusUnauthorized {
		c.Header("WWW-Authenticate", `Bearer error="`+errorCode+`"`)
	}
	c.JSON(status, models.NewOAuth2Error(errorCode, description))
	c.Abort()
}
