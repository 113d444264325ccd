package controllers

import (
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/franciscosanchezn/gin-refresh-grant/internal/auth"
	"github.com/franciscosanchezn/gin-refresh-grant/internal/middleware"
	"github.com/franciscosanchezn/gin-refresh-grant/internal/models"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/sirupsen/logrus"
)

var log = logrus.New()

func init() {
	log.SetFormatter(&logrus.JSONFormatter{})
	log.SetLevel(logrus.InfoLevel)
}

// SetLogLevel adjusts the verbosity of the controller logger
func SetLogLevel(level logrus.Level) {
	log.SetLevel(level)
}

const grantTypeRefreshToken = "refresh_token"

// TokenController serves the token endpoint for the refresh_token grant
type TokenController struct {
	grant *auth.RefreshGrant
}

func NewTokenController(grant *auth.RefreshGrant) *TokenController {
	return &TokenController{grant: grant}
}

type tokenRequest struct {
	GrantType    string `form:"grant_type" binding:"required"`
	RefreshToken string `form:"refresh_token"`
	ClientID     string `form:"client_id"`
	ClientSecret string `form:"client_secret"`
}

// HandleToken exchanges a refresh token for a new access token
// @Summary Token Endpoint
// @Description Exchange a refresh token for a new access token. When both scope and scopes are sent, scope is used.
// @Tags OAuth2
// @Accept application/x-www-form-urlencoded
// @Produce json
// @Param grant_type formData string true "Grant type, must be refresh_token"
// @Param refresh_token formData string true "Refresh token"
// @Param client_id formData string false "Client ID (or HTTP Basic)"
// @Param client_secret formData string false "Client Secret (or HTTP Basic)"
// @Param scope formData string false "Space-delimited subset of the original scopes"
// @Param scopes formData string false "Alias of scope, ignored when scope is present"
// @Success 200 {object} auth.TokenResponse
// @Failure 400 {object} models.OAuth2Error
// @Failure 401 {object} models.OAuth2Error
// @Failure 500 {object} models.OAuth2Error
// @Router /oauth/token [post]
func (tc *TokenController) HandleToken(c *gin.Context) {
	c.Header("Cache-Control", "no-store")
	c.Header("Pragma", "no-cache")

	var req tokenRequest
	if err := c.ShouldBindWith(&req, binding.FormPost); err != nil {
		tc.respondWithError(c, models.NewInvalidRequest("missing grant_type"))
		return
	}

	switch req.GrantType {
	case grantTypeRefreshToken:
		tc.handleRefreshToken(c, req)
	default:
		tc.respondWithError(c, models.NewUnsupportedGrantType("grant type "+req.GrantType+" is not supported"))
	}
}

func (tc *TokenController) handleRefreshToken(c *gin.Context, req tokenRequest) {
	creds, oauthErr := clientCredentials(c, req)
	if oauthErr != nil {
		tc.respondWithError(c, oauthErr)
		return
	}

	var params auth.RefreshParams
	if scope, ok := c.GetPostForm("scope"); ok {
		params.Scope = &scope
	}
	if scopes, ok := c.GetPostForm("scopes"); ok {
		params.Scopes = &scopes
	}

	resp, err := tc.grant.Exchange(c.Request.Context(), req.RefreshToken, creds, params)
	if err != nil {
		tc.respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// clientCredentials reads HTTP Basic credentials, falling back to form fields.
// Both absent means a clientless request.
func clientCredentials(c *gin.Context, req tokenRequest) (*auth.ClientCredentials, *models.OAuth2Error) {
	if id, secret, ok := c.Request.BasicAuth(); ok {
		if req.ClientID != "" || req.ClientSecret != "" {
			return nil, models.NewInvalidRequest("multiple client authentication methods used")
		}
		// RFC 6749 section 2.3.1 form-encodes both values
		decodedID, err := url.QueryUnescape(id)
		if err != nil {
			return nil, models.NewInvalidClient("malformed client credentials")
		}
		decodedSecret, err := url.QueryUnescape(secret)
		if err != nil {
			return nil, models.NewInvalidClient("malformed client credentials")
		}
		return &auth.ClientCredentials{ID: decodedID, Secret: decodedSecret}, nil
	}

	if req.ClientID == "" && req.ClientSecret == "" {
		return nil, nil
	}
	return &auth.ClientCredentials{ID: req.ClientID, Secret: req.ClientSecret}, nil
}

// respondWithError writes an RFC 6749 error body. Anything that is not an
// OAuth2 error is logged and reported as server_error.
func (tc *TokenController) respondWithError(c *gin.Context, err error) {
	var oauthErr *models.OAuth2Error
	if !errors.As(err, &oauthErr) {
		log.WithFields(logrus.Fields{
			"path":  c.Request.URL.Path,
			"error": err.Error(),
		}).Error("Token request failed")
		c.JSON(http.StatusInternalServerError, models.NewServerError("the token could not be issued"))
		return
	}

	status := http.StatusBadRequest
	if oauthErr.Code == models.ErrInvalidClient {
		status = http.StatusUnauthorized
		if _, _, ok := c.Request.BasicAuth(); ok {
			c.Header("WWW-Authenticate", `Basic realm="oauth"`)
		}
	}
	c.JSON(status, oauthErr)
}

// TokenInfo describes the access token used to call it
// @Summary Token Info
// @Description Describe the bearer access token of the request
// @Tags OAuth2
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Failure 401 {object} models.OAuth2Error
// @Security BearerAuth
// @Router /oauth/token/info [get]
func (tc *TokenController) TokenInfo(c *gin.Context) {
	token, ok := middleware.TokenFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, models.NewOAuth2Error(models.ErrInvalidToken, "no access token in request"))
		return
	}

	expiresIn := int64(time.Until(token.ExpiresAt()) / time.Second)
	if expiresIn < 0 {
		expiresIn = 0
	}

	info := gin.H{
		"resource_owner_id": token.ResourceOwnerRef(),
		"scope":             strings.Fields(token.Scopes),
		"expires_in":        expiresIn,
		"created_at":        token.CreatedAt.Unix(),
		"application":       nil,
	}
	if token.ClientID != nil {
		info["application"] = gin.H{"uid": *token.ClientID}
	}
	if token.RevokedAt != nil {
		info["revoked_at"] = token.RevokedAt.Unix()
	}
	c.JSON(http.StatusOK, info)
}
