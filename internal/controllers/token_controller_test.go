package controllers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/franciscosanchezn/gin-refresh-grant/internal/auth"
	"github.com/franciscosanchezn/gin-refresh-grant/internal/config"
	"github.com/franciscosanchezn/gin-refresh-grant/internal/middleware"
	"github.com/franciscosanchezn/gin-refresh-grant/internal/models"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(&models.OAuthClient{}, &models.OAuthToken{}))
	return db
}

type fixture struct {
	db      *gorm.DB
	router  *gin.Engine
	refresh string
}

// setupRouter registers the token routes over a database holding one client
// ("test_client_id"/"test_secret") and one token pair issued to it
func setupRouter(t *testing.T, cfg *config.Config) fixture {
	db := setupTestDB(t)

	hashedSecret, err := bcrypt.GenerateFromPassword([]byte("test_secret"), bcrypt.MinCost)
	require.NoError(t, err)
	client := &models.OAuthClient{ID: "test_client_id", Secret: string(hashedSecret), Scopes: "public write"}
	require.NoError(t, db.Create(client).Error)

	clientID, owner, refresh := client.ID, "user-1", uuid.New().String()
	token := &models.OAuthToken{
		ID:              uuid.New().String(),
		ClientID:        &clientID,
		ResourceOwnerID: &owner,
		AccessToken:     uuid.New().String(),
		RefreshToken:    &refresh,
		Scopes:          "public write",
		ExpiresIn:       60,
		CreatedAt:       time.Now().Add(-time.Hour),
	}
	require.NoError(t, db.Create(token).Error)

	oauthService := auth.NewOAuthService(db, cfg)
	controller := NewTokenController(oauthService.Grant())

	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.POST("/oauth/token", controller.HandleToken)
	router.GET("/oauth/token/info", middleware.OAuth2Auth(oauthService.Store()), controller.TokenInfo)

	return fixture{db: db, router: router, refresh: refresh}
}

func testConfig() *config.Config {
	return &config.Config{AccessTokenLifetime: 2 * time.Hour, RefreshTokenRotation: true}
}

func postToken(router *gin.Engine, form url.Values, basicUser, basicPass string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/oauth/token", bytes.NewBufferString(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if basicUser != "" {
		req.SetBasicAuth(basicUser, basicPass)
	}

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	var response map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	return response
}

func TestRefreshTokenFlow(t *testing.T) {
	f := setupRouter(t, testConfig())

	w := postToken(f.router, url.Values{
		"grant_type":    {"refresh_token"},
		"refresh_token": {f.refresh},
		"client_id":     {"test_client_id"},
		"client_secret": {"test_secret"},
	}, "", "")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "no-store", w.Header().Get("Cache-Control"))

	response := decode(t, w)
	assert.Equal(t, "Bearer", response["token_type"])
	assert.Equal(t, float64(7200), response["expires_in"])
	assert.Equal(t, "public write", response["scope"])
	assert.NotEmpty(t, response["access_token"])
	assert.NotEmpty(t, response["refresh_token"])
	assert.NotEqual(t, f.refresh, response["refresh_token"])
}

func TestRefreshTokenFlowWithBasicAuth(t *testing.T) {
	f := setupRouter(t, testConfig())

	w := postToken(f.router, url.Values{
		"grant_type":    {"refresh_token"},
		"refresh_token": {f.refresh},
		"scope":         {"public"},
		"scopes":        {"write"},
	}, "test_client_id", "test_secret")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "public", decode(t, w)["scope"])
}

func TestRefreshTokenFlowWithoutClientCredentials(t *testing.T) {
	f := setupRouter(t, testConfig())

	w := postToken(f.router, url.Values{"grant_type": {"refresh_token"}, "refresh_token": {f.refresh}}, "", "")
	require.Equal(t, http.StatusOK, w.Code)

	info := getTokenInfo(f.router, decode(t, w)["access_token"].(string))
	require.Equal(t, http.StatusOK, info.Code)
	assert.Equal(t, map[string]interface{}{"uid": "test_client_id"}, decode(t, info)["application"])
}

func TestSetLogLevel(t *testing.T) {
	t.Cleanup(func() { SetLogLevel(logrus.InfoLevel) })

	SetLogLevel(logrus.DebugLevel)
	assert.Equal(t, logrus.DebugLevel, log.GetLevel())
}

func TestRefreshTokenFlowErrors(t *testing.T) {
	testCases := []struct {
		name      string
		form      func(refresh string) url.Values
		basicUser string
		basicPass string
		status    int
		errorCode string
	}{
		{
			name:      "missing grant type",
			form:      func(string) url.Values { return url.Values{"refresh_token": {"x"}} },
			status:    http.StatusBadRequest,
			errorCode: models.ErrInvalidRequest,
		},
		{
			name: "unsupported grant type",
			form: func(string) url.Values {
				return url.Values{"grant_type": {"client_credentials"}, "client_id": {"test_client_id"}, "client_secret": {"test_secret"}}
			},
			status:    http.StatusBadRequest,
			errorCode: models.ErrUnsupportedGrantType,
		},
		{
			name: "missing refresh token",
			form: func(string) url.Values {
				return url.Values{"grant_type": {"refresh_token"}, "client_id": {"test_client_id"}, "client_secret": {"test_secret"}}
			},
			status:    http.StatusBadRequest,
			errorCode: models.ErrInvalidRequest,
		},
		{
			name: "unknown refresh token",
			form: func(string) url.Values {
				return url.Values{"grant_type": {"refresh_token"}, "refresh_token": {"nope"}, "client_id": {"test_client_id"}, "client_secret": {"test_secret"}}
			},
			status:    http.StatusBadRequest,
			errorCode: models.ErrInvalidGrant,
		},
		{
			name: "wrong client secret",
			form: func(refresh string) url.Values {
				return url.Values{"grant_type": {"refresh_token"}, "refresh_token": {refresh}, "client_id": {"test_client_id"}, "client_secret": {"wrong_secret"}}
			},
			status:    http.StatusUnauthorized,
			errorCode: models.ErrInvalidClient,
		},
		{
			name: "scope beyond the grant",
			form: func(refresh string) url.Values {
				return url.Values{"grant_type": {"refresh_token"}, "refresh_token": {refresh}, "scope": {"public update"}}
			},
			basicUser: "test_client_id",
			basicPass: "test_secret",
			status:    http.StatusBadRequest,
			errorCode: models.ErrInvalidScope,
		},
		{
			name: "two client authentication methods",
			form: func(refresh string) url.Values {
				return url.Values{"grant_type": {"refresh_token"}, "refresh_token": {refresh}, "client_id": {"test_client_id"}}
			},
			basicUser: "test_client_id",
			basicPass: "test_secret",
			status:    http.StatusBadRequest,
			errorCode: models.ErrInvalidRequest,
		},
	}

	for _, tt := range testCases {
		t.Run(tt.name, func(t *testing.T) {
			f := setupRouter(t, testConfig())

			w := postToken(f.router, tt.form(f.refresh), tt.basicUser, tt.basicPass)

			assert.Equal(t, tt.status, w.Code)
			response := decode(t, w)
			assert.Equal(t, tt.errorCode, response["error"])
			assert.NotEmpty(t, response["error_description"])
			assert.NotContains(t, response, "access_token")
		})
	}
}

func TestRefreshTokenReplayIsRejected(t *testing.T) {
	f := setupRouter(t, testConfig())
	form := url.Values{"grant_type": {"refresh_token"}, "refresh_token": {f.refresh}}

	first := postToken(f.router, form, "test_client_id", "test_secret")
	require.Equal(t, http.StatusOK, first.Code)

	second := postToken(f.router, form, "test_client_id", "test_secret")
	assert.Equal(t, http.StatusBadRequest, second.Code)
	assert.Equal(t, models.ErrInvalidGrant, decode(t, second)["error"])
}

func getTokenInfo(router *gin.Engine, accessToken string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/oauth/token/info", nil)
	if accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+accessToken)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestTokenInfo(t *testing.T) {
	f := setupRouter(t, testConfig())

	w := postToken(f.router, url.Values{"grant_type": {"refresh_token"}, "refresh_token": {f.refresh}, "scope": {"write"}},
		"test_client_id", "test_secret")
	require.Equal(t, http.StatusOK, w.Code)
	accessToken := decode(t, w)["access_token"].(string)

	info := getTokenInfo(f.router, accessToken)
	assert.Equal(t, http.StatusOK, info.Code)

	body := decode(t, info)
	assert.Equal(t, "user-1", body["resource_owner_id"])
	assert.Equal(t, []interface{}{"write"}, body["scope"])
	assert.Equal(t, map[string]interface{}{"uid": "test_client_id"}, body["application"])
	assert.InDelta(t, 7200, body["expires_in"], 5)
}

func TestTokenInfoDuringRevocationWindow(t *testing.T) {
	cfg := testConfig()
	cfg.RefreshTokenRevocationDelay = time.Hour
	f := setupRouter(t, cfg)

	previous, err := auth.NewGormTokenStore(f.db).FindByRefreshToken(context.Background(), f.refresh)
	require.NoError(t, err)
	// Give the presented token an unexpired access lifetime
	require.NoError(t, f.db.Model(previous).Update("expires_in", 7200).Error)

	w := postToken(f.router, url.Values{"grant_type": {"refresh_token"}, "refresh_token": {f.refresh}},
		"test_client_id", "test_secret")
	require.Equal(t, http.StatusOK, w.Code)

	// The old access token stays usable until the delay elapses
	info := getTokenInfo(f.router, previous.AccessToken)
	assert.Equal(t, http.StatusOK, info.Code)
	assert.Contains(t, decode(t, info), "revoked_at")
}

func TestTokenInfoRejectsRevokedToken(t *testing.T) {
	f := setupRouter(t, testConfig())

	previous, err := auth.NewGormTokenStore(f.db).FindByRefreshToken(context.Background(), f.refresh)
	require.NoError(t, err)
	require.NoError(t, f.db.Model(previous).Update("expires_in", 7200).Error)

	w := postToken(f.router, url.Values{"grant_type": {"refresh_token"}, "refresh_token": {f.refresh}},
		"test_client_id", "test_secret")
	require.Equal(t, http.StatusOK, w.Code)

	info := getTokenInfo(f.router, previous.AccessToken)
	assert.Equal(t, http.StatusUnauthorized, info.Code)
	assert.Equal(t, models.ErrInvalidToken, decode(t, info)["error"])
}

type failingStore struct {
	auth.TokenStore
}

func (failingStore) FindByRefreshToken(context.Context, string) (*models.OAuthToken, error) {
	return nil, errors.New("database is locked")
}

func TestRefreshTokenStoreFailure(t *testing.T) {
	policy := &auth.Policy{AccessTokenLifetime: time.Hour}
	grant := auth.NewRefreshGrant(policy, failingStore{}, nil, nil)
	controller := NewTokenController(grant)

	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.POST("/oauth/token", controller.HandleToken)

	w := postToken(router, url.Values{"grant_type": {"refresh_token"}, "refresh_token": {"abc"}}, "", "")

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, models.ErrServerError, decode(t, w)["error"])
}
