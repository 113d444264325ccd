package auth

import (
	"testing"
	"time"

	"github.com/franciscosanchezn/gin-refresh-grant/internal/models"
	"github.com/franciscosanchezn/gin-refresh-grant/internal/services"
	"github.com/go-oauth2/oauth2/v4/generates"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

var testNow = time.Date(2026, 3, 14, 15, 9, 26, 0, time.UTC)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	// A single connection keeps every session on the same in-memory database
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	err = db.AutoMigrate(&models.OAuthClient{}, &models.OAuthToken{})
	require.NoError(t, err)

	return db
}

func createTestClient(t *testing.T, db *gorm.DB, id, secret string) *models.OAuthClient {
	t.Helper()

	hashedSecret, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.MinCost)
	require.NoError(t, err)

	client := &models.OAuthClient{
		ID:     id,
		Secret: string(hashedSecret),
		Name:   id,
		Scopes: "public write",
	}
	require.NoError(t, db.Create(client).Error)
	return client
}

type tokenOption func(*models.OAuthToken)

func withRevokedAt(at time.Time) tokenOption {
	return func(t *models.OAuthToken) { t.RevokedAt = &at }
}

func withCreatedAt(at time.Time) tokenOption {
	return func(t *models.OAuthToken) { t.CreatedAt = at }
}

func withExpiresIn(seconds int64) tokenOption {
	return func(t *models.OAuthToken) { t.ExpiresIn = seconds }
}

// createTestToken stores a token pair owned by client (nil for clientless)
func createTestToken(t *testing.T, db *gorm.DB, client *models.OAuthClient, scopes string, opts ...tokenOption) *models.OAuthToken {
	t.Helper()

	owner := "user-42"
	refresh := "refresh-" + uuid.New().String()
	token := &models.OAuthToken{
		ID:              uuid.New().String(),
		ResourceOwnerID: &owner,
		AccessToken:     "access-" + uuid.New().String(),
		RefreshToken:    &refresh,
		Scopes:          scopes,
		ExpiresIn:       7200,
		CreatedAt:       testNow.Add(-time.Minute),
	}
	if client != nil {
		clientID := client.ID
		token.ClientID = &clientID
	}
	for _, opt := range opts {
		opt(token)
	}
	require.NoError(t, db.Create(token).Error)
	return token
}

func reloadToken(t *testing.T, db *gorm.DB, id string) *models.OAuthToken {
	t.Helper()

	var token models.OAuthToken
	require.NoError(t, db.First(&token, "id = ?", id).Error)
	return &token
}

func countTokens(t *testing.T, db *gorm.DB, client *models.OAuthClient) int64 {
	t.Helper()

	var count int64
	query := db.Model(&models.OAuthToken{})
	if client != nil {
		query = query.Where("client_id = ?", client.ID)
	}
	require.NoError(t, query.Count(&count).Error)
	return count
}

func newTestGrant(db *gorm.DB, policy *Policy) *RefreshGrant {
	return NewRefreshGrant(
		policy,
		NewGormTokenStore(db),
		NewCredentialValidator(services.NewClientService(db)),
		NewAccessGenerator(generates.NewAccessGenerate()),
		WithClock(func() time.Time { return testNow }),
	)
}

func defaultPolicy() *Policy {
	return &Policy{
		AccessTokenLifetime: 120 * time.Second,
		RotateRefreshTokens: true,
	}
}

func strPtr(s string) *string {
	return &s
}

func oauthCode(t *testing.T, err error) string {
	t.Helper()

	oauthErr, ok := err.(*models.OAuth2Error)
	require.True(t, ok, "expected *models.OAuth2Error, got %T (%v)", err, err)
	return oauthErr.Code
}
