package auth

import (
	"context"
	"errors"
	"time"

	"github.com/franciscosanchezn/gin-refresh-grant/internal/models"
)

var (
	ErrTokenNotFound  = errors.New("token not found")
	ErrAlreadyRotated = errors.New("refresh token already rotated or revoked")
)

// TokenStore persists access token records
type TokenStore interface {
	// FindByRefreshToken returns ErrTokenNotFound when no record carries the value
	FindByRefreshToken(ctx context.Context, refresh string) (*models.OAuthToken, error)
	// FindByAccessToken returns ErrTokenNotFound when no record carries the value
	FindByAccessToken(ctx context.Context, access string) (*models.OAuthToken, error)
	Create(ctx context.Context, token *models.OAuthToken) error
	// RevokeAt records a revocation time. It does nothing and reports false
	// when the token is already revoked.
	RevokeAt(ctx context.Context, token *models.OAuthToken, at time.Time) (bool, error)
	// MarkRotated claims the token for a successor. Only one caller can win;
	// every other caller, and any caller on a revoked token, gets ErrAlreadyRotated.
	MarkRotated(ctx context.Context, token *models.OAuthToken, successorID string, at time.Time) error
	// Transaction runs fn against a store bound to a single transaction
	Transaction(ctx context.Context, fn func(store TokenStore) error) error
}
