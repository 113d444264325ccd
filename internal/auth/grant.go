package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/franciscosanchezn/gin-refresh-grant/internal/models"
	"github.com/sirupsen/logrus"
)

var log = logrus.New()

func init() {
	log.SetFormatter(&logrus.JSONFormatter{})
	log.SetLevel(logrus.InfoLevel)
}

// SetLogLevel adjusts the verbosity of the grant logger
func SetLogLevel(level logrus.Level) {
	log.SetLevel(level)
}

// ClientAuthenticator resolves client credentials. CredentialValidator implements it.
type ClientAuthenticator interface {
	Validate(ctx context.Context, creds *ClientCredentials) (*models.OAuthClient, error)
}

// RefreshGrant wires the collaborators shared by every refresh request
type RefreshGrant struct {
	policy    PolicyProvider
	store     TokenStore
	clients   ClientAuthenticator
	generator TokenGenerator
	now       func() time.Time
}

type GrantOption func(*RefreshGrant)

// WithClock replaces time.Now, mainly for tests
func WithClock(now func() time.Time) GrantOption {
	return func(g *RefreshGrant) {
		g.now = now
	}
}

func NewRefreshGrant(policy PolicyProvider, store TokenStore, clients ClientAuthenticator, generator TokenGenerator, opts ...GrantOption) *RefreshGrant {
	g := &RefreshGrant{
		policy:    policy,
		store:     store,
		clients:   clients,
		generator: generator,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// NewRequest builds a request for a presented token record. token is nil when
// no refresh token was presented; creds is nil for clientless requests.
func (g *RefreshGrant) NewRequest(token *models.OAuthToken, creds *ClientCredentials, params RefreshParams) *RefreshTokenRequest {
	return &RefreshTokenRequest{
		grant:       g,
		token:       token,
		credentials: creds,
		params:      params,
	}
}

// Exchange runs the whole grant for a raw refresh token value
func (g *RefreshGrant) Exchange(ctx context.Context, refreshToken string, creds *ClientCredentials, params RefreshParams) (*TokenResponse, error) {
	refreshToken = strings.TrimSpace(refreshToken)
	if refreshToken == "" {
		return nil, models.NewInvalidRequest("missing refresh_token")
	}

	token, err := g.store.FindByRefreshToken(ctx, refreshToken)
	if errors.Is(err, ErrTokenNotFound) {
		return nil, models.NewInvalidGrant("refresh token is invalid")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up refresh token: %w", err)
	}

	issued, err := g.NewRequest(token, creds, params).Authorize(ctx)
	if err != nil {
		return nil, err
	}
	return NewTokenResponse(issued), nil
}

// TokenResponse is the successful token endpoint body (RFC 6749 section 5.1)
type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
	Scope        string `json:"scope,omitempty"`
	RefreshToken string `json:"refresh_token,omitempty"`
	CreatedAt    int64  `json:"created_at"`
}

func NewTokenResponse(token *models.OAuthToken) *TokenResponse {
	resp := &TokenResponse{
		AccessToken: token.AccessToken,
		TokenType:   "Bearer",
		ExpiresIn:   token.ExpiresIn,
		Scope:       token.Scopes,
		CreatedAt:   token.CreatedAt.Unix(),
	}
	if token.RefreshToken != nil {
		resp.RefreshToken = *token.RefreshToken
	}
	return resp
}
