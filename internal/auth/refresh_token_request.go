package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/franciscosanchezn/gin-refresh-grant/internal/models"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// RefreshTokenRequest is a single refresh_token grant call. It is built by
// RefreshGrant.NewRequest and discarded once Validate or Authorize returns.
type RefreshTokenRequest struct {
	grant       *RefreshGrant
	token       *models.OAuthToken
	credentials *ClientCredentials
	params      RefreshParams

	client *models.OAuthClient
	scopes Scopes
	err    *models.OAuth2Error
}

// Error returns the failure recorded by the last Validate or Authorize call
func (r *RefreshTokenRequest) Error() *models.OAuth2Error {
	return r.err
}

// Validate checks the request without touching storage. Checks run in a fixed
// order: token presence, client credentials, client match, revocation, scope.
func (r *RefreshTokenRequest) Validate(ctx context.Context) bool {
	r.err = r.validate(ctx)
	if r.err != nil {
		log.WithFields(logrus.Fields{
			"error":       r.err.Code,
			"description": r.err.Description,
		}).Debug("Refresh grant rejected")
	}
	return r.err == nil
}

func (r *RefreshTokenRequest) validate(ctx context.Context) *models.OAuth2Error {
	if r.token == nil {
		return models.NewInvalidRequest("missing refresh_token")
	}

	client, err := r.grant.clients.Validate(ctx, r.credentials)
	if err != nil {
		var oauthErr *models.OAuth2Error
		if errors.As(err, &oauthErr) {
			return oauthErr
		}
		return models.NewInvalidClient("client authentication failed")
	}
	r.client = client

	if !clientMatches(r.token, client) {
		return models.NewInvalidGrant("refresh token was issued to another client")
	}

	// Expiry of the access token is not checked; expired tokens stay refreshable.
	if r.token.IsRevoked() || r.token.IsRotated() {
		return models.NewInvalidGrant("refresh token has been revoked")
	}

	scopes, err := ResolveScopes(ParseScopes(r.token.Scopes), r.params.RequestedScopes())
	if err != nil {
		var oauthErr *models.OAuth2Error
		if errors.As(err, &oauthErr) {
			return oauthErr
		}
		return models.NewInvalidScope(err.Error())
	}
	r.scopes = scopes
	return nil
}

// clientMatches fails only when both the request and the token carry a client
// and the two differ
func clientMatches(token *models.OAuthToken, client *models.OAuthClient) bool {
	return client == nil || token.ClientID == nil || client.ID == *token.ClientID
}

// Authorize validates the request, then issues a new access token and schedules
// revocation of the presented one in a single store transaction.
func (r *RefreshTokenRequest) Authorize(ctx context.Context) (*models.OAuthToken, error) {
	if !r.Validate(ctx) {
		return nil, r.err
	}

	policy := r.grant.policy
	now := r.grant.now()
	previous := *r.token

	// The issued token keeps the owner of the presented one. The owner record is
	// only known when the caller authenticated as that client.
	var owner *models.OAuthClient
	if previous.ClientID != nil {
		owner = r.client
	}

	issued := &models.OAuthToken{
		ID:                   uuid.New().String(),
		ClientID:             previous.ClientID,
		ResourceOwnerID:      previous.ResourceOwnerID,
		PreviousRefreshToken: previous.RefreshToken,
		Scopes:               r.scopes.String(),
		ExpiresIn:            lifetimeSeconds(effectiveLifetime(policy, owner)),
		CreatedAt:            now,
	}

	access, refresh, err := r.grant.generator.Generate(ctx, issued, owner, policy.IssueRefreshToken())
	if err != nil {
		return nil, fmt.Errorf("failed to generate token values: %w", err)
	}
	issued.AccessToken = access
	if refresh != "" {
		issued.RefreshToken = &refresh
	}

	delay := policy.RefreshTokenRevocationDelay()
	err = r.grant.store.Transaction(ctx, func(store TokenStore) error {
		if err := store.MarkRotated(ctx, &previous, issued.ID, now); err != nil {
			return err
		}
		if err := store.Create(ctx, issued); err != nil {
			return fmt.Errorf("failed to create access token: %w", err)
		}
		if _, err := store.RevokeAt(ctx, &previous, now.Add(delay)); err != nil {
			return fmt.Errorf("failed to revoke previous token: %w", err)
		}
		return nil
	})
	if errors.Is(err, ErrAlreadyRotated) {
		r.err = models.NewInvalidGrant("refresh token has been revoked")
		log.WithField("token_id", previous.ID).Warn("Refresh token replay rejected")
		return nil, r.err
	}
	if err != nil {
		return nil, fmt.Errorf("refresh token rotation failed: %w", err)
	}

	*r.token = previous
	log.WithFields(logrus.Fields{
		"token_id":         previous.ID,
		"successor_id":     issued.ID,
		"client_id":        issued.ClientRef(),
		"scopes":           issued.Scopes,
		"expires_in":       issued.ExpiresIn,
		"revocation_delay": delay.String(),
	}).Info("Refresh token rotated")

	return issued, nil
}
