package auth

import (
	"time"

	"github.com/franciscosanchezn/gin-refresh-grant/internal/config"
	"github.com/franciscosanchezn/gin-refresh-grant/internal/models"
)

// PolicyProvider supplies the server-wide settings of the refresh grant
type PolicyProvider interface {
	// DefaultAccessTokenLifetime is used when no custom lifetime applies
	DefaultAccessTokenLifetime() time.Duration
	// CustomAccessTokenLifetime may override the lifetime for a client. The
	// client is nil for clientless tokens.
	CustomAccessTokenLifetime(client *models.OAuthClient) (time.Duration, bool)
	// RefreshTokenRevocationDelay is how long a rotated token stays usable
	RefreshTokenRevocationDelay() time.Duration
	// IssueRefreshToken reports whether a new refresh token accompanies each exchange
	IssueRefreshToken() bool
}

// LifetimeFunc computes a per-client access token lifetime. Returning false
// falls back to the default lifetime.
type LifetimeFunc func(client *models.OAuthClient) (time.Duration, bool)

// Policy is a PolicyProvider built from plain values
type Policy struct {
	AccessTokenLifetime time.Duration
	RevocationDelay     time.Duration
	RotateRefreshTokens bool
	CustomLifetime      LifetimeFunc
}

// PolicyFromConfig builds the server policy. Per-client lifetimes are read
// from the client record.
func PolicyFromConfig(c *config.Config) *Policy {
	return &Policy{
		AccessTokenLifetime: c.AccessTokenLifetime,
		RevocationDelay:     c.RefreshTokenRevocationDelay,
		RotateRefreshTokens: c.RefreshTokenRotation,
		CustomLifetime:      ClientLifetime,
	}
}

func (p *Policy) DefaultAccessTokenLifetime() time.Duration {
	return p.AccessTokenLifetime
}

func (p *Policy) CustomAccessTokenLifetime(client *models.OAuthClient) (time.Duration, bool) {
	if p.CustomLifetime == nil {
		return 0, false
	}
	return p.CustomLifetime(client)
}

func (p *Policy) RefreshTokenRevocationDelay() time.Duration {
	return p.RevocationDelay
}

func (p *Policy) IssueRefreshToken() bool {
	return p.RotateRefreshTokens
}

// ClientLifetime uses the access_token_lifetime column of the client, if set
func ClientLifetime(client *models.OAuthClient) (time.Duration, bool) {
	if client == nil || client.AccessTokenLifetime == nil || *client.AccessTokenLifetime <= 0 {
		return 0, false
	}
	return time.Duration(*client.AccessTokenLifetime) * time.Second, true
}

// effectiveLifetime picks the custom lifetime when present, else the default
func effectiveLifetime(p PolicyProvider, client *models.OAuthClient) time.Duration {
	if lifetime, ok := p.CustomAccessTokenLifetime(client); ok {
		return lifetime
	}
	return p.DefaultAccessTokenLifetime()
}

// lifetimeSeconds converts a lifetime to the stored ExpiresIn, rounding up so a
// positive lifetime never becomes 0, which means "never expires"
func lifetimeSeconds(lifetime time.Duration) int64 {
	seconds := int64(lifetime / time.Second)
	if lifetime%time.Second > 0 {
		seconds++
	}
	return seconds
}
