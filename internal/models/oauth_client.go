package models

import (
	"time"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// OAuthClient is a registered client application. Secret holds a bcrypt hash.
type OAuthClient struct {
	ID          string `gorm:"primaryKey"`
	Secret      string `gorm:"not null"`
	Name        string
	Domain      string
	Scopes      string // Space-separated list of allowed scopes
	GrantTypes  string // Space-separated list, e.g. "refresh_token"
	RedirectURI string
	// AccessTokenLifetime overrides the server default, in seconds. Nil keeps the default.
	AccessTokenLifetime *int64
	CreatedAt           time.Time
	UpdatedAt           time.Time
	DeletedAt           gorm.DeletedAt `gorm:"index"`
}

func (OAuthClient) TableName() string {
	return "oauth_clients"
}

// The methods below satisfy go-oauth2's oauth2.ClientInfo and
// oauth2.ClientPasswordVerifier so a client can be handed to its generators.

func (c *OAuthClient) GetID() string {
	return c.ID
}

func (c *OAuthClient) GetSecret() string {
	return c.Secret
}

func (c *OAuthClient) GetDomain() string {
	return c.Domain
}

func (c *OAuthClient) IsPublic() bool {
	return false
}

func (c *OAuthClient) GetUserID() string {
	return ""
}

// VerifyPassword compares a plain secret against the stored bcrypt hash
func (c *OAuthClient) VerifyPassword(secret string) bool {
	return bcrypt.CompareHashAndPassword([]byte(c.Secret), []byte(secret)) == nil
}
