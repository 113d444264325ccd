package models

import (
	"time"
)

// OAuthToken is an access token record, optionally paired with a refresh token.
//
// RevokedAt is written at most once. It may lie in the future when the token was
// rotated with a revocation delay. SuccessorID marks a token whose refresh token
// has already been exchanged.
type OAuthToken struct {
	ID                   string  `gorm:"primaryKey"`
	ClientID             *string `gorm:"index"` // Nil for clientless tokens
	ResourceOwnerID      *string `gorm:"index"`
	AccessToken          string  `gorm:"uniqueIndex;not null"`
	RefreshToken         *string `gorm:"uniqueIndex"`
	PreviousRefreshToken *string
	Scopes               string // Space-separated list of granted scopes
	ExpiresIn            int64  `gorm:"not null"` // Seconds
	CreatedAt            time.Time
	RevokedAt            *time.Time `gorm:"index"`
	SuccessorID          *string    `gorm:"index"`
	RotatedAt            *time.Time
	UpdatedAt            time.Time
}

func (OAuthToken) TableName() string {
	return "oauth_tokens"
}

// Lifetime returns ExpiresIn as a duration
func (t *OAuthToken) Lifetime() time.Duration {
	return time.Duration(t.ExpiresIn) * time.Second
}

// ExpiresAt returns the moment the access token stops being valid
func (t *OAuthToken) ExpiresAt() time.Time {
	return t.CreatedAt.Add(t.Lifetime())
}

// IsExpired reports whether the access token lifetime has elapsed at now
func (t *OAuthToken) IsExpired(now time.Time) bool {
	return t.ExpiresIn > 0 && !now.Before(t.ExpiresAt())
}

// IsRevoked reports whether a revocation was ever recorded, pending or not
func (t *OAuthToken) IsRevoked() bool {
	return t.RevokedAt != nil
}

// IsRevokedAt reports whether the recorded revocation has taken effect at now
func (t *OAuthToken) IsRevokedAt(now time.Time) bool {
	return t.RevokedAt != nil && !now.Before(*t.RevokedAt)
}

// IsRotated reports whether the refresh token was already exchanged
func (t *OAuthToken) IsRotated() bool {
	return t.SuccessorID != nil
}

// IsAccessible reports whether the access token may still be used at now
func (t *OAuthToken) IsAccessible(now time.Time) bool {
	return !t.IsRevokedAt(now) && !t.IsExpired(now)
}

// ClientRef returns the owning client id, or "" for clientless tokens
func (t *OAuthToken) ClientRef() string {
	if t.ClientID == nil {
		return ""
	}
	return *t.ClientID
}

// ResourceOwnerRef returns the resource owner id, or "" when unset
func (t *OAuthToken) ResourceOwnerRef() string {
	if t.ResourceOwnerID == nil {
		return ""
	}
	return *t.ResourceOwnerID
}
