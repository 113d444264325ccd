package auth

import (
	"github.com/franciscosanchezn/gin-refresh-grant/internal/config"
	"github.com/franciscosanchezn/gin-refresh-grant/internal/services"
	"gorm.io/gorm"
)

// OAuthService bundles the refresh grant with its gorm-backed collaborators
type OAuthService struct {
	grant *RefreshGrant
	store *GormTokenStore
}

func NewOAuthService(db *gorm.DB, cfg *config.Config, opts ...GrantOption) *OAuthService {
	// Configure token store
	tokenStore := NewGormTokenStore(db)

	// Configure client credential validation
	clients := NewCredentialValidator(services.NewClientService(db))

	grant := NewRefreshGrant(PolicyFromConfig(cfg), tokenStore, clients, NewTokenGenerator(cfg), opts...)

	return &OAuthService{
		grant: grant,
		store: tokenStore,
	}
}

func (o *OAuthService) Grant() *RefreshGrant {
	return o.grant
}

func (o *OAuthService) Store() TokenStore {
	return o.store
}
