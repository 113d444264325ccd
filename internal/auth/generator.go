package auth

import (
	"context"

	"github.com/franciscosanchezn/gin-refresh-grant/internal/config"
	"github.com/franciscosanchezn/gin-refresh-grant/internal/models"
	"github.com/go-oauth2/oauth2/v4"
	"github.com/go-oauth2/oauth2/v4/generates"
	oauth2models "github.com/go-oauth2/oauth2/v4/models"
	"github.com/golang-jwt/jwt/v5"
)

// TokenGenerator produces the access and refresh values of a new token record
type TokenGenerator interface {
	Generate(ctx context.Context, token *models.OAuthToken, client *models.OAuthClient, withRefresh bool) (access, refresh string, err error)
}

// AccessGenerator adapts a go-oauth2 AccessGenerate to TokenGenerator
type AccessGenerator struct {
	generate oauth2.AccessGenerate
}

func NewAccessGenerator(generate oauth2.AccessGenerate) *AccessGenerator {
	return &AccessGenerator{generate: generate}
}

// NewTokenGenerator returns a JWT generator when a signing secret is configured
// and an opaque one otherwise
func NewTokenGenerator(c *config.Config) *AccessGenerator {
	if c.JWTSecret != "" {
		return NewAccessGenerator(NewJWTAccessGenerate([]byte(c.JWTSecret), jwt.SigningMethodHS512))
	}
	return NewAccessGenerator(generates.NewAccessGenerate())
}

func (g *AccessGenerator) Generate(ctx context.Context, token *models.OAuthToken, client *models.OAuthClient, withRefresh bool) (string, string, error) {
	var info oauth2.ClientInfo = &oauth2models.Client{ID: token.ClientRef()}
	if client != nil {
		info = client
	}

	ti := oauth2models.NewToken()
	ti.SetClientID(token.ClientRef())
	ti.SetUserID(token.ResourceOwnerRef())
	ti.SetScope(token.Scopes)
	ti.SetAccessCreateAt(token.CreatedAt)
	ti.SetAccessExpiresIn(token.Lifetime())

	return g.generate.Token(ctx, &oauth2.GenerateBasic{
		Client:    info,
		UserID:    token.ResourceOwnerRef(),
		CreateAt:  token.CreatedAt,
		TokenInfo: ti,
	}, withRefresh)
}
