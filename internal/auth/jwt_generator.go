package auth

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/go-oauth2/oauth2/v4"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// JWTAccessGenerate generates JWT access tokens carrying the grant's client,
// resource owner and scope. Refresh tokens stay opaque.
type JWTAccessGenerate struct {
	SignedKey    []byte
	SignedMethod jwt.SigningMethod
}

// NewJWTAccessGenerate creates a new JWT access token generator
func NewJWTAccessGenerate(key []byte, method jwt.SigningMethod) *JWTAccessGenerate {
	return &JWTAccessGenerate{
		SignedKey:    key,
		SignedMethod: method,
	}
}

// Token generates a JWT access token and, if requested, an opaque refresh token
func (g *JWTAccessGenerate) Token(ctx context.Context, data *oauth2.GenerateBasic, isGenRefresh bool) (string, string, error) {
	if len(g.SignedKey) == 0 {
		return "", "", fmt.Errorf("cannot generate token: empty signing key")
	}

	createdAt := data.TokenInfo.GetAccessCreateAt()
	claims := jwt.MapClaims{
		"exp": createdAt.Add(data.TokenInfo.GetAccessExpiresIn()).Unix(),
		"iat": createdAt.Unix(),
		// jti keeps two tokens minted in the same second for the same grant distinct
		"jti": uuid.New().String(),
	}
	if clientID := data.Client.GetID(); clientID != "" {
		claims["aud"] = clientID
	}
	if data.UserID != "" {
		claims["sub"] = data.UserID
	}
	if scope := data.TokenInfo.GetScope(); scope != "" {
		claims["scope"] = scope
	}

	token := jwt.NewWithClaims(g.SignedMethod, claims)
	access, err := token.SignedString(g.SignedKey)
	if err != nil {
		return "", "", err
	}

	refresh := ""
	if isGenRefresh {
		refresh = opaqueRefresh(access)
	}
	return access, refresh, nil
}

func opaqueRefresh(access string) string {
	t := uuid.NewSHA1(uuid.Must(uuid.NewRandom()), []byte(access)).String()
	refresh := base64.URLEncoding.EncodeToString([]byte(t))
	return strings.ToUpper(strings.TrimRight(refresh, "="))
}
