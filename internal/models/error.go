package models

import "fmt"

// OAuth error codes (RFC 6749 section 5.2)
const (
	ErrInvalidRequest       = "invalid_request"
	ErrInvalidClient        = "invalid_client"
	ErrInvalidGrant         = "invalid_grant"
	ErrInvalidScope         = "invalid_scope"
	ErrUnauthorizedClient   = "unauthorized_client"
	ErrUnsupportedGrantType = "unsupported_grant_type"
	ErrInvalidToken         = "invalid_token"
	ErrInsufficientScope    = "insufficient_scope"
	ErrServerError          = "server_error"
)

// OAuth2Error represents an OAuth2 error response (RFC 6749)
type OAuth2Error struct {
	Code        string `json:"error"`
	Description string `json:"error_description,omitempty"`
	URI         string `json:"error_uri,omitempty"`
}

func (e *OAuth2Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Description)
}

// NewOAuth2Error creates a new OAuth2 error response
func NewOAuth2Error(code, description string) *OAuth2Error {
	return &OAuth2Error{
		Code:        code,
		Description: description,
	}
}

func NewInvalidRequest(description string) *OAuth2Error {
	return NewOAuth2Error(ErrInvalidRequest, description)
}

func NewInvalidClient(description string) *OAuth2Error {
	return NewOAuth2Error(ErrInvalidClient, description)
}

func NewInvalidGrant(description string) *OAuth2Error {
	return NewOAuth2Error(ErrInvalidGrant, description)
}

func NewInvalidScope(description string) *OAuth2Error {
	return NewOAuth2Error(ErrInvalidScope, description)
}

func NewUnsupportedGrantType(description string) *OAuth2Error {
	return NewOAuth2Error(ErrUnsupportedGrantType, description)
}

func NewServerError(description string) *OAuth2Error {
	return NewOAuth2Error(ErrServerError, description)
}
