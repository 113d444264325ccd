package auth

import (
	"context"

	"github.com/franciscosanchezn/gin-refresh-grant/internal/models"
	"github.com/sirupsen/logrus"
)

// ClientCredentials are the client_id/client_secret pair presented with a request
type ClientCredentials struct {
	ID     string
	Secret string
}

// ClientFinder looks up registered clients. services.ClientService satisfies it.
type ClientFinder interface {
	GetClientByID(ctx context.Context, id string) (*models.OAuthClient, error)
}

// CredentialValidator resolves presented credentials to a registered client
type CredentialValidator struct {
	clients ClientFinder
}

func NewCredentialValidator(clients ClientFinder) *CredentialValidator {
	return &CredentialValidator{clients: clients}
}

// Validate returns the client matching creds. Nil creds is a clientless request
// and yields (nil, nil). Any lookup failure or secret mismatch is invalid_client.
func (v *CredentialValidator) Validate(ctx context.Context, creds *ClientCredentials) (*models.OAuthClient, error) {
	if creds == nil {
		return nil, nil
	}
	if creds.ID == "" {
		return nil, models.NewInvalidClient("client_id is required when client credentials are supplied")
	}

	client, err := v.clients.GetClientByID(ctx, creds.ID)
	if err != nil {
		log.WithFields(logrus.Fields{
			"client_id": creds.ID,
			"error":     err.Error(),
		}).Debug("Client lookup failed")
		return nil, models.NewInvalidClient("client authentication failed")
	}

	if client.ID != creds.ID || !client.VerifyPassword(creds.Secret) {
		return nil, models.NewInvalidClient("client authentication failed")
	}
	return client, nil
}
