package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/franciscosanchezn/gin-refresh-grant/internal/models"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

var ErrClientNotFound = errors.New("client_not_found")

// ClientService is the backing store of registered client applications
type ClientService interface {
	// CreateClient stores a client, hashing its plain secret with bcrypt
	CreateClient(ctx context.Context, client *models.OAuthClient) error
	// GetClientByID fetches a client, returning ErrClientNotFound when absent
	GetClientByID(ctx context.Context, id string) (*models.OAuthClient, error)
}

type clientService struct {
	db *gorm.DB
}

func NewClientService(db *gorm.DB) ClientService {
	return &clientService{db: db}
}

func (s *clientService) CreateClient(ctx context.Context, client *models.OAuthClient) error {
	hashed, err := bcrypt.GenerateFromPassword([]byte(client.Secret), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash client secret: %w", err)
	}
	client.Secret = string(hashed)
	return s.db.WithContext(ctx).Create(client).Error
}

func (s *clientService) GetClientByID(ctx context.Context, id string) (*models.OAuthClient, error) {
	var client models.OAuthClient
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&client).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrClientNotFound
		}
		return nil, err
	}
	return &client, nil
}
