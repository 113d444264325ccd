package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/franciscosanchezn/gin-refresh-grant/internal/config"
	"github.com/franciscosanchezn/gin-refresh-grant/internal/database"
	"github.com/franciscosanchezn/gin-refresh-grant/internal/models"
	"github.com/franciscosanchezn/gin-refresh-grant/internal/services"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
)

func main() {
	// Parse command line flags
	clientID := flag.String("client", "dev-client", "Client ID")
	clientSecret := flag.String("secret", "dev-secret-123", "Client secret")
	scopes := flag.String("scopes", "read write", "Space-separated scopes of the client and its first token")
	owner := flag.String("owner", "dev-user", "Resource owner of the seeded token")
	lifetime := flag.Duration("lifetime", 0, "Access token lifetime override for the client, 0 uses the server default")
	clientless := flag.Bool("clientless", false, "Seed a token that belongs to no client")
	flag.Parse()

	_ = godotenv.Load()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal("Failed to load configuration:", err)
	}

	db, err := database.InitDatabase(database.FromConfig(cfg))
	if err != nil {
		log.Fatal("Failed to connect to database:", err)
	}
	if err := database.Migrate(db); err != nil {
		log.Fatal("Failed to migrate database:", err)
	}

	ctx := context.Background()
	clients := services.NewClientService(db)

	var tokenClient *string
	if !*clientless {
		_, err := clients.GetClientByID(ctx, *clientID)
		switch {
		case err == nil:
			fmt.Printf("Development client '%s' already exists\n", *clientID)
		case errors.Is(err, services.ErrClientNotFound):
			client := &models.OAuthClient{
				ID:         *clientID,
				Secret:     *clientSecret,
				Name:       "Development Client",
				Domain:     "http://localhost",
				Scopes:     *scopes,
				GrantTypes: "refresh_token",
			}
			if *lifetime > 0 {
				seconds := int64(*lifetime / time.Second)
				client.AccessTokenLifetime = &seconds
			}
			if err := clients.CreateClient(ctx, client); err != nil {
				log.Fatal("Failed to create client:", err)
			}
			fmt.Printf("✓ Development OAuth client '%s' created\n", *clientID)
		default:
			log.Fatal("Failed to look up client:", err)
		}
		tokenClient = clientID
	}

	// Seed a token pair to start the refresh chain from
	refreshToken := uuid.New().String()
	token := &models.OAuthToken{
		ID:              uuid.New().String(),
		ClientID:        tokenClient,
		ResourceOwnerID: owner,
		AccessToken:     uuid.New().String(),
		RefreshToken:    &refreshToken,
		Scopes:          *scopes,
		ExpiresIn:       int64(cfg.AccessTokenLifetime / time.Second),
		CreatedAt:       time.Now(),
	}
	if err := db.WithContext(ctx).Create(token).Error; err != nil {
		log.Fatal("Failed to create token:", err)
	}

	fmt.Printf("Access Token: %s\n", token.AccessToken)
	fmt.Printf("Refresh Token: %s\n", refreshToken)
	fmt.Println("\nExchange the refresh token with:")
	fmt.Printf("curl -X POST http://localhost:%d/oauth/token \\\n", cfg.Port)
	fmt.Printf("  -d 'grant_type=refresh_token' \\\n")
	if tokenClient != nil {
		fmt.Printf("  -d 'client_id=%s' \\\n", *clientID)
		fmt.Printf("  -d 'client_secret=%s' \\\n", *clientSecret)
	}
	fmt.Printf("  -d 'refresh_token=%s'\n", refreshToken)
}
