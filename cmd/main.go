package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/franciscosanchezn/gin-refresh-grant/docs" // Import generated docs
	"github.com/franciscosanchezn/gin-refresh-grant/internal/auth"
	"github.com/franciscosanchezn/gin-refresh-grant/internal/config"
	"github.com/franciscosanchezn/gin-refresh-grant/internal/controllers"
	"github.com/franciscosanchezn/gin-refresh-grant/internal/database"
	"github.com/franciscosanchezn/gin-refresh-grant/internal/middleware"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
	"github.com/swaggo/files"
	"github.com/swaggo/gin-swagger"
	"gorm.io/gorm"
)

const shutdownTimeout = 15 * time.Second

var (
	db              *gorm.DB
	oauthService    *auth.OAuthService
	tokenController *controllers.TokenController
	configuration   *config.Config
)

// @title Refresh Grant API
// @version 1.0
// @description OAuth2 token endpoint implementing the refresh_token grant
// @host localhost:8080
// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and an access token.
func main() {
	loadDotenvFile()
	setUpLogger()
	configuration = loadConfig()
	setupDatabase(configuration)

	oauthService = auth.NewOAuthService(db, configuration)
	auth.SetLogLevel(log.GetLevel())
	controllers.SetLogLevel(log.GetLevel())
	tokenController = controllers.NewTokenController(oauthService.Grant())

	server := &http.Server{
		Addr:              fmt.Sprintf("%v:%d", configuration.Host, configuration.Port),
		Handler:           setupRouter(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		log.Infof("Starting server on %s", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("Server stopped unexpectedly")
		}
	}()

	<-ctx.Done()
	log.Info("Shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("Graceful shutdown failed")
	}
	if sqlDB, err := db.DB(); err == nil {
		if err := sqlDB.Close(); err != nil {
			log.WithError(err).Warn("Failed to close database connection")
		}
	}
}

// checkPanicErr checks if an error occurred and panics if it did
func checkPanicErr(err error) {
	if err != nil {
		panic(err)
	}
}

// loadDotenvFile loads environment variables from a .env file
// If the file is not found, it will log a warning and use system environment variables
func loadDotenvFile() {
	if err := godotenv.Load(); err != nil {
		log.Warn("No .env file found, using system environment variables")
	}
}

// setUpLogger initializes the logger with a JSON formatter and sets the log level based on the environment
func setUpLogger() {
	log.SetFormatter(&log.JSONFormatter{})
	log.SetLevel(config.LevelForEnvironment(config.GetEnvWithDefault("APP_ENV", "development")))
}

// loadConfig loads the application configuration from environment variables
// It returns a Config struct or panics if there is an error
func loadConfig() *config.Config {
	log.Info("Loading configuration from environment variables")
	conf, err := config.LoadConfig()
	checkPanicErr(err)
	log.Infof("Configuration loaded: %s", conf)
	return conf
}

// setupDatabase connects with retries and migrates the client and token tables
func setupDatabase(conf *config.Config) {
	var err error
	db, err = database.InitDatabase(database.FromConfig(conf))
	checkPanicErr(err)
	checkPanicErr(database.Migrate(db))
}

// setupRouter builds the engine with recovery and request logging
func setupRouter() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), middleware.RequestLogger(log.StandardLogger()))

	setupRoutes(router)
	return router
}

// setupRoutes registers the token endpoint, protected resources and docs
func setupRoutes(router *gin.Engine) {
	// Health check endpoint
	router.GET("/health", healthCheckHandler)

	oauth := router.Group("/oauth")
	{
		oauth.POST("/token", tokenController.HandleToken)

		// Requires a live access token
		oauth.GET("/token/info", middleware.OAuth2Auth(oauthService.Store()), tokenController.TokenInfo)
	}

	// Protected resources
	api := router.Group("/api/v1", middleware.OAuth2Auth(oauthService.Store()))
	{
		api.GET("/me", middleware.RequireScope("read"), tokenController.TokenInfo)
	}

	// Swagger documentation
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
}

// healthCheckHandler reports liveness together with database reachability
// @Summary Health check
// @Description Check if the service is running
// @Tags health
// @Accept json
// @Produce json
// @Success 200 {object} map[string]string
// @Failure 503 {object} map[string]string
// @Router /health [get]
func healthCheckHandler(c *gin.Context) {
	status, code := "healthy", http.StatusOK
	if sqlDB, err := db.DB(); err != nil || sqlDB.PingContext(c.Request.Context()) != nil {
		status, code = "unhealthy", http.StatusServiceUnavailable
	}
	c.JSON(code, gin.H{
		"status":    status,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"service":   "gin-refresh-grant",
	})
}
