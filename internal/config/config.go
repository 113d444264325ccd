package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// Create a new instance of the logger
// Configure it to log at the desired level
// and format it as JSON for structured logging
var log = logrus.New()

func init() {
	log.SetFormatter(&logrus.JSONFormatter{})
	log.SetLevel(LevelForEnvironment(GetEnvWithDefault("APP_ENV", "development")))
}

// LevelForEnvironment maps APP_ENV to a logrus level
func LevelForEnvironment(environment string) logrus.Level {
	switch environment {
	case "development":
		return logrus.DebugLevel
	case "production":
		return logrus.ErrorLevel
	default:
		// Default to info level for other environments
		return logrus.InfoLevel
	}
}

// Config used for the application configuration, loading the input from environment variables
type Config struct {
	// Server Configuration
	Environment string `json:"environment"`
	Port        int    `json:"port"`
	Host        string `json:"host"`

	// Database configuration
	DBDriver   string `json:"db_driver"`
	DBPath     string `json:"db_path"`
	DBHost     string `json:"db_host"`
	DBPort     string `json:"db_port"`
	DBName     string `json:"db_name"`
	DBUser     string `json:"db_user"`
	DBPassword string `json:"db_password"`
	DBSSLMode  string `json:"db_sslmode"`

	// Logging configuration
	LogLevel string `json:"log_level"`

	// Security Configuration
	// JWTSecret switches access tokens to HS512 JWTs when set
	JWTSecret string `json:"jwt_secret"`

	// Refresh grant policy
	AccessTokenLifetime         time.Duration `json:"access_token_lifetime"`
	RefreshTokenRevocationDelay time.Duration `json:"refresh_token_revocation_delay"`
	RefreshTokenRotation        bool          `json:"refresh_token_rotation"`
}

// String returns a string representation of Config with sensitive data masked
func (c *Config) String() string {
	return fmt.Sprintf("Config{Environment: %s, Port: %d, Host: %s, DBDriver: %s, DBPath: %s, DBHost: %s, DBPort: %s, DBName: %s, DBUser: %s, DBPassword: [REDACTED], LogLevel: %s, JWTSecret: %s, AccessTokenLifetime: %s, RefreshTokenRevocationDelay: %s, RefreshTokenRotation: %t}",
		c.Environment, c.Port, c.Host, c.DBDriver, c.DBPath, c.DBHost, c.DBPort, c.DBName, c.DBUser, c.LogLevel,
		maskSecret(c.JWTSecret), c.AccessTokenLifetime, c.RefreshTokenRevocationDelay, c.RefreshTokenRotation)
}

// maskSecret hides a secret while still showing whether it is configured
func maskSecret(secret string) string {
	if secret == "" {
		return "[UNSET]"
	}
	return "[REDACTED]"
}

// LoadConfig read the proper configuration from environment variables and returns a Config struct
// Returns an error if any environment variable has an invalid format
func LoadConfig() (*Config, error) {
	log.Info("Loading configuration from environment variables")
	port, err := strconv.Atoi(GetEnvWithDefault("APP_PORT", "8080"))
	if err != nil {
		return nil, fmt.Errorf("invalid APP_PORT: %w", err)
	}

	lifetime, err := time.ParseDuration(GetEnvWithDefault("ACCESS_TOKEN_LIFETIME", "2h"))
	if err != nil {
		return nil, fmt.Errorf("invalid ACCESS_TOKEN_LIFETIME: %w", err)
	}
	if lifetime < time.Second {
		return nil, fmt.Errorf("ACCESS_TOKEN_LIFETIME must be at least 1s, got %s", lifetime)
	}

	delay, err := time.ParseDuration(GetEnvWithDefault("REFRESH_TOKEN_REVOCATION_DELAY", "0s"))
	if err != nil {
		return nil, fmt.Errorf("invalid REFRESH_TOKEN_REVOCATION_DELAY: %w", err)
	}
	if delay < 0 {
		return nil, fmt.Errorf("REFRESH_TOKEN_REVOCATION_DELAY cannot be negative, got %s", delay)
	}

	rotation, err := strconv.ParseBool(GetEnvWithDefault("REFRESH_TOKEN_ROTATION", "true"))
	if err != nil {
		return nil, fmt.Errorf("invalid REFRESH_TOKEN_ROTATION: %w", err)
	}

	driver := strings.ToLower(GetEnvWithDefault("DB_DRIVER", "sqlite"))
	switch driver {
	case "sqlite", "postgres", "postgresql":
	default:
		return nil, fmt.Errorf("unsupported DB_DRIVER: %s (supported: postgres, sqlite)", driver)
	}

	config := &Config{
		Environment:                 GetEnvWithDefault("APP_ENV", "development"),
		Port:                        port,
		Host:                        GetEnvWithDefault("APP_HOST", "localhost"),
		DBDriver:                    driver,
		DBPath:                      GetEnvWithDefault("DB_PATH", "refresh-grant.sqlite"),
		DBHost:                      GetEnvWithDefault("DB_HOST", "localhost"),
		DBPort:                      GetEnvWithDefault("DB_PORT", "5432"),
		DBName:                      GetEnvWithDefault("DB_NAME", "oauth"),
		DBUser:                      GetEnvWithDefault("DB_USER", "oauth"),
		DBPassword:                  GetEnvWithDefault("DB_PASSWORD", ""),
		DBSSLMode:                   GetEnvWithDefault("DB_SSLMODE", "disable"),
		LogLevel:                    GetEnvWithDefault("LOG_LEVEL", "info"),
		JWTSecret:                   os.Getenv("JWT_SECRET"),
		AccessTokenLifetime:         lifetime,
		RefreshTokenRevocationDelay: delay,
		RefreshTokenRotation:        rotation,
	}
	log.Infof("Configuration loaded: %s", config.String())
	return config, nil
}

// Helper to get environment with default values
func GetEnvWithDefault(key, defaultValue string) string {
	log.Tracef("Getting environment variable: %s", key)
	value := os.Getenv(key)
	if value == "" {
		log.Debugf("Environment variable %s not set, using default value: %s", key, defaultValue)
		return defaultValue
	}
	return value
}

// GetEnvAsType retrieves an environment variable and converts it to the specified type
// using generic type handling.
func GetEnvAsType[T any](key string, defaultValue T) T {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	var result T
	switch any(result).(type) {
	case int:
		intValue, err := strconv.Atoi(value)
		if err != nil {
			return defaultValue
		}
		return any(intValue).(T)
	case string:
		return any(value).(T)
	case bool:
		boolValue, err := strconv.ParseBool(value)
		if err != nil {
			return defaultValue
		}
		return any(boolValue).(T)
	case time.Duration:
		durationValue, err := time.ParseDuration(value)
		if err != nil {
			return defaultValue
		}
		return any(durationValue).(T)
	default:
		return defaultValue // Fallback for unsupported types
	}
}
