/**
 * @description
 * This package handles the configuration management for the service. It uses the
 * Viper library to read configuration from environment variables, providing a
 * centralized and straightforward way to manage application settings.
 *
 * @dependencies
 * - github.com/spf13/viper: A popular library for Go application configuration.
 */

package config

import (
	"log"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// Config holds all the configuration variables for the settlement-service.
// These values are loaded from environment variables.
type Config struct {
	ServerPort           string `mapstructure:"SERVER_PORT"`
	DatabaseURL          string `mapstructure:"DATABASE_URL"`
	RedisURL             string `mapstructure:"REDIS_URL"`
	RedisRateLimitPrefix string `mapstructure:"REDIS_RATE_LIMIT_PREFIX"`
	RabbitMQURL          string `mapstructure:"RABBITMQ_URL"`
	PushGatewayURL       string `mapstructure:"PUSH_GATEWAY_URL"`
	PushGatewayAPIKey    string `mapstructure:"PUSH_GATEWAY_API_KEY"`
	JWTSecret            string `mapstructure:"JWT_SECRET"`
	AllowedOrigins       string `mapstructure:"ALLOWED_ORIGINS"`

	PINMaxAttempts          int `mapstructure:"PIN_MAX_ATTEMPTS"`
	PINAttemptWindowSeconds int `mapstructure:"PIN_ATTEMPT_WINDOW_SECONDS"`

	// Money request expiry is disabled when the expiry is zero.
	MoneyRequestExpiryMinutes        int `mapstructure:"MONEY_REQUEST_EXPIRY_MINUTES"`
	MoneyRequestSweepIntervalSeconds int `mapstructure:"MONEY_REQUEST_SWEEP_INTERVAL_SECONDS"`
}

// LoadConfig reads configuration from environment variables from the given path.
// It uses Viper to automatically bind environment variables to the Config struct.
func LoadConfig(path string) (config Config, err error) {
	// Tell viper the path to look for the optional .env file.
	viper.AddConfigPath(path)
	viper.SetConfigName(".env")
	viper.SetConfigType("env")

	// Enable automatic binding of environment variables.
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Set default values
	viper.SetDefault("SERVER_PORT", "8080")
	viper.SetDefault("REDIS_RATE_LIMIT_PREFIX", "instapay:rate_limit")
	viper.SetDefault("PIN_MAX_ATTEMPTS", 5)
	viper.SetDefault("PIN_ATTEMPT_WINDOW_SECONDS", 600)
	viper.SetDefault("MONEY_REQUEST_EXPIRY_MINUTES", 0)
	viper.SetDefault("MONEY_REQUEST_SWEEP_INTERVAL_SECONDS", 60)

	// Bind environment variables explicitly to ensure they appear in Unmarshal
	_ = viper.BindEnv("SERVER_PORT")
	_ = viper.BindEnv("PORT")
	_ = viper.BindEnv("DATABASE_URL")
	_ = viper.BindEnv("REDIS_URL", "REDIS_URL", "SETTLEMENT_REDIS_URL")
	_ = viper.BindEnv("REDIS_RATE_LIMIT_PREFIX")
	_ = viper.BindEnv("RABBITMQ_URL")
	_ = viper.BindEnv("PUSH_GATEWAY_URL")
	_ = viper.BindEnv("PUSH_GATEWAY_API_KEY")
	_ = viper.BindEnv("JWT_SECRET", "JWT_SECRET", "SETTLEMENT_JWT_SECRET")
	_ = viper.BindEnv("ALLOWED_ORIGINS")
	_ = viper.BindEnv("PIN_MAX_ATTEMPTS")
	_ = viper.BindEnv("PIN_ATTEMPT_WINDOW_SECONDS")
	_ = viper.BindEnv("MONEY_REQUEST_EXPIRY_MINUTES")
	_ = viper.BindEnv("MONEY_REQUEST_SWEEP_INTERVAL_SECONDS")

	// Attempt to read the config file. It's okay if it doesn't exist.
	if err = viper.ReadInConfig(); err != nil {
		// If the config file is not found, we can ignore the error.
		// For other errors, we should return them.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			log.Printf("level=warn component=config msg=\"failed to read config file; using environment values\" err=%v", err)
		}
	}

	// Unmarshal the configuration into the Config struct.
	err = viper.Unmarshal(&config)
	if err != nil {
		return
	}

	if port := strings.TrimSpace(os.Getenv("PORT")); port != "" {
		config.ServerPort = port
	}
	if strings.TrimSpace(config.JWTSecret) == "" {
		config.JWTSecret = strings.TrimSpace(os.Getenv("SETTLEMENT_JWT_SECRET"))
	}
	config.RedisURL = strings.TrimSpace(config.RedisURL)
	config.RedisRateLimitPrefix = strings.TrimSpace(config.RedisRateLimitPrefix)
	if config.RedisRateLimitPrefix == "" {
		config.RedisRateLimitPrefix = "instapay:rate_limit"
	}

	if config.PINMaxAttempts <= 0 {
		config.PINMaxAttempts = 5
	}
	if config.PINAttemptWindowSeconds <= 0 {
		config.PINAttemptWindowSeconds = 600
	}
	if config.MoneyRequestExpiryMinutes < 0 {
		log.Printf("level=warn component=config msg=\"negative money-request expiry configured; disabling expiry\" expiry_minutes=%d", config.MoneyRequestExpiryMinutes)
		config.MoneyRequestExpiryMinutes = 0
	}
	if config.MoneyRequestSweepIntervalSeconds <= 0 {
		config.MoneyRequestSweepIntervalSeconds = 60
	}

	return
}

// Origins splits the configured ALLOWED_ORIGINS list. An empty configuration
// allows all origins, which suits internal deployments behind a gateway.
func (c Config) Origins() []string {
	raw := strings.TrimSpace(c.AllowedOrigins)
	if raw == "" {
		return []string{"*"}
	}
	parts := strings.Split(raw, ",")
	origins := make([]string, 0, len(parts))
	for _, part := range parts {
		if origin := strings.TrimSpace(part); origin != "" {
			origins = append(origins, origin)
		}
	}
	return origins
}
