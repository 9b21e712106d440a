package config

import (
	"os"
	"time"

	"github.com/joho/godotenv"
)

// parseEnv overlays configuration from the environment. A .env file in the
// working directory is loaded first if present; real environment variables
// win over it (godotenv never overrides existing variables).
//
// Recognized variables:
//
//	ENDPOINT_ADDR_HTTP   bind address, e.g. ":8080"
//	DATABASE_DSN         PostgreSQL DSN
//	SECRET_KEY           JWT HMAC secret
//	ACCESS_TOKEN_TTL     access token lifetime, Go duration (e.g. "15m")
//	REFRESH_TOKEN_TTL    refresh token lifetime, Go duration (e.g. "720h")
func parseEnv(config *Config) {
	_ = godotenv.Load()

	if v := os.Getenv("ENDPOINT_ADDR_HTTP"); v != "" {
		config.EndpointAddrHTTP = v
	}
	if v := os.Getenv("DATABASE_DSN"); v != "" {
		config.DatabaseDSN = v
	}
	if v := os.Getenv("SECRET_KEY"); v != "" {
		config.SecretKey = v
	}
	if v := os.Getenv("ACCESS_TOKEN_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			config.AccessTokenValidityDuration = d
		}
	}
	if v := os.Getenv("REFRESH_TOKEN_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			config.RefreshTokenValidityDuration = d
		}
	}
}
