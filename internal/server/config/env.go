package config

import (
	"errors"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// loadDotEnv is a seam for tests. godotenv never overrides variables that
// are already set in the process environment.
var loadDotEnv = func() error { return godotenv.Load() }

// Environment variables read by parseEnv. DATABASE_URL and REDIS_URL are
// accepted as fallbacks because hosting platforms set them.
const (
	envAddr             = "TODO_ADDR"
	envMetricsAddr      = "TODO_METRICS_ADDR"
	envDatabaseDSN      = "TODO_DATABASE_DSN"
	envDatabaseURL      = "DATABASE_URL"
	envSecretKey        = "TODO_SECRET_KEY"
	envAccessTokenTTL   = "TODO_ACCESS_TOKEN_TTL"
	envLoginTokenTTL    = "TODO_LOGIN_TOKEN_TTL"
	envBcryptCost       = "TODO_BCRYPT_COST"
	envCookieSecure     = "TODO_COOKIE_SECURE"
	envRedisURL         = "TODO_REDIS_URL"
	envRedisURLFallback = "REDIS_URL"
	envLogLevel         = "TODO_LOG_LEVEL"
	envShutdownTimeout  = "TODO_SHUTDOWN_TIMEOUT"
)

// parseEnv overlays config values from environment variables, loading a
// .env file from the working directory first when one exists.
// Malformed values panic, like a malformed JSON config does.
func parseEnv(config *Config) {
	if err := loadDotEnv(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		panic(err)
	}

	setString(&config.EndpointAddrHTTP, envAddr)
	if v, ok := os.LookupEnv(envMetricsAddr); ok {
		// empty is meaningful: it turns the metrics listener off
		config.MetricsAddr = v
	}
	setString(&config.DatabaseDSN, envDatabaseURL)
	setString(&config.DatabaseDSN, envDatabaseDSN)
	setString(&config.SecretKey, envSecretKey)
	setDuration(&config.AccessTokenValidityDuration, envAccessTokenTTL)
	setDuration(&config.LoginTokenValidityDuration, envLoginTokenTTL)
	setDuration(&config.ShutdownTimeout, envShutdownTimeout)
	setString(&config.RedisURL, envRedisURLFallback)
	setString(&config.RedisURL, envRedisURL)
	setString(&config.LogLevel, envLogLevel)

	if v, ok := os.LookupEnv(envBcryptCost); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			panic(err)
		}
		config.BcryptCost = n
	}
	if v, ok := os.LookupEnv(envCookieSecure); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			panic(err)
		}
		config.CookieSecure = b
	}
}

func setString(dst *string, key string) {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		*dst = v
	}
}

func setDuration(dst *time.Duration, key string) {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		panic(err)
	}
	*dst = d
}
