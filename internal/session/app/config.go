package app

import (
	"os"
	"strconv"
	"time"

	"github.com/portalhq/sessiond/pkg/jwtx"
)

type Config struct {
	Issuer string // Required: issuer claim for tokens
	Secret string // Required: base64-encoded HMAC-SHA-512 signing key

	AccessTTL     time.Duration // Access-token validity (default: 30m)
	RememberMeTTL time.Duration // Access-token validity with rememberMe (default: 24h)
	RefreshTTL    time.Duration // Refresh-token validity, rememberMe-independent (default: 7d)

	RedisAddr     string        // Session store address (default: localhost:6379)
	RedisPassword string        // Optional: session store password
	RedisDB       int           // Session store database index (default: 0)
	StoreTimeout  time.Duration // Bound on every store operation (default: 2s)

	UsersFile string // Path to the JSON identity seed file (default: ./users.json)

	Env                 string        // Environment (dev, staging, prod) (default: dev)
	LogLevel            string        // Log level (debug, info, warn, error) (default: info)
	LogFormat           string        // Log format (json, text) (default: json)
	Port                int           // HTTP server port (default: 8080)
	ShutdownGracePeriod time.Duration // Graceful shutdown timeout (default: 10s)
}

func LoadConfig() Config {
	return Config{
		Issuer: getEnvOrDefault("SESSION_ISSUER", "sessiond"),
		Secret: os.Getenv("SESSION_SECRET"),

		AccessTTL:     getEnvDurationOrDefault("SESSION_ACCESS_TTL", jwtx.DefaultAccessTokenTTL),
		RememberMeTTL: getEnvDurationOrDefault("SESSION_REMEMBER_ME_TTL", jwtx.DefaultRememberMeTokenTTL),
		RefreshTTL:    getEnvDurationOrDefault("SESSION_REFRESH_TTL", jwtx.DefaultRefreshTokenTTL),

		RedisAddr:     getEnvOrDefault("REDIS_ADDR", "localhost:6379"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		RedisDB:       getEnvIntOrDefault("REDIS_DB", 0),
		StoreTimeout:  getEnvDurationOrDefault("SESSION_STORE_TIMEOUT", 2*time.Second),

		UsersFile: getEnvOrDefault("SESSION_USERS_FILE", "users.json"),

		Env:                 getEnvOrDefault("ENV", "dev"),
		LogLevel:            getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:           getEnvOrDefault("LOG_FORMAT", "json"),
		Port:                getEnvIntOrDefault("PORT", 8080),
		ShutdownGracePeriod: getEnvDurationOrDefault("SHUTDOWN_GRACE_PERIOD", 10*time.Second),
	}
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if intValue, err := strconv.Atoi(value); err == nil {
		return intValue
	}

	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	// e.g. "1h", "30m", "90s"
	if duration, err := time.ParseDuration(value); err == nil {
		return duration
	}

	// Integer minutes, for compatibility with older deployments.
	if minutes, err := strconv.Atoi(value); err == nil {
		return time.Duration(minutes) * time.Minute
	}

	return defaultValue
}
