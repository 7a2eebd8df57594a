package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"
)

// App holds the runtime configuration loaded from environment variables.
type App struct {
	Env string

	// Remote facility API.
	APIURL             string
	HTTPTimeout        time.Duration
	InmateDeletePrefix string
	LogsPrefix         string

	// Session credential storage.
	SessionBackend     string
	SessionDSN         string
	RedisAddr          string
	SessionRedisPrefix string

	// Batch recognition.
	QueueBackend string
	QueueKey     string
	Workers      int
	MetricsPort  string

	// Stub server.
	HTTPPort            string
	JWTIssuer           string
	JWTSigningKey       string
	AccessTTL           time.Duration
	AllowedEmails       []string
	RecognitionCooldown time.Duration
	SeedOfficer         string
	RateLimitPerMin     int
	CORSOrigins         []string

	LogLevel  string
	LogFormat string
}

// Load returns application config populated from environment variables with sensible defaults.
func Load() App {
	return App{
		Env:                 getEnv("APP_ENV", "dev"),
		APIURL:              getEnv("FACILITY_API_URL", "http://localhost:8000"),
		HTTPTimeout:         durationEnv("FACILITY_HTTP_TIMEOUT", 0),
		InmateDeletePrefix:  getEnv("FACILITY_INMATE_DELETE_PREFIX", "/inmates/by-inmate-id"),
		LogsPrefix:          getEnv("FACILITY_LOGS_PREFIX", "/logs"),
		SessionBackend:      getEnv("SESSION_BACKEND", "sqlite"),
		SessionDSN:          getEnv("SESSION_DSN", "file:facility_session.db"),
		RedisAddr:           getEnv("REDIS_ADDR", "localhost:6379"),
		SessionRedisPrefix:  getEnv("SESSION_REDIS_PREFIX", "facility:session:"),
		QueueBackend:        getEnv("QUEUE_BACKEND", "redis"),
		QueueKey:            getEnv("QUEUE_KEY", "facility:recognize"),
		Workers:             intEnv("WORKERS", 4),
		MetricsPort:         getEnv("METRICS_PORT", "9100"),
		HTTPPort:            getEnv("HTTP_PORT", "8000"),
		JWTIssuer:           getEnv("JWT_ISSUER", "facility-api"),
		JWTSigningKey:       getEnv("JWT_SIGNING_KEY", "dev-signing-secret-change"),
		AccessTTL:           durationEnv("ACCESS_TTL", 60*time.Minute),
		AllowedEmails:       listEnv("ALLOWED_EMAILS"),
		RecognitionCooldown: durationEnv("RECOGNITION_COOLDOWN", 30*time.Second),
		SeedOfficer:         getEnv("SEED_OFFICER", ""),
		RateLimitPerMin:     intEnv("RATE_LIMIT_PER_MIN", 0),
		CORSOrigins:         listEnv("CORS_ORIGINS"),
		LogLevel:            getEnv("LOG_LEVEL", "info"),
		LogFormat:           getEnv("LOG_FORMAT", "text"),
	}
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func durationEnv(key string, fallback time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		d, err := time.ParseDuration(val)
		if err != nil {
			slog.Warn("invalid duration, using fallback", "key", key, "err", err, "fallback", fallback)
			return fallback
		}
		return d
	}
	return fallback
}

// listEnv splits a comma-separated value, dropping empty items.
func listEnv(key string) []string {
	var out []string
	for _, item := range strings.Split(os.Getenv(key), ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func boolEnv(key string, fallback bool) bool {
	if val := os.Getenv(key); val != "" {
		if val == "1" || val == "true" || val == "TRUE" {
			return true
		}
		if val == "0" || val == "false" || val == "FALSE" {
			return false
		}
		slog.Warn("invalid bool, using fallback", "key", key, "fallback", fallback)
	}
	return fallback
}

func intEnv(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		var parsed int
		if _, err := fmt.Sscanf(val, "%d", &parsed); err == nil {
			return parsed
		}
		slog.Warn("invalid int, using fallback", "key", key, "fallback", fallback)
	}
	return fallback
}

// Production reports whether the app runs in a production environment.
func (a App) Production() bool {
	return boolEnv("APP_PRODUCTION", a.Env == "production" || a.Env == "prod")
}
