package config

import (
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	defaultPort        = "4000"
	defaultOrigin      = "http://localhost:5173"
	defaultTokenTTL    = 7 * 24 * time.Hour
	defaultBackendURL  = "http://localhost:4000"
	defaultResolveWait = 10 * time.Second
	defaultRedisKey    = "prescripto:token"

	// SecretEnv names the variable holding the token signing secret.
	SecretEnv = "JWT_SECRET"
)

// Config holds server settings. The signing secret is deliberately
// absent: it is read from the environment on every use via JWTSecret.
type Config struct {
	AppPort string

	DatabaseDSN string

	AllowedOrigins []string

	TokenTTL time.Duration

	LogLevel string
}

func Load() Config {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg := Config{

		AppPort: envOr("APP_PORT", os.Getenv("PORT"), defaultPort),

		DatabaseDSN: os.Getenv("DATABASE_DSN"),

		AllowedOrigins: splitList(envOr("CORS_ALLOWED_ORIGINS", defaultOrigin)),

		TokenTTL: durationOr(os.Getenv("TOKEN_TTL"), defaultTokenTTL),

		LogLevel: envOr("LOG_LEVEL", "info"),
	}

	return cfg
}

// JWTSecret returns the current signing secret, or nil when unset.
func JWTSecret() []byte {
	s := os.Getenv(SecretEnv)
	if s == "" {
		return nil
	}
	return []byte(s)
}

// ClientConfig holds settings for the command-line client.
type ClientConfig struct {
	BackendURL string

	TokenFile string

	RedisAddr     string
	RedisPassword string
	RedisKey      string

	ResolveTimeout time.Duration
}

func LoadClient() ClientConfig {
	_ = godotenv.Load()

	home, _ := os.UserHomeDir()
	tokenFile := os.Getenv("TOKEN_FILE")
	if tokenFile == "" && home != "" {
		tokenFile = home + "/.prescripto/token"
	}

	return ClientConfig{
		BackendURL: NormalizeBackendURL(os.Getenv("BACKEND_URL")),

		TokenFile: tokenFile,

		RedisAddr:     os.Getenv("REDIS_ADDR"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		RedisKey:      envOr("REDIS_KEY", defaultRedisKey),

		ResolveTimeout: durationOr(os.Getenv("RESOLVE_TIMEOUT"), defaultResolveWait),
	}
}

// NormalizeBackendURL turns loose input such as ":4000" or
// "api.example.com/" into an absolute http(s) base URL with no
// trailing slash. Empty or unusable input yields the local default.
func NormalizeBackendURL(raw string) string {
	u := strings.TrimSpace(raw)
	if u == "" {
		return defaultBackendURL
	}

	if !strings.HasPrefix(u, "http://") && !strings.HasPrefix(u, "https://") {
		if strings.HasPrefix(u, ":") {
			u = "http://localhost" + u
		} else {
			u = "http://" + u
		}
	}

	u = strings.TrimSuffix(u, "/")

	if u == "http:/" || u == "https:/" || u == "http://" || u == "https://" {
		return defaultBackendURL
	}
	return u
}

func envOr(key string, fallbacks ...string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	for _, f := range fallbacks {
		if f != "" {
			return f
		}
	}
	return ""
}

func durationOr(raw string, def time.Duration) time.Duration {
	if raw == "" {
		return def
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		return def
	}
	return d
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, strings.TrimSuffix(p, "/"))
		}
	}
	return out
}
