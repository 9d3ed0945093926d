package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Port        string
	Environment string
	LogLevel    string

	// Database
	DatabaseURL string
	RedisURL    string

	// Supabase (management API token verification)
	SupabaseURL string
	JWTSecret   string

	// Embedding service (OpenAI-compatible endpoint)
	EmbeddingAPIKey     string
	EmbeddingBaseURL    string
	EmbeddingModel      string
	EmbeddingTimeoutSec int
	EmbeddingMaxChars   int

	// Mail hook
	HookMaxConcurrency int

	// Cache
	PoliticianCacheTTLMin int

	// Events
	EventsStream string

	// CORS
	AllowedOrigins []string

	// Rate limiting (requests per minute per client, 0 disables)
	RateLimitPerMin int
}

// defaults are keyed by the environment variable name.
var defaults = map[string]any{
	"PORT":                     "8080",
	"ENV":                      "development",
	"LOG_LEVEL":                "info",
	"DATABASE_URL":             "",
	"REDIS_URL":                "",
	"SUPABASE_URL":             "",
	"SUPABASE_JWT_SECRET":      "",
	"EMBEDDING_API_KEY":        "",
	"EMBEDDING_BASE_URL":       "",
	"EMBEDDING_MODEL":          "@cf/baai/bge-m3",
	"EMBEDDING_TIMEOUT_SEC":    30,
	"EMBEDDING_MAX_CHARS":      8000,
	"HOOK_MAX_CONCURRENCY":     8,
	"POLITICIAN_CACHE_TTL_MIN": 10,
	"EVENTS_STREAM":            "messages:processed",
	"ALLOWED_ORIGINS":          "http://localhost:3000,http://localhost:5173",
	"RATE_LIMIT_PER_MIN":       120,
}

// Load reads configuration from the environment. When CONFIG_FILE points at a
// YAML file its keys (same names as the environment variables, any case) are
// read first and environment variables override them.
func Load() (*Config, error) {
	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	v.AutomaticEnv()

	if file := v.GetString("CONFIG_FILE"); file != "" {
		v.SetConfigFile(file)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", file, err)
		}
	}

	return fromViper(v), nil
}

func fromViper(v *viper.Viper) *Config {
	return &Config{
		Port:        v.GetString("PORT"),
		Environment: v.GetString("ENV"),
		LogLevel:    v.GetString("LOG_LEVEL"),

		DatabaseURL: v.GetString("DATABASE_URL"),
		RedisURL:    v.GetString("REDIS_URL"),

		SupabaseURL: v.GetString("SUPABASE_URL"),
		JWTSecret:   v.GetString("SUPABASE_JWT_SECRET"),

		EmbeddingAPIKey:     v.GetString("EMBEDDING_API_KEY"),
		EmbeddingBaseURL:    v.GetString("EMBEDDING_BASE_URL"),
		EmbeddingModel:      v.GetString("EMBEDDING_MODEL"),
		EmbeddingTimeoutSec: v.GetInt("EMBEDDING_TIMEOUT_SEC"),
		EmbeddingMaxChars:   v.GetInt("EMBEDDING_MAX_CHARS"),

		HookMaxConcurrency: v.GetInt("HOOK_MAX_CONCURRENCY"),

		PoliticianCacheTTLMin: v.GetInt("POLITICIAN_CACHE_TTL_MIN"),

		EventsStream: v.GetString("EVENTS_STREAM"),

		AllowedOrigins: splitList(v.GetString("ALLOWED_ORIGINS")),

		RateLimitPerMin: v.GetInt("RATE_LIMIT_PER_MIN"),
	}
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// EmbeddingTimeout returns the per-call embedding deadline.
func (c *Config) EmbeddingTimeout() time.Duration {
	return time.Duration(c.EmbeddingTimeoutSec) * time.Second
}

// PoliticianCacheTTL returns how long resolved politicians stay cached.
func (c *Config) PoliticianCacheTTL() time.Duration {
	return time.Duration(c.PoliticianCacheTTLMin) * time.Minute
}

// IsDevelopment returns true if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}
