package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultMinRecipeLength is the shortest provider output, in Unicode code points
// (runes, not bytes or UTF-16 units), that is served as-is.
// Anything shorter is treated as a degraded result.
const DefaultMinRecipeLength = 50

type Config struct {
	Env            string
	ServiceName    string
	ServiceVersion string
	Port           string
	ConfigFile     string

	// GeminiKey is read once at startup. An empty key is not a load error;
	// the recipe endpoint reports it per request.
	GeminiKey string

	DatabaseURL string
	RedisURL    string

	AuthJWTSecret string
	AuthJWTIssuer string

	CORSAllowedOrigins []string

	OtelExporterOTLPEndpoint string
	OtelExporterOTLPHeaders  string
	SentryDSN                string

	Recipe    RecipeConfig
	RateLimit RateLimitConfig
	History   HistoryConfig
	Worker    WorkerConfig
}

type RecipeConfig struct {
	Provider        string        `yaml:"provider"`
	Model           string        `yaml:"model"`
	BaseURL         string        `yaml:"base_url"`
	MinRecipeLength int           `yaml:"min_recipe_length"`
	RequestTimeout  time.Duration `yaml:"request_timeout"`
}

type RateLimitConfig struct {
	Enabled bool          `yaml:"enabled"`
	Limit   int           `yaml:"limit"`
	Window  time.Duration `yaml:"window"`
}

type HistoryConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Queue    string `yaml:"queue"`
	MaxRetry int    `yaml:"max_retry"`
}

type WorkerConfig struct {
	Concurrency int `yaml:"concurrency"`
}

func Load() (*Config, error) {
	cfg := fromEnv()

	if err := cfg.LoadFromYAML(cfg.ConfigFile); err != nil {
		return nil, fmt.Errorf("failed to load YAML config: %w", err)
	}

	// Env overrides for the recipe section
	if v := os.Getenv("GEMINI_MODEL"); v != "" {
		cfg.Recipe.Model = v
	}
	if v := os.Getenv("GEMINI_BASE_URL"); v != "" {
		cfg.Recipe.BaseURL = v
	}

	cfg.SetDefaults()

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadWorker loads the config for the history worker, which cannot run without its stores.
func LoadWorker() (*Config, error) {
	cfg, err := Load()
	if err != nil {
		return nil, err
	}
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.RedisURL == "" {
		return nil, fmt.Errorf("REDIS_URL is required")
	}
	return cfg, nil
}

func fromEnv() *Config {
	cfg := &Config{
		Env:                      os.Getenv("ENV"),
		ServiceName:              os.Getenv("SERVICE_NAME"),
		ServiceVersion:           os.Getenv("SERVICE_VERSION"),
		Port:                     os.Getenv("PORT"),
		ConfigFile:               os.Getenv("CONFIG_FILE"),
		GeminiKey:                os.Getenv("GEMINI_API_KEY"),
		DatabaseURL:              os.Getenv("DATABASE_URL"),
		RedisURL:                 os.Getenv("REDIS_URL"),
		AuthJWTSecret:            os.Getenv("AUTH_JWT_SECRET"),
		AuthJWTIssuer:            os.Getenv("AUTH_JWT_ISSUER"),
		CORSAllowedOrigins:       splitList(os.Getenv("CORS_ALLOWED_ORIGINS")),
		OtelExporterOTLPEndpoint: os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
		OtelExporterOTLPHeaders:  os.Getenv("OTEL_EXPORTER_OTLP_HEADERS"),
		SentryDSN:                os.Getenv("SENTRY_DSN"),
	}
	if cfg.ConfigFile == "" {
		cfg.ConfigFile = "config.yaml"
	}
	return cfg
}

func (c *Config) LoadFromYAML(path string) error {
	if path == "" {
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil // File not found is not an error
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}

	var yamlConfig struct {
		Recipe    RecipeConfig    `yaml:"recipe"`
		RateLimit RateLimitConfig `yaml:"rate_limit"`
		History   HistoryConfig   `yaml:"history"`
		Worker    WorkerConfig    `yaml:"worker"`
	}

	if err := yaml.Unmarshal(data, &yamlConfig); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	r := yamlConfig.Recipe
	if r.Provider != "" {
		c.Recipe.Provider = r.Provider
	}
	if r.Model != "" {
		c.Recipe.Model = r.Model
	}
	if r.BaseURL != "" {
		c.Recipe.BaseURL = r.BaseURL
	}
	if r.MinRecipeLength != 0 {
		c.Recipe.MinRecipeLength = r.MinRecipeLength
	}
	if r.RequestTimeout != 0 {
		c.Recipe.RequestTimeout = r.RequestTimeout
	}

	rl := yamlConfig.RateLimit
	if rl.Enabled {
		c.RateLimit.Enabled = true
	}
	if rl.Limit != 0 {
		c.RateLimit.Limit = rl.Limit
	}
	if rl.Window != 0 {
		c.RateLimit.Window = rl.Window
	}

	h := yamlConfig.History
	if h.Enabled {
		c.History.Enabled = true
	}
	if h.Queue != "" {
		c.History.Queue = h.Queue
	}
	if h.MaxRetry != 0 {
		c.History.MaxRetry = h.MaxRetry
	}

	if yamlConfig.Worker.Concurrency != 0 {
		c.Worker.Concurrency = yamlConfig.Worker.Concurrency
	}

	return nil
}

func (c *Config) SetDefaults() {
	if c.Env == "" {
		c.Env = "development"
	}
	if c.ServiceName == "" {
		c.ServiceName = "pantry"
	}
	if c.ServiceVersion == "" {
		c.ServiceVersion = "1.0.0"
	}
	if c.Port == "" {
		c.Port = "8080"
	}
	if len(c.CORSAllowedOrigins) == 0 {
		c.CORSAllowedOrigins = []string{"*"}
	}
	c.SetRecipeDefaults()

	if c.RateLimit.Limit == 0 {
		c.RateLimit.Limit = 30
	}
	if c.RateLimit.Window == 0 {
		c.RateLimit.Window = time.Minute
	}
	if c.History.Queue == "" {
		c.History.Queue = "default"
	}
	if c.History.MaxRetry == 0 {
		c.History.MaxRetry = 5
	}
	if c.Worker.Concurrency == 0 {
		c.Worker.Concurrency = 10
	}
}

func (c *Config) SetRecipeDefaults() {
	if c.Recipe.Provider == "" {
		c.Recipe.Provider = "gemini"
	}
	if c.Recipe.Model == "" {
		c.Recipe.Model = "gemini-1.5-flash"
	}
	if c.Recipe.BaseURL == "" {
		c.Recipe.BaseURL = "https://generativelanguage.googleapis.com"
	}
	if c.Recipe.MinRecipeLength == 0 {
		c.Recipe.MinRecipeLength = DefaultMinRecipeLength
	}
}

// AuthEnabled reports whether the recipe endpoint requires a bearer token.
func (c *Config) AuthEnabled() bool {
	return c.AuthJWTSecret != ""
}

// OTLPHeaders parses OTEL_EXPORTER_OTLP_HEADERS ("k1=v1,k2=v2").
func (c *Config) OTLPHeaders() map[string]string {
	headers := make(map[string]string)
	for _, pair := range splitList(c.OtelExporterOTLPHeaders) {
		k, v, ok := strings.Cut(pair, "=")
		if !ok || strings.TrimSpace(k) == "" {
			continue
		}
		headers[strings.TrimSpace(k)] = strings.TrimSpace(v)
	}
	return headers
}

func (c *Config) validate() error {
	if c.Recipe.Provider != "gemini" {
		return fmt.Errorf("unsupported recipe provider %q", c.Recipe.Provider)
	}
	if c.Recipe.MinRecipeLength < 1 {
		return fmt.Errorf("recipe.min_recipe_length must be at least 1")
	}
	if c.Recipe.RequestTimeout < 0 {
		return fmt.Errorf("recipe.request_timeout must not be negative")
	}
	if c.RateLimit.Enabled {
		if c.RedisURL == "" {
			return fmt.Errorf("REDIS_URL is required when rate limiting is enabled")
		}
		if c.RateLimit.Limit < 1 {
			return fmt.Errorf("rate_limit.limit must be at least 1")
		}
		if c.RateLimit.Window <= 0 {
			return fmt.Errorf("rate_limit.window must be positive")
		}
	}
	if c.History.Enabled && c.RedisURL == "" {
		return fmt.Errorf("REDIS_URL is required when history is enabled")
	}
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
