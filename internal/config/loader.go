package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const envPrefix = "PORTAL"

var defaults = map[string]interface{}{
	"app.name":                  "cs-portal",
	"app.version":               "1.0.0",
	"app.environment":           EnvDevelopment,
	"server.addr":               ":8080",
	"server.mode":               "release",
	"classifier.production_url": "https://your-api-domain.railway.app",
	"classifier.local_url":      "http://localhost:8000",
	"classifier.override_url":   "",
	"classifier.timeout":        30000,
	"store.driver":              StoreMemory,
	"store.redis.address":       "localhost:6379",
	"store.redis.password":      "",
	"store.redis.db":            0,
	"store.redis.key_prefix":    "cs-portal:session:",
	"store.redis.ttl_minutes":   24 * 60,
	"store.redis.max_retries":   3,
	"session.cookie_name":       "portal_session",
	"session.max_age":           7 * 24 * 3600,
	"session.secure":            false,
	"logging.level":             "info",
	"logging.format":            "json",
	"labels.file":               "config/labels.yaml",
}

// Load reads app.yaml (and app.<environment>.yaml when present) from dir,
// applies PORTAL_* environment overrides and resolves the classifier URL.
// A missing app.yaml is not an error.
func Load(dir string) (*Config, error) {
	loadEnvFile(dir)

	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	v.SetConfigName("app")
	v.SetConfigType("yaml")
	v.AddConfigPath(dir)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	// bare names kept for deployments that already export them
	_ = v.BindEnv("app.environment", envPrefix+"_APP_ENVIRONMENT", "APP_ENVIRONMENT")
	_ = v.BindEnv("classifier.override_url", envPrefix+"_CLASSIFIER_OVERRIDE_URL", "API_URL")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading base config: %w", err)
		}
	}

	env := v.GetString("app.environment")
	envFile := filepath.Join(dir, fmt.Sprintf("app.%s.yaml", env))
	if _, err := os.Stat(envFile); err == nil {
		v.SetConfigFile(envFile)
		if err := v.MergeInConfig(); err != nil {
			return nil, fmt.Errorf("error merging %s: %w", envFile, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	cfg.Classifier.BaseURL = ResolveBaseURL(cfg.Classifier, cfg.App.Environment)

	if err := validateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// ResolveBaseURL picks the classifier endpoint for an environment: production
// uses the override when set, else the production default; everything else
// talks to the local service.
func ResolveBaseURL(c ClassifierConfig, environment string) string {
	base := c.LocalURL
	if environment == EnvProduction {
		base = c.ProductionURL
		if c.OverrideURL != "" {
			base = c.OverrideURL
		}
	}
	return strings.TrimRight(strings.TrimSpace(base), "/")
}

func loadEnvFile(dir string) {
	for _, path := range []string{".env", filepath.Join(dir, ".env")} {
		if _, err := os.Stat(path); err == nil {
			// existing environment variables win
			_ = godotenv.Load(path)
			return
		}
	}
}

func validateConfig(cfg *Config) error {
	if cfg.Server.Addr == "" {
		return fmt.Errorf("server.addr is required")
	}

	u, err := url.Parse(cfg.Classifier.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("classifier base url %q is not an http(s) url", cfg.Classifier.BaseURL)
	}
	if cfg.Classifier.Timeout <= 0 {
		return fmt.Errorf("classifier.timeout must be positive")
	}

	switch cfg.Store.Driver {
	case StoreMemory:
	case StoreRedis:
		if cfg.Store.Redis.Address == "" {
			return fmt.Errorf("store.redis.address is required")
		}
		if cfg.Store.Redis.MaxRetries < 0 {
			return fmt.Errorf("store.redis.max_retries cannot be negative")
		}
	default:
		return fmt.Errorf("unknown store.driver %q", cfg.Store.Driver)
	}

	if cfg.Session.CookieName == "" {
		return fmt.Errorf("session.cookie_name is required")
	}

	switch cfg.Logging.Format {
	case "json", "console":
	default:
		return fmt.Errorf("unknown logging.format %q", cfg.Logging.Format)
	}

	return nil
}
