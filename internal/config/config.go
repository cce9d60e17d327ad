package config

import "time"

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

const (
	StoreMemory = "memory"
	StoreRedis  = "redis"
)

// Config is the portal configuration, resolved once at startup.
type Config struct {
	App        AppConfig        `mapstructure:"app"`
	Server     ServerConfig     `mapstructure:"server"`
	Classifier ClassifierConfig `mapstructure:"classifier"`
	Store      StoreConfig      `mapstructure:"store"`
	Session    SessionConfig    `mapstructure:"session"`
	Logging    LoggingConfig    `mapstructure:"logging"`
	Labels     LabelsConfig     `mapstructure:"labels"`
}

type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
}

type ServerConfig struct {
	Addr string `mapstructure:"addr"`
	// Mode is passed to gin.SetMode.
	Mode string `mapstructure:"mode"`
}

type ClassifierConfig struct {
	ProductionURL string `mapstructure:"production_url"`
	LocalURL      string `mapstructure:"local_url"`
	// OverrideURL replaces ProductionURL in production only.
	OverrideURL string `mapstructure:"override_url"`
	Timeout     int    `mapstructure:"timeout"` // milliseconds

	// BaseURL is filled in by Load and is the only field callers should read.
	BaseURL string `mapstructure:"-"`
}

func (c ClassifierConfig) TimeoutDuration() time.Duration {
	return GetDuration(c.Timeout)
}

type StoreConfig struct {
	Driver string      `mapstructure:"driver"`
	Redis  RedisConfig `mapstructure:"redis"`
}

type RedisConfig struct {
	Address    string `mapstructure:"address"`
	Password   string `mapstructure:"password"`
	DB         int    `mapstructure:"db"`
	KeyPrefix  string `mapstructure:"key_prefix"`
	TTLMinutes int    `mapstructure:"ttl_minutes"`
	MaxRetries int    `mapstructure:"max_retries"`
}

func (r RedisConfig) TTL() time.Duration {
	return time.Duration(r.TTLMinutes) * time.Minute
}

type SessionConfig struct {
	CookieName string `mapstructure:"cookie_name"`
	MaxAge     int    `mapstructure:"max_age"` // seconds
	Secure     bool   `mapstructure:"secure"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type LabelsConfig struct {
	File string `mapstructure:"file"`
}

// GetDuration converts milliseconds from config to time.Duration.
func GetDuration(milliseconds int) time.Duration {
	return time.Duration(milliseconds) * time.Millisecond
}
