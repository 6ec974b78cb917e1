package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Environment string `yaml:"environment"`
	Server      struct {
		Port            int           `yaml:"port"`
		ReadTimeout     time.Duration `yaml:"read_timeout"`
		WriteTimeout    time.Duration `yaml:"write_timeout"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
		// RateLimit is the burst of predict calls per client; 0 disables.
		RateLimit  float64 `yaml:"rate_limit"`
		RateRefill float64 `yaml:"rate_refill"` // tokens per second
	} `yaml:"server"`
	Logger struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
		Output string `yaml:"output"`
	} `yaml:"logger"`
	Metrics struct {
		Enabled bool   `yaml:"enabled"`
		Path    string `yaml:"path"`
	} `yaml:"metrics"`
	Forecast struct {
		Window          int           `yaml:"window"`
		MaxHorizon      int           `yaml:"max_horizon"`
		HistoryLimit    int           `yaml:"history_limit"`
		RequestTimeout  time.Duration `yaml:"request_timeout"`
		Symbols         []string      `yaml:"symbols"`
		RefreshSchedule string        `yaml:"refresh_schedule"`
		RefreshHorizon  int           `yaml:"refresh_horizon"`
		RefreshKinds    []string      `yaml:"refresh_kinds"`
	} `yaml:"forecast"`
	Scaler struct {
		Backend string        `yaml:"backend"` // memory, file or redis
		Dir     string        `yaml:"dir"`
		LockTTL time.Duration `yaml:"lock_ttl"`
	} `yaml:"scaler"`
	Redis struct {
		Host     string `yaml:"host"`
		Port     int    `yaml:"port"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		Prefix   string `yaml:"prefix"`
	} `yaml:"redis"`
	ClickHouse struct {
		Enabled          bool          `yaml:"enabled"`
		Host             string        `yaml:"host"`
		Port             int           `yaml:"port"`
		Database         string        `yaml:"database"`
		User             string        `yaml:"user"`
		Password         string        `yaml:"password"`
		UseHTTP          bool          `yaml:"use_http"`
		DialTimeout      time.Duration `yaml:"dial_timeout"`
		ReadTimeout      time.Duration `yaml:"read_timeout"`
		WriteTimeout     time.Duration `yaml:"write_timeout"`
		MaxExecutionTime time.Duration `yaml:"max_execution_time"`
	} `yaml:"clickhouse"`
	Kafka struct {
		Enabled          bool     `yaml:"enabled"`
		Brokers          []string `yaml:"brokers"`
		ForecastTopic    string   `yaml:"forecast_topic"`
		ModelReadyTopic  string   `yaml:"model_ready_topic"`
		RequiredAcks     int      `yaml:"required_acks"`
		Compression      string   `yaml:"compression"`
		ConsumerGroupID  string   `yaml:"consumer_group_id"`
		ConsumerWorkers  int      `yaml:"consumer_workers"`
		ConsumerRetryMax int      `yaml:"consumer_retry_max"`
	} `yaml:"kafka"`
	Models struct {
		Dir        string        `yaml:"dir"`
		ServiceURL string        `yaml:"service_url"`
		Timeout    time.Duration `yaml:"timeout"`
		CacheTTL   time.Duration `yaml:"cache_ttl"`
	} `yaml:"models"`
}

// Load reads and parses a YAML configuration file.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(b)
}

// Parse decodes YAML bytes, applies defaults and validates.
func Parse(b []byte) (*Config, error) {
	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	c.applyDefaults()

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return &c, nil
}

// LoadWithEnv loads config from YAML and overrides with environment variables.
func LoadWithEnv(path string) (*Config, error) {
	c, err := Load(path)
	if err != nil {
		return nil, err
	}

	if v := os.Getenv("SCALER_BACKEND"); v != "" {
		c.Scaler.Backend = v
	}
	if v := os.Getenv("REDIS_HOST"); v != "" {
		c.Redis.Host = v
	}
	if v := os.Getenv("CLICKHOUSE_HOST"); v != "" {
		c.ClickHouse.Host = v
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("MODEL_DIR"); v != "" {
		c.Models.Dir = v
	}
	if v := os.Getenv("MODEL_SERVICE_URL"); v != "" {
		c.Models.ServiceURL = v
	}
	if v := os.Getenv("SYMBOLS"); v != "" {
		c.Forecast.Symbols = strings.Split(v, ",")
	}

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Server.ShutdownTimeout == 0 {
		c.Server.ShutdownTimeout = 10 * time.Second
	}
	if c.Logger.Level == "" {
		c.Logger.Level = "info"
	}
	if c.Logger.Format == "" {
		c.Logger.Format = "json"
	}
	if c.Forecast.Window == 0 {
		c.Forecast.Window = 60
	}
	if c.Forecast.MaxHorizon == 0 {
		c.Forecast.MaxHorizon = 365
	}
	if c.Forecast.HistoryLimit == 0 {
		c.Forecast.HistoryLimit = 5000
	}
	if c.Forecast.RequestTimeout == 0 {
		c.Forecast.RequestTimeout = 30 * time.Second
	}
	if c.Forecast.RefreshHorizon == 0 {
		c.Forecast.RefreshHorizon = 5
	}
	if c.Scaler.Backend == "" {
		c.Scaler.Backend = "file"
	}
	if c.Scaler.Dir == "" {
		c.Scaler.Dir = "models/scalers"
	}
	if c.Scaler.LockTTL == 0 {
		c.Scaler.LockTTL = 5 * time.Second
	}
	if c.Models.Dir == "" {
		c.Models.Dir = "models"
	}
	if c.Models.Timeout == 0 {
		c.Models.Timeout = 10 * time.Second
	}
	if c.Models.CacheTTL == 0 {
		c.Models.CacheTTL = 10 * time.Minute
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Environment == "" {
		return fmt.Errorf("environment is required")
	}
	switch c.Scaler.Backend {
	case "memory", "file":
	case "redis":
		if c.Redis.Host == "" {
			return fmt.Errorf("redis.host is required for scaler.backend=redis")
		}
	default:
		return fmt.Errorf("scaler.backend must be 'memory', 'file' or 'redis', got '%s'", c.Scaler.Backend)
	}
	if c.Forecast.Window < 1 {
		return fmt.Errorf("forecast.window must be positive")
	}
	if c.Forecast.MaxHorizon < 1 {
		return fmt.Errorf("forecast.max_horizon must be positive")
	}
	if c.ClickHouse.Enabled && c.ClickHouse.Host == "" {
		return fmt.Errorf("clickhouse.host is required when clickhouse is enabled")
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka.brokers cannot be empty when kafka is enabled")
	}
	if c.Forecast.RefreshSchedule != "" && len(c.Forecast.Symbols) == 0 {
		return fmt.Errorf("forecast.symbols cannot be empty when refresh_schedule is set")
	}
	return nil
}
