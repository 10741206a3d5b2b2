package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Environment string `yaml:"environment" default:"dev" validate:"required,oneof=dev staging prod"`
	Server      struct {
		Port            int           `yaml:"port" default:"8080" validate:"gte=1,lte=65535"`
		ReadTimeout     time.Duration `yaml:"read_timeout" default:"10s"`
		WriteTimeout    time.Duration `yaml:"write_timeout" default:"60s"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout" default:"10s"`
		SlowThreshold   time.Duration `yaml:"slow_threshold" default:"2s"`
		CORSOrigins     []string      `yaml:"cors_origins"`
	} `yaml:"server"`
	Logger struct {
		Level  string `yaml:"level" default:"info" validate:"oneof=debug info warn error"`
		Format string `yaml:"format" default:"console" validate:"oneof=console json"`
		Output string `yaml:"output" default:"stdout" validate:"required"`
	} `yaml:"logger"`
	Metrics struct {
		Enabled bool   `yaml:"enabled" default:"true"`
		Path    string `yaml:"path" default:"/metrics"`
	} `yaml:"metrics"`
	Backend struct {
		BaseURL   string        `yaml:"base_url" default:"http://localhost:8000" validate:"required,url"`
		Symbol    string        `yaml:"symbol" default:"ETH/USDT" validate:"required"`
		Timeout   time.Duration `yaml:"timeout" default:"30s" validate:"gt=0"`
		EvalLimit int           `yaml:"eval_limit" default:"200" validate:"gte=1"`
	} `yaml:"backend"`
	Forecast struct {
		Presets       []int `yaml:"presets" default:"[1,10,24,48,72]" validate:"required,min=1,dive,gte=1,lte=168"`
		DefaultPreset int   `yaml:"default_preset" default:"24" validate:"gte=0,lte=168"`
	} `yaml:"forecast"`
	Display struct {
		UTCOffsetHours int `yaml:"utc_offset_hours" default:"7" validate:"gte=-12,lte=14"`
	} `yaml:"display"`
	Cache struct {
		Enabled       bool          `yaml:"enabled" default:"true"`
		MemoryMaxSize int           `yaml:"memory_max_size" default:"256" validate:"gte=1"`
		MemoryTTL     time.Duration `yaml:"memory_ttl" default:"30s"`
		TTL           struct {
			History time.Duration `yaml:"history" default:"1m"`
			Metrics time.Duration `yaml:"metrics" default:"10m"`
			Eval    time.Duration `yaml:"eval" default:"5m"`
		} `yaml:"ttl"`
		Redis struct {
			Enabled  bool   `yaml:"enabled"`
			Host     string `yaml:"host" default:"localhost"`
			Port     int    `yaml:"port" default:"6379"`
			Password string `yaml:"password"`
			DB       int    `yaml:"db"`
			Prefix   string `yaml:"prefix" default:"fincast"`
		} `yaml:"redis"`
	} `yaml:"cache"`
	Kafka struct {
		Enabled      bool          `yaml:"enabled"`
		Brokers      []string      `yaml:"brokers"`
		Topic        string        `yaml:"topic" default:"fincast.forecast-runs"`
		LogTopic     string        `yaml:"log_topic"`
		RequiredAcks int           `yaml:"required_acks" default:"1"`
		Compression  string        `yaml:"compression" default:"snappy" validate:"oneof=none gzip snappy lz4 zstd"`
		MaxAttempts  int           `yaml:"max_attempts" default:"3"`
		WriteTimeout time.Duration `yaml:"write_timeout" default:"5s"`
		BufferSize   int           `yaml:"buffer_size" default:"256" validate:"gte=1"`
	} `yaml:"kafka"`
	Session struct {
		MaxSessions int           `yaml:"max_sessions" default:"1000" validate:"gte=1"`
		IdleTTL     time.Duration `yaml:"idle_ttl" default:"2h"`
	} `yaml:"session"`
	RateLimit struct {
		Capacity     float64 `yaml:"capacity" default:"5"`
		RefillPerSec float64 `yaml:"refill_per_sec" default:"1"`
	} `yaml:"ratelimit"`
}

var validate = validator.New()

// Load reads and parses a YAML configuration file, filling unset fields with defaults.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(b)
}

// Parse decodes YAML bytes into a validated Config.
func Parse(b []byte) (*Config, error) {
	var c Config
	if err := defaults.Set(&c); err != nil {
		return nil, fmt.Errorf("config defaults: %w", err)
	}
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
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
	c.applyEnv(os.Getenv)
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

func (c *Config) applyEnv(getenv func(string) string) {
	if v := getenv("FINCAST_BACKEND_URL"); v != "" {
		c.Backend.BaseURL = strings.TrimRight(v, "/")
	}
	if v := getenv("FINCAST_SYMBOL"); v != "" {
		c.Backend.Symbol = v
	}
	if v := getenv("LOG_LEVEL"); v != "" {
		c.Logger.Level = strings.ToLower(v)
	}
	if v := getenv("PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			c.Server.Port = p
		}
	}
	if v := getenv("REDIS_ADDR"); v != "" {
		host, port, ok := strings.Cut(v, ":")
		c.Cache.Redis.Enabled = true
		c.Cache.Redis.Host = host
		if ok {
			if p, err := strconv.Atoi(port); err == nil {
				c.Cache.Redis.Port = p
			}
		}
	}
	if v := getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Enabled = true
		c.Kafka.Brokers = strings.Split(v, ",")
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return err
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka.brokers cannot be empty when kafka is enabled")
	}
	if c.Forecast.DefaultPreset != 0 && !c.HasPreset(c.Forecast.DefaultPreset) {
		return fmt.Errorf("forecast.default_preset %d is not one of forecast.presets", c.Forecast.DefaultPreset)
	}
	return nil
}

// HasPreset reports whether h is one of the configured preset horizons.
func (c *Config) HasPreset(h int) bool {
	for _, p := range c.Forecast.Presets {
		if p == h {
			return true
		}
	}
	return false
}

// DisplayLocation returns the fixed zone all instants are displayed in.
func (c *Config) DisplayLocation() *time.Location {
	return time.FixedZone(fmt.Sprintf("UTC%+d", c.Display.UTCOffsetHours), c.Display.UTCOffsetHours*3600)
}
