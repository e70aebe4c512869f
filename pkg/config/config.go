package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"LeoneAI/pkg/logger"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Environment string        `yaml:"environment" default:"development" validate:"required"`
	Log         logger.Config `yaml:"log"`

	API struct {
		BaseURL     string        `yaml:"base_url" default:"http://localhost:8000" validate:"required,url"`
		WSBaseURL   string        `yaml:"ws_base_url" validate:"omitempty,url"`
		Prefix      string        `yaml:"prefix" default:"/api/v1"`
		Timeout     time.Duration `yaml:"timeout" default:"10s"`
		RefreshPath string        `yaml:"refresh_path" default:"/auth/refresh"`
	} `yaml:"api"`

	Session struct {
		Store         string `yaml:"store" default:"badger" validate:"oneof=badger redis memory"`
		Path          string `yaml:"path" default:".leoneai/session"`
		EncryptionKey string `yaml:"encryption_key"`
		Prefix        string `yaml:"prefix" default:"leoneai:session"`
		Redis         struct {
			Addr     string `yaml:"addr" default:"localhost:6379"`
			Password string `yaml:"password"`
			DB       int    `yaml:"db"`
		} `yaml:"redis"`
	} `yaml:"session"`

	Feed struct {
		Symbols        []string      `yaml:"symbols"`
		Multiplex      bool          `yaml:"multiplex"`
		ReconnectDelay time.Duration `yaml:"reconnect_delay" default:"5s"`
		PingInterval   time.Duration `yaml:"ping_interval" default:"30s"`
		BufferSize     int           `yaml:"buffer_size" default:"256" validate:"gt=0"`
		Portfolio      bool          `yaml:"portfolio"`
	} `yaml:"feed"`

	Polling struct {
		Interval     time.Duration `yaml:"interval" default:"30s"`
		SignalsLimit int           `yaml:"signals_limit" default:"20" validate:"gt=0"`
	} `yaml:"polling"`

	Currency struct {
		USDToSLL float64 `yaml:"usd_to_sll" default:"23.70" validate:"gt=0"`
		Display  string  `yaml:"display" default:"SLL" validate:"oneof=SLL USD"`
	} `yaml:"currency"`

	CoinGecko struct {
		Enabled bool          `yaml:"enabled" default:"true"`
		BaseURL string        `yaml:"base_url" default:"https://api.coingecko.com/api/v3" validate:"required,url"`
		Timeout time.Duration `yaml:"timeout" default:"10s"`
		PerPage int           `yaml:"per_page" default:"10" validate:"gt=0,lte=250"`
	} `yaml:"coingecko"`

	Server struct {
		Enabled         bool          `yaml:"enabled" default:"true"`
		Host            string        `yaml:"host" default:"127.0.0.1"`
		Port            int           `yaml:"port" default:"8090" validate:"gt=0,lt=65536"`
		ReadTimeout     time.Duration `yaml:"read_timeout" default:"10s"`
		WriteTimeout    time.Duration `yaml:"write_timeout" default:"10s"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout" default:"10s"`
		MaxRPS          float64       `yaml:"max_rps" default:"20"`
		CORS            CORSConfig    `yaml:"cors"`
	} `yaml:"server"`

	Metrics struct {
		Enabled bool   `yaml:"enabled" default:"true"`
		Path    string `yaml:"path" default:"/metrics"`
	} `yaml:"metrics"`

	Sink  SinkConfig  `yaml:"sink"`
	Kafka KafkaConfig `yaml:"kafka"`

	ClickHouse struct {
		Host        string        `yaml:"host" default:"localhost"`
		Port        int           `yaml:"port" default:"9000"`
		Database    string        `yaml:"database" default:"leoneai"`
		User        string        `yaml:"user" default:"default"`
		Password    string        `yaml:"password"`
		UseHTTP     bool          `yaml:"use_http"`
		AsyncInsert bool          `yaml:"async_insert"`
		DialTimeout time.Duration `yaml:"dial_timeout" default:"5s"`
	} `yaml:"clickhouse"`
}

// SinkConfig selects where validated ticks are forwarded.
type SinkConfig struct {
	Type         string        `yaml:"type" default:"none" validate:"oneof=none kafka clickhouse"`
	BatchSize    int           `yaml:"batch_size" default:"100"`
	BatchTimeout time.Duration `yaml:"batch_timeout" default:"1s"`
	MaxRPS       int           `yaml:"max_rps" default:"50"`
}

// KafkaConfig is the writer side of the kafka tick sink.
type KafkaConfig struct {
	Brokers      []string      `yaml:"brokers"`
	Topic        string        `yaml:"topic" default:"leoneai.ticks"`
	RequiredAcks int           `yaml:"required_acks" default:"1" validate:"oneof=-1 0 1"`
	Compression  string        `yaml:"compression" default:"snappy" validate:"oneof=none gzip snappy lz4 zstd"`
	MaxAttempts  int           `yaml:"max_attempts" default:"5"`
	Linger       time.Duration `yaml:"linger" default:"50ms"`
	BatchBytes   int           `yaml:"batch_bytes" default:"1048576"`
	WriteTimeout time.Duration `yaml:"write_timeout" default:"10s"`
	Async        bool          `yaml:"async"`
}

// CORSConfig lists the browser origins allowed to call the local API. The
// web dashboard dev server is the default; an empty list disables CORS.
type CORSConfig struct {
	AllowOrigins []string `yaml:"allow_origins" default:"[\"http://localhost:3000\",\"http://127.0.0.1:3000\"]"`
	AllowMethods []string `yaml:"allow_methods" default:"[\"GET\",\"POST\",\"PUT\",\"PATCH\",\"DELETE\"]"`
}

var validate = validator.New()

// Default returns a configuration with every default applied.
func Default() *Config {
	var c Config
	_ = defaults.Set(&c)
	return &c
}

// Load reads and parses a YAML configuration file. A missing file yields defaults.
// Defaults are applied first so explicit false/zero values in the file survive.
func Load(path string) (*Config, error) {
	var c Config
	if err := defaults.Set(&c); err != nil {
		return nil, fmt.Errorf("apply defaults: %w", err)
	}

	if path != "" {
		b, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(b, &c); err != nil {
				return nil, fmt.Errorf("parse config: %w", err)
			}
		case errors.Is(err, os.ErrNotExist):
		default:
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &c, nil
}

// LoadWithEnv loads .env files, the YAML file, then applies environment overrides.
func LoadWithEnv(path string, envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("load %s: %w", f, err)
		}
	}

	c, err := Load(path)
	if err != nil {
		return nil, err
	}

	if v := os.Getenv("LEONE_API_URL"); v != "" {
		c.API.BaseURL = v
	}
	if v := os.Getenv("LEONE_WS_URL"); v != "" {
		c.API.WSBaseURL = v
	}
	if v := os.Getenv("LEONE_SYMBOLS"); v != "" {
		c.Feed.Symbols = splitList(v)
		for i := range c.Feed.Symbols {
			c.Feed.Symbols[i] = strings.ToUpper(c.Feed.Symbols[i])
		}
	}
	if v := os.Getenv("LEONE_SESSION_STORE"); v != "" {
		c.Session.Store = v
	}
	if v := os.Getenv("LEONE_SESSION_KEY"); v != "" {
		c.Session.EncryptionKey = v
	}
	if v := os.Getenv("LEONE_SINK"); v != "" {
		c.Sink.Type = v
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = splitList(v)
	}
	if v := os.Getenv("KAFKA_TOPIC"); v != "" {
		c.Kafka.Topic = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		c.Session.Redis.Addr = v
	}

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return c, nil
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return err
	}
	if c.API.Timeout <= 0 {
		return fmt.Errorf("api.timeout must be positive")
	}
	if c.Feed.ReconnectDelay <= 0 {
		return fmt.Errorf("feed.reconnect_delay must be positive")
	}
	if c.Polling.Interval <= 0 {
		return fmt.Errorf("polling.interval must be positive")
	}
	if c.Sink.Type == "kafka" && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka.brokers cannot be empty when sink.type is 'kafka'")
	}
	if c.Session.Store == "badger" && c.Session.Path == "" {
		return fmt.Errorf("session.path is required for the badger store")
	}
	return nil
}

// WebSocketBaseURL returns the configured socket base or derives it from the REST base.
func (c *Config) WebSocketBaseURL() string {
	if c.API.WSBaseURL != "" {
		return strings.TrimRight(c.API.WSBaseURL, "/")
	}
	base := strings.TrimRight(c.API.BaseURL, "/")
	switch {
	case strings.HasPrefix(base, "https://"):
		return "wss://" + strings.TrimPrefix(base, "https://")
	case strings.HasPrefix(base, "http://"):
		return "ws://" + strings.TrimPrefix(base, "http://")
	}
	return base
}

func splitList(v string) []string {
	parts := strings.Split(v, ",")
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
