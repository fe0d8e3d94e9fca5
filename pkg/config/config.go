package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

//go:generate go run ../../cmd/schema/main.go schema.json

// Config holds the application configuration
type Config struct {
	Server struct {
		Listen  string        `yaml:"listen" json:"listen" jsonschema:"default=:8080,description=HTTP server listen address"`
		Timeout time.Duration `yaml:"timeout" json:"timeout" jsonschema:"default=30s,description=HTTP server timeout"`
	} `yaml:"server" json:"server" jsonschema:"description=Server configuration"`

	Database struct {
		DSN             string `yaml:"dsn" json:"dsn" jsonschema:"default=file:eventscope.db?cache=shared&mode=rwc,description=Database connection string"`
		MaxOpenConns    int    `yaml:"max_open_conns" json:"max_open_conns" jsonschema:"default=10,description=Maximum number of open connections"`
		MaxIdleConns    int    `yaml:"max_idle_conns" json:"max_idle_conns" jsonschema:"default=5,description=Maximum number of idle connections"`
		ConnMaxLifetime int    `yaml:"conn_max_lifetime" json:"conn_max_lifetime" jsonschema:"default=3600,description=Connection maximum lifetime in seconds"`
	} `yaml:"database" json:"database" jsonschema:"description=Database configuration for the audit log and durable sessions"`

	Telegram TelegramConfig `yaml:"telegram" json:"telegram" jsonschema:"description=Telegram bot configuration"`

	Notion NotionConfig `yaml:"notion" json:"notion" jsonschema:"description=Notion persistence configuration"`

	LLM LLMConfig `yaml:"llm" json:"llm" jsonschema:"description=LLM configuration for classification and extraction"`

	OCR OCRConfig `yaml:"ocr" json:"ocr" jsonschema:"description=OCR engine configuration"`

	Fetch FetchConfig `yaml:"fetch" json:"fetch" jsonschema:"description=Webpage fetch configuration"`

	Session SessionConfig `yaml:"session" json:"session" jsonschema:"description=Pending confirmation session configuration"`
}

// TelegramConfig holds bot API settings
type TelegramConfig struct {
	Token    string        `yaml:"token" json:"token" jsonschema:"description=Bot token (can use environment variable)"`
	Endpoint string        `yaml:"endpoint" json:"endpoint" jsonschema:"default=https://api.telegram.org,description=Bot API endpoint"`
	Timeout  time.Duration `yaml:"timeout" json:"timeout" jsonschema:"default=30s,description=Bot API request timeout"`
}

// NotionConfig holds persistence settings
type NotionConfig struct {
	Token      string        `yaml:"token" json:"token" jsonschema:"description=Notion integration token (can use environment variable)"`
	DatabaseID string        `yaml:"database_id" json:"database_id" jsonschema:"description=Target database ID; saves fail fast when empty"`
	Endpoint   string        `yaml:"endpoint" json:"endpoint" jsonschema:"default=https://api.notion.com,description=Notion API endpoint"`
	Timeout    time.Duration `yaml:"timeout" json:"timeout" jsonschema:"default=30s,description=Notion API request timeout"`
	DryRun     bool          `yaml:"dry_run" json:"dry_run" jsonschema:"default=false,description=Report saves without calling the Notion API"`
}

// LLMConfig holds LLM configuration for classification and extraction
type LLMConfig struct {
	Endpoint    string        `yaml:"endpoint" json:"endpoint" jsonschema:"description=OpenAI-compatible API endpoint"`
	APIKey      string        `yaml:"api_key" json:"api_key" jsonschema:"description=API key (can use environment variable)"`
	Model       string        `yaml:"model" json:"model" jsonschema:"required,description=Model name (e.g. gpt-4o-mini or llama3)"`
	Temperature float64       `yaml:"temperature" json:"temperature" jsonschema:"default=0.1,description=Temperature for response generation"`
	MaxTokens   int           `yaml:"max_tokens" json:"max_tokens" jsonschema:"default=1000,description=Maximum tokens in response"`
	Timeout     time.Duration `yaml:"timeout" json:"timeout" jsonschema:"default=30s,description=Request timeout"`
	Fallback    bool          `yaml:"fallback" json:"fallback" jsonschema:"default=true,description=Use the LLM as tier-3 classification fallback"`
	Timezone    string        `yaml:"timezone" json:"timezone" jsonschema:"default=America/New_York,description=Timezone for current-date context in prompts"`
}

// OCRConfig holds OCR engine settings
type OCRConfig struct {
	Endpoint      string        `yaml:"endpoint" json:"endpoint" jsonschema:"description=OCR service endpoint; image processing degrades when empty"`
	Timeout       time.Duration `yaml:"timeout" json:"timeout" jsonschema:"default=60s,description=OCR request timeout"`
	MinConfidence float64       `yaml:"min_confidence" json:"min_confidence" jsonschema:"default=70,description=Minimum OCR confidence (0-100) to treat text as reliable"`
}

// FetchConfig holds webpage fetch settings
type FetchConfig struct {
	Timeout     time.Duration `yaml:"timeout" json:"timeout" jsonschema:"default=10s,description=Fetch timeout per URL"`
	MaxBodySize int           `yaml:"max_body_size" json:"max_body_size" jsonschema:"default=5000,description=Maximum characters of page body passed to extraction"`
	UserAgent   string        `yaml:"user_agent" json:"user_agent" jsonschema:"default=Eventscope/1.0,description=User agent for HTTP requests"`
}

// SessionConfig holds pending confirmation settings
type SessionConfig struct {
	TTL             time.Duration `yaml:"ttl" json:"ttl" jsonschema:"default=5m,description=Pending confirmation time to live"`
	CleanupInterval time.Duration `yaml:"cleanup_interval" json:"cleanup_interval" jsonschema:"default=10m,description=Interval for the optional expired-session sweep"`
	Store           string        `yaml:"store" json:"store" jsonschema:"default=memory,enum=memory,enum=sqlite,description=Pending confirmation store backend"`
}

// Load reads configuration from a YAML file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path) //nolint:gosec // file path comes from CLI flag
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	// expand environment variables
	expanded := os.ExpandEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	// set defaults for server
	if cfg.Server.Listen == "" {
		cfg.Server.Listen = ":8080"
	}
	if cfg.Server.Timeout == 0 {
		cfg.Server.Timeout = 30 * time.Second
	}

	// set defaults for database
	if cfg.Database.DSN == "" {
		cfg.Database.DSN = "file:eventscope.db?cache=shared&mode=rwc&_txlock=immediate"
	}
	if cfg.Database.MaxOpenConns == 0 {
		cfg.Database.MaxOpenConns = 10
	}
	if cfg.Database.MaxIdleConns == 0 {
		cfg.Database.MaxIdleConns = 5
	}
	if cfg.Database.ConnMaxLifetime == 0 {
		cfg.Database.ConnMaxLifetime = 3600
	}

	// set defaults for telegram
	if cfg.Telegram.Endpoint == "" {
		cfg.Telegram.Endpoint = "https://api.telegram.org"
	}
	if cfg.Telegram.Timeout == 0 {
		cfg.Telegram.Timeout = 30 * time.Second
	}

	// set defaults for notion
	if cfg.Notion.Endpoint == "" {
		cfg.Notion.Endpoint = "https://api.notion.com"
	}
	if cfg.Notion.Timeout == 0 {
		cfg.Notion.Timeout = 30 * time.Second
	}

	// set defaults for LLM
	if cfg.LLM.Temperature == 0 {
		cfg.LLM.Temperature = 0.1
	}
	if cfg.LLM.MaxTokens == 0 {
		cfg.LLM.MaxTokens = 1000
	}
	if cfg.LLM.Timeout == 0 {
		cfg.LLM.Timeout = 30 * time.Second
	}
	if cfg.LLM.Timezone == "" {
		cfg.LLM.Timezone = "America/New_York"
	}

	// set defaults for OCR
	if cfg.OCR.Timeout == 0 {
		cfg.OCR.Timeout = 60 * time.Second
	}
	if cfg.OCR.MinConfidence == 0 {
		cfg.OCR.MinConfidence = 70
	}

	// set defaults for fetch
	if cfg.Fetch.Timeout == 0 {
		cfg.Fetch.Timeout = 10 * time.Second
	}
	if cfg.Fetch.MaxBodySize == 0 {
		cfg.Fetch.MaxBodySize = 5000
	}
	if cfg.Fetch.UserAgent == "" {
		cfg.Fetch.UserAgent = "Eventscope/1.0"
	}

	// set defaults for session
	if cfg.Session.TTL == 0 {
		cfg.Session.TTL = 5 * time.Minute
	}
	if cfg.Session.CleanupInterval == 0 {
		cfg.Session.CleanupInterval = 10 * time.Minute
	}
	if cfg.Session.Store == "" {
		cfg.Session.Store = "memory"
	}

	// validate configuration
	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &cfg, nil
}

// validate checks configuration for correctness
func validate(cfg *Config) error {
	if cfg.LLM.Model == "" {
		return fmt.Errorf("llm.model is required")
	}
	if cfg.LLM.Temperature < 0 || cfg.LLM.Temperature > 2 {
		return fmt.Errorf("llm.temperature must be between 0 and 2")
	}
	if cfg.OCR.MinConfidence < 0 || cfg.OCR.MinConfidence > 100 {
		return fmt.Errorf("ocr.min_confidence must be between 0 and 100")
	}
	if cfg.Fetch.Timeout < time.Second {
		return fmt.Errorf("fetch timeout must be at least 1 second")
	}
	if cfg.Server.Timeout < time.Second {
		return fmt.Errorf("server timeout must be at least 1 second")
	}
	if cfg.Session.Store != "memory" && cfg.Session.Store != "sqlite" {
		return fmt.Errorf("session.store must be memory or sqlite")
	}
	return nil
}

// GetServerConfig returns server configuration
func (c *Config) GetServerConfig() (listen string, timeout time.Duration) {
	return c.Server.Listen, c.Server.Timeout
}

// GetLLMConfig returns LLM configuration
func (c *Config) GetLLMConfig() LLMConfig {
	return c.LLM
}
