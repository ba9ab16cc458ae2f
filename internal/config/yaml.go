package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// YAMLConfig represents the top-level arco configuration file.
type YAMLConfig struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Auth      AuthConfig      `yaml:"auth"`
	Session   SessionConfig   `yaml:"session"`
	SMTP      SMTPConfig      `yaml:"smtp"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	MCP       MCPConfig       `yaml:"mcp"`
	Chatbot   ChatbotConfig   `yaml:"chatbot"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// ServerConfig controls the HTTP server behavior.
type ServerConfig struct {
	Host            string     `yaml:"host"`
	Port            int        `yaml:"port"`
	Dev             bool       `yaml:"dev"`
	MaxBodySize     string     `yaml:"max_body_size"`
	ShutdownTimeout string     `yaml:"shutdown_timeout"`
	CORS            CORSConfig `yaml:"cors"`
}

// CORSConfig controls cross-origin resource sharing settings.
type CORSConfig struct {
	Origins []string `yaml:"origins"`
}

// DatabaseConfig selects the backing database.
type DatabaseConfig struct {
	Driver          string `yaml:"driver"` // sqlite, mysql, postgres, mssql
	DSN             string `yaml:"dsn"`
	MaxOpenConns    int    `yaml:"max_open_conns"`
	MaxIdleConns    int    `yaml:"max_idle_conns"`
	ConnMaxLifetime string `yaml:"conn_max_lifetime"`
}

// AuthConfig controls the sign-in flow.
type AuthConfig struct {
	JWTSecret     string `yaml:"jwt_secret"`
	JWTExpiry     string `yaml:"jwt_expiry"`
	CodeTTL       string `yaml:"code_ttl"`
	MobileCaptcha bool   `yaml:"mobile_captcha"`
	BcryptCost    int    `yaml:"bcrypt_cost"`
}

// SessionConfig controls where per-browser flow state lives.
type SessionConfig struct {
	Store        string `yaml:"store"` // memory or redis
	RedisURL     string `yaml:"redis_url"`
	TTL          string `yaml:"ttl"`
	CookieName   string `yaml:"cookie_name"`
	CookieSecure bool   `yaml:"cookie_secure"`
}

// SMTPConfig holds the outbound mail settings for verification codes.
// When Host is empty codes are written to the log instead.
type SMTPConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	From     string `yaml:"from"`
	FromName string `yaml:"from_name"`
	ReplyTo  string `yaml:"reply_to"`
}

// RateLimitConfig caps requests per client IP on the auth and chatbot
// endpoints.
type RateLimitConfig struct {
	AuthPerMinute int `yaml:"auth_per_minute"`
	ChatPerMinute int `yaml:"chat_per_minute"`
}

// MCPConfig controls the MCP (Model Context Protocol) server.
type MCPConfig struct {
	Transport    string `yaml:"transport"`
	AllowWrites  bool   `yaml:"allow_writes"`
	DefaultLimit int    `yaml:"default_limit"`
}

// ChatbotConfig points the budgeting assistant at an OpenAI-compatible
// chat completions API. The assistant is disabled while APIKey is empty.
type ChatbotConfig struct {
	BaseURL      string  `yaml:"base_url"`
	APIKey       string  `yaml:"api_key"`
	Model        string  `yaml:"model"`
	MaxTokens    int     `yaml:"max_tokens"`
	Temperature  float64 `yaml:"temperature"`
	Timeout      string  `yaml:"timeout"`
	SystemPrompt string  `yaml:"system_prompt"`
}

// LoggingConfig controls log output.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// LoadYAMLConfig reads and parses a YAML configuration file. Environment
// variables referenced as ${VAR_NAME} in the file are expanded before
// parsing. Missing keys keep their defaults.
func LoadYAMLConfig(path string) (*YAMLConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	content := os.ExpandEnv(string(data))

	cfg := DefaultYAMLConfig()
	if err := yaml.Unmarshal([]byte(content), cfg); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}
	return cfg, nil
}

// DefaultYAMLConfig returns a YAMLConfig pre-filled with sensible defaults.
func DefaultYAMLConfig() *YAMLConfig {
	return &YAMLConfig{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8080,
			MaxBodySize:     "1MB",
			ShutdownTimeout: "30s",
			CORS: CORSConfig{
				Origins: []string{"http://localhost:3000"},
			},
		},
		Database: DatabaseConfig{
			Driver:       "sqlite",
			MaxOpenConns: 25,
			MaxIdleConns: 5,
		},
		Auth: AuthConfig{
			JWTExpiry:  "8h",
			CodeTTL:    "15m",
			BcryptCost: 10,
		},
		Session: SessionConfig{
			Store:      "memory",
			TTL:        "30m",
			CookieName: "arco_session",
		},
		SMTP: SMTPConfig{
			Port:     587,
			FromName: "Arco",
		},
		RateLimit: RateLimitConfig{
			AuthPerMinute: 30,
			ChatPerMinute: 20,
		},
		MCP: MCPConfig{
			Transport:    "stdio",
			DefaultLimit: 50,
		},
		Chatbot: ChatbotConfig{
			BaseURL:      "https://api.openai.com/v1",
			Model:        "gpt-3.5-turbo",
			MaxTokens:    150,
			Temperature:  0.7,
			Timeout:      "30s",
			SystemPrompt: "You are a helpful budgeting assistant.",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// WriteDefaultConfig writes the default configuration to a YAML file.
func WriteDefaultConfig(path string) error {
	cfg := DefaultYAMLConfig()
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
