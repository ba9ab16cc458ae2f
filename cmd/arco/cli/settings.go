package cli

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/viper"

	"github.com/arcoapp/arco-admin/internal/config"
)

// loadSettings resolves the effective configuration: built-in defaults,
// then the YAML file found by initConfig (with ${VAR} expansion), then
// ARCO_* environment variables.
func loadSettings() (*config.YAMLConfig, error) {
	cfg := config.DefaultYAMLConfig()
	if path := viper.ConfigFileUsed(); path != "" {
		loaded, err := config.LoadYAMLConfig(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}
	applyEnv(cfg, envViper())
	return cfg, nil
}

// envViper returns a viper instance that sees only the environment, so a
// literal ${VAR} in the file never overrides its expanded value.
func envViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix("ARCO")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

func applyEnv(cfg *config.YAMLConfig, v *viper.Viper) {
	strs := map[string]*string{
		"server.host":                &cfg.Server.Host,
		"server.max_body_size":       &cfg.Server.MaxBodySize,
		"server.shutdown_timeout":    &cfg.Server.ShutdownTimeout,
		"database.driver":            &cfg.Database.Driver,
		"database.dsn":               &cfg.Database.DSN,
		"database.conn_max_lifetime": &cfg.Database.ConnMaxLifetime,
		"auth.jwt_secret":            &cfg.Auth.JWTSecret,
		"auth.jwt_expiry":            &cfg.Auth.JWTExpiry,
		"auth.code_ttl":              &cfg.Auth.CodeTTL,
		"session.store":              &cfg.Session.Store,
		"session.redis_url":          &cfg.Session.RedisURL,
		"session.ttl":                &cfg.Session.TTL,
		"session.cookie_name":        &cfg.Session.CookieName,
		"smtp.host":                  &cfg.SMTP.Host,
		"smtp.username":              &cfg.SMTP.Username,
		"smtp.password":              &cfg.SMTP.Password,
		"smtp.from":                  &cfg.SMTP.From,
		"smtp.from_name":             &cfg.SMTP.FromName,
		"smtp.reply_to":              &cfg.SMTP.ReplyTo,
		"mcp.transport":              &cfg.MCP.Transport,
		"chatbot.base_url":           &cfg.Chatbot.BaseURL,
		"chatbot.api_key":            &cfg.Chatbot.APIKey,
		"chatbot.model":              &cfg.Chatbot.Model,
		"chatbot.timeout":            &cfg.Chatbot.Timeout,
		"chatbot.system_prompt":      &cfg.Chatbot.SystemPrompt,
		"logging.level":              &cfg.Logging.Level,
		"logging.format":             &cfg.Logging.Format,
	}
	for key, dst := range strs {
		if v.IsSet(key) {
			*dst = v.GetString(key)
		}
	}

	ints := map[string]*int{
		"server.port":                &cfg.Server.Port,
		"database.max_open_conns":    &cfg.Database.MaxOpenConns,
		"database.max_idle_conns":    &cfg.Database.MaxIdleConns,
		"auth.bcrypt_cost":           &cfg.Auth.BcryptCost,
		"smtp.port":                  &cfg.SMTP.Port,
		"rate_limit.auth_per_minute": &cfg.RateLimit.AuthPerMinute,
		"rate_limit.chat_per_minute": &cfg.RateLimit.ChatPerMinute,
		"mcp.default_limit":          &cfg.MCP.DefaultLimit,
		"chatbot.max_tokens":         &cfg.Chatbot.MaxTokens,
	}

	for key, dst := range ints {
		if v.IsSet(key) {
			*dst = v.GetInt(key)
		}
	}

	bools := map[string]*bool{
		"server.dev":            &cfg.Server.Dev,
		"auth.mobile_captcha":   &cfg.Auth.MobileCaptcha,
		"session.cookie_secure": &cfg.Session.CookieSecure,
		"mcp.allow_writes":      &cfg.MCP.AllowWrites,
	}
	for key, dst := range bools {
		if v.IsSet(key) {
			*dst = v.GetBool(key)
		}
	}

	if v.IsSet("chatbot.temperature") {
		cfg.Chatbot.Temperature = v.GetFloat64("chatbot.temperature")
	}
	if v.IsSet("server.cors.origins") {
		cfg.Server.CORS.Origins = splitList(v.GetString("server.cors.origins"))
	}
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// parseDuration reads a duration setting; an empty value yields def.
func parseDuration(key, value string, def time.Duration) (time.Duration, error) {
	if strings.TrimSpace(value) == "" {
		return def, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("%s: must not be negative", key)
	}
	return d, nil
}

// parseSize reads a byte size such as "1MB" or "512KiB"; "0" disables the
// limit.
func parseSize(key, value string) (int64, error) {
	if strings.TrimSpace(value) == "" {
		return 0, nil
	}
	n, err := humanize.ParseBytes(value)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return int64(n), nil
}

// newLogger builds the process logger. Development mode forces debug.
func newLogger(w io.Writer, cfg config.LoggingConfig, dev bool) (*slog.Logger, error) {
	var level slog.Level
	if cfg.Level != "" {
		if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
			return nil, fmt.Errorf("logging.level: %w", err)
		}
	}
	if dev {
		level = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: level}

	switch strings.ToLower(cfg.Format) {
	case "", "text":
		return slog.New(slog.NewTextHandler(w, opts)), nil
	case "json":
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	default:
		return nil, fmt.Errorf("logging.format: unknown format %q (use text or json)", cfg.Format)
	}
}
