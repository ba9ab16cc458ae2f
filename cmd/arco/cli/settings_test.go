package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"reflect"
	"testing"
	"time"

	"github.com/arcoapp/arco-admin/internal/config"
	"github.com/arcoapp/arco-admin/internal/notify"
	"github.com/arcoapp/arco-admin/internal/session"
)

func TestApplyEnvOverrides(t *testing.T) {
	t.Setenv("ARCO_SERVER_PORT", "9090")
	t.Setenv("ARCO_AUTH_JWT_SECRET", "from-env")
	t.Setenv("ARCO_AUTH_MOBILE_CAPTCHA", "true")
	t.Setenv("ARCO_SESSION_STORE", "redis")
	t.Setenv("ARCO_SERVER_CORS_ORIGINS", "https://a.example.com, https://b.example.com")
	t.Setenv("ARCO_RATE_LIMIT_AUTH_PER_MINUTE", "0")
	t.Setenv("ARCO_CHATBOT_API_KEY", "sk-from-env")
	t.Setenv("ARCO_CHATBOT_TEMPERATURE", "0.2")

	cfg := config.DefaultYAMLConfig()
	applyEnv(cfg, envViper())

	if cfg.Server.Port != 9090 {
		t.Errorf("Server.Port = %d", cfg.Server.Port)
	}
	if cfg.Auth.JWTSecret != "from-env" || !cfg.Auth.MobileCaptcha {
		t.Errorf("Auth = %+v", cfg.Auth)
	}
	if cfg.Session.Store != "redis" {
		t.Errorf("Session.Store = %q", cfg.Session.Store)
	}
	want := []string{"https://a.example.com", "https://b.example.com"}
	if !reflect.DeepEqual(cfg.Server.CORS.Origins, want) {
		t.Errorf("CORS.Origins = %v", cfg.Server.CORS.Origins)
	}
	if cfg.RateLimit.AuthPerMinute != 0 {
		t.Errorf("AuthPerMinute = %d, want 0", cfg.RateLimit.AuthPerMinute)
	}
	if cfg.Chatbot.APIKey != "sk-from-env" || cfg.Chatbot.Temperature != 0.2 {
		t.Errorf("Chatbot = %+v", cfg.Chatbot)
	}
	// Untouched keys keep their defaults.
	if cfg.Database.Driver != "sqlite" || cfg.Auth.CodeTTL != "15m" {
		t.Errorf("defaults lost: %+v %+v", cfg.Database, cfg.Auth)
	}
}

func TestParseDuration(t *testing.T) {
	tests := []struct {
		in      string
		want    time.Duration
		wantErr bool
	}{
		{"", time.Minute, false},
		{"90s", 90 * time.Second, false},
		{"8h", 8 * time.Hour, false},
		{"soon", 0, true},
		{"-1m", 0, true},
	}
	for _, tt := range tests {
		got, err := parseDuration("auth.code_ttl", tt.in, time.Minute)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("parseDuration(%q) = %v, %v", tt.in, got, err)
		}
	}
}

func TestParseSize(t *testing.T) {
	tests := []struct {
		in      string
		want    int64
		wantErr bool
	}{
		{"1MB", 1000000, false},
		{"1MiB", 1 << 20, false},
		{"512", 512, false},
		{"", 0, false},
		{"lots", 0, true},
	}
	for _, tt := range tests {
		got, err := parseSize("server.max_body_size", tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("parseSize(%q) = %d, %v", tt.in, got, err)
		}
	}
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger, err := newLogger(&buf, config.LoggingConfig{Level: "warn", Format: "json"}, false)
	if err != nil {
		t.Fatal(err)
	}
	logger.Info("hidden")
	logger.Warn("shown", "k", "v")

	var line map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("expected one JSON line, got %q: %v", buf.String(), err)
	}
	if line["msg"] != "shown" || line["k"] != "v" {
		t.Errorf("line = %v", line)
	}

	logger, _ = newLogger(io.Discard, config.LoggingConfig{Level: "error"}, true)
	if !logger.Enabled(context.Background(), slog.LevelDebug) {
		t.Error("development mode should force debug")
	}

	if _, err := newLogger(io.Discard, config.LoggingConfig{Format: "xml"}, false); err == nil {
		t.Error("unknown format should fail")
	}
	if _, err := newLogger(io.Discard, config.LoggingConfig{Level: "loud"}, false); err == nil {
		t.Error("unknown level should fail")
	}
}

func TestServerConfig(t *testing.T) {
	cfg := config.DefaultYAMLConfig()
	cfg.Server.Port = 9000
	cfg.Server.MaxBodySize = "64KiB"
	cfg.Server.ShutdownTimeout = "5s"

	got, err := serverConfig(cfg.Server, config.RateLimitConfig{AuthPerMinute: 12, ChatPerMinute: 4})
	if err != nil {
		t.Fatal(err)
	}
	if got.Port != 9000 || got.MaxBodySize != 64<<10 || got.ShutdownTimeout != 5*time.Second || got.AuthPerMinute != 12 || got.ChatPerMinute != 4 {
		t.Errorf("server config = %+v", got)
	}

	cfg.Server.Port = 70000
	if _, err := serverConfig(cfg.Server, cfg.RateLimit); err == nil {
		t.Error("out of range port should fail")
	}
}

func TestNewChatService(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	cfg := config.DefaultYAMLConfig().Chatbot

	chat, err := newChatService(cfg, logger)
	if err != nil || chat != nil {
		t.Fatalf("without a key = %v, %v; want disabled", chat, err)
	}

	cfg.APIKey = "sk-test"
	if chat, err = newChatService(cfg, logger); err != nil || chat == nil {
		t.Fatalf("with a key = %v, %v", chat, err)
	}

	bad := cfg
	bad.Timeout = "soon"
	if _, err := newChatService(bad, logger); err == nil {
		t.Error("bad timeout should fail")
	}
	bad = cfg
	bad.Temperature = 3
	if _, err := newChatService(bad, logger); err == nil {
		t.Error("temperature above 2 should fail")
	}
}

func TestAuthOptions(t *testing.T) {
	opts, err := authOptions(config.AuthConfig{CodeTTL: "5m", JWTExpiry: "1h", MobileCaptcha: true, BcryptCost: 4})
	if err != nil {
		t.Fatal(err)
	}
	if opts.CodeTTL != 5*time.Minute || opts.JWTExpiry != time.Hour || !opts.MobileCaptcha || opts.BcryptCost != 4 {
		t.Errorf("opts = %+v", opts)
	}
	if _, err := authOptions(config.AuthConfig{CodeTTL: "later"}); err == nil {
		t.Error("bad code_ttl should fail")
	}
}

func TestNewSessionStore(t *testing.T) {
	store, closer, err := newSessionStore(config.SessionConfig{Store: "memory", TTL: "10m"})
	if err != nil {
		t.Fatal(err)
	}
	defer closer.Close()
	if _, ok := store.(*session.MemoryStore); !ok {
		t.Errorf("store = %T", store)
	}

	if _, _, err := newSessionStore(config.SessionConfig{Store: "redis"}); err == nil {
		t.Error("redis without a URL should fail")
	}
	if _, _, err := newSessionStore(config.SessionConfig{Store: "memcached"}); err == nil {
		t.Error("unknown store should fail")
	}
}

func TestNewNotifier(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	n, err := newNotifier(config.SMTPConfig{}, "", false, logger)
	if err != nil || n != nil {
		t.Errorf("no transport: %v %v", n, err)
	}

	n, _ = newNotifier(config.SMTPConfig{}, "", true, logger)
	if _, ok := n.(notify.LogNotifier); !ok {
		t.Errorf("dev without smtp = %T", n)
	}

	n, err = newNotifier(config.SMTPConfig{Host: "smtp.example.com", Port: 587, From: "noreply@example.com"}, "15m", true, logger)
	if err != nil {
		t.Fatal(err)
	}
	if chain, ok := n.(notify.Chain); !ok || len(chain) != 2 {
		t.Errorf("smtp + dev = %#v", n)
	}

	if _, err := newNotifier(config.SMTPConfig{Host: "smtp.example.com", From: "not an address"}, "", false, logger); err == nil {
		t.Error("invalid from address should fail")
	}
}

func TestForegroundArgs(t *testing.T) {
	got := foregroundArgs([]string{"serve", "--background", "--port", "9000", "-d", "--dev"})
	want := []string{"serve", "--port", "9000", "--dev"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("foregroundArgs = %v, want %v", got, want)
	}
}

func TestParseUserID(t *testing.T) {
	if id, err := parseUserID("42"); err != nil || id != 42 {
		t.Errorf("parseUserID(42) = %d, %v", id, err)
	}
	for _, bad := range []string{"0", "-1", "abc", ""} {
		if _, err := parseUserID(bad); err == nil {
			t.Errorf("parseUserID(%q) should fail", bad)
		}
	}
}
