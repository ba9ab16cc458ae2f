package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/arcoapp/arco-admin/internal/config"
	"github.com/arcoapp/arco-admin/internal/connector"
	"github.com/arcoapp/arco-admin/internal/connector/mssql"
	"github.com/arcoapp/arco-admin/internal/connector/mysql"
	"github.com/arcoapp/arco-admin/internal/connector/postgres"
	"github.com/arcoapp/arco-admin/internal/connector/sqlite"
	"github.com/arcoapp/arco-admin/internal/notify"
	"github.com/arcoapp/arco-admin/internal/service"
	"github.com/arcoapp/arco-admin/internal/session"
)

// dataDir holds the --data-dir persistent flag value (set on root command).
var dataDir string

// resolveDataDir returns the data directory from --data-dir flag,
// ARCO_DATA_DIR env var, or ~/.arco as fallback.
func resolveDataDir() string {
	if dataDir != "" {
		return dataDir
	}
	if envDir := os.Getenv("ARCO_DATA_DIR"); envDir != "" {
		return envDir
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".arco")
}

// newRegistry creates a connector registry with all supported database drivers registered.
func newRegistry() *connector.Registry {
	registry := connector.NewRegistry()
	registry.RegisterDriver("postgres", func() connector.Connector { return postgres.New() })
	registry.RegisterDriver("mysql", func() connector.Connector { return mysql.New() })
	registry.RegisterDriver("mssql", func() connector.Connector { return mssql.New() })
	registry.RegisterDriver("sqlite", func() connector.Connector { return sqlite.New() })
	return registry
}

// openStore connects to the configured database and applies migrations.
// SQLite without a DSN lives in the data directory.
func openStore(cfg config.DatabaseConfig) (*config.Store, error) {
	driver := strings.ToLower(strings.TrimSpace(cfg.Driver))
	if driver == "" {
		driver = "sqlite"
	}
	if driver == "sqlite" && cfg.DSN == "" {
		return config.OpenSQLite(resolveDataDir())
	}
	if cfg.DSN == "" {
		return nil, fmt.Errorf("database.dsn is required for driver %q", driver)
	}

	lifetime, err := parseDuration("database.conn_max_lifetime", cfg.ConnMaxLifetime, 0)
	if err != nil {
		return nil, err
	}
	conn, err := newRegistry().Open(connector.ConnectionConfig{
		Driver:          driver,
		DSN:             cfg.DSN,
		MaxOpenConns:    cfg.MaxOpenConns,
		MaxIdleConns:    cfg.MaxIdleConns,
		ConnMaxLifetime: lifetime,
	})
	if err != nil {
		return nil, err
	}
	store, err := config.NewStore(conn)
	if err != nil {
		conn.Disconnect()
		return nil, err
	}
	return store, nil
}

// openStoreFromSettings is the common preamble of the maintenance commands.
func openStoreFromSettings() (*config.Store, *config.YAMLConfig, error) {
	cfg, err := loadSettings()
	if err != nil {
		return nil, nil, err
	}
	store, err := openStore(cfg.Database)
	if err != nil {
		return nil, nil, fmt.Errorf("open database: %w", err)
	}
	return store, cfg, nil
}

// newNotifier builds the code delivery chain: SMTP when configured, then
// the log in development mode. It returns nil when nothing can deliver.
func newNotifier(cfg config.SMTPConfig, codeTTL string, dev bool, logger *slog.Logger) (notify.Notifier, error) {
	var chain notify.Chain
	if cfg.Host != "" {
		ttl, err := parseDuration("auth.code_ttl", codeTTL, service.DefaultCodeTTL)
		if err != nil {
			return nil, err
		}
		smtp, err := notify.NewSMTPNotifier(notify.SMTPConfig{
			Host:     cfg.Host,
			Port:     cfg.Port,
			Username: cfg.Username,
			Password: cfg.Password,
			From:     cfg.From,
			FromName: cfg.FromName,
			ReplyTo:  cfg.ReplyTo,
			CodeTTL:  ttl,
		})
		if err != nil {
			return nil, err
		}
		chain = append(chain, smtp)
	}
	if dev {
		chain = append(chain, notify.LogNotifier{Logger: logger})
	}
	switch len(chain) {
	case 0:
		return nil, nil
	case 1:
		return chain[0], nil
	default:
		return chain, nil
	}
}

// newChatService builds the budgeting assistant, or returns nil when no API
// key is configured.
func newChatService(cfg config.ChatbotConfig, logger *slog.Logger) (*service.ChatService, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, nil
	}
	timeout, err := parseDuration("chatbot.timeout", cfg.Timeout, service.DefaultChatTimeout)
	if err != nil {
		return nil, err
	}
	if cfg.Temperature < 0 || cfg.Temperature > 2 {
		return nil, fmt.Errorf("chatbot.temperature: %v out of range 0..2", cfg.Temperature)
	}
	return service.NewChatService(service.ChatOptions{
		BaseURL:      cfg.BaseURL,
		APIKey:       cfg.APIKey,
		Model:        cfg.Model,
		MaxTokens:    cfg.MaxTokens,
		Temperature:  float32(cfg.Temperature),
		SystemPrompt: cfg.SystemPrompt,
		Timeout:      timeout,
		Logger:       logger,
	}), nil
}

// newSessionStore builds the session backend. The returned closer releases
// its connections.
func newSessionStore(cfg config.SessionConfig) (session.Store, io.Closer, error) {
	ttl, err := parseDuration("session.ttl", cfg.TTL, session.DefaultTTL)
	if err != nil {
		return nil, nil, err
	}
	switch strings.ToLower(cfg.Store) {
	case "", "memory":
		return session.NewMemoryStore(ttl), nopCloser{}, nil
	case "redis":
		if cfg.RedisURL == "" {
			return nil, nil, fmt.Errorf("session.redis_url is required for the redis session store")
		}
		store, err := session.NewRedisStoreFromURL(cfg.RedisURL, ttl)
		if err != nil {
			return nil, nil, err
		}
		return store, store, nil
	default:
		return nil, nil, fmt.Errorf("session.store: unknown store %q (use memory or redis)", cfg.Store)
	}
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// parseUserID parses a positional account id.
func parseUserID(arg string) (int64, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid user id %q", arg)
	}
	return id, nil
}

// cliError unwraps a service error into its client message plus the
// internal cause, if any.
func cliError(action string, err error) error {
	if detail := service.Detail(err); detail != "" {
		return fmt.Errorf("%s: %s (%s)", action, service.Message(err), detail)
	}
	return fmt.Errorf("%s: %s", action, service.Message(err))
}

func cmdContext() context.Context {
	return context.Background()
}

// --- PID file management ---

func pidFilePath() string {
	return filepath.Join(resolveDataDir(), "arco.pid")
}

func writePID(pid int) error {
	dir := resolveDataDir()
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	return os.WriteFile(pidFilePath(), []byte(strconv.Itoa(pid)), 0644)
}

func readPID() (int, error) {
	data, err := os.ReadFile(pidFilePath())
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(strings.TrimSpace(string(data)))
}

func removePID() {
	os.Remove(pidFilePath())
}

func logFilePath() string {
	return filepath.Join(resolveDataDir(), "arco.log")
}

// versionString returns a display version string.
func versionString() string {
	if appVersion == "" || appVersion == "dev" {
		return "dev"
	}
	if strings.HasPrefix(appVersion, "v") {
		return appVersion
	}
	return "v" + appVersion
}
