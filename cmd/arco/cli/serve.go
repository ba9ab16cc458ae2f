package cli

import (
	"fmt"
	"os"
	"os/exec"
	"time"

	"github.com/spf13/cobra"

	"github.com/arcoapp/arco-admin/internal/config"
	"github.com/arcoapp/arco-admin/internal/server"
	"github.com/arcoapp/arco-admin/internal/service"
	"github.com/arcoapp/arco-admin/internal/session"
)

const banner = `
    _    ____   ____ ___
   / \  |  _ \ / ___/ _ \
  / _ \ | |_) | |  | | | |
 / ___ \|  _ <| |__| |_| |
/_/   \_\_| \_\\____\___/
`

// devJWTSecret signs tokens in development mode when no secret is set.
const devJWTSecret = "arco-dev-secret-change-me"

type serveFlags struct {
	port       int
	host       string
	dev        bool
	background bool
}

func newServeCmd() *cobra.Command {
	var f serveFlags

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the Arco API server",
		Long:  "Start the HTTP server that serves the admin and mobile sign-in flows and the dashboard APIs.",
		Example: `  arco serve
  arco serve --dev --port 9090
  arco serve --background   # detach; use 'arco status' and 'arco stop'`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if f.background {
				return startBackground()
			}
			return runServe(cmd, f)
		},
	}

	cmd.Flags().IntVarP(&f.port, "port", "p", 8080, "HTTP listen port")
	cmd.Flags().StringVar(&f.host, "host", "0.0.0.0", "HTTP listen host")
	cmd.Flags().BoolVar(&f.dev, "dev", false, "Enable development mode (debug logging, error detail, codes in the log)")
	cmd.Flags().BoolVarP(&f.background, "background", "d", false, "Run the server in the background")

	return cmd
}

func runServe(cmd *cobra.Command, f serveFlags) error {
	cfg, err := loadSettings()
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("port") {
		cfg.Server.Port = f.port
	}
	if cmd.Flags().Changed("host") {
		cfg.Server.Host = f.host
	}
	if f.dev {
		cfg.Server.Dev = true
	}
	dev := cfg.Server.Dev

	logger, err := newLogger(os.Stderr, cfg.Logging, dev)
	if err != nil {
		return err
	}

	srvCfg, err := serverConfig(cfg.Server, cfg.RateLimit)
	if err != nil {
		return err
	}

	if pid, err := readPID(); err == nil && pid != os.Getpid() && isProcessRunning(pid) {
		return fmt.Errorf("server already running (PID %d); use 'arco stop' first", pid)
	}

	fmt.Print(banner)
	fmt.Println()

	// 1. Database
	store, err := openStore(cfg.Database)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer store.Close()
	logger.Info("database ready", "driver", store.Driver())

	// 2. Session state
	sessStore, closer, err := newSessionStore(cfg.Session)
	if err != nil {
		return err
	}
	defer closer.Close()
	if err := sessStore.Ping(cmdContext()); err != nil {
		return fmt.Errorf("session store: %w", err)
	}
	sessionTTL, _ := parseDuration("session.ttl", cfg.Session.TTL, session.DefaultTTL)
	sessions := &session.Manager{
		Store: sessStore,
		Cookie: session.Cookie{
			Name:   cfg.Session.CookieName,
			Secure: cfg.Session.CookieSecure,
			TTL:    sessionTTL,
		},
	}
	logger.Info("session store ready", "store", cfg.Session.Store, "ttl", sessionTTL)

	// 3. Code delivery
	notifier, err := newNotifier(cfg.SMTP, cfg.Auth.CodeTTL, dev, logger)
	if err != nil {
		return fmt.Errorf("mail: %w", err)
	}
	if notifier == nil {
		logger.Warn("no mail transport configured; verification codes cannot be delivered (set smtp.host)")
	}

	// 4. Services
	authOpts, err := authOptions(cfg.Auth)
	if err != nil {
		return err
	}
	authOpts.Logger = logger
	secret := cfg.Auth.JWTSecret
	if secret == "" {
		if !dev {
			return fmt.Errorf("auth.jwt_secret is required (set ARCO_AUTH_JWT_SECRET)")
		}
		logger.Warn("auth.jwt_secret not set; using the development secret")
		secret = devJWTSecret
	}
	authSvc := service.NewAuthService(store, notifier, secret, authOpts)
	users := service.NewUserService(store, cfg.Auth.BcryptCost, logger)
	feedback := service.NewFeedbackService(store, logger)

	chat, err := newChatService(cfg.Chatbot, logger)
	if err != nil {
		return err
	}
	if chat == nil {
		logger.Info("budgeting assistant disabled (set chatbot.api_key)")
	}

	hasAdmin, err := store.HasAnyAdmin(cmdContext())
	if err != nil {
		logger.Warn("failed to check for admin", "error", err)
	}
	if !hasAdmin {
		logger.Warn("no admin account found - run: arco admin create")
	}

	// 5. HTTP server
	srv := server.New(srvCfg, server.Deps{
		Store:    store,
		Auth:     authSvc,
		Users:    users,
		Feedback: feedback,
		Sessions: sessions,
		Chat:     chat,
	}, logger)

	if err := writePID(os.Getpid()); err != nil {
		logger.Warn("failed to write PID file", "path", pidFilePath(), "error", err)
	}
	defer removePID()

	fmt.Printf("→ Arco %s\n", versionString())
	fmt.Printf("→ Listening on http://%s\n", srv.Addr())
	fmt.Printf("→ OpenAPI:    http://%s/openapi.json\n", srv.Addr())
	fmt.Printf("→ Health:     http://%s/healthz\n", srv.Addr())
	if dev {
		fmt.Println("→ Development mode: error detail enabled")
	}
	fmt.Println()

	return srv.ListenAndServe()
}

// serverConfig converts the file settings into the HTTP server config.
func serverConfig(cfg config.ServerConfig, limits config.RateLimitConfig) (server.Config, error) {
	out := server.DefaultConfig()
	out.Host = cfg.Host
	out.Port = cfg.Port
	out.Dev = cfg.Dev
	out.AuthPerMinute = limits.AuthPerMinute
	out.ChatPerMinute = limits.ChatPerMinute
	out.Version = versionString()
	if len(cfg.CORS.Origins) > 0 {
		out.CORSOrigins = cfg.CORS.Origins
	}

	var err error
	if out.ShutdownTimeout, err = parseDuration("server.shutdown_timeout", cfg.ShutdownTimeout, out.ShutdownTimeout); err != nil {
		return out, err
	}
	if cfg.MaxBodySize != "" {
		if out.MaxBodySize, err = parseSize("server.max_body_size", cfg.MaxBodySize); err != nil {
			return out, err
		}
	}
	if out.Port <= 0 || out.Port > 65535 {
		return out, fmt.Errorf("server.port: %d out of range", out.Port)
	}
	return out, nil
}

// authOptions converts the auth settings into service options.
func authOptions(cfg config.AuthConfig) (service.Options, error) {
	var (
		opts service.Options
		err  error
	)
	if opts.CodeTTL, err = parseDuration("auth.code_ttl", cfg.CodeTTL, service.DefaultCodeTTL); err != nil {
		return opts, err
	}
	if opts.JWTExpiry, err = parseDuration("auth.jwt_expiry", cfg.JWTExpiry, service.DefaultJWTExpiry); err != nil {
		return opts, err
	}
	opts.MobileCaptcha = cfg.MobileCaptcha
	opts.BcryptCost = cfg.BcryptCost
	return opts, nil
}

// startBackground re-runs this command detached from the terminal, with
// output appended to the log file in the data directory.
func startBackground() error {
	if pid, err := readPID(); err == nil && isProcessRunning(pid) {
		return fmt.Errorf("server already running (PID %d)", pid)
	}

	exe, err := os.Executable()
	if err != nil {
		return fmt.Errorf("locate executable: %w", err)
	}
	if err := os.MkdirAll(resolveDataDir(), 0755); err != nil {
		return err
	}
	logFile, err := os.OpenFile(logFilePath(), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer logFile.Close()

	child := exec.Command(exe, foregroundArgs(os.Args[1:])...)
	child.Stdout = logFile
	child.Stderr = logFile
	setSysProcAttr(child)
	if err := child.Start(); err != nil {
		return fmt.Errorf("start server: %w", err)
	}

	// Give the child a moment to fail fast on bad configuration.
	exited := make(chan error, 1)
	go func() { exited <- child.Wait() }()
	select {
	case err := <-exited:
		return fmt.Errorf("server exited during startup (%v); see %s", err, logFilePath())
	case <-time.After(time.Second):
	}

	fmt.Printf("Arco server started in the background (PID %d)\n", child.Process.Pid)
	fmt.Printf("  Logs: %s\n", logFilePath())
	return nil
}

// foregroundArgs strips the background flag from args.
func foregroundArgs(args []string) []string {
	out := make([]string, 0, len(args))
	for _, a := range args {
		switch a {
		case "--background", "-d", "--background=true":
			continue
		}
		out = append(out, a)
	}
	return out
}
