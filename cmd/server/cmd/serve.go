package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"

	"github.com/inkwell-blog/server/internal/api"
	"github.com/inkwell-blog/server/internal/api/handlers"
	"github.com/inkwell-blog/server/internal/auth"
	"github.com/inkwell-blog/server/internal/config"
	"github.com/inkwell-blog/server/internal/metrics"
	"github.com/inkwell-blog/server/internal/realtime"
	"github.com/inkwell-blog/server/internal/storage"
	"github.com/inkwell-blog/server/internal/storage/memory"
	"github.com/inkwell-blog/server/internal/storage/postgres"
)

var (
	// Server flags (override config/env)
	serverHost string
	serverPort int
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the blog HTTP server",
	Long: `Start the blog HTTP server and begin accepting API and websocket requests.

The server will:
- Load configuration from environment variables
- Seed the admin and user roles, and bootstrap an admin account if ADMIN_* env vars are set
- Serve the JSON API, the /ws websocket endpoint, and Prometheus metrics
- Handle graceful shutdown on SIGINT/SIGTERM

Examples:
  # Start with default configuration (from env vars)
  server serve

  # Start on a specific host and port
  server serve --host 127.0.0.1 --port 9090

  # Start with debug logging
  server serve --log-level debug`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServer()
	},
}

func init() {
	serveCmd.Flags().StringVar(&serverHost, "host", "", "server host address (default: 0.0.0.0)")
	serveCmd.Flags().IntVar(&serverPort, "port", 0, "server port (default: 8080)")
}

func runServer() error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("config error: %w", err)
	}

	if serverHost != "" {
		cfg.Server.Host = serverHost
	}
	if serverPort != 0 {
		cfg.Server.Port = serverPort
	}

	logger := config.NewLogger(cfg.Logging)
	logger.Info().Msg("starting inkwell server")

	metrics.Init(Version, GitCommit, BuildDate)

	repo, pinger, cleanup, err := openStorage(cfg, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	if err := seedRoles(ctx, repo); err != nil {
		cancel()
		return fmt.Errorf("seed roles: %w", err)
	}
	if err := bootstrapAdmin(ctx, cfg, repo, logger); err != nil {
		logger.Error().Err(err).Msg("admin bootstrap failed")
	}
	cancel()

	hub := realtime.NewHub(logger)

	server := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:           api.NewRouter(cfg, logger, repo, pinger, hub),
		ReadTimeout:       10 * time.Second, // Total time to read request
		WriteTimeout:      30 * time.Second, // Total time to write response
		ReadHeaderTimeout: 5 * time.Second,  // Time to read headers
		MaxHeaderBytes:    1 << 20,          // 1 MB max header size
	}

	go func() {
		logger.Info().Str("addr", server.Addr).Msg("listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("http server error")
		}
	}()

	return gracefulShutdown(server, logger)
}

func loadConfig() (config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return config.Config{}, err
	}

	// Override logging from flags if provided
	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}
	if logFormat != "" {
		cfg.Logging.Format = logFormat
	}

	return cfg, nil
}

// openStorage connects to postgres when DATABASE_URL is set and falls back to
// the in-memory store otherwise. The returned cleanup releases the pool.
func openStorage(cfg config.Config, logger zerolog.Logger) (storage.Repository, handlers.Pinger, func(), error) {
	if cfg.Database.URL == "" {
		logger.Warn().Msg("DATABASE_URL not set; using in-memory storage")
		return memory.NewStore(), nil, func() {}, nil
	}

	poolCfg, err := pgxpool.ParseConfig(cfg.Database.URL)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("parse database url: %w", err)
	}
	poolCfg.MaxConns = int32(cfg.Database.MaxConnections)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("database connection failed: %w", err)
	}

	repo, err := postgres.NewRepository(pool)
	if err != nil {
		pool.Close()
		return nil, nil, nil, fmt.Errorf("repository init failed: %w", err)
	}
	return repo, pool, pool.Close, nil
}

// seedRoles makes sure the built-in roles exist before the first request.
// Everything else is created lazily at registration time.
func seedRoles(ctx context.Context, repo storage.Repository) error {
	if _, err := repo.Roles().EnsureRole(ctx, auth.WildcardRole); err != nil {
		return err
	}
	user, err := repo.Roles().EnsureRole(ctx, auth.DefaultRole)
	if err != nil {
		return err
	}
	if len(user.Permissions) == 0 {
		return repo.Roles().SetPermissions(ctx, user.ID, []string{"create:article", "create:comment"})
	}
	return nil
}

func bootstrapAdmin(ctx context.Context, cfg config.Config, repo storage.Repository, logger zerolog.Logger) error {
	bootstrap := cfg.AdminBootstrap
	if bootstrap.Username == "" || bootstrap.Password == "" || bootstrap.Email == "" {
		logger.Warn().Msg("admin bootstrap env vars not fully set; skipping")
		return nil
	}

	if _, err := repo.Subjects().FindByEmail(ctx, bootstrap.Email); err == nil {
		return nil
	} else if !errors.Is(err, storage.ErrNotFound) {
		return fmt.Errorf("check admin user: %w", err)
	}

	role, err := repo.Roles().EnsureRole(ctx, auth.WildcardRole)
	if err != nil {
		return fmt.Errorf("ensure admin role: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(bootstrap.Password), handlers.BcryptCost)
	if err != nil {
		return fmt.Errorf("hash admin password: %w", err)
	}

	_, err = repo.Subjects().Create(ctx, storage.Subject{
		Username:     bootstrap.Username,
		Email:        bootstrap.Email,
		PasswordHash: string(hash),
		Roles:        []storage.Role{role},
	})
	if err != nil {
		return fmt.Errorf("create admin user: %w", err)
	}

	// Log admin creation - redact email in production to avoid PII leaks
	if cfg.Environment == "production" {
		logger.Info().Str("username", bootstrap.Username).Msg("bootstrapped admin user")
	} else {
		logger.Info().Str("email", bootstrap.Email).Str("username", bootstrap.Username).Msg("bootstrapped admin user")
	}
	return nil
}

func gracefulShutdown(server *http.Server, logger zerolog.Logger) error {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	<-stop
	logger.Info().Msg("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("shutdown error")
		return err
	}

	logger.Info().Msg("server stopped")
	return nil
}
