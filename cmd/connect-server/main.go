package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/connectsaude/connect/internal/config"
	"github.com/connectsaude/connect/internal/domain/attendant"
	"github.com/connectsaude/connect/internal/domain/call"
	"github.com/connectsaude/connect/internal/domain/conversation"
	"github.com/connectsaude/connect/internal/domain/dashboard"
	"github.com/connectsaude/connect/internal/domain/intake"
	"github.com/connectsaude/connect/internal/domain/notification"
	"github.com/connectsaude/connect/internal/domain/patient"
	"github.com/connectsaude/connect/internal/domain/sector"
	"github.com/connectsaude/connect/internal/platform/auth"
	"github.com/connectsaude/connect/internal/platform/db"
	"github.com/connectsaude/connect/internal/platform/middleware"
	"github.com/connectsaude/connect/internal/platform/ratelimit"
	"github.com/connectsaude/connect/internal/platform/scheduler"
	"github.com/connectsaude/connect/internal/platform/webhook"
	"github.com/connectsaude/connect/internal/platform/websocket"
)

// attendantRecipients adapts the attendant service to the alerter's
// recipient lookup, avoiding an import cycle between the notification
// and attendant packages.
type attendantRecipients struct {
	svc *attendant.Service
}

func (r *attendantRecipients) AlertRecipients(ctx context.Context) ([]uuid.UUID, error) {
	attendants, _, err := r.svc.List(ctx, 500, 0)
	if err != nil {
		return nil, err
	}
	ids := make([]uuid.UUID, 0, len(attendants))
	for _, a := range attendants {
		ids = append(ids, a.ID)
	}
	return ids, nil
}

func main() {
	rootCmd := &cobra.Command{
		Use:   "connect-server",
		Short: "Connect CRM backend",
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(apikeyCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the Connect API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
	}

	upCmd := &cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, _ := cmd.Flags().GetString("dir")

			cfg, err := config.Load()
			if err != nil {
				return err
			}

			ctx := context.Background()
			pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
			if err != nil {
				return err
			}
			defer pool.Close()

			migrator := db.NewMigrator(pool, dir)
			count, err := migrator.Up(ctx)
			if err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}

			fmt.Printf("Applied %d migration(s) successfully.\n", count)
			return nil
		},
	}
	upCmd.Flags().String("dir", "./migrations", "Path to migrations directory")
	cmd.AddCommand(upCmd)

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, _ := cmd.Flags().GetString("dir")

			cfg, err := config.Load()
			if err != nil {
				return err
			}

			ctx := context.Background()
			pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
			if err != nil {
				return err
			}
			defer pool.Close()

			migrator := db.NewMigrator(pool, dir)
			statuses, err := migrator.Status(ctx)
			if err != nil {
				return fmt.Errorf("failed to get migration status: %w", err)
			}

			fmt.Printf("%-10s %-40s %-10s %s\n", "VERSION", "NAME", "STATUS", "APPLIED AT")
			for _, s := range statuses {
				status := "pending"
				appliedAt := ""
				if s.Applied {
					status = "applied"
					if s.AppliedAt != nil {
						appliedAt = s.AppliedAt.Format("2006-01-02 15:04:05")
					}
				}
				fmt.Printf("%-10d %-40s %-10s %s\n", s.Version, s.Name, status, appliedAt)
			}
			return nil
		},
	}
	statusCmd.Flags().String("dir", "./migrations", "Path to migrations directory")
	cmd.AddCommand(statusCmd)

	return cmd
}

func apikeyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "apikey",
		Short: "Manage intake API keys",
	}

	withManager := func(fn func(ctx context.Context, manager *auth.APIKeyManager) error) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}

		ctx := context.Background()
		pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
		if err != nil {
			return err
		}
		defer pool.Close()

		log := zerolog.New(os.Stderr).With().Timestamp().Logger()
		return fn(ctx, auth.NewAPIKeyManager(auth.NewAPIKeyStorePG(pool), log))
	}

	createCmd := &cobra.Command{
		Use:   "create",
		Short: "Create a new API key",
		RunE: func(cmd *cobra.Command, args []string) error {
			name, _ := cmd.Flags().GetString("name")
			rateLimit, _ := cmd.Flags().GetInt("rate-limit")
			if name == "" {
				return fmt.Errorf("--name is required")
			}

			return withManager(func(ctx context.Context, manager *auth.APIKeyManager) error {
				key, rawKey, err := manager.GenerateKey(ctx, name, rateLimit)
				if err != nil {
					return err
				}
				fmt.Printf("Created key %s (%s)\n", key.ID, key.Name)
				fmt.Printf("Key material (shown once): %s\n", rawKey)
				return nil
			})
		},
	}
	createCmd.Flags().String("name", "", "Key name")
	createCmd.Flags().Int("rate-limit", 0, "Per-minute rate limit override (0 = server default)")
	cmd.AddCommand(createCmd)

	cmd.AddCommand(&cobra.Command{
		Use:   "revoke <id>",
		Short: "Revoke an API key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withManager(func(ctx context.Context, manager *auth.APIKeyManager) error {
				if err := manager.RevokeKey(ctx, args[0]); err != nil {
					return err
				}
				fmt.Printf("Revoked key %s\n", args[0])
				return nil
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List API keys",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withManager(func(ctx context.Context, manager *auth.APIKeyManager) error {
				keys, total, err := manager.ListKeys(ctx, 100, 0)
				if err != nil {
					return err
				}
				fmt.Printf("%-38s %-24s %-10s %-10s %s\n", "ID", "NAME", "PREFIX", "STATUS", "RATE LIMIT")
				for _, k := range keys {
					limit := "default"
					if k.RateLimit > 0 {
						limit = fmt.Sprintf("%d/min", k.RateLimit)
					}
					fmt.Printf("%-38s %-24s %-10s %-10s %s\n", k.ID, k.Name, k.KeyPrefix, k.Status, limit)
				}
				fmt.Printf("%d key(s)\n", total)
				return nil
			})
		},
	})

	return cmd
}

func runServer() error {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	if os.Getenv("ENV") == "development" {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid config")
	}

	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()
	logger.Info().Msg("connected to database")

	// Intake rate limiter: Redis-backed when configured, in-process
	// otherwise.
	var intakeLimiter ratelimit.Limiter = ratelimit.NewMemoryLimiter()
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			logger.Fatal().Err(err).Msg("invalid REDIS_URL")
		}
		rdb := redis.NewClient(opts)
		if err := rdb.Ping(ctx).Err(); err != nil {
			logger.Fatal().Err(err).Msg("failed to connect to redis")
		}
		defer rdb.Close()
		intakeLimiter = ratelimit.NewRedisLimiter(rdb)
		logger.Info().Msg("connected to redis")
	}

	// Platform services
	hub := websocket.NewHub(logger)
	issuer := auth.NewTokenIssuer(cfg.JWTSecret)

	apiKeyStore := auth.NewAPIKeyStorePG(pool)
	apiKeyManager := auth.NewAPIKeyManager(apiKeyStore, logger)

	webhookStore := webhook.NewStorePG(pool)
	webhookManager := webhook.NewManager(webhookStore, logger)

	// Domain services
	alertThreshold := time.Duration(cfg.QueueAlertMinutes) * time.Minute

	sectorSvc := sector.NewService(sector.NewRepositoryPG(pool))
	attendantSvc := attendant.NewService(attendant.NewRepositoryPG(pool))

	patientRepo := patient.NewRepositoryPG(pool)
	patientSvc := patient.NewService(patientRepo, hub, webhookManager, alertThreshold, logger)

	conversationSvc := conversation.NewService(
		conversation.NewRepositoryPG(pool), patientRepo, hub, webhookManager, logger)

	callSvc := call.NewService(call.NewRepositoryPG(pool), nil, webhookManager, logger)

	notificationSvc := notification.NewService(notification.NewRepositoryPG(pool), hub, logger)
	dashboardSvc := dashboard.NewService(dashboard.NewRepositoryPG(pool))

	// Queue-wait alerter, swept every minute.
	alerter := notification.NewAlerter(
		patientRepo,
		&attendantRecipients{svc: attendantSvc},
		notificationSvc,
		hub,
		alertThreshold,
		logger,
	)
	alertJob, err := scheduler.New("queue-alerter", time.Minute, alerter.Run, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to create queue alerter")
	}
	alertJob.Start()
	defer alertJob.Stop()

	// Echo server
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))

	e.GET("/health", db.HealthHandler(pool))

	// Public intake API. Open CORS so marketing pages can post directly;
	// the API key plus per-minute limit gate the traffic.
	intakeGroup := e.Group("/api")
	intakeGroup.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{http.MethodPost, http.MethodOptions},
		AllowHeaders: []string{"Authorization", "Content-Type", "X-API-Key"},
	}))
	intakeHandler := intake.NewHandler(patientSvc, logger)
	intakeHandler.RegisterRoutes(intakeGroup,
		auth.RequireAPIKey(apiKeyManager),
		ratelimit.Middleware(intakeLimiter, cfg.IntakeRateLimit),
	)

	// Panel API
	apiV1 := e.Group("/api/v1")
	apiV1.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete},
		AllowHeaders: []string{"Authorization", "Content-Type", "X-Request-ID"},
	}))

	rateLimitCfg := middleware.RateLimitConfig{
		RequestsPerSecond: cfg.RateLimitRPS,
		BurstSize:         cfg.RateLimitBurst,
	}
	if rateLimitCfg.RequestsPerSecond <= 0 {
		rateLimitCfg = middleware.DefaultRateLimitConfig()
	}
	apiV1.Use(middleware.RateLimit(rateLimitCfg))

	authHandler := attendant.NewAuthHandler(attendantSvc, issuer)
	authHandler.RegisterPublicRoutes(apiV1.Group("/auth"))

	secured := apiV1.Group("", auth.SessionMiddleware(issuer))
	authHandler.RegisterRoutes(secured.Group("/auth"))

	attendant.NewHandler(attendantSvc).RegisterRoutes(secured.Group("/attendants"))
	sector.NewHandler(sectorSvc).RegisterRoutes(secured.Group("/sectors"))
	patient.NewHandler(patientSvc).RegisterRoutes(secured.Group("/patients"))
	conversation.NewHandler(conversationSvc).RegisterRoutes(secured.Group("/conversations"))
	call.NewHandler(callSvc).RegisterRoutes(secured.Group("/calls"))
	notification.NewHandler(notificationSvc).RegisterRoutes(secured.Group("/notifications"))
	dashboard.NewHandler(dashboardSvc).RegisterRoutes(secured.Group("/dashboard"))
	webhook.NewHandler(webhookManager).RegisterRoutes(secured.Group("/webhooks"))
	auth.NewAPIKeyHandler(apiKeyManager).RegisterRoutes(
		secured.Group("/apikeys", auth.RequireRole(attendant.RoleAdmin)))

	websocket.NewHandler(hub).RegisterRoutes(secured)

	// Start
	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Str("env", cfg.Env).Msg("starting server")
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server stopped")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
	}
	return nil
}
