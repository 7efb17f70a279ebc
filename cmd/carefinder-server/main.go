package main

import (
	"context"
	crypto_rand "crypto/rand"
	"encoding/hex"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"

	"github.com/carefinder/carefinder/internal/apperr"
	"github.com/carefinder/carefinder/internal/config"
	"github.com/carefinder/carefinder/internal/domain/appointment"
	"github.com/carefinder/carefinder/internal/domain/facility"
	"github.com/carefinder/carefinder/internal/domain/identity"
	"github.com/carefinder/carefinder/internal/domain/ownerclaim"
	"github.com/carefinder/carefinder/internal/domain/review"
	"github.com/carefinder/carefinder/internal/domain/submission"
	"github.com/carefinder/carefinder/internal/platform/auth"
	"github.com/carefinder/carefinder/internal/platform/db"
	"github.com/carefinder/carefinder/internal/platform/middleware"
	"github.com/carefinder/carefinder/internal/platform/places"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "carefinder-server",
		Short: "Healthcare facility directory API server",
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(seedAdminCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
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
			if dir == "" {
				dir = cfg.MigrationsDir
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
	upCmd.Flags().String("dir", "", "Path to migrations directory (defaults to MIGRATIONS_DIR)")
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
			if dir == "" {
				dir = cfg.MigrationsDir
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
			fmt.Println("---------- ---------------------------------------- ---------- --------------------")
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
	statusCmd.Flags().String("dir", "", "Path to migrations directory (defaults to MIGRATIONS_DIR)")
	cmd.AddCommand(statusCmd)

	return cmd
}

func seedAdminCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "seed-admin",
		Short: "Create an admin account",
		RunE: func(cmd *cobra.Command, args []string) error {
			email, _ := cmd.Flags().GetString("email")
			password, _ := cmd.Flags().GetString("password")
			name, _ := cmd.Flags().GetString("name")
			if email == "" || password == "" {
				return fmt.Errorf("--email and --password are required")
			}

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

			hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
			if err != nil {
				return err
			}

			users := identity.NewRepo(pool)
			admin := &identity.User{
				Name:         name,
				Email:        strings.ToLower(email),
				PasswordHash: string(hash),
				Role:         identity.RoleAdmin,
				IsActive:     true,
			}
			if err := users.Create(ctx, admin); err != nil {
				return fmt.Errorf("create admin: %w", err)
			}
			fmt.Printf("Admin account created: %s (%s)\n", admin.Email, admin.ID)
			return nil
		},
	}
	cmd.Flags().String("email", "", "Admin email")
	cmd.Flags().String("password", "", "Admin password")
	cmd.Flags().String("name", "Administrator", "Admin display name")
	return cmd
}

func runServer() error {
	// Logger
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	if os.Getenv("ENV") == "development" {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}

	// Config
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid config")
	}

	tokenCfg, err := resolveTokenConfig(cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to resolve signing key")
	}

	// Database
	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()
	logger.Info().Msg("connected to database")

	// Echo server
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = apperr.EchoErrorHandler(logger)

	// Global middleware
	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(middleware.RequestTimeout(cfg.RequestTimeout))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete},
		AllowHeaders: []string{"Authorization", "Content-Type", "X-Request-ID"},
	}))

	// Repositories
	userRepo := identity.NewRepo(pool)
	facilityRepo := facility.NewRepo(pool)
	appointmentRepo := appointment.NewRepo(pool)
	reviewRepo := review.NewRepo(pool)
	submissionRepo := submission.NewRepo(pool)

	// Services
	identitySvc := identity.NewService(userRepo, tokenCfg)
	facilitySvc := facility.NewService(facilityRepo)
	claimSvc := ownerclaim.NewService(pool, userRepo, facilityRepo)
	appointmentSvc := appointment.NewService(appointmentRepo, facilityRepo)
	reviewSvc := review.NewService(pool, reviewRepo, facilityRepo)
	submissionSvc := submission.NewService(pool, submissionRepo, facilitySvc)

	// Route groups: public has no auth, api requires a valid token.
	public := e.Group("/api/v1")
	api := e.Group("/api/v1", auth.Middleware(tokenCfg))

	identity.NewHandler(identitySvc).RegisterRoutes(public, api)
	facility.NewHandler(facilitySvc).RegisterRoutes(public, api)
	ownerclaim.NewHandler(claimSvc).RegisterRoutes(api)
	appointment.NewHandler(appointmentSvc).RegisterRoutes(api)
	review.NewHandler(reviewSvc).RegisterRoutes(public, api)
	submission.NewHandler(submissionSvc).RegisterRoutes(api)

	// Health checks
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "ok",
			"version": "0.1.0",
		})
	})
	e.GET("/health/db", db.HealthHandler(pool))

	// External rating refresh job
	jobCtx, jobCancel := context.WithCancel(ctx)
	defer jobCancel()
	if cfg.PlacesAPIKey != "" {
		refresher := places.NewRefresher(
			places.NewClient(cfg.PlacesAPIKey),
			facilityRepo,
			cfg.PlacesRefreshInterval,
			logger,
		)
		go refresher.Run(jobCtx)
	} else {
		logger.Info().Msg("PLACES_API_KEY not set, external rating refresh disabled")
	}

	// Graceful shutdown
	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Str("env", cfg.Env).Msg("starting server")
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server")
	jobCancel()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Fatal().Err(err).Msg("server shutdown failed")
	}
	logger.Info().Msg("server stopped")
	return nil
}

// resolveTokenConfig builds the signing configuration. In development a
// random key is generated when JWT_SECRET is empty so the server still
// starts; tokens then die with the process.
func resolveTokenConfig(cfg *config.Config, logger zerolog.Logger) (auth.TokenConfig, error) {
	key := []byte(cfg.JWTSecret)
	if len(key) == 0 {
		if !cfg.IsDev() {
			return auth.TokenConfig{}, fmt.Errorf("JWT_SECRET is required outside development")
		}
		raw := make([]byte, 32)
		if _, err := crypto_rand.Read(raw); err != nil {
			return auth.TokenConfig{}, fmt.Errorf("generate dev signing key: %w", err)
		}
		key = []byte(hex.EncodeToString(raw))
		logger.Warn().Msg("JWT_SECRET not set, using a random development signing key")
	}
	return auth.TokenConfig{
		SigningKey: key,
		Issuer:     cfg.JWTIssuer,
		TTL:        cfg.JWTTTL,
	}, nil
}
