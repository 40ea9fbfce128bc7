package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
	"github.com/rs/cors"
	"golang.org/x/sync/errgroup"

	"github.com/calvinwijaya/blackjack-engine/internal/api"
	"github.com/calvinwijaya/blackjack-engine/internal/config"
	"github.com/calvinwijaya/blackjack-engine/internal/db"
	"github.com/calvinwijaya/blackjack-engine/internal/store"
)

var CLI struct {
	Config       string `short:"c" long:"config" default:"blackjack.hcl" env:"BLACKJACK_CONFIG" help:"Path to HCL configuration file"`
	Addr         string `short:"a" long:"addr" env:"BLACKJACK_ADDR" help:"Server address to bind to (overrides config)"`
	Port         int    `short:"p" long:"port" env:"PORT" help:"Server port (overrides config)"`
	Frontend     string `long:"frontend" env:"FRONTEND_URL" help:"Frontend URL for CORS (overrides config)"`
	LogLevel     string `short:"l" long:"log-level" env:"LOG_LEVEL" help:"Log level (overrides config)"`
	DBDriver     string `long:"db-driver" env:"DB_DRIVER" help:"Player store: memory, sqlite3 or postgres (overrides config)"`
	DSN          string `long:"dsn" env:"DATABASE_URL" help:"Database connection string (overrides config)"`
	SecureCookie bool   `long:"secure-cookie" env:"SECURE_COOKIE" help:"Only send the session cookie over HTTPS"`
}

type storeRunner interface {
	store.Store
	RunSweeper(ctx context.Context, interval time.Duration) error
}

func main() {
	// A missing .env file is fine
	_ = godotenv.Load()

	kctx := kong.Parse(&CLI)

	cfg, err := config.Load(CLI.Config)
	if err != nil {
		fmt.Printf("Error loading config: %v\n", err)
		kctx.Exit(1)
	}

	// Apply command line overrides
	if CLI.Addr != "" {
		cfg.Server.Address = CLI.Addr
	}
	if CLI.Port != 0 {
		cfg.Server.Port = CLI.Port
	}
	if CLI.Frontend != "" {
		cfg.Server.FrontendURL = CLI.Frontend
	}
	if CLI.LogLevel != "" {
		cfg.Server.LogLevel = CLI.LogLevel
	}
	if CLI.DBDriver != "" {
		cfg.Database.Driver = CLI.DBDriver
	}
	if CLI.DSN != "" {
		cfg.Database.DSN = CLI.DSN
	}

	if err := cfg.Validate(); err != nil {
		fmt.Printf("Invalid configuration: %v\n", err)
		kctx.Exit(1)
	}

	// Setup logging
	logger := log.New(os.Stderr)
	logger.SetReportTimestamp(true)
	switch cfg.Server.LogLevel {
	case "debug":
		logger.SetLevel(log.DebugLevel)
	case "warn":
		logger.SetLevel(log.WarnLevel)
	case "error":
		logger.SetLevel(log.ErrorLevel)
	default:
		logger.SetLevel(log.InfoLevel)
	}

	if err := run(cfg, logger); err != nil {
		logger.Error("Server failed", "error", err)
		kctx.Exit(1)
	}
}

func run(cfg *config.Config, logger *log.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	clock := quartz.NewReal()

	// Initialize the store
	var (
		players  storeRunner
		database *db.Database
	)
	switch cfg.Database.Driver {
	case "memory":
		players = store.NewMemoryStore(cfg.SessionLifetime(), clock, logger.WithPrefix("store"))
		logger.Info("In-memory player store initialized")
	default:
		var err error
		database, err = db.NewDatabase(ctx, cfg.Database.Driver, cfg.Database.DSN)
		if err != nil {
			return fmt.Errorf("initialize database: %w", err)
		}
		defer database.Close()
		players = store.NewDatabaseStore(database, cfg.SessionLifetime(), clock, logger.WithPrefix("store"))
		logger.Info("Database player store initialized", "driver", cfg.Database.Driver)
	}

	origins := strings.Split(cfg.Server.FrontendURL, ",")
	hub := api.NewHub(origins, logger.WithPrefix("ws"))

	handlers := api.NewHandlers(players, database, hub, api.Options{
		InitialTokens:   cfg.Game.InitialTokens,
		MinimumBet:      cfg.Game.MinimumBet,
		SessionLifetime: cfg.SessionLifetime(),
		SecureCookie:    CLI.SecureCookie,
		Clock:           clock,
	}, logger.WithPrefix("api"))

	// Set up router
	r := mux.NewRouter()
	handlers.RegisterRoutes(r)

	// Add middleware for logging
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			next.ServeHTTP(w, r)
			logger.Debug("Request", "method", r.Method, "uri", r.RequestURI, "duration", time.Since(start))
		})
	})

	// Configure CORS
	c := cors.New(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization", "X-Player-ID"},
		AllowCredentials: true,
	})

	srv := &http.Server{
		Addr:         cfg.GetServerAddress(),
		Handler:      c.Handler(r),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return hub.Run(ctx)
	})

	g.Go(func() error {
		return players.RunSweeper(ctx, cfg.SweepInterval())
	})

	g.Go(func() error {
		logger.Info("Starting blackjack server",
			"addr", cfg.GetServerAddress(),
			"store", cfg.Database.Driver,
			"frontend", cfg.Server.FrontendURL)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		logger.Info("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
