package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/mobilerecharge/server/internal/auth"
	"github.com/mobilerecharge/server/internal/config"
	"github.com/mobilerecharge/server/internal/db"
	httphandler "github.com/mobilerecharge/server/internal/http"
	"github.com/mobilerecharge/server/internal/http/handlers"
	"github.com/mobilerecharge/server/internal/logger"
	"github.com/mobilerecharge/server/internal/metrics"
	"github.com/mobilerecharge/server/internal/repo"
)

func main() {
	// Load .env from CWD or server/ so it works from repo root or server/ (env vars override)
	_ = godotenv.Load(".env")
	_ = godotenv.Load("server/.env")

	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log := logger.SetupDefault(os.Stdout, cfg.Debug)

	if err := run(cfg, log); err != nil {
		log.Error("server stopped with error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run(cfg *config.Config, log *slog.Logger) error {
	ctx := context.Background()

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	collector := metrics.NewCollector(reg)

	// Profile store
	dynamo, err := repo.NewDynamoClient(ctx, cfg.AWSRegion, cfg.DynamoDBEndpoint)
	if err != nil {
		return err
	}
	profiles := repo.NewProfileRepo(dynamo, cfg.DynamoDBTable, log, collector)

	// Admin sessions
	var sessionRepo repo.SessionRepo
	if cfg.DatabaseURL != "" {
		database, err := db.Open(ctx, cfg.DatabaseURL, log)
		if err != nil {
			return fmt.Errorf("open session database: %w", err)
		}
		defer database.Close()

		if err := db.Migrate(ctx, database); err != nil {
			return err
		}
		sessionRepo = repo.NewSessionRepo(database)
	} else {
		log.Warn("DATABASE_URL not set; admin sessions are kept in memory and lost on restart")
		sessionRepo = repo.NewMemorySessionRepo()
	}

	sessions := auth.NewSessionManager(sessionRepo, auth.NewJWTService(cfg.SessionSecret), auth.SessionConfig{
		TTL:          cfg.SessionTTL,
		CookieSecure: cfg.CookieSecure,
	}, log)

	identity := auth.NewSalesforceClient(auth.SalesforceConfig{
		ClientID:     cfg.SalesforceClientID,
		ClientSecret: cfg.SalesforceClientSecret,
		TokenURL:     cfg.SalesforceAuthURL,
		Timeout:      cfg.AuthTimeout,
	})

	h, err := handlers.New(handlers.Deps{
		Profiles: profiles,
		Identity: identity,
		Sessions: sessions,
		Logger:   log,
		Metrics:  collector,
	})
	if err != nil {
		return fmt.Errorf("load page templates: %w", err)
	}

	router := httphandler.NewRouter(httphandler.RouterConfig{
		Handler:  h,
		Sessions: sessions,
		Logger:   log,
		Metrics:  collector,
		Gatherer: reg,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		// Login waits on the identity provider for up to AuthTimeout
		WriteTimeout: cfg.AuthTimeout + 5*time.Second,
		IdleTimeout:  120 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Info("server starting",
			slog.String("port", cfg.Port),
			slog.String("dynamodb_table", cfg.DynamoDBTable),
			slog.String("aws_region", cfg.AWSRegion),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err, ok := <-serverErr:
		if ok {
			return fmt.Errorf("server failed to start: %w", err)
		}
		return nil
	case sig := <-quit:
		log.Info("shutting down server", slog.String("signal", sig.String()))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	log.Info("server exited")
	return nil
}
