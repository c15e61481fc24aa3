package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/civicmitra/backend/internal/ai"
	"github.com/civicmitra/backend/internal/auth"
	"github.com/civicmitra/backend/internal/db"
	"github.com/civicmitra/backend/internal/geocode"
	httpapi "github.com/civicmitra/backend/internal/http"
	"github.com/civicmitra/backend/internal/http/handlers"
	"github.com/civicmitra/backend/internal/kafka"
	"github.com/civicmitra/backend/internal/realtime"
	"github.com/civicmitra/backend/internal/service"
	"github.com/civicmitra/backend/internal/storage"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, logger, err := setup()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := db.MigrateUp(cfg.DatabaseURL, logger); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	store, err := db.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("connect db: %w", err)
	}
	defer store.Close()

	uploads, err := storage.NewLocal(cfg.UploadDir, cfg.PublicBaseURL)
	if err != nil {
		return err
	}

	var rdb *redis.Client
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("redis url: %w", err)
		}
		rdb = redis.NewClient(opts)
		defer rdb.Close()
		logger.Info().Str("addr", opts.Addr).Msg("realtime relay via redis")
	}
	hub := realtime.NewHub(logger, rdb)
	go func() {
		if err := hub.RunRelay(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error().Err(err).Msg("realtime relay stopped")
		}
	}()

	events := kafka.NewProducer(cfg.Brokers(), cfg.KafkaTopic, logger)
	defer events.Close()

	var geocoder geocode.Geocoder
	if cfg.GeocoderEnabled {
		geocoder = &geocode.NominatimGeocoder{
			BaseURL:      cfg.GeocoderURL,
			UserAgent:    cfg.GeocoderUserAgent,
			CountryCodes: cfg.GeocoderCountry,
			MinInterval:  time.Second,
		}
	}

	notifier := &service.Notifier{Store: store, Hub: hub, Logger: logger}
	chats := &service.ChatService{Chats: store, Complaints: store, Hub: hub, Logger: logger}
	users := &service.UserService{
		Users:       store,
		Departments: store,
		Tokens:      auth.NewTokens(cfg.Secret(), cfg.TokenTTL),
		Logger:      logger,
	}
	h := &handlers.Handler{
		Complaints: &service.ComplaintService{
			Complaints:  store,
			Users:       store,
			Departments: store,
			Chats:       chats,
			Notifier:    notifier,
			Classifier:  ai.New(cfg.AIBaseURL, cfg.AIModel, cfg.AIAPIKey, logger),
			Geocoder:    geocoder,
			Events:      events,
			Logger:      logger,
		},
		Chats:         chats,
		Notifications: notifier,
		Users:         users,
		Departments:   &service.DepartmentService{Departments: store},
		Alerts:        &service.AlertService{Alerts: store},
		Analytics:     &service.AnalyticsService{Stats: store},
		Uploads:       uploads,
		Hub:           hub,
		DB:            store,
		Validator:     handlers.NewValidator(),
		Logger:        logger,
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           httpapi.Router(cfg, h),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("port", cfg.Port).Str("env", cfg.Env).Msg("server started")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server: %w", err)
		}
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
	}
	logger.Info().Msg("server stopped")
	return nil
}
