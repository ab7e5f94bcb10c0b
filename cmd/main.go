package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/ukydev/vehicle-ingest/internal/config"
	"github.com/ukydev/vehicle-ingest/internal/db"
	"github.com/ukydev/vehicle-ingest/internal/handlers"
	"github.com/ukydev/vehicle-ingest/internal/ingest"
	"github.com/ukydev/vehicle-ingest/internal/logging"
	"github.com/ukydev/vehicle-ingest/internal/middleware"
	"github.com/ukydev/vehicle-ingest/internal/mqtt"
	"github.com/ukydev/vehicle-ingest/internal/projector"
	"github.com/ukydev/vehicle-ingest/internal/validation"
)

const shutdownTimeout = 15 * time.Second

// newHandler builds the HTTP handler tree.
func newHandler(svc handlers.Ingester, logger log.FieldLogger, cfg *config.Config) http.Handler {
	mux := http.NewServeMux()
	handlers.NewIngestHandler(svc, logger).Register(mux)

	mws := []func(http.Handler) http.Handler{
		middleware.RequestID(logger),
		middleware.AccessLog(logger),
		middleware.Recover(logger),
	}
	if cfg.RateLimit > 0 {
		mws = append(mws, middleware.NewRateLimiter(cfg.RateLimit, cfg.RateWindow).Middleware)
	}
	return middleware.Chain(mux, mws...)
}

func run(ctx context.Context, cfg *config.Config, logger *log.Logger) error {
	store, err := db.Open(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := store.Close(closeCtx); err != nil {
			logger.WithError(err).Warn("Failed to close store")
		}
	}()
	logger.WithField("driver", cfg.StoreDriver).Info("Connected to store")

	validator, err := validation.New()
	if err != nil {
		return err
	}
	svc := &ingest.Service{
		Store:     store,
		Projector: projector.New(),
		Validator: validator,
		Dedup:     cfg.DedupCheck,
		Log:       logger,
	}

	if cfg.MQTT.Enabled() {
		sub := mqtt.NewSubscriber(svc, logger, cfg.MQTT)
		if err := sub.Start(mqtt.NewClientOptions(cfg.MQTT)); err != nil {
			return err
		}
		defer sub.Stop(time.Second)
		logger.WithField("broker", cfg.MQTT.Broker).Info("MQTT subscriber started")
	}

	srv := &http.Server{
		Addr:              ":" + strconv.Itoa(cfg.Port),
		Handler:           newHandler(svc, logger, cfg),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errc := make(chan error, 1)
	go func() {
		logger.WithField("addr", srv.Addr).Info("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
		close(errc)
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}
	logger.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	logger, err := logging.New(os.Stdout, cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		log.Fatalf("Failed to configure logging: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.WithError(err).Fatal("Server stopped")
	}
}
