// cmd/api/main.go

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/joho/godotenv"
	"github.com/nats-io/nats.go"
	"github.com/sirupsen/logrus"

	"freedomwall/internal/adapter/events"
	"freedomwall/internal/adapter/storage"
	"freedomwall/internal/config"
	"freedomwall/internal/domain/message"
	"freedomwall/internal/logging"
	"freedomwall/internal/monitoring"
	"freedomwall/internal/server"
	"freedomwall/internal/service/wall"
)

const serviceName = "freedomwall"

// bus is what the wall needs from an event transport
type bus interface {
	message.Publisher
	message.Subscriber
}

func main() {
	envErr := godotenv.Load()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("Failed to load configuration: %v", err)
	}

	logger := logging.NewLoggerWithService(serviceName, cfg.Log.Level, cfg.Log.Format)
	if envErr != nil {
		logger.Debug("No .env file found (using environment variables)")
	}

	// Setup context with cancellation for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Setup signal handling for graceful shutdown
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	metrics := monitoring.NewMetricsCollector(serviceName)
	health := monitoring.NewHealthChecker(serviceName)

	// Initialize storage
	store, db, err := initStore(ctx, cfg, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to initialize store")
	}
	if db != nil {
		defer db.Close()
	}
	health.AddCheck("store", monitoring.PingHealthCheck("store", store.Ping))
	if checker, ok := store.(message.CapabilityChecker); ok {
		health.AddCheck("nearby", monitoring.CapabilityHealthCheck(checker.CheckNearby))
		if err := checker.CheckNearby(ctx); err != nil {
			logger.WithError(err).Warn("Nearby queries will answer empty until the schema is installed")
		}
	}

	// Initialize event bus
	natsConn, eventBus, err := initEvents(cfg.NATS, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to connect to NATS")
	}
	if natsConn != nil {
		defer natsConn.Close()
	}
	health.AddCheck("events", monitoring.NATSHealthCheck(natsConn))

	// Initialize services
	wallService := wall.NewService(
		store,
		wall.WithPublisher(eventBus),
		wall.WithMetrics(metrics),
		wall.WithLogger(logger),
	)

	// Initialize HTTP server
	httpServer := server.NewServer(cfg, wallService, eventBus, health, metrics, logger)

	// Start HTTP server
	go func() {
		logger.WithField("addr", cfg.Server.Addr()).Info("Starting HTTP server")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Fatal("HTTP server error")
		}
	}()

	// Wait for shutdown signal
	<-shutdown
	logger.Info("Shutdown signal received")

	// Create shutdown context with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("HTTP server shutdown error")
	}

	if natsConn != nil {
		if err := natsConn.Drain(); err != nil {
			logger.WithError(err).Warn("NATS drain error")
		}
	}

	logger.Info("Shutdown complete")
}

// initStore opens the configured message store. The pool is nil for the
// memory driver.
func initStore(ctx context.Context, cfg config.Config, logger *logrus.Entry) (message.Store, *pgxpool.Pool, error) {
	switch cfg.Database.Driver {
	case config.DriverMemory:
		store := storage.NewMemoryStore()
		if cfg.Wall.SeedPath != "" {
			msgs, err := storage.LoadSeed(cfg.Wall.SeedPath)
			if err != nil {
				return nil, nil, err
			}
			if err := storage.Seed(ctx, store, msgs); err != nil {
				return nil, nil, err
			}
			logger.WithField("messages", len(msgs)).Info("Seeded memory store")
		}
		logger.Warn("Using in-memory store, messages are lost on restart")
		return store, nil, nil

	case config.DriverPostGIS:
		db, err := storage.Connect(ctx, cfg.Database)
		if err != nil {
			return nil, nil, err
		}
		return storage.NewMessageStore(db), db, nil
	}

	return nil, nil, fmt.Errorf("unknown store driver %q", cfg.Database.Driver)
}

// initEvents connects to NATS, or falls back to an in-process bus when no
// URL is configured
func initEvents(cfg config.NATSConfig, logger *logrus.Entry) (*nats.Conn, bus, error) {
	if cfg.URL == "" {
		logger.Info("NATS_URL not set, live feed limited to this instance")
		return nil, events.NewLocalBus(), nil
	}

	options := []nats.Option{
		nats.Name(serviceName),
		nats.MaxReconnects(cfg.MaxReconnects),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.Timeout(cfg.ConnectTimeout),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			logger.WithError(err).Warn("NATS disconnected")
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.WithField("url", nc.ConnectedUrl()).Info("NATS reconnected")
		}),
		nats.ClosedHandler(func(nc *nats.Conn) {
			logger.Info("NATS connection closed")
		}),
	}

	nc, err := nats.Connect(cfg.URL, options...)
	if err != nil {
		return nil, nil, fmt.Errorf("unable to connect to NATS: %w", err)
	}

	return nc, events.NewNATSBus(nc, cfg.EventsTopic, logger), nil
}
