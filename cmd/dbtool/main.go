// cmd/dbtool/main.go

package main

import (
	"context"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"freedomwall/internal/adapter/storage"
	"freedomwall/internal/config"
	"freedomwall/internal/logging"
)

func main() {
	envErr := godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("Failed to load configuration: %v", err)
	}

	logger := logging.NewLoggerWithService("freedomwall-dbtool", cfg.Log.Level, cfg.Log.Format)
	if envErr != nil {
		logger.Debug("No .env file found (using environment variables)")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	db, err := storage.Connect(ctx, cfg.Database)
	if err != nil {
		logger.WithError(err).Fatal("Failed to initialize database")
	}
	defer db.Close()

	if err := initAndSeed(ctx, db, cfg.Wall.SeedPath, logger); err != nil {
		logger.WithError(err).Fatal("Database setup failed")
	}
}

func initAndSeed(ctx context.Context, db *pgxpool.Pool, seedPath string, logger *logrus.Entry) error {
	logger.Info("Initializing database schema...")
	if err := storage.InitSchema(ctx, db); err != nil {
		return err
	}
	logger.Info("Schema ready.")

	if seedPath == "" {
		logger.Info("SEED_PATH not set, skipping seed")
		return nil
	}

	logger.WithField("path", seedPath).Info("Seeding database...")
	inserted, err := storage.SeedFromJSON(ctx, db, seedPath)
	if err != nil {
		return err
	}
	logger.WithField("inserted", inserted).Info("Seeding complete.")

	return nil
}
