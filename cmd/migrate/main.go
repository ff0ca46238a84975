package main

// Run database migrations:
//   go run ./cmd/migrate
//   go run ./cmd/migrate status

import (
	"context"
	"os"

	"github.com/Sergey0107/verification-products/internal/shared/config"
	"github.com/Sergey0107/verification-products/internal/shared/storage/db"
	"github.com/Sergey0107/verification-products/internal/shared/telemetry"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fail("migrate.config", err)
	}
	telemetry.SetLevel(cfg.LogLevel)
	ctx := context.Background()

	opts, err := db.OptionsFromEnv(db.ProfileMigrate)
	if err != nil {
		fail("migrate.config", err)
	}
	sqlDB, err := db.Connect(ctx, cfg.DatabaseURL, opts)
	if err != nil {
		fail("migrate.connect", err)
	}
	defer sqlDB.Close()

	if len(os.Args) > 1 && os.Args[1] == "status" {
		if err := db.MigrationStatus(ctx, sqlDB); err != nil {
			fail("migrate.status", err)
		}
		return
	}
	if err := db.RunMigrations(ctx, sqlDB); err != nil {
		fail("migrate.up", err)
	}
	telemetry.Info("migrate.done", nil)
}

func fail(event string, err error) {
	telemetry.Error(event, map[string]any{"error": err.Error()})
	telemetry.Sync()
	os.Exit(1)
}
