// Package main applies or rolls back the embedded combot schema for the
// configured database driver.
package main

import (
	"errors"
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/database/sqlite"
	"go.uber.org/zap"

	"github.com/cory-johannsen/combot/internal/config"
	"github.com/cory-johannsen/combot/internal/observability"
	"github.com/cory-johannsen/combot/migrations"
)

func main() {
	configPath := flag.String("config", "configs/dev.yaml", "path to configuration file")
	direction := flag.String("direction", "up", "up, down, or version")
	steps := flag.Int("steps", 0, "number of steps (0 = all)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}
	logger, err := observability.NewLogger(cfg.Logging, "combot-migrate")
	if err != nil {
		log.Fatalf("creating logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	if err := run(cfg.Database, *direction, *steps, logger); err != nil {
		logger.Fatal("migration failed", zap.String("driver", cfg.Database.Driver), zap.Error(err))
	}
}

func run(db config.DatabaseConfig, direction string, steps int, logger *zap.Logger) error {
	began := time.Now()
	src, err := migrations.Source(db.Driver)
	if err != nil {
		return err
	}
	m, err := migrate.NewWithSourceInstance("iofs", src, db.MigrateURL())
	if err != nil {
		return fmt.Errorf("creating migrator: %w", err)
	}
	defer m.Close()

	switch {
	case direction == "version":
	case direction == "up" && steps > 0:
		err = m.Steps(steps)
	case direction == "up":
		err = m.Up()
	case direction == "down" && steps > 0:
		err = m.Steps(-steps)
	case direction == "down":
		err = m.Down()
	default:
		return fmt.Errorf("unknown direction %q", direction)
	}
	changed := true
	if errors.Is(err, migrate.ErrNoChange) {
		changed, err = false, nil
	}
	if err != nil {
		return err
	}

	version, dirty, err := m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return fmt.Errorf("reading schema version: %w", err)
	}
	logger.Info("schema",
		zap.String("driver", db.Driver),
		zap.String("direction", direction),
		zap.Bool("changed", changed && direction != "version"),
		zap.Uint("version", version),
		zap.Bool("dirty", dirty),
		zap.Duration("elapsed", time.Since(began)),
	)
	return nil
}
