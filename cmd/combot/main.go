// Package main runs the combot combat server: the HTTP command API, the
// tracker websocket feed, and the pending-action sweeper.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"time"

	"go.uber.org/zap"

	"github.com/cory-johannsen/combot/internal/config"
	"github.com/cory-johannsen/combot/internal/extract"
	"github.com/cory-johannsen/combot/internal/frontend/api"
	"github.com/cory-johannsen/combot/internal/game/combat"
	"github.com/cory-johannsen/combot/internal/game/condition"
	"github.com/cory-johannsen/combot/internal/game/dice"
	"github.com/cory-johannsen/combot/internal/gameserver"
	"github.com/cory-johannsen/combot/internal/observability"
	"github.com/cory-johannsen/combot/internal/server"
	"github.com/cory-johannsen/combot/internal/sheet"
	"github.com/cory-johannsen/combot/internal/storage"
	"github.com/cory-johannsen/combot/internal/storage/postgres"
	"github.com/cory-johannsen/combot/internal/storage/sqlite"
)

func main() {
	start := time.Now()

	configPath := flag.String("config", "configs/dev.yaml", "path to configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logging, cfg.Server.Name)
	if err != nil {
		log.Fatalf("initializing logger: %v", err)
	}
	defer logger.Sync()

	ctx := context.Background()

	store, err := openStore(ctx, cfg.Database, logger)
	if err != nil {
		logger.Fatal("opening store", zap.Error(err))
	}
	defer store.Close()

	tables := combat.DefaultTables()
	if cfg.Combat.TablesPath != "" {
		tables, err = combat.LoadTablesFile(cfg.Combat.TablesPath)
		if err != nil {
			logger.Fatal("loading combat tables", zap.String("path", cfg.Combat.TablesPath), zap.Error(err))
		}
	}

	effects := condition.Default()
	if cfg.Combat.EffectsPath != "" {
		effects, err = condition.LoadFile(cfg.Combat.EffectsPath)
		if err != nil {
			logger.Fatal("loading special effects", zap.String("path", cfg.Combat.EffectsPath), zap.Error(err))
		}
	}

	var extractor extract.Extractor = extract.Disabled{}
	if cfg.Extraction.Provider == "anthropic" {
		llm := extract.NewAnthropicCompleter(extract.AnthropicConfig{
			APIKey:     cfg.Extraction.APIKey,
			Model:      cfg.Extraction.Model,
			MaxTokens:  cfg.Extraction.MaxTokens,
			BaseURL:    cfg.Extraction.BaseURL,
			MaxRetries: -1,
			Timeout:    cfg.Extraction.Timeout,
		}, logger)
		extractor = extract.NewService(llm, logger).WithEffects(effects)
	} else {
		logger.Warn("text extraction disabled; actions cannot be parsed")
	}

	roller := dice.NewLoggedRoller(dice.NewCryptoSource(), logger)
	hub := api.NewHub(logger)
	handler := gameserver.NewCombatHandler(
		store,
		extractor,
		sheet.NewClient(cfg.Sheet.Timeout, logger),
		tables,
		roller,
		cfg.Combat,
		logger,
		hub.Broadcast,
	)

	lifecycle := server.NewLifecycle(logger, cfg.Server.ShutdownTimeout)
	lifecycle.Add("http", api.NewServer(cfg.HTTP, handler, hub, logger))
	lifecycle.Add("sweeper", gameserver.NewSweeper(handler, cfg.Combat.SweepInterval, logger))

	logger.Info("combot starting",
		zap.String("addr", cfg.HTTP.Addr()),
		zap.String("database", cfg.Database.Driver),
		zap.String("extraction", cfg.Extraction.Provider),
		zap.Duration("startup", time.Since(start)),
	)
	if err := lifecycle.Run(ctx); err != nil {
		logger.Fatal("server exited with error", zap.Error(err))
	}
}

// openStore opens the configured backend. The sqlite store migrates itself;
// postgres expects cmd/migrate to have run.
func openStore(ctx context.Context, cfg config.DatabaseConfig, logger *zap.Logger) (storage.Store, error) {
	switch cfg.Driver {
	case "sqlite":
		s, err := sqlite.Open(cfg.Path)
		if err != nil {
			return nil, err
		}
		logger.Info("sqlite store opened", zap.String("path", cfg.Path))
		return s, nil
	case "postgres":
		s, err := postgres.Open(ctx, cfg)
		if err != nil {
			return nil, err
		}
		logger.Info("postgres store connected", zap.String("host", cfg.Host))
		return s, nil
	default:
		return nil, fmt.Errorf("unknown database driver %q", cfg.Driver)
	}
}
