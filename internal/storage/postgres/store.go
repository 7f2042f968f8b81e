// Package postgres persists encounters and character links in PostgreSQL
// through a pgx v5 pool. The schema is owned by cmd/migrate.
package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cory-johannsen/combot/internal/config"
)

// Store combines the PostgreSQL repositories into a storage.Store.
type Store struct {
	*EncounterRepository
	*CharacterLinkRepository
	pool *pgxpool.Pool
}

// Open connects a pool sized by cfg and wraps it in a Store.
//
// Precondition: cfg describes a reachable, migrated database.
// Postcondition: Returns a Store whose pool answered a ping, or a non-nil error.
func Open(ctx context.Context, cfg config.DatabaseConfig) (*Store, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("parsing postgres dsn: %w", err)
	}
	poolCfg.MaxConns = cfg.MaxConns
	poolCfg.MinConns = cfg.MinConns
	poolCfg.MaxConnLifetime = cfg.MaxConnLifetime

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("creating postgres pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging postgres: %w", err)
	}
	return NewStore(pool), nil
}

// NewStore wraps an existing pool. Closing the Store closes the pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{
		EncounterRepository:     NewEncounterRepository(pool),
		CharacterLinkRepository: NewCharacterLinkRepository(pool),
		pool:                    pool,
	}
}

// Health pings the database, giving up after timeout.
func (s *Store) Health(ctx context.Context, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return s.pool.Ping(ctx)
}

// Close releases the underlying pool.
func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

// Truncate deletes every encounter and character link.
func (s *Store) Truncate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, `TRUNCATE encounters, character_links`); err != nil {
		return fmt.Errorf("truncating tables: %w", err)
	}
	return nil
}
