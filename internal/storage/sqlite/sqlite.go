// Package sqlite provides a single-file SQLite storage.Store for development
// and single-host deployments.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/golang-migrate/migrate/v4"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite"
	_ "modernc.org/sqlite"

	"github.com/cory-johannsen/combot/internal/game/character"
	"github.com/cory-johannsen/combot/internal/game/encounter"
	"github.com/cory-johannsen/combot/internal/storage"
	"github.com/cory-johannsen/combot/migrations"
)

// Store persists encounters and character links in SQLite.
type Store struct {
	db *sql.DB
}

func toMillis(t time.Time) int64 { return t.UTC().UnixMilli() }

func fromMillis(v int64) time.Time { return time.UnixMilli(v).UTC() }

// Open opens the database at path and applies the embedded migrations.
//
// Precondition: path must be non-empty.
// Postcondition: Returns a migrated Store or a non-nil error.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("sqlite path is required")
	}
	dsn := filepath.Clean(path) + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}
	// One writer at a time keeps version checks serialised.
	db.SetMaxOpenConns(1)
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("pinging sqlite db: %w", err)
	}
	if err := applyMigrations(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

func applyMigrations(db *sql.DB) error {
	src, err := migrations.Source("sqlite")
	if err != nil {
		return err
	}
	driver, err := migratesqlite.WithInstance(db, &migratesqlite.Config{})
	if err != nil {
		return fmt.Errorf("creating migration driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "sqlite", driver)
	if err != nil {
		return fmt.Errorf("creating migrator: %w", err)
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("running migrations: %w", err)
	}
	return nil
}

// Close closes the database handle.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// GetEncounter implements storage.EncounterStore.
func (s *Store) GetEncounter(ctx context.Context, channelID string) (*encounter.Encounter, error) {
	var (
		state   string
		version int64
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT state, version FROM encounters WHERE channel_id = ?`, channelID,
	).Scan(&state, &version)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("querying encounter: %w", err)
	}
	var enc encounter.Encounter
	if err := json.Unmarshal([]byte(state), &enc); err != nil {
		return nil, fmt.Errorf("decoding encounter %s: %w", channelID, err)
	}
	enc.Version = version
	return &enc, nil
}

// CreateEncounter implements storage.EncounterStore.
func (s *Store) CreateEncounter(ctx context.Context, enc *encounter.Encounter) error {
	enc.Version = 1
	state, err := json.Marshal(enc)
	if err != nil {
		return fmt.Errorf("encoding encounter: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO encounters (channel_id, encounter_id, version, round, state, created_at, updated_at)
		VALUES (?, ?, 1, ?, ?, ?, ?)
		ON CONFLICT (channel_id) DO UPDATE
		SET encounter_id = excluded.encounter_id,
		    version      = 1,
		    round        = excluded.round,
		    state        = excluded.state,
		    created_at   = excluded.created_at,
		    updated_at   = excluded.updated_at`,
		enc.ChannelID, enc.ID, enc.Round, string(state), toMillis(enc.CreatedAt), toMillis(enc.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("inserting encounter: %w", err)
	}
	return nil
}

// UpdateEncounter implements storage.EncounterStore.
func (s *Store) UpdateEncounter(ctx context.Context, enc *encounter.Encounter) error {
	expected := enc.Version
	enc.Version = expected + 1
	state, err := json.Marshal(enc)
	enc.Version = expected
	if err != nil {
		return fmt.Errorf("encoding encounter: %w", err)
	}
	res, err := s.db.ExecContext(ctx, `
		UPDATE encounters
		SET version = version + 1, round = ?, state = ?, updated_at = ?
		WHERE channel_id = ? AND version = ?`,
		enc.Round, string(state), toMillis(enc.UpdatedAt), enc.ChannelID, expected,
	)
	if err != nil {
		return fmt.Errorf("updating encounter: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("updating encounter: %w", err)
	}
	if n == 0 {
		var found int
		err := s.db.QueryRowContext(ctx, `SELECT 1 FROM encounters WHERE channel_id = ?`, enc.ChannelID).Scan(&found)
		if errors.Is(err, sql.ErrNoRows) {
			return storage.ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("checking encounter: %w", err)
		}
		return storage.ErrVersionConflict
	}
	enc.Version = expected + 1
	return nil
}

// DeleteEncounter implements storage.EncounterStore.
func (s *Store) DeleteEncounter(ctx context.Context, channelID string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM encounters WHERE channel_id = ?`, channelID); err != nil {
		return fmt.Errorf("deleting encounter: %w", err)
	}
	return nil
}

// ListChannels implements storage.EncounterStore.
func (s *Store) ListChannels(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT channel_id FROM encounters ORDER BY updated_at ASC, channel_id ASC`)
	if err != nil {
		return nil, fmt.Errorf("listing encounters: %w", err)
	}
	defer rows.Close()
	var channels []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning encounters: %w", err)
		}
		channels = append(channels, id)
	}
	return channels, rows.Err()
}

// SetCharacterLink implements storage.CharacterLinkStore.
func (s *Store) SetCharacterLink(ctx context.Context, link character.Link) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO character_links (user_id, channel_id, sheet_url, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (user_id, channel_id) DO UPDATE
		SET sheet_url = excluded.sheet_url, updated_at = excluded.updated_at`,
		link.UserID, link.ChannelID, link.SheetURL, toMillis(link.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("upserting character link: %w", err)
	}
	return nil
}

// CharacterLink implements storage.CharacterLinkStore.
func (s *Store) CharacterLink(ctx context.Context, userID, channelID string) (character.Link, error) {
	link := character.Link{UserID: userID, ChannelID: channelID}
	var updated int64
	err := s.db.QueryRowContext(ctx,
		`SELECT sheet_url, updated_at FROM character_links WHERE user_id = ? AND channel_id = ?`,
		userID, channelID,
	).Scan(&link.SheetURL, &updated)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return character.Link{}, storage.ErrNotFound
		}
		return character.Link{}, fmt.Errorf("querying character link: %w", err)
	}
	link.UpdatedAt = fromMillis(updated)
	return link, nil
}
