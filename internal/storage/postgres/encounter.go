package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cory-johannsen/combot/internal/game/encounter"
	"github.com/cory-johannsen/combot/internal/storage"
)

// EncounterRepository persists encounters as JSONB documents keyed by channel.
type EncounterRepository struct {
	db *pgxpool.Pool
}

// NewEncounterRepository creates an EncounterRepository backed by the given pool.
//
// Precondition: db must be a valid, open connection pool.
func NewEncounterRepository(db *pgxpool.Pool) *EncounterRepository {
	return &EncounterRepository{db: db}
}

// GetEncounter returns the encounter in channelID.
//
// Postcondition: Returns the encounter with Version set from the row, or storage.ErrNotFound.
func (r *EncounterRepository) GetEncounter(ctx context.Context, channelID string) (*encounter.Encounter, error) {
	var (
		state   []byte
		version int64
	)
	err := r.db.QueryRow(ctx,
		`SELECT state, version FROM encounters WHERE channel_id = $1`, channelID,
	).Scan(&state, &version)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("querying encounter: %w", err)
	}
	var enc encounter.Encounter
	if err := json.Unmarshal(state, &enc); err != nil {
		return nil, fmt.Errorf("decoding encounter %s: %w", channelID, err)
	}
	enc.Version = version
	return &enc, nil
}

// CreateEncounter stores enc, replacing any encounter already in the channel.
//
// Precondition: enc.ChannelID and enc.ID must be non-empty.
// Postcondition: enc.Version is 1.
func (r *EncounterRepository) CreateEncounter(ctx context.Context, enc *encounter.Encounter) error {
	enc.Version = 1
	state, err := json.Marshal(enc)
	if err != nil {
		return fmt.Errorf("encoding encounter: %w", err)
	}
	_, err = r.db.Exec(ctx, `
		INSERT INTO encounters (channel_id, encounter_id, version, round, state, created_at, updated_at)
		VALUES ($1, $2, 1, $3, $4, $5, $6)
		ON CONFLICT (channel_id) DO UPDATE
		SET encounter_id = EXCLUDED.encounter_id,
		    version      = 1,
		    round        = EXCLUDED.round,
		    state        = EXCLUDED.state,
		    created_at   = EXCLUDED.created_at,
		    updated_at   = EXCLUDED.updated_at`,
		enc.ChannelID, enc.ID, enc.Round, state, enc.CreatedAt, enc.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("inserting encounter: %w", err)
	}
	return nil
}

// UpdateEncounter writes enc if the stored version matches enc.Version.
//
// Postcondition: On success enc.Version is incremented; on a stale version
// storage.ErrVersionConflict is returned and enc is unchanged.
func (r *EncounterRepository) UpdateEncounter(ctx context.Context, enc *encounter.Encounter) error {
	expected := enc.Version
	enc.Version = expected + 1
	state, err := json.Marshal(enc)
	enc.Version = expected
	if err != nil {
		return fmt.Errorf("encoding encounter: %w", err)
	}
	tag, err := r.db.Exec(ctx, `
		UPDATE encounters
		SET version = version + 1, round = $3, state = $4, updated_at = $5
		WHERE channel_id = $1 AND version = $2`,
		enc.ChannelID, expected, enc.Round, state, enc.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("updating encounter: %w", err)
	}
	if tag.RowsAffected() == 0 {
		var exists bool
		if err := r.db.QueryRow(ctx,
			`SELECT EXISTS (SELECT 1 FROM encounters WHERE channel_id = $1)`, enc.ChannelID,
		).Scan(&exists); err != nil {
			return fmt.Errorf("checking encounter: %w", err)
		}
		if !exists {
			return storage.ErrNotFound
		}
		return storage.ErrVersionConflict
	}
	enc.Version = expected + 1
	return nil
}

// DeleteEncounter removes the channel's encounter.
func (r *EncounterRepository) DeleteEncounter(ctx context.Context, channelID string) error {
	if _, err := r.db.Exec(ctx, `DELETE FROM encounters WHERE channel_id = $1`, channelID); err != nil {
		return fmt.Errorf("deleting encounter: %w", err)
	}
	return nil
}

// ListChannels returns channels with an encounter, oldest update first.
func (r *EncounterRepository) ListChannels(ctx context.Context) ([]string, error) {
	rows, err := r.db.Query(ctx, `SELECT channel_id FROM encounters ORDER BY updated_at ASC, channel_id ASC`)
	if err != nil {
		return nil, fmt.Errorf("listing encounters: %w", err)
	}
	channels, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("scanning encounters: %w", err)
	}
	return channels, nil
}
