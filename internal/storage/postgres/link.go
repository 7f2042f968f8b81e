package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cory-johannsen/combot/internal/game/character"
	"github.com/cory-johannsen/combot/internal/storage"
)

// CharacterLinkRepository persists which character sheet a user plays in a channel.
type CharacterLinkRepository struct {
	db *pgxpool.Pool
}

// NewCharacterLinkRepository creates a CharacterLinkRepository backed by the given pool.
//
// Precondition: db must be a valid, open connection pool.
func NewCharacterLinkRepository(db *pgxpool.Pool) *CharacterLinkRepository {
	return &CharacterLinkRepository{db: db}
}

// SetCharacterLink inserts or replaces the link for link.UserID in link.ChannelID.
func (r *CharacterLinkRepository) SetCharacterLink(ctx context.Context, link character.Link) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO character_links (user_id, channel_id, sheet_url, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id, channel_id) DO UPDATE
		SET sheet_url = EXCLUDED.sheet_url, updated_at = EXCLUDED.updated_at`,
		link.UserID, link.ChannelID, link.SheetURL, link.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("upserting character link: %w", err)
	}
	return nil
}

// CharacterLink returns the link for userID in channelID, or storage.ErrNotFound.
func (r *CharacterLinkRepository) CharacterLink(ctx context.Context, userID, channelID string) (character.Link, error) {
	link := character.Link{UserID: userID, ChannelID: channelID}
	err := r.db.QueryRow(ctx,
		`SELECT sheet_url, updated_at FROM character_links WHERE user_id = $1 AND channel_id = $2`,
		userID, channelID,
	).Scan(&link.SheetURL, &link.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return character.Link{}, storage.ErrNotFound
		}
		return character.Link{}, fmt.Errorf("querying character link: %w", err)
	}
	return link, nil
}
