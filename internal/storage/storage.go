// Package storage defines the persistence contract for encounters and
// character links. Implementations live in the postgres and sqlite
// subpackages.
package storage

import (
	"context"
	"errors"

	"github.com/cory-johannsen/combot/internal/game/character"
	"github.com/cory-johannsen/combot/internal/game/encounter"
)

var (
	// ErrNotFound is returned when no record exists for the requested key.
	ErrNotFound = errors.New("storage: not found")
	// ErrVersionConflict is returned when an encounter was modified since it was loaded.
	ErrVersionConflict = errors.New("storage: encounter version conflict")
)

// EncounterStore persists one encounter per channel.
type EncounterStore interface {
	// GetEncounter returns the channel's encounter or ErrNotFound.
	GetEncounter(ctx context.Context, channelID string) (*encounter.Encounter, error)
	// CreateEncounter stores enc, replacing any encounter already in its channel.
	//
	// Postcondition: enc.Version is 1.
	CreateEncounter(ctx context.Context, enc *encounter.Encounter) error
	// UpdateEncounter stores enc only if the stored version still equals
	// enc.Version, returning ErrVersionConflict otherwise.
	//
	// Postcondition: on success enc.Version is incremented.
	UpdateEncounter(ctx context.Context, enc *encounter.Encounter) error
	// DeleteEncounter removes the channel's encounter; deleting a missing one is not an error.
	DeleteEncounter(ctx context.Context, channelID string) error
	// ListChannels returns the channels with an active encounter.
	ListChannels(ctx context.Context) ([]string, error)
}

// CharacterLinkStore persists the user+channel to sheet URL mapping.
type CharacterLinkStore interface {
	SetCharacterLink(ctx context.Context, link character.Link) error
	// CharacterLink returns the link for userID in channelID or ErrNotFound.
	CharacterLink(ctx context.Context, userID, channelID string) (character.Link, error)
}

// Store is a complete persistence backend.
type Store interface {
	EncounterStore
	CharacterLinkStore
	Close() error
}
