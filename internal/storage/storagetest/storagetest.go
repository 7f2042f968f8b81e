// Package storagetest holds the behavioural tests every storage.Store must pass.
package storagetest

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cory-johannsen/combot/internal/game/character"
	"github.com/cory-johannsen/combot/internal/game/combat"
	"github.com/cory-johannsen/combot/internal/game/encounter"
	"github.com/cory-johannsen/combot/internal/storage"
)

// NewEncounter builds a small persisted-shape encounter for channelID.
func NewEncounter(channelID string) *encounter.Encounter {
	now := time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)
	enc := encounter.New(channelID, combat.DefaultTables(), encounter.FallbackEnemies(), now)
	enc.AppendLog("Combat started")
	return enc
}

// Run exercises s against the storage.Store contract.
func Run(t *testing.T, newStore func(t *testing.T) storage.Store) {
	t.Helper()

	t.Run("GetMissing", func(t *testing.T) {
		s := newStore(t)
		_, err := s.GetEncounter(context.Background(), "nope")
		assert.ErrorIs(t, err, storage.ErrNotFound)
	})

	t.Run("CreateAndGet", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		enc := NewEncounter("chan-1")
		require.NoError(t, s.CreateEncounter(ctx, enc))
		assert.Equal(t, int64(1), enc.Version)

		got, err := s.GetEncounter(ctx, "chan-1")
		require.NoError(t, err)
		assert.Equal(t, enc.ID, got.ID)
		assert.Equal(t, int64(1), got.Version)
		assert.Len(t, got.Enemies, 3)
		assert.Equal(t, []string{"Combat started"}, got.Log)
		assert.True(t, enc.CreatedAt.Equal(got.CreatedAt))
	})

	t.Run("CreateReplaces", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		first := NewEncounter("chan-1")
		require.NoError(t, s.CreateEncounter(ctx, first))
		require.NoError(t, s.UpdateEncounter(ctx, first))

		second := NewEncounter("chan-1")
		require.NoError(t, s.CreateEncounter(ctx, second))
		got, err := s.GetEncounter(ctx, "chan-1")
		require.NoError(t, err)
		assert.Equal(t, second.ID, got.ID)
		assert.Equal(t, int64(1), got.Version)
	})

	t.Run("UpdateBumpsVersion", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		enc := NewEncounter("chan-1")
		require.NoError(t, s.CreateEncounter(ctx, enc))

		enc.NewRound()
		require.NoError(t, s.UpdateEncounter(ctx, enc))
		assert.Equal(t, int64(2), enc.Version)

		got, err := s.GetEncounter(ctx, "chan-1")
		require.NoError(t, err)
		assert.Equal(t, 2, got.Round)
		assert.Equal(t, int64(2), got.Version)
	})

	t.Run("UpdateStaleConflicts", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		enc := NewEncounter("chan-1")
		require.NoError(t, s.CreateEncounter(ctx, enc))

		a, err := s.GetEncounter(ctx, "chan-1")
		require.NoError(t, err)
		b, err := s.GetEncounter(ctx, "chan-1")
		require.NoError(t, err)

		a.AppendLog("from a")
		require.NoError(t, s.UpdateEncounter(ctx, a))

		b.AppendLog("from b")
		err = s.UpdateEncounter(ctx, b)
		assert.ErrorIs(t, err, storage.ErrVersionConflict)
		assert.Equal(t, int64(1), b.Version)

		got, err := s.GetEncounter(ctx, "chan-1")
		require.NoError(t, err)
		assert.Contains(t, got.Log, "from a")
		assert.NotContains(t, got.Log, "from b")
	})

	t.Run("UpdateMissing", func(t *testing.T) {
		s := newStore(t)
		enc := NewEncounter("ghost")
		enc.Version = 1
		assert.ErrorIs(t, s.UpdateEncounter(context.Background(), enc), storage.ErrNotFound)
	})

	t.Run("DeleteAndList", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		for i := 1; i <= 3; i++ {
			require.NoError(t, s.CreateEncounter(ctx, NewEncounter(fmt.Sprintf("chan-%d", i))))
		}
		channels, err := s.ListChannels(ctx)
		require.NoError(t, err)
		assert.ElementsMatch(t, []string{"chan-1", "chan-2", "chan-3"}, channels)

		require.NoError(t, s.DeleteEncounter(ctx, "chan-2"))
		require.NoError(t, s.DeleteEncounter(ctx, "chan-2"))
		channels, err = s.ListChannels(ctx)
		require.NoError(t, err)
		assert.ElementsMatch(t, []string{"chan-1", "chan-3"}, channels)
		_, err = s.GetEncounter(ctx, "chan-2")
		assert.ErrorIs(t, err, storage.ErrNotFound)
	})

	t.Run("CharacterLinks", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		_, err := s.CharacterLink(ctx, "u1", "chan-1")
		assert.ErrorIs(t, err, storage.ErrNotFound)

		now := time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)
		require.NoError(t, s.SetCharacterLink(ctx, character.Link{UserID: "u1", ChannelID: "chan-1", SheetURL: "https://sheets/a", UpdatedAt: now}))
		require.NoError(t, s.SetCharacterLink(ctx, character.Link{UserID: "u1", ChannelID: "chan-1", SheetURL: "https://sheets/b", UpdatedAt: now}))
		require.NoError(t, s.SetCharacterLink(ctx, character.Link{UserID: "u1", ChannelID: "chan-2", SheetURL: "https://sheets/c", UpdatedAt: now}))

		link, err := s.CharacterLink(ctx, "u1", "chan-1")
		require.NoError(t, err)
		assert.Equal(t, "https://sheets/b", link.SheetURL)
		assert.True(t, now.Equal(link.UpdatedAt))

		link, err = s.CharacterLink(ctx, "u1", "chan-2")
		require.NoError(t, err)
		assert.Equal(t, "https://sheets/c", link.SheetURL)
	})
}
