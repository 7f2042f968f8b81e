// Package migrations embeds the schema migrations for each supported database.
package migrations

import (
	"embed"
	"fmt"

	"github.com/golang-migrate/migrate/v4/source"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed postgres/*.sql sqlite/*.sql
var FS embed.FS

// Dialects lists the directories under FS that hold migrations.
var Dialects = []string{"postgres", "sqlite"}

// Source returns a golang-migrate source for dialect ("postgres" or "sqlite").
func Source(dialect string) (source.Driver, error) {
	src, err := iofs.New(FS, dialect)
	if err != nil {
		return nil, fmt.Errorf("loading %s migrations: %w", dialect, err)
	}
	return src, nil
}
