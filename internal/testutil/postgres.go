// Package testutil starts throwaway databases for storage tests.
package testutil

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/cory-johannsen/combot/internal/config"
	"github.com/cory-johannsen/combot/internal/storage/postgres"
	"github.com/cory-johannsen/combot/migrations"
)

const postgresImage = "postgres:16-alpine"

// Postgres is a migrated PostgreSQL container shared by one test.
type Postgres struct {
	Config config.DatabaseConfig
	Store  *postgres.Store
}

// StartPostgres runs a container, applies the embedded migrations, and opens
// a Store against it. The container is terminated on test cleanup.
//
// Precondition: Docker must be reachable.
// Postcondition: Returns a ready Postgres or fails the test.
func StartPostgres(t *testing.T) *Postgres {
	t.Helper()
	ctx := context.Background()
	began := time.Now()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        postgresImage,
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_USER":     "combot",
				"POSTGRES_PASSWORD": "combot",
				"POSTGRES_DB":       "combot_test",
			},
			WaitingFor: wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(45 * time.Second),
		},
		Started: true,
	})
	if err != nil {
		t.Fatalf("starting %s: %v", postgresImage, err)
	}
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("container host: %v", err)
	}
	port, err := container.MappedPort(ctx, "5432")
	if err != nil {
		t.Fatalf("container port: %v", err)
	}

	cfg := config.DatabaseConfig{
		Driver:          "postgres",
		Host:            host,
		Port:            port.Int(),
		User:            "combot",
		Password:        "combot",
		Name:            "combot_test",
		SSLMode:         "disable",
		MaxConns:        4,
		MinConns:        1,
		MaxConnLifetime: time.Minute,
	}
	migrateUp(t, cfg)

	store, err := postgres.Open(ctx, cfg)
	if err != nil {
		t.Fatalf("opening store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	t.Logf("postgres ready in %s", time.Since(began))
	return &Postgres{Config: cfg, Store: store}
}

func migrateUp(t *testing.T, cfg config.DatabaseConfig) {
	t.Helper()
	src, err := migrations.Source("postgres")
	if err != nil {
		t.Fatalf("loading migrations: %v", err)
	}
	m, err := migrate.NewWithSourceInstance("iofs", src, cfg.MigrateURL())
	if err != nil {
		t.Fatalf("creating migrator: %v", err)
	}
	defer m.Close()
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		t.Fatalf("migrating: %v", err)
	}
}

// Reset empties every table.
func (p *Postgres) Reset(t *testing.T) {
	t.Helper()
	if err := p.Store.Truncate(context.Background()); err != nil {
		t.Fatalf("truncating: %v", err)
	}
}
