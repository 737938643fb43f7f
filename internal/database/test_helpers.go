package database

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// NewTestSQLite opens a migrated sqlite database under t.TempDir.
func NewTestSQLite(t *testing.T) *DB {
	t.Helper()

	db, err := NewDB(Config{
		Type:       TypeSQLite,
		SQLitePath: filepath.Join(t.TempDir(), "test.db"),
	})
	if err != nil {
		t.Fatalf("Failed to create database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if _, err := NewMigrator(db, nil).Run(context.Background()); err != nil {
		t.Fatalf("Failed to migrate database: %v", err)
	}
	return db
}

// NewTestPostgres starts a throwaway postgres container and returns a
// migrated connection. The test is skipped when no container runtime is
// available.
func NewTestPostgres(t *testing.T) *DB {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping postgres container in short mode")
	}
	testcontainers.SkipIfProviderIsNotHealthy(t)

	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("speechguard_test"),
		postgres.WithUsername("speechguard_test"),
		postgres.WithPassword("speechguard_test_password"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	if err != nil {
		t.Fatalf("Failed to start PostgreSQL container: %v", err)
	}
	t.Cleanup(func() {
		if err := pgContainer.Terminate(ctx); err != nil {
			t.Logf("Failed to terminate container: %v", err)
		}
	})

	host, err := pgContainer.Host(ctx)
	if err != nil {
		t.Fatalf("Failed to get container host: %v", err)
	}

	port, err := pgContainer.MappedPort(ctx, "5432")
	if err != nil {
		t.Fatalf("Failed to get container port: %v", err)
	}

	db, err := NewDB(Config{
		Type:     TypePostgres,
		Host:     host,
		Port:     port.Int(),
		User:     "speechguard_test",
		Password: "speechguard_test_password",
		Name:     "speechguard_test",
	})
	if err != nil {
		t.Fatalf("Failed to connect to test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if _, err := NewMigrator(db, nil).Run(ctx); err != nil {
		t.Fatalf("Failed to migrate database: %v", err)
	}
	return db
}
