package storage

import (
	"context"
	"database/sql"
	"embed"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

//go:embed migrations/*.sql
var migrations embed.FS

// MigrateUp applies all pending database migrations.
func MigrateUp(ctx context.Context, dsn string) error {
	return withMigrations(ctx, dsn, "failed to run migrations", func(db *sql.DB) error {
		return goose.UpContext(ctx, db, "migrations")
	})
}

// MigrateDown rolls back the last applied migration.
func MigrateDown(ctx context.Context, dsn string) error {
	return withMigrations(ctx, dsn, "failed to rollback migration", func(db *sql.DB) error {
		return goose.DownContext(ctx, db, "migrations")
	})
}

// MigrateStatus prints the status of all migrations.
func MigrateStatus(ctx context.Context, dsn string) error {
	return withMigrations(ctx, dsn, "failed to get migration status", func(db *sql.DB) error {
		return goose.StatusContext(ctx, db, "migrations")
	})
}

// withMigrations opens a temporary database/sql connection, which goose
// requires, and runs fn against the embedded migrations.
func withMigrations(ctx context.Context, dsn, action string, fn func(*sql.DB) error) error {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return fmt.Errorf("failed to open database for migrations: %w", err)
	}
	defer db.Close()

	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("failed to reach database for migrations: %w", err)
	}

	goose.SetBaseFS(migrations)
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("failed to set goose dialect: %w", err)
	}

	if err := fn(db); err != nil {
		return fmt.Errorf("%s: %w", action, err)
	}
	return nil
}
