package postgres

import (
	"context"
	"database/sql"
	"embed"
	"log/slog"

	"github.com/phrazzld/taskd/internal/platform/migrate"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Migrations is the embedded PostgreSQL schema.
var Migrations = migrate.Source{
	Dialect: migrate.DialectPostgres,
	FS:      migrationsFS,
	Dir:     "migrations",
}

// Migrate runs a goose command against a PostgreSQL database.
func Migrate(ctx context.Context, db *sql.DB, command string, logger *slog.Logger) error {
	return migrate.Run(ctx, db, Migrations, command, logger)
}
