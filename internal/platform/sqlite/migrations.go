package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"log/slog"

	"github.com/phrazzld/taskd/internal/platform/migrate"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Migrations is the embedded SQLite schema.
var Migrations = migrate.Source{
	Dialect: migrate.DialectSQLite,
	FS:      migrationsFS,
	Dir:     "migrations",
}

// Migrate runs a goose command against a SQLite database.
func Migrate(ctx context.Context, db *sql.DB, command string, logger *slog.Logger) error {
	return migrate.Run(ctx, db, Migrations, command, logger)
}
