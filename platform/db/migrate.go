package db

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

// RunMigrations applies goose migrations from migrations (an embedded FS rooted
// at the SQL files) using a database/sql handle borrowed from pool.
func RunMigrations(ctx context.Context, pool *pgxpool.Pool, migrations fs.FS) error {
	sqlDB := stdlib.OpenDBFromPool(pool)
	defer func() { _ = sqlDB.Close() }()

	return RunGoose(ctx, sqlDB, migrations, "up")
}

// RunGoose executes a goose command (up, down, status, redo, version, ...).
func RunGoose(ctx context.Context, sqlDB *sql.DB, migrations fs.FS, command string, args ...string) error {
	if sqlDB == nil {
		return fmt.Errorf("db is required")
	}

	goose.SetBaseFS(migrations)
	defer goose.SetBaseFS(nil)

	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("set goose dialect: %w", err)
	}

	if err := goose.RunContext(ctx, command, sqlDB, ".", args...); err != nil {
		return fmt.Errorf("goose %s: %w", command, err)
	}
	return nil
}
