package migrations

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/pressly/goose/v3"
)

const sqliteDialect = "sqlite3"

// Up runs all pending SQL migrations found in migrationsDir.
func Up(ctx context.Context, db *sql.DB, migrationsDir string) error {
	if err := goose.SetDialect(sqliteDialect); err != nil {
		return fmt.Errorf("set goose dialect: %w", err)
	}

	if err := goose.UpContext(ctx, db, migrationsDir); err != nil {
		return fmt.Errorf("run goose up migrations: %w", err)
	}

	return nil
}

// Version reports the schema version currently applied.
func Version(ctx context.Context, db *sql.DB) (int64, error) {
	if err := goose.SetDialect(sqliteDialect); err != nil {
		return 0, fmt.Errorf("set goose dialect: %w", err)
	}

	v, err := goose.GetDBVersionContext(ctx, db)
	if err != nil {
		return 0, fmt.Errorf("read goose version: %w", err)
	}
	return v, nil
}
