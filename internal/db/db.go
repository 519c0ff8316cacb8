package db

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// pragmas are applied by the driver to every pooled connection.
var pragmas = []string{
	"journal_mode(WAL)",
	"foreign_keys(1)",
	"busy_timeout(5000)",
}

// DSN builds a modernc sqlite data source name for dbPath. Write
// transactions take the lock up front so two concurrent quote writes queue on
// busy_timeout instead of failing on lock upgrade.
func DSN(dbPath string) string {
	q := url.Values{}
	for _, p := range pragmas {
		q.Add("_pragma", p)
	}
	q.Set("_txlock", "immediate")

	sep := "?"
	if strings.Contains(dbPath, "?") {
		sep = "&"
	}
	return "file:" + dbPath + sep + q.Encode()
}

// Open opens a SQLite database with the pragmas above and validates connectivity.
func Open(ctx context.Context, dbPath string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", DSN(dbPath))
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	db.SetConnMaxIdleTime(5 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite database: %w", err)
	}

	return db, nil
}
