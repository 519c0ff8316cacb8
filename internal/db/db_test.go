package db

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
)

func TestDSNCarriesPragmas(t *testing.T) {
	dsn := DSN("/tmp/quotes.db")

	if !strings.HasPrefix(dsn, "file:/tmp/quotes.db?") {
		t.Fatalf("unexpected dsn prefix: %s", dsn)
	}
	for _, want := range []string{"_pragma=foreign_keys%281%29", "_pragma=busy_timeout%285000%29", "_txlock=immediate"} {
		if !strings.Contains(dsn, want) {
			t.Fatalf("dsn %q missing %q", dsn, want)
		}
	}
}

func TestOpenEnablesForeignKeysOnEveryConnection(t *testing.T) {
	ctx := context.Background()
	database, err := Open(ctx, filepath.Join(t.TempDir(), "db-test.db"))
	if err != nil {
		t.Fatalf("open sqlite database: %v", err)
	}
	defer database.Close()
	database.SetMaxOpenConns(3)

	for i := 0; i < 3; i++ {
		conn, err := database.Conn(ctx)
		if err != nil {
			t.Fatalf("get conn: %v", err)
		}
		defer conn.Close()

		var fk int
		if err := conn.QueryRowContext(ctx, `PRAGMA foreign_keys`).Scan(&fk); err != nil {
			t.Fatalf("read pragma: %v", err)
		}
		if fk != 1 {
			t.Fatalf("foreign_keys = %d on connection %d", fk, i)
		}
	}
}
