package db

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib" // driver: pgx
	_ "modernc.org/sqlite"             // driver: sqlite
)

type Driver string

const (
	DriverSQLite   Driver = "sqlite"
	DriverPostgres Driver = "postgres"
)

// Open opens a DB and ensures schema exists.
func Open(ctx context.Context, driver Driver, dsn string) (*sql.DB, error) {
	var drvName string
	switch driver {
	case DriverSQLite:
		drvName = "sqlite" // modernc driver
		if dsn == "" {
			dsn = "file:eduquest.db?cache=shared&mode=rwc&_pragma=busy_timeout(5000)"
		}
	case DriverPostgres:
		drvName = "pgx" // pgx stdlib driver
		if dsn == "" {
			dsn = "postgres://localhost:5432/eduquest?sslmode=disable"
		}
	default:
		return nil, fmt.Errorf("unsupported driver: %s", driver)
	}

	db, err := sql.Open(drvName, dsn)
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, err
	}
	if driver == DriverSQLite {
		// one writer at a time; the snapshot row is the only hot spot anyway
		db.SetMaxOpenConns(1)
	}

	if err := ensureSchema(ctx, db, driver); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

func ensureSchema(ctx context.Context, db *sql.DB, driver Driver) error {
	var stmts []string
	switch driver {
	case DriverSQLite:
		stmts = schemaSQLite
	case DriverPostgres:
		stmts = schemaPostgres
	}
	for _, s := range stmts {
		if _, err := db.ExecContext(ctx, s); err != nil {
			return err
		}
	}
	return nil
}

var schemaSQLite = []string{
	`CREATE TABLE IF NOT EXISTS portal_state (
  key TEXT PRIMARY KEY,
  data TEXT NOT NULL,
  version INTEGER NOT NULL,
  updated_at INTEGER NOT NULL
);`,
	`CREATE TABLE IF NOT EXISTS event_log (
  seq INTEGER PRIMARY KEY AUTOINCREMENT,
  typ TEXT NOT NULL,                         -- e.g., AttemptSubmitted
  key TEXT NOT NULL,                         -- natural key: roll/code
  data TEXT NOT NULL,                        -- JSON payload
  created_at INTEGER NOT NULL
);`,
	`CREATE INDEX IF NOT EXISTS idx_event_log_key ON event_log(key);`,
}

var schemaPostgres = []string{
	`CREATE TABLE IF NOT EXISTS portal_state (
  key TEXT PRIMARY KEY,
  data TEXT NOT NULL,
  version BIGINT NOT NULL,
  updated_at BIGINT NOT NULL
);`,
	`CREATE TABLE IF NOT EXISTS event_log (
  seq BIGSERIAL PRIMARY KEY,
  typ TEXT NOT NULL,
  key TEXT NOT NULL,
  data TEXT NOT NULL,
  created_at BIGINT NOT NULL
);`,
	`CREATE INDEX IF NOT EXISTS idx_event_log_key ON event_log(key);`,
}
