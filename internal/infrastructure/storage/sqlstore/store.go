package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

// Dialect selects the SQL flavour spoken by the store
type Dialect string

const (
	DialectPostgres Dialect = "postgres"
	DialectSQLite   Dialect = "sqlite"
)

// Store persists price observations and shopping-list items in a SQL database
type Store struct {
	db      *sql.DB
	dialect Dialect
}

// Open connects to the database for the given driver ("postgres" or "sqlite"),
// checks the connection and creates missing tables.
func Open(ctx context.Context, driver, dsn string) (*Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("storage dsn is required for driver %q", driver)
	}

	var (
		db  *sql.DB
		err error
	)

	switch Dialect(driver) {
	case DialectPostgres:
		db, err = sql.Open("postgres", dsn)
		if err != nil {
			return nil, fmt.Errorf("failed to open database: %w", err)
		}
		db.SetMaxOpenConns(25)
		db.SetMaxIdleConns(5)

	case DialectSQLite:
		if path := sqlitePath(dsn); path != "" {
			if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
				return nil, fmt.Errorf("failed to create database directory: %w", err)
			}
		}
		db, err = sql.Open("sqlite", dsn)
		if err != nil {
			return nil, fmt.Errorf("failed to open database: %w", err)
		}
		// SQLite allows one writer; a single connection serializes upserts.
		db.SetMaxOpenConns(1)

	default:
		return nil, fmt.Errorf("unsupported storage driver %q", driver)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	store := New(db, Dialect(driver))
	if err := store.Migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}

	return store, nil
}

// New wraps an already opened database
func New(db *sql.DB, dialect Dialect) *Store {
	return &Store{db: db, dialect: dialect}
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// Migrate creates the tables and indexes if they do not exist
func (s *Store) Migrate(ctx context.Context) error {
	numeric, timestamp := "TEXT", "TIMESTAMP"
	if s.dialect == DialectPostgres {
		numeric, timestamp = "NUMERIC(14,4)", "TIMESTAMPTZ"
	}

	migrations := []string{
		`CREATE TABLE IF NOT EXISTS price_observations (
			id TEXT PRIMARY KEY,
			item_name TEXT NOT NULL,
			item_key TEXT NOT NULL,
			category TEXT NOT NULL,
			store TEXT NOT NULL,
			price ` + numeric + ` NOT NULL,
			unit TEXT NOT NULL,
			observed_at ` + timestamp + ` NOT NULL,
			last_reported_at ` + timestamp + ` NOT NULL,
			verified BOOLEAN NOT NULL DEFAULT FALSE,
			report_count INTEGER NOT NULL DEFAULT 1,
			reporter_id TEXT NOT NULL DEFAULT ''
		)`,

		`CREATE INDEX IF NOT EXISTS idx_price_observations_key
			ON price_observations (item_key, store, observed_at)`,

		`CREATE INDEX IF NOT EXISTS idx_price_observations_observed_at
			ON price_observations (observed_at)`,

		`CREATE TABLE IF NOT EXISTS shopping_list_items (
			list_id TEXT NOT NULL,
			id TEXT NOT NULL,
			position INTEGER NOT NULL,
			name TEXT NOT NULL,
			estimated_price ` + numeric + ` NOT NULL DEFAULT 0,
			quantity INTEGER NOT NULL DEFAULT 1,
			PRIMARY KEY (list_id, id)
		)`,
	}

	for _, migration := range migrations {
		if _, err := s.db.ExecContext(ctx, migration); err != nil {
			return fmt.Errorf("failed to run migration: %w", err)
		}
	}

	return nil
}

// rebind rewrites ? placeholders to $n for Postgres
func (s *Store) rebind(query string) string {
	if s.dialect != DialectPostgres {
		return query
	}

	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// sqlitePath extracts the file path from a sqlite DSN, or "" for in-memory databases
func sqlitePath(dsn string) string {
	path := strings.TrimPrefix(dsn, "file:")
	if idx := strings.Index(path, "?"); idx >= 0 {
		path = path[:idx]
	}
	if path == "" || path == ":memory:" || strings.HasPrefix(path, ":memory:") {
		return ""
	}
	return path
}
