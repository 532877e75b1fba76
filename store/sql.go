package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
)

type Dialect int

const (
	Postgres Dialect = iota
	SQLite
)

// SQL keeps every key as one row of the vault_kv table.
type SQL struct {
	DB      *sql.DB
	dialect Dialect
}

// NewSQL wraps an open pool and makes sure the vault_kv table exists.
func NewSQL(ctx context.Context, db *sql.DB, dialect Dialect) (*SQL, error) {
	if db == nil {
		return nil, fmt.Errorf("store: sql db is required")
	}
	s := &SQL{DB: db, dialect: dialect}
	if _, err := db.ExecContext(ctx, s.createTableSQL()); err != nil {
		return nil, fmt.Errorf("store: ensure vault_kv table: %w", err)
	}
	return s, nil
}

func (s *SQL) createTableSQL() string {
	if s.dialect == Postgres {
		return `CREATE TABLE IF NOT EXISTS vault_kv (key TEXT PRIMARY KEY, value TEXT NOT NULL, updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW())`
	}
	return `CREATE TABLE IF NOT EXISTS vault_kv (key TEXT PRIMARY KEY, value TEXT NOT NULL, updated_at INTEGER NOT NULL DEFAULT (unixepoch()))`
}

func (s *SQL) Load(ctx context.Context, key string) (string, bool, error) {
	if strings.TrimSpace(key) == "" {
		return "", false, ErrEmptyKey
	}
	var value string
	err := s.DB.QueryRowContext(ctx, s.rebind(`SELECT value FROM vault_kv WHERE key = ?`), key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("store: load %s: %w", key, err)
	}
	return value, true, nil
}

func (s *SQL) Save(ctx context.Context, key, text string) error {
	if strings.TrimSpace(key) == "" {
		return ErrEmptyKey
	}
	var query string
	if s.dialect == Postgres {
		query = `INSERT INTO vault_kv (key, value, updated_at) VALUES ($1, $2, NOW())
		ON CONFLICT (key) DO UPDATE SET value = $2, updated_at = NOW()`
	} else {
		query = `INSERT INTO vault_kv (key, value, updated_at) VALUES (?, ?, unixepoch())
		ON CONFLICT (key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`
	}
	if _, err := s.DB.ExecContext(ctx, query, key, text); err != nil {
		return fmt.Errorf("store: save %s: %w", key, err)
	}
	return nil
}

func (s *SQL) Close() error {
	return s.DB.Close()
}

// rebind turns ? placeholders into $n for postgres.
func (s *SQL) rebind(query string) string {
	if s.dialect != Postgres {
		return query
	}
	var sb strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			fmt.Fprintf(&sb, "$%d", n)
			continue
		}
		sb.WriteRune(r)
	}
	return sb.String()
}
