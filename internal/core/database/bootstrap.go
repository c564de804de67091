package db

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"time"
)

//go:embed scripts/initdb.sql
var bootstrapFS embed.FS

// schemaVersion is the version row written to contexta_meta after initdb.sql runs.
const schemaVersion = 1

type schemaStore interface {
	// AppliedVersion returns 0 when contexta_meta does not exist yet.
	AppliedVersion(ctx context.Context) (int, error)
	Apply(ctx context.Context, script string, version int) error
}

// EnsureBootstrapped brings the database up to schemaVersion, running
// scripts/initdb.sql when the recorded version is older.
func EnsureBootstrapped(ctx context.Context, db *sql.DB) (applied bool, err error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Minute)
	defer cancel()
	return ensureSchema(ctx, sqlSchema{db: db}, schemaVersion)
}

func ensureSchema(ctx context.Context, store schemaStore, want int) (bool, error) {
	have, err := store.AppliedVersion(ctx)
	if err != nil {
		return false, fmt.Errorf("read schema version: %w", err)
	}
	if have >= want {
		return false, nil
	}
	script, err := bootstrapFS.ReadFile("scripts/initdb.sql")
	if err != nil {
		return false, fmt.Errorf("read initdb.sql: %w", err)
	}
	if err := store.Apply(ctx, string(script), want); err != nil {
		return false, err
	}
	return true, nil
}

type sqlSchema struct {
	db *sql.DB
}

func (s sqlSchema) AppliedVersion(ctx context.Context) (int, error) {
	var present bool
	if err := s.db.QueryRowContext(ctx, `SELECT to_regclass('contexta_meta') IS NOT NULL`).Scan(&present); err != nil {
		return 0, err
	}
	if !present {
		return 0, nil
	}
	var v int
	err := s.db.QueryRowContext(ctx, `SELECT COALESCE(MAX(version), 0) FROM contexta_meta`).Scan(&v)
	return v, err
}

func (s sqlSchema) Apply(ctx context.Context, script string, version int) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, script); err != nil {
		return fmt.Errorf("exec initdb.sql: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO contexta_meta (version) VALUES ($1) ON CONFLICT (version) DO NOTHING`, version); err != nil {
		return fmt.Errorf("record schema version %d: %w", version, err)
	}
	return tx.Commit()
}
