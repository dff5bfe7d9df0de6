package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
)

// Migration is one schema step. Migrations apply in Version order, each in
// its own transaction together with its schema_migrations row.
type Migration struct {
	Version int
	Name    string
	SQL     string

	Applied   bool
	AppliedAt time.Time
}

var migrations = []Migration{
	{
		Version: 1,
		Name:    "create_snapshot_entries",
		SQL: `
CREATE TABLE IF NOT EXISTS snapshot_entries (
    key        TEXT PRIMARY KEY,
    value      BYTEA NOT NULL,
    updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
);`,
	},
	{
		// bumped on every write so concurrent writers show up
		Version: 2,
		Name:    "snapshot_revisions",
		SQL:     `ALTER TABLE snapshot_entries ADD COLUMN IF NOT EXISTS revision BIGINT NOT NULL DEFAULT 1;`,
	},
}

// Migrations returns a copy of the built-in schema steps.
func Migrations() []Migration {
	return append([]Migration(nil), migrations...)
}

// Migrator brings the schema up to date.
type Migrator struct {
	conn *Connection
}

func NewMigrator(conn *Connection) *Migrator {
	return &Migrator{conn: conn}
}

const createMigrationsTable = `
CREATE TABLE IF NOT EXISTS schema_migrations (
    version    INTEGER PRIMARY KEY,
    name       TEXT NOT NULL,
    applied_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
)`

// Migrate applies every step not yet recorded in schema_migrations.
func (m *Migrator) Migrate(ctx context.Context) error {
	applied, err := m.applied(ctx)
	if err != nil {
		return err
	}
	for _, mig := range migrations {
		if _, ok := applied[mig.Version]; ok {
			continue
		}
		err := m.conn.InTx(ctx, func(tx pgx.Tx) error {
			if _, err := tx.Exec(ctx, mig.SQL); err != nil {
				return err
			}
			_, err := tx.Exec(ctx, `INSERT INTO schema_migrations (version, name) VALUES ($1, $2)`, mig.Version, mig.Name)
			return err
		})
		if err != nil {
			return fmt.Errorf("postgres: migration %d (%s): %w", mig.Version, mig.Name, err)
		}
	}
	return nil
}

// Status lists every step with its applied time, if any.
func (m *Migrator) Status(ctx context.Context) ([]Migration, error) {
	applied, err := m.applied(ctx)
	if err != nil {
		return nil, err
	}
	out := Migrations()
	for i := range out {
		out[i].AppliedAt, out[i].Applied = applied[out[i].Version]
	}
	return out, nil
}

func (m *Migrator) applied(ctx context.Context) (map[int]time.Time, error) {
	if _, err := m.conn.Exec(ctx, createMigrationsTable); err != nil {
		return nil, fmt.Errorf("postgres: create schema_migrations: %w", err)
	}
	rows, err := m.conn.Query(ctx, `SELECT version, applied_at FROM schema_migrations`)
	if err != nil {
		return nil, fmt.Errorf("postgres: read schema_migrations: %w", err)
	}
	defer rows.Close()

	out := make(map[int]time.Time)
	for rows.Next() {
		var v int
		var at time.Time
		if err := rows.Scan(&v, &at); err != nil {
			return nil, err
		}
		out[v] = at
	}
	return out, rows.Err()
}
