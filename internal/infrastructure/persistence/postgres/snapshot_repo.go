package postgres

import (
	"context"
	"fmt"
	"sort"

	"github.com/jackc/pgx/v5"

	"github.com/lhtc/classpoint/internal/infrastructure/persistence/snapshot"
	"github.com/lhtc/classpoint/pkg/retry"
)

// ══════════════════════════════════════════════════════════════════════════════
// SNAPSHOT KV IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// SnapshotKV implements snapshot.KV on the snapshot_entries table.
type SnapshotKV struct {
	conn *Connection
}

// NewSnapshotKV creates a new SnapshotKV. Run the Migrator first.
func NewSnapshotKV(conn *Connection) *SnapshotKV {
	return &SnapshotKV{conn: conn}
}

var _ snapshot.KV = (*SnapshotKV)(nil)

// Get returns the stored values of keys.
func (r *SnapshotKV) Get(ctx context.Context, keys ...string) (map[string][]byte, error) {
	query := `SELECT key, value FROM snapshot_entries WHERE key = ANY($1)`

	rows, err := r.conn.Query(ctx, query, keys)
	if err != nil {
		return nil, classify(fmt.Errorf("failed to query snapshot entries: %w", err))
	}
	defer rows.Close()

	out := make(map[string][]byte, len(keys))
	for rows.Next() {
		var key string
		var value []byte
		if err := rows.Scan(&key, &value); err != nil {
			return nil, fmt.Errorf("failed to scan snapshot entry: %w", err)
		}
		out[key] = value
	}

	if err := rows.Err(); err != nil {
		return nil, classify(err)
	}
	return out, nil
}

// Put upserts all entries in one transaction.
func (r *SnapshotKV) Put(ctx context.Context, entries map[string][]byte) error {
	query := `
		INSERT INTO snapshot_entries (key, value, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (key) DO UPDATE SET
			value = EXCLUDED.value,
			updated_at = NOW(),
			revision = snapshot_entries.revision + 1
	`

	// Stable key order keeps row locks acquired in the same sequence.
	keys := make([]string, 0, len(entries))
	for k := range entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	err := r.conn.InTx(ctx, func(tx pgx.Tx) error {
		batch := &pgx.Batch{}
		for _, k := range keys {
			batch.Queue(query, k, entries[k])
		}
		return tx.SendBatch(ctx, batch).Close()
	})
	if err != nil {
		return classify(fmt.Errorf("failed to save snapshot entries: %w", err))
	}
	return nil
}

// Revisions returns the write counter of every stored key.
func (r *SnapshotKV) Revisions(ctx context.Context) (map[string]int64, error) {
	rows, err := r.conn.Query(ctx, `SELECT key, revision FROM snapshot_entries`)
	if err != nil {
		return nil, classify(fmt.Errorf("failed to query revisions: %w", err))
	}
	defer rows.Close()

	out := make(map[string]int64)
	for rows.Next() {
		var key string
		var rev int64
		if err := rows.Scan(&key, &rev); err != nil {
			return nil, fmt.Errorf("failed to scan revision: %w", err)
		}
		out[key] = rev
	}
	return out, rows.Err()
}

// Close closes the connection pool.
func (r *SnapshotKV) Close() error {
	r.conn.Close()
	return nil
}

func classify(err error) error {
	if IsConnectionError(err) {
		return retry.Retryable(err)
	}
	return err
}
