package postgres

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lhtc/classpoint/internal/infrastructure/persistence/snapshot"
)

func openTestConnection(t *testing.T) *Connection {
	t.Helper()

	url := os.Getenv("CLASSPOINT_TEST_DATABASE_URL")
	if url == "" {
		t.Skip("CLASSPOINT_TEST_DATABASE_URL not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	conn, err := Open(ctx, url, DefaultPoolOptions())
	require.NoError(t, err)
	require.NoError(t, NewMigrator(conn).Migrate(ctx))

	_, err = conn.Exec(ctx, `DELETE FROM snapshot_entries`)
	require.NoError(t, err)

	t.Cleanup(conn.Close)
	return conn
}

func TestSnapshotKV_PutGet(t *testing.T) {
	conn := openTestConnection(t)
	kv := NewSnapshotKV(conn)
	ctx := context.Background()

	require.NoError(t, kv.Put(ctx, map[string][]byte{
		snapshot.KeyStudents:    []byte(`[]`),
		snapshot.KeyActiveClass: []byte("c1"),
	}))
	require.NoError(t, kv.Put(ctx, map[string][]byte{
		snapshot.KeyActiveClass: []byte("c2"),
	}))

	got, err := kv.Get(ctx, snapshot.Keys...)
	require.NoError(t, err)
	assert.Equal(t, []byte(`[]`), got[snapshot.KeyStudents])
	assert.Equal(t, []byte("c2"), got[snapshot.KeyActiveClass])
	assert.NotContains(t, got, snapshot.KeyRewards)

	revs, err := kv.Revisions(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), revs[snapshot.KeyActiveClass])
	assert.Equal(t, int64(1), revs[snapshot.KeyStudents])
}

func TestMigrator_Status(t *testing.T) {
	conn := openTestConnection(t)

	status, err := NewMigrator(conn).Status(context.Background())
	require.NoError(t, err)
	require.Len(t, status, len(Migrations()))
	for _, m := range status {
		assert.True(t, m.Applied, m.Name)
	}
}

func TestIsConnectionError(t *testing.T) {
	assert.False(t, IsConnectionError(nil))
	assert.False(t, IsConnectionError(ErrConnectionClosed))
	assert.True(t, IsConnectionError(&pgconn.PgError{Code: "08006"}))
	assert.False(t, IsConnectionError(&pgconn.PgError{Code: "23505"}))
	assert.False(t, IsConnectionError(errors.New("syntax")))
}
