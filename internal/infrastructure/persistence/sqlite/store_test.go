package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lhtc/classpoint/internal/domain/classroom"
	"github.com/lhtc/classpoint/internal/infrastructure/persistence/snapshot"
)

func openTestStore(t *testing.T) (*Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "nested", "classpoint.db")
	s, err := Open(path)
	require.NoError(t, err)
	return s, path
}

func TestOpen_Idempotent(t *testing.T) {
	s, path := openTestStore(t)
	require.NoError(t, s.Close())

	s, err := Open(path)
	require.NoError(t, err)
	defer s.Close()

	v, err := s.SchemaVersion(context.Background())
	require.NoError(t, err)
	assert.Equal(t, currentSchemaVersion, v)
}

func TestStore_PutGet(t *testing.T) {
	s, _ := openTestStore(t)
	defer s.Close()
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, map[string][]byte{
		snapshot.KeyClasses:     []byte(`[{"id":"c1","name":"1A"}]`),
		snapshot.KeyActiveClass: []byte("c1"),
	}))
	require.NoError(t, s.Put(ctx, map[string][]byte{
		snapshot.KeyActiveClass: []byte("c2"),
	}))

	got, err := s.Get(ctx, snapshot.Keys...)
	require.NoError(t, err)
	assert.Len(t, got, 2)
	assert.Equal(t, []byte("c2"), got[snapshot.KeyActiveClass])
	assert.JSONEq(t, `[{"id":"c1","name":"1A"}]`, string(got[snapshot.KeyClasses]))
}

func TestStore_SnapshotRoundTrip(t *testing.T) {
	s, path := openTestStore(t)
	ctx := context.Background()

	state := classroom.DefaultState()
	state.Students = nil
	require.NoError(t, snapshot.NewStore(s).Save(ctx, state))
	require.NoError(t, s.Close())

	s, err := Open(path)
	require.NoError(t, err)
	defer s.Close()

	loaded, err := snapshot.NewStore(s).Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, classroom.DefaultClassID, loaded.ActiveClassID)
	assert.Len(t, loaded.Rewards, len(state.Rewards))
	assert.Empty(t, loaded.Students)
}
