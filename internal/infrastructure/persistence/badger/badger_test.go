package badger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lhtc/classpoint/internal/domain/classroom"
	"github.com/lhtc/classpoint/internal/domain/shared"
	"github.com/lhtc/classpoint/internal/infrastructure/persistence/snapshot"
)

func TestKV_InMemory(t *testing.T) {
	kv, err := OpenKV(InMemoryConfig())
	require.NoError(t, err)
	defer kv.Close()

	ctx := context.Background()
	require.NoError(t, kv.Put(ctx, map[string][]byte{
		"a": []byte("1"),
		"b": []byte("2"),
	}))

	got, err := kv.Get(ctx, "a", "b", "missing")
	require.NoError(t, err)
	assert.Equal(t, map[string][]byte{"a": []byte("1"), "b": []byte("2")}, got)
}

func TestKV_PersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	cfg := DefaultConfig(dir)
	cfg.GCInterval = 0

	kv, err := OpenKV(cfg)
	require.NoError(t, err)

	store := snapshot.NewStore(kv)
	ctx := context.Background()

	state := classroom.DefaultState()
	reg := classroom.NewRegistry(&shared.FixedStamper{Prefix: "id-"})
	state, added, err := reg.AddStudent(state, classroom.DefaultClassID, "An", nil)
	require.NoError(t, err)
	require.NoError(t, store.Save(ctx, state))
	require.NoError(t, store.Close())

	kv, err = OpenKV(cfg)
	require.NoError(t, err)
	store = snapshot.NewStore(kv)
	defer store.Close()

	loaded, err := store.Load(ctx)
	require.NoError(t, err)
	require.Len(t, loaded.Students, 1)
	assert.Equal(t, added.ID, loaded.Students[0].ID)
	assert.Equal(t, "An", loaded.Students[0].Name)
}

func TestOpen_RequiresPath(t *testing.T) {
	_, err := Open(Config{})
	assert.Error(t, err)
}

func TestNewGCRunner_Validation(t *testing.T) {
	db, err := Open(InMemoryConfig())
	require.NoError(t, err)
	defer db.Close()

	_, err = NewGCRunner(nil, 1, 0.5, nil)
	assert.Error(t, err)
	_, err = NewGCRunner(db, 0, 0.5, nil)
	assert.Error(t, err)

	r, err := NewGCRunner(db, 1_000_000_000, 0, nil)
	require.NoError(t, err)
	assert.Equal(t, 0.5, r.ratio)
	r.Start()
	r.Stop()
}
