package blob

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/abduss/bitbeem/internal/ident"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newID(t *testing.T) string {
	t.Helper()
	id, err := ident.New()
	require.NoError(t, err)
	return id
}

func TestFilesystemRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := NewFilesystem(filepath.Join(t.TempDir(), "media_store"))
	require.NoError(t, store.Ensure(ctx))
	require.NoError(t, store.Ping(ctx))

	id := newID(t)
	require.NoError(t, store.Put(ctx, id, []byte("hello")))

	exists, err := store.Exists(ctx, id)
	require.NoError(t, err)
	assert.True(t, exists)

	data, err := store.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, []byte("hello"), data)

	_, err = os.Stat(filepath.Join(store.Dir(), id+tmpSuffix))
	assert.True(t, os.IsNotExist(err), "temp file must not survive a successful put")

	require.NoError(t, store.Delete(ctx, id))
	exists, err = store.Exists(ctx, id)
	require.NoError(t, err)
	assert.False(t, exists)

	_, err = store.Get(ctx, id)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFilesystemDeleteMissingIsNoop(t *testing.T) {
	store := NewFilesystem(t.TempDir())
	require.NoError(t, store.Delete(context.Background(), newID(t)))
}

func TestFilesystemRejectsPathTraversal(t *testing.T) {
	ctx := context.Background()
	store := NewFilesystem(t.TempDir())

	assert.ErrorIs(t, store.Put(ctx, "../escape", []byte("x")), ErrInvalidID)
	_, err := store.Get(ctx, "../../etc/passwd")
	assert.ErrorIs(t, err, ErrNotFound)
	exists, err := store.Exists(ctx, "../../etc/passwd")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestFilesystemListSkipsForeignFiles(t *testing.T) {
	ctx := context.Background()
	store := NewFilesystem(t.TempDir())
	require.NoError(t, store.Ensure(ctx))

	id := newID(t)
	require.NoError(t, store.Put(ctx, id, []byte("a")))
	require.NoError(t, os.WriteFile(filepath.Join(store.Dir(), newID(t)+tmpSuffix), []byte("partial"), 0o640))
	require.NoError(t, os.WriteFile(filepath.Join(store.Dir(), "README"), []byte("x"), 0o640))
	require.NoError(t, os.Mkdir(filepath.Join(store.Dir(), newID(t)), 0o750))

	ids, err := store.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{id}, ids)
}

func TestFilesystemListMissingDir(t *testing.T) {
	store := NewFilesystem(filepath.Join(t.TempDir(), "absent"))
	ids, err := store.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, ids)
	assert.Error(t, store.Ping(context.Background()))
}
