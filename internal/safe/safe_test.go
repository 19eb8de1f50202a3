package safe

import (
	"bytes"
	"os"
	"testing"

	"github.com/dgraph-io/badger/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupSafe(t *testing.T) *Safe {
	t.Helper()

	opts := badger.DefaultOptions("").WithInMemory(true)
	opts.Logger = nil
	db, err := badger.Open(opts)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	s, err := New(db, Options{Root: t.TempDir(), CacheSize: 2})
	require.NoError(t, err)
	return s
}

func TestSafe_StoreGet(t *testing.T) {
	s := setupSafe(t)

	t.Run("compressible payload", func(t *testing.T) {
		payload := bytes.Repeat([]byte(`{"name":"mod","enabled":true},`), 200)

		hash, err := s.Store("game-1142710.json", payload)
		require.NoError(t, err)

		meta, err := s.Meta(hash)
		require.NoError(t, err)
		assert.True(t, meta.Compressed)
		assert.Less(t, meta.StoredSize, meta.Size)

		onDisk, err := os.ReadFile(s.contentPath(hash))
		require.NoError(t, err)
		assert.True(t, bytes.HasPrefix(onDisk, zstdMagic))

		// evict from memory so Get reads and decodes the file
		s.cache.Purge()
		got, err := s.Get(hash)
		require.NoError(t, err)
		assert.Equal(t, payload, got)
	})

	t.Run("images are stored as is", func(t *testing.T) {
		img := bytes.Repeat([]byte{0x89, 'P', 'N', 'G'}, 1024)
		hash, err := s.Store("wh3.png", img)
		require.NoError(t, err)

		meta, err := s.Meta(hash)
		require.NoError(t, err)
		assert.False(t, meta.Compressed)
	})

	t.Run("invalid hash", func(t *testing.T) {
		_, err := s.Get("nope")
		assert.ErrorIs(t, err, ErrInvalidHash)
		_, err = s.Exists("nope")
		assert.ErrorIs(t, err, ErrInvalidHash)
	})
}

func TestSafe_RefCounting(t *testing.T) {
	s := setupSafe(t)

	h1, err := s.Store("a", []byte("same"))
	require.NoError(t, err)
	h2, err := s.Store("b", []byte("same"))
	require.NoError(t, err)
	assert.Equal(t, h1, h2)

	meta, err := s.Meta(h1)
	require.NoError(t, err)
	assert.EqualValues(t, 2, meta.RefCount)

	require.NoError(t, s.Delete(h1))
	ok, err := s.Exists(h1)
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, s.Delete(h1))
	ok, err = s.Exists(h1)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = s.Get(h1)
	assert.ErrorIs(t, err, ErrContentNotFound)
}

func TestSafe_Names(t *testing.T) {
	s := setupSafe(t)

	_, err := s.Lookup("cover/1142710")
	assert.ErrorIs(t, err, ErrContentNotFound)

	first, err := s.Put("cover/1142710", []byte("v1"))
	require.NoError(t, err)
	got, err := s.Lookup("cover/1142710")
	require.NoError(t, err)
	assert.Equal(t, []byte("v1"), got)

	_, err = s.Put("cover/1142710", []byte("v2"))
	require.NoError(t, err)
	got, err = s.Lookup("cover/1142710")
	require.NoError(t, err)
	assert.Equal(t, []byte("v2"), got)

	ok, err := s.Exists(first)
	require.NoError(t, err)
	assert.False(t, ok, "replaced content is released")

	require.NoError(t, s.Forget("cover/1142710"))
	_, err = s.Lookup("cover/1142710")
	assert.ErrorIs(t, err, ErrContentNotFound)
}
