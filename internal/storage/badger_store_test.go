package storage

import (
	stderrors "errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"modman/internal/errors"
)

type doc struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

func TestBadgerStore(t *testing.T) {
	db, err := Open("")
	require.NoError(t, err)
	defer db.Close()

	store := NewBadgerStore[doc](db, "doc")
	other := NewBadgerStore[doc](db, "other")

	t.Run("Create", func(t *testing.T) {
		require.NoError(t, store.Create("a", doc{Name: "a"}))

		err := store.Create("a", doc{Name: "a"})
		assert.True(t, stderrors.Is(err, errors.ErrConflict))

		err = store.Create("", doc{})
		assert.True(t, stderrors.Is(err, errors.ErrValidation))
	})

	t.Run("Get", func(t *testing.T) {
		got, err := store.Get("a")
		require.NoError(t, err)
		assert.Equal(t, doc{Name: "a"}, got)

		_, err = store.Get("missing")
		assert.True(t, stderrors.Is(err, errors.ErrNotFound))
	})

	t.Run("Update", func(t *testing.T) {
		require.NoError(t, store.Update("a", doc{Name: "a", Count: 2}))
		got, err := store.Get("a")
		require.NoError(t, err)
		assert.Equal(t, 2, got.Count)

		assert.Error(t, store.Update("missing", doc{}))
	})

	t.Run("Put and List", func(t *testing.T) {
		require.NoError(t, store.Put("b", doc{Name: "b"}))
		require.NoError(t, store.Put("b", doc{Name: "b", Count: 1}))
		require.NoError(t, other.Put("c", doc{Name: "c"}))

		all, err := store.List()
		require.NoError(t, err)
		assert.Equal(t, map[string]doc{
			"a": {Name: "a", Count: 2},
			"b": {Name: "b", Count: 1},
		}, all)
	})

	t.Run("Delete", func(t *testing.T) {
		require.NoError(t, store.Delete("a"))
		_, err := store.Get("a")
		assert.Error(t, err)
		assert.Error(t, store.Delete("a"))
	})
}
