package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"modman/internal/dto"
	"modman/internal/storage"
)

type mockFetcher struct {
	games map[string]*dto.GameResponse
	calls []string
}

func (m *mockFetcher) GetGame(ctx context.Context, gameID string) (*dto.GameResponse, error) {
	m.calls = append(m.calls, gameID)
	if g, ok := m.games[gameID]; ok {
		return g, nil
	}
	return nil, errors.New("game not found")
}

func testGame() *dto.GameResponse {
	return &dto.GameResponse{
		GameID:         "1142710",
		DefaultProfile: dto.Ptr("main"),
		Mods:           []dto.PackResponse{{Name: "a.pack"}, {Name: "b.pack"}},
		Profiles: []dto.ProfileResponse{
			{Name: "main", Mods: []dto.ModResponse{{Name: "a.pack", Enabled: true}}},
			{Name: "test"},
		},
	}
}

func TestSettingsStore(t *testing.T) {
	s := NewSettingsStore()
	var seen dto.UserSettings
	s.State().Watch(func(v dto.UserSettings) { seen = v })

	in := dto.UserSettings{dto.SettingGamePath: "/games"}
	s.SetSettings(in)
	in[dto.SettingGamePath] = "changed"

	assert.Equal(t, "/games", seen.String(dto.SettingGamePath))
	assert.Equal(t, "/games", s.Settings().String(dto.SettingGamePath))

	s.SetSettings(nil)
	assert.NotNil(t, s.Settings())
}

func TestPreferencesStore_Persistence(t *testing.T) {
	db, err := storage.Open("")
	require.NoError(t, err)
	defer db.Close()
	backing := storage.NewBadgerStore[Preferences](db, "preferences")

	prefs, err := OpenPreferencesStore(backing, nil)
	require.NoError(t, err)
	assert.Nil(t, prefs.Get().CurrentGame)

	prefs.SetCurrentGame(dto.Ptr("1142710"))
	prefs.SetCurrentProfile(dto.Ptr("main"))
	prefs.Close()
	prefs.SetCurrentProfile(dto.Ptr("not persisted"))

	reopened, err := OpenPreferencesStore(backing, nil)
	require.NoError(t, err)
	assert.Equal(t, "1142710", *reopened.Get().CurrentGame)
	assert.Equal(t, "main", *reopened.Get().CurrentProfile)
}

func TestGameStore(t *testing.T) {
	s := NewGameStore()
	assert.Equal(t, "game-null", s.DataKey())
	assert.Nil(t, s.Profiles())
	_, ok := s.Profile()
	assert.False(t, ok)

	s.SetGameID(dto.Ptr("1142710"))
	assert.Equal(t, "game-1142710", s.DataKey())

	t.Run("SetGame falls back to default profile", func(t *testing.T) {
		s.SetGame(testGame())
		p, ok := s.Profile()
		require.True(t, ok)
		assert.Equal(t, "main", p.Name)
		assert.Len(t, s.ProfileMods(), 1)
		assert.Len(t, s.GameMods(), 2)
	})

	t.Run("SetGame keeps selected profile", func(t *testing.T) {
		s.SetProfile(dto.Ptr("test"))
		s.SetGame(testGame())
		p, ok := s.Profile()
		require.True(t, ok)
		assert.Equal(t, "test", p.Name)
		assert.Empty(t, s.ProfileMods())
	})

	t.Run("unknown profile", func(t *testing.T) {
		s.SetProfile(dto.Ptr("ghost"))
		_, ok := s.Profile()
		assert.False(t, ok)
	})

	t.Run("clearing the game id clears everything", func(t *testing.T) {
		s.SetGameID(nil)
		st := s.Get()
		assert.Nil(t, st.CurrentGame)
		assert.Nil(t, st.SelectedProfile)
	})
}

func TestBindCurrentGame(t *testing.T) {
	fetcher := &mockFetcher{games: map[string]*dto.GameResponse{"1142710": testGame()}}
	prefs := NewPreferencesStore()
	games := NewGameStore()

	sub := BindCurrentGame(prefs, games, fetcher, time.Second, nil)
	defer sub.Stop()
	assert.Empty(t, fetcher.calls)

	prefs.SetCurrentGame(dto.Ptr("1142710"))
	require.Equal(t, []string{"1142710"}, fetcher.calls)
	assert.Equal(t, "main", *prefs.Get().CurrentProfile)
	assert.Equal(t, "game-1142710", games.DataKey())
	p, ok := games.Profile()
	require.True(t, ok)
	assert.Equal(t, "main", p.Name)

	// unrelated changes do not refetch
	prefs.SetCurrentProfile(dto.Ptr("test"))
	assert.Len(t, fetcher.calls, 1)

	prefs.SetCurrentGame(dto.Ptr("missing"))
	assert.Len(t, fetcher.calls, 2)

	prefs.SetCurrentGame(nil)
	assert.Nil(t, games.Get().CurrentGame)
}
