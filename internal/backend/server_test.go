package backend

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"modman/internal/bridge"
	"modman/internal/dto"
	"modman/internal/errors"
	"modman/internal/storage"
)

type testEnv struct {
	server  *Server
	client  *bridge.Client
	modsDir string
}

func setupServer(t *testing.T) *testEnv {
	t.Helper()

	db, err := storage.Open("")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	gameDir := t.TempDir()
	modsDir := filepath.Join(gameDir, "data")
	require.NoError(t, os.MkdirAll(modsDir, 0755))
	for _, name := range []string{"a.pack", "b.pack", "readme.txt"} {
		require.NoError(t, os.WriteFile(filepath.Join(modsDir, name), []byte(name), 0644))
	}

	settings := DefaultSettings()
	settings[dto.SettingGamePath] = gameDir

	s := New(db, nil, Options{Settings: settings})
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(func() {
		s.Close()
		ts.Close()
	})

	return &testEnv{
		server:  s,
		client:  bridge.New(ts.URL),
		modsDir: modsDir,
	}
}

func TestServer_GetGame(t *testing.T) {
	env := setupServer(t)
	ctx := context.Background()

	t.Run("creates supported game on first load", func(t *testing.T) {
		game, err := env.client.GetGame(ctx, DefaultGameID)
		require.NoError(t, err)

		assert.Equal(t, env.modsDir, game.ModsPath)
		require.Len(t, game.Profiles, 1)
		assert.Equal(t, DefaultProfileName, game.Profiles[0].Name)
		assert.True(t, game.Profiles[0].Default)
		require.NotNil(t, game.DefaultProfile)
		assert.Equal(t, DefaultProfileName, *game.DefaultProfile)

		require.Len(t, game.Mods, 2)
		assert.Equal(t, "a.pack", game.Mods[0].Name)
		assert.Equal(t, "b.pack", game.Mods[1].Name)
	})

	t.Run("unsupported game", func(t *testing.T) {
		_, err := env.client.GetGame(ctx, "42")
		assert.ErrorIs(t, err, errors.ErrNotFound)
	})

	t.Run("missing args", func(t *testing.T) {
		err := env.client.Invoke(ctx, bridge.CmdGetGame, nil, nil)
		assert.ErrorIs(t, err, errors.ErrValidation)
	})
}

func TestServer_Profiles(t *testing.T) {
	env := setupServer(t)
	ctx := context.Background()

	created, err := env.client.CreateProfile(ctx, dto.ProfileRequest{
		GameID: DefaultGameID,
		Name:   "Campaign",
		Mods: []dto.ModRequest{
			{Name: "a.pack", Enabled: true},
			{Name: "gone.pack", Enabled: true},
		},
	})
	require.NoError(t, err)
	assert.False(t, created.Default)
	require.Len(t, created.Mods, 2)
	assert.True(t, created.Mods[0].CanEnable)
	require.NotNil(t, created.Mods[0].Order)
	assert.Equal(t, 0, *created.Mods[0].Order)
	assert.False(t, created.Mods[1].CanEnable)
	assert.Equal(t, 1, *created.Mods[1].Order)

	t.Run("names are unique per game", func(t *testing.T) {
		_, err := env.client.CreateProfile(ctx, dto.ProfileRequest{GameID: DefaultGameID, Name: "Campaign"})
		assert.ErrorIs(t, err, errors.ErrConflict)
	})

	t.Run("update replaces mods", func(t *testing.T) {
		updated, err := env.client.UpdateProfile(ctx, dto.ProfileRequest{
			GameID:     DefaultGameID,
			Name:       "Campaign",
			ManualMode: dto.Ptr(true),
			Mods:       []dto.ModRequest{{Name: "b.pack", Enabled: false, Order: dto.Ptr(7)}},
		})
		require.NoError(t, err)
		assert.True(t, updated.ManualMode)
		require.Len(t, updated.Mods, 1)
		assert.Equal(t, "b.pack", updated.Mods[0].Name)
		assert.Equal(t, 7, *updated.Mods[0].Order)
	})

	t.Run("update unknown profile", func(t *testing.T) {
		_, err := env.client.UpdateProfile(ctx, dto.ProfileRequest{GameID: DefaultGameID, Name: "nope"})
		assert.ErrorIs(t, err, errors.ErrNotFound)
	})

	t.Run("rename keeps default", func(t *testing.T) {
		require.NoError(t, env.client.SetDefaultProfile(ctx, DefaultGameID, "Campaign"))

		renamed, err := env.client.RenameProfile(ctx, DefaultGameID, "Campaign", "Legendary")
		require.NoError(t, err)
		assert.True(t, renamed.Default)

		game, err := env.client.GetGame(ctx, DefaultGameID)
		require.NoError(t, err)
		require.NotNil(t, game.DefaultProfile)
		assert.Equal(t, "Legendary", *game.DefaultProfile)
		for _, p := range game.Profiles {
			assert.Equal(t, p.Name == "Legendary", p.Default, p.Name)
		}
	})

	t.Run("rename onto existing name", func(t *testing.T) {
		_, err := env.client.RenameProfile(ctx, DefaultGameID, "Legendary", DefaultProfileName)
		assert.ErrorIs(t, err, errors.ErrConflict)
	})

	t.Run("delete clears default", func(t *testing.T) {
		require.NoError(t, env.client.DeleteProfile(ctx, DefaultGameID, "Legendary"))

		game, err := env.client.GetGame(ctx, DefaultGameID)
		require.NoError(t, err)
		assert.Nil(t, game.DefaultProfile)
		require.Len(t, game.Profiles, 1)
		assert.False(t, game.Profiles[0].Default)

		err = env.client.DeleteProfile(ctx, DefaultGameID, "Legendary")
		assert.ErrorIs(t, err, errors.ErrNotFound)
	})
}

func TestServer_Settings(t *testing.T) {
	env := setupServer(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	received := make(chan dto.UserSettings, 1)
	unlisten, err := env.client.Listen(ctx, bridge.EventUserSettings, func(e bridge.Event) {
		var s dto.UserSettings
		if assert.NoError(t, e.Decode(&s)) {
			received <- s
		}
	})
	require.NoError(t, err)
	defer unlisten()
	require.Eventually(t, func() bool { return env.server.Hub().Clients() == 1 }, time.Second, 10*time.Millisecond)

	next := DefaultSettings()
	next[dto.SettingModsPath] = "/mods"
	_, err = env.client.SetUserSettings(ctx, next)
	require.NoError(t, err)

	select {
	case s := <-received:
		assert.Equal(t, "/mods", s.String(dto.SettingModsPath))
	case <-time.After(2 * time.Second):
		t.Fatal("no update/user-settings event")
	}

	state, err := env.client.GetState(ctx)
	require.NoError(t, err)
	assert.Equal(t, "/mods", state.String(dto.SettingModsPath))

	t.Run("store changes are published", func(t *testing.T) {
		reloaded := DefaultSettings()
		reloaded[dto.SettingSavesPath] = "/saves"
		env.server.Settings().SetSettings(reloaded)

		select {
		case s := <-received:
			assert.Equal(t, "/saves", s.String(dto.SettingSavesPath))
		case <-time.After(2 * time.Second):
			t.Fatal("no update/user-settings event")
		}
	})

	t.Run("rejects unknown keys", func(t *testing.T) {
		_, err := env.client.SetUserSettings(ctx, dto.UserSettings{"theme": "dark"})
		var e *errors.Error
		require.ErrorAs(t, err, &e)
		assert.Equal(t, errors.ErrorTypeValidation, e.Type)
		assert.Equal(t, []any{"theme"}, e.Details)
	})
}

func TestServer_Commands(t *testing.T) {
	env := setupServer(t)
	ctx := context.Background()

	exists, err := env.client.CheckPathExists(ctx, env.modsDir)
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = env.client.CheckPathExists(ctx, filepath.Join(env.modsDir, "missing"))
	require.NoError(t, err)
	assert.False(t, exists)

	games, err := env.client.GetSupportedGames(ctx)
	require.NoError(t, err)
	assert.Equal(t, SupportedGames, games)

	require.NoError(t, env.client.StartGame(ctx, DefaultGameID))

	err = env.client.Invoke(ctx, "format_disk", nil, nil)
	assert.ErrorIs(t, err, errors.ErrNotFound)
}

func TestServer_StartGameLauncher(t *testing.T) {
	db, err := storage.Open("")
	require.NoError(t, err)
	defer db.Close()

	var launched string
	s := New(db, nil, Options{Launcher: func(ctx context.Context, game dto.GameResponse) error {
		launched = game.GameID
		return nil
	}})
	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	require.NoError(t, bridge.New(ts.URL).StartGame(context.Background(), DefaultGameID))
	assert.Equal(t, DefaultGameID, launched)
}

func TestServer_Health(t *testing.T) {
	db, err := storage.Open("")
	require.NoError(t, err)
	defer db.Close()

	rec := httptest.NewRecorder()
	New(db, nil, Options{}).Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "healthy"))
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestServer_Assets(t *testing.T) {
	db, err := storage.Open("")
	require.NoError(t, err)
	defer db.Close()

	assets := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(assets, "games"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(assets, "games", "wh3.webp"), []byte("RIFF"), 0644))

	ts := httptest.NewServer(New(db, nil, Options{AssetsDir: assets}).Handler())
	defer ts.Close()

	cover, ok := dto.GameImage(DefaultGameID)
	require.True(t, ok)

	c := bridge.New(ts.URL)
	data, err := c.FetchAsset(context.Background(), cover)
	require.NoError(t, err)
	assert.Equal(t, []byte("RIFF"), data)

	_, err = c.FetchAsset(context.Background(), "/images/games/missing.webp")
	var e *errors.Error
	require.ErrorAs(t, err, &e)
	assert.Equal(t, http.StatusNotFound, e.Code)
}
