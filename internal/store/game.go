package store

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"modman/internal/dto"
	"modman/internal/reactive"
)

type GameState struct {
	SelectedGame    *string
	SelectedProfile *string
	CurrentGame     *dto.GameResponse
}

// GameStore tracks the game being managed and the selected profile.
type GameStore struct {
	state *reactive.Cell[GameState]
}

func NewGameStore() *GameStore {
	return &GameStore{state: reactive.NewCell(GameState{})}
}

func (s *GameStore) State() *reactive.Cell[GameState] {
	return s.state
}

func (s *GameStore) Get() GameState {
	return s.state.Get()
}

// Profiles returns the current game's profiles, or nil without a game.
func (s *GameStore) Profiles() []dto.ProfileResponse {
	game := s.state.Get().CurrentGame
	if game == nil {
		return nil
	}
	return game.Profiles
}

// Profile returns the selected profile, if the current game has it.
func (s *GameStore) Profile() (dto.ProfileResponse, bool) {
	selected := s.state.Get().SelectedProfile
	if selected == nil || *selected == "" {
		return dto.ProfileResponse{}, false
	}
	for _, p := range s.Profiles() {
		if p.Name != "" && p.Name == *selected {
			return p, true
		}
	}
	return dto.ProfileResponse{}, false
}

// ProfileMods returns the mods of the selected profile.
func (s *GameStore) ProfileMods() []dto.ModResponse {
	p, ok := s.Profile()
	if !ok {
		return nil
	}
	return p.Mods
}

// GameMods returns every pack installed for the current game.
func (s *GameStore) GameMods() []dto.PackResponse {
	game := s.state.Get().CurrentGame
	if game == nil {
		return nil
	}
	return game.Mods
}

func (s *GameStore) DataKey() string {
	selected := "null"
	if g := s.state.Get().SelectedGame; g != nil {
		selected = *g
	}
	return fmt.Sprintf("game-%s", selected)
}

// SetGameID selects a game. A nil or empty id clears the current game.
func (s *GameStore) SetGameID(gameID *string) {
	if gameID == nil || *gameID == "" {
		s.SetGame(nil)
		return
	}
	s.state.Update(func(st *GameState) { st.SelectedGame = gameID })
}

func (s *GameStore) SetProfile(name *string) {
	s.state.Update(func(st *GameState) { st.SelectedProfile = name })
}

// SetGame replaces the current game. Clearing it clears the profile;
// otherwise the selected profile is kept or falls back to the game's default.
func (s *GameStore) SetGame(game *dto.GameResponse) {
	s.state.Update(func(st *GameState) {
		st.CurrentGame = game
		if game == nil {
			st.SelectedProfile = nil
			return
		}
		if st.SelectedProfile == nil {
			st.SelectedProfile = game.DefaultProfile
		}
	})
}

// GameFetcher loads a game from the backend.
type GameFetcher interface {
	GetGame(ctx context.Context, gameID string) (*dto.GameResponse, error)
}

// BindCurrentGame keeps games in sync with the preferences' current game:
// on every change of that selection the game is fetched and the current
// profile resets to the game's default. It runs once immediately.
func BindCurrentGame(prefs *PreferencesStore, games *GameStore, fetcher GameFetcher, timeout time.Duration, logger *zap.Logger) *reactive.Subscription {
	if logger == nil {
		logger = zap.NewNop()
	}

	var last *string
	first := true

	return prefs.State().Watch(func(p Preferences) {
		if !first && sameString(last, p.CurrentGame) {
			return
		}
		first = false
		last = p.CurrentGame

		if p.CurrentGame == nil || *p.CurrentGame == "" {
			games.SetGameID(nil)
			return
		}

		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		game, err := fetcher.GetGame(ctx, *p.CurrentGame)
		if err != nil {
			logger.Error("fetching current game", zap.String("game_id", *p.CurrentGame), zap.Error(err))
			return
		}
		ensured := dto.EnsureGameResponse(*game)

		games.SetGameID(p.CurrentGame)
		games.SetProfile(nil)
		games.SetGame(&ensured)
		prefs.SetCurrentProfile(ensured.DefaultProfile)
	}, reactive.Immediate())
}

func sameString(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
