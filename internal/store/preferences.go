package store

import (
	stderrors "errors"
	"fmt"

	"go.uber.org/zap"

	"modman/internal/dto"
	"modman/internal/errors"
	"modman/internal/reactive"
	"modman/internal/storage"
)

const preferencesKey = "current"

type Preferences struct {
	UserSettings   dto.UserSettings `json:"userSettings"`
	CurrentGame    *string          `json:"currentGame"`
	CurrentProfile *string          `json:"currentProfile"`
}

// PreferencesStore keeps the user's selections. When opened with a backing
// store every change is written through.
type PreferencesStore struct {
	state  *reactive.Cell[Preferences]
	db     *storage.BadgerStore[Preferences]
	sub    *reactive.Subscription
	logger *zap.Logger
}

func NewPreferencesStore() *PreferencesStore {
	return &PreferencesStore{
		state:  reactive.NewCell(Preferences{}),
		logger: zap.NewNop(),
	}
}

// OpenPreferencesStore loads saved preferences from db and persists later changes.
func OpenPreferencesStore(db *storage.BadgerStore[Preferences], logger *zap.Logger) (*PreferencesStore, error) {
	saved, err := db.Get(preferencesKey)
	if err != nil && !stderrors.Is(err, errors.ErrNotFound) {
		return nil, fmt.Errorf("loading preferences: %w", err)
	}

	if logger == nil {
		logger = zap.NewNop()
	}

	s := &PreferencesStore{
		state:  reactive.NewCell(saved),
		db:     db,
		logger: logger,
	}
	s.sub = s.state.Watch(s.persist)

	return s, nil
}

func (s *PreferencesStore) State() *reactive.Cell[Preferences] {
	return s.state
}

func (s *PreferencesStore) Get() Preferences {
	return s.state.Get()
}

func (s *PreferencesStore) SetSettings(settings dto.UserSettings) {
	s.state.Update(func(p *Preferences) { p.UserSettings = settings })
}

func (s *PreferencesStore) SetCurrentGame(game *string) {
	s.state.Update(func(p *Preferences) { p.CurrentGame = game })
}

func (s *PreferencesStore) SetCurrentProfile(profile *string) {
	s.state.Update(func(p *Preferences) { p.CurrentProfile = profile })
}

// Close stops persisting changes.
func (s *PreferencesStore) Close() {
	s.sub.Stop()
}

func (s *PreferencesStore) persist(p Preferences) {
	if err := s.db.Put(preferencesKey, p); err != nil {
		s.logger.Error("persisting preferences", zap.Error(err))
	}
}
