// Package store holds the application state containers. Each store wraps a
// reactive.Cell so views and controllers can watch it; actions are the only
// writers.
package store

import (
	"maps"

	"modman/internal/dto"
	"modman/internal/reactive"
)

// SettingsStore mirrors the backend's user settings.
type SettingsStore struct {
	state *reactive.Cell[dto.UserSettings]
}

func NewSettingsStore() *SettingsStore {
	return &SettingsStore{state: reactive.NewCell(dto.UserSettings{})}
}

func (s *SettingsStore) State() *reactive.Cell[dto.UserSettings] {
	return s.state
}

// Settings returns a copy of the current settings.
func (s *SettingsStore) Settings() dto.UserSettings {
	return maps.Clone(s.state.Get())
}

func (s *SettingsStore) SetSettings(settings dto.UserSettings) {
	if settings == nil {
		settings = dto.UserSettings{}
	}
	s.state.Set(maps.Clone(settings))
}
