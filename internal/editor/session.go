// Package editor edits one profile with undo and redo. A Session binds the
// profile to a history controller; every edit becomes a snapshot until the
// profile is saved or discarded.
package editor

import (
	"context"
	"fmt"
	"slices"

	"go.uber.org/zap"

	"modman/internal/diff"
	"modman/internal/dto"
	"modman/internal/errors"
	"modman/internal/history"
	"modman/internal/reactive"
)

// Saver persists a profile. *bridge.Client implements it.
type Saver interface {
	UpdateProfile(ctx context.Context, profile dto.ProfileRequest) (*dto.ProfileResponse, error)
}

type Session struct {
	gameID  string
	profile *reactive.Cell[dto.ProfileResponse]
	history *history.History[dto.ProfileResponse]
	saver   Saver
	differ  *diff.Engine
	logger  *zap.Logger
}

type Option func(*options)

type options struct {
	logger       *zap.Logger
	limit        int
	contextLines int
	onChange     func(history.State)
}

func WithLogger(logger *zap.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithLimit caps the number of undo steps kept.
func WithLimit(n int) Option {
	return func(o *options) {
		o.limit = n
	}
}

func WithContextLines(n int) Option {
	return func(o *options) {
		o.contextLines = n
	}
}

func WithOnChange(fn func(history.State)) Option {
	return func(o *options) {
		o.onChange = fn
	}
}

func New(gameID string, profile dto.ProfileResponse, saver Saver, opts ...Option) *Session {
	o := options{logger: zap.NewNop(), contextLines: 3}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = zap.NewNop()
	}
	if profile.Mods == nil {
		profile.Mods = []dto.ModResponse{}
	}

	cell := reactive.NewCell(profile)
	return &Session{
		gameID:  gameID,
		profile: cell,
		history: history.New(cell,
			history.WithLogger[dto.ProfileResponse](o.logger),
			history.WithLimit[dto.ProfileResponse](o.limit),
			history.WithOnChange[dto.ProfileResponse](o.onChange),
		),
		saver:  saver,
		differ: diff.NewEngine(o.contextLines),
		logger: o.logger,
	}
}

// Profile returns a copy of the profile being edited.
func (s *Session) Profile() dto.ProfileResponse {
	return history.Clone(s.profile.Get(), s.logger)
}

// Cell exposes the edited profile for watchers.
func (s *Session) Cell() *reactive.Cell[dto.ProfileResponse] {
	return s.profile
}

func (s *Session) State() history.State {
	return s.history.State()
}

func (s *Session) CanUndo() bool {
	return s.history.CanUndo()
}

func (s *Session) CanRedo() bool {
	return s.history.CanRedo()
}

func (s *Session) Undo() {
	s.history.Undo()
}

func (s *Session) Redo() {
	s.history.Redo()
}

// Dirty reports whether the profile differs from the last saved state.
func (s *Session) Dirty() bool {
	return !history.Equal(s.history.Baseline(), s.profile.Get())
}

// Toggle flips a mod on or off. Mods whose pack is missing cannot be enabled.
func (s *Session) Toggle(name string) error {
	return s.edit(func(p *dto.ProfileResponse) error {
		i := indexOf(p.Mods, name)
		if i < 0 {
			return errors.NotFoundf("mod %s not found", name)
		}
		if !p.Mods[i].Enabled && !p.Mods[i].CanEnable {
			return errors.ValidationError(fmt.Sprintf("mod %s cannot be enabled", name), nil)
		}
		p.Mods[i].Enabled = !p.Mods[i].Enabled
		return nil
	})
}

// Move places a mod at position and renumbers the load order. Only manual
// mode profiles have an order of their own.
func (s *Session) Move(name string, position int) error {
	return s.edit(func(p *dto.ProfileResponse) error {
		if !p.ManualMode {
			return errors.ValidationError("manual mode is required to reorder mods", nil)
		}
		i := indexOf(p.Mods, name)
		if i < 0 {
			return errors.NotFoundf("mod %s not found", name)
		}

		mod := p.Mods[i]
		p.Mods = slices.Delete(p.Mods, i, i+1)
		position = max(0, min(position, len(p.Mods)))
		p.Mods = slices.Insert(p.Mods, position, mod)
		renumber(p.Mods)
		return nil
	})
}

func (s *Session) SetManualMode(enabled bool) {
	s.edit(func(p *dto.ProfileResponse) error {
		p.ManualMode = enabled
		if enabled {
			renumber(p.Mods)
		}
		return nil
	})
}

// Add appends an installed pack to the profile, disabled.
func (s *Session) Add(pack dto.PackResponse) error {
	req, err := dto.PackResponseToRequest(pack)
	if err != nil {
		return err
	}
	return s.edit(func(p *dto.ProfileResponse) error {
		if indexOf(p.Mods, pack.Name) >= 0 {
			return errors.Conflict("mod " + pack.Name + " is already in the profile")
		}
		req.Order = dto.Ptr(len(p.Mods))
		p.Mods = append(p.Mods, dto.ModRequestToResponse(req, dto.ModOverrides{
			Path:              dto.Ptr(pack.Path),
			CanEnable:         dto.Ptr(true),
			LastUpdated:       pack.LastUpdated,
			FromSteamWorkshop: dto.Ptr(pack.FromSteamWorkshop),
			Image:             pack.Image,
		}))
		return nil
	})
}

func (s *Session) Remove(name string) error {
	return s.edit(func(p *dto.ProfileResponse) error {
		i := indexOf(p.Mods, name)
		if i < 0 {
			return errors.NotFoundf("mod %s not found", name)
		}
		p.Mods = slices.Delete(p.Mods, i, i+1)
		renumber(p.Mods)
		return nil
	})
}

// Diff renders the changes since the last save.
func (s *Session) Diff() (*diff.DiffResult, error) {
	return s.differ.DiffValues(s.history.Baseline(), s.profile.Get())
}

// Save sends the profile to the backend and, on success, makes it the new
// baseline with a single-entry history. On failure nothing changes.
func (s *Session) Save(ctx context.Context) error {
	current := s.profile.Get()
	req, err := dto.ProfileResponseToRequest(&current, s.gameID)
	if err != nil {
		return err
	}

	saved, err := s.saver.UpdateProfile(ctx, req)
	if err != nil {
		return fmt.Errorf("saving profile %s: %w", current.Name, err)
	}
	if saved != nil {
		if saved.Mods == nil {
			saved.Mods = []dto.ModResponse{}
		}
		s.profile.Set(*saved)
	}
	s.history.Commit()

	s.logger.Info("profile saved",
		zap.String("game_id", s.gameID),
		zap.String("profile", current.Name),
	)
	return nil
}

// Discard restores the last saved profile.
func (s *Session) Discard() {
	s.history.Cancel()
}

func (s *Session) Close() {
	s.history.Close()
}

// edit applies fn to a copy of the profile and publishes it only when fn
// succeeds, so a failed edit records nothing.
func (s *Session) edit(fn func(p *dto.ProfileResponse) error) error {
	next := s.profile.Get()
	next.Mods = slices.Clone(next.Mods)
	if err := fn(&next); err != nil {
		return err
	}
	s.profile.Set(next)
	return nil
}

func indexOf(mods []dto.ModResponse, name string) int {
	return slices.IndexFunc(mods, func(m dto.ModResponse) bool {
		return m.Name == name
	})
}

func renumber(mods []dto.ModResponse) {
	for i := range mods {
		mods[i].Order = dto.Ptr(i)
	}
}
