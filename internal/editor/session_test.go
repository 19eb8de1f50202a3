package editor

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"modman/internal/dto"
	"modman/internal/errors"
	"modman/internal/history"
)

type mockSaver struct {
	saved []dto.ProfileRequest
	err   error
}

func (m *mockSaver) UpdateProfile(ctx context.Context, profile dto.ProfileRequest) (*dto.ProfileResponse, error) {
	if m.err != nil {
		return nil, m.err
	}
	m.saved = append(m.saved, profile)
	resp, err := dto.ProfileRequestToResponse(profile, dto.ProfileOverrides{})
	if err != nil {
		return nil, err
	}
	for i := range resp.Mods {
		resp.Mods[i].CanEnable = true
	}
	return &resp, nil
}

func testProfile() dto.ProfileResponse {
	return dto.ProfileResponse{
		Name: "Campaign",
		Mods: []dto.ModResponse{
			{Name: "a.pack", Enabled: true, CanEnable: true, Order: dto.Ptr(0)},
			{Name: "b.pack", Enabled: false, CanEnable: true, Order: dto.Ptr(1)},
			{Name: "gone.pack", Enabled: false, CanEnable: false, Order: dto.Ptr(2)},
		},
	}
}

func names(p dto.ProfileResponse) []string {
	out := make([]string, len(p.Mods))
	for i, m := range p.Mods {
		out[i] = m.Name
	}
	return out
}

func TestSession_ToggleUndoRedo(t *testing.T) {
	s := New("1142710", testProfile(), &mockSaver{})
	defer s.Close()

	assert.False(t, s.CanUndo())
	assert.False(t, s.Dirty())

	require.NoError(t, s.Toggle("b.pack"))
	require.NoError(t, s.Toggle("a.pack"))
	assert.True(t, s.Dirty())
	assert.Equal(t, history.State{Index: 2, Len: 3, CanUndo: true}, s.State())

	s.Undo()
	assert.True(t, s.Profile().Mods[0].Enabled)
	assert.True(t, s.Profile().Mods[1].Enabled)

	s.Undo()
	assert.False(t, s.Profile().Mods[1].Enabled)
	assert.False(t, s.Dirty())
	assert.False(t, s.CanUndo())

	s.Redo()
	assert.True(t, s.Profile().Mods[1].Enabled)
	assert.True(t, s.CanRedo())
}

func TestSession_FailedEditsRecordNothing(t *testing.T) {
	s := New("1142710", testProfile(), &mockSaver{})
	defer s.Close()

	err := s.Toggle("gone.pack")
	assert.ErrorIs(t, err, errors.ErrValidation)

	err = s.Toggle("missing.pack")
	assert.ErrorIs(t, err, errors.ErrNotFound)

	err = s.Move("a.pack", 2)
	assert.ErrorIs(t, err, errors.ErrValidation, "automatic mode has no manual order")

	assert.Equal(t, 1, s.State().Len)
	assert.False(t, s.Dirty())
}

func TestSession_Move(t *testing.T) {
	s := New("1142710", testProfile(), &mockSaver{})
	defer s.Close()

	s.SetManualMode(true)
	require.NoError(t, s.Move("a.pack", 10))

	p := s.Profile()
	assert.Equal(t, []string{"b.pack", "gone.pack", "a.pack"}, names(p))
	for i, m := range p.Mods {
		assert.Equal(t, i, *m.Order)
	}

	require.NoError(t, s.Move("gone.pack", -1))
	assert.Equal(t, []string{"gone.pack", "b.pack", "a.pack"}, names(s.Profile()))

	s.Undo()
	s.Undo()
	assert.Equal(t, []string{"a.pack", "b.pack", "gone.pack"}, names(s.Profile()))
	assert.True(t, s.Profile().ManualMode)

	s.Undo()
	assert.False(t, s.Profile().ManualMode)
}

func TestSession_AddRemove(t *testing.T) {
	s := New("1142710", dto.ProfileResponse{Name: "Empty"}, &mockSaver{})
	defer s.Close()

	pack := dto.PackResponse{Name: "c.pack", Path: "/mods/c.pack", FromSteamWorkshop: true}
	require.NoError(t, s.Add(pack))
	assert.ErrorIs(t, s.Add(pack), errors.ErrConflict)
	assert.ErrorIs(t, s.Add(dto.PackResponse{}), errors.ErrValidation)

	p := s.Profile()
	require.Len(t, p.Mods, 1)
	assert.False(t, p.Mods[0].Enabled)
	assert.True(t, p.Mods[0].CanEnable)
	assert.True(t, p.Mods[0].FromSteamWorkshop)
	assert.Equal(t, "/mods/c.pack", *p.Mods[0].Path)

	require.NoError(t, s.Remove("c.pack"))
	assert.Empty(t, s.Profile().Mods)
	assert.ErrorIs(t, s.Remove("c.pack"), errors.ErrNotFound)

	s.Undo()
	assert.Len(t, s.Profile().Mods, 1)
}

func TestSession_SaveCommits(t *testing.T) {
	saver := &mockSaver{}
	s := New("1142710", testProfile(), saver)
	defer s.Close()

	require.NoError(t, s.Toggle("b.pack"))
	require.NoError(t, s.Save(context.Background()))

	require.Len(t, saver.saved, 1)
	req := saver.saved[0]
	assert.Equal(t, "1142710", req.GameID)
	assert.Equal(t, "Campaign", req.Name)
	assert.True(t, req.Mods[1].Enabled)

	assert.False(t, s.Dirty())
	assert.Equal(t, history.State{Index: 0, Len: 1}, s.State())
	assert.True(t, s.Profile().Mods[2].CanEnable, "backend response replaces the profile")

	require.NoError(t, s.Toggle("a.pack"))
	s.Discard()
	assert.True(t, s.Profile().Mods[0].Enabled)
	assert.True(t, s.Profile().Mods[1].Enabled, "discard returns to the saved state")
}

func TestSession_SaveFailureKeepsHistory(t *testing.T) {
	saver := &mockSaver{err: fmt.Errorf("backend down")}
	s := New("1142710", testProfile(), saver)
	defer s.Close()

	require.NoError(t, s.Toggle("b.pack"))
	err := s.Save(context.Background())
	assert.ErrorContains(t, err, "backend down")

	assert.True(t, s.Dirty())
	assert.True(t, s.CanUndo())
}

func TestSession_Diff(t *testing.T) {
	s := New("1142710", testProfile(), &mockSaver{})
	defer s.Close()

	d, err := s.Diff()
	require.NoError(t, err)
	assert.True(t, d.Empty())

	require.NoError(t, s.Toggle("b.pack"))
	d, err = s.Diff()
	require.NoError(t, err)
	assert.Equal(t, 1, d.Stats.Additions)
	assert.Equal(t, 1, d.Stats.Deletions)

	out := d.Format()
	assert.True(t, strings.Contains(out, `-       "enabled": false,`), out)
	assert.True(t, strings.Contains(out, `+       "enabled": true,`), out)
}

func TestSession_Limit(t *testing.T) {
	var last history.State
	s := New("1142710", testProfile(), &mockSaver{},
		WithLimit(2),
		WithOnChange(func(st history.State) { last = st }),
	)
	defer s.Close()

	for i := 0; i < 4; i++ {
		require.NoError(t, s.Toggle("a.pack"))
	}
	assert.Equal(t, history.State{Index: 1, Len: 2, CanUndo: true}, last)
}
