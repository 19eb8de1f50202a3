package backend

import (
	"context"
	stderrors "errors"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"modman/internal/bridge"
	"modman/internal/dto"
	"modman/internal/errors"
	"modman/internal/validation"
)

const (
	DefaultGameID      = "1142710"
	DefaultProfileName = "Default"
	packExtension      = ".pack"
)

// SupportedGames lists the games the backend can manage.
var SupportedGames = []dto.SupportedGame{
	{GameID: DefaultGameID, Name: "Total War: WARHAMMER III"},
}

// DefaultSettings selects the default game with no paths configured.
func DefaultSettings() dto.UserSettings {
	return dto.UserSettings{
		dto.SettingGameID:            DefaultGameID,
		dto.SettingGamePath:          nil,
		dto.SettingSteamWorkshopPath: nil,
		dto.SettingSavesPath:         nil,
		dto.SettingModsPath:          nil,
	}
}

func supported(gameID string) bool {
	for _, g := range SupportedGames {
		if g.GameID == gameID {
			return true
		}
	}
	return false
}

func (s *Server) getSupportedGames(ctx context.Context, args []byte) (any, error) {
	return SupportedGames, nil
}

func (s *Server) getGame(ctx context.Context, args []byte) (any, error) {
	var req bridge.GameArgs
	if err := validation.Decode(args, &req); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	game, err := s.loadGame(req.GameID)
	if err != nil {
		return nil, err
	}
	s.scanPacks(&game)
	if err := s.games.Put(game.GameID, game); err != nil {
		return nil, err
	}
	return game, nil
}

func (s *Server) createProfile(ctx context.Context, args []byte) (any, error) {
	var req bridge.ProfileArgs
	if err := validation.Decode(args, &req); err != nil {
		return nil, err
	}

	return s.withGame(req.Profile.GameID, func(game *dto.GameResponse) (any, error) {
		if findProfile(game, req.Profile.Name) >= 0 {
			return nil, errors.Conflict("profile " + req.Profile.Name + " already exists")
		}

		profile, err := dto.ProfileRequestToResponse(req.Profile, dto.ProfileOverrides{
			Mods: packMods(game, req.Profile.Mods),
		})
		if err != nil {
			return nil, err
		}
		game.Profiles = append(game.Profiles, profile)
		if profile.Default {
			game.DefaultProfile = dto.Ptr(profile.Name)
		}
		return profile, nil
	})
}

// updateProfile replaces the mods of an existing profile.
func (s *Server) updateProfile(ctx context.Context, args []byte) (any, error) {
	var req bridge.ProfileArgs
	if err := validation.Decode(args, &req); err != nil {
		return nil, err
	}

	return s.withGame(req.Profile.GameID, func(game *dto.GameResponse) (any, error) {
		i := findProfile(game, req.Profile.Name)
		if i < 0 {
			return nil, errors.NotFoundf("profile %s not found", req.Profile.Name)
		}

		p := &game.Profiles[i]
		p.Mods = packMods(game, req.Profile.Mods)
		if req.Profile.ManualMode != nil {
			p.ManualMode = *req.Profile.ManualMode
		}
		if req.Profile.Default != nil && *req.Profile.Default {
			game.DefaultProfile = dto.Ptr(p.Name)
		}
		return *p, nil
	})
}

func (s *Server) renameProfile(ctx context.Context, args []byte) (any, error) {
	var req bridge.RenameArgs
	if err := validation.Decode(args, &req); err != nil {
		return nil, err
	}

	return s.withGame(req.GameID, func(game *dto.GameResponse) (any, error) {
		i := findProfile(game, req.OldName)
		if i < 0 {
			return nil, errors.NotFoundf("profile %s not found", req.OldName)
		}
		if req.OldName == req.NewName {
			return game.Profiles[i], nil
		}
		if findProfile(game, req.NewName) >= 0 {
			return nil, errors.Conflict("profile " + req.NewName + " already exists")
		}

		game.Profiles[i].Name = req.NewName
		if game.DefaultProfile != nil && *game.DefaultProfile == req.OldName {
			game.DefaultProfile = dto.Ptr(req.NewName)
		}
		return game.Profiles[i], nil
	})
}

func (s *Server) setDefaultProfile(ctx context.Context, args []byte) (any, error) {
	var req bridge.ProfileNameArgs
	if err := validation.Decode(args, &req); err != nil {
		return nil, err
	}

	return s.withGame(req.GameID, func(game *dto.GameResponse) (any, error) {
		if findProfile(game, req.Name) < 0 {
			return nil, errors.NotFoundf("profile %s not found", req.Name)
		}
		game.DefaultProfile = dto.Ptr(req.Name)
		return nil, nil
	})
}

func (s *Server) deleteProfile(ctx context.Context, args []byte) (any, error) {
	var req bridge.ProfileNameArgs
	if err := validation.Decode(args, &req); err != nil {
		return nil, err
	}

	return s.withGame(req.GameID, func(game *dto.GameResponse) (any, error) {
		i := findProfile(game, req.Name)
		if i < 0 {
			return nil, errors.NotFoundf("profile %s not found", req.Name)
		}
		game.Profiles = append(game.Profiles[:i], game.Profiles[i+1:]...)
		if game.DefaultProfile != nil && *game.DefaultProfile == req.Name {
			game.DefaultProfile = nil
		}
		return nil, nil
	})
}

// withGame runs fn on the stored game and saves it when fn succeeds. Profile
// default flags are rederived from DefaultProfile before saving.
func (s *Server) withGame(gameID string, fn func(game *dto.GameResponse) (any, error)) (any, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	game, err := s.loadGame(gameID)
	if err != nil {
		return nil, err
	}
	s.scanPacks(&game)

	result, err := fn(&game)
	if err != nil {
		return nil, err
	}

	syncDefault(&game)
	if err := s.games.Put(game.GameID, game); err != nil {
		return nil, err
	}

	// Results taken before syncDefault may carry a stale flag.
	if p, ok := result.(dto.ProfileResponse); ok {
		if i := findProfile(&game, p.Name); i >= 0 {
			return game.Profiles[i], nil
		}
	}
	return result, nil
}

// loadGame returns the stored game, creating it for supported games seen for
// the first time. Callers hold s.mu.
func (s *Server) loadGame(gameID string) (dto.GameResponse, error) {
	game, err := s.games.Get(gameID)
	if err == nil {
		return dto.EnsureGameResponse(game), nil
	}
	if !stderrors.Is(err, errors.ErrNotFound) {
		return dto.GameResponse{}, err
	}
	if !supported(gameID) {
		return dto.GameResponse{}, errors.NotFoundf("game %s is not supported", gameID)
	}

	game = s.newGame(gameID)
	if err := s.games.Create(gameID, game); err != nil {
		return dto.GameResponse{}, err
	}
	return game, nil
}

func (s *Server) newGame(gameID string) dto.GameResponse {
	settings := s.settings.Settings()

	var gamePath, modsPath string
	var savesPath, workshopPath *string
	if settings.String(dto.SettingGameID) == gameID {
		gamePath = settings.String(dto.SettingGamePath)
		modsPath = settings.String(dto.SettingModsPath)
		if v := settings.String(dto.SettingSavesPath); v != "" {
			savesPath = dto.Ptr(v)
		}
		if v := settings.String(dto.SettingSteamWorkshopPath); v != "" {
			workshopPath = dto.Ptr(v)
		}
	}
	if modsPath == "" && gamePath != "" {
		modsPath = filepath.Join(gamePath, "data")
	}

	return dto.GameResponse{
		GameID:       gameID,
		GamePath:     gamePath,
		ModsPath:     modsPath,
		SavesPath:    savesPath,
		WorkshopPath: workshopPath,
		Mods:         []dto.PackResponse{},
		Profiles: []dto.ProfileResponse{{
			Name:    DefaultProfileName,
			Mods:    []dto.ModResponse{},
			Default: true,
		}},
		DefaultProfile: dto.Ptr(DefaultProfileName),
	}
}

// scanPacks refreshes the installed packs from the mods and workshop folders
// and annotates profile mods with what was found.
func (s *Server) scanPacks(game *dto.GameResponse) {
	packs := []dto.PackResponse{}
	packs = append(packs, s.readPacks(game.ModsPath, false)...)
	if game.WorkshopPath != nil {
		entries, err := os.ReadDir(*game.WorkshopPath)
		if err == nil {
			for _, e := range entries {
				if e.IsDir() {
					packs = append(packs, s.readPacks(filepath.Join(*game.WorkshopPath, e.Name()), true)...)
				}
			}
		}
	}
	sort.Slice(packs, func(i, j int) bool { return packs[i].Name < packs[j].Name })
	game.Mods = packs

	for i := range game.Profiles {
		for j := range game.Profiles[i].Mods {
			annotate(&game.Profiles[i].Mods[j], packs)
		}
	}
}

func (s *Server) readPacks(dir string, workshop bool) []dto.PackResponse {
	if dir == "" {
		return nil
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}

	var packs []dto.PackResponse
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), packExtension) {
			continue
		}
		pack := dto.PackResponse{
			Name:              e.Name(),
			Path:              filepath.Join(dir, e.Name()),
			FromSteamWorkshop: workshop,
		}
		if info, err := e.Info(); err == nil {
			pack.LastUpdated = dto.Ptr(info.ModTime().UTC().Format(time.RFC3339))
		}
		packs = append(packs, pack)
	}
	return packs
}

// packMods converts requested mods, numbering unordered ones by position.
func packMods(game *dto.GameResponse, mods []dto.ModRequest) []dto.ModResponse {
	out := make([]dto.ModResponse, 0, len(mods))
	for i, m := range mods {
		if m.Order == nil {
			m.Order = dto.Ptr(i)
		}
		mod := dto.ModRequestToResponse(m, dto.ModOverrides{})
		annotate(&mod, game.Mods)
		out = append(out, mod)
	}
	return out
}

func annotate(mod *dto.ModResponse, packs []dto.PackResponse) {
	mod.CanEnable = false
	for _, p := range packs {
		if p.Name != mod.Name {
			continue
		}
		mod.Path = dto.Ptr(p.Path)
		mod.CanEnable = true
		mod.LastUpdated = p.LastUpdated
		mod.FromSteamWorkshop = p.FromSteamWorkshop
		mod.Image = p.Image
		return
	}
}

func findProfile(game *dto.GameResponse, name string) int {
	for i, p := range game.Profiles {
		if p.Name == name {
			return i
		}
	}
	return -1
}

func syncDefault(game *dto.GameResponse) {
	for i := range game.Profiles {
		p := &game.Profiles[i]
		p.Default = game.DefaultProfile != nil && *game.DefaultProfile == p.Name
	}
}
