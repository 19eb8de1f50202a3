package bridge

import (
	"context"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"modman/internal/dto"
	"modman/internal/errors"
	"modman/internal/store"
	"modman/internal/validation"
)

const (
	CmdGetState          = "get_state"
	CmdSetUserSettings   = "set_user_settings"
	CmdCheckPathExists   = "check_path_exists"
	CmdGetSupportedGames = "get_supported_games"
	CmdGetGame           = "get_game"
	CmdCreateProfile     = "create_profile"
	CmdUpdateProfile     = "update_profile"
	CmdRenameProfile     = "rename_profile"
	CmdSetDefaultProfile = "set_default_profile"
	CmdDeleteProfile     = "delete_profile"
	CmdStartGame         = "start_game"
)

type PathArgs struct {
	Path string `json:"path"`
}

type GameArgs struct {
	GameID string `json:"gameId"`
}

type ProfileArgs struct {
	Profile dto.ProfileRequest `json:"profile"`
}

type ProfileNameArgs struct {
	GameID string `json:"gameId"`
	Name   string `json:"name"`
}

type RenameArgs struct {
	GameID  string `json:"gameId"`
	OldName string `json:"oldName"`
	NewName string `json:"newName"`
}

type SettingsArgs struct {
	Settings dto.UserSettings `json:"settings"`
}

func (a PathArgs) Validate() error {
	return validation.Required(map[string]string{"path": a.Path})
}

func (a GameArgs) Validate() error {
	return validation.Required(map[string]string{"gameId": a.GameID})
}

func (a ProfileArgs) Validate() error {
	return validation.Required(map[string]string{
		"profile.gameId": a.Profile.GameID,
		"profile.name":   a.Profile.Name,
	})
}

func (a ProfileNameArgs) Validate() error {
	return validation.Required(map[string]string{"gameId": a.GameID, "name": a.Name})
}

func (a RenameArgs) Validate() error {
	return validation.Required(map[string]string{
		"gameId":  a.GameID,
		"oldName": a.OldName,
		"newName": a.NewName,
	})
}

// Validate rejects unknown keys and non-string paths.
func (a SettingsArgs) Validate() error {
	var invalid []string
	for key, value := range a.Settings {
		if !key.Valid() {
			invalid = append(invalid, string(key))
			continue
		}
		if value == nil {
			continue
		}
		if _, ok := value.(string); !ok && key.IsPath() {
			invalid = append(invalid, string(key))
		}
	}
	if len(invalid) > 0 {
		sort.Strings(invalid)
		return errors.ValidationError("invalid settings", invalid)
	}
	return nil
}

func (c *Client) GetState(ctx context.Context) (dto.UserSettings, error) {
	var settings dto.UserSettings
	if err := c.Invoke(ctx, CmdGetState, struct{}{}, &settings); err != nil {
		return nil, err
	}
	if settings == nil {
		settings = dto.UserSettings{}
	}
	return settings, nil
}

func (c *Client) SetUserSettings(ctx context.Context, settings dto.UserSettings) (dto.UserSettings, error) {
	var out dto.UserSettings
	if err := c.Invoke(ctx, CmdSetUserSettings, SettingsArgs{Settings: settings}, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) CheckPathExists(ctx context.Context, path string) (bool, error) {
	var exists bool
	err := c.Invoke(ctx, CmdCheckPathExists, PathArgs{Path: path}, &exists)
	return exists, err
}

func (c *Client) GetSupportedGames(ctx context.Context) ([]dto.SupportedGame, error) {
	var games []dto.SupportedGame
	if err := c.Invoke(ctx, CmdGetSupportedGames, struct{}{}, &games); err != nil {
		return nil, err
	}
	return games, nil
}

// GetGame fetches a game and normalizes the nullable collections.
func (c *Client) GetGame(ctx context.Context, gameID string) (*dto.GameResponse, error) {
	var game dto.GameResponse
	if err := c.Invoke(ctx, CmdGetGame, GameArgs{GameID: gameID}, &game); err != nil {
		return nil, err
	}
	game = dto.EnsureGameResponse(game)
	return &game, nil
}

func (c *Client) CreateProfile(ctx context.Context, profile dto.ProfileRequest) (*dto.ProfileResponse, error) {
	var out dto.ProfileResponse
	if err := c.Invoke(ctx, CmdCreateProfile, ProfileArgs{Profile: profile}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) UpdateProfile(ctx context.Context, profile dto.ProfileRequest) (*dto.ProfileResponse, error) {
	var out dto.ProfileResponse
	if err := c.Invoke(ctx, CmdUpdateProfile, ProfileArgs{Profile: profile}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) RenameProfile(ctx context.Context, gameID, oldName, newName string) (*dto.ProfileResponse, error) {
	var out dto.ProfileResponse
	args := RenameArgs{GameID: gameID, OldName: oldName, NewName: newName}
	if err := c.Invoke(ctx, CmdRenameProfile, args, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) SetDefaultProfile(ctx context.Context, gameID, name string) error {
	return c.Invoke(ctx, CmdSetDefaultProfile, ProfileNameArgs{GameID: gameID, Name: name}, nil)
}

func (c *Client) DeleteProfile(ctx context.Context, gameID, name string) error {
	return c.Invoke(ctx, CmdDeleteProfile, ProfileNameArgs{GameID: gameID, Name: name}, nil)
}

func (c *Client) StartGame(ctx context.Context, gameID string) error {
	return c.Invoke(ctx, CmdStartGame, GameArgs{GameID: gameID}, nil)
}

// SyncSettings loads the backend settings into settings and keeps them in
// sync with update/user-settings events.
func (c *Client) SyncSettings(ctx context.Context, settings *store.SettingsStore) (Unlisten, error) {
	unlisten, err := c.Listen(ctx, EventUserSettings, func(e Event) {
		var next dto.UserSettings
		if err := e.Decode(&next); err != nil {
			c.logger.Warn("invalid user settings event", zap.Error(err))
			return
		}
		settings.SetSettings(next)
	})
	if err != nil {
		return nil, err
	}

	current, err := c.GetState(ctx)
	if err != nil {
		unlisten()
		return nil, fmt.Errorf("loading settings: %w", err)
	}
	settings.SetSettings(current)
	return unlisten, nil
}
