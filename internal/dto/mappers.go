package dto

import (
	"modman/internal/errors"
)

// ModResponseToRequest keeps the fields the backend accepts on update.
func ModResponseToRequest(mod ModResponse) ModRequest {
	return ModRequest{
		Name:    mod.Name,
		Enabled: mod.Enabled,
		Order:   mod.Order,
	}
}

// ModOverrides carries the response-only fields of a mod. Nil fields take
// the defaults in ModRequestToResponse.
type ModOverrides struct {
	Path              *string
	CanEnable         *bool
	LastUpdated       *string
	FromSteamWorkshop *bool
	Image             *string
}

func ModRequestToResponse(mod ModRequest, overrides ModOverrides) ModResponse {
	return ModResponse{
		Name:              mod.Name,
		Enabled:           mod.Enabled,
		Order:             mod.Order,
		Path:              overrides.Path,
		CanEnable:         valueOr(overrides.CanEnable, false),
		LastUpdated:       overrides.LastUpdated,
		FromSteamWorkshop: valueOr(overrides.FromSteamWorkshop, false),
		Image:             overrides.Image,
	}
}

// PackResponseToRequest turns an installed pack into a disabled mod entry.
func PackResponseToRequest(pack PackResponse) (ModRequest, error) {
	if pack.Name == "" {
		return ModRequest{}, errors.ValidationError("pack name is required to convert to a mod request", nil)
	}

	return ModRequest{
		Name:    pack.Name,
		Enabled: false,
		Order:   Ptr(0),
	}, nil
}

func ProfileResponseToRequest(profile *ProfileResponse, gameID string) (ProfileRequest, error) {
	if profile == nil || profile.Name == "" {
		return ProfileRequest{}, errors.ValidationError("profile name is required", nil)
	}

	mods := make([]ModRequest, 0, len(profile.Mods))
	for _, m := range profile.Mods {
		mods = append(mods, ModResponseToRequest(m))
	}

	return ProfileRequest{
		GameID:     gameID,
		Name:       profile.Name,
		Default:    Ptr(profile.Default),
		ManualMode: Ptr(profile.ManualMode),
		Mods:       mods,
	}, nil
}

// ProfileOverrides replaces derived fields in ProfileRequestToResponse.
type ProfileOverrides struct {
	Mods []ModResponse
}

func ProfileRequestToResponse(profile ProfileRequest, overrides ProfileOverrides) (ProfileResponse, error) {
	if profile.Name == "" {
		return ProfileResponse{}, errors.ValidationError("profile name is required", nil)
	}

	mods := overrides.Mods
	if mods == nil {
		mods = make([]ModResponse, 0, len(profile.Mods))
		for _, m := range profile.Mods {
			mods = append(mods, ModRequestToResponse(m, ModOverrides{}))
		}
	}

	return ProfileResponse{
		Name:       profile.Name,
		Default:    valueOr(profile.Default, false),
		ManualMode: valueOr(profile.ManualMode, false),
		Mods:       mods,
	}, nil
}

// EnsureGameResponse replaces missing lists with empty ones.
func EnsureGameResponse(game GameResponse) GameResponse {
	if game.Mods == nil {
		game.Mods = []PackResponse{}
	}
	if game.Profiles == nil {
		game.Profiles = []ProfileResponse{}
	}
	return game
}

// GameImage returns the bundled cover image for known games.
func GameImage(gameID string) (string, bool) {
	switch gameID {
	case "1142710": // wh3
		return "/images/games/wh3.webp", true
	default:
		return "", false
	}
}

func valueOr[T any](v *T, fallback T) T {
	if v == nil {
		return fallback
	}
	return *v
}
