// Package dto holds the shapes exchanged with the native backend and the
// mappers between request and response forms. Nullable backend fields are
// pointers; mappers fill explicit defaults.
package dto

type ModRequest struct {
	Name    string `json:"name"`
	Enabled bool   `json:"enabled"`
	Order   *int   `json:"order,omitempty"`
}

type ModResponse struct {
	Name              string  `json:"name"`
	Path              *string `json:"path"`
	Enabled           bool    `json:"enabled"`
	Order             *int    `json:"order"`
	CanEnable         bool    `json:"canEnable"`
	LastUpdated       *string `json:"lastUpdated"`
	FromSteamWorkshop bool    `json:"fromSteamWorkshop"`
	Image             *string `json:"image"`
}

type PackResponse struct {
	Name              string  `json:"name"`
	Path              string  `json:"path"`
	Image             *string `json:"image"`
	LastUpdated       *string `json:"lastUpdated"`
	FromSteamWorkshop bool    `json:"fromSteamWorkshop"`
}

type ProfileRequest struct {
	GameID     string       `json:"gameId"`
	Name       string       `json:"name"`
	Default    *bool        `json:"default,omitempty"`
	ManualMode *bool        `json:"manualMode,omitempty"`
	Mods       []ModRequest `json:"mods"`
}

type ProfileResponse struct {
	Name       string        `json:"name"`
	Mods       []ModResponse `json:"mods"`
	Default    bool          `json:"default"`
	ManualMode bool          `json:"manualMode"`
}

type GameResponse struct {
	Mods           []PackResponse    `json:"mods"`
	Profiles       []ProfileResponse `json:"profiles"`
	DefaultProfile *string           `json:"defaultProfile"`
	GameID         string            `json:"gameId"`
	GamePath       string            `json:"gamePath"`
	SavesPath      *string           `json:"savesPath"`
	ModsPath       string            `json:"modsPath"`
	WorkshopPath   *string           `json:"workshopPath"`
}

// SupportedGame is an entry of get_supported_games.
type SupportedGame struct {
	GameID string `json:"gameId"`
	Name   string `json:"name"`
}

type SettingKey string

const (
	SettingGameID            SettingKey = "gameId"
	SettingGamePath          SettingKey = "gamePath"
	SettingSteamWorkshopPath SettingKey = "steamWorkshopPath"
	SettingSavesPath         SettingKey = "savesPath"
	SettingModsPath          SettingKey = "modsPath"
)

// SettingKeys lists every known key in a stable order.
var SettingKeys = []SettingKey{
	SettingGameID,
	SettingGamePath,
	SettingSteamWorkshopPath,
	SettingSavesPath,
	SettingModsPath,
}

func (k SettingKey) Valid() bool {
	for _, known := range SettingKeys {
		if k == known {
			return true
		}
	}
	return false
}

// IsPath reports whether the setting holds a filesystem path.
func (k SettingKey) IsPath() bool {
	switch k {
	case SettingGamePath, SettingModsPath, SettingSavesPath, SettingSteamWorkshopPath:
		return true
	}
	return false
}

// UserSettings is the loosely typed settings map the backend owns.
type UserSettings map[SettingKey]any

// String returns the setting as a string, or "" when unset or not a string.
func (s UserSettings) String(key SettingKey) string {
	v, _ := s[key].(string)
	return v
}

// Ptr is a small helper for the nullable fields.
func Ptr[T any](v T) *T {
	return &v
}
