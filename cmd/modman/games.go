package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"modman/internal/dto"
	"modman/internal/safe"
)

var gamesCmd = &cobra.Command{
	Use:   "games",
	Short: "List supported games",
	RunE: func(cmd *cobra.Command, args []string) error {
		var (
			games    []dto.SupportedGame
			settings dto.UserSettings
		)

		g, ctx := errgroup.WithContext(cmd.Context())
		g.Go(func() (err error) {
			games, err = client.GetSupportedGames(ctx)
			return err
		})
		g.Go(func() (err error) {
			settings, err = client.GetState(ctx)
			return err
		})
		if err := g.Wait(); err != nil {
			return fmt.Errorf("loading games: %w", err)
		}

		current := settings.String(dto.SettingGameID)
		green := color.New(color.FgGreen).SprintFunc()
		for _, game := range games {
			marker := " "
			name := game.Name
			if game.GameID == current {
				marker = "*"
				name = green(name)
			}
			fmt.Printf("%s %-10s %s\n", marker, game.GameID, name)
		}
		return nil
	},
}

var gameCmd = &cobra.Command{
	Use:   "game [game-id]",
	Short: "Show a game's paths, packs and profiles",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		gameID, err := resolveGameID(ctx, args)
		if err != nil {
			return err
		}

		db, cache, err := openCache()
		if err != nil {
			return err
		}
		defer db.Close()

		game, err := loadGame(ctx, cache, gameID)
		if err != nil {
			return err
		}
		printGame(game)

		if out, _ := cmd.Flags().GetString("cover"); out != "" {
			if err := saveCover(ctx, cache, gameID, out); err != nil {
				return err
			}
			fmt.Println("Cover saved to", out)
		}
		return nil
	},
}

func init() {
	gameCmd.Flags().String("cover", "", "write the game's cover image to this file")
}

// resolveGameID returns the argument, or the backend's current game.
func resolveGameID(ctx context.Context, args []string) (string, error) {
	if len(args) > 0 && args[0] != "" {
		return args[0], nil
	}
	settings, err := client.GetState(ctx)
	if err != nil {
		return "", fmt.Errorf("loading settings: %w", err)
	}
	gameID := settings.String(dto.SettingGameID)
	if gameID == "" {
		return "", fmt.Errorf("no game selected; pass a game id")
	}
	return gameID, nil
}

// loadGame fetches the game and keeps the payload in the cache, so the last
// known state is shown when the backend is unreachable.
func loadGame(ctx context.Context, cache *safe.Safe, gameID string) (*dto.GameResponse, error) {
	key := "game/" + gameID + ".json"

	game, err := client.GetGame(ctx, gameID)
	if err == nil {
		if data, merr := json.Marshal(game); merr == nil {
			if _, perr := cache.Put(key, data); perr != nil {
				logger.Warn("caching game payload", zap.Error(perr))
			}
		}
		return game, nil
	}

	data, cerr := cache.Lookup(key)
	if cerr != nil {
		return nil, fmt.Errorf("loading game %s: %w", gameID, err)
	}
	var cached dto.GameResponse
	if jerr := json.Unmarshal(data, &cached); jerr != nil {
		return nil, fmt.Errorf("loading game %s: %w", gameID, err)
	}
	color.New(color.FgYellow).Fprintf(os.Stderr, "backend unavailable (%v), showing cached data\n", err)
	cached = dto.EnsureGameResponse(cached)
	return &cached, nil
}

func saveCover(ctx context.Context, cache *safe.Safe, gameID, out string) error {
	cover, ok := dto.GameImage(gameID)
	if !ok {
		return fmt.Errorf("no cover for game %s", gameID)
	}

	data, err := cache.Lookup(cover)
	if err != nil {
		data, err = client.FetchAsset(ctx, cover)
		if err != nil {
			return fmt.Errorf("fetching cover: %w", err)
		}
		if _, err := cache.Put(cover, data); err != nil {
			logger.Warn("caching cover", zap.Error(err))
		}
	}
	return os.WriteFile(out, data, 0644)
}

func printGame(game *dto.GameResponse) {
	bold := color.New(color.Bold).SprintFunc()
	green := color.New(color.FgGreen).SprintFunc()
	yellow := color.New(color.FgYellow).SprintFunc()
	blue := color.New(color.FgBlue).SprintFunc()

	fmt.Printf("%s %s\n", bold("Game"), game.GameID)
	fmt.Printf("  game path:  %s\n", orNone(&game.GamePath))
	fmt.Printf("  mods path:  %s\n", orNone(&game.ModsPath))
	fmt.Printf("  saves path: %s\n", orNone(game.SavesPath))
	fmt.Printf("  workshop:   %s\n", orNone(game.WorkshopPath))

	fmt.Printf("\n%s (%d)\n", bold("Packs"), len(game.Mods))
	for _, p := range game.Mods {
		source := ""
		if p.FromSteamWorkshop {
			source = blue(" [workshop]")
		}
		fmt.Printf("  %s%s\n", p.Name, source)
	}

	fmt.Printf("\n%s (%d)\n", bold("Profiles"), len(game.Profiles))
	for _, p := range game.Profiles {
		name := p.Name
		if p.Default {
			name = green(name + " (default)")
		}
		mode := ""
		if p.ManualMode {
			mode = yellow(" manual order")
		}
		enabled := 0
		for _, m := range p.Mods {
			if m.Enabled {
				enabled++
			}
		}
		fmt.Printf("  %s  %d/%d enabled%s\n", name, enabled, len(p.Mods), mode)
	}
}

func orNone(s *string) string {
	if s == nil || *s == "" {
		return "-"
	}
	return *s
}
