package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"modman/internal/bridge"
	"modman/internal/dto"
	"modman/internal/editor"
	"modman/internal/history"
	"modman/internal/storage"
	"modman/internal/store"
)

var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Manage mod profiles",
}

var createProfileCmd = &cobra.Command{
	Use:   "create <name>",
	Short: "Create an empty profile",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		gameID, err := gameFlag(cmd)
		if err != nil {
			return err
		}
		makeDefault, _ := cmd.Flags().GetBool("default")

		p, err := client.CreateProfile(cmd.Context(), dto.ProfileRequest{
			GameID:  gameID,
			Name:    args[0],
			Default: dto.Ptr(makeDefault),
			Mods:    []dto.ModRequest{},
		})
		if err != nil {
			return fmt.Errorf("creating profile: %w", err)
		}
		fmt.Println("Created profile", p.Name)
		return nil
	},
}

var renameProfileCmd = &cobra.Command{
	Use:   "rename <old> <new>",
	Short: "Rename a profile",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		gameID, err := gameFlag(cmd)
		if err != nil {
			return err
		}
		if _, err := client.RenameProfile(cmd.Context(), gameID, args[0], args[1]); err != nil {
			return fmt.Errorf("renaming profile: %w", err)
		}
		fmt.Printf("Renamed %s to %s\n", args[0], args[1])
		return nil
	},
}

var defaultProfileCmd = &cobra.Command{
	Use:   "default <name>",
	Short: "Make a profile the game's default",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		gameID, err := gameFlag(cmd)
		if err != nil {
			return err
		}
		if err := client.SetDefaultProfile(cmd.Context(), gameID, args[0]); err != nil {
			return fmt.Errorf("setting default profile: %w", err)
		}
		fmt.Println("Default profile is now", args[0])
		return nil
	},
}

var deleteProfileCmd = &cobra.Command{
	Use:   "delete <name>",
	Short: "Delete a profile",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		gameID, err := gameFlag(cmd)
		if err != nil {
			return err
		}
		if err := client.DeleteProfile(cmd.Context(), gameID, args[0]); err != nil {
			return fmt.Errorf("deleting profile: %w", err)
		}
		fmt.Println("Deleted profile", args[0])
		return nil
	},
}

var editProfileCmd = &cobra.Command{
	Use:   "edit [name]",
	Short: "Edit a profile interactively with undo and redo",
	Long: `Opens an editing session on a profile. Without a name the profile
edited last is reopened, or the game's default profile.

Commands: list, toggle <mod>, move <mod> <position>, manual on|off,
add <pack>, remove <mod>, undo, redo, diff, save, cancel, quit.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		gameID, err := gameFlag(cmd)
		if err != nil {
			return err
		}

		db, err := storage.Open(cfg.Database.Path)
		if err != nil {
			return err
		}
		defer db.Close()

		prefs, err := store.OpenPreferencesStore(storage.NewBadgerStore[store.Preferences](db, "preferences"), logger.Logger)
		if err != nil {
			return err
		}
		defer prefs.Close()
		remembered := prefs.Get()

		games := store.NewGameStore()
		sub := store.BindCurrentGame(prefs, games, client, cfg.BackendTimeout(), logger.Logger)
		defer sub.Stop()

		prefs.SetCurrentGame(&gameID)
		if games.Get().CurrentGame == nil {
			return fmt.Errorf("could not load game %s", gameID)
		}

		name := ""
		switch {
		case len(args) > 0:
			name = args[0]
		case remembered.CurrentGame != nil && *remembered.CurrentGame == gameID && remembered.CurrentProfile != nil:
			name = *remembered.CurrentProfile
		case games.Get().SelectedProfile != nil:
			name = *games.Get().SelectedProfile
		}
		games.SetProfile(&name)

		profile, ok := games.Profile()
		if !ok {
			return fmt.Errorf("profile %q not found for game %s", name, gameID)
		}
		prefs.SetCurrentProfile(&name)

		session := editor.New(gameID, profile, client,
			editor.WithLogger(logger.Logger),
			editor.WithLimit(cfg.History.Limit),
		)
		defer session.Close()

		return runEditor(cmd.Context(), session, games.GameMods(), os.Stdin)
	},
}

var (
	_ editor.Saver      = (*bridge.Client)(nil)
	_ store.GameFetcher = (*bridge.Client)(nil)
)

func init() {
	profileCmd.PersistentFlags().StringP("game", "g", "", "game id (default: the backend's current game)")
	createProfileCmd.Flags().Bool("default", false, "make the new profile the default")

	profileCmd.AddCommand(createProfileCmd)
	profileCmd.AddCommand(renameProfileCmd)
	profileCmd.AddCommand(defaultProfileCmd)
	profileCmd.AddCommand(deleteProfileCmd)
	profileCmd.AddCommand(editProfileCmd)
}

func gameFlag(cmd *cobra.Command) (string, error) {
	gameID, _ := cmd.Flags().GetString("game")
	return resolveGameID(cmd.Context(), []string{gameID})
}

func runEditor(ctx context.Context, s *editor.Session, packs []dto.PackResponse, in io.Reader) error {
	prompt := color.New(color.FgCyan).SprintFunc()
	warn := color.New(color.FgYellow)

	printProfile(s.Profile())
	scanner := bufio.NewScanner(in)
	for {
		fmt.Print(prompt(fmt.Sprintf("%s%s> ", s.Profile().Name, stateMarks(s.State(), s.Dirty()))))
		if !scanner.Scan() {
			break
		}
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}

		var err error
		switch fields[0] {
		case "list", "ls":
			printProfile(s.Profile())
		case "toggle", "t":
			err = withArg(fields, 1, func(a []string) error { return s.Toggle(a[0]) })
		case "move", "mv":
			err = withArg(fields, 2, func(a []string) error {
				pos, perr := strconv.Atoi(a[1])
				if perr != nil {
					return fmt.Errorf("position must be a number: %s", a[1])
				}
				return s.Move(a[0], pos)
			})
		case "manual":
			err = withArg(fields, 1, func(a []string) error {
				s.SetManualMode(a[0] == "on" || a[0] == "true")
				return nil
			})
		case "add":
			err = withArg(fields, 1, func(a []string) error {
				for _, p := range packs {
					if p.Name == a[0] {
						return s.Add(p)
					}
				}
				return fmt.Errorf("pack %s is not installed", a[0])
			})
		case "remove", "rm":
			err = withArg(fields, 1, func(a []string) error { return s.Remove(a[0]) })
		case "undo", "u":
			if !s.CanUndo() {
				warn.Println("nothing to undo")
			}
			s.Undo()
		case "redo", "r":
			if !s.CanRedo() {
				warn.Println("nothing to redo")
			}
			s.Redo()
		case "diff", "d":
			d, derr := s.Diff()
			if derr != nil {
				err = derr
			} else if d.Empty() {
				fmt.Println("no changes")
			} else {
				printColoredDiff(d.Format())
			}
		case "save", "w":
			if err = s.Save(ctx); err == nil {
				color.New(color.FgGreen).Println("saved")
			}
		case "cancel":
			s.Discard()
			fmt.Println("changes discarded")
		case "quit", "q", "exit":
			if s.Dirty() {
				warn.Println("unsaved changes dropped")
			}
			return nil
		default:
			err = fmt.Errorf("unknown command %q", fields[0])
		}

		if err != nil {
			color.New(color.FgRed).Println(err)
		}
	}
	return scanner.Err()
}

func withArg(fields []string, n int, fn func(args []string) error) error {
	if len(fields)-1 < n {
		return fmt.Errorf("%s needs %d argument(s)", fields[0], n)
	}
	return fn(fields[1:])
}

func stateMarks(st history.State, dirty bool) string {
	marks := ""
	if dirty {
		marks += "*"
	}
	if st.Len > 1 {
		marks += fmt.Sprintf(" [%d/%d]", st.Index+1, st.Len)
	}
	return marks
}

func printProfile(p dto.ProfileResponse) {
	green := color.New(color.FgGreen).SprintFunc()
	faint := color.New(color.Faint).SprintFunc()

	mode := "automatic order"
	if p.ManualMode {
		mode = "manual order"
	}
	fmt.Printf("%s (%s)\n", p.Name, mode)
	for i, m := range p.Mods {
		box := "[ ]"
		if m.Enabled {
			box = green("[x]")
		}
		name := m.Name
		if !m.CanEnable {
			name = faint(name + " (missing)")
		}
		fmt.Printf("  %2d %s %s\n", i, box, name)
	}
}
