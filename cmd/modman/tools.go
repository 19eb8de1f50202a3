package main

import (
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"modman/internal/bridge"
	"modman/internal/dto"
	"modman/internal/floating"
)

var settingsCmd = &cobra.Command{
	Use:   "settings [key=value...]",
	Short: "Show or change user settings",
	Long: `Without arguments prints the backend's user settings. With key=value
pairs updates them; an empty value clears the setting.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		settings, err := client.GetState(ctx)
		if err != nil {
			return fmt.Errorf("loading settings: %w", err)
		}

		if len(args) > 0 {
			for _, arg := range args {
				key, value, ok := strings.Cut(arg, "=")
				if !ok {
					return fmt.Errorf("expected key=value, got %q", arg)
				}
				if value == "" {
					settings[dto.SettingKey(key)] = nil
				} else {
					settings[dto.SettingKey(key)] = value
				}
			}
			if settings, err = client.SetUserSettings(ctx, settings); err != nil {
				return fmt.Errorf("updating settings: %w", err)
			}
		}

		printSettings(settings)
		return nil
	},
}

var startCmd = &cobra.Command{
	Use:   "start [game-id]",
	Short: "Launch a game with its default profile",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		gameID, err := resolveGameID(cmd.Context(), args)
		if err != nil {
			return err
		}
		if err := client.StartGame(cmd.Context(), gameID); err != nil {
			return fmt.Errorf("starting game: %w", err)
		}
		fmt.Println("Started", gameID)
		return nil
	},
}

var listenCmd = &cobra.Command{
	Use:   "listen [pattern]",
	Short: "Print backend events until interrupted",
	Long:  `Prints events matching pattern (default "*"). A trailing * matches any suffix, e.g. "download/*".`,
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		pattern := "*"
		if len(args) > 0 {
			pattern = args[0]
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()

		name := color.New(color.FgCyan).SprintFunc()
		unlisten, err := client.Listen(ctx, pattern, func(e bridge.Event) {
			fmt.Printf("%s %s\n", name(e.Name), string(e.Payload))
		})
		if err != nil {
			return err
		}
		defer unlisten()

		fmt.Fprintf(os.Stderr, "listening for %s events, ctrl-c to stop\n", pattern)
		<-ctx.Done()
		return nil
	},
}

var positionCmd = &cobra.Command{
	Use:   "position",
	Short: "Compute where a floating panel goes next to its trigger",
	RunE: func(cmd *cobra.Command, args []string) error {
		trigger, err := floatsFlag(cmd, "trigger", 4)
		if err != nil {
			return err
		}
		panel, err := floatsFlag(cmd, "floating", 2)
		if err != nil {
			return err
		}
		viewport, err := floatsFlag(cmd, "viewport", 2)
		if err != nil {
			return err
		}

		opts := floating.Options{Direction: floating.Vertical}
		if h, _ := cmd.Flags().GetBool("horizontal"); h {
			opts.Direction = floating.Horizontal
		}
		if cmd.Flags().Changed("offset") {
			offset, _ := cmd.Flags().GetFloat64("offset")
			opts.Offset = &offset
		}

		p := floating.Position(
			floating.Rect{Top: trigger[0], Left: trigger[1], Width: trigger[2], Height: trigger[3]},
			floating.Rect{Width: panel[0], Height: panel[1]},
			floating.Size{Width: viewport[0], Height: viewport[1]},
			opts,
		)
		out, err := json.Marshal(p.Styles())
		if err != nil {
			return err
		}
		fmt.Println(string(out))
		return nil
	},
}

func init() {
	positionCmd.Flags().String("trigger", "", "trigger rect: top,left,width,height")
	positionCmd.Flags().String("floating", "", "floating panel size: width,height")
	positionCmd.Flags().String("viewport", "1920,1080", "viewport size: width,height")
	positionCmd.Flags().Bool("horizontal", false, "place beside the trigger instead of below")
	positionCmd.Flags().Float64("offset", floating.DefaultOffset, "gap between trigger and panel")
	positionCmd.MarkFlagRequired("trigger")
	positionCmd.MarkFlagRequired("floating")
}

func floatsFlag(cmd *cobra.Command, name string, n int) ([]float64, error) {
	raw, _ := cmd.Flags().GetString(name)
	parts := strings.Split(raw, ",")
	if len(parts) != n {
		return nil, fmt.Errorf("--%s needs %d comma separated numbers", name, n)
	}
	out := make([]float64, n)
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return nil, fmt.Errorf("--%s: %w", name, err)
		}
		out[i] = v
	}
	return out, nil
}

func printSettings(settings dto.UserSettings) {
	keys := make([]string, 0, len(settings))
	for k := range settings {
		keys = append(keys, string(k))
	}
	sort.Strings(keys)

	bold := color.New(color.Bold).SprintFunc()
	for _, k := range keys {
		v := settings[dto.SettingKey(k)]
		if v == nil {
			v = "-"
		}
		fmt.Printf("%-18s %v\n", bold(k), v)
	}
}

