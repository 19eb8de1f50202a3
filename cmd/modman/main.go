// cmd/modman/main.go
package main

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/dgraph-io/badger/v4"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"modman/internal/bridge"
	"modman/internal/config"
	"modman/internal/logging"
	"modman/internal/safe"
	"modman/internal/storage"
)

var (
	cfg     = config.Default()
	logger  = logging.Nop()
	client  *bridge.Client
	cfgPath string
	backend string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "modman",
	Short: "modman manages mod profiles for Total War games",
	Long: `modman talks to the mod manager backend to inspect games, edit mod
profiles with undo and redo, and follow backend events.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		logger, err = logging.NewDevelopment(verbose)
		if err != nil {
			return fmt.Errorf("initializing logger: %w", err)
		}

		cfg, err = loadConfig(cfgPath)
		if err != nil {
			return err
		}
		if backend != "" {
			cfg.Backend.URL = backend
		}

		client = bridge.New(cfg.Backend.URL,
			bridge.WithLogger(logger.Logger),
			bridge.WithHTTPClient(&http.Client{Timeout: cfg.BackendTimeout()}),
		)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "config file (default from MODMAN_ENV)")
	rootCmd.PersistentFlags().StringVarP(&backend, "backend", "b", "", "backend URL, overrides the config")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log debug output")

	rootCmd.AddCommand(gamesCmd)
	rootCmd.AddCommand(gameCmd)
	rootCmd.AddCommand(profileCmd)
	rootCmd.AddCommand(settingsCmd)
	rootCmd.AddCommand(startCmd)
	rootCmd.AddCommand(listenCmd)
	rootCmd.AddCommand(positionCmd)
}

// loadConfig reads path, or the MODMAN_ENV config when path is empty. A
// missing default config falls back to the built-in defaults.
func loadConfig(path string) (*config.Config, error) {
	explicit := path != ""
	if !explicit {
		path = config.Path()
	}

	c, err := config.Load(path)
	if err == nil {
		return c, nil
	}
	if !explicit && errors.Is(err, os.ErrNotExist) {
		logger.Debug("no config file, using defaults", zap.String("path", path))
		return config.Default(), nil
	}
	return nil, fmt.Errorf("loading config: %w", err)
}

// openCache opens the local database and the blob cache on top of it.
func openCache() (*badger.DB, *safe.Safe, error) {
	db, err := storage.Open(cfg.Database.Path)
	if err != nil {
		return nil, nil, err
	}

	root := cfg.Cache.Path
	if root == "" {
		dir, err := os.UserCacheDir()
		if err != nil {
			dir = os.TempDir()
		}
		root = filepath.Join(dir, "modman")
	}

	s, err := safe.New(db, safe.Options{Root: root, CacheSize: cfg.Cache.Size})
	if err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("opening cache: %w", err)
	}
	return db, s, nil
}

func printColoredDiff(diff string) {
	added := color.New(color.FgGreen)
	removed := color.New(color.FgRed)
	header := color.New(color.FgCyan)

	lines := strings.Split(strings.TrimRight(diff, "\n"), "\n")
	for _, line := range lines {
		if len(line) == 0 {
			fmt.Println()
			continue
		}

		switch {
		case strings.HasPrefix(line, "@@"):
			header.Println(line)
		case strings.HasPrefix(line, "+"):
			added.Println(line)
		case strings.HasPrefix(line, "-"):
			removed.Println(line)
		default:
			fmt.Println(line)
		}
	}
}

func main() {
	defer func() { logger.Sync() }()
	if err := rootCmd.Execute(); err != nil {
		color.New(color.FgRed).Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
