// Package backend is an in-process implementation of the native commands. It
// serves the same /invoke and /events surface as the desktop backend so the
// CLI and tests can run without it.
package backend

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"io"
	"net/http"
	"os"
	"sync"

	"github.com/dgraph-io/badger/v4"
	"go.uber.org/zap"

	"modman/internal/bridge"
	"modman/internal/dto"
	"modman/internal/errors"
	"modman/internal/logging"
	"modman/internal/middleware"
	"modman/internal/reactive"
	"modman/internal/storage"
	"modman/internal/store"
	"modman/internal/validation"
)

const maxArgsSize = 1 << 20

// Launcher starts a game. The default one only logs.
type Launcher func(ctx context.Context, game dto.GameResponse) error

type Options struct {
	// Settings seeds the user settings; DefaultSettings when nil.
	Settings dto.UserSettings
	Launcher Launcher
	// AssetsDir is served under /images/ when set.
	AssetsDir string
}

type commandFunc func(ctx context.Context, args []byte) (any, error)

type Server struct {
	games    *storage.BadgerStore[dto.GameResponse]
	settings *store.SettingsStore
	hub      *Hub
	launcher Launcher
	assets   string
	logger   *logging.Logger
	commands map[string]commandFunc
	sub      *reactive.Subscription

	// mu serializes read-modify-write cycles on games.
	mu sync.Mutex
}

func New(db *badger.DB, logger *logging.Logger, opts Options) *Server {
	if logger == nil {
		logger = logging.Nop()
	}
	settings := opts.Settings
	if settings == nil {
		settings = DefaultSettings()
	}

	s := &Server{
		games:    storage.NewBadgerStore[dto.GameResponse](db, "game"),
		settings: store.NewSettingsStore(),
		hub:      NewHub(logger),
		launcher: opts.Launcher,
		assets:   opts.AssetsDir,
		logger:   logger,
	}
	s.settings.SetSettings(settings)
	// Every settings change, from a command or a config reload, reaches
	// the listeners.
	s.sub = s.settings.State().Watch(func(settings dto.UserSettings) {
		if err := s.hub.Publish(bridge.EventUserSettings, settings); err != nil {
			logger.Warn("publishing settings", zap.Error(err))
		}
	})
	if s.launcher == nil {
		s.launcher = func(ctx context.Context, game dto.GameResponse) error {
			logger.WithRequestID(ctx).Info("launching game",
				zap.String("game_id", game.GameID),
				zap.String("game_path", game.GamePath),
			)
			return nil
		}
	}

	s.commands = map[string]commandFunc{
		bridge.CmdGetState:          s.getState,
		bridge.CmdSetUserSettings:   s.setUserSettings,
		bridge.CmdCheckPathExists:   s.checkPathExists,
		bridge.CmdGetSupportedGames: s.getSupportedGames,
		bridge.CmdGetGame:           s.getGame,
		bridge.CmdCreateProfile:     s.createProfile,
		bridge.CmdUpdateProfile:     s.updateProfile,
		bridge.CmdRenameProfile:     s.renameProfile,
		bridge.CmdSetDefaultProfile: s.setDefaultProfile,
		bridge.CmdDeleteProfile:     s.deleteProfile,
		bridge.CmdStartGame:         s.startGame,
	}
	return s
}

// Hub returns the event hub, for publishing events from outside a command.
func (s *Server) Hub() *Hub {
	return s.hub
}

func (s *Server) Settings() *store.SettingsStore {
	return s.settings
}

// Handler returns the HTTP surface wrapped in the middleware chain.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", healthCheck)
	mux.HandleFunc("POST /invoke/{command}", s.handleInvoke)
	mux.Handle("GET /events", s.hub)
	if s.assets != "" {
		mux.Handle("GET /images/", http.StripPrefix("/images/", http.FileServer(http.Dir(s.assets))))
	}

	return middleware.Chain(
		mux,
		middleware.Recover(s.logger),
		middleware.Logger(s.logger),
		middleware.RequestID,
	)
}

// Close disconnects event listeners.
func (s *Server) Close() {
	s.sub.Stop()
	s.hub.Close()
}

func (s *Server) handleInvoke(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("command")
	cmd, ok := s.commands[name]
	if !ok {
		s.writeError(w, r, errors.NotFoundf("unknown command %q", name))
		return
	}

	args, err := io.ReadAll(io.LimitReader(r.Body, maxArgsSize))
	if err != nil {
		s.writeError(w, r, errors.ValidationError("invalid request body", nil))
		return
	}

	result, err := cmd(r.Context(), args)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(result)
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var e *errors.Error
	if !stderrors.As(err, &e) {
		s.logger.WithRequestID(r.Context()).Error("command failed",
			zap.String("command", r.PathValue("command")),
			zap.Error(err),
		)
		e = errors.Internal(err.Error())
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(e.Code)
	json.NewEncoder(w).Encode(e)
}

func healthCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"healthy"}`))
}

func (s *Server) getState(ctx context.Context, args []byte) (any, error) {
	return s.settings.Settings(), nil
}

func (s *Server) setUserSettings(ctx context.Context, args []byte) (any, error) {
	var req bridge.SettingsArgs
	if err := validation.Decode(args, &req); err != nil {
		return nil, err
	}

	s.settings.SetSettings(req.Settings)
	return s.settings.Settings(), nil
}

func (s *Server) checkPathExists(ctx context.Context, args []byte) (any, error) {
	var req bridge.PathArgs
	if err := validation.Decode(args, &req); err != nil {
		return nil, err
	}
	_, err := os.Stat(req.Path)
	return err == nil, nil
}

func (s *Server) startGame(ctx context.Context, args []byte) (any, error) {
	var req bridge.GameArgs
	if err := validation.Decode(args, &req); err != nil {
		return nil, err
	}

	s.mu.Lock()
	game, err := s.loadGame(req.GameID)
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return nil, s.launcher(ctx, game)
}
