package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"modman/internal/backend"
	"modman/internal/config"
	"modman/internal/logging"
	"modman/internal/storage"
)

var (
	cfgPath string
	assets  string
)

var rootCmd = &cobra.Command{
	Use:   "devbackend",
	Short: "Serve the mod manager commands over HTTP for development",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		serve()
	},
}

func main() {
	rootCmd.Flags().StringVarP(&cfgPath, "config", "c", config.Path(), "config file")
	rootCmd.Flags().StringVar(&assets, "assets", "", "directory served under /images/")
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serve() {
	cfg, err := config.Load(cfgPath)
	if errors.Is(err, os.ErrNotExist) {
		cfg, err = config.Default(), nil
	}
	if err != nil {
		log.Fatal("failed to load config:", err)
	}

	logger, err := logging.NewLogger(cfg.LogLevel)
	if err != nil {
		log.Fatal("failed to initialize logger:", err)
	}
	defer logger.Sync()

	db, err := storage.Open(cfg.Database.Path)
	if err != nil {
		logger.Fatal("failed to open database", zap.Error(err))
	}
	defer db.Close()

	srv := backend.New(db, logger, backend.Options{
		Settings:  cfg.UserSettings,
		AssetsDir: assets,
	})
	defer srv.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := config.Watch(ctx, cfgPath, logger.Logger, config.PushSettings(srv.Settings())); err != nil {
			logger.Warn("config watcher stopped", zap.Error(err))
		}
	}()

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Close()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("shutdown failed", zap.Error(err))
		}
	}()

	logger.Info("starting server", zap.String("address", addr))
	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal("server failed", zap.Error(err))
	}
}
