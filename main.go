// main.go - Entry point for the scanchat terminal client.
// Loads environment and configuration, wires the API clients over the
// persisted credential stores, and launches the Bubble Tea program.

package main

import (
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"

	"scanchat/src/app"
	"scanchat/src/config"
	"scanchat/src/services/api"
	"scanchat/src/services/storage"
	"scanchat/src/session"
)

func main() {
	// .env is optional; real deployments use SCANCHAT_* variables directly.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("loading configuration failed", "error", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel(cfg.Log.Level),
	}))
	slog.SetDefault(logger)
	logger.Info("starting scanchat", "api", cfg.API.BaseURL)

	creds := storage.NewCredStore(cfg.DataDir)
	adminCreds := storage.NewAdminCredStore(cfg.DataDir)

	client := api.NewClient(cfg.API.BaseURL, creds, cfg.API.Timeout)
	admClient := api.NewClient(cfg.API.BaseURL, adminCreds, cfg.API.Timeout)

	controller := session.NewController(client, logger)
	root := app.New(client, admClient, creds, adminCreds, controller, logger)

	program := tea.NewProgram(root, tea.WithAltScreen())
	setupGracefulShutdown(program, logger)

	if _, err := program.Run(); err != nil {
		logger.Error("application failed", "error", err)
		os.Exit(1)
	}
}

func logLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}

// setupGracefulShutdown quits the program cleanly on SIGINT/SIGTERM.
func setupGracefulShutdown(program *tea.Program, logger *slog.Logger) {
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-c
		logger.Info("received shutdown signal")
		program.Quit()
	}()
}
