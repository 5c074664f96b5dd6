package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/tokenbar/tokenbar/internal/config"
)

// newLogger returns the process logger. Debug output is opt-in: set
// TOKENBAR_DEBUG to see it on stderr, otherwise everything is discarded
// so the TUI owns the terminal.
func newLogger() *slog.Logger {
	if os.Getenv("TOKENBAR_DEBUG") != "" {
		return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
	}
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func main() {
	logger := newLogger()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		fmt.Fprintf(os.Stderr, "Config path: %s\n", config.ConfigPath())
		os.Exit(1)
	}

	root := cobra.Command{
		Use:   "tokenbar",
		Short: "Tokenbar is a terminal dashboard for your local Claude Code token usage and spend.",
		Run: func(_ *cobra.Command, _ []string) {
			runMonitor(cfg, logger)
		},
	}

	root.AddCommand(NewReportCommand(cfg, logger))
	root.AddCommand(NewCacheCommand(cfg, logger))
	root.AddCommand(NewVersionCommand())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}
