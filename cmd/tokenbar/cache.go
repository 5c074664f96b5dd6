package main

import (
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/tokenbar/tokenbar/internal/config"
	"github.com/tokenbar/tokenbar/internal/filecache"
)

func NewCacheCommand(cfg config.Config, logger *slog.Logger) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the transcript parse cache.",
	}

	clear := &cobra.Command{
		Use:          "clear",
		Short:        "Remove every cached file entry, in memory and on disk.",
		SilenceUsage: true,
		RunE: func(_ *cobra.Command, _ []string) error {
			cache := filecache.New(filepath.Join(cfg.CacheDir, "logs"), int64(cfg.MemoryCacheMB)<<20, logger)
			n, err := cache.Clear()
			if err != nil {
				return fmt.Errorf("cache: clearing: %w", err)
			}
			fmt.Printf("Removed %d cached file entries.\n", n)
			return nil
		},
	}

	cmd.AddCommand(clear)
	return cmd
}
