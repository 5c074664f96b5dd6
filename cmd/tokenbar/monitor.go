package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/tokenbar/tokenbar/internal/appupdate"
	"github.com/tokenbar/tokenbar/internal/config"
	"github.com/tokenbar/tokenbar/internal/refresh"
	"github.com/tokenbar/tokenbar/internal/tui"
	"github.com/tokenbar/tokenbar/internal/version"
	"github.com/tokenbar/tokenbar/internal/watch"
)

func runMonitor(cfg config.Config, logger *slog.Logger) {
	p := buildPipeline(cfg, logger, true)
	defer p.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	model := tui.NewModel()
	model.SetOnRefresh(p.controller.TriggerNow)

	program := tea.NewProgram(model, tea.WithAltScreen(), tea.WithMouseCellMotion())

	p.controller.OnUpdate(func(u refresh.Update) {
		program.Send(tui.UpdateMsg(u))
	})
	go p.controller.Run(ctx)

	watcher := watch.New(cfg.DataDirs, watch.DefaultDebounce, p.controller.TriggerNow, logger)
	if err := watcher.Start(); err != nil {
		logger.Debug("watcher unavailable, relying on the refresh ticker", "error", err)
	} else {
		defer watcher.Stop()
	}

	if !cfg.DisableUpdateCheck {
		go func() {
			res, err := appupdate.Check(ctx, appupdate.CheckOptions{CurrentVersion: version.Version})
			if err != nil {
				logger.Debug("update check failed", "error", err)
				return
			}
			program.Send(tui.CheckResultMsg(res))
		}()
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
		program.Quit()
	}()

	if _, err := program.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "TUI error: %v\n", err)
		os.Exit(1)
	}
}
