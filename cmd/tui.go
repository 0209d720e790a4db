package main

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/urfave/cli/v3"

	"github.com/desertthunder/versehub/internal/shared"
	"github.com/desertthunder/versehub/internal/tasks"
	"github.com/desertthunder/versehub/internal/ui"
)

const defaultTUILog = "./tmp/versehub-tui.log"

// TUI launches the interactive terminal UI for browsing and importing repositories.
func (r *Runner) TUI(ctx context.Context, cmd *cli.Command) error {
	return r.runTUI(ctx, tasks.ImportOptions{ValidateChecksums: true})
}

func (r *Runner) runTUI(ctx context.Context, opts tasks.ImportOptions) error {
	config, err := r.loadConfig()
	if err != nil {
		return err
	}

	// Redirect logs to file to avoid interfering with TUI rendering
	path := config.Log.File
	if path == "" {
		path = defaultTUILog
	}
	fileLogger, err := shared.NewFileLogger(path)
	if err != nil {
		return fmt.Errorf("failed to create file logger: %w", err)
	}
	fileLogger.SetLevel(r.logger.GetLevel())
	r.SetLogger(fileLogger)

	lib, err := r.library(ctx)
	if err != nil {
		return err
	}

	model := ui.NewModel(ctx, lib, opts)
	p := tea.NewProgram(model, tea.WithContext(ctx))

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("error running TUI: %w", err)
	}

	if result := model.Result(); result != nil && !result.Success {
		return fmt.Errorf("import failed")
	}
	return nil
}
