package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/versehub/internal/shared"
)

// Setup creates the config file when missing, then initializes the database and runs migrations.
func (r *Runner) Setup(ctx context.Context, cmd *cli.Command) error {
	if r.config == nil && r.configPath != "" {
		if _, err := os.Stat(r.configPath); errors.Is(err, os.ErrNotExist) {
			r.logger.Info("config file not found, creating from template", "path", r.configPath)
			if err := shared.CreateConfigFile(r.configPath); err != nil {
				r.logger.Warn("failed to create config file, using defaults", "error", err)
			} else {
				r.writePlain("✓ Config file created: %s\n", r.configPath)
			}
		}
	}

	lib, err := r.library(ctx)
	if err != nil {
		return err
	}

	sources, err := lib.GetSources()
	if err != nil {
		return fmt.Errorf("failed to read sources: %w", err)
	}

	config := lib.Config()
	r.logger.Infof("setup complete for database: %v", config.Database.Path)
	r.writePlain("✓ Database ready: %s\n", config.Database.Path)
	r.writePlain("  Sources: %d\n", len(sources))
	return nil
}
