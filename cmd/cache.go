package main

import (
	"context"

	"github.com/urfave/cli/v3"
)

// CacheClear drops every cached manifest so the next discovery or import refetches.
func (r *Runner) CacheClear(ctx context.Context, cmd *cli.Command) error {
	lib, err := r.library(ctx)
	if err != nil {
		return err
	}

	if err := lib.ClearCache(); err != nil {
		return err
	}

	r.logger.Debug("manifest cache cleared")
	r.writePlain("✓ Manifest cache cleared\n")
	return nil
}
