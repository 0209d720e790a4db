package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/versehub/internal/formatter"
	"github.com/desertthunder/versehub/internal/tasks"
)

// Import runs the import pipeline for one location, streaming stage changes to the output.
func (r *Runner) Import(ctx context.Context, cmd *cli.Command) error {
	location, err := requireArg(cmd, "location")
	if err != nil {
		return err
	}

	opts := tasks.ImportOptions{
		RepositoryURL:     location,
		ValidateChecksums: cmd.Bool("checksums"),
		OverwriteExisting: cmd.Bool("overwrite"),
		DownloadAudio:     cmd.Bool("audio"),
	}
	if cmd.Bool("tui") {
		return r.runTUI(ctx, opts)
	}

	lib, err := r.library(ctx)
	if err != nil {
		return err
	}

	r.logger.Info("starting import", "location", location, "checksums", opts.ValidateChecksums, "overwrite", opts.OverwriteExisting)
	asJSON := cmd.Bool("json")

	progressCh := make(chan tasks.ProgressUpdate, 50)
	done := make(chan struct{})
	go func() {
		defer close(done)
		var stage tasks.Stage
		for update := range progressCh {
			if asJSON {
				continue
			}
			if update.Stage != stage {
				stage = update.Stage
				r.writePlain("\n▶ %s\n", stage)
			}
			if update.Message != "" {
				r.writePlain("  [%3d%%] %s\n", update.Progress, update.Message)
			}
		}
	}()

	result := lib.ImportRepository(ctx, opts, progressCh)
	close(progressCh)
	<-done

	if asJSON {
		if err := r.writeJSON(result, true); err != nil {
			return err
		}
	} else {
		r.writePlain("\n")
		r.writePlainHeader("Import Summary")
		if err := r.writeBytes(formatter.ImportReport(result)); err != nil {
			return err
		}
	}

	if !result.Success {
		if len(result.Errors) > 0 {
			return fmt.Errorf("import failed: %s", result.Errors[0])
		}
		return fmt.Errorf("import failed")
	}
	return nil
}
