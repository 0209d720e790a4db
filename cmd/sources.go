package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/versehub/internal/formatter"
	"github.com/desertthunder/versehub/internal/services"
	"github.com/desertthunder/versehub/internal/shared"
)

// SourcesList prints the configured sources with tokens redacted.
func (r *Runner) SourcesList(ctx context.Context, cmd *cli.Command) error {
	lib, err := r.library(ctx)
	if err != nil {
		return err
	}

	sources, err := lib.GetSources()
	if err != nil {
		return err
	}
	for i := range sources {
		if sources[i].Token != "" {
			sources[i].Token = "redacted"
		}
	}

	if cmd.Bool("json") {
		return r.writeJSON(sources, true)
	}

	if len(sources) == 0 {
		return r.writePlain("No sources configured.\n")
	}
	for _, s := range sources {
		state := "enabled"
		if !s.Enabled {
			state = "disabled"
		}
		r.writePlain("%-20s %-12s %-9s %s\n", s.Name, s.Type, state, s.URL)
	}
	return nil
}

// SourcesAdd registers a new source.
func (r *Runner) SourcesAdd(ctx context.Context, cmd *cli.Command) error {
	name := cmd.StringArg("name")
	url := cmd.StringArg("url")
	if name == "" || url == "" {
		return fmt.Errorf("%w: name and url are required", shared.ErrMissingArgument)
	}

	lib, err := r.library(ctx)
	if err != nil {
		return err
	}

	src := services.RepositorySource{
		Name:    name,
		Type:    services.SourceType(cmd.String("type")),
		URL:     url,
		Enabled: !cmd.Bool("disabled"),
		Token:   cmd.String("token"),
	}
	if err := lib.AddSource(ctx, src); err != nil {
		return fmt.Errorf("failed to add source: %w", err)
	}

	r.logger.Info("source added", "name", name, "type", src.Type)
	return r.writePlain("✓ Source added: %s\n", name)
}

// SourcesRemove deletes a source.
func (r *Runner) SourcesRemove(ctx context.Context, cmd *cli.Command) error {
	name, err := requireArg(cmd, "name")
	if err != nil {
		return err
	}

	lib, err := r.library(ctx)
	if err != nil {
		return err
	}
	if err := lib.RemoveSource(ctx, name); err != nil {
		return fmt.Errorf("failed to remove source: %w", err)
	}
	return r.writePlain("✓ Source removed: %s\n", name)
}

// SourcesEnable enables a source.
func (r *Runner) SourcesEnable(ctx context.Context, cmd *cli.Command) error {
	return r.toggleSource(ctx, cmd, true)
}

// SourcesDisable disables a source.
func (r *Runner) SourcesDisable(ctx context.Context, cmd *cli.Command) error {
	return r.toggleSource(ctx, cmd, false)
}

func (r *Runner) toggleSource(ctx context.Context, cmd *cli.Command, enabled bool) error {
	name, err := requireArg(cmd, "name")
	if err != nil {
		return err
	}

	lib, err := r.library(ctx)
	if err != nil {
		return err
	}
	if err := lib.EnableSource(ctx, name, enabled); err != nil {
		return fmt.Errorf("failed to update source: %w", err)
	}

	state := "enabled"
	if !enabled {
		state = "disabled"
	}
	return r.writePlain("✓ Source %s: %s\n", state, name)
}

// Discover lists repositories from every enabled source.
func (r *Runner) Discover(ctx context.Context, cmd *cli.Command) error {
	lib, err := r.library(ctx)
	if err != nil {
		return err
	}

	entries, err := lib.DiscoverRepositories(ctx)
	if err != nil {
		return fmt.Errorf("discovery failed: %w", err)
	}

	if cmd.Bool("json") {
		return r.writeJSON(entries, true)
	}

	if len(entries) == 0 {
		return r.writePlain("No repositories found.\n")
	}

	r.writePlainHeader(fmt.Sprintf("%d repositories", len(entries)))
	for _, e := range entries {
		mark := " "
		if e.Verified {
			mark = "✓"
		}
		r.writePlain("%s %-12s %-40s %-6s %s\n", mark, e.ID, e.Name, e.Language, e.URL)
	}
	return nil
}

// Manifest fetches a manifest and prints it as JSON.
func (r *Runner) Manifest(ctx context.Context, cmd *cli.Command) error {
	location, err := requireArg(cmd, "location")
	if err != nil {
		return err
	}

	lib, err := r.library(ctx)
	if err != nil {
		return err
	}

	manifest, err := lib.GetManifest(ctx, location)
	if err != nil {
		return fmt.Errorf("failed to fetch manifest: %w", err)
	}
	return r.writeJSON(manifest, cmd.Bool("pretty"))
}

// Validate verifies a manifest and returns an error when it is invalid.
func (r *Runner) Validate(ctx context.Context, cmd *cli.Command) error {
	location, err := requireArg(cmd, "location")
	if err != nil {
		return err
	}

	lib, err := r.library(ctx)
	if err != nil {
		return err
	}

	result, err := lib.ValidateRepositoryURL(ctx, location)
	if err != nil {
		return fmt.Errorf("failed to validate %s: %w", location, err)
	}

	if cmd.Bool("json") {
		err = r.writeJSON(result, true)
	} else {
		err = r.writeBytes(formatter.VerificationReport(location, result))
	}
	if err != nil {
		return err
	}

	if !result.Valid {
		return fmt.Errorf("%w: %s has %d errors", shared.ErrValidation, location, len(result.Errors))
	}
	return nil
}

// Scan finds repository packages under a local directory.
func (r *Runner) Scan(ctx context.Context, cmd *cli.Command) error {
	dir, err := requireArg(cmd, "dir")
	if err != nil {
		return err
	}

	lib, err := r.library(ctx)
	if err != nil {
		return err
	}

	result, err := lib.ScanDirectory(ctx, dir)
	if err != nil {
		return fmt.Errorf("scan failed: %w", err)
	}

	if cmd.Bool("json") {
		return r.writeJSON(result, true)
	}

	if len(result.Candidates) == 0 {
		r.writePlain("No repository packages found under %s\n", dir)
	}
	for _, c := range result.Candidates {
		r.writeBytes(formatter.VerificationReport(c.Path, c.Validation))
	}
	for _, e := range result.Errors {
		r.writePlain("  ✗ %s\n", e)
	}
	return nil
}

func requireArg(cmd *cli.Command, name string) (string, error) {
	v := cmd.StringArg(name)
	if v == "" {
		return "", fmt.Errorf("%w: %s", shared.ErrMissingArgument, name)
	}
	return v, nil
}
