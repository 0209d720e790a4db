package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"
)

// SettingsList prints every stored setting.
func (r *Runner) SettingsList(ctx context.Context, cmd *cli.Command) error {
	lib, err := r.library(ctx)
	if err != nil {
		return err
	}

	settings, err := lib.ListSettings(ctx)
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(settings, true)
	}
	if len(settings) == 0 {
		return r.writePlain("No settings stored.\n")
	}
	for _, s := range settings {
		r.writePlain("%-28s %s\n", s.Key, s.Value)
	}
	return nil
}

// SettingsGet prints one setting value.
func (r *Runner) SettingsGet(ctx context.Context, cmd *cli.Command) error {
	key, err := requireArg(cmd, "key")
	if err != nil {
		return err
	}

	lib, err := r.library(ctx)
	if err != nil {
		return err
	}

	value, err := lib.GetSetting(ctx, key)
	if err != nil {
		return err
	}
	return r.writePlain("%s\n", value)
}

// SettingsSet stores one setting value.
func (r *Runner) SettingsSet(ctx context.Context, cmd *cli.Command) error {
	key, err := requireArg(cmd, "key")
	if err != nil {
		return err
	}
	value := cmd.StringArg("value")

	lib, err := r.library(ctx)
	if err != nil {
		return err
	}

	if err := lib.SetSetting(ctx, key, value); err != nil {
		return fmt.Errorf("failed to save setting: %w", err)
	}
	return r.writePlain("✓ %s = %s\n", key, value)
}

// SettingsDelete removes one setting.
func (r *Runner) SettingsDelete(ctx context.Context, cmd *cli.Command) error {
	key, err := requireArg(cmd, "key")
	if err != nil {
		return err
	}

	lib, err := r.library(ctx)
	if err != nil {
		return err
	}

	if err := lib.DeleteSetting(ctx, key); err != nil {
		return fmt.Errorf("failed to delete setting: %w", err)
	}
	return r.writePlain("✓ %s deleted\n", key)
}
