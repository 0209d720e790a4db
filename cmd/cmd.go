// submodule cmd contains command definitions
package main

import "github.com/urfave/cli/v3"

func jsonFlag() cli.Flag {
	return &cli.BoolFlag{
		Name:  "json",
		Usage: "Output raw JSON",
	}
}

func stringArgs(names ...string) []cli.Argument {
	args := make([]cli.Argument, len(names))
	for i, name := range names {
		args[i] = &cli.StringArg{Name: name}
	}
	return args
}

// setupCommand creates the config file and initializes the database.
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "setup",
		Usage:  "Create config.toml if missing, initialize the database and run migrations",
		Action: r.Setup,
	}
}

// sourcesCommand manages repository sources.
func sourcesCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "sources",
		Usage: "Manage repository sources",
		Commands: []*cli.Command{
			{
				Name:    "list",
				Aliases: []string{"ls"},
				Usage:   "List configured sources (tokens redacted)",
				Flags:   []cli.Flag{jsonFlag()},
				Action:  r.SourcesList,
			},
			{
				Name:      "add",
				Usage:     "Add a repository source",
				Arguments: stringArgs("name", "url"),
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "type",
						Usage: "Source type (official, third-party, local)",
						Value: "third-party",
					},
					&cli.StringFlag{
						Name:  "token",
						Usage: "Bearer token sent with index requests",
					},
					&cli.BoolFlag{
						Name:  "disabled",
						Usage: "Add the source disabled",
					},
				},
				Action: r.SourcesAdd,
			},
			{
				Name:      "remove",
				Aliases:   []string{"rm"},
				Usage:     "Remove a repository source",
				Arguments: stringArgs("name"),
				Action:    r.SourcesRemove,
			},
			{
				Name:      "enable",
				Usage:     "Enable a repository source",
				Arguments: stringArgs("name"),
				Action:    r.SourcesEnable,
			},
			{
				Name:      "disable",
				Usage:     "Disable a repository source",
				Arguments: stringArgs("name"),
				Action:    r.SourcesDisable,
			},
		},
	}
}

// discoverCommand lists repositories from every enabled source.
func discoverCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "discover",
		Usage:  "List repositories published by enabled sources",
		Flags:  []cli.Flag{jsonFlag()},
		Action: r.Discover,
	}
}

// manifestCommand fetches and prints a manifest.
func manifestCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:      "manifest",
		Usage:     "Fetch and print a repository manifest",
		Arguments: stringArgs("location"),
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "pretty",
				Usage: "Pretty-print output",
				Value: true,
			},
		},
		Action: r.Manifest,
	}
}

// validateCommand verifies a repository manifest.
func validateCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:      "validate",
		Usage:     "Validate a repository manifest without importing",
		Arguments: stringArgs("location"),
		Flags:     []cli.Flag{jsonFlag()},
		Action:    r.Validate,
	}
}

// scanCommand finds packages under a local directory.
func scanCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:      "scan",
		Usage:     "Find and validate repository packages under a directory",
		Arguments: stringArgs("dir"),
		Flags:     []cli.Flag{jsonFlag()},
		Action:    r.Scan,
	}
}

// importCommand runs the import pipeline.
func importCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:      "import",
		Usage:     "Import a repository from a URL or local path",
		Arguments: stringArgs("location"),
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "checksums",
				Usage: "Verify declared SHA-256 checksums",
				Value: true,
			},
			&cli.BoolFlag{
				Name:  "overwrite",
				Usage: "Replace an existing repository with the same id",
			},
			&cli.BoolFlag{
				Name:  "audio",
				Usage: "Request audio download (not supported yet)",
			},
			&cli.BoolFlag{
				Name:  "tui",
				Usage: "Show progress in the interactive UI",
			},
			jsonFlag(),
		},
		Action: r.Import,
	}
}

// reposCommand inspects and manages stored repositories.
func reposCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "repos",
		Aliases: []string{"repositories"},
		Usage:   "Inspect and manage imported repositories",
		Commands: []*cli.Command{
			{
				Name:    "list",
				Aliases: []string{"ls"},
				Usage:   "List imported repositories",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "type",
						Usage: "Only list repositories of this type (parent, translation)",
					},
					jsonFlag(),
				},
				Action: r.ReposList,
			},
			{
				Name:      "show",
				Usage:     "Show a repository with its counts",
				Arguments: stringArgs("id"),
				Flags:     []cli.Flag{jsonFlag()},
				Action:    r.ReposShow,
			},
			{
				Name:      "books",
				Usage:     "List the books of a repository",
				Arguments: stringArgs("id"),
				Flags:     []cli.Flag{jsonFlag()},
				Action:    r.ReposBooks,
			},
			{
				Name:      "delete",
				Aliases:   []string{"rm"},
				Usage:     "Delete a repository and everything it owns",
				Arguments: stringArgs("id"),
				Action:    r.ReposDelete,
			},
			{
				Name:      "translations",
				Usage:     "List the translations linked to a parent repository",
				Arguments: stringArgs("id"),
				Flags:     []cli.Flag{jsonFlag()},
				Action:    r.ReposTranslations,
			},
			{
				Name:      "revoke",
				Usage:     "Revoke a translation link",
				Arguments: stringArgs("parent", "translation"),
				Action:    r.ReposRevoke,
			},
		},
	}
}

// readCommand prints or exports a chapter.
func readCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "read",
		Usage: "Print or export a chapter of an imported repository",
		Arguments: []cli.Argument{
			&cli.StringArg{Name: "repository"},
			&cli.StringArg{Name: "book"},
			&cli.IntArg{Name: "chapter"},
		},
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "format",
				Aliases: []string{"f"},
				Usage:   "Output format (text, markdown, csv, json)",
				Value:   "text",
			},
			&cli.BoolFlag{
				Name:  "export",
				Usage: "Write to a file instead of stdout",
			},
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "Export file path (implies --export)",
			},
		},
		Action: r.Read,
	}
}

// cacheCommand manages the manifest cache.
func cacheCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "cache",
		Usage: "Manage the manifest cache",
		Commands: []*cli.Command{
			{
				Name:   "clear",
				Usage:  "Drop every cached manifest",
				Action: r.CacheClear,
			},
		},
	}
}

// settingsCommand reads and writes user settings.
func settingsCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "settings",
		Usage: "Read and write user settings",
		Commands: []*cli.Command{
			{
				Name:    "list",
				Aliases: []string{"ls"},
				Usage:   "List all settings",
				Flags:   []cli.Flag{jsonFlag()},
				Action:  r.SettingsList,
			},
			{
				Name:      "get",
				Usage:     "Print one setting",
				Arguments: stringArgs("key"),
				Action:    r.SettingsGet,
			},
			{
				Name:      "set",
				Usage:     "Store one setting",
				Arguments: stringArgs("key", "value"),
				Action:    r.SettingsSet,
			},
			{
				Name:      "delete",
				Aliases:   []string{"rm"},
				Usage:     "Remove one setting",
				Arguments: stringArgs("key"),
				Action:    r.SettingsDelete,
			},
		},
	}
}

// serveCommand starts the local HTTP API.
func serveCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Serve the library over a local HTTP API",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "addr",
				Usage: "Listen address; defaults to server.host:server.port from config",
			},
		},
		Action: r.Serve,
	}
}

// tuiCommand returns the top-level TUI command for interactive imports.
func tuiCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "tui",
		Aliases: []string{"interactive", "ui"},
		Usage:   "Browse discovered repositories and import interactively",
		Action:  r.TUI,
	}
}
