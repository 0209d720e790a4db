package main

import (
	"context"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/versehub/internal/server"
	"github.com/desertthunder/versehub/internal/shared"
)

// Serve runs the HTTP API until the command context is cancelled.
func (r *Runner) Serve(ctx context.Context, cmd *cli.Command) error {
	lib, err := r.library(ctx)
	if err != nil {
		return err
	}

	addr := cmd.String("addr")
	if addr == "" {
		addr = lib.Config().Server.Addr()
	}

	srv := server.New(addr, lib, shared.WithLogger(r.logger, "component", "server"))
	r.writePlain("Serving library API on http://%s\n", addr)
	return srv.ListenAndServe(ctx)
}
