package main

import (
	"context"
	"fmt"

	"github.com/tannerfalls/playlistdb/internal/server"
	"github.com/urfave/cli/v3"
)

// Serve starts the read-only HTTP API and blocks until the context is
// cancelled.
func (r *Runner) Serve(ctx context.Context, cmd *cli.Command) error {
	config := r.loadConfig(cmd)

	host := config.Server.Host
	if flagHost := cmd.String("host"); flagHost != "" {
		host = flagHost
	}
	port := config.Server.Port
	if flagPort := int(cmd.Int("port")); flagPort != 0 {
		port = flagPort
	}

	db, err := r.openDatabase(config)
	if err != nil {
		return err
	}
	defer db.Close()

	handler, err := server.NewAPIHandler(db, r.logger)
	if err != nil {
		return fmt.Errorf("failed to build API handler: %w", err)
	}

	router := server.NewBasicRouter()
	router.Use(server.Logging(r.logger))
	router.Handler(handler)

	srv := server.NewServer(host, port, router, r.logger)
	return srv.Start(ctx)
}
