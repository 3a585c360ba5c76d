// submodule cmd contains command definitions
package main

import "github.com/urfave/cli/v3"

func configFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "config",
		Aliases: []string{"c"},
		Usage:   "Path to configuration file",
		Value:   "config.toml",
	}
}

// setupCommand initializes the database and configuration
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "setup",
		Usage:  "Initialize database and run migrations",
		Flags:  []cli.Flag{configFlag()},
		Action: r.Setup,
	}
}

// ingestCommand runs the slice ingestion pipeline
func ingestCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "ingest",
		Usage: "Load slice files, enrich from the catalog, and commit a PID range",
		Flags: []cli.Flag{
			configFlag(),
			&cli.StringFlag{
				Name:    "data",
				Aliases: []string{"d"},
				Usage:   "Directory holding mpd.slice.*.json files (overrides config)",
			},
			&cli.IntFlag{
				Name:    "start",
				Aliases: []string{"s"},
				Usage:   "First slice index to load",
				Value:   0,
			},
			&cli.IntFlag{
				Name:    "num",
				Aliases: []string{"n"},
				Usage:   "Number of consecutive slices to ingest",
				Value:   1,
			},
			&cli.BoolFlag{
				Name:  "tui",
				Usage: "Show an interactive progress monitor",
			},
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Print the run summary as JSON",
			},
		},
		Action: r.Ingest,
	}
}

// queryCommand searches playlists with free text
func queryCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "query",
		Aliases: []string{"q"},
		Usage:   "Search stored playlists with a free-text description",
		Arguments: []cli.Argument{
			&cli.StringArg{
				Name: "text",
			},
		},
		Flags: []cli.Flag{
			configFlag(),
			&cli.IntFlag{
				Name:    "limit",
				Aliases: []string{"l"},
				Usage:   "Maximum number of playlists to return",
				Value:   10,
			},
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Output raw JSON",
			},
			&cli.BoolFlag{
				Name:  "pretty",
				Usage: "Pretty-print output",
			},
		},
		Action: r.Query,
	}
}

// serveCommand starts the read API
func serveCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Serve the read-only HTTP API over the stored catalog",
		Flags: []cli.Flag{
			configFlag(),
			&cli.StringFlag{
				Name:  "host",
				Usage: "Bind address (overrides config)",
			},
			&cli.IntFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Usage:   "Listen port (overrides config)",
			},
		},
		Action: r.Serve,
	}
}

// statusCommand reports stored entity counts
func statusCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "status",
		Usage: "Show stored playlist, track and artist counts",
		Flags: []cli.Flag{
			configFlag(),
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Output raw JSON",
			},
		},
		Action: r.Status,
	}
}
