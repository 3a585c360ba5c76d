package main

import (
	"context"
	"fmt"
	"time"

	"github.com/tannerfalls/playlistdb/internal/repositories"
	"github.com/tannerfalls/playlistdb/internal/resolver"
	"github.com/tannerfalls/playlistdb/internal/services"
	"github.com/tannerfalls/playlistdb/internal/shared"
	"github.com/tannerfalls/playlistdb/internal/tasks"
	"github.com/tannerfalls/playlistdb/internal/ui"
	"github.com/urfave/cli/v3"
)

// Ingest runs the pipeline over the requested slice range and prints a run
// summary.
func (r *Runner) Ingest(ctx context.Context, cmd *cli.Command) error {
	config := r.loadConfig(cmd)

	dataPath := config.Ingest.DataPath
	if flagPath := cmd.String("data"); flagPath != "" {
		dataPath = flagPath
	}
	if dataPath == "" {
		return fmt.Errorf("%w: set ingest.data_path or pass --data", shared.ErrMissingConfig)
	}

	catalog, err := r.resolveCatalog(config)
	if err != nil {
		return err
	}

	db, err := r.openDatabase(config)
	if err != nil {
		return err
	}
	defer db.Close()

	logger := r.logger
	if cmd.Bool("tui") {
		// Redirect logs to a file so they don't interfere with TUI rendering
		logger, err = shared.NewFileLogger("./tmp/playlistdb-tui.log")
		if err != nil {
			return fmt.Errorf("failed to create file logger: %w", err)
		}
	}

	fetcher := services.NewBatchFetcher(catalog, services.BatchFetcherOpts{
		TrackBatchSize:  config.Ingest.TrackBatchSize,
		ArtistBatchSize: config.Ingest.ArtistBatchSize,
		PauseEvery:      config.Ingest.PauseEvery,
		Pause:           time.Duration(config.Ingest.PauseSeconds) * time.Second,
		RateLimit:       config.Ingest.RateLimit,
		Logger:          logger,
	})

	res := resolver.New(
		repositories.NewTrackRepository(db),
		repositories.NewArtistRepository(db),
		logger,
	)
	committer := repositories.NewCommitter(db, logger)
	engine := tasks.NewIngestEngine(res, fetcher, committer, logger)

	opts := tasks.IngestOpts{
		DataPath:    dataPath,
		StartSlice:  int(cmd.Int("start")),
		NumSlices:   int(cmd.Int("num")),
		SliceSize:   config.Ingest.SliceSize,
		SideLogPath: config.Ingest.SideLogPath,
	}

	var result *tasks.IngestResult
	if cmd.Bool("tui") {
		result, err = ui.Run(ctx, engine, opts)
	} else {
		result, err = r.runWithLogging(ctx, engine, opts)
	}
	if err != nil {
		return fmt.Errorf("ingest failed: %w", err)
	}

	if cmd.Bool("json") {
		return r.writeJSON(result, true)
	}

	r.writePlain("Ingested %d slice(s): %d playlists (PIDs %d-%d), %d unique tracks\n",
		result.Slices, result.Playlists, result.MinPID, result.MaxPID, result.UniqueTracks)
	r.writePlain("Fetched %d track features and %d artists; purged %d tracks; %d empty playlists\n",
		result.FetchedTracks, result.FetchedArtists, result.PurgedTracks, result.EmptyPlaylists)
	r.writePlain("Run %s finished in %s\n", result.RunID, result.Duration)
	return nil
}

// runWithLogging drains progress updates into the logger while the engine
// runs.
func (r *Runner) runWithLogging(ctx context.Context, engine *tasks.IngestEngine, opts tasks.IngestOpts) (*tasks.IngestResult, error) {
	prog := make(chan tasks.ProgressUpdate, 64)
	done := make(chan struct{})

	go func() {
		defer close(done)
		for update := range prog {
			if update.Total > 0 {
				r.logger.Info(update.Message, "phase", update.Phase.String(), "step", update.Step, "total", update.Total)
			} else {
				r.logger.Info(update.Message, "phase", update.Phase.String())
			}
		}
	}()

	result, err := engine.Run(ctx, prog, opts)
	close(prog)
	<-done
	return result, err
}
