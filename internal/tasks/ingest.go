// package tasks implements the slice ingestion pipeline.
//
// The core abstraction is IngestEngine, which orchestrates one run: load
// slices, resolve the working set against storage, enrich pending tracks and
// artists from the catalog, aggregate, and commit the PID range. Operations
// emit progress updates via channels for non-blocking status reporting to
// CLI/UI layers.
package tasks

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/tannerfalls/playlistdb/internal/models"
	"github.com/tannerfalls/playlistdb/internal/repositories"
	"github.com/tannerfalls/playlistdb/internal/resolver"
	"github.com/tannerfalls/playlistdb/internal/shared"
	"github.com/tannerfalls/playlistdb/internal/slices"
	"github.com/tannerfalls/playlistdb/internal/stats"
)

const resultDurationUnit = time.Millisecond

// Fetcher is the enrichment dependency of the engine. Implemented by
// [services.BatchFetcher]; tests substitute a double.
//
// Both methods return one entry per requested ID in request order, nil for
// IDs absent from the catalog.
type Fetcher interface {
	TrackFeatures(ctx context.Context, ids []string) ([]*models.AudioFeatures, error)
	Artists(ctx context.Context, ids []string) ([]*models.Artist, error)
}

// IngestOpts configures one ingestion run.
type IngestOpts struct {
	DataPath    string // Directory holding slice files
	StartSlice  int    // First slice index to load
	NumSlices   int    // Number of consecutive slices (default 1)
	SliceSize   int    // Playlists per slice (default 1000)
	SideLogPath string // Append-only failed-enrichment log; empty disables
}

// IngestResult summarizes a completed run.
type IngestResult struct {
	RunID          string        `json:"run_id"`
	Slices         int           `json:"slices"`
	MinPID         int           `json:"min_pid"`
	MaxPID         int           `json:"max_pid"`
	Playlists      int           `json:"playlists"`
	Memberships    int           `json:"memberships"`
	UniqueTracks   int           `json:"unique_tracks"`
	FetchedTracks  int           `json:"fetched_tracks"`
	FetchedArtists int           `json:"fetched_artists"`
	PurgedTracks   int           `json:"purged_tracks"`
	EmptyPlaylists int           `json:"empty_playlists"`
	Duration       time.Duration `json:"duration"`
}

// IngestEngine runs the ingestion pipeline. One engine may serve many
// sequential runs; concurrent runs over overlapping PID ranges are
// unsupported (the range replace assumes a single writer).
type IngestEngine struct {
	resolver  *resolver.Resolver
	fetcher   Fetcher
	committer *repositories.Committer
	logger    *log.Logger
}

// NewIngestEngine creates an IngestEngine with the provided dependencies.
func NewIngestEngine(res *resolver.Resolver, fetcher Fetcher, committer *repositories.Committer, logger *log.Logger) *IngestEngine {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &IngestEngine{
		resolver:  res,
		fetcher:   fetcher,
		committer: committer,
		logger:    logger,
	}
}

// Run executes one ingestion over [opts.StartSlice, opts.StartSlice+opts.NumSlices).
//
// Slice loading or commit errors are fatal; individual tracks missing from
// the catalog are purged (with their memberships) and recorded in the side
// log, and the run continues.
func (e *IngestEngine) Run(ctx context.Context, prog chan<- ProgressUpdate, opts IngestOpts) (*IngestResult, error) {
	if opts.NumSlices <= 0 {
		opts.NumSlices = 1
	}
	if opts.SliceSize <= 0 {
		opts.SliceSize = 1000
	}

	started := time.Now()
	runID := shared.GenerateID()
	logger := shared.WithLogger(e.logger, "run_id", runID)

	var sideLog *SideLog
	if opts.SideLogPath != "" {
		var err error
		sideLog, err = OpenSideLog(opts.SideLogPath, runID)
		if err != nil {
			return nil, err
		}
		defer sideLog.Close()
	}

	loaded, err := e.loadSlices(ctx, prog, logger, opts)
	if err != nil {
		return nil, err
	}

	ws, err := e.resolver.Resolve(loaded)
	if err != nil {
		return nil, fmt.Errorf("resolve failed for slices %d..%d: %w",
			opts.StartSlice, opts.StartSlice+opts.NumSlices-1, err)
	}
	e.sendProgress(prog, resolveUpdate(len(ws.Playlists), ws.Memberships()))

	fetchedTracks, err := e.enrichTracks(ctx, prog, logger, ws, sideLog)
	if err != nil {
		return nil, err
	}

	fetchedArtists, err := e.enrichArtists(ctx, prog, logger, ws, sideLog)
	if err != nil {
		return nil, err
	}

	empty := e.aggregate(prog, logger, ws)

	e.sendProgress(prog, commitUpdate(ws.MinPID, ws.MaxPID))
	if err := e.committer.Replace(ctx, ws.MinPID, ws.MaxPID, ws.CommitArtists(), ws.CommitTracks(), ws.Playlists); err != nil {
		return nil, fmt.Errorf("commit failed for PID range [%d, %d]: %w", ws.MinPID, ws.MaxPID, err)
	}

	result := &IngestResult{
		RunID:          runID,
		Slices:         opts.NumSlices,
		MinPID:         ws.MinPID,
		MaxPID:         ws.MaxPID,
		Playlists:      len(ws.Playlists),
		Memberships:    ws.Memberships(),
		UniqueTracks:   ws.UniqueTracks(),
		FetchedTracks:  fetchedTracks,
		FetchedArtists: fetchedArtists,
		PurgedTracks:   ws.Purged,
		EmptyPlaylists: empty,
		Duration:       time.Since(started),
	}
	e.sendFinal(prog, doneUpdate(result))
	logger.Info("ingestion complete",
		"playlists", result.Playlists,
		"memberships", result.Memberships,
		"fetched_tracks", result.FetchedTracks,
		"fetched_artists", result.FetchedArtists,
		"purged_tracks", result.PurgedTracks,
		"empty_playlists", result.EmptyPlaylists,
		"duration", result.Duration)

	return result, nil
}

func (e *IngestEngine) loadSlices(ctx context.Context, prog chan<- ProgressUpdate, logger *log.Logger, opts IngestOpts) ([]*slices.Slice, error) {
	loaded := make([]*slices.Slice, 0, opts.NumSlices)
	for i := 0; i < opts.NumSlices; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		index := opts.StartSlice + i
		e.sendProgress(prog, loadSliceUpdate(i+1, opts.NumSlices, index))

		slice, err := slices.Load(opts.DataPath, index, opts.SliceSize)
		if err != nil {
			return nil, fmt.Errorf("loading slice %d: %w", index, err)
		}
		logger.Info("loaded slice", "index", index, "playlists", len(slice.Playlists))
		loaded = append(loaded, slice)
	}
	return loaded, nil
}

// enrichTracks fetches features for every pending track. An absent result
// purges the track and all memberships referencing it.
func (e *IngestEngine) enrichTracks(ctx context.Context, prog chan<- ProgressUpdate, logger *log.Logger, ws *resolver.WorkingSet, sideLog *SideLog) (int, error) {
	pending := ws.PendingTracks
	if len(pending) == 0 {
		return 0, nil
	}
	e.sendProgress(prog, fetchTracksUpdate(0, len(pending)))

	features, err := e.fetcher.TrackFeatures(ctx, pending)
	if err != nil {
		return 0, fmt.Errorf("track enrichment failed: %w", err)
	}
	if len(features) != len(pending) {
		return 0, fmt.Errorf("%w: %d feature results for %d pending tracks",
			shared.ErrAPIRequest, len(features), len(pending))
	}

	fetched := 0
	for i, trackID := range pending {
		if features[i] == nil {
			detached := ws.PurgeTrack(trackID)
			logger.Warn("track gone from catalog, purged", "track_id", trackID, "memberships", detached)
			if err := sideLog.Record("track", trackID, shared.ErrNotInCatalog.Error()); err != nil {
				logger.Error("side log write failed", "err", err)
			}
			continue
		}
		ws.SetFeatures(trackID, *features[i])
		fetched++
	}

	e.sendProgress(prog, fetchTracksUpdate(len(pending), len(pending)))
	return fetched, nil
}

// enrichArtists fetches attributes for every pending artist. An absent artist
// purges its still-pending tracks: a track cannot be committed without a
// committed artist behind it.
func (e *IngestEngine) enrichArtists(ctx context.Context, prog chan<- ProgressUpdate, logger *log.Logger, ws *resolver.WorkingSet, sideLog *SideLog) (int, error) {
	pending := ws.PendingArtists
	if len(pending) == 0 {
		return 0, nil
	}
	e.sendProgress(prog, fetchArtistsUpdate(0, len(pending)))

	artists, err := e.fetcher.Artists(ctx, pending)
	if err != nil {
		return 0, fmt.Errorf("artist enrichment failed: %w", err)
	}
	if len(artists) != len(pending) {
		return 0, fmt.Errorf("%w: %d artist results for %d pending artists",
			shared.ErrAPIRequest, len(artists), len(pending))
	}

	fetched := 0
	for i, artistID := range pending {
		if artists[i] == nil {
			logger.Warn("artist gone from catalog", "artist_id", artistID)
			if err := sideLog.Record("artist", artistID, shared.ErrNotInCatalog.Error()); err != nil {
				logger.Error("side log write failed", "err", err)
			}
			for _, trackID := range ws.PendingTracksOf(artistID) {
				detached := ws.PurgeTrack(trackID)
				logger.Warn("purged track of missing artist", "track_id", trackID, "artist_id", artistID, "memberships", detached)
				if err := sideLog.Record("track", trackID, "artist not found in catalog"); err != nil {
					logger.Error("side log write failed", "err", err)
				}
			}
			continue
		}
		ws.AddArtist(artists[i])
		fetched++
	}

	e.sendProgress(prog, fetchArtistsUpdate(len(pending), len(pending)))
	return fetched, nil
}

// aggregate fills derived columns for every playlist. Playlists left with no
// resolvable tracks keep NULL aggregates and genres but are still committed;
// the failure is isolated per playlist rather than aborting a run that
// already paid for its catalog fetches.
func (e *IngestEngine) aggregate(prog chan<- ProgressUpdate, logger *log.Logger, ws *resolver.WorkingSet) int {
	empty := 0
	for i, playlist := range ws.Playlists {
		if i%100 == 0 {
			e.sendProgress(prog, aggregateUpdate(i+1, len(ws.Playlists), playlist.Name))
		}
		if err := stats.Compute(playlist, ws.Tracks(), ws.Artists()); err != nil {
			if errors.Is(err, shared.ErrEmptyPlaylist) {
				logger.Warn("playlist has no resolvable tracks, skipping aggregates", "pid", playlist.PID, "name", playlist.Name)
				empty++
				continue
			}
			logger.Error("aggregation failed", "pid", playlist.PID, "err", err)
		}
	}
	e.sendProgress(prog, aggregateUpdate(len(ws.Playlists), len(ws.Playlists), ""))
	return empty
}

// sendProgress delivers an intermediate update without blocking the run.
// Updates are dropped when the consumer lags behind the channel buffer; only
// the completion update, sent via sendFinal, is guaranteed to arrive.
func (e *IngestEngine) sendProgress(prog chan<- ProgressUpdate, update ProgressUpdate) {
	if prog == nil {
		return
	}
	select {
	case prog <- update:
	default:
	}
}

// sendFinal blocks until the update is received. Consumers must keep
// draining the channel until the caller closes it, so the completion update
// can always be delivered.
func (e *IngestEngine) sendFinal(prog chan<- ProgressUpdate, update ProgressUpdate) {
	if prog == nil {
		return
	}
	prog <- update
}
