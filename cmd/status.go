package main

import (
	"context"
	"fmt"

	"github.com/tannerfalls/playlistdb/internal/repositories"
	"github.com/urfave/cli/v3"
)

// Status reports stored entity counts and the committed PID range.
func (r *Runner) Status(ctx context.Context, cmd *cli.Command) error {
	config := r.loadConfig(cmd)

	db, err := r.openDatabase(config)
	if err != nil {
		return err
	}
	defer db.Close()

	playlists, err := repositories.NewPlaylistRepository(db).Count()
	if err != nil {
		return fmt.Errorf("failed to count playlists: %w", err)
	}
	tracks, err := repositories.NewTrackRepository(db).Count()
	if err != nil {
		return fmt.Errorf("failed to count tracks: %w", err)
	}
	artists, err := repositories.NewArtistRepository(db).Count()
	if err != nil {
		return fmt.Errorf("failed to count artists: %w", err)
	}

	minPID, maxPID, ok, err := repositories.NewPlaylistRepository(db).PIDRange()
	if err != nil {
		return fmt.Errorf("failed to read PID range: %w", err)
	}

	if cmd.Bool("json") {
		payload := map[string]any{
			"database":  config.Database.Path,
			"playlists": playlists,
			"tracks":    tracks,
			"artists":   artists,
		}
		if ok {
			payload["min_pid"] = minPID
			payload["max_pid"] = maxPID
		}
		return r.writeJSON(payload, true)
	}

	r.writePlain("Database: %s\n", config.Database.Path)
	r.writePlain("Playlists: %d\n", playlists)
	r.writePlain("Tracks: %d\n", tracks)
	r.writePlain("Artists: %d\n", artists)
	if ok {
		r.writePlain("PID range: %d-%d\n", minPID, maxPID)
	}
	return nil
}
