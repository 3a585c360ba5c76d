package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/tannerfalls/playlistdb/internal/models"
	"github.com/tannerfalls/playlistdb/internal/shared"
)

// Committer performs the replace of a contiguous playlist-ID range.
//
// Everything happens in one transaction: new artists, new tracks, the delete
// of every playlist in [minPID, maxPID] (membership rows go with them via the
// FK cascade), and the insert of the finalized playlist graph. Readers see
// either the old generation or the new one, never a mix, and a failure rolls
// the whole range back.
//
// Tracks and artists are never deleted; they are shared append-only entities
// and re-inserting an existing ID is a no-op.
type Committer struct {
	db     *sql.DB
	logger *log.Logger
}

// NewCommitter creates a Committer on the given database connection.
func NewCommitter(db *sql.DB, logger *log.Logger) *Committer {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &Committer{db: db, logger: logger}
}

// Replace commits one ingestion run's output.
//
// playlists must carry settled memberships: every referenced track ID must
// appear either in tracks or already in storage, or the insert fails and the
// transaction rolls back. Row values are built fresh from the drafts at call
// time; no in-memory instance is shared with a previous generation.
func (c *Committer) Replace(ctx context.Context, minPID, maxPID int,
	artists []*models.Artist, tracks []*models.Track, playlists []*models.Playlist) error {

	if minPID > maxPID {
		return fmt.Errorf("%w: invalid PID range [%d, %d]", shared.ErrInvalidInput, minPID, maxPID)
	}
	for _, t := range tracks {
		if !t.Enriched {
			return fmt.Errorf("%w: track %s reached commit without feature data", shared.ErrInvalidInput, t.ID)
		}
	}

	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := insertArtistsTx(tx, artists); err != nil {
		return err
	}
	if err := insertTracksTx(tx, tracks); err != nil {
		return err
	}

	c.logger.Info("deleting playlists in range", "min_pid", minPID, "max_pid", maxPID)
	if _, err := tx.Exec("DELETE FROM playlist WHERE pid BETWEEN ? AND ?", minPID, maxPID); err != nil {
		return fmt.Errorf("failed to delete playlist range [%d, %d]: %w", minPID, maxPID, err)
	}

	if err := insertPlaylistsTx(tx, playlists); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit replace of PID range [%d, %d]: %w", minPID, maxPID, err)
	}

	c.logger.Info("committed playlist range",
		"min_pid", minPID, "max_pid", maxPID,
		"playlists", len(playlists), "new_tracks", len(tracks), "new_artists", len(artists))
	return nil
}

func insertPlaylistsTx(tx *sql.Tx, playlists []*models.Playlist) error {
	columns := playlistColumns()
	stmt, err := tx.Prepare(fmt.Sprintf(
		"INSERT INTO playlist (%s) VALUES (%s)",
		strings.Join(columns, ", "), placeholders(len(columns)),
	))
	if err != nil {
		return fmt.Errorf("failed to prepare playlist insert: %w", err)
	}
	defer stmt.Close()

	memberStmt, err := tx.Prepare(`
		INSERT INTO playlist_track (playlist_id, track_id, position)
		VALUES (?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare membership insert: %w", err)
	}
	defer memberStmt.Close()

	for _, p := range playlists {
		if _, err := stmt.Exec(playlistInsertArgs(p)...); err != nil {
			return fmt.Errorf("failed to insert playlist %d: %w", p.PID, err)
		}
		for _, m := range p.Tracks {
			if _, err := memberStmt.Exec(p.PID, m.TrackID, m.Position); err != nil {
				return fmt.Errorf("failed to insert membership (%d, %s, %d): %w",
					p.PID, m.TrackID, m.Position, err)
			}
		}
	}

	return nil
}
