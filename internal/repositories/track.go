package repositories

import (
	"database/sql"
	"fmt"

	"github.com/tannerfalls/playlistdb/internal/models"
	"github.com/tannerfalls/playlistdb/internal/shared"
)

const trackColumns = `
	track_id, track_name, artist_id, artist_name, album_id, album_name,
	acousticness, danceability, duration_ms, energy, instrumentalness, key,
	liveness, loudness, mode, speechiness, tempo, time_signature, valence
`

// TrackRepository handles persistence for [models.Track].
//
// Tracks are append-only shared entities like artists: a track committed by
// one run is reused, never re-enriched, by every later run that sees it.
type TrackRepository struct {
	db *sql.DB
}

// NewTrackRepository creates a new TrackRepository with the given database connection
func NewTrackRepository(db *sql.DB) *TrackRepository {
	return &TrackRepository{db: db}
}

// Get retrieves a track by ID
func (r *TrackRepository) Get(id string) (*models.Track, error) {
	query := fmt.Sprintf("SELECT %s FROM track WHERE track_id = ?", trackColumns)

	track, err := scanTrack(r.db.QueryRow(query, id))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: %s", shared.ErrTrackNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return track, nil
}

// FindByIDs retrieves all tracks whose IDs appear in ids using chunked IN
// queries. Missing IDs are simply absent from the result map. Tracks loaded
// here are already enriched: feature data was written when they were first
// committed.
func (r *TrackRepository) FindByIDs(ids []string) (map[string]*models.Track, error) {
	found := make(map[string]*models.Track, len(ids))

	for _, batch := range chunkIDs(ids, maxSQLParams) {
		query := fmt.Sprintf("SELECT %s FROM track WHERE track_id IN (%s)",
			trackColumns, placeholders(len(batch)))

		rows, err := r.db.Query(query, idArgs(batch)...)
		if err != nil {
			return nil, fmt.Errorf("failed to query tracks: %w", err)
		}

		for rows.Next() {
			track, err := scanTrack(rows)
			if err != nil {
				rows.Close()
				return nil, err
			}
			found[track.ID] = track
		}

		if err := rows.Err(); err != nil {
			rows.Close()
			return nil, fmt.Errorf("row iteration error: %w", err)
		}
		rows.Close()
	}

	return found, nil
}

// List retrieves tracks ordered by name with pagination, for the read API.
func (r *TrackRepository) List(limit, offset int) ([]*models.Track, error) {
	query := fmt.Sprintf("SELECT %s FROM track ORDER BY track_name LIMIT ? OFFSET ?", trackColumns)

	rows, err := r.db.Query(query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query tracks: %w", err)
	}
	defer rows.Close()

	var tracks []*models.Track
	for rows.Next() {
		track, err := scanTrack(rows)
		if err != nil {
			return nil, err
		}
		tracks = append(tracks, track)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return tracks, nil
}

// Count returns the number of persisted tracks
func (r *TrackRepository) Count() (int, error) {
	var count int
	if err := r.db.QueryRow("SELECT COUNT(*) FROM track").Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count tracks: %w", err)
	}
	return count, nil
}

// scanner abstracts sql.Row and sql.Rows for shared scan logic
type scanner interface {
	Scan(dest ...any) error
}

func scanTrack(row scanner) (*models.Track, error) {
	var t models.Track
	f := &t.Features

	err := row.Scan(
		&t.ID, &t.Name, &t.ArtistID, &t.ArtistName, &t.AlbumID, &t.AlbumName,
		&f.Acousticness, &f.Danceability, &f.DurationMS, &f.Energy,
		&f.Instrumentalness, &f.Key, &f.Liveness, &f.Loudness, &f.Mode,
		&f.Speechiness, &f.Tempo, &f.TimeSignature, &f.Valence,
	)
	if err == sql.ErrNoRows {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan track: %w", err)
	}

	t.Enriched = true
	return &t, nil
}

// insertTracksTx inserts tracks inside an open transaction. Existing rows are
// left untouched (create-once lifecycle). Callers must only pass enriched
// tracks; a track whose catalog lookup failed never reaches this point.
func insertTracksTx(tx *sql.Tx, tracks []*models.Track) error {
	stmt, err := tx.Prepare(fmt.Sprintf(`
		INSERT INTO track (%s)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(track_id) DO NOTHING
	`, trackColumns))
	if err != nil {
		return fmt.Errorf("failed to prepare track insert: %w", err)
	}
	defer stmt.Close()

	for _, t := range tracks {
		f := t.Features
		_, err := stmt.Exec(
			t.ID, t.Name, t.ArtistID, t.ArtistName, t.AlbumID, t.AlbumName,
			f.Acousticness, f.Danceability, f.DurationMS, f.Energy,
			f.Instrumentalness, f.Key, f.Liveness, f.Loudness, f.Mode,
			f.Speechiness, f.Tempo, f.TimeSignature, f.Valence,
		)
		if err != nil {
			return fmt.Errorf("failed to insert track %s: %w", t.ID, err)
		}
	}

	return nil
}
