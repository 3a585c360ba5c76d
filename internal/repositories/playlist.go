package repositories

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/tannerfalls/playlistdb/internal/models"
	"github.com/tannerfalls/playlistdb/internal/shared"
)

// playlistFixedColumns precede the 52 aggregate columns in every playlist
// select and insert.
var playlistFixedColumns = []string{
	"pid", "name", "generated_at", "modified_at",
	"num_tracks", "num_artists", "num_albums", "num_followers", "num_edits",
	"is_collaborative", "duration_ms_total",
	"top_genre_1", "top_genre_2", "top_genre_3",
}

func playlistColumns() []string {
	return append(append([]string{}, playlistFixedColumns...), models.AggregateColumns()...)
}

// PlaylistRepository handles read access to persisted playlists. Writes go
// through [Committer.Replace] only: playlists are never partially updated.
type PlaylistRepository struct {
	db *sql.DB
}

// NewPlaylistRepository creates a new PlaylistRepository with the given database connection
func NewPlaylistRepository(db *sql.DB) *PlaylistRepository {
	return &PlaylistRepository{db: db}
}

// Get retrieves a playlist by PID, including its aggregate columns and
// membership rows in position order.
func (r *PlaylistRepository) Get(pid int) (*models.Playlist, error) {
	query := fmt.Sprintf("SELECT %s FROM playlist WHERE pid = ?", strings.Join(playlistColumns(), ", "))

	playlist, err := scanPlaylist(r.db.QueryRow(query, pid))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: %d", shared.ErrPlaylistNotFound, pid)
	}
	if err != nil {
		return nil, err
	}

	rows, err := r.db.Query(`
		SELECT playlist_id, track_id, position
		FROM playlist_track
		WHERE playlist_id = ?
		ORDER BY position
	`, pid)
	if err != nil {
		return nil, fmt.Errorf("failed to query memberships: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var m models.Membership
		if err := rows.Scan(&m.PID, &m.TrackID, &m.Position); err != nil {
			return nil, fmt.Errorf("failed to scan membership: %w", err)
		}
		playlist.Tracks = append(playlist.Tracks, m)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return playlist, nil
}

// List retrieves playlists ordered by PID with pagination. Membership rows
// are not loaded; use Get for a single playlist's full graph.
func (r *PlaylistRepository) List(limit, offset int) ([]*models.Playlist, error) {
	query := fmt.Sprintf("SELECT %s FROM playlist ORDER BY pid LIMIT ? OFFSET ?",
		strings.Join(playlistColumns(), ", "))

	rows, err := r.db.Query(query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query playlists: %w", err)
	}
	defer rows.Close()

	var playlists []*models.Playlist
	for rows.Next() {
		playlist, err := scanPlaylist(rows)
		if err != nil {
			return nil, err
		}
		playlists = append(playlists, playlist)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return playlists, nil
}

// Count returns the number of persisted playlists
func (r *PlaylistRepository) Count() (int, error) {
	var count int
	if err := r.db.QueryRow("SELECT COUNT(*) FROM playlist").Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count playlists: %w", err)
	}
	return count, nil
}

// PIDRange returns the minimum and maximum persisted PID. ok is false when
// the store holds no playlists.
func (r *PlaylistRepository) PIDRange() (minPID, maxPID int, ok bool, err error) {
	var lo, hi sql.NullInt64
	if err := r.db.QueryRow("SELECT MIN(pid), MAX(pid) FROM playlist").Scan(&lo, &hi); err != nil {
		return 0, 0, false, fmt.Errorf("failed to query PID range: %w", err)
	}
	if !lo.Valid {
		return 0, 0, false, nil
	}
	return int(lo.Int64), int(hi.Int64), true, nil
}

// TopGenres returns all distinct top_genre_1 values, used by the query
// translator to spot genre mentions in free text.
func (r *PlaylistRepository) TopGenres() ([]string, error) {
	rows, err := r.db.Query(`
		SELECT DISTINCT top_genre_1 FROM playlist
		WHERE top_genre_1 IS NOT NULL
		ORDER BY top_genre_1
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query genres: %w", err)
	}
	defer rows.Close()

	var genres []string
	for rows.Next() {
		var g string
		if err := rows.Scan(&g); err != nil {
			return nil, fmt.Errorf("failed to scan genre: %w", err)
		}
		genres = append(genres, g)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return genres, nil
}

func scanPlaylist(row scanner) (*models.Playlist, error) {
	var (
		p           models.Playlist
		generatedAt sql.NullTime
		modifiedAt  sql.NullTime
		collab      sql.NullBool
		genres      [3]sql.NullString
	)

	aggregateColumns := models.AggregateColumns()
	aggregates := make([]sql.NullFloat64, len(aggregateColumns))

	dest := []any{
		&p.PID, &p.Name, &generatedAt, &modifiedAt,
		&p.NumTracks, &p.NumArtists, &p.NumAlbums, &p.NumFollowers, &p.NumEdits,
		&collab, &p.DurationMS,
		&genres[0], &genres[1], &genres[2],
	}
	for i := range aggregates {
		dest = append(dest, &aggregates[i])
	}

	if err := row.Scan(dest...); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan playlist: %w", err)
	}

	if generatedAt.Valid {
		p.GeneratedAt = generatedAt.Time
	}
	if modifiedAt.Valid {
		p.ModifiedAt = modifiedAt.Time
	}
	p.Collaborative = collab.Valid && collab.Bool

	for _, g := range genres {
		if g.Valid {
			p.TopGenres = append(p.TopGenres, g.String)
		}
	}

	for i, column := range aggregateColumns {
		if aggregates[i].Valid {
			if p.Aggregates == nil {
				p.Aggregates = make(map[string]float64, len(aggregateColumns))
			}
			p.Aggregates[column] = aggregates[i].Float64
		}
	}

	return &p, nil
}

// playlistInsertArgs flattens a playlist draft into insert arguments matching
// playlistColumns order. A fresh argument slice is built on every call so the
// rows written by a replace never alias state from a previous generation.
func playlistInsertArgs(p *models.Playlist) []any {
	genre := func(i int) any {
		if i < len(p.TopGenres) {
			return p.TopGenres[i]
		}
		return nil
	}

	args := []any{
		p.PID, p.Name, p.GeneratedAt, p.ModifiedAt,
		p.NumTracks, p.NumArtists, p.NumAlbums, p.NumFollowers, p.NumEdits,
		p.Collaborative, p.DurationMS,
		genre(0), genre(1), genre(2),
	}

	for _, column := range models.AggregateColumns() {
		if value, ok := p.Aggregates[column]; ok {
			args = append(args, value)
		} else {
			args = append(args, nil)
		}
	}

	return args
}
