package repositories

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/tannerfalls/playlistdb/internal/models"
	"github.com/tannerfalls/playlistdb/internal/shared"
)

// ArtistRepository handles persistence for [models.Artist].
//
// Artists are append-only shared entities: created the first time any run
// references them, never updated or deleted afterwards.
type ArtistRepository struct {
	db *sql.DB
}

// NewArtistRepository creates a new ArtistRepository with the given database connection
func NewArtistRepository(db *sql.DB) *ArtistRepository {
	return &ArtistRepository{db: db}
}

// Get retrieves an artist by ID
func (r *ArtistRepository) Get(id string) (*models.Artist, error) {
	query := `
		SELECT artist_id, artist_name, genres, followers, popularity
		FROM artist
		WHERE artist_id = ?
	`

	var (
		artist    models.Artist
		genresRaw sql.NullString
		followers sql.NullInt64
		pop       sql.NullInt64
	)

	err := r.db.QueryRow(query, id).Scan(&artist.ID, &artist.Name, &genresRaw, &followers, &pop)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: %s", shared.ErrArtistNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan artist: %w", err)
	}

	if genresRaw.Valid {
		if err := json.Unmarshal([]byte(genresRaw.String), &artist.Genres); err != nil {
			return nil, fmt.Errorf("failed to decode genres for artist %s: %w", id, err)
		}
	}
	artist.Followers = int(followers.Int64)
	artist.Popularity = int(pop.Int64)

	return &artist, nil
}

// FindByIDs retrieves all artists whose IDs appear in ids, in one pass of
// chunked IN queries. Missing IDs are simply absent from the result map.
func (r *ArtistRepository) FindByIDs(ids []string) (map[string]*models.Artist, error) {
	found := make(map[string]*models.Artist, len(ids))

	for _, batch := range chunkIDs(ids, maxSQLParams) {
		query := fmt.Sprintf(`
			SELECT artist_id, artist_name, genres, followers, popularity
			FROM artist
			WHERE artist_id IN (%s)
		`, placeholders(len(batch)))

		rows, err := r.db.Query(query, idArgs(batch)...)
		if err != nil {
			return nil, fmt.Errorf("failed to query artists: %w", err)
		}

		for rows.Next() {
			var (
				artist    models.Artist
				genresRaw sql.NullString
				followers sql.NullInt64
				pop       sql.NullInt64
			)
			if err := rows.Scan(&artist.ID, &artist.Name, &genresRaw, &followers, &pop); err != nil {
				rows.Close()
				return nil, fmt.Errorf("failed to scan artist: %w", err)
			}
			if genresRaw.Valid {
				if err := json.Unmarshal([]byte(genresRaw.String), &artist.Genres); err != nil {
					rows.Close()
					return nil, fmt.Errorf("failed to decode genres for artist %s: %w", artist.ID, err)
				}
			}
			artist.Followers = int(followers.Int64)
			artist.Popularity = int(pop.Int64)
			found[artist.ID] = &artist
		}

		if err := rows.Err(); err != nil {
			rows.Close()
			return nil, fmt.Errorf("row iteration error: %w", err)
		}
		rows.Close()
	}

	return found, nil
}

// Names returns all distinct artist names, used by the query translator to
// spot artist mentions in free text.
func (r *ArtistRepository) Names() ([]string, error) {
	rows, err := r.db.Query("SELECT DISTINCT artist_name FROM artist ORDER BY artist_name")
	if err != nil {
		return nil, fmt.Errorf("failed to query artist names: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan artist name: %w", err)
		}
		names = append(names, name)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return names, nil
}

// Count returns the number of persisted artists
func (r *ArtistRepository) Count() (int, error) {
	var count int
	if err := r.db.QueryRow("SELECT COUNT(*) FROM artist").Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count artists: %w", err)
	}
	return count, nil
}

// insertTx inserts artists inside an open transaction. Existing rows are left
// untouched (create-once lifecycle).
func insertArtistsTx(tx *sql.Tx, artists []*models.Artist) error {
	stmt, err := tx.Prepare(`
		INSERT INTO artist (artist_id, artist_name, genres, followers, popularity)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(artist_id) DO NOTHING
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare artist insert: %w", err)
	}
	defer stmt.Close()

	for _, artist := range artists {
		genres, err := json.Marshal(artist.Genres)
		if err != nil {
			return fmt.Errorf("failed to encode genres for artist %s: %w", artist.ID, err)
		}
		if _, err := stmt.Exec(artist.ID, artist.Name, string(genres), artist.Followers, artist.Popularity); err != nil {
			return fmt.Errorf("failed to insert artist %s: %w", artist.ID, err)
		}
	}

	return nil
}
