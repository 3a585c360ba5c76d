package query

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/charmbracelet/log"

	"github.com/tannerfalls/playlistdb/internal/repositories"
)

// Match is one ranked search hit.
type Match struct {
	PID  int    `json:"pid"`
	Name string `json:"name"`
}

// Searcher runs free-text searches end to end: extract a Filter, build the
// statement, execute it.
type Searcher struct {
	db        *sql.DB
	extractor *Extractor
	logger    *log.Logger
}

// NewSearcher loads the artist and genre vocabularies from storage and
// returns a ready Searcher.
func NewSearcher(db *sql.DB, logger *log.Logger) (*Searcher, error) {
	artists := repositories.NewArtistRepository(db)
	playlists := repositories.NewPlaylistRepository(db)

	artistNames, err := artists.Names()
	if err != nil {
		return nil, fmt.Errorf("loading artist vocabulary: %w", err)
	}

	genres, err := playlists.TopGenres()
	if err != nil {
		return nil, fmt.Errorf("loading genre vocabulary: %w", err)
	}

	logger.Debug("search vocabularies loaded", "artists", len(artistNames), "genres", len(genres))

	return &Searcher{
		db:        db,
		extractor: NewExtractor(artistNames, genres),
		logger:    logger,
	}, nil
}

// Search translates input and returns ranked playlist matches along with the
// extracted filter, so callers can show what the text was understood as.
func (s *Searcher) Search(ctx context.Context, input string, limit int) ([]Match, Filter, error) {
	filter := s.extractor.Extract(input)

	stmt, args, err := Build(filter, limit)
	if err != nil {
		return nil, filter, err
	}

	s.logger.Debug("running search", "input", input, "artists", filter.Artists, "genres", filter.Genres)

	rows, err := s.db.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, filter, fmt.Errorf("executing search: %w", err)
	}
	defer rows.Close()

	var matches []Match
	for rows.Next() {
		var m Match
		var name sql.NullString
		if err := rows.Scan(&m.PID, &name); err != nil {
			return nil, filter, fmt.Errorf("scanning search row: %w", err)
		}
		m.Name = name.String
		matches = append(matches, m)
	}
	if err := rows.Err(); err != nil {
		return nil, filter, fmt.Errorf("reading search rows: %w", err)
	}

	return matches, filter, nil
}
