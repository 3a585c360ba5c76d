package query

import (
	"fmt"
	"strings"

	"github.com/tannerfalls/playlistdb/internal/models"
	"github.com/tannerfalls/playlistdb/internal/shared"
)

const (
	// FeatureThreshold splits the normalized 0..1 feature range: averages
	// below it read as "low", at or above it as "high".
	FeatureThreshold = 0.2

	// DefaultLimit bounds result sets when the caller gives no limit.
	DefaultLimit = 10
)

// Build renders a Filter into a parameterized SQL statement over the
// playlist, playlist_track and track tables. Playlists matching any predicate
// are returned, ranked by how many of their tracks satisfy the artist and
// genre predicates. Returns shared.ErrInvalidInput when the filter carries
// nothing actionable.
func Build(filter Filter, limit int) (string, []any, error) {
	if filter.Empty() {
		return "", nil, fmt.Errorf("%w: no recognizable filters in query", shared.ErrInvalidInput)
	}
	if limit <= 0 {
		limit = DefaultLimit
	}

	var conditions []string
	var args []any

	for _, feature := range QueryFeatures {
		col := models.AggregateColumn(feature, "avg")
		switch filter.Features[feature] {
		case 1:
			conditions = append(conditions, fmt.Sprintf("p.%s >= ?", col))
			args = append(args, FeatureThreshold)
		case -1:
			conditions = append(conditions, fmt.Sprintf("p.%s < ?", col))
			args = append(args, FeatureThreshold)
		}
	}

	if len(filter.Artists) > 0 {
		cond := fmt.Sprintf("t.artist_name IN (%s)", placeholders(len(filter.Artists)))
		conditions = append(conditions, cond)
		for _, a := range filter.Artists {
			args = append(args, a)
		}
	}

	if len(filter.Genres) > 0 {
		ph := placeholders(len(filter.Genres))
		cond := fmt.Sprintf("(p.top_genre_1 IN (%s) OR p.top_genre_2 IN (%s) OR p.top_genre_3 IN (%s))", ph, ph, ph)
		conditions = append(conditions, cond)
		for i := 0; i < 3; i++ {
			for _, g := range filter.Genres {
				args = append(args, g)
			}
		}
	}

	query := fmt.Sprintf(`SELECT p.pid, p.name
FROM playlist p
JOIN playlist_track pt ON pt.playlist_id = p.pid
JOIN track t ON t.track_id = pt.track_id
WHERE %s
GROUP BY p.pid, p.name
ORDER BY COUNT(t.track_id) DESC
LIMIT ?`, strings.Join(conditions, " OR "))
	args = append(args, limit)

	return query, args, nil
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}
