// package stats computes per-playlist derived columns: the ranked top genres
// and the feature aggregate cross product.
package stats

import (
	"fmt"
	"math"
	"sort"

	"github.com/tannerfalls/playlistdb/internal/models"
	"github.com/tannerfalls/playlistdb/internal/shared"
)

// genreCount pairs a genre with its weighted count and first-encounter rank.
type genreCount struct {
	genre string
	count int
	seen  int
}

// TopGenres ranks genres across a playlist's memberships. Every (track,
// genre) pair contributes 1: a track whose artist carries K genres adds 1 to
// each of K counters, not 1/K. Ties break by first-encounter order, so the
// ranking is deterministic for a given membership order. At most max genres
// are returned.
func TopGenres(playlist *models.Playlist, tracks map[string]*models.Track, artists map[string]*models.Artist, max int) []string {
	counts := make(map[string]*genreCount)
	order := 0

	for _, m := range playlist.Tracks {
		track := tracks[m.TrackID]
		if track == nil {
			continue
		}
		artist := artists[track.ArtistID]
		if artist == nil {
			continue
		}
		for _, genre := range artist.Genres {
			gc := counts[genre]
			if gc == nil {
				gc = &genreCount{genre: genre, seen: order}
				order++
				counts[genre] = gc
			}
			gc.count++
		}
	}

	ranked := make([]*genreCount, 0, len(counts))
	for _, gc := range counts {
		ranked = append(ranked, gc)
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].count != ranked[j].count {
			return ranked[i].count > ranked[j].count
		}
		return ranked[i].seen < ranked[j].seen
	})

	if len(ranked) > max {
		ranked = ranked[:max]
	}
	genres := make([]string, len(ranked))
	for i, gc := range ranked {
		genres[i] = gc.genre
	}
	return genres
}

// Aggregates computes the feature aggregate columns over a playlist's settled
// track set. Duplicate memberships of the same track each contribute a value,
// matching the membership semantics of the dataset.
//
// Returns [shared.ErrEmptyPlaylist] when no membership resolves to a track:
// mean and stdev over an empty population are undefined. For a single-value
// population the std columns are omitted (sample standard deviation needs at
// least two points); avg/min/max are still produced.
func Aggregates(playlist *models.Playlist, tracks map[string]*models.Track) (map[string]float64, error) {
	values := make([]float64, 0, len(playlist.Tracks))
	result := make(map[string]float64, len(models.FeatureNames)*len(models.AggregateNames))

	for _, feature := range models.FeatureNames {
		values = values[:0]
		for _, m := range playlist.Tracks {
			if track := tracks[m.TrackID]; track != nil {
				values = append(values, track.Features.Value(feature))
			}
		}

		if len(values) == 0 {
			return nil, fmt.Errorf("%w: playlist %d", shared.ErrEmptyPlaylist, playlist.PID)
		}

		result[models.AggregateColumn(feature, "avg")] = mean(values)
		lo, hi := bounds(values)
		result[models.AggregateColumn(feature, "min")] = lo
		result[models.AggregateColumn(feature, "max")] = hi
		if len(values) >= 2 {
			result[models.AggregateColumn(feature, "std")] = sampleStdDev(values)
		}
	}

	return result, nil
}

// Compute fills a playlist's TopGenres and Aggregates in place.
func Compute(playlist *models.Playlist, tracks map[string]*models.Track, artists map[string]*models.Artist) error {
	aggregates, err := Aggregates(playlist, tracks)
	if err != nil {
		return err
	}
	playlist.Aggregates = aggregates
	playlist.TopGenres = TopGenres(playlist, tracks, artists, 3)
	return nil
}

func mean(values []float64) float64 {
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

func bounds(values []float64) (lo, hi float64) {
	lo, hi = values[0], values[0]
	for _, v := range values[1:] {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	return lo, hi
}

// sampleStdDev is the unbiased estimator with N-1 denominator. Callers
// guarantee len(values) >= 2.
func sampleStdDev(values []float64) float64 {
	m := mean(values)
	sum := 0.0
	for _, v := range values {
		d := v - m
		sum += d * d
	}
	return math.Sqrt(sum / float64(len(values)-1))
}
