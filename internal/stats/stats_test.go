package stats

import (
	"errors"
	"math"
	"testing"

	"github.com/tannerfalls/playlistdb/internal/models"
	"github.com/tannerfalls/playlistdb/internal/shared"
)

func makeTrack(id string, artistID string, energy float64) *models.Track {
	return &models.Track{
		ID:       id,
		Name:     "track " + id,
		ArtistID: artistID,
		Features: models.AudioFeatures{
			Acousticness:     energy,
			Danceability:     energy,
			DurationMS:       200000,
			Energy:           energy,
			Instrumentalness: energy,
			Key:              5,
			Liveness:         energy,
			Loudness:         -6.0,
			Mode:             1,
			Speechiness:      energy,
			Tempo:            120,
			TimeSignature:    4,
			Valence:          energy,
		},
	}
}

func makePlaylist(trackIDs ...string) *models.Playlist {
	p := &models.Playlist{PID: 1, Name: "test"}
	for i, id := range trackIDs {
		p.Tracks = append(p.Tracks, models.Membership{PID: 1, TrackID: id, Position: i})
	}
	return p
}

func TestAggregates(t *testing.T) {
	t.Run("ComputesAllFourAggregates", func(t *testing.T) {
		tracks := map[string]*models.Track{
			"a": makeTrack("a", "ar1", 1.0),
			"b": makeTrack("b", "ar1", 2.0),
			"c": makeTrack("c", "ar1", 3.0),
		}
		p := makePlaylist("a", "b", "c")

		aggs, err := Aggregates(p, tracks)
		if err != nil {
			t.Fatalf("failed to compute aggregates: %v", err)
		}

		cases := map[string]float64{
			"energy_avg": 2.0,
			"energy_min": 1.0,
			"energy_max": 3.0,
			"energy_std": 1.0,
		}
		for col, want := range cases {
			got, ok := aggs[col]
			if !ok {
				t.Fatalf("missing aggregate column %s", col)
			}
			if math.Abs(got-want) > 1e-9 {
				t.Errorf("%s: expected %v, got %v", col, want, got)
			}
		}
	})

	t.Run("DuplicateMembershipsCountTwice", func(t *testing.T) {
		tracks := map[string]*models.Track{
			"a": makeTrack("a", "ar1", 1.0),
			"b": makeTrack("b", "ar1", 4.0),
		}
		// "a" appears twice, pulling the average below the midpoint
		p := makePlaylist("a", "a", "b")

		aggs, err := Aggregates(p, tracks)
		if err != nil {
			t.Fatalf("failed to compute aggregates: %v", err)
		}

		if got := aggs["energy_avg"]; math.Abs(got-2.0) > 1e-9 {
			t.Errorf("expected avg 2.0 with duplicate membership, got %v", got)
		}
	})

	t.Run("SingleTrackOmitsStd", func(t *testing.T) {
		tracks := map[string]*models.Track{"a": makeTrack("a", "ar1", 0.5)}
		p := makePlaylist("a")

		aggs, err := Aggregates(p, tracks)
		if err != nil {
			t.Fatalf("failed to compute aggregates: %v", err)
		}

		if _, ok := aggs["energy_std"]; ok {
			t.Error("std should be absent for a single-track playlist")
		}
		if got := aggs["energy_avg"]; math.Abs(got-0.5) > 1e-9 {
			t.Errorf("expected avg 0.5, got %v", got)
		}
	})

	t.Run("EmptyPlaylistReturnsError", func(t *testing.T) {
		p := makePlaylist()

		_, err := Aggregates(p, map[string]*models.Track{})
		if !errors.Is(err, shared.ErrEmptyPlaylist) {
			t.Errorf("expected ErrEmptyPlaylist, got %v", err)
		}
	})

	t.Run("SkipsPurgedTracks", func(t *testing.T) {
		tracks := map[string]*models.Track{
			"a": makeTrack("a", "ar1", 1.0),
		}
		// "b" was purged and no longer resolves
		p := makePlaylist("a", "b")

		aggs, err := Aggregates(p, tracks)
		if err != nil {
			t.Fatalf("failed to compute aggregates: %v", err)
		}
		if got := aggs["energy_avg"]; math.Abs(got-1.0) > 1e-9 {
			t.Errorf("expected avg over surviving tracks only, got %v", got)
		}
	})
}

func TestTopGenres(t *testing.T) {
	artistWithGenres := func(id string, genres ...string) *models.Artist {
		return &models.Artist{ID: id, Name: "artist " + id, Genres: genres}
	}

	t.Run("RanksByTrackCount", func(t *testing.T) {
		tracks := map[string]*models.Track{
			"a": makeTrack("a", "ar1", 0.5),
			"b": makeTrack("b", "ar1", 0.5),
			"c": makeTrack("c", "ar2", 0.5),
		}
		artists := map[string]*models.Artist{
			"ar1": artistWithGenres("ar1", "pop"),
			"ar2": artistWithGenres("ar2", "rock"),
		}
		p := makePlaylist("a", "b", "c")

		genres := TopGenres(p, tracks, artists, 3)
		if len(genres) != 2 {
			t.Fatalf("expected 2 genres, got %d: %v", len(genres), genres)
		}
		if genres[0] != "pop" || genres[1] != "rock" {
			t.Errorf("expected [pop rock], got %v", genres)
		}
	})

	t.Run("TiesBreakByFirstSeen", func(t *testing.T) {
		tracks := map[string]*models.Track{
			"a": makeTrack("a", "ar1", 0.5),
			"b": makeTrack("b", "ar2", 0.5),
			"c": makeTrack("c", "ar3", 0.5),
		}
		artists := map[string]*models.Artist{
			"ar1": artistWithGenres("ar1", "pop"),
			"ar2": artistWithGenres("ar2", "rock"),
			"ar3": artistWithGenres("ar3", "jazz"),
		}
		p := makePlaylist("a", "b", "c")

		genres := TopGenres(p, tracks, artists, 3)
		want := []string{"pop", "rock", "jazz"}
		for i, g := range want {
			if genres[i] != g {
				t.Fatalf("expected %v, got %v", want, genres)
			}
		}
	})

	t.Run("TruncatesToMax", func(t *testing.T) {
		tracks := map[string]*models.Track{"a": makeTrack("a", "ar1", 0.5)}
		artists := map[string]*models.Artist{
			"ar1": artistWithGenres("ar1", "pop", "rock", "jazz", "folk"),
		}
		p := makePlaylist("a")

		genres := TopGenres(p, tracks, artists, 3)
		if len(genres) != 3 {
			t.Errorf("expected 3 genres, got %d: %v", len(genres), genres)
		}
	})

	t.Run("EmptyWhenNoArtists", func(t *testing.T) {
		tracks := map[string]*models.Track{"a": makeTrack("a", "ar1", 0.5)}
		p := makePlaylist("a")

		genres := TopGenres(p, tracks, map[string]*models.Artist{}, 3)
		if len(genres) != 0 {
			t.Errorf("expected no genres, got %v", genres)
		}
	})
}

func TestCompute(t *testing.T) {
	t.Run("FillsAggregatesAndGenres", func(t *testing.T) {
		tracks := map[string]*models.Track{
			"a": makeTrack("a", "ar1", 0.4),
			"b": makeTrack("b", "ar1", 0.6),
		}
		artists := map[string]*models.Artist{
			"ar1": {ID: "ar1", Name: "Artist", Genres: []string{"indie"}},
		}
		p := makePlaylist("a", "b")

		if err := Compute(p, tracks, artists); err != nil {
			t.Fatalf("compute failed: %v", err)
		}

		if p.Aggregates == nil {
			t.Fatal("aggregates not set")
		}
		if len(p.TopGenres) != 1 || p.TopGenres[0] != "indie" {
			t.Errorf("expected top genre indie, got %v", p.TopGenres)
		}
	})

	t.Run("PropagatesEmptyPlaylist", func(t *testing.T) {
		p := makePlaylist()
		err := Compute(p, map[string]*models.Track{}, map[string]*models.Artist{})
		if !errors.Is(err, shared.ErrEmptyPlaylist) {
			t.Errorf("expected ErrEmptyPlaylist, got %v", err)
		}
	})
}
