// package models defines the data model for the playlist ingestion service
package models

import "time"

// FeatureNames enumerates the thirteen numeric audio features in schema
// column order. The playlist aggregate columns are the cross product of
// this list with AggregateNames.
var FeatureNames = []string{
	"acousticness",
	"danceability",
	"duration_ms",
	"energy",
	"instrumentalness",
	"key",
	"liveness",
	"loudness",
	"mode",
	"speechiness",
	"tempo",
	"time_signature",
	"valence",
}

// AggregateNames enumerates the per-feature aggregate statistics.
// "std" is the sample standard deviation (N-1 denominator).
var AggregateNames = []string{"avg", "min", "max", "std"}

// AggregateColumn returns the playlist column name for a feature/aggregate pair,
// e.g. ("energy", "avg") -> "energy_avg".
func AggregateColumn(feature, aggregate string) string {
	return feature + "_" + aggregate
}

// AggregateColumns returns all 52 playlist aggregate column names in schema
// order: the avg block, then min, max and std.
func AggregateColumns() []string {
	columns := make([]string, 0, len(FeatureNames)*len(AggregateNames))
	for _, aggregate := range AggregateNames {
		for _, feature := range FeatureNames {
			columns = append(columns, AggregateColumn(feature, aggregate))
		}
	}
	return columns
}

// AudioFeatures holds the provider-supplied numeric descriptors of a track.
type AudioFeatures struct {
	Acousticness     float64 `json:"acousticness"`
	Danceability     float64 `json:"danceability"`
	DurationMS       int     `json:"duration_ms"`
	Energy           float64 `json:"energy"`
	Instrumentalness float64 `json:"instrumentalness"`
	Key              int     `json:"key"`
	Liveness         float64 `json:"liveness"`
	Loudness         float64 `json:"loudness"`
	Mode             int     `json:"mode"`
	Speechiness      float64 `json:"speechiness"`
	Tempo            float64 `json:"tempo"`
	TimeSignature    int     `json:"time_signature"`
	Valence          float64 `json:"valence"`
}

// Value returns the named feature as a float64. Names outside FeatureNames
// return 0.
func (f AudioFeatures) Value(name string) float64 {
	switch name {
	case "acousticness":
		return f.Acousticness
	case "danceability":
		return f.Danceability
	case "duration_ms":
		return float64(f.DurationMS)
	case "energy":
		return f.Energy
	case "instrumentalness":
		return f.Instrumentalness
	case "key":
		return float64(f.Key)
	case "liveness":
		return f.Liveness
	case "loudness":
		return f.Loudness
	case "mode":
		return float64(f.Mode)
	case "speechiness":
		return f.Speechiness
	case "tempo":
		return f.Tempo
	case "time_signature":
		return float64(f.TimeSignature)
	case "valence":
		return f.Valence
	}
	return 0
}

// Artist is a catalog artist. Created once, the first time any ingestion run
// references it, and reused forever after.
type Artist struct {
	ID         string   `json:"artist_id"`
	Name       string   `json:"artist_name"`
	Genres     []string `json:"genres"`
	Followers  int      `json:"followers"`
	Popularity int      `json:"popularity"`
}

// Track is a catalog track with denormalized artist/album names, as in the
// source dataset. Enriched reports whether feature data has been resolved,
// either from storage or from the catalog; a track must never be persisted
// un-enriched.
type Track struct {
	ID         string        `json:"track_id"`
	Name       string        `json:"track_name"`
	ArtistID   string        `json:"artist_id"`
	ArtistName string        `json:"artist_name"`
	AlbumID    string        `json:"album_id"`
	AlbumName  string        `json:"album_name"`
	Features   AudioFeatures `json:"features"`
	Enriched   bool          `json:"-"`
}

// Membership links a playlist to a track at a zero-based position. The same
// track may appear at multiple positions in one playlist, so position is part
// of the identity.
type Membership struct {
	PID      int    `json:"playlist_id"`
	TrackID  string `json:"track_id"`
	Position int    `json:"position"`
}

// Playlist is one dataset playlist plus its derived columns. Tracks holds the
// settled memberships in input order; entries referencing tracks that failed
// enrichment are removed before aggregation and commit.
//
// TopGenres and Aggregates stay empty for a playlist with zero resolvable
// tracks; the corresponding columns are stored as NULL.
type Playlist struct {
	PID           int       `json:"pid"`
	Name          string    `json:"name"`
	GeneratedAt   time.Time `json:"generated_at"`
	ModifiedAt    time.Time `json:"modified_at"`
	NumTracks     int       `json:"num_tracks"`
	NumArtists    int       `json:"num_artists"`
	NumAlbums     int       `json:"num_albums"`
	NumFollowers  int       `json:"num_followers"`
	NumEdits      int       `json:"num_edits"`
	Collaborative bool      `json:"is_collaborative"`
	DurationMS    int       `json:"duration_ms_total"`

	TopGenres  []string           `json:"top_genres,omitempty"` // at most 3, ranked
	Aggregates map[string]float64 `json:"aggregates,omitempty"` // keyed by AggregateColumn

	Tracks []Membership `json:"tracks"`
}
