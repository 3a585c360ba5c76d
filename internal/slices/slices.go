// package slices loads on-disk shards of the playlist dataset.
//
// Each shard ("slice") is one JSON document holding a contiguous block of
// playlists. Loading is pure and restartable: the same file always produces
// the same result and nothing is mutated.
package slices

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/tannerfalls/playlistdb/internal/shared"
)

// RawTrack is one track record as it appears in a slice file. IDs are
// embedded in namespaced URIs (substring after the final ':').
type RawTrack struct {
	TrackURI   string `json:"track_uri"`
	TrackName  string `json:"track_name"`
	ArtistURI  string `json:"artist_uri"`
	ArtistName string `json:"artist_name"`
	AlbumURI   string `json:"album_uri"`
	AlbumName  string `json:"album_name"`
	DurationMS int    `json:"duration_ms"`
	Pos        int    `json:"pos"`
}

// RawPlaylist is one playlist record as it appears in a slice file.
type RawPlaylist struct {
	PID           int        `json:"pid"`
	Name          string     `json:"name"`
	ModifiedAt    int64      `json:"modified_at"` // epoch seconds UTC
	NumTracks     int        `json:"num_tracks"`
	NumArtists    int        `json:"num_artists"`
	NumAlbums     int        `json:"num_albums"`
	NumFollowers  int        `json:"num_followers"`
	NumEdits      int        `json:"num_edits"`
	Collaborative string     `json:"collaborative"` // "true" / "false"
	DurationMS    int        `json:"duration_ms"`
	Tracks        []RawTrack `json:"tracks"`
}

type sliceInfo struct {
	GeneratedOn string `json:"generated_on"`
}

type sliceDocument struct {
	Info      sliceInfo     `json:"info"`
	Playlists []RawPlaylist `json:"playlists"`
}

// Slice is a parsed shard.
type Slice struct {
	Index       int
	Path        string
	GeneratedAt time.Time
	Playlists   []RawPlaylist
}

// FileName returns the canonical shard file name for a slice index,
// e.g. index 0 with size 1000 -> "mpd.slice.0-999.json".
func FileName(index, size int) string {
	start := index * size
	end := (index+1)*size - 1
	return fmt.Sprintf("mpd.slice.%d-%d.json", start, end)
}

// timestamp layouts seen in dataset exports
var generatedOnLayouts = []string{
	"2006-01-02 15:04:05.999999",
	"2006-01-02 15:04:05",
	time.RFC3339,
}

func parseGeneratedOn(value string) (time.Time, error) {
	for _, layout := range generatedOnLayouts {
		if ts, err := time.Parse(layout, value); err == nil {
			return ts, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized generated_on timestamp %q", value)
}

// Load reads and parses the shard at the given index under basePath.
//
// Returns [shared.ErrSliceNotFound] if the file is missing and
// [shared.ErrSliceMalformed] if it cannot be parsed. Either error is fatal
// for an ingestion run: no partial slice is ever processed.
func Load(basePath string, index, size int) (*Slice, error) {
	path := filepath.Join(basePath, FileName(index, size))

	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", shared.ErrSliceNotFound, path)
		}
		return nil, fmt.Errorf("failed to open slice %s: %w", path, err)
	}
	defer f.Close()

	var doc sliceDocument
	if err := json.NewDecoder(f).Decode(&doc); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", shared.ErrSliceMalformed, path, err)
	}

	generatedAt, err := parseGeneratedOn(doc.Info.GeneratedOn)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", shared.ErrSliceMalformed, path, err)
	}

	return &Slice{
		Index:       index,
		Path:        path,
		GeneratedAt: generatedAt,
		Playlists:   doc.Playlists,
	}, nil
}
