// package resolver turns parsed playlist slices into a deduplicated working
// set ready for enrichment and aggregation.
//
// Ownership in the working set is index-based: playlists hold membership
// values that reference tracks by ID, and a reverse index maps each track to
// the playlists referencing it. Purging a failed track is a pair of index
// edits, never an in-place walk of a pointer graph.
package resolver

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/tannerfalls/playlistdb/internal/models"
	"github.com/tannerfalls/playlistdb/internal/repositories"
	"github.com/tannerfalls/playlistdb/internal/shared"
	"github.com/tannerfalls/playlistdb/internal/slices"
)

// IDFromURI extracts the opaque catalog ID from a namespaced URI: the
// substring after the final ':'. This parsing rule is part of the dataset's
// external format contract, e.g. "spotify:track:6rqhFgbbKwnb9MLmUQDhG6" ->
// "6rqhFgbbKwnb9MLmUQDhG6". A URI without ':' is returned unchanged.
func IDFromURI(uri string) string {
	if idx := strings.LastIndex(uri, ":"); idx >= 0 {
		return uri[idx+1:]
	}
	return uri
}

// WorkingSet is the in-memory draft graph for one ingestion run. It is owned
// by a single goroutine and requires no synchronization.
type WorkingSet struct {
	Playlists []*models.Playlist // input order
	MinPID    int
	MaxPID    int

	// PendingTracks / PendingArtists list IDs that need catalog enrichment,
	// in first-encounter order.
	PendingTracks  []string
	PendingArtists []string

	tracks     map[string]*models.Track
	artists    map[string]*models.Artist
	trackOrder []string // first-encounter order of unique track IDs

	// byTrack maps a track ID to the PIDs whose membership lists reference
	// it. Maintained so a purge touches only the affected playlists.
	byTrack       map[string]map[int]struct{}
	playlistByPID map[int]*models.Playlist
	fromStore     map[string]struct{} // track IDs wired in from storage
	Purged        int
}

// Track returns the draft for a track ID, or nil if unknown or purged.
func (ws *WorkingSet) Track(id string) *models.Track { return ws.tracks[id] }

// Artist returns the resolved artist for an ID, or nil if unknown.
func (ws *WorkingSet) Artist(id string) *models.Artist { return ws.artists[id] }

// Artists exposes the resolved artist index for aggregation.
func (ws *WorkingSet) Artists() map[string]*models.Artist { return ws.artists }

// Tracks exposes the track index for aggregation.
func (ws *WorkingSet) Tracks() map[string]*models.Track { return ws.tracks }

// SetFeatures records fetched audio features on a pending track.
func (ws *WorkingSet) SetFeatures(trackID string, features models.AudioFeatures) {
	if track := ws.tracks[trackID]; track != nil {
		track.Features = features
		track.Enriched = true
	}
}

// AddArtist records a fetched artist.
func (ws *WorkingSet) AddArtist(artist *models.Artist) {
	ws.artists[artist.ID] = artist
}

// PurgeTrack removes a track and every membership referencing it from the
// working set. Returns the number of memberships detached. Safe to call for
// an already-purged ID.
func (ws *WorkingSet) PurgeTrack(trackID string) int {
	pids := ws.byTrack[trackID]
	if pids == nil && ws.tracks[trackID] == nil {
		return 0
	}

	detached := 0
	for pid := range pids {
		playlist := ws.playlistByPID[pid]
		kept := playlist.Tracks[:0]
		for _, m := range playlist.Tracks {
			if m.TrackID == trackID {
				detached++
				continue
			}
			kept = append(kept, m)
		}
		playlist.Tracks = kept
	}

	delete(ws.byTrack, trackID)
	delete(ws.tracks, trackID)
	ws.Purged++
	return detached
}

// PendingTracksOf returns the pending track IDs referencing the given
// artist, used when an artist lookup comes back absent.
func (ws *WorkingSet) PendingTracksOf(artistID string) []string {
	var ids []string
	for _, trackID := range ws.PendingTracks {
		track := ws.tracks[trackID]
		if track != nil && track.ArtistID == artistID {
			ids = append(ids, trackID)
		}
	}
	return ids
}

// CommitTracks returns the enriched tracks that were new this run, in
// first-encounter order, ready for insertion.
func (ws *WorkingSet) CommitTracks() []*models.Track {
	var out []*models.Track
	for _, id := range ws.trackOrder {
		track := ws.tracks[id]
		if track == nil || !track.Enriched {
			continue
		}
		if _, stored := ws.fromStore[id]; stored {
			continue
		}
		out = append(out, track)
	}
	return out
}

// CommitArtists returns the artists fetched this run (those listed in
// PendingArtists and successfully resolved), ready for insertion.
func (ws *WorkingSet) CommitArtists() []*models.Artist {
	var out []*models.Artist
	for _, id := range ws.PendingArtists {
		if artist := ws.artists[id]; artist != nil {
			out = append(out, artist)
		}
	}
	return out
}

// UniqueTracks counts the distinct track IDs seen in the input slices,
// including tracks later purged.
func (ws *WorkingSet) UniqueTracks() int { return len(ws.trackOrder) }

// Memberships counts the membership edges currently in the set.
func (ws *WorkingSet) Memberships() int {
	total := 0
	for _, p := range ws.Playlists {
		total += len(p.Tracks)
	}
	return total
}

// Resolver builds working sets against existing storage.
type Resolver struct {
	tracks  *repositories.TrackRepository
	artists *repositories.ArtistRepository
	logger  *log.Logger
}

// New creates a Resolver using the given repositories.
func New(tracks *repositories.TrackRepository, artists *repositories.ArtistRepository, logger *log.Logger) *Resolver {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &Resolver{tracks: tracks, artists: artists, logger: logger}
}

// Resolve builds the working set for the given slices.
//
// Tracks repeated across playlists collapse to one draft. Storage is
// consulted with exactly one bulk lookup for tracks and one for artists;
// entities found there are wired in directly and never re-fetched from the
// catalog. Nothing is dropped here; absence is only legitimate after a
// failed catalog lookup downstream.
func (r *Resolver) Resolve(loaded []*slices.Slice) (*WorkingSet, error) {
	ws := &WorkingSet{
		tracks:        make(map[string]*models.Track),
		artists:       make(map[string]*models.Artist),
		byTrack:       make(map[string]map[int]struct{}),
		playlistByPID: make(map[int]*models.Playlist),
		fromStore:     make(map[string]struct{}),
	}

	first := true
	for _, slice := range loaded {
		for i := range slice.Playlists {
			raw := &slice.Playlists[i]
			if first || raw.PID < ws.MinPID {
				ws.MinPID = raw.PID
			}
			if first || raw.PID > ws.MaxPID {
				ws.MaxPID = raw.PID
			}
			first = false

			playlist := draftPlaylist(raw, slice.GeneratedAt)
			ws.Playlists = append(ws.Playlists, playlist)
			ws.playlistByPID[playlist.PID] = playlist

			for j := range raw.Tracks {
				rawTrack := &raw.Tracks[j]
				trackID := IDFromURI(rawTrack.TrackURI)

				if _, seen := ws.tracks[trackID]; !seen {
					ws.tracks[trackID] = draftTrack(trackID, rawTrack)
					ws.trackOrder = append(ws.trackOrder, trackID)
				}

				playlist.Tracks = append(playlist.Tracks, models.Membership{
					PID:      playlist.PID,
					TrackID:  trackID,
					Position: rawTrack.Pos,
				})
				if ws.byTrack[trackID] == nil {
					ws.byTrack[trackID] = make(map[int]struct{})
				}
				ws.byTrack[trackID][playlist.PID] = struct{}{}
			}
		}
	}

	if len(ws.Playlists) == 0 {
		return nil, fmt.Errorf("%w: slices contain no playlists", shared.ErrInvalidInput)
	}

	// One bulk lookup each for tracks and artists; never per-entity queries.
	stored, err := r.tracks.FindByIDs(ws.trackOrder)
	if err != nil {
		return nil, fmt.Errorf("bulk track lookup failed: %w", err)
	}

	artistIDs := make([]string, 0, len(ws.trackOrder))
	seenArtists := make(map[string]struct{})
	for _, trackID := range ws.trackOrder {
		if storedTrack, ok := stored[trackID]; ok {
			ws.tracks[trackID] = storedTrack
			ws.fromStore[trackID] = struct{}{}
		} else {
			ws.PendingTracks = append(ws.PendingTracks, trackID)
		}

		artistID := ws.tracks[trackID].ArtistID
		if _, seen := seenArtists[artistID]; !seen {
			seenArtists[artistID] = struct{}{}
			artistIDs = append(artistIDs, artistID)
		}
	}

	storedArtists, err := r.artists.FindByIDs(artistIDs)
	if err != nil {
		return nil, fmt.Errorf("bulk artist lookup failed: %w", err)
	}
	ws.artists = storedArtists
	if ws.artists == nil {
		ws.artists = make(map[string]*models.Artist)
	}

	for _, artistID := range artistIDs {
		if _, ok := storedArtists[artistID]; ok {
			continue
		}
		ws.PendingArtists = append(ws.PendingArtists, artistID)
	}

	r.logger.Info("resolved working set",
		"playlists", len(ws.Playlists),
		"memberships", ws.Memberships(),
		"unique_tracks", len(ws.trackOrder),
		"stored_tracks", len(stored),
		"pending_tracks", len(ws.PendingTracks),
		"pending_artists", len(ws.PendingArtists))

	return ws, nil
}

func draftPlaylist(raw *slices.RawPlaylist, generatedAt time.Time) *models.Playlist {
	modified := time.Unix(raw.ModifiedAt, 0).UTC()
	y, m, d := modified.Date()

	return &models.Playlist{
		PID:           raw.PID,
		Name:          raw.Name,
		GeneratedAt:   generatedAt,
		ModifiedAt:    time.Date(y, m, d, 0, 0, 0, 0, time.UTC),
		NumTracks:     raw.NumTracks,
		NumArtists:    raw.NumArtists,
		NumAlbums:     raw.NumAlbums,
		NumFollowers:  raw.NumFollowers,
		NumEdits:      raw.NumEdits,
		Collaborative: raw.Collaborative == "true",
		DurationMS:    raw.DurationMS,
	}
}

func draftTrack(trackID string, raw *slices.RawTrack) *models.Track {
	return &models.Track{
		ID:         trackID,
		Name:       raw.TrackName,
		ArtistID:   IDFromURI(raw.ArtistURI),
		ArtistName: raw.ArtistName,
		AlbumID:    IDFromURI(raw.AlbumURI),
		AlbumName:  raw.AlbumName,
		Features:   models.AudioFeatures{DurationMS: raw.DurationMS},
	}
}
