// package testing contains shared testing utilities
package testing

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"testing"

	"github.com/tannerfalls/playlistdb/internal/models"
)

// MockCatalog is a scripted test double for [services.Catalog].
//
// Responses are keyed by entity ID; IDs absent from the maps come back nil,
// mirroring catalog misses. Calls are recorded for assertion.
type MockCatalog struct {
	Features    map[string]*models.AudioFeatures
	ArtistsByID map[string]*models.Artist
	Err         error // returned from every call when set

	FeatureCalls [][]string
	ArtistCalls  [][]string
}

func NewMockCatalog() *MockCatalog {
	return &MockCatalog{
		Features:    map[string]*models.AudioFeatures{},
		ArtistsByID: map[string]*models.Artist{},
	}
}

func (m *MockCatalog) Name() string { return "mock" }

func (m *MockCatalog) AudioFeatures(ctx context.Context, ids []string) ([]*models.AudioFeatures, error) {
	m.FeatureCalls = append(m.FeatureCalls, append([]string(nil), ids...))
	if m.Err != nil {
		return nil, m.Err
	}
	out := make([]*models.AudioFeatures, len(ids))
	for i, id := range ids {
		out[i] = m.Features[id]
	}
	return out, nil
}

func (m *MockCatalog) Artists(ctx context.Context, ids []string) ([]*models.Artist, error) {
	m.ArtistCalls = append(m.ArtistCalls, append([]string(nil), ids...))
	if m.Err != nil {
		return nil, m.Err
	}
	out := make([]*models.Artist, len(ids))
	for i, id := range ids {
		out[i] = m.ArtistsByID[id]
	}
	return out, nil
}

// SeedTrack registers features for a track ID with all values set to v.
func (m *MockCatalog) SeedTrack(id string, v float64) {
	m.Features[id] = &models.AudioFeatures{
		Acousticness:     v,
		Danceability:     v,
		DurationMS:       200000,
		Energy:           v,
		Instrumentalness: v,
		Key:              5,
		Liveness:         v,
		Loudness:         -6.5,
		Mode:             1,
		Speechiness:      v,
		Tempo:            120,
		TimeSignature:    4,
		Valence:          v,
	}
}

// SeedArtist registers an artist with the given genres.
func (m *MockCatalog) SeedArtist(id, name string, genres ...string) {
	m.ArtistsByID[id] = &models.Artist{
		ID:         id,
		Name:       name,
		Genres:     genres,
		Followers:  1000,
		Popularity: 50,
	}
}

// MockRoundTripper allows custom HTTP responses for testing
type MockRoundTripper struct {
	response *http.Response
	err      error
}

func NewMockRoundTripper(r *http.Response, e error) *MockRoundTripper {
	return &MockRoundTripper{response: r, err: e}
}

func (m *MockRoundTripper) RoundTrip(*http.Request) (*http.Response, error) {
	return m.response, m.err
}

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}

// WriteSliceFile writes a slice JSON document under dir using the canonical
// file name for (index, size) and returns its path.
func WriteSliceFile(t *testing.T, dir string, index, size int, contents string) string {
	t.Helper()
	name := fmt.Sprintf("mpd.slice.%d-%d.json", index*size, index*size+size-1)
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("Failed to write slice file %s: %v", path, err)
	}
	return path
}

func AssertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("File does not exist: %s", path)
	}
}
