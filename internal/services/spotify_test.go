package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/tannerfalls/playlistdb/internal/shared"
	tu "github.com/tannerfalls/playlistdb/internal/testing"
)

func newTestCatalog(t *testing.T, handler http.HandlerFunc) *SpotifyCatalog {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewSpotifyCatalogWithClient(server.Client(), server.URL)
}

func TestSpotifyAudioFeatures(t *testing.T) {
	t.Run("ParsesFeaturesAndNullEntries", func(t *testing.T) {
		catalog := newTestCatalog(t, func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/audio-features" {
				t.Errorf("unexpected path %s", r.URL.Path)
			}
			if ids := r.URL.Query().Get("ids"); ids != "t1,t2" {
				t.Errorf("unexpected ids param %q", ids)
			}
			w.Header().Set("Content-Type", "application/json")
			fmt.Fprint(w, `{"audio_features": [
				{"id": "t1", "danceability": 0.7, "energy": 0.8, "tempo": 118.2, "duration_ms": 210000, "key": 4, "mode": 1, "time_signature": 4},
				null
			]}`)
		})

		features, err := catalog.AudioFeatures(context.Background(), []string{"t1", "t2"})
		if err != nil {
			t.Fatalf("request failed: %v", err)
		}

		if features[0] == nil {
			t.Fatal("expected first entry to be present")
		}
		if features[0].Danceability != 0.7 || features[0].Tempo != 118.2 {
			t.Errorf("unexpected feature values: %+v", features[0])
		}
		if features[1] != nil {
			t.Error("expected null entry to come back nil")
		}
	})

	t.Run("RejectsOversizedBatch", func(t *testing.T) {
		catalog := newTestCatalog(t, func(w http.ResponseWriter, r *http.Request) {
			t.Error("oversized batch must not reach the provider")
		})

		ids := make([]string, MaxTrackBatch+1)
		for i := range ids {
			ids[i] = fmt.Sprintf("t%d", i)
		}
		_, err := catalog.AudioFeatures(context.Background(), ids)
		if !errors.Is(err, shared.ErrBatchTooLarge) {
			t.Errorf("expected ErrBatchTooLarge, got %v", err)
		}
	})

	t.Run("RejectsEmptyBatch", func(t *testing.T) {
		catalog := newTestCatalog(t, func(w http.ResponseWriter, r *http.Request) {
			t.Error("empty batch must not reach the provider")
		})

		_, err := catalog.AudioFeatures(context.Background(), nil)
		if !errors.Is(err, shared.ErrInvalidInput) {
			t.Errorf("expected ErrInvalidInput, got %v", err)
		}
	})

	t.Run("LengthMismatchIsAnError", func(t *testing.T) {
		catalog := newTestCatalog(t, func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			fmt.Fprint(w, `{"audio_features": [null]}`)
		})

		_, err := catalog.AudioFeatures(context.Background(), []string{"t1", "t2"})
		if !errors.Is(err, shared.ErrAPIRequest) {
			t.Errorf("expected ErrAPIRequest for mismatched response, got %v", err)
		}
	})

	t.Run("MapsTooManyRequests", func(t *testing.T) {
		catalog := newTestCatalog(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusTooManyRequests)
		})

		_, err := catalog.AudioFeatures(context.Background(), []string{"t1"})
		if !errors.Is(err, shared.ErrRateLimited) {
			t.Errorf("expected ErrRateLimited, got %v", err)
		}
	})

	t.Run("MapsUnauthorized", func(t *testing.T) {
		catalog := newTestCatalog(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
		})

		_, err := catalog.AudioFeatures(context.Background(), []string{"t1"})
		if !errors.Is(err, shared.ErrNotAuthenticated) {
			t.Errorf("expected ErrNotAuthenticated, got %v", err)
		}
	})

	t.Run("TransportErrorIsAPIRequest", func(t *testing.T) {
		transport := tu.NewMockRoundTripper(nil, errors.New("connection reset"))
		catalog := NewSpotifyCatalogWithClient(&http.Client{Transport: transport}, "http://catalog.invalid")

		_, err := catalog.AudioFeatures(context.Background(), []string{"t1"})
		if !errors.Is(err, shared.ErrAPIRequest) {
			t.Errorf("expected ErrAPIRequest for transport failure, got %v", err)
		}
	})

	t.Run("MapsServerError", func(t *testing.T) {
		catalog := newTestCatalog(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		})

		_, err := catalog.AudioFeatures(context.Background(), []string{"t1"})
		if !errors.Is(err, shared.ErrAPIRequest) {
			t.Errorf("expected ErrAPIRequest, got %v", err)
		}
	})
}

func TestSpotifyArtists(t *testing.T) {
	t.Run("ParsesArtistAttributes", func(t *testing.T) {
		catalog := newTestCatalog(t, func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/artists" {
				t.Errorf("unexpected path %s", r.URL.Path)
			}
			w.Header().Set("Content-Type", "application/json")
			fmt.Fprint(w, `{"artists": [
				{"id": "a1", "name": "Artist One", "genres": ["pop", "dance pop"], "followers": {"total": 12345}, "popularity": 81},
				null
			]}`)
		})

		artists, err := catalog.Artists(context.Background(), []string{"a1", "a2"})
		if err != nil {
			t.Fatalf("request failed: %v", err)
		}

		a := artists[0]
		if a == nil {
			t.Fatal("expected first artist present")
		}
		if a.Name != "Artist One" || a.Followers != 12345 || a.Popularity != 81 {
			t.Errorf("unexpected artist values: %+v", a)
		}
		if strings.Join(a.Genres, ",") != "pop,dance pop" {
			t.Errorf("unexpected genres: %v", a.Genres)
		}
		if artists[1] != nil {
			t.Error("expected null artist to come back nil")
		}
	})

	t.Run("RejectsOversizedBatch", func(t *testing.T) {
		catalog := newTestCatalog(t, func(w http.ResponseWriter, r *http.Request) {
			t.Error("oversized batch must not reach the provider")
		})

		ids := make([]string, MaxArtistBatch+1)
		for i := range ids {
			ids[i] = fmt.Sprintf("a%d", i)
		}
		_, err := catalog.Artists(context.Background(), ids)
		if !errors.Is(err, shared.ErrBatchTooLarge) {
			t.Errorf("expected ErrBatchTooLarge, got %v", err)
		}
	})
}
