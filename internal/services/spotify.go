// Spotify Web API implementation of [Catalog]
//
// Response types based on https://developer.spotify.com/documentation/web-api/reference/
package services

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-resty/resty/v2"
	"github.com/tannerfalls/playlistdb/internal/models"
	"github.com/tannerfalls/playlistdb/internal/shared"
	"golang.org/x/oauth2/clientcredentials"
)

const (
	spotifyTokenURL = "https://accounts.spotify.com/api/token"
	spotifyBaseURL  = "https://api.spotify.com/v1"
)

type spotifyFollowers struct {
	Total int `json:"total"`
}

// spotifyArtist represents a full artist object from the Spotify API.
type spotifyArtist struct {
	ID         string           `json:"id"`
	Name       string           `json:"name"`
	Genres     []string         `json:"genres"`
	Followers  spotifyFollowers `json:"followers"`
	Popularity int              `json:"popularity"`
}

type audioFeaturesResponse struct {
	AudioFeatures []*models.AudioFeatures `json:"audio_features"`
}

type artistsResponse struct {
	Artists []*spotifyArtist `json:"artists"`
}

// SpotifyCatalog implements [Catalog] against the Spotify Web API using the
// client-credentials flow. Token acquisition and refresh are handled by the
// [clientcredentials] transport underneath the resty client.
type SpotifyCatalog struct {
	client *resty.Client
}

// NewSpotifyCatalog creates a Spotify catalog client with the given API credentials.
func NewSpotifyCatalog(clientID, clientSecret string) (*SpotifyCatalog, error) {
	if clientID == "" || clientSecret == "" {
		return nil, fmt.Errorf("%w: spotify client_id and client_secret required", shared.ErrMissingCredentials)
	}

	conf := &clientcredentials.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		TokenURL:     spotifyTokenURL,
	}

	httpClient := conf.Client(context.Background())
	client := resty.NewWithClient(httpClient).SetBaseURL(spotifyBaseURL)

	return &SpotifyCatalog{client: client}, nil
}

// NewSpotifyCatalogWithClient creates a catalog client with an injected HTTP
// client and base URL. Used by tests to point at a local server.
func NewSpotifyCatalogWithClient(httpClient *http.Client, baseURL string) *SpotifyCatalog {
	return &SpotifyCatalog{client: resty.NewWithClient(httpClient).SetBaseURL(baseURL)}
}

func (s *SpotifyCatalog) Name() string {
	return "Spotify"
}

// AudioFeatures fetches audio features for up to [MaxTrackBatch] track IDs.
// A nil entry in the result means the track is gone from the catalog.
func (s *SpotifyCatalog) AudioFeatures(ctx context.Context, ids []string) ([]*models.AudioFeatures, error) {
	if len(ids) == 0 {
		return nil, fmt.Errorf("%w: no track IDs provided", shared.ErrInvalidInput)
	}
	if len(ids) > MaxTrackBatch {
		return nil, fmt.Errorf("%w: %d track IDs (max %d)", shared.ErrBatchTooLarge, len(ids), MaxTrackBatch)
	}

	var result audioFeaturesResponse
	resp, err := s.client.R().
		SetContext(ctx).
		SetQueryParam("ids", strings.Join(ids, ",")).
		SetResult(&result).
		Get("/audio-features")
	if err != nil {
		return nil, fmt.Errorf("%w: audio-features: %v", shared.ErrAPIRequest, err)
	}
	if err := checkStatus(resp); err != nil {
		return nil, fmt.Errorf("audio-features: %w", err)
	}

	if len(result.AudioFeatures) != len(ids) {
		return nil, fmt.Errorf("%w: audio-features returned %d entries for %d IDs",
			shared.ErrAPIRequest, len(result.AudioFeatures), len(ids))
	}

	return result.AudioFeatures, nil
}

// Artists fetches artist attributes for up to [MaxArtistBatch] artist IDs.
// A nil entry in the result means the artist is gone from the catalog.
func (s *SpotifyCatalog) Artists(ctx context.Context, ids []string) ([]*models.Artist, error) {
	if len(ids) == 0 {
		return nil, fmt.Errorf("%w: no artist IDs provided", shared.ErrInvalidInput)
	}
	if len(ids) > MaxArtistBatch {
		return nil, fmt.Errorf("%w: %d artist IDs (max %d)", shared.ErrBatchTooLarge, len(ids), MaxArtistBatch)
	}

	var result artistsResponse
	resp, err := s.client.R().
		SetContext(ctx).
		SetQueryParam("ids", strings.Join(ids, ",")).
		SetResult(&result).
		Get("/artists")
	if err != nil {
		return nil, fmt.Errorf("%w: artists: %v", shared.ErrAPIRequest, err)
	}
	if err := checkStatus(resp); err != nil {
		return nil, fmt.Errorf("artists: %w", err)
	}

	if len(result.Artists) != len(ids) {
		return nil, fmt.Errorf("%w: artists returned %d entries for %d IDs",
			shared.ErrAPIRequest, len(result.Artists), len(ids))
	}

	artists := make([]*models.Artist, len(ids))
	for i, a := range result.Artists {
		if a == nil {
			continue
		}
		artists[i] = &models.Artist{
			ID:         a.ID,
			Name:       a.Name,
			Genres:     a.Genres,
			Followers:  a.Followers.Total,
			Popularity: a.Popularity,
		}
	}

	return artists, nil
}

// checkStatus maps HTTP failure statuses onto the shared error taxonomy.
func checkStatus(resp *resty.Response) error {
	switch {
	case resp.StatusCode() == http.StatusTooManyRequests:
		return fmt.Errorf("%w: status %d", shared.ErrRateLimited, resp.StatusCode())
	case resp.StatusCode() == http.StatusUnauthorized || resp.StatusCode() == http.StatusForbidden:
		return fmt.Errorf("%w: status %d", shared.ErrNotAuthenticated, resp.StatusCode())
	case resp.IsError():
		return fmt.Errorf("%w: status %d", shared.ErrAPIRequest, resp.StatusCode())
	}
	return nil
}
