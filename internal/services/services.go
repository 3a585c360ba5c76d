// package services implements clients for external music catalog APIs.
//
// The ingestion pipeline depends only on the [Catalog] interface, so the
// concrete Spotify client can be replaced by a test double.
package services

import (
	"context"

	"github.com/tannerfalls/playlistdb/internal/models"
)

// Documented hard limits of the catalog provider. Enforced by callers:
// requests above these sizes are rejected, never silently truncated.
const (
	MaxTrackBatch  = 100
	MaxArtistBatch = 50
)

// Catalog resolves audio features for tracks and descriptive attributes for
// artists, in batches.
//
// Both methods return one entry per requested ID, in request order; a nil
// entry means the ID is not in the catalog (deleted upstream). The pipeline
// relies on this positional pairing and performs no ID-keyed re-matching.
type Catalog interface {
	Name() string
	AudioFeatures(ctx context.Context, ids []string) ([]*models.AudioFeatures, error)
	Artists(ctx context.Context, ids []string) ([]*models.Artist, error)
}
