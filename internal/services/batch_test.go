package services

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/tannerfalls/playlistdb/internal/models"
	"github.com/tannerfalls/playlistdb/internal/shared"
)

// recordingCatalog echoes back one feature set per requested ID and records
// batch sizes.
type recordingCatalog struct {
	batches  [][]string
	missing  map[string]bool
	failWith error
	failures int // fail this many calls before succeeding
}

func (c *recordingCatalog) Name() string { return "recording" }

func (c *recordingCatalog) AudioFeatures(ctx context.Context, ids []string) ([]*models.AudioFeatures, error) {
	c.batches = append(c.batches, append([]string(nil), ids...))
	if c.failures > 0 {
		c.failures--
		return nil, c.failWith
	}
	out := make([]*models.AudioFeatures, len(ids))
	for i, id := range ids {
		if c.missing[id] {
			continue
		}
		out[i] = &models.AudioFeatures{Energy: 0.5, DurationMS: 200000}
	}
	return out, nil
}

func (c *recordingCatalog) Artists(ctx context.Context, ids []string) ([]*models.Artist, error) {
	c.batches = append(c.batches, append([]string(nil), ids...))
	out := make([]*models.Artist, len(ids))
	for i, id := range ids {
		out[i] = &models.Artist{ID: id, Name: "Artist " + id}
	}
	return out, nil
}

func makeIDs(n int) []string {
	ids := make([]string, n)
	for i := range ids {
		ids[i] = fmt.Sprintf("id%03d", i)
	}
	return ids
}

func fastOpts() BatchFetcherOpts {
	return BatchFetcherOpts{
		PauseEvery: 1000,
		Pause:      time.Millisecond,
		RateLimit:  100000,
	}
}

func TestBatchFetcherTrackFeatures(t *testing.T) {
	t.Run("SplitsIntoProviderSizedBatches", func(t *testing.T) {
		catalog := &recordingCatalog{}
		fetcher := NewBatchFetcher(catalog, fastOpts())

		features, err := fetcher.TrackFeatures(context.Background(), makeIDs(250))
		if err != nil {
			t.Fatalf("fetch failed: %v", err)
		}

		if len(features) != 250 {
			t.Errorf("expected 250 results, got %d", len(features))
		}
		sizes := []int{}
		for _, b := range catalog.batches {
			sizes = append(sizes, len(b))
		}
		want := []int{100, 100, 50}
		if len(sizes) != len(want) {
			t.Fatalf("expected batch sizes %v, got %v", want, sizes)
		}
		for i := range want {
			if sizes[i] != want[i] {
				t.Errorf("batch %d: expected size %d, got %d", i, want[i], sizes[i])
			}
		}
	})

	t.Run("PreservesOrderAndNilEntries", func(t *testing.T) {
		catalog := &recordingCatalog{missing: map[string]bool{"id001": true}}
		fetcher := NewBatchFetcher(catalog, fastOpts())

		features, err := fetcher.TrackFeatures(context.Background(), []string{"id000", "id001", "id002"})
		if err != nil {
			t.Fatalf("fetch failed: %v", err)
		}
		if features[0] == nil || features[2] == nil {
			t.Error("present tracks must be non-nil")
		}
		if features[1] != nil {
			t.Error("absent track must stay nil at its input position")
		}
	})

	t.Run("EmptyInputMakesNoCalls", func(t *testing.T) {
		catalog := &recordingCatalog{}
		fetcher := NewBatchFetcher(catalog, fastOpts())

		features, err := fetcher.TrackFeatures(context.Background(), nil)
		if err != nil {
			t.Fatalf("fetch failed: %v", err)
		}
		if len(features) != 0 || len(catalog.batches) != 0 {
			t.Errorf("expected no calls for empty input, got %d batches", len(catalog.batches))
		}
	})

	t.Run("NonRetryableErrorFailsImmediately", func(t *testing.T) {
		catalog := &recordingCatalog{failWith: shared.ErrBatchTooLarge, failures: 1}
		fetcher := NewBatchFetcher(catalog, fastOpts())

		_, err := fetcher.TrackFeatures(context.Background(), makeIDs(3))
		if !errors.Is(err, shared.ErrBatchTooLarge) {
			t.Fatalf("expected ErrBatchTooLarge, got %v", err)
		}
		if len(catalog.batches) != 1 {
			t.Errorf("expected exactly 1 attempt, got %d", len(catalog.batches))
		}
	})
}

func TestBatchFetcherArtists(t *testing.T) {
	t.Run("UsesArtistBatchSize", func(t *testing.T) {
		catalog := &recordingCatalog{}
		fetcher := NewBatchFetcher(catalog, fastOpts())

		artists, err := fetcher.Artists(context.Background(), makeIDs(120))
		if err != nil {
			t.Fatalf("fetch failed: %v", err)
		}
		if len(artists) != 120 {
			t.Errorf("expected 120 results, got %d", len(artists))
		}

		want := []int{50, 50, 20}
		for i, w := range want {
			if len(catalog.batches[i]) != w {
				t.Errorf("batch %d: expected size %d, got %d", i, w, len(catalog.batches[i]))
			}
		}
	})
}

func TestBatchFetcherCourtesyPause(t *testing.T) {
	opts := fastOpts()
	opts.PauseEvery = 2
	catalog := &recordingCatalog{}
	fetcher := NewBatchFetcher(catalog, opts)

	// 3 batches of tracks: counter hits 2 once, pausing exactly one time
	start := time.Now()
	if _, err := fetcher.TrackFeatures(context.Background(), makeIDs(250)); err != nil {
		t.Fatalf("fetch failed: %v", err)
	}

	if fetcher.batchCount != 3 {
		t.Errorf("expected 3 counted batches, got %d", fetcher.batchCount)
	}
	if elapsed := time.Since(start); elapsed < opts.Pause {
		t.Errorf("expected at least one courtesy pause of %v, elapsed %v", opts.Pause, elapsed)
	}
}

func TestRetryable(t *testing.T) {
	cases := []struct {
		err  error
		want bool
	}{
		{shared.ErrRateLimited, true},
		{shared.ErrAPIRequest, true},
		{fmt.Errorf("wrapped: %w", shared.ErrRateLimited), true},
		{shared.ErrBatchTooLarge, false},
		{shared.ErrInvalidInput, false},
		{context.Canceled, false},
		{context.DeadlineExceeded, false},
		{errors.New("unknown"), false},
	}
	for _, c := range cases {
		if got := retryable(c.err); got != c.want {
			t.Errorf("retryable(%v): expected %v, got %v", c.err, c.want, got)
		}
	}
}

func TestChunk(t *testing.T) {
	t.Run("ExactMultiple", func(t *testing.T) {
		chunks := chunk(makeIDs(200), 100)
		if len(chunks) != 2 || len(chunks[0]) != 100 || len(chunks[1]) != 100 {
			t.Errorf("unexpected chunking: %d chunks", len(chunks))
		}
	})
	t.Run("Remainder", func(t *testing.T) {
		chunks := chunk(makeIDs(101), 100)
		if len(chunks) != 2 || len(chunks[1]) != 1 {
			t.Errorf("unexpected chunking: %d chunks", len(chunks))
		}
	})
	t.Run("Empty", func(t *testing.T) {
		if chunks := chunk(nil, 100); chunks != nil {
			t.Errorf("expected nil, got %v", chunks)
		}
	})
}
