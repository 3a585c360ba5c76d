package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/tannerfalls/playlistdb/internal/models"
	"github.com/tannerfalls/playlistdb/internal/shared"
	"golang.org/x/time/rate"
)

// BatchFetcherOpts configures batching and politeness behavior.
type BatchFetcherOpts struct {
	TrackBatchSize  int           // Track IDs per request (default/max MaxTrackBatch)
	ArtistBatchSize int           // Artist IDs per request (default/max MaxArtistBatch)
	PauseEvery      int           // Unconditional courtesy pause after this many batches (default 100)
	Pause           time.Duration // Courtesy pause duration (default 1s)
	RateLimit       float64       // Requests per second (default 5)
	MaxRetries      int           // Reactive retries per batch on transient failure (default 3)
	Logger          *log.Logger
}

// BatchFetcher splits arbitrarily large ID sets into provider-sized batches
// and issues them strictly in input order.
//
// Two throttles apply. A token-bucket limiter spaces individual requests, and
// after every PauseEvery batches the fetcher pauses unconditionally, as a
// courtesy toward the provider's unstated abuse threshold rather than a
// reaction to any error. Transient failures (rate limiting, network errors) are retried
// with exponential backoff up to MaxRetries times per batch.
type BatchFetcher struct {
	catalog Catalog
	limiter *rate.Limiter
	opts    BatchFetcherOpts
	logger  *log.Logger

	batchCount int
}

// NewBatchFetcher creates a BatchFetcher around the given catalog.
func NewBatchFetcher(catalog Catalog, opts BatchFetcherOpts) *BatchFetcher {
	if opts.TrackBatchSize <= 0 || opts.TrackBatchSize > MaxTrackBatch {
		opts.TrackBatchSize = MaxTrackBatch
	}
	if opts.ArtistBatchSize <= 0 || opts.ArtistBatchSize > MaxArtistBatch {
		opts.ArtistBatchSize = MaxArtistBatch
	}
	if opts.PauseEvery <= 0 {
		opts.PauseEvery = 100
	}
	if opts.Pause <= 0 {
		opts.Pause = time.Second
	}
	if opts.RateLimit <= 0 {
		opts.RateLimit = 5.0
	}
	if opts.MaxRetries < 0 {
		opts.MaxRetries = 0
	} else if opts.MaxRetries == 0 {
		opts.MaxRetries = 3
	}

	logger := opts.Logger
	if logger == nil {
		logger = shared.NewLogger(nil)
	}

	return &BatchFetcher{
		catalog: catalog,
		limiter: rate.NewLimiter(rate.Limit(opts.RateLimit), 1),
		opts:    opts,
		logger:  logger,
	}
}

// TrackFeatures resolves audio features for all ids, preserving input order.
// Result entries are nil for tracks absent from the catalog.
func (f *BatchFetcher) TrackFeatures(ctx context.Context, ids []string) ([]*models.AudioFeatures, error) {
	results := make([]*models.AudioFeatures, 0, len(ids))
	for _, batch := range chunk(ids, f.opts.TrackBatchSize) {
		var features []*models.AudioFeatures
		err := f.callBatch(ctx, func() error {
			var err error
			features, err = f.catalog.AudioFeatures(ctx, batch)
			return err
		})
		if err != nil {
			return nil, fmt.Errorf("track feature batch failed: %w", err)
		}
		results = append(results, features...)
	}
	return results, nil
}

// Artists resolves artist attributes for all ids, preserving input order.
// Result entries are nil for artists absent from the catalog.
func (f *BatchFetcher) Artists(ctx context.Context, ids []string) ([]*models.Artist, error) {
	results := make([]*models.Artist, 0, len(ids))
	for _, batch := range chunk(ids, f.opts.ArtistBatchSize) {
		var artists []*models.Artist
		err := f.callBatch(ctx, func() error {
			var err error
			artists, err = f.catalog.Artists(ctx, batch)
			return err
		})
		if err != nil {
			return nil, fmt.Errorf("artist batch failed: %w", err)
		}
		results = append(results, artists...)
	}
	return results, nil
}

// callBatch runs one provider call with rate limiting, retry, and the
// counter-based courtesy pause.
func (f *BatchFetcher) callBatch(ctx context.Context, call func() error) error {
	var err error
	for attempt := 0; attempt <= f.opts.MaxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Second << (attempt - 1)
			f.logger.Warn("retrying catalog batch", "attempt", attempt, "backoff", backoff, "err", err)
			if serr := sleepCtx(ctx, backoff); serr != nil {
				return serr
			}
		}

		if lerr := f.limiter.Wait(ctx); lerr != nil {
			return lerr
		}

		err = call()
		if err == nil {
			break
		}
		if !retryable(err) {
			return err
		}
	}
	if err != nil {
		return err
	}

	f.batchCount++
	if f.batchCount%f.opts.PauseEvery == 0 {
		f.logger.Info("pausing between catalog batches", "after", f.batchCount, "pause", f.opts.Pause)
		if serr := sleepCtx(ctx, f.opts.Pause); serr != nil {
			return serr
		}
	}

	return nil
}

// retryable reports whether a provider error is worth retrying. Malformed
// requests (oversized batches, bad input) never are.
func retryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	if errors.Is(err, shared.ErrBatchTooLarge) || errors.Is(err, shared.ErrInvalidInput) {
		return false
	}
	return errors.Is(err, shared.ErrRateLimited) || errors.Is(err, shared.ErrAPIRequest)
}

// chunk splits ids into consecutive groups of at most size elements.
func chunk(ids []string, size int) [][]string {
	if len(ids) == 0 {
		return nil
	}
	chunks := make([][]string, 0, (len(ids)+size-1)/size)
	for start := 0; start < len(ids); start += size {
		end := min(start+size, len(ids))
		chunks = append(chunks, ids[start:end])
	}
	return chunks
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
