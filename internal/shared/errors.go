package shared

import "fmt"

var (
	ErrNotImplemented = fmt.Errorf("not implemented")

	// Configuration errors
	ErrMissingConfig      = fmt.Errorf("configuration not found")
	ErrInvalidConfig      = fmt.Errorf("invalid configuration")
	ErrMissingCredentials = fmt.Errorf("missing credentials")

	// Slice loading errors
	ErrSliceNotFound  = fmt.Errorf("slice file not found")
	ErrSliceMalformed = fmt.Errorf("slice file malformed")

	// Catalog and provider errors
	ErrNotAuthenticated = fmt.Errorf("not authenticated")
	ErrAPIRequest       = fmt.Errorf("API request failed")
	ErrRateLimited      = fmt.Errorf("rate limited by provider")
	ErrBatchTooLarge    = fmt.Errorf("batch exceeds provider limit")
	ErrNotInCatalog     = fmt.Errorf("not found in catalog")

	// Aggregation errors
	ErrEmptyPlaylist = fmt.Errorf("playlist has no resolvable tracks")

	// Storage errors
	ErrPlaylistNotFound = fmt.Errorf("playlist not found")
	ErrTrackNotFound    = fmt.Errorf("track not found")
	ErrArtistNotFound   = fmt.Errorf("artist not found")

	// Input validation errors
	ErrInvalidInput    = fmt.Errorf("invalid input")
	ErrMissingArgument = fmt.Errorf("missing required argument")
	ErrInvalidFlag     = fmt.Errorf("invalid flag value")
)
