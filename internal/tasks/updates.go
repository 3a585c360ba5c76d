package tasks

import "fmt"

// ProgressUpdate represents a progress event during an ingestion run.
//
// Used to send real-time updates to the CLI or UI layer for display.
type ProgressUpdate struct {
	Phase   Phase  // Pipeline phase
	Step    int    // Current step number within phase
	Total   int    // Total steps in this phase
	Message string // Human-readable message for display
	Data    any    // Optional phase-specific data for advanced UIs
}

// Pipeline phase enumeration
type Phase int

const (
	LoadSlices Phase = iota
	Resolve
	FetchTracks
	FetchArtists
	Aggregate
	Commit
	Done
)

func (p Phase) String() string {
	switch p {
	case LoadSlices:
		return "load_slices"
	case Resolve:
		return "resolve"
	case FetchTracks:
		return "fetch_tracks"
	case FetchArtists:
		return "fetch_artists"
	case Aggregate:
		return "aggregate"
	case Commit:
		return "commit"
	case Done:
		return "done"
	default:
		return ""
	}
}

func loadSliceUpdate(step, total, index int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   LoadSlices,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] Loading slice %d...", step, total, index),
	}
}

func resolveUpdate(playlists, memberships int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Resolve,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Resolved %d playlists (%d memberships) against storage", playlists, memberships),
	}
}

func fetchTracksUpdate(step, total int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   FetchTracks,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] Fetching track features...", step, total),
	}
}

func fetchArtistsUpdate(step, total int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   FetchArtists,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] Fetching artists...", step, total),
	}
}

func aggregateUpdate(step, total int, name string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Aggregate,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] Aggregating: %s", step, total, name),
	}
}

func commitUpdate(minPID, maxPID int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Commit,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Replacing PID range [%d, %d]...", minPID, maxPID),
	}
}

func doneUpdate(result *IngestResult) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Done,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Ingested %d playlists in %s", result.Playlists, result.Duration.Round(resultDurationUnit)),
		Data:    result,
	}
}
