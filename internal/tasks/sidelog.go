package tasks

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"
)

// SideLogEntry is one failed-enrichment record: a track or artist the
// catalog no longer knows about, kept for later inspection or reprocessing.
type SideLogEntry struct {
	RunID      string    `json:"run_id"`
	EntityType string    `json:"entity_type"` // "track" or "artist"
	EntityID   string    `json:"entity_id"`
	Reason     string    `json:"reason"`
	At         time.Time `json:"at"`
}

// SideLog appends failed-enrichment records to a JSONL file. The file is
// opened in append mode so records accumulate across runs. A nil *SideLog is
// a valid no-op logger.
type SideLog struct {
	mu    sync.Mutex
	f     *os.File
	enc   *json.Encoder
	runID string
}

// OpenSideLog opens (or creates) the side log at path for the given run.
func OpenSideLog(path, runID string) (*SideLog, error) {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open side log: %w", err)
	}
	return &SideLog{f: f, enc: json.NewEncoder(f), runID: runID}, nil
}

// Record appends one entry. Errors are returned but callers typically log and
// continue: a side-log failure must not abort a run.
func (s *SideLog) Record(entityType, entityID, reason string) error {
	if s == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.enc.Encode(SideLogEntry{
		RunID:      s.runID,
		EntityType: entityType,
		EntityID:   entityID,
		Reason:     reason,
		At:         time.Now().UTC(),
	})
}

// Close flushes and closes the underlying file.
func (s *SideLog) Close() error {
	if s == nil {
		return nil
	}
	return s.f.Close()
}
