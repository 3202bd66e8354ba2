// Package history keeps the bounded interaction window and the durable
// session snapshot.
package history

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/tatianab/ironskeleton/internal/models"
)

// SnapshotFile is the file name of the durable snapshot inside the
// save directory.
const SnapshotFile = "snapshot.json"

// Store holds a fixed-capacity sliding window of interactions plus the
// path of the durable snapshot.
type Store struct {
	capacity int
	entries  []models.HistoryEntry
	dir      string
	now      func() time.Time
}

// NewStore creates a store with the given window capacity, persisting
// snapshots under dir.
func NewStore(dir string, capacity int) *Store {
	if capacity < 1 {
		capacity = 1
	}
	return &Store{capacity: capacity, dir: dir, now: time.Now}
}

// AddInteraction appends an entry to the window, evicting the oldest
// once capacity is exceeded.
func (s *Store) AddInteraction(input, output string) {
	s.entries = append(s.entries, models.HistoryEntry{Input: input, Output: output})
	if len(s.entries) > s.capacity {
		s.entries = s.entries[len(s.entries)-s.capacity:]
	}
}

// Window returns a copy of the current window, oldest first.
func (s *Store) Window() []models.HistoryEntry {
	out := make([]models.HistoryEntry, len(s.entries))
	copy(out, s.entries)
	return out
}

// Restore replaces the window contents, trimming to capacity from the
// oldest end. Used when resuming from a snapshot.
func (s *Store) Restore(entries []models.HistoryEntry) {
	s.entries = make([]models.HistoryEntry, len(entries))
	copy(s.entries, entries)
	if len(s.entries) > s.capacity {
		s.entries = s.entries[len(s.entries)-s.capacity:]
	}
}

// Snapshot serializes the durable projection of the session. The write
// goes to a temp file first and is renamed into place, so a crash
// mid-write never leaves a half-written snapshot.
func (s *Store) Snapshot(player *models.Player, locationID string, turnCount int) error {
	snap := models.Snapshot{
		Player:          *player,
		CurrentLocation: locationID,
		RecentHistory:   s.Window(),
		TurnCount:       turnCount,
		Timestamp:       s.now(),
	}

	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return fmt.Errorf("creating save dir: %w", err)
	}

	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding snapshot: %w", err)
	}

	path := filepath.Join(s.dir, SnapshotFile)
	tmp, err := os.CreateTemp(s.dir, SnapshotFile+".tmp-*")
	if err != nil {
		return fmt.Errorf("creating temp snapshot: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("writing snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("closing snapshot: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replacing snapshot: %w", err)
	}
	return nil
}

// Load reads the durable snapshot back, for resuming or out-of-process
// inspection.
func (s *Store) Load() (*models.Snapshot, error) {
	data, err := os.ReadFile(filepath.Join(s.dir, SnapshotFile))
	if err != nil {
		return nil, err
	}
	var snap models.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("decoding snapshot: %w", err)
	}
	return &snap, nil
}

// Reset clears the in-memory window and removes the durable snapshot.
func (s *Store) Reset() error {
	s.entries = nil
	err := os.Remove(filepath.Join(s.dir, SnapshotFile))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing snapshot: %w", err)
	}
	return nil
}
