package dataset

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/natefinch/atomic"
	"github.com/rs/zerolog/log"

	"ado-pulse/internal/record"
)

const snapshotFile = "dataset.json"

// snapshotDTO is the on-disk form of a dataset snapshot.
type snapshotDTO struct {
	RefreshedAt time.Time       `json:"refreshedAt"`
	Records     []record.Record `json:"records"`
}

// SaveSnapshot writes the current snapshot to cacheDir. The write is atomic
// so a crash mid-write never leaves a torn cache file behind.
func (s *Store) SaveSnapshot(cacheDir string) error {
	records, refreshedAt := s.Current()

	data, err := json.Marshal(snapshotDTO{
		RefreshedAt: refreshedAt,
		Records:     records,
	})
	if err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}

	path := filepath.Join(cacheDir, snapshotFile)
	if err := atomic.WriteFile(path, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("failed to write snapshot: %w", err)
	}

	log.Debug().Str("path", path).Int("records", len(records)).Msg("Saved dataset snapshot")
	return nil
}

// LoadSnapshot populates the store from a previously saved snapshot, so a
// restarted process serves the last good dataset before its first refresh.
// A missing snapshot is not an error.
func (s *Store) LoadSnapshot(cacheDir string) error {
	path := filepath.Join(cacheDir, snapshotFile)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read snapshot: %w", err)
	}

	var snap snapshotDTO
	if err := json.Unmarshal(data, &snap); err != nil {
		return fmt.Errorf("failed to decode snapshot: %w", err)
	}

	s.Replace(snap.Records, snap.RefreshedAt)
	log.Info().Str("path", path).Int("records", len(snap.Records)).Msg("Loaded cached dataset snapshot")
	return nil
}
