package memory

import (
	"context"
	"sort"
	"sync"

	"solana-risk-engine/internal/domain"
	"solana-risk-engine/internal/storage"
)

// DetectorRunStore implements storage.DetectorRunStore in memory.
type DetectorRunStore struct {
	mu   sync.RWMutex
	runs map[string][]*domain.DetectorRun
}

// NewDetectorRunStore creates a new in-memory DetectorRunStore.
func NewDetectorRunStore() *DetectorRunStore {
	return &DetectorRunStore{runs: make(map[string][]*domain.DetectorRun)}
}

// Compile-time interface check.
var _ storage.DetectorRunStore = (*DetectorRunStore)(nil)

// InsertBulk appends audit rows for one run.
func (s *DetectorRunStore) InsertBulk(_ context.Context, runs []*domain.DetectorRun) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, r := range runs {
		if r == nil || r.RunID == "" {
			return storage.ErrInvalidInput
		}
		stored := *r
		s.runs[r.RunID] = append(s.runs[r.RunID], &stored)
	}
	return nil
}

// GetByRunID retrieves all audit rows for a run, ordered by detector.
func (s *DetectorRunStore) GetByRunID(_ context.Context, runID string) ([]*domain.DetectorRun, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows := s.runs[runID]
	out := make([]*domain.DetectorRun, 0, len(rows))
	for _, r := range rows {
		c := *r
		out = append(out, &c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Detector < out[j].Detector })
	return out, nil
}
