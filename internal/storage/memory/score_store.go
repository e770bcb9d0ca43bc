// Package memory provides in-memory store implementations for tests and
// single-process runs without persistence.
package memory

import (
	"context"
	"sort"
	"sync"

	"solana-risk-engine/internal/domain"
	"solana-risk-engine/internal/storage"
)

// ScoreStore implements storage.ScoreStore in memory.
type ScoreStore struct {
	mu      sync.RWMutex
	byRunID map[string]*domain.CompositeScore
	byMint  map[string][]*domain.CompositeScore
}

// NewScoreStore creates a new in-memory ScoreStore.
func NewScoreStore() *ScoreStore {
	return &ScoreStore{
		byRunID: make(map[string]*domain.CompositeScore),
		byMint:  make(map[string][]*domain.CompositeScore),
	}
}

// Compile-time interface check.
var _ storage.ScoreStore = (*ScoreStore)(nil)

// Insert adds a new score. Returns ErrDuplicateKey if run_id exists.
func (s *ScoreStore) Insert(_ context.Context, score *domain.CompositeScore) error {
	if score == nil || score.RunID == "" || score.TokenAddress == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byRunID[score.RunID]; exists {
		return storage.ErrDuplicateKey
	}

	stored := *score
	s.byRunID[score.RunID] = &stored
	s.byMint[score.TokenAddress] = append(s.byMint[score.TokenAddress], &stored)
	return nil
}

// GetByRunID retrieves a score by its run ID.
func (s *ScoreStore) GetByRunID(_ context.Context, runID string) (*domain.CompositeScore, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	score, ok := s.byRunID[runID]
	if !ok {
		return nil, storage.ErrNotFound
	}
	out := *score
	return &out, nil
}

// GetLatestByMint retrieves the most recent score for a mint.
func (s *ScoreStore) GetLatestByMint(_ context.Context, mint string) (*domain.CompositeScore, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	scores := s.byMint[mint]
	if len(scores) == 0 {
		return nil, storage.ErrNotFound
	}

	latest := scores[0]
	for _, sc := range scores[1:] {
		if sc.ComputedAt > latest.ComputedAt {
			latest = sc
		}
	}
	out := *latest
	return &out, nil
}

// ListByMint retrieves scores for a mint, newest first, capped at limit.
func (s *ScoreStore) ListByMint(_ context.Context, mint string, limit int) ([]*domain.CompositeScore, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	scores := s.byMint[mint]
	out := make([]*domain.CompositeScore, 0, len(scores))
	for _, sc := range scores {
		c := *sc
		out = append(out, &c)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].ComputedAt != out[j].ComputedAt {
			return out[i].ComputedAt > out[j].ComputedAt
		}
		return out[i].RunID < out[j].RunID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
