// Package reporting renders analysis verdicts for humans and spreadsheets.
package reporting

import (
	"context"
	"errors"
	"fmt"

	"solana-risk-engine/internal/domain"
	"solana-risk-engine/internal/storage"
)

// Report bundles the latest verdict for a mint with its scoring history.
type Report struct {
	Latest  *domain.CompositeScore
	History []*domain.CompositeScore
}

// Generator assembles reports from stored scores.
type Generator struct {
	scores storage.ScoreStore
}

// NewGenerator creates a Generator backed by the given store.
func NewGenerator(scores storage.ScoreStore) *Generator {
	return &Generator{scores: scores}
}

// Build assembles a report for one mint. historyLimit caps the number of
// prior runs included; the latest run is always present.
func (g *Generator) Build(ctx context.Context, mint string, historyLimit int) (*Report, error) {
	latest, err := g.scores.GetLatestByMint(ctx, mint)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("no scores recorded for %s: %w", mint, err)
		}
		return nil, fmt.Errorf("load latest score: %w", err)
	}

	if historyLimit < 1 {
		historyLimit = 1
	}
	history, err := g.scores.ListByMint(ctx, mint, historyLimit)
	if err != nil {
		return nil, fmt.Errorf("load score history: %w", err)
	}

	return &Report{Latest: latest, History: history}, nil
}
