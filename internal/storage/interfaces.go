package storage

import (
	"context"

	"solana-risk-engine/internal/domain"
	"solana-risk-engine/internal/whitelist"
)

// ScoreStore provides access to composite score storage.
type ScoreStore interface {
	// Insert adds a new score. Returns ErrDuplicateKey if run_id exists.
	Insert(ctx context.Context, s *domain.CompositeScore) error

	// GetByRunID retrieves a score by its run ID. Returns ErrNotFound if not exists.
	GetByRunID(ctx context.Context, runID string) (*domain.CompositeScore, error)

	// GetLatestByMint retrieves the most recent score for a mint.
	// Returns ErrNotFound if the mint has never been scored.
	GetLatestByMint(ctx context.Context, mint string) (*domain.CompositeScore, error)

	// ListByMint retrieves all scores for a mint, newest first, capped at limit.
	ListByMint(ctx context.Context, mint string, limit int) ([]*domain.CompositeScore, error)
}

// DetectorRunStore provides access to per-detector audit rows.
type DetectorRunStore interface {
	// InsertBulk appends audit rows for one run.
	InsertBulk(ctx context.Context, runs []*domain.DetectorRun) error

	// GetByRunID retrieves all audit rows for a run, ordered by detector.
	GetByRunID(ctx context.Context, runID string) ([]*domain.DetectorRun, error)
}

// WhitelistStore loads labeled address sets from persistent storage.
type WhitelistStore interface {
	// Load returns the full labeled set for building a snapshot.
	Load(ctx context.Context) (whitelist.Sets, error)

	// Upsert adds or relabels one address. label must be one of the
	// whitelist set names.
	Upsert(ctx context.Context, label, address string) error
}
