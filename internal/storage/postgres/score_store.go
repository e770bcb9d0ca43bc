package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"

	"solana-risk-engine/internal/domain"
	"solana-risk-engine/internal/storage"
)

// ScoreStore implements storage.ScoreStore using PostgreSQL.
type ScoreStore struct {
	pool *Pool
}

// NewScoreStore creates a new ScoreStore.
func NewScoreStore(pool *Pool) *ScoreStore {
	return &ScoreStore{pool: pool}
}

// Compile-time interface check.
var _ storage.ScoreStore = (*ScoreStore)(nil)

// Insert adds a new score. Returns ErrDuplicateKey if run_id exists.
func (s *ScoreStore) Insert(ctx context.Context, score *domain.CompositeScore) error {
	if score.RunID == "" {
		return fmt.Errorf("%w: empty run_id", storage.ErrInvalidInput)
	}

	redFlags, err := json.Marshal(score.RedFlags)
	if err != nil {
		return fmt.Errorf("marshal red flags: %w", err)
	}
	perDetector, err := json.Marshal(score.PerDetector)
	if err != nil {
		return fmt.Errorf("marshal per-detector breakdown: %w", err)
	}

	query := `
		INSERT INTO composite_scores (
			run_id, token_address, value, risk_level, red_flags, per_detector, overall_confidence, computed_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err = s.pool.Exec(ctx, query,
		score.RunID,
		score.TokenAddress,
		score.Value,
		string(score.RiskLevel),
		redFlags,
		perDetector,
		score.OverallConfidence,
		score.ComputedAt,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert score: %w", err)
	}
	return nil
}

// GetByRunID retrieves a score by its run ID. Returns ErrNotFound if not exists.
func (s *ScoreStore) GetByRunID(ctx context.Context, runID string) (*domain.CompositeScore, error) {
	query := `
		SELECT run_id, token_address, value, risk_level, red_flags, per_detector, overall_confidence, computed_at
		FROM composite_scores
		WHERE run_id = $1
	`

	row := s.pool.QueryRow(ctx, query, runID)
	score, err := scanScore(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get score by run id: %w", err)
	}
	return score, nil
}

// GetLatestByMint retrieves the most recent score for a mint.
// Returns ErrNotFound if the mint has never been scored.
func (s *ScoreStore) GetLatestByMint(ctx context.Context, mint string) (*domain.CompositeScore, error) {
	query := `
		SELECT run_id, token_address, value, risk_level, red_flags, per_detector, overall_confidence, computed_at
		FROM composite_scores
		WHERE token_address = $1
		ORDER BY computed_at DESC, run_id ASC
		LIMIT 1
	`

	row := s.pool.QueryRow(ctx, query, mint)
	score, err := scanScore(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get latest score by mint: %w", err)
	}
	return score, nil
}

// ListByMint retrieves all scores for a mint, newest first, capped at limit.
func (s *ScoreStore) ListByMint(ctx context.Context, mint string, limit int) ([]*domain.CompositeScore, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("%w: limit must be positive", storage.ErrInvalidInput)
	}

	query := `
		SELECT run_id, token_address, value, risk_level, red_flags, per_detector, overall_confidence, computed_at
		FROM composite_scores
		WHERE token_address = $1
		ORDER BY computed_at DESC, run_id ASC
		LIMIT $2
	`

	rows, err := s.pool.Query(ctx, query, mint, limit)
	if err != nil {
		return nil, fmt.Errorf("list scores by mint: %w", err)
	}
	defer rows.Close()

	var scores []*domain.CompositeScore
	for rows.Next() {
		score, err := scanScore(rows)
		if err != nil {
			return nil, fmt.Errorf("scan score: %w", err)
		}
		scores = append(scores, score)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate scores: %w", err)
	}
	return scores, nil
}

// scanScore scans a single score row.
func scanScore(row pgx.Row) (*domain.CompositeScore, error) {
	var (
		score       domain.CompositeScore
		riskLevel   string
		redFlags    []byte
		perDetector []byte
	)

	err := row.Scan(
		&score.RunID,
		&score.TokenAddress,
		&score.Value,
		&riskLevel,
		&redFlags,
		&perDetector,
		&score.OverallConfidence,
		&score.ComputedAt,
	)
	if err != nil {
		return nil, err
	}

	score.RiskLevel = domain.RiskLevel(riskLevel)
	if len(redFlags) > 0 {
		if err := json.Unmarshal(redFlags, &score.RedFlags); err != nil {
			return nil, fmt.Errorf("unmarshal red flags: %w", err)
		}
	}
	if len(perDetector) > 0 {
		if err := json.Unmarshal(perDetector, &score.PerDetector); err != nil {
			return nil, fmt.Errorf("unmarshal per-detector breakdown: %w", err)
		}
	}
	return &score, nil
}
