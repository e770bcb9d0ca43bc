package clickhouse

import (
	"context"
	"fmt"

	"solana-risk-engine/internal/domain"
	"solana-risk-engine/internal/storage"
)

// DetectorRunStore implements storage.DetectorRunStore using ClickHouse.
// Runs are an append-only audit log; there is no update path.
type DetectorRunStore struct {
	conn *Conn
}

// NewDetectorRunStore creates a new DetectorRunStore.
func NewDetectorRunStore(conn *Conn) *DetectorRunStore {
	return &DetectorRunStore{conn: conn}
}

// Compile-time interface check.
var _ storage.DetectorRunStore = (*DetectorRunStore)(nil)

// InsertBulk appends audit rows for one run.
func (s *DetectorRunStore) InsertBulk(ctx context.Context, runs []*domain.DetectorRun) error {
	if len(runs) == 0 {
		return nil
	}
	for _, r := range runs {
		if r.RunID == "" {
			return fmt.Errorf("%w: empty run_id", storage.ErrInvalidInput)
		}
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO detector_runs (
			run_id, token_address, detector,
			score_contribution, confidence, err_kind,
			red_flag_count, latency_ms, computed_at
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, r := range runs {
		// Pass nil directly for the Nullable err_kind column
		err = batch.Append(
			r.RunID, r.TokenAddress, string(r.Detector),
			r.ScoreContribution, r.Confidence, errKindValue(r.ErrKind),
			uint32(r.RedFlagCount), uint64(r.LatencyMs), uint64(r.ComputedAt),
		)
		if err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}

	return nil
}

// GetByRunID retrieves all audit rows for a run, ordered by detector.
func (s *DetectorRunStore) GetByRunID(ctx context.Context, runID string) ([]*domain.DetectorRun, error) {
	query := `
		SELECT
			run_id, token_address, detector,
			score_contribution, confidence, err_kind,
			red_flag_count, latency_ms, computed_at
		FROM detector_runs
		WHERE run_id = ?
		ORDER BY detector ASC
	`

	rows, err := s.conn.Query(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("query by run id: %w", err)
	}
	defer rows.Close()

	var out []*domain.DetectorRun
	for rows.Next() {
		var (
			r          domain.DetectorRun
			detector   string
			errKind    *string
			redFlags   uint32
			latencyMs  uint64
			computedAt uint64
		)

		err := rows.Scan(
			&r.RunID, &r.TokenAddress, &detector,
			&r.ScoreContribution, &r.Confidence, &errKind,
			&redFlags, &latencyMs, &computedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan detector run row: %w", err)
		}

		r.Detector = domain.DetectorKind(detector)
		if errKind != nil {
			kind := domain.ErrorKind(*errKind)
			r.ErrKind = &kind
		}
		r.RedFlagCount = int(redFlags)
		r.LatencyMs = int64(latencyMs)
		r.ComputedAt = int64(computedAt)

		out = append(out, &r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate detector run rows: %w", err)
	}

	return out, nil
}

// errKindValue converts the typed error kind to a Nullable(String) value.
func errKindValue(k *domain.ErrorKind) *string {
	if k == nil {
		return nil
	}
	s := string(*k)
	return &s
}
