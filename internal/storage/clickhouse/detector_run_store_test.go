package clickhouse_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solana-risk-engine/internal/domain"
	"solana-risk-engine/internal/storage"
	"solana-risk-engine/internal/storage/clickhouse"
)

func TestDetectorRunStore_InsertBulkAndGetByRunID(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	store := clickhouse.NewDetectorRunStore(conn)
	ctx := context.Background()

	errKind := domain.ErrKindRateLimited
	runs := []*domain.DetectorRun{
		{
			RunID:             "run-001",
			TokenAddress:      "MintAddress123",
			Detector:          domain.DetectorHolders,
			ScoreContribution: -15,
			Confidence:        0.9,
			RedFlagCount:      1,
			LatencyMs:         42,
			ComputedAt:        1700000000000,
		},
		{
			RunID:        "run-001",
			TokenAddress: "MintAddress123",
			Detector:     domain.DetectorMarket,
			ErrKind:      &errKind,
			LatencyMs:    1500,
			ComputedAt:   1700000000000,
		},
	}

	err := store.InsertBulk(ctx, runs)
	require.NoError(t, err)

	retrieved, err := store.GetByRunID(ctx, "run-001")
	require.NoError(t, err)
	require.Len(t, retrieved, 2)

	// Ordered by detector name
	assert.Equal(t, domain.DetectorHolders, retrieved[0].Detector)
	assert.Equal(t, domain.DetectorMarket, retrieved[1].Detector)

	assert.Equal(t, float64(-15), retrieved[0].ScoreContribution)
	assert.Equal(t, 0.9, retrieved[0].Confidence)
	assert.Equal(t, 1, retrieved[0].RedFlagCount)
	assert.Equal(t, int64(42), retrieved[0].LatencyMs)
	assert.Nil(t, retrieved[0].ErrKind)

	require.NotNil(t, retrieved[1].ErrKind)
	assert.Equal(t, domain.ErrKindRateLimited, *retrieved[1].ErrKind)
}

func TestDetectorRunStore_InsertBulkEmpty(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	store := clickhouse.NewDetectorRunStore(conn)
	ctx := context.Background()

	err := store.InsertBulk(ctx, nil)
	assert.NoError(t, err)
}

func TestDetectorRunStore_InsertBulkRejectsEmptyRunID(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	store := clickhouse.NewDetectorRunStore(conn)
	ctx := context.Background()

	err := store.InsertBulk(ctx, []*domain.DetectorRun{
		{TokenAddress: "MintAddress123", Detector: domain.DetectorHolders},
	})
	assert.ErrorIs(t, err, storage.ErrInvalidInput)
}

func TestDetectorRunStore_GetByRunIDEmpty(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	store := clickhouse.NewDetectorRunStore(conn)
	ctx := context.Background()

	runs, err := store.GetByRunID(ctx, "nonexistent-run")
	require.NoError(t, err)
	assert.Empty(t, runs)
}
