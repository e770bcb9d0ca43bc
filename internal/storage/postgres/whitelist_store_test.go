package postgres_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solana-risk-engine/internal/storage"
	pgstore "solana-risk-engine/internal/storage/postgres"
	"solana-risk-engine/internal/whitelist"
)

func TestWhitelistStore_UpsertAndLoad(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := pgstore.NewWhitelistStore(pool)
	ctx := context.Background()

	require.NoError(t, store.Upsert(ctx, whitelist.LabelExchange, "BinanceHotWallet1"))
	require.NoError(t, store.Upsert(ctx, whitelist.LabelExchange, "CoinbaseHotWallet1"))
	require.NoError(t, store.Upsert(ctx, whitelist.LabelMixer, "MixerService1"))
	require.NoError(t, store.Upsert(ctx, whitelist.LabelAMMProgram, "RaydiumV4Program"))

	sets, err := store.Load(ctx)
	require.NoError(t, err)

	assert.Equal(t, []string{"BinanceHotWallet1", "CoinbaseHotWallet1"}, sets.Exchanges)
	assert.Equal(t, []string{"MixerService1"}, sets.Mixers)
	assert.Equal(t, []string{"RaydiumV4Program"}, sets.AMMPrograms)
	assert.Empty(t, sets.Protocols)
	assert.Empty(t, sets.TipAccounts)
}

func TestWhitelistStore_UpsertRelabels(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := pgstore.NewWhitelistStore(pool)
	ctx := context.Background()

	require.NoError(t, store.Upsert(ctx, whitelist.LabelProtocol, "SomeAddress"))
	require.NoError(t, store.Upsert(ctx, whitelist.LabelMixer, "SomeAddress"))

	sets, err := store.Load(ctx)
	require.NoError(t, err)

	assert.Empty(t, sets.Protocols)
	assert.Equal(t, []string{"SomeAddress"}, sets.Mixers)
}

func TestWhitelistStore_UpsertRejectsBadInput(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := pgstore.NewWhitelistStore(pool)
	ctx := context.Background()

	err := store.Upsert(ctx, "not_a_label", "SomeAddress")
	assert.ErrorIs(t, err, storage.ErrInvalidInput)

	err = store.Upsert(ctx, whitelist.LabelExchange, "")
	assert.ErrorIs(t, err, storage.ErrInvalidInput)
}
