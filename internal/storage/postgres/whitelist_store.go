package postgres

import (
	"context"
	"fmt"

	"solana-risk-engine/internal/storage"
	"solana-risk-engine/internal/whitelist"
)

// WhitelistStore implements storage.WhitelistStore using PostgreSQL.
type WhitelistStore struct {
	pool *Pool
}

// NewWhitelistStore creates a new WhitelistStore.
func NewWhitelistStore(pool *Pool) *WhitelistStore {
	return &WhitelistStore{pool: pool}
}

// Compile-time interface check.
var _ storage.WhitelistStore = (*WhitelistStore)(nil)

// Upsert adds or relabels one address.
func (s *WhitelistStore) Upsert(ctx context.Context, label, address string) error {
	if !whitelist.ValidLabel(label) {
		return fmt.Errorf("%w: unknown whitelist label %q", storage.ErrInvalidInput, label)
	}
	if address == "" {
		return fmt.Errorf("%w: empty address", storage.ErrInvalidInput)
	}

	query := `
		INSERT INTO whitelist_entries (address, label)
		VALUES ($1, $2)
		ON CONFLICT (address) DO UPDATE SET label = EXCLUDED.label, updated_at = now()
	`

	if _, err := s.pool.Exec(ctx, query, address, label); err != nil {
		return fmt.Errorf("upsert whitelist entry: %w", err)
	}
	return nil
}

// Load returns the full labeled set for building a snapshot.
func (s *WhitelistStore) Load(ctx context.Context) (whitelist.Sets, error) {
	query := `
		SELECT address, label
		FROM whitelist_entries
		ORDER BY label ASC, address ASC
	`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return whitelist.Sets{}, fmt.Errorf("load whitelist: %w", err)
	}
	defer rows.Close()

	var sets whitelist.Sets
	for rows.Next() {
		var address, label string
		if err := rows.Scan(&address, &label); err != nil {
			return whitelist.Sets{}, fmt.Errorf("scan whitelist entry: %w", err)
		}
		switch label {
		case whitelist.LabelExchange:
			sets.Exchanges = append(sets.Exchanges, address)
		case whitelist.LabelProtocol:
			sets.Protocols = append(sets.Protocols, address)
		case whitelist.LabelMixer:
			sets.Mixers = append(sets.Mixers, address)
		case whitelist.LabelAMMProgram:
			sets.AMMPrograms = append(sets.AMMPrograms, address)
		case whitelist.LabelTipAccount:
			sets.TipAccounts = append(sets.TipAccounts, address)
		}
	}
	if err := rows.Err(); err != nil {
		return whitelist.Sets{}, fmt.Errorf("iterate whitelist: %w", err)
	}
	return sets, nil
}
