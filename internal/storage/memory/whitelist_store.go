package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"solana-risk-engine/internal/storage"
	"solana-risk-engine/internal/whitelist"
)

// WhitelistStore implements storage.WhitelistStore in memory.
type WhitelistStore struct {
	mu     sync.RWMutex
	labels map[string]map[string]struct{}
}

// NewWhitelistStore creates a new in-memory WhitelistStore.
func NewWhitelistStore() *WhitelistStore {
	return &WhitelistStore{labels: make(map[string]map[string]struct{})}
}

// Compile-time interface check.
var _ storage.WhitelistStore = (*WhitelistStore)(nil)

// Upsert adds or relabels one address.
func (s *WhitelistStore) Upsert(_ context.Context, label, address string) error {
	if !whitelist.ValidLabel(label) {
		return fmt.Errorf("%w: unknown whitelist label %q", storage.ErrInvalidInput, label)
	}
	if address == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.labels[label] == nil {
		s.labels[label] = make(map[string]struct{})
	}
	s.labels[label][address] = struct{}{}
	return nil
}

// Load returns the full labeled set for building a snapshot.
func (s *WhitelistStore) Load(_ context.Context) (whitelist.Sets, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return whitelist.Sets{
		Exchanges:   sorted(s.labels[whitelist.LabelExchange]),
		Protocols:   sorted(s.labels[whitelist.LabelProtocol]),
		Mixers:      sorted(s.labels[whitelist.LabelMixer]),
		AMMPrograms: sorted(s.labels[whitelist.LabelAMMProgram]),
		TipAccounts: sorted(s.labels[whitelist.LabelTipAccount]),
	}, nil
}

func sorted(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for a := range set {
		out = append(out, a)
	}
	sort.Strings(out)
	return out
}
