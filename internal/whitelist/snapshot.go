// Package whitelist provides the classification tables consumed by the
// holder classifier and funding attributor: known exchange, protocol, mixer,
// AMM program and block-builder tip addresses.
//
// Tables are immutable snapshots. A reload builds a fresh Snapshot and swaps
// the registry pointer atomically; in-flight readers keep the snapshot they
// started with and are never torn.
package whitelist

import (
	"sync/atomic"
	"time"

	"solana-risk-engine/internal/domain"
)

// Labels under which addresses are stored and reloaded.
const (
	LabelExchange   = "exchange"
	LabelProtocol   = "protocol"
	LabelMixer      = "mixer"
	LabelAMMProgram = "amm_program"
	LabelTipAccount = "tip_account"
)

// ValidLabel reports whether label names one of the classification tables.
func ValidLabel(label string) bool {
	switch label {
	case LabelExchange, LabelProtocol, LabelMixer, LabelAMMProgram, LabelTipAccount:
		return true
	}
	return false
}

// Snapshot is one immutable version of the classification tables.
type Snapshot struct {
	Version  int64
	LoadedAt int64 // Unix ms

	exchanges   map[string]struct{}
	protocols   map[string]struct{}
	mixers      map[string]struct{}
	ammPrograms map[string]struct{}
	tipAccounts map[string]struct{}
}

// Sets is the raw input for building a snapshot.
type Sets struct {
	Exchanges   []string `yaml:"exchanges" json:"exchanges"`
	Protocols   []string `yaml:"protocols" json:"protocols"`
	Mixers      []string `yaml:"mixers" json:"mixers"`
	AMMPrograms []string `yaml:"amm_programs" json:"amm_programs"`
	TipAccounts []string `yaml:"tip_accounts" json:"tip_accounts"`
}

// NewSnapshot builds an immutable snapshot from raw sets.
func NewSnapshot(version int64, sets Sets) *Snapshot {
	toSet := func(addrs []string) map[string]struct{} {
		m := make(map[string]struct{}, len(addrs))
		for _, a := range addrs {
			m[a] = struct{}{}
		}
		return m
	}
	return &Snapshot{
		Version:     version,
		LoadedAt:    time.Now().UnixMilli(),
		exchanges:   toSet(sets.Exchanges),
		protocols:   toSet(sets.Protocols),
		mixers:      toSet(sets.Mixers),
		ammPrograms: toSet(sets.AMMPrograms),
		tipAccounts: toSet(sets.TipAccounts),
	}
}

// IsExchange reports whether addr is a known exchange wallet.
func (s *Snapshot) IsExchange(addr string) bool {
	_, ok := s.exchanges[addr]
	return ok
}

// IsProtocol reports whether addr is a known protocol account.
func (s *Snapshot) IsProtocol(addr string) bool {
	_, ok := s.protocols[addr]
	return ok
}

// IsMixer reports whether addr is a known mixing/anonymizing service.
func (s *Snapshot) IsMixer(addr string) bool {
	_, ok := s.mixers[addr]
	return ok
}

// IsAMMProgram reports whether addr is a recognized AMM program.
func (s *Snapshot) IsAMMProgram(addr string) bool {
	_, ok := s.ammPrograms[addr]
	return ok
}

// IsTipAccount reports whether addr is a block-builder tip/treasury account.
func (s *Snapshot) IsTipAccount(addr string) bool {
	_, ok := s.tipAccounts[addr]
	return ok
}

// ClassifySource labels a funding source address. Freshness is decided by
// the caller; this only consults the tables.
func (s *Snapshot) ClassifySource(addr string) domain.SourceClass {
	switch {
	case s.IsExchange(addr):
		return domain.SourceExchange
	case s.IsProtocol(addr):
		return domain.SourceProtocol
	case s.IsMixer(addr):
		return domain.SourceMixer
	default:
		return domain.SourceUnknown
	}
}

// Registry hands out the current snapshot and swaps it on reload.
type Registry struct {
	current atomic.Pointer[Snapshot]
}

// NewRegistry creates a registry seeded with the given snapshot.
func NewRegistry(initial *Snapshot) *Registry {
	r := &Registry{}
	r.current.Store(initial)
	return r
}

// Current returns the live snapshot. The returned value is immutable.
func (r *Registry) Current() *Snapshot {
	return r.current.Load()
}

// Swap installs a new snapshot. In-flight readers keep the old one.
func (r *Registry) Swap(next *Snapshot) {
	r.current.Store(next)
}

// IsTipAccount checks the live snapshot. Lets long-lived components see
// reloads without holding a stale snapshot.
func (r *Registry) IsTipAccount(addr string) bool {
	return r.Current().IsTipAccount(addr)
}
