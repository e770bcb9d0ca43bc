// Package cluster implements timing-correlation bundle detection: groups of
// wallets whose early buys land within a coordination window, typically the
// signature of an MEV bundle coupling token creation with insider buys.
package cluster

import (
	"sort"

	"solana-risk-engine/internal/config"
	"solana-risk-engine/internal/domain"
)

// DetectClusters groups buy events into wallet clusters. Deterministic
// single pass: given the same event list and thresholds it always yields
// the same clusters. Events are sorted stably by timestamp (signature
// tie-break) before grouping; no wall-clock dependence.
//
// A candidate group holds consecutive events whose total span stays below
// the coordination window. It materializes as a WalletCluster only when the
// distinct member count and combined supply share both clear their minimums.
func DetectClusters(events []domain.BuyEvent, cfg config.ClusterConfig) []domain.WalletCluster {
	if len(events) == 0 {
		return nil
	}

	sorted := make([]domain.BuyEvent, len(events))
	copy(sorted, events)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].TimestampMs != sorted[j].TimestampMs {
			return sorted[i].TimestampMs < sorted[j].TimestampMs
		}
		return sorted[i].TxSignature < sorted[j].TxSignature
	})

	var clusters []domain.WalletCluster
	start := 0
	for i := 1; i <= len(sorted); i++ {
		if i < len(sorted) && sorted[i].TimestampMs-sorted[start].TimestampMs < cfg.CoordinationWindowMs {
			continue
		}
		if c, ok := materialize(sorted[start:i], cfg); ok {
			clusters = append(clusters, c)
		}
		start = i
	}

	return clusters
}

// materialize turns a candidate window into a cluster when it clears the
// member and supply minimums. Sub-threshold groups are not materialized.
func materialize(group []domain.BuyEvent, cfg config.ClusterConfig) (domain.WalletCluster, bool) {
	members := make(map[string]struct{})
	var supply float64
	tipSeen := false
	for _, e := range group {
		members[e.Wallet] = struct{}{}
		supply += e.SupplyPercent
		if e.TipTransfer {
			tipSeen = true
		}
	}

	if len(members) < cfg.MinMembers || supply < cfg.MinSupplyPercent {
		return domain.WalletCluster{}, false
	}

	sortedMembers := make([]string, 0, len(members))
	for m := range members {
		sortedMembers = append(sortedMembers, m)
	}
	sort.Strings(sortedMembers)

	first := group[0].TimestampMs
	last := group[len(group)-1].TimestampMs

	return domain.WalletCluster{
		Members:        sortedMembers,
		FirstTimestamp: first,
		LastTimestamp:  last,
		TimingGapMs:    last - first,
		SupplyPercent:  supply,
		Confidence:     escalate(tipSeen, len(members), supply, cfg),
	}, true
}

// escalate raises confidence one level per independent factor, capped at high.
func escalate(tipSeen bool, memberCount int, supplyPercent float64, cfg config.ClusterConfig) domain.ClusterConfidence {
	level := 0
	if tipSeen {
		level++
	}
	if memberCount >= cfg.LargeMemberCount {
		level++
	}
	if supplyPercent >= cfg.LargeSupplyPercent {
		level++
	}

	switch {
	case level >= 2:
		return domain.ConfidenceHigh
	case level == 1:
		return domain.ConfidenceMedium
	default:
		return domain.ConfidenceLow
	}
}
