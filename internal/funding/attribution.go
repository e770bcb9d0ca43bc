// Package funding traces where token buyers got their capital from and
// flags coordinated or anonymized funding patterns.
package funding

import (
	"solana-risk-engine/internal/config"
	"solana-risk-engine/internal/domain"
)

// BuildBreakdown folds per-wallet funding edges into a breakdown.
// weights maps a funded wallet to the percent of analyzed supply it holds;
// unlisted wallets count as zero. The function is pure.
func BuildBreakdown(edges []domain.FundingEdge, weights map[string]float64, cfg config.FundingConfig) domain.FundingBreakdown {
	breakdown := domain.FundingBreakdown{
		SourcePercentages: make(map[domain.SourceClass]float64),
		PerSourcePercent:  make(map[string]float64),
		Edges:             edges,
	}

	for _, e := range edges {
		w := weights[e.FundedWallet]
		breakdown.SourcePercentages[e.SourceClassification] += w
		breakdown.PerSourcePercent[e.FundingSource] += w
	}

	breakdown.Suspicious = suspicious(breakdown, edges, cfg)
	return breakdown
}

func suspicious(b domain.FundingBreakdown, edges []domain.FundingEdge, cfg config.FundingConfig) bool {
	// Any mixer involvement is suspicious on its own.
	if b.SourcePercentages[domain.SourceMixer] > 0 {
		return true
	}

	// A single non-exchange source funding a significant share of the
	// analyzed supply points at one operator behind many wallets.
	exchangeSources := make(map[string]bool)
	for _, e := range edges {
		if e.SourceClassification == domain.SourceExchange {
			exchangeSources[e.FundingSource] = true
		}
	}
	for source, pct := range b.PerSourcePercent {
		if exchangeSources[source] {
			continue
		}
		if pct >= cfg.SingleSourceSuspiciousPct {
			return true
		}
	}

	// Many fresh wallets funded from few distinct sources.
	freshPct := b.SourcePercentages[domain.SourceFreshWallet]
	if freshPct >= cfg.FreshWalletsSuspiciousPct {
		freshSources := make(map[string]bool)
		for _, e := range edges {
			if e.SourceClassification == domain.SourceFreshWallet {
				freshSources[e.FundingSource] = true
			}
		}
		if len(freshSources) <= cfg.FreshWalletsMaxSources {
			return true
		}
	}

	return false
}
