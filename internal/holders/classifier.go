package holders

import (
	"sort"

	"solana-risk-engine/internal/domain"
	"solana-risk-engine/internal/solana"
	"solana-risk-engine/internal/whitelist"
)

// Classifier assigns each top holder a class before concentration math.
// Precedence is fixed: LP pools first, then whitelisted exchanges and
// protocols, then cluster membership. A holder gets exactly one class.
type Classifier struct {
	wl *whitelist.Snapshot
}

func NewClassifier(wl *whitelist.Snapshot) *Classifier {
	return &Classifier{wl: wl}
}

// RawHolder is a holder account before classification. Owner is the
// account's owner program when known, empty otherwise.
type RawHolder struct {
	Address    string
	Owner      string
	RawBalance uint64
}

// Classify ranks holders by balance and assigns classes. Ties in balance
// break by address ascending so the ranking is deterministic. clusters
// feeds the bundled class; only clusters at medium confidence or above
// mark their members.
func (c *Classifier) Classify(raw []RawHolder, supply uint64, clusters []domain.WalletCluster) []domain.HolderRecord {
	bundled := make(map[string]bool)
	for _, cl := range clusters {
		if !cl.Confidence.AtLeast(domain.ConfidenceMedium) {
			continue
		}
		for _, m := range cl.Members {
			bundled[m] = true
		}
	}

	sorted := make([]RawHolder, len(raw))
	copy(sorted, raw)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].RawBalance != sorted[j].RawBalance {
			return sorted[i].RawBalance > sorted[j].RawBalance
		}
		return sorted[i].Address < sorted[j].Address
	})

	records := make([]domain.HolderRecord, 0, len(sorted))
	for rank, h := range sorted {
		pct := 0.0
		if supply > 0 {
			pct = float64(h.RawBalance) / float64(supply) * 100
		}
		records = append(records, domain.HolderRecord{
			Address:            h.Address,
			RawBalance:         h.RawBalance,
			PercentageOfSupply: pct,
			Rank:               rank + 1,
			Classification:     c.classify(h, bundled),
		})
	}
	return records
}

func (c *Classifier) classify(h RawHolder, bundled map[string]bool) domain.HolderClass {
	if c.isLiquidityPool(h) {
		return domain.HolderLP
	}
	if c.wl.IsExchange(h.Address) || c.wl.IsExchange(h.Owner) {
		return domain.HolderExchange
	}
	if c.wl.IsProtocol(h.Address) || c.wl.IsProtocol(h.Owner) {
		return domain.HolderProtocol
	}
	if bundled[h.Address] || bundled[h.Owner] {
		return domain.HolderBundled
	}
	return domain.HolderUnclassified
}

// isLiquidityPool treats a holder as an LP vault when its owner is a known
// AMM program or an off-curve address. Pool authorities are PDAs, and PDAs
// by construction have no private key on the curve. The token account
// address itself is not tested: associated token accounts are PDAs too,
// which would mark every ordinary holder.
func (c *Classifier) isLiquidityPool(h RawHolder) bool {
	if h.Owner == "" {
		return false
	}
	if c.wl.IsAMMProgram(h.Owner) {
		return true
	}
	// Only apply the curve test to syntactically valid keys, otherwise
	// garbage owners would all land in the LP bucket.
	if err := solana.ValidateAddress(h.Owner); err != nil {
		return false
	}
	return !solana.IsOnCurve(h.Owner)
}

// Concentration sums the share of supply held by the top N holders after
// excluding LP, exchange, protocol and bundled accounts. Bundled supply is
// already charged by the cluster detector; counting it here would charge
// it twice.
func Concentration(records []domain.HolderRecord) domain.Concentration {
	counted := make([]domain.HolderRecord, 0, len(records))
	for _, r := range records {
		switch r.Classification {
		case domain.HolderLP, domain.HolderExchange, domain.HolderProtocol, domain.HolderBundled:
			continue
		}
		counted = append(counted, r)
	}
	sort.Slice(counted, func(i, j int) bool {
		if counted[i].PercentageOfSupply != counted[j].PercentageOfSupply {
			return counted[i].PercentageOfSupply > counted[j].PercentageOfSupply
		}
		return counted[i].Address < counted[j].Address
	})

	var conc domain.Concentration
	for i, r := range counted {
		if i < 10 {
			conc.Top10Percent += r.PercentageOfSupply
		}
		if i < 20 {
			conc.Top20Percent += r.PercentageOfSupply
		}
	}
	return conc
}
