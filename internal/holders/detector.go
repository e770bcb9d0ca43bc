package holders

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"solana-risk-engine/internal/cluster"
	"solana-risk-engine/internal/config"
	"solana-risk-engine/internal/domain"
	"solana-risk-engine/internal/solana"
	"solana-risk-engine/internal/whitelist"
)

// Evidence is the typed evidence a holder analysis run emits.
type Evidence struct {
	Holders       []domain.HolderRecord
	Concentration domain.Concentration
	TotalHolders  int
}

// Detector runs holder classification and concentration as one member of
// the fan-out set.
type Detector struct {
	cfg        config.HoldersConfig
	clusterCfg config.ClusterConfig
	rpc        solana.RPCClient
	registry   *whitelist.Registry
	log        *logrus.Entry
}

func NewDetector(cfg config.HoldersConfig, clusterCfg config.ClusterConfig, rpc solana.RPCClient, registry *whitelist.Registry, log *logrus.Entry) *Detector {
	return &Detector{cfg: cfg, clusterCfg: clusterCfg, rpc: rpc, registry: registry, log: log}
}

func (d *Detector) Kind() domain.DetectorKind {
	return domain.DetectorHolders
}

// Detect classifies the token's largest holders and measures how much of
// the circulating supply the top unclassified wallets control. Caller-
// supplied holders skip the RPC fetch but are reclassified anyway so the
// concentration math never trusts upstream labels.
func (d *Detector) Detect(ctx context.Context, req *domain.AnalysisRequest, opts *domain.AnalysisOptions) (*domain.DetectorResult, error) {
	supplyResp, err := d.rpc.GetTokenSupply(ctx, req.TokenAddress)
	if err != nil {
		return nil, fmt.Errorf("token supply: %w", err)
	}
	supply := supplyResp.Amount

	raw, err := d.collect(ctx, req, opts)
	if err != nil {
		return nil, err
	}

	// Clusters computed from the same early-window events the cluster
	// detector sees, so bundled classification stays consistent across
	// the fan-out without a cross-detector dependency.
	clusters := cluster.DetectClusters(opts.BuyEvents, d.clusterCfg)

	classifier := NewClassifier(d.registry.Current())
	records := classifier.Classify(raw, supply, clusters)
	conc := Concentration(records)

	result := &domain.DetectorResult{
		Kind: domain.DetectorHolders,
		Evidence: Evidence{
			Holders:       records,
			Concentration: conc,
			TotalHolders:  len(records),
		},
	}

	if len(records) == 0 {
		result.Confidence = 0.3
		return result, nil
	}

	result.Confidence = 0.9
	switch {
	case conc.Top10Percent >= d.cfg.ConcentrationAlarmPct:
		result.ScoreContribution = -40
		result.RedFlags = append(result.RedFlags, domain.RedFlag{
			Code:     domain.FlagHighConcentration,
			Severity: 3,
			Message:  fmt.Sprintf("top 10 holders control %.1f%% of supply", conc.Top10Percent),
			Detector: domain.DetectorHolders,
		})
	case conc.Top10Percent >= d.cfg.ConcentrationWarnPct:
		result.ScoreContribution = -15
		result.RedFlags = append(result.RedFlags, domain.RedFlag{
			Code:     domain.FlagHighConcentration,
			Severity: 2,
			Message:  fmt.Sprintf("top 10 holders control %.1f%% of supply", conc.Top10Percent),
			Detector: domain.DetectorHolders,
		})
	default:
		result.ScoreContribution = 10
	}

	d.log.WithFields(logrus.Fields{
		"mint":    req.TokenAddress,
		"holders": len(records),
		"top10":   conc.Top10Percent,
	}).Debug("holder analysis complete")

	return result, nil
}

// TopHolderWallets returns retail-looking holder wallets mapped to their
// share of supply, for funding attribution. LP, exchange and protocol
// accounts are excluded; tracing known infrastructure wastes hops.
func (d *Detector) TopHolderWallets(ctx context.Context, mint string, limit int) (map[string]float64, error) {
	supplyResp, err := d.rpc.GetTokenSupply(ctx, mint)
	if err != nil {
		return nil, fmt.Errorf("token supply: %w", err)
	}

	raw, err := d.collect(ctx, &domain.AnalysisRequest{TokenAddress: mint}, &domain.AnalysisOptions{})
	if err != nil {
		return nil, err
	}

	// Token accounts resolve to their owner wallet where known; funding
	// traces wallets, not token accounts.
	owners := make(map[string]string, len(raw))
	for _, h := range raw {
		if h.Owner != "" {
			owners[h.Address] = h.Owner
		}
	}

	classifier := NewClassifier(d.registry.Current())
	records := classifier.Classify(raw, supplyResp.Amount, nil)

	out := make(map[string]float64, limit)
	for _, r := range records {
		if len(out) >= limit {
			break
		}
		switch r.Classification {
		case domain.HolderLP, domain.HolderExchange, domain.HolderProtocol:
			continue
		}
		wallet := r.Address
		if o, ok := owners[r.Address]; ok {
			wallet = o
		}
		out[wallet] += r.PercentageOfSupply
	}
	return out, nil
}

// collect returns the raw holder set, either from the caller or from the
// 20 largest token accounts with owners resolved per account.
func (d *Detector) collect(ctx context.Context, req *domain.AnalysisRequest, opts *domain.AnalysisOptions) ([]RawHolder, error) {
	if len(opts.Holders) > 0 {
		raw := make([]RawHolder, 0, len(opts.Holders))
		for _, h := range opts.Holders {
			raw = append(raw, RawHolder{Address: h.Address, RawBalance: h.RawBalance})
		}
		return raw, nil
	}

	balances, err := d.rpc.GetTokenLargestAccounts(ctx, req.TokenAddress)
	if err != nil {
		return nil, fmt.Errorf("largest accounts: %w", err)
	}

	raw := make([]RawHolder, 0, len(balances))
	for _, b := range balances {
		if len(raw) >= d.cfg.MaxHolders {
			break
		}
		h := RawHolder{Address: b.Address, RawBalance: b.Amount}
		// The largest-accounts list holds token accounts, not wallets.
		// Resolve each to its owner so whitelists match.
		info, err := d.rpc.GetAccountInfo(ctx, b.Address)
		if err == nil && info != nil {
			if acct, perr := solana.ParseTokenAccount(info.Data); perr == nil {
				h.Owner = acct.Owner
			}
		}
		raw = append(raw, h)
	}
	return raw, nil
}
