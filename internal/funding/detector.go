package funding

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"solana-risk-engine/internal/config"
	"solana-risk-engine/internal/domain"
	"solana-risk-engine/internal/whitelist"
)

// maxTracedWallets bounds the fan-out of chain walks per run. Tracing is
// by far the most RPC-expensive detector; the top holders carry the signal.
const maxTracedWallets = 10

// Evidence is the typed evidence a funding attribution run emits.
type Evidence struct {
	Breakdown     domain.FundingBreakdown
	TracedWallets int
}

// HolderSource supplies the buyer wallets to trace, weighted by their
// share of supply.
type HolderSource interface {
	TopHolderWallets(ctx context.Context, mint string, limit int) (map[string]float64, error)
}

// Detector runs funding attribution as one member of the fan-out set.
type Detector struct {
	cfg      config.FundingConfig
	reader   ChainReader
	registry *whitelist.Registry
	holders  HolderSource
	log      *logrus.Entry
	now      func() time.Time
}

func NewDetector(cfg config.FundingConfig, reader ChainReader, registry *whitelist.Registry, holders HolderSource, log *logrus.Entry) *Detector {
	return &Detector{cfg: cfg, reader: reader, registry: registry, holders: holders, log: log, now: time.Now}
}

func (d *Detector) Kind() domain.DetectorKind {
	return domain.DetectorFunding
}

// Detect traces the funding chains of the token's top buyers and scores
// the coordination signals in the resulting breakdown.
func (d *Detector) Detect(ctx context.Context, req *domain.AnalysisRequest, opts *domain.AnalysisOptions) (*domain.DetectorResult, error) {
	weights, err := d.collectWallets(ctx, req, opts)
	if err != nil {
		return nil, err
	}

	result := &domain.DetectorResult{Kind: domain.DetectorFunding}
	if len(weights) == 0 {
		result.Confidence = 0.2
		result.Evidence = Evidence{Breakdown: BuildBreakdown(nil, nil, d.cfg)}
		return result, nil
	}

	snap := d.registry.Current()
	tracer := NewTracer(d.cfg, d.reader, snap)
	nowMs := d.now().UnixMilli()

	edges := make([]domain.FundingEdge, 0, len(weights))
	for wallet := range weights {
		edge, err := tracer.Trace(ctx, wallet, nowMs)
		if err != nil {
			// Partial chains still inform the breakdown.
			d.log.WithError(err).WithField("wallet", wallet).Debug("funding trace incomplete")
		}
		edges = append(edges, edge)
	}

	breakdown := BuildBreakdown(edges, weights, d.cfg)
	result.Evidence = Evidence{Breakdown: breakdown, TracedWallets: len(edges)}
	result.Confidence = 0.8

	if mixerPct := breakdown.SourcePercentages[domain.SourceMixer]; mixerPct > 0 {
		result.ScoreContribution -= 40
		result.RedFlags = append(result.RedFlags, domain.RedFlag{
			Code:     domain.FlagMixerFunding,
			Severity: 3,
			Message:  fmt.Sprintf("%.1f%% of analyzed supply funded through a mixing service", mixerPct),
			Detector: domain.DetectorFunding,
		})
	}

	if breakdown.Suspicious {
		result.ScoreContribution -= 30
		result.RedFlags = append(result.RedFlags, domain.RedFlag{
			Code:     domain.FlagCoordinatedFunding,
			Severity: 3,
			Message:  coordinationMessage(breakdown),
			Detector: domain.DetectorFunding,
		})
	} else if len(result.RedFlags) == 0 {
		result.ScoreContribution = 5
	}

	d.log.WithFields(logrus.Fields{
		"mint":       req.TokenAddress,
		"wallets":    len(edges),
		"suspicious": breakdown.Suspicious,
	}).Debug("funding attribution complete")

	return result, nil
}

func (d *Detector) collectWallets(ctx context.Context, req *domain.AnalysisRequest, opts *domain.AnalysisOptions) (map[string]float64, error) {
	if len(opts.Holders) > 0 {
		weights := make(map[string]float64)
		for i, h := range opts.Holders {
			if i >= maxTracedWallets {
				break
			}
			weights[h.Address] = h.PercentageOfSupply
		}
		return weights, nil
	}
	if d.holders == nil {
		return nil, nil
	}
	return d.holders.TopHolderWallets(ctx, req.TokenAddress, maxTracedWallets)
}

func coordinationMessage(b domain.FundingBreakdown) string {
	var topSource string
	var topPct float64
	for source, pct := range b.PerSourcePercent {
		if pct > topPct || (pct == topPct && source < topSource) {
			topSource, topPct = source, pct
		}
	}
	if topSource != "" {
		return fmt.Sprintf("coordinated funding: %s funded %.1f%% of analyzed supply", topSource, topPct)
	}
	return "coordinated funding pattern across buyer wallets"
}
