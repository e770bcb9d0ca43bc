package market

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"solana-risk-engine/internal/config"
	"solana-risk-engine/internal/domain"
)

// Evidence is the typed evidence a market check emits.
type Evidence struct {
	Snapshot       Snapshot
	McapToLiqRatio float64
	HoursSincePool float64
}

// Detector runs market checks as one member of the fan-out set.
type Detector struct {
	cfg    config.MarketConfig
	source DataSource
	log    *logrus.Entry
	now    func() time.Time
}

func NewDetector(cfg config.MarketConfig, source DataSource, log *logrus.Entry) *Detector {
	return &Detector{cfg: cfg, source: source, log: log, now: time.Now}
}

func (d *Detector) Kind() domain.DetectorKind {
	return domain.DetectorMarket
}

// Detect compares pool liquidity against the configured floors. A market
// cap far above the liquidity backing it means holders cannot collectively
// exit anywhere near the quoted price.
func (d *Detector) Detect(ctx context.Context, req *domain.AnalysisRequest, _ *domain.AnalysisOptions) (*domain.DetectorResult, error) {
	snap, err := d.source.TokenMarket(ctx, req.TokenAddress)
	if err != nil {
		return nil, err
	}

	ev := Evidence{Snapshot: *snap}
	if snap.LiquidityUSD > 0 {
		ev.McapToLiqRatio = snap.MarketCapUSD / snap.LiquidityUSD
	}
	if snap.PoolCreatedAt > 0 {
		ev.HoursSincePool = d.now().Sub(time.Unix(snap.PoolCreatedAt, 0)).Hours()
	}

	result := &domain.DetectorResult{
		Kind:       domain.DetectorMarket,
		Confidence: 0.9,
		Evidence:   ev,
	}

	switch {
	case snap.LiquidityUSD < d.cfg.MinLiquidityUSD:
		result.ScoreContribution = -30
		result.RedFlags = append(result.RedFlags, domain.RedFlag{
			Code:     domain.FlagLowLiquidity,
			Severity: 3,
			Message:  fmt.Sprintf("pool liquidity $%.0f is below the $%.0f floor", snap.LiquidityUSD, d.cfg.MinLiquidityUSD),
			Detector: domain.DetectorMarket,
		})
	case ev.McapToLiqRatio > d.cfg.MaxMcapToLiqRatio:
		result.ScoreContribution = -20
		result.RedFlags = append(result.RedFlags, domain.RedFlag{
			Code:     domain.FlagLowLiquidity,
			Severity: 2,
			Message:  fmt.Sprintf("market cap is %.0fx the pool liquidity", ev.McapToLiqRatio),
			Detector: domain.DetectorMarket,
		})
	default:
		result.ScoreContribution = 10
	}

	d.log.WithFields(logrus.Fields{
		"mint":      req.TokenAddress,
		"liquidity": snap.LiquidityUSD,
		"ratio":     ev.McapToLiqRatio,
	}).Debug("market check complete")

	return result, nil
}
