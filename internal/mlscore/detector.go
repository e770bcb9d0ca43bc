package mlscore

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"solana-risk-engine/internal/cluster"
	"solana-risk-engine/internal/config"
	"solana-risk-engine/internal/domain"
	"solana-risk-engine/internal/market"
	"solana-risk-engine/internal/solana"
)

// Evidence is the typed evidence a model scoring run emits.
type Evidence struct {
	RugProbability float64
	ModelVersion   string // "fallback" when no model is configured
	Features       Features
	TopFactors     []Factor
}

// Detector runs model scoring as one member of the fan-out set.
type Detector struct {
	model      *Model
	rpc        solana.RPCClient
	market     market.DataSource
	clusterCfg config.ClusterConfig
	log        *logrus.Entry
}

// NewDetector creates the scoring detector. model may be nil, which selects
// the rule-based fallback. rpc and market may be nil; the corresponding
// features then stay at their neutral zero.
func NewDetector(model *Model, rpc solana.RPCClient, mkt market.DataSource, clusterCfg config.ClusterConfig, log *logrus.Entry) *Detector {
	return &Detector{model: model, rpc: rpc, market: mkt, clusterCfg: clusterCfg, log: log}
}

func (d *Detector) Kind() domain.DetectorKind {
	return domain.DetectorMLScore
}

// Detect assembles the feature vector from cheap sources and scores it.
// Feature gaps lower confidence instead of failing the run; the vector's
// zero values are the training pipeline's fill values.
func (d *Detector) Detect(ctx context.Context, req *domain.AnalysisRequest, opts *domain.AnalysisOptions) (*domain.DetectorResult, error) {
	features, coverage := d.buildFeatures(ctx, req, opts)

	var prob float64
	var factors []Factor
	version := "fallback"
	if d.model != nil {
		prob, factors = d.model.Score(features)
		version = d.model.Version
	} else {
		prob, factors = FallbackScore(features)
	}

	result := &domain.DetectorResult{
		Kind:       domain.DetectorMLScore,
		Confidence: 0.4 + 0.5*coverage,
		Evidence: Evidence{
			RugProbability: prob,
			ModelVersion:   version,
			Features:       features,
			TopFactors:     factors,
		},
	}
	result.ScoreContribution = (0.5 - prob) * 80

	if prob >= 0.7 {
		result.RedFlags = append(result.RedFlags, domain.RedFlag{
			Code:     domain.FlagMLHighRisk,
			Severity: 3,
			Message:  fmt.Sprintf("model estimates %.0f%% rug probability", prob*100),
			Detector: domain.DetectorMLScore,
		})
	}

	d.log.WithFields(logrus.Fields{
		"mint":     req.TokenAddress,
		"rug_prob": prob,
		"model":    version,
	}).Debug("model scoring complete")

	return result, nil
}

// buildFeatures fills what the available sources can observe and reports
// the fraction of source groups that answered.
func (d *Detector) buildFeatures(ctx context.Context, req *domain.AnalysisRequest, opts *domain.AnalysisOptions) (Features, float64) {
	var f Features
	groups, answered := 0, 0

	groups++
	if d.rpc != nil {
		if info, err := d.rpc.GetAccountInfo(ctx, req.TokenAddress); err == nil && info != nil {
			if mint, err := solana.ParseMintAccount(info.Data); err == nil {
				answered++
				if mint.MintAuthority == nil {
					f.MintRevoked = 1
				}
				if mint.FreezeAuthority == nil {
					f.FreezeRevoked = 1
				}
			}
		}
	}

	groups++
	if d.market != nil {
		if snap, err := d.market.TokenMarket(ctx, req.TokenAddress); err == nil {
			answered++
			if snap.LiquidityUSD > 0 {
				f.McToLiqRatio = snap.MarketCapUSD / snap.LiquidityUSD
			}
			f.PriceChange5m = snap.PriceChange5mPct
			f.VolumeVelocity5m = snap.Volume5mUSD
		}
	}

	groups++
	if len(opts.Holders) > 0 {
		answered++
		f.RealHolders = float64(len(opts.Holders))
		for i, h := range opts.Holders {
			if i >= 10 {
				break
			}
			f.Top10Concentration += h.PercentageOfSupply
		}
	}

	groups++
	if len(opts.BuyEvents) > 0 {
		answered++
		clusters := cluster.DetectClusters(opts.BuyEvents, d.clusterCfg)
		f.BundledClusters = float64(len(clusters))
		var clusterSupply, totalPrice float64
		for _, c := range clusters {
			clusterSupply += c.SupplyPercent
			if c.Confidence == domain.ConfidenceHigh {
				f.ClusterRiskScore = 1
			}
		}
		f.SniperPct = clusterSupply
		for _, e := range opts.BuyEvents {
			if e.TipTransfer {
				f.JitoBundleDetected = 1
			}
			totalPrice += e.Amount
		}
		f.AvgBuyPrice = totalPrice / float64(len(opts.BuyEvents))
	}

	return f, float64(answered) / float64(groups)
}
