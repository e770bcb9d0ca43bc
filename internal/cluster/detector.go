package cluster

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"solana-risk-engine/internal/config"
	"solana-risk-engine/internal/domain"
)

// BuyEventSource supplies early-window buy events when the caller did not
// provide them. Implemented by the trade capture component.
type BuyEventSource interface {
	EarlyBuyEvents(ctx context.Context, mint string) ([]domain.BuyEvent, error)
}

// Evidence is the typed evidence a cluster detection run emits.
type Evidence struct {
	Clusters             []domain.WalletCluster
	BundledSupplyPercent float64
	EventCount           int
}

// Detector runs bundle detection as one member of the fan-out set.
type Detector struct {
	cfg    config.ClusterConfig
	source BuyEventSource
	log    *logrus.Entry
}

// NewDetector creates a cluster detector. source may be nil; the detector
// then only handles caller-supplied events.
func NewDetector(cfg config.ClusterConfig, source BuyEventSource, log *logrus.Entry) *Detector {
	return &Detector{cfg: cfg, source: source, log: log}
}

// Kind returns the detector identity.
func (d *Detector) Kind() domain.DetectorKind {
	return domain.DetectorCluster
}

// Detect groups the token's early buys into clusters and converts the
// bundled supply share into a score contribution.
func (d *Detector) Detect(ctx context.Context, req *domain.AnalysisRequest, opts *domain.AnalysisOptions) (*domain.DetectorResult, error) {
	events := opts.BuyEvents
	if len(events) == 0 && d.source != nil {
		fetched, err := d.source.EarlyBuyEvents(ctx, req.TokenAddress)
		if err != nil {
			return nil, err
		}
		events = fetched
	}

	clusters := DetectClusters(events, d.cfg)

	var bundled float64
	highConf := 0
	for _, c := range clusters {
		bundled += c.SupplyPercent
		if c.Confidence == domain.ConfidenceHigh {
			highConf++
		}
	}

	result := &domain.DetectorResult{
		Kind: domain.DetectorCluster,
		Evidence: Evidence{
			Clusters:             clusters,
			BundledSupplyPercent: bundled,
			EventCount:           len(events),
		},
	}

	if len(events) == 0 {
		// No early-window data at all; weak signal either way.
		result.Confidence = 0.2
		result.ScoreContribution = 0
		return result, nil
	}

	result.Confidence = 0.9
	if len(clusters) == 0 {
		result.ScoreContribution = 10
		return result, nil
	}

	penalty := bundled*3 + float64(highConf)*10
	if penalty > 100 {
		penalty = 100
	}
	result.ScoreContribution = -penalty

	severity := 2
	if highConf > 0 || bundled >= d.cfg.LargeSupplyPercent {
		severity = 3
	}
	result.RedFlags = append(result.RedFlags, domain.RedFlag{
		Code:     domain.FlagBundledSupply,
		Severity: severity,
		Message:  flagMessage(len(clusters), bundled),
		Detector: domain.DetectorCluster,
	})

	d.log.WithFields(logrus.Fields{
		"mint":     req.TokenAddress,
		"clusters": len(clusters),
		"bundled":  bundled,
	}).Debug("bundle detection complete")

	return result, nil
}

func flagMessage(clusters int, bundled float64) string {
	if clusters == 1 {
		return fmt.Sprintf("1 coordinated buy cluster controls %.1f%% of supply", bundled)
	}
	return fmt.Sprintf("%d coordinated buy clusters control %.1f%% of supply", clusters, bundled)
}
