// Package verdict folds the fan-out's detector results into the composite
// score. Aggregation is pure: same inputs, same verdict, no side effects.
package verdict

import (
	"sort"

	"solana-risk-engine/internal/config"
	"solana-risk-engine/internal/domain"
)

// Aggregator computes composite scores from detector result sets.
type Aggregator struct {
	cfg config.AggregatorConfig
}

func NewAggregator(cfg config.AggregatorConfig) *Aggregator {
	return &Aggregator{cfg: cfg}
}

// Aggregate folds results into the terminal score artifact. Failed
// detectors contribute nothing to the value but count against the overall
// confidence; a run where every detector failed yields confidence zero
// and the baseline value.
func (a *Aggregator) Aggregate(req *domain.AnalysisRequest, results []*domain.DetectorResult, computedAtMs int64) *domain.CompositeScore {
	score := &domain.CompositeScore{
		RunID:        req.RunID,
		TokenAddress: req.TokenAddress,
		ComputedAt:   computedAtMs,
	}

	value := a.cfg.BaselineScore
	var weightSum, confidenceSum float64
	failed := 0

	ordered := make([]*domain.DetectorResult, len(results))
	copy(ordered, results)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].Kind < ordered[j].Kind })

	var flags []domain.RedFlag
	seenCodes := make(map[string]bool)
	for _, r := range ordered {
		weight := a.cfg.Weights[string(r.Kind)]
		score.PerDetector = append(score.PerDetector, domain.DetectorBreakdown{
			Kind:              r.Kind,
			ScoreContribution: r.ScoreContribution,
			Confidence:        r.Confidence,
			Weight:            weight,
			Err:               r.Err,
			LatencyMs:         r.LatencyMs,
		})
		weightSum += weight
		if r.Failed() {
			failed++
			continue
		}
		confidenceSum += weight * r.Confidence
		flags = append(flags, r.RedFlags...)

		// A negative contribution backed only by causes an earlier
		// detector already charged for is evidence overlap, not new risk.
		if !a.cfg.CountOverlappingEvidence && overlapsOnly(r, seenCodes) {
			continue
		}
		for _, f := range r.RedFlags {
			seenCodes[f.Code] = true
		}
		value += weight * r.ScoreContribution * r.Confidence
	}

	if len(results) > 0 && failed*2 >= len(results) {
		flags = append(flags, domain.RedFlag{
			Code:     domain.FlagDegradedAnalysis,
			Severity: 2,
			Message:  "half or more of the detectors failed; treat this verdict as partial",
		})
	}

	score.Value = clamp(value, 0, 100)
	score.RiskLevel = a.level(score.Value)
	score.RedFlags = Dedup(flags)
	if weightSum > 0 {
		score.OverallConfidence = confidenceSum / weightSum
	}

	return score
}

func (a *Aggregator) level(value float64) domain.RiskLevel {
	switch {
	case value >= a.cfg.BandLow:
		return domain.RiskLow
	case value >= a.cfg.BandModerate:
		return domain.RiskModerate
	case value >= a.cfg.BandHigh:
		return domain.RiskHigh
	default:
		return domain.RiskExtreme
	}
}

// overlapsOnly reports whether r's risk evidence consists entirely of flag
// codes already charged by earlier detectors. Detectors without flags never
// overlap; their contribution stands on its own.
func overlapsOnly(r *domain.DetectorResult, seen map[string]bool) bool {
	if len(r.RedFlags) == 0 || r.ScoreContribution >= 0 {
		return false
	}
	for _, f := range r.RedFlags {
		if !seen[f.Code] {
			return false
		}
	}
	return true
}

// Dedup collapses flags sharing a code, keeping the highest severity.
// Output is ordered by severity descending, then code ascending.
func Dedup(flags []domain.RedFlag) []domain.RedFlag {
	byCode := make(map[string]domain.RedFlag, len(flags))
	for _, f := range flags {
		if kept, ok := byCode[f.Code]; !ok || f.Severity > kept.Severity {
			byCode[f.Code] = f
		}
	}
	out := make([]domain.RedFlag, 0, len(byCode))
	for _, f := range byCode {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Severity != out[j].Severity {
			return out[i].Severity > out[j].Severity
		}
		return out[i].Code < out[j].Code
	})
	if len(out) == 0 {
		return nil
	}
	return out
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
