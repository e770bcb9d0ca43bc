package verdict

import (
	"reflect"
	"testing"

	"solana-risk-engine/internal/config"
	"solana-risk-engine/internal/domain"
)

func testAggregator() *Aggregator {
	return NewAggregator(config.Default().Aggregator)
}

func req() *domain.AnalysisRequest {
	return &domain.AnalysisRequest{RunID: "run1", TokenAddress: "mint1"}
}

func ok(kind domain.DetectorKind, contribution, confidence float64, flags ...domain.RedFlag) *domain.DetectorResult {
	return &domain.DetectorResult{
		Kind:              kind,
		ScoreContribution: contribution,
		Confidence:        confidence,
		RedFlags:          flags,
	}
}

func TestAggregate_Idempotent(t *testing.T) {
	results := []*domain.DetectorResult{
		ok(domain.DetectorAuthority, -55, 1.0, domain.RedFlag{Code: domain.FlagMintAuthority, Severity: 3}),
		ok(domain.DetectorHolders, -15, 0.9, domain.RedFlag{Code: domain.FlagHighConcentration, Severity: 2}),
		ok(domain.DetectorCluster, 10, 0.9),
	}

	a := testAggregator()
	first := a.Aggregate(req(), results, 1000)
	second := a.Aggregate(req(), results, 1000)

	if !reflect.DeepEqual(first, second) {
		t.Errorf("aggregation not idempotent:\nfirst:  %+v\nsecond: %+v", first, second)
	}
}

func TestAggregate_OrderInsensitive(t *testing.T) {
	forward := []*domain.DetectorResult{
		ok(domain.DetectorAuthority, -30, 1.0),
		ok(domain.DetectorMarket, 10, 0.9),
		ok(domain.DetectorFunding, -20, 0.8),
	}
	reversed := []*domain.DetectorResult{forward[2], forward[1], forward[0]}

	a := testAggregator()
	if fw, rv := a.Aggregate(req(), forward, 1000), a.Aggregate(req(), reversed, 1000); !reflect.DeepEqual(fw, rv) {
		t.Error("aggregation depends on result order")
	}
}

func TestAggregate_ValueAlwaysInRange(t *testing.T) {
	cases := []struct {
		name    string
		results []*domain.DetectorResult
	}{
		{"all worst", []*domain.DetectorResult{
			ok(domain.DetectorAuthority, -100, 1.0),
			ok(domain.DetectorCluster, -100, 1.0),
			ok(domain.DetectorFunding, -100, 1.0),
		}},
		{"all best", []*domain.DetectorResult{
			ok(domain.DetectorAuthority, 100, 1.0),
			ok(domain.DetectorHolders, 100, 1.0),
			ok(domain.DetectorMarket, 100, 1.0),
		}},
		{"empty", nil},
	}
	a := testAggregator()
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			score := a.Aggregate(req(), tc.results, 1000)
			if score.Value < 0 || score.Value > 100 {
				t.Errorf("value = %f, out of [0,100]", score.Value)
			}
		})
	}
}

func TestAggregate_AllDetectorsFailed(t *testing.T) {
	results := []*domain.DetectorResult{
		domain.FailedResult(domain.DetectorAuthority, domain.ErrKindTimeout, 8000),
		domain.FailedResult(domain.DetectorHolders, domain.ErrKindRateLimited, 120),
		domain.FailedResult(domain.DetectorCluster, domain.ErrKindInternal, 5),
	}

	score := testAggregator().Aggregate(req(), results, 1000)

	if score.OverallConfidence != 0 {
		t.Errorf("confidence = %f, want 0 on total failure", score.OverallConfidence)
	}
	if score.Value != 70 {
		t.Errorf("value = %f, want baseline 70", score.Value)
	}
	var degraded bool
	for _, f := range score.RedFlags {
		if f.Code == domain.FlagDegradedAnalysis {
			degraded = true
		}
	}
	if !degraded {
		t.Errorf("missing degraded-analysis flag: %+v", score.RedFlags)
	}
}

func TestAggregate_PartialFailureCountsAgainstConfidence(t *testing.T) {
	healthy := []*domain.DetectorResult{
		ok(domain.DetectorAuthority, 10, 1.0),
		ok(domain.DetectorHolders, 10, 1.0),
	}
	degraded := []*domain.DetectorResult{
		ok(domain.DetectorAuthority, 10, 1.0),
		domain.FailedResult(domain.DetectorHolders, domain.ErrKindTimeout, 8000),
	}

	a := testAggregator()
	h := a.Aggregate(req(), healthy, 1000)
	d := a.Aggregate(req(), degraded, 1000)
	if d.OverallConfidence >= h.OverallConfidence {
		t.Errorf("degraded confidence %f not below healthy %f", d.OverallConfidence, h.OverallConfidence)
	}
}

func TestAggregate_RiskLevels(t *testing.T) {
	a := testAggregator()
	cases := []struct {
		contribution float64
		want         domain.RiskLevel
	}{
		{20, domain.RiskLow},       // 70 + 20 = 90
		{-10, domain.RiskModerate}, // 60
		{-40, domain.RiskHigh},     // 30
		{-60, domain.RiskExtreme},  // 10
	}
	for _, tc := range cases {
		// Single detector with weight 1 and full confidence.
		score := a.Aggregate(req(), []*domain.DetectorResult{ok(domain.DetectorHolders, tc.contribution, 1.0)}, 1000)
		if score.RiskLevel != tc.want {
			t.Errorf("contribution %f: level = %s (value %f), want %s", tc.contribution, score.RiskLevel, score.Value, tc.want)
		}
	}
}

func TestDedup_KeepsHighestSeverity(t *testing.T) {
	flags := []domain.RedFlag{
		{Code: domain.FlagBundledSupply, Severity: 2, Detector: domain.DetectorHolders},
		{Code: domain.FlagBundledSupply, Severity: 3, Detector: domain.DetectorCluster},
		{Code: domain.FlagLowLiquidity, Severity: 2, Detector: domain.DetectorMarket},
	}

	out := Dedup(flags)
	if len(out) != 2 {
		t.Fatalf("got %d flags, want 2", len(out))
	}
	if out[0].Code != domain.FlagBundledSupply || out[0].Severity != 3 {
		t.Errorf("first flag = %+v, want bundled severity 3", out[0])
	}
	if out[0].Detector != domain.DetectorCluster {
		t.Errorf("kept flag from %s, want the higher-severity emitter", out[0].Detector)
	}
}

func TestDedup_Empty(t *testing.T) {
	if out := Dedup(nil); out != nil {
		t.Errorf("Dedup(nil) = %+v, want nil", out)
	}
}

func TestAggregate_OverlappingEvidenceNotDoubleCounted(t *testing.T) {
	cfg := config.Default().Aggregator
	cfg.CountOverlappingEvidence = false
	a := NewAggregator(cfg)

	shared := domain.RedFlag{Code: domain.FlagBundledSupply, Severity: 3}
	overlapping := []*domain.DetectorResult{
		ok(domain.DetectorCluster, -30, 1.0, shared),
		ok(domain.DetectorHolders, -30, 1.0, shared),
	}
	distinct := []*domain.DetectorResult{
		ok(domain.DetectorCluster, -30, 1.0, shared),
		ok(domain.DetectorHolders, -30, 1.0, domain.RedFlag{Code: domain.FlagHighConcentration, Severity: 3}),
	}

	if ov, di := a.Aggregate(req(), overlapping, 1000), a.Aggregate(req(), distinct, 1000); ov.Value <= di.Value {
		t.Errorf("overlapping evidence value %f not above distinct-cause value %f", ov.Value, di.Value)
	}
}
