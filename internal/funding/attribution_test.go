package funding

import (
	"context"
	"io"
	"testing"

	"github.com/sirupsen/logrus"

	"solana-risk-engine/internal/config"
	"solana-risk-engine/internal/domain"
	"solana-risk-engine/internal/whitelist"
)

func testFundingConfig() config.FundingConfig {
	return config.FundingConfig{
		MaxHops:                   4,
		FreshWalletAgeMs:          24 * 60 * 60 * 1000,
		SingleSourceSuspiciousPct: 5.0,
		FreshWalletsSuspiciousPct: 15.0,
		FreshWalletsMaxSources:    5,
	}
}

func TestBuildBreakdown_SingleSourceSuspicious(t *testing.T) {
	// Every buyer funded from the same unclassified wallet.
	edges := []domain.FundingEdge{
		{FundedWallet: "w1", FundingSource: "deployer", SourceClassification: domain.SourceUnknown},
		{FundedWallet: "w2", FundingSource: "deployer", SourceClassification: domain.SourceUnknown},
		{FundedWallet: "w3", FundingSource: "deployer", SourceClassification: domain.SourceUnknown},
	}
	weights := map[string]float64{"w1": 40, "w2": 35, "w3": 25}

	b := BuildBreakdown(edges, weights, testFundingConfig())

	if !b.Suspicious {
		t.Error("single-source funding of 100%% of supply not marked suspicious")
	}
	if b.PerSourcePercent["deployer"] != 100 {
		t.Errorf("deployer share = %f, want 100", b.PerSourcePercent["deployer"])
	}
}

func TestBuildBreakdown_ExchangeFundedNotSuspicious(t *testing.T) {
	// Same concentration but from a known exchange hot wallet.
	edges := []domain.FundingEdge{
		{FundedWallet: "w1", FundingSource: "binanceHot", SourceClassification: domain.SourceExchange},
		{FundedWallet: "w2", FundingSource: "binanceHot", SourceClassification: domain.SourceExchange},
	}
	weights := map[string]float64{"w1": 60, "w2": 40}

	b := BuildBreakdown(edges, weights, testFundingConfig())

	if b.Suspicious {
		t.Error("exchange-funded holders marked suspicious")
	}
	if b.SourcePercentages[domain.SourceExchange] != 100 {
		t.Errorf("exchange share = %f, want 100", b.SourcePercentages[domain.SourceExchange])
	}
}

func TestBuildBreakdown_MixerAlwaysSuspicious(t *testing.T) {
	edges := []domain.FundingEdge{
		{FundedWallet: "w1", FundingSource: "tornado", SourceClassification: domain.SourceMixer},
	}
	b := BuildBreakdown(edges, map[string]float64{"w1": 1}, testFundingConfig())
	if !b.Suspicious {
		t.Error("mixer funding not marked suspicious")
	}
}

func TestBuildBreakdown_FreshWalletsFewSources(t *testing.T) {
	cfg := testFundingConfig()

	edges := []domain.FundingEdge{
		{FundedWallet: "w1", FundingSource: "src1", SourceClassification: domain.SourceFreshWallet, IsRecentlyCreatedWallet: true},
		{FundedWallet: "w2", FundingSource: "src1", SourceClassification: domain.SourceFreshWallet, IsRecentlyCreatedWallet: true},
		{FundedWallet: "w3", FundingSource: "src2", SourceClassification: domain.SourceFreshWallet, IsRecentlyCreatedWallet: true},
	}
	weights := map[string]float64{"w1": 1, "w2": 1, "w3": 1}

	// 3% fresh across 2 sources: below the combined threshold, and each
	// source is below the single-source threshold.
	b := BuildBreakdown(edges, weights, cfg)
	if b.Suspicious {
		t.Error("3%% fresh-wallet funding marked suspicious")
	}

	weights = map[string]float64{"w1": 8, "w2": 2, "w3": 6}
	// 16% combined from 2 sources. src1 alone also crosses the
	// single-source bar at 10%.
	b = BuildBreakdown(edges, weights, cfg)
	if !b.Suspicious {
		t.Error("16%% fresh-wallet funding from 2 sources not marked suspicious")
	}
}

func TestBuildBreakdown_Empty(t *testing.T) {
	b := BuildBreakdown(nil, nil, testFundingConfig())
	if b.Suspicious {
		t.Error("empty breakdown marked suspicious")
	}
	if len(b.SourcePercentages) != 0 || len(b.PerSourcePercent) != 0 {
		t.Errorf("empty breakdown has entries: %+v", b)
	}
}

// fakeReader serves transfers and wallet ages from maps.
type fakeReader struct {
	transfers map[string][]Transfer
	firstSeen map[string]int64
}

func (f *fakeReader) IncomingTransfers(_ context.Context, wallet string, _ int) ([]Transfer, error) {
	return f.transfers[wallet], nil
}

func (f *fakeReader) FirstActivity(_ context.Context, wallet string) (int64, error) {
	return f.firstSeen[wallet], nil
}

func testSnapshot() *whitelist.Snapshot {
	return whitelist.NewSnapshot(1, whitelist.Sets{
		Exchanges: []string{"binanceHot"},
		Mixers:    []string{"tornado"},
	})
}

func TestTrace_StopsAtExchange(t *testing.T) {
	reader := &fakeReader{
		transfers: map[string][]Transfer{
			"buyer": {{From: "binanceHot", To: "buyer", Lamports: 5e9}},
		},
	}
	tracer := NewTracer(testFundingConfig(), reader, testSnapshot())

	edge, err := tracer.Trace(context.Background(), "buyer", 1_000_000)
	if err != nil {
		t.Fatalf("Trace: %v", err)
	}
	if edge.SourceClassification != domain.SourceExchange {
		t.Errorf("classification = %s, want exchange", edge.SourceClassification)
	}
	if edge.FundingSource != "binanceHot" {
		t.Errorf("source = %s, want binanceHot", edge.FundingSource)
	}
	if edge.Amount != 5.0 {
		t.Errorf("amount = %f SOL, want 5", edge.Amount)
	}
}

func TestTrace_WalksThroughFreshWallets(t *testing.T) {
	nowMs := int64(100 * 60 * 60 * 1000)
	reader := &fakeReader{
		transfers: map[string][]Transfer{
			"buyer": {{From: "hop1", To: "buyer", Lamports: 1e9}},
			"hop1":  {{From: "hop2", To: "hop1", Lamports: 2e9}},
			"hop2":  {{From: "tornado", To: "hop2", Lamports: 3e9}},
		},
		firstSeen: map[string]int64{
			// Both intermediates created within the freshness window.
			"hop1": nowMs - 1000,
			"hop2": nowMs - 2000,
		},
	}
	tracer := NewTracer(testFundingConfig(), reader, testSnapshot())

	edge, err := tracer.Trace(context.Background(), "buyer", nowMs)
	if err != nil {
		t.Fatalf("Trace: %v", err)
	}
	if edge.SourceClassification != domain.SourceMixer {
		t.Errorf("classification = %s, want mixer behind fresh hops", edge.SourceClassification)
	}
	if edge.FundingSource != "tornado" {
		t.Errorf("source = %s, want tornado", edge.FundingSource)
	}
}

func TestTrace_StopsAtAgedWallet(t *testing.T) {
	nowMs := int64(100 * 60 * 60 * 1000)
	reader := &fakeReader{
		transfers: map[string][]Transfer{
			"buyer": {{From: "oldWhale", To: "buyer", Lamports: 1e9}},
			// History exists past the old wallet but must not be walked.
			"oldWhale": {{From: "tornado", To: "oldWhale", Lamports: 9e9}},
		},
		firstSeen: map[string]int64{
			"oldWhale": nowMs - 90*24*60*60*1000,
		},
	}
	tracer := NewTracer(testFundingConfig(), reader, testSnapshot())

	edge, err := tracer.Trace(context.Background(), "buyer", nowMs)
	if err != nil {
		t.Fatalf("Trace: %v", err)
	}
	if edge.SourceClassification != domain.SourceUnknown {
		t.Errorf("classification = %s, want unknown at aged wallet", edge.SourceClassification)
	}
	if edge.FundingSource != "oldWhale" {
		t.Errorf("source = %s, want oldWhale", edge.FundingSource)
	}
}

func TestTrace_HopLimit(t *testing.T) {
	nowMs := int64(100 * 60 * 60 * 1000)
	// A chain longer than MaxHops of fresh wallets.
	reader := &fakeReader{
		transfers: map[string][]Transfer{
			"buyer": {{From: "h1", To: "buyer", Lamports: 1e9}},
			"h1":    {{From: "h2", To: "h1", Lamports: 1e9}},
			"h2":    {{From: "h3", To: "h2", Lamports: 1e9}},
			"h3":    {{From: "h4", To: "h3", Lamports: 1e9}},
			"h4":    {{From: "h5", To: "h4", Lamports: 1e9}},
			"h5":    {{From: "binanceHot", To: "h5", Lamports: 1e9}},
		},
		firstSeen: map[string]int64{
			"h1": nowMs - 1, "h2": nowMs - 1, "h3": nowMs - 1,
			"h4": nowMs - 1, "h5": nowMs - 1,
		},
	}
	cfg := testFundingConfig()
	tracer := NewTracer(cfg, reader, testSnapshot())

	edge, err := tracer.Trace(context.Background(), "buyer", nowMs)
	if err != nil {
		t.Fatalf("Trace: %v", err)
	}
	// The walk gives up inside the fresh chain without reaching the
	// exchange five hops out.
	if edge.SourceClassification != domain.SourceFreshWallet {
		t.Errorf("classification = %s, want fresh-wallet at hop limit", edge.SourceClassification)
	}
}

func TestDetect_SuspiciousFundingFlagged(t *testing.T) {
	reader := &fakeReader{
		transfers: map[string][]Transfer{
			"w1": {{From: "deployer", To: "w1", Lamports: 1e9}},
			"w2": {{From: "deployer", To: "w2", Lamports: 1e9}},
		},
		firstSeen: map[string]int64{"deployer": 1}, // ancient
	}
	log := logrus.New()
	log.SetOutput(io.Discard)
	d := NewDetector(testFundingConfig(), reader, whitelist.NewRegistry(testSnapshot()), nil, log.WithField("test", true))

	opts := &domain.AnalysisOptions{
		Holders: []domain.HolderRecord{
			{Address: "w1", PercentageOfSupply: 30},
			{Address: "w2", PercentageOfSupply: 25},
		},
	}
	result, err := d.Detect(context.Background(), &domain.AnalysisRequest{TokenAddress: "mint"}, opts)
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}
	if result.ScoreContribution >= 0 {
		t.Errorf("contribution = %f, want negative", result.ScoreContribution)
	}
	var found bool
	for _, f := range result.RedFlags {
		if f.Code == domain.FlagCoordinatedFunding {
			found = true
		}
	}
	if !found {
		t.Errorf("missing coordinated-funding flag, got %+v", result.RedFlags)
	}

	ev := result.Evidence.(Evidence)
	if !ev.Breakdown.Suspicious {
		t.Error("evidence breakdown not suspicious")
	}
}
