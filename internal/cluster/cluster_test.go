package cluster

import (
	"fmt"
	"testing"

	"solana-risk-engine/internal/config"
	"solana-risk-engine/internal/domain"
)

func testConfig() config.ClusterConfig {
	return config.ClusterConfig{
		CoordinationWindowMs: 300,
		MinMembers:           3,
		MinSupplyPercent:     1.0,
		LargeMemberCount:     6,
		LargeSupplyPercent:   10.0,
	}
}

// makeEvents builds n buys from n distinct wallets, spaced stepMs apart,
// each holding pct of supply.
func makeEvents(n int, startMs, stepMs int64, pct float64) []domain.BuyEvent {
	events := make([]domain.BuyEvent, n)
	for i := 0; i < n; i++ {
		events[i] = domain.BuyEvent{
			Wallet:        fmt.Sprintf("wallet%02d", i),
			TxSignature:   fmt.Sprintf("sig%02d", i),
			TimestampMs:   startMs + int64(i)*stepMs,
			Amount:        1000,
			SupplyPercent: pct,
		}
	}
	return events
}

func TestDetectClusters_TightWindowHighConfidence(t *testing.T) {
	// 8 wallets all within a 100ms window, controlling 16% of supply.
	events := makeEvents(8, 1_700_000_000_000, 12, 2.0)

	clusters := DetectClusters(events, testConfig())

	if len(clusters) != 1 {
		t.Fatalf("expected exactly 1 cluster, got %d", len(clusters))
	}
	c := clusters[0]
	if c.Confidence != domain.ConfidenceHigh {
		t.Errorf("confidence = %s, want high", c.Confidence)
	}
	if len(c.Members) != 8 {
		t.Errorf("members = %d, want 8", len(c.Members))
	}
	if c.TimingGapMs != c.LastTimestamp-c.FirstTimestamp {
		t.Errorf("TimingGapMs invariant violated: %d != %d", c.TimingGapMs, c.LastTimestamp-c.FirstTimestamp)
	}
	if c.TimingGapMs >= 300 {
		t.Errorf("cluster gap %dms not below coordination window", c.TimingGapMs)
	}
}

func TestDetectClusters_SpreadEventsNoCluster(t *testing.T) {
	// Same 8 wallets spread across 10 minutes: no cluster.
	events := makeEvents(8, 1_700_000_000_000, 75_000, 2.0)

	if clusters := DetectClusters(events, testConfig()); len(clusters) != 0 {
		t.Errorf("expected no clusters for spread events, got %d", len(clusters))
	}
}

func TestDetectClusters_SubThresholdNotMaterialized(t *testing.T) {
	cfg := testConfig()

	// Two members only: below MinMembers.
	events := makeEvents(2, 0, 10, 5.0)
	if got := DetectClusters(events, cfg); len(got) != 0 {
		t.Errorf("2-member group should not materialize, got %d clusters", len(got))
	}

	// Enough members but negligible supply.
	events = makeEvents(4, 0, 10, 0.1)
	if got := DetectClusters(events, cfg); len(got) != 0 {
		t.Errorf("low-supply group should not materialize, got %d clusters", len(got))
	}
}

func TestDetectClusters_TipTransferEscalates(t *testing.T) {
	// 3 members, 3% supply: no size/supply factor, low without a tip.
	events := makeEvents(3, 0, 10, 1.0)
	clusters := DetectClusters(events, testConfig())
	if len(clusters) != 1 {
		t.Fatalf("expected 1 cluster, got %d", len(clusters))
	}
	if clusters[0].Confidence != domain.ConfidenceLow {
		t.Errorf("confidence without tip = %s, want low", clusters[0].Confidence)
	}

	events[1].TipTransfer = true
	clusters = DetectClusters(events, testConfig())
	if clusters[0].Confidence != domain.ConfidenceMedium {
		t.Errorf("confidence with tip = %s, want medium", clusters[0].Confidence)
	}
}

func TestDetectClusters_Deterministic(t *testing.T) {
	events := makeEvents(10, 500, 20, 1.5)
	// Shuffle the input order; stable sort must normalize it.
	shuffled := []domain.BuyEvent{events[7], events[2], events[9], events[0],
		events[4], events[1], events[8], events[3], events[6], events[5]}

	a := DetectClusters(events, testConfig())
	b := DetectClusters(shuffled, testConfig())

	if len(a) != len(b) {
		t.Fatalf("cluster counts differ: %d vs %d", len(a), len(b))
	}
	for i := range a {
		if a[i].SupplyPercent != b[i].SupplyPercent || a[i].TimingGapMs != b[i].TimingGapMs {
			t.Errorf("cluster %d differs between orderings", i)
		}
		for j := range a[i].Members {
			if a[i].Members[j] != b[i].Members[j] {
				t.Errorf("cluster %d member order differs", i)
			}
		}
	}
}

func TestDetectClusters_TwoSeparatedClusters(t *testing.T) {
	first := makeEvents(4, 0, 10, 2.0)
	second := makeEvents(4, 60_000, 10, 2.0)
	for i := range second {
		second[i].Wallet = fmt.Sprintf("late%02d", i)
		second[i].TxSignature = fmt.Sprintf("latesig%02d", i)
	}

	clusters := DetectClusters(append(first, second...), testConfig())
	if len(clusters) != 2 {
		t.Fatalf("expected 2 clusters, got %d", len(clusters))
	}
	if clusters[0].FirstTimestamp >= clusters[1].FirstTimestamp {
		t.Error("clusters not ordered by time")
	}
}

func TestDetectClusters_EmptyInput(t *testing.T) {
	if got := DetectClusters(nil, testConfig()); got != nil {
		t.Errorf("expected nil for empty input, got %v", got)
	}
}
