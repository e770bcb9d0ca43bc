package orchestrator

import (
	"context"
	"errors"
	"io"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"solana-risk-engine/internal/cache"
	"solana-risk-engine/internal/config"
	"solana-risk-engine/internal/domain"
	"solana-risk-engine/internal/verdict"
)

const validMint = "So11111111111111111111111111111111111111112"

type stubDetector struct {
	kind   domain.DetectorKind
	result *domain.DetectorResult
	err    error
	delay  time.Duration
	calls  atomic.Int64
}

func (s *stubDetector) Kind() domain.DetectorKind { return s.kind }

func (s *stubDetector) Detect(ctx context.Context, _ *domain.AnalysisRequest, _ *domain.AnalysisOptions) (*domain.DetectorResult, error) {
	s.calls.Add(1)
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if s.err != nil {
		return nil, s.err
	}
	if s.result != nil {
		return s.result, nil
	}
	return &domain.DetectorResult{Kind: s.kind, ScoreContribution: 10, Confidence: 1.0}, nil
}

func quietLog() *logrus.Entry {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l.WithField("test", true)
}

func newOrchestrator(t *testing.T, detectors []Detector, c *cache.Cache) *Orchestrator {
	t.Helper()
	cfg := config.Default()
	cfg.Orchestra.DetectorTimeout = 200 * time.Millisecond
	cfg.Orchestra.GlobalDeadline = time.Second
	return New(Options{
		Detectors:  detectors,
		Aggregator: verdict.NewAggregator(cfg.Aggregator),
		Cache:      c,
		Config:     cfg.Orchestra,
		CacheCfg:   cfg.Cache,
		ConfigHash: "test",
		Log:        quietLog(),
	})
}

func TestEvaluate_InvalidAddressFailsFast(t *testing.T) {
	d := &stubDetector{kind: domain.DetectorAuthority}
	o := newOrchestrator(t, []Detector{d}, nil)

	_, err := o.Evaluate(context.Background(), "not-a-mint!", nil)
	if !errors.Is(err, domain.ErrInvalidAddress) {
		t.Fatalf("err = %v, want invalid-address", err)
	}
	if d.calls.Load() != 0 {
		t.Error("detector ran despite invalid address")
	}
}

func TestEvaluate_FanOutCollectsAll(t *testing.T) {
	detectors := []Detector{
		&stubDetector{kind: domain.DetectorAuthority},
		&stubDetector{kind: domain.DetectorHolders},
		&stubDetector{kind: domain.DetectorCluster},
	}
	o := newOrchestrator(t, detectors, nil)

	score, err := o.Evaluate(context.Background(), validMint, nil)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if len(score.PerDetector) != 3 {
		t.Errorf("got %d breakdown rows, want 3", len(score.PerDetector))
	}
	if score.RunID == "" || score.TokenAddress != validMint {
		t.Errorf("score identity = %+v", score)
	}
	for _, b := range score.PerDetector {
		if b.Err != nil {
			t.Errorf("detector %s unexpectedly failed: %s", b.Kind, *b.Err)
		}
	}
}

func TestEvaluate_SlowDetectorTimesOutOthersSucceed(t *testing.T) {
	slow := &stubDetector{kind: domain.DetectorFunding, delay: 5 * time.Second}
	fast := &stubDetector{kind: domain.DetectorAuthority}
	o := newOrchestrator(t, []Detector{slow, fast}, nil)

	started := time.Now()
	score, err := o.Evaluate(context.Background(), validMint, nil)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if elapsed := time.Since(started); elapsed > 900*time.Millisecond {
		t.Errorf("run took %s, deadline not enforced", elapsed)
	}

	byKind := map[domain.DetectorKind]domain.DetectorBreakdown{}
	for _, b := range score.PerDetector {
		byKind[b.Kind] = b
	}
	if b := byKind[domain.DetectorFunding]; b.Err == nil || *b.Err != domain.ErrKindTimeout {
		t.Errorf("slow detector breakdown = %+v, want timeout", b)
	}
	if b := byKind[domain.DetectorAuthority]; b.Err != nil {
		t.Errorf("fast detector failed: %s", *b.Err)
	}
}

// stuckDetector sleeps without ever looking at its context, the way a
// ctx-unaware client call would.
type stuckDetector struct {
	kind  domain.DetectorKind
	delay time.Duration
}

func (s *stuckDetector) Kind() domain.DetectorKind { return s.kind }

func (s *stuckDetector) Detect(context.Context, *domain.AnalysisRequest, *domain.AnalysisOptions) (*domain.DetectorResult, error) {
	time.Sleep(s.delay)
	return &domain.DetectorResult{Kind: s.kind, ScoreContribution: 10, Confidence: 1.0}, nil
}

func TestEvaluate_ContextIgnoringDetectorCannotHoldTheRun(t *testing.T) {
	stuck := &stuckDetector{kind: domain.DetectorFunding, delay: 3 * time.Second}
	fast := &stubDetector{kind: domain.DetectorAuthority}
	o := newOrchestrator(t, []Detector{stuck, fast}, nil)

	started := time.Now()
	score, err := o.Evaluate(context.Background(), validMint, nil)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if elapsed := time.Since(started); elapsed > 2*time.Second {
		t.Fatalf("run took %s, global deadline did not force aggregation", elapsed)
	}

	byKind := map[domain.DetectorKind]domain.DetectorBreakdown{}
	for _, b := range score.PerDetector {
		byKind[b.Kind] = b
	}
	if len(byKind) != 2 {
		t.Fatalf("got %d breakdown rows, want 2", len(byKind))
	}
	if b := byKind[domain.DetectorFunding]; b.Err == nil || *b.Err != domain.ErrKindTimeout {
		t.Errorf("stuck detector breakdown = %+v, want timeout", b)
	}
	if b := byKind[domain.DetectorAuthority]; b.Err != nil {
		t.Errorf("fast detector failed: %s", *b.Err)
	}
}

func TestEvaluate_DetectorErrorIsDataNotControlFlow(t *testing.T) {
	failing := &stubDetector{kind: domain.DetectorMarket, err: domain.ErrRateLimited}
	healthy := &stubDetector{kind: domain.DetectorAuthority}
	o := newOrchestrator(t, []Detector{failing, healthy}, nil)

	score, err := o.Evaluate(context.Background(), validMint, nil)
	if err != nil {
		t.Fatalf("Evaluate returned error for detector failure: %v", err)
	}
	for _, b := range score.PerDetector {
		if b.Kind == domain.DetectorMarket {
			if b.Err == nil || *b.Err != domain.ErrKindRateLimited {
				t.Errorf("breakdown = %+v, want rate-limited", b)
			}
		}
	}
}

func TestEvaluate_SkipDetectors(t *testing.T) {
	a := &stubDetector{kind: domain.DetectorAuthority}
	b := &stubDetector{kind: domain.DetectorReputation}
	o := newOrchestrator(t, []Detector{a, b}, nil)

	score, err := o.Evaluate(context.Background(), validMint, &domain.AnalysisOptions{
		SkipDetectors: []domain.DetectorKind{domain.DetectorReputation},
	})
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if len(score.PerDetector) != 1 || score.PerDetector[0].Kind != domain.DetectorAuthority {
		t.Errorf("breakdown = %+v, want authority only", score.PerDetector)
	}
	if b.calls.Load() != 0 {
		t.Error("skipped detector ran")
	}
}

func TestEvaluate_CachesDetectorResults(t *testing.T) {
	d := &stubDetector{kind: domain.DetectorAuthority}
	o := newOrchestrator(t, []Detector{d}, cache.New())

	for i := 0; i < 3; i++ {
		if _, err := o.Evaluate(context.Background(), validMint, nil); err != nil {
			t.Fatalf("Evaluate %d: %v", i, err)
		}
	}
	if calls := d.calls.Load(); calls != 1 {
		t.Errorf("detector ran %d times, want 1 (cached)", calls)
	}
}

func TestEvaluate_FailedResultsNotCached(t *testing.T) {
	d := &stubDetector{kind: domain.DetectorAuthority, err: errors.New("boom")}
	o := newOrchestrator(t, []Detector{d}, cache.New())

	for i := 0; i < 2; i++ {
		if _, err := o.Evaluate(context.Background(), validMint, nil); err != nil {
			t.Fatalf("Evaluate %d: %v", i, err)
		}
	}
	if calls := d.calls.Load(); calls != 2 {
		t.Errorf("failing detector ran %d times, want 2 (errors not cached)", calls)
	}
}

func TestEvaluate_DistinctOptionsDistinctCacheKeys(t *testing.T) {
	d := &stubDetector{kind: domain.DetectorAuthority}
	o := newOrchestrator(t, []Detector{d}, cache.New())

	if _, err := o.Evaluate(context.Background(), validMint, nil); err != nil {
		t.Fatal(err)
	}
	withEvents := &domain.AnalysisOptions{
		BuyEvents: []domain.BuyEvent{{Wallet: "w", TxSignature: "s", TimestampMs: 1}},
	}
	if _, err := o.Evaluate(context.Background(), validMint, withEvents); err != nil {
		t.Fatal(err)
	}
	if calls := d.calls.Load(); calls != 2 {
		t.Errorf("detector ran %d times, want 2 (options change the key)", calls)
	}
}
