// Package orchestrator runs the detector fan-out for one token and folds
// the results into a composite score. Detector failures are recorded as
// typed results; only an invalid address aborts a run.
package orchestrator

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"solana-risk-engine/internal/cache"
	"solana-risk-engine/internal/config"
	"solana-risk-engine/internal/domain"
	"solana-risk-engine/internal/idhash"
	"solana-risk-engine/internal/solana"
	"solana-risk-engine/internal/verdict"
)

// Detector is one member of the fan-out set.
type Detector interface {
	Kind() domain.DetectorKind
	Detect(ctx context.Context, req *domain.AnalysisRequest, opts *domain.AnalysisOptions) (*domain.DetectorResult, error)
}

// Metrics receives run and per-detector observations. Implemented by the
// observability package; nil disables recording.
type Metrics interface {
	ObserveDetector(kind string, seconds float64, failed bool)
	ObserveRun(seconds float64, level string)
}

// Orchestrator coordinates one analysis run end to end: it validates the
// request, fans out to detectors with per-detector deadlines and hands the
// results to the aggregator.
type Orchestrator struct {
	detectors  []Detector
	aggregator *verdict.Aggregator
	cache      *cache.Cache
	cfg        config.OrchestraConfig
	cacheCfg   config.CacheConfig
	configHash string
	metrics    Metrics
	log        *logrus.Entry
	now        func() time.Time
}

// Options for creating an Orchestrator.
type Options struct {
	Detectors  []Detector
	Aggregator *verdict.Aggregator
	Cache      *cache.Cache // nil disables detector result caching
	Config     config.OrchestraConfig
	CacheCfg   config.CacheConfig
	ConfigHash string // partitions cache keys across config changes
	Metrics    Metrics
	Log        *logrus.Entry
}

// New creates a new Orchestrator.
func New(opts Options) *Orchestrator {
	return &Orchestrator{
		detectors:  opts.Detectors,
		aggregator: opts.Aggregator,
		cache:      opts.Cache,
		cfg:        opts.Config,
		cacheCfg:   opts.CacheCfg,
		configHash: opts.ConfigHash,
		metrics:    opts.Metrics,
		log:        opts.Log,
		now:        time.Now,
	}
}

// Evaluate analyzes one token. The address is validated before any
// detector runs; everything after that is best effort under the global
// deadline, and the verdict reports what failed.
func (o *Orchestrator) Evaluate(ctx context.Context, mint string, opts *domain.AnalysisOptions) (*domain.CompositeScore, error) {
	if err := solana.ValidateAddress(mint); err != nil {
		return nil, err
	}
	if opts == nil {
		opts = &domain.AnalysisOptions{}
	}

	req := &domain.AnalysisRequest{
		RunID:        uuid.NewString(),
		TokenAddress: mint,
		RequestedAt:  o.now().UnixMilli(),
		OptionsHash:  o.optionsHash(opts),
	}
	runLog := o.log.WithFields(logrus.Fields{"run_id": req.RunID, "mint": mint})

	runCtx, cancel := context.WithTimeout(ctx, o.cfg.GlobalDeadline)
	defer cancel()

	started := o.now()
	active := o.activeDetectors(opts)

	resultCh := make(chan *domain.DetectorResult, len(active))
	for _, d := range active {
		go func(d Detector) {
			resultCh <- o.runDetector(runCtx, d, req, opts)
		}(d)
	}

	results := make([]*domain.DetectorResult, 0, len(active))
	seen := make(map[domain.DetectorKind]bool, len(active))
collect:
	for range active {
		select {
		case r := <-resultCh:
			seen[r.Kind] = true
			results = append(results, r)
		case <-runCtx.Done():
			break collect
		}
	}
drain:
	// Results that raced the deadline may already sit in the buffer;
	// take them before writing anything off as a straggler.
	for len(results) < len(active) {
		select {
		case r := <-resultCh:
			seen[r.Kind] = true
			results = append(results, r)
		default:
			break drain
		}
	}
	// The channel is buffered to len(active), so stragglers finish their
	// send without a reader and get garbage collected.
	for _, d := range active {
		if seen[d.Kind()] {
			continue
		}
		runLog.WithField("detector", d.Kind()).Warn("detector missed global deadline")
		results = append(results, domain.FailedResult(d.Kind(), domain.ErrKindTimeout, o.cfg.GlobalDeadline.Milliseconds()))
	}

	score := o.aggregator.Aggregate(req, results, o.now().UnixMilli())

	elapsed := o.now().Sub(started)
	if o.metrics != nil {
		o.metrics.ObserveRun(elapsed.Seconds(), string(score.RiskLevel))
	}
	runLog.WithFields(logrus.Fields{
		"value":      score.Value,
		"risk_level": score.RiskLevel,
		"flags":      len(score.RedFlags),
		"elapsed_ms": elapsed.Milliseconds(),
	}).Info("analysis complete")

	return score, nil
}

// runDetector executes one detector under its own deadline and converts
// any failure into a typed result.
func (o *Orchestrator) runDetector(ctx context.Context, d Detector, req *domain.AnalysisRequest, opts *domain.AnalysisOptions) *domain.DetectorResult {
	kind := d.Kind()
	detectorCtx, cancel := context.WithTimeout(ctx, o.cfg.DetectorTimeoutFor(string(kind)))
	defer cancel()

	started := o.now()
	result, err := o.detect(detectorCtx, d, req, opts)
	latency := o.now().Sub(started)

	if err == nil && detectorCtx.Err() != nil {
		// The detector returned a value after its deadline passed; a
		// deadline miss is a deadline miss regardless of what raced out.
		err = detectorCtx.Err()
	}
	if err != nil {
		errKind := domain.ClassifyError(err)
		o.log.WithError(err).WithFields(logrus.Fields{
			"run_id":   req.RunID,
			"detector": kind,
			"kind":     errKind,
		}).Warn("detector failed")
		if o.metrics != nil {
			o.metrics.ObserveDetector(string(kind), latency.Seconds(), true)
		}
		return domain.FailedResult(kind, errKind, latency.Milliseconds())
	}

	// Copy before stamping: the cache may hand the same pointer to
	// concurrent runs.
	out := *result
	out.Kind = kind
	out.LatencyMs = latency.Milliseconds()
	if o.metrics != nil {
		o.metrics.ObserveDetector(string(kind), latency.Seconds(), false)
	}
	return &out
}

// detect invokes the detector, going through the cache when configured.
func (o *Orchestrator) detect(ctx context.Context, d Detector, req *domain.AnalysisRequest, opts *domain.AnalysisOptions) (*domain.DetectorResult, error) {
	kind := string(d.Kind())
	if o.cache == nil {
		return d.Detect(ctx, req, opts)
	}
	key := idhash.ComputeCacheKey(kind, req.TokenAddress, req.OptionsHash)
	return cache.GetOrCompute(ctx, o.cache, key, o.cacheCfg.TTLFor(kind), func(ctx context.Context) (*domain.DetectorResult, error) {
		return d.Detect(ctx, req, opts)
	})
}

func (o *Orchestrator) activeDetectors(opts *domain.AnalysisOptions) []Detector {
	if len(opts.SkipDetectors) == 0 {
		return o.detectors
	}
	skip := make(map[domain.DetectorKind]bool, len(opts.SkipDetectors))
	for _, k := range opts.SkipDetectors {
		skip[k] = true
	}
	active := make([]Detector, 0, len(o.detectors))
	for _, d := range o.detectors {
		if !skip[d.Kind()] {
			active = append(active, d)
		}
	}
	return active
}

// optionsHash makes the cache key space sensitive to everything that can
// change a detector's answer for the same mint.
func (o *Orchestrator) optionsHash(opts *domain.AnalysisOptions) string {
	skipped := make([]string, 0, len(opts.SkipDetectors))
	for _, k := range opts.SkipDetectors {
		skipped = append(skipped, string(k))
	}
	sort.Strings(skipped)

	fields := map[string]string{
		"config":     o.configHash,
		"buy_events": strconv.Itoa(len(opts.BuyEvents)),
		"holders":    strconv.Itoa(len(opts.Holders)),
		"skip":       strings.Join(skipped, ","),
	}
	if n := len(opts.BuyEvents); n > 0 {
		first := opts.BuyEvents[0]
		fields["events_head"] = fmt.Sprintf("%s@%d", first.TxSignature, first.TimestampMs)
	}
	return idhash.ComputeOptionsHash(fields)
}
