// Package config centralizes every tunable of the evaluation pipeline:
// detector weights, clustering thresholds, score bands, timeouts, cache
// TTLs, and upstream endpoints. Detectors and the aggregator receive their
// sections by injection; nothing reads thresholds from package globals.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"solana-risk-engine/internal/idhash"
)

// Config is the root configuration object.
type Config struct {
	Endpoints  EndpointsConfig  `yaml:"endpoints"`
	Orchestra  OrchestraConfig  `yaml:"orchestrator"`
	Cluster    ClusterConfig    `yaml:"cluster"`
	Holders    HoldersConfig    `yaml:"holders"`
	Funding    FundingConfig    `yaml:"funding"`
	Market     MarketConfig     `yaml:"market"`
	Aggregator AggregatorConfig `yaml:"aggregator"`
	Cache      CacheConfig      `yaml:"cache"`
	MLModel    MLModelConfig    `yaml:"ml_model"`
	Storage    StorageConfig    `yaml:"storage"`
}

// EndpointsConfig holds upstream collaborator endpoints.
type EndpointsConfig struct {
	RPCEndpoint       string   `yaml:"rpc_endpoint"`
	WSEndpoint        string   `yaml:"ws_endpoint"`
	MarketDataURL     string   `yaml:"market_data_url"`
	ReputationURLs    []string `yaml:"reputation_urls"`
	RPCRequestsPerSec float64  `yaml:"rpc_requests_per_sec"`
	RPCBurst          int      `yaml:"rpc_burst"`
}

// OrchestraConfig holds fan-out timing policy.
type OrchestraConfig struct {
	DetectorTimeout time.Duration            `yaml:"detector_timeout"`
	GlobalDeadline  time.Duration            `yaml:"global_deadline"`
	PerDetector     map[string]time.Duration `yaml:"per_detector_timeouts"`
}

// DetectorTimeoutFor returns the timeout for a detector kind, falling back
// to the shared default.
func (c OrchestraConfig) DetectorTimeoutFor(kind string) time.Duration {
	if d, ok := c.PerDetector[kind]; ok && d > 0 {
		return d
	}
	return c.DetectorTimeout
}

// ClusterConfig holds bundle detection thresholds.
type ClusterConfig struct {
	CoordinationWindowMs int64   `yaml:"coordination_window_ms"`
	MinMembers           int     `yaml:"min_members"`
	MinSupplyPercent     float64 `yaml:"min_supply_percent"`
	LargeMemberCount     int     `yaml:"large_member_count"`
	LargeSupplyPercent   float64 `yaml:"large_supply_percent"`
}

// HoldersConfig holds classification and concentration thresholds.
type HoldersConfig struct {
	MaxHolders            int     `yaml:"max_holders"`
	ConcentrationWarnPct  float64 `yaml:"concentration_warn_pct"`
	ConcentrationAlarmPct float64 `yaml:"concentration_alarm_pct"`
}

// FundingConfig holds coordinated-funding thresholds.
type FundingConfig struct {
	MaxHops                   int     `yaml:"max_hops"`
	FreshWalletAgeMs          int64   `yaml:"fresh_wallet_age_ms"`
	SingleSourceSuspiciousPct float64 `yaml:"single_source_suspicious_pct"`
	FreshWalletsSuspiciousPct float64 `yaml:"fresh_wallets_suspicious_pct"`
	FreshWalletsMaxSources    int     `yaml:"fresh_wallets_max_sources"`
}

// MarketConfig holds liquidity red-flag thresholds.
type MarketConfig struct {
	MinLiquidityUSD   float64 `yaml:"min_liquidity_usd"`
	MaxMcapToLiqRatio float64 `yaml:"max_mcap_to_liq_ratio"`
}

// AggregatorConfig holds the weighting surface. Weights are empirically
// calibrated, not derived from a principled model; treat them as a surface
// to tune against labeled data.
type AggregatorConfig struct {
	// Weights maps detector kind to its relative weight in the sum.
	Weights map[string]float64 `yaml:"weights"`

	// BaselineScore is the starting value before contributions apply.
	BaselineScore float64 `yaml:"baseline_score"`

	// Score bands (higher = safer).
	BandLow      float64 `yaml:"band_low"`      // value >= BandLow -> LOW risk
	BandModerate float64 `yaml:"band_moderate"` // value >= BandModerate -> MODERATE
	BandHigh     float64 `yaml:"band_high"`     // value >= BandHigh -> HIGH, below -> EXTREME

	// CountOverlappingEvidence keeps the numeric contribution of
	// detectors whose red flags dedup to the same cause. The flag list
	// itself is always deduplicated.
	CountOverlappingEvidence bool `yaml:"count_overlapping_evidence"`
}

// CacheConfig holds per-detector TTLs.
type CacheConfig struct {
	DefaultTTL time.Duration            `yaml:"default_ttl"`
	PerKind    map[string]time.Duration `yaml:"per_kind_ttl"`
}

// TTLFor returns the TTL for a detector kind, falling back to the default.
func (c CacheConfig) TTLFor(kind string) time.Duration {
	if d, ok := c.PerKind[kind]; ok && d > 0 {
		return d
	}
	return c.DefaultTTL
}

// MLModelConfig points at the runtime scorer weights.
type MLModelConfig struct {
	Path string `yaml:"path"` // empty = rule-based fallback
}

// StorageConfig holds persistence DSNs. Empty DSN disables that store.
type StorageConfig struct {
	PostgresDSN   string `yaml:"postgres_dsn"`
	ClickhouseDSN string `yaml:"clickhouse_dsn"`
}

// Default returns the built-in configuration. Values mirror the original
// detector tuning and are overridable via YAML.
func Default() *Config {
	return &Config{
		Endpoints: EndpointsConfig{
			RPCRequestsPerSec: 10,
			RPCBurst:          20,
		},
		Orchestra: OrchestraConfig{
			DetectorTimeout: 8 * time.Second,
			GlobalDeadline:  15 * time.Second,
		},
		Cluster: ClusterConfig{
			CoordinationWindowMs: 300,
			MinMembers:           3,
			MinSupplyPercent:     1.0,
			LargeMemberCount:     6,
			LargeSupplyPercent:   10.0,
		},
		Holders: HoldersConfig{
			MaxHolders:            50,
			ConcentrationWarnPct:  30.0,
			ConcentrationAlarmPct: 50.0,
		},
		Funding: FundingConfig{
			MaxHops:                   4,
			FreshWalletAgeMs:          24 * time.Hour.Milliseconds(),
			SingleSourceSuspiciousPct: 5.0,
			FreshWalletsSuspiciousPct: 15.0,
			FreshWalletsMaxSources:    5,
		},
		Market: MarketConfig{
			MinLiquidityUSD:   5000,
			MaxMcapToLiqRatio: 100,
		},
		Aggregator: AggregatorConfig{
			Weights: map[string]float64{
				"authority":  1.5,
				"holders":    1.0,
				"cluster":    1.5,
				"funding":    1.5,
				"market":     1.0,
				"reputation": 0.5,
				"mlscore":    1.0,
			},
			BaselineScore:            70,
			BandLow:                  70,
			BandModerate:             40,
			BandHigh:                 20,
			CountOverlappingEvidence: true,
		},
		Cache: CacheConfig{
			DefaultTTL: 60 * time.Second,
			PerKind: map[string]time.Duration{
				"authority":  5 * time.Minute,
				"reputation": 10 * time.Minute,
			},
		},
	}
}

// Load reads YAML config from path layered over Default().
func Load(path string) (*Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks cross-field invariants.
func (c *Config) Validate() error {
	if c.Orchestra.GlobalDeadline < c.Orchestra.DetectorTimeout {
		return fmt.Errorf("global deadline %s shorter than detector timeout %s",
			c.Orchestra.GlobalDeadline, c.Orchestra.DetectorTimeout)
	}
	if c.Cluster.MinMembers < 2 {
		return fmt.Errorf("cluster min_members must be >= 2, got %d", c.Cluster.MinMembers)
	}
	if !(c.Aggregator.BandLow > c.Aggregator.BandModerate &&
		c.Aggregator.BandModerate > c.Aggregator.BandHigh) {
		return fmt.Errorf("score bands must be strictly descending: low=%.0f moderate=%.0f high=%.0f",
			c.Aggregator.BandLow, c.Aggregator.BandModerate, c.Aggregator.BandHigh)
	}
	return nil
}

// OptionsHash derives the cache key namespace from every knob that changes
// detector output. Two configs with equal knobs share cache entries.
func (c *Config) OptionsHash() string {
	f := func(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }
	fields := map[string]string{
		"cluster.window_ms":        strconv.FormatInt(c.Cluster.CoordinationWindowMs, 10),
		"cluster.min_members":      strconv.Itoa(c.Cluster.MinMembers),
		"cluster.min_supply_pct":   f(c.Cluster.MinSupplyPercent),
		"cluster.large_members":    strconv.Itoa(c.Cluster.LargeMemberCount),
		"cluster.large_supply_pct": f(c.Cluster.LargeSupplyPercent),
		"funding.max_hops":         strconv.Itoa(c.Funding.MaxHops),
		"funding.fresh_age_ms":     strconv.FormatInt(c.Funding.FreshWalletAgeMs, 10),
		"funding.single_src_pct":   f(c.Funding.SingleSourceSuspiciousPct),
		"funding.fresh_pct":        f(c.Funding.FreshWalletsSuspiciousPct),
		"holders.max":              strconv.Itoa(c.Holders.MaxHolders),
		"market.min_liq_usd":       f(c.Market.MinLiquidityUSD),
		"market.max_mc_liq":        f(c.Market.MaxMcapToLiqRatio),
	}
	return idhash.ComputeOptionsHash(fields)
}
