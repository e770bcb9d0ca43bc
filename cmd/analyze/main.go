// Package main runs a single token analysis and prints the verdict.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"solana-risk-engine/internal/authority"
	"solana-risk-engine/internal/cache"
	"solana-risk-engine/internal/cluster"
	"solana-risk-engine/internal/config"
	"solana-risk-engine/internal/domain"
	"solana-risk-engine/internal/funding"
	"solana-risk-engine/internal/holders"
	"solana-risk-engine/internal/logging"
	"solana-risk-engine/internal/market"
	"solana-risk-engine/internal/mlscore"
	"solana-risk-engine/internal/orchestrator"
	"solana-risk-engine/internal/reporting"
	"solana-risk-engine/internal/reputation"
	"solana-risk-engine/internal/solana"
	"solana-risk-engine/internal/verdict"
	"solana-risk-engine/internal/whitelist"
)

func main() {
	_ = godotenv.Load()

	configPath := flag.String("config", os.Getenv("CONFIG_PATH"), "YAML config path (empty = built-in defaults)")
	rpcEndpoint := flag.String("rpc-endpoint", os.Getenv("SOLANA_RPC_ENDPOINT"), "Solana RPC HTTP endpoint")
	marketURL := flag.String("market-url", os.Getenv("MARKET_DATA_URL"), "Market data API base URL")
	whitelistPath := flag.String("whitelist", os.Getenv("WHITELIST_PATH"), "Whitelist YAML path (empty = built-in sets)")
	format := flag.String("format", "markdown", "Output format: markdown or json")
	skip := flag.String("skip", "", "Comma-separated detector kinds to skip")
	flag.Parse()

	logger := logging.FromEnv()
	log := logger.WithField("component", "analyze")

	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: analyze [flags] <mint>")
		os.Exit(2)
	}
	mint := flag.Arg(0)

	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			log.WithError(err).Fatal("load config")
		}
		cfg = loaded
	}
	if *rpcEndpoint != "" {
		cfg.Endpoints.RPCEndpoint = *rpcEndpoint
	}
	if *marketURL != "" {
		cfg.Endpoints.MarketDataURL = *marketURL
	}
	if cfg.Endpoints.RPCEndpoint == "" {
		log.Fatal("rpc endpoint is required (--rpc-endpoint or SOLANA_RPC_ENDPOINT)")
	}

	sets := whitelist.DefaultSets()
	if *whitelistPath != "" {
		loaded, err := whitelist.LoadFile(*whitelistPath)
		if err != nil {
			log.WithError(err).Fatal("load whitelist")
		}
		sets = loaded
	}
	registry := whitelist.NewRegistry(whitelist.NewSnapshot(1, sets))

	orch := buildOrchestrator(cfg, registry, logger)

	opts := &domain.AnalysisOptions{}
	if *skip != "" {
		for _, kind := range strings.Split(*skip, ",") {
			if kind = strings.TrimSpace(kind); kind != "" {
				opts.SkipDetectors = append(opts.SkipDetectors, domain.DetectorKind(kind))
			}
		}
	}

	score, err := orch.Evaluate(context.Background(), mint, opts)
	if err != nil {
		log.WithError(err).Fatal("analysis failed")
	}

	switch *format {
	case "json":
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(score); err != nil {
			log.WithError(err).Fatal("encode verdict")
		}
	default:
		fmt.Print(reporting.RenderMarkdown(score))
	}
}

// buildOrchestrator assembles the detector fan-out without trade capture;
// one-shot runs pass buy events explicitly or skip the cluster detector.
func buildOrchestrator(cfg *config.Config, registry *whitelist.Registry, logger *logrus.Logger) *orchestrator.Orchestrator {
	rpc := solana.NewHTTPClient(cfg.Endpoints.RPCEndpoint,
		solana.WithRateLimit(cfg.Endpoints.RPCRequestsPerSec, cfg.Endpoints.RPCBurst),
	)
	marketClient := market.NewClient(cfg.Endpoints.MarketDataURL)

	var model *mlscore.Model
	if cfg.MLModel.Path != "" {
		m, err := mlscore.LoadModel(cfg.MLModel.Path)
		if err != nil {
			logger.WithError(err).Warn("load ml model, falling back to rules")
		} else {
			model = m
		}
	}

	var repServices []reputation.Service
	for _, u := range cfg.Endpoints.ReputationURLs {
		repServices = append(repServices, reputation.NewHTTPService(u, u))
	}

	holdersDetector := holders.NewDetector(cfg.Holders, cfg.Cluster, rpc, registry, logger.WithField("detector", "holders"))

	detectors := []orchestrator.Detector{
		authority.NewDetector(rpc, marketClient, logger.WithField("detector", "authority")),
		holdersDetector,
		cluster.NewDetector(cfg.Cluster, nil, logger.WithField("detector", "cluster")),
		funding.NewDetector(cfg.Funding, funding.NewRPCReader(rpc), registry, holdersDetector, logger.WithField("detector", "funding")),
		market.NewDetector(cfg.Market, marketClient, logger.WithField("detector", "market")),
		reputation.NewDetector(repServices, logger.WithField("detector", "reputation")),
		mlscore.NewDetector(model, rpc, marketClient, cfg.Cluster, logger.WithField("detector", "mlscore")),
	}

	return orchestrator.New(orchestrator.Options{
		Detectors:  detectors,
		Aggregator: verdict.NewAggregator(cfg.Aggregator),
		Cache:      cache.New(),
		Config:     cfg.Orchestra,
		CacheCfg:   cfg.Cache,
		ConfigHash: cfg.OptionsHash(),
		Log:        logger.WithField("component", "orchestrator"),
	})
}
