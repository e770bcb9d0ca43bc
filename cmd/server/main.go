// Package main runs the risk-scoring service: an HTTP API that evaluates
// Solana tokens on demand, persists verdicts, and exposes Prometheus
// metrics.
package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"solana-risk-engine/internal/authority"
	"solana-risk-engine/internal/cache"
	"solana-risk-engine/internal/cluster"
	"solana-risk-engine/internal/config"
	"solana-risk-engine/internal/funding"
	"solana-risk-engine/internal/holders"
	"solana-risk-engine/internal/logging"
	"solana-risk-engine/internal/market"
	"solana-risk-engine/internal/mlscore"
	"solana-risk-engine/internal/observability"
	"solana-risk-engine/internal/orchestrator"
	"solana-risk-engine/internal/reporting"
	"solana-risk-engine/internal/reputation"
	"solana-risk-engine/internal/solana"
	"solana-risk-engine/internal/storage"
	chstore "solana-risk-engine/internal/storage/clickhouse"
	"solana-risk-engine/internal/storage/memory"
	"solana-risk-engine/internal/storage/migrations"
	pgstore "solana-risk-engine/internal/storage/postgres"
	"solana-risk-engine/internal/verdict"
	"solana-risk-engine/internal/whitelist"
)

func main() {
	// Load .env if present; real env vars win.
	_ = godotenv.Load()

	configPath := flag.String("config", os.Getenv("CONFIG_PATH"), "YAML config path (empty = built-in defaults)")
	listenAddr := flag.String("listen", envOr("LISTEN_ADDR", ":8080"), "HTTP listen address")
	rpcEndpoint := flag.String("rpc-endpoint", os.Getenv("SOLANA_RPC_ENDPOINT"), "Solana RPC HTTP endpoint")
	wsEndpoint := flag.String("ws-endpoint", os.Getenv("SOLANA_WS_ENDPOINT"), "Solana WebSocket endpoint (empty disables trade capture)")
	marketURL := flag.String("market-url", os.Getenv("MARKET_DATA_URL"), "Market data API base URL")
	postgresDSN := flag.String("postgres-dsn", os.Getenv("POSTGRES_DSN"), "PostgreSQL connection string")
	clickhouseDSN := flag.String("clickhouse-dsn", os.Getenv("CLICKHOUSE_DSN"), "ClickHouse connection string")
	whitelistPath := flag.String("whitelist", os.Getenv("WHITELIST_PATH"), "Whitelist YAML path (empty = built-in sets)")
	useMemory := flag.Bool("use-memory", false, "Use in-memory storage instead of PostgreSQL/ClickHouse")
	flag.Parse()

	logger := logging.FromEnv()
	log := logger.WithField("component", "server")

	cfg, err := loadConfig(*configPath)
	if err != nil {
		log.WithError(err).Fatal("load config")
	}
	applyOverrides(cfg, *rpcEndpoint, *wsEndpoint, *marketURL, *postgresDSN, *clickhouseDSN)

	if cfg.Endpoints.RPCEndpoint == "" {
		log.Fatal("rpc endpoint is required (--rpc-endpoint or SOLANA_RPC_ENDPOINT)")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	metrics := observability.NewMetrics("")

	scores, runs, wlStore, closeStores, err := buildStores(ctx, cfg, *useMemory, log)
	if err != nil {
		log.WithError(err).Fatal("init storage")
	}
	defer closeStores()

	registry, baseSets, err := buildRegistry(ctx, *whitelistPath, wlStore)
	if err != nil {
		log.WithError(err).Fatal("init whitelist")
	}

	rpc := solana.NewHTTPClient(cfg.Endpoints.RPCEndpoint,
		solana.WithRateLimit(cfg.Endpoints.RPCRequestsPerSec, cfg.Endpoints.RPCBurst),
	)

	var capture *solana.TradeCapture
	if cfg.Endpoints.WSEndpoint != "" {
		ws, err := solana.NewWSClient(ctx, cfg.Endpoints.WSEndpoint, nil)
		if err != nil {
			log.WithError(err).Fatal("connect websocket")
		}
		defer ws.Close()
		capture = solana.NewTradeCapture(ws, rpc, registry)
	}

	orch := buildOrchestrator(cfg, rpc, capture, registry, metrics, logger)

	srv := &Server{
		orch:      orch,
		scores:    scores,
		runs:      runs,
		whitelist: wlStore,
		registry:  registry,
		baseSets:  baseSets,
		reports:   reporting.NewGenerator(scores),
		log:       log,
	}

	httpSrv := &http.Server{
		Addr:         *listenAddr,
		Handler:      srv.Router(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 60 * time.Second,
	}

	go func() {
		log.WithField("addr", *listenAddr).Info("listening")
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("http server")
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("shutdown")
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.Default(), nil
	}
	return config.Load(path)
}

// applyOverrides layers flag/env endpoints over the YAML config.
func applyOverrides(cfg *config.Config, rpc, ws, marketURL, pgDSN, chDSN string) {
	if rpc != "" {
		cfg.Endpoints.RPCEndpoint = rpc
	}
	if ws != "" {
		cfg.Endpoints.WSEndpoint = ws
	}
	if marketURL != "" {
		cfg.Endpoints.MarketDataURL = marketURL
	}
	if pgDSN != "" {
		cfg.Storage.PostgresDSN = pgDSN
	}
	if chDSN != "" {
		cfg.Storage.ClickhouseDSN = chDSN
	}
}

// buildStores wires persistence: Postgres + ClickHouse when configured,
// in-memory fallbacks otherwise.
func buildStores(ctx context.Context, cfg *config.Config, useMemory bool, log *logrus.Entry) (storage.ScoreStore, storage.DetectorRunStore, storage.WhitelistStore, func(), error) {
	noop := func() {}

	if useMemory || cfg.Storage.PostgresDSN == "" {
		log.Info("using in-memory score and whitelist stores")
		runs, closeRuns, err := buildRunStore(ctx, cfg, useMemory, log)
		if err != nil {
			return nil, nil, nil, noop, err
		}
		return memory.NewScoreStore(), runs, memory.NewWhitelistStore(), closeRuns, nil
	}

	pool, err := pgstore.NewPool(ctx, cfg.Storage.PostgresDSN)
	if err != nil {
		return nil, nil, nil, noop, err
	}
	if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
		pool.Close()
		return nil, nil, nil, noop, err
	}

	runs, closeRuns, err := buildRunStore(ctx, cfg, useMemory, log)
	if err != nil {
		pool.Close()
		return nil, nil, nil, noop, err
	}

	closeAll := func() {
		closeRuns()
		pool.Close()
	}
	return pgstore.NewScoreStore(pool), runs, pgstore.NewWhitelistStore(pool), closeAll, nil
}

func buildRunStore(ctx context.Context, cfg *config.Config, useMemory bool, log *logrus.Entry) (storage.DetectorRunStore, func(), error) {
	if useMemory || cfg.Storage.ClickhouseDSN == "" {
		log.Info("using in-memory detector run store")
		return memory.NewDetectorRunStore(), func() {}, nil
	}
	conn, err := migrations.RunClickhouseMigrations(ctx, cfg.Storage.ClickhouseDSN)
	if err != nil {
		return nil, func() {}, err
	}
	return chstore.NewDetectorRunStore(conn), func() { conn.Close() }, nil
}

// buildRegistry merges built-in sets, the optional YAML file and the
// persistent store into the initial whitelist snapshot. The merged
// base (defaults + file) is returned so reloads can layer over it.
func buildRegistry(ctx context.Context, path string, store storage.WhitelistStore) (*whitelist.Registry, whitelist.Sets, error) {
	base := whitelist.DefaultSets()
	if path != "" {
		loaded, err := whitelist.LoadFile(path)
		if err != nil {
			return nil, whitelist.Sets{}, err
		}
		base = loaded
	}

	stored, err := store.Load(ctx)
	if err != nil {
		return nil, whitelist.Sets{}, err
	}

	return whitelist.NewRegistry(whitelist.NewSnapshot(1, mergeSets(base, stored))), base, nil
}

// buildOrchestrator assembles the full detector fan-out.
func buildOrchestrator(cfg *config.Config, rpc solana.RPCClient, capture *solana.TradeCapture, registry *whitelist.Registry, metrics *observability.Metrics, logger *logrus.Logger) *orchestrator.Orchestrator {
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

	var clusterSource cluster.BuyEventSource
	if capture != nil {
		clusterSource = capture
	}

	holdersDetector := holders.NewDetector(cfg.Holders, cfg.Cluster, rpc, registry, logger.WithField("detector", "holders"))

	detectors := []orchestrator.Detector{
		authority.NewDetector(rpc, marketClient, logger.WithField("detector", "authority")),
		holdersDetector,
		cluster.NewDetector(cfg.Cluster, clusterSource, logger.WithField("detector", "cluster")),
		funding.NewDetector(cfg.Funding, funding.NewRPCReader(rpc), registry, holdersDetector, logger.WithField("detector", "funding")),
		market.NewDetector(cfg.Market, marketClient, logger.WithField("detector", "market")),
		reputation.NewDetector(repServices, logger.WithField("detector", "reputation")),
		mlscore.NewDetector(model, rpc, marketClient, cfg.Cluster, logger.WithField("detector", "mlscore")),
	}

	resultCache := cache.New(cache.WithStats(
		metrics.CacheHits.Inc,
		metrics.CacheMisses.Inc,
		metrics.CacheEvictions.Inc,
	))

	return orchestrator.New(orchestrator.Options{
		Detectors:  detectors,
		Aggregator: verdict.NewAggregator(cfg.Aggregator),
		Cache:      resultCache,
		Config:     cfg.Orchestra,
		CacheCfg:   cfg.Cache,
		ConfigHash: cfg.OptionsHash(),
		Metrics:    metrics,
		Log:        logger.WithField("component", "orchestrator"),
	})
}
