package main

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/sirupsen/logrus"

	"solana-risk-engine/internal/domain"
	"solana-risk-engine/internal/observability"
	"solana-risk-engine/internal/orchestrator"
	"solana-risk-engine/internal/reporting"
	"solana-risk-engine/internal/storage"
	"solana-risk-engine/internal/whitelist"
)

// Server holds the HTTP-facing components.
type Server struct {
	orch      *orchestrator.Orchestrator
	scores    storage.ScoreStore
	runs      storage.DetectorRunStore
	whitelist storage.WhitelistStore
	registry  *whitelist.Registry
	baseSets  whitelist.Sets // built-in + file sets, merged over on reload
	reports   *reporting.Generator
	log       *logrus.Entry
}

// Router builds the chi route tree.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST"},
		AllowedHeaders: []string{"Content-Type"},
	}))

	r.Get("/healthz", s.handleHealth)
	r.Handle("/metrics", observability.Handler())

	r.Post("/analyze", s.handleAnalyze)
	r.Get("/scores/{mint}", s.handleLatestScore)
	r.Get("/scores/{mint}/history", s.handleScoreHistory)
	r.Post("/whitelist", s.handleWhitelistUpsert)

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Write([]byte("ok"))
}

// analyzeRequest is the POST /analyze body. buy_events and holders let
// callers supply pre-fetched data; skip_detectors trims the fan-out.
type analyzeRequest struct {
	Mint          string                `json:"mint"`
	BuyEvents     []domain.BuyEvent     `json:"buy_events,omitempty"`
	Holders       []domain.HolderRecord `json:"holders,omitempty"`
	SkipDetectors []domain.DetectorKind `json:"skip_detectors,omitempty"`
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	var req analyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	opts := &domain.AnalysisOptions{
		BuyEvents:     req.BuyEvents,
		Holders:       req.Holders,
		SkipDetectors: req.SkipDetectors,
	}

	score, err := s.orch.Evaluate(r.Context(), req.Mint, opts)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidAddress) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		s.log.WithError(err).WithField("mint", req.Mint).Error("evaluate")
		http.Error(w, "analysis failed", http.StatusInternalServerError)
		return
	}

	s.persist(r, score)
	writeJSON(w, http.StatusOK, score)
}

// persist records the verdict and its audit rows. Storage trouble never
// fails the request; the verdict is already computed.
func (s *Server) persist(r *http.Request, score *domain.CompositeScore) {
	ctx := r.Context()
	if err := s.scores.Insert(ctx, score); err != nil {
		s.log.WithError(err).WithField("run_id", score.RunID).Error("persist score")
	}
	if err := s.runs.InsertBulk(ctx, auditRows(score)); err != nil {
		s.log.WithError(err).WithField("run_id", score.RunID).Error("persist detector runs")
	}
}

// auditRows flattens the per-detector breakdown into audit rows.
func auditRows(score *domain.CompositeScore) []*domain.DetectorRun {
	flagCounts := make(map[domain.DetectorKind]int)
	for _, f := range score.RedFlags {
		flagCounts[f.Detector]++
	}

	rows := make([]*domain.DetectorRun, 0, len(score.PerDetector))
	for _, d := range score.PerDetector {
		rows = append(rows, &domain.DetectorRun{
			RunID:             score.RunID,
			TokenAddress:      score.TokenAddress,
			Detector:          d.Kind,
			ScoreContribution: d.ScoreContribution,
			Confidence:        d.Confidence,
			ErrKind:           d.Err,
			RedFlagCount:      flagCounts[d.Kind],
			LatencyMs:         d.LatencyMs,
			ComputedAt:        score.ComputedAt,
		})
	}
	return rows
}

func (s *Server) handleLatestScore(w http.ResponseWriter, r *http.Request) {
	mint := chi.URLParam(r, "mint")

	score, err := s.scores.GetLatestByMint(r.Context(), mint)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			http.Error(w, "no scores for mint", http.StatusNotFound)
			return
		}
		s.log.WithError(err).Error("load latest score")
		http.Error(w, "lookup failed", http.StatusInternalServerError)
		return
	}

	if r.URL.Query().Get("format") == "markdown" {
		w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
		w.Write([]byte(reporting.RenderMarkdown(score)))
		return
	}
	writeJSON(w, http.StatusOK, score)
}

func (s *Server) handleScoreHistory(w http.ResponseWriter, r *http.Request) {
	mint := chi.URLParam(r, "mint")

	limit := 20
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			http.Error(w, "limit must be a positive integer", http.StatusBadRequest)
			return
		}
		limit = n
	}

	switch r.URL.Query().Get("format") {
	case "csv":
		history, err := s.scores.ListByMint(r.Context(), mint, limit)
		if err != nil {
			s.log.WithError(err).Error("load score history")
			http.Error(w, "lookup failed", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "text/csv")
		w.Write([]byte(reporting.RenderCSV(history)))
	case "markdown":
		report, err := s.reports.Build(r.Context(), mint, limit)
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				http.Error(w, "no scores for mint", http.StatusNotFound)
				return
			}
			s.log.WithError(err).Error("build report")
			http.Error(w, "lookup failed", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
		w.Write([]byte(reporting.RenderReportMarkdown(report)))
	default:
		history, err := s.scores.ListByMint(r.Context(), mint, limit)
		if err != nil {
			s.log.WithError(err).Error("load score history")
			http.Error(w, "lookup failed", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, history)
	}
}

// whitelistRequest is the POST /whitelist body.
type whitelistRequest struct {
	Label   string `json:"label"`
	Address string `json:"address"`
}

// handleWhitelistUpsert stores the entry and swaps in a rebuilt snapshot
// so in-flight analyses keep their tables and new ones see the update.
func (s *Server) handleWhitelistUpsert(w http.ResponseWriter, r *http.Request) {
	var req whitelistRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	if err := s.whitelist.Upsert(r.Context(), req.Label, req.Address); err != nil {
		if errors.Is(err, storage.ErrInvalidInput) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		s.log.WithError(err).Error("upsert whitelist")
		http.Error(w, "upsert failed", http.StatusInternalServerError)
		return
	}

	stored, err := s.whitelist.Load(r.Context())
	if err != nil {
		s.log.WithError(err).Error("reload whitelist")
		http.Error(w, "reload failed", http.StatusInternalServerError)
		return
	}
	next := whitelist.NewSnapshot(s.registry.Current().Version+1, mergeSets(s.baseSets, stored))
	s.registry.Swap(next)

	writeJSON(w, http.StatusOK, map[string]any{"version": next.Version})
}

// mergeSets layers stored entries over the base tables.
func mergeSets(base, stored whitelist.Sets) whitelist.Sets {
	return whitelist.Sets{
		Exchanges:   append(append([]string{}, base.Exchanges...), stored.Exchanges...),
		Protocols:   append(append([]string{}, base.Protocols...), stored.Protocols...),
		Mixers:      append(append([]string{}, base.Mixers...), stored.Mixers...),
		AMMPrograms: append(append([]string{}, base.AMMPrograms...), stored.AMMPrograms...),
		TipAccounts: append(append([]string{}, base.TipAccounts...), stored.TipAccounts...),
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		// Headers are gone; nothing to do but note it.
		logrus.WithError(err).Debug("encode response")
	}
}
