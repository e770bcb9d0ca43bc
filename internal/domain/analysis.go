package domain

// AnalysisRequest identifies one analysis run and its cache key namespace.
// Immutable once created.
type AnalysisRequest struct {
	RunID        string // uuid, assigned at request creation
	TokenAddress string // token mint address (base58)
	RequestedAt  int64  // Unix timestamp in milliseconds
	OptionsHash  string // deterministic hash of the effective options
}

// AnalysisOptions carries optional caller-supplied data for one run.
// When BuyEvents or Holders are provided the corresponding detectors use
// them instead of fetching from upstream.
type AnalysisOptions struct {
	// BuyEvents is the early trading window event sequence for the
	// cluster detector. May be unsorted; the detector sorts stably.
	BuyEvents []BuyEvent

	// Holders is a pre-fetched holder list. Empty means fetch via RPC.
	Holders []HolderRecord

	// SkipDetectors lists detector kinds to leave out of the fan-out.
	SkipDetectors []DetectorKind
}
