package domain

// DetectorKind identifies one detector in the fan-out set.
type DetectorKind string

const (
	DetectorAuthority  DetectorKind = "authority"
	DetectorHolders    DetectorKind = "holders"
	DetectorCluster    DetectorKind = "cluster"
	DetectorFunding    DetectorKind = "funding"
	DetectorMarket     DetectorKind = "market"
	DetectorReputation DetectorKind = "reputation"
	DetectorMLScore    DetectorKind = "mlscore"
)

// ErrorKind is the typed failure taxonomy for detector runs.
type ErrorKind string

const (
	ErrKindInvalidAddress    ErrorKind = "INVALID_ADDRESS"
	ErrKindTimeout           ErrorKind = "TIMEOUT"
	ErrKindRateLimited       ErrorKind = "RATE_LIMITED"
	ErrKindUpstreamMalformed ErrorKind = "UPSTREAM_MALFORMED"
	ErrKindInternal          ErrorKind = "INTERNAL"
)

// RedFlag is one piece of risk evidence surfaced to the caller.
// Code is the semantic dedup key: two flags with the same code describe the
// same underlying cause even when raised by different detectors.
type RedFlag struct {
	Code     string       `json:"code"`
	Severity int          `json:"severity"` // higher = more severe; dedup keeps the highest
	Message  string       `json:"message"`
	Detector DetectorKind `json:"detector"`
}

// Red flag codes shared across detectors.
const (
	FlagMintAuthority      = "MINT_AUTHORITY_ACTIVE"
	FlagFreezeAuthority    = "FREEZE_AUTHORITY_ACTIVE"
	FlagLPUnlocked         = "LP_NOT_BURNED"
	FlagHighConcentration  = "HIGH_HOLDER_CONCENTRATION"
	FlagBundledSupply      = "BUNDLED_SUPPLY"
	FlagCoordinatedFunding = "COORDINATED_FUNDING"
	FlagMixerFunding       = "MIXER_FUNDING"
	FlagLowLiquidity       = "LOW_LIQUIDITY"
	FlagBadReputation      = "BAD_REPUTATION"
	FlagMLHighRisk         = "ML_HIGH_RUG_PROBABILITY"
	FlagDegradedAnalysis   = "DEGRADED_ANALYSIS"
)

// DetectorResult is the universal contract every detector returns.
// Err set means ScoreContribution and Evidence must be treated as absent,
// not zero.
type DetectorResult struct {
	Kind              DetectorKind
	ScoreContribution float64 // [-100, 100], negative = riskier
	Confidence        float64 // [0, 1]
	RedFlags          []RedFlag
	Evidence          any
	Err               *ErrorKind
	LatencyMs         int64
}

// Failed reports whether the detector run produced a typed failure.
func (r *DetectorResult) Failed() bool {
	return r.Err != nil
}

// FailedResult builds a DetectorResult carrying only a typed failure.
func FailedResult(kind DetectorKind, errKind ErrorKind, latencyMs int64) *DetectorResult {
	return &DetectorResult{
		Kind:      kind,
		Err:       &errKind,
		LatencyMs: latencyMs,
	}
}
