package domain

// RiskLevel buckets a composite score. Higher score = safer.
type RiskLevel string

const (
	RiskLow      RiskLevel = "LOW"
	RiskModerate RiskLevel = "MODERATE"
	RiskHigh     RiskLevel = "HIGH"
	RiskExtreme  RiskLevel = "EXTREME"
)

// DetectorBreakdown is the per-detector line item inside a CompositeScore.
type DetectorBreakdown struct {
	Kind              DetectorKind `json:"kind"`
	ScoreContribution float64      `json:"score_contribution"`
	Confidence        float64      `json:"confidence"`
	Weight            float64      `json:"weight"`
	Err               *ErrorKind   `json:"err,omitempty"`
	LatencyMs         int64        `json:"latency_ms"`
}

// CompositeScore is the terminal, immutable artifact of one analysis run.
// Never mutated after creation; superseded by a newer run or evicted by TTL.
type CompositeScore struct {
	RunID             string              `json:"run_id"`
	TokenAddress      string              `json:"token_address"`
	Value             float64             `json:"value"` // [0, 100], higher = safer
	RiskLevel         RiskLevel           `json:"risk_level"`
	RedFlags          []RedFlag           `json:"red_flags"` // ordered, deduplicated by code
	PerDetector       []DetectorBreakdown `json:"per_detector"`
	OverallConfidence float64             `json:"overall_confidence"` // [0, 1]
	ComputedAt        int64               `json:"computed_at"`        // Unix timestamp in milliseconds
}
