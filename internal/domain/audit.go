package domain

// DetectorRun is one per-detector audit row emitted after a run. Written
// to the analytical store; never read back on the scoring path.
type DetectorRun struct {
	RunID             string
	TokenAddress      string
	Detector          DetectorKind
	ScoreContribution float64
	Confidence        float64
	ErrKind           *ErrorKind
	RedFlagCount      int
	LatencyMs         int64
	ComputedAt        int64 // Unix timestamp in milliseconds
}
