package reporting

import (
	"fmt"
	"strings"

	"solana-risk-engine/internal/domain"
)

// RenderCSV renders scores as a CSV string, one row per run.
func RenderCSV(scores []*domain.CompositeScore) string {
	var sb strings.Builder

	// Header
	sb.WriteString("run_id,token_address,value,risk_level,overall_confidence,red_flag_count,failed_detectors,computed_at\n")

	// Rows
	for _, s := range scores {
		failed := 0
		for _, d := range s.PerDetector {
			if d.Err != nil {
				failed++
			}
		}
		sb.WriteString(fmt.Sprintf("%s,%s,%.2f,%s,%.4f,%d,%d,%d\n",
			s.RunID,
			s.TokenAddress,
			s.Value,
			s.RiskLevel,
			s.OverallConfidence,
			len(s.RedFlags),
			failed,
			s.ComputedAt,
		))
	}

	return sb.String()
}
