package reporting

import (
	"fmt"
	"strings"
	"time"

	"solana-risk-engine/internal/domain"
)

// RenderMarkdown renders one verdict as a Markdown string.
func RenderMarkdown(score *domain.CompositeScore) string {
	var sb strings.Builder

	// Header
	sb.WriteString(fmt.Sprintf("# Risk Verdict: %s\n\n", score.TokenAddress))
	sb.WriteString(fmt.Sprintf("Run: %s | Computed: %s\n\n",
		score.RunID, time.UnixMilli(score.ComputedAt).UTC().Format(time.RFC3339)))
	sb.WriteString(fmt.Sprintf("**Score: %.1f / 100** (higher = safer)\n\n", score.Value))
	sb.WriteString(fmt.Sprintf("**Risk Level: %s** | Confidence: %.2f\n\n", score.RiskLevel, score.OverallConfidence))

	// Red Flags
	sb.WriteString("## Red Flags\n\n")
	if len(score.RedFlags) > 0 {
		sb.WriteString("| Severity | Code | Detector | Message |\n")
		sb.WriteString("|----------|------|----------|--------|\n")
		for _, f := range score.RedFlags {
			sb.WriteString(fmt.Sprintf("| %d | %s | %s | %s |\n",
				f.Severity, f.Code, f.Detector, f.Message))
		}
	} else {
		sb.WriteString("No red flags raised.\n")
	}
	sb.WriteString("\n")

	// Per-Detector Breakdown
	sb.WriteString("## Detector Breakdown\n\n")
	if len(score.PerDetector) > 0 {
		sb.WriteString("| Detector | Contribution | Confidence | Weight | Latency (ms) | Status |\n")
		sb.WriteString("|----------|--------------|------------|--------|--------------|--------|\n")
		for _, d := range score.PerDetector {
			status := "OK"
			if d.Err != nil {
				status = string(*d.Err)
			}
			sb.WriteString(fmt.Sprintf("| %s | %+.1f | %.2f | %.1f | %d | %s |\n",
				d.Kind, d.ScoreContribution, d.Confidence, d.Weight, d.LatencyMs, status))
		}
	} else {
		sb.WriteString("No detector results available.\n")
	}
	sb.WriteString("\n")

	return sb.String()
}

// RenderReportMarkdown renders the latest verdict with its scoring history.
func RenderReportMarkdown(r *Report) string {
	var sb strings.Builder

	sb.WriteString(RenderMarkdown(r.Latest))

	sb.WriteString("## Score History\n\n")
	if len(r.History) > 0 {
		sb.WriteString("| Computed | Run | Score | Risk Level | Confidence |\n")
		sb.WriteString("|----------|-----|-------|------------|------------|\n")
		for _, s := range r.History {
			sb.WriteString(fmt.Sprintf("| %s | %s | %.1f | %s | %.2f |\n",
				time.UnixMilli(s.ComputedAt).UTC().Format(time.RFC3339),
				s.RunID, s.Value, s.RiskLevel, s.OverallConfidence))
		}
	} else {
		sb.WriteString("No prior runs recorded.\n")
	}
	sb.WriteString("\n")

	return sb.String()
}
