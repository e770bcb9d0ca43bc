package reputation

import (
	"context"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"solana-risk-engine/internal/domain"
)

// Labels any provider may attach that mark a token as directly malicious.
var maliciousLabels = map[string]bool{
	"scam":     true,
	"rug":      true,
	"honeypot": true,
	"phishing": true,
}

// Evidence is the typed evidence a reputation lookup emits.
type Evidence struct {
	Report          Report
	ServicesQueried int
}

// Detector runs reputation lookup as one member of the fan-out set.
type Detector struct {
	services []Service
	log      *logrus.Entry
}

func NewDetector(services []Service, log *logrus.Entry) *Detector {
	return &Detector{services: services, log: log}
}

func (d *Detector) Kind() domain.DetectorKind {
	return domain.DetectorReputation
}

// Detect asks the providers in order until one answers. Redundancy covers
// provider outages; it does not blend answers, the first valid report is
// authoritative.
func (d *Detector) Detect(ctx context.Context, req *domain.AnalysisRequest, _ *domain.AnalysisOptions) (*domain.DetectorResult, error) {
	var lastErr error
	queried := 0
	for _, svc := range d.services {
		queried++
		report, err := svc.Lookup(ctx, req.TokenAddress)
		if err != nil {
			lastErr = err
			d.log.WithError(err).WithField("service", svc.Name()).Debug("reputation service failed")
			continue
		}
		return d.score(report, queried), nil
	}
	if lastErr == nil {
		lastErr = fmt.Errorf("%w: no reputation services configured", domain.ErrUpstreamMalformed)
	}
	return nil, lastErr
}

func (d *Detector) score(report *Report, queried int) *domain.DetectorResult {
	result := &domain.DetectorResult{
		Kind:       domain.DetectorReputation,
		Confidence: 0.7,
		Evidence:   Evidence{Report: *report, ServicesQueried: queried},
	}

	var malicious []string
	for _, l := range report.Labels {
		if maliciousLabels[strings.ToLower(l)] {
			malicious = append(malicious, l)
		}
	}

	switch {
	case report.Flagged || len(malicious) > 0:
		result.ScoreContribution = -50
		msg := fmt.Sprintf("%s flagged the token", report.Service)
		if len(malicious) > 0 {
			msg = fmt.Sprintf("%s labeled the token: %s", report.Service, strings.Join(malicious, ", "))
		}
		result.RedFlags = append(result.RedFlags, domain.RedFlag{
			Code:     domain.FlagBadReputation,
			Severity: 3,
			Message:  msg,
			Detector: domain.DetectorReputation,
		})
	case report.RugProbability >= 0.7:
		result.ScoreContribution = -30
		result.RedFlags = append(result.RedFlags, domain.RedFlag{
			Code:     domain.FlagBadReputation,
			Severity: 2,
			Message:  fmt.Sprintf("%s reports %.0f%% rug probability", report.Service, report.RugProbability*100),
			Detector: domain.DetectorReputation,
		})
	default:
		result.ScoreContribution = 5
	}
	return result
}
