// Package reputation queries external token reputation services. Services
// are redundant: the first one that answers with a well-formed report wins.
package reputation

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"solana-risk-engine/internal/domain"
)

// Report is the normalized shape every service's answer converts into.
type Report struct {
	Service        string
	RugProbability float64 // [0, 1]
	Labels         []string
	Flagged        bool
}

// Service is one reputation provider.
type Service interface {
	Name() string
	Lookup(ctx context.Context, mint string) (*Report, error)
}

// HTTPService queries one provider endpoint. The wire shape is the
// provider-neutral report schema; adapters for providers with bespoke
// shapes wrap this with their own decode.
type HTTPService struct {
	name    string
	baseURL string
	http    *http.Client
}

func NewHTTPService(name, baseURL string) *HTTPService {
	return &HTTPService{
		name:    name,
		baseURL: baseURL,
		http:    &http.Client{Timeout: 8 * time.Second},
	}
}

var _ Service = (*HTTPService)(nil)

func (s *HTTPService) Name() string { return s.name }

// Lookup fetches and validates one report. Out-of-range probabilities and
// undecodable bodies fail closed as upstream-malformed rather than passing
// a zero probability through as a clean bill.
func (s *HTTPService) Lookup(ctx context.Context, mint string) (*Report, error) {
	u := fmt.Sprintf("%s/reputation/%s", s.baseURL, url.PathEscape(mint))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("reputation %s: %w", s.name, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, fmt.Errorf("reputation %s: %w", s.name, domain.ErrRateLimited)
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("%w: reputation %s returned %d", domain.ErrUpstreamMalformed, s.name, resp.StatusCode)
	}

	var wire struct {
		RugProbability *float64 `json:"rug_probability"`
		Labels         []string `json:"labels"`
		Flagged        bool     `json:"flagged"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&wire); err != nil {
		return nil, fmt.Errorf("%w: decode reputation from %s: %v", domain.ErrUpstreamMalformed, s.name, err)
	}
	if wire.RugProbability == nil {
		return nil, fmt.Errorf("%w: reputation %s omitted rug_probability", domain.ErrUpstreamMalformed, s.name)
	}
	if *wire.RugProbability < 0 || *wire.RugProbability > 1 {
		return nil, fmt.Errorf("%w: reputation %s probability %f out of range", domain.ErrUpstreamMalformed, s.name, *wire.RugProbability)
	}

	return &Report{
		Service:        s.name,
		RugProbability: *wire.RugProbability,
		Labels:         wire.Labels,
		Flagged:        wire.Flagged,
	}, nil
}
