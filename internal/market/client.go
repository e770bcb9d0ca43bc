// Package market talks to the market-data collaborator and converts its
// answers into liquidity red flags.
package market

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"solana-risk-engine/internal/domain"
)

// Snapshot is the market state of a token's primary pool at one instant.
type Snapshot struct {
	LiquidityUSD     float64 `json:"liquidity_usd"`
	MarketCapUSD     float64 `json:"market_cap_usd"`
	Volume5mUSD      float64 `json:"volume_5m_usd"`
	PriceChange5mPct float64 `json:"price_change_5m_pct"`
	LPMintAddress    string  `json:"lp_mint"`
	PoolCreatedAt    int64   `json:"pool_created_at"` // Unix seconds, 0 = unknown
}

// DataSource is the market surface detectors consume.
type DataSource interface {
	TokenMarket(ctx context.Context, mint string) (*Snapshot, error)
}

// Client is an HTTP client for the market-data collaborator.
type Client struct {
	baseURL string
	http    *http.Client
}

// ClientOption configures the Client.
type ClientOption func(*Client)

// WithHTTPClient replaces the underlying transport.
func WithHTTPClient(h *http.Client) ClientOption {
	return func(c *Client) { c.http = h }
}

// WithTimeout sets the request timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) { c.http.Timeout = d }
}

func NewClient(baseURL string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

var _ DataSource = (*Client)(nil)

// TokenMarket fetches the pool snapshot for mint. A response that does not
// decode, or decodes to nonsense, maps to the upstream-malformed kind so
// the orchestrator records it as data rather than retrying.
func (c *Client) TokenMarket(ctx context.Context, mint string) (*Snapshot, error) {
	u := fmt.Sprintf("%s/tokens/%s", c.baseURL, url.PathEscape(mint))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("market data request: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, fmt.Errorf("market data: %w", domain.ErrRateLimited)
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("%w: market data returned %d", domain.ErrUpstreamMalformed, resp.StatusCode)
	}

	var snap Snapshot
	if err := json.NewDecoder(resp.Body).Decode(&snap); err != nil {
		return nil, fmt.Errorf("%w: decode market snapshot: %v", domain.ErrUpstreamMalformed, err)
	}
	if snap.LiquidityUSD < 0 || snap.MarketCapUSD < 0 {
		return nil, fmt.Errorf("%w: negative liquidity or market cap", domain.ErrUpstreamMalformed)
	}
	return &snap, nil
}

// LPMint satisfies the authority detector's pool resolver.
func (c *Client) LPMint(ctx context.Context, mint string) (string, error) {
	snap, err := c.TokenMarket(ctx, mint)
	if err != nil {
		return "", err
	}
	return snap.LPMintAddress, nil
}
