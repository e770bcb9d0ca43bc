package solana

import (
	"context"
	"sort"
	"time"

	"solana-risk-engine/internal/domain"
)

// TipChecker reports whether an address is a block-builder tip account.
// Satisfied by the whitelist snapshot.
type TipChecker interface {
	IsTipAccount(addr string) bool
}

// CaptureOptions bounds one early-window trade capture.
type CaptureOptions struct {
	// MaxEvents stops the capture after this many buys. Default 200.
	MaxEvents int
	// Window stops the capture after this duration. Default 30s.
	Window time.Duration
}

// TradeCapture collects a bounded sequence of buy events for a mint from
// the log subscription feed. It resolves each matching signature through
// the RPC client to extract buyer, amount and tip-transfer evidence from
// transaction meta.
type TradeCapture struct {
	ws   WSClient
	rpc  RPCClient
	tips TipChecker
}

// NewTradeCapture creates a trade capture component.
func NewTradeCapture(ws WSClient, rpc RPCClient, tips TipChecker) *TradeCapture {
	return &TradeCapture{ws: ws, rpc: rpc, tips: tips}
}

// EarlyBuyEvents captures this mint's early buys with default bounds.
// Satisfies the cluster detector's event source.
func (tc *TradeCapture) EarlyBuyEvents(ctx context.Context, mint string) ([]domain.BuyEvent, error) {
	supply, err := tc.rpc.GetTokenSupply(ctx, mint)
	if err != nil {
		return nil, err
	}
	return tc.CaptureBuyEvents(ctx, mint, supply, CaptureOptions{})
}

// CaptureBuyEvents subscribes to logs mentioning mint and converts swap
// notifications into buy events until the window closes, MaxEvents is
// reached, or ctx is done. Returned events are sorted by timestamp with
// signature tie-break, matching the cluster detector's input contract.
func (tc *TradeCapture) CaptureBuyEvents(ctx context.Context, mint string, supply *TokenAmount, opts CaptureOptions) ([]domain.BuyEvent, error) {
	if opts.MaxEvents <= 0 {
		opts.MaxEvents = 200
	}
	if opts.Window <= 0 {
		opts.Window = 30 * time.Second
	}

	ctx, cancel := context.WithTimeout(ctx, opts.Window)
	defer cancel()

	notifs, err := tc.ws.SubscribeLogs(ctx, LogsFilter{Mentions: []string{mint}})
	if err != nil {
		return nil, err
	}

	var events []domain.BuyEvent
	for len(events) < opts.MaxEvents {
		select {
		case <-ctx.Done():
			return sortBuyEvents(events), nil
		case notif, ok := <-notifs:
			if !ok {
				return sortBuyEvents(events), nil
			}
			if notif.Err != nil {
				continue
			}
			event, ok := tc.resolveBuy(ctx, mint, supply, notif.Signature)
			if ok {
				events = append(events, event)
			}
		}
	}
	return sortBuyEvents(events), nil
}

// resolveBuy fetches the transaction and returns a buy event when the mint
// balance of some owner increased.
func (tc *TradeCapture) resolveBuy(ctx context.Context, mint string, supply *TokenAmount, signature string) (domain.BuyEvent, bool) {
	tx, err := tc.rpc.GetTransaction(ctx, signature)
	if err != nil || tx == nil || tx.Meta == nil {
		return domain.BuyEvent{}, false
	}
	if tx.Meta.Err != nil {
		return domain.BuyEvent{}, false
	}

	pre := make(map[string]uint64)
	for _, b := range tx.Meta.PreTokenBalances {
		if b.Mint == mint {
			pre[b.Owner] += b.Amount
		}
	}

	var buyer string
	var bought uint64
	for _, b := range tx.Meta.PostTokenBalances {
		if b.Mint != mint {
			continue
		}
		if delta := int64(b.Amount) - int64(pre[b.Owner]); delta > 0 && uint64(delta) > bought {
			buyer = b.Owner
			bought = uint64(delta)
		}
	}
	if buyer == "" {
		return domain.BuyEvent{}, false
	}

	tip := false
	if tx.Message != nil {
		for _, key := range tx.Message.AccountKeys {
			if tc.tips.IsTipAccount(key) {
				tip = true
				break
			}
		}
	}

	event := domain.BuyEvent{
		Wallet:      buyer,
		TxSignature: signature,
		TimestampMs: tx.BlockTime * 1000,
		Amount:      float64(bought),
		TipTransfer: tip,
	}
	if supply != nil && supply.Amount > 0 {
		event.SupplyPercent = float64(bought) / float64(supply.Amount) * 100
	}
	return event, true
}

func sortBuyEvents(events []domain.BuyEvent) []domain.BuyEvent {
	sort.SliceStable(events, func(i, j int) bool {
		if events[i].TimestampMs != events[j].TimestampMs {
			return events[i].TimestampMs < events[j].TimestampMs
		}
		return events[i].TxSignature < events[j].TxSignature
	})
	return events
}
