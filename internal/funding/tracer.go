package funding

import (
	"context"
	"fmt"
	"sort"

	"solana-risk-engine/internal/config"
	"solana-risk-engine/internal/domain"
	"solana-risk-engine/internal/solana"
	"solana-risk-engine/internal/whitelist"
)

// Transfer is one SOL movement into a wallet.
type Transfer struct {
	From        string
	To          string
	Lamports    uint64
	TimestampMs int64
}

// ChainReader is the transfer history surface the tracer walks. The RPC
// implementation lives below; tests supply a map-backed fake.
type ChainReader interface {
	// IncomingTransfers returns recent SOL transfers into wallet, newest
	// first. limit caps the signatures scanned, not the result length.
	IncomingTransfers(ctx context.Context, wallet string, limit int) ([]Transfer, error)

	// FirstActivity returns the Unix ms timestamp of the wallet's earliest
	// known signature, or 0 when the wallet has no history.
	FirstActivity(ctx context.Context, wallet string) (int64, error)
}

// Tracer walks funding chains backwards from buyer wallets.
type Tracer struct {
	cfg    config.FundingConfig
	reader ChainReader
	wl     *whitelist.Snapshot
}

func NewTracer(cfg config.FundingConfig, reader ChainReader, wl *whitelist.Snapshot) *Tracer {
	return &Tracer{cfg: cfg, reader: reader, wl: wl}
}

// Trace follows the dominant funding path of wallet up to the hop limit
// and returns the terminal edge. The walk stops early at any whitelisted
// source; an unclassified young source terminates as fresh-wallet.
func (t *Tracer) Trace(ctx context.Context, wallet string, nowMs int64) (domain.FundingEdge, error) {
	current := wallet
	visited := map[string]bool{wallet: true}

	edge := domain.FundingEdge{FundedWallet: wallet, SourceClassification: domain.SourceUnknown}

	for hop := 0; hop < t.cfg.MaxHops; hop++ {
		transfers, err := t.reader.IncomingTransfers(ctx, current, 50)
		if err != nil {
			return edge, fmt.Errorf("transfers for %s: %w", current, err)
		}
		source, lamports := dominantSource(transfers)
		if source == "" || visited[source] {
			break
		}
		visited[source] = true

		edge.FundingSource = source
		edge.Amount = float64(lamports) / 1e9

		if class := t.wl.ClassifySource(source); class != domain.SourceUnknown {
			edge.SourceClassification = class
			return edge, nil
		}

		fresh, err := t.isFresh(ctx, source, nowMs)
		if err != nil {
			return edge, err
		}
		if !fresh {
			// An aged unclassified wallet is as far back as the walk goes.
			edge.SourceClassification = domain.SourceUnknown
			return edge, nil
		}
		edge.SourceClassification = domain.SourceFreshWallet
		edge.IsRecentlyCreatedWallet = true
		current = source
	}

	return edge, nil
}

func (t *Tracer) isFresh(ctx context.Context, wallet string, nowMs int64) (bool, error) {
	first, err := t.reader.FirstActivity(ctx, wallet)
	if err != nil {
		return false, fmt.Errorf("first activity for %s: %w", wallet, err)
	}
	if first == 0 {
		return true, nil
	}
	return nowMs-first < t.cfg.FreshWalletAgeMs, nil
}

// dominantSource picks the sender that moved the most lamports in.
func dominantSource(transfers []Transfer) (string, uint64) {
	totals := make(map[string]uint64)
	for _, tr := range transfers {
		totals[tr.From] += tr.Lamports
	}
	var best string
	var bestAmount uint64
	senders := make([]string, 0, len(totals))
	for s := range totals {
		senders = append(senders, s)
	}
	sort.Strings(senders)
	for _, s := range senders {
		if totals[s] > bestAmount {
			best, bestAmount = s, totals[s]
		}
	}
	return best, bestAmount
}

// RPCReader implements ChainReader against the Solana JSON-RPC surface.
// It reconstructs transfers from pre/post lamport balances, which covers
// plain system transfers without parsing instructions.
type RPCReader struct {
	rpc solana.RPCClient
}

func NewRPCReader(rpc solana.RPCClient) *RPCReader {
	return &RPCReader{rpc: rpc}
}

var _ ChainReader = (*RPCReader)(nil)

func (r *RPCReader) IncomingTransfers(ctx context.Context, wallet string, limit int) ([]Transfer, error) {
	sigs, err := r.rpc.GetSignaturesForAddress(ctx, wallet, &solana.SignaturesOpts{Limit: limit})
	if err != nil {
		return nil, err
	}

	var transfers []Transfer
	for _, sig := range sigs {
		if sig.Err != nil {
			continue
		}
		tx, err := r.rpc.GetTransaction(ctx, sig.Signature)
		if err != nil {
			continue
		}
		if tr, ok := extractTransfer(tx, wallet); ok {
			transfers = append(transfers, tr)
		}
	}
	return transfers, nil
}

func (r *RPCReader) FirstActivity(ctx context.Context, wallet string) (int64, error) {
	// Signatures come newest first; page to the end to find the oldest.
	var oldest *solana.SignatureInfo
	before := ""
	for page := 0; page < 10; page++ {
		sigs, err := r.rpc.GetSignaturesForAddress(ctx, wallet, &solana.SignaturesOpts{Limit: 1000, Before: before})
		if err != nil {
			return 0, err
		}
		if len(sigs) == 0 {
			break
		}
		oldest = &sigs[len(sigs)-1]
		if len(sigs) < 1000 {
			break
		}
		before = oldest.Signature
	}
	if oldest == nil || oldest.BlockTime == nil {
		return 0, nil
	}
	return *oldest.BlockTime * 1000, nil
}

// extractTransfer derives the single largest inbound movement to wallet
// from balance deltas.
func extractTransfer(tx *solana.Transaction, wallet string) (Transfer, bool) {
	if tx == nil || tx.Meta == nil || tx.Message == nil {
		return Transfer{}, false
	}
	keys := tx.Message.AccountKeys
	pre, post := tx.Meta.PreBalances, tx.Meta.PostBalances
	if len(pre) != len(keys) || len(post) != len(keys) {
		return Transfer{}, false
	}

	walletIdx := -1
	for i, k := range keys {
		if k == wallet {
			walletIdx = i
			break
		}
	}
	if walletIdx < 0 || post[walletIdx] <= pre[walletIdx] {
		return Transfer{}, false
	}
	received := post[walletIdx] - pre[walletIdx]

	// The sender is the account whose balance dropped the most.
	sender := ""
	var maxDrop uint64
	for i, k := range keys {
		if i == walletIdx || post[i] >= pre[i] {
			continue
		}
		if drop := pre[i] - post[i]; drop > maxDrop {
			maxDrop, sender = drop, k
		}
	}
	if sender == "" {
		return Transfer{}, false
	}
	return Transfer{
		From:        sender,
		To:          wallet,
		Lamports:    received,
		TimestampMs: tx.BlockTime * 1000,
	}, true
}
