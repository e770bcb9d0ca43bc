// Package authority inspects an SPL mint's control surface: whether the
// deployer can still mint or freeze, and whether the pool's LP tokens are
// burned.
package authority

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"solana-risk-engine/internal/domain"
	"solana-risk-engine/internal/solana"
)

// Known burn destinations for LP tokens.
var burnAddresses = []string{
	"1nc1nerator11111111111111111111111111111111",
	"11111111111111111111111111111111",
}

// LPMintSource resolves the LP token mint of a token's primary pool.
// Typically backed by the market-data client; nil disables the burn check.
type LPMintSource interface {
	LPMint(ctx context.Context, mint string) (string, error)
}

// Evidence is the typed evidence an authority inspection emits.
type Evidence struct {
	MintRevoked     bool
	FreezeRevoked   bool
	LPMint          string
	LPBurnedPercent float64
	LPChecked       bool
}

// Detector runs authority inspection as one member of the fan-out set.
type Detector struct {
	rpc solana.RPCClient
	lp  LPMintSource
	log *logrus.Entry
}

func NewDetector(rpc solana.RPCClient, lp LPMintSource, log *logrus.Entry) *Detector {
	return &Detector{rpc: rpc, lp: lp, log: log}
}

func (d *Detector) Kind() domain.DetectorKind {
	return domain.DetectorAuthority
}

// Detect reads the mint account and the LP token distribution. A live mint
// or freeze authority is the strongest single rug signal the engine has.
func (d *Detector) Detect(ctx context.Context, req *domain.AnalysisRequest, _ *domain.AnalysisOptions) (*domain.DetectorResult, error) {
	info, err := d.rpc.GetAccountInfo(ctx, req.TokenAddress)
	if err != nil {
		return nil, fmt.Errorf("mint account: %w", err)
	}
	if info == nil {
		return nil, fmt.Errorf("%w: mint account %s does not exist", domain.ErrUpstreamMalformed, req.TokenAddress)
	}
	mint, err := solana.ParseMintAccount(info.Data)
	if err != nil {
		return nil, err
	}

	ev := Evidence{
		MintRevoked:   mint.MintAuthority == nil,
		FreezeRevoked: mint.FreezeAuthority == nil,
	}
	result := &domain.DetectorResult{Kind: domain.DetectorAuthority, Confidence: 1.0}

	if !ev.MintRevoked {
		result.ScoreContribution -= 30
		result.RedFlags = append(result.RedFlags, domain.RedFlag{
			Code:     domain.FlagMintAuthority,
			Severity: 3,
			Message:  "mint authority is live: supply can be inflated at will",
			Detector: domain.DetectorAuthority,
		})
	} else {
		result.ScoreContribution += 10
	}

	if !ev.FreezeRevoked {
		result.ScoreContribution -= 25
		result.RedFlags = append(result.RedFlags, domain.RedFlag{
			Code:     domain.FlagFreezeAuthority,
			Severity: 3,
			Message:  "freeze authority is live: holder accounts can be frozen",
			Detector: domain.DetectorAuthority,
		})
	} else {
		result.ScoreContribution += 5
	}

	d.checkLPBurn(ctx, req.TokenAddress, &ev, result)
	result.Evidence = ev

	d.log.WithFields(logrus.Fields{
		"mint":           req.TokenAddress,
		"mint_revoked":   ev.MintRevoked,
		"freeze_revoked": ev.FreezeRevoked,
		"lp_burned_pct":  ev.LPBurnedPercent,
	}).Debug("authority inspection complete")

	return result, nil
}

// checkLPBurn measures how much of the LP token supply sits in burn
// addresses. Failures here degrade confidence instead of failing the
// detector; the authority flags above are the primary signal.
func (d *Detector) checkLPBurn(ctx context.Context, mint string, ev *Evidence, result *domain.DetectorResult) {
	if d.lp == nil {
		return
	}
	lpMint, err := d.lp.LPMint(ctx, mint)
	if err != nil || lpMint == "" {
		result.Confidence = 0.8
		return
	}
	ev.LPMint = lpMint

	supply, err := d.rpc.GetTokenSupply(ctx, lpMint)
	if err != nil || supply.Amount == 0 {
		result.Confidence = 0.8
		return
	}
	accounts, err := d.rpc.GetTokenLargestAccounts(ctx, lpMint)
	if err != nil {
		result.Confidence = 0.8
		return
	}

	var burned uint64
	for _, a := range accounts {
		owner := d.accountOwner(ctx, a.Address)
		for _, b := range burnAddresses {
			if a.Address == b || owner == b {
				burned += a.Amount
			}
		}
	}
	ev.LPChecked = true
	ev.LPBurnedPercent = float64(burned) / float64(supply.Amount) * 100

	if ev.LPBurnedPercent >= 90 {
		result.ScoreContribution += 10
		return
	}
	result.ScoreContribution -= 20
	severity := 2
	if ev.LPBurnedPercent < 50 {
		severity = 3
	}
	result.RedFlags = append(result.RedFlags, domain.RedFlag{
		Code:     domain.FlagLPUnlocked,
		Severity: severity,
		Message:  fmt.Sprintf("only %.1f%% of LP tokens burned: liquidity can be pulled", ev.LPBurnedPercent),
		Detector: domain.DetectorAuthority,
	})
}

func (d *Detector) accountOwner(ctx context.Context, tokenAccount string) string {
	info, err := d.rpc.GetAccountInfo(ctx, tokenAccount)
	if err != nil || info == nil {
		return ""
	}
	acct, err := solana.ParseTokenAccount(info.Data)
	if err != nil {
		return ""
	}
	return acct.Owner
}
