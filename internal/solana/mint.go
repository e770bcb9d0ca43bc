package solana

import (
	"encoding/binary"
	"fmt"

	"github.com/mr-tron/base58"

	"solana-risk-engine/internal/domain"
)

// SPL token mint account layout size.
const mintAccountSize = 82

// MintInfo is the decoded state of an SPL token mint account.
type MintInfo struct {
	MintAuthority   *string // nil when revoked
	FreezeAuthority *string // nil when revoked
	Supply          uint64
	Decimals        int
	Initialized     bool
}

// ParseMintAccount decodes raw SPL mint account data.
// Layout: [0:4] mint authority option (u32 LE), [4:36] mint authority,
// [36:44] supply (u64 LE), [44] decimals, [45] initialized,
// [46:50] freeze authority option, [50:82] freeze authority.
func ParseMintAccount(data []byte) (*MintInfo, error) {
	if len(data) < mintAccountSize {
		return nil, fmt.Errorf("%w: mint account data is %d bytes, want >= %d",
			domain.ErrUpstreamMalformed, len(data), mintAccountSize)
	}

	info := &MintInfo{
		Supply:      binary.LittleEndian.Uint64(data[36:44]),
		Decimals:    int(data[44]),
		Initialized: data[45] == 1,
	}

	if binary.LittleEndian.Uint32(data[0:4]) == 1 {
		authority := base58.Encode(data[4:36])
		info.MintAuthority = &authority
	}
	if binary.LittleEndian.Uint32(data[46:50]) == 1 {
		authority := base58.Encode(data[50:82])
		info.FreezeAuthority = &authority
	}

	return info, nil
}

// SPL token account layout: [0:32] mint, [32:64] owner, [64:72] amount.
const tokenAccountSize = 165

// TokenAccountInfo is the decoded state of an SPL token account.
type TokenAccountInfo struct {
	Mint   string
	Owner  string
	Amount uint64
}

// ParseTokenAccount decodes raw SPL token account data.
func ParseTokenAccount(data []byte) (*TokenAccountInfo, error) {
	if len(data) < tokenAccountSize {
		return nil, fmt.Errorf("%w: token account data is %d bytes, want >= %d",
			domain.ErrUpstreamMalformed, len(data), tokenAccountSize)
	}
	return &TokenAccountInfo{
		Mint:   base58.Encode(data[0:32]),
		Owner:  base58.Encode(data[32:64]),
		Amount: binary.LittleEndian.Uint64(data[64:72]),
	}, nil
}
