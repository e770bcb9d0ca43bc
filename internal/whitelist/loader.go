package whitelist

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Jito block-engine tip accounts (mainnet).
var defaultTipAccounts = []string{
	"96gYZGLnJYVFmbjzopPSU6QiEV5fGqZNyN9nmNhvrZU5",
	"HFqU5x63VTqvQss8hp11i4wVV8bD44PvwucfZ2bU7gRe",
	"Cw8CFyM9FkoMi7K7Crf6HNQqf4uEMzpKw6QNghXLvLkY",
	"ADaUMid9yfUytqMBgopwjb2DTLSokTSzL1zt6iGPaS49",
	"DfXygSm4jCyNCybVYYK6DwvWqjKee8pbDmJGcLWNDXjh",
	"ADuUkR4vqLUMWXxW9gh6D6L8pMSawimctcNZ5pGwDcEt",
	"DttWaMuVvTiduZRnguLF7jNxTgiMBZ1hyAumKUiL2KRL",
	"3AVi9Tg9Uo68tJfuvoKvqKNWKkC5wPdSSdeBnizKZ6jT",
}

// Known AMM program IDs (Raydium AMM v4, Raydium CPMM, pump.fun, Orca).
var defaultAMMPrograms = []string{
	"675kPX9MHTjS2zt1qfr1NYHuzeLXfQM9H24wFSUt1Mp8",
	"CPMMoo8L3F4NbTegBCKVNunggL7H1ZpdTHKxQB5qKP1C",
	"6EF8rrecthR5Dkzon8Nwu78hRvfCKubJ14M5uBEwF6P",
	"whirLbMiicVdio4qvUfM5KAg6Ct8VwpYzGff3uctyCc",
}

// DefaultSets returns the built-in tables used when no file or database
// source is configured. Exchange/protocol/mixer lists are intentionally
// small; production runs load the refreshed tables.
func DefaultSets() Sets {
	return Sets{
		Exchanges: []string{
			"5tzFkiKscXHK5ZXCGbXZxdw7gTjjD1mBwuoFbhUvuAi9", // Binance hot wallet
			"2AQdpHJ2JpcEgPiATUXjQxA8QmafFegfQwSLWSprPicm", // Coinbase
			"ASTyfSima4LLAdDgoFGkgqoKowG1LZFDr9fAQrg7iaJZ", // Bybit
			"GJRs4FwHtemZ5ZE9x3FNvJ8TMwitKTh21yxdRPqn7npE", // OKX
			"AC5RDfQFmDS1deWZos921JfqscXdByf8BKHs5ACWjtW2", // Kraken
		},
		Protocols: []string{
			"11111111111111111111111111111111",            // system program
			"TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA", // SPL token
			"ATokenGPvbdGVxr1b2hvZbsiqW5xWH25efTNsLJA8knL", // associated token
		},
		Mixers:      []string{},
		AMMPrograms: defaultAMMPrograms,
		TipAccounts: defaultTipAccounts,
	}
}

// LoadFile reads Sets from a YAML file and merges them over the defaults.
func LoadFile(path string) (Sets, error) {
	sets := DefaultSets()
	data, err := os.ReadFile(path)
	if err != nil {
		return Sets{}, fmt.Errorf("read whitelist file: %w", err)
	}
	var loaded Sets
	if err := yaml.Unmarshal(data, &loaded); err != nil {
		return Sets{}, fmt.Errorf("parse whitelist file: %w", err)
	}
	sets.Exchanges = append(sets.Exchanges, loaded.Exchanges...)
	sets.Protocols = append(sets.Protocols, loaded.Protocols...)
	sets.Mixers = append(sets.Mixers, loaded.Mixers...)
	sets.AMMPrograms = append(sets.AMMPrograms, loaded.AMMPrograms...)
	sets.TipAccounts = append(sets.TipAccounts, loaded.TipAccounts...)
	return sets, nil
}
