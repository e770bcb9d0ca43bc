package solana

import "context"

// RPCClient defines the Solana RPC HTTP interface consumed by detectors.
type RPCClient interface {
	// GetAccountInfo retrieves account info by public key.
	// Returns nil if the account does not exist.
	GetAccountInfo(ctx context.Context, pubkey string) (*AccountInfo, error)

	// GetTokenLargestAccounts retrieves the 20 largest token accounts of a mint.
	GetTokenLargestAccounts(ctx context.Context, mint string) ([]TokenBalance, error)

	// GetTokenSupply retrieves the total supply of a mint.
	GetTokenSupply(ctx context.Context, mint string) (*TokenAmount, error)

	// GetSignaturesForAddress retrieves signatures for an address with pagination.
	GetSignaturesForAddress(ctx context.Context, address string, opts *SignaturesOpts) ([]SignatureInfo, error)

	// GetTransaction retrieves a transaction by signature.
	GetTransaction(ctx context.Context, signature string) (*Transaction, error)
}

// AccountInfo represents Solana account information.
type AccountInfo struct {
	Lamports   uint64
	Owner      string
	Data       []byte // decoded account data
	Executable bool
	RentEpoch  uint64
}

// TokenBalance is one entry from getTokenLargestAccounts.
type TokenBalance struct {
	Address  string
	Amount   uint64
	Decimals int
}

// TokenAmount is the value of getTokenSupply.
type TokenAmount struct {
	Amount   uint64
	Decimals int
}

// Transaction represents a Solana transaction.
type Transaction struct {
	Slot      int64
	Signature string
	BlockTime int64 // Unix timestamp (seconds)
	Meta      *TransactionMeta
	Message   *TransactionMessage
}

// TransactionMeta contains transaction metadata.
type TransactionMeta struct {
	Err               interface{}
	LogMessages       []string
	PreBalances       []uint64
	PostBalances      []uint64
	PreTokenBalances  []TokenBalanceMeta
	PostTokenBalances []TokenBalanceMeta
}

// TokenBalanceMeta is one pre/post token balance entry from transaction meta.
type TokenBalanceMeta struct {
	AccountIndex int
	Mint         string
	Owner        string
	Amount       uint64
	Decimals     int
}

// TransactionMessage contains parsed transaction message.
type TransactionMessage struct {
	AccountKeys []string
}

// SignatureInfo from getSignaturesForAddress.
type SignatureInfo struct {
	Signature string
	Slot      int64
	BlockTime *int64
	Err       interface{}
}

// SignaturesOpts defines optional pagination parameters for getSignaturesForAddress.
type SignaturesOpts struct {
	Before string // Start searching backwards from this signature
	Until  string // Search until this signature
	Limit  int    // Maximum number of signatures to return
}
