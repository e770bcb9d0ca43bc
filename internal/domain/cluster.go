package domain

// ClusterConfidence grades how certain a wallet cluster is coordinated.
type ClusterConfidence string

const (
	ConfidenceLow    ClusterConfidence = "low"
	ConfidenceMedium ClusterConfidence = "medium"
	ConfidenceHigh   ClusterConfidence = "high"
)

// confidenceRank maps confidence levels to an escalation order.
var confidenceRank = map[ClusterConfidence]int{
	ConfidenceLow:    0,
	ConfidenceMedium: 1,
	ConfidenceHigh:   2,
}

// AtLeast reports whether c is at or above other in the escalation order.
func (c ClusterConfidence) AtLeast(other ClusterConfidence) bool {
	return confidenceRank[c] >= confidenceRank[other]
}

// BuyEvent is one buy in a token's early trading window.
type BuyEvent struct {
	Wallet        string  `json:"wallet"`
	TxSignature   string  `json:"tx_signature"`
	TimestampMs   int64   `json:"timestamp_ms"`
	Amount        float64 `json:"amount"`         // token amount bought
	SupplyPercent float64 `json:"supply_percent"` // share of total supply this buy represents
	TipTransfer   bool    `json:"tip_transfer"`   // transfer to a block-builder tip account in the same transaction
}

// WalletCluster is a group of wallets whose buys are timing-correlated.
// Immutable once emitted for a given request.
// Invariant: TimingGapMs = LastTimestamp - FirstTimestamp and is below the
// coordination threshold, otherwise the cluster is not materialized.
type WalletCluster struct {
	Members        []string // sorted ascending for determinism
	FirstTimestamp int64
	LastTimestamp  int64
	TimingGapMs    int64
	SupplyPercent  float64
	Confidence     ClusterConfidence
}
