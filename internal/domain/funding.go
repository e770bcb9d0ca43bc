package domain

// SourceClass labels the origin of a wallet's funding.
type SourceClass string

const (
	SourceExchange    SourceClass = "exchange"
	SourceProtocol    SourceClass = "protocol"
	SourceMixer       SourceClass = "mixer"
	SourceFreshWallet SourceClass = "fresh-wallet"
	SourceUnknown     SourceClass = "unknown"
)

// FundingEdge records where a wallet's capital came from.
type FundingEdge struct {
	FundedWallet            string
	FundingSource           string
	Amount                  float64 // SOL
	SourceClassification    SourceClass
	IsRecentlyCreatedWallet bool
}

// FundingBreakdown aggregates funding edges for one token's buyers.
// SourcePercentages maps a source label to the percent of analyzed supply
// funded from that label.
type FundingBreakdown struct {
	SourcePercentages map[SourceClass]float64
	// PerSourcePercent maps a concrete funding source address to the
	// percent of analyzed supply it funded. Used for the single-source
	// coordination check.
	PerSourcePercent map[string]float64
	Suspicious       bool
	Edges            []FundingEdge
}
