package domain

// HolderClass labels a holder address.
type HolderClass string

const (
	HolderUnclassified HolderClass = "unclassified"
	HolderLP           HolderClass = "lp"
	HolderExchange     HolderClass = "exchange"
	HolderProtocol     HolderClass = "protocol"
	HolderBundled      HolderClass = "bundled"
)

// HolderRecord represents one holder of the analyzed token.
// Invariants: percentages across all records for a token sum to <= 100
// (rounding tolerance); Rank is a strict total order by balance descending
// with ties broken by address ascending.
type HolderRecord struct {
	Address            string      `json:"address"`
	RawBalance         uint64      `json:"raw_balance"`
	PercentageOfSupply float64     `json:"percentage_of_supply"`
	Rank               int         `json:"rank"`
	Classification     HolderClass `json:"classification"`
}

// Concentration holds ownership concentration among retail-looking
// wallets, computed after excluding lp/exchange/protocol/bundled holders.
type Concentration struct {
	Top10Percent float64
	Top20Percent float64
}
