// Package mlscore scores tokens with a logistic model over the engineered
// feature vector, falling back to rule-based scoring when no model file is
// configured.
package mlscore

// Features is the engineered input vector. Unobservable fields stay at
// their zero value; the model treats them as the neutral baseline.
type Features struct {
	MintRevoked         float64 // 1 when mint authority is revoked
	FreezeRevoked       float64 // 1 when freeze authority is revoked
	LPBurnedPct         float64 // [0, 1]
	Honeypot            float64 // 1 when sells are blocked
	TaxBuy              float64 // percent
	TaxSell             float64 // percent
	RealHolders         float64
	Top10Concentration  float64 // percent
	SniperPct           float64 // percent of supply bought in the first block window
	DevBuyPct           float64
	BundledClusters     float64 // count
	McToLiqRatio        float64
	Slippage10k         float64
	VolumeVelocity5m    float64
	PriceChange5m       float64
	BuyDensityKDEPeak   float64
	AvgBuyPrice         float64
	HoursSinceMigration float64
	JitoBundleDetected  float64 // 1 when any cluster carried a tip transfer
	ClusterRiskScore    float64 // [0, 1]
}

// featureOrder fixes the vector layout the model weights refer to.
var featureOrder = []string{
	"mint_revoked",
	"freeze_revoked",
	"lp_burned_pct",
	"honeypot",
	"tax_buy",
	"tax_sell",
	"real_holders",
	"top10_concentration",
	"sniper_pct",
	"dev_buy_pct",
	"bundled_clusters",
	"mc_to_liq_ratio",
	"slippage_10k",
	"volume_velocity_5m",
	"price_change_5m",
	"buy_density_kde_peak",
	"avg_buy_price",
	"hours_since_migration",
	"jito_bundle_detected",
	"cluster_risk_score",
}

// Map returns the named feature values in model weight key space.
func (f Features) Map() map[string]float64 {
	return map[string]float64{
		"mint_revoked":          f.MintRevoked,
		"freeze_revoked":        f.FreezeRevoked,
		"lp_burned_pct":         f.LPBurnedPct,
		"honeypot":              f.Honeypot,
		"tax_buy":               f.TaxBuy,
		"tax_sell":              f.TaxSell,
		"real_holders":          f.RealHolders,
		"top10_concentration":   f.Top10Concentration,
		"sniper_pct":            f.SniperPct,
		"dev_buy_pct":           f.DevBuyPct,
		"bundled_clusters":      f.BundledClusters,
		"mc_to_liq_ratio":       f.McToLiqRatio,
		"slippage_10k":          f.Slippage10k,
		"volume_velocity_5m":    f.VolumeVelocity5m,
		"price_change_5m":       f.PriceChange5m,
		"buy_density_kde_peak":  f.BuyDensityKDEPeak,
		"avg_buy_price":         f.AvgBuyPrice,
		"hours_since_migration": f.HoursSinceMigration,
		"jito_bundle_detected":  f.JitoBundleDetected,
		"cluster_risk_score":    f.ClusterRiskScore,
	}
}
