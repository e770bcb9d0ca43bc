package mlscore

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"sort"
)

// Factor is one feature's contribution to the model's log-odds, used to
// explain a score.
type Factor struct {
	Name         string  `json:"name"`
	Contribution float64 `json:"contribution"` // positive pushes towards rug
}

// Model is a logistic scorer with per-feature standardization, exported
// from the training pipeline as JSON.
type Model struct {
	Version string             `json:"version"`
	Bias    float64            `json:"bias"`
	Weights map[string]float64 `json:"weights"`
	Means   map[string]float64 `json:"means"`
	Stds    map[string]float64 `json:"stds"`
}

// LoadModel reads and validates a model file. Every feature in the fixed
// vector layout must carry a weight; a model trained against a different
// layout is rejected rather than silently misapplied.
func LoadModel(path string) (*Model, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read model: %w", err)
	}
	var m Model
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("parse model: %w", err)
	}
	for _, name := range featureOrder {
		if _, ok := m.Weights[name]; !ok {
			return nil, fmt.Errorf("model %s is missing weight for feature %q", path, name)
		}
	}
	return &m, nil
}

// Score returns the rug probability in [0, 1] and the strongest factors
// behind it, most influential first.
func (m *Model) Score(f Features) (float64, []Factor) {
	values := f.Map()

	z := m.Bias
	factors := make([]Factor, 0, len(featureOrder))
	for _, name := range featureOrder {
		v := values[name]
		if std := m.Stds[name]; std > 0 {
			v = (v - m.Means[name]) / std
		}
		contribution := m.Weights[name] * v
		z += contribution
		factors = append(factors, Factor{Name: name, Contribution: contribution})
	}

	sort.Slice(factors, func(i, j int) bool {
		ai, aj := math.Abs(factors[i].Contribution), math.Abs(factors[j].Contribution)
		if ai != aj {
			return ai > aj
		}
		return factors[i].Name < factors[j].Name
	})
	if len(factors) > 5 {
		factors = factors[:5]
	}

	return 1 / (1 + math.Exp(-z)), factors
}

// FallbackScore is the rule-based scorer used when no model is configured.
// It returns the rug probability and the triggered rules.
func FallbackScore(f Features) (float64, []Factor) {
	score := 100.0
	var factors []Factor

	deduct := func(name string, points float64) {
		score -= points
		factors = append(factors, Factor{Name: name, Contribution: points / 100})
	}

	if f.MintRevoked == 0 {
		deduct("mint_revoked", 20)
	}
	if f.FreezeRevoked == 0 {
		deduct("freeze_revoked", 20)
	}
	if f.Honeypot == 1 {
		deduct("honeypot", 30)
	}
	if f.TaxBuy > 5 || f.TaxSell > 5 {
		deduct("tax_buy", 15)
	}
	if f.Top10Concentration > 50 {
		deduct("top10_concentration", 10)
	}
	if f.LPBurnedPct < 0.9 {
		deduct("lp_burned_pct", 10)
	}

	if score < 0 {
		score = 0
	}
	return 1 - score/100, factors
}
