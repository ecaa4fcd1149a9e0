package winprob

import (
	"math/rand"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/matchpulse/matchpulse/internal/domain/model"
	"github.com/matchpulse/matchpulse/internal/domain/types"
)

// UncertaintyReport summarizes the spread of the win-probability estimate
// under bounded perturbation of its input factors.
type UncertaintyReport struct {
	Samples int     `json:"samples"`
	Mean    float64 `json:"mean"`
	Median  float64 `json:"median"`
	StdDev  float64 `json:"std_dev"`
	P10     float64 `json:"p10"`
	P25     float64 `json:"p25"`
	P75     float64 `json:"p75"`
	P90     float64 `json:"p90"`
}

// Uncertainty runs a Monte Carlo perturbation of the factor values and
// reports the resulting probability distribution. Each factor value is
// shifted by uniform noise in [-noise, +noise] and re-clamped before the
// sigmoid link. Intended for on-demand queries, not the per-event path.
func (e *Estimator) Uncertainty(state model.GameState) UncertaintyReport {
	base := e.normalize(state)

	e.mu.RLock()
	samples := e.mcSamples
	noise := e.mcNoise
	seed := e.mcSeed
	e.mu.RUnlock()

	rng := rand.New(rand.NewSource(seed))
	probs := make([]float64, samples)
	perturbed := make([]types.FactorContribution, len(base))

	for i := 0; i < samples; i++ {
		copy(perturbed, base)
		for j := range perturbed {
			v := perturbed[j].Value + (rng.Float64()*2-1)*noise
			lo := -1.0
			if perturbed[j].Name == FactorDebt {
				lo = 0
			}
			perturbed[j].Value = clamp(v, lo, 1)
			perturbed[j].Contribution = perturbed[j].Weight * perturbed[j].Value
		}
		probs[i] = combine(perturbed)
	}

	sort.Float64s(probs)

	return UncertaintyReport{
		Samples: samples,
		Mean:    stat.Mean(probs, nil),
		Median:  stat.Quantile(0.5, stat.Empirical, probs, nil),
		StdDev:  stat.StdDev(probs, nil),
		P10:     stat.Quantile(0.10, stat.Empirical, probs, nil),
		P25:     stat.Quantile(0.25, stat.Empirical, probs, nil),
		P75:     stat.Quantile(0.75, stat.Empirical, probs, nil),
		P90:     stat.Quantile(0.90, stat.Empirical, probs, nil),
	}
}
