package analysis

import (
	"fmt"
	"math"

	"sprintrep/domain/core"
	"sprintrep/domain/stats"
)

// PairwiseContrasts estimates marginal means and all pairwise condition
// differences from the multivariate model, i.e. the unrestricted condition
// covariance rather than a pooled sphericity-assuming error term. P-values and
// confidence intervals are Bonferroni-adjusted across the family of contrasts.
func PairwiseContrasts(fit *RMAnovaFit, alpha float64) ([]stats.EMM, []stats.PairwiseResult, error) {
	if fit == nil || fit.Data == nil || fit.Covariance == nil {
		return nil, nil, core.NewInvalidInputError("fit", "model has not been fitted")
	}
	if alpha <= 0 || alpha >= 1 {
		return nil, nil, core.NewInvalidInputError("alpha", fmt.Sprintf("%g is outside (0, 1)", alpha))
	}

	n, k := fit.Data.Dims()
	if n < 2 {
		return nil, nil, core.NewInsufficientDataError("complete subjects", n, 2)
	}
	nf := float64(n)
	df := nf - 1

	means := make([]float64, k)
	for j := 0; j < k; j++ {
		for i := 0; i < n; i++ {
			means[j] += fit.Data.At(i, j)
		}
		means[j] /= nf
	}

	tMarginal := dist.TQuantile(1-alpha/2, df)
	emms := make([]stats.EMM, k)
	for j, c := range fit.Conditions {
		se := math.Sqrt(fit.Covariance.At(j, j) / nf)
		emms[j] = stats.EMM{
			Condition: c,
			Mean:      means[j],
			SE:        se,
			DF:        df,
			Lower:     means[j] - tMarginal*se,
			Upper:     means[j] + tMarginal*se,
		}
	}

	family := k * (k - 1) / 2
	tAdjusted := dist.TQuantile(1-alpha/(2*float64(family)), df)

	pairs := make([]stats.PairwiseResult, 0, family)
	for a := 0; a < k; a++ {
		for b := a + 1; b < k; b++ {
			variance := fit.Covariance.At(a, a) + fit.Covariance.At(b, b) - 2*fit.Covariance.At(a, b)
			if variance < 0 {
				variance = 0
			}
			se := math.Sqrt(variance / nf)
			estimate := means[a] - means[b]

			var t, p float64
			switch {
			case se > 0:
				t = estimate / se
				p = dist.TTestPValue(t, df)
			case estimate == 0:
				t, p = 0, 1
			default:
				t, p = math.Copysign(math.Inf(1), estimate), 0
			}

			pairs = append(pairs, stats.PairwiseResult{
				A:        fit.Conditions[a],
				B:        fit.Conditions[b],
				Estimate: estimate,
				SE:       se,
				DF:       df,
				T:        t,
				PValue:   p,
				PAdjust:  bonferroni(p, family),
				Lower:    estimate - tAdjusted*se,
				Upper:    estimate + tAdjusted*se,
				Family:   family,
			})
		}
	}

	return emms, pairs, nil
}

func bonferroni(p float64, m int) float64 {
	return math.Min(1, p*float64(m))
}
