package analysis

import (
	"fmt"
	"math"

	"sprintrep/domain/core"
	"sprintrep/domain/stats"
)

// fisherClamp keeps atanh finite for |r| = 1.
const fisherClamp = 1 - 1e-12

// PESToRho maps partial eta-squared onto a correlation-like scale,
// rho = 2*sqrt(pes) - 1, so pes 0 is -1 and pes 1 is +1.
func PESToRho(pes float64) (float64, error) {
	if math.IsNaN(pes) || pes < 0 || pes > 1 {
		return 0, core.NewInvalidInputError("pes", fmt.Sprintf("%g is outside [0, 1]", pes))
	}
	return 2*math.Sqrt(pes) - 1, nil
}

// FisherZ is atanh(r) with r clamped just inside (-1, 1).
func FisherZ(r float64) float64 {
	r = math.Max(-fisherClamp, math.Min(fisherClamp, r))
	return math.Atanh(r)
}

// CompareEffectSizes tests rho1 = rho2 for two independent correlations via
// Fisher z. Degrees of freedom are the correlation dfs, n = df + 2, so the
// standard error of z1 - z2 is sqrt(1/(df1-1) + 1/(df2-1)). "greater" tests
// rho1 > rho2.
func CompareEffectSizes(r1, df1, r2, df2 float64, alternative stats.Alternative, alpha float64) (stats.ReplicationTestResult, error) {
	for _, in := range []struct {
		name string
		r    float64
	}{{"rho1", r1}, {"rho2", r2}} {
		if math.IsNaN(in.r) || in.r < -1 || in.r > 1 {
			return stats.ReplicationTestResult{}, core.NewInvalidInputError(in.name, fmt.Sprintf("%g is outside [-1, 1]", in.r))
		}
	}
	if !(df1 > 1) || !(df2 > 1) {
		return stats.ReplicationTestResult{}, core.NewInvalidInputError("df", fmt.Sprintf("df1=%g and df2=%g must both exceed 1", df1, df2))
	}
	if !(alpha > 0 && alpha < 1) {
		return stats.ReplicationTestResult{}, core.NewInvalidInputError("alpha", fmt.Sprintf("%g is outside (0, 1)", alpha))
	}
	if alternative == "" {
		alternative = stats.AlternativeTwoSided
	}

	z1, z2 := FisherZ(r1), FisherZ(r2)
	se := math.Sqrt(1/(df1-1) + 1/(df2-1))
	statistic := (z1 - z2) / se

	var p float64
	switch alternative {
	case stats.AlternativeGreater:
		p = dist.NormalSurvival(statistic)
	case stats.AlternativeLess:
		p = dist.NormalCDF(statistic)
	case stats.AlternativeTwoSided:
		p = math.Min(1, 2*dist.NormalSurvival(math.Abs(statistic)))
	default:
		return stats.ReplicationTestResult{}, core.NewInvalidInputError("alternative", string(alternative))
	}

	return stats.ReplicationTestResult{
		Rho1:        r1,
		DF1:         df1,
		Rho2:        r2,
		DF2:         df2,
		Z1:          z1,
		Z2:          z2,
		SE:          se,
		Statistic:   statistic,
		PValue:      p,
		Alternative: alternative,
		Alpha:       alpha,
		Significant: p < alpha,
	}, nil
}
