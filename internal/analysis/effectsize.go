package analysis

import (
	"errors"
	"fmt"
	"math"

	"sprintrep/domain/core"
	"sprintrep/domain/stats"
)

const (
	ncpTolerance    = 1e-10
	ncpMaxIter      = 300
	ncpBracketLimit = 1e8
)

// EffectSizeCI computes partial eta-squared and its confidence interval by
// inverting the noncentral F distribution. The lower bound solves
// CDF(F; ncp) = 1 - alpha/2 and the upper bound CDF(F; ncp) = alpha/2; each
// noncentrality is mapped back with eta = ncp / (ncp + dfm + dfe + 1).
//
// When no positive noncentrality reaches a target the bound is clamped to 0
// and flagged on the estimate rather than returned as an error.
func EffectSizeCI(dfm, dfe, f, alpha float64) (stats.EffectSizeEstimate, error) {
	switch {
	case !(dfm > 0) || math.IsInf(dfm, 0):
		return stats.EffectSizeEstimate{}, core.NewInvalidInputError("dfm", fmt.Sprintf("%g must be positive", dfm))
	case !(dfe > 0) || math.IsInf(dfe, 0):
		return stats.EffectSizeEstimate{}, core.NewInvalidInputError("dfe", fmt.Sprintf("%g must be positive", dfe))
	case math.IsNaN(f) || f < 0:
		return stats.EffectSizeEstimate{}, core.NewInvalidInputError("F", fmt.Sprintf("%g must be non-negative", f))
	case !(alpha > 0 && alpha < 1):
		return stats.EffectSizeEstimate{}, core.NewInvalidInputError("alpha", fmt.Sprintf("%g is outside (0, 1)", alpha))
	}

	est := stats.EffectSizeEstimate{Alpha: alpha}
	if math.IsInf(f, 1) {
		est.Eta, est.EtaLow, est.EtaHigh = 1, 1, 1
		est.NCPLow, est.NCPHigh = math.Inf(1), math.Inf(1)
		return est, nil
	}
	est.Eta = f * dfm / (f*dfm + dfe)

	lower, err := solveNCP(f, dfm, dfe, 1-alpha/2)
	if err != nil {
		if !errors.Is(err, core.ErrNumericalDegeneracy) {
			return stats.EffectSizeEstimate{}, err
		}
		est.LowerClamped = true
	}
	upper, err := solveNCP(f, dfm, dfe, alpha/2)
	if err != nil {
		if !errors.Is(err, core.ErrNumericalDegeneracy) {
			return stats.EffectSizeEstimate{}, err
		}
		est.UpperClamped = true
	}

	est.NCPLow, est.NCPHigh = lower, upper
	est.EtaLow = ncpToEta(lower, dfm, dfe)
	est.EtaHigh = ncpToEta(upper, dfm, dfe)

	// bounds always bracket the point estimate
	est.EtaLow = math.Min(est.EtaLow, est.Eta)
	est.EtaHigh = math.Max(est.EtaHigh, est.Eta)

	return est, nil
}

// EffectSizeFromANOVA builds the interval for one study from its ANOVA table.
func EffectSizeFromANOVA(study string, r stats.ANOVAResult, alpha float64) (stats.EffectSizeEstimate, error) {
	est, err := EffectSizeCI(r.DFM, r.DFE, r.F, alpha)
	if err != nil {
		return stats.EffectSizeEstimate{}, err
	}
	est.Study = study
	return est, nil
}

func ncpToEta(ncp, dfm, dfe float64) float64 {
	if math.IsInf(ncp, 1) {
		return 1
	}
	return ncp / (ncp + dfm + dfe + 1)
}

// solveNCP finds ncp >= 0 with NoncentralFCDF(f; dfm, dfe, ncp) = target. The
// CDF decreases in ncp, so the root is bracketed by doubling and refined by
// bisection. A target already above CDF(f; 0) has no positive root: the
// result is 0 with a degeneracy error. A root beyond the bracket limit
// returns +Inf with a degeneracy error.
func solveNCP(f, dfm, dfe, target float64) (float64, error) {
	cdf := func(ncp float64) float64 {
		return dist.NoncentralFCDF(f, dfm, dfe, ncp)
	}

	if cdf(0) <= target {
		return 0, core.NewDegeneracyError(fmt.Sprintf("no noncentrality reaches CDF %.4f at F=%.4f", target, f))
	}

	lo, hi := 0.0, math.Max(1, f*dfm)
	for cdf(hi) > target {
		lo = hi
		hi *= 2
		if hi > ncpBracketLimit {
			return math.Inf(1), core.NewDegeneracyError(fmt.Sprintf("noncentrality for CDF %.4f exceeds %g", target, ncpBracketLimit))
		}
	}

	for i := 0; i < ncpMaxIter; i++ {
		mid := (lo + hi) / 2
		if cdf(mid) > target {
			lo = mid
		} else {
			hi = mid
		}
		if hi-lo < ncpTolerance*math.Max(1, hi) {
			break
		}
	}
	return (lo + hi) / 2, nil
}
