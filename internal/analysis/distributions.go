package analysis

import (
	"math"

	"gonum.org/v1/gonum/mathext"
	"gonum.org/v1/gonum/stat/distuv"
)

// StatisticalDistributions provides unified access to the distributions the
// analysis needs, so p-values and quantiles are computed in one place.
type StatisticalDistributions struct{}

// NewDistributions creates a new distributions utility
func NewDistributions() *StatisticalDistributions {
	return &StatisticalDistributions{}
}

var dist = NewDistributions()

// TTestPValue computes the two-tailed p-value of a t statistic
func (sd *StatisticalDistributions) TTestPValue(tStatistic, df float64) float64 {
	if df <= 0 || math.IsNaN(tStatistic) {
		return 1.0
	}
	tDist := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: df}
	return clampProbability(2 * tDist.Survival(math.Abs(tStatistic)))
}

// TQuantile returns the p-quantile of Student's t with df degrees of freedom
func (sd *StatisticalDistributions) TQuantile(p, df float64) float64 {
	tDist := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: df}
	return tDist.Quantile(p)
}

// FTestPValue computes the upper-tail p-value of an F statistic. Degrees of
// freedom may be fractional (sphericity-corrected).
func (sd *StatisticalDistributions) FTestPValue(fStatistic, df1, df2 float64) float64 {
	if df1 <= 0 || df2 <= 0 || math.IsNaN(fStatistic) {
		return 1.0
	}
	if math.IsInf(fStatistic, 1) {
		return 0
	}
	if fStatistic <= 0 {
		return 1.0
	}
	fDist := distuv.F{D1: df1, D2: df2}
	return clampProbability(fDist.Survival(fStatistic))
}

// ChiSquarePValue computes the upper-tail p-value of a chi-square statistic
func (sd *StatisticalDistributions) ChiSquarePValue(chiSquare, df float64) float64 {
	if df <= 0 || math.IsNaN(chiSquare) {
		return 1.0
	}
	if math.IsInf(chiSquare, 1) {
		return 0
	}
	chiDist := distuv.ChiSquared{K: df}
	return clampProbability(chiDist.Survival(chiSquare))
}

// NormalCDF computes cumulative distribution function for standard normal
func (sd *StatisticalDistributions) NormalCDF(x float64) float64 {
	return distuv.UnitNormal.CDF(x)
}

// NormalSurvival computes the upper tail of the standard normal
func (sd *StatisticalDistributions) NormalSurvival(x float64) float64 {
	return distuv.UnitNormal.Survival(x)
}

// NormalQuantile computes quantile function for standard normal (inverse CDF)
func (sd *StatisticalDistributions) NormalQuantile(p float64) float64 {
	return distuv.UnitNormal.Quantile(p)
}

// NoncentralFCDF evaluates P(X <= x) for X ~ F(df1, df2, ncp).
//
// The noncentral F is a Poisson(ncp/2) mixture of central beta tails:
//
//	CDF(x) = sum_j Pois(j; ncp/2) * I_y(df1/2 + j, df2/2),  y = df1*x / (df1*x + df2)
//
// Terms are summed outward from the Poisson mode until the weights vanish.
func (sd *StatisticalDistributions) NoncentralFCDF(x, df1, df2, ncp float64) float64 {
	if x <= 0 {
		return 0
	}
	if math.IsInf(x, 1) {
		return 1
	}
	if ncp <= 0 {
		fDist := distuv.F{D1: df1, D2: df2}
		return fDist.CDF(x)
	}

	y := df1 * x / (df1*x + df2)
	lambda := ncp / 2
	logLambda := math.Log(lambda)

	weight := func(j float64) float64 {
		lg, _ := math.Lgamma(j + 1)
		return math.Exp(-lambda + j*logLambda - lg)
	}
	term := func(j, w float64) float64 {
		return w * mathext.RegIncBeta(df1/2+j, df2/2, y)
	}

	const (
		weightTolerance = 1e-16
		maxTerms        = 100000
	)

	mode := math.Floor(lambda)
	w := weight(mode)
	sum := term(mode, w)

	for j, n := mode+1, 0; n < maxTerms; j, n = j+1, n+1 {
		w = weight(j)
		sum += term(j, w)
		if w < weightTolerance {
			break
		}
	}
	for j := mode - 1; j >= 0; j-- {
		w = weight(j)
		sum += term(j, w)
		if w < weightTolerance {
			break
		}
	}

	return clampProbability(sum)
}

func clampProbability(p float64) float64 {
	switch {
	case math.IsNaN(p):
		return p
	case p < 0:
		return 0
	case p > 1:
		return 1
	}
	return p
}
