package analysis

import (
	"math"
	"sort"

	"sprintrep/domain/core"
	"sprintrep/domain/stats"
)

// Royston (1995) polynomial coefficients for the Shapiro-Wilk W test.
var (
	swC1 = []float64{0, 0.221157, -0.147981, -2.07119, 4.434685, -2.706056}
	swC2 = []float64{0, 0.042981, -0.293762, -1.752461, 5.682633, -3.582633}
	swC3 = []float64{0.5440, -0.39978, 0.025054, -6.714e-4}
	swC4 = []float64{1.3822, -0.77857, 0.062767, -0.0020322}
	swC5 = []float64{-1.5861, -0.31082, -0.083751, 0.0038915}
	swC6 = []float64{-0.4803, -0.082676, 0.0030302}
	swG  = []float64{-2.273, 0.459}
)

const (
	swMinN = 3
	swMaxN = 5000
)

func poly(c []float64, x float64) float64 {
	result := 0.0
	for i := len(c) - 1; i >= 0; i-- {
		result = result*x + c[i]
	}
	return result
}

// ShapiroWilk computes the W statistic and its p-value using Royston's
// approximation (AS R94). Valid for 3 <= n <= 5000.
func ShapiroWilk(data []float64) (w, pValue float64, err error) {
	n := len(data)
	if n < swMinN {
		return 0, 0, core.NewInsufficientDataError("Shapiro-Wilk sample", n, swMinN)
	}
	if n > swMaxN {
		return 0, 0, core.NewInvalidInputError("Shapiro-Wilk sample", "more than 5000 observations")
	}

	x := make([]float64, n)
	copy(x, data)
	sort.Float64s(x)

	mean := 0.0
	for _, v := range x {
		mean += v
	}
	mean /= float64(n)
	ssq := 0.0
	for _, v := range x {
		ssq += (v - mean) * (v - mean)
	}
	if ssq == 0 {
		return 1, 1, nil
	}

	a := shapiroWilkCoefficients(n)

	num := 0.0
	for i := 0; i < n; i++ {
		num += a[i] * x[i]
	}
	w = num * num / ssq
	if w > 1 {
		w = 1
	}

	return w, shapiroWilkPValue(w, n), nil
}

// shapiroWilkCoefficients returns the antisymmetric weights a_1..a_n for
// ascending-sorted data.
func shapiroWilkCoefficients(n int) []float64 {
	a := make([]float64, n)
	if n == 3 {
		a[0], a[2] = -math.Sqrt(0.5), math.Sqrt(0.5)
		return a
	}

	an := float64(n)
	m := make([]float64, n)
	summ2 := 0.0
	for i := 0; i < n; i++ {
		m[i] = dist.NormalQuantile((float64(i+1) - 0.375) / (an + 0.25))
		summ2 += m[i] * m[i]
	}
	ssumm2 := math.Sqrt(summ2)
	rsn := 1 / math.Sqrt(an)

	an1 := poly(swC1, rsn) + m[n-1]/ssumm2
	a[n-1], a[0] = an1, -an1

	start := 1
	var fac float64
	if n > 5 {
		an2 := poly(swC2, rsn) + m[n-2]/ssumm2
		a[n-2], a[1] = an2, -an2
		fac = math.Sqrt((summ2 - 2*m[n-1]*m[n-1] - 2*m[n-2]*m[n-2]) / (1 - 2*an1*an1 - 2*an2*an2))
		start = 2
	} else {
		fac = math.Sqrt((summ2 - 2*m[n-1]*m[n-1]) / (1 - 2*an1*an1))
	}
	for i := start; i < n-start; i++ {
		a[i] = m[i] / fac
	}
	return a
}

func shapiroWilkPValue(w float64, n int) float64 {
	if w >= 1 {
		return 1
	}
	if n == 3 {
		const pi6 = 6 / math.Pi
		stqr := math.Asin(math.Sqrt(0.75))
		p := pi6 * (math.Asin(math.Sqrt(w)) - stqr)
		return clampProbability(p)
	}

	an := float64(n)
	y := math.Log(1 - w)
	var mu, sigma float64
	if n <= 11 {
		gamma := poly(swG, an)
		if y >= gamma {
			return 1e-99
		}
		y = -math.Log(gamma - y)
		mu = poly(swC3, an)
		sigma = math.Exp(poly(swC4, an))
	} else {
		xx := math.Log(an)
		mu = poly(swC5, xx)
		sigma = math.Exp(poly(swC6, xx))
	}
	return clampProbability(dist.NormalSurvival((y - mu) / sigma))
}

// NormalityCheck wraps ShapiroWilk into a labelled result.
func NormalityCheck(label string, data []float64, alpha float64) (stats.NormalityTest, error) {
	w, p, err := ShapiroWilk(data)
	if err != nil {
		return stats.NormalityTest{}, err
	}
	return stats.NormalityTest{
		Label:  label,
		N:      len(data),
		W:      w,
		PValue: p,
		Normal: p > alpha,
	}, nil
}
