package stats

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEffectSizeEstimateLabel(t *testing.T) {
	e := EffectSizeEstimate{Study: "Replication study", Eta: 0.2815, EtaLow: 0.0298, EtaHigh: 0.5312}
	assert.Equal(t, "0.28 [0.03, 0.53]", e.Label())
}

func TestParseCorrectionMode(t *testing.T) {
	for _, s := range []string{"auto", "always", "never"} {
		m, err := ParseCorrectionMode(s)
		assert.NoError(t, err)
		assert.Equal(t, CorrectionMode(s), m)
	}
	_, err := ParseCorrectionMode("sometimes")
	assert.Error(t, err)
}

func TestParseAlternative(t *testing.T) {
	a, err := ParseAlternative("greater")
	assert.NoError(t, err)
	assert.Equal(t, AlternativeGreater, a)

	_, err = ParseAlternative("bigger")
	assert.Error(t, err)
}

func TestMeanSquares(t *testing.T) {
	r := ANOVAResult{SSEffect: 0.04, SSError: 0.11, DFMUncorrected: 2, DFEUncorrected: 22}
	assert.InDelta(t, 0.02, r.MSEffect(), 1e-12)
	assert.InDelta(t, 0.005, r.MSError(), 1e-12)
}

func TestPairwiseContrastLabel(t *testing.T) {
	p := PairwiseResult{A: "con", B: "cho"}
	assert.Equal(t, "con - cho", p.Contrast())
}
