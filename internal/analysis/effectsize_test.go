package analysis

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sprintrep/domain/core"
	"sprintrep/domain/sprint"
)

func TestEffectSizeCI_BoundsInvertNoncentralF(t *testing.T) {
	est, err := EffectSizeCI(2, 4, 21, 0.05)
	require.NoError(t, err)

	assert.InDelta(t, 42.0/46.0, est.Eta, 1e-12)
	assert.False(t, est.LowerClamped)
	assert.False(t, est.UpperClamped)
	assert.Greater(t, est.NCPLow, 0.0)
	assert.Greater(t, est.NCPHigh, est.NCPLow)

	assert.InDelta(t, 0.975, dist.NoncentralFCDF(21, 2, 4, est.NCPLow), 1e-6)
	assert.InDelta(t, 0.025, dist.NoncentralFCDF(21, 2, 4, est.NCPHigh), 1e-6)

	assert.LessOrEqual(t, est.EtaLow, est.Eta)
	assert.GreaterOrEqual(t, est.EtaHigh, est.Eta)
	assert.InDelta(t, est.NCPHigh/(est.NCPHigh+2+4+1), est.EtaHigh, 1e-12)
}

func TestEffectSizeCI_SmallFClampsLowerBound(t *testing.T) {
	est, err := EffectSizeCI(2, 22, 0.5, 0.05)
	require.NoError(t, err)

	assert.True(t, est.LowerClamped)
	assert.False(t, est.UpperClamped)
	assert.Equal(t, 0.0, est.NCPLow)
	assert.Equal(t, 0.0, est.EtaLow)
	assert.Greater(t, est.EtaHigh, est.Eta)
}

func TestEffectSizeCI_ZeroF(t *testing.T) {
	est, err := EffectSizeCI(2, 22, 0, 0.05)
	require.NoError(t, err)

	assert.True(t, est.LowerClamped)
	assert.True(t, est.UpperClamped)
	assert.Equal(t, 0.0, est.Eta)
	assert.Equal(t, 0.0, est.EtaLow)
	assert.Equal(t, 0.0, est.EtaHigh)
}

func TestEffectSizeCI_InfiniteF(t *testing.T) {
	est, err := EffectSizeCI(2, 22, math.Inf(1), 0.05)
	require.NoError(t, err)
	assert.Equal(t, 1.0, est.Eta)
	assert.Equal(t, 1.0, est.EtaLow)
	assert.Equal(t, 1.0, est.EtaHigh)
}

func TestEffectSizeCI_BoundsOrdering(t *testing.T) {
	dfs := [][2]float64{{2, 22}, {1.2, 13.5}, {2, 44}, {1, 10}}
	fs := []float64{0.1, 1, 3, 10, 50}

	for _, df := range dfs {
		for _, f := range fs {
			est, err := EffectSizeCI(df[0], df[1], f, 0.05)
			require.NoError(t, err, "dfm=%g dfe=%g F=%g", df[0], df[1], f)

			assert.GreaterOrEqual(t, est.EtaLow, 0.0)
			assert.LessOrEqual(t, est.EtaLow, est.Eta, "dfm=%g dfe=%g F=%g", df[0], df[1], f)
			assert.LessOrEqual(t, est.Eta, est.EtaHigh, "dfm=%g dfe=%g F=%g", df[0], df[1], f)
			assert.LessOrEqual(t, est.EtaHigh, 1.0)
		}
	}
}

func TestEffectSizeCI_NarrowerAtLargerAlpha(t *testing.T) {
	wide, err := EffectSizeCI(2, 22, 6, 0.05)
	require.NoError(t, err)
	narrow, err := EffectSizeCI(2, 22, 6, 0.10)
	require.NoError(t, err)

	assert.GreaterOrEqual(t, narrow.EtaLow, wide.EtaLow)
	assert.LessOrEqual(t, narrow.EtaHigh, wide.EtaHigh)
}

func TestEffectSizeCI_InvalidInput(t *testing.T) {
	cases := []struct {
		name           string
		dfm, dfe, f, a float64
	}{
		{"zero dfm", 0, 22, 3, 0.05},
		{"negative dfe", 2, -1, 3, 0.05},
		{"negative F", 2, 22, -1, 0.05},
		{"NaN F", 2, 22, math.NaN(), 0.05},
		{"alpha zero", 2, 22, 3, 0},
		{"alpha one", 2, 22, 3, 1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := EffectSizeCI(tc.dfm, tc.dfe, tc.f, tc.a)
			assert.ErrorIs(t, err, core.ErrInvalidInput)
		})
	}
}

func TestEffectSizeFromANOVA_LabelsStudy(t *testing.T) {
	fit, err := RunRMAnova(wideToLong(sprintDesign()), DefaultRMAnovaOptions("replication"))
	require.NoError(t, err)

	est, err := EffectSizeFromANOVA(sprint.StudyReplication, fit.Result, 0.05)
	require.NoError(t, err)
	assert.Equal(t, sprint.StudyReplication, est.Study)
	assert.InDelta(t, fit.Result.PES, est.Eta, 1e-9)
	assert.Regexp(t, `^\d\.\d\d \[\d\.\d\d, \d\.\d\d\]$`, est.Label())
}

func TestSolveNCP_Degenerate(t *testing.T) {
	ncp, err := solveNCP(0.2, 2, 22, 0.975)
	assert.Equal(t, 0.0, ncp)
	assert.True(t, core.IsDegeneracyError(err))
}
