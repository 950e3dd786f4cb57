package analysis

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sprintrep/domain/core"
	"sprintrep/domain/sprint"
)

func TestPairwiseContrasts_SmallDesign(t *testing.T) {
	fit, err := RunRMAnova(wideToLong(smallDesign), DefaultRMAnovaOptions("small"))
	require.NoError(t, err)

	emms, pairs, err := PairwiseContrasts(fit, 0.05)
	require.NoError(t, err)
	require.Len(t, emms, 3)
	require.Len(t, pairs, 3)

	// con = {1, 2, 3}: mean 2, sd 1
	assert.Equal(t, sprint.ConditionControl, emms[0].Condition)
	assert.InDelta(t, 2.0, emms[0].Mean, 1e-12)
	assert.InDelta(t, 1/math.Sqrt(3), emms[0].SE, 1e-12)
	assert.Equal(t, 2.0, emms[0].DF)
	assert.Less(t, emms[0].Lower, emms[0].Mean)
	assert.Greater(t, emms[0].Upper, emms[0].Mean)

	// con - pla differences {-1, -2, 0}: mean -1, sd 1
	conPla := pairs[0]
	assert.Equal(t, "con - pla", conPla.Contrast())
	assert.InDelta(t, -1.0, conPla.Estimate, 1e-12)
	assert.InDelta(t, 1/math.Sqrt(3), conPla.SE, 1e-12)
	assert.InDelta(t, -math.Sqrt(3), conPla.T, 1e-9)
	assert.Equal(t, 3, conPla.Family)
	assert.InDelta(t, math.Min(1, 3*conPla.PValue), conPla.PAdjust, 1e-12)

	assert.Equal(t, sprint.ConditionControl, pairs[1].A)
	assert.Equal(t, sprint.ConditionCarbohydrate, pairs[1].B)
	assert.Equal(t, sprint.ConditionPlacebo, pairs[2].A)
	assert.Equal(t, sprint.ConditionCarbohydrate, pairs[2].B)
}

func TestPairwiseContrasts_BonferroniWidensInterval(t *testing.T) {
	fit, err := RunRMAnova(wideToLong(sprintDesign()), DefaultRMAnovaOptions("replication"))
	require.NoError(t, err)

	_, pairs, err := PairwiseContrasts(fit, 0.05)
	require.NoError(t, err)

	for _, p := range pairs {
		unadjusted := dist.TQuantile(0.975, p.DF) * p.SE
		assert.Greater(t, p.Upper-p.Lower, 2*unadjusted, p.Contrast())
		assert.GreaterOrEqual(t, p.PAdjust, p.PValue)
		assert.LessOrEqual(t, p.PAdjust, 1.0)
		assert.InDelta(t, p.Estimate, (p.Lower+p.Upper)/2, 1e-12)
	}

	// con - pla is a consistent 0.02s shift with little spread
	assert.InDelta(t, 0.02, pairs[0].Estimate, 1e-9)
	assert.Less(t, pairs[0].PAdjust, 0.05)
	assert.Greater(t, pairs[1].Estimate, 0.0)
}

func TestPairwiseContrasts_ZeroVarianceDifference(t *testing.T) {
	rows := [][3]float64{{2.0, 1.9, 1.7}, {2.1, 2.0, 1.9}, {1.9, 1.8, 1.5}}
	fit, err := RunRMAnova(wideToLong(rows), DefaultRMAnovaOptions("x"))
	require.NoError(t, err)

	_, pairs, err := PairwiseContrasts(fit, 0.05)
	require.NoError(t, err)

	// con - pla is exactly 0.1 for everyone
	assert.InDelta(t, 0.1, pairs[0].Estimate, 1e-9)
	assert.InDelta(t, 0, pairs[0].SE, 1e-7)
}

func TestPairwiseContrasts_InvalidInput(t *testing.T) {
	_, _, err := PairwiseContrasts(nil, 0.05)
	assert.ErrorIs(t, err, core.ErrInvalidInput)

	fit, err := RunRMAnova(wideToLong(smallDesign), DefaultRMAnovaOptions("x"))
	require.NoError(t, err)
	_, _, err = PairwiseContrasts(fit, 0)
	assert.ErrorIs(t, err, core.ErrInvalidInput)
}

func TestBonferroni(t *testing.T) {
	assert.InDelta(t, 0.03, bonferroni(0.01, 3), 1e-15)
	assert.Equal(t, 1.0, bonferroni(0.5, 3))
	assert.Equal(t, 0.0, bonferroni(0, 3))
}
