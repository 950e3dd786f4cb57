package dataset

import (
	"math/rand"
	"testing"

	"sprintrep/domain/core"
	"sprintrep/domain/sprint"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleDataset() *sprint.SprintDataset {
	return &sprint.SprintDataset{
		Label: "replication",
		Participants: []sprint.Participant{
			{ID: "1", Times: map[sprint.Condition]float64{"con": 1.92, "pla": 1.90, "cho": 1.87}},
			{ID: "2", Times: map[sprint.Condition]float64{"con": 2.01, "pla": 1.97, "cho": 1.95}},
			{ID: "3", Times: map[sprint.Condition]float64{"con": 1.85, "pla": 1.86, "cho": 1.80}},
		},
	}
}

func TestUnpivotPivotRoundTrip(t *testing.T) {
	ds := sampleDataset()
	obs := Unpivot(ds)
	require.Len(t, obs, 9)

	back, err := Pivot(ds.Label, obs)
	require.NoError(t, err)
	assert.Equal(t, ds.Participants, back.Participants)
}

func TestPivotIsOrderIndependent(t *testing.T) {
	ds := sampleDataset()
	obs := Unpivot(ds)

	rng := rand.New(rand.NewSource(42))
	rng.Shuffle(len(obs), func(i, j int) { obs[i], obs[j] = obs[j], obs[i] })

	back, err := Pivot(ds.Label, obs)
	require.NoError(t, err)

	want := make(map[core.ParticipantID]map[sprint.Condition]float64)
	for _, p := range ds.Participants {
		want[p.ID] = p.Times
	}
	require.Len(t, back.Participants, len(ds.Participants))
	for _, p := range back.Participants {
		assert.Equal(t, want[p.ID], p.Times)
	}
}

func TestPivotRejectsIncompleteAndDuplicates(t *testing.T) {
	obs := Unpivot(sampleDataset())

	_, err := Pivot("x", obs[:len(obs)-1])
	assert.ErrorIs(t, err, core.ErrInvalidInput)

	_, err = Pivot("x", append(obs, obs[0]))
	assert.ErrorIs(t, err, core.ErrInvalidInput)

	bad := append([]sprint.LongObservation{}, obs...)
	bad[0].Condition = "maltodextrin"
	_, err = Pivot("x", bad)
	assert.ErrorIs(t, err, core.ErrUnknownLabel)
}
