package dataset

import (
	"fmt"

	"sprintrep/domain/core"
	"sprintrep/domain/sprint"
)

// Unpivot turns the wide table into one observation per participant and
// condition, participant-major with conditions in canonical order.
func Unpivot(ds *sprint.SprintDataset) []sprint.LongObservation {
	out := make([]sprint.LongObservation, 0, len(ds.Participants)*len(sprint.Conditions))
	for _, p := range ds.Participants {
		for _, c := range sprint.Conditions {
			v, ok := p.Times[c]
			if !ok {
				continue
			}
			out = append(out, sprint.LongObservation{
				ParticipantID: p.ID,
				Condition:     c,
				Sprint10m:     v,
			})
		}
	}
	return out
}

// Pivot is the inverse of Unpivot. Participants keep first-seen order; every
// participant must have exactly one value per condition.
func Pivot(label string, observations []sprint.LongObservation) (*sprint.SprintDataset, error) {
	ds := &sprint.SprintDataset{Label: label}
	index := make(map[core.ParticipantID]int)

	for _, o := range observations {
		if _, ok := o.Condition.Index(); !ok {
			return nil, fmt.Errorf("%w: %q", core.ErrUnknownLabel, o.Condition)
		}
		i, ok := index[o.ParticipantID]
		if !ok {
			i = len(ds.Participants)
			index[o.ParticipantID] = i
			ds.Participants = append(ds.Participants, sprint.Participant{
				ID:    o.ParticipantID,
				Times: make(map[sprint.Condition]float64, len(sprint.Conditions)),
			})
		}
		if _, dup := ds.Participants[i].Times[o.Condition]; dup {
			return nil, core.NewInvalidInputError(string(o.ParticipantID), fmt.Sprintf("duplicate %s observation", o.Condition))
		}
		ds.Participants[i].Times[o.Condition] = o.Sprint10m
	}

	for _, p := range ds.Participants {
		if len(p.Times) != len(sprint.Conditions) {
			return nil, core.NewInvalidInputError(string(p.ID), fmt.Sprintf("has %d of %d conditions", len(p.Times), len(sprint.Conditions)))
		}
	}
	return ds, nil
}
