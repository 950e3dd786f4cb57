package sprint

import (
	"fmt"
	"strings"

	"sprintrep/domain/core"
)

// Condition is one level of the within-subject factor.
type Condition string

const (
	ConditionControl      Condition = "con" // no drink
	ConditionPlacebo      Condition = "pla" // flavoured placebo
	ConditionCarbohydrate Condition = "cho" // maltodextrin mouth rinse
)

// Conditions lists every condition in canonical order. Reports, matrices and
// contrasts all follow this order.
var Conditions = []Condition{ConditionControl, ConditionPlacebo, ConditionCarbohydrate}

// ParseCondition accepts exactly the canonical labels.
func ParseCondition(s string) (Condition, error) {
	c := Condition(strings.TrimSpace(s))
	if _, ok := c.Index(); !ok {
		return "", fmt.Errorf("%w: %q", core.ErrUnknownLabel, s)
	}
	return c, nil
}

// Index returns the canonical position of the condition.
func (c Condition) Index() (int, bool) {
	for i, known := range Conditions {
		if c == known {
			return i, true
		}
	}
	return -1, false
}

func (c Condition) String() string { return string(c) }

// Study labels used in effect-size tables and the forest plot.
const (
	StudyReplication = "Replication study"
	StudyOriginal    = "Original study"
)

// DatasetSpec describes how to load one dataset.
type DatasetSpec struct {
	Label       string            `json:"label"`        // "replication" or "original"
	Path        string            `json:"path"`         // CSV/TSV/XLSX file
	Renames     map[string]string `json:"renames"`      // applied after header normalization
	DropMissing bool              `json:"drop_missing"` // listwise deletion across condition columns
}

// ReplicationSpec returns the loading rules for the new dataset.
func ReplicationSpec(path string) DatasetSpec {
	return DatasetSpec{
		Label:       "replication",
		Path:        path,
		DropMissing: true,
	}
}

// OriginalSpec returns the loading rules for the published dataset, whose
// columns use long condition names.
func OriginalSpec(path string) DatasetSpec {
	return DatasetSpec{
		Label: "original",
		Path:  path,
		Renames: map[string]string{
			"control":      string(ConditionControl),
			"placebo":      string(ConditionPlacebo),
			"maltodextrin": string(ConditionCarbohydrate),
		},
	}
}

// Participant is one wide row: a sprint time per condition.
type Participant struct {
	ID    core.ParticipantID    `json:"participant_id"`
	Times map[Condition]float64 `json:"times"`
}

// SprintDataset is the wide table, one row per participant.
type SprintDataset struct {
	Label        string        `json:"label"`
	Participants []Participant `json:"participants"`
	DroppedRows  int           `json:"dropped_rows"` // rows removed by listwise deletion
}

// LongObservation is one participant x condition measurement.
type LongObservation struct {
	ParticipantID core.ParticipantID `json:"participant_id"`
	Condition     Condition          `json:"condition"`
	Sprint10m     float64            `json:"sprint_10m"` // seconds
}

// Values extracts the sprint times of one condition in observation order.
func Values(observations []LongObservation, c Condition) []float64 {
	var out []float64
	for _, o := range observations {
		if o.Condition == c {
			out = append(out, o.Sprint10m)
		}
	}
	return out
}

// AllValues returns every sprint time in observation order.
func AllValues(observations []LongObservation) []float64 {
	out := make([]float64, len(observations))
	for i, o := range observations {
		out[i] = o.Sprint10m
	}
	return out
}
