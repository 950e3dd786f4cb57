package report

import (
	"sprintrep/domain/core"
	"sprintrep/domain/stats"
)

// InputFile fingerprints one input so a report can be tied to its data.
type InputFile struct {
	Label string    `json:"label"`
	Path  string    `json:"path"`
	Hash  core.Hash `json:"sha256"`
}

// DatasetSection holds the per-dataset results.
type DatasetSection struct {
	Label        string               `json:"label"`
	Participants int                  `json:"participants"`
	DroppedRows  int                  `json:"dropped_rows"`
	Excluded     []core.ParticipantID `json:"excluded,omitempty"`
	Descriptives []stats.Descriptive  `json:"descriptives"`
	ANOVA        stats.ANOVAResult    `json:"anova"`

	ResidualNormality  *stats.NormalityTest  `json:"residual_normality,omitempty"`
	ConditionNormality []stats.NormalityTest `json:"condition_normality"`
}

// Report is the immutable outcome of one replication run.
type Report struct {
	RunID       core.RunID     `json:"run_id"`
	GeneratedAt core.Timestamp `json:"generated_at"`
	Alpha       float64        `json:"alpha"`
	Correction  string         `json:"correction"`
	Inputs      []InputFile    `json:"inputs"`

	Datasets    []DatasetSection             `json:"datasets"`
	EMMs        []stats.EMM                  `json:"emms"`
	Pairwise    []stats.PairwiseResult       `json:"pairwise"`
	EffectSizes []stats.EffectSizeEstimate   `json:"effect_sizes"`
	Replication *stats.ReplicationTestResult `json:"replication_test,omitempty"`

	Artifacts []string `json:"artifacts,omitempty"` // files written alongside the report
}

// Dataset returns the section with the given label.
func (r *Report) Dataset(label string) (DatasetSection, bool) {
	for _, d := range r.Datasets {
		if d.Label == label {
			return d, true
		}
	}
	return DatasetSection{}, false
}
