package testkit

import (
	"encoding/csv"
	"fmt"
	"math"
	"math/rand"
	"os"
	"path/filepath"
	"strconv"

	"sprintrep/domain/core"
	"sprintrep/domain/sprint"
)

// HeaderStyle selects the column names written by WriteCSV.
type HeaderStyle string

const (
	HeaderShort HeaderStyle = "short" // participant, con, pla, cho
	HeaderLong  HeaderStyle = "long"  // participant, control, placebo, maltodextrin
)

var longHeaders = map[sprint.Condition]string{
	sprint.ConditionControl:      "control",
	sprint.ConditionPlacebo:      "placebo",
	sprint.ConditionCarbohydrate: "maltodextrin",
}

// SprintGeneratorConfig configures the synthetic repeated-measures generator
type SprintGeneratorConfig struct {
	Label        string                       `json:"label"`
	Participants int                          `json:"participants"`
	Means        map[sprint.Condition]float64 `json:"means"`        // seconds
	SubjectSD    float64                      `json:"subject_sd"`   // between-participant spread
	NoiseSD      map[sprint.Condition]float64 `json:"noise_sd"`     // within-participant noise per condition
	MissingRate  float64                      `json:"missing_rate"` // chance a participant loses one condition
	Seed         int64                        `json:"seed"`
}

// DefaultSprintConfig mirrors the sprint study: con 1.92s, pla 1.90s, cho 1.87s.
// Unequal noise per condition produces non-spherical covariance.
func DefaultSprintConfig() SprintGeneratorConfig {
	return SprintGeneratorConfig{
		Label:        "replication",
		Participants: 12,
		Means: map[sprint.Condition]float64{
			sprint.ConditionControl:      1.92,
			sprint.ConditionPlacebo:      1.90,
			sprint.ConditionCarbohydrate: 1.87,
		},
		SubjectSD: 0.08,
		NoiseSD: map[sprint.Condition]float64{
			sprint.ConditionControl:      0.02,
			sprint.ConditionPlacebo:      0.02,
			sprint.ConditionCarbohydrate: 0.05,
		},
		Seed: 42,
	}
}

// SprintDataGenerator produces seeded synthetic sprint datasets
type SprintDataGenerator struct {
	config SprintGeneratorConfig
	rng    *rand.Rand
}

// NewSprintDataGenerator creates a generator with its own seeded source.
func NewSprintDataGenerator(config SprintGeneratorConfig) *SprintDataGenerator {
	return NewSprintDataGeneratorWithRand(config, rand.New(rand.NewSource(config.Seed)))
}

// NewSprintDataGeneratorWithRand shares an existing random source.
func NewSprintDataGeneratorWithRand(config SprintGeneratorConfig, rng *rand.Rand) *SprintDataGenerator {
	return &SprintDataGenerator{config: config, rng: rng}
}

// Generate builds the wide table. Participants hit by MissingRate lose one
// randomly chosen condition.
func (g *SprintDataGenerator) Generate() (*sprint.SprintDataset, error) {
	if g.config.Participants < 1 {
		return nil, core.NewInvalidInputError("participants", "must be at least 1")
	}
	if g.config.MissingRate < 0 || g.config.MissingRate >= 1 {
		return nil, core.NewInvalidInputError("missing_rate", "must be in [0, 1)")
	}
	for _, c := range sprint.Conditions {
		if g.config.Means[c] <= 0 {
			return nil, core.NewInvalidInputError("means", fmt.Sprintf("%s mean must be positive", c))
		}
	}

	ds := &sprint.SprintDataset{Label: g.config.Label}
	for i := 0; i < g.config.Participants; i++ {
		offset := g.rng.NormFloat64() * g.config.SubjectSD
		p := sprint.Participant{
			ID:    core.ParticipantID(fmt.Sprintf("P%02d", i+1)),
			Times: make(map[sprint.Condition]float64, len(sprint.Conditions)),
		}
		for _, c := range sprint.Conditions {
			v := g.config.Means[c] + offset + g.rng.NormFloat64()*g.config.NoiseSD[c]
			p.Times[c] = math.Max(v, 0.5)
		}
		if g.config.MissingRate > 0 && g.rng.Float64() < g.config.MissingRate {
			delete(p.Times, sprint.Conditions[g.rng.Intn(len(sprint.Conditions))])
		}
		ds.Participants = append(ds.Participants, p)
	}
	return ds, nil
}

// WriteCSV writes the dataset as a wide CSV. Missing cells are written as NA.
func WriteCSV(ds *sprint.SprintDataset, path string, style HeaderStyle) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	header := []string{"participant"}
	for _, c := range sprint.Conditions {
		if style == HeaderLong {
			header = append(header, longHeaders[c])
		} else {
			header = append(header, string(c))
		}
	}
	if err := w.Write(header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	for _, p := range ds.Participants {
		row := []string{string(p.ID)}
		for _, c := range sprint.Conditions {
			v, ok := p.Times[c]
			if !ok {
				row = append(row, "NA")
				continue
			}
			row = append(row, strconv.FormatFloat(v, 'f', 3, 64))
		}
		if err := w.Write(row); err != nil {
			return fmt.Errorf("failed to write row: %w", err)
		}
	}
	w.Flush()
	return w.Error()
}
