package analysis

import (
	"sprintrep/domain/core"
	"sprintrep/domain/sprint"
	"sprintrep/domain/stats"

	mstats "github.com/montanaflynn/stats"
)

// Describe computes count, mean and sample standard deviation of sprint time
// for every condition present in the observations.
func Describe(observations []sprint.LongObservation) (map[sprint.Condition]stats.Descriptive, error) {
	groups := make(map[sprint.Condition][]float64)
	for _, o := range observations {
		groups[o.Condition] = append(groups[o.Condition], o.Sprint10m)
	}

	out := make(map[sprint.Condition]stats.Descriptive, len(groups))
	for c, values := range groups {
		d, err := describeGroup(c, values)
		if err != nil {
			return nil, err
		}
		out[c] = d
	}
	return out, nil
}

// OrderedDescriptives returns descriptives in canonical condition order,
// skipping conditions that are absent.
func OrderedDescriptives(byCondition map[sprint.Condition]stats.Descriptive) []stats.Descriptive {
	out := make([]stats.Descriptive, 0, len(byCondition))
	for _, c := range sprint.Conditions {
		if d, ok := byCondition[c]; ok {
			out = append(out, d)
		}
	}
	return out
}

func describeGroup(c sprint.Condition, values []float64) (stats.Descriptive, error) {
	if len(values) < 2 {
		return stats.Descriptive{}, core.NewInsufficientDataError("condition "+string(c), len(values), 2)
	}

	data := mstats.Float64Data(values)
	mean, err := data.Mean()
	if err != nil {
		return stats.Descriptive{}, err
	}
	sd, err := mstats.StandardDeviationSample(data)
	if err != nil {
		return stats.Descriptive{}, err
	}
	median, err := data.Median()
	if err != nil {
		return stats.Descriptive{}, err
	}
	min, err := data.Min()
	if err != nil {
		return stats.Descriptive{}, err
	}
	max, err := data.Max()
	if err != nil {
		return stats.Descriptive{}, err
	}

	return stats.Descriptive{
		Condition: c,
		Count:     len(values),
		Mean:      mean,
		SD:        sd,
		Median:    median,
		Min:       min,
		Max:       max,
	}, nil
}
