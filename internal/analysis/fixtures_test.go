package analysis

import (
	"fmt"

	"sprintrep/domain/core"
	"sprintrep/domain/sprint"
)

// wideToLong builds observations from rows of (con, pla, cho) times.
func wideToLong(rows [][3]float64) []sprint.LongObservation {
	out := make([]sprint.LongObservation, 0, len(rows)*3)
	for i, row := range rows {
		id := core.ParticipantID(fmt.Sprintf("p%02d", i+1))
		for j, c := range sprint.Conditions {
			out = append(out, sprint.LongObservation{ParticipantID: id, Condition: c, Sprint10m: row[j]})
		}
	}
	return out
}

// smallDesign has hand-checked sums of squares:
// SS_cond = 14, SS_subj = 14/3, SS_error = 4/3, SS_total = 20, F(2, 4) = 21.
var smallDesign = [][3]float64{
	{1, 2, 4},
	{2, 4, 5},
	{3, 3, 6},
}

// sprintDesign mimics the sprint study: con ~ 1.92s, pla ~ 1.90s, cho ~ 1.87s,
// with con-pla differences nearly constant and cho differences widely spread,
// so sphericity is clearly violated.
func sprintDesign() [][3]float64 {
	base := []float64{1.85, 1.95, 1.90, 1.88, 2.00, 1.93, 1.97, 1.86, 1.91, 1.94, 1.89, 1.96}
	small := []float64{0.01, -0.01, 0.00, 0.01, -0.01, 0.00, 0.01, -0.01, 0.00, 0.01, -0.01, 0.00}
	large := []float64{0.08, -0.07, 0.05, -0.06, 0.09, -0.08, 0.04, -0.05, 0.07, -0.09, 0.06, -0.03}

	rows := make([][3]float64, len(base))
	for i := range base {
		rows[i] = [3]float64{base[i], base[i] - 0.02 + small[i], base[i] - 0.05 + large[i]}
	}
	return rows
}
