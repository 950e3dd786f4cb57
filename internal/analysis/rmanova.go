package analysis

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"sprintrep/domain/core"
	"sprintrep/domain/sprint"
	"sprintrep/domain/stats"
	"sprintrep/internal"
)

// singularTolerance bounds det(M) relative to its sphericity value (tr/p)^p.
const singularTolerance = 1e-10

// RMAnovaOptions configures a repeated-measures fit.
type RMAnovaOptions struct {
	Dataset    string
	Alpha      float64
	Correction stats.CorrectionMode
	Logger     *internal.Logger
}

// DefaultRMAnovaOptions returns alpha 0.05 with automatic sphericity correction.
func DefaultRMAnovaOptions(dataset string) RMAnovaOptions {
	return RMAnovaOptions{
		Dataset:    dataset,
		Alpha:      0.05,
		Correction: stats.CorrectionAuto,
	}
}

// RMAnovaFit keeps the fitted model alongside the ANOVA table so post-hoc
// contrasts and diagnostics can reuse the subject matrix.
type RMAnovaFit struct {
	Result     stats.ANOVAResult
	Subjects   []core.ParticipantID
	Excluded   []core.ParticipantID // incomplete participants left out listwise
	Conditions []sprint.Condition

	// Data is n x k, one row per complete subject, columns in Conditions order.
	Data       *mat.Dense
	Covariance *mat.SymDense
	Residuals  []float64 // additive subject + condition model, row-major

	ResidualNormality  *stats.NormalityTest
	ConditionNormality []stats.NormalityTest
}

// RunRMAnova fits a one-way within-subjects ANOVA to one dataset's observations.
func RunRMAnova(observations []sprint.LongObservation, opts RMAnovaOptions) (*RMAnovaFit, error) {
	log := opts.Logger
	if log == nil {
		log = internal.Discard()
	}
	log = log.WithField("dataset", opts.Dataset)
	if opts.Alpha <= 0 || opts.Alpha >= 1 {
		return nil, core.NewInvalidInputError("alpha", fmt.Sprintf("%g is outside (0, 1)", opts.Alpha))
	}
	if opts.Correction == "" {
		opts.Correction = stats.CorrectionAuto
	}

	fit, err := buildSubjectMatrix(observations)
	if err != nil {
		return nil, err
	}
	for _, id := range fit.Excluded {
		log.Warn("excluding participant %s: incomplete repeated measures", id)
	}

	n, k := fit.Data.Dims()
	if k < 2 {
		return nil, core.NewInsufficientDataError("conditions", k, 2)
	}
	if n < 2 {
		return nil, core.NewInsufficientDataError("complete subjects", n, 2)
	}

	result, err := decompose(fit.Data)
	if err != nil {
		return nil, err
	}
	result.Dataset = opts.Dataset

	fit.Covariance = mat.NewSymDense(k, nil)
	stat.CovarianceMatrix(fit.Covariance, fit.Data, nil)

	contrasts := helmertContrasts(k)
	result.EpsilonGG = greenhouseGeisserEpsilon(fit.Covariance, contrasts)
	result.EpsilonHF = huynhFeldtEpsilon(result.EpsilonGG, n, k)
	result.Sphericity = mauchlyTest(fit.Covariance, contrasts, n, opts.Alpha)

	switch opts.Correction {
	case stats.CorrectionAlways:
		result.Corrected = true
	case stats.CorrectionNever:
		result.Corrected = false
	default:
		result.Corrected = result.Sphericity.Violated
	}
	if math.IsNaN(result.Sphericity.PValue) {
		log.Warn("Mauchly's test undefined (%d complete subjects, %d conditions); GG epsilon %.3f", n, k, result.EpsilonGG)
		if opts.Correction == stats.CorrectionAuto {
			result.Corrected = result.EpsilonGG < 1
		}
	}

	result.DFM, result.DFE = result.DFMUncorrected, result.DFEUncorrected
	if result.Corrected {
		result.DFM *= result.EpsilonGG
		result.DFE *= result.EpsilonGG
	}
	result.PValueUncorrected = dist.FTestPValue(result.F, result.DFMUncorrected, result.DFEUncorrected)
	result.PValue = dist.FTestPValue(result.F, result.DFM, result.DFE)
	fit.Result = result

	log.Debug("F(%.2f, %.2f) = %.3f, p = %.4f, pes = %.3f, eps(GG) = %.3f",
		result.DFM, result.DFE, result.F, result.PValue, result.PES, result.EpsilonGG)

	fit.Residuals = additiveResiduals(fit.Data)
	if nt, err := NormalityCheck("residuals", fit.Residuals, opts.Alpha); err != nil {
		log.Warn("residual normality test skipped: %v", err)
	} else {
		fit.ResidualNormality = &nt
	}
	for j, c := range fit.Conditions {
		nt, err := NormalityCheck(string(c), mat.Col(nil, j, fit.Data), opts.Alpha)
		if err != nil {
			log.Warn("normality test for %s skipped: %v", c, err)
			continue
		}
		fit.ConditionNormality = append(fit.ConditionNormality, nt)
	}

	return fit, nil
}

// buildSubjectMatrix arranges observations into an n x k complete-case matrix.
func buildSubjectMatrix(observations []sprint.LongObservation) (*RMAnovaFit, error) {
	present := make(map[sprint.Condition]bool)
	order := make([]core.ParticipantID, 0)
	rows := make(map[core.ParticipantID]map[sprint.Condition]float64)

	for _, o := range observations {
		if _, ok := o.Condition.Index(); !ok {
			return nil, fmt.Errorf("%w: %q", core.ErrUnknownLabel, o.Condition)
		}
		if math.IsNaN(o.Sprint10m) || math.IsInf(o.Sprint10m, 0) {
			return nil, core.NewInvalidInputError(string(o.ParticipantID), "non-finite sprint time")
		}
		present[o.Condition] = true
		row, ok := rows[o.ParticipantID]
		if !ok {
			row = make(map[sprint.Condition]float64, len(sprint.Conditions))
			rows[o.ParticipantID] = row
			order = append(order, o.ParticipantID)
		}
		if _, dup := row[o.Condition]; dup {
			return nil, core.NewInvalidInputError(string(o.ParticipantID), fmt.Sprintf("duplicate %s observation", o.Condition))
		}
		row[o.Condition] = o.Sprint10m
	}

	fit := &RMAnovaFit{}
	for _, c := range sprint.Conditions {
		if present[c] {
			fit.Conditions = append(fit.Conditions, c)
		}
	}

	var values []float64
	for _, id := range order {
		row := rows[id]
		if len(row) != len(fit.Conditions) {
			fit.Excluded = append(fit.Excluded, id)
			continue
		}
		fit.Subjects = append(fit.Subjects, id)
		for _, c := range fit.Conditions {
			values = append(values, row[c])
		}
	}

	if len(fit.Subjects) == 0 || len(fit.Conditions) == 0 {
		return nil, core.NewInsufficientDataError("complete subjects", len(fit.Subjects), 2)
	}
	fit.Data = mat.NewDense(len(fit.Subjects), len(fit.Conditions), values)
	return fit, nil
}

// decompose partitions total variance into condition, subject and error terms.
func decompose(data *mat.Dense) (stats.ANOVAResult, error) {
	n, k := data.Dims()
	grand := mat.Sum(data) / float64(n*k)

	rowMeans := make([]float64, n)
	for i := 0; i < n; i++ {
		rowMeans[i] = stat.Mean(mat.Row(nil, i, data), nil)
	}
	colMeans := make([]float64, k)
	for j := 0; j < k; j++ {
		colMeans[j] = stat.Mean(mat.Col(nil, j, data), nil)
	}

	var ssCond, ssSubj, ssTotal float64
	for j := 0; j < k; j++ {
		d := colMeans[j] - grand
		ssCond += float64(n) * d * d
	}
	for i := 0; i < n; i++ {
		d := rowMeans[i] - grand
		ssSubj += float64(k) * d * d
	}
	for i := 0; i < n; i++ {
		for j := 0; j < k; j++ {
			d := data.At(i, j) - grand
			ssTotal += d * d
		}
	}
	ssError := ssTotal - ssCond - ssSubj
	if ssError < 1e-12*ssTotal {
		ssError = 0
	}
	if ssCond < 1e-12*ssTotal {
		ssCond = 0
	}

	r := stats.ANOVAResult{
		Subjects:       n,
		Levels:         k,
		SSEffect:       ssCond,
		SSSubject:      ssSubj,
		SSError:        ssError,
		SSTotal:        ssTotal,
		DFMUncorrected: float64(k - 1),
		DFEUncorrected: float64((k - 1) * (n - 1)),
	}

	switch {
	case ssError == 0 && ssCond == 0:
		return r, core.NewDegeneracyError("no variance within subjects")
	case ssError == 0:
		r.F = math.Inf(1)
		r.PES = 1
	default:
		r.F = r.MSEffect() / r.MSError()
		r.PES = ssCond / (ssCond + ssError)
	}
	return r, nil
}

// helmertContrasts returns a k x (k-1) matrix of orthonormal contrasts, each
// column orthogonal to the unit vector.
func helmertContrasts(k int) *mat.Dense {
	p := k - 1
	t := mat.NewDense(k, p, nil)
	for j := 1; j <= p; j++ {
		norm := math.Sqrt(float64(j * (j + 1)))
		for i := 0; i < j; i++ {
			t.Set(i, j-1, 1/norm)
		}
		t.Set(j, j-1, -float64(j)/norm)
	}
	return t
}

// projectedCovariance returns C' S C, the covariance of the orthonormal
// condition contrasts.
func projectedCovariance(cov mat.Symmetric, contrasts *mat.Dense) *mat.Dense {
	var tmp, m mat.Dense
	tmp.Mul(contrasts.T(), cov)
	m.Mul(&tmp, contrasts)
	return &m
}

// greenhouseGeisserEpsilon is tr(M)^2 / (p * tr(M^2)), clamped to [1/p, 1].
func greenhouseGeisserEpsilon(cov mat.Symmetric, contrasts *mat.Dense) float64 {
	m := projectedCovariance(cov, contrasts)
	p, _ := m.Dims()
	lower := 1 / float64(p)

	tr := mat.Trace(m)
	var sumSq float64
	for i := 0; i < p; i++ {
		for j := 0; j < p; j++ {
			sumSq += m.At(i, j) * m.At(i, j)
		}
	}
	if sumSq == 0 {
		return 1
	}

	eps := tr * tr / (float64(p) * sumSq)
	return math.Max(lower, math.Min(1, eps))
}

// huynhFeldtEpsilon applies the Huynh-Feldt small-sample adjustment to the
// Greenhouse-Geisser estimate, capped at 1.
func huynhFeldtEpsilon(gg float64, n, k int) float64 {
	p := float64(k - 1)
	nf := float64(n)
	den := p * (nf - 1 - p*gg)
	if den <= 0 {
		return 1
	}
	hf := (nf*p*gg - 2) / den
	return math.Max(gg, math.Min(1, hf))
}

// mauchlyTest tests sphericity of the orthonormal contrast covariance. With two
// conditions sphericity holds trivially.
func mauchlyTest(cov mat.Symmetric, contrasts *mat.Dense, n int, alpha float64) stats.SphericityTest {
	m := projectedCovariance(cov, contrasts)
	p, _ := m.Dims()
	if p < 2 {
		return stats.SphericityTest{W: 1, ChiSquare: 0, DF: 0, PValue: 1}
	}

	pf := float64(p)
	tr := mat.Trace(m)
	det := mat.Det(m)
	df := pf*(pf+1)/2 - 1

	// Fewer complete subjects than contrasts leaves M singular.
	if n-1 < p || tr <= 0 || det <= singularTolerance*math.Pow(tr/pf, pf) {
		return stats.SphericityTest{W: 0, ChiSquare: math.NaN(), DF: df, PValue: math.NaN()}
	}

	w := det / math.Pow(tr/pf, pf)
	f := 1 - (2*pf*pf+pf+2)/(6*pf*float64(n-1))
	chi := -float64(n-1) * f * math.Log(w)
	if chi < 0 {
		chi = 0
	}
	pValue := dist.ChiSquarePValue(chi, df)

	return stats.SphericityTest{
		W:         w,
		ChiSquare: chi,
		DF:        df,
		PValue:    pValue,
		Violated:  pValue < alpha,
	}
}

// additiveResiduals returns y_ij - rowMean_i - colMean_j + grand, row-major.
func additiveResiduals(data *mat.Dense) []float64 {
	n, k := data.Dims()
	grand := mat.Sum(data) / float64(n*k)

	colMeans := make([]float64, k)
	for j := 0; j < k; j++ {
		colMeans[j] = stat.Mean(mat.Col(nil, j, data), nil)
	}

	out := make([]float64, 0, n*k)
	for i := 0; i < n; i++ {
		row := mat.Row(nil, i, data)
		rowMean := stat.Mean(row, nil)
		for j, y := range row {
			out = append(out, y-rowMean-colMeans[j]+grand)
		}
	}
	return out
}
