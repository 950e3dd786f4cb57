package stats

import (
	"fmt"

	"sprintrep/domain/sprint"
)

// ============================================================================
// DESCRIPTIVES & DIAGNOSTICS
// ============================================================================

// Descriptive summarizes one condition of one dataset.
type Descriptive struct {
	Condition sprint.Condition `json:"condition"`
	Count     int              `json:"count"`  // >= 2
	Mean      float64          `json:"mean"`   // seconds
	SD        float64          `json:"sd"`     // Bessel-corrected (n-1)
	Median    float64          `json:"median"` // seconds
	Min       float64          `json:"min"`
	Max       float64          `json:"max"`
}

// NormalityTest is a Shapiro-Wilk result.
type NormalityTest struct {
	Label  string  `json:"label"` // "residuals" or a condition label
	N      int     `json:"n"`
	W      float64 `json:"w"`
	PValue float64 `json:"p_value"`
	Normal bool    `json:"normal"` // p > alpha
}

// SphericityTest is Mauchly's test on the condition-difference covariance.
type SphericityTest struct {
	W         float64 `json:"w"`
	ChiSquare float64 `json:"chi_square"`
	DF        float64 `json:"df"`
	PValue    float64 `json:"p_value"`
	Violated  bool    `json:"violated"` // p < alpha
}

// ============================================================================
// ANOVA
// ============================================================================

// CorrectionMode selects when the Greenhouse-Geisser correction is applied.
type CorrectionMode string

const (
	CorrectionAuto   CorrectionMode = "auto"   // apply when Mauchly's test rejects sphericity
	CorrectionAlways CorrectionMode = "always" // always report GG-corrected dfs
	CorrectionNever  CorrectionMode = "never"  // report uncorrected dfs
)

// ParseCorrectionMode validates a configured correction mode.
func ParseCorrectionMode(s string) (CorrectionMode, error) {
	switch CorrectionMode(s) {
	case CorrectionAuto, CorrectionAlways, CorrectionNever:
		return CorrectionMode(s), nil
	}
	return "", fmt.Errorf("unknown sphericity correction %q (want auto|always|never)", s)
}

// ANOVAResult is the one-way repeated-measures ANOVA table for one dataset.
// INVARIANTS:
// - 0 <= PES <= 1
// - 1/(k-1) <= EpsilonGG <= 1
// - DFM/DFE equal the uncorrected dfs scaled by EpsilonGG when Corrected
type ANOVAResult struct {
	Dataset  string `json:"dataset"`
	Subjects int    `json:"subjects"`
	Levels   int    `json:"levels"`

	SSEffect  float64 `json:"ss_effect"`
	SSSubject float64 `json:"ss_subject"`
	SSError   float64 `json:"ss_error"`
	SSTotal   float64 `json:"ss_total"`

	DFMUncorrected float64 `json:"dfm_uncorrected"`
	DFEUncorrected float64 `json:"dfe_uncorrected"`
	DFM            float64 `json:"dfm"` // reported numerator df
	DFE            float64 `json:"dfe"` // reported denominator df

	F                 float64        `json:"f"`
	PValue            float64        `json:"p_value"` // against the reported dfs
	PValueUncorrected float64        `json:"p_value_uncorrected"`
	PES               float64        `json:"pes"`
	EpsilonGG         float64        `json:"epsilon_gg"`
	EpsilonHF         float64        `json:"epsilon_hf"`
	Corrected         bool           `json:"corrected"`
	Sphericity        SphericityTest `json:"sphericity"`
}

// MSEffect returns the effect mean square on uncorrected dfs.
func (r ANOVAResult) MSEffect() float64 {
	return r.SSEffect / r.DFMUncorrected
}

// MSError returns the error mean square on uncorrected dfs.
func (r ANOVAResult) MSError() float64 {
	return r.SSError / r.DFEUncorrected
}

// ============================================================================
// POST-HOC
// ============================================================================

// EMM is an estimated marginal mean from the multivariate model.
type EMM struct {
	Condition sprint.Condition `json:"condition"`
	Mean      float64          `json:"mean"`
	SE        float64          `json:"se"`
	DF        float64          `json:"df"`
	Lower     float64          `json:"lower"`
	Upper     float64          `json:"upper"`
}

// PairwiseResult is one Bonferroni-adjusted contrast between two conditions.
type PairwiseResult struct {
	A        sprint.Condition `json:"a"`
	B        sprint.Condition `json:"b"`
	Estimate float64          `json:"estimate"` // mean(A) - mean(B)
	SE       float64          `json:"se"`
	DF       float64          `json:"df"`
	T        float64          `json:"t"`
	PValue   float64          `json:"p_value"`    // unadjusted, two-sided
	PAdjust  float64          `json:"p_adjusted"` // Bonferroni
	Lower    float64          `json:"lower"`      // Bonferroni-adjusted CI
	Upper    float64          `json:"upper"`
	Family   int              `json:"family_size"` // number of comparisons adjusted for
}

// Contrast renders "con - pla".
func (p PairwiseResult) Contrast() string {
	return fmt.Sprintf("%s - %s", p.A, p.B)
}

// ============================================================================
// EFFECT SIZES & REPLICATION TEST
// ============================================================================

// EffectSizeEstimate is partial eta-squared with a noncentral-F confidence interval.
// INVARIANT: EtaLow <= Eta <= EtaHigh
type EffectSizeEstimate struct {
	Study   string  `json:"study"`
	Eta     float64 `json:"eta"`
	EtaLow  float64 `json:"eta_low"`
	EtaHigh float64 `json:"eta_high"`
	Alpha   float64 `json:"alpha"`

	NCPLow       float64 `json:"ncp_low"`
	NCPHigh      float64 `json:"ncp_high"`
	LowerClamped bool    `json:"lower_clamped"` // solver could not bracket; bound set to 0
	UpperClamped bool    `json:"upper_clamped"`
}

// Label renders the estimate the way the forest plot annotates it, e.g. "0.28 [0.03, 0.53]".
func (e EffectSizeEstimate) Label() string {
	return fmt.Sprintf("%.2f [%.2f, %.2f]", e.Eta, e.EtaLow, e.EtaHigh)
}

// Alternative is the direction of a hypothesis test.
type Alternative string

const (
	AlternativeTwoSided Alternative = "two.sided"
	AlternativeGreater  Alternative = "greater"
	AlternativeLess     Alternative = "less"
)

// ParseAlternative validates an alternative hypothesis label.
func ParseAlternative(s string) (Alternative, error) {
	switch Alternative(s) {
	case AlternativeTwoSided, AlternativeGreater, AlternativeLess:
		return Alternative(s), nil
	}
	return "", fmt.Errorf("unknown alternative %q (want two.sided|greater|less)", s)
}

// ReplicationTestResult compares two independent correlation-scale effect sizes.
type ReplicationTestResult struct {
	Rho1        float64     `json:"rho1"`
	DF1         float64     `json:"df1"`
	Rho2        float64     `json:"rho2"`
	DF2         float64     `json:"df2"`
	Z1          float64     `json:"z1"` // Fisher z of Rho1
	Z2          float64     `json:"z2"`
	SE          float64     `json:"se"`
	Statistic   float64     `json:"statistic"` // (Z1 - Z2) / SE
	PValue      float64     `json:"p_value"`
	Alternative Alternative `json:"alternative"`
	Alpha       float64     `json:"alpha"`
	Significant bool        `json:"significant"`
}
