package report

import (
	"fmt"
	"math"
	"os"
	"strings"

	"sprintrep/domain/stats"
)

// table accumulates a GitHub-flavoured markdown table.
type table struct {
	header []string
	rows   [][]string
}

func newTable(header ...string) *table {
	return &table{header: header}
}

func (t *table) add(cells ...string) {
	t.rows = append(t.rows, cells)
}

func (t *table) write(b *strings.Builder) {
	b.WriteString("| " + strings.Join(t.header, " | ") + " |\n")
	seps := make([]string, len(t.header))
	for i := range seps {
		seps[i] = "---"
	}
	b.WriteString("|" + strings.Join(seps, "|") + "|\n")
	for _, r := range t.rows {
		b.WriteString("| " + strings.Join(r, " | ") + " |\n")
	}
	b.WriteString("\n")
}

func num(v float64, decimals int) string {
	switch {
	case math.IsNaN(v):
		return "n/a"
	case math.IsInf(v, 1):
		return "inf"
	case math.IsInf(v, -1):
		return "-inf"
	}
	return fmt.Sprintf("%.*f", decimals, v)
}

func pval(p float64) string {
	switch {
	case math.IsNaN(p):
		return "n/a"
	case p < 0.001:
		return "< .001"
	}
	return fmt.Sprintf("%.3f", p)
}

func yesNo(v bool) string {
	if v {
		return "yes"
	}
	return "no"
}

// Markdown renders the full report.
func Markdown(r *Report) string {
	var b strings.Builder

	b.WriteString("# Sprint replication report\n\n")
	fmt.Fprintf(&b, "- Run: `%s`\n", r.RunID)
	fmt.Fprintf(&b, "- Generated: %s\n", r.GeneratedAt)
	fmt.Fprintf(&b, "- Alpha: %s\n", num(r.Alpha, 3))
	if r.Correction != "" {
		fmt.Fprintf(&b, "- Sphericity correction: %s\n", r.Correction)
	}
	b.WriteString("\n")

	if len(r.Inputs) > 0 {
		b.WriteString("## Inputs\n\n")
		t := newTable("Dataset", "File", "SHA-256")
		for _, in := range r.Inputs {
			t.add(in.Label, "`"+in.Path+"`", "`"+in.Hash.Short()+"`")
		}
		t.write(&b)
	}

	for _, d := range r.Datasets {
		writeDataset(&b, d)
	}

	if len(r.EMMs) > 0 || len(r.Pairwise) > 0 {
		writePostHoc(&b, r)
	}
	if len(r.EffectSizes) > 0 {
		writeEffectSizes(&b, r.EffectSizes)
	}
	if r.Replication != nil {
		writeReplication(&b, *r.Replication)
	}
	if len(r.Artifacts) > 0 {
		b.WriteString("## Artifacts\n\n")
		for _, a := range r.Artifacts {
			fmt.Fprintf(&b, "- `%s`\n", a)
		}
		b.WriteString("\n")
	}

	return b.String()
}

func writeDataset(b *strings.Builder, d DatasetSection) {
	fmt.Fprintf(b, "## Dataset: %s\n\n", d.Label)
	fmt.Fprintf(b, "%d participants analysed", d.Participants)
	if d.DroppedRows > 0 {
		fmt.Fprintf(b, ", %d rows dropped for missing values", d.DroppedRows)
	}
	if len(d.Excluded) > 0 {
		ids := make([]string, len(d.Excluded))
		for i, id := range d.Excluded {
			ids[i] = string(id)
		}
		fmt.Fprintf(b, ", excluded as incomplete: %s", strings.Join(ids, ", "))
	}
	b.WriteString(".\n\n")

	b.WriteString("### Descriptive statistics\n\n")
	t := newTable("Condition", "N", "Mean (s)", "SD", "Median", "Min", "Max")
	for _, s := range d.Descriptives {
		t.add(string(s.Condition), fmt.Sprint(s.Count), num(s.Mean, 3), num(s.SD, 3),
			num(s.Median, 3), num(s.Min, 3), num(s.Max, 3))
	}
	t.write(b)

	a := d.ANOVA
	b.WriteString("### Repeated-measures ANOVA\n\n")
	t = newTable("Effect", "df1", "df2", "F", "p", "pes", "GG eps", "HF eps", "Corrected")
	t.add("condition", num(a.DFM, 2), num(a.DFE, 2), num(a.F, 2), pval(a.PValue), num(a.PES, 3),
		num(a.EpsilonGG, 3), num(a.EpsilonHF, 3), yesNo(a.Corrected))
	t.write(b)

	t = newTable("Source", "SS", "df", "MS")
	t.add("condition", num(a.SSEffect, 5), num(a.DFMUncorrected, 0), num(a.MSEffect(), 5))
	t.add("subject", num(a.SSSubject, 5), fmt.Sprint(a.Subjects-1), "")
	t.add("error", num(a.SSError, 5), num(a.DFEUncorrected, 0), num(a.MSError(), 5))
	t.add("total", num(a.SSTotal, 5), fmt.Sprint(a.Subjects*a.Levels-1), "")
	t.write(b)
	if a.Corrected {
		fmt.Fprintf(b, "Uncorrected p = %s.\n\n", pval(a.PValueUncorrected))
	}

	s := a.Sphericity
	b.WriteString("### Mauchly's test of sphericity\n\n")
	t = newTable("W", "Chi-square", "df", "p", "Violated")
	t.add(num(s.W, 4), num(s.ChiSquare, 3), num(s.DF, 0), pval(s.PValue), yesNo(s.Violated))
	t.write(b)

	b.WriteString("### Shapiro-Wilk normality tests\n\n")
	t = newTable("Sample", "N", "W", "p", "Normal")
	if d.ResidualNormality != nil {
		addNormality(t, *d.ResidualNormality)
	}
	for _, nt := range d.ConditionNormality {
		addNormality(t, nt)
	}
	t.write(b)
}

func addNormality(t *table, nt stats.NormalityTest) {
	t.add(nt.Label, fmt.Sprint(nt.N), num(nt.W, 4), pval(nt.PValue), yesNo(nt.Normal))
}

func writePostHoc(b *strings.Builder, r *Report) {
	b.WriteString("## Post-hoc contrasts (multivariate model)\n\n")

	if len(r.EMMs) > 0 {
		b.WriteString("### Estimated marginal means\n\n")
		t := newTable("Condition", "EMM", "SE", "df", "Lower", "Upper")
		for _, e := range r.EMMs {
			t.add(string(e.Condition), num(e.Mean, 3), num(e.SE, 4), num(e.DF, 0), num(e.Lower, 3), num(e.Upper, 3))
		}
		t.write(b)
	}

	if len(r.Pairwise) > 0 {
		fmt.Fprintf(b, "### Pairwise differences (Bonferroni, %d comparisons)\n\n", r.Pairwise[0].Family)
		t := newTable("Contrast", "Estimate", "SE", "df", "t", "p", "p (adj)", "Lower", "Upper")
		for _, p := range r.Pairwise {
			t.add(p.Contrast(), num(p.Estimate, 4), num(p.SE, 4), num(p.DF, 0), num(p.T, 3),
				pval(p.PValue), pval(p.PAdjust), num(p.Lower, 4), num(p.Upper, 4))
		}
		t.write(b)
	}
}

func writeEffectSizes(b *strings.Builder, estimates []stats.EffectSizeEstimate) {
	b.WriteString("## Effect sizes (partial eta-squared)\n\n")
	t := newTable("Study", "Eta", "Lower", "Upper", "Label", "Confidence", "Note")
	for _, e := range estimates {
		var notes []string
		if e.LowerClamped {
			notes = append(notes, "lower bound clamped to 0")
		}
		if e.UpperClamped {
			notes = append(notes, "upper bound clamped")
		}
		t.add(e.Study, num(e.Eta, 3), num(e.EtaLow, 3), num(e.EtaHigh, 3), e.Label(),
			fmt.Sprintf("%.0f%%", 100*(1-e.Alpha)), strings.Join(notes, "; "))
	}
	t.write(b)
}

func writeReplication(b *strings.Builder, rt stats.ReplicationTestResult) {
	b.WriteString("## Replication test (Fisher z)\n\n")
	t := newTable("rho (original)", "df", "rho (replication)", "df", "z", "SE", "p", "Alternative")
	t.add(num(rt.Rho1, 3), num(rt.DF1, 2), num(rt.Rho2, 3), num(rt.DF2, 2),
		num(rt.Statistic, 3), num(rt.SE, 4), pval(rt.PValue), string(rt.Alternative))
	t.write(b)

	b.WriteString(replicationConclusion(rt) + "\n\n")
}

// replicationConclusion reads rho1 as the original study and rho2 as the replication.
func replicationConclusion(rt stats.ReplicationTestResult) string {
	cmp := ">="
	if rt.Significant {
		cmp = "<"
	}
	suffix := fmt.Sprintf(" (p %s alpha = %s).", cmp, num(rt.Alpha, 3))

	switch rt.Alternative {
	case stats.AlternativeGreater:
		if rt.Significant {
			return "The original effect is significantly larger than the replication effect" + suffix
		}
		return "The replication effect is not significantly smaller than the original effect" + suffix
	case stats.AlternativeLess:
		if rt.Significant {
			return "The original effect is significantly smaller than the replication effect" + suffix
		}
		return "The replication effect is not significantly larger than the original effect" + suffix
	default:
		if rt.Significant {
			return "The two effect sizes differ significantly" + suffix
		}
		return "The two effect sizes do not differ significantly" + suffix
	}
}

// WriteMarkdown renders the report and writes it to path.
func WriteMarkdown(r *Report, path string) error {
	if err := os.WriteFile(path, []byte(Markdown(r)), 0o644); err != nil {
		return fmt.Errorf("failed to write markdown report: %w", err)
	}
	return nil
}
