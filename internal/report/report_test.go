package report

import (
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"sprintrep/domain/core"
	"sprintrep/domain/sprint"
	"sprintrep/domain/stats"
)

func sampleReport() *Report {
	anova := stats.ANOVAResult{
		Dataset: "replication", Subjects: 12, Levels: 3,
		SSEffect: 0.0147, SSSubject: 0.09, SSError: 0.02, SSTotal: 0.1247,
		DFMUncorrected: 2, DFEUncorrected: 22, DFM: 1.02, DFE: 11.24,
		F: 8.1, PValue: 0.015, PValueUncorrected: 0.002, PES: 0.42,
		EpsilonGG: 0.51, EpsilonHF: 0.52, Corrected: true,
		Sphericity: stats.SphericityTest{W: 0.04, ChiSquare: 31.6, DF: 2, PValue: 1e-7, Violated: true},
	}
	residuals := stats.NormalityTest{Label: "residuals", N: 36, W: 0.97, PValue: 0.41, Normal: true}

	return &Report{
		RunID:       core.RunID("run-123"),
		GeneratedAt: core.NewTimestamp(time.Date(2026, 10, 17, 9, 0, 0, 0, time.UTC)),
		Alpha:       0.05,
		Correction:  "auto",
		Inputs: []InputFile{
			{Label: "replication", Path: "data/replication.csv", Hash: core.NewHash([]byte("rep"))},
		},
		Datasets: []DatasetSection{{
			Label:        "replication",
			Participants: 12,
			DroppedRows:  1,
			Descriptives: []stats.Descriptive{
				{Condition: sprint.ConditionControl, Count: 12, Mean: 1.92, SD: 0.05, Median: 1.92, Min: 1.85, Max: 2.0},
			},
			ANOVA:             anova,
			ResidualNormality: &residuals,
			ConditionNormality: []stats.NormalityTest{
				{Label: "con", N: 12, W: 0.95, PValue: 0.6, Normal: true},
			},
		}},
		EMMs: []stats.EMM{{Condition: sprint.ConditionControl, Mean: 1.92, SE: 0.01, DF: 11, Lower: 1.9, Upper: 1.94}},
		Pairwise: []stats.PairwiseResult{{
			A: sprint.ConditionControl, B: sprint.ConditionPlacebo, Estimate: 0.02, SE: 0.0025, DF: 11,
			T: 8, PValue: 0.00001, PAdjust: 0.00003, Lower: 0.012, Upper: 0.028, Family: 3,
		}},
		EffectSizes: []stats.EffectSizeEstimate{
			{Study: sprint.StudyReplication, Eta: 0.28, EtaLow: 0.03, EtaHigh: 0.53, Alpha: 0.05},
			{Study: sprint.StudyOriginal, Eta: 0.47, EtaLow: 0.09, EtaHigh: 0.72, Alpha: 0.05},
		},
		Replication: &stats.ReplicationTestResult{
			Rho1: 0.47, DF1: 22, Rho2: 0.28, DF2: 22, Statistic: 0.72, SE: 0.31, PValue: 0.236,
			Alternative: stats.AlternativeGreater, Alpha: 0.05,
		},
	}
}

func TestMarkdown_Sections(t *testing.T) {
	md := Markdown(sampleReport())

	for _, want := range []string{
		"# Sprint replication report",
		"- Run: `run-123`",
		"## Inputs",
		"## Dataset: replication",
		"1 rows dropped for missing values",
		"### Descriptive statistics",
		"| con | 12 | 1.920 | 0.050 |",
		"### Repeated-measures ANOVA",
		"| condition | 1.02 | 11.24 | 8.10 | 0.015 | 0.420 | 0.510 | 0.520 | yes |",
		"Uncorrected p = 0.002.",
		"### Mauchly's test of sphericity",
		"| 0.0400 | 31.600 | 2 | < .001 | yes |",
		"| residuals | 36 | 0.9700 | 0.410 | yes |",
		"### Pairwise differences (Bonferroni, 3 comparisons)",
		"| con - pla |",
		"## Effect sizes (partial eta-squared)",
		"| Replication study | 0.280 | 0.030 | 0.530 | 0.28 [0.03, 0.53] | 95% |",
		"| Original study | 0.470 | 0.090 | 0.720 | 0.47 [0.09, 0.72] | 95% |",
		"## Replication test (Fisher z)",
		"The replication effect is not significantly smaller than the original effect",
	} {
		assert.Contains(t, md, want)
	}
}

func TestMarkdown_HandlesNonFiniteValues(t *testing.T) {
	r := sampleReport()
	r.Datasets[0].ANOVA.F = math.Inf(1)
	r.Datasets[0].ANOVA.Sphericity.PValue = math.NaN()

	md := Markdown(r)
	assert.Contains(t, md, "| inf |")
	assert.Contains(t, md, "n/a")
}

func TestReplicationConclusion(t *testing.T) {
	rt := stats.ReplicationTestResult{Alternative: stats.AlternativeGreater, Significant: true, Alpha: 0.05}
	assert.True(t, strings.HasPrefix(replicationConclusion(rt), "The original effect is significantly larger"))

	rt.Alternative = stats.AlternativeTwoSided
	rt.Significant = false
	assert.True(t, strings.HasPrefix(replicationConclusion(rt), "The two effect sizes do not differ"))
}

func TestWriteMarkdownAndHTML(t *testing.T) {
	dir := t.TempDir()
	r := sampleReport()

	mdPath := filepath.Join(dir, "report.md")
	require.NoError(t, WriteMarkdown(r, mdPath))
	content, err := os.ReadFile(mdPath)
	require.NoError(t, err)
	assert.Equal(t, Markdown(r), string(content))

	htmlPath := filepath.Join(dir, "report.html")
	require.NoError(t, WriteHTML(r, htmlPath))
	page, err := os.ReadFile(htmlPath)
	require.NoError(t, err)
	assert.Contains(t, string(page), "<title>Sprint replication report</title>")
	assert.Contains(t, string(page), "<table>")
	assert.Contains(t, string(page), "<td>con - pla</td>")
}

func TestWriteWorkbook(t *testing.T) {
	path := filepath.Join(t.TempDir(), "results.xlsx")
	require.NoError(t, WriteWorkbook(sampleReport(), path))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{SheetSummary, SheetDescriptives, SheetANOVA, SheetNormality, SheetPostHoc, SheetEffectSizes}, f.GetSheetList())

	rows, err := f.GetRows(SheetEffectSizes)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "Replication study", rows[1][0])
	assert.Equal(t, "0.28 [0.03, 0.53]", rows[1][5])
	assert.Equal(t, "0.47 [0.09, 0.72]", rows[2][5])

	rows, err = f.GetRows(SheetPostHoc)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "con - pla", rows[2][0])

	rows, err = f.GetRows(SheetSummary)
	require.NoError(t, err)
	assert.Equal(t, "run-123", rows[1][1])
}

func TestReport_DatasetLookup(t *testing.T) {
	r := sampleReport()
	d, ok := r.Dataset("replication")
	require.True(t, ok)
	assert.Equal(t, 12, d.Participants)

	_, ok = r.Dataset("original")
	assert.False(t, ok)
}
