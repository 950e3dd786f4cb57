package report

import (
	"fmt"
	"math"

	"github.com/xuri/excelize/v2"
)

// Sheet names in workbook order.
const (
	SheetSummary      = "Summary"
	SheetDescriptives = "Descriptives"
	SheetANOVA        = "ANOVA"
	SheetNormality    = "Normality"
	SheetPostHoc      = "PostHoc"
	SheetEffectSizes  = "EffectSizes"
)

// cell keeps NaN and Inf out of numeric cells, which spreadsheet readers reject.
func cell(v float64) interface{} {
	if math.IsNaN(v) {
		return "n/a"
	}
	if math.IsInf(v, 0) {
		return num(v, 0)
	}
	return v
}

// WriteWorkbook exports every results table to an xlsx workbook.
func WriteWorkbook(r *Report, path string) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetSummary); err != nil {
		return err
	}
	for _, name := range []string{SheetDescriptives, SheetANOVA, SheetNormality, SheetPostHoc, SheetEffectSizes} {
		if _, err := f.NewSheet(name); err != nil {
			return err
		}
	}

	sheets := map[string][][]interface{}{
		SheetSummary:      summaryRows(r),
		SheetDescriptives: descriptiveRows(r),
		SheetANOVA:        anovaRows(r),
		SheetNormality:    normalityRows(r),
		SheetPostHoc:      postHocRows(r),
		SheetEffectSizes:  effectSizeRows(r),
	}
	for sheet, rows := range sheets {
		if err := writeRows(f, sheet, rows); err != nil {
			return fmt.Errorf("sheet %s: %w", sheet, err)
		}
	}

	if idx, err := f.GetSheetIndex(SheetSummary); err == nil && idx >= 0 {
		f.SetActiveSheet(idx)
	}
	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("failed to save workbook: %w", err)
	}
	return nil
}

func writeRows(f *excelize.File, sheet string, rows [][]interface{}) error {
	for i, row := range rows {
		addr, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, addr, &row); err != nil {
			return err
		}
	}
	return nil
}

func summaryRows(r *Report) [][]interface{} {
	rows := [][]interface{}{
		{"Field", "Value"},
		{"Run ID", r.RunID.String()},
		{"Generated", r.GeneratedAt.String()},
		{"Alpha", r.Alpha},
		{"Sphericity correction", r.Correction},
	}
	for _, in := range r.Inputs {
		rows = append(rows, []interface{}{in.Label + " file", in.Path}, []interface{}{in.Label + " sha256", in.Hash.String()})
	}
	if rt := r.Replication; rt != nil {
		rows = append(rows,
			[]interface{}{"rho (original)", cell(rt.Rho1)},
			[]interface{}{"rho (replication)", cell(rt.Rho2)},
			[]interface{}{"z", cell(rt.Statistic)},
			[]interface{}{"p", cell(rt.PValue)},
			[]interface{}{"alternative", string(rt.Alternative)},
			[]interface{}{"conclusion", replicationConclusion(*rt)},
		)
	}
	return rows
}

func descriptiveRows(r *Report) [][]interface{} {
	rows := [][]interface{}{{"Dataset", "Condition", "N", "Mean", "SD", "Median", "Min", "Max"}}
	for _, d := range r.Datasets {
		for _, s := range d.Descriptives {
			rows = append(rows, []interface{}{d.Label, string(s.Condition), s.Count,
				cell(s.Mean), cell(s.SD), cell(s.Median), cell(s.Min), cell(s.Max)})
		}
	}
	return rows
}

func anovaRows(r *Report) [][]interface{} {
	rows := [][]interface{}{{"Dataset", "Subjects", "df1", "df2", "F", "p", "p (uncorrected)", "pes",
		"GG epsilon", "HF epsilon", "Corrected", "Mauchly W", "Mauchly p", "SS effect", "SS subject", "SS error"}}
	for _, d := range r.Datasets {
		a := d.ANOVA
		rows = append(rows, []interface{}{d.Label, a.Subjects, cell(a.DFM), cell(a.DFE), cell(a.F), cell(a.PValue),
			cell(a.PValueUncorrected), cell(a.PES), cell(a.EpsilonGG), cell(a.EpsilonHF), a.Corrected,
			cell(a.Sphericity.W), cell(a.Sphericity.PValue), cell(a.SSEffect), cell(a.SSSubject), cell(a.SSError)})
	}
	return rows
}

func normalityRows(r *Report) [][]interface{} {
	rows := [][]interface{}{{"Dataset", "Sample", "N", "W", "p", "Normal"}}
	for _, d := range r.Datasets {
		if nt := d.ResidualNormality; nt != nil {
			rows = append(rows, []interface{}{d.Label, nt.Label, nt.N, cell(nt.W), cell(nt.PValue), nt.Normal})
		}
		for _, nt := range d.ConditionNormality {
			rows = append(rows, []interface{}{d.Label, nt.Label, nt.N, cell(nt.W), cell(nt.PValue), nt.Normal})
		}
	}
	return rows
}

func postHocRows(r *Report) [][]interface{} {
	rows := [][]interface{}{{"Term", "Estimate", "SE", "df", "t", "p", "p (Bonferroni)", "Lower", "Upper"}}
	for _, e := range r.EMMs {
		rows = append(rows, []interface{}{string(e.Condition), cell(e.Mean), cell(e.SE), cell(e.DF), "", "", "",
			cell(e.Lower), cell(e.Upper)})
	}
	for _, p := range r.Pairwise {
		rows = append(rows, []interface{}{p.Contrast(), cell(p.Estimate), cell(p.SE), cell(p.DF), cell(p.T),
			cell(p.PValue), cell(p.PAdjust), cell(p.Lower), cell(p.Upper)})
	}
	return rows
}

func effectSizeRows(r *Report) [][]interface{} {
	rows := [][]interface{}{{"Study", "Eta", "Lower", "Upper", "Alpha", "Label", "Lower clamped", "Upper clamped"}}
	for _, e := range r.EffectSizes {
		rows = append(rows, []interface{}{e.Study, cell(e.Eta), cell(e.EtaLow), cell(e.EtaHigh), e.Alpha,
			e.Label(), e.LowerClamped, e.UpperClamped})
	}
	return rows
}
