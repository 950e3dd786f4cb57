package app

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"

	"sprintrep/domain/core"
	"sprintrep/domain/sprint"
	"sprintrep/domain/stats"
	"sprintrep/internal"
	"sprintrep/internal/analysis"
	"sprintrep/internal/config"
	"sprintrep/internal/dataset"
	"sprintrep/internal/errors"
	"sprintrep/internal/plots"
	"sprintrep/internal/report"
)

// Pipeline stage names, used to tag errors with where they happened.
const (
	StageIngest      = "ingest"
	StageDescribe    = "describe"
	StageANOVA       = "rm_anova"
	StagePostHoc     = "posthoc"
	StageEffectSize  = "effect_size"
	StageReplication = "replication_test"
	StagePlots       = "plots"
	StageReport      = "report"
)

// Output file names inside the output directory.
const (
	MarkdownFile = "report.md"
	HTMLFile     = "report.html"
	WorkbookFile = "results.xlsx"
)

// Analysis is a finished in-memory run: the report plus the model inputs the
// plots are drawn from.
type Analysis struct {
	Report       *report.Report
	Observations map[string][]sprint.LongObservation
	Fits         map[string]*analysis.RMAnovaFit
}

// ReplicationService runs the replication pipeline:
// ingest -> describe/ANOVA -> post-hoc/effect sizes -> replication test -> outputs.
type ReplicationService struct {
	cfg *config.Config
	log *internal.Logger
	rng *rand.Rand
	now func() core.Timestamp
}

// NewReplicationService creates a service. The random source is seeded once
// from the configuration.
func NewReplicationService(cfg *config.Config, log *internal.Logger) *ReplicationService {
	if log == nil {
		log = internal.Discard()
	}
	return &ReplicationService{
		cfg: cfg,
		log: log,
		rng: rand.New(rand.NewSource(cfg.Analysis.Seed)),
		now: core.Now,
	}
}

// Run analyses both datasets and writes every enabled output.
func (s *ReplicationService) Run(ctx context.Context) (*report.Report, error) {
	a, err := s.Analyze(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.WriteOutputs(ctx, a); err != nil {
		return a.Report, err
	}
	return a.Report, nil
}

// Analyze computes all statistics without touching the output directory.
func (s *ReplicationService) Analyze(ctx context.Context) (*Analysis, error) {
	runID := core.NewRunID()
	log := s.log.WithField("run_id", runID.String())
	alpha := s.cfg.Analysis.Alpha

	rep := &report.Report{
		RunID:       runID,
		GeneratedAt: s.now(),
		Alpha:       alpha,
		Correction:  string(s.cfg.Analysis.Correction),
	}
	a := &Analysis{
		Report:       rep,
		Observations: make(map[string][]sprint.LongObservation, 2),
		Fits:         make(map[string]*analysis.RMAnovaFit, 2),
	}

	specs := []sprint.DatasetSpec{
		sprint.ReplicationSpec(s.cfg.Data.ReplicationFile),
		sprint.OriginalSpec(s.cfg.Data.OriginalFile),
	}
	for _, spec := range specs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		section, err := s.analyzeDataset(spec, a, log)
		if err != nil {
			return nil, err
		}
		rep.Datasets = append(rep.Datasets, section)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	replication, original := a.Fits[specs[0].Label], a.Fits[specs[1].Label]

	emms, pairs, err := analysis.PairwiseContrasts(replication, alpha)
	if err != nil {
		return nil, errors.WrapStage(err, StagePostHoc, specs[0].Label)
	}
	rep.EMMs, rep.Pairwise = emms, pairs

	for _, item := range []struct {
		study string
		label string
		fit   *analysis.RMAnovaFit
	}{
		{sprint.StudyReplication, specs[0].Label, replication},
		{sprint.StudyOriginal, specs[1].Label, original},
	} {
		est, err := analysis.EffectSizeFromANOVA(item.study, item.fit.Result, alpha)
		if err != nil {
			return nil, errors.WrapStage(err, StageEffectSize, item.label)
		}
		if est.LowerClamped {
			log.Warn("%s: no noncentrality reaches the lower bound; clamped to 0", item.study)
		}
		if est.UpperClamped {
			log.Warn("%s: upper bound could not be bracketed; clamped", item.study)
		}
		log.Info("%s partial eta-squared %s", item.study, est.Label())
		rep.EffectSizes = append(rep.EffectSizes, est)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	test, err := s.compare(original.Result, replication.Result)
	if err != nil {
		return nil, errors.WrapStage(err, StageReplication, "")
	}
	rep.Replication = &test
	log.Info("Replication test: z = %.3f, p = %.4f (%s)", test.Statistic, test.PValue, test.Alternative)

	return a, nil
}

func (s *ReplicationService) analyzeDataset(spec sprint.DatasetSpec, a *Analysis, log *internal.Logger) (report.DatasetSection, error) {
	log = log.WithField("dataset", spec.Label)

	hash, err := core.HashFile(spec.Path)
	if err != nil {
		return report.DatasetSection{}, errors.WrapStage(errors.IOError("cannot read input", err), StageIngest, spec.Label)
	}
	a.Report.Inputs = append(a.Report.Inputs, report.InputFile{Label: spec.Label, Path: spec.Path, Hash: hash})

	ds, observations, err := dataset.LoadAndReshape(spec, log)
	if err != nil {
		return report.DatasetSection{}, errors.WrapStage(err, StageIngest, spec.Label)
	}
	a.Observations[spec.Label] = observations

	descriptives, err := analysis.Describe(observations)
	if err != nil {
		return report.DatasetSection{}, errors.WrapStage(err, StageDescribe, spec.Label)
	}

	fit, err := analysis.RunRMAnova(observations, analysis.RMAnovaOptions{
		Dataset:    spec.Label,
		Alpha:      s.cfg.Analysis.Alpha,
		Correction: s.cfg.Analysis.Correction,
		Logger:     log,
	})
	if err != nil {
		return report.DatasetSection{}, errors.WrapStage(err, StageANOVA, spec.Label)
	}
	a.Fits[spec.Label] = fit

	r := fit.Result
	log.Info("F(%.2f, %.2f) = %.3f, p = %.4f, pes = %.3f", r.DFM, r.DFE, r.F, r.PValue, r.PES)
	if r.Sphericity.Violated {
		log.Info("Sphericity violated (Mauchly p = %.4f), GG epsilon %.3f", r.Sphericity.PValue, r.EpsilonGG)
	}

	return report.DatasetSection{
		Label:              spec.Label,
		Participants:       len(fit.Subjects),
		DroppedRows:        ds.DroppedRows,
		Excluded:           fit.Excluded,
		Descriptives:       analysis.OrderedDescriptives(descriptives),
		ANOVA:              r,
		ResidualNormality:  fit.ResidualNormality,
		ConditionNormality: fit.ConditionNormality,
	}, nil
}

// compare tests whether the original effect is larger than the replication's
// on the correlation scale, with the reported error dfs as sample sizes.
func (s *ReplicationService) compare(original, replication stats.ANOVAResult) (stats.ReplicationTestResult, error) {
	rhoOriginal, err := analysis.PESToRho(original.PES)
	if err != nil {
		return stats.ReplicationTestResult{}, err
	}
	rhoReplication, err := analysis.PESToRho(replication.PES)
	if err != nil {
		return stats.ReplicationTestResult{}, err
	}
	return analysis.CompareEffectSizes(rhoOriginal, original.DFE, rhoReplication, replication.DFE,
		stats.AlternativeGreater, s.cfg.Analysis.Alpha)
}

// WriteOutputs writes plots and reports into the configured output directory
// and records them as artifacts on the report.
func (s *ReplicationService) WriteOutputs(ctx context.Context, a *Analysis) error {
	dir := s.cfg.Output.Dir
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.WrapStage(errors.IOError("cannot create output directory", err), StageReport, "")
	}
	rep := a.Report

	if s.cfg.Output.PlotsEnabled {
		if err := ctx.Err(); err != nil {
			return err
		}
		label := sprint.ReplicationSpec("").Label
		var residuals []float64
		if fit := a.Fits[label]; fit != nil {
			residuals = fit.Residuals
		}
		renderer := plots.NewRenderer(dir, s.rng).WithLogger(s.log)
		paths, err := renderer.RenderAll(a.Observations[label], residuals, rep.EffectSizes)
		if err != nil {
			return errors.WrapStage(err, StagePlots, label)
		}
		rep.Artifacts = append(rep.Artifacts, paths...)
	}

	if err := ctx.Err(); err != nil {
		return err
	}
	outputs := []struct {
		enabled bool
		name    string
		write   func(*report.Report, string) error
	}{
		{s.cfg.Output.HTMLEnabled, HTMLFile, report.WriteHTML},
		{s.cfg.Output.XLSXEnabled, WorkbookFile, report.WriteWorkbook},
	}
	for _, o := range outputs {
		if !o.enabled {
			continue
		}
		rep.Artifacts = append(rep.Artifacts, filepath.Join(dir, o.name))
	}
	mdPath := filepath.Join(dir, MarkdownFile)
	rep.Artifacts = append(rep.Artifacts, mdPath)

	for _, o := range outputs {
		if !o.enabled {
			continue
		}
		if err := o.write(rep, filepath.Join(dir, o.name)); err != nil {
			return errors.WrapStage(err, StageReport, o.name)
		}
	}
	if err := report.WriteMarkdown(rep, mdPath); err != nil {
		return errors.WrapStage(err, StageReport, MarkdownFile)
	}

	s.log.Info("Wrote %d artifacts to %s", len(rep.Artifacts), dir)
	return nil
}

// Summary is the one-line outcome printed after a run.
func Summary(r *report.Report) string {
	if r.Replication == nil {
		return fmt.Sprintf("run %s: no replication test", r.RunID)
	}
	return fmt.Sprintf("run %s: z = %.3f, p = %.4f, significant = %t",
		r.RunID, r.Replication.Statistic, r.Replication.PValue, r.Replication.Significant)
}
