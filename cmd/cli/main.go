package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"sprintrep/app"
	"sprintrep/domain/stats"
	"sprintrep/internal"
	"sprintrep/internal/analysis"
	"sprintrep/internal/config"
	"sprintrep/internal/errors"
	"sprintrep/internal/report"
	"sprintrep/internal/testkit"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "sprintrep",
		Short:         "Replication analysis for repeated-measures sprint studies",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(
		newAnalyzeCmd(),
		newESCICmd(),
		newCompareCmd(),
		newSimulateCmd(),
	)
	return rootCmd
}

func newAnalyzeCmd() *cobra.Command {
	var replicationFile, originalFile, outDir, correction, logLevel string
	var alpha float64
	var seed int64
	var noPlots, noHTML, noXLSX, quiet bool

	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Run the full replication pipeline on two wide CSV/XLSX files",
		Long: `Load the replication and original datasets, run the repeated-measures ANOVA
on each, post-hoc contrasts and effect sizes, then test whether the original
effect is larger than the replication effect.

Flags override environment variables (REPLICATION_FILE, ORIGINAL_FILE, OUTPUT_DIR,
ALPHA, SEED, SPHERICITY_CORRECTION, LOG_LEVEL).

Example: sprintrep analyze --replication data/rep.csv --original data/orig.csv --out output`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := config.LoadDotEnv(); err != nil {
				return err
			}
			cfg, err := config.Load()
			if err != nil {
				return err
			}

			flags := cmd.Flags()
			if flags.Changed("replication") {
				cfg.Data.ReplicationFile = replicationFile
			}
			if flags.Changed("original") {
				cfg.Data.OriginalFile = originalFile
			}
			if flags.Changed("out") {
				cfg.Output.Dir = outDir
			}
			if flags.Changed("alpha") {
				cfg.Analysis.Alpha = alpha
			}
			if flags.Changed("seed") {
				cfg.Analysis.Seed = seed
			}
			if flags.Changed("correction") {
				cfg.Analysis.Correction = stats.CorrectionMode(correction)
			}
			if flags.Changed("log-level") {
				cfg.LogLevel = logLevel
			}
			cfg.Output.PlotsEnabled = cfg.Output.PlotsEnabled && !noPlots
			cfg.Output.HTMLEnabled = cfg.Output.HTMLEnabled && !noHTML
			cfg.Output.XLSXEnabled = cfg.Output.XLSXEnabled && !noXLSX

			if err := cfg.Validate(); err != nil {
				return err
			}
			return runAnalyze(cmd.Context(), cmd.OutOrStdout(), cmd.ErrOrStderr(), cfg, quiet)
		},
	}

	cmd.Flags().StringVar(&replicationFile, "replication", config.DefaultReplicationFile, "Replication dataset (CSV or XLSX)")
	cmd.Flags().StringVar(&originalFile, "original", config.DefaultOriginalFile, "Original study dataset (CSV or XLSX)")
	cmd.Flags().StringVar(&outDir, "out", config.DefaultOutputDir, "Output directory for reports and plots")
	cmd.Flags().Float64Var(&alpha, "alpha", config.DefaultAlpha, "Significance level")
	cmd.Flags().Int64Var(&seed, "seed", config.DefaultSeed, "Random seed for plot jitter")
	cmd.Flags().StringVar(&correction, "correction", string(stats.CorrectionAuto), "Sphericity correction: auto|always|never")
	cmd.Flags().StringVar(&logLevel, "log-level", "INFO", "Log level: ERROR|WARN|INFO|DEBUG|TRACE")
	cmd.Flags().BoolVar(&noPlots, "no-plots", false, "Skip PNG plots")
	cmd.Flags().BoolVar(&noHTML, "no-html", false, "Skip the HTML report")
	cmd.Flags().BoolVar(&noXLSX, "no-xlsx", false, "Skip the Excel workbook")
	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "Print only the one-line summary")

	return cmd
}

func runAnalyze(ctx context.Context, out, errOut io.Writer, cfg *config.Config, quiet bool) error {
	log := internal.NewLoggerWithOutput(internal.ParseLogLevel(cfg.LogLevel), errOut)

	rep, err := app.NewReplicationService(cfg, log).Run(ctx)
	if err != nil {
		return fmt.Errorf("[%s] %w", errors.CodeFor(err), err)
	}

	if !quiet {
		fmt.Fprint(out, report.Markdown(rep))
		fmt.Fprintln(out)
	}
	fmt.Fprintln(out, app.Summary(rep))
	return nil
}

func newESCICmd() *cobra.Command {
	var dfm, dfe, f, alpha float64
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "esci",
		Short: "Partial eta-squared with a noncentral-F confidence interval",
		Long: `Compute partial eta-squared and its 1-alpha confidence interval from an
F statistic and its degrees of freedom.

Example: sprintrep esci --f 4.2 --dfm 2 --dfe 22 --alpha 0.05`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			est, err := analysis.EffectSizeCI(dfm, dfe, f, alpha)
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), est)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "partial eta^2 = %s (%.0f%% CI)\n", est.Label(), (1-alpha)*100)
			if est.LowerClamped || est.UpperClamped {
				fmt.Fprintln(cmd.OutOrStdout(), "note: a bound could not be bracketed and was clamped")
			}
			return nil
		},
	}

	cmd.Flags().Float64Var(&dfm, "dfm", 2, "Effect degrees of freedom")
	cmd.Flags().Float64Var(&dfe, "dfe", 0, "Error degrees of freedom")
	cmd.Flags().Float64Var(&f, "f", 0, "Observed F statistic")
	cmd.Flags().Float64Var(&alpha, "alpha", config.DefaultAlpha, "Significance level")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the estimate as JSON")
	_ = cmd.MarkFlagRequired("dfe")
	_ = cmd.MarkFlagRequired("f")

	return cmd
}

func newCompareCmd() *cobra.Command {
	var r1, df1, r2, df2, alpha float64
	var alternative string
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "compare",
		Short: "Compare two independent correlations with Fisher's z",
		Long: `Test whether correlation r1 (error df df1) differs from r2 (error df df2).

Example: sprintrep compare --r1 0.62 --df1 22 --r2 0.25 --df2 30 --alternative greater`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			alt, err := stats.ParseAlternative(alternative)
			if err != nil {
				return err
			}
			res, err := analysis.CompareEffectSizes(r1, df1, r2, df2, alt, alpha)
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), res)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "z = %.4f, p = %.4f (%s), significant at %.3g: %t\n",
				res.Statistic, res.PValue, res.Alternative, res.Alpha, res.Significant)
			return nil
		},
	}

	cmd.Flags().Float64Var(&r1, "r1", 0, "First correlation")
	cmd.Flags().Float64Var(&df1, "df1", 0, "Error degrees of freedom of the first study")
	cmd.Flags().Float64Var(&r2, "r2", 0, "Second correlation")
	cmd.Flags().Float64Var(&df2, "df2", 0, "Error degrees of freedom of the second study")
	cmd.Flags().StringVar(&alternative, "alternative", string(stats.AlternativeGreater), "Alternative: two.sided|greater|less")
	cmd.Flags().Float64Var(&alpha, "alpha", config.DefaultAlpha, "Significance level")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the result as JSON")
	for _, name := range []string{"r1", "df1", "r2", "df2"} {
		_ = cmd.MarkFlagRequired(name)
	}

	return cmd
}

func newSimulateCmd() *cobra.Command {
	var participants int
	var seed int64
	var missingRate float64
	var style, label string

	cmd := &cobra.Command{
		Use:   "simulate [output.csv]",
		Short: "Write a seeded synthetic sprint dataset in wide layout",
		Long: `Generate a synthetic repeated-measures sprint dataset (con, pla, cho) for
trying the pipeline without study data.

Example: sprintrep simulate data/replication.csv --participants 12 --seed 7`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			gcfg := testkit.DefaultSprintConfig()
			gcfg.Participants = participants
			gcfg.Seed = seed
			gcfg.MissingRate = missingRate
			if label != "" {
				gcfg.Label = label
			}

			var headers testkit.HeaderStyle
			switch style {
			case string(testkit.HeaderShort), string(testkit.HeaderLong):
				headers = testkit.HeaderStyle(style)
			default:
				return fmt.Errorf("unknown header style %q (want short|long)", style)
			}

			ds, err := testkit.NewSprintDataGenerator(gcfg).Generate()
			if err != nil {
				return err
			}
			path := filepath.Clean(args[0])
			if err := testkit.WriteCSV(ds, path, headers); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %d participants to %s\n", len(ds.Participants), path)
			return nil
		},
	}

	cmd.Flags().IntVar(&participants, "participants", 12, "Number of participants")
	cmd.Flags().Int64Var(&seed, "seed", config.DefaultSeed, "Random seed")
	cmd.Flags().Float64Var(&missingRate, "missing-rate", 0, "Chance a participant loses one condition")
	cmd.Flags().StringVar(&style, "style", string(testkit.HeaderShort), "Header style: short|long")
	cmd.Flags().StringVar(&label, "label", "", "Dataset label")

	return cmd
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
