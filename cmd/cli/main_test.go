package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sprintrep/domain/stats"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestCompareCmd_JSON(t *testing.T) {
	out, err := execute(t, "compare", "--r1", "0.62", "--df1", "22", "--r2", "0.25", "--df2", "30", "--json")
	require.NoError(t, err)

	var res stats.ReplicationTestResult
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, stats.AlternativeGreater, res.Alternative)
	assert.InDelta(t, 1.639, res.Statistic, 0.01)
	assert.InDelta(t, 0.0506, res.PValue, 0.002)
	assert.False(t, res.Significant)
}

func TestCompareCmd_RejectsUnknownAlternative(t *testing.T) {
	_, err := execute(t, "compare", "--r1", "0.5", "--df1", "20", "--r2", "0.2", "--df2", "20", "--alternative", "bigger")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown alternative")
}

func TestESCICmd(t *testing.T) {
	out, err := execute(t, "esci", "--f", "4.2", "--dfm", "2", "--dfe", "22")
	require.NoError(t, err)
	assert.Contains(t, out, "partial eta^2 = 0.28 [")
	assert.Contains(t, out, "95% CI")
}

func TestESCICmd_RequiresF(t *testing.T) {
	_, err := execute(t, "esci", "--dfe", "22")
	require.Error(t, err)
}

func TestSimulateAndAnalyze(t *testing.T) {
	dir := t.TempDir()
	repPath := filepath.Join(dir, "rep.csv")
	origPath := filepath.Join(dir, "orig.csv")

	out, err := execute(t, "simulate", repPath, "--participants", "14", "--seed", "7")
	require.NoError(t, err)
	assert.Contains(t, out, "wrote 14 participants")

	_, err = execute(t, "simulate", origPath, "--seed", "2024", "--style", "long", "--label", "original")
	require.NoError(t, err)

	outDir := filepath.Join(dir, "out")
	out, err = execute(t, "analyze",
		"--replication", repPath,
		"--original", origPath,
		"--out", outDir,
		"--no-plots", "--no-xlsx",
		"--log-level", "ERROR",
	)
	require.NoError(t, err)
	assert.Contains(t, out, "# Sprint replication report")
	assert.Contains(t, out, "z = ")

	_, err = os.Stat(filepath.Join(outDir, "report.md"))
	assert.NoError(t, err)
	_, err = os.Stat(filepath.Join(outDir, "report.html"))
	assert.NoError(t, err)
	_, err = os.Stat(filepath.Join(outDir, "results.xlsx"))
	assert.True(t, os.IsNotExist(err))
}

func TestSimulateCmd_RejectsUnknownStyle(t *testing.T) {
	_, err := execute(t, "simulate", filepath.Join(t.TempDir(), "x.csv"), "--style", "wide")
	require.Error(t, err)
}

func TestAnalyzeCmd_MissingFile(t *testing.T) {
	dir := t.TempDir()
	_, err := execute(t, "analyze",
		"--replication", filepath.Join(dir, "missing.csv"),
		"--original", filepath.Join(dir, "missing2.csv"),
		"--out", filepath.Join(dir, "out"),
		"--log-level", "ERROR",
	)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "[IO_ERROR]")
}
