package config

import (
	"os"
	"path/filepath"
	"testing"

	"sprintrep/domain/stats"
	"sprintrep/internal/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	for _, key := range []string{"REPLICATION_FILE", "ORIGINAL_FILE", "OUTPUT_DIR", "ALPHA", "SEED", "SPHERICITY_CORRECTION", "PLOTS_ENABLED"} {
		t.Setenv(key, "")
	}

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, DefaultReplicationFile, cfg.Data.ReplicationFile)
	assert.Equal(t, DefaultOriginalFile, cfg.Data.OriginalFile)
	assert.Equal(t, DefaultAlpha, cfg.Analysis.Alpha)
	assert.Equal(t, int64(DefaultSeed), cfg.Analysis.Seed)
	assert.Equal(t, stats.CorrectionAuto, cfg.Analysis.Correction)
	assert.True(t, cfg.Output.PlotsEnabled)
}

func TestLoad_EnvVarOverrides(t *testing.T) {
	tests := []struct {
		name     string
		envVars  map[string]string
		validate func(t *testing.T, cfg *Config)
	}{
		{
			name:    "files",
			envVars: map[string]string{"REPLICATION_FILE": "rep.xlsx", "ORIGINAL_FILE": "orig.csv"},
			validate: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "rep.xlsx", cfg.Data.ReplicationFile)
				assert.Equal(t, "orig.csv", cfg.Data.OriginalFile)
			},
		},
		{
			name:    "alpha and seed",
			envVars: map[string]string{"ALPHA": "0.1", "SEED": "7"},
			validate: func(t *testing.T, cfg *Config) {
				assert.Equal(t, 0.1, cfg.Analysis.Alpha)
				assert.Equal(t, int64(7), cfg.Analysis.Seed)
			},
		},
		{
			name:    "correction and plots",
			envVars: map[string]string{"SPHERICITY_CORRECTION": "always", "PLOTS_ENABLED": "false"},
			validate: func(t *testing.T, cfg *Config) {
				assert.Equal(t, stats.CorrectionAlways, cfg.Analysis.Correction)
				assert.False(t, cfg.Output.PlotsEnabled)
			},
		},
		{
			name:    "unparseable numbers fall back to defaults",
			envVars: map[string]string{"ALPHA": "five percent", "SEED": "x"},
			validate: func(t *testing.T, cfg *Config) {
				assert.Equal(t, DefaultAlpha, cfg.Analysis.Alpha)
				assert.Equal(t, int64(DefaultSeed), cfg.Analysis.Seed)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.envVars {
				t.Setenv(k, v)
			}
			cfg, err := Load()
			require.NoError(t, err)
			tt.validate(t, cfg)
		})
	}
}

func TestLoad_Invalid(t *testing.T) {
	t.Run("alpha out of range", func(t *testing.T) {
		t.Setenv("ALPHA", "1.5")
		_, err := Load()
		require.Error(t, err)
		assert.Equal(t, errors.CodeConfigInvalid, errors.GetCode(err))
	})

	t.Run("unknown correction", func(t *testing.T) {
		t.Setenv("SPHERICITY_CORRECTION", "sometimes")
		_, err := Load()
		require.Error(t, err)
		assert.Equal(t, errors.CodeConfigInvalid, errors.GetCode(err))
	})
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(path, []byte("SPRINTREP_TEST_KEY=from-dotenv\n"), 0o644))
	t.Setenv("SPRINTREP_TEST_KEY", "")
	os.Unsetenv("SPRINTREP_TEST_KEY")

	require.NoError(t, LoadDotEnv(path))
	assert.Equal(t, "from-dotenv", os.Getenv("SPRINTREP_TEST_KEY"))

	assert.NoError(t, LoadDotEnv(filepath.Join(dir, "missing.env")))
}
