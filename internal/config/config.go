package config

import (
	"os"
	"strconv"
	"strings"

	"sprintrep/domain/stats"
	"sprintrep/internal/errors"

	"github.com/joho/godotenv"
)

// Config represents the complete application configuration
type Config struct {
	Data     DataConfig
	Analysis AnalysisConfig
	Output   OutputConfig
	LogLevel string
}

// DataConfig holds input file locations
type DataConfig struct {
	ReplicationFile string `validate:"required"`
	OriginalFile    string `validate:"required"`
}

// AnalysisConfig holds statistical settings
type AnalysisConfig struct {
	Alpha      float64
	Seed       int64
	Correction stats.CorrectionMode
}

// OutputConfig holds report and plot settings
type OutputConfig struct {
	Dir          string
	PlotsEnabled bool
	HTMLEnabled  bool
	XLSXEnabled  bool
}

// Defaults used when neither the environment nor flags set a value.
const (
	DefaultReplicationFile = "data/replication.csv"
	DefaultOriginalFile    = "data/original.csv"
	DefaultOutputDir       = "output"
	DefaultAlpha           = 0.05
	DefaultSeed            = 42
)

// LoadDotEnv loads a .env file if one exists. Missing files are not an error.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	var existing []string
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			existing = append(existing, p)
		}
	}
	if len(existing) == 0 {
		return nil
	}
	if err := godotenv.Load(existing...); err != nil {
		return errors.Wrap(err, "failed to load .env")
	}
	return nil
}

// Load reads configuration from environment variables and validates it
func Load() (*Config, error) {
	correction, err := stats.ParseCorrectionMode(getEnvOrDefault("SPHERICITY_CORRECTION", string(stats.CorrectionAuto)))
	if err != nil {
		return nil, errors.WithCode(errors.CodeConfigInvalid, err)
	}

	config := &Config{
		Data: DataConfig{
			ReplicationFile: getEnvOrDefault("REPLICATION_FILE", DefaultReplicationFile),
			OriginalFile:    getEnvOrDefault("ORIGINAL_FILE", DefaultOriginalFile),
		},
		Analysis: AnalysisConfig{
			Alpha:      getEnvFloatOrDefault("ALPHA", DefaultAlpha),
			Seed:       getEnvInt64OrDefault("SEED", DefaultSeed),
			Correction: correction,
		},
		Output: OutputConfig{
			Dir:          getEnvOrDefault("OUTPUT_DIR", DefaultOutputDir),
			PlotsEnabled: getEnvBoolOrDefault("PLOTS_ENABLED", true),
			HTMLEnabled:  getEnvBoolOrDefault("HTML_ENABLED", true),
			XLSXEnabled:  getEnvBoolOrDefault("XLSX_ENABLED", true),
		},
		LogLevel: getEnvOrDefault("LOG_LEVEL", "INFO"),
	}

	if err := config.Validate(); err != nil {
		return nil, errors.Wrap(err, "configuration validation failed")
	}

	return config, nil
}

// Validate checks required fields and ranges
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Data.ReplicationFile) == "" {
		return errors.ConfigInvalid("REPLICATION_FILE is required")
	}
	if strings.TrimSpace(c.Data.OriginalFile) == "" {
		return errors.ConfigInvalid("ORIGINAL_FILE is required")
	}
	if c.Analysis.Alpha <= 0 || c.Analysis.Alpha >= 1 {
		return errors.ConfigInvalid("ALPHA must be in (0, 1)")
	}
	if _, err := stats.ParseCorrectionMode(string(c.Analysis.Correction)); err != nil {
		return errors.WithCode(errors.CodeConfigInvalid, err)
	}
	if strings.TrimSpace(c.Output.Dir) == "" {
		return errors.ConfigInvalid("OUTPUT_DIR is required")
	}
	return nil
}

// Helper functions for environment variable parsing
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt64OrDefault(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvFloatOrDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getEnvBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}
