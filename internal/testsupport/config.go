package testsupport

import (
	"path/filepath"
	"testing"

	"revoice/internal/config"
)

// ConfigOption customizes the generated test configuration.
type ConfigOption func(*config.Config)

// NewConfig produces a config seeded with unique temp directories per test.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.StagingDir = filepath.Join(base, "staging")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.Paths.APIBind = "127.0.0.1:0"
	cfg.S3.Bucket = "test-bucket"
	cfg.Translator.APIKey = "test-key"

	for _, opt := range opts {
		opt(&cfg)
	}
	return &cfg
}

// WithVoices sets voice overrides on the test config.
func WithVoices(voices map[string]config.Voice) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Speech.Voices = voices
	}
}

// WithRetention enables terminal-job eviction on the test config.
func WithRetention(hours, sweepSeconds int) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Workflow.JobRetentionHours = hours
		cfg.Workflow.RetentionSweepSecond = sweepSeconds
	}
}
