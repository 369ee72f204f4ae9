package config

import (
	"fmt"
	"strings"
)

var validSpeechEngines = map[string]bool{
	"standard":  true,
	"neural":    true,
	"long-form": true,
	"generative": true,
}

// Validate checks semantic constraints after normalization. It returns
// the first violation encountered so startup fails with a single clear
// message instead of a wall of errors.
func (c *Config) Validate() error {
	if c.Paths.StagingDir == "" {
		return fmt.Errorf("paths.staging_dir must not be empty")
	}
	if c.Paths.LogDir == "" {
		return fmt.Errorf("paths.log_dir must not be empty")
	}
	if c.S3.Bucket == "" {
		return fmt.Errorf("s3.bucket must be set (or export REVOICE_S3_BUCKET)")
	}
	if c.Transcribe.PollMaxSeconds < c.Transcribe.PollInitialSeconds {
		return fmt.Errorf("transcribe.poll_max_seconds (%d) must be >= poll_initial_seconds (%d)",
			c.Transcribe.PollMaxSeconds, c.Transcribe.PollInitialSeconds)
	}
	if c.Transcribe.PollTimeoutSeconds <= c.Transcribe.PollInitialSeconds {
		return fmt.Errorf("transcribe.poll_timeout_seconds (%d) must exceed poll_initial_seconds (%d)",
			c.Transcribe.PollTimeoutSeconds, c.Transcribe.PollInitialSeconds)
	}
	if !strings.HasPrefix(c.Translator.BaseURL, "http://") && !strings.HasPrefix(c.Translator.BaseURL, "https://") {
		return fmt.Errorf("translator.base_url must be an http(s) URL, got %q", c.Translator.BaseURL)
	}
	if c.Translator.Model == "" {
		return fmt.Errorf("translator.model must not be empty")
	}
	if !validSpeechEngines[c.Speech.DefaultEngine] {
		return fmt.Errorf("speech.default_engine %q is not a recognized engine", c.Speech.DefaultEngine)
	}
	for tag, voice := range c.Speech.Voices {
		if !validSpeechEngines[voice.Engine] {
			return fmt.Errorf("speech.voices.%s.engine %q is not a recognized engine", tag, voice.Engine)
		}
	}
	switch c.Speech.OutputFormat {
	case "mp3", "ogg_vorbis", "pcm":
	default:
		return fmt.Errorf("speech.output_format %q is not supported", c.Speech.OutputFormat)
	}
	if c.Watch.Dir != "" && c.Watch.TargetLang == "" {
		return fmt.Errorf("watch.target_lang must be set when watch.dir is configured")
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level %q is not one of debug, info, warn, error", c.Logging.Level)
	}
	return nil
}
