package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeS3()
	c.normalizeTranscribe()
	c.normalizeTranslator()
	c.normalizeSpeech()
	c.normalizeWorkflow()
	if err := c.normalizeWatch(); err != nil {
		return err
	}
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if c.Paths.StagingDir, err = expandPath(c.Paths.StagingDir); err != nil {
		return fmt.Errorf("paths.staging_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	c.Paths.APIBind = strings.TrimSpace(c.Paths.APIBind)
	if c.Paths.APIBind == "" {
		c.Paths.APIBind = defaultAPIBind
	}
	return nil
}

func (c *Config) normalizeS3() {
	c.S3.Bucket = strings.TrimSpace(c.S3.Bucket)
	if c.S3.Bucket == "" {
		if value, ok := os.LookupEnv("REVOICE_S3_BUCKET"); ok {
			c.S3.Bucket = strings.TrimSpace(value)
		}
	}
	c.S3.Region = strings.TrimSpace(c.S3.Region)
	if c.S3.Region == "" {
		if value, ok := os.LookupEnv("AWS_REGION"); ok {
			c.S3.Region = strings.TrimSpace(value)
		}
	}
	if c.S3.Region == "" {
		c.S3.Region = defaultAWSRegion
	}
}

func (c *Config) normalizeTranscribe() {
	c.Transcribe.LanguageCode = strings.TrimSpace(c.Transcribe.LanguageCode)
	if c.Transcribe.LanguageCode == "" {
		c.Transcribe.LanguageCode = defaultSourceLanguage
	}
	if c.Transcribe.PollInitialSeconds <= 0 {
		c.Transcribe.PollInitialSeconds = defaultPollInitialSeconds
	}
	if c.Transcribe.PollMaxSeconds <= 0 {
		c.Transcribe.PollMaxSeconds = defaultPollMaxSeconds
	}
	if c.Transcribe.PollTimeoutSeconds <= 0 {
		c.Transcribe.PollTimeoutSeconds = defaultPollTimeoutSeconds
	}
	c.Transcribe.MediaFormatOverride = strings.ToLower(strings.TrimSpace(c.Transcribe.MediaFormatOverride))
}

func (c *Config) normalizeTranslator() {
	c.Translator.BaseURL = strings.TrimSpace(c.Translator.BaseURL)
	if c.Translator.BaseURL == "" {
		c.Translator.BaseURL = defaultTranslatorBaseURL
	}
	c.Translator.Model = strings.TrimSpace(c.Translator.Model)
	if c.Translator.Model == "" {
		c.Translator.Model = defaultTranslatorModel
	}
	c.Translator.Referer = strings.TrimSpace(c.Translator.Referer)
	if c.Translator.Referer == "" {
		c.Translator.Referer = defaultTranslatorReferer
	}
	c.Translator.Title = strings.TrimSpace(c.Translator.Title)
	if c.Translator.Title == "" {
		c.Translator.Title = defaultTranslatorT
	}
	if c.Translator.TimeoutSeconds <= 0 {
		c.Translator.TimeoutSeconds = defaultTranslatorTimeout
	}
	c.Translator.APIKey = strings.TrimSpace(c.Translator.APIKey)
	if c.Translator.APIKey == "" {
		if value, ok := os.LookupEnv("REVOICE_TRANSLATOR_API_KEY"); ok {
			c.Translator.APIKey = strings.TrimSpace(value)
		} else if value, ok := os.LookupEnv("OPENROUTER_API_KEY"); ok {
			c.Translator.APIKey = strings.TrimSpace(value)
		}
	}
}

func (c *Config) normalizeSpeech() {
	c.Speech.DefaultEngine = strings.ToLower(strings.TrimSpace(c.Speech.DefaultEngine))
	if c.Speech.DefaultEngine == "" {
		c.Speech.DefaultEngine = defaultSpeechEngine
	}
	c.Speech.OutputFormat = strings.ToLower(strings.TrimSpace(c.Speech.OutputFormat))
	if c.Speech.OutputFormat == "" {
		c.Speech.OutputFormat = defaultSpeechFormat
	}
	if len(c.Speech.Voices) == 0 {
		return
	}
	normalized := make(map[string]Voice, len(c.Speech.Voices))
	for tag, voice := range c.Speech.Voices {
		tag = strings.TrimSpace(tag)
		voice.Voice = strings.TrimSpace(voice.Voice)
		voice.Engine = strings.ToLower(strings.TrimSpace(voice.Engine))
		if tag == "" || voice.Voice == "" {
			continue
		}
		if voice.Engine == "" {
			voice.Engine = c.Speech.DefaultEngine
		}
		normalized[tag] = voice
	}
	c.Speech.Voices = normalized
}

func (c *Config) normalizeWorkflow() {
	if c.Workflow.JobRetentionHours < 0 {
		c.Workflow.JobRetentionHours = 0
	}
	if c.Workflow.RetentionSweepSecond <= 0 {
		c.Workflow.RetentionSweepSecond = defaultRetentionSweepSecs
	}
}

func (c *Config) normalizeWatch() error {
	c.Watch.Dir = strings.TrimSpace(c.Watch.Dir)
	if c.Watch.Dir != "" {
		expanded, err := expandPath(c.Watch.Dir)
		if err != nil {
			return fmt.Errorf("watch.dir: %w", err)
		}
		c.Watch.Dir = expanded
	}
	c.Watch.TargetLang = strings.TrimSpace(c.Watch.TargetLang)
	return nil
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
