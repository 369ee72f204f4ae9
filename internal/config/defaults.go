package config

const (
	defaultStagingDir         = "~/.local/share/revoice/staging"
	defaultLogDir             = "~/.local/share/revoice/logs"
	defaultAPIBind            = "127.0.0.1:8093"
	defaultAWSRegion          = "us-east-1"
	defaultSourceLanguage     = "en-US"
	defaultPollInitialSeconds = 2
	defaultPollMaxSeconds     = 30
	defaultPollTimeoutSeconds = 900
	defaultTranslatorBaseURL  = "https://openrouter.ai/api/v1/chat/completions"
	defaultTranslatorModel    = "google/gemini-3-flash-preview"
	defaultTranslatorReferer  = "https://github.com/revoice/revoice"
	defaultTranslatorT        = "Revoice Translator"
	defaultTranslatorTimeout  = 60
	defaultSpeechEngine       = "neural"
	defaultSpeechFormat       = "mp3"
	defaultRetentionSweepSecs = 600
	defaultLogFormat          = "console"
	defaultLogLevel           = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			StagingDir: defaultStagingDir,
			LogDir:     defaultLogDir,
			APIBind:    defaultAPIBind,
		},
		S3: S3{
			Region: defaultAWSRegion,
		},
		Transcribe: Transcribe{
			LanguageCode:       defaultSourceLanguage,
			PollInitialSeconds: defaultPollInitialSeconds,
			PollMaxSeconds:     defaultPollMaxSeconds,
			PollTimeoutSeconds: defaultPollTimeoutSeconds,
		},
		Translator: Translator{
			BaseURL:        defaultTranslatorBaseURL,
			Model:          defaultTranslatorModel,
			Referer:        defaultTranslatorReferer,
			Title:          defaultTranslatorT,
			TimeoutSeconds: defaultTranslatorTimeout,
		},
		Speech: Speech{
			DefaultEngine: defaultSpeechEngine,
			OutputFormat:  defaultSpeechFormat,
		},
		Workflow: Workflow{
			JobRetentionHours:    0,
			RetentionSweepSecond: defaultRetentionSweepSecs,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
