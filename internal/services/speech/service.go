package speech

import (
	"context"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	pollysvc "github.com/aws/aws-sdk-go-v2/service/polly"
	pollytypes "github.com/aws/aws-sdk-go-v2/service/polly/types"

	"revoice/internal/config"
	"revoice/internal/services"
)

const stageName = "synthesizing"

// API is the slice of the synthesis service surface the client needs. It is
// satisfied by *pollysvc.Client and by test stubs.
type API interface {
	SynthesizeSpeech(ctx context.Context, params *pollysvc.SynthesizeSpeechInput, optFns ...func(*pollysvc.Options)) (*pollysvc.SynthesizeSpeechOutput, error)
}

// Service synthesizes narration audio for translated text.
type Service struct {
	api           API
	overrides     map[string]Profile
	defaultEngine string
	outputFormat  string
}

// New builds a synthesis service from daemon configuration, resolving AWS
// credentials from the standard chain.
func New(ctx context.Context, cfg *config.Config) (*Service, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.S3.Region))
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, stageName, "aws config", "load credential chain", err)
	}
	return NewWithAPI(pollysvc.NewFromConfig(awsCfg), cfg), nil
}

// NewWithAPI builds a service around an existing API implementation.
func NewWithAPI(api API, cfg *config.Config) *Service {
	overrides := make(map[string]Profile, len(cfg.Speech.Voices))
	for tag, voice := range cfg.Speech.Voices {
		overrides[tag] = Profile{Voice: voice.Voice, Engine: voice.Engine}
	}
	return &Service{
		api:           api,
		overrides:     overrides,
		defaultEngine: cfg.Speech.DefaultEngine,
		outputFormat:  cfg.Speech.OutputFormat,
	}
}

// Voice resolves the synthesis voice used for a target language.
func (s *Service) Voice(targetLang string) Profile {
	return Select(targetLang, s.overrides, s.defaultEngine)
}

// OutputFormat returns the configured audio container, e.g. "mp3".
func (s *Service) OutputFormat() string {
	return s.outputFormat
}

// Synthesize renders the text as narration audio in the voice selected for
// the target language. The caller owns the returned stream.
func (s *Service) Synthesize(ctx context.Context, text, targetLang string) (io.ReadCloser, Profile, error) {
	profile := s.Voice(targetLang)
	out, err := s.api.SynthesizeSpeech(ctx, &pollysvc.SynthesizeSpeechInput{
		Text:         aws.String(text),
		VoiceId:      pollytypes.VoiceId(profile.Voice),
		Engine:       pollytypes.Engine(profile.Engine),
		OutputFormat: pollytypes.OutputFormat(s.outputFormat),
	})
	if err != nil {
		return nil, profile, services.Wrap(services.ErrSynthesis, stageName, "synthesize speech", profile.Voice, err)
	}
	if out.AudioStream == nil {
		return nil, profile, services.Wrap(services.ErrSynthesis, stageName, "synthesize speech", "empty audio stream", nil)
	}
	return out.AudioStream, profile, nil
}
