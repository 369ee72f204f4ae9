package transcribe

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	transcribesvc "github.com/aws/aws-sdk-go-v2/service/transcribe"
	transcribetypes "github.com/aws/aws-sdk-go-v2/service/transcribe/types"

	"revoice/internal/config"
	"revoice/internal/services"
	"revoice/internal/services/storage"
)

const stageName = "transcribing"

// API is the slice of the transcription service surface the client needs.
// It is satisfied by *transcribesvc.Client and by test stubs.
type API interface {
	StartTranscriptionJob(ctx context.Context, params *transcribesvc.StartTranscriptionJobInput, optFns ...func(*transcribesvc.Options)) (*transcribesvc.StartTranscriptionJobOutput, error)
	GetTranscriptionJob(ctx context.Context, params *transcribesvc.GetTranscriptionJobInput, optFns ...func(*transcribesvc.Options)) (*transcribesvc.GetTranscriptionJobOutput, error)
}

// ObjectFetcher reads transcription output documents from the artifact store.
type ObjectFetcher interface {
	GetObject(ctx context.Context, key string) ([]byte, error)
}

// Options controls the completion wait loop and source language.
type Options struct {
	LanguageCode        string
	Bucket              string
	InitialInterval     time.Duration
	MaxInterval         time.Duration
	Timeout             time.Duration
	MediaFormatOverride string
}

// Service starts transcription jobs and waits for their results.
type Service struct {
	api   API
	store ObjectFetcher
	opts  Options
}

// New builds a transcription service from daemon configuration, resolving
// AWS credentials from the standard chain.
func New(ctx context.Context, cfg *config.Config, store ObjectFetcher) (*Service, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.S3.Region))
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, stageName, "aws config", "load credential chain", err)
	}
	return NewWithAPI(transcribesvc.NewFromConfig(awsCfg), store, Options{
		LanguageCode:        cfg.Transcribe.LanguageCode,
		Bucket:              cfg.S3.Bucket,
		InitialInterval:     time.Duration(cfg.Transcribe.PollInitialSeconds) * time.Second,
		MaxInterval:         time.Duration(cfg.Transcribe.PollMaxSeconds) * time.Second,
		Timeout:             time.Duration(cfg.Transcribe.PollTimeoutSeconds) * time.Second,
		MediaFormatOverride: cfg.Transcribe.MediaFormatOverride,
	}), nil
}

// NewWithAPI builds a service around existing API implementations.
func NewWithAPI(api API, store ObjectFetcher, opts Options) *Service {
	if opts.InitialInterval <= 0 {
		opts.InitialInterval = 2 * time.Second
	}
	if opts.MaxInterval < opts.InitialInterval {
		opts.MaxInterval = opts.InitialInterval
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 15 * time.Minute
	}
	return &Service{api: api, store: store, opts: opts}
}

// JobName returns the transcription job identifier for a pipeline job.
func JobName(jobID string) string {
	return "revoice-" + jobID
}

// Transcribe submits the uploaded video for transcription and blocks until
// the service reports a result, the configured timeout elapses, or ctx is
// canceled. It returns the plain transcript text.
func (s *Service) Transcribe(ctx context.Context, jobID, mediaURI, filename string) (string, error) {
	jobName := JobName(jobID)
	format, err := s.mediaFormat(filename)
	if err != nil {
		return "", err
	}

	_, err = s.api.StartTranscriptionJob(ctx, &transcribesvc.StartTranscriptionJobInput{
		TranscriptionJobName: aws.String(jobName),
		LanguageCode:         transcribetypes.LanguageCode(s.opts.LanguageCode),
		MediaFormat:          format,
		Media: &transcribetypes.Media{
			MediaFileUri: aws.String(mediaURI),
		},
		OutputBucketName: aws.String(s.opts.Bucket),
		OutputKey:        aws.String(storage.TranscriptKey(jobName)),
	})
	if err != nil {
		return "", services.Wrap(services.ErrTranscription, stageName, "start job", jobName, err)
	}

	if err := s.waitForCompletion(ctx, jobName); err != nil {
		return "", err
	}
	return s.fetchTranscript(ctx, jobName)
}

// waitForCompletion polls job state with exponential backoff, starting at
// InitialInterval and doubling up to MaxInterval, until the job finishes
// or the deadline passes.
func (s *Service) waitForCompletion(ctx context.Context, jobName string) error {
	deadline := time.Now().Add(s.opts.Timeout)
	interval := s.opts.InitialInterval

	for {
		if time.Now().After(deadline) {
			return services.Wrap(services.ErrTranscriptionTimeout, stageName, "poll",
				fmt.Sprintf("no result after %s", s.opts.Timeout), nil)
		}

		out, err := s.api.GetTranscriptionJob(ctx, &transcribesvc.GetTranscriptionJobInput{
			TranscriptionJobName: aws.String(jobName),
		})
		if err != nil {
			return services.Wrap(services.ErrTranscription, stageName, "poll", jobName, err)
		}
		job := out.TranscriptionJob
		if job == nil {
			return services.Wrap(services.ErrTranscription, stageName, "poll", "empty job in response", nil)
		}

		switch job.TranscriptionJobStatus {
		case transcribetypes.TranscriptionJobStatusCompleted:
			return nil
		case transcribetypes.TranscriptionJobStatusFailed:
			reason := aws.ToString(job.FailureReason)
			if reason == "" {
				reason = "transcription job failed"
			}
			return services.Wrap(services.ErrTranscription, stageName, "job", reason, nil)
		}

		timer := time.NewTimer(interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return services.Wrap(services.ErrTranscription, stageName, "poll", "canceled", ctx.Err())
		case <-timer.C:
		}
		interval *= 2
		if interval > s.opts.MaxInterval {
			interval = s.opts.MaxInterval
		}
	}
}

func (s *Service) fetchTranscript(ctx context.Context, jobName string) (string, error) {
	data, err := s.store.GetObject(ctx, storage.TranscriptKey(jobName))
	if err != nil {
		return "", services.Wrap(services.ErrTranscription, stageName, "fetch transcript", jobName, err)
	}
	text, err := ParseDocument(data)
	if err != nil {
		return "", services.Wrap(services.ErrTranscription, stageName, "parse transcript", jobName, err)
	}
	return text, nil
}

var mediaFormats = map[string]transcribetypes.MediaFormat{
	".mp3":  transcribetypes.MediaFormatMp3,
	".mp4":  transcribetypes.MediaFormatMp4,
	".wav":  transcribetypes.MediaFormatWav,
	".flac": transcribetypes.MediaFormatFlac,
	".ogg":  transcribetypes.MediaFormatOgg,
	".amr":  transcribetypes.MediaFormatAmr,
	".webm": transcribetypes.MediaFormatWebm,
	".m4a":  transcribetypes.MediaFormatM4a,
}

func (s *Service) mediaFormat(filename string) (transcribetypes.MediaFormat, error) {
	if override := strings.TrimSpace(s.opts.MediaFormatOverride); override != "" {
		return transcribetypes.MediaFormat(override), nil
	}
	ext := strings.ToLower(filepath.Ext(filename))
	if format, ok := mediaFormats[ext]; ok {
		return format, nil
	}
	return "", services.Wrap(services.ErrValidation, stageName, "media format",
		fmt.Sprintf("unsupported file extension %q", ext), errors.ErrUnsupported)
}
