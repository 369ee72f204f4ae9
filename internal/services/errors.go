package services

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel markers for pipeline failures. Every error that crosses a stage
// boundary is wrapped with one of these so callers can classify it with
// errors.Is without string matching.
var (
	ErrUpload               = errors.New("upload failure")
	ErrTranscription        = errors.New("transcription failure")
	ErrTranscriptionTimeout = errors.New("transcription timeout")
	ErrTranslation          = errors.New("translation failure")
	ErrQualityAnalysis      = errors.New("quality analysis failure")
	ErrSynthesis            = errors.New("speech synthesis failure")
	ErrMerge                = errors.New("audio merge failure")
	ErrPublish              = errors.New("publish failure")
	ErrValidation           = errors.New("validation error")
	ErrConfiguration        = errors.New("configuration error")
	ErrNotFound             = errors.New("not found")
	ErrTransient            = errors.New("transient failure")
)

// Wrap builds an error message that includes stage context while tagging it
// with the provided marker for later classification. The marker should be one
// of the exported sentinel errors above.
func Wrap(marker error, stage, operation, message string, err error) error {
	detail := buildDetail(stage, operation, message)
	if marker == nil {
		marker = ErrTransient
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// Fatal reports whether an error should mark the owning job failed. Quality
// analysis problems degrade the result instead of killing the job.
func Fatal(err error) bool {
	if err == nil {
		return false
	}
	return !errors.Is(err, ErrQualityAnalysis)
}

func buildDetail(stage, operation, message string) string {
	parts := make([]string, 0, 3)
	if stage = strings.TrimSpace(stage); stage != "" {
		parts = append(parts, stage)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
