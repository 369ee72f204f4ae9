package pipeline

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"revoice/internal/jobs"
	"revoice/internal/services"
	"revoice/internal/services/speech"
	"revoice/internal/services/translate"
)

type fakeArtifacts struct {
	store      *jobs.Store
	stages     *[]jobs.Stage
	uploadErr  error
	publishErr error
}

func (f *fakeArtifacts) observe(ctx context.Context, jobID string) {
	job, err := f.store.GetByID(ctx, jobID)
	if err == nil && job != nil {
		*f.stages = append(*f.stages, job.Stage)
	}
}

func (f *fakeArtifacts) UploadVideo(ctx context.Context, jobID, filename string, body io.Reader) (string, string, error) {
	f.observe(ctx, jobID)
	if f.uploadErr != nil {
		return "", "", f.uploadErr
	}
	if _, err := io.ReadAll(body); err != nil {
		return "", "", err
	}
	key := "videos/" + jobID + "_" + filename
	return key, "s3://bucket/" + key, nil
}

func (f *fakeArtifacts) UploadLocalized(ctx context.Context, jobID string, body io.Reader) (string, error) {
	f.observe(ctx, jobID)
	if f.publishErr != nil {
		return "", f.publishErr
	}
	if _, err := io.ReadAll(body); err != nil {
		return "", err
	}
	return "s3://bucket/localized/" + jobID + "_localized.mp4", nil
}

type fakeTranscriber struct {
	text string
	err  error
}

func (f *fakeTranscriber) Transcribe(ctx context.Context, jobID, mediaURI, filename string) (string, error) {
	return f.text, f.err
}

type fakeTranslator struct {
	translation  string
	translateErr error
	analysis     translate.Analysis
	reviewErr    error
	reviewCalled bool
}

func (f *fakeTranslator) Translate(ctx context.Context, transcript, targetLang string) (string, error) {
	return f.translation, f.translateErr
}

func (f *fakeTranslator) ReviewTranslation(ctx context.Context, source, translation, targetLang string) (translate.Analysis, error) {
	f.reviewCalled = true
	return f.analysis, f.reviewErr
}

type fakeSynthesizer struct {
	audio  string
	err    error
	called bool
}

func (f *fakeSynthesizer) Synthesize(ctx context.Context, text, targetLang string) (io.ReadCloser, speech.Profile, error) {
	f.called = true
	if f.err != nil {
		return nil, speech.Profile{}, f.err
	}
	return io.NopCloser(strings.NewReader(f.audio)), speech.Profile{Voice: "Lupe", Engine: "neural"}, nil
}

func (f *fakeSynthesizer) OutputFormat() string { return "mp3" }

type fakeMuxer struct {
	err    error
	called bool
}

func (f *fakeMuxer) ReplaceAudio(ctx context.Context, videoPath, audioPath, destPath string) error {
	f.called = true
	if f.err != nil {
		return f.err
	}
	return os.WriteFile(destPath, []byte("merged"), 0o644)
}

type harness struct {
	store       *jobs.Store
	runner      *Runner
	job         *jobs.Job
	staging     string
	stages      []jobs.Stage
	artifacts   *fakeArtifacts
	transcriber *fakeTranscriber
	translator  *fakeTranslator
	synthesizer *fakeSynthesizer
	muxer       *fakeMuxer
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	dir := t.TempDir()
	store, err := jobs.OpenPath(filepath.Join(dir, "jobs.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	h := &harness{
		store:       store,
		staging:     filepath.Join(dir, "staging"),
		transcriber: &fakeTranscriber{text: "hello world"},
		translator: &fakeTranslator{
			translation: "hola mundo",
			analysis:    translate.Analysis{Findings: []translate.Finding{}},
		},
		synthesizer: &fakeSynthesizer{audio: "mp3-bytes"},
		muxer:       &fakeMuxer{},
	}
	h.artifacts = &fakeArtifacts{store: store, stages: &h.stages}

	ctx := context.Background()
	job, err := store.Create(ctx, "talk.mp4", "es")
	if err != nil {
		t.Fatalf("create job: %v", err)
	}
	workspace, err := NewWorkspace(h.staging, job.ID)
	if err != nil {
		t.Fatalf("workspace: %v", err)
	}
	sourcePath, err := workspace.SaveUpload("talk.mp4", strings.NewReader("video-bytes"))
	if err != nil {
		t.Fatalf("save upload: %v", err)
	}
	job.SourcePath = sourcePath
	h.job = job

	h.runner = NewRunner(Deps{
		Store:       store,
		Artifacts:   h.artifacts,
		Transcriber: h.transcriber,
		Translator:  h.translator,
		Synthesizer: h.synthesizer,
		Muxer:       h.muxer,
		StagingDir:  h.staging,
	})
	return h
}

func (h *harness) run(t *testing.T) *jobs.Job {
	t.Helper()
	h.runner.Run(context.Background(), h.job)
	final, err := h.store.GetByID(context.Background(), h.job.ID)
	if err != nil {
		t.Fatalf("get final job: %v", err)
	}
	if final == nil {
		t.Fatal("job disappeared from store")
	}
	return final
}

func (h *harness) workspaceGone(t *testing.T) {
	t.Helper()
	if _, err := os.Stat(filepath.Join(h.staging, h.job.ID)); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("workspace still present: %v", err)
	}
}

func TestRunCompletesJob(t *testing.T) {
	h := newHarness(t)
	final := h.run(t)

	if final.Status != jobs.StatusCompleted {
		t.Fatalf("status = %s, error = %q", final.Status, final.ErrorMessage)
	}
	if final.Stage != jobs.StagePublishing {
		t.Fatalf("stage = %s", final.Stage)
	}
	if !strings.Contains(final.VideoURI, "localized/") {
		t.Fatalf("video uri = %q, want localized key", final.VideoURI)
	}
	if final.Transcript != "hello world" || final.Translation != "hola mundo" {
		t.Fatalf("texts = %q / %q", final.Transcript, final.Translation)
	}
	result := final.Result()
	if string(result.TranslationAnalysis) == "{}" {
		t.Fatalf("analysis = %s, want stored findings", result.TranslationAnalysis)
	}
	h.workspaceGone(t)
}

func TestRunObservesStageBeforeWork(t *testing.T) {
	h := newHarness(t)
	h.run(t)

	// The artifact stub records the persisted stage when each upload call
	// lands: the stage must already be set to the stage doing the work.
	if len(h.stages) != 2 {
		t.Fatalf("observed stages = %v", h.stages)
	}
	if h.stages[0] != jobs.StageUploading {
		t.Fatalf("upload saw stage %s", h.stages[0])
	}
	if h.stages[1] != jobs.StagePublishing {
		t.Fatalf("publish saw stage %s", h.stages[1])
	}
}

func TestRunQualityAnalysisFailureDegrades(t *testing.T) {
	h := newHarness(t)
	h.translator.reviewErr = services.Wrap(services.ErrQualityAnalysis, "analyzing_quality", "chat", "completion failed", errors.New("503"))
	final := h.run(t)

	if final.Status != jobs.StatusCompleted {
		t.Fatalf("status = %s, want completed despite review failure", final.Status)
	}
	if !strings.Contains(final.AnalysisJSON, `"findings":[]`) {
		t.Fatalf("analysis = %q, want empty findings", final.AnalysisJSON)
	}
	if !strings.Contains(final.AnalysisJSON, `"error"`) {
		t.Fatalf("analysis = %q, want error note", final.AnalysisJSON)
	}
	h.workspaceGone(t)
}

func TestRunTranslationFailureIsFatal(t *testing.T) {
	h := newHarness(t)
	h.translator.translateErr = services.Wrap(services.ErrTranslation, "translating", "chat", "model returned no translation", nil)
	final := h.run(t)

	if final.Status != jobs.StatusFailed {
		t.Fatalf("status = %s, want failed", final.Status)
	}
	if final.Stage != jobs.StageTranslating {
		t.Fatalf("stage = %s", final.Stage)
	}
	if final.ErrorMessage == "" {
		t.Fatal("expected error message on failed job")
	}
	if h.synthesizer.called || h.muxer.called {
		t.Fatal("later stages ran after a fatal failure")
	}
	h.workspaceGone(t)
}

func TestRunTranscriptionTimeoutFailsJob(t *testing.T) {
	h := newHarness(t)
	h.transcriber.err = services.Wrap(services.ErrTranscriptionTimeout, "transcribing", "poll", "no result after 15m0s", nil)
	final := h.run(t)

	if final.Status != jobs.StatusFailed {
		t.Fatalf("status = %s, want failed", final.Status)
	}
	if !strings.Contains(final.ErrorMessage, "transcription timeout") {
		t.Fatalf("error = %q", final.ErrorMessage)
	}
	if h.translator.reviewCalled {
		t.Fatal("review ran after transcription failure")
	}
	h.workspaceGone(t)
}

func TestRunMergeFailureCleansWorkspace(t *testing.T) {
	h := newHarness(t)
	h.muxer.err = services.Wrap(services.ErrMerge, "merging", "ffmpeg", "replace audio", errors.New("exit status 1"))
	final := h.run(t)

	if final.Status != jobs.StatusFailed {
		t.Fatalf("status = %s, want failed", final.Status)
	}
	if final.Stage != jobs.StageMerging {
		t.Fatalf("stage = %s", final.Stage)
	}
	h.workspaceGone(t)
}

func TestRunMissingSourceFailsUploadStage(t *testing.T) {
	h := newHarness(t)
	h.job.SourcePath = filepath.Join(h.staging, "nope", "absent.mp4")
	final := h.run(t)

	if final.Status != jobs.StatusFailed {
		t.Fatalf("status = %s", final.Status)
	}
	if final.Stage != jobs.StageUploading {
		t.Fatalf("stage = %s", final.Stage)
	}
}
