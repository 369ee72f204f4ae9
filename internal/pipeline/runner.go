package pipeline

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"

	"revoice/internal/jobs"
	"revoice/internal/logging"
	"revoice/internal/services"
	"revoice/internal/services/speech"
	"revoice/internal/services/translate"
)

// ArtifactStore uploads pipeline artifacts to the object store.
type ArtifactStore interface {
	UploadVideo(ctx context.Context, jobID, filename string, body io.Reader) (key, uri string, err error)
	UploadLocalized(ctx context.Context, jobID string, body io.Reader) (string, error)
}

// Transcriber produces a transcript for an uploaded video.
type Transcriber interface {
	Transcribe(ctx context.Context, jobID, mediaURI, filename string) (string, error)
}

// Translator renders text into the target language and reviews the result.
type Translator interface {
	Translate(ctx context.Context, transcript, targetLang string) (string, error)
	ReviewTranslation(ctx context.Context, source, translation, targetLang string) (translate.Analysis, error)
}

// Synthesizer renders translated text as narration audio.
type Synthesizer interface {
	Synthesize(ctx context.Context, text, targetLang string) (io.ReadCloser, speech.Profile, error)
	OutputFormat() string
}

// AudioMuxer replaces a video's audio track on local files.
type AudioMuxer interface {
	ReplaceAudio(ctx context.Context, videoPath, audioPath, destPath string) error
}

// Deps bundles the collaborators a Runner drives.
type Deps struct {
	Store       *jobs.Store
	Artifacts   ArtifactStore
	Transcriber Transcriber
	Translator  Translator
	Synthesizer Synthesizer
	Muxer       AudioMuxer
	StagingDir  string
	Logger      *slog.Logger
}

// Runner executes the localization pipeline for submitted jobs, one
// goroutine per job. Stage transitions are persisted before the stage's
// work begins so status polls always see the current step.
type Runner struct {
	deps   Deps
	logger *slog.Logger
	wg     sync.WaitGroup
}

// NewRunner builds a Runner from its dependencies.
func NewRunner(deps Deps) *Runner {
	logger := deps.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Runner{deps: deps, logger: logging.WithComponent(logger, "pipeline")}
}

// Launch schedules a job for asynchronous execution and returns
// immediately.
func (r *Runner) Launch(ctx context.Context, job *jobs.Job) {
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		r.Run(ctx, job)
	}()
}

// Wait blocks until all launched jobs have finished.
func (r *Runner) Wait() {
	r.wg.Wait()
}

// Run executes every pipeline stage for a job. The workspace is removed on
// the way out regardless of outcome.
func (r *Runner) Run(ctx context.Context, job *jobs.Job) {
	ctx = services.WithJobID(ctx, job.ID)
	logger := r.logger.With(logging.String(logging.FieldJobID, job.ID))

	workspace := OpenWorkspace(r.deps.StagingDir, job.ID)
	defer func() {
		if err := workspace.Remove(); err != nil {
			logger.Warn("workspace cleanup failed", logging.Error(err))
		}
	}()

	if err := r.execute(ctx, job, workspace, logger); err != nil {
		r.fail(ctx, job, err, logger)
		return
	}

	job.Status = jobs.StatusCompleted
	if err := r.deps.Store.Update(ctx, job); err != nil {
		logger.Error("persist completion failed", logging.Error(err))
		return
	}
	logger.Info("job completed",
		logging.String("video_uri", job.VideoURI),
		logging.String("target_lang", job.TargetLang))
}

func (r *Runner) execute(ctx context.Context, job *jobs.Job, workspace *Workspace, logger *slog.Logger) error {
	if err := r.advance(ctx, job, jobs.StageUploading); err != nil {
		return err
	}
	source, err := os.Open(job.SourcePath)
	if err != nil {
		return services.Wrap(services.ErrUpload, "uploading", "open source", job.SourcePath, err)
	}
	_, uri, err := r.deps.Artifacts.UploadVideo(ctx, job.ID, job.SourceFilename, source)
	_ = source.Close()
	if err != nil {
		return err
	}
	job.VideoURI = uri

	if err := r.advance(ctx, job, jobs.StageTranscribing); err != nil {
		return err
	}
	transcript, err := r.deps.Transcriber.Transcribe(ctx, job.ID, job.VideoURI, job.SourceFilename)
	if err != nil {
		return err
	}
	job.Transcript = transcript

	if err := r.advance(ctx, job, jobs.StageTranslating); err != nil {
		return err
	}
	translation, err := r.deps.Translator.Translate(ctx, job.Transcript, job.TargetLang)
	if err != nil {
		return err
	}
	job.Translation = translation

	if err := r.advance(ctx, job, jobs.StageAnalyzing); err != nil {
		return err
	}
	analysis, err := r.deps.Translator.ReviewTranslation(ctx, job.Transcript, job.Translation, job.TargetLang)
	if err != nil {
		// Advisory stage: degrade to an empty finding set and keep going.
		logger.Warn("quality analysis degraded", logging.Error(err))
		analysis = translate.Errored(err)
	}
	job.AnalysisJSON = analysis.JSON()

	if err := r.advance(ctx, job, jobs.StageSynthesizing); err != nil {
		return err
	}
	narrationPath, err := r.synthesize(ctx, job, workspace)
	if err != nil {
		return err
	}

	if err := r.advance(ctx, job, jobs.StageMerging); err != nil {
		return err
	}
	mergedPath := workspace.Path("localized.mp4")
	if err := r.deps.Muxer.ReplaceAudio(ctx, job.SourcePath, narrationPath, mergedPath); err != nil {
		return err
	}

	if err := r.advance(ctx, job, jobs.StagePublishing); err != nil {
		return err
	}
	merged, err := os.Open(mergedPath)
	if err != nil {
		return services.Wrap(services.ErrPublish, "publishing", "open merged file", mergedPath, err)
	}
	localizedURI, err := r.deps.Artifacts.UploadLocalized(ctx, job.ID, merged)
	_ = merged.Close()
	if err != nil {
		return err
	}
	job.VideoURI = localizedURI
	return nil
}

func (r *Runner) synthesize(ctx context.Context, job *jobs.Job, workspace *Workspace) (string, error) {
	stream, profile, err := r.deps.Synthesizer.Synthesize(ctx, job.Translation, job.TargetLang)
	if err != nil {
		return "", err
	}
	defer stream.Close()

	dest := workspace.Path("narration." + audioExtension(r.deps.Synthesizer.OutputFormat()))
	out, err := os.Create(dest)
	if err != nil {
		return "", services.Wrap(services.ErrSynthesis, "synthesizing", "create audio file", dest, err)
	}
	if _, err := io.Copy(out, stream); err != nil {
		_ = out.Close()
		return "", services.Wrap(services.ErrSynthesis, "synthesizing", "write audio file", dest, err)
	}
	if err := out.Close(); err != nil {
		return "", services.Wrap(services.ErrSynthesis, "synthesizing", "close audio file", dest, err)
	}

	r.logger.Debug("narration synthesized",
		logging.String(logging.FieldJobID, job.ID),
		logging.String("voice", profile.Voice),
		logging.String("engine", profile.Engine))
	return dest, nil
}

// advance persists the next stage before its work starts, so a status poll
// during a slow external call reports the stage that is actually running.
func (r *Runner) advance(ctx context.Context, job *jobs.Job, stage jobs.Stage) error {
	job.Status = jobs.StatusInProgress
	job.Stage = stage
	if err := r.deps.Store.Update(services.WithStage(ctx, string(stage)), job); err != nil {
		return fmt.Errorf("advance to %s: %w", stage, err)
	}
	r.logger.Info("stage started",
		logging.String(logging.FieldJobID, job.ID),
		logging.String(logging.FieldStage, string(stage)))
	return nil
}

func (r *Runner) fail(ctx context.Context, job *jobs.Job, cause error, logger *slog.Logger) {
	logger.Error("job failed",
		logging.String(logging.FieldStage, string(job.Stage)),
		logging.Error(cause))
	job.Status = jobs.StatusFailed
	job.ErrorMessage = cause.Error()
	if err := r.deps.Store.Update(ctx, job); err != nil {
		logger.Error("persist failure state failed", logging.Error(err))
	}
}

func audioExtension(format string) string {
	switch format {
	case "ogg_vorbis":
		return "ogg"
	case "pcm":
		return "pcm"
	default:
		return "mp3"
	}
}
