package daemon

import (
	"context"
	"fmt"
	"io"

	"revoice/internal/jobs"
	"revoice/internal/logging"
	"revoice/internal/pipeline"
)

// Submit creates a job for an uploaded video, persists the file into the
// job's workspace, and schedules the pipeline. It returns as soon as the
// job is launched.
func (d *Daemon) Submit(ctx context.Context, filename string, body io.Reader, targetLang string) (*jobs.Job, error) {
	job, err := d.store.Create(ctx, filename, targetLang)
	if err != nil {
		return nil, fmt.Errorf("create job: %w", err)
	}

	workspace, err := pipeline.NewWorkspace(d.cfg.Paths.StagingDir, job.ID)
	if err != nil {
		d.failSubmission(ctx, job, err)
		return nil, err
	}
	sourcePath, err := workspace.SaveUpload(filename, body)
	if err != nil {
		_ = workspace.Remove()
		d.failSubmission(ctx, job, err)
		return nil, err
	}
	job.SourcePath = sourcePath
	if err := d.store.Update(ctx, job); err != nil {
		_ = workspace.Remove()
		d.failSubmission(ctx, job, err)
		return nil, err
	}

	// The daemon context, not the caller's, owns pipeline work: a submitter
	// disconnecting must not cancel the job.
	d.runner.Launch(d.ctx, job)

	d.logger.Info("job submitted",
		logging.String(logging.FieldJobID, job.ID),
		logging.String("filename", filename),
		logging.String("target_lang", targetLang))
	return job, nil
}

func (d *Daemon) failSubmission(ctx context.Context, job *jobs.Job, cause error) {
	d.logger.Error("submission failed",
		logging.String(logging.FieldJobID, job.ID),
		logging.Error(cause))
	job.Status = jobs.StatusFailed
	job.ErrorMessage = cause.Error()
	if err := d.store.Update(ctx, job); err != nil {
		d.logger.Error("persist submission failure", logging.Error(err))
	}
}
