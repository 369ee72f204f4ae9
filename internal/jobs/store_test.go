package jobs

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := OpenPath(filepath.Join(t.TempDir(), "jobs.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestCreateAndGet(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	job, err := store.Create(ctx, "talk.mp4", "es")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if job.ID == "" {
		t.Fatal("expected generated job id")
	}
	if job.Status != StatusStarting || job.Stage != StageNone {
		t.Fatalf("new job state = %s/%s", job.Status, job.Stage)
	}

	got, err := store.GetByID(ctx, job.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got == nil {
		t.Fatal("expected job to be found")
	}
	if got.SourceFilename != "talk.mp4" || got.TargetLang != "es" {
		t.Fatalf("round trip = %+v", got)
	}
}

func TestGetMissingReturnsNil(t *testing.T) {
	store := newTestStore(t)
	got, err := store.GetByID(context.Background(), "no-such-job")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got != nil {
		t.Fatalf("expected nil for missing job, got %+v", got)
	}
}

func TestUpdateAdvancesStage(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	job, err := store.Create(ctx, "talk.mp4", "zh-HK")
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	job.Status = StatusInProgress
	job.Stage = StageTranscribing
	job.VideoURI = "s3://bucket/videos/x.mp4"
	if err := store.Update(ctx, job); err != nil {
		t.Fatalf("update: %v", err)
	}

	got, err := store.GetByID(ctx, job.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status != StatusInProgress || got.Stage != StageTranscribing {
		t.Fatalf("state = %s/%s", got.Status, got.Stage)
	}
	if got.VideoURI != "s3://bucket/videos/x.mp4" {
		t.Fatalf("video uri = %q", got.VideoURI)
	}
	if !got.UpdatedAt.After(got.CreatedAt) && !got.UpdatedAt.Equal(got.CreatedAt) {
		t.Fatalf("updated_at %v precedes created_at %v", got.UpdatedAt, got.CreatedAt)
	}
}

func TestUpdateRejectsStageRegression(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	job, err := store.Create(ctx, "talk.mp4", "es")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	job.Status = StatusInProgress
	job.Stage = StageSynthesizing
	if err := store.Update(ctx, job); err != nil {
		t.Fatalf("advance: %v", err)
	}

	job.Stage = StageTranslating
	err = store.Update(ctx, job)
	if !errors.Is(err, ErrStageRegression) {
		t.Fatalf("expected ErrStageRegression, got %v", err)
	}
}

func TestUpdateRejectsTerminalRewrite(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	job, err := store.Create(ctx, "talk.mp4", "es")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	job.Status = StatusFailed
	job.Stage = StageTranscribing
	job.ErrorMessage = "transcription timeout"
	if err := store.Update(ctx, job); err != nil {
		t.Fatalf("fail job: %v", err)
	}

	job.Status = StatusCompleted
	err = store.Update(ctx, job)
	if !errors.Is(err, ErrTerminalJob) {
		t.Fatalf("expected ErrTerminalJob, got %v", err)
	}

	got, err := store.GetByID(ctx, job.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status != StatusFailed || got.ErrorMessage != "transcription timeout" {
		t.Fatalf("terminal job mutated: %+v", got)
	}
}

func TestListNewestFirst(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	first, err := store.Create(ctx, "a.mp4", "es")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	time.Sleep(2 * time.Millisecond)
	second, err := store.Create(ctx, "b.mp4", "fr")
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	listed, err := store.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(listed) != 2 {
		t.Fatalf("len = %d, want 2", len(listed))
	}
	if listed[0].ID != second.ID || listed[1].ID != first.ID {
		t.Fatalf("order = %s, %s", listed[0].ID, listed[1].ID)
	}
}

func TestStatsAndRetention(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	done, err := store.Create(ctx, "done.mp4", "es")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	done.Status = StatusCompleted
	done.Stage = StagePublishing
	if err := store.Update(ctx, done); err != nil {
		t.Fatalf("complete: %v", err)
	}
	if _, err := store.Create(ctx, "active.mp4", "es"); err != nil {
		t.Fatalf("create: %v", err)
	}

	stats, err := store.Stats(ctx)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.Total != 2 || stats.Completed != 1 || stats.Starting != 1 {
		t.Fatalf("stats = %+v", stats)
	}

	deleted, err := store.DeleteTerminalBefore(ctx, time.Now().Add(time.Minute))
	if err != nil {
		t.Fatalf("retention: %v", err)
	}
	if deleted != 1 {
		t.Fatalf("deleted = %d, want 1", deleted)
	}
	remaining, err := store.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(remaining) != 1 || remaining[0].Status != StatusStarting {
		t.Fatalf("remaining = %+v", remaining)
	}
}

func TestFailActive(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	job, err := store.Create(ctx, "talk.mp4", "es")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	updated, err := store.FailActive(ctx, DaemonStopReason)
	if err != nil {
		t.Fatalf("fail active: %v", err)
	}
	if updated != 1 {
		t.Fatalf("updated = %d, want 1", updated)
	}
	got, err := store.GetByID(ctx, job.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status != StatusFailed || got.ErrorMessage != DaemonStopReason {
		t.Fatalf("job = %+v", got)
	}
}

func TestResultDegradesBadAnalysis(t *testing.T) {
	job := &Job{
		VideoURI:     "s3://bucket/localized/x.mp4",
		Transcript:   "hello",
		Translation:  "hola",
		AnalysisJSON: "not json",
	}
	result := job.Result()
	if string(result.TranslationAnalysis) != "{}" {
		t.Fatalf("analysis = %s, want empty object", result.TranslationAnalysis)
	}
}
