package watcher

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"revoice/internal/jobs"
	"revoice/internal/testsupport"
)

type recordingSubmitter struct {
	mu          sync.Mutex
	submissions []submission
}

type submission struct {
	filename   string
	targetLang string
	content    string
}

func (r *recordingSubmitter) Submit(ctx context.Context, filename string, body io.Reader, targetLang string) (*jobs.Job, error) {
	data, err := io.ReadAll(body)
	if err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.submissions = append(r.submissions, submission{filename: filename, targetLang: targetLang, content: string(data)})
	return &jobs.Job{ID: "job-1", SourceFilename: filename, TargetLang: targetLang}, nil
}

func (r *recordingSubmitter) list() []submission {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]submission(nil), r.submissions...)
}

func newTestWatcher(t *testing.T, sub Submitter) (*Watcher, string) {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	cfg.Watch.Dir = filepath.Join(t.TempDir(), "ingest")
	cfg.Watch.TargetLang = "es"
	if err := os.MkdirAll(cfg.Watch.Dir, 0o755); err != nil {
		t.Fatalf("mkdir ingest: %v", err)
	}

	w, err := New(cfg, sub, nil)
	if err != nil {
		t.Fatalf("new watcher: %v", err)
	}
	w.settleInterval = 5 * time.Millisecond
	return w, cfg.Watch.Dir
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met in time")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestWatcherSubmitsExistingAndNewFiles(t *testing.T) {
	sub := &recordingSubmitter{}
	w, dir := newTestWatcher(t, sub)

	if err := os.WriteFile(filepath.Join(dir, "before.mp4"), []byte("early"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	waitFor(t, 2*time.Second, func() bool { return len(sub.list()) == 1 })

	if err := os.WriteFile(filepath.Join(dir, "after.mp4"), []byte("late"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	waitFor(t, 2*time.Second, func() bool { return len(sub.list()) == 2 })

	cancel()
	if err := <-done; err != nil {
		t.Fatalf("run: %v", err)
	}

	got := sub.list()
	if got[0].filename != "before.mp4" || got[0].content != "early" || got[0].targetLang != "es" {
		t.Fatalf("first submission = %+v", got[0])
	}
	if got[1].filename != "after.mp4" {
		t.Fatalf("second submission = %+v", got[1])
	}

	// Consumed drops are removed from the ingest directory.
	waitFor(t, 2*time.Second, func() bool {
		_, err := os.Stat(filepath.Join(dir, "after.mp4"))
		return errors.Is(err, os.ErrNotExist)
	})
}

func TestWatcherIgnoresNonVideoFiles(t *testing.T) {
	sub := &recordingSubmitter{}
	w, dir := newTestWatcher(t, sub)

	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("text"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, ".hidden.mp4"), []byte("hidden"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	_ = w.Run(ctx)

	if len(sub.list()) != 0 {
		t.Fatalf("submissions = %+v, want none", sub.list())
	}
}

func TestWatcherRequiresConfiguredDir(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	if _, err := New(cfg, &recordingSubmitter{}, nil); err == nil {
		t.Fatal("expected error for unset watch.dir")
	}
}
