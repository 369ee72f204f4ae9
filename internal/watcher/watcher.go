package watcher

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"revoice/internal/config"
	"revoice/internal/jobs"
	"revoice/internal/logging"
)

// Submitter schedules a localization job for an ingested file.
type Submitter interface {
	Submit(ctx context.Context, filename string, body io.Reader, targetLang string) (*jobs.Job, error)
}

var videoExtensions = map[string]bool{
	".mp4":  true,
	".m4a":  true,
	".mp3":  true,
	".wav":  true,
	".flac": true,
	".ogg":  true,
	".webm": true,
}

// Watcher submits videos dropped into the ingest directory, using the
// configured target language for every file.
type Watcher struct {
	dir        string
	targetLang string
	submitter  Submitter
	logger     *slog.Logger

	settleInterval time.Duration
	settleChecks   int
}

// New builds a watcher for the configured ingest directory. The watch
// section must be populated; callers skip construction when it is not.
func New(cfg *config.Config, submitter Submitter, logger *slog.Logger) (*Watcher, error) {
	dir := strings.TrimSpace(cfg.Watch.Dir)
	if dir == "" {
		return nil, fmt.Errorf("watch directory not configured")
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Watcher{
		dir:            dir,
		targetLang:     cfg.Watch.TargetLang,
		submitter:      submitter,
		logger:         logging.WithComponent(logger, "watcher"),
		settleInterval: 250 * time.Millisecond,
		settleChecks:   2,
	}, nil
}

// Run watches the ingest directory until ctx is canceled. Files present
// before startup are submitted first so restarts do not strand drops.
func (w *Watcher) Run(ctx context.Context) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer fsw.Close()

	if err := fsw.Add(w.dir); err != nil {
		return fmt.Errorf("watch %s: %w", w.dir, err)
	}
	w.logger.Info("watching ingest directory",
		logging.String("dir", w.dir),
		logging.String("target_lang", w.targetLang))

	if err := w.submitExisting(ctx); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			if !event.Op.Has(fsnotify.Create) && !event.Op.Has(fsnotify.Rename) {
				continue
			}
			w.maybeSubmit(ctx, event.Name)
		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watch error", logging.Error(err))
		}
	}
}

func (w *Watcher) submitExisting(ctx context.Context) error {
	entries, err := os.ReadDir(w.dir)
	if err != nil {
		return fmt.Errorf("scan ingest dir: %w", err)
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		w.maybeSubmit(ctx, filepath.Join(w.dir, entry.Name()))
	}
	return nil
}

func (w *Watcher) maybeSubmit(ctx context.Context, path string) {
	name := filepath.Base(path)
	if strings.HasPrefix(name, ".") {
		return
	}
	if !videoExtensions[strings.ToLower(filepath.Ext(name))] {
		return
	}
	if err := w.waitSettled(ctx, path); err != nil {
		w.logger.Warn("ingest file never settled",
			logging.String("path", path),
			logging.Error(err))
		return
	}

	file, err := os.Open(path)
	if err != nil {
		w.logger.Warn("open ingest file", logging.String("path", path), logging.Error(err))
		return
	}
	job, err := w.submitter.Submit(ctx, name, file, w.targetLang)
	_ = file.Close()
	if err != nil {
		w.logger.Error("submit ingest file", logging.String("path", path), logging.Error(err))
		return
	}

	// The workspace holds its own copy now; the drop is consumed.
	if err := os.Remove(path); err != nil {
		w.logger.Warn("remove ingested file", logging.String("path", path), logging.Error(err))
	}
	w.logger.Info("ingested file submitted",
		logging.String("path", path),
		logging.String(logging.FieldJobID, job.ID))
}

// waitSettled waits until the file size stops changing, so partially
// copied drops are not submitted.
func (w *Watcher) waitSettled(ctx context.Context, path string) error {
	var lastSize int64 = -1
	stable := 0
	for {
		info, err := os.Stat(path)
		if err != nil {
			return err
		}
		if info.Size() == lastSize {
			stable++
			if stable >= w.settleChecks {
				return nil
			}
		} else {
			stable = 0
			lastSize = info.Size()
		}

		timer := time.NewTimer(w.settleInterval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}
