package daemon

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"strings"
	"testing"
	"time"

	"revoice/internal/jobs"
	"revoice/internal/logging"
	"revoice/internal/pipeline"
	"revoice/internal/services/speech"
	"revoice/internal/services/translate"
	"revoice/internal/testsupport"
)

type stubArtifacts struct{}

func (stubArtifacts) UploadVideo(ctx context.Context, jobID, filename string, body io.Reader) (string, string, error) {
	if _, err := io.ReadAll(body); err != nil {
		return "", "", err
	}
	key := "videos/" + jobID + "_" + filename
	return key, "s3://test-bucket/" + key, nil
}

func (stubArtifacts) UploadLocalized(ctx context.Context, jobID string, body io.Reader) (string, error) {
	if _, err := io.ReadAll(body); err != nil {
		return "", err
	}
	return "s3://test-bucket/localized/" + jobID + "_localized.mp4", nil
}

type stubTranscriber struct{}

func (stubTranscriber) Transcribe(ctx context.Context, jobID, mediaURI, filename string) (string, error) {
	return "hello world", nil
}

type stubTranslator struct{}

func (stubTranslator) Translate(ctx context.Context, transcript, targetLang string) (string, error) {
	return "hola mundo", nil
}

func (stubTranslator) ReviewTranslation(ctx context.Context, source, translation, targetLang string) (translate.Analysis, error) {
	return translate.Analysis{Findings: []translate.Finding{}}, nil
}

type stubSynthesizer struct{}

func (stubSynthesizer) Synthesize(ctx context.Context, text, targetLang string) (io.ReadCloser, speech.Profile, error) {
	return io.NopCloser(strings.NewReader("mp3-bytes")), speech.Profile{Voice: "Lupe", Engine: "neural"}, nil
}

func (stubSynthesizer) OutputFormat() string { return "mp3" }

type stubMuxer struct{}

func (stubMuxer) ReplaceAudio(ctx context.Context, videoPath, audioPath, destPath string) error {
	return os.WriteFile(destPath, []byte("merged"), 0o644)
}

func startTestDaemon(t *testing.T) (*Daemon, string) {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	store := testsupport.NewStore(t, cfg)

	runner := pipeline.NewRunner(pipeline.Deps{
		Store:       store,
		Artifacts:   stubArtifacts{},
		Transcriber: stubTranscriber{},
		Translator:  stubTranslator{},
		Synthesizer: stubSynthesizer{},
		Muxer:       stubMuxer{},
		StagingDir:  cfg.Paths.StagingDir,
	})

	d, err := New(cfg, store, runner, logging.NewNop())
	if err != nil {
		t.Fatalf("new daemon: %v", err)
	}
	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("start daemon: %v", err)
	}
	t.Cleanup(d.Stop)
	return d, "http://" + d.Addr()
}

func submitVideo(t *testing.T, baseURL, targetLang string) map[string]string {
	t.Helper()
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("file", "talk.mp4")
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := part.Write([]byte("video-bytes")); err != nil {
		t.Fatalf("write form file: %v", err)
	}
	if err := writer.WriteField("target_lang", targetLang); err != nil {
		t.Fatalf("write field: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}

	resp, err := http.Post(baseURL+"/localize", writer.FormDataContentType(), &buf)
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusAccepted {
		body, _ := io.ReadAll(resp.Body)
		t.Fatalf("status = %d, body = %s", resp.StatusCode, body)
	}
	var payload map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return payload
}

func getJSON(t *testing.T, url string) (int, map[string]any) {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("get %s: %v", url, err)
	}
	defer resp.Body.Close()
	var payload map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		t.Fatalf("decode %s: %v", url, err)
	}
	return resp.StatusCode, payload
}

func TestSubmitAndPollToCompletion(t *testing.T) {
	_, baseURL := startTestDaemon(t)

	accepted := submitVideo(t, baseURL, "es")
	if accepted["video_id"] == "" {
		t.Fatalf("response = %v", accepted)
	}
	if accepted["status_url"] != "/localize/status/"+accepted["video_id"] {
		t.Fatalf("status_url = %q", accepted["status_url"])
	}

	statusURL := baseURL + accepted["status_url"]
	deadline := time.Now().Add(5 * time.Second)
	for {
		code, payload := getJSON(t, statusURL)
		if code != http.StatusOK {
			t.Fatalf("status code = %d", code)
		}
		switch payload["status"] {
		case "completed":
			result, ok := payload["result"].(map[string]any)
			if !ok {
				t.Fatalf("payload = %v", payload)
			}
			uri, _ := result["video_uri"].(string)
			if !strings.Contains(uri, "localized/") {
				t.Fatalf("video_uri = %q", uri)
			}
			if result["transcript"] != "hello world" || result["translation"] != "hola mundo" {
				t.Fatalf("result = %v", result)
			}
			if _, ok := result["translation_analysis"]; !ok {
				t.Fatalf("result missing translation_analysis: %v", result)
			}
			return
		case "failed":
			t.Fatalf("job failed: %v", payload["error"])
		case "starting", "in_progress":
			if payload["status"] == "in_progress" {
				if step, _ := payload["step"].(string); step == "" {
					t.Fatalf("in_progress without step: %v", payload)
				}
			}
		default:
			t.Fatalf("unknown status: %v", payload)
		}
		if time.Now().After(deadline) {
			t.Fatal("job did not finish in time")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestStatusUnknownJob(t *testing.T) {
	_, baseURL := startTestDaemon(t)

	code, payload := getJSON(t, baseURL+"/localize/status/no-such-job")
	if code != http.StatusNotFound {
		t.Fatalf("code = %d, want 404", code)
	}
	if payload["error"] != "Job ID not found" {
		t.Fatalf("payload = %v", payload)
	}
}

func TestSubmitValidation(t *testing.T) {
	_, baseURL := startTestDaemon(t)

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, _ := writer.CreateFormFile("file", "talk.mp4")
	_, _ = part.Write([]byte("video-bytes"))
	_ = writer.Close()

	resp, err := http.Post(baseURL+"/localize", writer.FormDataContentType(), &buf)
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("code = %d, want 400 for missing target_lang", resp.StatusCode)
	}
}

func TestJobsAndHealthEndpoints(t *testing.T) {
	d, baseURL := startTestDaemon(t)

	accepted := submitVideo(t, baseURL, "fr")
	waitTerminal(t, d, accepted["video_id"])

	code, payload := getJSON(t, baseURL+"/api/jobs")
	if code != http.StatusOK {
		t.Fatalf("jobs code = %d", code)
	}
	listed, ok := payload["jobs"].([]any)
	if !ok || len(listed) != 1 {
		t.Fatalf("jobs payload = %v", payload)
	}

	code, payload = getJSON(t, baseURL+"/api/jobs?status=failed")
	if code != http.StatusOK {
		t.Fatalf("filtered jobs code = %d", code)
	}
	if listed, ok := payload["jobs"].([]any); !ok || len(listed) != 0 {
		t.Fatalf("expected no failed jobs, got %v", payload)
	}
	if code, _ := getJSON(t, baseURL+"/api/jobs?status=bogus"); code != http.StatusBadRequest {
		t.Fatalf("bogus filter code = %d, want 400", code)
	}

	code, payload = getJSON(t, baseURL+"/api/health")
	if code != http.StatusOK || payload["status"] != "ok" {
		t.Fatalf("health = %d %v", code, payload)
	}
	deps, ok := payload["dependencies"].(map[string]any)
	if !ok || deps["bucket"] != "ok" || deps["translator"] != "ok" {
		t.Fatalf("dependencies = %v", payload["dependencies"])
	}
}

func TestSecondInstanceRefused(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.NewStore(t, cfg)
	runner := pipeline.NewRunner(pipeline.Deps{
		Store:       store,
		Artifacts:   stubArtifacts{},
		Transcriber: stubTranscriber{},
		Translator:  stubTranslator{},
		Synthesizer: stubSynthesizer{},
		Muxer:       stubMuxer{},
		StagingDir:  cfg.Paths.StagingDir,
	})

	first, err := New(cfg, store, runner, logging.NewNop())
	if err != nil {
		t.Fatalf("new daemon: %v", err)
	}
	if err := first.Start(context.Background()); err != nil {
		t.Fatalf("start first: %v", err)
	}
	defer first.Stop()

	second, err := New(cfg, store, runner, logging.NewNop())
	if err != nil {
		t.Fatalf("new second daemon: %v", err)
	}
	if err := second.Start(context.Background()); err == nil {
		second.Stop()
		t.Fatal("expected second instance to be refused")
	}
}

func waitTerminal(t *testing.T, d *Daemon, jobID string) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for {
		job, err := d.store.GetByID(context.Background(), jobID)
		if err != nil {
			t.Fatalf("get job: %v", err)
		}
		if job != nil && job.Status.Terminal() {
			if job.Status != jobs.StatusCompleted {
				t.Fatalf("job ended %s: %s", job.Status, job.ErrorMessage)
			}
			return
		}
		if time.Now().After(deadline) {
			t.Fatal("job did not reach a terminal state")
		}
		time.Sleep(10 * time.Millisecond)
	}
}
