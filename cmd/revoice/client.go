package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// apiClient is a thin HTTP client for the daemon API.
type apiClient struct {
	baseURL    string
	httpClient *http.Client
}

func newAPIClient(baseURL string) *apiClient {
	return &apiClient{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 5 * time.Minute},
	}
}

type submitResponse struct {
	Message   string `json:"message"`
	VideoID   string `json:"video_id"`
	StatusURL string `json:"status_url"`
}

func (c *apiClient) submit(ctx context.Context, path, targetLang string) (submitResponse, error) {
	var out submitResponse

	file, err := os.Open(path)
	if err != nil {
		return out, fmt.Errorf("open video: %w", err)
	}
	defer file.Close()

	pr, pw := io.Pipe()
	writer := multipart.NewWriter(pw)
	go func() {
		part, err := writer.CreateFormFile("file", filepath.Base(path))
		if err == nil {
			_, err = io.Copy(part, file)
		}
		if err == nil {
			err = writer.WriteField("target_lang", targetLang)
		}
		if err == nil {
			err = writer.Close()
		}
		_ = pw.CloseWithError(err)
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/localize", pr)
	if err != nil {
		return out, err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	if err := c.do(req, http.StatusAccepted, &out); err != nil {
		return out, err
	}
	return out, nil
}

type statusResponse struct {
	Status string `json:"status"`
	Step   string `json:"step"`
	Error  string `json:"error"`
	Result *struct {
		VideoURI            string          `json:"video_uri"`
		Transcript          string          `json:"transcript"`
		Translation         string          `json:"translation"`
		TranslationAnalysis json.RawMessage `json:"translation_analysis"`
	} `json:"result"`
}

func (c *apiClient) status(ctx context.Context, jobID string) (statusResponse, error) {
	var out statusResponse
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/localize/status/"+jobID, nil)
	if err != nil {
		return out, err
	}
	if err := c.do(req, http.StatusOK, &out); err != nil {
		return out, err
	}
	return out, nil
}

type jobsResponse struct {
	Jobs []struct {
		ID         string    `json:"id"`
		Status     string    `json:"status"`
		Step       string    `json:"step"`
		Filename   string    `json:"filename"`
		TargetLang string    `json:"target_lang"`
		CreatedAt  time.Time `json:"created_at"`
		UpdatedAt  time.Time `json:"updated_at"`
	} `json:"jobs"`
}

func (c *apiClient) jobs(ctx context.Context) (jobsResponse, error) {
	var out jobsResponse
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/jobs", nil)
	if err != nil {
		return out, err
	}
	if err := c.do(req, http.StatusOK, &out); err != nil {
		return out, err
	}
	return out, nil
}

func (c *apiClient) health(ctx context.Context) (map[string]any, error) {
	var out map[string]any
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/health", nil)
	if err != nil {
		return nil, err
	}
	if err := c.do(req, http.StatusOK, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *apiClient) do(req *http.Request, wantStatus int, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("daemon unreachable at %s: %w", c.baseURL, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != wantStatus {
		var apiErr struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(body, &apiErr) == nil && apiErr.Error != "" {
			return fmt.Errorf("%s", apiErr.Error)
		}
		return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	if out == nil {
		return nil
	}
	return json.Unmarshal(body, out)
}
