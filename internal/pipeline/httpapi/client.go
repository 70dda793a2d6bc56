package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/rustedworkshop/smokerig/internal/log"
	"github.com/rustedworkshop/smokerig/internal/model"
	"github.com/rustedworkshop/smokerig/internal/pipeline"
)

const (
	// DefaultBaseURL is where the pipeline API listens by default.
	DefaultBaseURL = "http://127.0.0.1:8001"

	// healthReadySentinel is the status the health endpoint reports once the
	// service is ready to accept submissions.
	healthReadySentinel = "ok"
)

// ClientConfig is the configuration for the pipeline HTTP API client.
type ClientConfig struct {
	// BaseURL is the pipeline API base URL (default: http://127.0.0.1:8001).
	BaseURL string
	// HTTPClient is the HTTP client used for all requests. Callers bound
	// request time through context deadlines, so the default client carries
	// no timeout of its own.
	HTTPClient *http.Client
	// Logger for logging.
	Logger log.Logger
}

func (c *ClientConfig) defaults() error {
	if c.BaseURL == "" {
		c.BaseURL = DefaultBaseURL
	}

	u, err := url.Parse(c.BaseURL)
	if err != nil {
		return fmt.Errorf("invalid base URL %q: %w", c.BaseURL, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("base URL %q needs a scheme and a host", c.BaseURL)
	}

	if c.HTTPClient == nil {
		c.HTTPClient = http.DefaultClient
	}
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "pipeline.HTTPAPI"})
	return nil
}

// Client is the HTTP implementation of pipeline.API.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     log.Logger
}

// NewClient creates a new pipeline API client.
func NewClient(cfg ClientConfig) (*Client, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: cfg.HTTPClient,
		logger:     cfg.Logger,
	}, nil
}

type healthResponse struct {
	Status string `json:"status"`
}

type taskAckResponse struct {
	TaskID string `json:"task_id"`
	Status string `json:"status"`
}

type taskStatusResponse struct {
	TaskID         string  `json:"task_id"`
	Status         string  `json:"status"`
	Progress       float64 `json:"progress"`
	ProcessedFiles int     `json:"processed_files"`
	TotalFiles     int     `json:"total_files"`
	ErrorMessage   string  `json:"error_message"`
}

type resultLocationResponse struct {
	DownloadURL string `json:"download_url"`
	ExpiresIn   int    `json:"expires_in"`
}

// Health checks the service readiness endpoint.
func (c *Client) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return fmt.Errorf("could not create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("health request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("health endpoint returned status %d: %s", resp.StatusCode, string(body))
	}

	var health healthResponse
	if err := json.NewDecoder(resp.Body).Decode(&health); err != nil {
		return fmt.Errorf("could not decode health response: %w", err)
	}

	if health.Status != healthReadySentinel {
		return fmt.Errorf("service reports status %q, want %q", health.Status, healthReadySentinel)
	}

	return nil
}

// SubmitTask uploads the file as one multipart request and registers a task.
func (c *Client) SubmitTask(ctx context.Context, req pipeline.SubmitRequest) (*model.TaskAck, error) {
	file, err := os.Open(req.FilePath)
	if err != nil {
		return nil, fmt.Errorf("could not open file %s: %w", req.FilePath, err)
	}
	defer file.Close()

	var body bytes.Buffer
	form := multipart.NewWriter(&body)

	part, err := form.CreateFormFile("file", filepath.Base(req.FilePath))
	if err != nil {
		return nil, fmt.Errorf("could not create file part: %w", err)
	}
	if _, err := io.Copy(part, file); err != nil {
		return nil, fmt.Errorf("could not read file %s: %w", req.FilePath, err)
	}
	if err := form.WriteField("target_language", req.TargetLanguage); err != nil {
		return nil, fmt.Errorf("could not write form field: %w", err)
	}
	if err := form.WriteField("translate_style", req.TranslateStyle); err != nil {
		return nil, fmt.Errorf("could not write form field: %w", err)
	}
	if err := form.Close(); err != nil {
		return nil, fmt.Errorf("could not finish form: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/tasks", &body)
	if err != nil {
		return nil, fmt.Errorf("could not create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", form.FormDataContentType())

	c.logger.Debugf("Submitting task: file=%s target_language=%s translate_style=%s", req.FilePath, req.TargetLanguage, req.TranslateStyle)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("task submission failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		respBody, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("task submission returned status %d: %s", resp.StatusCode, string(respBody))
	}

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("could not read submission response: %w", err)
	}
	if len(bytes.TrimSpace(payload)) == 0 {
		return nil, fmt.Errorf("task submission response: %w", model.ErrEmptyResponse)
	}

	var ack taskAckResponse
	if err := json.Unmarshal(payload, &ack); err != nil {
		return nil, fmt.Errorf("could not decode submission response: %w", err)
	}
	if strings.TrimSpace(ack.TaskID) == "" {
		return nil, fmt.Errorf("task submission response has no task_id: %w", model.ErrMissingField)
	}

	return &model.TaskAck{
		TaskID: ack.TaskID,
		Status: model.TaskState(ack.Status),
	}, nil
}

// TaskStatus fetches the current status of a task.
func (c *Client) TaskStatus(ctx context.Context, taskID string) (*model.TaskStatus, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf("%s/v1/tasks/%s", c.baseURL, url.PathEscape(taskID)), nil)
	if err != nil {
		return nil, fmt.Errorf("could not create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("task status request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("task %s: %w", taskID, model.ErrNotFound)
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("task status returned status %d: %s", resp.StatusCode, string(body))
	}

	var status taskStatusResponse
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		return nil, fmt.Errorf("could not decode task status response: %w", err)
	}

	return &model.TaskStatus{
		TaskID:         taskID,
		Status:         model.TaskState(status.Status),
		Progress:       status.Progress,
		ProcessedFiles: status.ProcessedFiles,
		TotalFiles:     status.TotalFiles,
		ErrorMessage:   status.ErrorMessage,
	}, nil
}

// TaskResult resolves the download location of a completed task.
func (c *Client) TaskResult(ctx context.Context, taskID string) (*model.ResultLocation, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf("%s/v1/tasks/%s/result-url", c.baseURL, url.PathEscape(taskID)), nil)
	if err != nil {
		return nil, fmt.Errorf("could not create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("task result request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("task %s: %w", taskID, model.ErrNotFound)
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("task result returned status %d: %s", resp.StatusCode, string(body))
	}

	var loc resultLocationResponse
	if err := json.NewDecoder(resp.Body).Decode(&loc); err != nil {
		return nil, fmt.Errorf("could not decode task result response: %w", err)
	}
	if loc.DownloadURL == "" {
		return nil, fmt.Errorf("task result response has no download_url: %w", model.ErrMissingField)
	}

	return &model.ResultLocation{
		DownloadURL: loc.DownloadURL,
		ExpiresIn:   loc.ExpiresIn,
	}, nil
}
