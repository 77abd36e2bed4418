package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"okrdrift/internal/platform/logger"
)

// maxBodyBytes bounds how much of a response body is read
const maxBodyBytes = 8 << 20

// AnalyzeRequest is the wire body of POST /analyze
type AnalyzeRequest struct {
	StudentID     int64  `json:"student_id"`
	QuarterlyGoal string `json:"quarterly_goal"`
	CurrentLevel  string `json:"current_level"`
}

// AnalysisResponse is a raw response from the analysis service
type AnalysisResponse struct {
	StatusCode int
	Body       []byte
}

// OK reports a 2xx status
func (r AnalysisResponse) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// AnalysisAPI is the outbound surface of the analysis service
type AnalysisAPI interface {
	Health(ctx context.Context) (AnalysisResponse, error)
	Analyze(ctx context.Context, req AnalyzeRequest) (AnalysisResponse, error)
	Reports(ctx context.Context, studentID string) (AnalysisResponse, error)
}

// AnalysisClient wraps the analysis service HTTP API. Every call is a single attempt;
// deadlines come from the caller's context.
type AnalysisClient struct {
	baseURL    string
	httpClient *http.Client
	log        *logger.Logger
}

// NewAnalysisClient creates a client for baseURL. A nil httpClient uses a client with no
// timeout of its own.
func NewAnalysisClient(baseURL string, httpClient *http.Client, log *logger.Logger) *AnalysisClient {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &AnalysisClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
		log:        log.Component("analysis_client"),
	}
}

func (c *AnalysisClient) Health(ctx context.Context) (AnalysisResponse, error) {
	return c.doRequest(ctx, http.MethodGet, "/health", nil)
}

func (c *AnalysisClient) Analyze(ctx context.Context, req AnalyzeRequest) (AnalysisResponse, error) {
	return c.doRequest(ctx, http.MethodPost, "/analyze", req)
}

func (c *AnalysisClient) Reports(ctx context.Context, studentID string) (AnalysisResponse, error) {
	return c.doRequest(ctx, http.MethodGet, "/reports/"+url.PathEscape(studentID), nil)
}

// doRequest performs one HTTP request. A non-2xx status is not an error here; callers classify it.
func (c *AnalysisClient) doRequest(ctx context.Context, method, path string, payload interface{}) (AnalysisResponse, error) {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return AnalysisResponse{}, fmt.Errorf("failed to encode request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return AnalysisResponse{}, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	c.log.Debug("request", "method", method, "path", path)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.log.Warn("request failed", "method", method, "path", path, "error", err)
		return AnalysisResponse{}, fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		c.log.Warn("failed to read response body", "method", method, "path", path, "error", err)
		return AnalysisResponse{}, fmt.Errorf("read %s %s: %w", method, path, err)
	}

	c.log.Debug("response", "method", method, "path", path, "status", resp.StatusCode, "bytes", len(respBody))
	return AnalysisResponse{StatusCode: resp.StatusCode, Body: respBody}, nil
}
