package connector

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"go.uber.org/zap"

	"cloakedsheets/internal/domain"
)

const maxResponseBody = 10 << 20 // 10 MB

// HTTPClient is the real connector client over its REST surface.
type HTTPClient struct {
	baseURL string
	client  *http.Client
	logger  *zap.Logger
}

// NewHTTPClient creates a connector client for baseURL.
func NewHTTPClient(baseURL string, timeout time.Duration, logger *zap.Logger) *HTTPClient {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HTTPClient{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
		logger:  logger,
	}
}

var _ Client = (*HTTPClient)(nil)

// do performs one JSON round-trip and normalizes every failure into a
// *domain.APIError. out may be nil for responses whose body is ignored.
func (c *HTTPClient) do(ctx context.Context, method, path string, body any, out any) error {
	url := c.baseURL + path

	var reqBody io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return &domain.APIError{Method: method, URL: url, Message: fmt.Sprintf("encode request: %v", err)}
		}
		reqBody = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reqBody)
	if err != nil {
		return &domain.APIError{Method: method, URL: url, Message: fmt.Sprintf("create request: %v", err)}
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	return c.send(req, out)
}

func (c *HTTPClient) send(req *http.Request, out any) error {
	method, url := req.Method, req.URL.String()

	resp, err := c.client.Do(req)
	if err != nil {
		c.logger.Debug("connector request failed",
			zap.String("method", method), zap.String("url", url), zap.Error(err))
		return &domain.APIError{Method: method, URL: url, Message: err.Error()}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return &domain.APIError{
			Method: method, URL: url,
			Status: resp.StatusCode, StatusText: http.StatusText(resp.StatusCode),
			Message: fmt.Sprintf("read response: %v", err),
		}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &domain.APIError{
			Method: method, URL: url,
			Status: resp.StatusCode, StatusText: http.StatusText(resp.StatusCode),
			Message: errorMessage(raw, resp.StatusCode),
			Raw:     string(raw),
		}
	}

	if out != nil {
		if err := json.Unmarshal(raw, out); err != nil {
			return &domain.APIError{
				Method: method, URL: url,
				Status: resp.StatusCode, StatusText: http.StatusText(resp.StatusCode),
				Message: fmt.Sprintf("decode response: %v", err),
				Raw:     string(raw),
			}
		}
	}
	return nil
}

// errorMessage pulls the backend's error text out of a non-2xx body when
// there is one.
func errorMessage(raw []byte, status int) string {
	var payload struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(raw, &payload); err == nil {
		if payload.Error != "" {
			return payload.Error
		}
		if payload.Message != "" {
			return payload.Message
		}
	}
	return http.StatusText(status)
}

// CheckHealth calls GET /health.
func (c *HTTPClient) CheckHealth(ctx context.Context) (domain.HealthStatus, error) {
	var status domain.HealthStatus
	err := c.do(ctx, http.MethodGet, "/health", nil, &status)
	return status, err
}

// ListDatasets calls GET /datasets.
func (c *HTTPClient) ListDatasets(ctx context.Context) ([]domain.Dataset, error) {
	var resp struct {
		Datasets []domain.Dataset `json:"datasets"`
	}
	if err := c.do(ctx, http.MethodGet, "/datasets", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Datasets, nil
}

// GetDatasetCatalog calls GET /datasets/{id}/catalog.
func (c *HTTPClient) GetDatasetCatalog(ctx context.Context, datasetID string) (*domain.DatasetCatalog, error) {
	var catalog domain.DatasetCatalog
	if err := c.do(ctx, http.MethodGet, "/datasets/"+datasetID+"/catalog", nil, &catalog); err != nil {
		return nil, err
	}
	return &catalog, nil
}

// RegisterDataset calls POST /datasets/register.
func (c *HTTPClient) RegisterDataset(ctx context.Context, req domain.RegisterDatasetRequest) (*domain.Dataset, error) {
	var dataset domain.Dataset
	if err := c.do(ctx, http.MethodPost, "/datasets/register", req, &dataset); err != nil {
		return nil, err
	}
	return &dataset, nil
}

// IngestDataset calls POST /datasets/{id}/ingest.
func (c *HTTPClient) IngestDataset(ctx context.Context, datasetID string) (*domain.IngestResult, error) {
	var result domain.IngestResult
	if err := c.do(ctx, http.MethodPost, "/datasets/"+datasetID+"/ingest", nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// UploadDataset calls POST /datasets/upload with a multipart file body.
func (c *HTTPClient) UploadDataset(ctx context.Context, filename string, content []byte) (*domain.Dataset, error) {
	url := c.baseURL + "/datasets/upload"

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		return nil, &domain.APIError{Method: http.MethodPost, URL: url, Message: err.Error()}
	}
	if _, err := part.Write(content); err != nil {
		return nil, &domain.APIError{Method: http.MethodPost, URL: url, Message: err.Error()}
	}
	if err := writer.Close(); err != nil {
		return nil, &domain.APIError{Method: http.MethodPost, URL: url, Message: err.Error()}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, &buf)
	if err != nil {
		return nil, &domain.APIError{Method: http.MethodPost, URL: url, Message: err.Error()}
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	var dataset domain.Dataset
	if err := c.send(req, &dataset); err != nil {
		return nil, err
	}
	return &dataset, nil
}

// SendChatMessage calls POST /chat.
func (c *HTTPClient) SendChatMessage(ctx context.Context, req domain.ChatRequest) (*domain.ChatResponse, error) {
	var resp domain.ChatResponse
	if err := c.do(ctx, http.MethodPost, "/chat", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ExecuteQueries calls POST /queries/execute.
func (c *HTTPClient) ExecuteQueries(ctx context.Context, datasetID string, queries []domain.Query) ([]domain.QueryResult, error) {
	body := struct {
		DatasetID string         `json:"datasetId"`
		Queries   []domain.Query `json:"queries"`
	}{DatasetID: datasetID, Queries: queries}

	var resp struct {
		Results []domain.QueryResult `json:"results"`
	}
	if err := c.do(ctx, http.MethodPost, "/queries/execute", body, &resp); err != nil {
		return nil, err
	}
	return resp.Results, nil
}

// ListReports calls GET /reports.
func (c *HTTPClient) ListReports(ctx context.Context) ([]domain.Report, error) {
	var resp struct {
		Reports []domain.Report `json:"reports"`
	}
	if err := c.do(ctx, http.MethodGet, "/reports", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Reports, nil
}

// GetReport calls GET /reports/{id}.
func (c *HTTPClient) GetReport(ctx context.Context, id string) (*domain.Report, error) {
	var report domain.Report
	if err := c.do(ctx, http.MethodGet, "/reports/"+id, nil, &report); err != nil {
		return nil, err
	}
	return &report, nil
}
