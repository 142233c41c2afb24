package connector

import (
	"context"
	"sync"
	"time"

	"cloakedsheets/internal/domain"
)

// MockClient serves deterministic canned data so the gateway stays usable
// without a reachable connector. The chat flow is scripted: first message
// asks for a time period, answering it acknowledges the intent, "continue"
// triggers queries, and submitted results yield a final answer.
type MockClient struct {
	mu        sync.Mutex
	clarified map[string]bool // conversation IDs that already answered the clarification
}

// NewMockClient creates a demo connector client.
func NewMockClient() *MockClient {
	return &MockClient{clarified: make(map[string]bool)}
}

var _ Client = (*MockClient)(nil)

var mockDatasets = []domain.Dataset{
	{ID: "demo-sales", Name: "Demo Sales", Table: "sales", RowCount: 1248, Status: "ready"},
	{ID: "demo-customers", Name: "Demo Customers", Table: "customers", RowCount: 312, Status: "ready"},
}

var mockQueries = []domain.Query{
	{Name: "revenue_by_region", SQL: "SELECT region, SUM(amount) AS revenue FROM sales GROUP BY region ORDER BY revenue DESC"},
	{Name: "top_customers", SQL: "SELECT customer_email, SUM(amount) AS total FROM sales GROUP BY customer_email ORDER BY total DESC LIMIT 5"},
}

// CheckHealth always reports healthy.
func (m *MockClient) CheckHealth(ctx context.Context) (domain.HealthStatus, error) {
	return domain.HealthStatus{Status: "ok", Version: "demo"}, nil
}

// ListDatasets returns the canned demo datasets.
func (m *MockClient) ListDatasets(ctx context.Context) ([]domain.Dataset, error) {
	return mockDatasets, nil
}

// GetDatasetCatalog returns a canned schema for any dataset ID.
func (m *MockClient) GetDatasetCatalog(ctx context.Context, datasetID string) (*domain.DatasetCatalog, error) {
	return &domain.DatasetCatalog{
		Table:                  "sales",
		RowCount:               1248,
		Columns:                []string{"order_id", "order_date", "region", "customer_email", "customer_phone", "amount"},
		PIIColumns:             []string{"customer_email", "customer_phone"},
		DetectedDateColumns:    []string{"order_date"},
		DetectedNumericColumns: []string{"amount"},
	}, nil
}

// RegisterDataset pretends registration succeeded.
func (m *MockClient) RegisterDataset(ctx context.Context, req domain.RegisterDatasetRequest) (*domain.Dataset, error) {
	return &domain.Dataset{
		ID:        "demo-" + req.Name,
		Name:      req.Name,
		Table:     req.Name,
		Status:    "registered",
		CreatedAt: time.Now(),
	}, nil
}

// IngestDataset pretends ingestion succeeded.
func (m *MockClient) IngestDataset(ctx context.Context, datasetID string) (*domain.IngestResult, error) {
	return &domain.IngestResult{DatasetID: datasetID, Status: "ready", RowCount: 1248}, nil
}

// UploadDataset pretends the upload succeeded.
func (m *MockClient) UploadDataset(ctx context.Context, filename string, content []byte) (*domain.Dataset, error) {
	return &domain.Dataset{
		ID:        "demo-upload",
		Name:      filename,
		Table:     "uploaded",
		RowCount:  len(content) / 64,
		Status:    "ready",
		CreatedAt: time.Now(),
	}, nil
}

// SendChatMessage walks the scripted demo turn flow.
func (m *MockClient) SendChatMessage(ctx context.Context, req domain.ChatRequest) (*domain.ChatResponse, error) {
	if req.Intent != "" {
		m.mu.Lock()
		m.clarified[req.ConversationID] = true
		m.mu.Unlock()
		return &domain.ChatResponse{
			Type:   domain.KindIntentAcknowledged,
			Intent: req.Intent,
			Value:  req.Value,
		}, nil
	}

	if len(req.ResultsContext) > 0 {
		executed := make([]domain.ExecutedQuery, 0, len(req.ResultsContext))
		for _, res := range req.ResultsContext {
			executed = append(executed, domain.ExecutedQuery{
				Name:     res.Name,
				SQL:      sqlFor(res.Name),
				RowCount: len(res.Rows),
			})
		}
		return &domain.ChatResponse{
			Type: domain.KindFinalAnswer,
			SummaryMarkdown: "## Demo analysis\n\nRevenue is concentrated in the **north** region, " +
				"with an unusual spike in the last week of the period.",
			Tables: req.ResultsContext,
			Audit: &domain.Audit{
				AnalysisType:    "revenue_breakdown",
				TimePeriod:      "last_30_days",
				AIAssist:        req.AIAssist,
				SafeMode:        req.SafeMode,
				PrivacyMode:     req.PrivacyMode,
				ExecutedQueries: executed,
				Anomalies:       []string{"revenue spike in week 4"},
			},
		}, nil
	}

	m.mu.Lock()
	clarified := m.clarified[req.ConversationID]
	m.mu.Unlock()

	if !clarified && req.Message != "continue" {
		return &domain.ChatResponse{
			Type:          domain.KindNeedsClarification,
			Question:      "Which time period should the analysis cover?",
			Choices:       []string{"last_7_days", "last_30_days", "all_time"},
			AllowFreeText: true,
			Intent:        "set_time_period",
		}, nil
	}

	return &domain.ChatResponse{
		Type:        domain.KindRunQueries,
		Queries:     mockQueries,
		Explanation: "Breaking revenue down by region and top customers.",
	}, nil
}

func sqlFor(name string) string {
	for _, q := range mockQueries {
		if q.Name == name {
			return q.SQL
		}
	}
	return ""
}

// ExecuteQueries returns canned rows, including PII-shaped values so the
// privacy filter has something to chew on in demos.
func (m *MockClient) ExecuteQueries(ctx context.Context, datasetID string, queries []domain.Query) ([]domain.QueryResult, error) {
	results := make([]domain.QueryResult, 0, len(queries))
	for _, q := range queries {
		switch q.Name {
		case "top_customers":
			results = append(results, domain.QueryResult{
				Name:    q.Name,
				Columns: []string{"customer_email", "total"},
				Rows: [][]any{
					{"alice@example.com", 4820.5},
					{"bob@example.com", 3110.0},
					{"carol@example.com", 2895.25},
				},
			})
		default:
			results = append(results, domain.QueryResult{
				Name:    q.Name,
				Columns: []string{"region", "revenue"},
				Rows: [][]any{
					{"north", 18230.0},
					{"south", 9120.5},
					{"west", 7305.0},
				},
			})
		}
	}
	return results, nil
}

// ListReports returns the canned report list.
func (m *MockClient) ListReports(ctx context.Context) ([]domain.Report, error) {
	return []domain.Report{
		{
			ID:        "demo-report-1",
			Title:     "Demo revenue breakdown",
			DatasetID: "demo-sales",
			CreatedAt: time.Date(2026, 1, 15, 9, 30, 0, 0, time.UTC),
		},
	}, nil
}

// GetReport returns a canned report for the demo ID.
func (m *MockClient) GetReport(ctx context.Context, id string) (*domain.Report, error) {
	if id != "demo-report-1" {
		return nil, &domain.APIError{
			Status: 404, StatusText: "Not Found",
			Method: "GET", URL: "/reports/" + id,
			Message: "report not found",
		}
	}
	return &domain.Report{
		ID:              "demo-report-1",
		Title:           "Demo revenue breakdown",
		DatasetID:       "demo-sales",
		SummaryMarkdown: "Revenue is concentrated in the north region.",
		CreatedAt:       time.Date(2026, 1, 15, 9, 30, 0, 0, time.UTC),
	}, nil
}
