package connector

import (
	"context"

	"go.uber.org/zap"

	"cloakedsheets/internal/domain"
)

// Fallback tries the real connector first and degrades read operations to
// the mock client on failure. It is only constructed when demo mode is on,
// so a connector outage never deadlocks the UI. Mutating operations
// (register, ingest, upload) surface their errors instead of pretending.
type Fallback struct {
	primary Client
	demo    Client
	logger  *zap.Logger
}

// NewFallback wraps primary with demo-data degradation.
func NewFallback(primary, demo Client, logger *zap.Logger) *Fallback {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Fallback{primary: primary, demo: demo, logger: logger}
}

var _ Client = (*Fallback)(nil)

func (f *Fallback) fellBack(op string, err error) {
	f.logger.Warn("connector call failed, serving demo data",
		zap.String("operation", op), zap.Error(err))
}

func (f *Fallback) CheckHealth(ctx context.Context) (domain.HealthStatus, error) {
	status, err := f.primary.CheckHealth(ctx)
	if err != nil {
		f.fellBack("checkHealth", err)
		return f.demo.CheckHealth(ctx)
	}
	return status, nil
}

func (f *Fallback) ListDatasets(ctx context.Context) ([]domain.Dataset, error) {
	datasets, err := f.primary.ListDatasets(ctx)
	if err != nil {
		f.fellBack("listDatasets", err)
		return f.demo.ListDatasets(ctx)
	}
	return datasets, nil
}

func (f *Fallback) GetDatasetCatalog(ctx context.Context, datasetID string) (*domain.DatasetCatalog, error) {
	catalog, err := f.primary.GetDatasetCatalog(ctx, datasetID)
	if err != nil {
		f.fellBack("getDatasetCatalog", err)
		return f.demo.GetDatasetCatalog(ctx, datasetID)
	}
	return catalog, nil
}

func (f *Fallback) RegisterDataset(ctx context.Context, req domain.RegisterDatasetRequest) (*domain.Dataset, error) {
	return f.primary.RegisterDataset(ctx, req)
}

func (f *Fallback) IngestDataset(ctx context.Context, datasetID string) (*domain.IngestResult, error) {
	return f.primary.IngestDataset(ctx, datasetID)
}

func (f *Fallback) UploadDataset(ctx context.Context, filename string, content []byte) (*domain.Dataset, error) {
	return f.primary.UploadDataset(ctx, filename, content)
}

func (f *Fallback) SendChatMessage(ctx context.Context, req domain.ChatRequest) (*domain.ChatResponse, error) {
	resp, err := f.primary.SendChatMessage(ctx, req)
	if err != nil {
		f.fellBack("sendChatMessage", err)
		return f.demo.SendChatMessage(ctx, req)
	}
	return resp, nil
}

func (f *Fallback) ExecuteQueries(ctx context.Context, datasetID string, queries []domain.Query) ([]domain.QueryResult, error) {
	results, err := f.primary.ExecuteQueries(ctx, datasetID, queries)
	if err != nil {
		f.fellBack("executeQueries", err)
		return f.demo.ExecuteQueries(ctx, datasetID, queries)
	}
	return results, nil
}

func (f *Fallback) ListReports(ctx context.Context) ([]domain.Report, error) {
	reports, err := f.primary.ListReports(ctx)
	if err != nil {
		f.fellBack("listReports", err)
		return f.demo.ListReports(ctx)
	}
	return reports, nil
}

func (f *Fallback) GetReport(ctx context.Context, id string) (*domain.Report, error) {
	report, err := f.primary.GetReport(ctx, id)
	if err != nil {
		f.fellBack("getReport", err)
		return f.demo.GetReport(ctx, id)
	}
	return report, nil
}
