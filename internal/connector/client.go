// Package connector talks to the remote data-analysis backend. The real
// REST client and the canned demo client implement the same interface, so
// callers never branch on demo mode themselves.
package connector

import (
	"context"

	"cloakedsheets/internal/domain"
)

// Client is the full connector surface consumed by the gateway. Every
// failure is returned as a *domain.APIError; implementations never panic
// and never leak transport errors in another shape.
type Client interface {
	CheckHealth(ctx context.Context) (domain.HealthStatus, error)
	ListDatasets(ctx context.Context) ([]domain.Dataset, error)
	GetDatasetCatalog(ctx context.Context, datasetID string) (*domain.DatasetCatalog, error)
	RegisterDataset(ctx context.Context, req domain.RegisterDatasetRequest) (*domain.Dataset, error)
	IngestDataset(ctx context.Context, datasetID string) (*domain.IngestResult, error)
	UploadDataset(ctx context.Context, filename string, content []byte) (*domain.Dataset, error)
	SendChatMessage(ctx context.Context, req domain.ChatRequest) (*domain.ChatResponse, error)
	ExecuteQueries(ctx context.Context, datasetID string, queries []domain.Query) ([]domain.QueryResult, error)
	ListReports(ctx context.Context) ([]domain.Report, error)
	GetReport(ctx context.Context, id string) (*domain.Report, error)
}
