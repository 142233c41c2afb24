package domain

import "time"

// Dataset is one spreadsheet dataset registered with the connector.
type Dataset struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Table     string    `json:"table"`
	RowCount  int       `json:"rowCount"`
	Status    string    `json:"status,omitempty"` // registered, ingesting, ready, failed
	CreatedAt time.Time `json:"createdAt,omitempty"`
}

// DatasetCatalog is the read-only schema description of one dataset. It is
// cached per active dataset and invalidated on dataset switch or disconnect.
type DatasetCatalog struct {
	Table                  string   `json:"table"`
	RowCount               int      `json:"rowCount"`
	Columns                []string `json:"columns"`
	PIIColumns             []string `json:"piiColumns,omitempty"`
	DetectedDateColumns    []string `json:"detectedDateColumns,omitempty"`
	DetectedNumericColumns []string `json:"detectedNumericColumns,omitempty"`
}

// RegisterDatasetRequest registers a dataset source with the connector.
type RegisterDatasetRequest struct {
	Name   string `json:"name"`
	Source string `json:"source"`
}

// IngestResult reports the outcome of an ingestion job.
type IngestResult struct {
	DatasetID string `json:"datasetId"`
	Status    string `json:"status"`
	RowCount  int    `json:"rowCount"`
}

// Report is a stored analysis report on the connector side.
type Report struct {
	ID              string        `json:"id"`
	Title           string        `json:"title"`
	DatasetID       string        `json:"datasetId,omitempty"`
	SummaryMarkdown string        `json:"summaryMarkdown,omitempty"`
	Tables          []QueryResult `json:"tables,omitempty"`
	CreatedAt       time.Time     `json:"createdAt"`
}

// HealthStatus is the connector's health report.
type HealthStatus struct {
	Status  string `json:"status"`
	Version string `json:"version,omitempty"`
}

// Ready reports whether the connector considers itself healthy.
func (h HealthStatus) Ready() bool {
	return h.Status == "ok" || h.Status == "healthy"
}
