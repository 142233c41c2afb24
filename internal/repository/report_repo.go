package repository

import (
	"database/sql"
	"encoding/json"
	"time"

	"cloakedsheets/internal/domain"
)

// ReportRepository caches connector reports locally so the report list
// survives a connector outage.
type ReportRepository struct {
	db *DB
}

// NewReportRepository creates a new report repository
func NewReportRepository(db *DB) *ReportRepository {
	return &ReportRepository{db: db}
}

// Save upserts one report into the local cache.
func (r *ReportRepository) Save(report domain.Report) error {
	tablesJSON, _ := json.Marshal(report.Tables)
	if report.CreatedAt.IsZero() {
		report.CreatedAt = time.Now()
	}
	_, err := r.db.Exec(`
		INSERT INTO reports (id, title, dataset_id, summary, tables, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title = excluded.title,
			summary = excluded.summary,
			tables = excluded.tables
	`, report.ID, report.Title, report.DatasetID, report.SummaryMarkdown,
		string(tablesJSON), report.CreatedAt)
	return err
}

// List returns all cached reports, newest first.
func (r *ReportRepository) List() ([]domain.Report, error) {
	rows, err := r.db.Query(`
		SELECT id, title, dataset_id, summary, tables, created_at
		FROM reports ORDER BY created_at DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var reports []domain.Report
	for rows.Next() {
		report, err := scanReport(rows.Scan)
		if err != nil {
			return nil, err
		}
		reports = append(reports, report)
	}
	return reports, rows.Err()
}

// Get retrieves one cached report, nil when absent.
func (r *ReportRepository) Get(id string) (*domain.Report, error) {
	row := r.db.QueryRow(`
		SELECT id, title, dataset_id, summary, tables, created_at
		FROM reports WHERE id = ?
	`, id)
	report, err := scanReport(row.Scan)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &report, nil
}

func scanReport(scan func(...any) error) (domain.Report, error) {
	var report domain.Report
	var datasetID, summary, tablesJSON sql.NullString

	if err := scan(&report.ID, &report.Title, &datasetID, &summary,
		&tablesJSON, &report.CreatedAt); err != nil {
		return report, err
	}
	report.DatasetID = datasetID.String
	report.SummaryMarkdown = summary.String
	if tablesJSON.Valid && tablesJSON.String != "" && tablesJSON.String != "null" {
		json.Unmarshal([]byte(tablesJSON.String), &report.Tables)
	}
	return report, nil
}
