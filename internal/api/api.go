// Package api holds the JSON bodies exchanged between the report server and its clients.
package api

import (
	"time"

	"github.com/Afrawles/trackreport/internal/domain"
	"github.com/Afrawles/trackreport/internal/report"
)

const (
	DefaultReportType = report.TypeVelocity
	DefaultFormat     = report.FormatPDF
)

type DateRange struct {
	From time.Time `json:"from" validate:"required"`
	To   time.Time `json:"to" validate:"required"`
}

func (r DateRange) Domain() domain.DateRange {
	return domain.DateRange{From: r.From, To: r.To}
}

// ExportRequest selects a project, window, report type and output format. Empty type and
// format fall back to velocity and pdf.
type ExportRequest struct {
	ProjectID  string    `json:"projectId" validate:"required"`
	DateRange  DateRange `json:"dateRange"`
	ReportType string    `json:"reportType,omitempty"`
	Format     string    `json:"format,omitempty"`
}

// WithDefaults fills in the default report type and format.
func (r ExportRequest) WithDefaults() ExportRequest {
	if r.ReportType == "" {
		r.ReportType = string(DefaultReportType)
	}
	if r.Format == "" {
		r.Format = string(DefaultFormat)
	}
	return r
}

type ExportResponse struct {
	Success bool            `json:"success"`
	Data    report.Envelope `json:"data"`
	Format  report.Format   `json:"format"`
}

type ErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}
