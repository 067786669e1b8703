package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Afrawles/trackreport/internal/report"
)

func TestReportGenerated(t *testing.T) {
	m := New()

	m.ReportGenerated(report.TypeTeam, report.OutcomeOK, 40*time.Millisecond)
	m.ReportGenerated(report.TypeTeam, report.OutcomeError, time.Millisecond)
	m.ReportGenerated(report.TypeTeam, report.OutcomeOK, time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.ReportsGenerated.WithLabelValues("team", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ReportsGenerated.WithLabelValues("team", "error")))
}

func TestHandlerExposesCounters(t *testing.T) {
	m := New()
	m.ExportRendered(report.FormatPDF)
	m.ObserveHTTP(http.MethodPost, "/api/reports/export", 200, time.Millisecond)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `trackreport_exports_total{format="pdf"} 1`)
	assert.Contains(t, body, `trackreport_http_requests_total{method="POST",route="/api/reports/export",status="200"} 1`)
}
