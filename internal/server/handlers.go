package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/Afrawles/trackreport/internal/api"
	"github.com/Afrawles/trackreport/internal/domain"
	"github.com/Afrawles/trackreport/internal/report"
)

// ReportService builds report envelopes for an authenticated caller.
type ReportService interface {
	GetReportData(ctx context.Context, scope report.Scope, projectID string, rng domain.DateRange, t report.Type) (report.Envelope, error)
}

// HealthChecker reports whether the backing store is reachable.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

var validate = validator.New(validator.WithRequiredStructEnabled())

func (s *Server) healthz(c *gin.Context) {
	if s.health != nil {
		if err := s.health.HealthCheck(c.Request.Context()); err != nil {
			s.log.Error().Err(err).Msg("health check failed")
			c.JSON(http.StatusServiceUnavailable, gin.H{"ok": false})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// exportReport returns the envelope; rendering happens on the client side.
func (s *Server) exportReport(c *gin.Context) {
	req, t, f, err := bindExport(c)
	if err != nil {
		writeError(c, s.log, err)
		return
	}

	env, err := s.reports.GetReportData(c.Request.Context(), scopeOf(c), req.ProjectID, req.DateRange.Domain(), t)
	if err != nil {
		writeError(c, s.log, err)
		return
	}

	c.JSON(http.StatusOK, api.ExportResponse{Success: true, Data: env, Format: f})
}

// downloadReport renders the envelope server-side and streams the file.
func (s *Server) downloadReport(c *gin.Context) {
	req, t, f, err := bindExport(c)
	if err != nil {
		writeError(c, s.log, err)
		return
	}

	env, err := s.reports.GetReportData(c.Request.Context(), scopeOf(c), req.ProjectID, req.DateRange.Domain(), t)
	if err != nil {
		writeError(c, s.log, err)
		return
	}

	out, err := s.exporter.Export(env, f)
	if err != nil {
		writeError(c, s.log, err)
		return
	}
	s.metrics.ExportRendered(f)

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", out.Filename))
	c.Data(http.StatusOK, out.ContentType, out.Bytes)
}

func (s *Server) getReport(c *gin.Context) {
	t, err := report.ParseType(c.Param("reportType"))
	if err != nil {
		writeError(c, s.log, err)
		return
	}

	rng, err := parseRange(c.Query("from"), c.Query("to"))
	if err != nil {
		writeError(c, s.log, err)
		return
	}

	env, err := s.reports.GetReportData(c.Request.Context(), scopeOf(c), c.Param("projectId"), rng, t)
	if err != nil {
		writeError(c, s.log, err)
		return
	}
	c.JSON(http.StatusOK, env)
}

func bindExport(c *gin.Context) (api.ExportRequest, report.Type, report.Format, error) {
	var req api.ExportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		return req, "", "", fmt.Errorf("%w: %v", errBadRequest, err)
	}
	if err := validate.Struct(req); err != nil {
		return req, "", "", fmt.Errorf("%w: %v", errBadRequest, err)
	}

	req = req.WithDefaults()
	t, err := report.ParseType(req.ReportType)
	if err != nil {
		return req, "", "", err
	}
	f, err := report.ParseFormat(req.Format)
	if err != nil {
		return req, "", "", err
	}
	return req, t, f, nil
}

func scopeOf(c *gin.Context) report.Scope {
	p := principalFrom(c)
	return report.Scope{UserID: p.UserID, OrgID: p.OrgID}
}

// parseRange accepts RFC 3339 timestamps or plain dates. A plain "to" date covers the whole day.
func parseRange(from, to string) (domain.DateRange, error) {
	f, err := parseBound(from, false)
	if err != nil {
		return domain.DateRange{}, fmt.Errorf("%w: from: %v", report.ErrInvalidDateRange, err)
	}
	t, err := parseBound(to, true)
	if err != nil {
		return domain.DateRange{}, fmt.Errorf("%w: to: %v", report.ErrInvalidDateRange, err)
	}
	return domain.DateRange{From: f, To: t}, nil
}

func parseBound(s string, endOfDay bool) (time.Time, error) {
	if s == "" {
		return time.Time{}, fmt.Errorf("missing")
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return time.Time{}, err
	}
	if endOfDay {
		t = t.Add(24*time.Hour - time.Nanosecond)
	}
	return t, nil
}
