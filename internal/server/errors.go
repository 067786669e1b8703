package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/Afrawles/trackreport/internal/api"
	"github.com/Afrawles/trackreport/internal/report"
)

var (
	errBadRequest  = errors.New("bad request")
	errRateLimited = errors.New("rate limited")
)

type httpError struct {
	status  int
	message string
}

// classify maps an error to the status and fixed message shown to the caller.
func classify(err error) httpError {
	switch {
	case errors.Is(err, report.ErrUnauthorized):
		return httpError{http.StatusUnauthorized, "Unauthorized"}
	case errors.Is(err, report.ErrNotFound):
		return httpError{http.StatusNotFound, "Project not found"}
	case errors.Is(err, report.ErrInvalidReportType), errors.Is(err, report.ErrUnsupportedReportType):
		return httpError{http.StatusBadRequest, "Invalid report type"}
	case errors.Is(err, report.ErrUnsupportedFormat):
		return httpError{http.StatusBadRequest, "Unsupported export format"}
	case errors.Is(err, report.ErrInvalidDateRange):
		return httpError{http.StatusBadRequest, "Invalid date range"}
	case errors.Is(err, errBadRequest):
		return httpError{http.StatusBadRequest, "Invalid request body"}
	case errors.Is(err, errRateLimited):
		return httpError{http.StatusTooManyRequests, "Too many requests"}
	default:
		return httpError{http.StatusInternalServerError, "Failed to generate report"}
	}
}

// writeError aborts the request. Internal error text goes to the log only.
func writeError(c *gin.Context, log zerolog.Logger, err error) {
	he := classify(err)

	ev := log.Warn()
	if he.status >= http.StatusInternalServerError {
		ev = log.Error()
	}
	ev.Err(err).
		Str("request_id", requestIDFrom(c)).
		Int("status", he.status).
		Msg("request failed")

	c.AbortWithStatusJSON(he.status, api.ErrorResponse{Success: false, Error: he.message})
}
