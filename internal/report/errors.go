package report

import "errors"

var (
	ErrUnauthorized          = errors.New("unauthorized")
	ErrNotFound              = errors.New("project not found")
	ErrInvalidReportType     = errors.New("invalid report type")
	ErrUnsupportedReportType = errors.New("unsupported report type")
	ErrUnsupportedFormat     = errors.New("unsupported export format")
	ErrInvalidDateRange      = errors.New("invalid date range")
)
