package report

import (
	"fmt"
	"strings"
)

// Type selects which aggregation and layout a report uses.
type Type string

const (
	TypeVelocity   Type = "velocity"
	TypeResolution Type = "resolution"
	TypeTeam       Type = "team"
	TypeTime       Type = "time"
)

// Types lists every report type in menu order.
var Types = []Type{TypeVelocity, TypeResolution, TypeTeam, TypeTime}

var titles = map[Type]string{
	TypeVelocity:   "Sprint Velocity Report",
	TypeResolution: "Issue Resolution Time Report",
	TypeTeam:       "Team Performance Report",
	TypeTime:       "Time Tracking Summary Report",
}

func (t Type) Valid() bool {
	_, ok := titles[t]
	return ok
}

// Title is the human-readable report title, empty for unknown types.
func (t Type) Title() string {
	return titles[t]
}

// ParseType accepts a report type name case-insensitively.
func ParseType(s string) (Type, error) {
	t := Type(strings.ToLower(strings.TrimSpace(s)))
	if !t.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidReportType, s)
	}
	return t, nil
}

// Format is an export encoding.
type Format string

const (
	FormatPDF  Format = "pdf"
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
	FormatJSON Format = "json"
)

var Formats = []Format{FormatPDF, FormatCSV, FormatXLSX, FormatJSON}

var contentTypes = map[Format]string{
	FormatPDF:  "application/pdf",
	FormatCSV:  "text/csv; charset=utf-8",
	FormatXLSX: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
	FormatJSON: "application/json",
}

func (f Format) Valid() bool {
	_, ok := contentTypes[f]
	return ok
}

func (f Format) ContentType() string {
	return contentTypes[f]
}

func ParseFormat(s string) (Format, error) {
	f := Format(strings.ToLower(strings.TrimSpace(s)))
	if !f.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, s)
	}
	return f, nil
}
