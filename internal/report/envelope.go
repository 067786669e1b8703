package report

import (
	"encoding/json"
	"fmt"

	"github.com/Afrawles/trackreport/internal/analytics"
	"github.com/Afrawles/trackreport/internal/domain"
)

// Envelope is a finished report: project identity, window and the type-specific payload.
// Data holds one of analytics.VelocityResult, ResolutionResult, TeamResult or TimeResult
// matching ReportType.
type Envelope struct {
	ProjectName string           `json:"projectName"`
	ProjectKey  string           `json:"projectKey"`
	ReportTitle string           `json:"reportTitle"`
	ReportType  Type             `json:"reportType"`
	DateRange   domain.DateRange `json:"dateRange"`
	Data        any              `json:"data"`
}

func (e *Envelope) UnmarshalJSON(b []byte) error {
	var aux struct {
		ProjectName string           `json:"projectName"`
		ProjectKey  string           `json:"projectKey"`
		ReportTitle string           `json:"reportTitle"`
		ReportType  Type             `json:"reportType"`
		DateRange   domain.DateRange `json:"dateRange"`
		Data        json.RawMessage  `json:"data"`
	}
	if err := json.Unmarshal(b, &aux); err != nil {
		return err
	}

	data, err := decodeData(aux.ReportType, aux.Data)
	if err != nil {
		return err
	}

	*e = Envelope{
		ProjectName: aux.ProjectName,
		ProjectKey:  aux.ProjectKey,
		ReportTitle: aux.ReportTitle,
		ReportType:  aux.ReportType,
		DateRange:   aux.DateRange,
		Data:        data,
	}
	return nil
}

func decodeData(t Type, raw json.RawMessage) (any, error) {
	switch t {
	case TypeVelocity:
		return decodeAs[analytics.VelocityResult](t, raw)
	case TypeResolution:
		return decodeAs[analytics.ResolutionResult](t, raw)
	case TypeTeam:
		return decodeAs[analytics.TeamResult](t, raw)
	case TypeTime:
		return decodeAs[analytics.TimeResult](t, raw)
	}
	return nil, fmt.Errorf("%w: %q", ErrUnsupportedReportType, t)
}

func decodeAs[T any](t Type, raw json.RawMessage) (any, error) {
	var v T
	if len(raw) == 0 || string(raw) == "null" {
		return v, nil
	}
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, fmt.Errorf("decode %s data: %w", t, err)
	}
	return v, nil
}

func (e Envelope) Velocity() (analytics.VelocityResult, bool) {
	v, ok := e.Data.(analytics.VelocityResult)
	return v, ok
}

func (e Envelope) Resolution() (analytics.ResolutionResult, bool) {
	v, ok := e.Data.(analytics.ResolutionResult)
	return v, ok
}

func (e Envelope) Team() (analytics.TeamResult, bool) {
	v, ok := e.Data.(analytics.TeamResult)
	return v, ok
}

func (e Envelope) Time() (analytics.TimeResult, bool) {
	v, ok := e.Data.(analytics.TimeResult)
	return v, ok
}
