package report

import (
	"fmt"

	"github.com/Afrawles/trackreport/internal/analytics"
	"github.com/Afrawles/trackreport/internal/domain"
)

// Aggregator is the metric computation the assembler delegates to; *analytics.Aggregator
// satisfies it.
type Aggregator interface {
	SprintVelocity(sprints []domain.Sprint, rng domain.DateRange) analytics.VelocityResult
	ResolutionTimes(issues []domain.Issue, rng domain.DateRange) analytics.ResolutionResult
	TeamPerformance(members []domain.User, issues []domain.Issue, rng domain.DateRange) analytics.TeamResult
	TimeTracking(entries []domain.TimeLogEntry, statuses []string, projectID string, rng domain.DateRange) analytics.TimeResult
}

// Dataset carries the records one report needs. Only the fields for the requested type are read.
type Dataset struct {
	Sprints  []domain.Sprint
	Issues   []domain.Issue
	Members  []domain.User
	TimeLogs []domain.TimeLogEntry
	Statuses []string
}

type Assembler struct {
	agg Aggregator
}

func NewAssembler(agg Aggregator) *Assembler {
	return &Assembler{agg: agg}
}

// Assemble validates the report type, then runs the matching aggregation and wraps the result.
func (a *Assembler) Assemble(t Type, project domain.Project, rng domain.DateRange, ds Dataset) (Envelope, error) {
	if !t.Valid() {
		return Envelope{}, fmt.Errorf("%w: %q", ErrInvalidReportType, t)
	}

	env := Envelope{
		ProjectName: project.Name,
		ProjectKey:  project.Key,
		ReportTitle: t.Title(),
		ReportType:  t,
		DateRange:   rng,
	}

	switch t {
	case TypeVelocity:
		env.Data = a.agg.SprintVelocity(ds.Sprints, rng)
	case TypeResolution:
		env.Data = a.agg.ResolutionTimes(ds.Issues, rng)
	case TypeTeam:
		env.Data = a.agg.TeamPerformance(ds.Members, ds.Issues, rng)
	case TypeTime:
		env.Data = a.agg.TimeTracking(ds.TimeLogs, ds.Statuses, project.ID, rng)
	}
	return env, nil
}
