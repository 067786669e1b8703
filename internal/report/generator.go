package report

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/Afrawles/trackreport/internal/domain"
)

// Scope identifies the caller a report is generated for.
type Scope struct {
	UserID string
	OrgID  string
}

// Observer is told about every report generation attempt.
type Observer interface {
	ReportGenerated(t Type, outcome string, elapsed time.Duration)
}

type nopObserver struct{}

func (nopObserver) ReportGenerated(Type, string, time.Duration) {}

const (
	OutcomeOK    = "ok"
	OutcomeError = "error"
)

// Service fetches the records a report needs and hands them to the assembler.
type Service struct {
	source    Source
	assembler *Assembler
	logger    zerolog.Logger
	observer  Observer
}

func NewService(source Source, assembler *Assembler, logger zerolog.Logger, observer Observer) *Service {
	if observer == nil {
		observer = nopObserver{}
	}
	return &Service{
		source:    source,
		assembler: assembler,
		logger:    logger.With().Str("component", "report").Logger(),
		observer:  observer,
	}
}

// GetReportData builds the envelope for one project and window. The project must belong to
// the caller's organization. Either a full envelope or an error is returned.
func (s *Service) GetReportData(ctx context.Context, scope Scope, projectID string, rng domain.DateRange, t Type) (Envelope, error) {
	start := time.Now()

	env, err := s.generate(ctx, scope, projectID, rng, t)
	outcome := OutcomeOK
	if err != nil {
		outcome = OutcomeError
	}
	s.observer.ReportGenerated(t, outcome, time.Since(start))

	if err != nil {
		s.logger.Warn().Err(err).
			Str("project", projectID).
			Str("type", string(t)).
			Msg("report generation failed")
		return Envelope{}, err
	}

	s.logger.Info().
		Str("project", projectID).
		Str("type", string(t)).
		Str("from", rng.From.Format(time.DateOnly)).
		Str("to", rng.To.Format(time.DateOnly)).
		Dur("elapsed", time.Since(start)).
		Msg("report generated")
	return env, nil
}

func (s *Service) generate(ctx context.Context, scope Scope, projectID string, rng domain.DateRange, t Type) (Envelope, error) {
	if !t.Valid() {
		return Envelope{}, fmt.Errorf("%w: %q", ErrInvalidReportType, t)
	}
	if scope.UserID == "" || scope.OrgID == "" {
		return Envelope{}, ErrUnauthorized
	}
	if err := rng.Validate(); err != nil {
		return Envelope{}, fmt.Errorf("%w: %v", ErrInvalidDateRange, err)
	}

	project, err := s.source.Project(ctx, scope.OrgID, projectID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Envelope{}, err
		}
		return Envelope{}, fmt.Errorf("load project %s: %w", projectID, err)
	}

	s.logger.Debug().Str("source", s.source.Name()).Str("project", project.ID).Str("type", string(t)).Msg("fetching records")

	ds, err := s.fetch(ctx, project.ID, rng, t)
	if err != nil {
		return Envelope{}, fmt.Errorf("fetch %s records: %w", t, err)
	}

	return s.assembler.Assemble(t, project, rng, ds)
}

func (s *Service) fetch(ctx context.Context, projectID string, rng domain.DateRange, t Type) (Dataset, error) {
	var (
		ds  Dataset
		err error
	)

	switch t {
	case TypeVelocity:
		ds.Sprints, err = s.source.SprintsWithIssues(ctx, projectID, rng)
	case TypeResolution:
		ds.Issues, err = s.source.ResolvedIssues(ctx, projectID, rng)
	case TypeTeam:
		if ds.Issues, err = s.source.IssuesCreatedIn(ctx, projectID, rng); err != nil {
			return Dataset{}, err
		}
		ds.Members, err = s.source.TeamMembers(ctx, projectID)
	case TypeTime:
		if ds.TimeLogs, err = s.source.TimeLogs(ctx, projectID, rng); err != nil {
			return Dataset{}, err
		}
		ds.Statuses, err = s.source.Statuses(ctx, projectID)
	}
	if err != nil {
		return Dataset{}, err
	}
	return ds, nil
}
