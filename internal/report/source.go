package report

import (
	"context"

	"github.com/Afrawles/trackreport/internal/domain"
)

// Source is the read side of the tracker. Implementations return ErrNotFound when the
// project does not exist inside the given organization.
type Source interface {
	Name() string
	HealthCheck(ctx context.Context) error

	Project(ctx context.Context, orgID, projectID string) (domain.Project, error)
	// SprintsWithIssues returns sprints starting or ending in rng, each with all of its issues.
	SprintsWithIssues(ctx context.Context, projectID string, rng domain.DateRange) ([]domain.Sprint, error)
	// ResolvedIssues returns DONE issues last updated in rng.
	ResolvedIssues(ctx context.Context, projectID string, rng domain.DateRange) ([]domain.Issue, error)
	IssuesCreatedIn(ctx context.Context, projectID string, rng domain.DateRange) ([]domain.Issue, error)
	// TeamMembers returns users with at least one assigned issue in the project, ordered by name then id.
	TeamMembers(ctx context.Context, projectID string) ([]domain.User, error)
	// TimeLogs returns entries logged in rng against the project's issues, joined with the issue.
	TimeLogs(ctx context.Context, projectID string, rng domain.DateRange) ([]domain.TimeLogEntry, error)
	// Statuses returns the project's workflow statuses in board order.
	Statuses(ctx context.Context, projectID string) ([]string, error)
}
