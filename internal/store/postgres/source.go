package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/Afrawles/trackreport/internal/domain"
	"github.com/Afrawles/trackreport/internal/report"
)

const issueColumns = `i.id, i.title, i.status, i.priority, COALESCE(i.assignee_id, ''), i.reporter_id,
    i.project_id, COALESCE(i.sprint_id, ''), i.created_at, i.updated_at, i.total_time_spent`

const (
	projectQuery = `SELECT id, name, key, organization_id
FROM projects
WHERE id = $1 AND organization_id = $2`

	sprintsQuery = `SELECT id, name, project_id, start_date, end_date
FROM sprints
WHERE project_id = $1
  AND (start_date BETWEEN $2 AND $3 OR end_date BETWEEN $2 AND $3)
ORDER BY start_date, id`

	sprintIssuesQuery = `SELECT ` + issueColumns + `
FROM issues i
WHERE i.sprint_id = ANY($1)
ORDER BY i.created_at, i.id`

	resolvedIssuesQuery = `SELECT ` + issueColumns + `
FROM issues i
WHERE i.project_id = $1
  AND i.status = 'DONE'
  AND i.updated_at BETWEEN $2 AND $3
ORDER BY i.updated_at, i.id`

	createdIssuesQuery = `SELECT ` + issueColumns + `
FROM issues i
WHERE i.project_id = $1
  AND i.created_at BETWEEN $2 AND $3
ORDER BY i.created_at, i.id`

	teamMembersQuery = `SELECT DISTINCT u.id, COALESCE(u.name, '') AS name
FROM users u
JOIN issues i ON i.assignee_id = u.id
WHERE i.project_id = $1
ORDER BY name, u.id`

	timeLogsQuery = `SELECT t.id, t.issue_id, t.user_id, t.time_spent, t.logged_at, COALESCE(t.description, ''),
    ` + issueColumns + `
FROM time_logs t
JOIN issues i ON i.id = t.issue_id
WHERE i.project_id = $1
  AND t.logged_at BETWEEN $2 AND $3
ORDER BY t.logged_at, t.id`

	statusesQuery = `SELECT name
FROM workflow_statuses
WHERE project_id = $1
ORDER BY position, name`
)

var _ report.Source = (*Postgres)(nil)

// Project returns report.ErrNotFound when the project is missing or belongs to another organization.
func (p *Postgres) Project(ctx context.Context, orgID, projectID string) (domain.Project, error) {
	ctx, cancel := p.queryCtx(ctx)
	defer cancel()

	var pr domain.Project
	err := p.db.QueryRow(ctx, projectQuery, projectID, orgID).
		Scan(&pr.ID, &pr.Name, &pr.Key, &pr.OrganizationID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Project{}, report.ErrNotFound
		}
		p.log.Error().Err(err).Str("project_id", projectID).Msg("failed to load project")
		return domain.Project{}, fmt.Errorf("get project: %w", err)
	}
	return pr, nil
}

func (p *Postgres) SprintsWithIssues(ctx context.Context, projectID string, rng domain.DateRange) ([]domain.Sprint, error) {
	ctx, cancel := p.queryCtx(ctx)
	defer cancel()

	rows, err := p.db.Query(ctx, sprintsQuery, projectID, rng.From, rng.To)
	if err != nil {
		return nil, fmt.Errorf("list sprints: %w", err)
	}
	sprints, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.Sprint, error) {
		var s domain.Sprint
		err := row.Scan(&s.ID, &s.Name, &s.ProjectID, &s.StartDate, &s.EndDate)
		return s, err
	})
	if err != nil {
		p.log.Error().Err(err).Str("project_id", projectID).Msg("failed to scan sprints")
		return nil, fmt.Errorf("scan sprints: %w", err)
	}
	if len(sprints) == 0 {
		return sprints, nil
	}

	ids := make([]string, len(sprints))
	index := make(map[string]int, len(sprints))
	for i, s := range sprints {
		ids[i] = s.ID
		index[s.ID] = i
		sprints[i].Issues = []domain.Issue{}
	}

	issues, err := p.queryIssues(ctx, "sprint issues", sprintIssuesQuery, ids)
	if err != nil {
		return nil, err
	}
	for _, is := range issues {
		if i, ok := index[is.SprintID]; ok {
			sprints[i].Issues = append(sprints[i].Issues, is)
		}
	}
	return sprints, nil
}

func (p *Postgres) ResolvedIssues(ctx context.Context, projectID string, rng domain.DateRange) ([]domain.Issue, error) {
	ctx, cancel := p.queryCtx(ctx)
	defer cancel()
	return p.queryIssues(ctx, "resolved issues", resolvedIssuesQuery, projectID, rng.From, rng.To)
}

func (p *Postgres) IssuesCreatedIn(ctx context.Context, projectID string, rng domain.DateRange) ([]domain.Issue, error) {
	ctx, cancel := p.queryCtx(ctx)
	defer cancel()
	return p.queryIssues(ctx, "created issues", createdIssuesQuery, projectID, rng.From, rng.To)
}

func (p *Postgres) TeamMembers(ctx context.Context, projectID string) ([]domain.User, error) {
	ctx, cancel := p.queryCtx(ctx)
	defer cancel()

	rows, err := p.db.Query(ctx, teamMembersQuery, projectID)
	if err != nil {
		return nil, fmt.Errorf("list team members: %w", err)
	}
	defer rows.Close()

	users := make([]domain.User, 0)
	for rows.Next() {
		var u domain.User
		if err := rows.Scan(&u.ID, &u.Name); err != nil {
			return nil, fmt.Errorf("scan team member: %w", err)
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		p.log.Error().Err(err).Str("project_id", projectID).Msg("failed to iterate team members")
		return nil, fmt.Errorf("iterate team members: %w", err)
	}
	return users, nil
}

func (p *Postgres) TimeLogs(ctx context.Context, projectID string, rng domain.DateRange) ([]domain.TimeLogEntry, error) {
	ctx, cancel := p.queryCtx(ctx)
	defer cancel()

	rows, err := p.db.Query(ctx, timeLogsQuery, projectID, rng.From, rng.To)
	if err != nil {
		return nil, fmt.Errorf("list time logs: %w", err)
	}
	defer rows.Close()

	entries := make([]domain.TimeLogEntry, 0)
	for rows.Next() {
		var e domain.TimeLogEntry
		dest := append([]any{&e.ID, &e.IssueID, &e.UserID, &e.TimeSpent, &e.LoggedAt, &e.Description},
			issueDest(&e.Issue)...)
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("scan time log: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		p.log.Error().Err(err).Str("project_id", projectID).Msg("failed to iterate time logs")
		return nil, fmt.Errorf("iterate time logs: %w", err)
	}
	return entries, nil
}

// Statuses falls back to the default workflow when the project has none configured.
func (p *Postgres) Statuses(ctx context.Context, projectID string) ([]string, error) {
	ctx, cancel := p.queryCtx(ctx)
	defer cancel()

	rows, err := p.db.Query(ctx, statusesQuery, projectID)
	if err != nil {
		return nil, fmt.Errorf("list statuses: %w", err)
	}
	statuses, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("scan statuses: %w", err)
	}
	if len(statuses) == 0 {
		return append([]string(nil), domain.DefaultStatuses...), nil
	}
	return statuses, nil
}

func (p *Postgres) queryIssues(ctx context.Context, what, query string, args ...any) ([]domain.Issue, error) {
	rows, err := p.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", what, err)
	}
	defer rows.Close()

	issues := make([]domain.Issue, 0)
	for rows.Next() {
		var is domain.Issue
		if err := rows.Scan(issueDest(&is)...); err != nil {
			p.log.Error().Err(err).Str("query", what).Msg("failed to scan issue")
			return nil, fmt.Errorf("scan %s: %w", what, err)
		}
		issues = append(issues, is)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s: %w", what, err)
	}
	return issues, nil
}

func issueDest(is *domain.Issue) []any {
	return []any{&is.ID, &is.Title, &is.Status, &is.Priority, &is.AssigneeID, &is.ReporterID,
		&is.ProjectID, &is.SprintID, &is.CreatedAt, &is.UpdatedAt, &is.TotalTimeSpent}
}
