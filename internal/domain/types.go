// Package domain holds the tracker records read by the report pipeline.
package domain

import (
	"fmt"
	"time"
)

type Priority string

const (
	PriorityUrgent Priority = "URGENT"
	PriorityHigh   Priority = "HIGH"
	PriorityMedium Priority = "MEDIUM"
	PriorityLow    Priority = "LOW"
)

// Priorities lists every priority, most urgent first.
var Priorities = []Priority{PriorityUrgent, PriorityHigh, PriorityMedium, PriorityLow}

// Valid reports whether p is one of the four known priorities.
func (p Priority) Valid() bool {
	switch p {
	case PriorityUrgent, PriorityHigh, PriorityMedium, PriorityLow:
		return true
	}
	return false
}

// Issue statuses are workflow-defined; these are the defaults every new workflow starts with.
const (
	StatusTodo       = "TODO"
	StatusInProgress = "IN_PROGRESS"
	StatusInReview   = "IN_REVIEW"
	StatusDone       = "DONE"
)

// DefaultStatuses is the ordered status list of a fresh workflow.
var DefaultStatuses = []string{StatusTodo, StatusInProgress, StatusInReview, StatusDone}

type Project struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	Key            string `json:"key"`
	OrganizationID string `json:"organizationId"`
}

type User struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// DisplayName falls back to a short id label for users without a name.
func (u User) DisplayName() string {
	if u.Name != "" {
		return u.Name
	}
	id := u.ID
	if len(id) > 4 {
		id = id[:4]
	}
	return "User " + id
}

type Issue struct {
	ID             string    `json:"id"`
	Title          string    `json:"title"`
	Status         string    `json:"status"`
	Priority       Priority  `json:"priority"`
	AssigneeID     string    `json:"assigneeId,omitempty"`
	ReporterID     string    `json:"reporterId"`
	ProjectID      string    `json:"projectId"`
	SprintID       string    `json:"sprintId,omitempty"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
	TotalTimeSpent int       `json:"totalTimeSpent"` // minutes
}

// Done reports whether the issue sits in the terminal DONE status.
func (i Issue) Done() bool {
	return i.Status == StatusDone
}

type Sprint struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	ProjectID string    `json:"projectId"`
	StartDate time.Time `json:"startDate"`
	EndDate   time.Time `json:"endDate"`
	Issues    []Issue   `json:"issues"`
}

// TimeLogEntry is a single logged work interval joined with its issue.
type TimeLogEntry struct {
	ID          string    `json:"id"`
	IssueID     string    `json:"issueId"`
	UserID      string    `json:"userId"`
	TimeSpent   int       `json:"timeSpent"` // minutes
	LoggedAt    time.Time `json:"loggedAt"`
	Description string    `json:"description,omitempty"`
	Issue       Issue     `json:"issue"`
}

// DateRange is an inclusive [From, To] window.
type DateRange struct {
	From time.Time `json:"from"`
	To   time.Time `json:"to"`
}

// Validate rejects zero bounds and inverted ranges.
func (r DateRange) Validate() error {
	if r.From.IsZero() || r.To.IsZero() {
		return fmt.Errorf("date range bounds are required")
	}
	if r.From.After(r.To) {
		return fmt.Errorf("date range from %s is after to %s",
			r.From.Format(time.DateOnly), r.To.Format(time.DateOnly))
	}
	return nil
}

// Contains reports whether t lies in the inclusive range.
func (r DateRange) Contains(t time.Time) bool {
	return !t.Before(r.From) && !t.After(r.To)
}
