package analytics

import (
	"github.com/Afrawles/trackreport/internal/domain"
)

// UnknownStatus groups time logged against issues without a status.
const UnknownStatus = "UNKNOWN"

type TimeCategoryPoint struct {
	Name  string `json:"name"`
	Value int    `json:"value"` // hours, rounded
}

type TimeResult struct {
	TimeTrackingData    []TimeCategoryPoint `json:"timeTrackingData"`
	TotalHours          int                 `json:"totalHours"`
	AverageTimePerIssue int                 `json:"averageTimePerIssue"`
	UniqueIssuesTracked int                 `json:"uniqueIssuesTracked"`
	TotalMinutes        int                 `json:"totalMinutes"`
}

// Percent returns the share of total hours spent in category value, 0 when nothing was logged.
func (t TimeResult) Percent(value int) int {
	return percent(value, t.TotalHours)
}

// TimeTracking sums logged minutes per status of the logged issue. The workflow statuses
// come first, zero-filled, followed by any other status seen in the logs.
func TimeTracking(entries []domain.TimeLogEntry, statuses []string, projectID string, rng domain.DateRange) TimeResult {
	minutes := make(map[string]int, len(statuses))
	order := make([]string, 0, len(statuses))
	for _, s := range statuses {
		if _, ok := minutes[s]; ok {
			continue
		}
		minutes[s] = 0
		order = append(order, s)
	}

	total := 0
	issues := make(map[string]struct{})
	for _, e := range entries {
		if projectID != "" && e.Issue.ProjectID != projectID {
			continue
		}
		if !rng.Contains(e.LoggedAt) {
			continue
		}

		status := e.Issue.Status
		if status == "" {
			status = UnknownStatus
		}
		if _, ok := minutes[status]; !ok {
			order = append(order, status)
		}
		minutes[status] += e.TimeSpent
		total += e.TimeSpent

		id := e.IssueID
		if id == "" {
			id = e.Issue.ID
		}
		issues[id] = struct{}{}
	}

	res := TimeResult{
		TimeTrackingData:    make([]TimeCategoryPoint, 0, len(order)),
		TotalHours:          roundInt(float64(total) / 60),
		UniqueIssuesTracked: len(issues),
		TotalMinutes:        total,
	}
	for _, s := range order {
		res.TimeTrackingData = append(res.TimeTrackingData, TimeCategoryPoint{
			Name:  s,
			Value: roundInt(float64(minutes[s]) / 60),
		})
	}
	if len(issues) > 0 {
		res.AverageTimePerIssue = roundInt(float64(total) / 60 / float64(len(issues)))
	}
	return res
}
