// Package analytics turns tracker records into the grouped series behind the project reports.
// Every function here is pure: no I/O, no shared state, zeroed results on empty input.
package analytics

import (
	"sort"

	"github.com/Afrawles/trackreport/internal/domain"
)

type VelocityPoint struct {
	Name           string `json:"name"`
	Planned        int    `json:"planned"`
	Completed      int    `json:"completed"`
	CompletionRate int    `json:"completionRate"`
}

type VelocityResult struct {
	SprintData           []VelocityPoint `json:"sprintData"`
	AverageVelocity      int             `json:"averageVelocity"`
	TotalSprints         int             `json:"totalSprints"`
	TotalCompletedIssues int             `json:"totalCompletedIssues"`
}

// SprintOverlaps reports whether the sprint starts or ends inside the range.
func SprintOverlaps(s domain.Sprint, rng domain.DateRange) bool {
	return rng.Contains(s.StartDate) || rng.Contains(s.EndDate)
}

// SprintVelocity counts planned vs completed issues per sprint. Each issue counts as one point.
func SprintVelocity(sprints []domain.Sprint, rng domain.DateRange) VelocityResult {
	selected := make([]domain.Sprint, 0, len(sprints))
	for _, s := range sprints {
		if SprintOverlaps(s, rng) {
			selected = append(selected, s)
		}
	}

	sort.SliceStable(selected, func(i, j int) bool {
		return selected[i].StartDate.Before(selected[j].StartDate)
	})

	res := VelocityResult{SprintData: make([]VelocityPoint, 0, len(selected))}
	for _, s := range selected {
		completed := 0
		for _, issue := range s.Issues {
			if issue.Done() {
				completed++
			}
		}

		res.SprintData = append(res.SprintData, VelocityPoint{
			Name:           s.Name,
			Planned:        len(s.Issues),
			Completed:      completed,
			CompletionRate: percent(completed, len(s.Issues)),
		})
		res.TotalCompletedIssues += completed
	}

	res.TotalSprints = len(selected)
	if res.TotalSprints > 0 {
		res.AverageVelocity = roundInt(float64(res.TotalCompletedIssues) / float64(res.TotalSprints))
	}
	return res
}
