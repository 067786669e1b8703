package analytics

import (
	"github.com/Afrawles/trackreport/internal/domain"
)

// Aggregator bundles the aggregation functions with the team scorers they need.
type Aggregator struct {
	scorers TeamScorers
}

func NewAggregator(scorers TeamScorers) *Aggregator {
	return &Aggregator{scorers: scorers}
}

func (a *Aggregator) SprintVelocity(sprints []domain.Sprint, rng domain.DateRange) VelocityResult {
	return SprintVelocity(sprints, rng)
}

func (a *Aggregator) ResolutionTimes(issues []domain.Issue, rng domain.DateRange) ResolutionResult {
	return ResolutionTimes(issues, rng)
}

func (a *Aggregator) TeamPerformance(members []domain.User, issues []domain.Issue, rng domain.DateRange) TeamResult {
	return TeamPerformance(members, issues, rng, a.scorers)
}

func (a *Aggregator) TimeTracking(entries []domain.TimeLogEntry, statuses []string, projectID string, rng domain.DateRange) TimeResult {
	return TimeTracking(entries, statuses, projectID, rng)
}
