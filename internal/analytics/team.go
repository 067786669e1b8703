package analytics

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/Afrawles/trackreport/internal/domain"
)

// Metric row subjects, in report order.
const (
	MetricIssuesCompleted = "Issues Completed"
	MetricOnTimeDelivery  = "On-Time Delivery"
	MetricTimeTracking    = "Time Tracking"
	MetricIssueQuality    = "Issue Quality"
	MetricCollaboration   = "Collaboration"
)

// MetricSubjects lists the team metric rows in the order they are reported.
var MetricSubjects = []string{
	MetricIssuesCompleted,
	MetricOnTimeDelivery,
	MetricTimeTracking,
	MetricIssueQuality,
	MetricCollaboration,
}

const fullMark = 100

// TeamMetricRow holds one metric for every member; Scores[i] belongs to the i-th member name.
// On the wire the scores are keyed member1..memberN.
type TeamMetricRow struct {
	Subject  string
	Scores   []int
	FullMark int
}

func (r TeamMetricRow) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(r.Scores)+2)
	out["subject"] = r.Subject
	out["fullMark"] = r.FullMark
	for i, s := range r.Scores {
		out["member"+strconv.Itoa(i+1)] = s
	}
	return json.Marshal(out)
}

func (r *TeamMetricRow) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	row := TeamMetricRow{}
	if v, ok := raw["subject"]; ok {
		if err := json.Unmarshal(v, &row.Subject); err != nil {
			return fmt.Errorf("subject: %w", err)
		}
	}
	if v, ok := raw["fullMark"]; ok {
		if err := json.Unmarshal(v, &row.FullMark); err != nil {
			return fmt.Errorf("fullMark: %w", err)
		}
	}

	members := 0
	for k := range raw {
		if strings.HasPrefix(k, "member") {
			members++
		}
	}
	row.Scores = make([]int, 0, members)
	for i := 1; i <= members; i++ {
		v, ok := raw["member"+strconv.Itoa(i)]
		if !ok {
			return fmt.Errorf("member%d missing from %q row", i, row.Subject)
		}
		var score int
		if err := json.Unmarshal(v, &score); err != nil {
			return fmt.Errorf("member%d: %w", i, err)
		}
		row.Scores = append(row.Scores, score)
	}

	*r = row
	return nil
}

type TeamResult struct {
	TeamPerformanceData []TeamMetricRow `json:"teamPerformanceData"`
	TeamPerformance     int             `json:"teamPerformance"`
	TeamMemberNames     []string        `json:"teamMemberNames"`
	TotalIssues         int             `json:"totalIssues"`
	CompletedIssues     int             `json:"completedIssues"`
}

// MemberAverages is the mean score of each member across all metric rows, rounded.
func (t TeamResult) MemberAverages() []int {
	out := make([]int, len(t.TeamMemberNames))
	if len(t.TeamPerformanceData) == 0 {
		return out
	}
	for i := range out {
		sum := 0
		for _, row := range t.TeamPerformanceData {
			if i < len(row.Scores) {
				sum += row.Scores[i]
			}
		}
		out[i] = roundInt(float64(sum) / float64(len(t.TeamPerformanceData)))
	}
	return out
}

// TeamPerformance scores each member on the five metric rows. Issues are filtered by
// creation date; member order follows the members slice.
func TeamPerformance(members []domain.User, issues []domain.Issue, rng domain.DateRange, scorers TeamScorers) TeamResult {
	inRange := make([]domain.Issue, 0, len(issues))
	completed := 0
	for _, issue := range issues {
		if !rng.Contains(issue.CreatedAt) {
			continue
		}
		inRange = append(inRange, issue)
		if issue.Done() {
			completed++
		}
	}

	byAssignee := make(map[string][]domain.Issue, len(members))
	for _, issue := range inRange {
		if issue.AssigneeID != "" {
			byAssignee[issue.AssigneeID] = append(byAssignee[issue.AssigneeID], issue)
		}
	}

	ordered := []Scorer{
		CompletionScorer{},
		orDefault(scorers.OnTimeDelivery),
		orDefault(scorers.TimeTracking),
		orDefault(scorers.IssueQuality),
		orDefault(scorers.Collaboration),
	}

	res := TeamResult{
		TeamPerformanceData: make([]TeamMetricRow, len(MetricSubjects)),
		TeamMemberNames:     make([]string, len(members)),
		TotalIssues:         len(inRange),
		CompletedIssues:     completed,
	}
	for i, m := range members {
		res.TeamMemberNames[i] = m.DisplayName()
	}

	for row, subject := range MetricSubjects {
		scores := make([]int, len(members))
		for i, m := range members {
			scores[i] = clampPercent(ordered[row].Score(byAssignee[m.ID]))
		}
		res.TeamPerformanceData[row] = TeamMetricRow{Subject: subject, Scores: scores, FullMark: fullMark}
	}

	res.TeamPerformance = percent(completed, len(inRange))
	return res
}

func orDefault(s Scorer) Scorer {
	if s == nil {
		return ScorerFunc(func([]domain.Issue) int { return 0 })
	}
	return s
}
