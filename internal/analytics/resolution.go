package analytics

import (
	"sort"
	"time"

	"github.com/Afrawles/trackreport/internal/domain"
)

// PriorityAverages holds one value per priority; absent samples stay 0.
type PriorityAverages struct {
	Urgent float64 `json:"urgent"`
	High   float64 `json:"high"`
	Medium float64 `json:"medium"`
	Low    float64 `json:"low"`
}

// Get returns the value for p, 0 for unknown priorities.
func (a PriorityAverages) Get(p domain.Priority) float64 {
	switch p {
	case domain.PriorityUrgent:
		return a.Urgent
	case domain.PriorityHigh:
		return a.High
	case domain.PriorityMedium:
		return a.Medium
	case domain.PriorityLow:
		return a.Low
	}
	return 0
}

func (a *PriorityAverages) set(p domain.Priority, v float64) {
	switch p {
	case domain.PriorityUrgent:
		a.Urgent = v
	case domain.PriorityHigh:
		a.High = v
	case domain.PriorityMedium:
		a.Medium = v
	case domain.PriorityLow:
		a.Low = v
	}
}

// ResolutionMonthPoint is one calendar month of average days-to-resolve per priority.
// Year and Month form the bucket key; Name is the display label.
type ResolutionMonthPoint struct {
	Year  int        `json:"year"`
	Month time.Month `json:"month"`
	Name  string     `json:"name"`
	PriorityAverages
}

type ResolutionResult struct {
	ResolutionTimeData    []ResolutionMonthPoint `json:"resolutionTimeData"`
	AverageResolutionTime float64                `json:"averageResolutionTime"`
	ResolutionByPriority  PriorityAverages       `json:"resolutionByPriority"`
	TotalResolvedIssues   int                    `json:"totalResolvedIssues"`
}

// ResolutionDays is the number of whole 24h periods between creation and the last update.
func ResolutionDays(issue domain.Issue) int {
	d := issue.UpdatedAt.Sub(issue.CreatedAt)
	if d <= 0 {
		return 0
	}
	return int(d / (24 * time.Hour))
}

type monthKey struct {
	year  int
	month time.Month
}

type sampleSum struct {
	sum, n int
}

// ResolutionTimes averages days-to-resolve for DONE issues last updated inside the range.
// Issues with a priority outside the known four count toward the overall average only.
func ResolutionTimes(issues []domain.Issue, rng domain.DateRange) ResolutionResult {
	months := make(map[monthKey]map[domain.Priority]*sampleSum)
	byPriority := make(map[domain.Priority]*sampleSum, len(domain.Priorities))
	for _, p := range domain.Priorities {
		byPriority[p] = &sampleSum{}
	}

	total := sampleSum{}
	for _, issue := range issues {
		if !issue.Done() || !rng.Contains(issue.UpdatedAt) {
			continue
		}

		days := ResolutionDays(issue)
		total.sum += days
		total.n++

		key := monthKey{issue.UpdatedAt.Year(), issue.UpdatedAt.Month()}
		bucket, ok := months[key]
		if !ok {
			bucket = make(map[domain.Priority]*sampleSum, len(domain.Priorities))
			for _, p := range domain.Priorities {
				bucket[p] = &sampleSum{}
			}
			months[key] = bucket
		}

		if !issue.Priority.Valid() {
			continue
		}
		bucket[issue.Priority].sum += days
		bucket[issue.Priority].n++
		byPriority[issue.Priority].sum += days
		byPriority[issue.Priority].n++
	}

	keys := make([]monthKey, 0, len(months))
	for k := range months {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].year != keys[j].year {
			return keys[i].year < keys[j].year
		}
		return keys[i].month < keys[j].month
	})

	res := ResolutionResult{
		ResolutionTimeData:    make([]ResolutionMonthPoint, 0, len(keys)),
		AverageResolutionTime: mean1(total.sum, total.n),
		TotalResolvedIssues:   total.n,
	}

	multiYear := len(keys) > 0 && keys[0].year != keys[len(keys)-1].year
	for _, k := range keys {
		point := ResolutionMonthPoint{Year: k.year, Month: k.month, Name: monthLabel(k, multiYear)}
		for _, p := range domain.Priorities {
			s := months[k][p]
			point.set(p, mean1(s.sum, s.n))
		}
		res.ResolutionTimeData = append(res.ResolutionTimeData, point)
	}

	for _, p := range domain.Priorities {
		s := byPriority[p]
		res.ResolutionByPriority.set(p, mean1(s.sum, s.n))
	}
	return res
}

func monthLabel(k monthKey, withYear bool) string {
	t := time.Date(k.year, k.month, 1, 0, 0, 0, 0, time.UTC)
	if withYear {
		return t.Format("Jan 2006")
	}
	return t.Format("Jan")
}
