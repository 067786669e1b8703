package analytics

import (
	"math/rand/v2"
	"sync"

	"github.com/Afrawles/trackreport/internal/domain"
)

// Scorer rates one member on a 0..100 scale from the member's issues in the report window.
type Scorer interface {
	Score(issues []domain.Issue) int
}

// ScorerFunc adapts a plain function to Scorer.
type ScorerFunc func(issues []domain.Issue) int

func (f ScorerFunc) Score(issues []domain.Issue) int { return f(issues) }

// CompletionScorer is the share of issues in DONE.
type CompletionScorer struct{}

func (CompletionScorer) Score(issues []domain.Issue) int {
	done := 0
	for _, issue := range issues {
		if issue.Done() {
			done++
		}
	}
	return percent(done, len(issues))
}

// TimeLoggedScorer is the share of issues that have any time logged against them.
type TimeLoggedScorer struct{}

func (TimeLoggedScorer) Score(issues []domain.Issue) int {
	logged := 0
	for _, issue := range issues {
		if issue.TotalTimeSpent > 0 {
			logged++
		}
	}
	return percent(logged, len(issues))
}

// BandScorer draws a uniform value in [Min, Max). It stands in for metrics the
// tracker has no data for yet. A nil Rand uses the shared generator; a non-nil
// Rand must be safe for concurrent use (see LockedRand).
type BandScorer struct {
	Min, Max int
	Rand     *rand.Rand
}

func (b BandScorer) Score([]domain.Issue) int {
	width := b.Max - b.Min
	if width <= 0 {
		return clampPercent(b.Min)
	}
	if b.Rand == nil {
		return clampPercent(b.Min + rand.IntN(width))
	}
	return clampPercent(b.Min + b.Rand.IntN(width))
}

type lockedSource struct {
	mu  sync.Mutex
	src rand.Source
}

func (l *lockedSource) Uint64() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.src.Uint64()
}

// LockedRand wraps src so the returned generator can be shared across goroutines.
func LockedRand(src rand.Source) *rand.Rand {
	return rand.New(&lockedSource{src: src})
}

// TeamScorers fills the metric rows of the team report. Issues Completed is always
// CompletionScorer and is not configurable.
type TeamScorers struct {
	OnTimeDelivery Scorer
	TimeTracking   Scorer
	IssueQuality   Scorer
	Collaboration  Scorer
}

// DefaultScorers wires the real Time Tracking score and the placeholder bands.
// A nil src draws from the shared generator.
func DefaultScorers(src rand.Source) TeamScorers {
	var r *rand.Rand
	if src != nil {
		r = LockedRand(src)
	}
	return TeamScorers{
		OnTimeDelivery: BandScorer{Min: 60, Max: 100, Rand: r},
		TimeTracking:   TimeLoggedScorer{},
		IssueQuality:   BandScorer{Min: 75, Max: 100, Rand: r},
		Collaboration:  BandScorer{Min: 80, Max: 100, Rand: r},
	}
}
