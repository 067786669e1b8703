package report

import (
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/Afrawles/trackreport/internal/analytics"
	"github.com/Afrawles/trackreport/internal/domain"
)

// Table is a header plus string rows; every exporter renders through it.
type Table struct {
	Columns []string
	Rows    [][]string
}

// Fact is a labelled summary scalar, rendered as "Label: Value".
type Fact struct {
	Label string
	Value string
}

func (f Fact) String() string {
	return f.Label + ": " + f.Value
}

// Section is a titled block of the document: free text, a table, or both.
type Section struct {
	Title string
	Text  string
	Table *Table
}

// Layout is the format-neutral shape of a report.
type Layout struct {
	Summary  []Fact
	Sections []Section
	// Data is the flat table used by the delimited exports; its last row is the summary row.
	Data Table
	// SheetName names the data sheet in workbook exports.
	SheetName string
}

func num(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func orNA(v float64) string {
	if v == 0 {
		return "N/A"
	}
	return num(v)
}

func pct(v int) string {
	return strconv.Itoa(v) + "%"
}

// Build lays out the envelope. It never modifies env.
func Build(env Envelope) (Layout, error) {
	switch env.ReportType {
	case TypeVelocity:
		d, ok := env.Velocity()
		if !ok {
			return Layout{}, dataMismatch(env)
		}
		return velocityLayout(d), nil
	case TypeResolution:
		d, ok := env.Resolution()
		if !ok {
			return Layout{}, dataMismatch(env)
		}
		return resolutionLayout(d), nil
	case TypeTeam:
		d, ok := env.Team()
		if !ok {
			return Layout{}, dataMismatch(env)
		}
		return teamLayout(d), nil
	case TypeTime:
		d, ok := env.Time()
		if !ok {
			return Layout{}, dataMismatch(env)
		}
		return timeLayout(d), nil
	}
	return Layout{}, fmt.Errorf("%w: %q", ErrUnsupportedReportType, env.ReportType)
}

func dataMismatch(env Envelope) error {
	return fmt.Errorf("%w: %q envelope carries %T", ErrUnsupportedReportType, env.ReportType, env.Data)
}

func velocityLayout(d analytics.VelocityResult) Layout {
	l := Layout{
		SheetName: "Sprints",
		Summary: []Fact{
			{"Average Velocity", fmt.Sprintf("%d story points per sprint", d.AverageVelocity)},
			{"Total Sprints", strconv.Itoa(d.TotalSprints)},
			{"Total Completed Issues", strconv.Itoa(d.TotalCompletedIssues)},
		},
		Data: Table{Columns: []string{"Sprint", "Planned Issues", "Completed Issues", "Completion Rate (%)"}},
	}

	details := &Table{Columns: []string{"Sprint", "Planned Issues", "Completed Issues", "Completion Rate"}}
	for _, s := range d.SprintData {
		planned, completed := strconv.Itoa(s.Planned), strconv.Itoa(s.Completed)
		details.Rows = append(details.Rows, []string{s.Name, planned, completed, pct(s.CompletionRate)})
		l.Data.Rows = append(l.Data.Rows, []string{s.Name, planned, completed, strconv.Itoa(s.CompletionRate)})
	}
	l.Data.Rows = append(l.Data.Rows, []string{"AVERAGE", "", strconv.Itoa(d.AverageVelocity), ""})

	if len(d.SprintData) > 0 {
		l.Sections = append(l.Sections, Section{Title: "Sprint Details", Table: details})
	}
	return l
}

func resolutionLayout(d analytics.ResolutionResult) Layout {
	monthColumns := []string{"Month", "Urgent (days)", "High (days)", "Medium (days)", "Low (days)"}
	l := Layout{
		SheetName: "Resolution",
		Summary: []Fact{
			{"Average Resolution Time", num(d.AverageResolutionTime) + " days"},
			{"Total Resolved Issues", strconv.Itoa(d.TotalResolvedIssues)},
		},
		Data: Table{Columns: monthColumns},
	}

	titleCase := cases.Title(language.English)
	byPriority := &Table{Columns: []string{"Priority", "Average Resolution Time"}}
	for _, p := range domain.Priorities {
		label := titleCase.String(string(p))
		byPriority.Rows = append(byPriority.Rows, []string{label, num(d.ResolutionByPriority.Get(p)) + " days"})
	}
	l.Sections = append(l.Sections, Section{Title: "Resolution Time by Priority", Table: byPriority})

	monthly := &Table{Columns: monthColumns}
	for _, m := range d.ResolutionTimeData {
		row := []string{m.Name, orNA(m.Urgent), orNA(m.High), orNA(m.Medium), orNA(m.Low)}
		monthly.Rows = append(monthly.Rows, row)
		l.Data.Rows = append(l.Data.Rows, row)
	}
	avg := d.ResolutionByPriority
	l.Data.Rows = append(l.Data.Rows, []string{"AVERAGE", num(avg.Urgent), num(avg.High), num(avg.Medium), num(avg.Low)})

	if len(d.ResolutionTimeData) > 0 {
		l.Sections = append(l.Sections, Section{Title: "Monthly Resolution Times", Table: monthly})
	}
	return l
}

func teamLayout(d analytics.TeamResult) Layout {
	columns := append([]string{"Metric"}, d.TeamMemberNames...)
	l := Layout{
		SheetName: "Team",
		Summary: []Fact{
			{"Team Performance", pct(d.TeamPerformance)},
			{"Total Issues", strconv.Itoa(d.TotalIssues)},
			{"Completed Issues", strconv.Itoa(d.CompletedIssues)},
		},
		Data: Table{Columns: columns},
	}

	if len(d.TeamMemberNames) > 0 {
		l.Sections = append(l.Sections, Section{Title: "Team Members", Text: strings.Join(d.TeamMemberNames, ", ")})
	}

	metrics := &Table{Columns: columns}
	for _, row := range d.TeamPerformanceData {
		cells := make([]string, 0, len(columns))
		cells = append(cells, row.Subject)
		for i := range d.TeamMemberNames {
			score := 0
			if i < len(row.Scores) {
				score = row.Scores[i]
			}
			cells = append(cells, pct(score))
		}
		metrics.Rows = append(metrics.Rows, cells)
		l.Data.Rows = append(l.Data.Rows, cells)
	}

	summary := []string{"AVERAGE"}
	for _, avg := range d.MemberAverages() {
		summary = append(summary, pct(avg))
	}
	l.Data.Rows = append(l.Data.Rows, summary)

	if len(d.TeamPerformanceData) > 0 {
		l.Sections = append(l.Sections, Section{Title: "Performance Metrics", Table: metrics})
	}
	return l
}

func timeLayout(d analytics.TimeResult) Layout {
	l := Layout{
		SheetName: "Time",
		Summary: []Fact{
			{"Total Time Tracked", fmt.Sprintf("%d hours", d.TotalHours)},
			{"Average Time Per Issue", fmt.Sprintf("%d hours", d.AverageTimePerIssue)},
			{"Issues Tracked", strconv.Itoa(d.UniqueIssuesTracked)},
		},
		Data: Table{Columns: []string{"Status", "Hours", "Percentage"}},
	}

	dist := &Table{Columns: []string{"Status", "Hours", "Percentage"}}
	for _, c := range d.TimeTrackingData {
		share := pct(d.Percent(c.Value))
		dist.Rows = append(dist.Rows, []string{c.Name, fmt.Sprintf("%d hours", c.Value), share})
		l.Data.Rows = append(l.Data.Rows, []string{c.Name, strconv.Itoa(c.Value), share})
	}
	l.Data.Rows = append(l.Data.Rows, []string{"TOTAL", strconv.Itoa(d.TotalHours), "100%"})

	if len(d.TimeTrackingData) > 0 {
		l.Sections = append(l.Sections, Section{Title: "Time Distribution by Status", Table: dist})
	}
	return l
}
