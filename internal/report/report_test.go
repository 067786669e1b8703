package report

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/Afrawles/trackreport/internal/analytics"
	"github.com/Afrawles/trackreport/internal/domain"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

var (
	q1      = domain.DateRange{From: day(2024, 1, 1), To: day(2024, 3, 31)}
	project = domain.Project{ID: "p1", Name: "Apollo", Key: "APL", OrganizationID: "org1"}
	fixedAt = func() time.Time { return day(2024, 4, 2) }
)

type spyAggregator struct {
	calls int
	inner *analytics.Aggregator
}

func (s *spyAggregator) SprintVelocity(sp []domain.Sprint, rng domain.DateRange) analytics.VelocityResult {
	s.calls++
	return s.inner.SprintVelocity(sp, rng)
}

func (s *spyAggregator) ResolutionTimes(is []domain.Issue, rng domain.DateRange) analytics.ResolutionResult {
	s.calls++
	return s.inner.ResolutionTimes(is, rng)
}

func (s *spyAggregator) TeamPerformance(m []domain.User, is []domain.Issue, rng domain.DateRange) analytics.TeamResult {
	s.calls++
	return s.inner.TeamPerformance(m, is, rng)
}

func (s *spyAggregator) TimeTracking(e []domain.TimeLogEntry, st []string, p string, rng domain.DateRange) analytics.TimeResult {
	s.calls++
	return s.inner.TimeTracking(e, st, p, rng)
}

func newSpy() *spyAggregator {
	return &spyAggregator{inner: analytics.NewAggregator(analytics.DefaultScorers(nil))}
}

func TestAssembleRejectsUnknownTypeBeforeAggregating(t *testing.T) {
	spy := newSpy()
	_, err := NewAssembler(spy).Assemble("burndown", project, q1, Dataset{})

	require.ErrorIs(t, err, ErrInvalidReportType)
	assert.Zero(t, spy.calls)
}

func TestAssembleTitles(t *testing.T) {
	want := map[Type]string{
		TypeVelocity:   "Sprint Velocity Report",
		TypeResolution: "Issue Resolution Time Report",
		TypeTeam:       "Team Performance Report",
		TypeTime:       "Time Tracking Summary Report",
	}
	for typ, title := range want {
		spy := newSpy()
		env, err := NewAssembler(spy).Assemble(typ, project, q1, Dataset{})
		require.NoError(t, err)
		assert.Equal(t, title, env.ReportTitle)
		assert.Equal(t, "Apollo", env.ProjectName)
		assert.Equal(t, "APL", env.ProjectKey)
		assert.Equal(t, 1, spy.calls)
	}
}

func velocityEnvelope() Envelope {
	return Envelope{
		ProjectName: "Apollo",
		ProjectKey:  "APL",
		ReportTitle: TypeVelocity.Title(),
		ReportType:  TypeVelocity,
		DateRange:   q1,
		Data: analytics.VelocityResult{
			SprintData: []analytics.VelocityPoint{
				{Name: "S1", Planned: 10, Completed: 7, CompletionRate: 70},
				{Name: "S2", Planned: 5, Completed: 5, CompletionRate: 100},
			},
			AverageVelocity:      6,
			TotalSprints:         2,
			TotalCompletedIssues: 12,
		},
	}
}

func timeEnvelope() Envelope {
	return Envelope{
		ProjectName: "Apollo",
		ProjectKey:  "APL",
		ReportTitle: TypeTime.Title(),
		ReportType:  TypeTime,
		DateRange:   q1,
		Data: analytics.TimeResult{
			TimeTrackingData: []analytics.TimeCategoryPoint{
				{Name: "IN_PROGRESS", Value: 3},
				{Name: "DONE", Value: 1},
			},
			TotalHours:          4,
			AverageTimePerIssue: 2,
			UniqueIssuesTracked: 2,
		},
	}
}

func teamEnvelope() Envelope {
	return Envelope{
		ProjectName: "Apollo",
		ProjectKey:  "APL",
		ReportTitle: TypeTeam.Title(),
		ReportType:  TypeTeam,
		DateRange:   q1,
		Data: analytics.TeamResult{
			TeamPerformanceData: []analytics.TeamMetricRow{
				{Subject: analytics.MetricIssuesCompleted, Scores: []int{50, 100}, FullMark: 100},
				{Subject: analytics.MetricCollaboration, Scores: []int{90, 80}, FullMark: 100},
			},
			TeamPerformance: 67,
			TeamMemberNames: []string{"Bob", "Alice"},
			TotalIssues:     3,
			CompletedIssues: 2,
		},
	}
}

func resolutionEnvelope() Envelope {
	return Envelope{
		ProjectName: "Apollo",
		ProjectKey:  "APL",
		ReportTitle: TypeResolution.Title(),
		ReportType:  TypeResolution,
		DateRange:   q1,
		Data: analytics.ResolutionResult{
			ResolutionTimeData: []analytics.ResolutionMonthPoint{
				{Year: 2024, Month: time.January, Name: "Jan", PriorityAverages: analytics.PriorityAverages{High: 3}},
			},
			AverageResolutionTime: 3,
			ResolutionByPriority:  analytics.PriorityAverages{High: 3},
			TotalResolvedIssues:   1,
		},
	}
}

func TestBuildLayout(t *testing.T) {
	tests := []struct {
		name     string
		env      Envelope
		summary  []Fact
		titles   []string
		sheet    string
		sections map[string]*Table
	}{
		{
			name: "velocity",
			env:  velocityEnvelope(),
			summary: []Fact{
				{"Average Velocity", "6 story points per sprint"},
				{"Total Sprints", "2"},
				{"Total Completed Issues", "12"},
			},
			titles: []string{"Sprint Details"},
			sheet:  "Sprints",
			sections: map[string]*Table{
				"Sprint Details": {
					Columns: []string{"Sprint", "Planned Issues", "Completed Issues", "Completion Rate"},
					Rows:    [][]string{{"S1", "10", "7", "70%"}, {"S2", "5", "5", "100%"}},
				},
			},
		},
		{
			name: "resolution",
			env:  resolutionEnvelope(),
			summary: []Fact{
				{"Average Resolution Time", "3 days"},
				{"Total Resolved Issues", "1"},
			},
			titles: []string{"Resolution Time by Priority", "Monthly Resolution Times"},
			sheet:  "Resolution",
			sections: map[string]*Table{
				"Resolution Time by Priority": {
					Columns: []string{"Priority", "Average Resolution Time"},
					Rows:    [][]string{{"Urgent", "0 days"}, {"High", "3 days"}, {"Medium", "0 days"}, {"Low", "0 days"}},
				},
				"Monthly Resolution Times": {
					Columns: []string{"Month", "Urgent (days)", "High (days)", "Medium (days)", "Low (days)"},
					Rows:    [][]string{{"Jan", "N/A", "3", "N/A", "N/A"}},
				},
			},
		},
		{
			name: "team",
			env:  teamEnvelope(),
			summary: []Fact{
				{"Team Performance", "67%"},
				{"Total Issues", "3"},
				{"Completed Issues", "2"},
			},
			titles: []string{"Team Members", "Performance Metrics"},
			sheet:  "Team",
			sections: map[string]*Table{
				"Team Members": nil,
				"Performance Metrics": {
					Columns: []string{"Metric", "Bob", "Alice"},
					Rows:    [][]string{{"Issues Completed", "50%", "100%"}, {"Collaboration", "90%", "80%"}},
				},
			},
		},
		{
			name: "time",
			env:  timeEnvelope(),
			summary: []Fact{
				{"Total Time Tracked", "4 hours"},
				{"Average Time Per Issue", "2 hours"},
				{"Issues Tracked", "2"},
			},
			titles: []string{"Time Distribution by Status"},
			sheet:  "Time",
			sections: map[string]*Table{
				"Time Distribution by Status": {
					Columns: []string{"Status", "Hours", "Percentage"},
					Rows:    [][]string{{"IN_PROGRESS", "3 hours", "75%"}, {"DONE", "1 hours", "25%"}},
				},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, err := Build(tt.env)
			require.NoError(t, err)

			assert.Equal(t, tt.summary, l.Summary)
			assert.Equal(t, tt.sheet, l.SheetName)

			titles := make([]string, 0, len(l.Sections))
			for _, s := range l.Sections {
				titles = append(titles, s.Title)
				assert.Equal(t, tt.sections[s.Title], s.Table, s.Title)
			}
			assert.Equal(t, tt.titles, titles)
		})
	}
}

func TestBuildLayoutTeamMembersText(t *testing.T) {
	l, err := Build(teamEnvelope())
	require.NoError(t, err)
	require.NotEmpty(t, l.Sections)
	assert.Equal(t, "Bob, Alice", l.Sections[0].Text)
}

func TestBuildLayoutOmitsEmptySections(t *testing.T) {
	env := resolutionEnvelope()
	env.Data = analytics.ResolutionResult{}

	l, err := Build(env)
	require.NoError(t, err)
	require.Len(t, l.Sections, 1)
	assert.Equal(t, "Resolution Time by Priority", l.Sections[0].Title)
	assert.Equal(t, []string{"AVERAGE", "0", "0", "0", "0"}, l.Data.Rows[len(l.Data.Rows)-1])
}

func readCSV(t *testing.T, b []byte) [][]string {
	t.Helper()
	rows, err := csv.NewReader(bytes.NewReader(b)).ReadAll()
	require.NoError(t, err)
	return rows
}

func TestExportFilename(t *testing.T) {
	ex := NewExporter(WithClock(fixedAt))
	pattern := regexp.MustCompile(`^[^\s]+_\d{4}-\d{2}-\d{2}\.(pdf|csv)$`)

	for _, f := range []Format{FormatPDF, FormatCSV} {
		out, err := ex.Export(velocityEnvelope(), f)
		require.NoError(t, err)
		assert.Regexp(t, pattern, out.Filename)
	}

	out, err := ex.Export(velocityEnvelope(), FormatCSV)
	require.NoError(t, err)
	assert.Equal(t, "Sprint_Velocity_Report_2024-04-02.csv", out.Filename)
	assert.Equal(t, "text/csv; charset=utf-8", out.ContentType)
}

func TestExportVelocityCSV(t *testing.T) {
	out, err := NewExporter(WithClock(fixedAt)).Export(velocityEnvelope(), FormatCSV)
	require.NoError(t, err)

	rows := readCSV(t, out.Bytes)
	assert.Equal(t, [][]string{
		{"Sprint", "Planned Issues", "Completed Issues", "Completion Rate (%)"},
		{"S1", "10", "7", "70"},
		{"S2", "5", "5", "100"},
		{"AVERAGE", "", "6", ""},
	}, rows)
}

func TestExportTimeCSVEndsWithTotal(t *testing.T) {
	out, err := NewExporter(WithClock(fixedAt)).Export(timeEnvelope(), FormatCSV)
	require.NoError(t, err)

	rows := readCSV(t, out.Bytes)
	require.Len(t, rows, 4)
	assert.Equal(t, []string{"IN_PROGRESS", "3", "75%"}, rows[1])
	assert.Equal(t, []string{"TOTAL", "4", "100%"}, rows[len(rows)-1])
}

func TestExportResolutionCSV(t *testing.T) {
	env := Envelope{
		ReportTitle: TypeResolution.Title(),
		ReportType:  TypeResolution,
		DateRange:   q1,
		Data: analytics.ResolutionResult{
			ResolutionTimeData: []analytics.ResolutionMonthPoint{
				{Year: 2024, Month: time.January, Name: "Jan", PriorityAverages: analytics.PriorityAverages{High: 3}},
			},
			AverageResolutionTime: 3,
			ResolutionByPriority:  analytics.PriorityAverages{High: 3, Low: 1.5},
			TotalResolvedIssues:   1,
		},
	}

	out, err := NewExporter(WithClock(fixedAt)).Export(env, FormatCSV)
	require.NoError(t, err)

	rows := readCSV(t, out.Bytes)
	assert.Equal(t, []string{"Jan", "N/A", "3", "N/A", "N/A"}, rows[1])
	assert.Equal(t, []string{"AVERAGE", "0", "3", "0", "1.5"}, rows[2])
}

func TestExportTeamCSV(t *testing.T) {
	out, err := NewExporter(WithClock(fixedAt)).Export(teamEnvelope(), FormatCSV)
	require.NoError(t, err)

	rows := readCSV(t, out.Bytes)
	assert.Equal(t, []string{"Metric", "Bob", "Alice"}, rows[0])
	assert.Equal(t, []string{"Issues Completed", "50%", "100%"}, rows[1])
	assert.Equal(t, []string{"AVERAGE", "70%", "90%"}, rows[len(rows)-1])
}

func TestExportPDF(t *testing.T) {
	for _, env := range []Envelope{velocityEnvelope(), resolutionEnvelope(), timeEnvelope(), teamEnvelope()} {
		out, err := NewExporter(WithClock(fixedAt)).Export(env, FormatPDF)
		require.NoError(t, err)
		assert.True(t, bytes.HasPrefix(out.Bytes, []byte("%PDF")))
		assert.Equal(t, "application/pdf", out.ContentType)
	}
}

func TestExportPDFLongTablePaginates(t *testing.T) {
	points := make([]analytics.VelocityPoint, 120)
	for i := range points {
		points[i] = analytics.VelocityPoint{Name: "Sprint", Planned: 1, Completed: 1, CompletionRate: 100}
	}
	env := velocityEnvelope()
	env.Data = analytics.VelocityResult{SprintData: points, TotalSprints: len(points)}

	out, err := NewExporter(WithClock(fixedAt)).Export(env, FormatPDF)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out.Bytes, []byte("%PDF")))
}

func TestPDFSectionTitleMovesWithTable(t *testing.T) {
	sec := Section{Title: "Sprint Details", Table: &Table{Columns: []string{"Sprint"}, Rows: [][]string{{"S1"}}}}

	w := newPDFWriter()
	_, pageH := w.doc.GetPageSize()
	w.doc.SetY(pageH - pdfMargin - pdfTitleHeight - pdfRowHeight)
	w.section(sec)
	assert.Equal(t, 2, w.doc.PageNo())
	assert.InDelta(t, pdfMargin+pdfTitleHeight+2*pdfRowHeight, w.doc.GetY(), 0.01)

	w = newPDFWriter()
	w.section(sec)
	assert.Equal(t, 1, w.doc.PageNo())
	require.NoError(t, w.doc.Error())
}

func TestExportXLSX(t *testing.T) {
	out, err := NewExporter(WithClock(fixedAt)).Export(timeEnvelope(), FormatXLSX)
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(out.Bytes))
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{"Summary", "Time"}, f.GetSheetList())
	v, err := f.GetCellValue("Summary", "B4")
	require.NoError(t, err)
	assert.Equal(t, "4 hours", v)
	v, err = f.GetCellValue("Time", "A4")
	require.NoError(t, err)
	assert.Equal(t, "TOTAL", v)
}

func TestExportJSONRoundTrip(t *testing.T) {
	out, err := NewExporter(WithClock(fixedAt)).Export(teamEnvelope(), FormatJSON)
	require.NoError(t, err)

	var back Envelope
	require.NoError(t, json.Unmarshal(out.Bytes, &back))
	assert.Equal(t, teamEnvelope(), back)
}

func TestExportDoesNotMutateEnvelope(t *testing.T) {
	env := teamEnvelope()
	before, err := json.Marshal(env)
	require.NoError(t, err)

	for _, f := range Formats {
		_, err := NewExporter(WithClock(fixedAt)).Export(env, f)
		require.NoError(t, err)
	}

	after, err := json.Marshal(env)
	require.NoError(t, err)
	assert.JSONEq(t, string(before), string(after))
}

func TestExportErrors(t *testing.T) {
	ex := NewExporter(WithClock(fixedAt))

	_, err := ex.Export(velocityEnvelope(), "docx")
	assert.ErrorIs(t, err, ErrUnsupportedFormat)

	env := velocityEnvelope()
	env.ReportType = "burndown"
	_, err = ex.Export(env, FormatCSV)
	assert.ErrorIs(t, err, ErrUnsupportedReportType)

	env = velocityEnvelope()
	env.Data = analytics.TimeResult{}
	_, err = ex.Export(env, FormatCSV)
	assert.ErrorIs(t, err, ErrUnsupportedReportType)
}

func TestEnvelopeJSONKeys(t *testing.T) {
	raw, err := json.Marshal(velocityEnvelope())
	require.NoError(t, err)

	var generic map[string]any
	require.NoError(t, json.Unmarshal(raw, &generic))
	assert.Equal(t, "velocity", generic["reportType"])
	data := generic["data"].(map[string]any)
	assert.Contains(t, data, "sprintData")
	assert.EqualValues(t, 6, data["averageVelocity"])
}

func TestParseTypeAndFormat(t *testing.T) {
	typ, err := ParseType(" Team ")
	require.NoError(t, err)
	assert.Equal(t, TypeTeam, typ)

	_, err = ParseType("burndown")
	assert.ErrorIs(t, err, ErrInvalidReportType)

	f, err := ParseFormat("XLSX")
	require.NoError(t, err)
	assert.Equal(t, FormatXLSX, f)

	_, err = ParseFormat("docx")
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

type sourceMock struct{ mock.Mock }

var _ Source = (*sourceMock)(nil)

func (m *sourceMock) Name() string { return "mock" }

func (m *sourceMock) HealthCheck(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *sourceMock) Project(ctx context.Context, orgID, projectID string) (domain.Project, error) {
	args := m.Called(ctx, orgID, projectID)
	return args.Get(0).(domain.Project), args.Error(1)
}

func (m *sourceMock) SprintsWithIssues(ctx context.Context, projectID string, rng domain.DateRange) ([]domain.Sprint, error) {
	args := m.Called(ctx, projectID, rng)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Sprint), args.Error(1)
}

func (m *sourceMock) ResolvedIssues(ctx context.Context, projectID string, rng domain.DateRange) ([]domain.Issue, error) {
	args := m.Called(ctx, projectID, rng)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Issue), args.Error(1)
}

func (m *sourceMock) IssuesCreatedIn(ctx context.Context, projectID string, rng domain.DateRange) ([]domain.Issue, error) {
	args := m.Called(ctx, projectID, rng)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Issue), args.Error(1)
}

func (m *sourceMock) TeamMembers(ctx context.Context, projectID string) ([]domain.User, error) {
	args := m.Called(ctx, projectID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.User), args.Error(1)
}

func (m *sourceMock) TimeLogs(ctx context.Context, projectID string, rng domain.DateRange) ([]domain.TimeLogEntry, error) {
	args := m.Called(ctx, projectID, rng)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.TimeLogEntry), args.Error(1)
}

func (m *sourceMock) Statuses(ctx context.Context, projectID string) ([]string, error) {
	args := m.Called(ctx, projectID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

type observerSpy struct {
	outcomes []string
}

func (o *observerSpy) ReportGenerated(_ Type, outcome string, _ time.Duration) {
	o.outcomes = append(o.outcomes, outcome)
}

var scope = Scope{UserID: "u1", OrgID: "org1"}

func newService(src Source, obs Observer) *Service {
	return NewService(src, NewAssembler(newSpy()), zerolog.Nop(), obs)
}

func TestGetReportDataVelocity(t *testing.T) {
	ctx := context.Background()
	src := &sourceMock{}
	src.On("Project", ctx, "org1", "p1").Return(project, nil)
	src.On("SprintsWithIssues", ctx, "p1", q1).Return([]domain.Sprint{
		{Name: "S1", StartDate: day(2024, 1, 1), EndDate: day(2024, 1, 14), Issues: []domain.Issue{{Status: domain.StatusDone}}},
	}, nil)
	obs := &observerSpy{}

	env, err := newService(src, obs).GetReportData(ctx, scope, "p1", q1, TypeVelocity)
	require.NoError(t, err)

	v, ok := env.Velocity()
	require.True(t, ok)
	assert.Equal(t, 1, v.TotalCompletedIssues)
	assert.Equal(t, []string{OutcomeOK}, obs.outcomes)
	src.AssertExpectations(t)
	src.AssertNotCalled(t, "TimeLogs", mock.Anything, mock.Anything, mock.Anything)
}

func TestGetReportDataTime(t *testing.T) {
	ctx := context.Background()
	src := &sourceMock{}
	src.On("Project", ctx, "org1", "p1").Return(project, nil)
	src.On("TimeLogs", ctx, "p1", q1).Return([]domain.TimeLogEntry{
		{IssueID: "i1", TimeSpent: 120, LoggedAt: day(2024, 2, 1), Issue: domain.Issue{ID: "i1", ProjectID: "p1", Status: "DONE"}},
	}, nil)
	src.On("Statuses", ctx, "p1").Return(domain.DefaultStatuses, nil)

	env, err := newService(src, nil).GetReportData(ctx, scope, "p1", q1, TypeTime)
	require.NoError(t, err)

	d, ok := env.Time()
	require.True(t, ok)
	assert.Equal(t, 2, d.TotalHours)
	assert.Len(t, d.TimeTrackingData, 4)
}

func TestGetReportDataErrors(t *testing.T) {
	ctx := context.Background()

	t.Run("invalid type", func(t *testing.T) {
		src := &sourceMock{}
		_, err := newService(src, nil).GetReportData(ctx, scope, "p1", q1, "burndown")
		assert.ErrorIs(t, err, ErrInvalidReportType)
		src.AssertNotCalled(t, "Project", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("no scope", func(t *testing.T) {
		_, err := newService(&sourceMock{}, nil).GetReportData(ctx, Scope{}, "p1", q1, TypeTeam)
		assert.ErrorIs(t, err, ErrUnauthorized)
	})

	t.Run("inverted range", func(t *testing.T) {
		rng := domain.DateRange{From: q1.To, To: q1.From}
		_, err := newService(&sourceMock{}, nil).GetReportData(ctx, scope, "p1", rng, TypeTeam)
		assert.ErrorIs(t, err, ErrInvalidDateRange)
	})

	t.Run("foreign project", func(t *testing.T) {
		src := &sourceMock{}
		src.On("Project", ctx, "org1", "p9").Return(domain.Project{}, ErrNotFound)
		obs := &observerSpy{}
		_, err := newService(src, obs).GetReportData(ctx, scope, "p9", q1, TypeTeam)
		assert.ErrorIs(t, err, ErrNotFound)
		assert.Equal(t, []string{OutcomeError}, obs.outcomes)
	})

	t.Run("store failure", func(t *testing.T) {
		src := &sourceMock{}
		boom := errors.New("connection reset")
		src.On("Project", ctx, "org1", "p1").Return(project, nil)
		src.On("IssuesCreatedIn", ctx, "p1", q1).Return(nil, boom)
		_, err := newService(src, nil).GetReportData(ctx, scope, "p1", q1, TypeTeam)
		assert.ErrorIs(t, err, boom)
		src.AssertNotCalled(t, "TeamMembers", mock.Anything, mock.Anything)
	})
}

func TestWriteFile(t *testing.T) {
	dir := t.TempDir()
	path, err := WriteFile(dir, Export{Bytes: []byte("x"), Filename: "a.csv"})
	require.NoError(t, err)
	assert.FileExists(t, path)
}
