package main

import (
	"io"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/schollz/progressbar/v3"

	"github.com/Afrawles/trackreport/internal/domain"
	"github.com/Afrawles/trackreport/internal/report"
)

// parseDate reads YYYY-MM-DD, falling back to def when s is empty. An end date covers the whole day.
func parseDate(s string, def time.Time, endOfDay bool) (time.Time, error) {
	if s == "" {
		return def, nil
	}
	t, err := time.ParseInLocation(time.DateOnly, s, time.Local)
	if err != nil {
		return time.Time{}, err
	}
	if endOfDay {
		t = t.Add(24*time.Hour - time.Nanosecond)
	}
	return t, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// printSummary renders the report headline figures as a two-column table.
func printSummary(w io.Writer, env report.Envelope) error {
	layout, err := report.Build(env)
	if err != nil {
		return err
	}

	table := tablewriter.NewWriter(w)
	table.Header("Metric", "Value")
	_ = table.Append([]string{"Report", env.ReportTitle})
	_ = table.Append([]string{"Project", env.ProjectName})
	for _, f := range layout.Summary {
		_ = table.Append([]string{f.Label, f.Value})
	}
	if data, ok := env.Time(); ok {
		_ = table.Append([]string{"Logged", domain.FormatMinutes(data.TotalMinutes)})
	}
	return table.Render()
}

func newSpinner(description string) *progressbar.ProgressBar {
	bar := progressbar.NewOptions(-1,
		progressbar.OptionSetDescription(description),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionSetWidth(15),
		progressbar.OptionThrottle(100*time.Millisecond),
	)
	_ = bar.RenderBlank()
	return bar
}

func finishBar(bar *progressbar.ProgressBar) {
	if bar != nil {
		_ = bar.Finish()
	}
}
