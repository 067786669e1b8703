package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"time"
)

// Export is a rendered report ready to be saved or streamed.
type Export struct {
	Bytes       []byte
	Filename    string
	ContentType string
}

type Exporter struct {
	now func() time.Time
}

type ExporterOption func(*Exporter)

// WithClock sets the clock used for the filename date and document metadata.
func WithClock(now func() time.Time) ExporterOption {
	return func(e *Exporter) { e.now = now }
}

func NewExporter(opts ...ExporterOption) *Exporter {
	e := &Exporter{now: time.Now}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

var whitespaceRun = regexp.MustCompile(`\s+`)

// Filename is "<title with whitespace runs as _>_<YYYY-MM-DD>.<ext>".
func Filename(title string, at time.Time, format Format) string {
	return fmt.Sprintf("%s_%s.%s", whitespaceRun.ReplaceAllString(title, "_"), at.Format(time.DateOnly), format)
}

// Export renders env in the requested format. The envelope is read, never modified.
func (e *Exporter) Export(env Envelope, format Format) (Export, error) {
	if !format.Valid() {
		return Export{}, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
	if !env.ReportType.Valid() {
		return Export{}, fmt.Errorf("%w: %q", ErrUnsupportedReportType, env.ReportType)
	}

	now := e.now()
	out := Export{
		Filename:    Filename(env.ReportTitle, now, format),
		ContentType: format.ContentType(),
	}

	if format == FormatJSON {
		data, err := json.MarshalIndent(env, "", "\t")
		if err != nil {
			return Export{}, fmt.Errorf("encode json: %w", err)
		}
		out.Bytes = data
		return out, nil
	}

	layout, err := Build(env)
	if err != nil {
		return Export{}, err
	}

	switch format {
	case FormatPDF:
		out.Bytes, err = renderPDF(env, layout, now)
	case FormatCSV:
		out.Bytes, err = renderCSV(layout)
	case FormatXLSX:
		out.Bytes, err = renderXLSX(env, layout)
	}
	if err != nil {
		return Export{}, err
	}
	return out, nil
}

// WriteFile saves ex under dir and returns the written path.
func WriteFile(dir string, ex Export) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}

	path := filepath.Join(dir, ex.Filename)
	if err := os.WriteFile(path, ex.Bytes, 0644); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", path, err)
	}
	return path, nil
}
