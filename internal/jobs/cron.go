// Package jobs runs configured report exports on a cron schedule.
package jobs

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/Afrawles/trackreport/internal/config"
	"github.com/Afrawles/trackreport/internal/domain"
	"github.com/Afrawles/trackreport/internal/report"
)

// lockKey guards scheduled exports across replicas sharing one database.
const lockKey int64 = 0x74726b72

const (
	OutcomeOK      = "ok"
	OutcomeError   = "error"
	OutcomeSkipped = "skipped"
)

const runTimeout = 5 * time.Minute

type reportService interface {
	GetReportData(ctx context.Context, scope report.Scope, projectID string, rng domain.DateRange, t report.Type) (report.Envelope, error)
}

// Locker takes a cluster-wide lock; ok is false when someone else holds it.
type Locker interface {
	TryLock(ctx context.Context, key int64) (unlock func(), ok bool, err error)
}

type Recorder interface {
	ScheduledRun(outcome string)
	ExportRendered(f report.Format)
}

type job struct {
	projectID string
	orgID     string
	typ       report.Type
	format    report.Format
	days      int
}

type Cron struct {
	log      zerolog.Logger
	c        *cron.Cron
	loc      *time.Location
	jobs     []job
	outDir   string
	reports  reportService
	exporter *report.Exporter
	locker   Locker
	recorder Recorder
	now      func() time.Time
}

// New validates the configured jobs and registers them under export.schedule.
func New(cfg *config.Config, log zerolog.Logger, reports reportService, exporter *report.Exporter, locker Locker, recorder Recorder) (*Cron, error) {
	loc, err := cfg.App.Location()
	if err != nil {
		return nil, err
	}

	jobs := make([]job, 0, len(cfg.Export.Jobs))
	for i, j := range cfg.Export.Jobs {
		t, err := report.ParseType(j.Type)
		if err != nil {
			return nil, fmt.Errorf("export.jobs[%d]: %w", i, err)
		}
		f, err := report.ParseFormat(j.Format)
		if err != nil {
			return nil, fmt.Errorf("export.jobs[%d]: %w", i, err)
		}
		jobs = append(jobs, job{projectID: j.ProjectID, orgID: j.OrgID, typ: t, format: f, days: j.Days})
	}

	c := cron.New(
		cron.WithLocation(loc),
		cron.WithParser(cron.NewParser(cron.Minute|cron.Hour|cron.Dom|cron.Month|cron.Dow|cron.Descriptor)),
	)
	cr := &Cron{
		log:      log.With().Str("component", "jobs").Logger(),
		c:        c,
		loc:      loc,
		jobs:     jobs,
		outDir:   cfg.Export.OutputDir,
		reports:  reports,
		exporter: exporter,
		locker:   locker,
		recorder: recorder,
		now:      time.Now,
	}

	if cfg.Export.Schedule != "" {
		if _, err := c.AddFunc(cfg.Export.Schedule, cr.tick); err != nil {
			return nil, fmt.Errorf("export.schedule: %w", err)
		}
	}
	return cr, nil
}

func (cr *Cron) Start() { cr.c.Start() }

// Stop waits for a running export to finish or ctx to expire.
func (cr *Cron) Stop(ctx context.Context) {
	select {
	case <-cr.c.Stop().Done():
	case <-ctx.Done():
	}
}

func (cr *Cron) tick() {
	ctx, cancel := context.WithTimeout(context.Background(), runTimeout)
	defer cancel()
	if _, err := cr.RunOnce(ctx); err != nil {
		cr.log.Error().Err(err).Msg("cron: scheduled export failed")
	}
}

// RunOnce exports every job under the advisory lock and returns the written paths. Files land
// in one directory per project.
func (cr *Cron) RunOnce(ctx context.Context) ([]string, error) {
	unlock, ok, err := cr.locker.TryLock(ctx, lockKey)
	if err != nil {
		cr.recorder.ScheduledRun(OutcomeError)
		return nil, fmt.Errorf("cron lock: %w", err)
	}
	if !ok {
		cr.log.Info().Msg("cron: already running elsewhere")
		cr.recorder.ScheduledRun(OutcomeSkipped)
		return nil, nil
	}
	defer unlock()

	var (
		paths []string
		errs  []error
	)
	for _, j := range cr.jobs {
		path, err := cr.run(ctx, j)
		if err != nil {
			cr.log.Error().Err(err).
				Str("project_id", j.projectID).
				Str("type", string(j.typ)).
				Msg("cron: export failed")
			errs = append(errs, fmt.Errorf("%s/%s: %w", j.projectID, j.typ, err))
			continue
		}
		paths = append(paths, path)
	}

	err = errors.Join(errs...)
	if err != nil {
		cr.recorder.ScheduledRun(OutcomeError)
	} else {
		cr.recorder.ScheduledRun(OutcomeOK)
	}
	return paths, err
}

func (cr *Cron) run(ctx context.Context, j job) (string, error) {
	end := cr.now().In(cr.loc)
	rng := domain.DateRange{From: end.AddDate(0, 0, -j.days), To: end}
	scope := report.Scope{UserID: "scheduler", OrgID: j.orgID}

	env, err := cr.reports.GetReportData(ctx, scope, j.projectID, rng, j.typ)
	if err != nil {
		return "", err
	}
	out, err := cr.exporter.Export(env, j.format)
	if err != nil {
		return "", err
	}
	cr.recorder.ExportRendered(j.format)

	path, err := report.WriteFile(filepath.Join(cr.outDir, j.projectID), out)
	if err != nil {
		return "", err
	}
	cr.log.Info().Str("path", path).Str("project_id", j.projectID).Msg("cron: report written")
	return path, nil
}
