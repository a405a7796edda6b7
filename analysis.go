package eitc

import (
	"fmt"
	"io"
	"log/slog"
	"time"
)

// Analysis runs the configured models one after another against a
// single data table.
type Analysis struct {
	Config Config

	// Progress messages; slog.Default() if nil.
	Logger *slog.Logger

	// Summaries are written here when it is not nil.
	Out io.Writer

	// Clock for the summary headers; time.Now if nil.
	Now func() time.Time
}

// NewAnalysis returns an Analysis of cfg writing summaries to out.
func NewAnalysis(cfg Config, out io.Writer) *Analysis {
	return &Analysis{Config: cfg, Out: out}
}

func (a *Analysis) logger() *slog.Logger {
	if a.Logger != nil {
		return a.Logger
	}
	return slog.Default()
}

func (a *Analysis) now() time.Time {
	if a.Now != nil {
		return a.Now()
	}
	return time.Now()
}

// RunFile loads the data file at path and runs the analysis.
func (a *Analysis) RunFile(path string) ([]*Report, error) {

	t, err := Load(path)
	if err != nil {
		return nil, err
	}
	a.logger().Info("loaded data", "path", path, "rows", t.NumRows(), "columns", len(t.Names()))

	return a.Run(t)
}

// Run fits every configured model to t, in order, and writes each
// summary as soon as its model is fitted.  The first failure stops
// the run; the reports completed before it are returned with the
// error.
func (a *Analysis) Run(t *Table) ([]*Report, error) {

	cfg := a.Config
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	log := a.logger()

	deriver := Deriver{TimeColumn: cfg.TimeColumn, GroupColumn: cfg.GroupColumn}
	derived := make(map[int]*Table)

	var reports []*Report
	for _, mc := range cfg.Models {

		mlog := log.With("model", mc.Name)

		dt, ok := derived[mc.Cutoff]
		if !ok {
			var err error
			dt, err = deriver.Derive(t, mc.Cutoff)
			if err != nil {
				return reports, fmt.Errorf("model %s: %w", mc.Name, err)
			}
			derived[mc.Cutoff] = dt
			mlog.Debug("derived indicators", "cutoff", mc.Cutoff,
				"columns", []string{PostColumn(mc.Cutoff), MomColumn, InteractionColumn(mc.Cutoff)})
		}

		if mc.Before > 0 {
			var err error
			dt, err = deriver.Before(dt, mc.Before)
			if err != nil {
				return reports, fmt.Errorf("model %s: %w", mc.Name, err)
			}
			mlog.Info("restricted rows", "before", mc.Before, "rows", dt.NumRows(), "of", t.NumRows())
		}

		spec := mc.Spec(cfg.Outcome)
		report, err := RunModel(dt, spec, cfg.FitOptions(), cfg.Missing)
		if err != nil {
			mlog.Error("fit failed", "error", err)
			return reports, fmt.Errorf("model %s: %w", mc.Name, err)
		}
		if report.Dropped > 0 {
			mlog.Warn("dropped rows with missing values", "dropped", report.Dropped)
		}
		mlog.Info("fitted", "observations", report.Results.NObs,
			"iterations", report.Results.Iterations, "llf", report.Results.LogLike)

		report.Cells, err = CellMeans(dt, cfg.Outcome, MomColumn, PostColumn(mc.Cutoff))
		if err != nil {
			return reports, fmt.Errorf("model %s: %w", mc.Name, err)
		}

		if a.Out != nil {
			if err := report.WriteTo(a.Out, a.now()); err != nil {
				return reports, err
			}
		}
		reports = append(reports, report)
	}

	return reports, nil
}
