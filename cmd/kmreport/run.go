package main

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/brookluers/kmreport/internal/attrition"
	"github.com/brookluers/kmreport/internal/baseline"
	"github.com/brookluers/kmreport/internal/cohort"
	"github.com/brookluers/kmreport/internal/config"
	"github.com/brookluers/kmreport/internal/dataload"
	"github.com/brookluers/kmreport/internal/render"
	"github.com/brookluers/kmreport/internal/survival"
)

// runReport executes the whole pipeline: load, select, summarize, model,
// render.  Any failure aborts the run; no partial report is written.
func runReport(cfgPath string, lg *zap.Logger) error {

	runID := uuid.NewString()
	lg = lg.With(zap.String("run", runID))

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return err
	}

	f, err := loadData(cfg, lg)
	if err != nil {
		return err
	}

	if err := dataload.Describe(f, lg); err != nil {
		return err
	}

	cs, err := cfg.BuildCriteria()
	if err != nil {
		return err
	}

	res, err := attrition.Run(f, cs)
	if err != nil {
		return err
	}
	lg.Info("cohort selected",
		zap.Int("total", res.Total),
		zap.Int("selected", res.Cohort.NumRec()),
		zap.Int("criteria", len(res.Rows)))

	rep := &render.Report{
		Title:     cfg.Title,
		RunID:     runID,
		When:      time.Now(),
		Attrition: res,
	}

	sel := res.Cohort

	if len(cfg.Baseline.Numeric)+len(cfg.Baseline.Categorical) > 0 {
		rep.Baseline, err = baseline.Build(sel, cfg.Baseline.Numeric, cfg.Baseline.Categorical, cfg.Columns.Group)
		if err != nil {
			return err
		}
	}

	rep.Curves, err = survival.Curves(sel, cfg.Columns.Time, cfg.Columns.Status, cfg.Columns.Group, lg)
	if err != nil {
		return err
	}

	if cfg.Columns.Group != "" {
		rep.Effect, err = survival.GroupEffect(sel, cfg.Columns.Time, cfg.Columns.Status, cfg.Columns.Group)
		if err != nil {
			return err
		}
		lg.Info("group model fitted", zap.Float64("concordance", rep.Effect.Concordance))
	}

	if len(cfg.Analysis.Terms)+len(cfg.Analysis.TermPrefixes) > 0 {
		mf := sel
		if fx := cfg.Analysis.Factors; len(fx.Block) > 0 {
			mf, err = survival.ReduceIndicators(mf, fx.Block, fx.Prefix, fx.NumFactors, fx.PowerIters)
			if err != nil {
				return err
			}
			lg.Info("indicator block reduced",
				zap.Int("columns", len(fx.Block)),
				zap.Int("factors", fx.NumFactors))
		}

		rep.Adjusted, err = survival.FitAdjusted(mf, cfg.Columns.Time, cfg.Columns.Status, survival.AdjustedConfig{
			Terms:        cfg.Analysis.Terms,
			TermPrefixes: cfg.Analysis.TermPrefixes,
			L2:           cfg.Analysis.L2,
			Knockoff:     cfg.Analysis.Knockoff,
			Seed:         cfg.Analysis.Seed,
		}, lg)
		if err != nil {
			return err
		}
	}

	if err := render.WriteAll(rep, cfg.Output.Dir, cfg.Output.Report, cfg.Output.AttritionPlot, cfg.Output.KMPlot); err != nil {
		return err
	}

	lg.Info("report written",
		zap.String("dir", cfg.Output.Dir),
		zap.String("report", cfg.Output.Report))

	return nil
}

// loadData reads the configured input, applies the status recode and
// deduplicates by subject id.
func loadData(cfg *config.Config, lg *zap.Logger) (*cohort.Frame, error) {

	var f *cohort.Frame
	var err error

	switch {
	case cfg.Input.CSV != "":
		f, err = dataload.CSV(cfg.Input.CSV, cfg.Input.FloatVars, cfg.Input.StringVars, lg)
	case cfg.Input.Bucketed:
		f, err = dataload.Buckets(cfg.Input.BCols, nil, lg)
	default:
		f, err = dataload.BCols(cfg.Input.BCols, nil, lg)
	}
	if err != nil {
		return nil, err
	}

	if cfg.Recode.From != "" {
		f, err = dataload.RecodeStr(f, cfg.Recode.From, cfg.Columns.Status, cfg.Recode.Values)
		if err != nil {
			return nil, err
		}
	}

	if id := cfg.Columns.SubjectID; id != "" {
		var dropped int
		f, dropped, err = f.Dedup(id)
		if err != nil {
			return nil, err
		}
		if dropped > 0 {
			lg.Warn("dropped duplicate subject records", zap.Int("dropped", dropped))
		}
	}

	if !f.HasVar(cfg.Columns.Time) || !f.HasVar(cfg.Columns.Status) {
		return nil, fmt.Errorf("dataset lacks the configured time/status columns %q, %q",
			cfg.Columns.Time, cfg.Columns.Status)
	}

	return f, nil
}
