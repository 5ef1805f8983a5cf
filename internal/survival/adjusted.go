package survival

import (
	"fmt"
	"math/rand"
	"strings"

	"github.com/kshedden/dstream/dstream"
	"github.com/kshedden/dstream/formula"
	"github.com/kshedden/duration"
	"github.com/kshedden/statmodel/statmodel"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/optimize"

	"github.com/brookluers/kmreport/internal/cohort"
)

// AdjustedConfig controls the covariate-adjusted proportional hazards
// analysis.
type AdjustedConfig struct {

	// Terms are formula terms, e.g. "Age", "Age*Female".
	Terms []string

	// TermPrefixes expand to one main-effect term per numeric column
	// whose name starts with the prefix.
	TermPrefixes []string

	// L2 is a ridge penalty weight applied to every covariate; zero
	// disables the penalty.
	L2 float64

	// Knockoff enables knockoff-based covariate screening.
	Knockoff bool

	// Seed for the knockoff construction.
	Seed int64
}

// KnockoffRow is the screening outcome for one covariate.
type KnockoffRow struct {
	Name  string
	Param float64
	Stat  float64
	FDR   float64
}

// Adjusted is the fitted covariate-adjusted model.
type Adjusted struct {
	Formula     string
	Summary     string
	Concordance float64
	Knockoff    []KnockoffRow
}

// BuildFormula joins the explicit terms with the prefix-expanded terms into
// one additive model formula.
func BuildFormula(f *cohort.Frame, cfg AdjustedConfig) (string, error) {

	ee := append([]string(nil), cfg.Terms...)

	for _, pre := range cfg.TermPrefixes {
		found := false
		for _, na := range f.Names() {
			if f.IsFloat(na) && strings.HasPrefix(na, pre) {
				ee = append(ee, na)
				found = true
			}
		}
		if !found {
			return "", fmt.Errorf("survival: term prefix %q matches no numeric column", pre)
		}
	}

	if len(ee) == 0 {
		return "", fmt.Errorf("survival: adjusted analysis has no model terms")
	}

	return strings.Join(ee, " + "), nil
}

// FitAdjusted fits the covariate-adjusted model, optionally with a ridge
// penalty and knockoff screening.
func FitAdjusted(f *cohort.Frame, timeVar, statusVar string, cfg AdjustedConfig, lg *zap.Logger) (*Adjusted, error) {

	f, dropped, err := completeCases(f, timeVar, statusVar)
	if err != nil {
		return nil, err
	}
	if dropped > 0 {
		lg.Warn("adjusted analysis dropped records with missing time or status",
			zap.Int("dropped", dropped))
	}

	fml, err := BuildFormula(f, cfg)
	if err != nil {
		return nil, err
	}
	lg.Info("fitting adjusted model", zap.String("formula", fml))

	data, err := f.ToDstream()
	if err != nil {
		return nil, err
	}

	keep := []string{timeVar, statusVar}
	dx := formula.New(fml, data).Keep(keep).Done()
	da := dstream.MemCopy(dx)

	if cfg.Knockoff {
		var names []string
		for _, v := range da.Names() {
			if v != timeVar && v != statusVar {
				names = append(names, v)
			}
		}

		da.Reset()
		rand.Seed(cfg.Seed)
		ko, err := statmodel.NewKnockoff(da, names)
		if err != nil {
			return nil, fmt.Errorf("survival: knockoff construction: %w", err)
		}
		ko.Reset()
		da = dstream.MemCopy(ko)
		lg.Debug("knockoff constructed", zap.Float64("lmin", ko.CrossProdMinEig()))
	}

	opt := &optimize.Settings{GradientThreshold: 1e-3}

	da.Reset()
	ds := dstream.Shallow(da)

	model := duration.NewPHReg(ds, timeVar, statusVar).OptSettings(opt)
	if cfg.L2 > 0 {
		var l2wgt []float64
		for k := 0; k < len(da.Names())-2; k++ {
			l2wgt = append(l2wgt, cfg.L2)
		}
		model = model.L2Weight(l2wgt)
	}
	if !cfg.Knockoff {
		// With knockoff the data are already normalized.
		model = model.Norm()
	}
	model = model.Done()

	result, err := model.Fit()
	if err != nil {
		return nil, fmt.Errorf("survival: adjusted model fit: %w", err)
	}

	adj := &Adjusted{
		Formula: fml,
		Summary: result.Summary(),
	}

	score := result.FittedValues(nil)
	adj.Concordance = concordance(ds, timeVar, statusVar, score)

	if cfg.Knockoff {
		kr := statmodel.NewKnockoffResult(result, false)
		names := kr.Names()
		params := kr.Params()
		stat := kr.Stat()
		fdr := kr.FDR()
		for i := range names {
			adj.Knockoff = append(adj.Knockoff, KnockoffRow{
				Name:  names[i],
				Param: params[i],
				Stat:  stat[i],
				FDR:   fdr[i],
			})
		}
	}

	return adj, nil
}
