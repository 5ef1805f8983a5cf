// Package config loads and validates the report configuration.  A single
// YAML file declares the input dataset, the column roles, the ordered
// selection criteria, the optional model settings and the output paths.
// Values can be overridden through KMREPORT_-prefixed environment
// variables, with a double underscore separating nested keys
// (KMREPORT_OUTPUT__DIR overrides output.dir).
package config

import (
	"fmt"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"

	"github.com/brookluers/kmreport/internal/criteria"
)

const envPrefix = "KMREPORT_"

// Input describes where and how to read the dataset.  Exactly one of CSV
// and BCols must be set.
type Input struct {
	CSV        string   `koanf:"csv"`
	BCols      string   `koanf:"bcols"`
	Bucketed   bool     `koanf:"bucketed"`
	FloatVars  []string `koanf:"float_vars"`
	StringVars []string `koanf:"string_vars"`
}

// Columns assigns dataset columns to their analysis roles.
type Columns struct {
	SubjectID string `koanf:"subject_id"`
	Time      string `koanf:"time"`
	Status    string `koanf:"status"`
	Group     string `koanf:"group"`
}

// StatusRecode derives the numeric status column from a categorical source
// column, e.g. {"Dead": 1, "Alive": 0}.
type StatusRecode struct {
	From   string             `koanf:"from"`
	Values map[string]float64 `koanf:"values"`
}

// CriterionSpec is one selection step as written in the configuration.
// Exactly one predicate form applies: present, equals (with field), or a
// comparison (field, op, value).
type CriterionSpec struct {
	Desc       string  `koanf:"desc"`
	Complement string  `koanf:"complement"`
	Present    string  `koanf:"present"`
	Field      string  `koanf:"field"`
	Op         string  `koanf:"op"`
	Value      float64 `koanf:"value"`
	Equals     string  `koanf:"equals"`
}

// Factors configures the optional reduction of an indicator block to
// orthogonal factor columns.
type Factors struct {
	Block      []string `koanf:"block"`
	Prefix     string   `koanf:"prefix"`
	NumFactors int      `koanf:"num_factors"`
	PowerIters int      `koanf:"power_iters"`
}

// Analysis configures the model layer.
type Analysis struct {
	Terms        []string `koanf:"terms"`
	TermPrefixes []string `koanf:"term_prefixes"`
	L2           float64  `koanf:"l2"`
	Knockoff     bool     `koanf:"knockoff"`
	Seed         int64    `koanf:"seed"`
	Factors      Factors  `koanf:"factors"`
}

// Baseline lists the covariates summarized in the characteristics table.
type Baseline struct {
	Numeric     []string `koanf:"numeric"`
	Categorical []string `koanf:"categorical"`
}

// Output names the artifacts, all relative to Dir.
type Output struct {
	Dir           string `koanf:"dir"`
	Report        string `koanf:"report"`
	AttritionPlot string `koanf:"attrition_plot"`
	KMPlot        string `koanf:"km_plot"`
}

// Config is the full report configuration.
type Config struct {
	Title    string          `koanf:"title"`
	Input    Input           `koanf:"input"`
	Columns  Columns         `koanf:"columns"`
	Recode   StatusRecode    `koanf:"status_recode"`
	Criteria []CriterionSpec `koanf:"criteria"`
	Baseline Baseline        `koanf:"baseline"`
	Analysis Analysis        `koanf:"analysis"`
	Output   Output          `koanf:"output"`
}

// Load reads the configuration file, applies environment overrides and
// validates the result.
func Load(path string) (*Config, error) {

	k := koanf.New(".")
	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		return nil, fmt.Errorf("config: reading %s: %w", path, err)
	}

	return finish(k)
}

// Parse loads a configuration from raw YAML; used by tests.
func Parse(raw []byte) (*Config, error) {

	k := koanf.New(".")
	if err := k.Load(rawbytes.Provider(raw), yaml.Parser()); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	return finish(k)
}

// envKey maps an environment variable name to a koanf key path.  Config
// keys themselves contain underscores (status_recode, float_vars), so a
// double underscore separates path segments: KMREPORT_STATUS_RECODE__FROM
// overrides status_recode.from.
func envKey(s string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, envPrefix)), "__", ".")
}

func finish(k *koanf.Koanf) (*Config, error) {

	if err := k.Load(env.Provider(envPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("config: environment overrides: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Title == "" {
		c.Title = "Survival analysis report"
	}
	if c.Output.Dir == "" {
		c.Output.Dir = "."
	}
	if c.Output.Report == "" {
		c.Output.Report = "report.md"
	}
	if c.Output.AttritionPlot == "" {
		c.Output.AttritionPlot = "attrition.png"
	}
	if c.Output.KMPlot == "" {
		c.Output.KMPlot = "km.png"
	}
	if c.Analysis.Factors.Prefix == "" {
		c.Analysis.Factors.Prefix = "F"
	}
	if c.Analysis.Factors.PowerIters == 0 {
		c.Analysis.Factors.PowerIters = 5
	}
	if c.Analysis.Seed == 0 {
		c.Analysis.Seed = 323849
	}
}

func (c *Config) validate() error {

	if (c.Input.CSV == "") == (c.Input.BCols == "") {
		return fmt.Errorf("config: exactly one of input.csv and input.bcols must be set")
	}
	if c.Input.CSV != "" && len(c.Input.FloatVars)+len(c.Input.StringVars) == 0 {
		return fmt.Errorf("config: csv input requires input.float_vars or input.string_vars")
	}
	if c.Columns.Time == "" || c.Columns.Status == "" {
		return fmt.Errorf("config: columns.time and columns.status are required")
	}
	if c.Recode.From != "" && len(c.Recode.Values) == 0 {
		return fmt.Errorf("config: status_recode.from set without status_recode.values")
	}

	for i, cs := range c.Criteria {
		if cs.Desc == "" {
			return fmt.Errorf("config: criteria[%d] has no description", i)
		}
		if _, err := cs.Build(); err != nil {
			return err
		}
	}

	return nil
}

// Build converts the spec into a typed criterion.
func (cs CriterionSpec) Build() (criteria.Criterion, error) {

	c := criteria.Criterion{Desc: cs.Desc, Complement: cs.Complement}

	switch {
	case cs.Present != "":
		c.Pred = criteria.Present{Field: cs.Present}
	case cs.Equals != "":
		if cs.Field == "" {
			return c, fmt.Errorf("config: criterion %q: equals requires field", cs.Desc)
		}
		c.Pred = criteria.Equals{Field: cs.Field, Value: cs.Equals}
	case cs.Field != "":
		op, err := criteria.ParseOp(cs.Op)
		if err != nil {
			return c, fmt.Errorf("config: criterion %q: %w", cs.Desc, err)
		}
		c.Pred = criteria.Compare{Field: cs.Field, Op: op, Value: cs.Value}
	default:
		return c, fmt.Errorf("config: criterion %q has no predicate", cs.Desc)
	}

	return c, nil
}

// BuildCriteria converts all criterion specs in order.
func (c *Config) BuildCriteria() ([]criteria.Criterion, error) {
	var out []criteria.Criterion
	for _, cs := range c.Criteria {
		cr, err := cs.Build()
		if err != nil {
			return nil, err
		}
		out = append(out, cr)
	}
	return out, nil
}
