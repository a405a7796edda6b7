package eitc

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ErrConfig reports an invalid analysis configuration.
var ErrConfig = errors.New("invalid configuration")

// Config describes the analysis: which columns hold the outcome,
// time and group size, and which models to fit, in order.
type Config struct {
	Outcome     string        `yaml:"outcome"`
	TimeColumn  string        `yaml:"time_column"`
	GroupColumn string        `yaml:"group_column"`
	Missing     MissingPolicy `yaml:"missing"`
	Fit         FitConfig     `yaml:"fit"`
	Models      []ModelConfig `yaml:"models"`
}

// FitConfig holds the optimizer settings.
type FitConfig struct {
	MaxIter   int     `yaml:"max_iter"`
	Tolerance float64 `yaml:"tolerance"`
}

// ModelConfig describes one difference-in-differences logit.  The
// regressors are post<yy>, mom and mompost<yy> for the cutoff year,
// followed by the covariates.
type ModelConfig struct {
	Name  string `yaml:"name"`
	Title string `yaml:"title"`

	// Years after Cutoff are post-treatment.
	Cutoff int `yaml:"cutoff"`

	// If positive, only rows with a time value below Before are used.
	Before int `yaml:"before"`

	InterceptLabel string `yaml:"intercept_label"`
	Covariates     []Term `yaml:"covariates"`
}

const (
	policyYear  = 1993
	placeboYear = 1992
	mainTitle   = "Impact of Tax Credit on Employment"
)

// DefaultConfig returns the baseline, covariate-adjusted and placebo
// models of the 1993 EITC expansion study.
func DefaultConfig() Config {
	return Config{
		Outcome:     "work",
		TimeColumn:  DefaultTimeColumn,
		GroupColumn: DefaultGroupColumn,
		Missing:     MissingDrop,
		Fit:         FitConfig{MaxIter: 35, Tolerance: 1e-8},
		Models: []ModelConfig{
			{
				Name:   "baseline",
				Title:  mainTitle,
				Cutoff: policyYear,
			},
			{
				Name:   "covariates",
				Title:  mainTitle,
				Cutoff: policyYear,
				Covariates: []Term{
					{Column: "nonwhite", Label: "Hispanic or Black"},
					{Column: "ed", Label: "Years of Education"},
				},
			},
			{
				Name:   "placebo",
				Title:  mainTitle + " - Placebo",
				Cutoff: placeboYear,
				Before: policyYear + 1,
			},
		},
	}
}

// LoadConfig reads a YAML configuration file.  Fields absent from the
// file keep their DefaultConfig values; a models list in the file
// replaces the default models.
func LoadConfig(path string) (Config, error) {

	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("reading config: %w", err)
	}
	return ParseConfig(b)
}

// ParseConfig parses YAML configuration data over DefaultConfig and
// validates the result.
func ParseConfig(b []byte) (Config, error) {

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return Config{}, fmt.Errorf("%w: %v", ErrConfig, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the configuration.
func (c Config) Validate() error {

	if c.Outcome == "" || c.TimeColumn == "" || c.GroupColumn == "" {
		return fmt.Errorf("%w: outcome, time_column and group_column must be set", ErrConfig)
	}
	if c.Missing != MissingDrop && c.Missing != MissingError {
		return fmt.Errorf("%w: missing must be %q or %q, not %q", ErrConfig, MissingDrop, MissingError, c.Missing)
	}
	if c.Fit.MaxIter < 0 || c.Fit.Tolerance < 0 {
		return fmt.Errorf("%w: fit settings must not be negative", ErrConfig)
	}
	if len(c.Models) == 0 {
		return fmt.Errorf("%w: no models", ErrConfig)
	}

	seen := make(map[string]bool)
	for j, m := range c.Models {
		if m.Name == "" {
			return fmt.Errorf("%w: model %d has no name", ErrConfig, j+1)
		}
		if seen[m.Name] {
			return fmt.Errorf("%w: duplicate model name %q", ErrConfig, m.Name)
		}
		seen[m.Name] = true
		if m.Cutoff <= 0 {
			return fmt.Errorf("%w: model %q needs a positive cutoff", ErrConfig, m.Name)
		}
		if m.Before > 0 && m.Before <= m.Cutoff+1 {
			return fmt.Errorf("%w: model %q: before (%d) leaves no rows after the cutoff (%d)", ErrConfig, m.Name, m.Before, m.Cutoff)
		}
		for _, t := range m.Covariates {
			if t.Column == "" {
				return fmt.Errorf("%w: model %q has a covariate without a column", ErrConfig, m.Name)
			}
		}
	}
	return nil
}

// FitOptions returns the optimizer settings.
func (c Config) FitOptions() FitOptions {
	return FitOptions{MaxIter: c.Fit.MaxIter, Tolerance: c.Fit.Tolerance}
}

// Spec returns the regression described by m.
func (m ModelConfig) Spec(outcome string) ModelSpec {

	yy := m.Cutoff % 100
	terms := []Term{
		{Column: PostColumn(m.Cutoff), Label: fmt.Sprintf("post %02d", yy)},
		{Column: MomColumn, Label: "mom"},
		{Column: InteractionColumn(m.Cutoff), Label: fmt.Sprintf("mom post %02d", yy)},
	}
	terms = append(terms, m.Covariates...)

	title := m.Title
	if title == "" {
		title = "Logit Regression Results"
	}

	return ModelSpec{
		Name:           m.Name,
		Title:          title,
		Outcome:        outcome,
		InterceptLabel: m.InterceptLabel,
		Terms:          terms,
	}
}
