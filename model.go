package eitc

import (
	"errors"
	"fmt"
	"io"
	"time"

	"gonum.org/v1/gonum/mat"
)

// ErrMissingData reports missing values in the model columns when
// the missing data policy is MissingError.
var ErrMissingData = errors.New("missing values in model data")

// MissingPolicy says what to do with rows that have a missing outcome
// or regressor.
type MissingPolicy string

const (
	// MissingDrop removes incomplete rows before fitting.
	MissingDrop MissingPolicy = "drop"

	// MissingError fails the fit.
	MissingError MissingPolicy = "error"
)

// A Term is a regressor column and the label it gets in summaries.
type Term struct {
	Column string `yaml:"column"`
	Label  string `yaml:"label"`
}

// A ModelSpec describes one logistic regression.
type ModelSpec struct {
	Name           string
	Title          string
	Outcome        string
	InterceptLabel string
	Terms          []Term
}

// Columns returns the regressor column names.
func (s ModelSpec) Columns() []string {
	c := make([]string, len(s.Terms))
	for j, t := range s.Terms {
		c[j] = t.Column
	}
	return c
}

// XNames returns the summary labels of the intercept and each
// regressor.
func (s ModelSpec) XNames() []string {
	il := s.InterceptLabel
	if il == "" {
		il = "intercept"
	}
	names := []string{il}
	for _, t := range s.Terms {
		l := t.Label
		if l == "" {
			l = t.Column
		}
		names = append(names, l)
	}
	return names
}

// DesignMatrix extracts the outcome and a design matrix made of a
// column of ones followed by the named columns.  Rows with a missing
// value in any of these columns, including string values that do not
// parse as numbers, are dropped, and counted, under
// MissingDrop; under MissingError they give an error wrapping
// ErrMissingData.
func DesignMatrix(t *Table, outcome string, columns []string, policy MissingPolicy) ([]float64, *mat.Dense, int, error) {

	t = t.Numeric(append([]string{outcome}, columns...)...)
	if err := t.Require(append([]string{outcome}, columns...)...); err != nil {
		return nil, nil, 0, err
	}

	n := t.NumRows()
	keep := make([]bool, n)
	for i := range keep {
		keep[i] = true
	}

	vals := make([][]float64, len(columns)+1)
	for j, name := range append([]string{outcome}, columns...) {
		x, miss, err := t.Float64(name)
		if err != nil {
			return nil, nil, 0, err
		}
		for i := range x {
			if miss != nil && miss[i] {
				if policy == MissingError {
					return nil, nil, 0, fmt.Errorf("%w: column %q row %d", ErrMissingData, name, i)
				}
				keep[i] = false
			}
		}
		vals[j] = x
	}

	m := 0
	for _, k := range keep {
		if k {
			m++
		}
	}

	if m == 0 {
		return nil, nil, n, fmt.Errorf("%w: no complete rows", ErrMissingData)
	}

	y := make([]float64, 0, m)
	x := mat.NewDense(m, len(columns)+1, nil)
	r := 0
	for i := 0; i < n; i++ {
		if !keep[i] {
			continue
		}
		y = append(y, vals[0][i])
		x.Set(r, 0, 1)
		for j := range columns {
			x.Set(r, j+1, vals[j+1][i])
		}
		r++
	}

	return y, x, n - m, nil
}

// A Report is the outcome of one model run.
type Report struct {
	Spec    ModelSpec
	Results *LogitResults

	// Number of rows removed for missing values.
	Dropped int

	// Raw treated/control by pre/post outcome means, when known.
	Cells *CellMeansTable
}

// RunModel fits the logistic regression described by spec to the
// rows of t.
func RunModel(t *Table, spec ModelSpec, fit FitOptions, policy MissingPolicy) (*Report, error) {

	y, x, dropped, err := DesignMatrix(t, spec.Outcome, spec.Columns(), policy)
	if err != nil {
		return nil, err
	}

	res, err := FitLogit(y, x, fit)
	if err != nil {
		return nil, err
	}

	return &Report{Spec: spec, Results: res, Dropped: dropped}, nil
}

// WriteTo writes the cell means, if present, followed by the
// regression summary.
func (r *Report) WriteTo(w io.Writer, ts time.Time) error {

	if r.Cells != nil {
		if err := r.Cells.Write(w); err != nil {
			return err
		}
		if _, err := io.WriteString(w, "\n"); err != nil {
			return err
		}
	}

	labels := SummaryLabels{
		Title:  r.Spec.Title,
		YName:  r.Spec.Outcome,
		XNames: r.Spec.XNames(),
		Time:   ts,
	}
	if err := r.Results.WriteSummary(w, labels); err != nil {
		return err
	}
	_, err := io.WriteString(w, "\n")
	return err
}
