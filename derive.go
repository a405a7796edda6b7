package eitc

import (
	"fmt"
)

// Default source columns for the treatment indicators.
const (
	DefaultTimeColumn  = "year"
	DefaultGroupColumn = "children"
)

// MomColumn is the name of the treated group indicator.
const MomColumn = "mom"

// PostColumn returns the name of the after-cutoff indicator, e.g.
// "post93" for 1993.
func PostColumn(cutoff int) string {
	return fmt.Sprintf("post%02d", cutoff%100)
}

// InteractionColumn returns the name of the treated-after-cutoff
// indicator, e.g. "mompost93" for 1993.
func InteractionColumn(cutoff int) string {
	return MomColumn + PostColumn(cutoff)
}

// Indicator returns a 0/1 series named name that is 1 where pred
// holds for the value of s.  Missing values of s stay missing.
func Indicator(s *Series, name string, pred func(float64) bool) (*Series, error) {

	x, miss, err := s.Float64()
	if err != nil {
		return nil, err
	}

	d := make([]float64, len(x))
	for i, v := range x {
		if (miss == nil || !miss[i]) && pred(v) {
			d[i] = 1
		}
	}
	return NewSeries(name, d, copyMask(miss))
}

// Interaction returns the elementwise product of two numeric series.
// A position is missing if it is missing in either factor.
func Interaction(a, b *Series, name string) (*Series, error) {

	x, mx, err := a.Float64()
	if err != nil {
		return nil, err
	}
	y, my, err := b.Float64()
	if err != nil {
		return nil, err
	}
	if len(x) != len(y) {
		return nil, fmt.Errorf("cannot multiply %q (%d rows) by %q (%d rows)", a.Name, len(x), b.Name, len(y))
	}

	var miss []bool
	if mx != nil || my != nil {
		miss = make([]bool, len(x))
	}
	d := make([]float64, len(x))
	for i := range x {
		d[i] = x[i] * y[i]
		if miss != nil {
			miss[i] = (mx != nil && mx[i]) || (my != nil && my[i])
		}
	}
	return NewSeries(name, d, miss)
}

// A Deriver builds the difference-in-differences indicators from a
// time column and a group size column.
type Deriver struct {
	TimeColumn  string
	GroupColumn string
}

// DeriveIndicators derives post<yy>, mom and mompost<yy> from the
// default year and children columns.  See Deriver.Derive.
func DeriveIndicators(t *Table, cutoff int) (*Table, error) {
	return Deriver{}.Derive(t, cutoff)
}

func (d Deriver) columns() (string, string) {
	tc, gc := d.TimeColumn, d.GroupColumn
	if tc == "" {
		tc = DefaultTimeColumn
	}
	if gc == "" {
		gc = DefaultGroupColumn
	}
	return tc, gc
}

// Derive returns t with three indicator columns appended:
//
//	post<yy>    = 1 if time > cutoff
//	mom         = 1 if group > 0
//	mompost<yy> = mom * post<yy>
//
// Existing columns of the same names are replaced, and string source
// columns are converted with Table.Numeric.  The error wraps
// ErrMissingColumn if a source column is absent.
func (d Deriver) Derive(t *Table, cutoff int) (*Table, error) {

	tc, gc := d.columns()
	t = t.Numeric(tc, gc)
	if err := t.Require(tc, gc); err != nil {
		return nil, err
	}

	year, _ := t.Column(tc)
	children, _ := t.Column(gc)

	post, err := Indicator(year, PostColumn(cutoff), func(v float64) bool { return v > float64(cutoff) })
	if err != nil {
		return nil, err
	}
	mom, err := Indicator(children, MomColumn, func(v float64) bool { return v > 0 })
	if err != nil {
		return nil, err
	}
	inter, err := Interaction(mom, post, InteractionColumn(cutoff))
	if err != nil {
		return nil, err
	}

	for _, c := range []*Series{post, mom, inter} {
		if t, err = t.WithColumn(c); err != nil {
			return nil, err
		}
	}
	return t, nil
}

// Before returns the rows of t whose time value is strictly less
// than limit.  Rows with a missing time value are dropped.
func (d Deriver) Before(t *Table, limit int) (*Table, error) {

	tc, _ := d.columns()
	x, miss, err := t.Float64(tc)
	if err != nil {
		return nil, err
	}

	keep := make([]bool, len(x))
	for i, v := range x {
		keep[i] = (miss == nil || !miss[i]) && v < float64(limit)
	}
	return t.Filter(keep)
}

// Placebo derives the indicators at a cutoff where no policy change
// took place, and keeps only the rows before the real policy year.
func (d Deriver) Placebo(t *Table, cutoff, before int) (*Table, error) {
	dt, err := d.Derive(t, cutoff)
	if err != nil {
		return nil, err
	}
	return d.Before(dt, before)
}

// PlaceboTable is Deriver.Placebo with the default source columns.
func PlaceboTable(t *Table, cutoff, before int) (*Table, error) {
	return Deriver{}.Placebo(t, cutoff, before)
}
