package eitc

import (
	"fmt"
	"io"
	"math"

	"gonum.org/v1/gonum/stat"
)

// CellMeansTable holds the outcome mean of each group (control,
// treated) in each period (pre, post), indexed [group][period].
type CellMeansTable struct {
	Outcome string
	Means   [2][2]float64
	Counts  [2][2]int

	// (treated post - treated pre) - (control post - control pre)
	DiD float64
}

// CellMeans computes the two by two table of outcome means behind a
// difference-in-differences estimate.  group and post must be 0/1
// columns; rows with a missing value in any of the three columns are
// ignored.  An empty cell has a NaN mean.
func CellMeans(t *Table, outcome, group, post string) (*CellMeansTable, error) {

	if err := t.Require(outcome, group, post); err != nil {
		return nil, err
	}
	y, ym, _ := t.Float64(outcome)
	g, gm, _ := t.Float64(group)
	p, pm, _ := t.Float64(post)

	var cells [2][2][]float64
	for i := range y {
		if (ym != nil && ym[i]) || (gm != nil && gm[i]) || (pm != nil && pm[i]) {
			continue
		}
		gi, pi := int(g[i]), int(p[i])
		if gi < 0 || gi > 1 || pi < 0 || pi > 1 {
			return nil, fmt.Errorf("row %d: %s=%v %s=%v are not indicators", i, group, g[i], post, p[i])
		}
		cells[gi][pi] = append(cells[gi][pi], y[i])
	}

	ct := &CellMeansTable{Outcome: outcome}
	for gi := 0; gi < 2; gi++ {
		for pi := 0; pi < 2; pi++ {
			ct.Counts[gi][pi] = len(cells[gi][pi])
			if len(cells[gi][pi]) == 0 {
				ct.Means[gi][pi] = math.NaN()
			} else {
				ct.Means[gi][pi] = stat.Mean(cells[gi][pi], nil)
			}
		}
	}
	ct.DiD = (ct.Means[1][1] - ct.Means[1][0]) - (ct.Means[0][1] - ct.Means[0][0])

	return ct, nil
}

// Write prints the table.
func (ct *CellMeansTable) Write(w io.Writer) error {

	rows := [2]string{"control", "treated"}

	if _, err := fmt.Fprintf(w, "Mean of %s by group and period\n", ct.Outcome); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "%-12s%12s%8s%12s%8s%12s\n", "", "pre", "n", "post", "n", "change"); err != nil {
		return err
	}
	for gi, name := range rows {
		m := ct.Means[gi]
		if _, err := fmt.Fprintf(w, "%-12s%12.4f%8d%12.4f%8d%12.4f\n",
			name, m[0], ct.Counts[gi][0], m[1], ct.Counts[gi][1], m[1]-m[0]); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintf(w, "%-52s%12.4f\n", "difference-in-differences", ct.DiD)
	return err
}
