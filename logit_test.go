package eitc

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

// saturatedData has one binary regressor; the group means are 1/4
// and 3/4, so the estimates have closed forms.
func saturatedData() ([]float64, *mat.Dense) {
	y := []float64{1, 0, 0, 0, 1, 1, 1, 0}
	x := mat.NewDense(8, 2, []float64{
		1, 0,
		1, 0,
		1, 0,
		1, 0,
		1, 1,
		1, 1,
		1, 1,
		1, 1,
	})
	return y, x
}

func TestFitLogitSaturated(t *testing.T) {

	y, x := saturatedData()
	res, err := FitLogit(y, x, DefaultFitOptions())
	require.NoError(t, err)

	tol := 1e-6
	assert.True(t, res.Converged)
	assert.Equal(t, 8, res.NObs)
	assert.Equal(t, 1, res.DfModel)
	assert.Equal(t, 6, res.DfResid)

	assert.InDelta(t, math.Log(1.0/3), res.Params[0], tol)
	assert.InDelta(t, math.Log(9), res.Params[1], tol)
	assert.InDelta(t, math.Sqrt(4.0/3), res.StdErr[0], tol)
	assert.InDelta(t, math.Sqrt(8.0/3), res.StdErr[1], tol)
	assert.InDelta(t, -0.9514261509, res.ZValues[0], tol)
	assert.InDelta(t, 1.3455197662, res.ZValues[1], tol)
	assert.InDelta(t, 0.3413880904, res.PValues[0], tol)
	assert.InDelta(t, 0.1784574425, res.PValues[1], tol)
	assert.InDelta(t, -3.3617837568, res.ConfInt[0][0], tol)
	assert.InDelta(t, 5.3978323616, res.ConfInt[1][1], tol)

	assert.InDelta(t, 2*(math.Log(0.25)+3*math.Log(0.75)), res.LogLike, tol)
	assert.InDelta(t, 8*math.Log(0.5), res.LLNull, tol)
	assert.InDelta(t, 0.1887218755, res.PseudoR2, tol)
	assert.InDelta(t, 2.0929925751, res.LLR, tol)
	assert.InDelta(t, 0.1479759594, res.LLRPValue, tol)

	assert.InDelta(t, res.StdErr[1]*res.StdErr[1], res.Cov.At(1, 1), tol)

	p := res.Predict(x)
	assert.InDelta(t, 0.25, p[0], tol)
	assert.InDelta(t, 0.75, p[7], tol)

	or := res.OddsRatios()
	assert.InDelta(t, 9, or[1], 1e-5)
}

func TestFitLogitDeterministic(t *testing.T) {

	tab, err := DeriveIndicators(syntheticTable(t, 800, 5), 1993)
	require.NoError(t, err)
	y, x, _, err := DesignMatrix(tab, "work", []string{"post93", "mom", "mompost93", "ed"}, MissingDrop)
	require.NoError(t, err)

	first, err := FitLogit(y, x, DefaultFitOptions())
	require.NoError(t, err)
	second, err := FitLogit(y, x, DefaultFitOptions())
	require.NoError(t, err)

	assert.Equal(t, first.Params, second.Params)
	assert.Equal(t, first.StdErr, second.StdErr)
	assert.Equal(t, first.Iterations, second.Iterations)
	assert.Less(t, first.Iterations, 35)
}

func TestFitLogitSeparation(t *testing.T) {

	// work equals mom in the four row example.
	tab := newTestTable(t, map[string][]float64{
		"year":     {1992, 1992, 1994, 1994},
		"children": {0, 1, 0, 1},
		"work":     {0, 1, 0, 1},
	}, "year", "children", "work")

	d, err := DeriveIndicators(tab, 1993)
	require.NoError(t, err)
	y, x, _, err := DesignMatrix(d, "work", []string{"post93", "mom", "mompost93"}, MissingDrop)
	require.NoError(t, err)

	_, err = FitLogit(y, x, DefaultFitOptions())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrConvergence)

	var ce *ConvergenceError
	require.True(t, errors.As(err, &ce))
	assert.NotEmpty(t, ce.Reason)

	// A single regressor that splits the outcome exactly.
	y = []float64{0, 0, 0, 1, 1, 1}
	x = mat.NewDense(6, 2, []float64{1, -3, 1, -2, 1, -1, 1, 1, 1, 2, 1, 3})
	_, err = FitLogit(y, x, DefaultFitOptions())
	assert.ErrorIs(t, err, ErrConvergence)
}

func TestFitLogitSingular(t *testing.T) {

	y, _ := saturatedData()
	x := mat.NewDense(8, 3, nil)
	for i := 0; i < 8; i++ {
		x.Set(i, 0, 1)
		x.Set(i, 1, float64(i%2))
	}

	_, err := FitLogit(y, x, DefaultFitOptions())
	assert.ErrorIs(t, err, ErrConvergence)
	assert.NotErrorIs(t, err, ErrPerfectSeparation)
}

func TestFitLogitIterationLimit(t *testing.T) {

	tab, err := DeriveIndicators(syntheticTable(t, 400, 6), 1993)
	require.NoError(t, err)
	y, x, _, err := DesignMatrix(tab, "work", []string{"post93", "mom", "mompost93"}, MissingDrop)
	require.NoError(t, err)

	_, err = FitLogit(y, x, FitOptions{MaxIter: 1, Tolerance: 1e-12})
	var ce *ConvergenceError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, 1, ce.Iterations)
	assert.Equal(t, "iteration limit reached", ce.Reason)
}

func TestFitLogitBadInput(t *testing.T) {

	_, x := saturatedData()

	_, err := FitLogit([]float64{0, 1, 2, 0, 1, 1, 0, 0}, x, DefaultFitOptions())
	assert.ErrorIs(t, err, ErrOutcomeRange)

	_, err = FitLogit([]float64{0, 1}, x, DefaultFitOptions())
	assert.Error(t, err)
}

func TestDesignMatrix(t *testing.T) {

	tab, err := NewTable(
		mustSeries(t, "work", []float64{1, 0, 1, 0}, nil),
		mustSeries(t, "ed", []float64{12, 0, 16, 9}, []bool{false, true, false, false}),
		mustSeries(t, "mom", []int8{1, 0, 0, 1}, nil),
	)
	require.NoError(t, err)

	y, x, dropped, err := DesignMatrix(tab, "work", []string{"mom", "ed"}, MissingDrop)
	require.NoError(t, err)
	assert.Equal(t, 1, dropped)
	assert.Equal(t, []float64{1, 1, 0}, y)
	assert.Equal(t, []float64{1, 1, 12}, mat.Row(nil, 0, x))
	assert.Equal(t, []float64{1, 1, 9}, mat.Row(nil, 2, x))

	_, _, _, err = DesignMatrix(tab, "work", []string{"mom", "ed"}, MissingError)
	assert.ErrorIs(t, err, ErrMissingData)

	_, _, _, err = DesignMatrix(tab, "work", []string{"nonwhite"}, MissingDrop)
	assert.ErrorIs(t, err, ErrMissingColumn)

	allMissing, err := NewTable(mustSeries(t, "work", []float64{1}, []bool{true}))
	require.NoError(t, err)
	_, _, _, err = DesignMatrix(allMissing, "work", nil, MissingDrop)
	assert.ErrorIs(t, err, ErrMissingData)
}
