package eitc

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"
)

var (
	// ErrConvergence is matched by every *ConvergenceError.
	ErrConvergence = errors.New("logit fit did not converge")

	// ErrPerfectSeparation reports fitted probabilities that
	// reproduce the outcome exactly, so the maximum likelihood
	// estimate does not exist.
	ErrPerfectSeparation = errors.New("perfect separation detected")

	// ErrOutcomeRange reports outcome values outside [0, 1].
	ErrOutcomeRange = errors.New("outcome values must lie in [0, 1]")
)

// A ConvergenceError reports a Newton-Raphson fit that stopped
// without reaching a maximum of the likelihood.
type ConvergenceError struct {
	Iterations int
	Reason     string

	// Err is ErrPerfectSeparation when that was the cause.
	Err error
}

func (e *ConvergenceError) Error() string {
	return fmt.Sprintf("logit fit did not converge after %d iterations: %s", e.Iterations, e.Reason)
}

// Is makes every ConvergenceError match ErrConvergence.
func (e *ConvergenceError) Is(target error) bool {
	return target == ErrConvergence
}

func (e *ConvergenceError) Unwrap() error {
	return e.Err
}

// FitOptions controls the Newton-Raphson iterations.
type FitOptions struct {

	// Maximum number of Newton steps.
	MaxIter int

	// The fit has converged when no parameter moves by more than
	// Tolerance in one step.
	Tolerance float64
}

// DefaultFitOptions returns 35 iterations and a tolerance of 1e-8.
func DefaultFitOptions() FitOptions {
	return FitOptions{MaxIter: 35, Tolerance: 1e-8}
}

func (o FitOptions) withDefaults() FitOptions {
	d := DefaultFitOptions()
	if o.MaxIter <= 0 {
		o.MaxIter = d.MaxIter
	}
	if o.Tolerance <= 0 {
		o.Tolerance = d.Tolerance
	}
	return o
}

// LogitResults holds a fitted logistic regression.  The first
// parameter is the intercept.
type LogitResults struct {
	Params  []float64
	StdErr  []float64
	ZValues []float64
	PValues []float64

	// 95% Wald confidence intervals.
	ConfInt [][2]float64

	// Inverse of the observed information at the estimate.
	Cov *mat.SymDense

	LogLike   float64
	LLNull    float64
	LLR       float64
	LLRPValue float64
	PseudoR2  float64

	NObs       int
	DfModel    int
	DfResid    int
	Iterations int
	Converged  bool
}

// logistic returns 1/(1+exp(-x)).
func logistic(x float64) float64 {
	if x >= 0 {
		return 1 / (1 + math.Exp(-x))
	}
	e := math.Exp(x)
	return e / (1 + e)
}

// log1pexp returns log(1+exp(x)).
func log1pexp(x float64) float64 {
	if x > 0 {
		return x + math.Log1p(math.Exp(-x))
	}
	return math.Log1p(math.Exp(x))
}

func xlogy(x, y float64) float64 {
	if x == 0 {
		return 0
	}
	return x * math.Log(y)
}

// FitLogit fits a logistic regression of y on the columns of x by
// maximum likelihood.  x must already contain the intercept column.
// The iterations start from zero, so refitting the same data gives
// identical estimates.  A fit that does not converge returns a
// *ConvergenceError.
func FitLogit(y []float64, x *mat.Dense, opts FitOptions) (*LogitResults, error) {

	opts = opts.withDefaults()

	n, k := x.Dims()
	if len(y) != n {
		return nil, fmt.Errorf("outcome has %d values but design matrix has %d rows", len(y), n)
	}
	if n == 0 {
		return nil, errors.New("no observations to fit")
	}
	for i, v := range y {
		if v < 0 || v > 1 || math.IsNaN(v) {
			return nil, fmt.Errorf("%w: row %d is %v", ErrOutcomeRange, i, v)
		}
	}

	beta := mat.NewVecDense(k, nil)
	eta := mat.NewVecDense(n, nil)
	prob := make([]float64, n)
	grad := mat.NewVecDense(k, nil)
	step := mat.NewVecDense(k, nil)
	info := mat.NewSymDense(k, nil)
	var chol mat.Cholesky

	// update evaluates the probabilities, score and information at
	// beta, and factorizes the information.
	update := func(iter int) error {
		eta.MulVec(x, beta)
		for i := range prob {
			prob[i] = logistic(eta.AtVec(i))
		}
		if perfectPrediction(y, prob) {
			return &ConvergenceError{Iterations: iter, Reason: "fitted probabilities reproduce the outcome", Err: ErrPerfectSeparation}
		}

		for a := 0; a < k; a++ {
			g := 0.0
			for i := 0; i < n; i++ {
				g += x.At(i, a) * (y[i] - prob[i])
			}
			grad.SetVec(a, g)
			for b := a; b < k; b++ {
				h := 0.0
				for i := 0; i < n; i++ {
					h += prob[i] * (1 - prob[i]) * x.At(i, a) * x.At(i, b)
				}
				info.SetSym(a, b, h)
			}
		}

		if ok := chol.Factorize(info); !ok || chol.Cond() > mat.ConditionTolerance {
			return &ConvergenceError{Iterations: iter, Reason: "information matrix is singular (collinear regressors or separation)"}
		}
		return nil
	}

	converged := false
	iter := 0
	for iter < opts.MaxIter {
		if err := update(iter); err != nil {
			return nil, err
		}
		if err := chol.SolveVecTo(step, grad); err != nil {
			return nil, &ConvergenceError{Iterations: iter, Reason: err.Error()}
		}
		iter++

		maxChange := 0.0
		for a := 0; a < k; a++ {
			d := step.AtVec(a)
			if math.IsNaN(d) || math.IsInf(d, 0) {
				return nil, &ConvergenceError{Iterations: iter, Reason: "non-finite Newton step"}
			}
			beta.SetVec(a, beta.AtVec(a)+d)
			maxChange = math.Max(maxChange, math.Abs(d))
		}
		if maxChange <= opts.Tolerance {
			converged = true
			break
		}
	}
	if !converged {
		return nil, &ConvergenceError{Iterations: iter, Reason: "iteration limit reached"}
	}

	// Refresh at the final estimate for the covariance and the
	// likelihood.
	if err := update(iter); err != nil {
		return nil, err
	}
	cov := mat.NewSymDense(k, nil)
	if err := chol.InverseTo(cov); err != nil {
		return nil, &ConvergenceError{Iterations: iter, Reason: err.Error()}
	}

	res := &LogitResults{
		Params:     make([]float64, k),
		StdErr:     make([]float64, k),
		ZValues:    make([]float64, k),
		PValues:    make([]float64, k),
		ConfInt:    make([][2]float64, k),
		Cov:        cov,
		NObs:       n,
		DfModel:    k - 1,
		DfResid:    n - k,
		Iterations: iter,
		Converged:  true,
	}

	q := distuv.UnitNormal.Quantile(0.975)
	for a := 0; a < k; a++ {
		b := beta.AtVec(a)
		se := math.Sqrt(cov.At(a, a))
		z := b / se
		res.Params[a] = b
		res.StdErr[a] = se
		res.ZValues[a] = z
		res.PValues[a] = 2 * distuv.UnitNormal.Survival(math.Abs(z))
		res.ConfInt[a] = [2]float64{b - q*se, b + q*se}
	}

	ybar := 0.0
	for i := 0; i < n; i++ {
		e := eta.AtVec(i)
		res.LogLike += y[i]*e - log1pexp(e)
		ybar += y[i]
	}
	ybar /= float64(n)
	for _, v := range y {
		res.LLNull += xlogy(v, ybar) + xlogy(1-v, 1-ybar)
	}

	res.LLR = 2 * (res.LogLike - res.LLNull)
	res.PseudoR2 = 1 - res.LogLike/res.LLNull
	if res.DfModel > 0 {
		res.LLRPValue = distuv.ChiSquared{K: float64(res.DfModel)}.Survival(res.LLR)
	} else {
		res.LLRPValue = math.NaN()
	}

	return res, nil
}

// perfectPrediction reports whether every fitted probability is
// within 1e-8 of its outcome.
func perfectPrediction(y, prob []float64) bool {
	for i, v := range y {
		if math.Abs(prob[i]-v) > 1e-8 {
			return false
		}
	}
	return true
}

// Predict returns the fitted probabilities for the rows of x.
func (r *LogitResults) Predict(x mat.Matrix) []float64 {
	n, _ := x.Dims()
	eta := mat.NewVecDense(n, nil)
	eta.MulVec(x, mat.NewVecDense(len(r.Params), r.Params))
	p := make([]float64, n)
	for i := range p {
		p[i] = logistic(eta.AtVec(i))
	}
	return p
}

// OddsRatios returns exp of each parameter.
func (r *LogitResults) OddsRatios() []float64 {
	or := make([]float64, len(r.Params))
	for j, b := range r.Params {
		or[j] = math.Exp(b)
	}
	return or
}
