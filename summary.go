package eitc

import (
	"fmt"
	"io"
	"math"
	"strings"
	"time"
)

const summaryWidth = 78

// SummaryLabels names the parts of a regression summary.
type SummaryLabels struct {
	Title string

	// Outcome variable name.
	YName string

	// Names for the intercept and each regressor, in order.
	XNames []string

	// Time printed in the header.  Zero means time.Now().
	Time time.Time
}

// forg formats x with prec decimals, switching to exponent notation
// for very large or very small magnitudes.
func forg(x float64, prec int) string {
	if ax := math.Abs(x); x != 0 && (ax >= 1e4 || ax < 1e-4) {
		return fmt.Sprintf("%.*g", prec, x)
	}
	return fmt.Sprintf("%.*f", prec, x)
}

func boolString(b bool) string {
	if b {
		return "True"
	}
	return "False"
}

func centered(s string, width int) string {
	if pad := (width - len(s)) / 2; pad > 0 {
		return strings.Repeat(" ", pad) + s
	}
	return s
}

// WriteSummary writes a text summary of the fit: a header of fit
// statistics followed by the coefficient table.
func (r *LogitResults) WriteSummary(w io.Writer, labels SummaryLabels) error {

	if len(labels.XNames) != len(r.Params) {
		return fmt.Errorf("summary has %d parameter names for %d parameters", len(labels.XNames), len(r.Params))
	}

	ts := labels.Time
	if ts.IsZero() {
		ts = time.Now()
	}

	title := labels.Title
	if title == "" {
		title = "Logit Regression Results"
	}

	nameWidth := 14
	for _, n := range labels.XNames {
		if len(n)+1 > nameWidth {
			nameWidth = len(n) + 1
		}
	}

	// Long covariate names widen the coefficient table, and every rule
	// follows it.
	width := max(summaryWidth, nameWidth+64)

	var b strings.Builder

	b.WriteString(centered(title, width) + "\n")
	b.WriteString(strings.Repeat("=", width) + "\n")

	header := [][4]string{
		{"Dep. Variable:", labels.YName, "No. Observations:", fmt.Sprintf("%d", r.NObs)},
		{"Model:", "Logit", "Df Residuals:", fmt.Sprintf("%d", r.DfResid)},
		{"Method:", "MLE", "Df Model:", fmt.Sprintf("%d", r.DfModel)},
		{"Date:", ts.Format("Mon, 02 Jan 2006"), "Pseudo R-squ.:", fmt.Sprintf("%.4f", r.PseudoR2)},
		{"Time:", ts.Format("15:04:05"), "Log-Likelihood:", fmt.Sprintf("%.3f", r.LogLike)},
		{"converged:", boolString(r.Converged), "LL-Null:", fmt.Sprintf("%.3f", r.LLNull)},
		{"Covariance Type:", "nonrobust", "LLR p-value:", fmt.Sprintf("%#.4g", r.LLRPValue)},
	}
	for _, h := range header {
		fmt.Fprintf(&b, "%-20s%17s    %-20s%17s\n", h[0], h[1], h[2], h[3])
	}

	b.WriteString(strings.Repeat("=", width) + "\n")
	fmt.Fprintf(&b, "%-*s%10s%10s%10s%10s%12s%12s\n", nameWidth, "",
		"coef", "std err", "z", "P>|z|", "[0.025", "0.975]")
	b.WriteString(strings.Repeat("-", width) + "\n")
	for j, name := range labels.XNames {
		fmt.Fprintf(&b, "%-*s%10s%10s%10s%10s%12s%12s\n", nameWidth, name,
			forg(r.Params[j], 4), forg(r.StdErr[j], 3), forg(r.ZValues[j], 3),
			fmt.Sprintf("%.3f", r.PValues[j]), forg(r.ConfInt[j][0], 3), forg(r.ConfInt[j][1], 3))
	}
	b.WriteString(strings.Repeat("=", width) + "\n")

	_, err := io.WriteString(w, b.String())
	return err
}
