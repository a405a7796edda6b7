// Command eitc estimates the employment effect of the 1993 expansion
// of the earned income tax credit on single mothers, using
// difference-in-differences logistic regressions.
//
// Usage:
//
//	eitc [--config analysis.yaml] [-v] [eitc.dta]
//	eitc derive [--cutoff 1993] [--before 1994] [eitc.dta]
//	eitc convert [--codes] [--chunk 1000] file.dta
//
// The regression summaries are written to standard output and
// progress messages to standard error.
package main

import (
	"os"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}
