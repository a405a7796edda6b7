/*
Package eitc estimates the effect of the 1993 expansion of the earned
income tax credit on the employment of single mothers, following Eissa
and Liebman (1996).

The data are individual-year records with the columns year, children,
work, nonwhite and ed, read from a Stata dta file (releases 113 through
119) or a CSV file into a Table of Series columns.  The dta and CSV
readers can also be used on their own, and read files in chunks of
consecutive records; ConvertCSV streams either of them to CSV.

The analysis is a difference-in-differences design fitted with logistic
regressions.  DeriveIndicators adds post93 (year after 1993), mom
(children > 0) and their interaction mompost93.  Three models are fitted
by maximum likelihood with FitLogit:

	baseline     work ~ post93 + mom + mompost93
	covariates   work ~ post93 + mom + mompost93 + nonwhite + ed
	placebo      work ~ post92 + mom + mompost92, rows with year < 1994

The placebo model moves the cutoff to a year without a policy change;
a significant interaction there would cast doubt on the main estimate.

Analysis runs the models listed in a Config, which can be read from
YAML, and writes a summary of each fit.  Tables are never modified in
place: deriving columns and selecting rows return new tables.
*/
package eitc
