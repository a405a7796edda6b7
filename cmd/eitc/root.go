package main

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"

	"github.com/lmittmann/tint"
	"github.com/spf13/cobra"

	"github.com/kshedden/eitc"
)

// Exit codes.
const (
	exitSuccess    = 0
	exitFailure    = 1 // the analysis itself failed, e.g. no convergence
	exitInputError = 2 // unreadable data file or configuration
)

const defaultDataFile = "eitc.dta"

type options struct {
	configPath string
	verbose    bool
	logger     *slog.Logger
}

// exitCode maps an error to the process exit status.
func exitCode(err error) int {
	switch {
	case err == nil:
		return exitSuccess
	case errors.Is(err, fs.ErrNotExist), errors.Is(err, eitc.ErrFormat), errors.Is(err, eitc.ErrConfig):
		return exitInputError
	default:
		return exitFailure
	}
}

func run(args []string, stdout, stderr io.Writer) int {

	cmd := newRootCommand(stdout, stderr)
	cmd.SetArgs(args)

	err := cmd.Execute()
	if err != nil {
		fmt.Fprintf(stderr, "eitc: %v\n", err)
	}
	return exitCode(err)
}

func dataPath(args []string) string {
	if len(args) > 0 {
		return args[0]
	}
	return defaultDataFile
}

func newRootCommand(stdout, stderr io.Writer) *cobra.Command {

	opts := &options{}

	cmd := &cobra.Command{
		Use:   "eitc [data-file]",
		Short: "Difference-in-differences logit analysis of the 1993 EITC expansion",
		Long: `Fit the baseline, covariate-adjusted and placebo logistic regressions of
employment on the post-1993 and mother indicators, and print their summaries.

The data file is a Stata dta or CSV file with the columns year, children,
work, nonwhite and ed. It defaults to eitc.dta in the current directory.`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			level := slog.LevelInfo
			if opts.verbose {
				level = slog.LevelDebug
			}
			opts.logger = slog.New(tint.NewHandler(stderr, &tint.Options{
				Level:      level,
				TimeFormat: "15:04:05",
				NoColor:    stderr != os.Stderr,
			}))
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAnalysis(opts, dataPath(args), stdout)
		},
	}

	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	cmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "log debug messages")
	cmd.Flags().StringVar(&opts.configPath, "config", "", "YAML file describing the models (default: built-in EITC models)")

	cmd.AddCommand(newDeriveCommand(opts, stdout))
	cmd.AddCommand(newConvertCommand(opts, stdout))

	return cmd
}

func runAnalysis(opts *options, path string, stdout io.Writer) error {

	cfg := eitc.DefaultConfig()
	if opts.configPath != "" {
		var err error
		cfg, err = eitc.LoadConfig(opts.configPath)
		if err != nil {
			return err
		}
		opts.logger.Debug("loaded config", "path", opts.configPath, "models", len(cfg.Models))
	}

	a := eitc.NewAnalysis(cfg, stdout)
	a.Logger = opts.logger

	_, err := a.RunFile(path)
	return err
}

func newDeriveCommand(opts *options, stdout io.Writer) *cobra.Command {

	var cutoff, before int

	cmd := &cobra.Command{
		Use:   "derive [data-file]",
		Short: "Write the data with the treatment indicators as CSV",
		Long: `Load the data, add the post<yy>, mom and mompost<yy> indicators for the
cutoff year, optionally keep only rows before a year, and write the result
to standard output as CSV. Missing values are written as empty fields.`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := dataPath(args)
			t, err := eitc.Load(path)
			if err != nil {
				return err
			}

			if before > 0 {
				t, err = eitc.PlaceboTable(t, cutoff, before)
			} else {
				t, err = eitc.DeriveIndicators(t, cutoff)
			}
			if err != nil {
				return err
			}
			opts.logger.Debug("derived", "path", path, "cutoff", cutoff, "before", before, "rows", t.NumRows())

			return eitc.WriteCSV(stdout, t)
		},
	}

	cmd.Flags().IntVar(&cutoff, "cutoff", 1993, "years after this are post-treatment")
	cmd.Flags().IntVar(&before, "before", 0, "if positive, keep only rows with year below this")

	return cmd
}

func newConvertCommand(opts *options, stdout io.Writer) *cobra.Command {

	var codes bool
	var chunk int

	cmd := &cobra.Command{
		Use:   "convert data-file.dta",
		Short: "Write a Stata dta file as CSV",
		Long: `Stream the records of a Stata dta file to standard output as CSV, chunk
records at a time. Value labels replace their numeric codes and %td/%tc
columns are written as dates unless --codes is given.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			rdr, err := eitc.NewStataReader(f)
			if err != nil {
				return fmt.Errorf("%w: %s: %v", eitc.ErrFormat, args[0], err)
			}
			rdr.InsertCategoryLabels = !codes
			rdr.ConvertDates = !codes
			opts.logger.Debug("opened", "path", args[0], "release", rdr.FormatVersion,
				"rows", rdr.RowCount(), "columns", rdr.Nvar)

			n, err := eitc.ConvertCSV(stdout, rdr, chunk)
			if err != nil {
				return err
			}
			opts.logger.Info("converted", "path", args[0], "rows", n)
			return nil
		},
	}

	cmd.Flags().BoolVar(&codes, "codes", false, "keep numeric codes instead of value labels and dates")
	cmd.Flags().IntVar(&chunk, "chunk", eitc.DefaultChunkSize, "records to read at a time")

	return cmd
}
