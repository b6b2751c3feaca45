// Authors: Rohan Adla, Arrio Gonsalves, Shreyan Nalwad, Dylan Setiawan
// Date: Oct 16th 2026
// Project: A Monte-Carlo Analysis of OLS and Instrumental-Variables Estimators
// Class: 02-613 at Caregie Mellon University

package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"gonum.org/v1/gonum/mat"
)

// version is overwritten at build time with -ldflags "-X main.version=..."
var version = "dev"

// NewRootCmd creates the root command and all subcommands.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   AppName,
		Short: "Monte-Carlo simulations of OLS and instrumental-variables estimators",
		Long: `ivsim draws synthetic data from a data-generating process, estimates its
structural parameters by OLS and by simple instrumental variables, and repeats
this over many replications to show the sampling distribution of each estimator.

Settings are read from $XDG_CONFIG_HOME/ivsim/config.yaml (or --config) and can
be overridden with flags.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := cmd.PersistentFlags()
	pf.String("config", "", "YAML configuration file")
	pf.String("log-level", "", "Log level: debug, info, warn, error, fatal, panic")
	pf.Uint64("seed", 0, "Master random seed (0 = time based)")
	pf.IntP("reps", "r", 0, "Number of Monte-Carlo replications")
	pf.IntP("sample-size", "n", 0, "Observations per replication")
	pf.Int("workers", 0, "Concurrent replications (0 = number of CPUs)")
	pf.Bool("skip-failed", false, "Skip replications with a singular system instead of aborting")
	pf.Float64("tolerance", 0, "Largest accepted condition number of the normal equations")
	pf.Int("bins", 0, "Histogram bins")
	pf.String("csv", "", "Write all estimates to this CSV file")
	pf.String("report", "", "Write a markdown report to this file")
	pf.String("db", "", "Archive ensembles in a SQLite database inside this directory")

	cmd.AddCommand(newOLSCmd())
	cmd.AddCommand(newIVCmd())
	cmd.AddCommand(newSupplyDemandCmd())
	cmd.AddCommand(newEstimateCmd())
	cmd.AddCommand(newRunsCmd())
	cmd.AddCommand(newVersionCmd())

	return cmd
}

// loadConfig builds the configuration for cmd: defaults, then the config
// file, then any flag the user set explicitly.
func loadConfig(cmd *cobra.Command) (*Config, error) {
	flags := cmd.Flags()

	cfg := DefaultConfig()
	path, _ := flags.GetString("config")
	if found := FindConfigFile(path); found != "" {
		loaded, err := LoadConfigFile(found)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	} else if path != "" {
		return nil, errors.Wrap(ErrConfigNotFound, path)
	}

	if flags.Changed("log-level") {
		cfg.LogLevel, _ = flags.GetString("log-level")
	}
	if flags.Changed("seed") {
		cfg.Seed, _ = flags.GetUint64("seed")
	}
	if flags.Changed("reps") {
		cfg.Replications, _ = flags.GetInt("reps")
	}
	if flags.Changed("sample-size") {
		cfg.SampleSize, _ = flags.GetInt("sample-size")
	}
	if flags.Changed("workers") {
		cfg.Workers, _ = flags.GetInt("workers")
	}
	if flags.Changed("skip-failed") {
		cfg.SkipFailed, _ = flags.GetBool("skip-failed")
	}
	if flags.Changed("tolerance") {
		cfg.Tolerance, _ = flags.GetFloat64("tolerance")
	}
	if flags.Changed("bins") {
		cfg.Bins, _ = flags.GetInt("bins")
	}
	if flags.Changed("csv") {
		cfg.Output.CSV, _ = flags.GetString("csv")
	}
	if flags.Changed("report") {
		cfg.Output.Report, _ = flags.GetString("report")
	}
	if flags.Changed("db") {
		cfg.Output.DBDir, _ = flags.GetString("db")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	logrus.SetLevel(cfg.Level())

	// Both estimators of a comparison must see the same samples
	if cfg.Seed == 0 {
		cfg.Seed = uint64(time.Now().UnixNano())
	}
	return cfg, nil
}

func newOLSCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ols",
		Short: "Sampling distribution of OLS in the classical regression model",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("beta") {
				cfg.Regression.Beta, _ = cmd.Flags().GetFloat64Slice("beta")
			}
			if cmd.Flags().Changed("sigma-e") {
				cfg.Regression.SigmaE, _ = cmd.Flags().GetFloat64("sigma-e")
			}

			params, err := cfg.Regression.Params()
			if err != nil {
				return err
			}
			gen, err := RegressionDGP(params)
			if err != nil {
				return err
			}

			settings := map[string]string{
				"beta":    fmt.Sprint(params.Beta),
				"sigma_e": formatFloat(params.SigmaE),
			}
			return compareEstimators(cmd.Context(), cfg, "ols", gen,
				[]Estimator{&OLSEstimator{Tolerance: cfg.Tolerance}}, params.Beta, settings)
		},
	}
	cmd.Flags().Float64Slice("beta", nil, "True coefficients, one per regressor")
	cmd.Flags().Float64("sigma-e", 0, "Standard deviation of the disturbance")
	return cmd
}

func newIVCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "iv",
		Short: "OLS vs IV in the single-equation model X = Z*pi + v, y = X*beta + u",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			p := &cfg.LinearIV
			overrideFloat(cmd, "beta", &p.Beta)
			overrideFloat(cmd, "pi", &p.Pi)
			overrideFloat(cmd, "rho", &p.Rho)
			overrideFloat(cmd, "sigma-u", &p.SigmaU)
			overrideFloat(cmd, "sigma-v", &p.SigmaV)

			gen, err := LinearIVDGP(*p)
			if err != nil {
				return err
			}

			settings := map[string]string{
				"beta":    formatFloat(p.Beta),
				"pi":      formatFloat(p.Pi),
				"rho":     formatFloat(p.Rho),
				"sigma_u": formatFloat(p.SigmaU),
				"sigma_v": formatFloat(p.SigmaV),
			}
			return compareEstimators(cmd.Context(), cfg, "iv", gen,
				[]Estimator{&OLSEstimator{Tolerance: cfg.Tolerance}, &IVEstimator{Tolerance: cfg.Tolerance}},
				[]float64{0, p.Beta}, settings)
		},
	}
	cmd.Flags().Float64("beta", 0, "Structural slope")
	cmd.Flags().Float64("pi", 0, "Instrument relevance (0 = irrelevant instrument)")
	cmd.Flags().Float64("rho", 0, "Correlation between u and v")
	cmd.Flags().Float64("sigma-u", 0, "Standard deviation of u")
	cmd.Flags().Float64("sigma-v", 0, "Standard deviation of v")
	return cmd
}

func newSupplyDemandCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "supply-demand",
		Short: "OLS vs IV for the demand curve of a simultaneous supply/demand system",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			p := &cfg.SupplyDemand
			overrideFloat(cmd, "alpha", &p.Alpha)
			overrideFloat(cmd, "beta", &p.Beta)
			overrideFloat(cmd, "noise", &p.InstrumentNoise)

			gen, err := SupplyDemandDGP(*p)
			if err != nil {
				return err
			}

			pi, _ := ReducedForm(p.Alpha, p.Beta)
			fmt.Println("Reduced form [q p] = [d s] * Pi:")
			fmt.Printf("%v\n", mat.Formatted(pi, mat.Prefix(" ")))

			settings := map[string]string{
				"alpha":            formatFloat(p.Alpha),
				"beta":             formatFloat(p.Beta),
				"sigma_demand":     formatFloat(p.SigmaDemand),
				"sigma_supply":     formatFloat(p.SigmaSupply),
				"instrument_noise": formatFloat(p.InstrumentNoise),
			}
			return compareEstimators(cmd.Context(), cfg, "supply-demand", gen,
				[]Estimator{&OLSEstimator{Tolerance: cfg.Tolerance}, &IVEstimator{Tolerance: cfg.Tolerance}},
				[]float64{0, p.Alpha}, settings)
		},
	}
	cmd.Flags().Float64("alpha", 0, "Slope of the demand curve")
	cmd.Flags().Float64("beta", 0, "Slope of the supply curve")
	cmd.Flags().Float64("noise", 0, "Scale of the instrument perturbation")
	return cmd
}

func newEstimateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "estimate",
		Short: "Draw one sample and print its OLS (and IV) estimates",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			dgp, _ := cmd.Flags().GetString("dgp")
			gen, err := generatorFor(cfg, dgp)
			if err != nil {
				return err
			}

			sample, err := gen(cfg.SampleSize, newSource(cfg.Seed))
			if err != nil {
				return err
			}
			fmt.Printf("Drew %d observations from %s (seed %d)\n", cfg.SampleSize, dgp, cfg.Seed)

			ols, err := (&OLSEstimator{Tolerance: cfg.Tolerance}).Estimate(sample)
			if err != nil {
				return err
			}
			PrintEstimate(ols, sample.Names)
			g := NormalEquationsResidual(sample.Y, sample.X, ols.B)
			fmt.Printf("||X'(y - Xb)|| = %.3g\n", mat.Norm(g, 2))

			if sample.Z != nil {
				iv, err := (&IVEstimator{Tolerance: cfg.Tolerance}).Estimate(sample)
				if err != nil {
					return err
				}
				PrintEstimate(iv, sample.Names)
			}
			return nil
		},
	}
	cmd.Flags().String("dgp", "regression", "Data-generating process: regression, linear-iv, supply-demand")
	return cmd
}

func newRunsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List archived ensembles, or summarise one with --show",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if cfg.Output.DBDir == "" {
				return configErr("db", "no archive directory given")
			}
			store, err := OpenStore(cfg.Output.DBDir)
			if err != nil {
				return err
			}
			defer store.Close()

			ctx := cmd.Context()
			if id, _ := cmd.Flags().GetInt64("show"); id > 0 {
				ens, err := store.LoadEnsemble(ctx, id)
				if err != nil {
					return err
				}
				sum, err := Summarize(ens, nil)
				if err != nil {
					return err
				}
				PrintSummary(sum)
				return nil
			}

			runs, err := store.ListRuns(ctx)
			if err != nil {
				return err
			}
			fmt.Printf("%-6s %-24s %-6s %10s %8s %8s  %s\n", "id", "name", "method", "n", "reps", "skipped", "created")
			for _, r := range runs {
				fmt.Printf("%-6d %-24s %-6s %10d %8d %8d  %s\n",
					r.ID, r.Name, r.Method, r.SampleSize, r.Replications, r.Skipped,
					r.CreatedAt.Format("2006-01-02 15:04:05"))
			}
			return nil
		},
	}
	cmd.Flags().Int64("show", 0, "Summarise the run with this id")
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", AppName, version)
		},
	}
}

// generatorFor returns the Generator named by dgp, built from cfg.
func generatorFor(cfg *Config, dgp string) (Generator, error) {
	switch dgp {
	case "regression":
		params, err := cfg.Regression.Params()
		if err != nil {
			return nil, err
		}
		return RegressionDGP(params)
	case "linear-iv":
		return LinearIVDGP(cfg.LinearIV)
	case "supply-demand":
		return SupplyDemandDGP(cfg.SupplyDemand)
	}
	return nil, configErr("dgp", "unknown data-generating process %q", dgp)
}

// compareEstimators runs one ensemble per estimator on identical seeds, prints
// the summaries and writes the configured outputs.
func compareEstimators(
	ctx context.Context,
	cfg *Config,
	title string,
	gen Generator,
	ests []Estimator,
	truth []float64,
	settings map[string]string,
) error {

	var (
		ensembles []*Ensemble
		sums      []*EnsembleSummary
	)
	for _, est := range ests {
		ens, err := RunMonteCarlo(ctx, cfg.MonteCarloOptions(title+"/"+est.Name()), gen, est)
		if err != nil {
			return err
		}
		sum, err := Summarize(ens, truth)
		if err != nil {
			return err
		}
		PrintSummary(sum)

		// Histogram of the slope, the last coefficient
		if len(ens.Estimates) > 0 {
			j := ens.NumCoef() - 1
			dividers, counts, err := ens.Histogram(j, cfg.Bins)
			if err != nil {
				return err
			}
			PrintHistogram(ens.CoefName(j), dividers, counts)
		}

		ensembles = append(ensembles, ens)
		sums = append(sums, sum)
	}

	settings["replications"] = strconv.Itoa(cfg.Replications)
	settings["sample_size"] = strconv.Itoa(cfg.SampleSize)
	settings["seed"] = strconv.FormatUint(cfg.Seed, 10)
	return writeOutputs(ctx, cfg, title, settings, ensembles, sums)
}

// writeOutputs writes CSV, markdown and SQLite outputs when configured.
func writeOutputs(
	ctx context.Context,
	cfg *Config,
	title string,
	settings map[string]string,
	ensembles []*Ensemble,
	sums []*EnsembleSummary,
) error {

	if cfg.Output.CSV != "" {
		if err := OutputEnsemblesToCSV(cfg.Output.CSV, ensembles); err != nil {
			return errors.Wrapf(err, "writing %s", cfg.Output.CSV)
		}
		fmt.Println("Estimates written to", cfg.Output.CSV)
	}

	if cfg.Output.Report != "" {
		if err := writeReportFile(cfg.Output.Report, "Monte-Carlo report: "+title, settings, sums); err != nil {
			return err
		}
		fmt.Println("Report written to", cfg.Output.Report)
	}

	if cfg.Output.DBDir != "" {
		store, err := OpenStore(cfg.Output.DBDir)
		if err != nil {
			return err
		}
		defer store.Close()
		for _, ens := range ensembles {
			id, err := store.SaveEnsemble(ctx, ens)
			if err != nil {
				return err
			}
			logrus.WithFields(logrus.Fields{"run": ens.Name, "id": id, "db": store.Path()}).Info("ensemble archived")
		}
	}
	return nil
}

// writeReportFile writes the markdown report to path. A failed close is
// reported, the file may be incomplete then.
func writeReportFile(path, title string, settings map[string]string, sums []*EnsembleSummary) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "creating %s", path)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = errors.Wrapf(cerr, "closing %s", path)
		}
	}()

	if err := WriteMarkdownReport(f, title, settings, sums); err != nil {
		return errors.Wrapf(err, "writing %s", path)
	}
	return nil
}

func overrideFloat(cmd *cobra.Command, name string, dst *float64) {
	if cmd.Flags().Changed(name) {
		*dst, _ = cmd.Flags().GetFloat64(name)
	}
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
