// Authors: Rohan Adla, Arrio Gonsalves, Shreyan Nalwad, Dylan Setiawan
// Date: Oct 16th 2026
// Project: A Monte-Carlo Analysis of OLS and Instrumental-Variables Estimators
// Class: 02-613 at Caregie Mellon University

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
)

// This is the main function that runs the Monte-Carlo experiments.
// Each subcommand follows the same steps: load the configuration, build the
// data-generating process, run one ensemble per estimator, summarise the
// ensembles, and write the CSV, markdown and SQLite outputs that were asked for.
//
//	ivsim ols            classical regression, OLS only
//	ivsim iv             single-equation IV model, OLS vs IV
//	ivsim supply-demand  simultaneous system, OLS vs IV for the demand slope
//	ivsim estimate       one sample, one estimate
//	ivsim runs           archived ensembles

func main() {
	// Ctrl-C stops scheduling new replications
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := NewRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}
