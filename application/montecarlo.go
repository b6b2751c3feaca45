// Authors: Rohan Adla, Arrio Gonsalves, Shreyan Nalwad, Dylan Setiawan
// Date: Oct 16th 2026
// Project: A Monte-Carlo Analysis of OLS and Instrumental-Variables Estimators
// Class: 02-613 at Caregie Mellon University

package main

import (
	"context"
	"math"
	"math/rand/v2"
	"runtime"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// RunMonteCarlo draws opts.Replications independent samples from gen, feeds
// each one to est and collects the point estimates in replication order.
// Every replication gets its own random source seeded from a master source,
// so the result only depends on opts.Seed and not on the number of workers.
// The first failing replication aborts the run, unless opts.SkipFailed is set
// and the failure is a SingularSystemError; those are logged and counted.
func RunMonteCarlo(ctx context.Context, opts MonteCarloOptions, gen Generator, est Estimator) (*Ensemble, error) {
	if gen == nil {
		return nil, configErr("generator", "not provided")
	}
	if est == nil {
		return nil, configErr("estimator", "not provided")
	}
	if opts.Replications <= 0 {
		return nil, configErr("replications", "must be > 0, got %d", opts.Replications)
	}
	if opts.SampleSize <= 0 {
		return nil, configErr("sample_size", "must be > 0, got %d", opts.SampleSize)
	}

	seed := opts.Seed
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}

	// Per-replication seeds so workers don't share a source
	master := rand.New(newSource(seed))
	seeds := make([]uint64, opts.Replications)
	for i := range seeds {
		seeds[i] = master.Uint64()
	}

	numWorkers := opts.Workers
	if numWorkers <= 0 {
		numWorkers = runtime.NumCPU()
	}
	if numWorkers > opts.Replications {
		numWorkers = opts.Replications
	}

	log := logrus.WithFields(logrus.Fields{
		"run":          opts.Name,
		"estimator":    est.Name(),
		"replications": opts.Replications,
		"n":            opts.SampleSize,
		"workers":      numWorkers,
		"seed":         seed,
	})
	log.Info("starting Monte-Carlo run")
	start := time.Now()

	// Each worker only writes its own index
	estimates := make([][]float64, opts.Replications)

	var (
		mu      sync.Mutex
		names   []string
		skipped int
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(numWorkers)

	for r := 0; r < opts.Replications; r++ {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			src := newSource(seeds[r])
			sample, err := gen(opts.SampleSize, src)
			if err != nil {
				return errors.Wrapf(err, "replication %d: generating sample", r)
			}

			// names come from the data, so a fully skipped run still has them
			mu.Lock()
			if names == nil {
				names = sample.Names
			}
			mu.Unlock()

			res, err := est.Estimate(sample)
			if err != nil {
				var singular *SingularSystemError
				if opts.SkipFailed && errors.As(err, &singular) {
					log.WithField("replication", r).WithError(err).Warn("skipping degenerate replication")
					mu.Lock()
					skipped++
					mu.Unlock()
					return nil
				}
				return errors.Wrapf(err, "replication %d: %s estimation", r, est.Name())
			}

			estimates[r] = vecData(res)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, errors.Wrap(err, "Monte-Carlo run cancelled")
	}

	kept := make([][]float64, 0, opts.Replications-skipped)
	for _, b := range estimates {
		if b != nil {
			kept = append(kept, b)
		}
	}

	log.WithFields(logrus.Fields{
		"kept":    len(kept),
		"skipped": skipped,
		"elapsed": time.Since(start).String(),
	}).Info("Monte-Carlo run finished")

	return &Ensemble{
		Name:         opts.Name,
		Method:       est.Method(),
		Names:        names,
		SampleSize:   opts.SampleSize,
		Replications: opts.Replications,
		Seed:         seed,
		Skipped:      skipped,
		Estimates:    kept,
	}, nil
}

// vecData copies the point estimate out of a result.
func vecData(res *EstimationResult) []float64 {
	out := make([]float64, res.B.Len())
	for j := range out {
		out[j] = res.B.AtVec(j)
	}
	return out
}

// NumCoef returns the number of coefficients per replication.
func (e *Ensemble) NumCoef() int {
	if len(e.Estimates) > 0 {
		return len(e.Estimates[0])
	}
	return len(e.Names)
}

// Column returns coefficient j of every kept replication.
func (e *Ensemble) Column(j int) []float64 {
	col := make([]float64, len(e.Estimates))
	for r, b := range e.Estimates {
		col[r] = b[j]
	}
	return col
}

// CoefName returns the name of coefficient j, b<j> when unnamed.
func (e *Ensemble) CoefName(j int) string {
	if j < len(e.Names) {
		return e.Names[j]
	}
	return "b" + strconv.Itoa(j)
}

// Summarize computes mean, empirical variance and quantile bands of every
// coefficient. truth may be nil; otherwise it must hold one value per
// coefficient and is used for the bias column.
func Summarize(e *Ensemble, truth []float64) (*EnsembleSummary, error) {
	if e == nil {
		return nil, configErr("ensemble", "not provided")
	}
	k := e.NumCoef()
	if truth != nil && len(truth) != k {
		return nil, configErr("truth", "has %d values for %d coefficients", len(truth), k)
	}

	out := &EnsembleSummary{
		Name:  e.Name,
		Kept:  len(e.Estimates),
		Coefs: make([]CoefSummary, k),
	}
	for j := 0; j < k; j++ {
		col := sortedCopy(e.Column(j))
		cs := CoefSummary{
			Name:     e.CoefName(j),
			Mean:     math.NaN(),
			Variance: math.NaN(),
			StdDev:   math.NaN(),
			Bias:     math.NaN(),
		}
		if len(col) > 0 {
			cs.Mean, cs.Variance = stat.MeanVariance(col, nil)
			cs.StdDev = math.Sqrt(cs.Variance)
		}
		cs.Lower = sortedQuantile(col, 0.025)
		cs.Median = sortedQuantile(col, 0.5)
		cs.Upper = sortedQuantile(col, 0.975)
		if truth != nil {
			cs.Bias = cs.Mean - truth[j]
		}
		out.Coefs[j] = cs
	}
	return out, nil
}

// Histogram bins coefficient j into the given number of equal-width bins.
// Returns the bins+1 dividers and the per-bin counts.
func (e *Ensemble) Histogram(j, bins int) ([]float64, []float64, error) {
	if bins <= 0 {
		return nil, nil, configErr("bins", "must be > 0, got %d", bins)
	}
	if j < 0 || j >= e.NumCoef() {
		return nil, nil, configErr("coefficient", "index %d out of range", j)
	}
	col := e.Column(j)
	if len(col) == 0 {
		return nil, nil, configErr("ensemble", "has no estimates")
	}
	sort.Float64s(col)

	lo, hi := col[0], col[len(col)-1]
	if lo == hi {
		lo, hi = lo-0.5, hi+0.5
	}
	dividers := make([]float64, bins+1)
	floats.Span(dividers, lo, hi)
	// the last divider is exclusive
	dividers[bins] = math.Nextafter(hi, math.Inf(1))

	counts := stat.Histogram(nil, dividers, col, nil)
	return dividers, counts, nil
}

// ensembleQuantile returns the empirical q-quantile of samples (0 <= q <= 1).
// samples is left untouched.
func ensembleQuantile(samples []float64, q float64) float64 {
	return sortedQuantile(sortedCopy(samples), q)
}

func sortedCopy(samples []float64) []float64 {
	out := append([]float64(nil), samples...)
	sort.Float64s(out)
	return out
}

// sortedQuantile interpolates linearly between the order statistics of an
// ascending slice. NaN when empty.
func sortedQuantile(sorted []float64, q float64) float64 {
	n := len(sorted)
	switch {
	case n == 0:
		return math.NaN()
	case q <= 0:
		return sorted[0]
	case q >= 1:
		return sorted[n-1]
	}

	pos := q * float64(n-1)
	lo := int(pos)
	frac := pos - float64(lo)
	if frac == 0 {
		return sorted[lo]
	}
	return sorted[lo] + frac*(sorted[lo+1]-sorted[lo])
}
