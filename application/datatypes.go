// Authors: Rohan Adla, Arrio Gonsalves, Shreyan Nalwad, Dylan Setiawan
// Date: Oct 16th 2026
// Project: A Monte-Carlo Analysis of OLS and Instrumental-Variables Estimators
// Class: 02-613 at Caregie Mellon University

package main

import (
	"math/rand/v2"

	"gonum.org/v1/gonum/mat"
)

// What kind of distribution a Distribution holds
type DistKind int

// Distribution kinds supported by the sampler
const (
	DistNormal DistKind = iota
	DistMultivariateNormal
	DistBeta
)

// Distribution is a parametric random variable. Exactly one of the
// parameter records is set, matching Kind.
type Distribution struct {
	Kind DistKind

	Normal *NormalParams
	MVN    *MVNParams
	Beta   *BetaParams
}

// Parameters for a univariate normal
type NormalParams struct {
	Mu    float64
	Sigma float64
}

// Parameters for a multivariate normal
type MVNParams struct {
	// Mean vector, length k
	Mean []float64
	// Covariance matrix, k x k, symmetric positive-definite
	Cov *mat.SymDense
}

// Parameters for a beta distribution
type BetaParams struct {
	Alpha float64
	Beta  float64
	// Subtract the theoretical mean alpha/(alpha+beta) from every draw
	Centered bool
}

// Structural coefficients of the supply/demand system
//
//	demand: q = Alpha*p + d
//	supply: q = Beta*p + s
type SupplyDemandParams struct {
	Alpha float64 `yaml:"alpha"`
	Beta  float64 `yaml:"beta"`

	// Standard deviations of the demand and supply shocks
	SigmaDemand float64 `yaml:"sigma_demand"`
	SigmaSupply float64 `yaml:"sigma_supply"`

	// Scale of the centered beta perturbation added to the instrument
	InstrumentNoise float64 `yaml:"instrument_noise"`
}

// Coefficients of the single-equation linear IV model
//
//	X = Z*Pi + v
//	y = X*Beta + u
type LinearIVParams struct {
	Beta   float64 `yaml:"beta"`
	Pi     float64 `yaml:"pi"`
	SigmaU float64 `yaml:"sigma_u"`
	SigmaV float64 `yaml:"sigma_v"`

	// Correlation between u and v. Zero draws them independently.
	Rho float64 `yaml:"rho"`
}

// Coefficients of the classical regression model y = X*Beta + e with
// regressors drawn from a multivariate normal
type RegressionParams struct {
	Beta []float64
	Mean []float64
	Cov  *mat.SymDense
	// Standard deviation of e
	SigmaE float64
}

// Sample is one synthetic data set. Y, X and Z (when present) have the same
// number of rows.
type Sample struct {
	Y *mat.VecDense
	X *mat.Dense
	// Instruments, nil for plain regression data
	Z *mat.Dense

	// Column names of X
	Names []string
}

// Generator draws one fresh Sample of size n from src.
type Generator func(n int, src rand.Source) (*Sample, error)

// Which estimator produced a result
type Method int

const (
	MethodOLS Method = iota
	MethodIV
)

// EstimationResult holds the point estimate and, for OLS, its covariance.
type EstimationResult struct {
	Method Method

	// Point estimates, one per column of X
	B *mat.VecDense

	// Estimated covariance of B (OLS only, nil for IV)
	VB *mat.SymDense

	// Residual variance used for VB (OLS only)
	Sigma2 float64
}

// Estimator is the interface for anything that turns a Sample into estimates.
type Estimator interface {
	Estimate(s *Sample) (*EstimationResult, error)
	Name() string
	Method() Method
}

// OLSEstimator solves the normal equations X'X b = X'y.
type OLSEstimator struct {
	// Largest accepted condition number of X'X, 0 uses DefaultConditionTolerance
	Tolerance float64
}

// IVEstimator solves the exactly-identified system Z'X b = Z'y.
type IVEstimator struct {
	// Largest accepted condition number of Z'X, 0 uses DefaultConditionTolerance
	Tolerance float64
}

// Options for a Monte-Carlo run
type MonteCarloOptions struct {
	// Number of replications
	Replications int

	// Rows per generated sample
	SampleSize int

	// RNG seed (if 0, time-based seed is used)
	Seed uint64

	// Number of concurrent workers (if 0, runtime.NumCPU())
	Workers int

	// Drop replications whose estimation fails instead of aborting the run
	SkipFailed bool

	// Label stored with the ensemble
	Name string
}

// Ensemble collects the point estimates of every replication in order.
type Ensemble struct {
	Name string

	// Estimator that produced the estimates
	Method Method

	// Column names of the estimates
	Names []string

	SampleSize   int
	Replications int
	Seed         uint64

	// Replications dropped because SkipFailed was set
	Skipped int

	// Estimates[r][j] = coefficient j of kept replication r
	Estimates [][]float64
}

// CoefSummary describes the empirical distribution of one coefficient.
type CoefSummary struct {
	Name     string
	Mean     float64
	Variance float64
	StdDev   float64
	Lower    float64 // 2.5% quantile
	Median   float64
	Upper    float64 // 97.5% quantile

	// Mean minus the true value, NaN if no truth was given
	Bias float64
}

// EnsembleSummary summarises every coefficient of an Ensemble.
type EnsembleSummary struct {
	Name  string
	Kept  int
	Coefs []CoefSummary
}
