// Authors: Rohan Adla, Arrio Gonsalves, Shreyan Nalwad, Dylan Setiawan
// Date: Oct 16th 2026
// Project: A Monte-Carlo Analysis of OLS and Instrumental-Variables Estimators
// Class: 02-613 at Caregie Mellon University

package main

import (
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distmv"
	"gonum.org/v1/gonum/stat/distuv"
)

// NewNormal builds a univariate normal with mean mu and standard deviation sigma.
func NewNormal(mu, sigma float64) (*Distribution, error) {
	if math.IsNaN(mu) || math.IsInf(mu, 0) {
		return nil, distErr("normal", "mean must be finite, got %v", mu)
	}
	if !(sigma > 0) || math.IsInf(sigma, 0) {
		return nil, distErr("normal", "sigma must be positive and finite, got %v", sigma)
	}
	return &Distribution{
		Kind:   DistNormal,
		Normal: &NormalParams{Mu: mu, Sigma: sigma},
	}, nil
}

// NewMultivariateNormal builds a k-dimensional normal. cov must be
// positive-definite; this is checked with a Cholesky factorization.
func NewMultivariateNormal(mean []float64, cov *mat.SymDense) (*Distribution, error) {
	if cov == nil {
		return nil, distErr("multivariate normal", "covariance not provided")
	}
	k := cov.SymmetricDim()
	if len(mean) != k {
		return nil, distErr("multivariate normal", "mean has length %d, covariance is %dx%d", len(mean), k, k)
	}
	for i, m := range mean {
		if math.IsNaN(m) || math.IsInf(m, 0) {
			return nil, distErr("multivariate normal", "mean[%d] must be finite, got %v", i, m)
		}
	}

	var chol mat.Cholesky
	if !chol.Factorize(cov) {
		return nil, distErr("multivariate normal", "covariance is not positive-definite")
	}

	// Keep private copies so later changes by the caller don't leak in
	meanCopy := make([]float64, k)
	copy(meanCopy, mean)
	covCopy := mat.NewSymDense(k, nil)
	covCopy.CopySym(cov)

	return &Distribution{
		Kind: DistMultivariateNormal,
		MVN:  &MVNParams{Mean: meanCopy, Cov: covCopy},
	}, nil
}

// NewBeta builds a beta distribution with the given shapes. When centered is
// true every draw has the theoretical mean subtracted.
func NewBeta(alpha, beta float64, centered bool) (*Distribution, error) {
	if !(alpha > 0) || math.IsInf(alpha, 0) {
		return nil, distErr("beta", "alpha must be positive and finite, got %v", alpha)
	}
	if !(beta > 0) || math.IsInf(beta, 0) {
		return nil, distErr("beta", "beta must be positive and finite, got %v", beta)
	}
	return &Distribution{
		Kind: DistBeta,
		Beta: &BetaParams{Alpha: alpha, Beta: beta, Centered: centered},
	}, nil
}

// Dim returns the number of columns produced by Sample.
func (d *Distribution) Dim() int {
	if d.Kind == DistMultivariateNormal && d.MVN != nil {
		return len(d.MVN.Mean)
	}
	return 1
}

// Mean returns the theoretical mean of the distribution after centering.
func (d *Distribution) Mean() []float64 {
	switch d.Kind {
	case DistNormal:
		return []float64{d.Normal.Mu}
	case DistMultivariateNormal:
		out := make([]float64, len(d.MVN.Mean))
		copy(out, d.MVN.Mean)
		return out
	case DistBeta:
		if d.Beta.Centered {
			return []float64{0}
		}
		return []float64{d.Beta.Alpha / (d.Beta.Alpha + d.Beta.Beta)}
	}
	return nil
}

// Sample draws n independent variates from d using src.
// Returns: n x Dim() matrix, one draw per row
func (d *Distribution) Sample(n int, src rand.Source) (*mat.Dense, error) {
	if d == nil {
		return nil, distErr("distribution", "not provided")
	}
	if n <= 0 {
		return nil, configErr("n", "sample size must be > 0, got %d", n)
	}
	if src == nil {
		return nil, configErr("src", "random source not provided")
	}

	switch d.Kind {
	case DistNormal:
		if d.Normal == nil {
			return nil, distErr("normal", "parameters missing")
		}
		dist := distuv.Normal{Mu: d.Normal.Mu, Sigma: d.Normal.Sigma, Src: src}
		data := make([]float64, n)
		for i := range data {
			data[i] = dist.Rand()
		}
		return mat.NewDense(n, 1, data), nil

	case DistBeta:
		if d.Beta == nil {
			return nil, distErr("beta", "parameters missing")
		}
		dist := distuv.Beta{Alpha: d.Beta.Alpha, Beta: d.Beta.Beta, Src: src}
		shift := 0.0
		if d.Beta.Centered {
			shift = dist.Mean()
		}
		data := make([]float64, n)
		for i := range data {
			data[i] = dist.Rand() - shift
		}
		return mat.NewDense(n, 1, data), nil

	case DistMultivariateNormal:
		if d.MVN == nil {
			return nil, distErr("multivariate normal", "parameters missing")
		}
		dist, ok := distmv.NewNormal(d.MVN.Mean, d.MVN.Cov, src)
		if !ok {
			return nil, distErr("multivariate normal", "covariance is not positive-definite")
		}
		k := len(d.MVN.Mean)
		out := mat.NewDense(n, k, nil)
		row := make([]float64, k)
		for i := 0; i < n; i++ {
			dist.Rand(row)
			out.SetRow(i, row)
		}
		return out, nil
	}

	return nil, distErr("distribution", "unknown kind %d", d.Kind)
}

// newSource returns a seeded PCG source.
func newSource(seed uint64) rand.Source {
	return rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)
}
