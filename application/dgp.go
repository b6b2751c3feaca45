// Authors: Rohan Adla, Arrio Gonsalves, Shreyan Nalwad, Dylan Setiawan
// Date: Oct 16th 2026
// Project: A Monte-Carlo Analysis of OLS and Instrumental-Variables Estimators
// Class: 02-613 at Caregie Mellon University

package main

import (
	"fmt"
	"math"
	"math/rand/v2"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Shape parameters of the beta perturbation added to the supply/demand instrument
const (
	instrumentNoiseAlpha = 2.0
	instrumentNoiseBeta  = 2.0
)

// DefaultSupplyDemandParams returns the textbook downward-sloping demand,
// upward-sloping supply configuration.
func DefaultSupplyDemandParams() SupplyDemandParams {
	return SupplyDemandParams{
		Alpha:           -1,
		Beta:            2,
		SigmaDemand:     1,
		SigmaSupply:     1,
		InstrumentNoise: 1,
	}
}

// DefaultLinearIVParams returns a relevant instrument with an endogenous regressor.
func DefaultLinearIVParams() LinearIVParams {
	return LinearIVParams{
		Beta:   1,
		Pi:     1,
		SigmaU: 1,
		SigmaV: 1,
		Rho:    0.5,
	}
}

// DefaultRegressionParams returns the two-regressor classical model
// y = 0.5*x1 + 1*x2 + e with Var(e) = 0.2.
func DefaultRegressionParams() RegressionParams {
	return RegressionParams{
		Beta:   []float64{0.5, 1},
		Mean:   []float64{0, 0},
		Cov:    mat.NewSymDense(2, []float64{1, 0.5, 0.5, 2}),
		SigmaE: math.Sqrt(0.2),
	}
}

// ReducedForm solves the supply/demand system for the matrix Pi such that
// [q p] = [d s] * Pi, row by row.
// Returns a ConfigurationError if either slope is not finite or alpha == beta,
// the system is unidentified then.
func ReducedForm(alpha, beta float64) (*mat.Dense, error) {
	if !finite(alpha) {
		return nil, configErr("alpha", "must be finite, got %v", alpha)
	}
	if !finite(beta) {
		return nil, configErr("beta", "must be finite, got %v", beta)
	}
	if alpha == beta {
		return nil, configErr("alpha", "alpha equals beta (%v), the system is unidentified", alpha)
	}
	den := alpha - beta
	return mat.NewDense(2, 2, []float64{
		-beta / den, -1 / den,
		alpha / den, 1 / den,
	}), nil
}

// SupplyDemandDGP validates p, builds its distributions once, and returns a
// Generator drawing fresh samples of the simultaneous system.
func SupplyDemandDGP(p SupplyDemandParams) (Generator, error) {
	pi, err := ReducedForm(p.Alpha, p.Beta)
	if err != nil {
		return nil, err
	}
	if p.InstrumentNoise < 0 || !finite(p.InstrumentNoise) {
		return nil, configErr("instrument_noise", "must be finite and >= 0, got %v", p.InstrumentNoise)
	}
	if !(p.SigmaDemand > 0) || !(p.SigmaSupply > 0) || !finite(p.SigmaDemand) || !finite(p.SigmaSupply) {
		return nil, distErr("shock", "standard deviations must be positive, got demand=%v supply=%v",
			p.SigmaDemand, p.SigmaSupply)
	}

	shockCov := mat.NewSymDense(2, []float64{
		p.SigmaDemand * p.SigmaDemand, 0,
		0, p.SigmaSupply * p.SigmaSupply,
	})
	shocks, err := NewMultivariateNormal([]float64{0, 0}, shockCov)
	if err != nil {
		return nil, errors.Wrap(err, "building shock distribution")
	}
	noise, err := NewBeta(instrumentNoiseAlpha, instrumentNoiseBeta, true)
	if err != nil {
		return nil, errors.Wrap(err, "building instrument noise distribution")
	}

	gen := func(n int, src rand.Source) (*Sample, error) {
		ds, err := shocks.Sample(n, src)
		if err != nil {
			return nil, err
		}

		// Columns of obs are quantity and price
		var obs mat.Dense
		obs.Mul(ds, pi)

		supply := mat.Col(nil, 1, ds)
		z := make([]float64, n)
		for i, s := range supply {
			z[i] = math.Tanh(s)
		}
		if p.InstrumentNoise > 0 {
			w, err := noise.Sample(n, src)
			if err != nil {
				return nil, err
			}
			floats.AddScaled(z, p.InstrumentNoise, w.RawMatrix().Data)
		}

		return &Sample{
			Y:     mat.NewVecDense(n, mat.Col(nil, 0, &obs)),
			X:     withConstant(mat.Col(nil, 1, &obs)),
			Z:     withConstant(z),
			Names: []string{"const", "price"},
		}, nil
	}
	return gen, nil
}

// GenerateSupplyDemand draws one sample of size n from the supply/demand system.
func GenerateSupplyDemand(n int, p SupplyDemandParams, src rand.Source) (*Sample, error) {
	gen, err := SupplyDemandDGP(p)
	if err != nil {
		return nil, err
	}
	return gen(n, src)
}

// LinearIVDGP validates p and returns a Generator for the single-equation
// model. Pi == 0 is accepted, the instrument is then irrelevant.
func LinearIVDGP(p LinearIVParams) (Generator, error) {
	if !finite(p.Beta) {
		return nil, configErr("beta", "must be finite, got %v", p.Beta)
	}
	if !finite(p.Pi) {
		return nil, configErr("pi", "must be finite, got %v", p.Pi)
	}
	if !(p.SigmaU > 0) || !(p.SigmaV > 0) || !finite(p.SigmaU) || !finite(p.SigmaV) {
		return nil, distErr("disturbance", "standard deviations must be positive, got sigma_u=%v sigma_v=%v",
			p.SigmaU, p.SigmaV)
	}
	if math.Abs(p.Rho) >= 1 || math.IsNaN(p.Rho) {
		return nil, distErr("disturbance", "rho must lie in (-1, 1), got %v", p.Rho)
	}

	instr, err := NewNormal(0, 1)
	if err != nil {
		return nil, err
	}

	// u and v are drawn together when correlated, separately otherwise
	var joint, uDist, vDist *Distribution
	if p.Rho != 0 {
		c := p.Rho * p.SigmaU * p.SigmaV
		cov := mat.NewSymDense(2, []float64{
			p.SigmaU * p.SigmaU, c,
			c, p.SigmaV * p.SigmaV,
		})
		if joint, err = NewMultivariateNormal([]float64{0, 0}, cov); err != nil {
			return nil, err
		}
	} else {
		if uDist, err = NewNormal(0, p.SigmaU); err != nil {
			return nil, err
		}
		if vDist, err = NewNormal(0, p.SigmaV); err != nil {
			return nil, err
		}
	}

	gen := func(n int, src rand.Source) (*Sample, error) {
		var u, v []float64
		if joint != nil {
			uv, err := joint.Sample(n, src)
			if err != nil {
				return nil, err
			}
			u = mat.Col(nil, 0, uv)
			v = mat.Col(nil, 1, uv)
		} else {
			um, err := uDist.Sample(n, src)
			if err != nil {
				return nil, err
			}
			vm, err := vDist.Sample(n, src)
			if err != nil {
				return nil, err
			}
			u = um.RawMatrix().Data
			v = vm.RawMatrix().Data
		}
		zm, err := instr.Sample(n, src)
		if err != nil {
			return nil, err
		}
		z := zm.RawMatrix().Data

		// X = Z*pi + v
		x := make([]float64, n)
		floats.AddScaledTo(x, v, p.Pi, z)

		// y = X*beta + u
		y := make([]float64, n)
		floats.AddScaledTo(y, u, p.Beta, x)

		return &Sample{
			Y:     mat.NewVecDense(n, y),
			X:     withConstant(x),
			Z:     withConstant(z),
			Names: []string{"const", "x"},
		}, nil
	}
	return gen, nil
}

// GenerateLinearIV draws one sample of size n from the single-equation model.
func GenerateLinearIV(n int, p LinearIVParams, src rand.Source) (*Sample, error) {
	gen, err := LinearIVDGP(p)
	if err != nil {
		return nil, err
	}
	return gen(n, src)
}

// RegressionDGP validates p and returns a Generator for y = X*Beta + e with
// multivariate normal regressors and no constant column.
func RegressionDGP(p RegressionParams) (Generator, error) {
	regs, err := NewMultivariateNormal(p.Mean, p.Cov)
	if err != nil {
		return nil, err
	}
	if len(p.Beta) != regs.Dim() {
		return nil, configErr("beta", "has %d coefficients for %d regressors", len(p.Beta), regs.Dim())
	}
	for j, b := range p.Beta {
		if !finite(b) {
			return nil, configErr("beta", "beta[%d] must be finite, got %v", j, b)
		}
	}
	dist, err := NewNormal(0, p.SigmaE)
	if err != nil {
		return nil, err
	}

	beta := mat.NewVecDense(len(p.Beta), append([]float64(nil), p.Beta...))
	names := make([]string, len(p.Beta))
	for j := range names {
		names[j] = fmt.Sprintf("x%d", j+1)
	}

	gen := func(n int, src rand.Source) (*Sample, error) {
		X, err := regs.Sample(n, src)
		if err != nil {
			return nil, err
		}
		e, err := dist.Sample(n, src)
		if err != nil {
			return nil, err
		}

		y := mat.NewVecDense(n, nil)
		y.MulVec(X, beta)
		y.AddVec(y, e.ColView(0))

		return &Sample{Y: y, X: X, Names: names}, nil
	}
	return gen, nil
}

// GenerateRegression draws one sample of size n from the classical model.
func GenerateRegression(n int, p RegressionParams, src rand.Source) (*Sample, error) {
	gen, err := RegressionDGP(p)
	if err != nil {
		return nil, err
	}
	return gen(n, src)
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// withConstant returns an n x (1+len(cols)) matrix whose first column is ones.
func withConstant(cols ...[]float64) *mat.Dense {
	n := len(cols[0])
	out := mat.NewDense(n, len(cols)+1, nil)
	for i := 0; i < n; i++ {
		out.Set(i, 0, 1.0)
		for j, c := range cols {
			out.Set(i, j+1, c[i])
		}
	}
	return out
}

// Validate checks that Y, X and Z describe the same number of observations.
func (s *Sample) Validate() error {
	if s == nil || s.Y == nil || s.X == nil {
		return configErr("sample", "outcome or regressors not provided")
	}
	n := s.Y.Len()
	if r, _ := s.X.Dims(); r != n {
		return configErr("X", "has %d rows, y has %d", r, n)
	}
	if s.Z != nil {
		if r, _ := s.Z.Dims(); r != n {
			return configErr("Z", "has %d rows, y has %d", r, n)
		}
	}
	return nil
}
