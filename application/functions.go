// Authors: Rohan Adla, Arrio Gonsalves, Shreyan Nalwad, Dylan Setiawan
// Date: Oct 16th 2026
// Project: A Monte-Carlo Analysis of OLS and Instrumental-Variables Estimators
// Class: 02-613 at Caregie Mellon University

package main

import (
	"math"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// DefaultConditionTolerance is the largest condition number of X'X or Z'X
// accepted before a system is reported as singular.
const DefaultConditionTolerance = 1e12

// These functions are for the estimators and their methods
func (e *OLSEstimator) Name() string { return "OLS" }

func (e *IVEstimator) Name() string { return "IV" }

func (e *OLSEstimator) Method() Method { return MethodOLS }

func (e *IVEstimator) Method() Method { return MethodIV }

func (m Method) String() string {
	switch m {
	case MethodOLS:
		return "OLS"
	case MethodIV:
		return "IV"
	}
	return "unknown"
}

// Estimate regresses s.Y on s.X by least squares.
func (e *OLSEstimator) Estimate(s *Sample) (*EstimationResult, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return Estimate(s.Y, s.X, nil, e.Tolerance)
}

// Estimate regresses s.Y on s.X using s.Z as instruments.
func (e *IVEstimator) Estimate(s *Sample) (*EstimationResult, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	if s.Z == nil {
		return nil, configErr("Z", "IV estimation needs instruments")
	}
	return Estimate(s.Y, s.X, s.Z, e.Tolerance)
}

// Estimate computes point estimates from the normal equations.
// y: outcome vector (n)
// X: regressors (n x k)
// Z: instruments (n x k), nil for OLS
// tol: largest accepted condition number, <= 0 uses DefaultConditionTolerance
// Returns: EstimationResult, VB is only set for OLS
func Estimate(y *mat.VecDense, X, Z *mat.Dense, tol float64) (*EstimationResult, error) {
	if y == nil || X == nil {
		return nil, configErr("sample", "outcome or regressors not provided")
	}
	if tol <= 0 {
		tol = DefaultConditionTolerance
	}

	n, k := X.Dims()
	if y.Len() != n {
		return nil, configErr("X", "has %d rows, y has %d", n, y.Len())
	}
	if n <= k {
		return nil, configErr("X", "need more observations than regressors: n = %d, k = %d", n, k)
	}

	if Z == nil {
		return estimateOLS(y, X, tol)
	}
	return estimateIV(y, X, Z, tol)
}

// estimateOLS solves (X'X) b = X'y through a Cholesky factorization of X'X.
func estimateOLS(y *mat.VecDense, X *mat.Dense, tol float64) (*EstimationResult, error) {
	// X'X is symmetric, build it as such: X' * (X')'
	var xtx mat.SymDense
	xtx.SymOuterK(1, X.T())

	var chol mat.Cholesky
	if !chol.Factorize(&xtx) {
		return nil, &SingularSystemError{Matrix: "X'X", Cond: math.Inf(1)}
	}
	if cond := chol.Cond(); cond > tol || math.IsNaN(cond) {
		return nil, &SingularSystemError{Matrix: "X'X", Cond: cond}
	}

	var xty mat.VecDense
	xty.MulVec(X.T(), y)

	var b mat.VecDense
	if err := chol.SolveVecTo(&b, &xty); err != nil {
		return nil, solveError("X'X", chol.Cond(), err)
	}

	e := Residuals(y, X, &b)
	sigma2 := stat.Variance(e.RawVector().Data, nil)

	// vb = var(e) * (X'X)^-1
	var vb mat.SymDense
	if err := chol.InverseTo(&vb); err != nil {
		return nil, solveError("X'X", chol.Cond(), err)
	}
	vb.ScaleSym(sigma2, &vb)

	return &EstimationResult{
		Method: MethodOLS,
		B:      &b,
		VB:     &vb,
		Sigma2: sigma2,
	}, nil
}

// estimateIV solves (Z'X) b = Z'y through an LU factorization of Z'X.
// Only the exactly-identified case is supported.
func estimateIV(y *mat.VecDense, X, Z *mat.Dense, tol float64) (*EstimationResult, error) {
	n, k := X.Dims()
	zn, zk := Z.Dims()
	if zn != n {
		return nil, configErr("Z", "has %d rows, X has %d", zn, n)
	}
	if zk != k {
		return nil, configErr("Z", "has %d columns, X has %d; only exactly-identified models are supported", zk, k)
	}

	var ztx mat.Dense
	ztx.Mul(Z.T(), X)

	var lu mat.LU
	lu.Factorize(&ztx)
	if cond := lu.Cond(); cond > tol || math.IsNaN(cond) {
		return nil, &SingularSystemError{Matrix: "Z'X", Cond: cond}
	}

	var zty mat.VecDense
	zty.MulVec(Z.T(), y)

	var b mat.VecDense
	if err := lu.SolveVecTo(&b, false, &zty); err != nil {
		return nil, solveError("Z'X", lu.Cond(), err)
	}

	return &EstimationResult{
		Method: MethodIV,
		B:      &b,
	}, nil
}

// solveError turns a failed gonum solve into a SingularSystemError. Condition
// errors carry the condition number, anything else is wrapped as is.
func solveError(matrix string, cond float64, err error) error {
	var c mat.Condition
	if errors.As(err, &c) {
		return &SingularSystemError{Matrix: matrix, Cond: float64(c)}
	}
	return errors.Wrapf(&SingularSystemError{Matrix: matrix, Cond: cond}, "solve failed: %v", err)
}

// Residuals returns e = y - X*b.
func Residuals(y *mat.VecDense, X *mat.Dense, b *mat.VecDense) *mat.VecDense {
	var fit mat.VecDense
	fit.MulVec(X, b)

	e := mat.NewVecDense(y.Len(), nil)
	e.SubVec(y, &fit)
	return e
}

// NormalEquationsResidual returns X'(y - X*b), which is zero at the OLS solution.
func NormalEquationsResidual(y *mat.VecDense, X *mat.Dense, b *mat.VecDense) *mat.VecDense {
	e := Residuals(y, X, b)

	var g mat.VecDense
	g.MulVec(X.T(), e)
	return &g
}

// StdErrors returns the square roots of the diagonal of r.VB, nil for IV results.
func (r *EstimationResult) StdErrors() []float64 {
	if r == nil || r.VB == nil {
		return nil
	}
	k := r.VB.SymmetricDim()
	se := make([]float64, k)
	for j := 0; j < k; j++ {
		se[j] = math.Sqrt(r.VB.At(j, j))
	}
	return se
}
