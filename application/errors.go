// Authors: Rohan Adla, Arrio Gonsalves, Shreyan Nalwad, Dylan Setiawan
// Date: Oct 16th 2026
// Project: A Monte-Carlo Analysis of OLS and Instrumental-Variables Estimators
// Class: 02-613 at Caregie Mellon University

package main

import (
	"fmt"
	"math"
)

// ConfigurationError is returned when parameters or options describe a model
// that cannot be estimated, e.g. an unidentified supply/demand system or
// instruments whose column count differs from the regressors.
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration error: %s: %s", e.Field, e.Reason)
}

// SingularSystemError is returned when the normal-equations matrix cannot be
// solved reliably. Cond is +Inf when the factorization failed outright.
type SingularSystemError struct {
	// Which matrix, "X'X" or "Z'X"
	Matrix string
	Cond   float64
}

func (e *SingularSystemError) Error() string {
	if math.IsInf(e.Cond, 1) {
		return fmt.Sprintf("singular system: %s is not invertible", e.Matrix)
	}
	return fmt.Sprintf("singular system: %s is ill-conditioned (condition number %.3g)", e.Matrix, e.Cond)
}

// DistributionParameterError is returned when a distribution is built from
// invalid parameters.
type DistributionParameterError struct {
	Distribution string
	Reason       string
}

func (e *DistributionParameterError) Error() string {
	return fmt.Sprintf("invalid %s parameters: %s", e.Distribution, e.Reason)
}

func configErr(field, format string, args ...interface{}) error {
	return &ConfigurationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

func distErr(dist, format string, args ...interface{}) error {
	return &DistributionParameterError{Distribution: dist, Reason: fmt.Sprintf(format, args...)}
}
