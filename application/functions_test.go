// Authors: Rohan Adla, Arrio Gonsalves, Shreyan Nalwad, Dylan Setiawan
// Date: Oct 16th 2026
// Project: A Monte-Carlo Analysis of OLS and Instrumental-Variables Estimators
// Class: 02-613 at Caregie Mellon University

package main

import (
	"bufio"
	"errors"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"
	"testing"

	"gonum.org/v1/gonum/mat"
)

// ============================================================================
// HELPER FUNCTIONS
// ============================================================================

// almostEqual compares floats with tolerance
func almostEqual(a, b, tol float64) bool {
	return math.Abs(a-b) <= tol
}

// ReadDirectory reads all files in a directory
func ReadDirectory(directory string) []os.DirEntry {
	files, err := os.ReadDir(directory)
	if err != nil {
		panic(fmt.Sprintf("Error reading directory %s: %v", directory, err))
	}
	return files
}

// skipComments reads lines from scanner, skipping comment lines starting with #
func skipComments(scanner *bufio.Scanner) string {
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line != "" && !strings.HasPrefix(line, "#") {
			return line
		}
	}
	return ""
}

// readFloat parses the next non-comment line as a float
func readFloat(scanner *bufio.Scanner) float64 {
	line := skipComments(scanner)
	v, err := strconv.ParseFloat(line, 64)
	if err != nil {
		panic(fmt.Sprintf("Error parsing float %q: %v", line, err))
	}
	return v
}

// readInt parses the next non-comment line as an int
func readInt(scanner *bufio.Scanner) int {
	line := skipComments(scanner)
	v, err := strconv.Atoi(line)
	if err != nil {
		panic(fmt.Sprintf("Error parsing int %q: %v", line, err))
	}
	return v
}

// readMatrix parses rows lines of cols whitespace separated floats
func readMatrix(scanner *bufio.Scanner, rows, cols int) *mat.Dense {
	data := make([]float64, 0, rows*cols)
	for i := 0; i < rows; i++ {
		line := skipComments(scanner)
		parts := strings.Fields(line)
		if len(parts) != cols {
			panic(fmt.Sprintf("Error: row %d has %d fields, want %d", i, len(parts), cols))
		}
		for _, p := range parts {
			v, err := strconv.ParseFloat(p, 64)
			if err != nil {
				panic(fmt.Sprintf("Error parsing matrix entry %q: %v", p, err))
			}
			data = append(data, v)
		}
	}
	return mat.NewDense(rows, cols, data)
}

// readVector parses n lines of one float each
func readVector(scanner *bufio.Scanner, n int) *mat.VecDense {
	data := make([]float64, n)
	for i := range data {
		data[i] = readFloat(scanner)
	}
	return mat.NewVecDense(n, data)
}

func openScanner(file string) (*bufio.Scanner, *os.File) {
	f, err := os.Open(file)
	if err != nil {
		panic(err)
	}
	return bufio.NewScanner(f), f
}

// ============================================================================
// ENSEMBLE QUANTILE TESTS
// ============================================================================

type QuantileTest struct {
	Samples []float64
	Q       float64
	Result  float64
}

func ReadQuantileTests(directory string) []QuantileTest {
	inputFiles := ReadDirectory(directory + "input")
	outputFiles := ReadDirectory(directory + "output")

	if len(inputFiles) != len(outputFiles) {
		panic("Error: number of input and output files do not match!")
	}

	tests := make([]QuantileTest, len(inputFiles))
	for i, inputFile := range inputFiles {
		scanner, f := openScanner(directory + "input/" + inputFile.Name())
		n := readInt(scanner)
		tests[i].Samples = readVector(scanner, n).RawVector().Data
		tests[i].Q = readFloat(scanner)
		f.Close()
	}

	for i, outputFile := range outputFiles {
		scanner, f := openScanner(directory + "output/" + outputFile.Name())
		tests[i].Result = readFloat(scanner)
		f.Close()
	}

	return tests
}

func TestEnsembleQuantile(t *testing.T) {
	tests := ReadQuantileTests("Tests/Quantile/")
	for i, test := range tests {
		got := ensembleQuantile(test.Samples, test.Q)
		if !almostEqual(got, test.Result, 1e-9) {
			t.Errorf("Test %d: ensembleQuantile(%v, %v) = %v; want %v",
				i+1, test.Samples, test.Q, got, test.Result)
		}
	}

	if got := ensembleQuantile(nil, 0.5); !math.IsNaN(got) {
		t.Errorf("ensembleQuantile(nil) = %v, want NaN", got)
	}

	// the caller's slice keeps its order
	samples := []float64{3, 1, 2}
	ensembleQuantile(samples, 0.5)
	if samples[0] != 3 || samples[1] != 1 || samples[2] != 2 {
		t.Errorf("ensembleQuantile reordered its input: %v", samples)
	}

	// one sorted copy serves every quantile
	sorted := sortedCopy([]float64{4, 2, 8, 6})
	lower, median, upper := sortedQuantile(sorted, 0.25), sortedQuantile(sorted, 0.5), sortedQuantile(sorted, 0.75)
	if !almostEqual(lower, 3.5, 1e-12) || !almostEqual(median, 5, 1e-12) || !almostEqual(upper, 6.5, 1e-12) {
		t.Errorf("sortedQuantile = %v, %v, %v; want 3.5, 5, 6.5", lower, median, upper)
	}
}

// ============================================================================
// OLS TESTS
// ============================================================================

type OLSTest struct {
	X      *mat.Dense
	Y      *mat.VecDense
	B      []float64
	Sigma2 float64
	VB     *mat.Dense
}

func ReadOLSTests(directory string) []OLSTest {
	inputFiles := ReadDirectory(directory + "input")
	outputFiles := ReadDirectory(directory + "output")

	if len(inputFiles) != len(outputFiles) {
		panic("Error: number of input and output files do not match!")
	}

	tests := make([]OLSTest, len(inputFiles))
	for i, inputFile := range inputFiles {
		scanner, f := openScanner(directory + "input/" + inputFile.Name())
		n := readInt(scanner)
		k := readInt(scanner)
		tests[i].X = readMatrix(scanner, n, k)
		tests[i].Y = readVector(scanner, n)
		f.Close()
	}

	for i, outputFile := range outputFiles {
		scanner, f := openScanner(directory + "output/" + outputFile.Name())
		_, k := tests[i].X.Dims()
		tests[i].B = readVector(scanner, k).RawVector().Data
		tests[i].Sigma2 = readFloat(scanner)
		tests[i].VB = readMatrix(scanner, k, k)
		f.Close()
	}

	return tests
}

func TestEstimateOLS(t *testing.T) {
	tests := ReadOLSTests("Tests/OLS/")
	for i, test := range tests {
		res, err := Estimate(test.Y, test.X, nil, 0)
		if err != nil {
			t.Errorf("Test %d: Estimate returned error: %v", i+1, err)
			continue
		}
		if res.Method != MethodOLS {
			t.Errorf("Test %d: Method = %v, want OLS", i+1, res.Method)
		}

		for j, want := range test.B {
			if got := res.B.AtVec(j); !almostEqual(got, want, 1e-9) {
				t.Errorf("Test %d: b[%d] = %v, want %v", i+1, j, got, want)
			}
		}
		if !almostEqual(res.Sigma2, test.Sigma2, 1e-9) {
			t.Errorf("Test %d: sigma2 = %v, want %v", i+1, res.Sigma2, test.Sigma2)
		}

		k := len(test.B)
		for r := 0; r < k; r++ {
			for c := 0; c < k; c++ {
				if got := res.VB.At(r, c); !almostEqual(got, test.VB.At(r, c), 1e-9) {
					t.Errorf("Test %d: VB[%d][%d] = %v, want %v", i+1, r, c, got, test.VB.At(r, c))
				}
			}
		}

		// normal equations hold at the solution
		g := NormalEquationsResidual(test.Y, test.X, res.B)
		if norm := mat.Norm(g, 2); norm > 1e-9 {
			t.Errorf("Test %d: ||X'(y - Xb)|| = %v, want 0", i+1, norm)
		}
	}
}

// ============================================================================
// IV TESTS
// ============================================================================

type IVTest struct {
	X *mat.Dense
	Z *mat.Dense
	Y *mat.VecDense
	B []float64
}

func ReadIVTests(directory string) []IVTest {
	inputFiles := ReadDirectory(directory + "input")
	outputFiles := ReadDirectory(directory + "output")

	if len(inputFiles) != len(outputFiles) {
		panic("Error: number of input and output files do not match!")
	}

	tests := make([]IVTest, len(inputFiles))
	for i, inputFile := range inputFiles {
		scanner, f := openScanner(directory + "input/" + inputFile.Name())
		n := readInt(scanner)
		k := readInt(scanner)
		tests[i].X = readMatrix(scanner, n, k)
		tests[i].Z = readMatrix(scanner, n, k)
		tests[i].Y = readVector(scanner, n)
		f.Close()
	}

	for i, outputFile := range outputFiles {
		scanner, f := openScanner(directory + "output/" + outputFile.Name())
		_, k := tests[i].X.Dims()
		tests[i].B = readVector(scanner, k).RawVector().Data
		f.Close()
	}

	return tests
}

func TestEstimateIV(t *testing.T) {
	tests := ReadIVTests("Tests/IV/")
	for i, test := range tests {
		res, err := Estimate(test.Y, test.X, test.Z, 0)
		if err != nil {
			t.Errorf("Test %d: Estimate returned error: %v", i+1, err)
			continue
		}
		if res.Method != MethodIV {
			t.Errorf("Test %d: Method = %v, want IV", i+1, res.Method)
		}
		if res.VB != nil {
			t.Errorf("Test %d: IV result should not carry a covariance", i+1)
		}
		for j, want := range test.B {
			if got := res.B.AtVec(j); !almostEqual(got, want, 1e-9) {
				t.Errorf("Test %d: b[%d] = %v, want %v", i+1, j, got, want)
			}
		}
	}
}

// ============================================================================
// ERROR CASES
// ============================================================================

func TestEstimateCollinearRegressors(t *testing.T) {
	// second and third columns are identical
	X := mat.NewDense(4, 3, []float64{
		1, 1, 1,
		1, 2, 2,
		1, 3, 3,
		1, 4, 4,
	})
	y := mat.NewVecDense(4, []float64{1, 2, 3, 5})

	_, err := Estimate(y, X, nil, 0)
	var singular *SingularSystemError
	if !errors.As(err, &singular) {
		t.Fatalf("Estimate error = %v, want SingularSystemError", err)
	}
	if singular.Matrix != "X'X" {
		t.Errorf("Matrix = %q, want X'X", singular.Matrix)
	}
}

func TestEstimateIrrelevantInstrument(t *testing.T) {
	X := mat.NewDense(4, 2, []float64{1, 1, 1, 2, 1, 3, 1, 4})
	// constant instrument carries no information beyond the intercept
	Z := mat.NewDense(4, 2, []float64{1, 5, 1, 5, 1, 5, 1, 5})
	y := mat.NewVecDense(4, []float64{1, 2, 3, 5})

	_, err := Estimate(y, X, Z, 0)
	var singular *SingularSystemError
	if !errors.As(err, &singular) {
		t.Fatalf("Estimate error = %v, want SingularSystemError", err)
	}
	if singular.Matrix != "Z'X" {
		t.Errorf("Matrix = %q, want Z'X", singular.Matrix)
	}
}

func TestEstimateMismatchedInstruments(t *testing.T) {
	X := mat.NewDense(4, 2, []float64{1, 1, 1, 2, 1, 3, 1, 4})
	Z := mat.NewDense(4, 3, []float64{1, 0, 2, 1, 1, 1, 1, 0, 3, 1, 1, 0})
	y := mat.NewVecDense(4, []float64{1, 2, 3, 5})

	_, err := Estimate(y, X, Z, 0)
	var cfgErr *ConfigurationError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("Estimate error = %v, want ConfigurationError", err)
	}
}

func TestEstimateRowMismatch(t *testing.T) {
	X := mat.NewDense(4, 2, []float64{1, 1, 1, 2, 1, 3, 1, 4})
	y := mat.NewVecDense(3, []float64{1, 2, 3})

	_, err := Estimate(y, X, nil, 0)
	var cfgErr *ConfigurationError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("Estimate error = %v, want ConfigurationError", err)
	}
}

func TestEstimateTolerance(t *testing.T) {
	// nearly collinear columns pass the default tolerance but not a strict one
	X := mat.NewDense(4, 2, []float64{1, 1, 1, 1.001, 1, 1.002, 1, 1.003})
	y := mat.NewVecDense(4, []float64{1, 2, 3, 4})

	if _, err := Estimate(y, X, nil, 0); err != nil {
		t.Fatalf("Estimate with default tolerance returned error: %v", err)
	}

	_, err := Estimate(y, X, nil, 10)
	var singular *SingularSystemError
	if !errors.As(err, &singular) {
		t.Fatalf("Estimate error = %v, want SingularSystemError", err)
	}
	if singular.Cond <= 10 {
		t.Errorf("Cond = %v, want > 10", singular.Cond)
	}
}

func TestEstimatorsOnSample(t *testing.T) {
	s := &Sample{
		Y: mat.NewVecDense(4, []float64{2, 1, 4, 3}),
		X: mat.NewDense(4, 2, []float64{1, 1, 1, 2, 1, 3, 1, 4}),
		Z: mat.NewDense(4, 2, []float64{1, 0, 1, 1, 1, 0, 1, 1}),
	}

	iv, err := (&IVEstimator{}).Estimate(s)
	if err != nil {
		t.Fatalf("IVEstimator returned error: %v", err)
	}
	if !almostEqual(iv.B.AtVec(1), -1, 1e-9) {
		t.Errorf("IV slope = %v, want -1", iv.B.AtVec(1))
	}

	ols, err := (&OLSEstimator{}).Estimate(s)
	if err != nil {
		t.Fatalf("OLSEstimator returned error: %v", err)
	}
	if se := ols.StdErrors(); len(se) != 2 || se[1] <= 0 {
		t.Errorf("StdErrors = %v, want two positive values", se)
	}

	s.Z = nil
	_, err = (&IVEstimator{}).Estimate(s)
	var cfgErr *ConfigurationError
	if !errors.As(err, &cfgErr) {
		t.Errorf("IVEstimator without instruments error = %v, want ConfigurationError", err)
	}
}

// ============================================================================
// REDUCED FORM TESTS
// ============================================================================

func TestReducedForm(t *testing.T) {
	alpha, beta := -1.0, 2.0
	pi, err := ReducedForm(alpha, beta)
	if err != nil {
		t.Fatalf("ReducedForm returned error: %v", err)
	}

	want := []float64{2.0 / 3, 1.0 / 3, 1.0 / 3, -1.0 / 3}
	for i, w := range want {
		if got := pi.At(i/2, i%2); !almostEqual(got, w, 1e-12) {
			t.Errorf("Pi[%d][%d] = %v, want %v", i/2, i%2, got, w)
		}
	}

	// [q p] = [d s] * Pi must satisfy both structural equations
	shocks := [][2]float64{{1, 0}, {0, 1}, {0.3, -1.2}}
	for _, ds := range shocks {
		q := ds[0]*pi.At(0, 0) + ds[1]*pi.At(1, 0)
		p := ds[0]*pi.At(0, 1) + ds[1]*pi.At(1, 1)
		if !almostEqual(q, alpha*p+ds[0], 1e-12) {
			t.Errorf("demand equation fails for shocks %v: q = %v, alpha*p+d = %v", ds, q, alpha*p+ds[0])
		}
		if !almostEqual(q, beta*p+ds[1], 1e-12) {
			t.Errorf("supply equation fails for shocks %v: q = %v, beta*p+s = %v", ds, q, beta*p+ds[1])
		}
	}

	_, err = ReducedForm(1.5, 1.5)
	var cfgErr *ConfigurationError
	if !errors.As(err, &cfgErr) {
		t.Errorf("ReducedForm(1.5, 1.5) error = %v, want ConfigurationError", err)
	}
}
