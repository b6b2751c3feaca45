// Authors: Rohan Adla, Arrio Gonsalves, Shreyan Nalwad, Dylan Setiawan
// Date: Oct 16th 2026
// Project: A Monte-Carlo Analysis of OLS and Instrumental-Variables Estimators
// Class: 02-613 at Caregie Mellon University

package main

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/nao1215/markdown"
	"gonum.org/v1/gonum/mat"
)

// OutputEnsemblesToCSV writes every estimate of every ensemble in long format.
// Columns: Ensemble, Replication, Coefficient, Estimate
func OutputEnsemblesToCSV(path string, ensembles []*Ensemble) (err error) {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := file.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close %s: %w", path, cerr)
		}
	}()

	return writeEnsembles(csv.NewWriter(file), ensembles)
}

func writeEnsembles(writer *csv.Writer, ensembles []*Ensemble) error {
	header := []string{"Ensemble", "Replication", "Coefficient", "Estimate"}
	if err := writer.Write(header); err != nil {
		return err
	}

	for _, ens := range ensembles {
		for r, b := range ens.Estimates {
			for j, v := range b {
				record := []string{
					ens.Name,
					strconv.Itoa(r),
					ens.CoefName(j),
					strconv.FormatFloat(v, 'f', -1, 64),
				}
				if err := writer.Write(record); err != nil {
					return err
				}
			}
		}
	}
	writer.Flush()
	return writer.Error()
}

// LoadEnsemblesFromCSV reads a file written by OutputEnsemblesToCSV back
// into ensembles, keyed and ordered by first appearance.
func LoadEnsemblesFromCSV(path string) ([]*Ensemble, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.TrimLeadingSpace = true

	if _, err := r.Read(); err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	var (
		out   []*Ensemble
		byKey = map[string]*Ensemble{}
		row   int
	)
	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row %d: %w", row+2, err)
		}
		row++
		if len(record) != 4 {
			return nil, fmt.Errorf("row %d: expected 4 columns, got %d", row+1, len(record))
		}

		rep, err := strconv.Atoi(record[1])
		if err != nil {
			return nil, fmt.Errorf("parse replication at row %d (%q): %w", row+1, record[1], err)
		}
		v, err := strconv.ParseFloat(record[3], 64)
		if err != nil {
			return nil, fmt.Errorf("parse estimate at row %d (%q): %w", row+1, record[3], err)
		}

		ens, ok := byKey[record[0]]
		if !ok {
			ens = &Ensemble{Name: record[0]}
			byKey[record[0]] = ens
			out = append(out, ens)
		}
		for len(ens.Estimates) <= rep {
			ens.Estimates = append(ens.Estimates, nil)
		}
		ens.Estimates[rep] = append(ens.Estimates[rep], v)
		if rep == 0 {
			ens.Names = append(ens.Names, record[2])
		}
	}
	for _, ens := range out {
		ens.Replications = len(ens.Estimates)
	}
	return out, nil
}

// Helper function to print a single estimation result
func PrintEstimate(res *EstimationResult, names []string) {
	fmt.Printf("\n=== %s estimate ===\n", res.Method)
	se := res.StdErrors()
	for j := 0; j < res.B.Len(); j++ {
		name := fmt.Sprintf("b%d", j)
		if j < len(names) {
			name = names[j]
		}
		if se != nil {
			fmt.Printf("%-10s %12.6f  (se %.6f)\n", name, res.B.AtVec(j), se[j])
		} else {
			fmt.Printf("%-10s %12.6f\n", name, res.B.AtVec(j))
		}
	}

	if res.VB != nil {
		fmt.Printf("\nResidual variance: %.6f\n", res.Sigma2)
		fmt.Println("Covariance matrix of b:")
		fmt.Printf("%v\n", mat.Formatted(res.VB, mat.Prefix(" ")))
	}
}

// Produces a summary table of an ensemble
func PrintSummary(sum *EnsembleSummary) {
	fmt.Printf("\n=== %s (%d replications kept) ===\n", sum.Name, sum.Kept)
	fmt.Printf("%-10s %12s %12s %12s %12s %12s\n", "coef", "mean", "std", "2.5%", "97.5%", "bias")
	fmt.Println(strings.Repeat("-", 76))
	for _, c := range sum.Coefs {
		fmt.Printf("%-10s %12.6f %12.6f %12.6f %12.6f %12s\n",
			c.Name, c.Mean, c.StdDev, c.Lower, c.Upper, formatBias(c.Bias))
	}
}

// Helps print a text histogram of one coefficient
func PrintHistogram(name string, dividers, counts []float64) {
	fmt.Printf("\n=== Histogram of %s ===\n", name)

	maxCount := 0.0
	for _, c := range counts {
		maxCount = math.Max(maxCount, c)
	}
	for i, c := range counts {
		bar := 0
		if maxCount > 0 {
			bar = int(math.Round(40 * c / maxCount))
		}
		fmt.Printf("[%9.4f, %9.4f) %6d %s\n", dividers[i], dividers[i+1], int(c), strings.Repeat("#", bar))
	}
}

// WriteMarkdownReport writes a markdown report comparing the given summaries.
func WriteMarkdownReport(w io.Writer, title string, params map[string]string, sums []*EnsembleSummary) error {
	md := markdown.NewMarkdown(w)
	md.H1(title)
	md.PlainText("")

	if len(params) > 0 {
		md.H2("Configuration")
		md.PlainText("")
		keys := sortedKeys(params)
		rows := make([][]string, 0, len(keys))
		for _, k := range keys {
			rows = append(rows, []string{k, params[k]})
		}
		md.Table(markdown.TableSet{
			Header: []string{"Parameter", "Value"},
			Rows:   rows,
		})
		md.PlainText("")
	}

	for _, sum := range sums {
		md.H2(sum.Name)
		md.PlainText("")
		md.PlainText(fmt.Sprintf("Replications kept: %d", sum.Kept))
		md.PlainText("")

		rows := make([][]string, 0, len(sum.Coefs))
		for _, c := range sum.Coefs {
			rows = append(rows, []string{
				c.Name,
				fmt.Sprintf("%.4f", c.Mean),
				fmt.Sprintf("%.4f", c.StdDev),
				fmt.Sprintf("%.4f", c.Lower),
				fmt.Sprintf("%.4f", c.Median),
				fmt.Sprintf("%.4f", c.Upper),
				formatBias(c.Bias),
			})
		}
		md.Table(markdown.TableSet{
			Header: []string{"Coefficient", "Mean", "Std. dev.", "2.5%", "Median", "97.5%", "Bias"},
			Rows:   rows,
		})
		md.PlainText("")
	}

	return md.Build()
}

func formatBias(b float64) string {
	if math.IsNaN(b) {
		return "n/a"
	}
	return fmt.Sprintf("%.4f", b)
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
