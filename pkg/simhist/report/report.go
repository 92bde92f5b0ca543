package report

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/cognicore/simhist/pkg/simhist/histogram"
)

// Named pairs a histogram with the label it is reported under.
type Named struct {
	Name string
	Hist histogram.Histogram
}

// Row is one normalized histogram. Values is nil when the histogram could
// not be normalized; the row still holds its place in the report.
type Row struct {
	Name   string    `json:"name"`
	Counts []int64   `json:"counts"`
	Values []float64 `json:"values"`
}

// Report holds the normalized histograms in input order.
type Report struct {
	Rows []Row `json:"rows"`
}

// Build normalizes every histogram on its own and keeps one row per input,
// in input order. Histograms that cannot be normalized keep their row with
// nil Values and their errors are joined into the returned error.
func Build(hists ...Named) (Report, error) {
	var (
		rep  Report
		errs []error
	)
	for _, h := range hists {
		values, err := h.Hist.Normalize()
		if err != nil {
			errs = append(errs, fmt.Errorf("normalize %s: %w", h.Name, err))
			values = nil
		}
		rep.Rows = append(rep.Rows, Row{
			Name:   h.Name,
			Counts: append([]int64(nil), h.Hist...),
			Values: values,
		})
	}
	return rep, errors.Join(errs...)
}

// WriteR writes an R script with one stacked bar plot per row. Rows that
// were not normalized are plotted as NA, one per bin.
func (r Report) WriteR(w io.Writer) error {
	var b strings.Builder
	b.WriteString("par(mfrow=c(")
	b.WriteString(strconv.Itoa(len(r.Rows)))
	b.WriteString(",1))\n")
	for _, row := range r.Rows {
		b.WriteString("barplot(c(")
		if row.Values == nil {
			for i := range max(len(row.Counts), 1) {
				if i > 0 {
					b.WriteString(", ")
				}
				b.WriteString("NA")
			}
		}
		for i, v := range row.Values {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(formatValue(v))
		}
		b.WriteString("))\n")
	}
	_, err := io.WriteString(w, b.String())
	return err
}

// R returns the script produced by WriteR.
func (r Report) R() string {
	var b strings.Builder
	_ = r.WriteR(&b)
	return b.String()
}

// WriteJSON writes the report as indented JSON.
func (r Report) WriteJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(r)
}

// formatValue prints the shortest decimal that round-trips, always with a
// decimal point or exponent so R reads it as numeric.
func formatValue(v float64) string {
	s := strconv.FormatFloat(v, 'g', -1, 64)
	if !strings.ContainsAny(s, ".eEnN") {
		s += ".0"
	}
	return s
}
