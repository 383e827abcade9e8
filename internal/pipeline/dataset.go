// Package pipeline turns an uploaded sales table into a ranked list of
// predicted sales per furniture product.
//
// The stages run in a fixed order: Validate, Normalize, Filter, Aggregate.
// Every stage is a pure function of its input and the Rules it was built
// with, so a Pipeline may be shared by concurrent requests.
package pipeline

import "strings"

// Dataset is a header row plus data rows of raw cell values. Rows may be
// shorter than Columns; absent trailing cells read as empty.
type Dataset struct {
	Columns []string
	Rows    [][]string
	// Lines holds the source line (CSV) or sheet row (XLSX) of each entry
	// in Rows. It is nil for datasets not read from a file.
	Lines []int
}

// Len returns the number of data rows.
func (d Dataset) Len() int {
	return len(d.Rows)
}

// Line returns the source line of row i. Without recorded lines the header
// is taken to be line 1 with the rows following it.
func (d Dataset) Line(i int) int {
	if len(d.Lines) == len(d.Rows) {
		return d.Lines[i]
	}
	return i + 2
}

// Index returns the position of column, or -1.
func (d Dataset) Index(column string) int {
	for i, c := range d.Columns {
		if c == column {
			return i
		}
	}
	return -1
}

// Column returns every value of the named column in row order.
func (d Dataset) Column(column string) []string {
	idx := d.Index(column)
	if idx < 0 {
		return nil
	}

	out := make([]string, len(d.Rows))
	for i, row := range d.Rows {
		out[i] = cell(row, idx)
	}
	return out
}

// PredictionRow pairs one model output with the product it was computed for.
type PredictionRow struct {
	Product        string
	PredictedSales float64
}

func cell(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return row[idx]
}

func lowerColumns(columns []string) []string {
	out := make([]string, len(columns))
	for i, c := range columns {
		out[i] = strings.ToLower(strings.TrimSpace(c))
	}
	return out
}
