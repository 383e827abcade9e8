// Package report renders prediction results for terminals.
package report

import (
	"strconv"
	"strings"

	"github.com/mattn/go-runewidth"

	"github.com/drstein77/furniturepredictor/internal/models"
)

const minColumnWidth = 3

// Ranking renders items as a markdown table with a rank column. Columns are
// padded by display width so wide product names stay aligned.
func Ranking(items []models.AggregatedItem) string {
	header := []string{"#", "Product", "Predicted sales"}
	rightAligned := []bool{true, false, true}

	rows := make([][]string, 0, len(items))
	for i, item := range items {
		rows = append(rows, []string{
			strconv.Itoa(i + 1),
			item.Name,
			strconv.FormatFloat(item.PredictedSales, 'f', 2, 64),
		})
	}

	return render(header, rows, rightAligned)
}

func render(header []string, rows [][]string, rightAligned []bool) string {
	widths := make([]int, len(header))
	for i := range header {
		widths[i] = max(minColumnWidth, runewidth.StringWidth(header[i]))
	}
	for _, row := range rows {
		for i, cell := range row {
			widths[i] = max(widths[i], runewidth.StringWidth(cell))
		}
	}

	separator := make([]string, len(header))
	for i, w := range widths {
		if rightAligned[i] {
			separator[i] = strings.Repeat("-", w-1) + ":"
		} else {
			separator[i] = strings.Repeat("-", w)
		}
	}

	var sb strings.Builder
	writeRow(&sb, header, widths, rightAligned)
	writeRow(&sb, separator, widths, rightAligned)
	for _, row := range rows {
		writeRow(&sb, row, widths, rightAligned)
	}
	return sb.String()
}

func writeRow(sb *strings.Builder, cells []string, widths []int, rightAligned []bool) {
	sb.WriteString("|")
	for i, cell := range cells {
		sb.WriteString(" ")
		if rightAligned[i] {
			sb.WriteString(runewidth.FillLeft(cell, widths[i]))
		} else {
			sb.WriteString(runewidth.FillRight(cell, widths[i]))
		}
		sb.WriteString(" |")
	}
	sb.WriteString("\n")
}
