package report

import (
	"strings"
	"testing"

	"github.com/mattn/go-runewidth"
	"github.com/stretchr/testify/assert"

	"github.com/drstein77/furniturepredictor/internal/models"
)

func TestRanking(t *testing.T) {
	got := Ranking([]models.AggregatedItem{
		{Name: "Sofa", PredictedSales: 80},
		{Name: "Office Chair", PredictedSales: 50.5},
	})

	want := "" +
		"|   # | Product      | Predicted sales |\n" +
		"| --: | ------------ | --------------: |\n" +
		"|   1 | Sofa         |           80.00 |\n" +
		"|   2 | Office Chair |           50.50 |\n"
	assert.Equal(t, want, got)
}

func TestRanking_WideNames(t *testing.T) {
	got := Ranking([]models.AggregatedItem{
		{Name: "沙发", PredictedSales: 12},
		{Name: "Bed", PredictedSales: 3.456},
	})

	lines := strings.Split(strings.TrimSuffix(got, "\n"), "\n")
	for _, line := range lines[1:] {
		assert.Equal(t, runewidth.StringWidth(lines[0]), runewidth.StringWidth(line), line)
	}
	assert.Contains(t, got, "3.46")
}

func TestRanking_Empty(t *testing.T) {
	got := Ranking(nil)
	assert.Equal(t, 2, strings.Count(got, "\n"))
}
