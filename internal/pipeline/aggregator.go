package pipeline

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/drstein77/furniturepredictor/internal/models"
)

// Model is a trained regression function. Predict receives a table holding
// exactly the normalized feature columns and must return one prediction per
// row, in row order. Implementations must be safe for concurrent use.
type Model interface {
	Predict(ctx context.Context, features Dataset) ([]float64, error)
}

// Aggregate runs the model once over ds, averages the predictions per
// product and returns the products ranked by predicted sales, highest first.
// Means are rounded half away from zero to two decimals. Products with equal
// means keep the order in which they first appeared in ds.
func Aggregate(ctx context.Context, ds Dataset, productField string, model Model) ([]models.AggregatedItem, error) {
	if model == nil {
		return nil, ErrModelUnavailable
	}

	products := ds.Column(productField)
	if products == nil {
		return nil, &MissingColumnsError{Missing: []string{productField}}
	}

	predictions, err := model.Predict(ctx, ds)
	if err != nil {
		return nil, fmt.Errorf("model inference failed: %w", err)
	}
	if len(predictions) != len(products) {
		return nil, fmt.Errorf("%w: got %d predictions for %d rows", ErrPredictionMismatch, len(predictions), len(products))
	}

	rows := make([]PredictionRow, len(products))
	for i, p := range predictions {
		if math.IsNaN(p) || math.IsInf(p, 0) {
			return nil, fmt.Errorf("%w: non-finite prediction at row %d", ErrPredictionMismatch, i+1)
		}
		rows[i] = PredictionRow{Product: products[i], PredictedSales: p}
	}

	return rank(rows), nil
}

type group struct {
	name  string
	sum   float64
	count int
}

func rank(rows []PredictionRow) []models.AggregatedItem {
	index := make(map[string]int)
	var groups []*group

	for _, r := range rows {
		i, ok := index[r.Product]
		if !ok {
			i = len(groups)
			index[r.Product] = i
			groups = append(groups, &group{name: r.Product})
		}
		groups[i].sum += r.PredictedSales
		groups[i].count++
	}

	items := make([]models.AggregatedItem, 0, len(groups))
	for _, g := range groups {
		items = append(items, models.AggregatedItem{
			Name:           g.name,
			PredictedSales: round2(g.sum / float64(g.count)),
		})
	}

	sort.SliceStable(items, func(i, j int) bool {
		return items[i].PredictedSales > items[j].PredictedSales
	})

	return items
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
