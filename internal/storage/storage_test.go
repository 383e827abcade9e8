package storage

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/drstein77/furniturepredictor/internal/models"
)

type nopLog struct{}

func (nopLog) Info(string, ...zap.Field) {}

func newTestStorage() *MemoryStorage {
	s := NewMemoryStorage(nopLog{})
	s.now = func() time.Time { return time.Date(2026, 1, 15, 10, 0, 0, 0, time.UTC) }
	return s
}

func TestStock(t *testing.T) {
	ctx := context.Background()
	s := newTestStorage()

	qty, err := s.GetStock(ctx, "Sofa")
	require.NoError(t, err)
	assert.Zero(t, qty)

	require.NoError(t, s.SetStock(ctx, "Sofa", 12))
	require.NoError(t, s.SetStock(ctx, "Sofa", 9))

	qty, err = s.GetStock(ctx, "Sofa")
	require.NoError(t, err)
	assert.Equal(t, 9, qty)

	items, err := s.ListInventory(ctx)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, int64(1), items[0].ID)
}

func TestStockEvents(t *testing.T) {
	ctx := context.Background()
	s := newTestStorage()

	require.NoError(t, s.AppendStockEvent(ctx, models.StockEvent{ItemName: "Bed", Quantity: 3, ActionType: "restock"}))
	require.NoError(t, s.AppendStockEvent(ctx, models.StockEvent{ItemName: "Sofa", Quantity: 1, ActionType: "sale"}))

	events, err := s.StockEvents(ctx, "Bed")
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "restock", events[0].ActionType)
	assert.Equal(t, s.now(), events[0].CreatedAt)
}

func TestPredictionBatches(t *testing.T) {
	ctx := context.Background()
	s := newTestStorage()

	_, err := s.LatestPredictionBatch(ctx)
	assert.ErrorIs(t, err, ErrNotFound)

	items := []models.AggregatedItem{{Name: "Sofa", PredictedSales: 80}}
	first, err := s.SavePredictionBatch(ctx, items)
	require.NoError(t, err)
	second, err := s.SavePredictionBatch(ctx, []models.AggregatedItem{{Name: "Bed", PredictedSales: 10}})
	require.NoError(t, err)
	assert.NotEqual(t, first, second)

	items[0].Name = "mutated"

	latest, err := s.LatestPredictionBatch(ctx)
	require.NoError(t, err)
	assert.Equal(t, second, latest.ID)
	assert.Equal(t, "Bed", latest.Items[0].Name)
	assert.Equal(t, "Sofa", s.batches[0].Items[0].Name)
}

func TestSeedInventory(t *testing.T) {
	ctx := context.Background()
	s := newTestStorage()
	require.NoError(t, s.SetStock(ctx, "Sofa", 2))

	added, err := s.SeedInventory(ctx, models.DefaultInventory())
	require.NoError(t, err)
	assert.Equal(t, 3, added)

	qty, err := s.GetStock(ctx, "Sofa")
	require.NoError(t, err)
	assert.Equal(t, 2, qty)

	items, err := s.ListInventory(ctx)
	require.NoError(t, err)
	assert.Len(t, items, 4)
}

func TestConcurrentAccess(t *testing.T) {
	ctx := context.Background()
	s := newTestStorage()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			name := fmt.Sprintf("item-%d", i%5)
			_ = s.SetStock(ctx, name, i)
			_, _ = s.GetStock(ctx, name)
			_, _ = s.SavePredictionBatch(ctx, []models.AggregatedItem{{Name: name, PredictedSales: float64(i)}})
		}(i)
	}
	wg.Wait()

	items, err := s.ListInventory(ctx)
	require.NoError(t, err)
	assert.Len(t, items, 5)
	assert.Len(t, s.batches, 20)
}
