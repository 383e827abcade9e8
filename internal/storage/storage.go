package storage

import (
	"context"
	"errors"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/drstein77/furniturepredictor/internal/models"
)

// ErrNotFound indicates the requested record does not exist.
var ErrNotFound = errors.New("not found")

type Log interface {
	Info(string, ...zap.Field)
}

// MemoryStorage keeps inventory, stock events and prediction history in
// process memory. It is used when no database is configured and in tests.
type MemoryStorage struct {
	mx sync.RWMutex

	inventory map[string]*models.InventoryItem
	order     []string
	events    []models.StockEvent
	batches   []models.PredictionBatch
	nextID    int64

	now func() time.Time
	log Log
}

// NewMemoryStorage creates an empty MemoryStorage.
func NewMemoryStorage(log Log) *MemoryStorage {
	return &MemoryStorage{
		inventory: make(map[string]*models.InventoryItem),
		now:       time.Now,
		log:       log,
	}
}

// GetStock returns the stock of itemName, or 0 for unknown items.
func (s *MemoryStorage) GetStock(_ context.Context, itemName string) (int, error) {
	s.mx.RLock()
	defer s.mx.RUnlock()

	if item, ok := s.inventory[itemName]; ok {
		return item.Stock, nil
	}
	return 0, nil
}

// SetStock sets the stock of itemName, creating the item when needed.
func (s *MemoryStorage) SetStock(_ context.Context, itemName string, quantity int) error {
	s.mx.Lock()
	defer s.mx.Unlock()

	if item, ok := s.inventory[itemName]; ok {
		item.Stock = quantity
		return nil
	}
	s.insert(models.InventoryItem{Name: itemName, Stock: quantity})
	return nil
}

// AppendStockEvent records a stock change. A zero timestamp is set to now.
func (s *MemoryStorage) AppendStockEvent(_ context.Context, event models.StockEvent) error {
	s.mx.Lock()
	defer s.mx.Unlock()

	if event.CreatedAt.IsZero() {
		event.CreatedAt = s.now().UTC()
	}
	s.events = append(s.events, event)
	return nil
}

// StockEvents returns the recorded events of itemName, oldest first.
func (s *MemoryStorage) StockEvents(_ context.Context, itemName string) ([]models.StockEvent, error) {
	s.mx.RLock()
	defer s.mx.RUnlock()

	out := make([]models.StockEvent, 0)
	for _, e := range s.events {
		if e.ItemName == itemName {
			out = append(out, e)
		}
	}
	return out, nil
}

// SavePredictionBatch stores a ranked prediction list and returns its ID.
func (s *MemoryStorage) SavePredictionBatch(_ context.Context, items []models.AggregatedItem) (string, error) {
	s.mx.Lock()
	defer s.mx.Unlock()

	batch := models.PredictionBatch{
		ID:        uuid.NewString(),
		Items:     slices.Clone(items),
		CreatedAt: s.now().UTC(),
	}
	s.batches = append(s.batches, batch)

	s.log.Info("Prediction batch saved", zap.String("id", batch.ID), zap.Int("items", len(items)))
	return batch.ID, nil
}

// LatestPredictionBatch returns the most recently saved batch.
func (s *MemoryStorage) LatestPredictionBatch(_ context.Context) (*models.PredictionBatch, error) {
	s.mx.RLock()
	defer s.mx.RUnlock()

	if len(s.batches) == 0 {
		return nil, ErrNotFound
	}
	latest := s.batches[len(s.batches)-1]
	latest.Items = slices.Clone(latest.Items)
	return &latest, nil
}

// ListInventory returns all items in insertion order.
func (s *MemoryStorage) ListInventory(_ context.Context) ([]models.InventoryItem, error) {
	s.mx.RLock()
	defer s.mx.RUnlock()

	out := make([]models.InventoryItem, 0, len(s.order))
	for _, name := range s.order {
		out = append(out, *s.inventory[name])
	}
	return out, nil
}

// SeedInventory adds the items whose names are not stored yet and reports
// how many were added.
func (s *MemoryStorage) SeedInventory(_ context.Context, items []models.InventoryItem) (int, error) {
	s.mx.Lock()
	defer s.mx.Unlock()

	added := 0
	for _, item := range items {
		if _, ok := s.inventory[item.Name]; ok {
			continue
		}
		s.insert(item)
		added++
	}
	return added, nil
}

func (s *MemoryStorage) Ping(context.Context) bool {
	return true
}

func (s *MemoryStorage) Close() bool {
	return true
}

// insert must be called with the write lock held.
func (s *MemoryStorage) insert(item models.InventoryItem) {
	s.nextID++
	item.ID = s.nextID
	if item.CreatedAt.IsZero() {
		item.CreatedAt = s.now().UTC()
	}
	s.inventory[item.Name] = &item
	s.order = append(s.order, item.Name)
}
