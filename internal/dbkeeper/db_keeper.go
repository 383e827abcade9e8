package dbkeeper

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"go.uber.org/zap"

	"github.com/drstein77/furniturepredictor/internal/models"
	"github.com/drstein77/furniturepredictor/internal/storage"
)

//go:embed migrations/*.sql
var migrations embed.FS

const (
	connectAttempts = 3
	baseBackoff     = time.Second
)

var ErrEmptyDSN = errors.New("database dsn is empty")

type Log interface {
	Info(string, ...zap.Field)
	Error(string, ...zap.Field)
}

type DBKeeper struct {
	pool *pgxpool.Pool
	log  Log
}

// NewDBKeeper connects to the database, retrying with exponential backoff,
// and applies the embedded migrations.
func NewDBKeeper(ctx context.Context, dsn func() string, log Log) (*DBKeeper, error) {
	addr := dsn()
	if addr == "" {
		return nil, ErrEmptyDSN
	}

	config, err := pgxpool.ParseConfig(addr)
	if err != nil {
		return nil, fmt.Errorf("unable to parse database DSN: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("unable to create connection pool: %w", err)
	}

	if err := ping(ctx, pool, log); err != nil {
		pool.Close()
		return nil, err
	}

	if err := migrateUp(pool); err != nil {
		pool.Close()
		return nil, err
	}

	log.Info("Connected!")

	return &DBKeeper{
		pool: pool,
		log:  log,
	}, nil
}

func ping(ctx context.Context, pool *pgxpool.Pool, log Log) error {
	var err error
	for attempt := 0; attempt < connectAttempts; attempt++ {
		if err = pool.Ping(ctx); err == nil {
			return nil
		}
		if attempt == connectAttempts-1 {
			break
		}

		wait := baseBackoff << attempt
		log.Error("Database ping failed, retrying",
			zap.Int("attempt", attempt+1),
			zap.Duration("backoff", wait),
			zap.Error(err),
		)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}
	return fmt.Errorf("unable to connect to database after %d attempts: %w", connectAttempts, err)
}

func migrateUp(pool *pgxpool.Pool) error {
	source, err := iofs.New(migrations, "migrations")
	if err != nil {
		return fmt.Errorf("failed to open migrations: %w", err)
	}

	driver, err := postgres.WithInstance(stdlib.OpenDBFromPool(pool), &postgres.Config{})
	if err != nil {
		return fmt.Errorf("failed to create migration driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", source, "postgres", driver)
	if err != nil {
		return fmt.Errorf("failed to create migration instance: %w", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}
	return nil
}

// GetStock returns the stock of itemName, or 0 for unknown items.
func (kp *DBKeeper) GetStock(ctx context.Context, itemName string) (int, error) {
	var stock int
	err := kp.pool.QueryRow(ctx, `SELECT stock FROM inventory WHERE name = $1`, itemName).Scan(&stock)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read stock: %w", err)
	}
	return stock, nil
}

// SetStock upserts the stock of itemName.
func (kp *DBKeeper) SetStock(ctx context.Context, itemName string, quantity int) error {
	_, err := kp.pool.Exec(ctx, `
		INSERT INTO inventory (name, stock)
		VALUES ($1, $2)
		ON CONFLICT (name) DO UPDATE SET stock = EXCLUDED.stock
	`, itemName, quantity)
	if err != nil {
		return fmt.Errorf("failed to set stock: %w", err)
	}
	return nil
}

func (kp *DBKeeper) AppendStockEvent(ctx context.Context, event models.StockEvent) error {
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
	}

	_, err := kp.pool.Exec(ctx, `
		INSERT INTO stock_updates (item_name, quantity, action_type, created_at)
		VALUES ($1, $2, $3, $4)
	`, event.ItemName, event.Quantity, event.ActionType, event.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to append stock event: %w", err)
	}
	return nil
}

func (kp *DBKeeper) StockEvents(ctx context.Context, itemName string) ([]models.StockEvent, error) {
	rows, err := kp.pool.Query(ctx, `
		SELECT item_name, quantity, action_type, created_at
		FROM stock_updates
		WHERE item_name = $1
		ORDER BY created_at, id
	`, itemName)
	if err != nil {
		return nil, fmt.Errorf("failed to execute query: %w", err)
	}
	defer rows.Close()

	events := make([]models.StockEvent, 0)
	for rows.Next() {
		var e models.StockEvent
		if err := rows.Scan(&e.ItemName, &e.Quantity, &e.ActionType, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		events = append(events, e)
	}
	if rows.Err() != nil {
		return nil, fmt.Errorf("error during rows iteration: %w", rows.Err())
	}
	return events, nil
}

// SavePredictionBatch writes the batch and its ranked items in one transaction.
func (kp *DBKeeper) SavePredictionBatch(ctx context.Context, items []models.AggregatedItem) (id string, err error) {
	batchID := uuid.New()
	createdAt := time.Now().UTC()

	tx, err := kp.pool.Begin(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			if rollbackErr := tx.Rollback(ctx); rollbackErr != nil && !errors.Is(rollbackErr, pgx.ErrTxClosed) {
				kp.log.Error("Failed to rollback transaction", zap.Error(rollbackErr))
			}
		}
	}()

	batch := &pgx.Batch{}
	batch.Queue(`INSERT INTO prediction_batches (id, created_at) VALUES ($1, $2)`, batchID, createdAt)
	for i, item := range items {
		batch.Queue(`
			INSERT INTO prediction_items (batch_id, position, name, predicted_sales)
			VALUES ($1, $2, $3, $4)
		`, batchID, i, item.Name, item.PredictedSales)
	}

	br := tx.SendBatch(ctx, batch)
	for i := 0; i < batch.Len(); i++ {
		if _, execErr := br.Exec(); execErr != nil {
			br.Close()
			err = fmt.Errorf("failed to execute batch query: %w", execErr)
			return "", err
		}
	}
	if closeErr := br.Close(); closeErr != nil {
		err = fmt.Errorf("failed to close batch results: %w", closeErr)
		return "", err
	}

	if commitErr := tx.Commit(ctx); commitErr != nil {
		err = fmt.Errorf("failed to commit transaction: %w", commitErr)
		return "", err
	}

	kp.log.Info("Prediction batch saved", zap.String("id", batchID.String()), zap.Int("items", len(items)))
	return batchID.String(), nil
}

// LatestPredictionBatch returns the most recent batch or storage.ErrNotFound.
func (kp *DBKeeper) LatestPredictionBatch(ctx context.Context) (*models.PredictionBatch, error) {
	var (
		batchID uuid.UUID
		batch   models.PredictionBatch
	)
	err := kp.pool.QueryRow(ctx, `
		SELECT id, created_at
		FROM prediction_batches
		ORDER BY created_at DESC
		LIMIT 1
	`).Scan(&batchID, &batch.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read latest batch: %w", err)
	}
	batch.ID = batchID.String()

	rows, err := kp.pool.Query(ctx, `
		SELECT name, predicted_sales
		FROM prediction_items
		WHERE batch_id = $1
		ORDER BY position
	`, batchID)
	if err != nil {
		return nil, fmt.Errorf("failed to execute query: %w", err)
	}
	defer rows.Close()

	batch.Items = make([]models.AggregatedItem, 0)
	for rows.Next() {
		var item models.AggregatedItem
		if err := rows.Scan(&item.Name, &item.PredictedSales); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		batch.Items = append(batch.Items, item)
	}
	if rows.Err() != nil {
		return nil, fmt.Errorf("error during rows iteration: %w", rows.Err())
	}
	return &batch, nil
}

func (kp *DBKeeper) ListInventory(ctx context.Context) ([]models.InventoryItem, error) {
	rows, err := kp.pool.Query(ctx, `
		SELECT id, name, category, price, description, stock, material, dimensions, color, created_at
		FROM inventory
		ORDER BY id
	`)
	if err != nil {
		kp.log.Error("Failed to execute query", zap.Error(err))
		return nil, fmt.Errorf("failed to execute query: %w", err)
	}
	defer rows.Close()

	items := make([]models.InventoryItem, 0)
	for rows.Next() {
		var item models.InventoryItem
		err := rows.Scan(
			&item.ID,
			&item.Name,
			&item.Category,
			&item.Price,
			&item.Description,
			&item.Stock,
			&item.Material,
			&item.Dimensions,
			&item.Color,
			&item.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		items = append(items, item)
	}
	if rows.Err() != nil {
		return nil, fmt.Errorf("error during rows iteration: %w", rows.Err())
	}

	kp.log.Info("Inventory retrieved", zap.Int("count", len(items)))
	return items, nil
}

// SeedInventory inserts the items whose names are not stored yet and
// reports how many were added.
func (kp *DBKeeper) SeedInventory(ctx context.Context, items []models.InventoryItem) (added int, err error) {
	if len(items) == 0 {
		return 0, nil
	}

	tx, err := kp.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			if rollbackErr := tx.Rollback(ctx); rollbackErr != nil && !errors.Is(rollbackErr, pgx.ErrTxClosed) {
				kp.log.Error("Failed to rollback transaction", zap.Error(rollbackErr))
			}
		}
	}()

	stmt := `
		INSERT INTO inventory (name, category, price, description, stock, material, dimensions, color)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (name) DO NOTHING
	`
	batch := &pgx.Batch{}
	for _, item := range items {
		batch.Queue(stmt, item.Name, item.Category, item.Price, item.Description,
			item.Stock, item.Material, item.Dimensions, item.Color)
	}

	br := tx.SendBatch(ctx, batch)
	for range items {
		tag, execErr := br.Exec()
		if execErr != nil {
			br.Close()
			err = fmt.Errorf("failed to execute batch query: %w", execErr)
			return 0, err
		}
		added += int(tag.RowsAffected())
	}
	if closeErr := br.Close(); closeErr != nil {
		err = fmt.Errorf("failed to close batch results: %w", closeErr)
		return 0, err
	}

	if commitErr := tx.Commit(ctx); commitErr != nil {
		err = fmt.Errorf("failed to commit transaction: %w", commitErr)
		return 0, err
	}

	kp.log.Info("Inventory seeded", zap.Int("added", added))
	return added, nil
}

func (kp *DBKeeper) Ping(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := kp.pool.Ping(ctx); err != nil {
		kp.log.Error("Database ping failed", zap.Error(err))
		return false
	}

	return true
}

func (kp *DBKeeper) Close() bool {
	if kp.pool != nil {
		kp.pool.Close()
		kp.log.Info("Database connection pool closed")
		return true
	}
	kp.log.Info("Attempted to close a nil database connection pool")
	return false
}
