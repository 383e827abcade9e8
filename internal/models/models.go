package models

import "time"

// AggregatedItem is the mean predicted sales of one product.
type AggregatedItem struct {
	Name           string  `json:"name"`
	PredictedSales float64 `json:"predicted_sales"`
}

// PredictionBatch is one saved set of ranked predictions.
type PredictionBatch struct {
	ID        string           `json:"id"`
	Items     []AggregatedItem `json:"items"`
	CreatedAt time.Time        `json:"timestamp"`
}

// StockEvent records a change to an item's stock.
type StockEvent struct {
	ItemName   string    `json:"item_name"`
	Quantity   int       `json:"quantity"`
	ActionType string    `json:"action_type"`
	CreatedAt  time.Time `json:"timestamp"`
}

// InventoryItem is a furniture product held in stock.
type InventoryItem struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Category    string    `json:"category"`
	Price       float64   `json:"price"`
	Description string    `json:"description"`
	Stock       int       `json:"stock"`
	Material    string    `json:"material"`
	Dimensions  string    `json:"dimensions"`
	Color       string    `json:"color"`
	CreatedAt   time.Time `json:"created_at"`
}

type PredictResponse struct {
	Message      string           `json:"message"`
	Items        []AggregatedItem `json:"items"`
	PredictionID string           `json:"prediction_id,omitempty"`
	Persisted    bool             `json:"persisted"`
	PersistError string           `json:"persist_error,omitempty"`
}

type StockUpdateRequest struct {
	ItemName   string `json:"item_name"`
	Quantity   *int   `json:"quantity"`
	ActionType string `json:"action_type"`
}

type StockResponse struct {
	ItemName string `json:"item_name"`
	Quantity int    `json:"quantity"`
}

type HealthResponse struct {
	Status     string `json:"status"`
	ModelReady bool   `json:"model_ready"`
	Storage    string `json:"storage"`
}

// CodeFileTooLarge is the error code of uploads over the size limit.
const CodeFileTooLarge = "file_too_large"

type ErrorResponse struct {
	Error   string   `json:"error"`
	Code    string   `json:"code"`
	Missing []string `json:"missing,omitempty"`
}

// DefaultInventory returns the catalogue used to seed an empty store.
func DefaultInventory() []InventoryItem {
	return []InventoryItem{
		{
			Name:        "Office Chair",
			Category:    "Chairs",
			Price:       199.99,
			Description: "Ergonomic office chair with lumbar support",
			Stock:       50,
			Material:    "Mesh and Metal",
			Dimensions:  "26W x 26D x 38H inches",
			Color:       "Black",
		},
		{
			Name:        "Executive Desk",
			Category:    "Tables",
			Price:       399.99,
			Description: "Large executive desk with drawers",
			Stock:       30,
			Material:    "Oak Wood",
			Dimensions:  "60W x 30D x 30H inches",
			Color:       "Brown",
		},
		{
			Name:        "Bookshelf",
			Category:    "Storage",
			Price:       149.99,
			Description: "5-tier bookshelf with adjustable shelves",
			Stock:       40,
			Material:    "Engineered Wood",
			Dimensions:  "32W x 12D x 72H inches",
			Color:       "Walnut",
		},
		{
			Name:        "Sofa",
			Category:    "Seating",
			Price:       699.99,
			Description: "3-seater comfortable sofa",
			Stock:       25,
			Material:    "Fabric",
			Dimensions:  "84W x 36D x 38H inches",
			Color:       "Gray",
		},
	}
}
