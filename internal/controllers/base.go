package controllers

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi"
	chimw "github.com/go-chi/chi/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/drstein77/furniturepredictor/internal/compress"
	"github.com/drstein77/furniturepredictor/internal/middleware"
	"github.com/drstein77/furniturepredictor/internal/models"
	"github.com/drstein77/furniturepredictor/internal/pipeline"
	"github.com/drstein77/furniturepredictor/internal/storage"
)

const (
	codeNotFound          = "not_found"
	codePersistenceFailed = "persistence_failed"

	defaultUploadName = "upload.csv"
	defaultActionType = "update"
)

// Predictor runs the prediction pipeline on an uploaded dataset.
type Predictor interface {
	Run(context.Context, pipeline.Dataset) (*pipeline.Result, error)
	Ready() bool
}

// Storage interface for stock and prediction history
type Storage interface {
	GetStock(ctx context.Context, itemName string) (int, error)
	SetStock(ctx context.Context, itemName string, quantity int) error
	AppendStockEvent(ctx context.Context, event models.StockEvent) error
	StockEvents(ctx context.Context, itemName string) ([]models.StockEvent, error)
	SavePredictionBatch(ctx context.Context, items []models.AggregatedItem) (string, error)
	LatestPredictionBatch(ctx context.Context) (*models.PredictionBatch, error)
	ListInventory(ctx context.Context) ([]models.InventoryItem, error)
	Ping(ctx context.Context) bool
}

// Log interface for logging
type Log interface {
	Info(string, ...zap.Field)
	Error(string, ...zap.Field)
}

// BaseController struct for handling requests
type BaseController struct {
	predictor      Predictor
	storage        Storage
	log            Log
	maxUploadBytes int64
	corsOrigins    []string
}

// NewBaseController creates a new BaseController instance
func NewBaseController(predictor Predictor, storage Storage, log Log, maxUploadBytes int64, corsOrigins []string) *BaseController {
	return &BaseController{
		predictor:      predictor,
		storage:        storage,
		log:            log,
		maxUploadBytes: maxUploadBytes,
		corsOrigins:    corsOrigins,
	}
}

// Route sets up the routes for the BaseController
func (h *BaseController) Route() *chi.Mux {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(middleware.RequestLogger(h.log))
	r.Use(chimw.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: h.corsOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Accept-Encoding", "Content-Type", "Content-Encoding"},
		ExposedHeaders: []string{"Content-Disposition", "Content-Encoding"},
		MaxAge:         300,
	}))

	r.Get("/health", h.health)

	r.Group(func(r chi.Router) {
		r.Use(middleware.LimitBody(h.maxUploadBytes))
		r.Use(middleware.ArchiveTypeMiddleware)
		r.Post("/api/v0/upload", h.upload)
		r.Get("/api/v0/predictions/latest/export", h.exportLatest)
	})

	r.Get("/api/v0/predictions/latest", h.latest)
	r.Get("/api/v0/inventory", h.inventory)
	r.Get("/api/v0/stock/current", h.currentStock)
	r.Get("/api/v0/stock/history", h.stockHistory)
	r.Post("/api/v0/stock/update", h.updateStock)

	return r
}

func (h *BaseController) health(w http.ResponseWriter, r *http.Request) {
	resp := models.HealthResponse{
		Status:     "ok",
		ModelReady: h.predictor.Ready(),
		Storage:    "ok",
	}
	status := http.StatusOK
	if !h.storage.Ping(r.Context()) {
		resp.Status = "degraded"
		resp.Storage = "unavailable"
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, resp)
}

func (h *BaseController) upload(w http.ResponseWriter, r *http.Request) {
	name, data, err := h.readUpload(w, r)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeJSON(w, http.StatusRequestEntityTooLarge, models.ErrorResponse{
				Error: fmt.Sprintf("file exceeds the %d byte limit", tooLarge.Limit),
				Code:  models.CodeFileTooLarge,
			})
			return
		}
		h.writePipelineError(w, err)
		return
	}

	ds, err := pipeline.Read(name, bytes.NewReader(data))
	if err != nil {
		h.writePipelineError(w, err)
		return
	}

	result, err := h.predictor.Run(r.Context(), ds)
	if err != nil {
		h.writePipelineError(w, err)
		return
	}

	resp := models.PredictResponse{
		Message: "Prediction completed",
		Items:   result.Items,
	}
	id, err := h.storage.SavePredictionBatch(r.Context(), result.Items)
	if err != nil {
		h.log.Error("Failed to save prediction batch", zap.Error(err))
		resp.PersistError = err.Error()
	} else {
		resp.PredictionID = id
		resp.Persisted = true
	}

	h.log.Info("Prediction served",
		zap.String("file", name),
		zap.Int("rows_read", result.RowsRead),
		zap.Int("rows_valid", result.RowsValid),
		zap.Int("rows_matched", result.RowsMatched),
		zap.Int("items", len(result.Items)),
	)
	writeJSON(w, http.StatusOK, resp)
}

// readUpload returns the uploaded file name and content. Multipart uploads
// use the "file" part; anything else is read from the body as is.
func (h *BaseController) readUpload(w http.ResponseWriter, r *http.Request) (string, []byte, error) {
	name := defaultUploadName
	if named, ok := r.Body.(interface{ Name() string }); ok {
		name = named.Name()
	}
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType != "multipart/form-data" {
		data, err := io.ReadAll(r.Body)
		if err != nil {
			return "", nil, fmt.Errorf("failed to read request body: %w", err)
		}
		return name, data, nil
	}

	if err := r.ParseMultipartForm(h.maxUploadBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return "", nil, err
		}
		return "", nil, fmt.Errorf("%w: malformed multipart form: %v", pipeline.ErrInvalidInput, err)
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		return "", nil, fmt.Errorf("%w: no file part in the request", pipeline.ErrInvalidInput)
	}

	name, rc, err := compress.Unwrap(header.Filename, file)
	if err != nil {
		return "", nil, fmt.Errorf("%w: %v", pipeline.ErrInvalidInput, err)
	}
	defer rc.Close()

	// The limit also holds for what an archive inflates to.
	data, err := io.ReadAll(io.LimitReader(rc, h.maxUploadBytes+1))
	if err != nil {
		return "", nil, fmt.Errorf("%w: failed to read uploaded file: %v", pipeline.ErrInvalidInput, err)
	}
	if int64(len(data)) > h.maxUploadBytes {
		return "", nil, &http.MaxBytesError{Limit: h.maxUploadBytes}
	}
	return name, data, nil
}

func (h *BaseController) latest(w http.ResponseWriter, r *http.Request) {
	batch, ok := h.latestBatch(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, batch)
}

func (h *BaseController) exportLatest(w http.ResponseWriter, r *http.Request) {
	batch, ok := h.latestBatch(w, r)
	if !ok {
		return
	}

	var buf bytes.Buffer
	cw := csv.NewWriter(&buf)
	_ = cw.Write([]string{"name", "predicted_sales"})
	for _, item := range batch.Items {
		_ = cw.Write([]string{item.Name, strconv.FormatFloat(item.PredictedSales, 'f', 2, 64)})
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		h.writeInternalError(w, "Failed to encode export", err)
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="predictions-%s.csv"`, batch.ID))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

func (h *BaseController) latestBatch(w http.ResponseWriter, r *http.Request) (*models.PredictionBatch, bool) {
	batch, err := h.storage.LatestPredictionBatch(r.Context())
	if errors.Is(err, storage.ErrNotFound) {
		writeJSON(w, http.StatusNotFound, models.ErrorResponse{Error: "no predictions saved yet", Code: codeNotFound})
		return nil, false
	}
	if err != nil {
		h.writeStorageError(w, "Failed to read latest prediction batch", err)
		return nil, false
	}
	return batch, true
}

func (h *BaseController) inventory(w http.ResponseWriter, r *http.Request) {
	items, err := h.storage.ListInventory(r.Context())
	if err != nil {
		h.writeStorageError(w, "Failed to list inventory", err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func (h *BaseController) currentStock(w http.ResponseWriter, r *http.Request) {
	itemName := strings.TrimSpace(r.URL.Query().Get("item_name"))
	if itemName == "" {
		h.writePipelineError(w, fmt.Errorf("%w: item_name is required", pipeline.ErrInvalidInput))
		return
	}

	qty, err := h.storage.GetStock(r.Context(), itemName)
	if err != nil {
		h.writeStorageError(w, "Failed to read stock", err)
		return
	}
	writeJSON(w, http.StatusOK, models.StockResponse{ItemName: itemName, Quantity: qty})
}

func (h *BaseController) stockHistory(w http.ResponseWriter, r *http.Request) {
	itemName := strings.TrimSpace(r.URL.Query().Get("item_name"))
	if itemName == "" {
		h.writePipelineError(w, fmt.Errorf("%w: item_name is required", pipeline.ErrInvalidInput))
		return
	}

	events, err := h.storage.StockEvents(r.Context(), itemName)
	if err != nil {
		h.writeStorageError(w, "Failed to read stock history", err)
		return
	}
	writeJSON(w, http.StatusOK, events)
}

func (h *BaseController) updateStock(w http.ResponseWriter, r *http.Request) {
	var req models.StockUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writePipelineError(w, fmt.Errorf("%w: malformed JSON body: %v", pipeline.ErrInvalidInput, err))
		return
	}
	defer r.Body.Close()

	req.ItemName = strings.TrimSpace(req.ItemName)
	switch {
	case req.ItemName == "":
		h.writePipelineError(w, fmt.Errorf("%w: item_name is required", pipeline.ErrInvalidInput))
		return
	case req.Quantity == nil:
		h.writePipelineError(w, fmt.Errorf("%w: quantity is required", pipeline.ErrInvalidInput))
		return
	case *req.Quantity < 0:
		h.writePipelineError(w, fmt.Errorf("%w: quantity must not be negative", pipeline.ErrInvalidInput))
		return
	}
	if req.ActionType == "" {
		req.ActionType = defaultActionType
	}

	if err := h.storage.SetStock(r.Context(), req.ItemName, *req.Quantity); err != nil {
		h.writeStorageError(w, "Failed to update stock", err)
		return
	}
	event := models.StockEvent{ItemName: req.ItemName, Quantity: *req.Quantity, ActionType: req.ActionType}
	if err := h.storage.AppendStockEvent(r.Context(), event); err != nil {
		h.writeStorageError(w, "Failed to record stock event", err)
		return
	}

	h.log.Info("Stock updated", zap.String("item", req.ItemName), zap.Int("quantity", *req.Quantity))
	writeJSON(w, http.StatusOK, models.StockResponse{ItemName: req.ItemName, Quantity: *req.Quantity})
}

// writePipelineError answers with the status and code of the error's kind.
func (h *BaseController) writePipelineError(w http.ResponseWriter, err error) {
	kind := pipeline.KindOf(err)
	if kind == pipeline.KindInternal {
		h.writeInternalError(w, "Request failed", err)
		return
	}
	if kind == pipeline.KindPredictionFailed {
		h.log.Error("Prediction failed", zap.Error(err))
	}

	resp := models.ErrorResponse{Error: err.Error(), Code: kind.String()}
	var missing *pipeline.MissingColumnsError
	if errors.As(err, &missing) {
		resp.Missing = missing.Missing
	}
	writeJSON(w, statusOf(kind), resp)
}

func (h *BaseController) writeStorageError(w http.ResponseWriter, msg string, err error) {
	h.log.Error(msg, zap.Error(err))
	writeJSON(w, http.StatusInternalServerError, models.ErrorResponse{Error: msg, Code: codePersistenceFailed})
}

func (h *BaseController) writeInternalError(w http.ResponseWriter, msg string, err error) {
	h.log.Error(msg, zap.Error(err))
	writeJSON(w, http.StatusInternalServerError, models.ErrorResponse{Error: "internal error", Code: pipeline.KindInternal.String()})
}

func statusOf(kind pipeline.Kind) int {
	switch kind {
	case pipeline.KindMissingColumns, pipeline.KindIncompleteRows, pipeline.KindInvalidInput:
		return http.StatusBadRequest
	case pipeline.KindEmptyDomain:
		return http.StatusUnprocessableEntity
	case pipeline.KindModelUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
