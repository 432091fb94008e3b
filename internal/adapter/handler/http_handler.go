package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/rl1809/inventory-ledger/internal/core/domain"
	"github.com/rl1809/inventory-ledger/internal/core/service"
)

// Pinger checks connectivity to a backing store.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HTTPHandler decodes transport requests into engine types and encodes
// outcomes back. Field-shape validation lives here; business rules stay in
// the services.
type HTTPHandler struct {
	apply  *service.ApplyService
	stock  *service.StockService
	db     Pinger
	cache  Pinger
	logger *slog.Logger
}

func NewHTTPHandler(apply *service.ApplyService, stock *service.StockService, db, cache Pinger, logger *slog.Logger) *HTTPHandler {
	return &HTTPHandler{apply: apply, stock: stock, db: db, cache: cache, logger: logger}
}

// Register mounts all routes on the mux.
func (h *HTTPHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /events/stock-adjusted", h.StockAdjusted)
	mux.HandleFunc("GET /stock/{sku}", h.GetStock)
	mux.HandleFunc("GET /health", h.HealthCheck)
}

type stockAdjustedRequest struct {
	EventID    string `json:"eventId"`
	StoreID    string `json:"storeId"`
	SKU        string `json:"sku"`
	Delta      *int   `json:"delta"`
	Version    int    `json:"version"`
	OccurredAt string `json:"occurredAt,omitempty"`
}

type stockAdjustedResponse struct {
	Applied         bool   `json:"applied"`
	Status          string `json:"status"`
	CurrentVersion  int    `json:"currentVersion"`
	CurrentQuantity int    `json:"currentQuantity"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (h *HTTPHandler) StockAdjusted(w http.ResponseWriter, r *http.Request) {
	var req stockAdjustedRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	ev, errMsg := req.toEvent()
	if errMsg != "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: errMsg})
		return
	}

	out, err := h.apply.Apply(r.Context(), ev)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrNegativeQuantity):
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		case errors.Is(err, service.ErrTooManyConflicts):
			writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: "transient conflict, retry the request"})
		default:
			h.logger.Error("apply failed", "eventId", ev.EventID, "error", err)
			writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
		}
		return
	}

	status := http.StatusOK
	if out.Applied {
		status = http.StatusAccepted
	}
	writeJSON(w, status, stockAdjustedResponse{
		Applied:         out.Applied,
		Status:          string(out.Status),
		CurrentVersion:  out.CurrentVersion,
		CurrentQuantity: out.CurrentQuantity,
	})
}

func (req stockAdjustedRequest) toEvent() (domain.StockAdjustmentEvent, string) {
	switch {
	case req.EventID == "":
		return domain.StockAdjustmentEvent{}, "eventId is required"
	case req.StoreID == "":
		return domain.StockAdjustmentEvent{}, "storeId is required"
	case req.SKU == "":
		return domain.StockAdjustmentEvent{}, "sku is required"
	case req.Delta == nil:
		return domain.StockAdjustmentEvent{}, "delta is required"
	case req.Version < 1:
		return domain.StockAdjustmentEvent{}, "version must be >= 1"
	}

	ev := domain.StockAdjustmentEvent{
		EventID: req.EventID,
		StoreID: req.StoreID,
		SKU:     req.SKU,
		Delta:   *req.Delta,
		Version: req.Version,
	}
	if req.OccurredAt != "" {
		t, err := time.Parse(time.RFC3339, req.OccurredAt)
		if err != nil {
			return domain.StockAdjustmentEvent{}, "occurredAt must be RFC 3339"
		}
		ev.OccurredAt = &t
	}
	return ev, ""
}

func (h *HTTPHandler) GetStock(w http.ResponseWriter, r *http.Request) {
	sku := r.PathValue("sku")
	storeID := r.URL.Query().Get("storeId")
	includeStores := r.URL.Query().Get("includeStores") == "true"

	view, err := h.stock.GetStock(r.Context(), sku, storeID, includeStores)
	if err != nil {
		if errors.Is(err, service.ErrStockNotFound) {
			writeJSON(w, http.StatusNotFound, errorResponse{Error: err.Error()})
			return
		}
		h.logger.Error("stock query failed", "sku", sku, "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
		return
	}

	writeJSON(w, http.StatusOK, view)
}

func (h *HTTPHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	resp := map[string]string{"status": "ok", "mysql": "ok", "redis": "ok"}
	status := http.StatusOK

	if err := h.db.Ping(r.Context()); err != nil {
		// the ledger store is required; without it nothing can be served
		resp["status"] = "unavailable"
		resp["mysql"] = err.Error()
		status = http.StatusServiceUnavailable
	}
	if h.cache != nil {
		if err := h.cache.Ping(r.Context()); err != nil {
			resp["redis"] = err.Error()
		}
	}

	writeJSON(w, status, resp)
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
