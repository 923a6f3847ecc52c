package httpx

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/gearbelt/rental-engine/internal/rental"
)

// StockHandler is the admin surface of the inventory ledger.
type StockHandler struct {
	Stock *rental.StockRepo
}

func (h *StockHandler) Register(r *chi.Mux) {
	r.Put("/admin/stock", h.setStock)
	r.Get("/admin/stock", h.getStock)
}

type setStockReq struct {
	StoreID   string `json:"store_id"`
	VariantID string `json:"variant_id"`
	Quantity  int    `json:"quantity"`
}

func (h *StockHandler) setStock(w http.ResponseWriter, r *http.Request) {
	var req setStockReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, fmt.Errorf("%w: invalid json", rental.ErrInvalidInput))
		return
	}
	if req.StoreID == "" || req.VariantID == "" {
		writeError(w, fmt.Errorf("%w: store_id and variant_id required", rental.ErrInvalidInput))
		return
	}
	entry, err := h.Stock.SetQuantity(r.Context(), req.StoreID, req.VariantID, req.Quantity)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

func (h *StockHandler) getStock(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	storeID, variantID := q.Get("store_id"), q.Get("variant_id")
	if storeID == "" || variantID == "" {
		writeError(w, fmt.Errorf("%w: store_id and variant_id required", rental.ErrInvalidInput))
		return
	}
	entry, err := h.Stock.Entry(r.Context(), storeID, variantID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entry)
}
