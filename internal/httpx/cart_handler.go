package httpx

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/gearbelt/rental-engine/internal/availability"
	"github.com/gearbelt/rental-engine/internal/rental"
)

type CartHandler struct {
	Carts          *rental.CartRepo
	Avail          *availability.Service
	DefaultStoreID string
}

func (h *CartHandler) Register(r *chi.Mux) {
	r.Get("/cart", h.getCart)
	r.Post("/cart/items", h.addItem)
	r.Delete("/cart/items/{id}", h.removeItem)
	r.Put("/cart/address", h.setAddress)
	r.Put("/cart/voucher", h.setVoucher)
}

type addItemReq struct {
	ProfileID string    `json:"profile_id"`
	StoreID   string    `json:"store_id"`
	VariantID string    `json:"variant_id"`
	Quantity  int       `json:"quantity"`
	StartsAt  time.Time `json:"starts_at"`
	EndsAt    time.Time `json:"ends_at"`
}

// addItem runs the advisory availability check before inserting the line.
// The check is not binding — cart lines reserve nothing for anyone else —
// and checkout re-validates under locks.
func (h *CartHandler) addItem(w http.ResponseWriter, r *http.Request) {
	var req addItemReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, fmt.Errorf("%w: invalid json", rental.ErrInvalidInput))
		return
	}
	if req.StoreID == "" {
		req.StoreID = h.DefaultStoreID
	}
	if req.ProfileID == "" || req.StoreID == "" || req.VariantID == "" {
		writeError(w, fmt.Errorf("%w: profile_id, store_id and variant_id required", rental.ErrInvalidInput))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	window, err := rental.NewWindow(&req.StartsAt, &req.EndsAt)
	if err != nil {
		writeError(w, err)
		return
	}
	avail, err := h.Avail.AvailableQuantity(ctx, req.StoreID, req.VariantID, window)
	if err != nil {
		writeError(w, err)
		return
	}
	if avail < req.Quantity {
		writeError(w, &rental.OutOfStockError{
			VariantID: req.VariantID, Requested: req.Quantity, Available: avail,
		})
		return
	}

	cart, err := h.Carts.GetOrCreateByProfile(ctx, req.ProfileID)
	if err != nil {
		writeError(w, err)
		return
	}
	item, err := h.Carts.AddItem(ctx, cart.ID, req.StoreID, req.VariantID, req.Quantity, req.StartsAt, req.EndsAt)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, item)
}

func (h *CartHandler) getCart(w http.ResponseWriter, r *http.Request) {
	profileID := r.URL.Query().Get("profile_id")
	if profileID == "" {
		writeError(w, fmt.Errorf("%w: profile_id required", rental.ErrInvalidInput))
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	cart, err := h.Carts.GetOrCreateByProfile(ctx, profileID)
	if err != nil {
		writeError(w, err)
		return
	}
	items, err := h.Carts.Items(ctx, cart.ID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"cart": cart, "items": items})
}

func (h *CartHandler) removeItem(w http.ResponseWriter, r *http.Request) {
	itemID := chi.URLParam(r, "id")
	profileID := r.URL.Query().Get("profile_id")
	if itemID == "" || profileID == "" {
		writeError(w, fmt.Errorf("%w: item id and profile_id required", rental.ErrInvalidInput))
		return
	}
	if err := h.Carts.RemoveItem(r.Context(), profileID, itemID); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type setAddressReq struct {
	ProfileID string `json:"profile_id"`
	rental.Address
}

func (h *CartHandler) setAddress(w http.ResponseWriter, r *http.Request) {
	var req setAddressReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, fmt.Errorf("%w: invalid json", rental.ErrInvalidInput))
		return
	}
	if req.ProfileID == "" {
		writeError(w, fmt.Errorf("%w: profile_id required", rental.ErrInvalidInput))
		return
	}
	cart, err := h.Carts.GetOrCreateByProfile(r.Context(), req.ProfileID)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := h.Carts.SetAddress(r.Context(), cart.ID, req.Address); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type setVoucherReq struct {
	ProfileID string `json:"profile_id"`
	Code      string `json:"code"`
}

func (h *CartHandler) setVoucher(w http.ResponseWriter, r *http.Request) {
	var req setVoucherReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, fmt.Errorf("%w: invalid json", rental.ErrInvalidInput))
		return
	}
	if req.ProfileID == "" || req.Code == "" {
		writeError(w, fmt.Errorf("%w: profile_id and code required", rental.ErrInvalidInput))
		return
	}
	cart, err := h.Carts.GetOrCreateByProfile(r.Context(), req.ProfileID)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := h.Carts.SetVoucher(r.Context(), cart.ID, req.Code); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
