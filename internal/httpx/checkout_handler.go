package httpx

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/gearbelt/rental-engine/internal/checkout"
	"github.com/gearbelt/rental-engine/internal/rental"
)

type CheckoutHandler struct {
	Checkout *checkout.Service
}

func (h *CheckoutHandler) Register(r *chi.Mux) {
	r.Post("/checkout", h.postCheckout)
}

type checkoutReq struct {
	CartID        string               `json:"cart_id"`
	PaymentMethod rental.PaymentMethod `json:"payment_method"`
}

func (h *CheckoutHandler) postCheckout(w http.ResponseWriter, r *http.Request) {
	var req checkoutReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, fmt.Errorf("%w: invalid json", rental.ErrInvalidInput))
		return
	}
	if req.CartID == "" {
		writeError(w, fmt.Errorf("%w: cart_id required", rental.ErrInvalidInput))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	order, err := h.Checkout.Checkout(ctx, req.CartID, req.PaymentMethod)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, order)
}
