package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/gearbelt/rental-engine/internal/payments"
	"github.com/gearbelt/rental-engine/internal/redisx"
	"github.com/gearbelt/rental-engine/internal/rental"
)

type OrderStore interface {
	Get(ctx context.Context, orderID string) (rental.Order, error)
	Items(ctx context.Context, orderID string) ([]rental.OrderItem, error)
	UpdateItemStatus(ctx context.Context, itemID string, next rental.ItemStatus) (rental.Order, error)
}

type PaymentStore interface {
	Create(ctx context.Context, p rental.Payment) error
	AttachIntent(ctx context.Context, paymentID, intentID, clientSecret, status string) error
	LatestByOrder(ctx context.Context, orderID string) (rental.Payment, error)
}

type OrderHandler struct {
	Orders     OrderStore
	Payments   PaymentStore
	Gateway    *payments.Client
	Reconciler *payments.Reconciler
	Redis      *redis.Client
}

func (h *OrderHandler) Register(r *chi.Mux) {
	r.Get("/orders/{id}", h.getOrder)
	r.Get("/orders/{id}/status", h.getOrderStatus)
	r.Post("/orders/{id}/items/{itemID}/status", h.updateItemStatus)
	r.Post("/orders/{id}/payments", h.createPayment)
	r.Post("/payments/{intentID}/reconcile", h.reconcilePayment)
}

func (h *OrderHandler) getOrder(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "id")
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	order, err := h.Orders.Get(ctx, orderID)
	if err != nil {
		writeError(w, err)
		return
	}
	items, err := h.Orders.Items(ctx, orderID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"order": order, "items": items})
}

// getOrderStatus serves from the Redis read cache first; status is the
// only part of an order that keeps changing after creation.
func (h *OrderHandler) getOrderStatus(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "id")
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	key := fmt.Sprintf(redisx.KeyOrderStatus, orderID)
	if h.Redis != nil {
		if s, err := h.Redis.Get(ctx, key).Result(); err == nil && s != "" {
			writeJSON(w, http.StatusOK, json.RawMessage(s))
			return
		}
	}

	order, err := h.Orders.Get(ctx, orderID)
	if err != nil {
		writeError(w, err)
		return
	}
	body, _ := json.Marshal(map[string]string{"status": string(order.Status)})
	if h.Redis != nil {
		_ = h.Redis.Set(ctx, key, body, redisx.TTLStatusCache).Err()
	}
	writeJSON(w, http.StatusOK, json.RawMessage(body))
}

type itemStatusReq struct {
	Status rental.ItemStatus `json:"status"`
}

// updateItemStatus applies one item transition (distribute, recover,
// cancel, refund) and returns the order with its freshly derived status.
func (h *OrderHandler) updateItemStatus(w http.ResponseWriter, r *http.Request) {
	itemID := chi.URLParam(r, "itemID")
	var req itemStatusReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, fmt.Errorf("%w: invalid json", rental.ErrInvalidInput))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	order, err := h.Orders.UpdateItemStatus(ctx, itemID, req.Status)
	if err != nil {
		writeError(w, err)
		return
	}
	if h.Redis != nil {
		key := fmt.Sprintf(redisx.KeyOrderStatus, order.ID)
		body, _ := json.Marshal(map[string]string{"status": string(order.Status)})
		_ = h.Redis.Set(ctx, key, body, redisx.TTLStatusCache).Err()
	}
	writeJSON(w, http.StatusOK, order)
}

// createPayment opens (or retries opening) a gateway payment intent for
// the order. A payment left pending by an earlier gateway failure is
// reused rather than duplicated.
func (h *OrderHandler) createPayment(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "id")
	ctx, cancel := context.WithTimeout(r.Context(), 15*time.Second)
	defer cancel()

	order, err := h.Orders.Get(ctx, orderID)
	if err != nil {
		writeError(w, err)
		return
	}

	p, err := h.Payments.LatestByOrder(ctx, orderID)
	switch {
	case err == nil && p.IntentID != "":
		writeJSON(w, http.StatusOK, p)
		return
	case errors.Is(err, rental.ErrNotFound):
		p = rental.Payment{
			ID:          uuid.NewString(),
			OrderID:     order.ID,
			AmountCents: order.TotalCents,
			Currency:    order.Currency,
			Status:      "pending",
			CreatedAt:   time.Now().UTC(),
		}
		if err := h.Payments.Create(ctx, p); err != nil {
			writeError(w, err)
			return
		}
	case err != nil:
		// A transient lookup failure is not "no payment yet"; creating a
		// fresh row here would duplicate payments.
		writeError(w, err)
		return
	}

	intent, err := h.Gateway.CreateIntent(ctx, order.TotalCents, order.Currency)
	if err != nil {
		// Payment row stays pending; the caller retries this endpoint.
		writeJSON(w, http.StatusBadGateway, map[string]string{"error": "gateway_unavailable", "payment_id": p.ID})
		return
	}
	if err := h.Payments.AttachIntent(ctx, p.ID, intent.ID, intent.ClientSecret, intent.Status); err != nil {
		writeError(w, err)
		return
	}
	p.IntentID = intent.ID
	p.Status = intent.Status
	writeJSON(w, http.StatusCreated, map[string]any{
		"payment":       p,
		"client_secret": intent.ClientSecret,
	})
}

// reconcilePayment is the pull counterpart of the webhook: fetch the
// intent's current gateway state and run it through the same
// reconciliation path.
func (h *OrderHandler) reconcilePayment(w http.ResponseWriter, r *http.Request) {
	intentID := chi.URLParam(r, "intentID")
	ctx, cancel := context.WithTimeout(r.Context(), 15*time.Second)
	defer cancel()

	intent, err := h.Gateway.GetIntent(ctx, intentID)
	if err != nil {
		writeJSON(w, http.StatusBadGateway, map[string]string{"error": "gateway_unavailable"})
		return
	}
	p, err := h.Reconciler.ApplyGatewayEvent(ctx, rental.GatewayEvent{
		Type:             "payment_intent.reconciled",
		IntentID:         intent.ID,
		Status:           intent.Status,
		LastPaymentError: intent.LastError,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}
