// Package checkout drives the cart-to-order conversion. The atomic part
// (availability re-check, order creation, item re-parenting) lives in the
// repository transaction; this service adds the surrounding steps: status
// caching, payment intent creation for gateway flows, and the confirmed
// event publish.
package checkout

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	kafkago "github.com/segmentio/kafka-go"

	kafkax "github.com/gearbelt/rental-engine/internal/kafka"
	"github.com/gearbelt/rental-engine/internal/metrics"
	"github.com/gearbelt/rental-engine/internal/payments"
	"github.com/gearbelt/rental-engine/internal/redisx"
	"github.com/gearbelt/rental-engine/internal/rental"
)

type Store interface {
	Checkout(ctx context.Context, cartID string, method rental.PaymentMethod, now time.Time) (rental.Order, error)
}

type PaymentCreator interface {
	Create(ctx context.Context, p rental.Payment) error
}

type IntentCreator interface {
	CreateIntent(ctx context.Context, amountCents int, currency string) (payments.Intent, error)
}

type Publisher interface {
	Publish(key, value []byte, headers ...kafkago.Header)
}

type Service struct {
	Store       Store
	Payments    PaymentCreator
	Gateway     IntentCreator
	Producer    Publisher
	Redis       *redis.Client
	Metrics     *metrics.Metrics
	ServiceName string
}

// Checkout converts the cart into an order. For the gateway method a
// payment intent is opened after the order committed; a gateway failure
// there does not undo the order — the Payment row stays pending with no
// intent attached and intent creation is retried via the payments
// endpoint.
func (s *Service) Checkout(ctx context.Context, cartID string, method rental.PaymentMethod) (rental.Order, error) {
	if method == "" {
		method = rental.MethodOnsite
	}
	if method != rental.MethodOnsite && method != rental.MethodGateway {
		return rental.Order{}, fmt.Errorf("%w: unknown payment method %q", rental.ErrInvalidInput, method)
	}

	order, err := s.Store.Checkout(ctx, cartID, method, time.Now().UTC())
	if err != nil {
		s.Metrics.CheckoutRejected(ctx, rejectReason(err))
		return rental.Order{}, err
	}
	s.Metrics.CheckoutCompleted(ctx)

	if s.Redis != nil {
		key := fmt.Sprintf(redisx.KeyOrderStatus, order.ID)
		body, _ := json.Marshal(map[string]string{"status": string(order.Status)})
		_ = s.Redis.Set(ctx, key, body, redisx.TTLStatusCache).Err()
	}

	if method == rental.MethodGateway {
		s.openPayment(ctx, order)
	}

	// Gateway orders start pending and are not confirmed until the
	// payment lands, so there is nothing to announce for them yet.
	if order.Status == rental.OrderConfirmed {
		s.publishConfirmed(ctx, order)
	}
	return order, nil
}

// openPayment creates the Payment row and tries to attach a gateway
// intent. The row is written first so a timed-out gateway call still
// leaves a pending, retryable payment behind.
func (s *Service) openPayment(ctx context.Context, order rental.Order) {
	p := rental.Payment{
		ID:          uuid.NewString(),
		OrderID:     order.ID,
		AmountCents: order.TotalCents,
		Currency:    order.Currency,
		Status:      "pending",
		CreatedAt:   time.Now().UTC(),
	}

	intent, gwErr := s.Gateway.CreateIntent(ctx, order.TotalCents, order.Currency)
	if gwErr == nil {
		p.IntentID = intent.ID
		p.ClientSecret = intent.ClientSecret
		if intent.Status != "" {
			p.Status = intent.Status
		}
	}
	if err := s.Payments.Create(ctx, p); err != nil {
		log.Printf("checkout: persist payment for order %s: %v", order.ID, err)
		return
	}
	if gwErr != nil {
		log.Printf("checkout: create intent for order %s: %v (payment %s left pending)", order.ID, gwErr, p.ID)
	}
}

func (s *Service) publishConfirmed(ctx context.Context, order rental.Order) {
	if s.Producer == nil {
		return
	}
	ev := rental.Envelope{
		EventID:       uuid.NewString(),
		EventType:     rental.EventOrderConfirmed,
		EventVersion:  1,
		OccurredAt:    time.Now().UTC(),
		Producer:      s.ServiceName,
		CorrelationID: order.ID,
		Payload: kafkax.MustMarshal(rental.OrderConfirmedPayload{
			OrderID:    order.ID,
			Reference:  order.Reference,
			ProfileID:  order.ProfileID,
			TotalCents: order.TotalCents,
			Currency:   order.Currency,
		}),
	}
	s.Producer.Publish(rental.PartitionKey(order.ID), kafkax.MustMarshal(ev),
		kafkago.Header{Key: "x-event-type", Value: []byte(rental.EventOrderConfirmed)},
		kafkago.Header{Key: "x-event-version", Value: []byte("1")},
	)
}

func rejectReason(err error) string {
	switch {
	case errors.Is(err, rental.ErrOutOfStock):
		return "out_of_stock"
	case errors.Is(err, rental.ErrEmptyCart):
		return "empty_cart"
	case errors.Is(err, rental.ErrInvalidCartAddress):
		return "invalid_address"
	case errors.Is(err, rental.ErrNotFound):
		return "not_found"
	default:
		return "error"
	}
}
