package payments

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
	kafkago "github.com/segmentio/kafka-go"

	kafkax "github.com/gearbelt/rental-engine/internal/kafka"
	"github.com/gearbelt/rental-engine/internal/metrics"
	"github.com/gearbelt/rental-engine/internal/redisx"
	"github.com/gearbelt/rental-engine/internal/rental"
)

// OrderStatusForGateway maps a gateway intent state onto the order status
// it forces. "requires_payment_method" only means failure once the gateway
// recorded a payment error; before that it is just an intent waiting for a
// card.
func OrderStatusForGateway(gatewayStatus, lastError string) rental.OrderStatus {
	switch gatewayStatus {
	case "succeeded":
		return rental.OrderConfirmed
	case "canceled":
		return rental.OrderCancelled
	case "requires_payment_method":
		if lastError != "" {
			return rental.OrderFailed
		}
		return rental.OrderPending
	default:
		return rental.OrderPending
	}
}

// PaymentStore is the persistence slice the reconciler drives.
type PaymentStore interface {
	ApplyGatewayOutcome(ctx context.Context, intentID, gatewayStatus, lastError string, target rental.OrderStatus, now time.Time) (rental.Payment, error)
}

// Reconciler turns asynchronous gateway outcomes into order and item
// status updates. It is the single place payment state flows into the
// order state machine, whether the event came from the webhook relay or
// an explicit reconcile call.
type Reconciler struct {
	Store       PaymentStore
	Redis       *redis.Client // nil disables event dedup
	Metrics     *metrics.Metrics
	ServiceName string
}

// ApplyGatewayEvent applies one gateway outcome. Idempotent: a confirming
// event for an already-paid order is a no-op inside the store, and
// redelivered events are additionally short-circuited by event-id dedup
// in the consumer path. Unknown intent ids are ErrNotFound.
func (r *Reconciler) ApplyGatewayEvent(ctx context.Context, ev rental.GatewayEvent) (rental.Payment, error) {
	if ev.IntentID == "" {
		return rental.Payment{}, fmt.Errorf("%w: missing payment intent id", rental.ErrInvalidInput)
	}
	target := OrderStatusForGateway(ev.Status, ev.LastPaymentError)
	p, err := r.Store.ApplyGatewayOutcome(ctx, ev.IntentID, ev.Status, ev.LastPaymentError, target, time.Now().UTC())
	if err != nil {
		r.Metrics.GatewayEvent(ctx, "error")
		return rental.Payment{}, err
	}
	r.Metrics.GatewayEvent(ctx, string(target))

	if r.Redis != nil {
		// Refresh the order status read cache alongside the write.
		key := fmt.Sprintf(redisx.KeyOrderStatus, p.OrderID)
		body, _ := json.Marshal(map[string]string{"status": string(target)})
		_ = r.Redis.Set(ctx, key, body, redisx.TTLStatusCache).Err()
	}
	return p, nil
}

// HandleGatewayEvent is the Kafka consumer handler for the payment events
// topic. Returning nil commits the offset; transient store errors return
// non-nil so the broker redelivers.
func (r *Reconciler) HandleGatewayEvent(ctx context.Context, m kafkago.Message) error {
	var env rental.Envelope
	if err := json.Unmarshal(m.Value, &env); err != nil {
		log.Printf("reconciler: drop undecodable message: %v", err)
		return nil
	}
	if env.EventType != rental.EventPaymentUpdated {
		return nil
	}

	dkey := fmt.Sprintf(redisx.KeyDedup, r.ServiceName, env.EventID)
	if r.Redis != nil {
		if seen, _ := redisx.Exists(ctx, r.Redis, dkey); seen {
			return nil
		}
	}

	ev, err := kafkax.UnwrapPayload[rental.GatewayEvent](env.Payload)
	if err != nil {
		log.Printf("reconciler: drop bad payload event=%s: %v", env.EventID, err)
		return nil
	}

	_, err = r.ApplyGatewayEvent(ctx, ev)
	switch {
	case errors.Is(err, rental.ErrNotFound), errors.Is(err, rental.ErrInvalidInput):
		// Permanently unprocessable; retrying cannot fix it.
		log.Printf("reconciler: drop event=%s intent=%s: %v", env.EventID, ev.IntentID, err)
	case err != nil:
		// Transient: leave the dedup key unset so the redelivery is
		// processed, not skipped.
		return err
	}
	if r.Redis != nil {
		_ = r.Redis.Set(ctx, dkey, "1", redisx.TTLDedup).Err()
	}
	return nil
}
