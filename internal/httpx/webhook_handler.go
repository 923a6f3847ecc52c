package httpx

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	kafkago "github.com/segmentio/kafka-go"

	kafkax "github.com/gearbelt/rental-engine/internal/kafka"
	"github.com/gearbelt/rental-engine/internal/metrics"
	"github.com/gearbelt/rental-engine/internal/payments"
	"github.com/gearbelt/rental-engine/internal/rental"
)

// Publisher is the synchronous relay: Publish returns only once the broker
// acknowledged the message, or with the error that prevented it.
type Publisher interface {
	Publish(ctx context.Context, key, value []byte, headers ...kafkago.Header) error
}

// WebhookHandler receives signed gateway notifications and relays them to
// the payment events topic. Verification happens before anything else; an
// unverifiable signature is rejected permanently (the gateway must not
// retry it), while a relay failure is a 5xx so the gateway does retry.
// The 202 is only written after the relay succeeded, so the gateway never
// believes a lost event was delivered.
type WebhookHandler struct {
	Secret      string
	Producer    Publisher
	Metrics     *metrics.Metrics
	ServiceName string
}

const maxWebhookBody = 1 << 16

func (h *WebhookHandler) Register(r *chi.Mux) {
	r.Post("/webhooks/payment", h.postEvent)
}

func (h *WebhookHandler) postEvent(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		writeError(w, fmt.Errorf("%w: unreadable body", rental.ErrInvalidInput))
		return
	}

	if err := payments.VerifySignature(h.Secret, body, r.Header.Get(payments.SignatureHeader)); err != nil {
		h.Metrics.GatewayEvent(r.Context(), "bad_signature")
		writeError(w, err)
		return
	}

	var ev rental.GatewayEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		writeError(w, fmt.Errorf("%w: invalid json", rental.ErrInvalidInput))
		return
	}
	if ev.IntentID == "" {
		writeError(w, fmt.Errorf("%w: paymentIntentId required", rental.ErrInvalidInput))
		return
	}

	env := rental.Envelope{
		EventID:       uuid.NewString(),
		EventType:     rental.EventPaymentUpdated,
		EventVersion:  1,
		OccurredAt:    time.Now().UTC(),
		Producer:      h.ServiceName,
		TraceID:       r.Header.Get("X-Request-Id"),
		CorrelationID: ev.IntentID,
		Payload:       kafkax.MustMarshal(ev),
	}
	err = h.Producer.Publish(r.Context(), rental.PartitionKey(ev.IntentID), kafkax.MustMarshal(env),
		kafkago.Header{Key: "x-event-type", Value: []byte(rental.EventPaymentUpdated)},
		kafkago.Header{Key: "x-event-version", Value: []byte("1")},
	)
	if err != nil {
		log.Printf("webhook: relay intent %s: %v", ev.IntentID, err)
		h.Metrics.GatewayEvent(r.Context(), "relay_failed")
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "relay_failed"})
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]string{"status": "accepted"})
}
