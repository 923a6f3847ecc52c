package httpx

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gearbelt/rental-engine/internal/payments"
	"github.com/gearbelt/rental-engine/internal/rental"
)

type capturingPublisher struct {
	values [][]byte
	err    error
}

func (p *capturingPublisher) Publish(_ context.Context, key, value []byte, headers ...kafkago.Header) error {
	if p.err != nil {
		return p.err
	}
	p.values = append(p.values, value)
	return nil
}

func webhookRouter(secret string, pub Publisher) *chi.Mux {
	r := chi.NewRouter()
	h := &WebhookHandler{Secret: secret, Producer: pub, ServiceName: "test"}
	h.Register(r)
	return r
}

func TestWebhook_ValidSignaturePublishes(t *testing.T) {
	pub := &capturingPublisher{}
	router := webhookRouter("whsec", pub)

	body := []byte(`{"type":"payment_intent.succeeded","paymentIntentId":"pi_1","status":"succeeded"}`)
	req := httptest.NewRequest(http.MethodPost, "/webhooks/payment", bytes.NewReader(body))
	req.Header.Set(payments.SignatureHeader, payments.Sign("whsec", body))
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusAccepted, rec.Code)
	require.Len(t, pub.values, 1)

	var env rental.Envelope
	require.NoError(t, json.Unmarshal(pub.values[0], &env))
	assert.Equal(t, rental.EventPaymentUpdated, env.EventType)

	var ev rental.GatewayEvent
	require.NoError(t, json.Unmarshal(env.Payload, &ev))
	assert.Equal(t, "pi_1", ev.IntentID)
	assert.Equal(t, "succeeded", ev.Status)
}

// A bad signature is rejected permanently, before anything is published.
func TestWebhook_BadSignatureRejectedWithoutPublish(t *testing.T) {
	pub := &capturingPublisher{}
	router := webhookRouter("whsec", pub)

	body := []byte(`{"type":"payment_intent.succeeded","paymentIntentId":"pi_1","status":"succeeded"}`)
	req := httptest.NewRequest(http.MethodPost, "/webhooks/payment", bytes.NewReader(body))
	req.Header.Set(payments.SignatureHeader, "not-a-signature")
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Empty(t, pub.values)
}

// A broker outage must not be acknowledged: the gateway retries on a 5xx,
// so a verified event is never silently lost.
func TestWebhook_RelayFailureNotAcknowledged(t *testing.T) {
	pub := &capturingPublisher{err: errors.New("dial tcp: connection refused")}
	router := webhookRouter("whsec", pub)

	body := []byte(`{"type":"payment_intent.succeeded","paymentIntentId":"pi_1","status":"succeeded"}`)
	req := httptest.NewRequest(http.MethodPost, "/webhooks/payment", bytes.NewReader(body))
	req.Header.Set(payments.SignatureHeader, payments.Sign("whsec", body))
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Empty(t, pub.values)
}

func TestWebhook_MissingIntentID(t *testing.T) {
	pub := &capturingPublisher{}
	router := webhookRouter("whsec", pub)

	body := []byte(`{"type":"payment_intent.succeeded","status":"succeeded"}`)
	req := httptest.NewRequest(http.MethodPost, "/webhooks/payment", bytes.NewReader(body))
	req.Header.Set(payments.SignatureHeader, payments.Sign("whsec", body))
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, pub.values)
}
