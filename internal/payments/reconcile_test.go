package payments

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gearbelt/rental-engine/internal/rental"
)

func TestOrderStatusForGateway(t *testing.T) {
	tests := []struct {
		status    string
		lastError string
		want      rental.OrderStatus
	}{
		{"succeeded", "", rental.OrderConfirmed},
		{"canceled", "", rental.OrderCancelled},
		{"requires_payment_method", "card_declined", rental.OrderFailed},
		{"requires_payment_method", "", rental.OrderPending},
		{"processing", "", rental.OrderPending},
		{"requires_confirmation", "", rental.OrderPending},
		{"", "", rental.OrderPending},
	}
	for _, tt := range tests {
		t.Run(tt.status+"/"+tt.lastError, func(t *testing.T) {
			assert.Equal(t, tt.want, OrderStatusForGateway(tt.status, tt.lastError))
		})
	}
}

// fakeStore mimics the idempotency behavior of the real payment repo: a
// confirming outcome for an already-paid order changes nothing.
type fakeStore struct {
	payments map[string]*rental.Payment
	paidAt   map[string]*time.Time // order id -> paid at
	applied  []rental.OrderStatus
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		payments: map[string]*rental.Payment{},
		paidAt:   map[string]*time.Time{},
	}
}

func (f *fakeStore) add(intentID, orderID string) {
	f.payments[intentID] = &rental.Payment{ID: "pay-" + intentID, OrderID: orderID, IntentID: intentID, Status: "pending"}
}

func (f *fakeStore) ApplyGatewayOutcome(_ context.Context, intentID, gatewayStatus, lastError string, target rental.OrderStatus, now time.Time) (rental.Payment, error) {
	p, ok := f.payments[intentID]
	if !ok {
		return rental.Payment{}, fmt.Errorf("payment intent %s: %w", intentID, rental.ErrNotFound)
	}
	if target == rental.OrderConfirmed && f.paidAt[p.OrderID] != nil {
		return *p, nil
	}
	f.applied = append(f.applied, target)
	if target == rental.OrderConfirmed {
		f.paidAt[p.OrderID] = &now
	} else {
		f.paidAt[p.OrderID] = nil
	}
	p.Status = gatewayStatus
	p.LastError = lastError
	return *p, nil
}

func TestApplyGatewayEvent_Succeeded(t *testing.T) {
	store := newFakeStore()
	store.add("pi_1", "o1")
	r := &Reconciler{Store: store}

	p, err := r.ApplyGatewayEvent(context.Background(), rental.GatewayEvent{
		Type: "payment_intent.succeeded", IntentID: "pi_1", Status: "succeeded",
	})
	require.NoError(t, err)
	assert.Equal(t, "succeeded", p.Status)
	assert.Equal(t, []rental.OrderStatus{rental.OrderConfirmed}, store.applied)
	assert.NotNil(t, store.paidAt["o1"])
}

// Applying the same succeeded event twice leaves state identical to
// applying it once.
func TestApplyGatewayEvent_SucceededIsIdempotent(t *testing.T) {
	store := newFakeStore()
	store.add("pi_1", "o1")
	r := &Reconciler{Store: store}

	ev := rental.GatewayEvent{Type: "payment_intent.succeeded", IntentID: "pi_1", Status: "succeeded"}

	_, err := r.ApplyGatewayEvent(context.Background(), ev)
	require.NoError(t, err)
	firstPaid := store.paidAt["o1"]

	_, err = r.ApplyGatewayEvent(context.Background(), ev)
	require.NoError(t, err)

	assert.Len(t, store.applied, 1, "second delivery must not re-apply")
	assert.Equal(t, firstPaid, store.paidAt["o1"])
}

// A canceled event before payment cancels the order and leaves paid_at
// unset.
func TestApplyGatewayEvent_CanceledBeforePaid(t *testing.T) {
	store := newFakeStore()
	store.add("pi_2", "o2")
	r := &Reconciler{Store: store}

	_, err := r.ApplyGatewayEvent(context.Background(), rental.GatewayEvent{
		Type: "payment_intent.canceled", IntentID: "pi_2", Status: "canceled",
	})
	require.NoError(t, err)
	assert.Equal(t, []rental.OrderStatus{rental.OrderCancelled}, store.applied)
	assert.Nil(t, store.paidAt["o2"])
}

func TestApplyGatewayEvent_UnknownIntent(t *testing.T) {
	r := &Reconciler{Store: newFakeStore()}

	_, err := r.ApplyGatewayEvent(context.Background(), rental.GatewayEvent{
		IntentID: "pi_missing", Status: "succeeded",
	})
	assert.ErrorIs(t, err, rental.ErrNotFound)
}

func TestApplyGatewayEvent_MissingIntentID(t *testing.T) {
	r := &Reconciler{Store: newFakeStore()}

	_, err := r.ApplyGatewayEvent(context.Background(), rental.GatewayEvent{Status: "succeeded"})
	assert.ErrorIs(t, err, rental.ErrInvalidInput)
}
