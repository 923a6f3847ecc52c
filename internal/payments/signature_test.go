package payments

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gearbelt/rental-engine/internal/rental"
)

func TestVerifySignature(t *testing.T) {
	secret := "whsec_test"
	body := []byte(`{"type":"payment_intent.succeeded","paymentIntentId":"pi_1","status":"succeeded"}`)

	require.NoError(t, VerifySignature(secret, body, Sign(secret, body)))
}

func TestVerifySignature_Rejects(t *testing.T) {
	secret := "whsec_test"
	body := []byte(`{"status":"succeeded"}`)

	tests := []struct {
		name string
		sig  string
	}{
		{"empty signature", ""},
		{"garbage", "deadbeef"},
		{"wrong secret", Sign("other_secret", body)},
		{"signature of different body", Sign(secret, []byte(`{"status":"canceled"}`))},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, VerifySignature(secret, body, tt.sig), rental.ErrBadSignature)
		})
	}
}
