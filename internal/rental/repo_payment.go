package rental

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PaymentRepo struct{ DB *pgxpool.Pool }

const paymentColumns = `id, order_id, intent_id, amount_cents, currency, status, client_secret, last_error, created_at, updated_at`

func scanPayment(row pgx.Row) (Payment, error) {
	var p Payment
	var intentID, clientSecret, lastError *string
	err := row.Scan(&p.ID, &p.OrderID, &intentID, &p.AmountCents, &p.Currency,
		&p.Status, &clientSecret, &lastError, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Payment{}, fmt.Errorf("payment: %w", ErrNotFound)
	}
	if err != nil {
		return Payment{}, err
	}
	if intentID != nil {
		p.IntentID = *intentID
	}
	if clientSecret != nil {
		p.ClientSecret = *clientSecret
	}
	if lastError != nil {
		p.LastError = *lastError
	}
	return p, nil
}

func (r *PaymentRepo) Create(ctx context.Context, p Payment) error {
	var intentID, clientSecret *string
	if p.IntentID != "" {
		intentID = &p.IntentID
	}
	if p.ClientSecret != "" {
		clientSecret = &p.ClientSecret
	}
	_, err := r.DB.Exec(ctx, `
		INSERT INTO payments(id, order_id, intent_id, amount_cents, currency, status, client_secret, last_error, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,NULL,$8,$8)`,
		p.ID, p.OrderID, intentID, p.AmountCents, p.Currency, p.Status, clientSecret, p.CreatedAt)
	return err
}

// AttachIntent fills in the gateway intent after a retried create-intent
// call succeeds for a payment that was left pending.
func (r *PaymentRepo) AttachIntent(ctx context.Context, paymentID, intentID, clientSecret, status string) error {
	ct, err := r.DB.Exec(ctx, `
		UPDATE payments SET intent_id=$2, client_secret=$3, status=$4, updated_at=now()
		WHERE id=$1`, paymentID, intentID, clientSecret, status)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return fmt.Errorf("payment %s: %w", paymentID, ErrNotFound)
	}
	return nil
}

func (r *PaymentRepo) GetByIntentID(ctx context.Context, intentID string) (Payment, error) {
	return scanPayment(r.DB.QueryRow(ctx,
		`SELECT `+paymentColumns+` FROM payments WHERE intent_id=$1`, intentID))
}

func (r *PaymentRepo) LatestByOrder(ctx context.Context, orderID string) (Payment, error) {
	return scanPayment(r.DB.QueryRow(ctx,
		`SELECT `+paymentColumns+` FROM payments WHERE order_id=$1 ORDER BY created_at DESC LIMIT 1`, orderID))
}

// ApplyGatewayOutcome persists a reconciled gateway outcome: payment and
// order move together in one transaction, with the order row locked to
// serialize against item status recomputation.
//
// Idempotency guard: once an order is paid, a confirming outcome is a
// no-op, so duplicate or out-of-order "succeeded" deliveries cannot touch
// state twice. Item statuses cascade from the forced order status.
func (r *PaymentRepo) ApplyGatewayOutcome(ctx context.Context, intentID, gatewayStatus, lastError string, target OrderStatus, now time.Time) (Payment, error) {
	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return Payment{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	p, err := scanPayment(tx.QueryRow(ctx,
		`SELECT `+paymentColumns+` FROM payments WHERE intent_id=$1 FOR UPDATE`, intentID))
	if errors.Is(err, ErrNotFound) {
		return Payment{}, fmt.Errorf("payment intent %s: %w", intentID, ErrNotFound)
	}
	if err != nil {
		return Payment{}, err
	}

	o, err := scanOrder(tx.QueryRow(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE id=$1 FOR UPDATE`, p.OrderID))
	if err != nil {
		return Payment{}, err
	}

	if target == OrderConfirmed && o.PaidAt != nil {
		// Already paid: duplicate delivery, leave everything untouched.
		return p, nil
	}

	var paidAt *time.Time
	if target == OrderConfirmed {
		paidAt = &now
	}
	if _, err := tx.Exec(ctx, `
		UPDATE orders SET status=$2, paid_at=$3, updated_at=$4 WHERE id=$1`,
		o.ID, target, paidAt, now); err != nil {
		return Payment{}, err
	}

	if _, err := tx.Exec(ctx, `
		UPDATE order_items SET status=$2 WHERE order_id=$1`,
		o.ID, ItemStatusFor(target)); err != nil {
		return Payment{}, err
	}

	var lastErrParam *string
	if lastError != "" {
		lastErrParam = &lastError
	}
	if _, err := tx.Exec(ctx, `
		UPDATE payments SET status=$2, last_error=$3, updated_at=$4 WHERE id=$1`,
		p.ID, gatewayStatus, lastErrParam, now); err != nil {
		return Payment{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return Payment{}, err
	}
	p.Status = gatewayStatus
	p.LastError = lastError
	p.UpdatedAt = now
	return p, nil
}
