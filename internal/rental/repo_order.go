package rental

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type OrderRepo struct{ DB *pgxpool.Pool }

// statusRetries bounds internal retries on serialization conflicts before
// surfacing ErrConflict to the caller.
const statusRetries = 3

const orderColumns = `id, reference, profile_id, status, total_cents, currency, paid_at,
	address1, address2, city, postcode, country, created_at, updated_at`

func scanOrder(row pgx.Row) (Order, error) {
	var o Order
	err := row.Scan(&o.ID, &o.Reference, &o.ProfileID, &o.Status, &o.TotalCents, &o.Currency,
		&o.PaidAt, &o.Address.Address1, &o.Address.Address2, &o.Address.City,
		&o.Address.Postcode, &o.Address.Country, &o.CreatedAt, &o.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Order{}, fmt.Errorf("order: %w", ErrNotFound)
	}
	if err != nil {
		return Order{}, err
	}
	return o, nil
}

func (r *OrderRepo) Get(ctx context.Context, orderID string) (Order, error) {
	return scanOrder(r.DB.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id=$1`, orderID))
}

func (r *OrderRepo) Items(ctx context.Context, orderID string) ([]OrderItem, error) {
	rows, err := r.DB.Query(ctx, `
		SELECT id, order_id, store_id, variant_id, quantity, price_cents, starts_at, ends_at, status
		FROM order_items WHERE order_id=$1 ORDER BY id`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []OrderItem
	for rows.Next() {
		var it OrderItem
		if err := rows.Scan(&it.ID, &it.OrderID, &it.StoreID, &it.VariantID,
			&it.Quantity, &it.PriceCents, &it.StartsAt, &it.EndsAt, &it.Status); err != nil {
			return nil, err
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

// UpdateItemStatus applies one item transition and recomputes the owning
// order's derived status in the same transaction. The order row is locked
// FOR UPDATE so two items of the same order changing concurrently cannot
// lose an update. Serialization conflicts retry a few times, then surface
// as ErrConflict.
func (r *OrderRepo) UpdateItemStatus(ctx context.Context, itemID string, next ItemStatus) (Order, error) {
	if !ValidItemStatus(next) {
		return Order{}, fmt.Errorf("%w: unknown item status %q", ErrInvalidInput, next)
	}
	var lastErr error
	for attempt := 0; attempt < statusRetries; attempt++ {
		o, err := r.updateItemStatusOnce(ctx, itemID, next)
		if err == nil || !isSerializationErr(err) {
			return o, err
		}
		lastErr = err
		time.Sleep(time.Duration(attempt+1) * 25 * time.Millisecond)
	}
	return Order{}, fmt.Errorf("%w: %v", ErrConflict, lastErr)
}

func (r *OrderRepo) updateItemStatusOnce(ctx context.Context, itemID string, next ItemStatus) (Order, error) {
	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return Order{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var orderID *string
	var current ItemStatus
	err = tx.QueryRow(ctx, `
		SELECT order_id, status FROM order_items WHERE id=$1`, itemID).Scan(&orderID, &current)
	if errors.Is(err, pgx.ErrNoRows) {
		return Order{}, fmt.Errorf("order item %s: %w", itemID, ErrNotFound)
	}
	if err != nil {
		return Order{}, err
	}
	if orderID == nil {
		return Order{}, fmt.Errorf("%w: item %s is still cart-owned", ErrInvalidInput, itemID)
	}

	// Serializes all status recomputation for this order.
	o, err := scanOrder(tx.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id=$1 FOR UPDATE`, *orderID))
	if err != nil {
		return Order{}, err
	}

	if !CanTransition(current, next) {
		return Order{}, fmt.Errorf("%w: item transition %s -> %s", ErrInvalidInput, current, next)
	}
	if _, err := tx.Exec(ctx, `UPDATE order_items SET status=$2 WHERE id=$1`, itemID, next); err != nil {
		return Order{}, err
	}

	o, err = recomputeOrderStatus(ctx, tx, o)
	if err != nil {
		return Order{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return Order{}, err
	}
	return o, nil
}

// recomputeOrderStatus re-derives the aggregate status from the item
// statuses and persists only on change. All-pending also clears paid_at
// (the order is back to a not-yet-paid state). Idempotent: re-running
// against the same item set writes nothing.
func recomputeOrderStatus(ctx context.Context, tx pgx.Tx, o Order) (Order, error) {
	rows, err := tx.Query(ctx, `SELECT status FROM order_items WHERE order_id=$1`, o.ID)
	if err != nil {
		return Order{}, err
	}
	defer rows.Close()

	var statuses []ItemStatus
	for rows.Next() {
		var s ItemStatus
		if err := rows.Scan(&s); err != nil {
			return Order{}, err
		}
		statuses = append(statuses, s)
	}
	if err := rows.Err(); err != nil {
		return Order{}, err
	}

	derived := DeriveOrderStatus(statuses)
	clearPaid := AllPending(statuses) && o.PaidAt != nil
	if derived == o.Status && !clearPaid {
		return o, nil
	}

	now := time.Now().UTC()
	if clearPaid {
		o.PaidAt = nil
	}
	o.Status = derived
	o.UpdatedAt = now
	_, err = tx.Exec(ctx, `
		UPDATE orders SET status=$2, paid_at=$3, updated_at=$4 WHERE id=$1`,
		o.ID, o.Status, o.PaidAt, now)
	if err != nil {
		return Order{}, err
	}
	return o, nil
}

// 40001 serialization_failure, 40P01 deadlock_detected
func isSerializationErr(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "40001" || pgErr.Code == "40P01"
	}
	return false
}
