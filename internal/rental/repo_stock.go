package rental

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type StockRepo struct{ DB *pgxpool.Pool }

func (r *StockRepo) Entry(ctx context.Context, storeID, variantID string) (StockEntry, error) {
	var e StockEntry
	err := r.DB.QueryRow(ctx, `
		SELECT id, store_id, variant_id, quantity
		FROM stock_entries WHERE store_id=$1 AND variant_id=$2`,
		storeID, variantID).Scan(&e.ID, &e.StoreID, &e.VariantID, &e.Quantity)
	if errors.Is(err, pgx.ErrNoRows) {
		return StockEntry{}, fmt.Errorf("stock entry %s/%s: %w", storeID, variantID, ErrNotFound)
	}
	if err != nil {
		return StockEntry{}, err
	}
	return e, nil
}

func (r *StockRepo) StockQuantity(ctx context.Context, storeID, variantID string) (int, error) {
	e, err := r.Entry(ctx, storeID, variantID)
	if err != nil {
		return 0, err
	}
	return e.Quantity, nil
}

// ReservedQuantity sums quantities of order-owned items for the variant at
// the store whose interval overlaps the window and whose order is in an
// active state. Cart-owned items (order_id NULL) never count: the join on
// orders excludes them. Open window bounds skip that side of the overlap
// test, so a fully open query counts every active reservation.
func (r *StockRepo) ReservedQuantity(ctx context.Context, storeID, variantID string, w DateWindow) (int, error) {
	var n int
	err := r.DB.QueryRow(ctx, `
		SELECT COALESCE(SUM(oi.quantity), 0)
		FROM order_items oi
		JOIN orders o ON o.id = oi.order_id
		WHERE oi.store_id = $1 AND oi.variant_id = $2
		  AND o.status = ANY($3)
		  AND ($4::timestamptz IS NULL OR oi.ends_at >= $4)
		  AND ($5::timestamptz IS NULL OR oi.starts_at <= $5)`,
		storeID, variantID, ActiveStatusStrings(), w.From, w.To).Scan(&n)
	if err != nil {
		return 0, err
	}
	return n, nil
}

// SetQuantity is the admin stock adjustment. Locks the ledger row so a
// concurrent checkout holding the same row serializes against it.
func (r *StockRepo) SetQuantity(ctx context.Context, storeID, variantID string, quantity int) (StockEntry, error) {
	if quantity < 0 {
		return StockEntry{}, fmt.Errorf("%w: negative stock quantity", ErrInvalidInput)
	}
	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return StockEntry{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var e StockEntry
	err = tx.QueryRow(ctx, `
		SELECT id FROM stock_entries WHERE store_id=$1 AND variant_id=$2 FOR UPDATE`,
		storeID, variantID).Scan(&e.ID)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		e.ID = uuid.NewString()
		if _, err := tx.Exec(ctx, `
			INSERT INTO stock_entries(id, store_id, variant_id, quantity)
			VALUES ($1, $2, $3, $4)`, e.ID, storeID, variantID, quantity); err != nil {
			return StockEntry{}, err
		}
	case err != nil:
		return StockEntry{}, err
	default:
		if _, err := tx.Exec(ctx, `
			UPDATE stock_entries SET quantity=$2 WHERE id=$1`, e.ID, quantity); err != nil {
			return StockEntry{}, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return StockEntry{}, err
	}
	e.StoreID, e.VariantID, e.Quantity = storeID, variantID, quantity
	return e, nil
}
