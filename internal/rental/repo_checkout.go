package rental

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type CheckoutRepo struct{ DB *pgxpool.Pool }

// NewOrderReference generates the customer-facing order reference. The
// unique index on orders.reference backstops the slim collision chance.
func NewOrderReference() string {
	return "R-" + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:10])
}

// Checkout converts a cart into an order in one transaction:
//
//  1. load the cart and its items, checking address then non-emptiness
//  2. lock the stock_entries rows of every (store, variant) in the cart
//     (FOR UPDATE, stable order) so concurrent checkouts for the same
//     variant serialize instead of both passing the availability check
//  3. re-validate availability per item against the locked stock
//  4. price the items, apply the voucher, insert the order
//  5. re-parent the items from the cart to the order and empty the cart
//
// Any failure rolls the whole thing back: no partial order, no stock
// mutation, cart untouched.
func (r *CheckoutRepo) Checkout(ctx context.Context, cartID string, method PaymentMethod, now time.Time) (Order, error) {
	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return Order{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	// Lock the cart row too: one checkout per cart at a time.
	var cart Cart
	var voucherCode *string
	err = tx.QueryRow(ctx, `
		SELECT id, profile_id, address1, address2, city, postcode, country, voucher_code
		FROM carts WHERE id=$1 FOR UPDATE`, cartID).
		Scan(&cart.ID, &cart.ProfileID, &cart.Address.Address1, &cart.Address.Address2,
			&cart.Address.City, &cart.Address.Postcode, &cart.Address.Country, &voucherCode)
	if errors.Is(err, pgx.ErrNoRows) {
		return Order{}, fmt.Errorf("cart %s: %w", cartID, ErrNotFound)
	}
	if err != nil {
		return Order{}, err
	}

	if !cart.Address.Complete() {
		return Order{}, ErrInvalidCartAddress
	}

	items, currency, err := loadCartItems(ctx, tx, cartID)
	if err != nil {
		return Order{}, err
	}
	if len(items) == 0 {
		return Order{}, ErrEmptyCart
	}

	if err := validateAvailability(ctx, tx, items); err != nil {
		return Order{}, err
	}

	total := 0
	for _, it := range items {
		total += LinePriceCents(it.PriceCents, it.Quantity, it.StartsAt, it.EndsAt)
	}
	if voucherCode != nil {
		v, err := loadVoucher(ctx, tx, *voucherCode)
		if err != nil {
			return Order{}, err
		}
		total = ApplyVoucher(total, v)
	}

	o := Order{
		ID:         uuid.NewString(),
		Reference:  NewOrderReference(),
		ProfileID:  cart.ProfileID,
		Status:     OrderConfirmed,
		TotalCents: total,
		Currency:   currency,
		Address:    cart.Address,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if method == MethodGateway {
		// Gateway flow stays pending until reconciliation confirms payment.
		o.Status = OrderPending
	} else {
		paid := now
		o.PaidAt = &paid
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO orders(id, reference, profile_id, status, total_cents, currency, paid_at,
		                   address1, address2, city, postcode, country, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$13)`,
		o.ID, o.Reference, o.ProfileID, o.Status, o.TotalCents, o.Currency, o.PaidAt,
		o.Address.Address1, o.Address.Address2, o.Address.City, o.Address.Postcode, o.Address.Country, now)
	if err != nil {
		return Order{}, err
	}

	// The binding moment: cart-owned items become order-owned and start
	// counting against availability for everyone else.
	if _, err := tx.Exec(ctx, `
		UPDATE order_items SET cart_id=NULL, order_id=$1 WHERE cart_id=$2`, o.ID, cartID); err != nil {
		return Order{}, err
	}

	// Empty the cart but keep the row for reuse.
	if _, err := tx.Exec(ctx, `
		UPDATE carts SET address1='', address2='', city='', postcode='', country='', voucher_code=NULL
		WHERE id=$1`, cartID); err != nil {
		return Order{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return Order{}, err
	}
	return o, nil
}

func loadCartItems(ctx context.Context, tx pgx.Tx, cartID string) ([]OrderItem, string, error) {
	rows, err := tx.Query(ctx, `
		SELECT oi.id, oi.store_id, oi.variant_id, oi.quantity, oi.price_cents,
		       oi.starts_at, oi.ends_at, v.currency
		FROM order_items oi
		JOIN variants v ON v.id = oi.variant_id
		WHERE oi.cart_id=$1 ORDER BY oi.id`, cartID)
	if err != nil {
		return nil, "", err
	}
	defer rows.Close()

	var items []OrderItem
	currency := ""
	for rows.Next() {
		var it OrderItem
		var cur string
		if err := rows.Scan(&it.ID, &it.StoreID, &it.VariantID, &it.Quantity,
			&it.PriceCents, &it.StartsAt, &it.EndsAt, &cur); err != nil {
			return nil, "", err
		}
		// The order carries a single currency; cents of different
		// currencies must never be summed.
		if currency == "" {
			currency = cur
		} else if cur != currency {
			return nil, "", fmt.Errorf("%w: cart mixes currencies %s and %s", ErrInvalidInput, currency, cur)
		}
		items = append(items, it)
	}
	if currency == "" {
		currency = "EUR"
	}
	return items, currency, rows.Err()
}

// validateAvailability locks the ledger rows for the cart's distinct
// (store, variant) pairs and re-checks each line against committed
// reservations plus the cart's own earlier lines.
func validateAvailability(ctx context.Context, tx pgx.Tx, items []OrderItem) error {
	type key struct{ store, variant string }
	stock := map[key]int{}

	keys := make([]key, 0, len(items))
	seen := map[key]bool{}
	for _, it := range items {
		k := key{it.StoreID, it.VariantID}
		if !seen[k] {
			seen[k] = true
			keys = append(keys, k)
		}
	}
	// Stable lock order across concurrent checkouts avoids deadlock.
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].store != keys[j].store {
			return keys[i].store < keys[j].store
		}
		return keys[i].variant < keys[j].variant
	})
	for _, k := range keys {
		var q int
		err := tx.QueryRow(ctx, `
			SELECT quantity FROM stock_entries
			WHERE store_id=$1 AND variant_id=$2 FOR UPDATE`, k.store, k.variant).Scan(&q)
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("stock entry %s/%s: %w", k.store, k.variant, ErrNotFound)
		}
		if err != nil {
			return err
		}
		stock[key{k.store, k.variant}] = q
	}

	var claimed []OrderItem
	for _, it := range items {
		var reserved int
		err := tx.QueryRow(ctx, `
			SELECT COALESCE(SUM(oi.quantity), 0)
			FROM order_items oi
			JOIN orders o ON o.id = oi.order_id
			WHERE oi.store_id = $1 AND oi.variant_id = $2
			  AND o.status = ANY($3)
			  AND oi.ends_at >= $4 AND oi.starts_at <= $5`,
			it.StoreID, it.VariantID, ActiveStatusStrings(), it.StartsAt, it.EndsAt).Scan(&reserved)
		if err != nil {
			return err
		}
		// Earlier lines of this same cart claim stock too.
		for _, c := range claimed {
			if c.StoreID == it.StoreID && c.VariantID == it.VariantID &&
				!c.EndsAt.Before(it.StartsAt) && !c.StartsAt.After(it.EndsAt) {
				reserved += c.Quantity
			}
		}
		avail := stock[key{it.StoreID, it.VariantID}] - reserved
		if avail < it.Quantity {
			if avail < 0 {
				avail = 0
			}
			return &OutOfStockError{ItemID: it.ID, VariantID: it.VariantID, Requested: it.Quantity, Available: avail}
		}
		claimed = append(claimed, it)
	}
	return nil
}

func loadVoucher(ctx context.Context, tx pgx.Tx, code string) (*Voucher, error) {
	var v Voucher
	err := tx.QueryRow(ctx, `
		SELECT code, kind, amount, active FROM vouchers WHERE code=$1`, code).
		Scan(&v.Code, &v.Kind, &v.Amount, &v.Active)
	if errors.Is(err, pgx.ErrNoRows) {
		// Code removed since it was attached; checkout proceeds undiscounted.
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &v, nil
}
