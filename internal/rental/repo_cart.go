package rental

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type CartRepo struct{ DB *pgxpool.Pool }

func scanCart(row pgx.Row) (Cart, error) {
	var c Cart
	var voucher *string
	err := row.Scan(&c.ID, &c.ProfileID, &c.Address.Address1, &c.Address.Address2,
		&c.Address.City, &c.Address.Postcode, &c.Address.Country, &voucher)
	if errors.Is(err, pgx.ErrNoRows) {
		return Cart{}, fmt.Errorf("cart: %w", ErrNotFound)
	}
	if err != nil {
		return Cart{}, err
	}
	if voucher != nil {
		c.VoucherCode = *voucher
	}
	return c, nil
}

const cartColumns = `id, profile_id, address1, address2, city, postcode, country, voucher_code`

func (r *CartRepo) Get(ctx context.Context, cartID string) (Cart, error) {
	return scanCart(r.DB.QueryRow(ctx, `SELECT `+cartColumns+` FROM carts WHERE id=$1`, cartID))
}

// GetOrCreateByProfile returns the profile's cart, creating it lazily on
// first use. The unique index on profile_id absorbs the create race.
func (r *CartRepo) GetOrCreateByProfile(ctx context.Context, profileID string) (Cart, error) {
	c, err := scanCart(r.DB.QueryRow(ctx,
		`SELECT `+cartColumns+` FROM carts WHERE profile_id=$1`, profileID))
	if err == nil {
		return c, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return Cart{}, err
	}
	_, err = r.DB.Exec(ctx, `
		INSERT INTO carts(id, profile_id) VALUES ($1, $2)
		ON CONFLICT (profile_id) DO NOTHING`, uuid.NewString(), profileID)
	if err != nil {
		return Cart{}, err
	}
	return scanCart(r.DB.QueryRow(ctx,
		`SELECT `+cartColumns+` FROM carts WHERE profile_id=$1`, profileID))
}

// AddItem inserts a tentative line under the cart, snapshotting the
// variant's current per-day rate so later price changes cannot drift the
// order total.
func (r *CartRepo) AddItem(ctx context.Context, cartID, storeID, variantID string, quantity int, startsAt, endsAt time.Time) (OrderItem, error) {
	if quantity <= 0 {
		return OrderItem{}, fmt.Errorf("%w: quantity must be positive", ErrInvalidInput)
	}
	if endsAt.Before(startsAt) {
		return OrderItem{}, fmt.Errorf("%w: rental start after end", ErrInvalidInput)
	}

	var priceCents int
	err := r.DB.QueryRow(ctx, `SELECT price_cents FROM variants WHERE id=$1`, variantID).Scan(&priceCents)
	if errors.Is(err, pgx.ErrNoRows) {
		return OrderItem{}, fmt.Errorf("variant %s: %w", variantID, ErrNotFound)
	}
	if err != nil {
		return OrderItem{}, err
	}

	it := OrderItem{
		ID:         uuid.NewString(),
		CartID:     cartID,
		StoreID:    storeID,
		VariantID:  variantID,
		Quantity:   quantity,
		PriceCents: priceCents,
		StartsAt:   startsAt,
		EndsAt:     endsAt,
		Status:     ItemPending,
	}
	_, err = r.DB.Exec(ctx, `
		INSERT INTO order_items(id, cart_id, store_id, variant_id, quantity, price_cents, starts_at, ends_at, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		it.ID, it.CartID, it.StoreID, it.VariantID, it.Quantity, it.PriceCents, it.StartsAt, it.EndsAt, it.Status)
	if err != nil {
		return OrderItem{}, err
	}
	return it, nil
}

func (r *CartRepo) Items(ctx context.Context, cartID string) ([]OrderItem, error) {
	rows, err := r.DB.Query(ctx, `
		SELECT id, cart_id, store_id, variant_id, quantity, price_cents, starts_at, ends_at, status
		FROM order_items WHERE cart_id=$1 ORDER BY id`, cartID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []OrderItem
	for rows.Next() {
		var it OrderItem
		if err := rows.Scan(&it.ID, &it.CartID, &it.StoreID, &it.VariantID,
			&it.Quantity, &it.PriceCents, &it.StartsAt, &it.EndsAt, &it.Status); err != nil {
			return nil, err
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

// RemoveItem deletes a tentative line. The cart must belong to the calling
// profile; a mismatch is ErrUnauthorized rather than ErrNotFound so the
// caller can tell a stolen id from a stale one.
func (r *CartRepo) RemoveItem(ctx context.Context, profileID, itemID string) error {
	var cartProfile string
	err := r.DB.QueryRow(ctx, `
		SELECT c.profile_id FROM order_items oi
		JOIN carts c ON c.id = oi.cart_id
		WHERE oi.id=$1`, itemID).Scan(&cartProfile)
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("cart item %s: %w", itemID, ErrNotFound)
	}
	if err != nil {
		return err
	}
	if cartProfile != profileID {
		return fmt.Errorf("cart item %s: %w", itemID, ErrUnauthorized)
	}
	_, err = r.DB.Exec(ctx, `DELETE FROM order_items WHERE id=$1`, itemID)
	return err
}

func (r *CartRepo) SetAddress(ctx context.Context, cartID string, a Address) error {
	ct, err := r.DB.Exec(ctx, `
		UPDATE carts SET address1=$2, address2=$3, city=$4, postcode=$5, country=$6
		WHERE id=$1`, cartID, a.Address1, a.Address2, a.City, a.Postcode, a.Country)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return fmt.Errorf("cart %s: %w", cartID, ErrNotFound)
	}
	return nil
}

// SetVoucher attaches a discount code; the code must exist and be active
// at attach time. It is re-read at checkout, so a code deactivated in
// between simply stops discounting.
func (r *CartRepo) SetVoucher(ctx context.Context, cartID, code string) error {
	var active bool
	err := r.DB.QueryRow(ctx, `SELECT active FROM vouchers WHERE code=$1`, code).Scan(&active)
	if errors.Is(err, pgx.ErrNoRows) || (err == nil && !active) {
		return fmt.Errorf("voucher %s: %w", code, ErrNotFound)
	}
	if err != nil {
		return err
	}
	ct, err := r.DB.Exec(ctx, `UPDATE carts SET voucher_code=$2 WHERE id=$1`, cartID, code)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return fmt.Errorf("cart %s: %w", cartID, ErrNotFound)
	}
	return nil
}
