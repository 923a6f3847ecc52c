package rental

import "time"

type Address struct {
	Address1 string `json:"address1"`
	Address2 string `json:"address2,omitempty"`
	City     string `json:"city"`
	Postcode string `json:"postcode"`
	Country  string `json:"country"`
}

// Complete reports whether the address is usable for checkout.
// Address2 and postcode are optional.
func (a Address) Complete() bool {
	return a.Address1 != "" && a.City != "" && a.Country != ""
}

type Store struct {
	ID        string    `json:"id"`
	Reference string    `json:"reference"`
	Address   Address   `json:"address"`
	CreatedAt time.Time `json:"created_at"`
}

// Variant is a rentable SKU configuration. PriceCents is the rate per
// rental day. Immutable once an order references it; order items carry
// a snapshot of the rate instead of re-reading it.
type Variant struct {
	ID         string    `json:"id"`
	SKU        string    `json:"sku"`
	Name       string    `json:"name"`
	PriceCents int       `json:"price_cents"`
	Currency   string    `json:"currency"`
	CreatedAt  time.Time `json:"created_at"`
}

// StockEntry is the ledger of total owned units of a variant at a store,
// not the currently-free count. Unique per (store, variant).
type StockEntry struct {
	ID        string `json:"id"`
	StoreID   string `json:"store_id"`
	VariantID string `json:"variant_id"`
	Quantity  int    `json:"quantity"`
}

// Cart is the single reservation holder of a profile. Created lazily on
// the first item add and never deleted, only emptied at checkout.
type Cart struct {
	ID          string  `json:"id"`
	ProfileID   string  `json:"profile_id"`
	Address     Address `json:"address"`
	VoucherCode string  `json:"voucher_code,omitempty"`
}

// OrderItem is a time-bounded claim against a variant's stock. Exactly one
// of CartID/OrderID is set: cart-owned items are tentative and invisible to
// availability accounting; order-owned items count while the order is in an
// active state.
type OrderItem struct {
	ID         string     `json:"id"`
	CartID     string     `json:"cart_id,omitempty"`
	OrderID    string     `json:"order_id,omitempty"`
	StoreID    string     `json:"store_id"`
	VariantID  string     `json:"variant_id"`
	Quantity   int        `json:"quantity"`
	PriceCents int        `json:"price_cents"` // per-day rate snapshot at add time
	StartsAt   time.Time  `json:"starts_at"`
	EndsAt     time.Time  `json:"ends_at"`
	Status     ItemStatus `json:"status"`
}

type Order struct {
	ID         string      `json:"id"`
	Reference  string      `json:"reference"`
	ProfileID  string      `json:"profile_id"`
	Status     OrderStatus `json:"status"`
	TotalCents int         `json:"total_cents"`
	Currency   string      `json:"currency"`
	PaidAt     *time.Time  `json:"paid_at,omitempty"`
	Address    Address     `json:"address"`
	CreatedAt  time.Time   `json:"created_at"`
	UpdatedAt  time.Time   `json:"updated_at"`
}

// Payment links an order to a gateway payment intent. IntentID is empty
// while the gateway call has not succeeded yet; the row then stays in a
// pending state and intent creation can be retried.
type Payment struct {
	ID           string    `json:"id"`
	OrderID      string    `json:"order_id"`
	IntentID     string    `json:"intent_id,omitempty"`
	AmountCents  int       `json:"amount_cents"`
	Currency     string    `json:"currency"`
	Status       string    `json:"status"` // raw gateway status
	ClientSecret string    `json:"-"`
	LastError    string    `json:"last_error,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

type VoucherKind string

const (
	VoucherFlat    VoucherKind = "flat"    // Amount in cents
	VoucherPercent VoucherKind = "percent" // Amount in 0..100
)

type Voucher struct {
	Code   string      `json:"code"`
	Kind   VoucherKind `json:"kind"`
	Amount int         `json:"amount"`
	Active bool        `json:"active"`
}

type PaymentMethod string

const (
	// MethodOnsite settles at pickup: the order is confirmed and marked
	// paid immediately at checkout.
	MethodOnsite PaymentMethod = "onsite"
	// MethodGateway leaves the order pending until the gateway reports
	// the intent outcome.
	MethodGateway PaymentMethod = "gateway"
)
