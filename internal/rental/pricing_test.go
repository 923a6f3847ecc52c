package rental

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLinePriceCents(t *testing.T) {
	// 3 days x 2 units x 1500/day
	assert.Equal(t, 9000, LinePriceCents(1500, 2, day(5), day(7)))
	// single day rental
	assert.Equal(t, 1500, LinePriceCents(1500, 1, day(5), day(5)))
	// inverted interval prices at zero
	assert.Equal(t, 0, LinePriceCents(1500, 2, day(7), day(5)))
}

// The price contribution must be recomputable from the persisted fields
// alone, with no drift after reload.
func TestLinePriceCents_RoundTrip(t *testing.T) {
	it := OrderItem{
		PriceCents: 2500,
		Quantity:   3,
		StartsAt:   day(1),
		EndsAt:     day(14),
	}
	original := LinePriceCents(it.PriceCents, it.Quantity, it.StartsAt, it.EndsAt)

	reloaded := OrderItem{
		PriceCents: it.PriceCents,
		Quantity:   it.Quantity,
		StartsAt:   it.StartsAt,
		EndsAt:     it.EndsAt,
	}
	assert.Equal(t, original, LinePriceCents(reloaded.PriceCents, reloaded.Quantity, reloaded.StartsAt, reloaded.EndsAt))
}

func TestApplyVoucher(t *testing.T) {
	tests := []struct {
		name  string
		total int
		v     *Voucher
		want  int
	}{
		{"nil voucher", 1000, nil, 1000},
		{"inactive voucher", 1000, &Voucher{Kind: VoucherFlat, Amount: 500, Active: false}, 1000},
		{"flat discount", 1000, &Voucher{Kind: VoucherFlat, Amount: 300, Active: true}, 700},
		{"flat never below zero", 1000, &Voucher{Kind: VoucherFlat, Amount: 5000, Active: true}, 0},
		{"percent discount", 1000, &Voucher{Kind: VoucherPercent, Amount: 25, Active: true}, 750},
		{"hundred percent", 1000, &Voucher{Kind: VoucherPercent, Amount: 100, Active: true}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ApplyVoucher(tt.total, tt.v))
		})
	}
}
