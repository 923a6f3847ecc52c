package rental

import "time"

// LinePriceCents prices one order item: per-day rate x quantity x billable
// days. Recomputable from the item's persisted fields at any time.
func LinePriceCents(perDayCents, quantity int, start, end time.Time) int {
	return perDayCents * quantity * RentalDays(start, end)
}

// ApplyVoucher reduces a total by the voucher discount, never below zero.
// A nil or inactive voucher leaves the total unchanged.
func ApplyVoucher(totalCents int, v *Voucher) int {
	if v == nil || !v.Active {
		return totalCents
	}
	switch v.Kind {
	case VoucherFlat:
		totalCents -= v.Amount
	case VoucherPercent:
		totalCents -= totalCents * v.Amount / 100
	}
	if totalCents < 0 {
		return 0
	}
	return totalCents
}
