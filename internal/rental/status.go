package rental

type ItemStatus string

const (
	ItemPending     ItemStatus = "pending"
	ItemDistributed ItemStatus = "distributed"
	ItemRecovered   ItemStatus = "recovered"
	ItemCancelled   ItemStatus = "cancelled"
	ItemRefunded    ItemStatus = "refunded"
)

var validNext = map[ItemStatus]map[ItemStatus]bool{
	ItemPending:     {ItemDistributed: true, ItemCancelled: true, ItemRefunded: true},
	ItemDistributed: {ItemRecovered: true, ItemCancelled: true, ItemRefunded: true},
	ItemRecovered:   {},
	ItemCancelled:   {},
	ItemRefunded:    {},
}

// CanTransition validates caller-driven item transitions. Cascades from
// payment reconciliation bypass this and set statuses by fiat.
func CanTransition(from, to ItemStatus) bool {
	return validNext[from][to]
}

func ValidItemStatus(s ItemStatus) bool {
	_, ok := validNext[s]
	return ok
}

type OrderStatus string

const (
	OrderPending    OrderStatus = "pending"
	OrderConfirmed  OrderStatus = "confirmed"
	OrderInProgress OrderStatus = "inProgress"
	OrderCompleted  OrderStatus = "completed"
	OrderCancelled  OrderStatus = "cancelled"
	OrderRefunded   OrderStatus = "refunded"
	OrderFailed     OrderStatus = "failed"
)

// ActiveOrderStatuses are the order states whose items count against
// availability.
var ActiveOrderStatuses = []OrderStatus{OrderConfirmed, OrderPending, OrderInProgress}

// ActiveStatusStrings is ActiveOrderStatuses as plain strings, for SQL
// ANY() parameters.
func ActiveStatusStrings() []string {
	out := make([]string, len(ActiveOrderStatuses))
	for i, s := range ActiveOrderStatuses {
		out[i] = string(s)
	}
	return out
}

// DeriveOrderStatus computes the aggregate order status from its item
// statuses. Precedence: all recovered, all cancelled, all refunded, any
// pending, any distributed, else confirmed.
func DeriveOrderStatus(items []ItemStatus) OrderStatus {
	if len(items) == 0 {
		return OrderConfirmed
	}
	all := func(want ItemStatus) bool {
		for _, s := range items {
			if s != want {
				return false
			}
		}
		return true
	}
	any := func(want ItemStatus) bool {
		for _, s := range items {
			if s == want {
				return true
			}
		}
		return false
	}
	switch {
	case all(ItemRecovered):
		return OrderCompleted
	case all(ItemCancelled):
		return OrderCancelled
	case all(ItemRefunded):
		return OrderRefunded
	case any(ItemPending):
		return OrderPending
	case any(ItemDistributed):
		return OrderInProgress
	default:
		return OrderConfirmed
	}
}

// AllPending reports whether every item is still pending; used to clear
// paid_at when an order falls back to a not-yet-paid state.
func AllPending(items []ItemStatus) bool {
	if len(items) == 0 {
		return false
	}
	for _, s := range items {
		if s != ItemPending {
			return false
		}
	}
	return true
}

// ItemStatusFor is the reverse of DeriveOrderStatus, used when a payment
// outcome forces an order status and the items must follow.
func ItemStatusFor(s OrderStatus) ItemStatus {
	switch s {
	case OrderCancelled:
		return ItemCancelled
	case OrderRefunded:
		return ItemRefunded
	case OrderCompleted:
		return ItemRecovered
	case OrderInProgress:
		return ItemDistributed
	default:
		return ItemPending
	}
}
