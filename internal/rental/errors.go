package rental

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound           = errors.New("not found")
	ErrInvalidInput       = errors.New("invalid input")
	ErrOutOfStock         = errors.New("out of stock")
	ErrEmptyCart          = errors.New("cart is empty")
	ErrInvalidCartAddress = errors.New("cart address incomplete")
	ErrUnauthorized       = errors.New("ownership mismatch")
	ErrBadSignature       = errors.New("webhook signature invalid")
	ErrConflict           = errors.New("concurrent update conflict")
)

// OutOfStockError carries which line item failed the availability check.
// errors.Is(err, ErrOutOfStock) matches it.
type OutOfStockError struct {
	ItemID    string
	VariantID string
	Requested int
	Available int
}

func (e *OutOfStockError) Error() string {
	return fmt.Sprintf("out of stock: item %s variant %s requested %d available %d",
		e.ItemID, e.VariantID, e.Requested, e.Available)
}

func (e *OutOfStockError) Is(target error) bool { return target == ErrOutOfStock }
