package availability

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gearbelt/rental-engine/internal/rental"
)

type stubStock struct {
	stock    map[string]int // key store/variant
	reserved map[string]int
	err      error

	reservedCalls []rental.DateWindow
}

func key(storeID, variantID string) string { return storeID + "/" + variantID }

func (s *stubStock) StockQuantity(_ context.Context, storeID, variantID string) (int, error) {
	if s.err != nil {
		return 0, s.err
	}
	n, ok := s.stock[key(storeID, variantID)]
	if !ok {
		return 0, fmt.Errorf("stock entry %s/%s: %w", storeID, variantID, rental.ErrNotFound)
	}
	return n, nil
}

func (s *stubStock) ReservedQuantity(_ context.Context, storeID, variantID string, w rental.DateWindow) (int, error) {
	s.reservedCalls = append(s.reservedCalls, w)
	return s.reserved[key(storeID, variantID)], nil
}

func TestAvailableQuantity(t *testing.T) {
	stub := &stubStock{
		stock:    map[string]int{"s1/v1": 5},
		reserved: map[string]int{"s1/v1": 2},
	}
	svc := &Service{Stock: stub}

	n, err := svc.AvailableQuantity(context.Background(), "s1", "v1", rental.DateWindow{})
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

// Oversold ledgers must never report negative availability.
func TestAvailableQuantity_ClampsAtZero(t *testing.T) {
	stub := &stubStock{
		stock:    map[string]int{"s1/v1": 1},
		reserved: map[string]int{"s1/v1": 4},
	}
	svc := &Service{Stock: stub}

	n, err := svc.AvailableQuantity(context.Background(), "s1", "v1", rental.DateWindow{})
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestAvailableQuantity_MissingStockEntry(t *testing.T) {
	svc := &Service{Stock: &stubStock{stock: map[string]int{}}}

	_, err := svc.AvailableQuantity(context.Background(), "s1", "missing", rental.DateWindow{})
	assert.ErrorIs(t, err, rental.ErrNotFound)
}

// An open-ended query passes the open window through, which the storage
// layer answers by counting every active reservation.
func TestAvailableQuantity_OpenWindowPassthrough(t *testing.T) {
	stub := &stubStock{stock: map[string]int{"s1/v1": 5}, reserved: map[string]int{}}
	svc := &Service{Stock: stub}

	_, err := svc.AvailableQuantity(context.Background(), "s1", "v1", rental.DateWindow{})
	require.NoError(t, err)
	require.Len(t, stub.reservedCalls, 1)
	assert.True(t, stub.reservedCalls[0].Open())
}

// Two units in stock, one checked-out reservation of one unit over the
// queried window leaves one unit free.
func TestAvailableQuantity_AfterOneCheckout(t *testing.T) {
	from := time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 0, 3)

	stub := &stubStock{
		stock:    map[string]int{"s1/v1": 2},
		reserved: map[string]int{"s1/v1": 0},
	}
	svc := &Service{Stock: stub}

	w, err := rental.NewWindow(&from, &to)
	require.NoError(t, err)

	n, err := svc.AvailableQuantity(context.Background(), "s1", "v1", w)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	stub.reserved["s1/v1"] = 1
	n, err = svc.AvailableQuantity(context.Background(), "s1", "v1", w)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}
