// Package availability derives how many units of a variant are free at a
// store over a date window: ledger quantity minus overlapping active
// reservations, never negative.
//
// Reads here are advisory (search filtering, add-to-cart checks) and take
// no locks; the checkout transaction re-validates under row locks.
package availability

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/gearbelt/rental-engine/internal/metrics"
	"github.com/gearbelt/rental-engine/internal/redisx"
	"github.com/gearbelt/rental-engine/internal/rental"
)

// StockSource is the slice of the ledger the calculator needs.
type StockSource interface {
	StockQuantity(ctx context.Context, storeID, variantID string) (int, error)
	ReservedQuantity(ctx context.Context, storeID, variantID string, w rental.DateWindow) (int, error)
}

type Service struct {
	Stock   StockSource
	Redis   *redis.Client // nil disables the cache
	Metrics *metrics.Metrics
}

// AvailableQuantity returns stock minus reserved for the window, clamped
// at zero. Missing stock entry is ErrNotFound. An open window counts every
// active reservation regardless of dates — deliberately conservative,
// kept for compatibility with how availability always behaved here.
func (s *Service) AvailableQuantity(ctx context.Context, storeID, variantID string, w rental.DateWindow) (int, error) {
	key := fmt.Sprintf(redisx.KeyAvailability, storeID, variantID, w.CacheKey())
	if s.Redis != nil {
		if n, err := s.Redis.Get(ctx, key).Int(); err == nil {
			s.Metrics.AvailabilityQuery(ctx, true)
			return n, nil
		}
	}
	s.Metrics.AvailabilityQuery(ctx, false)

	stock, err := s.Stock.StockQuantity(ctx, storeID, variantID)
	if err != nil {
		return 0, err
	}
	reserved, err := s.Stock.ReservedQuantity(ctx, storeID, variantID, w)
	if err != nil {
		return 0, err
	}

	avail := stock - reserved
	if avail < 0 {
		avail = 0
	}
	if s.Redis != nil {
		_ = s.Redis.Set(ctx, key, avail, redisx.TTLAvailability).Err()
	}
	return avail, nil
}
