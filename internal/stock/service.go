package stock

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/singleflight"
)

// RepositoryPort reads closing quantities from the stock ledger.
type RepositoryPort interface {
	ClosingQuantities(ctx context.Context, siteID int64, itemIDs []int64) (map[int64]decimal.Decimal, error)
}

// Service serves closing stock lookups. Quantities are display hints on
// the order entry forms, so a short cache TTL is acceptable.
type Service struct {
	repo  RepositoryPort
	cache *Cache
	group singleflight.Group
}

// NewService constructs the stock service.
func NewService(repo RepositoryPort, cache *Cache) *Service {
	return &Service{repo: repo, cache: cache}
}

// Closing returns the closing quantity per item at the site. Missing
// items resolve to zero. Concurrent lookups for the same key share one
// database round trip.
func (s *Service) Closing(ctx context.Context, siteID int64, itemIDs []int64) (map[int64]decimal.Decimal, error) {
	if siteID <= 0 {
		return nil, fmt.Errorf("stock: invalid site id %d", siteID)
	}
	if len(itemIDs) == 0 {
		return map[int64]decimal.Decimal{}, nil
	}

	key, err := s.cache.BuildKey(ctx, "stock", "closing", strconv.FormatInt(siteID, 10), joinIDs(itemIDs))
	if err != nil {
		return nil, err
	}

	resultChan := s.group.DoChan(key, func() (interface{}, error) {
		var cached map[int64]string
		err := s.cache.FetchJSON(ctx, key, &cached, func(ctx context.Context) (interface{}, error) {
			quantities, err := s.repo.ClosingQuantities(ctx, siteID, itemIDs)
			if err != nil {
				return nil, err
			}
			out := make(map[int64]string, len(itemIDs))
			for _, id := range itemIDs {
				out[id] = quantities[id].String()
			}
			return out, nil
		})
		if err != nil {
			return nil, err
		}
		return cached, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-resultChan:
		if res.Err != nil {
			return nil, res.Err
		}
		cached := res.Val.(map[int64]string)
		result := make(map[int64]decimal.Decimal, len(cached))
		for id, raw := range cached {
			qty, err := decimal.NewFromString(raw)
			if err != nil {
				return nil, fmt.Errorf("stock: corrupt cached quantity %q: %w", raw, err)
			}
			result[id] = qty
		}
		return result, nil
	}
}

// Invalidate bumps the cache version after stock movements.
func (s *Service) Invalidate(ctx context.Context) error {
	return s.cache.Bump(ctx)
}

// Warm preloads the closing quantities for a site's active items. Used by
// the background refresher for high-traffic sites.
func (s *Service) Warm(ctx context.Context, siteID int64, itemIDs []int64) error {
	_, err := s.Closing(ctx, siteID, itemIDs)
	return err
}

func joinIDs(ids []int64) string {
	sorted := make([]int64, len(ids))
	copy(sorted, ids)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	parts := make([]string, len(sorted))
	for i, id := range sorted {
		parts[i] = strconv.FormatInt(id, 10)
	}
	return strings.Join(parts, ",")
}
