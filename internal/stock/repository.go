package stock

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// Repository reads the stock ledger.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// ClosingQuantities sums receipts minus issues per item at the site.
func (r *Repository) ClosingQuantities(ctx context.Context, siteID int64, itemIDs []int64) (map[int64]decimal.Decimal, error) {
	rows, err := r.pool.Query(ctx, `SELECT item_id, COALESCE(SUM(qty_in) - SUM(qty_out), 0)
FROM stock_ledger
WHERE site_id = $1 AND item_id = ANY($2)
GROUP BY item_id`, siteID, itemIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make(map[int64]decimal.Decimal, len(itemIDs))
	for rows.Next() {
		var itemID int64
		var qty decimal.Decimal
		if err := rows.Scan(&itemID, &qty); err != nil {
			return nil, err
		}
		result[itemID] = qty
	}
	return result, rows.Err()
}
