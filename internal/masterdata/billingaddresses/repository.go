package billingaddresses

import (
	"context"
	"errors"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sitechain-erp/sitechain-erp/internal/masterdata/shared"
)

type Repository interface {
	List(ctx context.Context, filters shared.ListFilters) ([]BillingAddress, int, error)
	Get(ctx context.Context, id int64) (BillingAddress, error)
	Create(ctx context.Context, addr BillingAddress) (BillingAddress, error)
	Update(ctx context.Context, id int64, addr BillingAddress) error
}

type repository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) Repository {
	return &repository{db: db}
}

const columns = `id, label, COALESCE(address,''), COALESCE(city,''), COALESCE(state,''), COALESCE(gstin,''), is_active, created_at, updated_at`

func (r *repository) List(ctx context.Context, filters shared.ListFilters) ([]BillingAddress, int, error) {
	query := `SELECT ` + columns + ` FROM billing_addresses WHERE 1=1`
	countQuery := `SELECT COUNT(*) FROM billing_addresses WHERE 1=1`
	args := []any{}
	argCount := 0

	if filters.Search != "" {
		argCount++
		cond := ` AND (label ILIKE $` + strconv.Itoa(argCount) + ` OR gstin ILIKE $` + strconv.Itoa(argCount) + `)`
		query += cond
		countQuery += cond
		args = append(args, "%"+filters.Search+"%")
	}
	if filters.IsActive != nil {
		argCount++
		cond := ` AND is_active = $` + strconv.Itoa(argCount)
		query += cond
		countQuery += cond
		args = append(args, *filters.IsActive)
	}

	var total int
	if err := r.db.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query += ` ORDER BY label LIMIT $` + strconv.Itoa(argCount+1) + ` OFFSET $` + strconv.Itoa(argCount+2)
	args = append(args, filters.Limit, (filters.Page-1)*filters.Limit)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var addrs []BillingAddress
	for rows.Next() {
		var a BillingAddress
		if err := rows.Scan(&a.ID, &a.Label, &a.Address, &a.City, &a.State, &a.GSTIN, &a.IsActive, &a.CreatedAt, &a.UpdatedAt); err != nil {
			return nil, 0, err
		}
		addrs = append(addrs, a)
	}
	return addrs, total, rows.Err()
}

func (r *repository) Get(ctx context.Context, id int64) (BillingAddress, error) {
	var a BillingAddress
	err := r.db.QueryRow(ctx, `SELECT `+columns+` FROM billing_addresses WHERE id=$1`, id).
		Scan(&a.ID, &a.Label, &a.Address, &a.City, &a.State, &a.GSTIN, &a.IsActive, &a.CreatedAt, &a.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return BillingAddress{}, shared.ErrNotFound
	}
	return a, err
}

func (r *repository) Create(ctx context.Context, addr BillingAddress) (BillingAddress, error) {
	err := r.db.QueryRow(ctx, `INSERT INTO billing_addresses (label, address, city, state, gstin, is_active)
VALUES ($1,$2,$3,$4,$5,$6) RETURNING id, created_at, updated_at`,
		addr.Label, addr.Address, addr.City, addr.State, addr.GSTIN, addr.IsActive).
		Scan(&addr.ID, &addr.CreatedAt, &addr.UpdatedAt)
	return addr, err
}

func (r *repository) Update(ctx context.Context, id int64, addr BillingAddress) error {
	tag, err := r.db.Exec(ctx, `UPDATE billing_addresses SET label=$2, address=$3, city=$4, state=$5, gstin=$6, is_active=$7, updated_at=NOW() WHERE id=$1`,
		id, addr.Label, addr.Address, addr.City, addr.State, addr.GSTIN, addr.IsActive)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}
