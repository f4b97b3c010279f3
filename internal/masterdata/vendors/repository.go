package vendors

import (
	"context"
	"errors"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sitechain-erp/sitechain-erp/internal/masterdata/shared"
)

type Repository interface {
	List(ctx context.Context, filters shared.ListFilters) ([]Vendor, int, error)
	Get(ctx context.Context, id int64) (Vendor, error)
	Create(ctx context.Context, vendor Vendor) (Vendor, error)
	Update(ctx context.Context, id int64, vendor Vendor) error
}

type repository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) Repository {
	return &repository{db: db}
}

const columns = `id, code, name, COALESCE(contact_name,''), COALESCE(phone,''), COALESCE(email,''),
COALESCE(address,''), COALESCE(gstin,''), max_item_qty, max_rate, max_line_value, is_active, created_at, updated_at`

func scan(row pgx.Row) (Vendor, error) {
	var v Vendor
	err := row.Scan(&v.ID, &v.Code, &v.Name, &v.ContactName, &v.Phone, &v.Email,
		&v.Address, &v.GSTIN, &v.MaxItemQty, &v.MaxRate, &v.MaxLineValue, &v.IsActive, &v.CreatedAt, &v.UpdatedAt)
	return v, err
}

func (r *repository) List(ctx context.Context, filters shared.ListFilters) ([]Vendor, int, error) {
	query := `SELECT ` + columns + ` FROM vendors WHERE 1=1`
	countQuery := `SELECT COUNT(*) FROM vendors WHERE 1=1`
	args := []any{}
	argCount := 0

	if filters.Search != "" {
		argCount++
		cond := ` AND (name ILIKE $` + strconv.Itoa(argCount) + ` OR code ILIKE $` + strconv.Itoa(argCount) + `)`
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

	query += ` ORDER BY name LIMIT $` + strconv.Itoa(argCount+1) + ` OFFSET $` + strconv.Itoa(argCount+2)
	args = append(args, filters.Limit, (filters.Page-1)*filters.Limit)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var vendors []Vendor
	for rows.Next() {
		v, err := scan(rows)
		if err != nil {
			return nil, 0, err
		}
		vendors = append(vendors, v)
	}
	return vendors, total, rows.Err()
}

func (r *repository) Get(ctx context.Context, id int64) (Vendor, error) {
	v, err := scan(r.db.QueryRow(ctx, `SELECT `+columns+` FROM vendors WHERE id=$1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Vendor{}, shared.ErrNotFound
	}
	return v, err
}

func (r *repository) Create(ctx context.Context, vendor Vendor) (Vendor, error) {
	err := r.db.QueryRow(ctx, `INSERT INTO vendors
(code, name, contact_name, phone, email, address, gstin, max_item_qty, max_rate, max_line_value, is_active)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11) RETURNING id, created_at, updated_at`,
		vendor.Code, vendor.Name, vendor.ContactName, vendor.Phone, vendor.Email, vendor.Address, vendor.GSTIN,
		vendor.MaxItemQty, vendor.MaxRate, vendor.MaxLineValue, vendor.IsActive).
		Scan(&vendor.ID, &vendor.CreatedAt, &vendor.UpdatedAt)
	return vendor, err
}

func (r *repository) Update(ctx context.Context, id int64, vendor Vendor) error {
	tag, err := r.db.Exec(ctx, `UPDATE vendors SET
code=$2, name=$3, contact_name=$4, phone=$5, email=$6, address=$7, gstin=$8,
max_item_qty=$9, max_rate=$10, max_line_value=$11, is_active=$12, updated_at=NOW()
WHERE id=$1`,
		id, vendor.Code, vendor.Name, vendor.ContactName, vendor.Phone, vendor.Email, vendor.Address, vendor.GSTIN,
		vendor.MaxItemQty, vendor.MaxRate, vendor.MaxLineValue, vendor.IsActive)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}
