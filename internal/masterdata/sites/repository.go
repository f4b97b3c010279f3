package sites

import (
	"context"
	"errors"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sitechain-erp/sitechain-erp/internal/masterdata/shared"
)

type Repository interface {
	List(ctx context.Context, filters shared.ListFilters) ([]Site, int, error)
	Get(ctx context.Context, id int64) (Site, error)
	Create(ctx context.Context, site Site) (Site, error)
	Update(ctx context.Context, id int64, site Site) error
}

type repository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) Repository {
	return &repository{db: db}
}

const columns = `id, code, name, COALESCE(address,''), COALESCE(city,''), COALESCE(state,''), COALESCE(gstin,''), is_active, created_at, updated_at`

func (r *repository) List(ctx context.Context, filters shared.ListFilters) ([]Site, int, error) {
	query := `SELECT ` + columns + ` FROM sites WHERE 1=1`
	countQuery := `SELECT COUNT(*) FROM sites WHERE 1=1`
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

	var sites []Site
	for rows.Next() {
		var s Site
		if err := rows.Scan(&s.ID, &s.Code, &s.Name, &s.Address, &s.City, &s.State, &s.GSTIN, &s.IsActive, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, 0, err
		}
		sites = append(sites, s)
	}
	return sites, total, rows.Err()
}

func (r *repository) Get(ctx context.Context, id int64) (Site, error) {
	var s Site
	err := r.db.QueryRow(ctx, `SELECT `+columns+` FROM sites WHERE id=$1`, id).
		Scan(&s.ID, &s.Code, &s.Name, &s.Address, &s.City, &s.State, &s.GSTIN, &s.IsActive, &s.CreatedAt, &s.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Site{}, shared.ErrNotFound
	}
	return s, err
}

func (r *repository) Create(ctx context.Context, site Site) (Site, error) {
	err := r.db.QueryRow(ctx, `INSERT INTO sites (code, name, address, city, state, gstin, is_active)
VALUES ($1,$2,$3,$4,$5,$6,$7) RETURNING id, created_at, updated_at`,
		site.Code, site.Name, site.Address, site.City, site.State, site.GSTIN, site.IsActive).
		Scan(&site.ID, &site.CreatedAt, &site.UpdatedAt)
	return site, err
}

func (r *repository) Update(ctx context.Context, id int64, site Site) error {
	tag, err := r.db.Exec(ctx, `UPDATE sites SET code=$2, name=$3, address=$4, city=$5, state=$6, gstin=$7, is_active=$8, updated_at=NOW() WHERE id=$1`,
		id, site.Code, site.Name, site.Address, site.City, site.State, site.GSTIN, site.IsActive)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}
