package paymentterms

import (
	"context"
	"errors"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sitechain-erp/sitechain-erp/internal/masterdata/shared"
)

type Repository interface {
	List(ctx context.Context, filters shared.ListFilters) ([]Term, int, error)
	Get(ctx context.Context, id int64) (Term, error)
	Create(ctx context.Context, term Term) (Term, error)
	Update(ctx context.Context, id int64, term Term) error
}

type repository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) Repository {
	return &repository{db: db}
}

const columns = `id, code, COALESCE(description,''), due_days, is_active, created_at, updated_at`

func (r *repository) List(ctx context.Context, filters shared.ListFilters) ([]Term, int, error) {
	query := `SELECT ` + columns + ` FROM payment_terms WHERE 1=1`
	countQuery := `SELECT COUNT(*) FROM payment_terms WHERE 1=1`
	args := []any{}
	argCount := 0

	if filters.Search != "" {
		argCount++
		cond := ` AND (code ILIKE $` + strconv.Itoa(argCount) + ` OR description ILIKE $` + strconv.Itoa(argCount) + `)`
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

	query += ` ORDER BY code LIMIT $` + strconv.Itoa(argCount+1) + ` OFFSET $` + strconv.Itoa(argCount+2)
	args = append(args, filters.Limit, (filters.Page-1)*filters.Limit)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var terms []Term
	for rows.Next() {
		var t Term
		if err := rows.Scan(&t.ID, &t.Code, &t.Description, &t.DueDays, &t.IsActive, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, 0, err
		}
		terms = append(terms, t)
	}
	return terms, total, rows.Err()
}

func (r *repository) Get(ctx context.Context, id int64) (Term, error) {
	var t Term
	err := r.db.QueryRow(ctx, `SELECT `+columns+` FROM payment_terms WHERE id=$1`, id).
		Scan(&t.ID, &t.Code, &t.Description, &t.DueDays, &t.IsActive, &t.CreatedAt, &t.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Term{}, shared.ErrNotFound
	}
	return t, err
}

func (r *repository) Create(ctx context.Context, term Term) (Term, error) {
	err := r.db.QueryRow(ctx, `INSERT INTO payment_terms (code, description, due_days, is_active)
VALUES ($1,$2,$3,$4) RETURNING id, created_at, updated_at`,
		term.Code, term.Description, term.DueDays, term.IsActive).
		Scan(&term.ID, &term.CreatedAt, &term.UpdatedAt)
	return term, err
}

func (r *repository) Update(ctx context.Context, id int64, term Term) error {
	tag, err := r.db.Exec(ctx, `UPDATE payment_terms SET code=$2, description=$3, due_days=$4, is_active=$5, updated_at=NOW() WHERE id=$1`,
		id, term.Code, term.Description, term.DueDays, term.IsActive)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}
