package workorders

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/sitechain-erp/sitechain-erp/internal/pricing"
)

// Repository provides PostgreSQL backed persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// TxRepository exposes transactional operations.
type TxRepository interface {
	CreateWO(ctx context.Context, wo WorkOrder) (int64, error)
	InsertLine(ctx context.Context, line Line) (int64, error)
	DeleteLines(ctx context.Context, woID int64) error
	UpdateLine(ctx context.Context, line Line) error
	UpdateHeader(ctx context.Context, wo WorkOrder) error
	InsertIndentConsumption(ctx context.Context, indentLineID, woID int64, qty decimal.Decimal) error
}

type txRepo struct {
	tx pgx.Tx
}

// WithTx wraps callback in a repeatable-read transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead})
	if err != nil {
		return err
	}
	wrapper := &txRepo{tx: tx}
	if err := fn(ctx, wrapper); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}
	return tx.Commit(ctx)
}

const woColumns = `id, ref, number, vendor_id, site_id, payment_terms_id,
order_date, delivery_date, status, COALESCE(note,''),
handling_charge_status, handling_charge_amount,
gst_reverse_status, gst_reverse_amount,
discount_amount, taxable_amount, cgst_amount, sgst_amount, igst_amount, line_total, charge_amount, grand_total`

func scanWO(row pgx.Row) (WorkOrder, error) {
	var wo WorkOrder
	var hcStatus, grStatus string
	err := row.Scan(
		&wo.ID, &wo.Ref, &wo.Number, &wo.VendorID, &wo.SiteID, &wo.PaymentTermsID,
		&wo.OrderDate, &wo.DeliveryDate, &wo.Status, &wo.Note,
		&hcStatus, &wo.HandlingCharge.Amount,
		&grStatus, &wo.GSTReverseCharge.Amount,
		&wo.Totals.DiscountAmount, &wo.Totals.TaxableAmount, &wo.Totals.CGSTAmount, &wo.Totals.SGSTAmount,
		&wo.Totals.IGSTAmount, &wo.Totals.LineTotal, &wo.Totals.ChargeAmount, &wo.Totals.GrandTotal,
	)
	if err != nil {
		return WorkOrder{}, err
	}
	wo.HandlingCharge.Status = pricing.ChargeStatus(hcStatus)
	wo.GSTReverseCharge.Status = pricing.ChargeStatus(grStatus)
	return wo, nil
}

// Get returns one work order with lines.
func (r *Repository) Get(ctx context.Context, id int64) (WorkOrder, error) {
	wo, err := scanWO(r.pool.QueryRow(ctx, `SELECT `+woColumns+` FROM work_orders WHERE id=$1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return WorkOrder{}, ErrNotFound
		}
		return WorkOrder{}, err
	}
	rows, err := r.pool.Query(ctx, `SELECT id, wo_id, item_id, qty, approved1_qty, approved2_qty, rate,
discount_percent, cgst_percent, sgst_percent, igst_percent,
discount_amount, taxable_amount, cgst_amount, sgst_amount, igst_amount, line_total,
indent_line_id, from_indent, COALESCE(remark,'')
FROM wo_lines WHERE wo_id=$1 ORDER BY id`, id)
	if err != nil {
		return WorkOrder{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var line Line
		if err := rows.Scan(&line.ID, &line.WOID, &line.ItemID, &line.Qty, &line.Approved1Qty, &line.Approved2Qty, &line.Rate,
			&line.DiscountPercent, &line.CGSTPercent, &line.SGSTPercent, &line.IGSTPercent,
			&line.DiscountAmount, &line.TaxableAmount, &line.CGSTAmount, &line.SGSTAmount, &line.IGSTAmount, &line.LineTotal,
			&line.IndentLineID, &line.FromIndent, &line.Remark); err != nil {
			return WorkOrder{}, err
		}
		wo.Lines = append(wo.Lines, line)
	}
	if err := rows.Err(); err != nil {
		return WorkOrder{}, err
	}
	return wo, nil
}

// List returns work order headers matching the filters plus the total row
// count for pagination.
func (r *Repository) List(ctx context.Context, limit, offset int, filters ListFilters) ([]WorkOrder, int, error) {
	where := ` WHERE 1=1`
	args := []any{}
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}
	if filters.Status != "" {
		where += ` AND status = ` + arg(filters.Status)
	}
	if filters.VendorID > 0 {
		where += ` AND vendor_id = ` + arg(filters.VendorID)
	}
	if filters.SiteID > 0 {
		where += ` AND site_id = ` + arg(filters.SiteID)
	}
	if filters.Search != "" {
		where += ` AND number ILIKE ` + arg("%"+filters.Search+"%")
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM work_orders`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + woColumns + ` FROM work_orders` + where +
		` ORDER BY order_date DESC, id DESC LIMIT ` + arg(limit) + ` OFFSET ` + arg(offset)
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var result []WorkOrder
	for rows.Next() {
		wo, err := scanWO(rows)
		if err != nil {
			return nil, 0, err
		}
		result = append(result, wo)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return result, total, nil
}

func (tx *txRepo) CreateWO(ctx context.Context, wo WorkOrder) (int64, error) {
	var id int64
	err := tx.tx.QueryRow(ctx, `INSERT INTO work_orders
(ref, number, vendor_id, site_id, payment_terms_id, order_date, delivery_date, status, note,
 handling_charge_status, handling_charge_amount, gst_reverse_status, gst_reverse_amount,
 discount_amount, taxable_amount, cgst_amount, sgst_amount, igst_amount, line_total, charge_amount, grand_total)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21)
RETURNING id`,
		wo.Ref, wo.Number, wo.VendorID, wo.SiteID, wo.PaymentTermsID,
		wo.OrderDate, wo.DeliveryDate, wo.Status, wo.Note,
		string(wo.HandlingCharge.Status), wo.HandlingCharge.Amount,
		string(wo.GSTReverseCharge.Status), wo.GSTReverseCharge.Amount,
		wo.Totals.DiscountAmount, wo.Totals.TaxableAmount, wo.Totals.CGSTAmount, wo.Totals.SGSTAmount,
		wo.Totals.IGSTAmount, wo.Totals.LineTotal, wo.Totals.ChargeAmount, wo.Totals.GrandTotal,
	).Scan(&id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.ConstraintName == "uq_wo_number" {
			return 0, fmt.Errorf("%w: number %s already exists", ErrValidation, wo.Number)
		}
		return 0, err
	}
	return id, nil
}

func (tx *txRepo) InsertLine(ctx context.Context, line Line) (int64, error) {
	var id int64
	err := tx.tx.QueryRow(ctx, `INSERT INTO wo_lines
(wo_id, item_id, qty, approved1_qty, approved2_qty, rate, discount_percent, cgst_percent, sgst_percent, igst_percent,
 discount_amount, taxable_amount, cgst_amount, sgst_amount, igst_amount, line_total, indent_line_id, from_indent, remark)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19)
RETURNING id`,
		line.WOID, line.ItemID, line.Qty, line.Approved1Qty, line.Approved2Qty, line.Rate,
		line.DiscountPercent, line.CGSTPercent, line.SGSTPercent, line.IGSTPercent,
		line.DiscountAmount, line.TaxableAmount, line.CGSTAmount, line.SGSTAmount, line.IGSTAmount, line.LineTotal,
		line.IndentLineID, line.FromIndent, line.Remark,
	).Scan(&id)
	return id, err
}

func (tx *txRepo) DeleteLines(ctx context.Context, woID int64) error {
	_, err := tx.tx.Exec(ctx, `DELETE FROM wo_lines WHERE wo_id=$1`, woID)
	return err
}

func (tx *txRepo) UpdateLine(ctx context.Context, line Line) error {
	tag, err := tx.tx.Exec(ctx, `UPDATE wo_lines SET
approved1_qty=$2, approved2_qty=$3,
discount_amount=$4, taxable_amount=$5, cgst_amount=$6, sgst_amount=$7, igst_amount=$8, line_total=$9
WHERE id=$1`,
		line.ID, line.Approved1Qty, line.Approved2Qty,
		line.DiscountAmount, line.TaxableAmount, line.CGSTAmount, line.SGSTAmount, line.IGSTAmount, line.LineTotal)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (tx *txRepo) UpdateHeader(ctx context.Context, wo WorkOrder) error {
	tag, err := tx.tx.Exec(ctx, `UPDATE work_orders SET
delivery_date=$2, status=$3, note=$4,
handling_charge_status=$5, handling_charge_amount=$6,
gst_reverse_status=$7, gst_reverse_amount=$8,
discount_amount=$9, taxable_amount=$10, cgst_amount=$11, sgst_amount=$12, igst_amount=$13,
line_total=$14, charge_amount=$15, grand_total=$16
WHERE id=$1`,
		wo.ID, wo.DeliveryDate, wo.Status, wo.Note,
		string(wo.HandlingCharge.Status), wo.HandlingCharge.Amount,
		string(wo.GSTReverseCharge.Status), wo.GSTReverseCharge.Amount,
		wo.Totals.DiscountAmount, wo.Totals.TaxableAmount, wo.Totals.CGSTAmount, wo.Totals.SGSTAmount,
		wo.Totals.IGSTAmount, wo.Totals.LineTotal, wo.Totals.ChargeAmount, wo.Totals.GrandTotal)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (tx *txRepo) InsertIndentConsumption(ctx context.Context, indentLineID, woID int64, qty decimal.Decimal) error {
	_, err := tx.tx.Exec(ctx, `INSERT INTO indent_line_wos (indent_line_id, wo_id, ordered_qty) VALUES ($1, $2, $3)`,
		indentLineID, woID, qty)
	return err
}
