package purchasing

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

func pricingStatus(s string) pricing.ChargeStatus {
	return pricing.ChargeStatus(s)
}

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
	CreatePO(ctx context.Context, po PurchaseOrder) (int64, error)
	InsertLine(ctx context.Context, line Line) (int64, error)
	DeleteLines(ctx context.Context, poID int64) error
	UpdateLine(ctx context.Context, line Line) error
	UpdateHeader(ctx context.Context, po PurchaseOrder) error
	InsertIndentConsumption(ctx context.Context, indentLineID, poID int64, qty decimal.Decimal) error
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

const poColumns = `id, ref, number, vendor_id, site_id, billing_address_id, payment_terms_id,
order_date, delivery_date, status, COALESCE(note,''),
transit_insurance_status, transit_insurance_amount,
handling_charge_status, handling_charge_amount,
gst_reverse_status, gst_reverse_amount,
discount_amount, taxable_amount, cgst_amount, sgst_amount, igst_amount, line_total, charge_amount, grand_total`

func scanPO(row pgx.Row) (PurchaseOrder, error) {
	var po PurchaseOrder
	var tiStatus, hcStatus, grStatus string
	err := row.Scan(
		&po.ID, &po.Ref, &po.Number, &po.VendorID, &po.SiteID, &po.BillingAddressID, &po.PaymentTermsID,
		&po.OrderDate, &po.DeliveryDate, &po.Status, &po.Note,
		&tiStatus, &po.TransitInsurance.Amount,
		&hcStatus, &po.HandlingCharge.Amount,
		&grStatus, &po.GSTReverseCharge.Amount,
		&po.Totals.DiscountAmount, &po.Totals.TaxableAmount, &po.Totals.CGSTAmount, &po.Totals.SGSTAmount,
		&po.Totals.IGSTAmount, &po.Totals.LineTotal, &po.Totals.ChargeAmount, &po.Totals.GrandTotal,
	)
	if err != nil {
		return PurchaseOrder{}, err
	}
	po.TransitInsurance.Status = pricingStatus(tiStatus)
	po.HandlingCharge.Status = pricingStatus(hcStatus)
	po.GSTReverseCharge.Status = pricingStatus(grStatus)
	return po, nil
}

// Get returns one purchase order with lines.
func (r *Repository) Get(ctx context.Context, id int64) (PurchaseOrder, error) {
	po, err := scanPO(r.pool.QueryRow(ctx, `SELECT `+poColumns+` FROM purchase_orders WHERE id=$1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return PurchaseOrder{}, ErrNotFound
		}
		return PurchaseOrder{}, err
	}
	rows, err := r.pool.Query(ctx, `SELECT id, po_id, item_id, qty, approved1_qty, approved2_qty, rate,
discount_percent, cgst_percent, sgst_percent, igst_percent,
discount_amount, taxable_amount, cgst_amount, sgst_amount, igst_amount, line_total,
indent_line_id, from_indent, COALESCE(remark,'')
FROM po_lines WHERE po_id=$1 ORDER BY id`, id)
	if err != nil {
		return PurchaseOrder{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var line Line
		if err := rows.Scan(&line.ID, &line.POID, &line.ItemID, &line.Qty, &line.Approved1Qty, &line.Approved2Qty, &line.Rate,
			&line.DiscountPercent, &line.CGSTPercent, &line.SGSTPercent, &line.IGSTPercent,
			&line.DiscountAmount, &line.TaxableAmount, &line.CGSTAmount, &line.SGSTAmount, &line.IGSTAmount, &line.LineTotal,
			&line.IndentLineID, &line.FromIndent, &line.Remark); err != nil {
			return PurchaseOrder{}, err
		}
		po.Lines = append(po.Lines, line)
	}
	if err := rows.Err(); err != nil {
		return PurchaseOrder{}, err
	}
	return po, nil
}

// List returns purchase order headers matching the filters plus the total
// row count for pagination.
func (r *Repository) List(ctx context.Context, limit, offset int, filters ListFilters) ([]PurchaseOrder, int, error) {
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
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM purchase_orders`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + poColumns + ` FROM purchase_orders` + where +
		` ORDER BY order_date DESC, id DESC LIMIT ` + arg(limit) + ` OFFSET ` + arg(offset)
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var result []PurchaseOrder
	for rows.Next() {
		po, err := scanPO(rows)
		if err != nil {
			return nil, 0, err
		}
		result = append(result, po)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return result, total, nil
}

func (tx *txRepo) CreatePO(ctx context.Context, po PurchaseOrder) (int64, error) {
	var id int64
	err := tx.tx.QueryRow(ctx, `INSERT INTO purchase_orders
(ref, number, vendor_id, site_id, billing_address_id, payment_terms_id, order_date, delivery_date, status, note,
 transit_insurance_status, transit_insurance_amount, handling_charge_status, handling_charge_amount,
 gst_reverse_status, gst_reverse_amount,
 discount_amount, taxable_amount, cgst_amount, sgst_amount, igst_amount, line_total, charge_amount, grand_total)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21,$22,$23,$24)
RETURNING id`,
		po.Ref, po.Number, po.VendorID, po.SiteID, po.BillingAddressID, po.PaymentTermsID,
		po.OrderDate, po.DeliveryDate, po.Status, po.Note,
		string(po.TransitInsurance.Status), po.TransitInsurance.Amount,
		string(po.HandlingCharge.Status), po.HandlingCharge.Amount,
		string(po.GSTReverseCharge.Status), po.GSTReverseCharge.Amount,
		po.Totals.DiscountAmount, po.Totals.TaxableAmount, po.Totals.CGSTAmount, po.Totals.SGSTAmount,
		po.Totals.IGSTAmount, po.Totals.LineTotal, po.Totals.ChargeAmount, po.Totals.GrandTotal,
	).Scan(&id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.ConstraintName == "uq_po_number" {
			return 0, fmt.Errorf("%w: number %s already exists", ErrValidation, po.Number)
		}
		return 0, err
	}
	return id, nil
}

func (tx *txRepo) InsertLine(ctx context.Context, line Line) (int64, error) {
	var id int64
	err := tx.tx.QueryRow(ctx, `INSERT INTO po_lines
(po_id, item_id, qty, approved1_qty, approved2_qty, rate, discount_percent, cgst_percent, sgst_percent, igst_percent,
 discount_amount, taxable_amount, cgst_amount, sgst_amount, igst_amount, line_total, indent_line_id, from_indent, remark)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19)
RETURNING id`,
		line.POID, line.ItemID, line.Qty, line.Approved1Qty, line.Approved2Qty, line.Rate,
		line.DiscountPercent, line.CGSTPercent, line.SGSTPercent, line.IGSTPercent,
		line.DiscountAmount, line.TaxableAmount, line.CGSTAmount, line.SGSTAmount, line.IGSTAmount, line.LineTotal,
		line.IndentLineID, line.FromIndent, line.Remark,
	).Scan(&id)
	return id, err
}

func (tx *txRepo) DeleteLines(ctx context.Context, poID int64) error {
	_, err := tx.tx.Exec(ctx, `DELETE FROM po_lines WHERE po_id=$1`, poID)
	return err
}

func (tx *txRepo) UpdateLine(ctx context.Context, line Line) error {
	tag, err := tx.tx.Exec(ctx, `UPDATE po_lines SET
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

func (tx *txRepo) UpdateHeader(ctx context.Context, po PurchaseOrder) error {
	tag, err := tx.tx.Exec(ctx, `UPDATE purchase_orders SET
delivery_date=$2, status=$3, note=$4,
transit_insurance_status=$5, transit_insurance_amount=$6,
handling_charge_status=$7, handling_charge_amount=$8,
gst_reverse_status=$9, gst_reverse_amount=$10,
discount_amount=$11, taxable_amount=$12, cgst_amount=$13, sgst_amount=$14, igst_amount=$15,
line_total=$16, charge_amount=$17, grand_total=$18
WHERE id=$1`,
		po.ID, po.DeliveryDate, po.Status, po.Note,
		string(po.TransitInsurance.Status), po.TransitInsurance.Amount,
		string(po.HandlingCharge.Status), po.HandlingCharge.Amount,
		string(po.GSTReverseCharge.Status), po.GSTReverseCharge.Amount,
		po.Totals.DiscountAmount, po.Totals.TaxableAmount, po.Totals.CGSTAmount, po.Totals.SGSTAmount,
		po.Totals.IGSTAmount, po.Totals.LineTotal, po.Totals.ChargeAmount, po.Totals.GrandTotal)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (tx *txRepo) InsertIndentConsumption(ctx context.Context, indentLineID, poID int64, qty decimal.Decimal) error {
	_, err := tx.tx.Exec(ctx, `INSERT INTO indent_line_pos (indent_line_id, po_id, ordered_qty) VALUES ($1, $2, $3)`,
		indentLineID, poID, qty)
	return err
}
