package indents

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
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
	CreateIndent(ctx context.Context, ind Indent) (int64, error)
	InsertLine(ctx context.Context, line Line) (int64, error)
	UpdateStatus(ctx context.Context, id int64, status Status) error
	SetApprovedQty(ctx context.Context, lineID int64, level int, qty decimal.Decimal) error
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

// Get returns one indent with lines and consumption history.
func (r *Repository) Get(ctx context.Context, id int64) (Indent, error) {
	indents, err := r.ListByIDs(ctx, []int64{id})
	if err != nil {
		return Indent{}, err
	}
	if len(indents) == 0 {
		return Indent{}, ErrNotFound
	}
	return indents[0], nil
}

// ListByIDs returns the requested indents with lines and consumption
// history, ordered by indent date then id.
func (r *Repository) ListByIDs(ctx context.Context, ids []int64) ([]Indent, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	rows, err := r.pool.Query(ctx, `SELECT id, ref, number, site_id, indent_date, delivery_date, status, COALESCE(note,'')
FROM indents WHERE id = ANY($1) ORDER BY indent_date, id`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Indent
	for rows.Next() {
		var ind Indent
		if err := rows.Scan(&ind.ID, &ind.Ref, &ind.Number, &ind.SiteID, &ind.Date, &ind.DeliveryDate, &ind.Status, &ind.Note); err != nil {
			return nil, err
		}
		result = append(result, ind)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(result) == 0 {
		return nil, nil
	}

	lineRows, err := r.pool.Query(ctx, `SELECT id, indent_id, item_id, qty, approved1_qty, approved2_qty, COALESCE(remark,'')
FROM indent_lines WHERE indent_id = ANY($1) ORDER BY indent_id, id`, ids)
	if err != nil {
		return nil, err
	}
	defer lineRows.Close()

	var lines []Line
	for lineRows.Next() {
		var line Line
		if err := lineRows.Scan(&line.ID, &line.IndentID, &line.ItemID, &line.Qty, &line.Approved1Qty, &line.Approved2Qty, &line.Remark); err != nil {
			return nil, err
		}
		lines = append(lines, line)
	}
	if err := lineRows.Err(); err != nil {
		return nil, err
	}

	consRows, err := r.pool.Query(ctx, `SELECT x.indent_line_id, x.order_type, x.order_id, x.ordered_qty FROM (
SELECT c.indent_line_id, 'PO' AS order_type, c.po_id AS order_id, c.ordered_qty, c.id
FROM indent_line_pos c JOIN indent_lines l ON l.id = c.indent_line_id WHERE l.indent_id = ANY($1)
UNION ALL
SELECT c.indent_line_id, 'WO' AS order_type, c.wo_id AS order_id, c.ordered_qty, c.id
FROM indent_line_wos c JOIN indent_lines l ON l.id = c.indent_line_id WHERE l.indent_id = ANY($1)
) x ORDER BY x.order_type, x.id`, ids)
	if err != nil {
		return nil, err
	}
	defer consRows.Close()
	var consumed []lineConsumption
	for consRows.Next() {
		var lc lineConsumption
		if err := consRows.Scan(&lc.lineID, &lc.cons.OrderType, &lc.cons.OrderID, &lc.cons.OrderedQty); err != nil {
			return nil, err
		}
		consumed = append(consumed, lc)
	}
	if err := consRows.Err(); err != nil {
		return nil, err
	}
	assembleIndents(result, lines, consumed)
	return result, nil
}

type lineConsumption struct {
	lineID int64
	cons   Consumption
}

// assembleIndents attaches lines to their indents and consumption rows to
// their lines. Consumptions are attached only after every line has been
// appended, since appending can reallocate the Lines backing array.
func assembleIndents(indents []Indent, lines []Line, consumed []lineConsumption) {
	index := make(map[int64]int, len(indents))
	for i := range indents {
		index[indents[i].ID] = i
	}
	type linePos struct{ indent, line int }
	linesAt := make(map[int64]linePos, len(lines))
	for _, line := range lines {
		i, ok := index[line.IndentID]
		if !ok {
			continue
		}
		indents[i].Lines = append(indents[i].Lines, line)
		linesAt[line.ID] = linePos{indent: i, line: len(indents[i].Lines) - 1}
	}
	for _, lc := range consumed {
		pos, ok := linesAt[lc.lineID]
		if !ok {
			continue
		}
		line := &indents[pos.indent].Lines[pos.line]
		line.Consumptions = append(line.Consumptions, lc.cons)
	}
}

func (tx *txRepo) CreateIndent(ctx context.Context, ind Indent) (int64, error) {
	var id int64
	err := tx.tx.QueryRow(ctx, `INSERT INTO indents (ref, number, site_id, indent_date, delivery_date, status, note)
VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id`,
		ind.Ref, ind.Number, ind.SiteID, ind.Date, ind.DeliveryDate, ind.Status, ind.Note).Scan(&id)
	return id, err
}

func (tx *txRepo) InsertLine(ctx context.Context, line Line) (int64, error) {
	var id int64
	err := tx.tx.QueryRow(ctx, `INSERT INTO indent_lines (indent_id, item_id, qty, approved1_qty, approved2_qty, remark)
VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`,
		line.IndentID, line.ItemID, line.Qty, line.Approved1Qty, line.Approved2Qty, line.Remark).Scan(&id)
	return id, err
}

func (tx *txRepo) UpdateStatus(ctx context.Context, id int64, status Status) error {
	tag, err := tx.tx.Exec(ctx, `UPDATE indents SET status=$2 WHERE id=$1`, id, status)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (tx *txRepo) SetApprovedQty(ctx context.Context, lineID int64, level int, qty decimal.Decimal) error {
	column := "approved1_qty"
	if level == 2 {
		column = "approved2_qty"
	}
	tag, err := tx.tx.Exec(ctx, `UPDATE indent_lines SET `+column+`=$2 WHERE id=$1`, lineID, qty)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
