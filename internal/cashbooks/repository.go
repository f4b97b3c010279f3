package cashbooks

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/sitechain-erp/sitechain-erp/internal/platform/db"
)

// Repository provides PostgreSQL backed persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func (r *Repository) Create(ctx context.Context, book Cashbook) (Cashbook, error) {
	err := r.pool.QueryRow(ctx, `INSERT INTO cashbooks (site_id, name, balance)
VALUES ($1, $2, 0) RETURNING id, balance, created_at, updated_at`,
		book.SiteID, book.Name).
		Scan(&book.ID, &book.Balance, &book.CreatedAt, &book.UpdatedAt)
	return book, err
}

func (r *Repository) Get(ctx context.Context, id int64) (Cashbook, error) {
	var book Cashbook
	err := r.pool.QueryRow(ctx, `SELECT id, site_id, name, balance, created_at, updated_at FROM cashbooks WHERE id=$1`, id).
		Scan(&book.ID, &book.SiteID, &book.Name, &book.Balance, &book.CreatedAt, &book.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Cashbook{}, ErrNotFound
	}
	return book, err
}

func (r *Repository) List(ctx context.Context, siteID int64) ([]Cashbook, error) {
	query := `SELECT id, site_id, name, balance, created_at, updated_at FROM cashbooks`
	args := []any{}
	if siteID > 0 {
		query += ` WHERE site_id=$1`
		args = append(args, siteID)
	}
	query += ` ORDER BY name`
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var books []Cashbook
	for rows.Next() {
		var book Cashbook
		if err := rows.Scan(&book.ID, &book.SiteID, &book.Name, &book.Balance, &book.CreatedAt, &book.UpdatedAt); err != nil {
			return nil, err
		}
		books = append(books, book)
	}
	return books, rows.Err()
}

func (r *Repository) Entries(ctx context.Context, cashbookID int64, limit, offset int) ([]Entry, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM cashbook_entries WHERE cashbook_id=$1`, cashbookID).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.pool.Query(ctx, `SELECT id, cashbook_id, kind, amount, balance, COALESCE(narration,''), entry_date, created_at
FROM cashbook_entries WHERE cashbook_id=$1 ORDER BY id DESC LIMIT $2 OFFSET $3`, cashbookID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var entries []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.CashbookID, &e.Kind, &e.Amount, &e.Balance, &e.Narration, &e.EntryDate, &e.CreatedAt); err != nil {
			return nil, 0, err
		}
		entries = append(entries, e)
	}
	return entries, total, rows.Err()
}

// AppendEntry inserts the movement and stores the new balance on the book
// inside one transaction.
func (r *Repository) AppendEntry(ctx context.Context, entry Entry, balance decimal.Decimal) (Entry, error) {
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx, `INSERT INTO cashbook_entries (cashbook_id, kind, amount, balance, narration, entry_date)
VALUES ($1,$2,$3,$4,$5,$6) RETURNING id, created_at`,
			entry.CashbookID, entry.Kind, entry.Amount, entry.Balance, entry.Narration, entry.EntryDate).
			Scan(&entry.ID, &entry.CreatedAt)
		if err != nil {
			return err
		}
		tag, err := tx.Exec(ctx, `UPDATE cashbooks SET balance=$2, updated_at=NOW() WHERE id=$1`, entry.CashbookID, balance)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return ErrNotFound
		}
		return nil
	})
	if err != nil {
		return Entry{}, err
	}
	return entry, nil
}
