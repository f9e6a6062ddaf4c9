// Package loans tracks crockery and crates lent out with orders until the
// customer brings them back.
package loans

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrNotFound = errors.New("loan item not found")

type LoanItem struct {
	ID         int64      `json:"id"`
	OrderID    string     `json:"orderId,omitempty"`
	Customer   string     `json:"customer"`
	Telephone  string     `json:"telephone"`
	Item       string     `json:"item"`
	Count      int        `json:"count"`
	LentAt     time.Time  `json:"lentAt"`
	ReturnedAt *time.Time `json:"returnedAt,omitempty"`
}

type Repo struct{ DB *pgxpool.Pool }

func (r *Repo) Create(ctx context.Context, l *LoanItem) error {
	if l.LentAt.IsZero() {
		l.LentAt = time.Now().UTC()
	}
	return r.DB.QueryRow(ctx, `
		INSERT INTO loan_items (order_id, customer, telephone, item, count, lent_at)
		VALUES ($1,$2,$3,$4,$5,$6) RETURNING id`,
		l.OrderID, l.Customer, l.Telephone, l.Item, l.Count, l.LentAt).Scan(&l.ID)
}

// Outstanding lists loans not yet returned, oldest first.
func (r *Repo) Outstanding(ctx context.Context) ([]LoanItem, error) {
	rows, err := r.DB.Query(ctx, `
		SELECT id, order_id, customer, telephone, item, count, lent_at, returned_at
		FROM loan_items WHERE returned_at IS NULL ORDER BY lent_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []LoanItem
	for rows.Next() {
		var l LoanItem
		if err := rows.Scan(&l.ID, &l.OrderID, &l.Customer, &l.Telephone, &l.Item,
			&l.Count, &l.LentAt, &l.ReturnedAt); err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

func (r *Repo) MarkReturned(ctx context.Context, id int64) error {
	ct, err := r.DB.Exec(ctx,
		`UPDATE loan_items SET returned_at=now() WHERE id=$1 AND returned_at IS NULL`, id)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
