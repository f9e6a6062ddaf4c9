package orders

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Store persists orders as JSONB documents with a few extracted columns for
// filtering. The document is the source of truth; columns are kept in sync on
// every write so list queries never have to unpack JSON.
type Store struct{ DB *pgxpool.Pool }

// Filter selects orders for list and reporting queries.
type Filter struct {
	DateCode         string // exact year-week-weekday code
	DatePrefix       string // e.g. "2026-35" for a whole week
	ExcludeCancelled bool
	ExcludeType      DeliveryType
}

// Insert writes a new order. Idempotent on checkout id: a retried checkout
// returns the already-stored order with existed=true instead of inserting a
// duplicate.
func (s *Store) Insert(ctx context.Context, o *Order) (existed bool, err error) {
	var doc []byte
	row := s.DB.QueryRow(ctx, `SELECT doc FROM orders WHERE checkout_id=$1`, o.CheckoutID)
	if err = row.Scan(&doc); err == nil {
		var existing Order
		if err := json.Unmarshal(doc, &existing); err != nil {
			return false, err
		}
		*o = existing
		return true, nil
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return false, err
	}

	doc, err = json.Marshal(o)
	if err != nil {
		return false, err
	}
	ct, err := s.DB.Exec(ctx, `
		INSERT INTO orders (id, checkout_id, delivery_date, delivery_type, payment_status, doc, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
		ON CONFLICT (checkout_id) DO NOTHING`,
		o.ID, o.CheckoutID, o.Delivery.Date.String(), o.Delivery.Type,
		o.Payment.Status, doc, o.CreatedAt)
	if err != nil {
		return false, err
	}
	if ct.RowsAffected() == 0 {
		// lost the race to a concurrent retry of the same checkout
		row := s.DB.QueryRow(ctx, `SELECT doc FROM orders WHERE checkout_id=$1`, o.CheckoutID)
		if err := row.Scan(&doc); err != nil {
			return false, err
		}
		var existing Order
		if err := json.Unmarshal(doc, &existing); err != nil {
			return false, err
		}
		*o = existing
		return true, nil
	}
	return false, nil
}

func (s *Store) GetByID(ctx context.Context, id string) (*Order, error) {
	var doc []byte
	err := s.DB.QueryRow(ctx, `SELECT doc FROM orders WHERE id=$1`, id).Scan(&doc)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	var o Order
	if err := json.Unmarshal(doc, &o); err != nil {
		return nil, err
	}
	return &o, nil
}

func (s *Store) Remove(ctx context.Context, id string) error {
	ct, err := s.DB.Exec(ctx, `DELETE FROM orders WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// List returns matching orders sorted by (delivery date, insertion order).
func (s *Store) List(ctx context.Context, f Filter) ([]Order, error) {
	q := `SELECT doc FROM orders WHERE 1=1`
	var args []any
	n := 0
	arg := func(v any) string {
		n++
		args = append(args, v)
		return fmt.Sprintf("$%d", n)
	}
	if f.DateCode != "" {
		q += ` AND delivery_date = ` + arg(f.DateCode)
	}
	if f.DatePrefix != "" {
		q += ` AND delivery_date LIKE ` + arg(f.DatePrefix+"%")
	}
	if f.ExcludeCancelled {
		q += ` AND payment_status <> ` + arg(string(StatusCancelled))
	}
	if f.ExcludeType != "" {
		q += ` AND delivery_type <> ` + arg(string(f.ExcludeType))
	}
	q += ` ORDER BY delivery_date, seq`

	rows, err := s.DB.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Order
	for rows.Next() {
		var doc []byte
		if err := rows.Scan(&doc); err != nil {
			return nil, err
		}
		var o Order
		if err := json.Unmarshal(doc, &o); err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

// update reads a document under lock, applies fn and writes it back with its
// filter columns in the same transaction.
func (s *Store) update(ctx context.Context, tx pgx.Tx, id string, fn func(*Order) error) error {
	var doc []byte
	err := tx.QueryRow(ctx, `SELECT doc FROM orders WHERE id=$1 FOR UPDATE`, id).Scan(&doc)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	var o Order
	if err := json.Unmarshal(doc, &o); err != nil {
		return err
	}
	if err := fn(&o); err != nil {
		return err
	}
	doc, err = json.Marshal(&o)
	if err != nil {
		return err
	}
	_, err = tx.Exec(ctx, `
		UPDATE orders SET doc=$2, delivery_date=$3, delivery_type=$4, payment_status=$5
		WHERE id=$1`,
		id, doc, o.Delivery.Date.String(), o.Delivery.Type, o.Payment.Status)
	return err
}

func (s *Store) updateOne(ctx context.Context, id string, fn func(*Order) error) error {
	tx, err := s.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()
	if err := s.update(ctx, tx, id, fn); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// SetPaymentStatus applies a state-machine transition; illegal moves fail
// with ErrBadTransition and change nothing.
func (s *Store) SetPaymentStatus(ctx context.Context, id string, to Status) error {
	return s.updateOne(ctx, id, func(o *Order) error {
		if !CanTransition(o.Payment.Status, to) {
			return fmt.Errorf("%s -> %s: %w", o.Payment.Status, to, ErrBadTransition)
		}
		o.Payment.Status = to
		return nil
	})
}

// AppendRefund records a refund on a Swish payment. It never touches the
// payment status; cancellation is a separate explicit action.
func (s *Store) AppendRefund(ctx context.Context, id string, ref Refund) error {
	return s.updateOne(ctx, id, func(o *Order) error {
		if o.Payment.Swish == nil {
			return fmt.Errorf("order %s has no swish payment", id)
		}
		if ref.Timestamp.IsZero() {
			ref.Timestamp = time.Now().UTC()
		}
		o.Payment.Swish.Refunds = append(o.Payment.Swish.Refunds, ref)
		return nil
	})
}

func (s *Store) SetRecipientMessage(ctx context.Context, id, recipientID, sms string) error {
	return s.updateOne(ctx, id, func(o *Order) error {
		for i := range o.Recipients {
			if o.Recipients[i].ID == recipientID {
				o.Recipients[i].Delivery.SMS = sms
				return nil
			}
		}
		return fmt.Errorf("recipient %s not on order %s: %w", recipientID, id, ErrNotFound)
	})
}

// NextDeliverySequence hands out run sequence numbers from a dedicated
// counter row, so concurrent checkouts can never grab the same number.
func (s *Store) NextDeliverySequence(ctx context.Context) (int64, error) {
	var v int64
	err := s.DB.QueryRow(ctx,
		`UPDATE delivery_sequence SET value = value + 1 WHERE id = 1 RETURNING value`).Scan(&v)
	return v, err
}

// SwapDeliverySequence exchanges the run positions of two recipients, who may
// live on different orders. Both documents are updated in one transaction;
// locks are taken in id order to keep concurrent swaps deadlock-free.
func (s *Store) SwapDeliverySequence(ctx context.Context, orderA, recA, orderB, recB string) error {
	tx, err := s.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if orderA == orderB {
		err = s.update(ctx, tx, orderA, func(o *Order) error {
			a, b := findRecipient(o, recA), findRecipient(o, recB)
			if a == nil || b == nil {
				return fmt.Errorf("recipient not on order %s: %w", orderA, ErrNotFound)
			}
			a.Delivery.Order, b.Delivery.Order = b.Delivery.Order, a.Delivery.Order
			return nil
		})
		if err != nil {
			return err
		}
		return tx.Commit(ctx)
	}

	first, firstRec, second, secondRec := orderA, recA, orderB, recB
	if second < first {
		first, firstRec, second, secondRec = orderB, recB, orderA, recA
	}

	var firstSeq int64
	if err := s.update(ctx, tx, first, func(o *Order) error {
		r := findRecipient(o, firstRec)
		if r == nil {
			return fmt.Errorf("recipient %s not on order %s: %w", firstRec, first, ErrNotFound)
		}
		firstSeq = r.Delivery.Order
		return nil
	}); err != nil {
		return err
	}

	var secondSeq int64
	if err := s.update(ctx, tx, second, func(o *Order) error {
		r := findRecipient(o, secondRec)
		if r == nil {
			return fmt.Errorf("recipient %s not on order %s: %w", secondRec, second, ErrNotFound)
		}
		secondSeq = r.Delivery.Order
		r.Delivery.Order = firstSeq
		return nil
	}); err != nil {
		return err
	}

	if err := s.update(ctx, tx, first, func(o *Order) error {
		findRecipient(o, firstRec).Delivery.Order = secondSeq
		return nil
	}); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func findRecipient(o *Order, id string) *Recipient {
	for i := range o.Recipients {
		if o.Recipients[i].ID == id {
			return &o.Recipients[i]
		}
	}
	return nil
}

// RecipientRows fetches matching orders and flattens them into the
// delivery-run view.
func (s *Store) RecipientRows(ctx context.Context, f Filter) ([]RecipientRow, error) {
	os, err := s.List(ctx, f)
	if err != nil {
		return nil, err
	}
	return RecipientRows(os), nil
}

// WeeklyTotals fetches matching orders and folds them into per-day
// production totals. Cancelled orders are excluded by the fold itself.
func (s *Store) WeeklyTotals(ctx context.Context, f Filter) ([]DayTotal, error) {
	os, err := s.List(ctx, f)
	if err != nil {
		return nil, err
	}
	return WeeklyTotals(os), nil
}

// HighestDeliverySequence reports the largest assigned run sequence across
// all non-collection orders.
func (s *Store) HighestDeliverySequence(ctx context.Context) (int64, error) {
	os, err := s.List(ctx, Filter{ExcludeType: TypeCollection})
	if err != nil {
		return 0, err
	}
	return HighestDeliverySequence(os), nil
}
