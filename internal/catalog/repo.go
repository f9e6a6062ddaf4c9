package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrNotFound = errors.New("product not found")

// Lookup is what the pricing engine needs from the catalog. The pgx-backed
// Repo implements it; tests use an in-memory map.
type Lookup interface {
	Product(ctx context.Context, id string) (Product, error)
}

type Repo struct{ DB *pgxpool.Pool }

func (r *Repo) Product(ctx context.Context, id string) (Product, error) {
	var p Product
	var delivery []byte
	err := r.DB.QueryRow(ctx, `
		SELECT id, name, gross_price, moms_rate, moms_amount, net_price, cost_price,
		       delivery, created_at, updated_at
		FROM products WHERE id=$1`, id).
		Scan(&p.ID, &p.Name, &p.GrossPrice, &p.MomsRate, &p.MomsAmount, &p.NetPrice,
			&p.CostPrice, &delivery, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Product{}, ErrNotFound
	}
	if err != nil {
		return Product{}, err
	}
	if err := json.Unmarshal(delivery, &p.Delivery); err != nil {
		return Product{}, fmt.Errorf("decode delivery table for %s: %w", id, err)
	}
	return p, nil
}

func (r *Repo) List(ctx context.Context) ([]Product, error) {
	rows, err := r.DB.Query(ctx, `
		SELECT id, name, gross_price, moms_rate, moms_amount, net_price, cost_price,
		       delivery, created_at, updated_at
		FROM products ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Product
	for rows.Next() {
		var p Product
		var delivery []byte
		if err := rows.Scan(&p.ID, &p.Name, &p.GrossPrice, &p.MomsRate, &p.MomsAmount,
			&p.NetPrice, &p.CostPrice, &delivery, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(delivery, &p.Delivery); err != nil {
			return nil, fmt.Errorf("decode delivery table for %s: %w", p.ID, err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// Upsert recomputes derived fields and writes the product. Orders snapshot
// name and price at placement time, so editing a product never rewrites
// history.
func (r *Repo) Upsert(ctx context.Context, p *Product) error {
	p.Normalize()
	delivery, err := json.Marshal(p.Delivery)
	if err != nil {
		return err
	}
	_, err = r.DB.Exec(ctx, `
		INSERT INTO products (id, name, gross_price, moms_rate, moms_amount, net_price,
		                      cost_price, delivery, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,now(),now())
		ON CONFLICT (id) DO UPDATE SET
			name=$2, gross_price=$3, moms_rate=$4, moms_amount=$5, net_price=$6,
			cost_price=$7, delivery=$8, updated_at=now()`,
		p.ID, p.Name, p.GrossPrice, p.MomsRate, p.MomsAmount, p.NetPrice,
		p.CostPrice, delivery)
	return err
}

func (r *Repo) Remove(ctx context.Context, id string) error {
	ct, err := r.DB.Exec(ctx, `DELETE FROM products WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
