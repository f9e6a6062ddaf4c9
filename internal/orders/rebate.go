package orders

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type RebateType string

// The effect set is closed; anything else stored in the table is ignored at
// pricing time.
const (
	// RebatePercent takes Amount percent off the food cost (and its VAT).
	RebatePercent RebateType = "percent"
	// RebateFreeZone3 waives the delivery charge for zone-3 recipients.
	RebateFreeZone3 RebateType = "freezone3"
	// RebateCostPrice rebills the food lines at internal cost price.
	RebateCostPrice RebateType = "costprice"
)

type RebateCode struct {
	Code    string     `json:"code"` // stored uppercase, unique
	Type    RebateType `json:"type"`
	Amount  int64      `json:"amount,omitempty"` // percent for RebatePercent
	Active  bool       `json:"active"`
	Created time.Time  `json:"created"`
	Expires time.Time  `json:"expires"`
}

// Usable reports whether the code should have any effect at pricing time.
func (rc RebateCode) Usable(now time.Time) bool {
	return rc.Active && now.Before(rc.Expires)
}

var ErrRebateNotFound = errors.New("rebate code not found")

// RebateLookup resolves a code string to its record. Pricing tolerates
// ErrRebateNotFound (the code is skipped); any other error is fatal.
type RebateLookup interface {
	Code(ctx context.Context, code string) (RebateCode, error)
}

type RebateRepo struct{ DB *pgxpool.Pool }

func (r *RebateRepo) Code(ctx context.Context, code string) (RebateCode, error) {
	var rc RebateCode
	err := r.DB.QueryRow(ctx, `
		SELECT code, type, amount, active, created, expires
		FROM rebate_codes WHERE code=$1`, strings.ToUpper(code)).
		Scan(&rc.Code, &rc.Type, &rc.Amount, &rc.Active, &rc.Created, &rc.Expires)
	if errors.Is(err, pgx.ErrNoRows) {
		return RebateCode{}, ErrRebateNotFound
	}
	if err != nil {
		return RebateCode{}, err
	}
	return rc, nil
}

func (r *RebateRepo) Create(ctx context.Context, rc RebateCode) error {
	_, err := r.DB.Exec(ctx, `
		INSERT INTO rebate_codes (code, type, amount, active, created, expires)
		VALUES ($1,$2,$3,$4,now(),$5)`,
		strings.ToUpper(rc.Code), rc.Type, rc.Amount, rc.Active, rc.Expires)
	return err
}

func (r *RebateRepo) Deactivate(ctx context.Context, code string) error {
	ct, err := r.DB.Exec(ctx,
		`UPDATE rebate_codes SET active=false WHERE code=$1`, strings.ToUpper(code))
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return ErrRebateNotFound
	}
	return nil
}

func (r *RebateRepo) List(ctx context.Context) ([]RebateCode, error) {
	rows, err := r.DB.Query(ctx, `
		SELECT code, type, amount, active, created, expires
		FROM rebate_codes ORDER BY created DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []RebateCode
	for rows.Next() {
		var rc RebateCode
		if err := rows.Scan(&rc.Code, &rc.Type, &rc.Amount, &rc.Active, &rc.Created, &rc.Expires); err != nil {
			return nil, err
		}
		out = append(out, rc)
	}
	return out, rows.Err()
}
