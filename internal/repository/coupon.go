package repository

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/storefront/internal/domain/coupon"
)

const (
	couponColumns = `id, code, kind, value, min_amount, expired, valid_from, valid_to, max_uses, uses`

	getCouponByCodeSQL = `SELECT ` + couponColumns + `
		FROM coupons WHERE UPPER(code) = UPPER($1) AND NOT expired`

	getCouponByIDSQL = `SELECT ` + couponColumns + ` FROM coupons WHERE id = $1`

	upsertCouponSQL = `INSERT INTO coupons (code, kind, value, min_amount, expired, valid_from, valid_to, max_uses)
		VALUES (UPPER($1), $2, $3, $4, $5, COALESCE($6, now()), $7, $8)
		ON CONFLICT ((UPPER(code))) DO UPDATE SET
			kind = EXCLUDED.kind,
			value = EXCLUDED.value,
			min_amount = EXCLUDED.min_amount,
			expired = EXCLUDED.expired,
			valid_to = EXCLUDED.valid_to,
			max_uses = EXCLUDED.max_uses
		RETURNING id`
)

var _ coupon.Repository = (*CouponRepository)(nil)

// CouponRepository implements coupon.Repository backed by PostgreSQL.
type CouponRepository struct {
	pool *pgxpool.Pool
}

// NewCouponRepository returns a CouponRepository that uses the given pool.
func NewCouponRepository(pool *pgxpool.Pool) *CouponRepository {
	return &CouponRepository{pool: pool}
}

// FindByCode looks up a non-expired coupon by code, case-insensitively.
// Returns coupon.ErrNotFound when no such coupon exists.
func (r *CouponRepository) FindByCode(ctx context.Context, code string) (*coupon.Rule, error) {
	rows, err := r.pool.Query(ctx, getCouponByCodeSQL, code)
	if err != nil {
		return nil, errors.Wrapf(err, "find coupon %q", code)
	}
	rule, err := pgx.CollectExactlyOneRow(rows, scanCouponRule)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, coupon.ErrNotFound
		}
		return nil, errors.Wrapf(err, "find coupon %q", code)
	}
	return &rule, nil
}

// Upsert inserts or updates a coupon keyed by its uppercased code and sets
// rule.ID. A zero ValidFrom defaults to now on insert.
func (r *CouponRepository) Upsert(ctx context.Context, rule *coupon.Rule) error {
	if err := rule.Validate(); err != nil {
		return errors.Wrapf(err, "coupon %q", rule.Code)
	}
	var validFrom any
	if !rule.ValidFrom.IsZero() {
		validFrom = rule.ValidFrom
	}
	err := r.pool.QueryRow(ctx, upsertCouponSQL,
		rule.Code, string(rule.Kind), rule.Value, rule.MinAmount, rule.Expired,
		validFrom, rule.ValidTo, rule.MaxUses,
	).Scan(&rule.ID)
	if err != nil {
		return errors.Wrapf(err, "upsert coupon %q", rule.Code)
	}
	return nil
}

func couponByID(ctx context.Context, q querier, id int64) (*coupon.Rule, error) {
	rows, err := q.Query(ctx, getCouponByIDSQL, id)
	if err != nil {
		return nil, err
	}
	rule, err := pgx.CollectExactlyOneRow(rows, scanCouponRule)
	if err != nil {
		return nil, err
	}
	return &rule, nil
}

func scanCouponRule(row pgx.CollectableRow) (coupon.Rule, error) {
	var (
		rule coupon.Rule
		kind string
	)
	err := row.Scan(
		&rule.ID, &rule.Code, &kind, &rule.Value, &rule.MinAmount, &rule.Expired,
		&rule.ValidFrom, &rule.ValidTo, &rule.MaxUses, &rule.Uses,
	)
	rule.Kind = coupon.Kind(kind)
	return rule, err
}
