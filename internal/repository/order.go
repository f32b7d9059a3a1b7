package repository

import (
	"context"
	"encoding/json"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/storefront/internal/domain/cart"
	"github.com/xenking/storefront/internal/domain/coupon"
	"github.com/xenking/storefront/internal/domain/order"
)

const (
	closeCartSQL = `UPDATE carts SET paid = TRUE WHERE id = $1 AND user_id = $2 AND NOT paid`

	createOrderSQL = `INSERT INTO orders
		(id, user_id, cart_id, lines, subtotal, discount, total, coupon_id, coupon_code, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	incrementCouponUsesSQL = `UPDATE coupons SET uses = uses + 1
		WHERE id = $1 AND (max_uses = 0 OR uses < max_uses)`
)

var _ order.Repository = (*OrderRepository)(nil)

// OrderRepository implements order.Repository backed by PostgreSQL.
type OrderRepository struct {
	pool *pgxpool.Pool
}

// NewOrderRepository returns an OrderRepository that uses the given pool.
func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{pool: pool}
}

// Create closes the order's cart, persists the order and counts the coupon
// use in one transaction. Lines are stored as JSONB. It returns
// cart.ErrNotFound if the cart was already paid and
// coupon.ErrUsageLimitReached if the coupon ran out of uses; the cart stays
// open in both cases.
func (r *OrderRepository) Create(ctx context.Context, o *order.Order) error {
	linesJSON, err := json.Marshal(o.Lines)
	if err != nil {
		return errors.Wrap(err, "marshal order lines")
	}

	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, closeCartSQL, o.CartID, o.UserID)
		if err != nil {
			return errors.Wrap(err, "close cart")
		}
		if tag.RowsAffected() == 0 {
			return cart.ErrNotFound
		}

		var couponID *int64
		if o.CouponID != 0 {
			couponID = &o.CouponID
		}
		if _, err := tx.Exec(ctx, createOrderSQL,
			o.ID, o.UserID, o.CartID, linesJSON, o.Subtotal, o.Discount, o.Total,
			couponID, o.CouponCode, o.CreatedAt,
		); err != nil {
			return errors.Wrapf(err, "insert order %q", o.ID)
		}

		if couponID != nil {
			tag, err := tx.Exec(ctx, incrementCouponUsesSQL, *couponID)
			if err != nil {
				return errors.Wrap(err, "increment coupon uses")
			}
			if tag.RowsAffected() == 0 {
				return coupon.ErrUsageLimitReached
			}
		}
		return nil
	})
}
