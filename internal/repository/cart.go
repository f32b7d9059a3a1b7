package repository

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/xenking/storefront/internal/domain/cart"
	"github.com/xenking/storefront/internal/domain/product"
)

const (
	createOpenCartSQL = `INSERT INTO carts (user_id) VALUES ($1)
		ON CONFLICT (user_id) WHERE NOT paid DO NOTHING`

	findOpenCartSQL = `SELECT id, user_id, coupon_id FROM carts WHERE user_id = $1 AND NOT paid`

	itemColumns = `ci.id, ci.cart_id, ci.quantity,
		p.id, p.name, p.slug, p.price,
		co.id, co.name, co.price,
		sz.id, sz.name, sz.price
		FROM cart_items ci
		JOIN products p ON p.id = ci.product_id
		LEFT JOIN colors co ON co.id = ci.color_id
		LEFT JOIN sizes sz ON sz.id = ci.size_id`

	listCartItemsSQL = `SELECT ` + itemColumns + ` WHERE ci.cart_id = $1 ORDER BY ci.id`

	findOwnedItemSQL = `SELECT ` + itemColumns + `
		JOIN carts c ON c.id = ci.cart_id
		WHERE ci.id = $2 AND c.user_id = $1 AND NOT c.paid`

	insertCartItemSQL = `INSERT INTO cart_items (cart_id, product_id, color_id, size_id, quantity)
		SELECT $1, $2, $3, $4, $5
		WHERE EXISTS (SELECT 1 FROM carts WHERE id = $1 AND NOT paid)
		RETURNING id`

	updateItemQuantitySQL = `UPDATE cart_items SET quantity = $2
		WHERE id = $1 AND cart_id IN (SELECT id FROM carts WHERE NOT paid)`

	deleteItemSQL = `DELETE FROM cart_items
		WHERE id = $1 AND cart_id IN (SELECT id FROM carts WHERE NOT paid)`

	setCartCouponSQL = `UPDATE carts SET coupon_id = $2 WHERE id = $1 AND NOT paid`
)

var _ cart.Repository = (*CartRepository)(nil)

// CartRepository implements cart.Repository backed by PostgreSQL. Every
// statement that touches items is restricted to unpaid carts.
type CartRepository struct {
	pool *pgxpool.Pool
}

// NewCartRepository returns a CartRepository that uses the given pool.
func NewCartRepository(pool *pgxpool.Pool) *CartRepository {
	return &CartRepository{pool: pool}
}

// GetOrCreateOpen returns the user's unpaid cart, inserting one if needed.
// Concurrent creators converge on the same row through the partial unique
// index on open carts.
func (r *CartRepository) GetOrCreateOpen(ctx context.Context, userID int64) (*cart.Cart, error) {
	if _, err := r.pool.Exec(ctx, createOpenCartSQL, userID); err != nil {
		return nil, errors.Wrap(err, "create open cart")
	}
	return r.FindOpen(ctx, userID)
}

// FindOpen returns the user's unpaid cart with its items and coupon.
func (r *CartRepository) FindOpen(ctx context.Context, userID int64) (*cart.Cart, error) {
	var (
		c        cart.Cart
		couponID *int64
	)
	err := r.pool.QueryRow(ctx, findOpenCartSQL, userID).Scan(&c.ID, &c.UserID, &couponID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, cart.ErrNotFound
		}
		return nil, errors.Wrap(err, "find open cart")
	}

	if couponID != nil {
		rule, err := couponByID(ctx, r.pool, *couponID)
		if err != nil {
			return nil, errors.Wrapf(err, "cart coupon %d", *couponID)
		}
		c.Coupon = rule
	}

	rows, err := r.pool.Query(ctx, listCartItemsSQL, c.ID)
	if err != nil {
		return nil, errors.Wrap(err, "list cart items")
	}
	c.Items, err = pgx.CollectRows(rows, scanCartItem)
	if err != nil {
		return nil, errors.Wrap(err, "scan cart items")
	}
	return &c, nil
}

// AddItem inserts a new line into an unpaid cart and sets item.ID.
func (r *CartRepository) AddItem(ctx context.Context, item *cart.Item) error {
	var colorID, sizeID *string
	if item.Color != nil {
		colorID = &item.Color.ID
	}
	if item.Size != nil {
		sizeID = &item.Size.ID
	}

	err := r.pool.QueryRow(ctx, insertCartItemSQL,
		item.CartID, item.Product.ID, colorID, sizeID, item.Quantity,
	).Scan(&item.ID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return cart.ErrNotFound
		}
		return errors.Wrap(err, "insert cart item")
	}
	return nil
}

// FindItem returns the item when it belongs to the user's unpaid cart.
func (r *CartRepository) FindItem(ctx context.Context, userID, itemID int64) (*cart.Item, error) {
	rows, err := r.pool.Query(ctx, findOwnedItemSQL, userID, itemID)
	if err != nil {
		return nil, errors.Wrap(err, "find cart item")
	}
	item, err := pgx.CollectExactlyOneRow(rows, scanCartItem)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, cart.ErrItemNotFound
		}
		return nil, errors.Wrap(err, "find cart item")
	}
	return &item, nil
}

// UpdateQuantity sets the quantity of an item in an unpaid cart.
func (r *CartRepository) UpdateQuantity(ctx context.Context, itemID int64, quantity int) error {
	if quantity < 1 {
		return cart.ErrInvalidQuantity
	}
	tag, err := r.pool.Exec(ctx, updateItemQuantitySQL, itemID, quantity)
	if err != nil {
		return errors.Wrap(err, "update quantity")
	}
	if tag.RowsAffected() == 0 {
		return cart.ErrItemNotFound
	}
	return nil
}

// DeleteItem removes an item from an unpaid cart.
func (r *CartRepository) DeleteItem(ctx context.Context, itemID int64) error {
	tag, err := r.pool.Exec(ctx, deleteItemSQL, itemID)
	if err != nil {
		return errors.Wrap(err, "delete item")
	}
	if tag.RowsAffected() == 0 {
		return cart.ErrItemNotFound
	}
	return nil
}

// SetCoupon attaches a coupon to an unpaid cart.
func (r *CartRepository) SetCoupon(ctx context.Context, cartID, couponID int64) error {
	tag, err := r.pool.Exec(ctx, setCartCouponSQL, cartID, couponID)
	if err != nil {
		return errors.Wrap(err, "set coupon")
	}
	if tag.RowsAffected() == 0 {
		return cart.ErrNotFound
	}
	return nil
}

func scanCartItem(row pgx.CollectableRow) (cart.Item, error) {
	var (
		it                    cart.Item
		colorID, colorName    *string
		sizeID, sizeName      *string
		colorPrice, sizePrice decimal.NullDecimal
	)
	err := row.Scan(
		&it.ID, &it.CartID, &it.Quantity,
		&it.Product.ID, &it.Product.Name, &it.Product.Slug, &it.Product.Price,
		&colorID, &colorName, &colorPrice,
		&sizeID, &sizeName, &sizePrice,
	)
	if err != nil {
		return it, err
	}
	it.Color = nullableVariant(colorID, colorName, colorPrice)
	it.Size = nullableVariant(sizeID, sizeName, sizePrice)
	return it, nil
}

func nullableVariant(id, name *string, price decimal.NullDecimal) *product.Variant {
	if id == nil {
		return nil
	}
	v := &product.Variant{ID: *id, Price: price.Decimal}
	if name != nil {
		v.Name = *name
	}
	return v
}
