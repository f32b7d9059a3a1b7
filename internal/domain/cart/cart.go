// Package cart implements the per-user open cart: line items, coupon
// attachment and pricing.
package cart

import (
	"context"
	"strconv"
	"strings"

	"github.com/go-faster/errors"

	"github.com/xenking/storefront/internal/domain/coupon"
	"github.com/xenking/storefront/internal/domain/product"
)

var (
	// ErrNotFound is returned when a user has no open cart.
	ErrNotFound = errors.New("cart not found")
	// ErrItemNotFound is returned when a line item does not exist or does not
	// belong to the requesting user's open cart.
	ErrItemNotFound = errors.New("cart item not found")
	// ErrInvalidQuantity is returned for non-numeric or non-positive quantities.
	ErrInvalidQuantity = errors.New("quantity must be a positive integer")
)

// Cart is a user's shopping cart. At most one unpaid cart exists per user.
type Cart struct {
	ID     int64
	UserID int64
	// Coupon is the attached coupon, nil when none is applied.
	Coupon *coupon.Rule
	Paid   bool
	Items  []Item
}

// Item is a cart line. Product carries the base price; Color and Size carry
// their price deltas when selected.
type Item struct {
	ID       int64
	CartID   int64
	Product  product.Product
	Color    *product.Variant
	Size     *product.Variant
	Quantity int
}

// ParseQuantity parses a raw quantity input. It returns ErrInvalidQuantity
// for anything other than a positive integer that fits the quantity column.
func ParseQuantity(raw string) (int, error) {
	q, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 32)
	if err != nil || q < 1 {
		return 0, ErrInvalidQuantity
	}
	return int(q), nil
}

// Repository defines persistence for carts and their items. Every query that
// touches items is scoped to unpaid carts.
type Repository interface {
	// GetOrCreateOpen returns the user's unpaid cart, creating it if absent.
	// Items are populated.
	GetOrCreateOpen(ctx context.Context, userID int64) (*Cart, error)
	// FindOpen returns the user's unpaid cart with items, or ErrNotFound.
	FindOpen(ctx context.Context, userID int64) (*Cart, error)
	// AddItem inserts a new line and sets item.ID.
	AddItem(ctx context.Context, item *Item) error
	// FindItem returns the item if it belongs to the user's unpaid cart,
	// otherwise ErrItemNotFound.
	FindItem(ctx context.Context, userID, itemID int64) (*Item, error)
	UpdateQuantity(ctx context.Context, itemID int64, quantity int) error
	DeleteItem(ctx context.Context, itemID int64) error
	// SetCoupon attaches a coupon to the cart, replacing any prior one.
	SetCoupon(ctx context.Context, cartID, couponID int64) error
}
