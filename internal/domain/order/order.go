package order

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Order is the immutable snapshot written when a cart is checked out.
type Order struct {
	ID         string
	UserID     int64
	CartID     int64
	Lines      []Line
	Subtotal   decimal.Decimal
	Discount   decimal.Decimal
	Total      decimal.Decimal
	CouponID   int64
	CouponCode string
	CreatedAt  time.Time
}

// Line is a priced cart line as it was at checkout.
type Line struct {
	ProductID string          `json:"product_id"`
	Name      string          `json:"name"`
	Color     string          `json:"color,omitempty"`
	Size      string          `json:"size,omitempty"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Price     decimal.Decimal `json:"price"`
}

// Repository defines persistence operations for orders.
type Repository interface {
	// Create persists the order, marks its cart paid and, when CouponID is
	// set, counts one use of the coupon. It is atomic.
	Create(ctx context.Context, order *Order) error
}
