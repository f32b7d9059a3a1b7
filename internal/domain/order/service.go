package order

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"

	"github.com/xenking/storefront/internal/domain/cart"
)

// ErrEmptyCart is returned when checking out a cart without lines.
var ErrEmptyCart = errors.New("cart is empty")

// Carts is the subset of the cart service used by checkout.
type Carts interface {
	View(ctx context.Context, userID int64) (*cart.View, error)
}

// Service encapsulates checkout.
type Service struct {
	carts  Carts
	orders Repository
	now    func() time.Time
}

// NewService creates an order Service.
func NewService(carts Carts, orders Repository) *Service {
	return &Service{
		carts:  carts,
		orders: orders,
		now:    time.Now,
	}
}

// Checkout prices the user's open cart, persists an order snapshot and
// closes the cart.
func (s *Service) Checkout(ctx context.Context, userID int64) (*Order, error) {
	v, err := s.carts.View(ctx, userID)
	if err != nil {
		return nil, errors.Wrap(err, "view cart")
	}
	if len(v.Cart.Items) == 0 {
		return nil, ErrEmptyCart
	}

	lines := make([]Line, len(v.Cart.Items))
	for i, it := range v.Cart.Items {
		l := Line{
			ProductID: it.Product.ID,
			Name:      it.Product.Name,
			Quantity:  it.Quantity,
			UnitPrice: cart.UnitPrice(it),
			Price:     cart.ItemPrice(it),
		}
		if it.Color != nil {
			l.Color = it.Color.Name
		}
		if it.Size != nil {
			l.Size = it.Size.Name
		}
		lines[i] = l
	}

	o := &Order{
		ID:        uuid.New().String(),
		UserID:    userID,
		CartID:    v.Cart.ID,
		Lines:     lines,
		Subtotal:  v.Summary.Subtotal,
		Discount:  v.Summary.Discount,
		Total:     v.Summary.Total,
		CreatedAt: s.now(),
	}
	// A coupon that no longer grants anything is not recorded or counted.
	if c := v.Cart.Coupon; c != nil && v.Summary.Discount.IsPositive() {
		o.CouponID = c.ID
		o.CouponCode = c.Code
	}

	if err := s.orders.Create(ctx, o); err != nil {
		return nil, errors.Wrap(err, "create order")
	}
	return o, nil
}
