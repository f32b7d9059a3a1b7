package cart

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"

	"github.com/xenking/storefront/internal/domain/coupon"
	"github.com/xenking/storefront/internal/domain/product"
)

// View is a cart together with its computed prices.
type View struct {
	Cart    *Cart
	Summary Summary
}

// AddItemRequest holds the input for adding a product to the cart. Size and
// Color are variant names and may be empty.
type AddItemRequest struct {
	ProductID string
	Size      string
	Color     string
}

// AddItemResult reports the created line and any variant names that did not
// match the product. Unknown variants do not abort the add.
type AddItemResult struct {
	Item         *Item
	UnknownSize  bool
	UnknownColor bool
}

// Service encapsulates cart mutation and pricing.
type Service struct {
	carts    Repository
	products product.Repository
	coupons  coupon.Validator
	now      func() time.Time

	itemsAdded     metric.Int64Counter
	couponsApplied metric.Int64Counter
}

// NewService creates a cart Service. Counters are registered on meter.
func NewService(
	carts Repository,
	products product.Repository,
	coupons coupon.Validator,
	meter metric.Meter,
) (*Service, error) {
	itemsAdded, err := meter.Int64Counter("storefront.cart.items_added",
		metric.WithDescription("Cart lines created by add-to-cart"),
	)
	if err != nil {
		return nil, errors.Wrap(err, "items_added counter")
	}
	couponsApplied, err := meter.Int64Counter("storefront.cart.coupon_applied",
		metric.WithDescription("Coupon application attempts by outcome"),
	)
	if err != nil {
		return nil, errors.Wrap(err, "coupon_applied counter")
	}

	return &Service{
		carts:          carts,
		products:       products,
		coupons:        coupons,
		now:            time.Now,
		itemsAdded:     itemsAdded,
		couponsApplied: couponsApplied,
	}, nil
}

func (s *Service) view(c *Cart) *View {
	return &View{Cart: c, Summary: Price(c, s.now())}
}

// View returns the user's open cart, creating it on first access.
func (s *Service) View(ctx context.Context, userID int64) (*View, error) {
	c, err := s.carts.GetOrCreateOpen(ctx, userID)
	if err != nil {
		return nil, errors.Wrap(err, "get open cart")
	}
	return s.view(c), nil
}

// Peek returns the user's open cart if one exists, without creating it.
// It returns nil and no error when the user has no open cart.
func (s *Service) Peek(ctx context.Context, userID int64) (*View, error) {
	c, err := s.carts.FindOpen(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, nil
		}
		return nil, errors.Wrap(err, "find open cart")
	}
	return s.view(c), nil
}

// AddItem appends a new line for the product to the user's open cart.
// Repeated adds of the same product create separate lines.
func (s *Service) AddItem(ctx context.Context, userID int64, req AddItemRequest) (*AddItemResult, error) {
	p, err := s.products.GetByID(ctx, req.ProductID)
	if err != nil {
		if errors.Is(err, product.ErrNotFound) {
			return nil, product.ErrNotFound
		}
		return nil, errors.Wrap(err, "get product")
	}

	c, err := s.carts.GetOrCreateOpen(ctx, userID)
	if err != nil {
		return nil, errors.Wrap(err, "get open cart")
	}

	lg := zctx.From(ctx)
	res := &AddItemResult{}
	item := &Item{CartID: c.ID, Product: *p, Quantity: 1}

	if req.Size != "" {
		if v, ok := p.SizeByName(req.Size); ok {
			item.Size = &v
		} else {
			res.UnknownSize = true
			lg.Warn("Unknown size variant", zap.String("product_id", p.ID), zap.String("size", req.Size))
		}
	}
	if req.Color != "" {
		if v, ok := p.ColorByName(req.Color); ok {
			item.Color = &v
		} else {
			res.UnknownColor = true
			lg.Warn("Unknown color variant", zap.String("product_id", p.ID), zap.String("color", req.Color))
		}
	}

	if err := s.carts.AddItem(ctx, item); err != nil {
		return nil, errors.Wrap(err, "add item")
	}
	s.itemsAdded.Add(ctx, 1)

	res.Item = item
	return res, nil
}

// UpdateQuantity sets the quantity of a line in the user's open cart from a
// raw input value.
func (s *Service) UpdateQuantity(ctx context.Context, userID, itemID int64, raw string) error {
	item, err := s.carts.FindItem(ctx, userID, itemID)
	if err != nil {
		if errors.Is(err, ErrItemNotFound) {
			return ErrItemNotFound
		}
		return errors.Wrap(err, "find item")
	}

	qty, err := ParseQuantity(raw)
	if err != nil {
		return err
	}

	if err := s.carts.UpdateQuantity(ctx, item.ID, qty); err != nil {
		return errors.Wrap(err, "update quantity")
	}
	return nil
}

// RemoveItem deletes a line from the user's open cart.
func (s *Service) RemoveItem(ctx context.Context, userID, itemID int64) error {
	item, err := s.carts.FindItem(ctx, userID, itemID)
	if err != nil {
		if errors.Is(err, ErrItemNotFound) {
			return ErrItemNotFound
		}
		return errors.Wrap(err, "find item")
	}

	if err := s.carts.DeleteItem(ctx, item.ID); err != nil {
		return errors.Wrap(err, "delete item")
	}
	return nil
}

// ApplyCoupon validates code against the open cart's subtotal and attaches
// the coupon, replacing any prior one. On failure the cart is unchanged and
// the coupon sentinel error is returned.
func (s *Service) ApplyCoupon(ctx context.Context, userID int64, code string) (*View, error) {
	c, err := s.carts.GetOrCreateOpen(ctx, userID)
	if err != nil {
		return nil, errors.Wrap(err, "get open cart")
	}

	rule, err := s.coupons.Validate(ctx, code, Subtotal(c.Items))
	if err != nil {
		s.couponsApplied.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome(err))))
		return nil, err
	}

	if err := s.carts.SetCoupon(ctx, c.ID, rule.ID); err != nil {
		return nil, errors.Wrap(err, "set coupon")
	}
	s.couponsApplied.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", "applied")))

	c.Coupon = rule
	return s.view(c), nil
}

func outcome(err error) string {
	switch {
	case errors.Is(err, coupon.ErrNotFound):
		return "not_found"
	case errors.Is(err, coupon.ErrMinimumNotMet):
		return "minimum_not_met"
	case errors.Is(err, coupon.ErrCouponExpired):
		return "expired"
	case errors.Is(err, coupon.ErrUsageLimitReached):
		return "usage_limit"
	default:
		return "error"
	}
}
