package cart

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/xenking/storefront/internal/domain/coupon"
)

// Summary holds the computed money values for a cart.
type Summary struct {
	Subtotal decimal.Decimal
	Discount decimal.Decimal
	Total    decimal.Decimal
}

// UnitPrice is the product base price plus the selected variant deltas.
func UnitPrice(it Item) decimal.Decimal {
	price := it.Product.Price
	if it.Color != nil {
		price = price.Add(it.Color.Price)
	}
	if it.Size != nil {
		price = price.Add(it.Size.Price)
	}
	return price
}

// ItemPrice is the unit price multiplied by quantity.
func ItemPrice(it Item) decimal.Decimal {
	return UnitPrice(it).Mul(decimal.NewFromInt(int64(it.Quantity)))
}

// Subtotal sums ItemPrice over items.
func Subtotal(items []Item) decimal.Decimal {
	sum := decimal.Zero
	for _, it := range items {
		sum = sum.Add(ItemPrice(it))
	}
	return sum
}

// Total is subtotal minus discount, floored at zero and rounded to 2 places.
func Total(subtotal, discount decimal.Decimal) decimal.Decimal {
	total := subtotal.Sub(discount)
	if total.IsNegative() {
		total = decimal.Zero
	}
	return total.Round(2)
}

// Price computes the cart summary at now. The attached coupon only counts
// while it is active and the subtotal meets its minimum.
func Price(c *Cart, now time.Time) Summary {
	subtotal := Subtotal(c.Items)
	discount := coupon.Discount(c.Coupon, subtotal, now)
	return Summary{
		Subtotal: subtotal.Round(2),
		Discount: discount,
		Total:    Total(subtotal, discount),
	}
}
