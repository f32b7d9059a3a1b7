package handler

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/xenking/storefront/internal/domain/cart"
	"github.com/xenking/storefront/internal/domain/order"
	"github.com/xenking/storefront/internal/domain/product"
)

// Money values are encoded as decimal strings.

type categoryDTO struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Slug  string `json:"slug"`
	Image string `json:"image,omitempty"`
}

type variantDTO struct {
	ID    string          `json:"id"`
	Name  string          `json:"name"`
	Price decimal.Decimal `json:"price"`
}

type productDTO struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Slug        string          `json:"slug"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Category    categoryDTO     `json:"category"`
	Colors      []variantDTO    `json:"colors"`
	Sizes       []variantDTO    `json:"sizes"`
	Images      []string        `json:"images"`
}

type productDetailResponse struct {
	Product productDTO `json:"product"`
	// Cart is the caller's open cart, omitted for anonymous callers and
	// users without one.
	Cart *cartDTO `json:"cart,omitempty"`
}

type couponDTO struct {
	Code  string          `json:"code"`
	Kind  string          `json:"kind"`
	Value decimal.Decimal `json:"value"`
}

type cartItemDTO struct {
	ID        int64           `json:"id"`
	ProductID string          `json:"product_id"`
	Name      string          `json:"name"`
	Slug      string          `json:"slug"`
	Color     *variantDTO     `json:"color,omitempty"`
	Size      *variantDTO     `json:"size,omitempty"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Price     decimal.Decimal `json:"price"`
}

type cartDTO struct {
	ID       int64           `json:"id"`
	Items    []cartItemDTO   `json:"items"`
	Coupon   *couponDTO      `json:"coupon,omitempty"`
	Subtotal decimal.Decimal `json:"subtotal"`
	Discount decimal.Decimal `json:"discount"`
	Total    decimal.Decimal `json:"total"`
}

type cartResponse struct {
	Cart     cartDTO   `json:"cart"`
	Messages []message `json:"messages,omitempty"`
}

type orderDTO struct {
	ID         string          `json:"id"`
	Lines      []order.Line    `json:"lines"`
	Subtotal   decimal.Decimal `json:"subtotal"`
	Discount   decimal.Decimal `json:"discount"`
	Total      decimal.Decimal `json:"total"`
	CouponCode string          `json:"coupon_code,omitempty"`
	CreatedAt  time.Time       `json:"created_at"`
}

type tokenResponse struct {
	Token string `json:"token"`
}

func toCategoryDTO(c product.Category, imageURL func(string) string) categoryDTO {
	return categoryDTO{ID: c.ID, Name: c.Name, Slug: c.Slug, Image: imageURL(c.Image)}
}

func toVariantDTOs(vs []product.Variant) []variantDTO {
	out := make([]variantDTO, len(vs))
	for i, v := range vs {
		out[i] = variantDTO{ID: v.ID, Name: v.Name, Price: v.Price}
	}
	return out
}

func toVariantDTO(v *product.Variant) *variantDTO {
	if v == nil {
		return nil
	}
	return &variantDTO{ID: v.ID, Name: v.Name, Price: v.Price}
}

func (h *Handler) toProductDTO(p product.Product) productDTO {
	images := make([]string, len(p.Images))
	for i, img := range p.Images {
		images[i] = h.imageURL(img)
	}
	return productDTO{
		ID:          p.ID,
		Name:        p.Name,
		Slug:        p.Slug,
		Description: p.Description,
		Price:       p.Price,
		Category:    toCategoryDTO(p.Category, h.imageURL),
		Colors:      toVariantDTOs(p.Colors),
		Sizes:       toVariantDTOs(p.Sizes),
		Images:      images,
	}
}

func toCartDTO(v *cart.View) cartDTO {
	items := make([]cartItemDTO, len(v.Cart.Items))
	for i, it := range v.Cart.Items {
		items[i] = cartItemDTO{
			ID:        it.ID,
			ProductID: it.Product.ID,
			Name:      it.Product.Name,
			Slug:      it.Product.Slug,
			Color:     toVariantDTO(it.Color),
			Size:      toVariantDTO(it.Size),
			Quantity:  it.Quantity,
			UnitPrice: cart.UnitPrice(it),
			Price:     cart.ItemPrice(it),
		}
	}
	dto := cartDTO{
		ID:       v.Cart.ID,
		Items:    items,
		Subtotal: v.Summary.Subtotal,
		Discount: v.Summary.Discount,
		Total:    v.Summary.Total,
	}
	if c := v.Cart.Coupon; c != nil {
		dto.Coupon = &couponDTO{Code: c.Code, Kind: string(c.Kind), Value: c.Value}
	}
	return dto
}

func toOrderDTO(o *order.Order) orderDTO {
	return orderDTO{
		ID:         o.ID,
		Lines:      o.Lines,
		Subtotal:   o.Subtotal,
		Discount:   o.Discount,
		Total:      o.Total,
		CouponCode: o.CouponCode,
		CreatedAt:  o.CreatedAt,
	}
}
